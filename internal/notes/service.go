package notes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/internal/valuation"
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
	pkgerrors "github.com/blankhall98/Metaleria-API/pkg/errors"
	"github.com/blankhall98/Metaleria-API/pkg/logger"
	"github.com/blankhall98/Metaleria-API/pkg/metrics"
	"github.com/blankhall98/Metaleria-API/pkg/outbox"
	"github.com/blankhall98/Metaleria-API/pkg/outbox/payloads"
	"github.com/blankhall98/Metaleria-API/pkg/pagination"
	"github.com/blankhall98/Metaleria-API/pkg/validators"
)

const (
	opCreateDraft        = "create_draft"
	opSubmit             = "submit_for_review"
	opApprove            = "approve"
	opCancelApproved     = "cancel_approved"
	opCancelNonApproved  = "cancel_non_approved"
	opReturnToDraft      = "return_to_draft"
	opRecordPayment      = "record_payment"
	opEditApproved       = "edit_approved"
	opTransfer           = "create_transfer_pair"
	opAdjustStock        = "adjust_stock"
	opAttachCounterparty = "attach_counterparty"
	opSetClasses         = "set_customer_classes"
	opDelete             = "delete_note"
	opAddEvidence        = "add_evidence"
	opSetInvoice         = "set_invoice_reference"
)

// Service is the note lifecycle controller. Every mutating operation runs in
// a single transaction together with its inventory, accounting, payment and
// outbox effects.
type Service interface {
	CreateDraft(ctx context.Context, input CreateDraftInput) (*NoteDTO, error)
	SubmitForReview(ctx context.Context, input TransitionInput) (*NoteDTO, error)
	Approve(ctx context.Context, input ApproveInput) (*NoteDTO, error)
	CancelApproved(ctx context.Context, input TransitionInput) (*NoteDTO, error)
	CancelNonApproved(ctx context.Context, input TransitionInput) (*NoteDTO, error)
	ReturnToDraft(ctx context.Context, input TransitionInput) (*NoteDTO, error)
	RecordPayment(ctx context.Context, input RecordPaymentInput) (*NoteDTO, error)
	EditApproved(ctx context.Context, input EditInput) (*NoteDTO, error)
	CreateTransferPair(ctx context.Context, input TransferInput) (*TransferResult, error)
	AdjustStockManually(ctx context.Context, input AdjustStockInput) (*StockAdjustment, error)

	AttachCounterparty(ctx context.Context, input AttachCounterpartyInput) (*NoteDTO, error)
	SetCustomerClasses(ctx context.Context, input SetCustomerClassesInput) (*NoteDTO, error)
	DeleteNote(ctx context.Context, input TransitionInput) error
	AddEvidence(ctx context.Context, input AddEvidenceInput) (*EvidenceDTO, error)
	SetInvoiceReference(ctx context.Context, input SetInvoiceInput) (*NoteDTO, error)

	GetNote(ctx context.Context, id int64) (*NoteDTO, error)
	ListNotes(ctx context.Context, input ListNotesInput) (*NoteList, error)
}

// ServiceParams bundles the collaborators of the lifecycle controller.
type ServiceParams struct {
	Repo        Repository
	Tx          txRunner
	Outbox      outboxPublisher
	Materials   materialChecker
	Prices      priceLookup
	Inventory   inventoryLedger
	Accounting  accountingLedger
	Payments    paymentRegister
	Partners    partnerDirectory
	Idempotency idempotencyGuard
	Metrics     operationObserver
	Logger      *logger.Logger
}

type service struct {
	repo       Repository
	tx         txRunner
	outbox     outboxPublisher
	materials  materialChecker
	prices     priceLookup
	inventory  inventoryLedger
	accounting accountingLedger
	payments   paymentRegister
	partners   partnerDirectory
	idem       idempotencyGuard
	metrics    operationObserver
	logg       *logger.Logger
	now        func() time.Time
}

// NewService wires the lifecycle controller. Idempotency, Metrics and Logger are optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notes repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Materials == nil {
		return nil, fmt.Errorf("materials checker required")
	}
	if params.Prices == nil {
		return nil, fmt.Errorf("price lookup required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if params.Accounting == nil {
		return nil, fmt.Errorf("accounting ledger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment register required")
	}
	if params.Partners == nil {
		return nil, fmt.Errorf("partner directory required")
	}
	return &service{
		repo:       params.Repo,
		tx:         params.Tx,
		outbox:     params.Outbox,
		materials:  params.Materials,
		prices:     params.Prices,
		inventory:  params.Inventory,
		accounting: params.Accounting,
		payments:   params.Payments,
		partners:   params.Partners,
		idem:       params.Idempotency,
		metrics:    params.Metrics,
		logg:       params.Logger,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CreateDraft(ctx context.Context, input CreateDraftInput) (dto *NoteDTO, err error) {
	defer s.observe(opCreateDraft, time.Now(), &err)
	if err := validators.Struct(input); err != nil {
		return nil, err
	}
	lines, err := buildLines(input.Lines)
	if err != nil {
		return nil, err
	}

	var note *models.Note
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.partners.GetBranch(ctx, tx, input.BranchID); err != nil {
			return err
		}
		if err := s.materials.EnsureExist(ctx, tx, materialIDs(lines)); err != nil {
			return err
		}
		note = &models.Note{
			BranchID:      input.BranchID,
			OperationType: input.OperationType,
			WorkerID:      input.WorkerID,
			State:         enums.NoteStateDraft,
			WorkerComment: trimmed(input.WorkerComment),
			Lines:         lines,
		}
		if err := s.setCounterparty(ctx, tx, note, input.SupplierID, input.CustomerID); err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		seq, err := repo.NextFolio(ctx, input.BranchID, input.OperationType)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign folio")
		}
		note.FolioSeq = &seq
		if err := valuation.ApplyPrices(note, s.resolver(ctx, tx, note.OperationType)); err != nil {
			return err
		}
		if err := repo.Create(ctx, note); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create note")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logDone(ctx, opCreateDraft, note, input.WorkerID)
	out := toNoteDTO(*note)
	return &out, nil
}

func (s *service) SubmitForReview(ctx context.Context, input TransitionInput) (dto *NoteDTO, err error) {
	defer s.observe(opSubmit, time.Now(), &err)
	if err := validators.Struct(input); err != nil {
		return nil, err
	}
	var note *models.Note
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		note, err = s.load(ctx, tx, input.NoteID)
		if err != nil {
			return err
		}
		if err := transition(note, enums.NoteStateInReview); err != nil {
			return err
		}
		for i := range note.Lines {
			if note.Lines[i].CustomerClass == nil {
				class := enums.CustomerClassRegular
				note.Lines[i].CustomerClass = &class
			}
		}
		if comment := trimmed(input.Comment); comment != nil {
			note.WorkerComment = comment
		}
		if err := s.reprice(ctx, tx, note); err != nil {
			return err
		}
		if err := s.saveHeader(ctx, tx, note); err != nil {
			return err
		}
		if err := s.snapshot(ctx, tx, note, input.ActorID); err != nil {
			return err
		}
		return s.emit(ctx, tx, note, enums.EventNoteSubmitted, input.ActorID, payloads.NoteSubmittedEvent{
			NoteID:        note.ID,
			BranchID:      note.BranchID,
			OperationType: note.OperationType,
			Folio:         folioString(note),
			Total:         note.TotalAmount,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logDone(ctx, opSubmit, note, input.ActorID)
	out := toNoteDTO(*note)
	return &out, nil
}

func (s *service) ReturnToDraft(ctx context.Context, input TransitionInput) (dto *NoteDTO, err error) {
	defer s.observe(opReturnToDraft, time.Now(), &err)
	if err := validators.Struct(input); err != nil {
		return nil, err
	}
	var note *models.Note
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		note, err = s.load(ctx, tx, input.NoteID)
		if err != nil {
			return err
		}
		if err := requireState(note, enums.NoteStateDraft, enums.NoteStateInReview); err != nil {
			return err
		}
		if err := transition(note, enums.NoteStateDraft); err != nil {
			return err
		}
		if comment := trimmed(input.Comment); comment != nil {
			note.AdminComment = comment
		}
		return s.saveHeader(ctx, tx, note)
	})
	if err != nil {
		return nil, err
	}
	s.logDone(ctx, opReturnToDraft, note, input.ActorID)
	out := toNoteDTO(*note)
	return &out, nil
}

func (s *service) CancelNonApproved(ctx context.Context, input TransitionInput) (dto *NoteDTO, err error) {
	defer s.observe(opCancelNonApproved, time.Now(), &err)
	if err := validators.Struct(input); err != nil {
		return nil, err
	}
	var note *models.Note
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		note, err = s.load(ctx, tx, input.NoteID)
		if err != nil {
			return err
		}
		if err := requireState(note, enums.NoteStateCancelled, enums.NoteStateDraft, enums.NoteStateInReview); err != nil {
			return err
		}
		previous := note.State
		if err := transition(note, enums.NoteStateCancelled); err != nil {
			return err
		}
		now := s.now()
		admin := input.ActorID
		note.AdminID = &admin
		note.CancelledAt = &now
		if comment := trimmed(input.Comment); comment != nil {
			note.AdminComment = comment
		}
		if err := s.saveHeader(ctx, tx, note); err != nil {
			return err
		}
		return s.emit(ctx, tx, note, enums.EventNoteCancelled, input.ActorID, payloads.NoteCancelledEvent{
			NoteID:        note.ID,
			BranchID:      note.BranchID,
			OperationType: note.OperationType,
			Folio:         folioString(note),
			PreviousState: previous,
			Reversed:      false,
			Reason:        stringOrEmpty(note.AdminComment),
			CancelledAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}
	s.logDone(ctx, opCancelNonApproved, note, input.ActorID)
	out := toNoteDTO(*note)
	return &out, nil
}

func (s *service) AttachCounterparty(ctx context.Context, input AttachCounterpartyInput) (dto *NoteDTO, err error) {
	defer s.observe(opAttachCounterparty, time.Now(), &err)
	if err := validators.Struct(input); err != nil {
		return nil, err
	}
	var note *models.Note
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		note, err = s.load(ctx, tx, input.NoteID)
		if err != nil {
			return err
		}
		if err := requireState(note, note.State, enums.NoteStateDraft, enums.NoteStateInReview); err != nil {
			return err
		}
		partnerID := input.PartnerID
		if note.OperationType == enums.OperationPurchase {
			err = s.setCounterparty(ctx, tx, note, &partnerID, nil)
		} else {
			err = s.setCounterparty(ctx, tx, note, nil, &partnerID)
		}
		if err != nil {
			return err
		}
		return s.saveHeader(ctx, tx, note)
	})
	if err != nil {
		return nil, err
	}
	s.logDone(ctx, opAttachCounterparty, note, input.ActorID)
	out := toNoteDTO(*note)
	return &out, nil
}

func (s *service) SetCustomerClasses(ctx context.Context, input SetCustomerClassesInput) (dto *NoteDTO, err error) {
	defer s.observe(opSetClasses, time.Now(), &err)
	if err := validators.Struct(input); err != nil {
		return nil, err
	}
	var note *models.Note
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		note, err = s.load(ctx, tx, input.NoteID)
		if err != nil {
			return err
		}
		if err := requireState(note, note.State, enums.NoteStateDraft, enums.NoteStateInReview); err != nil {
			return err
		}
		if _, err := applyClasses(note, input.Classes); err != nil {
			return err
		}
		if err := s.reprice(ctx, tx, note); err != nil {
			return err
		}
		return s.saveHeader(ctx, tx, note)
	})
	if err != nil {
		return nil, err
	}
	s.logDone(ctx, opSetClasses, note, input.ActorID)
	out := toNoteDTO(*note)
	return &out, nil
}

func (s *service) DeleteNote(ctx context.Context, input TransitionInput) (err error) {
	defer s.observe(opDelete, time.Now(), &err)
	if err := validators.Struct(input); err != nil {
		return err
	}
	var note *models.Note
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		note, err = s.load(ctx, tx, input.NoteID)
		if err != nil {
			return err
		}
		if err := requireState(note, note.State, enums.NoteStateDraft, enums.NoteStateInReview); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).Delete(ctx, note.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete note")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logDone(ctx, opDelete, note, input.ActorID)
	return nil
}

func (s *service) AddEvidence(ctx context.Context, input AddEvidenceInput) (dto *EvidenceDTO, err error) {
	defer s.observe(opAddEvidence, time.Now(), &err)
	input.Reference = strings.TrimSpace(input.Reference)
	if err := validators.Struct(input); err != nil {
		return nil, err
	}
	var evidence models.NoteEvidence
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		note, err := s.load(ctx, tx, input.NoteID)
		if err != nil {
			return err
		}
		if note.State == enums.NoteStateCancelled {
			return invalidTransition(note, note.State)
		}
		actor := input.ActorID
		evidence = models.NoteEvidence{
			NoteID:    note.ID,
			Reference: input.Reference,
			Caption:   trimmed(input.Caption),
			CreatedBy: &actor,
		}
		if err := s.repo.WithTx(tx).AddEvidence(ctx, &evidence); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add note evidence")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := toEvidenceDTO(evidence)
	return &out, nil
}

func (s *service) SetInvoiceReference(ctx context.Context, input SetInvoiceInput) (dto *NoteDTO, err error) {
	defer s.observe(opSetInvoice, time.Now(), &err)
	input.Reference = strings.TrimSpace(input.Reference)
	if err := validators.Struct(input); err != nil {
		return nil, err
	}
	var note *models.Note
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		note, err = s.load(ctx, tx, input.NoteID)
		if err != nil {
			return err
		}
		if err := requireState(note, note.State, enums.NoteStateApproved); err != nil {
			return err
		}
		now := s.now()
		ref := input.Reference
		note.InvoiceRef = &ref
		note.InvoicedAt = &now
		return s.saveHeader(ctx, tx, note)
	})
	if err != nil {
		return nil, err
	}
	s.logDone(ctx, opSetInvoice, note, input.ActorID)
	out := toNoteDTO(*note)
	return &out, nil
}

func (s *service) GetNote(ctx context.Context, id int64) (*NoteDTO, error) {
	note, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, noteNotFound(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load note")
	}
	dto := toNoteDTO(*note)
	paid, err := s.payments.ListByNote(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	dto.Payments = paid
	evidence, err := s.repo.ListEvidence(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list note evidence")
	}
	for _, e := range evidence {
		dto.Evidence = append(dto.Evidence, toEvidenceDTO(e))
	}
	return &dto, nil
}

func (s *service) ListNotes(ctx context.Context, input ListNotesInput) (*NoteList, error) {
	beforeID, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, ListFilter{
		BranchID:      input.BranchID,
		OperationType: input.OperationType,
		State:         input.State,
		From:          input.From,
		To:            input.To,
		BeforeID:      beforeID,
		Limit:         pagination.LimitWithBuffer(input.Limit),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notes")
	}
	page, more := pagination.Trim(rows, input.Limit)
	list := &NoteList{Items: make([]NoteSummaryDTO, 0, len(page))}
	for _, row := range page {
		list.Items = append(list.Items, toSummaryDTO(row))
	}
	if more {
		list.NextCursor = pagination.EncodeCursor(page[len(page)-1].ID)
	}
	return list, nil
}

func (s *service) load(ctx context.Context, tx *gorm.DB, id int64) (*models.Note, error) {
	note, err := s.repo.WithTx(tx).FindForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, noteNotFound(id)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load note")
	}
	return note, nil
}

func (s *service) resolver(ctx context.Context, tx *gorm.DB, op enums.OperationType) valuation.Resolver {
	return func(materialID int64, class enums.CustomerClass) (*models.PriceVersion, error) {
		return s.prices.LookupActivePrice(ctx, tx, materialID, op, class)
	}
}

// reprice resolves prices for every line, refreshes totals and persists the lines.
func (s *service) reprice(ctx context.Context, tx *gorm.DB, note *models.Note) error {
	if err := valuation.ApplyPrices(note, s.resolver(ctx, tx, note.OperationType)); err != nil {
		return err
	}
	return s.saveLines(ctx, tx, note.Lines)
}

func (s *service) saveLines(ctx context.Context, tx *gorm.DB, lines []models.WeightLine) error {
	repo := s.repo.WithTx(tx)
	for i := range lines {
		if err := repo.SaveLine(ctx, &lines[i]); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save weight line")
		}
	}
	return nil
}

func (s *service) saveHeader(ctx context.Context, tx *gorm.DB, note *models.Note) error {
	if err := s.repo.WithTx(tx).SaveHeader(ctx, note); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save note")
	}
	return nil
}

func (s *service) snapshot(ctx context.Context, tx *gorm.DB, note *models.Note, actorID int64) error {
	payload, err := json.Marshal(toNoteDTO(*note))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "serialize note snapshot")
	}
	actor := actorID
	snapshot := &models.NoteSnapshot{
		NoteID:     note.ID,
		Payload:    payload,
		CapturedBy: &actor,
		CapturedAt: s.now(),
	}
	if err := s.repo.WithTx(tx).UpsertSnapshot(ctx, snapshot); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store note snapshot")
	}
	return nil
}

// setCounterparty validates and stores the supplier of a purchase or the customer of a sale.
func (s *service) setCounterparty(ctx context.Context, tx *gorm.DB, note *models.Note, supplierID, customerID *int64) error {
	switch note.OperationType {
	case enums.OperationPurchase:
		if customerID != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "purchase notes take a supplier, not a customer")
		}
		if supplierID == nil {
			return nil
		}
		supplier, err := s.partners.GetSupplier(ctx, tx, *supplierID)
		if err != nil {
			return err
		}
		note.SupplierID = &supplier.ID
	case enums.OperationSale:
		if supplierID != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "sale notes take a customer, not a supplier")
		}
		if customerID == nil {
			return nil
		}
		customer, err := s.partners.GetCustomer(ctx, tx, *customerID)
		if err != nil {
			return err
		}
		note.CustomerID = &customer.ID
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid operation type %q", note.OperationType))
	}
	return nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, note *models.Note, eventType enums.OutboxEventType, actorID int64, data any) error {
	branch := note.BranchID
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateNote,
		AggregateID:   strconv.FormatInt(note.ID, 10),
		Actor:         &outbox.ActorRef{UserID: actorID, BranchID: &branch},
		Data:          data,
		OccurredAt:    s.now(),
	})
}

func (s *service) observe(operation string, start time.Time, errp *error) {
	if s.metrics == nil {
		return
	}
	outcome := metrics.OutcomeSuccess
	if errp != nil && *errp != nil {
		outcome = metrics.OutcomeRejected
		if pkgerrors.ClassOf(*errp) == pkgerrors.ClassFailure {
			outcome = metrics.OutcomeError
		}
	}
	s.metrics.Observe(operation, outcome, time.Since(start))
}

func (s *service) logDone(ctx context.Context, operation string, note *models.Note, actorID int64) {
	if s.logg == nil || note == nil {
		return
	}
	logCtx := s.logg.WithOperation(ctx, operation)
	logCtx = s.logg.WithNoteID(logCtx, note.ID)
	logCtx = s.logg.WithBranchID(logCtx, note.BranchID)
	logCtx = s.logg.WithActorID(logCtx, actorID)
	logCtx = s.logg.WithField(logCtx, "state", note.State)
	s.logg.Info(logCtx, "note "+strings.ReplaceAll(operation, "_", " "))
}

func buildLines(inputs []LineInput) ([]models.WeightLine, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one weight line is required")
	}
	lines := make([]models.WeightLine, 0, len(inputs))
	for i, in := range inputs {
		line := models.WeightLine{
			MaterialID:    in.MaterialID,
			GrossKg:       in.GrossKg,
			DiscountKg:    in.DiscountKg,
			Position:      i + 1,
			CustomerClass: in.CustomerClass,
			EvidenceRef:   trimmed(in.EvidenceRef),
		}
		if len(in.SubWeighings) > 0 {
			subs, err := buildSubWeighings(in.SubWeighings)
			if err != nil {
				return nil, err
			}
			line.SubWeighings = subs
		} else if err := valuation.ValidateWeighing(in.GrossKg, in.DiscountKg); err != nil {
			return nil, err
		}
		valuation.RecalculateLine(&line)
		lines = append(lines, line)
	}
	return lines, nil
}

func buildSubWeighings(inputs []SubWeighingInput) ([]models.SubWeighing, error) {
	subs := make([]models.SubWeighing, 0, len(inputs))
	for i, in := range inputs {
		if err := valuation.ValidateWeighing(in.GrossKg, in.DiscountKg); err != nil {
			return nil, err
		}
		subs = append(subs, models.SubWeighing{
			GrossKg:    in.GrossKg,
			DiscountKg: in.DiscountKg,
			PhotoRef:   trimmed(in.PhotoRef),
			Position:   i + 1,
		})
	}
	return subs, nil
}

// applyClasses sets per-line customer classes and returns the ids of lines that changed.
func applyClasses(note *models.Note, classes map[int64]enums.CustomerClass) (map[int64]bool, error) {
	changed := map[int64]bool{}
	if len(classes) == 0 {
		return changed, nil
	}
	index := lineIndex(note)
	for lineID, class := range classes {
		if !class.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid customer class %q", class)).
				WithDetails(map[string]any{"line_id": lineID})
		}
		i, ok := index[lineID]
		if !ok {
			return nil, unknownLine(note, lineID)
		}
		line := &note.Lines[i]
		if line.CustomerClass != nil && *line.CustomerClass == class {
			continue
		}
		c := class
		line.CustomerClass = &c
		changed[lineID] = true
	}
	return changed, nil
}

func lineIndex(note *models.Note) map[int64]int {
	index := make(map[int64]int, len(note.Lines))
	for i, line := range note.Lines {
		index[line.ID] = i
	}
	return index
}

func materialIDs(lines []models.WeightLine) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.MaterialID)
	}
	return ids
}

func folioString(note *models.Note) string {
	return stringOrEmpty(Folio(note.BranchID, note.OperationType, note.FolioSeq))
}

func noteNotFound(id int64) error {
	return pkgerrors.New(pkgerrors.CodeTicketNotFound, "note not found").
		WithDetails(map[string]any{"note_id": id})
}

func unknownLine(note *models.Note, lineID int64) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "weight line does not belong to note").
		WithDetails(map[string]any{"note_id": note.ID, "line_id": lineID})
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}

func stringOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
