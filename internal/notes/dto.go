package notes

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/blankhall98/Metaleria-API/internal/payments"
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
	"github.com/blankhall98/Metaleria-API/pkg/pagination"
)

// SubWeighingInput is one scale reading of a line.
type SubWeighingInput struct {
	GrossKg    decimal.Decimal `json:"gross_kg"`
	DiscountKg decimal.Decimal `json:"discount_kg"`
	PhotoRef   *string         `json:"photo_ref,omitempty"`
}

// LineInput describes one material weighed on a draft. When SubWeighings is
// not empty the direct gross and discount are ignored.
type LineInput struct {
	MaterialID    int64                `json:"material_id" validate:"required,gt=0"`
	GrossKg       decimal.Decimal      `json:"gross_kg"`
	DiscountKg    decimal.Decimal      `json:"discount_kg"`
	CustomerClass *enums.CustomerClass `json:"customer_class,omitempty" validate:"omitempty,oneof=regular wholesale retail"`
	EvidenceRef   *string              `json:"evidence_ref,omitempty" validate:"omitempty,max=500"`
	SubWeighings  []SubWeighingInput   `json:"sub_weighings,omitempty"`
}

// CreateDraftInput opens a new note at a branch.
type CreateDraftInput struct {
	BranchID      int64               `json:"branch_id" validate:"required,gt=0"`
	WorkerID      int64               `json:"worker_id" validate:"required,gt=0"`
	OperationType enums.OperationType `json:"operation_type" validate:"required,oneof=purchase sale"`
	Lines         []LineInput         `json:"lines" validate:"required,min=1,dive"`
	WorkerComment *string             `json:"worker_comment,omitempty"`
	SupplierID    *int64              `json:"supplier_id,omitempty"`
	CustomerID    *int64              `json:"customer_id,omitempty"`
}

// TransitionInput is the minimal request for state moves carrying only an actor.
type TransitionInput struct {
	NoteID  int64   `json:"note_id" validate:"required,gt=0"`
	ActorID int64   `json:"actor_id" validate:"required,gt=0"`
	Comment *string `json:"comment,omitempty"`
}

// ApproveInput finalises a note and applies its ledger effects.
type ApproveInput struct {
	NoteID          int64                         `json:"note_id" validate:"required,gt=0"`
	AdminID         int64                         `json:"admin_id" validate:"required,gt=0"`
	CustomerClasses map[int64]enums.CustomerClass `json:"customer_classes,omitempty"`
	AdminComment    *string                       `json:"admin_comment,omitempty"`
	DueDate         *time.Time                    `json:"due_date,omitempty"`
	Method          *enums.PaymentMethod          `json:"method,omitempty"`
	AccountRef      *string                       `json:"account_ref,omitempty"`
	InitialPayment  *decimal.Decimal              `json:"initial_payment,omitempty"`
}

// RecordPaymentInput registers a partial payment on an approved note.
type RecordPaymentInput struct {
	NoteID         int64                `json:"note_id" validate:"required,gt=0"`
	ActorID        int64                `json:"actor_id" validate:"required,gt=0"`
	Amount         decimal.Decimal      `json:"amount"`
	Method         *enums.PaymentMethod `json:"method,omitempty"`
	AccountRef     *string              `json:"account_ref,omitempty"`
	Comment        *string              `json:"comment,omitempty"`
	IdempotencyKey *string              `json:"idempotency_key,omitempty" validate:"omitempty,max=64"`
}

// WeightOverride replaces the direct weights of a line without sub-weighings.
type WeightOverride struct {
	GrossKg    *decimal.Decimal `json:"gross_kg,omitempty"`
	DiscountKg *decimal.Decimal `json:"discount_kg,omitempty"`
}

// EditInput corrects a note after the fact. Keys are weight line ids.
type EditInput struct {
	NoteID          int64                         `json:"note_id" validate:"required,gt=0"`
	AdminID         int64                         `json:"admin_id" validate:"required,gt=0"`
	CustomerClasses map[int64]enums.CustomerClass `json:"customer_classes,omitempty"`
	Weights         map[int64]WeightOverride      `json:"weights,omitempty"`
	SubWeighings    map[int64][]SubWeighingInput  `json:"sub_weighings,omitempty"`
	Comment         *string                       `json:"comment,omitempty"`
}

// TransferLineInput is one material moved between branches at an explicit price.
type TransferLineInput struct {
	MaterialID int64           `json:"material_id" validate:"required,gt=0"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// TransferInput moves stock from one branch to another as a sale/purchase pair.
type TransferInput struct {
	OriginBranchID int64               `json:"origin_branch_id" validate:"required,gt=0"`
	TargetBranchID int64               `json:"target_branch_id" validate:"required,gt=0"`
	AdminID        int64               `json:"admin_id" validate:"required,gt=0"`
	Lines          []TransferLineInput `json:"lines" validate:"required,min=1,dive"`
	Comment        *string             `json:"comment,omitempty"`
}

// TransferResult holds both approved notes of a transfer.
type TransferResult struct {
	TransferGroupID uuid.UUID `json:"transfer_group_id"`
	Sale            NoteDTO   `json:"sale"`
	Purchase        NoteDTO   `json:"purchase"`
}

// AdjustStockInput corrects a balance by a signed delta or to a target. Exactly one must be set.
type AdjustStockInput struct {
	BranchID      int64            `json:"branch_id" validate:"required,gt=0"`
	MaterialID    int64            `json:"material_id" validate:"required,gt=0"`
	Delta         *decimal.Decimal `json:"delta,omitempty"`
	TargetBalance *decimal.Decimal `json:"target_balance,omitempty"`
	Comment       string           `json:"comment" validate:"required,max=255"`
	ActorID       int64            `json:"actor_id" validate:"required,gt=0"`
}

// StockAdjustment reports the balance before and after a manual adjustment.
type StockAdjustment struct {
	AccountID       int64           `json:"account_id"`
	MovementID      int64           `json:"movement_id"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	Balance         decimal.Decimal `json:"balance"`
}

// AttachCounterpartyInput links a supplier (purchase) or customer (sale).
type AttachCounterpartyInput struct {
	NoteID    int64 `json:"note_id" validate:"required,gt=0"`
	PartnerID int64 `json:"partner_id" validate:"required,gt=0"`
	ActorID   int64 `json:"actor_id" validate:"required,gt=0"`
}

// SetCustomerClassesInput reprices lines of an open note.
type SetCustomerClassesInput struct {
	NoteID  int64                         `json:"note_id" validate:"required,gt=0"`
	ActorID int64                         `json:"actor_id" validate:"required,gt=0"`
	Classes map[int64]enums.CustomerClass `json:"classes" validate:"required,min=1"`
}

// AddEvidenceInput stores an opaque photo reference on a note.
type AddEvidenceInput struct {
	NoteID    int64   `json:"note_id" validate:"required,gt=0"`
	Reference string  `json:"reference" validate:"required,max=500"`
	Caption   *string `json:"caption,omitempty" validate:"omitempty,max=255"`
	ActorID   int64   `json:"actor_id" validate:"required,gt=0"`
}

// SetInvoiceInput stamps the invoice reference of an approved note.
type SetInvoiceInput struct {
	NoteID    int64  `json:"note_id" validate:"required,gt=0"`
	Reference string `json:"reference" validate:"required,max=255"`
	ActorID   int64  `json:"actor_id" validate:"required,gt=0"`
}

// ListNotesInput filters note listings; nil fields are ignored.
type ListNotesInput struct {
	BranchID      *int64
	OperationType *enums.OperationType
	State         *enums.NoteState
	From          *time.Time
	To            *time.Time
	pagination.Params
}

// SubWeighingDTO is the read model of a sub-weighing.
type SubWeighingDTO struct {
	ID         int64           `json:"id"`
	GrossKg    decimal.Decimal `json:"gross_kg"`
	DiscountKg decimal.Decimal `json:"discount_kg"`
	PhotoRef   *string         `json:"photo_ref,omitempty"`
}

// LineDTO is the read model of a weight line.
type LineDTO struct {
	ID             int64                `json:"id"`
	MaterialID     int64                `json:"material_id"`
	Position       int                  `json:"position"`
	GrossKg        decimal.Decimal      `json:"gross_kg"`
	DiscountKg     decimal.Decimal      `json:"discount_kg"`
	NetKg          decimal.Decimal      `json:"net_kg"`
	UnitPrice      *decimal.Decimal     `json:"unit_price,omitempty"`
	PriceVersionID *int64               `json:"price_version_id,omitempty"`
	Subtotal       *decimal.Decimal     `json:"subtotal,omitempty"`
	CustomerClass  *enums.CustomerClass `json:"customer_class,omitempty"`
	EvidenceRef    *string              `json:"evidence_ref,omitempty"`
	SubWeighings   []SubWeighingDTO     `json:"sub_weighings,omitempty"`
}

// EvidenceDTO is an extra photo reference.
type EvidenceDTO struct {
	ID        int64     `json:"id"`
	Reference string    `json:"reference"`
	Caption   *string   `json:"caption,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NoteDTO is the full read model of a note.
type NoteDTO struct {
	ID              int64                 `json:"id"`
	Folio           *string               `json:"folio,omitempty"`
	BranchID        int64                 `json:"branch_id"`
	OperationType   enums.OperationType   `json:"operation_type"`
	State           enums.NoteState       `json:"state"`
	WorkerID        int64                 `json:"worker_id"`
	AdminID         *int64                `json:"admin_id,omitempty"`
	SupplierID      *int64                `json:"supplier_id,omitempty"`
	CustomerID      *int64                `json:"customer_id,omitempty"`
	TotalGrossKg    decimal.Decimal       `json:"total_gross_kg"`
	TotalDiscountKg decimal.Decimal       `json:"total_discount_kg"`
	TotalNetKg      decimal.Decimal       `json:"total_net_kg"`
	TotalAmount     decimal.Decimal       `json:"total_amount"`
	AmountPaid      decimal.Decimal       `json:"amount_paid"`
	Balance         decimal.Decimal       `json:"balance"`
	PaymentMethod   *enums.PaymentMethod  `json:"payment_method,omitempty"`
	AccountRef      *string               `json:"account_ref,omitempty"`
	DueDate         *time.Time            `json:"due_date,omitempty"`
	WorkerComment   *string               `json:"worker_comment,omitempty"`
	AdminComment    *string               `json:"admin_comment,omitempty"`
	InvoiceRef      *string               `json:"invoice_ref,omitempty"`
	InvoicedAt      *time.Time            `json:"invoiced_at,omitempty"`
	TransferGroupID *uuid.UUID            `json:"transfer_group_id,omitempty"`
	ApprovedAt      *time.Time            `json:"approved_at,omitempty"`
	CancelledAt     *time.Time            `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	Lines           []LineDTO             `json:"lines"`
	Payments        []payments.PaymentDTO `json:"payments,omitempty"`
	Evidence        []EvidenceDTO         `json:"evidence,omitempty"`
}

// NoteSummaryDTO is the listing shape of a note, without lines.
type NoteSummaryDTO struct {
	ID            int64               `json:"id"`
	Folio         *string             `json:"folio,omitempty"`
	BranchID      int64               `json:"branch_id"`
	OperationType enums.OperationType `json:"operation_type"`
	State         enums.NoteState     `json:"state"`
	TotalNetKg    decimal.Decimal     `json:"total_net_kg"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	AmountPaid    decimal.Decimal     `json:"amount_paid"`
	CreatedAt     time.Time           `json:"created_at"`
}

// NoteList is one page of notes.
type NoteList struct {
	Items      []NoteSummaryDTO `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

func nullToPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func toNoteDTO(note models.Note) NoteDTO {
	dto := NoteDTO{
		ID:              note.ID,
		Folio:           Folio(note.BranchID, note.OperationType, note.FolioSeq),
		BranchID:        note.BranchID,
		OperationType:   note.OperationType,
		State:           note.State,
		WorkerID:        note.WorkerID,
		AdminID:         note.AdminID,
		SupplierID:      note.SupplierID,
		CustomerID:      note.CustomerID,
		TotalGrossKg:    note.TotalGrossKg,
		TotalDiscountKg: note.TotalDiscountKg,
		TotalNetKg:      note.TotalNetKg,
		TotalAmount:     note.TotalAmount,
		AmountPaid:      note.AmountPaid,
		Balance:         payments.Outstanding(note),
		PaymentMethod:   note.PaymentMethod,
		AccountRef:      note.AccountRef,
		DueDate:         note.DueDate,
		WorkerComment:   note.WorkerComment,
		AdminComment:    note.AdminComment,
		InvoiceRef:      note.InvoiceRef,
		InvoicedAt:      note.InvoicedAt,
		TransferGroupID: note.TransferGroupID,
		ApprovedAt:      note.ApprovedAt,
		CancelledAt:     note.CancelledAt,
		CreatedAt:       note.CreatedAt,
		UpdatedAt:       note.UpdatedAt,
		Lines:           make([]LineDTO, 0, len(note.Lines)),
	}
	for _, line := range note.Lines {
		l := LineDTO{
			ID:             line.ID,
			MaterialID:     line.MaterialID,
			Position:       line.Position,
			GrossKg:        line.GrossKg,
			DiscountKg:     line.DiscountKg,
			NetKg:          line.NetKg,
			UnitPrice:      nullToPtr(line.UnitPrice),
			PriceVersionID: line.PriceVersionID,
			Subtotal:       nullToPtr(line.Subtotal),
			CustomerClass:  line.CustomerClass,
			EvidenceRef:    line.EvidenceRef,
		}
		for _, sw := range line.SubWeighings {
			l.SubWeighings = append(l.SubWeighings, SubWeighingDTO{
				ID:         sw.ID,
				GrossKg:    sw.GrossKg,
				DiscountKg: sw.DiscountKg,
				PhotoRef:   sw.PhotoRef,
			})
		}
		dto.Lines = append(dto.Lines, l)
	}
	return dto
}

func toSummaryDTO(note models.Note) NoteSummaryDTO {
	return NoteSummaryDTO{
		ID:            note.ID,
		Folio:         Folio(note.BranchID, note.OperationType, note.FolioSeq),
		BranchID:      note.BranchID,
		OperationType: note.OperationType,
		State:         note.State,
		TotalNetKg:    note.TotalNetKg,
		TotalAmount:   note.TotalAmount,
		AmountPaid:    note.AmountPaid,
		CreatedAt:     note.CreatedAt,
	}
}

func toEvidenceDTO(e models.NoteEvidence) EvidenceDTO {
	return EvidenceDTO{ID: e.ID, Reference: e.Reference, Caption: e.Caption, CreatedAt: e.CreatedAt}
}
