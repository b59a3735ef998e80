package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/blankhall98/Metaleria-API/pkg/enums"
)

// NoteSubmittedEvent is emitted when a draft receives its folio and enters review.
type NoteSubmittedEvent struct {
	NoteID        int64               `json:"note_id"`
	BranchID      int64               `json:"branch_id"`
	OperationType enums.OperationType `json:"operation_type"`
	Folio         string              `json:"folio"`
	Total         decimal.Decimal     `json:"total"`
}

// NoteApprovedEvent is emitted once inventory and accounting effects have been applied.
type NoteApprovedEvent struct {
	NoteID        int64               `json:"note_id"`
	BranchID      int64               `json:"branch_id"`
	OperationType enums.OperationType `json:"operation_type"`
	Folio         string              `json:"folio"`
	Total         decimal.Decimal     `json:"total"`
	AmountPaid    decimal.Decimal     `json:"amount_paid"`
	ApprovedAt    time.Time           `json:"approved_at"`
}

// NoteCancelledEvent reports a cancellation and whether ledger effects were reversed.
type NoteCancelledEvent struct {
	NoteID        int64               `json:"note_id"`
	BranchID      int64               `json:"branch_id"`
	OperationType enums.OperationType `json:"operation_type"`
	Folio         string              `json:"folio,omitempty"`
	PreviousState enums.NoteState     `json:"previous_state"`
	Reversed      bool                `json:"reversed"`
	Reason        string              `json:"reason,omitempty"`
	CancelledAt   time.Time           `json:"cancelled_at"`
}

// NoteEditedEvent carries the totals before and after an approved-note edit.
type NoteEditedEvent struct {
	NoteID        int64           `json:"note_id"`
	BranchID      int64           `json:"branch_id"`
	Folio         string          `json:"folio"`
	PreviousTotal decimal.Decimal `json:"previous_total"`
	Total         decimal.Decimal `json:"total"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
}

// PaymentRecordedEvent is emitted for each payment registered against an approved note.
type PaymentRecordedEvent struct {
	NoteID     int64               `json:"note_id"`
	PaymentID  int64               `json:"payment_id"`
	Amount     decimal.Decimal     `json:"amount"`
	Method     enums.PaymentMethod `json:"method"`
	AccountRef string              `json:"account_ref,omitempty"`
	AmountPaid decimal.Decimal     `json:"amount_paid"`
	Balance    decimal.Decimal     `json:"balance"`
}

// TransferCreatedEvent links the purchase and sale notes of an inter-branch transfer.
type TransferCreatedEvent struct {
	TransferGroupID uuid.UUID `json:"transfer_group_id"`
	SaleNoteID      int64     `json:"sale_note_id"`
	PurchaseNoteID  int64     `json:"purchase_note_id"`
	OriginBranchID  int64     `json:"origin_branch_id"`
	TargetBranchID  int64     `json:"target_branch_id"`
}

// StockAdjustedEvent is emitted for manual corrections of an inventory balance.
type StockAdjustedEvent struct {
	BranchID        int64           `json:"branch_id"`
	MaterialID      int64           `json:"material_id"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	Balance         decimal.Decimal `json:"balance"`
	Comment         string          `json:"comment,omitempty"`
}

// PriceVersionCreatedEvent is emitted when a new active price version replaces the previous one.
type PriceVersionCreatedEvent struct {
	PriceVersionID  int64               `json:"price_version_id"`
	MaterialID      int64               `json:"material_id"`
	OperationType   enums.OperationType `json:"operation_type"`
	CustomerClass   enums.CustomerClass `json:"customer_class"`
	Version         int                 `json:"version"`
	UnitPrice       decimal.Decimal     `json:"unit_price"`
	PreviousPrice   *decimal.Decimal    `json:"previous_price,omitempty"`
	PreviousVersion *int                `json:"previous_version,omitempty"`
}
