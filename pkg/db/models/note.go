package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/blankhall98/Metaleria-API/pkg/enums"
)

// Note is a weighing ticket for a purchase or a sale at one branch.
type Note struct {
	ID              int64                `gorm:"column:id;primaryKey;autoIncrement"`
	BranchID        int64                `gorm:"column:branch_id;not null;uniqueIndex:ux_notes_folio,priority:1"`
	OperationType   enums.OperationType  `gorm:"column:operation_type;type:varchar(20);not null;uniqueIndex:ux_notes_folio,priority:2"`
	FolioSeq        *int64               `gorm:"column:folio_seq;uniqueIndex:ux_notes_folio,priority:3"`
	WorkerID        int64                `gorm:"column:worker_id;not null"`
	AdminID         *int64               `gorm:"column:admin_id"`
	SupplierID      *int64               `gorm:"column:supplier_id;index:ix_notes_supplier"`
	CustomerID      *int64               `gorm:"column:customer_id;index:ix_notes_customer"`
	State           enums.NoteState      `gorm:"column:state;type:varchar(20);not null;index:ix_notes_state"`
	TotalGrossKg    decimal.Decimal      `gorm:"column:total_gross_kg;type:numeric(14,3);not null"`
	TotalDiscountKg decimal.Decimal      `gorm:"column:total_discount_kg;type:numeric(14,3);not null"`
	TotalNetKg      decimal.Decimal      `gorm:"column:total_net_kg;type:numeric(14,3);not null"`
	TotalAmount     decimal.Decimal      `gorm:"column:total_amount;type:numeric(14,2);not null"`
	AmountPaid      decimal.Decimal      `gorm:"column:amount_paid;type:numeric(14,2);not null"`
	PaymentMethod   *enums.PaymentMethod `gorm:"column:payment_method;type:varchar(20)"`
	AccountRef      *string              `gorm:"column:account_ref;size:100"`
	DueDate         *time.Time           `gorm:"column:due_date"`
	WorkerComment   *string              `gorm:"column:worker_comment;type:text"`
	AdminComment    *string              `gorm:"column:admin_comment;type:text"`
	InvoiceRef      *string              `gorm:"column:invoice_ref;size:255"`
	InvoicedAt      *time.Time           `gorm:"column:invoiced_at"`
	TransferGroupID *uuid.UUID           `gorm:"column:transfer_group_id;type:uuid;index:ix_notes_transfer_group"`
	ApprovedAt      *time.Time           `gorm:"column:approved_at"`
	CancelledAt     *time.Time           `gorm:"column:cancelled_at"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime;index:ix_notes_created_at"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`

	Lines []WeightLine `gorm:"foreignKey:NoteID;constraint:OnDelete:CASCADE"`
}

// WeightLine is one material's weighing entry inside a note.
type WeightLine struct {
	ID             int64                `gorm:"column:id;primaryKey;autoIncrement"`
	NoteID         int64                `gorm:"column:note_id;not null;index:ix_weight_lines_note"`
	MaterialID     int64                `gorm:"column:material_id;not null"`
	GrossKg        decimal.Decimal      `gorm:"column:gross_kg;type:numeric(14,3);not null"`
	DiscountKg     decimal.Decimal      `gorm:"column:discount_kg;type:numeric(14,3);not null"`
	NetKg          decimal.Decimal      `gorm:"column:net_kg;type:numeric(14,3);not null"`
	UnitPrice      decimal.NullDecimal  `gorm:"column:unit_price;type:numeric(14,2)"`
	PriceVersionID *int64               `gorm:"column:price_version_id"`
	Subtotal       decimal.NullDecimal  `gorm:"column:subtotal;type:numeric(14,2)"`
	Position       int                  `gorm:"column:position;not null"`
	CustomerClass  *enums.CustomerClass `gorm:"column:customer_class;type:varchar(20)"`
	EvidenceRef    *string              `gorm:"column:evidence_ref;size:500"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`

	SubWeighings []SubWeighing `gorm:"foreignKey:LineID;constraint:OnDelete:CASCADE"`
}

// SubWeighing is an individual scale reading contributing to a weight line.
type SubWeighing struct {
	ID         int64           `gorm:"column:id;primaryKey;autoIncrement"`
	LineID     int64           `gorm:"column:line_id;not null;index:ix_sub_weighings_line"`
	GrossKg    decimal.Decimal `gorm:"column:gross_kg;type:numeric(14,3);not null"`
	DiscountKg decimal.Decimal `gorm:"column:discount_kg;type:numeric(14,3);not null"`
	PhotoRef   *string         `gorm:"column:photo_ref;size:500"`
	Position   int             `gorm:"column:position;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// NoteSnapshot keeps the serialized note captured on its latest submission to review.
type NoteSnapshot struct {
	NoteID     int64           `gorm:"column:note_id;primaryKey"`
	Payload    json.RawMessage `gorm:"column:payload;type:jsonb;not null"`
	CapturedBy *int64          `gorm:"column:captured_by"`
	CapturedAt time.Time       `gorm:"column:captured_at;not null"`
}

// NoteEvidence is an extra photo reference attached to a note.
type NoteEvidence struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	NoteID    int64     `gorm:"column:note_id;not null;index:ix_note_evidences_note"`
	Reference string    `gorm:"column:reference;size:500;not null"`
	Caption   *string   `gorm:"column:caption;size:255"`
	CreatedBy *int64    `gorm:"column:created_by"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// FolioCounter holds the last folio number handed out per branch and operation.
type FolioCounter struct {
	BranchID      int64               `gorm:"column:branch_id;primaryKey;autoIncrement:false"`
	OperationType enums.OperationType `gorm:"column:operation_type;type:varchar(20);primaryKey"`
	LastNumber    int64               `gorm:"column:last_number;not null"`
}
