package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/blankhall98/Metaleria-API/pkg/enums"
)

// InventoryAccount is the running stock balance of one material at one branch.
type InventoryAccount struct {
	ID           int64           `gorm:"column:id;primaryKey;autoIncrement"`
	BranchID     int64           `gorm:"column:branch_id;not null;uniqueIndex:ux_inventory_accounts_branch_material,priority:1"`
	MaterialID   int64           `gorm:"column:material_id;not null;uniqueIndex:ux_inventory_accounts_branch_material,priority:2"`
	InitialStock decimal.Decimal `gorm:"column:initial_stock;type:numeric(14,3);not null"`
	CurrentStock decimal.Decimal `gorm:"column:current_stock;type:numeric(14,3);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// InventoryMovement is an append-only stock ledger entry.
type InventoryMovement struct {
	ID               int64                       `gorm:"column:id;primaryKey;autoIncrement"`
	AccountID        int64                       `gorm:"column:account_id;not null;index:ix_inventory_movements_account"`
	NoteID           *int64                      `gorm:"column:note_id;index:ix_inventory_movements_note"`
	LineID           *int64                      `gorm:"column:line_id"`
	Kind             enums.InventoryMovementKind `gorm:"column:kind;type:varchar(20);not null"`
	Quantity         decimal.Decimal             `gorm:"column:quantity;type:numeric(14,3);not null"`
	ResultingBalance decimal.Decimal             `gorm:"column:resulting_balance;type:numeric(14,3);not null"`
	Comment          *string                     `gorm:"column:comment;size:255"`
	ActorID          *int64                      `gorm:"column:actor_id"`
	CreatedAt        time.Time                   `gorm:"column:created_at;autoCreateTime"`
}

// AccountingMovement is an append-only financial ledger entry. Reversal rows
// carry the negated amount of the row they offset.
type AccountingMovement struct {
	ID            int64                        `gorm:"column:id;primaryKey;autoIncrement"`
	Kind          enums.AccountingMovementKind `gorm:"column:kind;type:varchar(20);not null;index:ix_accounting_movements_kind"`
	Amount        decimal.Decimal              `gorm:"column:amount;type:numeric(14,2);not null"`
	NoteID        *int64                       `gorm:"column:note_id;index:ix_accounting_movements_note"`
	PaymentID     *int64                       `gorm:"column:payment_id"`
	BranchID      *int64                       `gorm:"column:branch_id;index:ix_accounting_movements_branch"`
	ActorID       *int64                       `gorm:"column:actor_id"`
	PaymentMethod *enums.PaymentMethod         `gorm:"column:payment_method;type:varchar(20)"`
	AccountRef    *string                      `gorm:"column:account_ref;size:100"`
	Comment       *string                      `gorm:"column:comment;size:255"`
	CreatedAt     time.Time                    `gorm:"column:created_at;autoCreateTime;index:ix_accounting_movements_created_at"`
}

// Payment is one partial settlement of an approved note.
type Payment struct {
	ID             int64                `gorm:"column:id;primaryKey;autoIncrement"`
	NoteID         int64                `gorm:"column:note_id;not null;index:ix_payments_note"`
	Amount         decimal.Decimal      `gorm:"column:amount;type:numeric(14,2);not null"`
	Method         *enums.PaymentMethod `gorm:"column:method;type:varchar(20)"`
	AccountRef     *string              `gorm:"column:account_ref;size:100"`
	ActorID        int64                `gorm:"column:actor_id;not null"`
	Comment        *string              `gorm:"column:comment;size:255"`
	IdempotencyKey *string              `gorm:"column:idempotency_key;size:64;uniqueIndex:ux_payments_idempotency_key"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
}
