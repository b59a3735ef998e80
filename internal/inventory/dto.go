package inventory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
)

// MovementInput describes one signed change to a (branch, material) balance.
type MovementInput struct {
	BranchID   int64
	MaterialID int64
	Delta      decimal.Decimal
	Kind       enums.InventoryMovementKind
	NoteID     *int64
	LineID     *int64
	Comment    *string
	ActorID    *int64
	// Strict rejects a delta that would take the balance below zero instead of clamping.
	Strict bool
}

// Requirement is the quantity a sale needs from one material.
type Requirement struct {
	MaterialID int64
	Quantity   decimal.Decimal
}

// AccountDTO is the read model of an inventory account.
type AccountDTO struct {
	ID           int64           `json:"id"`
	BranchID     int64           `json:"branch_id"`
	MaterialID   int64           `json:"material_id"`
	InitialStock decimal.Decimal `json:"initial_stock"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// MovementDTO is the read model of an inventory movement.
type MovementDTO struct {
	ID               int64                       `json:"id"`
	AccountID        int64                       `json:"account_id"`
	NoteID           *int64                      `json:"note_id,omitempty"`
	LineID           *int64                      `json:"line_id,omitempty"`
	Kind             enums.InventoryMovementKind `json:"kind"`
	Quantity         decimal.Decimal             `json:"quantity"`
	ResultingBalance decimal.Decimal             `json:"resulting_balance"`
	Comment          *string                     `json:"comment,omitempty"`
	ActorID          *int64                      `json:"actor_id,omitempty"`
	CreatedAt        time.Time                   `json:"created_at"`
}

func accountToDTO(a models.InventoryAccount) AccountDTO {
	return AccountDTO{
		ID:           a.ID,
		BranchID:     a.BranchID,
		MaterialID:   a.MaterialID,
		InitialStock: a.InitialStock,
		CurrentStock: a.CurrentStock,
		UpdatedAt:    a.UpdatedAt,
	}
}

func movementToDTO(m models.InventoryMovement) MovementDTO {
	return MovementDTO{
		ID:               m.ID,
		AccountID:        m.AccountID,
		NoteID:           m.NoteID,
		LineID:           m.LineID,
		Kind:             m.Kind,
		Quantity:         m.Quantity,
		ResultingBalance: m.ResultingBalance,
		Comment:          m.Comment,
		ActorID:          m.ActorID,
		CreatedAt:        m.CreatedAt,
	}
}
