package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
)

// CreatePriceVersionInput is the request to publish a new unit price for a key.
type CreatePriceVersionInput struct {
	MaterialID    int64                   `json:"material_id" validate:"required,gt=0"`
	OperationType enums.OperationType     `json:"operation_type" validate:"required,oneof=purchase sale"`
	CustomerClass enums.CustomerClass     `json:"customer_class" validate:"omitempty,oneof=regular wholesale retail"`
	UnitPrice     decimal.Decimal         `json:"unit_price"`
	ActorID       *int64                  `json:"actor_id,omitempty"`
	Source        enums.PriceChangeSource `json:"source" validate:"omitempty,oneof=web api system"`
}

// PriceVersionDTO is the read model of one price version.
type PriceVersionDTO struct {
	ID             int64               `json:"id"`
	MaterialID     int64               `json:"material_id"`
	OperationType  enums.OperationType `json:"operation_type"`
	CustomerClass  enums.CustomerClass `json:"customer_class"`
	Version        int                 `json:"version"`
	UnitPrice      decimal.Decimal     `json:"unit_price"`
	Active         bool                `json:"active"`
	EffectiveFrom  time.Time           `json:"effective_from"`
	EffectiveUntil *time.Time          `json:"effective_until,omitempty"`
	CreatedBy      *int64              `json:"created_by,omitempty"`
}

// PriceChangeDTO is one audit row of the price change log.
type PriceChangeDTO struct {
	ID         int64                   `json:"id"`
	OldPrice   *decimal.Decimal        `json:"old_price,omitempty"`
	NewPrice   decimal.Decimal         `json:"new_price"`
	OldVersion *int                    `json:"old_version,omitempty"`
	NewVersion int                     `json:"new_version"`
	ActorID    *int64                  `json:"actor_id,omitempty"`
	Source     enums.PriceChangeSource `json:"source"`
	CreatedAt  time.Time               `json:"created_at"`
}

func versionToDTO(v models.PriceVersion) PriceVersionDTO {
	return PriceVersionDTO{
		ID:             v.ID,
		MaterialID:     v.MaterialID,
		OperationType:  v.OperationType,
		CustomerClass:  v.CustomerClass,
		Version:        v.Version,
		UnitPrice:      v.UnitPrice,
		Active:         v.Active,
		EffectiveFrom:  v.EffectiveFrom,
		EffectiveUntil: v.EffectiveUntil,
		CreatedBy:      v.CreatedBy,
	}
}

func changeToDTO(c models.PriceChangeLog) PriceChangeDTO {
	dto := PriceChangeDTO{
		ID:         c.ID,
		NewPrice:   c.NewPrice,
		OldVersion: c.OldVersion,
		NewVersion: c.NewVersion,
		ActorID:    c.ActorID,
		Source:     c.Source,
		CreatedAt:  c.CreatedAt,
	}
	if c.OldPrice.Valid {
		old := c.OldPrice.Decimal
		dto.OldPrice = &old
	}
	return dto
}
