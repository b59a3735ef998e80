package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/blankhall98/Metaleria-API/pkg/enums"
)

// PriceVersion is one entry in the version history of a (material, operation, class) price key.
type PriceVersion struct {
	ID             int64               `gorm:"column:id;primaryKey;autoIncrement"`
	MaterialID     int64               `gorm:"column:material_id;not null;uniqueIndex:ux_price_versions_key_version,priority:1"`
	OperationType  enums.OperationType `gorm:"column:operation_type;type:varchar(20);not null;uniqueIndex:ux_price_versions_key_version,priority:2"`
	CustomerClass  enums.CustomerClass `gorm:"column:customer_class;type:varchar(20);not null;uniqueIndex:ux_price_versions_key_version,priority:3"`
	Version        int                 `gorm:"column:version;not null;uniqueIndex:ux_price_versions_key_version,priority:4"`
	UnitPrice      decimal.Decimal     `gorm:"column:unit_price;type:numeric(14,2);not null"`
	Active         bool                `gorm:"column:active;not null;index:ix_price_versions_active"`
	EffectiveFrom  time.Time           `gorm:"column:effective_from;not null"`
	EffectiveUntil *time.Time          `gorm:"column:effective_until"`
	CreatedBy      *int64              `gorm:"column:created_by"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
}

// PriceChangeLog is the immutable audit row appended for every price version created.
type PriceChangeLog struct {
	ID            int64                   `gorm:"column:id;primaryKey;autoIncrement"`
	MaterialID    int64                   `gorm:"column:material_id;not null;index:ix_price_change_logs_key,priority:1"`
	OperationType enums.OperationType     `gorm:"column:operation_type;type:varchar(20);not null;index:ix_price_change_logs_key,priority:2"`
	CustomerClass enums.CustomerClass     `gorm:"column:customer_class;type:varchar(20);not null;index:ix_price_change_logs_key,priority:3"`
	OldPrice      decimal.NullDecimal     `gorm:"column:old_price;type:numeric(14,2)"`
	NewPrice      decimal.Decimal         `gorm:"column:new_price;type:numeric(14,2);not null"`
	OldVersion    *int                    `gorm:"column:old_version"`
	NewVersion    int                     `gorm:"column:new_version;not null"`
	ActorID       *int64                  `gorm:"column:actor_id"`
	Source        enums.PriceChangeSource `gorm:"column:source;type:varchar(20);not null"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
}
