package models

import (
	"time"

	"github.com/blankhall98/Metaleria-API/pkg/enums"
)

// Supplier sells material to a branch on purchase notes.
type Supplier struct {
	ID        int64             `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string            `gorm:"column:name;size:150;not null;uniqueIndex:ux_suppliers_name"`
	Plate     *string           `gorm:"column:plate;size:20;uniqueIndex:ux_suppliers_plate"`
	Phone     *string           `gorm:"column:phone;size:30"`
	Kind      enums.PartnerKind `gorm:"column:kind;type:varchar(20);not null"`
	BranchID  *int64            `gorm:"column:branch_id;index:ix_suppliers_branch"`
	Active    bool              `gorm:"column:active;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// Customer buys material from a branch on sale notes.
type Customer struct {
	ID        int64             `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string            `gorm:"column:name;size:150;not null;uniqueIndex:ux_customers_name"`
	Plate     *string           `gorm:"column:plate;size:20;uniqueIndex:ux_customers_plate"`
	Phone     *string           `gorm:"column:phone;size:30"`
	Kind      enums.PartnerKind `gorm:"column:kind;type:varchar(20);not null"`
	BranchID  *int64            `gorm:"column:branch_id;index:ix_customers_branch"`
	Active    bool              `gorm:"column:active;not null"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
