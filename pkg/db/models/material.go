package models

import "time"

// Material is a tradeable scrap category referenced by weight lines and prices.
type Material struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;size:120;not null;uniqueIndex:ux_materials_name"`
	Unit      string    `gorm:"column:unit;size:20;not null"`
	Active    bool      `gorm:"column:active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
