package models

import "time"

// Branch is a physical yard that owns inventory and issues notes.
type Branch struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;size:100;not null;uniqueIndex:ux_branches_name"`
	Address   *string   `gorm:"column:address;size:255"`
	Active    bool      `gorm:"column:active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
