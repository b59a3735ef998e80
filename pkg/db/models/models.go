package models

import "gorm.io/gorm"

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&Branch{},
		&Material{},
		&Supplier{},
		&Customer{},
		&PriceVersion{},
		&PriceChangeLog{},
		&FolioCounter{},
		&Note{},
		&WeightLine{},
		&SubWeighing{},
		&NoteSnapshot{},
		&NoteEvidence{},
		&InventoryAccount{},
		&InventoryMovement{},
		&AccountingMovement{},
		&Payment{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}

// AutoMigrate creates or updates every table from the model definitions.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
