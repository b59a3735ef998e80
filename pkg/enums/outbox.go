package enums

import "fmt"

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateNote             OutboxAggregateType = "note"
	AggregateTransfer         OutboxAggregateType = "transfer"
	AggregateInventoryAccount OutboxAggregateType = "inventory_account"
	AggregatePriceKey         OutboxAggregateType = "price_key"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateNote,
	AggregateTransfer,
	AggregateInventoryAccount,
	AggregatePriceKey,
}

// IsValid reports whether the value matches a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType names a domain event published through the outbox.
type OutboxEventType string

const (
	EventNoteSubmitted       OutboxEventType = "note_submitted"
	EventNoteApproved        OutboxEventType = "note_approved"
	EventNoteCancelled       OutboxEventType = "note_cancelled"
	EventNoteEdited          OutboxEventType = "note_edited"
	EventPaymentRecorded     OutboxEventType = "payment_recorded"
	EventTransferCreated     OutboxEventType = "transfer_created"
	EventStockAdjusted       OutboxEventType = "stock_adjusted"
	EventPriceVersionCreated OutboxEventType = "price_version_created"
)

var validOutboxEventTypes = []OutboxEventType{
	EventNoteSubmitted,
	EventNoteApproved,
	EventNoteCancelled,
	EventNoteEdited,
	EventPaymentRecorded,
	EventTransferCreated,
	EventStockAdjusted,
	EventPriceVersionCreated,
}

// IsValid reports whether the value matches a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
