package notes

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/internal/accounting"
	"github.com/blankhall98/Metaleria-API/internal/inventory"
	"github.com/blankhall98/Metaleria-API/internal/partners"
	"github.com/blankhall98/Metaleria-API/internal/payments"
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
	"github.com/blankhall98/Metaleria-API/pkg/outbox"
	"github.com/blankhall98/Metaleria-API/pkg/outbox/idempotency"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type materialChecker interface {
	EnsureExist(ctx context.Context, tx *gorm.DB, ids []int64) error
}

type priceLookup interface {
	LookupActivePrice(ctx context.Context, tx *gorm.DB, materialID int64, op enums.OperationType, class enums.CustomerClass) (*models.PriceVersion, error)
}

type inventoryLedger interface {
	GetOrCreateAccount(ctx context.Context, tx *gorm.DB, branchID, materialID int64) (*models.InventoryAccount, error)
	ApplyMovement(ctx context.Context, tx *gorm.DB, input inventory.MovementInput) (*models.InventoryMovement, error)
	CheckAvailability(ctx context.Context, tx *gorm.DB, branchID int64, requirements []inventory.Requirement) error
}

type accountingLedger interface {
	RecordMovement(ctx context.Context, tx *gorm.DB, input accounting.RecordInput) (*models.AccountingMovement, error)
	HasBaseMovement(ctx context.Context, tx *gorm.DB, noteID int64, kind enums.AccountingMovementKind) (bool, error)
}

type paymentRegister interface {
	AddPayment(ctx context.Context, tx *gorm.DB, note *models.Note, input payments.AddPaymentInput) (*models.Payment, error)
	ListByNote(ctx context.Context, tx *gorm.DB, noteID int64) ([]payments.PaymentDTO, error)
	FindByIdempotencyKey(ctx context.Context, tx *gorm.DB, key string) (*models.Payment, error)
}

type partnerDirectory interface {
	GetBranch(ctx context.Context, tx *gorm.DB, id int64) (*partners.BranchDTO, error)
	GetSupplier(ctx context.Context, tx *gorm.DB, id int64) (*partners.PartnerDTO, error)
	GetCustomer(ctx context.Context, tx *gorm.DB, id int64) (*partners.PartnerDTO, error)
	EnsureBranchSupplier(ctx context.Context, tx *gorm.DB, branchID int64) (*partners.PartnerDTO, error)
	EnsureBranchCustomer(ctx context.Context, tx *gorm.DB, branchID int64) (*partners.PartnerDTO, error)
}

type idempotencyGuard interface {
	Claim(ctx context.Context, scope, key, fingerprint string) (idempotency.Outcome, error)
	Release(ctx context.Context, scope, key string) error
}

type operationObserver interface {
	Observe(operation, outcome string, elapsed time.Duration)
}

// Stock direction of a note type: purchases add kilograms, sales remove them.
func stockDirection(op enums.OperationType) decimal.Decimal {
	if op == enums.OperationSale {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

func inventoryKind(op enums.OperationType) enums.InventoryMovementKind {
	if op == enums.OperationSale {
		return enums.InventoryMovementSale
	}
	return enums.InventoryMovementPurchase
}
