package notes

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/internal/accounting"
	"github.com/blankhall98/Metaleria-API/internal/inventory"
	"github.com/blankhall98/Metaleria-API/internal/materials"
	"github.com/blankhall98/Metaleria-API/internal/partners"
	"github.com/blankhall98/Metaleria-API/internal/payments"
	"github.com/blankhall98/Metaleria-API/internal/pricing"
	"github.com/blankhall98/Metaleria-API/pkg/db/dbtest"
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
	pkgerrors "github.com/blankhall98/Metaleria-API/pkg/errors"
	"github.com/blankhall98/Metaleria-API/pkg/outbox"
	"github.com/blankhall98/Metaleria-API/pkg/pagination"
)

type observation struct {
	operation string
	outcome   string
}

type recordingObserver struct {
	calls []observation
}

func (r *recordingObserver) Observe(operation, outcome string, _ time.Duration) {
	r.calls = append(r.calls, observation{operation: operation, outcome: outcome})
}

type notesFixture struct {
	svc       Service
	params    ServiceParams
	conn      *gorm.DB
	prices    pricing.Service
	inventory inventory.Service
	ledger    accounting.Service
	observer  *recordingObserver
	branchA   models.Branch
	branchB   models.Branch
	copper    models.Material
	aluminum  models.Material
}

func newFixture(t *testing.T) notesFixture {
	t.Helper()
	client, conn := dbtest.Client(t)

	branchA := models.Branch{Name: "Matriz", Active: true}
	branchB := models.Branch{Name: "Norte", Active: true}
	copper := models.Material{Name: "Cobre", Unit: "kg", Active: true}
	aluminum := models.Material{Name: "Aluminio", Unit: "kg", Active: true}
	dbtest.Seed(t, conn, &branchA, &branchB, &copper, &aluminum)

	matSvc, err := materials.NewService(materials.NewRepository(conn))
	require.NoError(t, err)
	partnerSvc, err := partners.NewService(partners.NewRepository(conn))
	require.NoError(t, err)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	priceSvc, err := pricing.NewService(pricing.NewRepository(conn), client, emitter, matSvc, nil)
	require.NoError(t, err)
	invSvc, err := inventory.NewService(inventory.NewRepository(conn), nil)
	require.NoError(t, err)
	ledgerSvc, err := accounting.NewService(accounting.NewRepository(conn))
	require.NoError(t, err)
	paySvc, err := payments.NewService(payments.NewRepository(conn), ledgerSvc)
	require.NoError(t, err)

	observer := &recordingObserver{}
	params := ServiceParams{
		Repo:       NewRepository(conn),
		Tx:         client,
		Outbox:     emitter,
		Materials:  matSvc,
		Prices:     priceSvc,
		Inventory:  invSvc,
		Accounting: ledgerSvc,
		Payments:   paySvc,
		Partners:   partnerSvc,
		Metrics:    observer,
	}
	svc, err := NewService(params)
	require.NoError(t, err)

	return notesFixture{
		svc:       svc,
		params:    params,
		conn:      conn,
		prices:    priceSvc,
		inventory: invSvc,
		ledger:    ledgerSvc,
		observer:  observer,
		branchA:   branchA,
		branchB:   branchB,
		copper:    copper,
		aluminum:  aluminum,
	}
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func strPtr(v string) *string { return &v }

func methodPtr(m enums.PaymentMethod) *enums.PaymentMethod { return &m }

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s got %s %v", want, got.String(), msgAndArgs)
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected coded error, got %v", err)
	require.Equal(t, code, typed.Code(), "unexpected error: %v", err)
	return typed
}

func (f notesFixture) setPrice(t *testing.T, material int64, op enums.OperationType, price string) {
	t.Helper()
	_, err := f.prices.CreatePriceVersion(context.Background(), pricing.CreatePriceVersionInput{
		MaterialID:    material,
		OperationType: op,
		UnitPrice:     dec(price),
	})
	require.NoError(t, err)
}

func pricingInput(material int64, op enums.OperationType, class enums.CustomerClass, price string) pricing.CreatePriceVersionInput {
	return pricing.CreatePriceVersionInput{MaterialID: material, OperationType: op, CustomerClass: class, UnitPrice: dec(price)}
}

func paginationParams(limit int, cursor string) pagination.Params {
	return pagination.Params{Limit: limit, Cursor: cursor}
}

func (f notesFixture) draft(t *testing.T, branch int64, op enums.OperationType, lines ...LineInput) *NoteDTO {
	t.Helper()
	note, err := f.svc.CreateDraft(context.Background(), CreateDraftInput{
		BranchID:      branch,
		WorkerID:      21,
		OperationType: op,
		Lines:         lines,
	})
	require.NoError(t, err)
	return note
}

func (f notesFixture) line(material int64, gross, discount string) LineInput {
	return LineInput{MaterialID: material, GrossKg: dec(gross), DiscountKg: dec(discount)}
}

func (f notesFixture) balance(t *testing.T, branch, material int64) decimal.Decimal {
	t.Helper()
	b, err := f.inventory.Balance(context.Background(), nil, branch, material)
	require.NoError(t, err)
	return b
}

func (f notesFixture) movements(t *testing.T, noteID int64) []accounting.MovementDTO {
	t.Helper()
	rows, err := f.ledger.List(context.Background(), nil, accounting.Filter{NoteID: &noteID})
	require.NoError(t, err)
	return rows
}

func (f notesFixture) countEvents(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error)
	return count
}

// stock seeds a balance through a manual adjustment.
func (f notesFixture) stock(t *testing.T, branch, material int64, kg string) {
	t.Helper()
	_, err := f.svc.AdjustStockManually(context.Background(), AdjustStockInput{
		BranchID:   branch,
		MaterialID: material,
		Delta:      decPtr(kg),
		Comment:    "conteo inicial",
		ActorID:    1,
	})
	require.NoError(t, err)
}

func byKind(rows []accounting.MovementDTO, kind enums.AccountingMovementKind) []accounting.MovementDTO {
	var out []accounting.MovementDTO
	for _, r := range rows {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}
