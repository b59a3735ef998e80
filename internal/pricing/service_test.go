package pricing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/internal/materials"
	"github.com/blankhall98/Metaleria-API/pkg/db/dbtest"
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
	pkgerrors "github.com/blankhall98/Metaleria-API/pkg/errors"
	"github.com/blankhall98/Metaleria-API/pkg/outbox"
	"github.com/blankhall98/Metaleria-API/pkg/outbox/payloads"
)

type pricingFixture struct {
	svc      Service
	conn     *gorm.DB
	material models.Material
}

func newFixture(t *testing.T) pricingFixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	material := models.Material{Name: "Cobre", Unit: "kg", Active: true}
	dbtest.Seed(t, conn, &material)

	matSvc, err := materials.NewService(materials.NewRepository(conn))
	require.NoError(t, err)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)

	svc, err := NewService(NewRepository(conn), client, emitter, matSvc, nil)
	require.NoError(t, err)

	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.(*service).now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return pricingFixture{svc: svc, conn: conn, material: material}
}

func TestCreatePriceVersionKeepsSingleActiveVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := int64(7)

	first, err := f.svc.CreatePriceVersion(ctx, CreatePriceVersionInput{
		MaterialID:    f.material.ID,
		OperationType: enums.OperationPurchase,
		UnitPrice:     decimal.RequireFromString("120.50"),
		ActorID:       &actor,
		Source:        enums.PriceChangeSourceWeb,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, enums.CustomerClassRegular, first.CustomerClass)

	second, err := f.svc.CreatePriceVersion(ctx, CreatePriceVersionInput{
		MaterialID:    f.material.ID,
		OperationType: enums.OperationPurchase,
		UnitPrice:     decimal.RequireFromString("125"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)

	var active int64
	require.NoError(t, f.conn.Model(&models.PriceVersion{}).
		Where("material_id = ? AND active = ?", f.material.ID, true).
		Count(&active).Error)
	assert.Equal(t, int64(1), active)

	found, err := f.svc.LookupActivePrice(ctx, nil, f.material.ID, enums.OperationPurchase, enums.CustomerClassRegular)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 2, found.Version)
	assert.True(t, found.UnitPrice.Equal(decimal.NewFromInt(125)))

	key := Key{MaterialID: f.material.ID, OperationType: enums.OperationPurchase, CustomerClass: enums.CustomerClassRegular}
	history, err := f.svc.History(ctx, key)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.False(t, history[1].Active)
	require.NotNil(t, history[1].EffectiveUntil)

	changes, err := f.svc.ChangeLog(ctx, key)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	require.NotNil(t, changes[0].OldPrice)
	assert.True(t, changes[0].OldPrice.Equal(decimal.RequireFromString("120.50")))
	assert.Equal(t, 2, changes[0].NewVersion)
	assert.Nil(t, changes[1].OldPrice)
	assert.Equal(t, enums.PriceChangeSourceSystem, changes[0].Source)
	assert.Equal(t, enums.PriceChangeSourceWeb, changes[1].Source)
}

func TestCreatePriceVersionEmitsOutboxEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePriceVersion(ctx, CreatePriceVersionInput{
		MaterialID:    f.material.ID,
		OperationType: enums.OperationSale,
		CustomerClass: enums.CustomerClassWholesale,
		UnitPrice:     decimal.RequireFromString("98.10"),
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, f.conn.Where("event_type = ?", enums.EventPriceVersionCreated).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.AggregatePriceKey, rows[0].AggregateType)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	var event payloads.PriceVersionCreatedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &event))
	assert.Equal(t, f.material.ID, event.MaterialID)
	assert.Equal(t, enums.CustomerClassWholesale, event.CustomerClass)
	assert.Nil(t, event.PreviousPrice)
}

func TestPriceSeriesAreIndependentPerKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreatePriceVersion(ctx, CreatePriceVersionInput{
		MaterialID: f.material.ID, OperationType: enums.OperationPurchase, UnitPrice: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	sale, err := f.svc.CreatePriceVersion(ctx, CreatePriceVersionInput{
		MaterialID: f.material.ID, OperationType: enums.OperationSale, UnitPrice: decimal.NewFromInt(12),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sale.Version)

	all, err := f.svc.ListActive(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	op := enums.OperationSale
	sales, err := f.svc.ListActive(ctx, &op)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, sale.ID, sales[0].ID)

	missing, err := f.svc.LookupActivePrice(ctx, nil, f.material.ID, enums.OperationSale, enums.CustomerClassRetail)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreatePriceVersionRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, price := range []string{"0", "-3.5"} {
		_, err := f.svc.CreatePriceVersion(ctx, CreatePriceVersionInput{
			MaterialID: f.material.ID, OperationType: enums.OperationPurchase, UnitPrice: decimal.RequireFromString(price),
		})
		require.Error(t, err)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidAmount), price)
	}

	_, err := f.svc.CreatePriceVersion(ctx, CreatePriceVersionInput{
		MaterialID: 9999, OperationType: enums.OperationPurchase, UnitPrice: decimal.NewFromInt(5),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeMaterialNotFound))

	_, err = f.svc.CreatePriceVersion(ctx, CreatePriceVersionInput{
		MaterialID: f.material.ID, OperationType: "barter", UnitPrice: decimal.NewFromInt(5),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	var count int64
	require.NoError(t, f.conn.Model(&models.PriceChangeLog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetVersionNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetVersion(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodePriceVersionNotFound))
}
