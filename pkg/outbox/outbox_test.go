package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/pkg/db/dbtest"
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
)

type submitted struct {
	NoteID int64  `json:"note_id"`
	Folio  string `json:"folio"`
}

func noteEvent(id string) DomainEvent {
	branch := int64(2)
	return DomainEvent{
		EventType:     enums.EventNoteSubmitted,
		AggregateType: enums.AggregateNote,
		AggregateID:   id,
		Actor:         &ActorRef{UserID: 7, BranchID: &branch, Role: "cashier"},
		Data:          submitted{NoteID: 9, Folio: "02_C_1"},
	}
}

func TestEmitStoresEnvelopeInCallerTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)
	fixed := time.Date(2026, 4, 2, 8, 30, 0, 0, time.FixedZone("CST", -6*3600))
	svc.now = func() time.Time { return fixed }

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, noteEvent("9"))
	}))

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, enums.EventNoteSubmitted, row.EventType)
	assert.Equal(t, "9", row.AggregateID)
	assert.Nil(t, row.PublishedAt)

	env, err := DecodeEnvelope(row.Payload)
	require.NoError(t, err)
	assert.Equal(t, row.ID.String(), env.EventID)
	assert.Equal(t, 1, env.Version)
	assert.True(t, env.OccurredAt.Equal(fixed))
	assert.Equal(t, time.UTC, env.OccurredAt.Location())
	require.NotNil(t, env.Actor)
	assert.Equal(t, "cashier", env.Actor.Role)

	var data submitted
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "02_C_1", data.Folio)
}

func TestEmitRollsBackWithCaller(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)

	boom := errors.New("approval failed")
	err := conn.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Emit(context.Background(), tx, noteEvent("9")))
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitRejectsMalformedEvents(t *testing.T) {
	conn := dbtest.Open(t)
	svc := NewService(NewRepository(conn), nil)

	cases := map[string]func(e *DomainEvent){
		"unknown type":      func(e *DomainEvent) { e.EventType = "note_printed" },
		"unknown aggregate": func(e *DomainEvent) { e.AggregateType = "truck" },
		"blank aggregate":   func(e *DomainEvent) { e.AggregateID = " " },
		"no data":           func(e *DomainEvent) { e.Data = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			event := noteEvent("9")
			mutate(&event)
			assert.Error(t, svc.Emit(context.Background(), conn, event))
		})
	}
	assert.Error(t, svc.Emit(context.Background(), nil, noteEvent("9")))
}

func TestDecodeEnvelopeRejectsBrokenPayloads(t *testing.T) {
	for _, raw := range []string{
		`not json`,
		`{"eventId":"nope","data":{"note_id":1}}`,
		`{"eventId":"` + uuid.NewString() + `","data":null}`,
		`{"eventId":"` + uuid.NewString() + `"}`,
	} {
		_, err := DecodeEnvelope([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func seedEvent(t *testing.T, conn *gorm.DB, attempts int, createdAt time.Time) models.OutboxEvent {
	t.Helper()
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventNoteApproved,
		AggregateType: enums.AggregateNote,
		AggregateID:   "1",
		Payload:       json.RawMessage(`{}`),
		AttemptCount:  attempts,
		CreatedAt:     createdAt,
	}
	require.NoError(t, conn.Create(&row).Error)
	return row
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	older := seedEvent(t, conn, 0, base)
	newer := seedEvent(t, conn, 2, base.Add(time.Minute))
	exhausted := seedEvent(t, conn, 5, base.Add(-time.Minute))

	batch, err := repo.FetchUnpublishedForPublish(conn, 10, 5)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, older.ID, batch[0].ID)
	assert.Equal(t, newer.ID, batch[1].ID)

	require.NoError(t, repo.MarkFailedTx(conn, newer.ID, errors.New(strings.Repeat("x", 2000))))
	require.NoError(t, repo.MarkPublishedTx(conn, older.ID))
	require.NoError(t, repo.MarkTerminalTx(conn, exhausted.ID, errors.New("bad payload"), 5))

	var failed models.OutboxEvent
	require.NoError(t, conn.First(&failed, "id = ?", newer.ID).Error)
	assert.Equal(t, 3, failed.AttemptCount)
	require.NotNil(t, failed.LastError)
	assert.Len(t, *failed.LastError, maxErrorLen)

	batch, err = repo.FetchUnpublishedForPublish(conn, 10, 5)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, newer.ID, batch[0].ID)

	deleted, err := repo.DeletePublishedBefore(nil, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = repo.DeletePublishedBefore(nil, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestDLQInsertTruncatesAndRequiresReason(t *testing.T) {
	conn := dbtest.Open(t)
	dlq := NewDLQRepository(conn)
	msg := strings.Repeat("y", maxErrorLen+10)
	entry := models.OutboxDLQ{
		EventID:       uuid.New(),
		EventType:     enums.EventNoteApproved,
		AggregateType: enums.AggregateNote,
		AggregateID:   "1",
		Payload:       json.RawMessage(`{}`),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
		FailedAt:      time.Now().UTC(),
	}
	require.NoError(t, dlq.InsertTx(conn, entry))

	var stored models.OutboxDLQ
	require.NoError(t, conn.First(&stored, "event_id = ?", entry.EventID).Error)
	assert.NotEqual(t, uuid.Nil, stored.ID)
	require.NotNil(t, stored.ErrorMessage)
	assert.Len(t, *stored.ErrorMessage, maxErrorLen)

	entry.EventID = uuid.New()
	entry.ErrorReason = "lost"
	assert.Error(t, dlq.InsertTx(conn, entry))
	assert.Error(t, dlq.InsertTx(nil, entry))
}
