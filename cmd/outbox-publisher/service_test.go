package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/pkg/config"
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
	"github.com/blankhall98/Metaleria-API/pkg/logger"
	"github.com/blankhall98/Metaleria-API/pkg/outbox"
	"github.com/blankhall98/Metaleria-API/pkg/outbox/registry"
)

type fakeRepo struct {
	events    []models.OutboxEvent
	fetchErr  error
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, f.fetchErr
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDLQ struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQ) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

type inlineDB struct{ pingErr error }

func (d inlineDB) Ping(context.Context) error { return d.pingErr }

func (inlineDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type fakeResolver struct {
	topic string
	err   error
}

func (f fakeResolver) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{EventType: event.EventType, AggregateType: event.AggregateType, Topic: f.topic},
		Envelope:   outbox.PayloadEnvelope{Version: 1, EventID: event.ID.String(), OccurredAt: time.Now()},
	}, nil
}

type fakePublisher struct {
	errs     []error
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	return fakeResult{err: err}
}

type fakeResult struct{ err error }

func (r fakeResult) Get(context.Context) (string, error) { return "msg-1", r.err }

type harness struct {
	svc  *Service
	repo *fakeRepo
	dlq  *fakeDLQ
	pub  *fakePublisher
}

func newHarness(t *testing.T, resolver eventResolver, maxAttempts int, events ...models.OutboxEvent) harness {
	t.Helper()
	h := harness{repo: &fakeRepo{events: events}, dlq: &fakeDLQ{}, pub: &fakePublisher{}}
	svc, err := NewService(ServiceParams{
		Config:     &config.Config{Outbox: config.OutboxConfig{BatchSize: 10, PollIntervalMS: 10, MaxAttempts: maxAttempts}},
		Logger:     logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:         inlineDB{},
		Broker:     okPinger{},
		Repository: h.repo,
		DLQ:        h.dlq,
		Registry:   resolver,
		Publishers: func(topic string) publisher {
			if topic != "metaleria-notes" {
				return nil
			}
			return h.pub
		},
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func noteEvent(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: uuid.NewString(), Data: json.RawMessage(`{"note_id":4}`)})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventNoteApproved,
		AggregateType: enums.AggregateNote,
		AggregateID:   "4",
		Payload:       payload,
		AttemptCount:  attempts,
		CreatedAt:     time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestDrainPublishesAndRetriesIndependently(t *testing.T) {
	first, second := noteEvent(t, 0), noteEvent(t, 0)
	h := newHarness(t, fakeResolver{topic: "metaleria-notes"}, 5, first, second)
	h.pub.errs = []error{errors.New("unavailable")}

	count, err := h.svc.drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []uuid.UUID{first.ID}, h.repo.failed)
	assert.Equal(t, []uuid.UUID{second.ID}, h.repo.published)
	assert.Empty(t, h.dlq.entries)

	require.Len(t, h.pub.messages, 2)
	attrs := h.pub.messages[1].Attributes
	assert.Equal(t, "note_approved", attrs["event_type"])
	assert.Equal(t, "note", attrs["aggregate_type"])
	assert.Equal(t, "4", attrs["aggregate_id"])
	assert.Equal(t, second.ID.String(), attrs["event_id"])
	assert.Equal(t, "2026-05-01T10:00:00Z", attrs["created_at"])
}

func TestDrainDeadLettersUnresolvableEvents(t *testing.T) {
	event := noteEvent(t, 0)
	h := newHarness(t, fakeResolver{err: registry.NewNonRetryableError(errors.New("unknown event type"))}, 5, event)

	_, err := h.svc.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, h.dlq.entries, 1)
	entry := h.dlq.entries[0]
	assert.Equal(t, event.ID, entry.EventID)
	assert.Equal(t, enums.OutboxDLQReasonUndecodable, entry.ErrorReason)
	assert.JSONEq(t, string(event.Payload), string(entry.Payload))
	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, []uuid.UUID{event.ID}, h.repo.terminal)
	assert.Empty(t, h.pub.messages)
}

func TestDrainDeadLettersUnknownTopic(t *testing.T) {
	event := noteEvent(t, 0)
	h := newHarness(t, fakeResolver{topic: "metaleria-pricing"}, 5, event)

	_, err := h.svc.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, h.dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonNonRetryable, h.dlq.entries[0].ErrorReason)
	assert.Contains(t, *h.dlq.entries[0].ErrorMessage, "no publisher for topic metaleria-pricing")
}

func TestDrainDeadLettersAfterMaxAttempts(t *testing.T) {
	event := noteEvent(t, 2)
	h := newHarness(t, fakeResolver{topic: "metaleria-notes"}, 3, event)
	h.pub.errs = []error{errors.New("deadline exceeded")}

	_, err := h.svc.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, h.dlq.entries, 1)
	assert.Equal(t, enums.OutboxDLQReasonMaxAttempts, h.dlq.entries[0].ErrorReason)
	assert.Equal(t, 2, h.dlq.entries[0].AttemptCount)
	assert.Empty(t, h.repo.failed)
}

func TestDrainReturnsFetchErrors(t *testing.T) {
	h := newHarness(t, fakeResolver{topic: "metaleria-notes"}, 5)
	h.repo.fetchErr = errors.New("connection refused")

	_, err := h.svc.drain(context.Background())
	assert.ErrorContains(t, err, "fetch outbox batch")
}

func TestRunFailsFastWhenDatabaseIsDown(t *testing.T) {
	h := newHarness(t, fakeResolver{topic: "metaleria-notes"}, 5)
	h.svc.db = inlineDB{pingErr: errors.New("refused")}
	assert.ErrorContains(t, h.svc.Run(context.Background()), "database ping failed")
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, fakeResolver{topic: "metaleria-notes"}, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.svc.Run(ctx), context.Canceled)
}

func TestBackoffAndJitter(t *testing.T) {
	base := 500 * time.Millisecond
	assert.Equal(t, time.Second, nextBackoff(base, base))
	assert.Equal(t, time.Second, nextBackoff(0, base))
	assert.Equal(t, maxBackoff, nextBackoff(8*time.Second, base))

	for range 20 {
		d := withJitter(base)
		assert.GreaterOrEqual(t, d, base)
		assert.Less(t, d, base+jitterWindow)
	}
}
