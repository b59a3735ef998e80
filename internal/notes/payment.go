package notes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/internal/payments"
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	pkgerrors "github.com/blankhall98/Metaleria-API/pkg/errors"
	"github.com/blankhall98/Metaleria-API/pkg/outbox/idempotency"
	"github.com/blankhall98/Metaleria-API/pkg/validators"
)

const paymentScope = "payments"

func (s *service) RecordPayment(ctx context.Context, input RecordPaymentInput) (dto *NoteDTO, err error) {
	defer s.observe(opRecordPayment, time.Now(), &err)
	if err := validators.Struct(input); err != nil {
		return nil, err
	}
	accountRef, err := payments.NormalizeMethod(input.Method, input.AccountRef)
	if err != nil {
		return nil, err
	}
	key := stringOrEmpty(trimmed(input.IdempotencyKey))
	fingerprint := paymentFingerprint(input, accountRef)

	if key != "" && s.idem != nil {
		outcome, claimErr := s.idem.Claim(ctx, paymentScope, key, fingerprint)
		if claimErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, claimErr, "claim idempotency key")
		}
		switch outcome {
		case idempotency.OutcomeConflict:
			return nil, keyReused(key)
		case idempotency.OutcomeReplay:
			return s.replayPayment(ctx, key, fingerprint)
		case idempotency.OutcomeClaimed:
			defer func() {
				if err != nil {
					if relErr := s.idem.Release(ctx, paymentScope, key); relErr != nil && s.logg != nil {
						s.logg.Warn(s.logg.WithField(ctx, "idempotency_key", key), "failed to release idempotency key")
					}
				}
			}()
		}
	}

	var (
		note    *models.Note
		replay  bool
		payment *models.Payment
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if key != "" {
			existing, err := s.payments.FindByIdempotencyKey(ctx, tx, key)
			if err != nil {
				return err
			}
			if existing != nil {
				if storedFingerprint(existing) != fingerprint {
					return keyReused(key)
				}
				replay = true
				return nil
			}
		}

		var err error
		note, err = s.load(ctx, tx, input.NoteID)
		if err != nil {
			return err
		}
		payment, err = s.payments.AddPayment(ctx, tx, note, payments.AddPaymentInput{
			Amount:         input.Amount,
			ActorID:        input.ActorID,
			Method:         input.Method,
			AccountRef:     accountRef,
			Comment:        trimmed(input.Comment),
			IdempotencyKey: trimmed(input.IdempotencyKey),
		})
		if err != nil {
			return err
		}
		return s.emitPayment(ctx, tx, note, payment, input.ActorID)
	})
	if err != nil {
		// a concurrent request with the same key won the insert; answer from its row
		if key != "" && pkgerrors.IsCode(err, pkgerrors.CodeIdempotency) {
			return s.replayPayment(ctx, key, fingerprint)
		}
		return nil, err
	}
	if replay {
		return s.GetNote(ctx, input.NoteID)
	}
	if s.logg != nil {
		logCtx := s.logg.WithField(ctx, "payment_id", payment.ID)
		s.logDone(logCtx, opRecordPayment, note, input.ActorID)
	}
	return s.GetNote(ctx, note.ID)
}

// replayPayment answers a retried request with the note as left by the first attempt.
func (s *service) replayPayment(ctx context.Context, key, fingerprint string) (*NoteDTO, error) {
	existing, err := s.payments.FindByIdempotencyKey(ctx, nil, key)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment with this idempotency key is still being processed").
			WithDetails(map[string]any{"idempotency_key": key})
	}
	if storedFingerprint(existing) != fingerprint {
		return nil, keyReused(key)
	}
	return s.GetNote(ctx, existing.NoteID)
}

func paymentFingerprint(input RecordPaymentInput, accountRef *string) string {
	method := ""
	if input.Method != nil {
		method = string(*input.Method)
	}
	return strings.Join([]string{
		fmt.Sprintf("%d", input.NoteID),
		input.Amount.Round(2).StringFixed(2),
		method,
		stringOrEmpty(accountRef),
	}, "|")
}

func storedFingerprint(p *models.Payment) string {
	method := ""
	if p.Method != nil {
		method = string(*p.Method)
	}
	return strings.Join([]string{
		fmt.Sprintf("%d", p.NoteID),
		p.Amount.StringFixed(2),
		method,
		stringOrEmpty(p.AccountRef),
	}, "|")
}

func keyReused(key string) error {
	return pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different payment").
		WithDetails(map[string]any{"idempotency_key": key})
}
