package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/blankhall98/Metaleria-API/pkg/db"
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
	pkgerrors "github.com/blankhall98/Metaleria-API/pkg/errors"
	"github.com/blankhall98/Metaleria-API/pkg/logger"
	"github.com/blankhall98/Metaleria-API/pkg/outbox"
	"github.com/blankhall98/Metaleria-API/pkg/outbox/payloads"
	"github.com/blankhall98/Metaleria-API/pkg/validators"
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

// Service is the versioned price store.
type Service interface {
	CreatePriceVersion(ctx context.Context, input CreatePriceVersionInput) (*PriceVersionDTO, error)
	// LookupActivePrice returns the active version for the key, or nil when none exists.
	LookupActivePrice(ctx context.Context, tx *gorm.DB, materialID int64, op enums.OperationType, class enums.CustomerClass) (*models.PriceVersion, error)
	GetVersion(ctx context.Context, id int64) (*PriceVersionDTO, error)
	History(ctx context.Context, key Key) ([]PriceVersionDTO, error)
	ChangeLog(ctx context.Context, key Key) ([]PriceChangeDTO, error)
	ListActive(ctx context.Context, op *enums.OperationType) ([]PriceVersionDTO, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	materials materialChecker
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the pricing store.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher, materials materialChecker, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if materials == nil {
		return nil, fmt.Errorf("materials checker required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    outbox,
		materials: materials,
		logg:      logg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CreatePriceVersion(ctx context.Context, input CreatePriceVersionInput) (*PriceVersionDTO, error) {
	if input.CustomerClass == "" {
		input.CustomerClass = enums.CustomerClassRegular
	}
	if input.Source == "" {
		input.Source = enums.PriceChangeSourceSystem
	}
	if err := validators.Struct(input); err != nil {
		return nil, err
	}
	if !input.UnitPrice.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "unit price must be greater than zero").
			WithDetails(map[string]any{"unit_price": input.UnitPrice.String()})
	}
	price := input.UnitPrice.Round(2)
	key := Key{MaterialID: input.MaterialID, OperationType: input.OperationType, CustomerClass: input.CustomerClass}

	var created models.PriceVersion
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.materials.EnsureExist(ctx, tx, []int64{input.MaterialID}); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		latest, err := repo.LatestForUpdate(ctx, key)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest price version")
		}
		previous, err := repo.Active(ctx, key)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active price version")
		}

		now := s.now()
		if err := repo.DeactivateActive(ctx, key, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate price version")
		}

		next := 1
		if latest != nil {
			next = latest.Version + 1
		}
		created = models.PriceVersion{
			MaterialID:    key.MaterialID,
			OperationType: key.OperationType,
			CustomerClass: key.CustomerClass,
			Version:       next,
			UnitPrice:     price,
			Active:        true,
			EffectiveFrom: now,
			CreatedBy:     input.ActorID,
		}
		if err := repo.Create(ctx, &created); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "price version created concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create price version")
		}

		entry := models.PriceChangeLog{
			MaterialID:    key.MaterialID,
			OperationType: key.OperationType,
			CustomerClass: key.CustomerClass,
			NewPrice:      price,
			NewVersion:    next,
			ActorID:       input.ActorID,
			Source:        input.Source,
		}
		event := payloads.PriceVersionCreatedEvent{
			MaterialID:    key.MaterialID,
			OperationType: key.OperationType,
			CustomerClass: key.CustomerClass,
			Version:       next,
			UnitPrice:     price,
		}
		if previous != nil {
			entry.OldPrice = decimal.NewNullDecimal(previous.UnitPrice)
			oldVersion := previous.Version
			entry.OldVersion = &oldVersion
			oldPrice := previous.UnitPrice
			event.PreviousPrice = &oldPrice
			event.PreviousVersion = &oldVersion
		}
		if err := repo.AppendLog(ctx, &entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append price change log")
		}

		event.PriceVersionID = created.ID
		var actor *outbox.ActorRef
		if input.ActorID != nil {
			actor = &outbox.ActorRef{UserID: *input.ActorID}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPriceVersionCreated,
			AggregateType: enums.AggregatePriceKey,
			AggregateID:   keyID(key),
			Actor:         actor,
			Data:          event,
			Version:       1,
			OccurredAt:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"material_id":    key.MaterialID,
			"operation_type": key.OperationType,
			"customer_class": key.CustomerClass,
			"version":        created.Version,
			"unit_price":     created.UnitPrice.String(),
		})
		s.logg.Info(logCtx, "price version created")
	}
	dto := versionToDTO(created)
	return &dto, nil
}

func (s *service) LookupActivePrice(ctx context.Context, tx *gorm.DB, materialID int64, op enums.OperationType, class enums.CustomerClass) (*models.PriceVersion, error) {
	if class == "" {
		class = enums.CustomerClassRegular
	}
	version, err := s.repo.WithTx(tx).Active(ctx, Key{MaterialID: materialID, OperationType: op, CustomerClass: class})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup active price")
	}
	return version, nil
}

func (s *service) GetVersion(ctx context.Context, id int64) (*PriceVersionDTO, error) {
	version, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodePriceVersionNotFound, "price version not found").
				WithDetails(map[string]any{"price_version_id": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price version")
	}
	dto := versionToDTO(*version)
	return &dto, nil
}

func (s *service) History(ctx context.Context, key Key) ([]PriceVersionDTO, error) {
	rows, err := s.repo.History(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price history")
	}
	out := make([]PriceVersionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, versionToDTO(row))
	}
	return out, nil
}

func (s *service) ChangeLog(ctx context.Context, key Key) ([]PriceChangeDTO, error) {
	rows, err := s.repo.ChangeLog(ctx, key)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price change log")
	}
	out := make([]PriceChangeDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, changeToDTO(row))
	}
	return out, nil
}

func (s *service) ListActive(ctx context.Context, op *enums.OperationType) ([]PriceVersionDTO, error) {
	rows, err := s.repo.ListActive(ctx, op)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active prices")
	}
	out := make([]PriceVersionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, versionToDTO(row))
	}
	return out, nil
}

func keyID(key Key) string {
	return fmt.Sprintf("%d:%s:%s", key.MaterialID, key.OperationType, key.CustomerClass)
}
