package cron

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/blankhall98/Metaleria-API/internal/valuation"
	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/logger"
	"github.com/blankhall98/Metaleria-API/pkg/metrics"
)

const (
	ledgerAuditJobName   = "ledger-audit"
	ledgerAuditBatchSize = 200
)

type auditNoteSource interface {
	ListApprovedIDs(ctx context.Context, afterID int64, limit int) ([]int64, error)
	FindByID(ctx context.Context, id int64) (*models.Note, error)
}

type auditPaymentSource interface {
	ListByNote(ctx context.Context, noteID int64) ([]models.Payment, error)
}

type auditStockSource interface {
	ScanAccounts(ctx context.Context, afterID int64, limit int) ([]models.InventoryAccount, error)
	ListMovements(ctx context.Context, accountID int64, limit int) ([]models.InventoryMovement, error)
}

// LedgerAuditJobParams configure the ledger consistency audit.
type LedgerAuditJobParams struct {
	Logger    *logger.Logger
	Notes     auditNoteSource
	Payments  auditPaymentSource
	Inventory auditStockSource
	Metrics   *metrics.CronJobMetrics
	BatchSize int
}

// NewLedgerAuditJob builds the read-only audit that cross-checks notes,
// payments and inventory balances.
func NewLedgerAuditJob(params LedgerAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Notes == nil {
		return nil, fmt.Errorf("notes repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = ledgerAuditBatchSize
	}
	return &ledgerAuditJob{
		logg:      params.Logger,
		notes:     params.Notes,
		payments:  params.Payments,
		inventory: params.Inventory,
		metrics:   params.Metrics,
		batch:     batch,
	}, nil
}

type ledgerAuditJob struct {
	logg      *logger.Logger
	notes     auditNoteSource
	payments  auditPaymentSource
	inventory auditStockSource
	metrics   *metrics.CronJobMetrics
	batch     int
}

// Finding is one inconsistency reported by the audit.
type Finding struct {
	Subject  string
	ID       int64
	Field    string
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (f Finding) Error() string {
	return fmt.Sprintf("%s %d: %s is %s, expected %s", f.Subject, f.ID, f.Field, f.Actual.String(), f.Expected.String())
}

func (j *ledgerAuditJob) Name() string { return ledgerAuditJobName }

// Run returns every finding combined; storage errors abort the run.
func (j *ledgerAuditJob) Run(ctx context.Context) error {
	var findings []Finding

	noteFindings, notesChecked, err := j.auditNotes(ctx)
	if err != nil {
		return fmt.Errorf("ledger audit notes: %w", err)
	}
	findings = append(findings, noteFindings...)

	stockFindings, accountsChecked, err := j.auditStock(ctx)
	if err != nil {
		return fmt.Errorf("ledger audit stock: %w", err)
	}
	findings = append(findings, stockFindings...)

	j.metrics.SetFindings(ledgerAuditJobName, len(findings))

	var combined error
	for _, f := range findings {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"subject":  f.Subject,
			"id":       f.ID,
			"field":    f.Field,
			"expected": f.Expected.String(),
			"actual":   f.Actual.String(),
		})
		j.logg.Warn(logCtx, "ledger inconsistency")
		combined = multierr.Append(combined, f)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"notes_checked":    notesChecked,
		"accounts_checked": accountsChecked,
		"findings":         len(findings),
	})
	j.logg.Info(logCtx, "ledger audit complete")
	return combined
}

func (j *ledgerAuditJob) auditNotes(ctx context.Context) ([]Finding, int, error) {
	var (
		findings []Finding
		checked  int
		afterID  int64
	)
	for {
		ids, err := j.notes.ListApprovedIDs(ctx, afterID, j.batch)
		if err != nil {
			return nil, checked, err
		}
		for _, id := range ids {
			note, err := j.notes.FindByID(ctx, id)
			if err != nil {
				return nil, checked, err
			}
			payments, err := j.payments.ListByNote(ctx, id)
			if err != nil {
				return nil, checked, err
			}
			findings = append(findings, checkNote(*note, payments)...)
			checked++
		}
		if len(ids) < j.batch {
			return findings, checked, nil
		}
		afterID = ids[len(ids)-1]
	}
}

func (j *ledgerAuditJob) auditStock(ctx context.Context) ([]Finding, int, error) {
	var (
		findings []Finding
		checked  int
		afterID  int64
	)
	for {
		accounts, err := j.inventory.ScanAccounts(ctx, afterID, j.batch)
		if err != nil {
			return nil, checked, err
		}
		for _, account := range accounts {
			last, err := j.inventory.ListMovements(ctx, account.ID, 1)
			if err != nil {
				return nil, checked, err
			}
			if f, ok := checkAccount(account, last); ok {
				findings = append(findings, f)
			}
			checked++
		}
		if len(accounts) < j.batch {
			return findings, checked, nil
		}
		afterID = accounts[len(accounts)-1].ID
	}
}

func checkNote(note models.Note, payments []models.Payment) []Finding {
	var findings []Finding
	mismatch := func(field string, expected, actual decimal.Decimal) {
		if !expected.Equal(actual) {
			findings = append(findings, Finding{Subject: "note", ID: note.ID, Field: field, Expected: expected, Actual: actual})
		}
	}

	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	mismatch("amount_paid", paid, note.AmountPaid)

	totals := valuation.Sum(note.Lines)
	mismatch("total_gross_kg", totals.GrossKg, note.TotalGrossKg)
	mismatch("total_discount_kg", totals.DiscountKg, note.TotalDiscountKg)
	mismatch("total_net_kg", totals.NetKg, note.TotalNetKg)
	mismatch("total_amount", totals.Amount, note.TotalAmount)
	return findings
}

// checkAccount compares the stored balance with the newest movement, or with
// the initial stock when the account never moved.
func checkAccount(account models.InventoryAccount, last []models.InventoryMovement) (Finding, bool) {
	expected := account.InitialStock
	if len(last) > 0 {
		expected = last[0].ResultingBalance
	}
	if expected.Equal(account.CurrentStock) {
		return Finding{}, false
	}
	return Finding{
		Subject:  "inventory_account",
		ID:       account.ID,
		Field:    "current_stock",
		Expected: expected,
		Actual:   account.CurrentStock,
	}, true
}
