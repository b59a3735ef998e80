// Package valuation derives line weights, prices and note totals from the
// in-memory note graph. Nothing here touches storage.
package valuation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/blankhall98/Metaleria-API/pkg/db/models"
	"github.com/blankhall98/Metaleria-API/pkg/enums"
	pkgerrors "github.com/blankhall98/Metaleria-API/pkg/errors"
)

const (
	weightPlaces = 3
	moneyPlaces  = 2
)

// Resolver returns the active price version for a material under the given
// customer class, or nil when none is published.
type Resolver func(materialID int64, class enums.CustomerClass) (*models.PriceVersion, error)

// Totals is the aggregate of every line of a note.
type Totals struct {
	GrossKg    decimal.Decimal
	DiscountKg decimal.Decimal
	NetKg      decimal.Decimal
	Amount     decimal.Decimal
}

// NetOf returns gross minus discount, floored at zero.
func NetOf(gross, discount decimal.Decimal) decimal.Decimal {
	net := gross.Sub(discount)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net.Round(weightPlaces)
}

// RecalculateLine refreshes gross, discount and net of a line. When the line
// has sub-weighings they are the only source of truth.
func RecalculateLine(line *models.WeightLine) {
	if len(line.SubWeighings) > 0 {
		gross := decimal.Zero
		discount := decimal.Zero
		for _, sw := range line.SubWeighings {
			gross = gross.Add(sw.GrossKg)
			discount = discount.Add(sw.DiscountKg)
		}
		line.GrossKg = gross.Round(weightPlaces)
		line.DiscountKg = discount.Round(weightPlaces)
	}
	line.NetKg = NetOf(line.GrossKg, line.DiscountKg)
}

// ClassOf returns the customer class a line is priced under.
func ClassOf(line models.WeightLine) enums.CustomerClass {
	if line.CustomerClass == nil || *line.CustomerClass == "" {
		return enums.CustomerClassRegular
	}
	return *line.CustomerClass
}

// SetPrice stamps the unit price, version and subtotal of a line.
// A nil version clears all three.
func SetPrice(line *models.WeightLine, version *models.PriceVersion) {
	if version == nil {
		ClearPrice(line)
		return
	}
	id := version.ID
	line.PriceVersionID = &id
	SetFixedPrice(line, version.UnitPrice)
}

// SetFixedPrice prices a line with an explicit unit price and no version reference.
func SetFixedPrice(line *models.WeightLine, unitPrice decimal.Decimal) {
	price := unitPrice.Round(moneyPlaces)
	line.UnitPrice = decimal.NewNullDecimal(price)
	line.Subtotal = decimal.NewNullDecimal(price.Mul(line.NetKg).Round(moneyPlaces))
}

// ClearPrice marks a line as unpriced.
func ClearPrice(line *models.WeightLine) {
	line.UnitPrice = decimal.NullDecimal{}
	line.Subtotal = decimal.NullDecimal{}
	line.PriceVersionID = nil
}

// ApplyPrices recalculates every line, resolves its active price and refreshes
// the note totals. Unpriced lines contribute weight but no amount.
func ApplyPrices(note *models.Note, resolve Resolver) error {
	for i := range note.Lines {
		line := &note.Lines[i]
		RecalculateLine(line)
		version, err := resolve(line.MaterialID, ClassOf(*line))
		if err != nil {
			return err
		}
		SetPrice(line, version)
	}
	ApplyTotals(note)
	return nil
}

// Sum aggregates the lines without mutating them.
func Sum(lines []models.WeightLine) Totals {
	totals := Totals{GrossKg: decimal.Zero, DiscountKg: decimal.Zero, NetKg: decimal.Zero, Amount: decimal.Zero}
	for _, line := range lines {
		totals.GrossKg = totals.GrossKg.Add(line.GrossKg)
		totals.DiscountKg = totals.DiscountKg.Add(line.DiscountKg)
		totals.NetKg = totals.NetKg.Add(line.NetKg)
		if line.Subtotal.Valid {
			totals.Amount = totals.Amount.Add(line.Subtotal.Decimal)
		}
	}
	return totals
}

// ApplyTotals copies the line sums onto the note.
func ApplyTotals(note *models.Note) {
	totals := Sum(note.Lines)
	note.TotalGrossKg = totals.GrossKg.Round(weightPlaces)
	note.TotalDiscountKg = totals.DiscountKg.Round(weightPlaces)
	note.TotalNetKg = totals.NetKg.Round(weightPlaces)
	note.TotalAmount = totals.Amount.Round(moneyPlaces)
}

// UnpricedLines returns the material ids of lines without a resolved price.
func UnpricedLines(note models.Note) []int64 {
	var out []int64
	for _, line := range note.Lines {
		if !line.Subtotal.Valid {
			out = append(out, line.MaterialID)
		}
	}
	return out
}

// ValidateWeighing rejects a non-positive gross or a discount outside [0, gross].
func ValidateWeighing(gross, discount decimal.Decimal) error {
	if !gross.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "gross weight must be greater than zero").
			WithDetails(map[string]any{"gross_kg": gross.String()})
	}
	if discount.IsNegative() || discount.GreaterThan(gross) {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, fmt.Sprintf("discount must be between 0 and %s", gross.String())).
			WithDetails(map[string]any{"gross_kg": gross.String(), "discount_kg": discount.String()})
	}
	return nil
}
