package warranty

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Engine resolves a serial number to its eligibility status. The temporal
// computation itself is a pure function of (purchase date, now, config); the
// clock is injectable so results are re-derivable in tests.
type Engine struct {
	repo Repository
	now  func() time.Time
}

// NewEngine returns an Engine backed by the given repository.
func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo, now: time.Now}
}

// Lookup resolves the serial to its sale record and computes eligibility for
// the calling customer. Fails with ErrSerialNotFound when the serial does not
// exist, and ErrNotOwned when it was sold to someone else.
func (e *Engine) Lookup(ctx context.Context, serial, customerID string) (*Status, error) {
	sale, err := e.repo.FindSale(ctx, serial)
	if err != nil {
		return nil, err
	}
	if sale.CustomerID != customerID {
		return nil, ErrNotOwned
	}

	cfg, err := e.repo.ConfigFor(ctx, sale.ProductID)
	if err != nil {
		return nil, errors.Wrap(err, "load warranty config")
	}

	status := Evaluate(sale.PurchaseDate, e.now(), *cfg)
	status.SerialNumber = sale.SerialNumber

	// Replacement history is reported alongside the eligibility computation,
	// never instead of it.
	history, err := e.repo.ReplacementsFor(ctx, serial)
	if err != nil {
		return nil, errors.Wrap(err, "load replacement history")
	}
	if len(history) > 0 {
		status.Replaced = true
		lr := latestReplacement(history)
		status.LatestReplacement = &lr
	}

	return status, nil
}

// Evaluate computes the guarantee/warranty status for a purchase date at a
// given point in time. Deterministic: same inputs, same output.
func Evaluate(purchaseDate, now time.Time, cfg Config) *Status {
	elapsed := monthsBetween(purchaseDate, now)

	status := &Status{
		PurchaseDate:    purchaseDate,
		GuaranteeMonths: cfg.GuaranteeMonths,
		WarrantyMonths:  cfg.WarrantyMonths,
	}

	if elapsed < cfg.GuaranteeMonths {
		// Free replacement; slab lookup does not apply.
		status.UnderGuarantee = true
		return status
	}

	status.MonthsAfterGuarantee = elapsed - cfg.GuaranteeMonths

	if cfg.WarrantyMonths <= 0 {
		return status
	}
	for i := range cfg.Slabs {
		if cfg.Slabs[i].contains(status.MonthsAfterGuarantee) {
			slab := cfg.Slabs[i]
			status.Slab = &slab
			break
		}
	}
	return status
}

// monthsBetween returns the number of whole calendar months from a to b,
// floored: the count increments only once the day of month in b reaches the
// day of month in a. Negative spans clamp to zero.
func monthsBetween(a, b time.Time) int {
	if b.Before(a) {
		return 0
	}

	years := b.Year() - a.Year()
	months := int(b.Month()) - int(a.Month())
	total := years*12 + months
	if b.Day() < a.Day() {
		total--
	}
	if total < 0 {
		return 0
	}
	return total
}

// latestReplacement returns the most recent entry by date.
func latestReplacement(history []Replacement) Replacement {
	latest := history[0]
	for _, r := range history[1:] {
		if r.Date.After(latest.Date) {
			latest = r
		}
	}
	return latest
}
