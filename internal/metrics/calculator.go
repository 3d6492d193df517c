// Package metrics computes dashboard and report figures from records that were
// already loaded. Nothing here touches the database.
package metrics

import (
	"slices"
	"strconv"
	"time"

	"driver_ledger/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	// OilChangeInterval is the distance between oil changes.
	OilChangeInterval = 1000.0
	// RecentActivityLimit is how many entries the dashboard and report list.
	RecentActivityLimit = 5
)

// AverageFuelEfficiency returns distance per liter over all fuel purchases.
// ok is false when there is nothing to divide by.
func AverageFuelEfficiency(events []domain.ExpenseEvent) (kmPerLiter float64, ok bool) {
	var distance, liters float64
	for _, e := range events {
		if e.Kind != domain.KindFuelPurchase {
			continue
		}
		distance += e.Distance()
		liters += e.Liters
	}
	if liters <= 0 {
		return 0, false
	}
	return distance / liters, true
}

// NextOilChange returns the odometer reading at which the next oil change is due.
// last is the most recent oil change, nil when there has been none.
func NextOilChange(last *domain.ExpenseEvent) (odometer float64, ok bool) {
	if last == nil {
		return 0, false
	}
	return last.CurrentOdometer + OilChangeInterval, true
}

// MonthlyTotals are the per-category sums for one calendar month.
type MonthlyTotals struct {
	RideHailing decimal.Decimal `json:"ride_hailing"`
	Delivery    decimal.Decimal `json:"delivery"`
	Fuel        decimal.Decimal `json:"fuel"`
	OilChange   decimal.Decimal `json:"oil_change"`
}

// Income is ride-hailing plus delivery earnings.
func (t MonthlyTotals) Income() decimal.Decimal {
	return t.RideHailing.Add(t.Delivery)
}

// Costs is fuel plus oil-change spending.
func (t MonthlyTotals) Costs() decimal.Decimal {
	return t.Fuel.Add(t.OilChange)
}

// MonthlyBalance is income minus costs.
func MonthlyBalance(t MonthlyTotals) decimal.Decimal {
	return t.Income().Sub(t.Costs())
}

// MonthStart returns the first instant of now's calendar month, in now's location.
func MonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// ActivityKind distinguishes entries of the merged activity list.
type ActivityKind string

const (
	ActivityFuelPurchase ActivityKind = "fuel-purchase"
	ActivityOilChange    ActivityKind = "oil-change"
	ActivityIncome       ActivityKind = "income"
)

// Activity is one row of the recent-activity list.
type Activity struct {
	Kind       ActivityKind    `json:"kind"`
	ID         uint            `json:"id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Label      string          `json:"label"`
	Amount     decimal.Decimal `json:"amount"`
	Note       string          `json:"note,omitempty"`
}

// IsIncome reports whether the entry adds money.
func (a Activity) IsIncome() bool {
	return a.Kind == ActivityIncome
}

// EditPath is the route that edits the underlying record.
func (a Activity) EditPath() string {
	return pathPrefix(a.Kind, "/editar_") + strconv.FormatUint(uint64(a.ID), 10)
}

// DeletePath is the route that deletes the underlying record.
func (a Activity) DeletePath() string {
	return pathPrefix(a.Kind, "/excluir_") + strconv.FormatUint(uint64(a.ID), 10)
}

func pathPrefix(kind ActivityKind, verb string) string {
	switch kind {
	case ActivityFuelPurchase:
		return verb + "abastecimento/"
	case ActivityOilChange:
		return verb + "oleo/"
	default:
		return verb + "ganho/"
	}
}

// RecentActivity merges expenses and incomes and keeps the n most recent.
// Ties keep expenses ahead of incomes and otherwise preserve input order.
func RecentActivity(expenses []domain.ExpenseEvent, incomes []domain.IncomeEvent, n int) []Activity {
	all := make([]Activity, 0, len(expenses)+len(incomes))
	for _, e := range expenses {
		kind := ActivityFuelPurchase
		if e.Kind == domain.KindOilChange {
			kind = ActivityOilChange
		}
		all = append(all, Activity{
			Kind:       kind,
			ID:         e.ID,
			OccurredAt: e.OccurredAt,
			Label:      e.Kind.Label(),
			Amount:     e.Cost,
			Note:       e.Note,
		})
	}
	for _, i := range incomes {
		all = append(all, Activity{
			Kind:       ActivityIncome,
			ID:         i.ID,
			OccurredAt: i.OccurredAt,
			Label:      i.Source.Label(),
			Amount:     i.Amount,
		})
	}
	slices.SortStableFunc(all, func(a, b Activity) int {
		return b.OccurredAt.Compare(a.OccurredAt)
	})
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all
}
