package metrics

import (
	"testing"
	"time"

	"driver_ledger/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fuel(prev, curr, liters float64) domain.ExpenseEvent {
	return domain.ExpenseEvent{Kind: domain.KindFuelPurchase, PreviousOdometer: prev, CurrentOdometer: curr, Liters: liters}
}

func TestAverageFuelEfficiency(t *testing.T) {
	tests := []struct {
		name   string
		events []domain.ExpenseEvent
		want   float64
		wantOK bool
	}{
		{name: "no events", events: nil, want: 0, wantOK: false},
		{name: "zero liters", events: []domain.ExpenseEvent{fuel(100, 400, 0), fuel(400, 500, 0)}, want: 0, wantOK: false},
		{name: "two fill-ups", events: []domain.ExpenseEvent{fuel(1000, 1300, 20), fuel(1300, 1500, 20)}, want: 12.5, wantOK: true},
		{name: "order does not matter", events: []domain.ExpenseEvent{fuel(1300, 1500, 20), fuel(1000, 1300, 20)}, want: 12.5, wantOK: true},
		{
			name: "oil changes ignored",
			events: []domain.ExpenseEvent{
				fuel(0, 300, 30),
				{Kind: domain.KindOilChange, CurrentOdometer: 50000},
			},
			want:   10,
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AverageFuelEfficiency(tt.events)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestNextOilChange(t *testing.T) {
	got, ok := NextOilChange(&domain.ExpenseEvent{Kind: domain.KindOilChange, CurrentOdometer: 50000})
	assert.True(t, ok)
	assert.Equal(t, 51000.0, got)

	got, ok = NextOilChange(nil)
	assert.False(t, ok)
	assert.Zero(t, got)
}

func TestMonthlyBalance(t *testing.T) {
	totals := MonthlyTotals{
		RideHailing: decimal.NewFromInt(500),
		Delivery:    decimal.NewFromInt(300),
		Fuel:        decimal.NewFromInt(200),
	}
	assert.True(t, decimal.NewFromInt(600).Equal(MonthlyBalance(totals)), "got %s", MonthlyBalance(totals))

	assert.True(t, MonthlyBalance(MonthlyTotals{}).IsZero())

	totals = MonthlyTotals{
		RideHailing: decimal.RequireFromString("0.10"),
		Delivery:    decimal.RequireFromString("0.20"),
		OilChange:   decimal.RequireFromString("0.30"),
	}
	assert.True(t, MonthlyBalance(totals).IsZero(), "decimal arithmetic stays exact")
}

func TestMonthStart(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)
	now := time.Date(2026, time.October, 17, 15, 4, 5, 6, loc)
	assert.Equal(t, time.Date(2026, time.October, 1, 0, 0, 0, 0, loc), MonthStart(now))
}

func TestRecentActivity(t *testing.T) {
	base := time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)
	expenses := []domain.ExpenseEvent{
		{ID: 1, Kind: domain.KindFuelPurchase, OccurredAt: base.Add(1 * time.Hour), Cost: decimal.NewFromInt(100)},
		{ID: 2, Kind: domain.KindOilChange, OccurredAt: base.Add(5 * time.Hour), Cost: decimal.NewFromInt(150)},
		{ID: 3, Kind: domain.KindFuelPurchase, OccurredAt: base.Add(3 * time.Hour), Cost: decimal.NewFromInt(90)},
	}
	incomes := []domain.IncomeEvent{
		{ID: 10, Source: domain.SourceRideHailing, OccurredAt: base.Add(2 * time.Hour), Amount: decimal.NewFromInt(80)},
		{ID: 11, Source: domain.SourceDelivery, OccurredAt: base.Add(6 * time.Hour), Amount: decimal.NewFromInt(40)},
		{ID: 12, Source: domain.SourceDelivery, OccurredAt: base.Add(4 * time.Hour), Amount: decimal.NewFromInt(60)},
		{ID: 13, Source: domain.SourceRideHailing, OccurredAt: base, Amount: decimal.NewFromInt(70)},
	}

	got := RecentActivity(expenses, incomes, RecentActivityLimit)
	require.Len(t, got, 5)

	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].OccurredAt.After(got[i-1].OccurredAt), "not sorted descending at %d", i)
	}

	wantIDs := []uint{11, 2, 12, 3, 10}
	for i, a := range got {
		assert.Equal(t, wantIDs[i], a.ID)
	}
	assert.Equal(t, ActivityIncome, got[0].Kind)
	assert.Equal(t, ActivityOilChange, got[1].Kind)
	assert.Equal(t, "/editar_oleo/2", got[1].EditPath())
	assert.Equal(t, "/excluir_ganho/11", got[0].DeletePath())
}

func TestRecentActivityTiesAndShortInput(t *testing.T) {
	at := time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)
	expenses := []domain.ExpenseEvent{{ID: 1, Kind: domain.KindFuelPurchase, OccurredAt: at}}
	incomes := []domain.IncomeEvent{{ID: 2, Source: domain.SourceDelivery, OccurredAt: at}}

	got := RecentActivity(expenses, incomes, RecentActivityLimit)
	require.Len(t, got, 2)
	assert.Equal(t, ActivityFuelPurchase, got[0].Kind)
	assert.Equal(t, ActivityIncome, got[1].Kind)

	assert.Empty(t, RecentActivity(nil, nil, RecentActivityLimit))
}
