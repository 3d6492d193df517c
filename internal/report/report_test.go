package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"driver_ledger/internal/db"
	"driver_ledger/internal/domain"
	"driver_ledger/internal/metrics"
	"driver_ledger/internal/repository"
	"driver_ledger/internal/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ReportTestSuite struct {
	suite.Suite
	ctx      context.Context
	mr       *miniredis.Miniredis
	expenses *repository.ExpenseRepository
	incomes  *repository.IncomeRepository
	service  *Service
	cache    utils.Cache
	userID   uint
}

func (suite *ReportTestSuite) SetupTest() {
	gdb, err := db.OpenSQLite(":memory:")
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), db.Migrate(gdb))
	suite.T().Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	suite.ctx = context.Background()
	user := &domain.User{Username: "driver", PasswordHash: "x"}
	require.NoError(suite.T(), repository.NewUserRepository(gdb).Create(suite.ctx, user))
	suite.userID = user.ID

	suite.mr = miniredis.RunT(suite.T())
	cache := utils.NewRedisCache(redis.NewClient(&redis.Options{Addr: suite.mr.Addr()}))
	suite.cache = cache

	suite.expenses = repository.NewExpenseRepository(gdb)
	suite.incomes = repository.NewIncomeRepository(gdb)
	suite.service = NewService(suite.expenses, suite.incomes, cache, time.Minute)
}

func (suite *ReportTestSuite) addExpense(e domain.ExpenseEvent) {
	e.UserID = suite.userID
	require.NoError(suite.T(), suite.expenses.Create(suite.ctx, &e))
}

func (suite *ReportTestSuite) addIncome(source domain.IncomeSource, amount int64, at time.Time) {
	i := domain.IncomeEvent{UserID: suite.userID, Source: source, Amount: decimal.NewFromInt(amount), OccurredAt: at}
	require.NoError(suite.T(), suite.incomes.Create(suite.ctx, &i))
}

func (suite *ReportTestSuite) TestEmptyDashboard() {
	d, err := suite.service.Dashboard(suite.ctx, suite.userID)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), d.HasFuelEfficiency)
	assert.False(suite.T(), d.HasNextOilChange)
	assert.Empty(suite.T(), d.Recent)
	assert.True(suite.T(), d.TotalIncome.IsZero())
	assert.True(suite.T(), d.TotalExpenses.IsZero())
}

func (suite *ReportTestSuite) TestDashboard() {
	now := time.Now()
	suite.addExpense(domain.ExpenseEvent{Kind: domain.KindFuelPurchase, OccurredAt: now.Add(-3 * time.Hour), PreviousOdometer: 49000, CurrentOdometer: 49300, Liters: 20, Cost: decimal.NewFromInt(120)})
	suite.addExpense(domain.ExpenseEvent{Kind: domain.KindFuelPurchase, OccurredAt: now.Add(-2 * time.Hour), PreviousOdometer: 49300, CurrentOdometer: 49500, Liters: 20, Cost: decimal.NewFromInt(110)})
	suite.addExpense(domain.ExpenseEvent{Kind: domain.KindOilChange, OccurredAt: now.Add(-1 * time.Hour), CurrentOdometer: 50000, Cost: decimal.NewFromInt(150)})
	suite.addIncome(domain.SourceRideHailing, 400, now.Add(-30*time.Minute))

	d, err := suite.service.Dashboard(suite.ctx, suite.userID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), d.HasFuelEfficiency)
	assert.InDelta(suite.T(), 12.5, d.FuelEfficiency, 1e-9)
	assert.True(suite.T(), d.HasNextOilChange)
	assert.Equal(suite.T(), 51000.0, d.NextOilChange)
	assert.Equal(suite.T(), "380", d.TotalExpenses.String())
	assert.Equal(suite.T(), "400", d.TotalIncome.String())
	require.Len(suite.T(), d.Recent, 4)
	assert.True(suite.T(), d.Recent[0].IsIncome())
}

func (suite *ReportTestSuite) TestMonthlyBalance() {
	monthStart := time.Date(time.Now().Year(), time.Now().Month(), 1, 0, 0, 0, 0, time.Local)
	inMonth := monthStart.Add(2 * time.Hour)
	suite.addIncome(domain.SourceRideHailing, 500, inMonth)
	suite.addIncome(domain.SourceDelivery, 300, inMonth)
	suite.addIncome(domain.SourceDelivery, 1000, monthStart.AddDate(0, -1, 0))
	suite.addExpense(domain.ExpenseEvent{Kind: domain.KindFuelPurchase, OccurredAt: inMonth, PreviousOdometer: 0, CurrentOdometer: 100, Liters: 10, Cost: decimal.NewFromInt(200)})

	m, err := suite.service.Monthly(suite.ctx, suite.userID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), monthStart, m.MonthStart)
	assert.Equal(suite.T(), "500", m.Totals.RideHailing.String())
	assert.Equal(suite.T(), "300", m.Totals.Delivery.String())
	assert.Equal(suite.T(), "200", m.Totals.Fuel.String())
	assert.True(suite.T(), m.Totals.OilChange.IsZero())
	assert.Equal(suite.T(), "600", m.Balance.String())
	assert.Len(suite.T(), m.Recent, 4)
}

func (suite *ReportTestSuite) TestCachedUntilInvalidated() {
	suite.addIncome(domain.SourceDelivery, 100, time.Now())

	first, err := suite.service.Dashboard(suite.ctx, suite.userID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "100", first.TotalIncome.String())
	assert.True(suite.T(), suite.mr.Exists(dashboardKey(suite.userID)))

	// Written behind the service's back, so the cached copy is still served
	suite.addIncome(domain.SourceDelivery, 50, time.Now())
	stale, err := suite.service.Dashboard(suite.ctx, suite.userID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "100", stale.TotalIncome.String())

	suite.service.Invalidate(suite.ctx, suite.userID)
	assert.False(suite.T(), suite.mr.Exists(dashboardKey(suite.userID)))

	fresh, err := suite.service.Dashboard(suite.ctx, suite.userID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "150", fresh.TotalIncome.String())
}

// writeDuringRecent runs a write the first time the build asks for recent expenses
type writeDuringRecent struct {
	ExpenseStore
	once  *sync.Once
	write func()
}

func (w writeDuringRecent) Recent(ctx context.Context, userID uint, limit int) ([]domain.ExpenseEvent, error) {
	w.once.Do(w.write)
	return w.ExpenseStore.Recent(ctx, userID, limit)
}

func (suite *ReportTestSuite) TestWriteDuringBuildIsNotCached() {
	suite.addIncome(domain.SourceDelivery, 100, time.Now())

	var service *Service
	store := writeDuringRecent{ExpenseStore: suite.expenses, once: &sync.Once{}, write: func() {
		suite.addIncome(domain.SourceDelivery, 50, time.Now())
		service.Invalidate(suite.ctx, suite.userID)
	}}
	service = NewService(store, suite.incomes, suite.cache, time.Minute)

	_, err := service.Dashboard(suite.ctx, suite.userID)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), suite.mr.Exists(dashboardKey(suite.userID)), "build overlapping a write must not be cached")

	fresh, err := service.Dashboard(suite.ctx, suite.userID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "150", fresh.TotalIncome.String())
	assert.True(suite.T(), suite.mr.Exists(dashboardKey(suite.userID)))

	_, err = service.Monthly(suite.ctx, suite.userID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), suite.mr.Exists(monthlyKey(suite.userID, metrics.MonthStart(time.Now()))))
}

func (suite *ReportTestSuite) TestMonthlyKeyUsesClock() {
	suite.service.now = func() time.Time { return time.Date(2026, time.February, 14, 10, 0, 0, 0, time.UTC) }
	_, err := suite.service.Monthly(suite.ctx, suite.userID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), suite.mr.Exists(fmt.Sprintf("report:user:%d:2026-02", suite.userID)))
}

func TestReportSuite(t *testing.T) {
	suite.Run(t, new(ReportTestSuite))
}

type failingIncomes struct{}

func (failingIncomes) Recent(context.Context, uint, int) ([]domain.IncomeEvent, error) {
	return nil, errors.New("db down")
}

func (failingIncomes) SumAmount(context.Context, uint, domain.IncomeSource, time.Time) (decimal.Decimal, error) {
	return decimal.Zero, errors.New("db down")
}

type emptyExpenses struct{}

func (emptyExpenses) ListByKind(context.Context, uint, domain.ExpenseKind) ([]domain.ExpenseEvent, error) {
	return nil, nil
}

func (emptyExpenses) Latest(context.Context, uint, domain.ExpenseKind) (*domain.ExpenseEvent, error) {
	return nil, nil
}

func (emptyExpenses) Recent(context.Context, uint, int) ([]domain.ExpenseEvent, error) {
	return nil, nil
}

func (emptyExpenses) SumCost(context.Context, uint, domain.ExpenseKind, time.Time) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func TestQueryFailurePropagates(t *testing.T) {
	s := NewService(emptyExpenses{}, failingIncomes{}, nil, time.Minute)

	_, err := s.Dashboard(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")

	_, err = s.Monthly(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build monthly report")
}
