// Package report gathers what the dashboard and monthly report pages show: it
// runs the aggregate queries for one user, feeds the results through the
// metrics calculator and caches the outcome until the user's next write.
package report

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"driver_ledger/internal/domain"
	"driver_ledger/internal/metrics"
	"driver_ledger/internal/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// ExpenseStore is the slice of the expense repository the reports read.
type ExpenseStore interface {
	ListByKind(ctx context.Context, userID uint, kind domain.ExpenseKind) ([]domain.ExpenseEvent, error)
	Latest(ctx context.Context, userID uint, kind domain.ExpenseKind) (*domain.ExpenseEvent, error)
	Recent(ctx context.Context, userID uint, limit int) ([]domain.ExpenseEvent, error)
	SumCost(ctx context.Context, userID uint, kind domain.ExpenseKind, since time.Time) (decimal.Decimal, error)
}

// IncomeStore is the slice of the income repository the reports read.
type IncomeStore interface {
	Recent(ctx context.Context, userID uint, limit int) ([]domain.IncomeEvent, error)
	SumAmount(ctx context.Context, userID uint, source domain.IncomeSource, since time.Time) (decimal.Decimal, error)
}

// Dashboard holds the all-time figures of the dashboard page.
type Dashboard struct {
	Recent            []metrics.Activity `json:"recent"`
	TotalIncome       decimal.Decimal    `json:"total_income"`
	TotalExpenses     decimal.Decimal    `json:"total_expenses"`
	FuelEfficiency    float64            `json:"fuel_efficiency"`
	HasFuelEfficiency bool               `json:"has_fuel_efficiency"`
	NextOilChange     float64            `json:"next_oil_change"`
	HasNextOilChange  bool               `json:"has_next_oil_change"`
}

// Monthly holds the current-month figures of the report page.
type Monthly struct {
	MonthStart time.Time             `json:"month_start"`
	Totals     metrics.MonthlyTotals `json:"totals"`
	Balance    decimal.Decimal       `json:"balance"`
	Recent     []metrics.Activity    `json:"recent"`
}

// Service builds dashboards and monthly reports.
type Service struct {
	expenses ExpenseStore
	incomes  IncomeStore
	cache    utils.Cache
	ttl      time.Duration
	now      func() time.Time

	mu  sync.Mutex
	gen map[uint]uint64 // Bumped by Invalidate, per user
}

// NewService wires the stores and cache. A nil cache disables caching.
func NewService(expenses ExpenseStore, incomes IncomeStore, cache utils.Cache, ttl time.Duration) *Service {
	if cache == nil {
		cache = utils.NopCache{}
	}
	return &Service{expenses: expenses, incomes: incomes, cache: cache, ttl: ttl, now: time.Now, gen: map[uint]uint64{}}
}

func dashboardKey(userID uint) string {
	return "dashboard:user:" + strconv.FormatUint(uint64(userID), 10)
}

func monthlyKey(userID uint, monthStart time.Time) string {
	return "report:user:" + strconv.FormatUint(uint64(userID), 10) + ":" + monthStart.Format("2006-01")
}

// Dashboard returns the user's all-time dashboard.
func (s *Service) Dashboard(ctx context.Context, userID uint) (*Dashboard, error) {
	key := dashboardKey(userID)
	gen := s.generation(userID)
	var cached Dashboard
	if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
		return &cached, nil
	} else if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Warn("Dashboard cache read failed")
	}

	var (
		d              Dashboard
		fuel           []domain.ExpenseEvent
		lastOil        *domain.ExpenseEvent
		recentExpenses []domain.ExpenseEvent
		recentIncomes  []domain.IncomeEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		fuel, err = s.expenses.ListByKind(gctx, userID, domain.KindFuelPurchase)
		return err
	})
	g.Go(func() (err error) {
		lastOil, err = s.expenses.Latest(gctx, userID, domain.KindOilChange)
		return err
	})
	g.Go(func() (err error) {
		recentExpenses, err = s.expenses.Recent(gctx, userID, metrics.RecentActivityLimit)
		return err
	})
	g.Go(func() (err error) {
		recentIncomes, err = s.incomes.Recent(gctx, userID, metrics.RecentActivityLimit)
		return err
	})
	g.Go(func() (err error) {
		d.TotalIncome, err = s.incomes.SumAmount(gctx, userID, "", time.Time{})
		return err
	})
	g.Go(func() (err error) {
		d.TotalExpenses, err = s.expenses.SumCost(gctx, userID, "", time.Time{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build dashboard: %w", err)
	}

	d.FuelEfficiency, d.HasFuelEfficiency = metrics.AverageFuelEfficiency(fuel)
	d.NextOilChange, d.HasNextOilChange = metrics.NextOilChange(lastOil)
	d.Recent = metrics.RecentActivity(recentExpenses, recentIncomes, metrics.RecentActivityLimit)

	s.store(ctx, userID, gen, key, d)
	return &d, nil
}

// Monthly returns the report for the calendar month containing now.
func (s *Service) Monthly(ctx context.Context, userID uint) (*Monthly, error) {
	start := metrics.MonthStart(s.now())
	key := monthlyKey(userID, start)
	gen := s.generation(userID)
	var cached Monthly
	if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
		return &cached, nil
	} else if err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Warn("Report cache read failed")
	}

	var (
		m              = Monthly{MonthStart: start}
		recentExpenses []domain.ExpenseEvent
		recentIncomes  []domain.IncomeEvent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		m.Totals.RideHailing, err = s.incomes.SumAmount(gctx, userID, domain.SourceRideHailing, start)
		return err
	})
	g.Go(func() (err error) {
		m.Totals.Delivery, err = s.incomes.SumAmount(gctx, userID, domain.SourceDelivery, start)
		return err
	})
	g.Go(func() (err error) {
		m.Totals.Fuel, err = s.expenses.SumCost(gctx, userID, domain.KindFuelPurchase, start)
		return err
	})
	g.Go(func() (err error) {
		m.Totals.OilChange, err = s.expenses.SumCost(gctx, userID, domain.KindOilChange, start)
		return err
	})
	g.Go(func() (err error) {
		recentExpenses, err = s.expenses.Recent(gctx, userID, metrics.RecentActivityLimit)
		return err
	})
	g.Go(func() (err error) {
		recentIncomes, err = s.incomes.Recent(gctx, userID, metrics.RecentActivityLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build monthly report: %w", err)
	}

	m.Balance = metrics.MonthlyBalance(m.Totals)
	m.Recent = metrics.RecentActivity(recentExpenses, recentIncomes, metrics.RecentActivityLimit)

	s.store(ctx, userID, gen, key, m)
	return &m, nil
}

// Invalidate drops the user's cached dashboard and current report. Call after every write.
// Builds already running for the user will not cache their result. Other processes sharing
// the cache only learn about the write through the deleted keys, so a build racing with a
// write elsewhere can still cache stale figures for at most the TTL.
func (s *Service) Invalidate(ctx context.Context, userID uint) {
	s.mu.Lock()
	s.gen[userID]++
	s.mu.Unlock()

	keys := []string{dashboardKey(userID), monthlyKey(userID, metrics.MonthStart(s.now()))}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "error": err.Error()}).Warn("Cache invalidation failed")
	}
}

func (s *Service) generation(userID uint) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen[userID]
}

// store caches value unless the user's data changed since gen was read
func (s *Service) store(ctx context.Context, userID uint, gen uint64, key string, value any) {
	if s.generation(userID) != gen {
		logrus.WithFields(logrus.Fields{"user_id": userID, "key": key}).Debug("Skipping cache write, data changed during build")
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		logrus.WithFields(logrus.Fields{"user_id": userID, "key": key, "error": err.Error()}).Warn("Cache write failed")
	}
}
