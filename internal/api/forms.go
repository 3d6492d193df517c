package api

import (
	"math"    // NaN and Inf checks
	"strconv" // Number parsing
	"strings" // Input cleanup
	"time"    // Optional timestamps

	"driver_ledger/internal/domain"     // Domain models and errors
	"driver_ledger/internal/middleware" // Request ID for logs

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Money
	"github.com/sirupsen/logrus"    // Structured logging
)

// dateLayout matches the value of an <input type="datetime-local">
const dateLayout = "2006-01-02T15:04"

// FuelForm is the fuel purchase form as posted by the browser
type FuelForm struct {
	PreviousOdometer string `form:"km_anterior"`
	CurrentOdometer  string `form:"km_atual"`
	Liters           string `form:"litros_totais"`
	Cost             string `form:"custo_total"`
	Note             string `form:"observacao"`
	Date             string `form:"data"`
}

// OilForm is the oil change form
type OilForm struct {
	CurrentOdometer string `form:"km_atual"`
	Cost            string `form:"custo_total"`
	Note            string `form:"observacao"`
	Date            string `form:"data"`
}

// IncomeForm is the income form
type IncomeForm struct {
	Source string `form:"tipo"`
	Amount string `form:"valor"`
	Date   string `form:"data"`
}

// CredentialsForm is shared by login and registration
type CredentialsForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// formField is the ValidationError field of a body that could not be decoded at all
const formField = "form"

// bindForm decodes the request body into form. A malformed body is a ValidationError.
func bindForm(c *gin.Context, form any) error {
	if err := c.ShouldBind(form); err != nil {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString(middleware.ContextRequestID),
			"path":       c.Request.URL.Path,
			"error":      err.Error(),
		}).Debug("Form binding failed")
		return domain.NewValidationError(formField, "malformed request body")
	}
	return nil
}

// Apply validates the form and copies it onto e. e is left untouched on error.
func (f FuelForm) Apply(e *domain.ExpenseEvent, loc *time.Location) error {
	prev, err := parseNonNegative("km_anterior", f.PreviousOdometer)
	if err != nil {
		return err
	}
	curr, err := parseNonNegative("km_atual", f.CurrentOdometer)
	if err != nil {
		return err
	}
	if curr < prev {
		return domain.NewValidationError("km_atual", "must not be lower than km_anterior")
	}
	liters, err := parseNonNegative("litros_totais", f.Liters)
	if err != nil {
		return err
	}
	cost, err := parseMoney("custo_total", f.Cost)
	if err != nil {
		return err
	}
	at, err := parseDate(f.Date, loc)
	if err != nil {
		return err
	}

	e.Kind = domain.KindFuelPurchase
	e.PreviousOdometer = prev
	e.CurrentOdometer = curr
	e.Liters = liters
	e.Cost = cost
	e.Note = strings.TrimSpace(f.Note)
	e.OccurredAt = resolveDate(e.OccurredAt, at)
	return nil
}

// Apply validates the form and copies it onto e.
func (f OilForm) Apply(e *domain.ExpenseEvent, loc *time.Location) error {
	curr, err := parseNonNegative("km_atual", f.CurrentOdometer)
	if err != nil {
		return err
	}
	cost, err := parseMoney("custo_total", f.Cost)
	if err != nil {
		return err
	}
	at, err := parseDate(f.Date, loc)
	if err != nil {
		return err
	}

	e.Kind = domain.KindOilChange
	e.CurrentOdometer = curr
	e.Cost = cost
	e.Note = strings.TrimSpace(f.Note)
	e.OccurredAt = resolveDate(e.OccurredAt, at)
	return nil
}

// Apply validates the form and copies it onto i.
func (f IncomeForm) Apply(i *domain.IncomeEvent, loc *time.Location) error {
	source, ok := domain.ParseIncomeSource(f.Source)
	if !ok {
		return domain.NewValidationError("tipo", "unknown income source")
	}
	amount, err := parseMoney("valor", f.Amount)
	if err != nil {
		return err
	}
	at, err := parseDate(f.Date, loc)
	if err != nil {
		return err
	}

	i.Source = source
	i.Amount = amount
	i.OccurredAt = resolveDate(i.OccurredAt, at)
	return nil
}

// normalizeNumber accepts "1.234,56" and "1234,56" as well as "1234.56"
func normalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	return s
}

func parseNonNegative(field, raw string) (float64, error) {
	s := normalizeNumber(raw)
	if s == "" {
		return 0, domain.NewValidationError(field, "is required")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, domain.NewValidationError(field, "must be a number")
	}
	if v < 0 {
		return 0, domain.NewValidationError(field, "must not be negative")
	}
	return v, nil
}

func parseMoney(field, raw string) (decimal.Decimal, error) {
	s := normalizeNumber(raw)
	if s == "" {
		return decimal.Zero, domain.NewValidationError(field, "is required")
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, domain.NewValidationError(field, "must be a number")
	}
	if v.IsNegative() {
		return decimal.Zero, domain.NewValidationError(field, "must not be negative")
	}
	return v.Round(2), nil
}

// resolveDate picks the event time after an edit. The form only carries minutes, so a
// posted value equal to the stored time cut to the minute leaves the stored time alone.
func resolveDate(stored, posted time.Time) time.Time {
	if posted.IsZero() {
		return stored
	}
	if !stored.IsZero() && posted.Equal(stored.Truncate(time.Minute)) {
		return stored
	}
	return posted
}

// parseDate returns the zero time for an empty field
func parseDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, domain.NewValidationError("data", "must look like 2006-01-02T15:04")
	}
	return t, nil
}
