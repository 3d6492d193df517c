package api

import (
	"context"  // Repository signatures
	"errors"   // Error classification
	"net/http" // HTTP status codes
	"strconv"  // Path parameters
	"time"     // Form timestamps

	"driver_ledger/internal/domain"     // Domain models and errors
	"driver_ledger/internal/middleware" // Session user

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Structured logging
)

// ExpenseRepo persists fuel purchases and oil changes
type ExpenseRepo interface {
	Create(ctx context.Context, e *domain.ExpenseEvent) error
	Get(ctx context.Context, userID, id uint, kind domain.ExpenseKind) (*domain.ExpenseEvent, error)
	Update(ctx context.Context, e *domain.ExpenseEvent) error
	Delete(ctx context.Context, userID, id uint, kind domain.ExpenseKind) error
}

// IncomeRepo persists income events
type IncomeRepo interface {
	Create(ctx context.Context, i *domain.IncomeEvent) error
	Get(ctx context.Context, userID, id uint) (*domain.IncomeEvent, error)
	Update(ctx context.Context, i *domain.IncomeEvent) error
	Delete(ctx context.Context, userID, id uint) error
}

// Invalidator drops cached figures after a write
type Invalidator interface {
	Invalidate(ctx context.Context, userID uint)
}

// expensePage describes the pages of one expense kind
type expensePage struct {
	template string
	title    string
	newPath  string
	editPath string
	created  string
	updated  string
	deleted  string
}

var expensePages = map[domain.ExpenseKind]expensePage{
	domain.KindFuelPurchase: {
		template: "registrar_abastecimento.html",
		title:    "Abastecimento",
		newPath:  "/registrar_abastecimento",
		editPath: "/editar_abastecimento/",
		created:  "Abastecimento registrado com sucesso!",
		updated:  "Abastecimento atualizado com sucesso!",
		deleted:  "Abastecimento excluído com sucesso!",
	},
	domain.KindOilChange: {
		template: "registrar_oleo.html",
		title:    "Troca de óleo",
		newPath:  "/registrar_oleo",
		editPath: "/editar_oleo/",
		created:  "Troca de óleo registrada com sucesso!",
		updated:  "Troca de óleo atualizada com sucesso!",
		deleted:  "Troca de óleo excluída com sucesso!",
	},
}

// bindExpense reads the kind's form from the request and applies it to e
func bindExpense(c *gin.Context, kind domain.ExpenseKind, e *domain.ExpenseEvent, loc *time.Location) error {
	if kind == domain.KindOilChange {
		var form OilForm
		if err := bindForm(c, &form); err != nil {
			return err
		}
		return form.Apply(e, loc)
	}
	var form FuelForm
	if err := bindForm(c, &form); err != nil {
		return err
	}
	return form.Apply(e, loc)
}

// recordID parses the :id path parameter
func recordID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func writeLog(c *gin.Context, userID, id uint, kind string) *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"user_id":    userID,
		"record_id":  id,
		"kind":       kind,
		"request_id": c.GetString(middleware.ContextRequestID),
	})
}

// NewExpensePageHandler shows an empty form for the kind
func NewExpensePageHandler(kind domain.ExpenseKind) gin.HandlerFunc {
	page := expensePages[kind]
	return func(c *gin.Context) {
		render(c, http.StatusOK, page.template, gin.H{"Title": page.title, "Action": page.newPath})
	}
}

// CreateExpenseHandler records a fuel purchase or oil change for the session user
func CreateExpenseHandler(expenses ExpenseRepo, reports Invalidator, kind domain.ExpenseKind, loc *time.Location) gin.HandlerFunc {
	page := expensePages[kind]
	return func(c *gin.Context) {
		userID, _ := middleware.UserID(c) // Guaranteed by SessionAuth

		e := domain.ExpenseEvent{UserID: userID}
		if err := bindExpense(c, kind, &e, loc); err != nil {
			msg, _ := validationMessage(err)
			setFlash(c, flashError, msg)
			c.Redirect(http.StatusFound, page.newPath)
			return
		}
		if err := expenses.Create(c.Request.Context(), &e); err != nil {
			renderServerError(c, err, "Failed to create expense")
			return
		}
		reports.Invalidate(c.Request.Context(), userID)

		writeLog(c, userID, e.ID, string(kind)).Info("Expense recorded")
		setFlash(c, flashSuccess, page.created)
		c.Redirect(http.StatusFound, "/dashboard")
	}
}

// EditExpensePageHandler shows the form filled with an owned record
func EditExpensePageHandler(expenses ExpenseRepo, kind domain.ExpenseKind) gin.HandlerFunc {
	page := expensePages[kind]
	return func(c *gin.Context) {
		userID, _ := middleware.UserID(c)
		id, ok := recordID(c)
		if !ok {
			renderNotFound(c)
			return
		}
		e, err := expenses.Get(c.Request.Context(), userID, id, kind)
		if errors.Is(err, domain.ErrNotFound) {
			renderNotFound(c)
			return
		} else if err != nil {
			renderServerError(c, err, "Failed to load expense")
			return
		}
		render(c, http.StatusOK, page.template, gin.H{
			"Title":  page.title,
			"Action": page.editPath + strconv.FormatUint(uint64(id), 10),
			"Record": e,
		})
	}
}

// UpdateExpenseHandler saves the edited form over an owned record
func UpdateExpenseHandler(expenses ExpenseRepo, reports Invalidator, kind domain.ExpenseKind, loc *time.Location) gin.HandlerFunc {
	page := expensePages[kind]
	return func(c *gin.Context) {
		userID, _ := middleware.UserID(c)
		id, ok := recordID(c)
		if !ok {
			renderNotFound(c)
			return
		}
		ctx := c.Request.Context()
		e, err := expenses.Get(ctx, userID, id, kind)
		if errors.Is(err, domain.ErrNotFound) {
			renderNotFound(c)
			return
		} else if err != nil {
			renderServerError(c, err, "Failed to load expense")
			return
		}

		if err := bindExpense(c, kind, e, loc); err != nil {
			msg, _ := validationMessage(err)
			setFlash(c, flashError, msg)
			c.Redirect(http.StatusFound, page.editPath+strconv.FormatUint(uint64(id), 10))
			return
		}
		err = expenses.Update(ctx, e)
		if errors.Is(err, domain.ErrNotFound) {
			renderNotFound(c) // Deleted in the meantime
			return
		} else if err != nil {
			renderServerError(c, err, "Failed to update expense")
			return
		}
		reports.Invalidate(ctx, userID)

		writeLog(c, userID, id, string(kind)).Info("Expense updated")
		setFlash(c, flashSuccess, page.updated)
		c.Redirect(http.StatusFound, "/dashboard")
	}
}

// DeleteExpenseHandler removes an owned record
func DeleteExpenseHandler(expenses ExpenseRepo, reports Invalidator, kind domain.ExpenseKind) gin.HandlerFunc {
	page := expensePages[kind]
	return func(c *gin.Context) {
		userID, _ := middleware.UserID(c)
		id, ok := recordID(c)
		if !ok {
			renderNotFound(c)
			return
		}
		err := expenses.Delete(c.Request.Context(), userID, id, kind)
		if errors.Is(err, domain.ErrNotFound) {
			renderNotFound(c)
			return
		} else if err != nil {
			renderServerError(c, err, "Failed to delete expense")
			return
		}
		reports.Invalidate(c.Request.Context(), userID)

		writeLog(c, userID, id, string(kind)).Info("Expense deleted")
		setFlash(c, flashSuccess, page.deleted)
		c.Redirect(http.StatusFound, "/dashboard")
	}
}

const incomeKind = "income"

// NewIncomePageHandler shows an empty income form
func NewIncomePageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		render(c, http.StatusOK, "registrar_ganho.html", gin.H{
			"Title":   "Ganho",
			"Action":  "/registrar_ganho",
			"Sources": incomeSources,
		})
	}
}

// CreateIncomeHandler records earnings for the session user
func CreateIncomeHandler(incomes IncomeRepo, reports Invalidator, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := middleware.UserID(c)

		var form IncomeForm
		i := domain.IncomeEvent{UserID: userID}
		err := bindForm(c, &form)
		if err == nil {
			err = form.Apply(&i, loc)
		}
		if err != nil {
			msg, _ := validationMessage(err)
			setFlash(c, flashError, msg)
			c.Redirect(http.StatusFound, "/registrar_ganho")
			return
		}
		if err := incomes.Create(c.Request.Context(), &i); err != nil {
			renderServerError(c, err, "Failed to create income")
			return
		}
		reports.Invalidate(c.Request.Context(), userID)

		writeLog(c, userID, i.ID, incomeKind).Info("Income recorded")
		setFlash(c, flashSuccess, "Ganho registrado com sucesso!")
		c.Redirect(http.StatusFound, "/dashboard")
	}
}

// EditIncomePageHandler shows the income form filled with an owned record
func EditIncomePageHandler(incomes IncomeRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := middleware.UserID(c)
		id, ok := recordID(c)
		if !ok {
			renderNotFound(c)
			return
		}
		i, err := incomes.Get(c.Request.Context(), userID, id)
		if errors.Is(err, domain.ErrNotFound) {
			renderNotFound(c)
			return
		} else if err != nil {
			renderServerError(c, err, "Failed to load income")
			return
		}
		render(c, http.StatusOK, "registrar_ganho.html", gin.H{
			"Title":   "Ganho",
			"Action":  "/editar_ganho/" + strconv.FormatUint(uint64(id), 10),
			"Record":  i,
			"Sources": incomeSources,
		})
	}
}

// UpdateIncomeHandler saves the edited income form
func UpdateIncomeHandler(incomes IncomeRepo, reports Invalidator, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := middleware.UserID(c)
		id, ok := recordID(c)
		if !ok {
			renderNotFound(c)
			return
		}
		ctx := c.Request.Context()
		i, err := incomes.Get(ctx, userID, id)
		if errors.Is(err, domain.ErrNotFound) {
			renderNotFound(c)
			return
		} else if err != nil {
			renderServerError(c, err, "Failed to load income")
			return
		}

		var form IncomeForm
		err = bindForm(c, &form)
		if err == nil {
			err = form.Apply(i, loc)
		}
		if err != nil {
			msg, _ := validationMessage(err)
			setFlash(c, flashError, msg)
			c.Redirect(http.StatusFound, "/editar_ganho/"+strconv.FormatUint(uint64(id), 10))
			return
		}
		err = incomes.Update(ctx, i)
		if errors.Is(err, domain.ErrNotFound) {
			renderNotFound(c)
			return
		} else if err != nil {
			renderServerError(c, err, "Failed to update income")
			return
		}
		reports.Invalidate(ctx, userID)

		writeLog(c, userID, id, incomeKind).Info("Income updated")
		setFlash(c, flashSuccess, "Ganho atualizado com sucesso!")
		c.Redirect(http.StatusFound, "/dashboard")
	}
}

// DeleteIncomeHandler removes an owned income record
func DeleteIncomeHandler(incomes IncomeRepo, reports Invalidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := middleware.UserID(c)
		id, ok := recordID(c)
		if !ok {
			renderNotFound(c)
			return
		}
		err := incomes.Delete(c.Request.Context(), userID, id)
		if errors.Is(err, domain.ErrNotFound) {
			renderNotFound(c)
			return
		} else if err != nil {
			renderServerError(c, err, "Failed to delete income")
			return
		}
		reports.Invalidate(c.Request.Context(), userID)

		writeLog(c, userID, id, incomeKind).Info("Income deleted")
		setFlash(c, flashSuccess, "Ganho excluído com sucesso!")
		c.Redirect(http.StatusFound, "/dashboard")
	}
}

// incomeSources feeds the <select> of the income form
var incomeSources = []domain.IncomeSource{domain.SourceRideHailing, domain.SourceDelivery}
