package api

import (
	"fmt"           // Error wrapping
	"html/template" // Page templates
	"io/fs"         // Embedded static files
	"net/http"      // HTTP file system adapter
	"time"          // Display location

	"driver_ledger/internal/domain"     // Expense kinds
	"driver_ledger/internal/middleware" // Session and request middleware
	"driver_ledger/web"                 // Embedded templates and assets

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

const contextAppName = "appName"

// SessionGate logs users in and checks their session cookie
type SessionGate interface {
	Gate
	middleware.Verifier
}

// Deps are the collaborators the router hands to its handlers
type Deps struct {
	DB           *gorm.DB       // Used by the health check
	Gate         SessionGate    // Authentication
	Expenses     ExpenseRepo    // Fuel purchases and oil changes
	Incomes      IncomeRepo     // Earnings
	Reports      ReportService  // Dashboard and monthly figures
	AppName      string         // Shown in page titles
	Location     *time.Location // Zone of form input and displayed dates
	SecureCookie bool           // Mark cookies Secure (HTTPS only)
}

// NewRouter builds the gin engine with every route of the application
func NewRouter(deps Deps) (*gin.Engine, error) {
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}

	tmpl, err := template.New("").Funcs(templateFuncs(loc)).ParseFS(web.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	static, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static assets: %w", err)
	}

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery())
	r.Use(func(c *gin.Context) {
		c.Set(contextAppName, deps.AppName)
		c.Next()
	})

	r.StaticFS("/static", http.FS(static))
	r.GET("/healthz", HealthHandler(deps.DB))

	// Public pages, aware of an existing session
	public := r.Group("/")
	public.Use(middleware.OptionalSession(deps.Gate))
	public.GET("", IndexHandler())
	public.GET("login", LoginPageHandler())
	public.POST("login", LoginHandler(deps.Gate, deps.SecureCookie))
	public.GET("cadastro", RegisterPageHandler())
	public.POST("cadastro", RegisterHandler(deps.Gate))

	// Everything else requires a session
	private := r.Group("/")
	private.Use(middleware.SessionAuth(deps.Gate))
	private.GET("logout", LogoutHandler(deps.Gate))
	private.GET("dashboard", DashboardHandler(deps.Reports))
	private.GET("relatorios", MonthlyReportHandler(deps.Reports))

	fuel, oil := domain.KindFuelPurchase, domain.KindOilChange
	private.GET("registrar_abastecimento", NewExpensePageHandler(fuel))
	private.POST("registrar_abastecimento", CreateExpenseHandler(deps.Expenses, deps.Reports, fuel, loc))
	private.GET("editar_abastecimento/:id", EditExpensePageHandler(deps.Expenses, fuel))
	private.POST("editar_abastecimento/:id", UpdateExpenseHandler(deps.Expenses, deps.Reports, fuel, loc))
	private.POST("excluir_abastecimento/:id", DeleteExpenseHandler(deps.Expenses, deps.Reports, fuel))

	private.GET("registrar_oleo", NewExpensePageHandler(oil))
	private.POST("registrar_oleo", CreateExpenseHandler(deps.Expenses, deps.Reports, oil, loc))
	private.GET("editar_oleo/:id", EditExpensePageHandler(deps.Expenses, oil))
	private.POST("editar_oleo/:id", UpdateExpenseHandler(deps.Expenses, deps.Reports, oil, loc))
	private.POST("excluir_oleo/:id", DeleteExpenseHandler(deps.Expenses, deps.Reports, oil))

	private.GET("registrar_ganho", NewIncomePageHandler())
	private.POST("registrar_ganho", CreateIncomeHandler(deps.Incomes, deps.Reports, loc))
	private.GET("editar_ganho/:id", EditIncomePageHandler(deps.Incomes))
	private.POST("editar_ganho/:id", UpdateIncomeHandler(deps.Incomes, deps.Reports, loc))
	private.POST("excluir_ganho/:id", DeleteIncomeHandler(deps.Incomes, deps.Reports))

	r.NoRoute(middleware.OptionalSession(deps.Gate), renderNotFound)
	return r, nil
}
