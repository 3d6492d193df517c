package api

import (
	"context"  // Service signatures
	"net/http" // HTTP status codes
	"time"     // Ping timeout

	"driver_ledger/internal/middleware" // Session user
	"driver_ledger/internal/report"     // Dashboard and monthly figures

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// ReportService builds the figures shown on the dashboard and report pages
type ReportService interface {
	Dashboard(ctx context.Context, userID uint) (*report.Dashboard, error)
	Monthly(ctx context.Context, userID uint) (*report.Monthly, error)
	Invalidate(ctx context.Context, userID uint)
}

// DashboardHandler shows recent activity and all-time figures
func DashboardHandler(reports ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := middleware.UserID(c)
		d, err := reports.Dashboard(c.Request.Context(), userID)
		if err != nil {
			renderServerError(c, err, "Failed to build dashboard")
			return
		}
		render(c, http.StatusOK, "dashboard.html", gin.H{"Title": "Painel", "Dashboard": d})
	}
}

// MonthlyReportHandler shows the current month's totals and balance
func MonthlyReportHandler(reports ReportService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := middleware.UserID(c)
		m, err := reports.Monthly(c.Request.Context(), userID)
		if err != nil {
			renderServerError(c, err, "Failed to build monthly report")
			return
		}
		render(c, http.StatusOK, "relatorios.html", gin.H{"Title": "Relatórios", "Report": m})
	}
}

// HealthHandler reports whether the database answers
func HealthHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
