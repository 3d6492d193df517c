package api

import (
	"errors"        // Error classification
	"fmt"           // Formatting helpers
	"html/template" // Page templates
	"math"          // Rounding for display
	"net/http"      // HTTP status codes
	"strconv"       // Form input values
	"strings"       // Number formatting
	"time"          // Date formatting

	"driver_ledger/internal/domain"     // Domain errors
	"driver_ledger/internal/middleware" // Context keys

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Money
	"github.com/sirupsen/logrus"    // Structured logging
)

const flashCookie = "flash"

// Flash kinds, used as CSS classes
const (
	flashSuccess = "success"
	flashError   = "error"
)

// Flash is a one-shot message shown on the next rendered page
type Flash struct {
	Kind    string
	Message string
}

// setFlash stores a message for the next page view
func setFlash(c *gin.Context, kind, message string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(flashCookie, kind+"|"+message, 60, "/", "", false, true) // gin escapes the value
}

// popFlash reads and clears the pending message
func popFlash(c *gin.Context) *Flash {
	raw, err := c.Cookie(flashCookie)
	if err != nil || raw == "" {
		return nil
	}
	c.SetCookie(flashCookie, "", -1, "/", "", false, true)
	kind, message, ok := strings.Cut(raw, "|")
	if !ok || (kind != flashSuccess && kind != flashError) {
		return nil
	}
	return &Flash{Kind: kind, Message: message}
}

// render executes a page template with the values every page needs
func render(c *gin.Context, status int, page string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Flash"] = popFlash(c)
	data["Username"] = c.GetString(middleware.ContextUsername)
	_, data["LoggedIn"] = middleware.UserID(c)
	if app, ok := c.Get(contextAppName); ok {
		data["AppName"] = app
	}
	c.HTML(status, page, data)
}

func renderNotFound(c *gin.Context) {
	render(c, http.StatusNotFound, "not_found.html", gin.H{"Title": "Página não encontrada"})
}

func renderServerError(c *gin.Context, err error, msg string) {
	fields := logrus.Fields{"request_id": c.GetString(middleware.ContextRequestID), "path": c.Request.URL.Path}
	if id, ok := middleware.UserID(c); ok {
		fields["user_id"] = id
	}
	logrus.WithFields(fields).WithError(err).Error(msg)
	render(c, http.StatusInternalServerError, "error.html", gin.H{"Title": "Erro"})
}

// validationMessage turns a ValidationError into the text shown to the user.
// ok is false for any other error.
func validationMessage(err error) (string, bool) {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return "", false
	}
	if verr.Field == formField {
		return "Não foi possível ler o formulário", true
	}
	label, known := fieldLabels[verr.Field]
	if !known {
		label = verr.Field
	}
	return fmt.Sprintf("Campo %s inválido: %s", label, verr.Reason), true
}

var fieldLabels = map[string]string{
	"km_anterior":   "KM anterior",
	"km_atual":      "KM atual",
	"litros_totais": "litros",
	"custo_total":   "custo total",
	"valor":         "valor",
	"tipo":          "tipo",
	"data":          "data",
	"username":      "usuário",
	"password":      "senha",
}

// templateFuncs are available to every page
func templateFuncs(loc *time.Location) template.FuncMap {
	return template.FuncMap{
		"money": formatMoney,
		"km":    formatKm,
		"liters": func(v float64) string {
			return formatFloat(v, 2)
		},
		"efficiency": func(v float64) string {
			return formatFloat(v, 2)
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(loc).Format("02/01/2006 15:04")
		},
		"inputDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(loc).Format(dateLayout)
		},
		"month": func(t time.Time) string {
			return monthNames[t.Month()-1] + " de " + fmt.Sprint(t.Year())
		},
		"num": func(v float64) string {
			return strconv.FormatFloat(v, 'f', -1, 64)
		},
		"isNegative": func(d decimal.Decimal) bool {
			return d.IsNegative()
		},
	}
}

var monthNames = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// formatMoney renders R$ 1.234,56
func formatMoney(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	s := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")
	return sign + "R$ " + groupThousands(intPart) + "," + frac
}

// formatKm renders 51.000 km
func formatKm(v float64) string {
	return groupThousands(fmt.Sprintf("%.0f", math.Round(v))) + " km"
}

// formatFloat renders v with pt-BR separators and the given decimals
func formatFloat(v float64, decimals int) string {
	s := fmt.Sprintf("%.*f", decimals, v)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	out := sign + groupThousands(intPart)
	if hasFrac {
		out += "," + frac
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
