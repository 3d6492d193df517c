package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// IncomeSource tags where earnings came from.
type IncomeSource string

const (
	SourceRideHailing IncomeSource = "ride-hailing"
	SourceDelivery    IncomeSource = "delivery"
)

// ParseIncomeSource accepts the canonical tags and the legacy Uber/Ifood names.
func ParseIncomeSource(s string) (IncomeSource, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ride-hailing", "uber":
		return SourceRideHailing, true
	case "delivery", "ifood":
		return SourceDelivery, true
	}
	return "", false
}

// Label is the pt-BR name shown in the UI.
func (s IncomeSource) Label() string {
	switch s {
	case SourceRideHailing:
		return "Corridas (app)"
	case SourceDelivery:
		return "Entregas"
	}
	return string(s)
}

// IncomeEvent Model
type IncomeEvent struct {
	ID         uint            `gorm:"primaryKey"`                  // Primary key
	UserID     uint            `gorm:"index;not null"`              // Foreign key to User
	Source     IncomeSource    `gorm:"size:20;index;not null"`      // ride-hailing or delivery
	OccurredAt time.Time       `gorm:"index;not null"`              // When the money was earned
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null"` // Amount earned
	CreatedAt  time.Time       // Creation timestamp
	UpdatedAt  time.Time       // Last update timestamp
	User       *User           `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
