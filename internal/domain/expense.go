package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseKind tags the two expense subtypes stored in expense_events.
type ExpenseKind string

const (
	KindFuelPurchase ExpenseKind = "fuel-purchase"
	KindOilChange    ExpenseKind = "oil-change"
)

// Label is the pt-BR name shown in the UI.
func (k ExpenseKind) Label() string {
	switch k {
	case KindFuelPurchase:
		return "Abastecimento"
	case KindOilChange:
		return "Troca de óleo"
	}
	return string(k)
}

// ExpenseEvent Model. Oil changes leave PreviousOdometer and Liters at zero.
type ExpenseEvent struct {
	ID               uint            `gorm:"primaryKey"`                  // Primary key
	UserID           uint            `gorm:"index;not null"`              // Foreign key to User
	Kind             ExpenseKind     `gorm:"size:20;index;not null"`      // fuel-purchase or oil-change
	OccurredAt       time.Time       `gorm:"index;not null"`              // When the expense happened
	PreviousOdometer float64         `gorm:"not null;default:0"`          // Odometer at previous fill-up
	CurrentOdometer  float64         `gorm:"not null;default:0"`          // Odometer now
	Liters           float64         `gorm:"not null;default:0"`          // Liters purchased
	Cost             decimal.Decimal `gorm:"type:decimal(12,2);not null"` // Total cost
	Note             string          `gorm:"type:text"`                   // Free text
	CreatedAt        time.Time       // Creation timestamp
	UpdatedAt        time.Time       // Last update timestamp
	User             *User           `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Distance is the odometer delta of a fuel purchase.
func (e ExpenseEvent) Distance() float64 {
	return e.CurrentOdometer - e.PreviousOdometer
}
