package domain

import "time"

// User Model
type User struct {
	ID           uint      `gorm:"primaryKey"`                   // Primary key
	Username     string    `gorm:"size:80;uniqueIndex;not null"` // Unique username
	PasswordHash string    `gorm:"size:255;not null" json:"-"`   // Hashed password
	CreatedAt    time.Time `gorm:"autoCreateTime"`               // Registration time
}
