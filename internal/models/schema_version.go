package models

import "time"

type SchemaVersion struct {
	ID        uint      `gorm:"primarykey"`
	Version   int       `gorm:"not null"`
	AppliedAt time.Time `gorm:"not null"`
}
