package models

import "time"

// Client entity. Created either explicitly or inline with a facture.
type Client struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Nom            string `gorm:"not null;index" json:"nom"`
	Email          string `json:"email,omitempty"`
	Telephone      string `gorm:"size:20" json:"telephone,omitempty"`
	Wilaya         string `gorm:"size:100" json:"wilaya,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
