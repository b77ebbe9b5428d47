package models

import "time"

type PropertyStatus string

const (
	PropertyActive   PropertyStatus = "ACTIVE"
	PropertyInactive PropertyStatus = "INACTIVE"
)

type Property struct {
	ID           string         `json:"id"`
	HostID       string         `json:"host_id"`
	Title        string         `json:"title"`
	City         string         `json:"city"`
	NightlyPrice int64          `json:"nightly_price"` // whole major units
	Status       PropertyStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (p Property) Bookable() bool { return p.Status == PropertyActive }
