package domain

import (
	"path"
	"time"
)

const (
	EventStatusActive   = "active"
	EventStatusArchived = "archived"
	EventStatusDraft    = "draft"
)

// Event is a shoot whose photos are sold in one gallery.
type Event struct {
	ID        string    `json:"id"`
	AgencyID  string    `json:"agencyId"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Date      string    `json:"date,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Photo references the high-resolution original in object storage.
type Photo struct {
	ID          string    `json:"id"`
	EventID     string    `json:"eventId"`
	ObjectPath  string    `json:"-"`
	ContentType string    `json:"contentType,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// WatermarkedPath is where the image transformer writes the public preview.
func (p Photo) WatermarkedPath() string {
	dir, file := path.Split(p.ObjectPath)
	return dir + "watermarked_" + file
}
