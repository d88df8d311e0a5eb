package domain

import "time"

// Event is an organizable gathering. Business-rule validation is intentionally
// thin; the session subsystem is the interesting part of this service.
type Event struct {
	ID            string
	OwnerID       string
	Title         string
	Description   string
	SubcategoryID string
	StartsAt      time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Poll is a question attached to an event.
type Poll struct {
	ID        string
	EventID   string
	Question  string
	Options   []string
	CreatedAt time.Time
}

type Category struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

type Subcategory struct {
	ID         string
	CategoryID string
	Name       string
	CreatedAt  time.Time
}
