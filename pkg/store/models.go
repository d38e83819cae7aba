package store

import "time"

// GORM models used for persistence.
type EventModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    int64     `gorm:"not null;index"`
	Title     string    `gorm:"not null"`
	Type      string    `gorm:"not null"`
	Time      string    `gorm:"not null"`
	Location  string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (EventModel) TableName() string { return "events" }

type RSVPModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	EventID   int64     `gorm:"not null;uniqueIndex:idx_rsvp_event_user"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_rsvp_event_user"`
	Status    string    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (RSVPModel) TableName() string { return "rsvp" }
