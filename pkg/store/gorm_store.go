package store

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"tomorrowplanner/pkg/domain"
)

// GormStore implements Store using GORM over sqlite or Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations. The schema is created
// idempotently; rerunning on an existing database is safe.
func NewGormStore(driver, dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	var dialector gorm.Dialector
	isSQLite := false
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
		isSQLite = true
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver: %s", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if isSQLite {
		// sqlite has a single writer; a wider pool only produces SQLITE_BUSY,
		// and with :memory: DSNs each pooled connection would get its own db.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("get sql db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&EventModel{}, &RSVPModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateEvent inserts a new event and returns its assigned id.
func (s *GormStore) CreateEvent(ownerID int64, fields domain.EventFields) (int64, error) {
	model := EventModel{
		UserID:    ownerID,
		Title:     fields.Title,
		Type:      fields.Type,
		Time:      fields.Time,
		Location:  fields.Location,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.Create(&model).Error; err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	return model.ID, nil
}

// GetEvent retrieves one event by id.
func (s *GormStore) GetEvent(id int64) (domain.Event, bool, error) {
	var model EventModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Event{}, false, nil
		}
		return domain.Event{}, false, err
	}
	return eventFromModel(model), true, nil
}

// ListEventsByOwner returns the owner's events, most recent first.
func (s *GormStore) ListEventsByOwner(ownerID int64) ([]domain.Event, error) {
	var models []EventModel
	if err := s.db.Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	events := make([]domain.Event, 0, len(models))
	for _, m := range models {
		events = append(events, eventFromModel(m))
	}
	return events, nil
}

// DeleteEvent removes an event owned by ownerID along with its RSVPs.
// It reports whether a row was actually deleted.
func (s *GormStore) DeleteEvent(id, ownerID int64) (bool, error) {
	deleted := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&EventModel{}, "id = ? AND user_id = ?", id, ownerID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return tx.Delete(&RSVPModel{}, "event_id = ?", id).Error
	})
	if err != nil {
		return false, fmt.Errorf("delete event: %w", err)
	}
	return deleted, nil
}

// UpsertRSVP inserts or replaces the user's answer for an event. The
// (event_id, user_id) conflict is resolved in the database so two
// near-simultaneous answers from the same user cannot produce two rows.
// Fails with ErrEventNotFound when the event does not exist.
func (s *GormStore) UpsertRSVP(eventID, userID int64, status domain.Status) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&EventModel{}).Where("id = ?", eventID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrEventNotFound
		}
		model := RSVPModel{
			EventID:   eventID,
			UserID:    userID,
			Status:    string(status),
			UpdatedAt: time.Now().UTC(),
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).Create(&model).Error
	})
}

// GetRSVP returns the user's current answer for an event.
func (s *GormStore) GetRSVP(eventID, userID int64) (domain.RSVP, bool, error) {
	var model RSVPModel
	if err := s.db.Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.RSVP{}, false, nil
		}
		return domain.RSVP{}, false, err
	}
	return rsvpFromModel(model), true, nil
}

// ListRSVPs returns all answers recorded for an event.
func (s *GormStore) ListRSVPs(eventID int64) ([]domain.RSVP, error) {
	var models []RSVPModel
	if err := s.db.Where("event_id = ?", eventID).
		Order("updated_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	rsvps := make([]domain.RSVP, 0, len(models))
	for _, m := range models {
		rsvps = append(rsvps, rsvpFromModel(m))
	}
	return rsvps, nil
}

// CountRSVPs tallies answers per status for an event.
func (s *GormStore) CountRSVPs(eventID int64) (domain.Counts, error) {
	var rows []struct {
		Status string
		Total  int
	}
	if err := s.db.Model(&RSVPModel{}).
		Select("status, count(*) as total").
		Where("event_id = ?", eventID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return domain.Counts{}, err
	}
	var counts domain.Counts
	for _, row := range rows {
		switch domain.Status(row.Status) {
		case domain.StatusYes:
			counts.Yes = row.Total
		case domain.StatusNo:
			counts.No = row.Total
		case domain.StatusMaybe:
			counts.Maybe = row.Total
		}
	}
	return counts, nil
}

func eventFromModel(m EventModel) domain.Event {
	return domain.Event{
		ID:        m.ID,
		OwnerID:   m.UserID,
		Title:     m.Title,
		Type:      m.Type,
		Time:      m.Time,
		Location:  m.Location,
		CreatedAt: m.CreatedAt,
	}
}

func rsvpFromModel(m RSVPModel) domain.RSVP {
	return domain.RSVP{
		ID:        m.ID,
		EventID:   m.EventID,
		UserID:    m.UserID,
		Status:    domain.Status(m.Status),
		UpdatedAt: m.UpdatedAt,
	}
}
