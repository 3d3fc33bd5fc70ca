package store

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SpecStore persists complete registrations so they can be replayed in later
// sessions. Each row holds the complete command line that recreates one
// registration, keyed by command name ("" for the default spec).
type SpecStore struct {
	db        *gorm.DB
	sessionID string
}

type SpecRecord struct {
	ID        uint      `gorm:"primarykey"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time `gorm:"index"`

	Name      string `gorm:"uniqueIndex"`
	Line      string
	SessionID string `gorm:"index"`
}

func NewSpecStore(dbFilePath string) (*SpecStore, error) {
	// busy_timeout lets concurrent shells share the file
	connectionString := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(1)", dbFilePath)

	db, err := gorm.Open(sqlite.Open(connectionString), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("error opening completion store: %w", err)
	}

	if err := db.AutoMigrate(&SpecRecord{}); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite serializes writes anyway
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &SpecStore{
		db:        db,
		sessionID: uuid.NewString(),
	}, nil
}

// Close closes the database connection.
func (s *SpecStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SessionID identifies the shell session writing records.
func (s *SpecStore) SessionID() string {
	return s.sessionID
}

// SaveSpec stores line as the registration for key, replacing any earlier
// one. The record keeps its original position in the replay order.
func (s *SpecStore) SaveSpec(key, line string) error {
	record := SpecRecord{Name: key, Line: line, SessionID: s.sessionID}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"line", "session_id", "updated_at"}),
	}).Create(&record).Error
}

// DeleteSpec removes the record for key. Keys never saved are ignored, since
// registrations loaded from spec files are not stored.
func (s *SpecStore) DeleteSpec(key string) error {
	return s.db.Where("name = ?", key).Delete(&SpecRecord{}).Error
}

func (s *SpecStore) DeleteAll() error {
	return s.db.Exec("DELETE FROM spec_records").Error
}

// Lines returns the stored command lines in first-registration order.
func (s *SpecStore) Lines() ([]string, error) {
	var records []SpecRecord
	if err := s.db.Order("id asc").Find(&records).Error; err != nil {
		return nil, err
	}
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = r.Line
	}
	return lines, nil
}
