package data

import (
	"context"
	"fmt"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Submission is one attempt recorded in the history.
type Submission struct {
	gorm.Model
	StartDate string
	EndDate   string
	FileName  string
	Outcome   string
	Message   string
}

// Store keeps submission history. A nil *Store is valid and records nothing.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open database and migrates the schema.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Submission{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history: %w", err)
	}
	return &Store{db: db}, nil
}

// PostgresFromEnv opens the history database described by the PG*
// environment variables. It returns a nil Store when PGHOST is unset.
func PostgresFromEnv() (*Store, error) {
	host := os.Getenv("PGHOST")
	if host == "" {
		return nil, nil
	}
	pw := os.Getenv("PGPASSWORD")
	port := os.Getenv("PGPORT")
	if port == "" {
		port = "5432"
	}
	dsn := fmt.Sprintf("host=%s user=postgres password=%s dbname=tidecast port=%s sslmode=disable",
		host,
		pw,
		port)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewStore(db)
}

// Record saves one submission.
func (s *Store) Record(ctx context.Context, sub *Submission) error {
	if s == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(sub).Error
}

// Recent returns up to n submissions, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Submission, error) {
	if s == nil || n <= 0 {
		return nil, nil
	}
	var subs []Submission
	tx := s.db.WithContext(ctx).Order("created_at desc").Limit(n).Find(&subs)
	return subs, tx.Error
}
