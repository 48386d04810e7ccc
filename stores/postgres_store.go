package stores

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	models "github.com/novachat/nova/models"
)

// PostgresStore implements SessionStore for PostgreSQL databases.
type PostgresStore struct {
	db  *gorm.DB
	dsn string
}

// NewPostgresStore creates a new PostgreSQL store.
func NewPostgresStore(config *StoreConfig) (*PostgresStore, error) {
	if config.Type != "postgres" {
		return nil, fmt.Errorf("invalid store type for PostgreSQL store: %s", config.Type)
	}

	store := &PostgresStore{
		dsn: config.Connection,
	}

	if err := store.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	return store, nil
}

// NewPostgresStoreSimple creates a new PostgreSQL store with just a DSN.
func NewPostgresStoreSimple(dsn string) (*PostgresStore, error) {
	config := NewStoreConfig("postgres", dsn)
	return NewPostgresStore(config)
}

// NewPostgresStoreDefault builds a DSN from connection parameters.
func NewPostgresStoreDefault(host, user, password, dbname string, port int) (*PostgresStore, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)
	return NewPostgresStoreSimple(dsn)
}

// Connect establishes a connection to the PostgreSQL database.
func (s *PostgresStore) Connect() error {
	db, err := gorm.Open(postgres.Open(s.dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	s.db = db

	// Auto-migrate the schema
	if err := s.db.AutoMigrate(&ChatSession{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// Ping checks if the database connection is alive.
func (s *PostgresStore) Ping() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Ping()
}

// List returns all sessions ordered by most recently updated first.
func (s *PostgresStore) List() ([]ChatSession, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var sessions []ChatSession
	if err := s.db.Order("updated_at DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch sessions: %w", err)
	}
	return sessions, nil
}

// Get returns the session with the given id, or nil if absent.
func (s *PostgresStore) Get(id string) (*ChatSession, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	var session ChatSession
	err := s.db.Where("id = ?", id).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	return &session, nil
}

// Create saves a new named snapshot.
func (s *PostgresStore) Create(name string, messages []models.Message, personalityID string, custom *models.CustomPersonality) (*ChatSession, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	messagesJSON, err := marshalMessages(messages)
	if err != nil {
		return nil, err
	}
	customJSON, err := marshalCustom(custom)
	if err != nil {
		return nil, err
	}

	session := ChatSession{
		ID:                    uuid.NewString(),
		Name:                  name,
		MessagesJSON:          messagesJSON,
		Personality:           personalityID,
		CustomPersonalityJSON: customJSON,
	}

	if err := s.db.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session record: %w", err)
	}
	return &session, nil
}

// Update resyncs an existing session's transcript and, optionally, its
// personality selection.
func (s *PostgresStore) Update(id string, update SessionUpdate) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	messagesJSON, err := marshalMessages(update.Messages)
	if err != nil {
		return err
	}

	changes := map[string]interface{}{
		"messages": messagesJSON,
	}
	if update.Personality != nil {
		changes["personality"] = *update.Personality
	}
	if update.ClearCustom {
		changes["custom_personality"] = nil
	} else if update.Custom != nil {
		customJSON, err := marshalCustom(update.Custom)
		if err != nil {
			return err
		}
		changes["custom_personality"] = customJSON
	}

	result := s.db.Model(&ChatSession{}).Where("id = ?", id).Updates(changes)
	if result.Error != nil {
		return fmt.Errorf("failed to update session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// Rename changes only the session name.
func (s *PostgresStore) Rename(id, name string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	result := s.db.Model(&ChatSession{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		return fmt.Errorf("failed to rename session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// Delete removes the session.
func (s *PostgresStore) Delete(id string) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}

	if err := s.db.Where("id = ?", id).Delete(&ChatSession{}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
