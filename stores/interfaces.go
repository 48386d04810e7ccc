package stores

import (
	"encoding/json"
	"fmt"
	"time"

	models "github.com/novachat/nova/models"
)

// ChatSession is a persisted snapshot of a conversation plus its personality
// selection. The in-memory conversation remains the working copy; a saved
// session only reflects it after an explicit save or resync.
type ChatSession struct {
	ID                    string    `gorm:"primaryKey" json:"id"`
	Name                  string    `gorm:"not null" json:"name"`
	MessagesJSON          string    `gorm:"column:messages;type:json" json:"-"`
	Personality           string    `gorm:"not null" json:"personality"`
	CustomPersonalityJSON *string   `gorm:"column:custom_personality;type:json" json:"-"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Messages unmarshals the stored transcript.
func (s *ChatSession) Messages() ([]models.Message, error) {
	if s.MessagesJSON == "" || s.MessagesJSON == "null" {
		return nil, nil
	}
	var msgs []models.Message
	if err := json.Unmarshal([]byte(s.MessagesJSON), &msgs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session messages: %w", err)
	}
	return msgs, nil
}

// CustomPersonality unmarshals the stored custom personality, nil when the
// session uses a built-in.
func (s *ChatSession) CustomPersonality() (*models.CustomPersonality, error) {
	if s.CustomPersonalityJSON == nil || *s.CustomPersonalityJSON == "" || *s.CustomPersonalityJSON == "null" {
		return nil, nil
	}
	var custom models.CustomPersonality
	if err := json.Unmarshal([]byte(*s.CustomPersonalityJSON), &custom); err != nil {
		return nil, fmt.Errorf("failed to unmarshal custom personality: %w", err)
	}
	return &custom, nil
}

// SessionUpdate carries the fields changed by an update. A nil Personality
// leaves the selection untouched; ClearCustom nulls the custom payload while
// a non-nil Custom replaces it.
type SessionUpdate struct {
	Messages    []models.Message
	Personality *string
	Custom      *models.CustomPersonality
	ClearCustom bool
}

// SessionStore abstracts the durable session store. All operations are
// fallible and must leave existing rows untouched on failure; there is no
// client-side locking, last write wins at the store level.
type SessionStore interface {
	// List returns all sessions ordered by most recently updated first.
	List() ([]ChatSession, error)
	// Get returns the session with the given id, or nil if absent.
	Get(id string) (*ChatSession, error)
	// Create saves a new named snapshot and returns it.
	Create(name string, messages []models.Message, personalityID string, custom *models.CustomPersonality) (*ChatSession, error)
	// Update resyncs an existing session.
	Update(id string, update SessionUpdate) error
	// Rename changes only the session name.
	Rename(id, name string) error
	// Delete removes the session.
	Delete(id string) error

	// Connection management
	Connect() error
	Close() error

	// Health check
	Ping() error
}

// StoreConfig holds configuration for database stores.
type StoreConfig struct {
	Type       string            `json:"type"`       // "sqlite", "postgres"
	Connection string            `json:"connection"` // connection string
	Options    map[string]string `json:"options"`    // additional options
}

// NewStoreConfig creates a new store configuration.
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
		Options:    make(map[string]string),
	}
}

// WithOption adds an option to the store configuration.
func (c *StoreConfig) WithOption(key, value string) *StoreConfig {
	c.Options[key] = value
	return c
}

func marshalMessages(messages []models.Message) (string, error) {
	if messages == nil {
		messages = []models.Message{}
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return "", fmt.Errorf("failed to marshal session messages: %w", err)
	}
	return string(raw), nil
}

func marshalCustom(custom *models.CustomPersonality) (*string, error) {
	if custom == nil {
		return nil, nil
	}
	raw, err := json.Marshal(custom)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal custom personality: %w", err)
	}
	s := string(raw)
	return &s, nil
}
