package personality

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	models "github.com/novachat/nova/models"
)

// RegistryFile is the fixed key the saved-personality registry is stored
// under, mirroring the browser client's local storage key.
const RegistryFile = "nova_custom_personalities.json"

// Registry holds user-created personalities as a JSON array on disk.
// Names are de-duplicated: adding an existing name is silently skipped,
// replacement happens only via explicit delete + recreate.
type Registry struct {
	path string
	mu   sync.Mutex
}

// NewRegistry creates a registry backed by RegistryFile under dir. An empty
// dir means the current working directory.
func NewRegistry(dir string) *Registry {
	return &Registry{path: filepath.Join(dir, RegistryFile)}
}

// List returns all saved personalities in insertion order. A missing file is
// an empty registry, not an error.
func (r *Registry) List() ([]models.CustomPersonality, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// Get returns the saved personality with the given name, if any.
func (r *Registry) Get(name string) (*models.CustomPersonality, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	saved, err := r.load()
	if err != nil {
		return nil, err
	}
	for i := range saved {
		if saved[i].Name == name {
			return &saved[i], nil
		}
	}
	return nil, nil
}

// Add appends a personality unless one with the same name already exists.
// Returns true if it was added.
func (r *Registry) Add(p models.CustomPersonality) (bool, error) {
	if p.Name == "" {
		return false, fmt.Errorf("personality name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	saved, err := r.load()
	if err != nil {
		return false, err
	}
	for _, existing := range saved {
		if existing.Name == p.Name {
			return false, nil
		}
	}

	saved = append(saved, p)
	if err := r.save(saved); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the personality with the given name. Returns true if it
// existed.
func (r *Registry) Delete(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	saved, err := r.load()
	if err != nil {
		return false, err
	}

	kept := saved[:0]
	removed := false
	for _, existing := range saved {
		if existing.Name == name {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	if !removed {
		return false, nil
	}

	if err := r.save(kept); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Registry) load() ([]models.CustomPersonality, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read personality registry: %w", err)
	}

	var saved []models.CustomPersonality
	if err := json.Unmarshal(raw, &saved); err != nil {
		return nil, fmt.Errorf("failed to parse personality registry: %w", err)
	}
	return saved, nil
}

func (r *Registry) save(saved []models.CustomPersonality) error {
	raw, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("failed to marshal personality registry: %w", err)
	}
	if err := os.WriteFile(r.path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write personality registry: %w", err)
	}
	return nil
}
