package nova

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/novachat/nova/imagegen"
	"github.com/novachat/nova/models/deepseek"
	"github.com/novachat/nova/server"
	"github.com/novachat/nova/stores"
)

// Relay bundles the assembled server and its long-lived collaborators.
type Relay struct {
	Engine  *gin.Engine
	Handler *server.Handler
	Store   stores.SessionStore
	Janitor *server.Janitor
}

// NewRelay wires the relay server from configuration: upstream model with the
// optional OCR side-channel, the image-generation backend, session
// persistence, routes, and the retention janitor.
func NewRelay(cfg *Config) (*Relay, error) {
	model := &deepseek.Deepseek_Model{
		Model:          cfg.ModelName,
		SupportsVision: cfg.SupportsVision,
	}
	if !cfg.SupportsVision && cfg.OCRBaseURL != "" {
		model.Describer = &server.OCRClient{BaseURL: cfg.OCRBaseURL}
	}

	handler := server.NewHandler(model)
	handler.Logger = log.New(os.Stderr, "[nova] ", log.LstdFlags)

	switch cfg.ImageBackend {
	case "openai":
		handler.ImageGen = &imagegen.OpenAI_Generator{}
	case "gemini":
		handler.ImageGen = &imagegen.Gemini_Generator{
			ImagesDir:  cfg.ImagesDir,
			ServerHost: cfg.ServerHost,
		}
	case "":
		// /generate-image responds with a configuration error
	default:
		return nil, fmt.Errorf("unknown image backend: %s", cfg.ImageBackend)
	}

	var store stores.SessionStore
	if cfg.StoreType != "" {
		var err error
		store, err = stores.NewStore(stores.NewStoreConfig(cfg.StoreType, cfg.StoreDSN))
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		handler.Sessions = store
	}

	engine := gin.Default()
	handler.RegisterRoutes(engine)
	if cfg.ImageBackend == "gemini" {
		engine.Static("/images", cfg.ImagesDir)
	}

	relay := &Relay{
		Engine:  engine,
		Handler: handler,
		Store:   store,
	}

	if store != nil && cfg.RetentionDays > 0 {
		relay.Janitor = &server.Janitor{
			Store:     store,
			Retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
			Logger:    handler.Logger,
		}
		if err := relay.Janitor.Start(); err != nil {
			return nil, fmt.Errorf("failed to start session janitor: %w", err)
		}
	}

	return relay, nil
}

// Run starts the HTTP server on the configured address.
func (r *Relay) Run(addr string) error {
	return r.Engine.Run(addr)
}

// Close stops the janitor and the store.
func (r *Relay) Close() {
	if r.Janitor != nil {
		r.Janitor.Stop()
	}
	if r.Store != nil {
		if err := r.Store.Close(); err != nil {
			log.Printf("Failed to close session store: %v", err)
		}
	}
}
