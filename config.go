package nova

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds relay server configuration. Secrets themselves stay in the
// environment (DEEPSEEK_API_KEY, OPENAI_API_KEY, OCR_API_KEY); the config
// only knows which knobs are turned on.
type Config struct {
	Addr           string // listen address
	ModelName      string // upstream completion model
	SupportsVision bool   // whether the model accepts image input

	StoreType string // "sqlite", "postgres" or "" to disable persistence
	StoreDSN  string // sqlite path or postgres DSN

	ImageBackend string // "openai", "gemini" or "" to disable /generate-image
	ImagesDir    string // where the gemini backend stores generated images
	ServerHost   string // public base URL for serving stored images

	OCRBaseURL string // OCR service endpoint; "" disables the side-channel

	RetentionDays int // saved-session retention; 0 keeps sessions forever
}

// LoadConfig reads configuration from the environment, loading a .env file
// first when one exists.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Addr:           envOr("NOVA_ADDR", ":8080"),
		ModelName:      envOr("NOVA_MODEL", "deepseek-chat"),
		SupportsVision: envBool("NOVA_VISION"),
		StoreType:      envOr("NOVA_STORE", "sqlite"),
		StoreDSN:       envOr("NOVA_STORE_DSN", "nova_sessions.sqlite"),
		ImageBackend:   os.Getenv("NOVA_IMAGE_BACKEND"),
		ImagesDir:      envOr("NOVA_IMAGES_DIR", "images"),
		ServerHost:     envOr("SERVER_HOST", "http://localhost:8080"),
		OCRBaseURL:     os.Getenv("OCR_BASE_URL"),
	}
	if days, err := strconv.Atoi(os.Getenv("NOVA_RETENTION_DAYS")); err == nil {
		cfg.RetentionDays = days
	}
	return cfg
}

// WithModelName sets the upstream model.
func (c *Config) WithModelName(name string) *Config {
	c.ModelName = name
	return c
}

// WithVision marks the upstream model as multimodal.
func (c *Config) WithVision(supported bool) *Config {
	c.SupportsVision = supported
	return c
}

// WithSQLiteStore points persistence at a SQLite file.
func (c *Config) WithSQLiteStore(dbPath string) *Config {
	c.StoreType = "sqlite"
	c.StoreDSN = dbPath
	return c
}

// WithPostgresStore points persistence at a PostgreSQL DSN.
func (c *Config) WithPostgresStore(dsn string) *Config {
	c.StoreType = "postgres"
	c.StoreDSN = dsn
	return c
}

// WithImageBackend selects the image-generation backend.
func (c *Config) WithImageBackend(backend string) *Config {
	c.ImageBackend = backend
	return c
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
