package backend

import (
	"fmt"

	"spendsync/internal/config"
)

// FromServerConfig converts the server config to backend config
func FromServerConfig(cfg *config.Server) (Config, error) {
	if cfg == nil {
		return Config{}, fmt.Errorf("server config is nil")
	}

	backendType := BackendType(cfg.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", cfg.DataBackend)
	}

	return Config{
		Type:            backendType,
		DatabaseURL:     cfg.DatabaseURL,
		ConnectAttempts: cfg.DBConnectTry,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	if c.Type == PostgresBackend && c.DatabaseURL == "" {
		return fmt.Errorf("database URL is required for postgres backend")
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, PostgresBackend}
}
