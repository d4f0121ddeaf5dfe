package backend

import (
	"context"
	"testing"

	"spendsync/internal/config"
	"spendsync/internal/log"
)

func TestFromServerConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.Server
		want    BackendType
		wantErr bool
	}{
		{"nil config", nil, "", true},
		{"memory", &config.Server{DataBackend: "memory"}, MemoryBackend, false},
		{"postgres", &config.Server{DataBackend: "postgres", DatabaseURL: "postgres://x"}, PostgresBackend, false},
		{"unknown", &config.Server{DataBackend: "sheets"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromServerConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromServerConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got.Type != tt.want {
				t.Errorf("FromServerConfig() type = %v, want %v", got.Type, tt.want)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	f := NewFactory(log.Discard())

	res, err := f.CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	if res.Expenses == nil || res.Users == nil {
		t.Fatal("memory backend must provide both repositories")
	}

	if _, err := f.CreateBackend(context.Background(), Config{Type: PostgresBackend}); err == nil {
		t.Fatal("postgres backend without a URL must fail validation")
	}
}
