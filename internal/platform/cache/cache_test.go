package cache

import (
	"testing"

	"github.com/feelps04/html-css-tutor-virtual/internal/platform/config"
)

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
		wantDB  int
	}{
		{"valid-redis", "redis://localhost:6379", false, 0},
		{"valid-with-db", "redis://localhost:6379/2", false, 2},
		{"empty", "", true, 0},
		{"wrong scheme", "http://localhost:6379", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseConfig(config.CacheConfig{URL: tt.url})
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && opts.DB != tt.wantDB {
				t.Errorf("DB = %d, want %d", opts.DB, tt.wantDB)
			}
		})
	}
}

func TestOpen_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	ctx := t.Context()
	if _, err := Open(ctx, config.CacheConfig{URL: "redis://localhost:59999"}); err == nil {
		t.Fatal("Open() should return error for unreachable host")
	}
}
