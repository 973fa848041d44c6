package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.Storage)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.ReleaseStockOnCancel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("STORAGE", "memory")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("RELEASE_STOCK_ON_CANCEL", "true")

	cfg := Load()

	assert.Equal(t, "9999", cfg.HTTPPort)
	assert.Equal(t, "memory", cfg.Storage)
	assert.Equal(t, 5433, cfg.PostgresPort)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.ReleaseStockOnCancel)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("POSTGRES_PORT", "not-a-number")
	t.Setenv("REQUEST_TIMEOUT", "soon")
	t.Setenv("RELEASE_STOCK_ON_CANCEL", "maybe")

	cfg := Load()

	assert.Equal(t, 5432, cfg.PostgresPort)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.ReleaseStockOnCancel)
}
