package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"HTTP_PORT", "KV_BACKEND", "PASS_INTERVAL_SEC", "PEAK_DELAY_MS", "SITE_TIMEZONE", "CONSUME_EVENTS", "CORS_ALLOWED_ORIGINS", "SYNC_REPLY_TIMEOUT_SEC"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "8084", cfg.HttpPort)
	assert.Equal(t, "postgres", cfg.KVBackend)
	assert.Equal(t, 900, cfg.PassIntervalSec)
	assert.Equal(t, 300, cfg.DrainIntervalSec)
	assert.Equal(t, 200*time.Millisecond, cfg.PeakDelay)
	assert.Equal(t, 50*time.Millisecond, cfg.OffPeakDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.QueueDelay)
	assert.True(t, cfg.ConsumeEvents)
	assert.Equal(t, time.Minute, cfg.SyncReplyTimeout)
	assert.Empty(t, cfg.CorsOrigins)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("KV_BACKEND", "redis")
	t.Setenv("PEAK_DELAY_MS", "0")
	t.Setenv("OUTBOX_MAX_RETRY", "nope")
	t.Setenv("CONSUME_EVENTS", "false")
	t.Setenv("SYNC_REPLY_TIMEOUT_SEC", "15")
	t.Setenv("SITE_TIMEZONE", "Europe/Sofia")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://admin.example.com, ,http://localhost:3000")

	cfg := Load()

	assert.Equal(t, "9000", cfg.HttpPort)
	assert.Equal(t, "redis", cfg.KVBackend)
	assert.Equal(t, time.Duration(0), cfg.PeakDelay)
	assert.Equal(t, []string{"https://admin.example.com", "http://localhost:3000"}, cfg.CorsOrigins)
	assert.Equal(t, 5, cfg.OutboxMaxRetry)
	assert.False(t, cfg.ConsumeEvents)
	assert.Equal(t, 15*time.Second, cfg.SyncReplyTimeout)
	assert.Equal(t, "Europe/Sofia", cfg.Location().String())
}
