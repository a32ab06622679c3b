package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RECORD_STORE_BACKEND", "")
	t.Setenv("LOAD_TIMEOUT", "")
	t.Setenv("LOCAL_CACHE_KEY", "")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.RecordStore.Backend)
	assert.Equal(t, 5*time.Second, cfg.RecordStore.LoadTimeout)
	assert.Equal(t, "breakdownRecords", cfg.RecordStore.Collection)
	assert.Equal(t, "coalMineBreakdownData", cfg.LocalCache.Key)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RECORD_STORE_BACKEND", "http")
	t.Setenv("LOAD_TIMEOUT", "250ms")
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("MQTT_ENABLED", "true")
	t.Setenv("LOCAL_CACHE_BACKEND", "sqlite")

	cfg := Load()

	assert.Equal(t, "http", cfg.RecordStore.Backend)
	assert.Equal(t, 250*time.Millisecond, cfg.RecordStore.LoadTimeout)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "sqlite", cfg.LocalCache.Backend)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, time.Second, parseDuration("1s", 5*time.Second))
	assert.Equal(t, 5*time.Second, parseDuration("-1s", 5*time.Second))
	assert.Equal(t, 5*time.Second, parseDuration("soon", 5*time.Second))
}

func TestDatabaseConfig_GetDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "coalmine", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=coalmine sslmode=disable", c.GetDSN())
}
