package testutil

import (
	"testing"

	"github.com/azattekce/redischat/cache"
	"github.com/azattekce/redischat/config"
	dbadapter "github.com/azattekce/redischat/db"
	"github.com/azattekce/redischat/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SetupTestDB opens a fresh in-memory SQLite database with the full schema
// migrated. Every call gets its own database, so parallel tests never see
// each other's rows.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := dbadapter.Open(config.DatabaseConfig{Mode: dbadapter.ModeMemory})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(conn), "SetupTestDB: AutoMigrate")
	return conn
}

// SetupTestCache builds the in-process cache and pubsub backends. Leaving
// RedisAddr empty selects the local implementations, so no Redis server
// is needed.
func SetupTestCache(t *testing.T) (cache.Cache, cache.PubSub) {
	t.Helper()
	var cfg cache.CacheConfig
	c, err := cache.NewCache(cfg)
	require.NoError(t, err, "SetupTestCache: NewCache")
	ps, err := cache.NewPubSub(cfg)
	require.NoError(t, err, "SetupTestCache: NewPubSub")
	return c, ps
}
