package docstore

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/beyondbrewing/brewery-docstore/config"
	"github.com/beyondbrewing/brewery-docstore/db"
	"github.com/beyondbrewing/brewery-docstore/pkg/logger"
)

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	targets := map[string]string{
		"memory": "memory://",
		"sqlite": "sqlite://:memory:",
		"pebble": "pebble://" + filepath.Join(t.TempDir(), "pebble"),
		"redis":  "redis://" + mr.Addr() + "/0",
	}
	for name, target := range targets {
		t.Run(name, func(t *testing.T) {
			c, err := Connect(ctx, target, "users")
			require.NoError(t, err)

			id, err := c.Insert(ctx, Document{"name": "Ann"})
			require.NoError(t, err)
			doc, found, err := c.GetByID(ctx, id)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "Ann", doc["name"])

			require.NoError(t, c.Close())
		})
	}
}

func TestConnectFailures(t *testing.T) {
	_, err := Connect(ctx, "cassandra://localhost", "users")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, db.ErrUnsupportedTarget)

	_, err = Connect(ctx, "memory://", "bad:name")
	assert.ErrorIs(t, err, ErrInvalidCollection)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = Connect(ctx, "redis://"+addr+"/0", "users")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestConnectClosesOwnedStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pebble")
	c, err := Connect(ctx, "pebble://"+dir, "users")
	require.NoError(t, err)
	_, err = c.Insert(ctx, Document{"id": "1"})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	// Pebble holds a directory lock; reopening only works once the
	// collection released the store.
	c, err = Connect(ctx, "pebble://"+dir, "users")
	require.NoError(t, err)
	defer c.Close()
	_, found, err := c.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestOpen(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		c, err := Open(ctx, nil)
		require.NoError(t, err)
		defer c.Close()
		assert.Equal(t, config.DefaultCollectionName, c.Name())
	})

	t.Run("FromConfig", func(t *testing.T) {
		cfg := config.Default()
		cfg.ConnectionTarget = "sqlite://" + filepath.Join(t.TempDir(), "docs.db")
		cfg.CollectionName = "orders"
		cfg.Namespace = "tenant-a"
		cfg.IDLength = 6

		c, err := Open(ctx, cfg)
		require.NoError(t, err)
		defer c.Close()

		id, err := c.Insert(ctx, Document{"total": 12})
		require.NoError(t, err)
		assert.Len(t, id, 6)
		assert.Equal(t, "orders", c.Name())
	})

	t.Run("InvalidConfig", func(t *testing.T) {
		cfg := config.Default()
		cfg.CollectionName = ""
		_, err := Open(ctx, cfg)
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("LoggerReachesStore", func(t *testing.T) {
		core, logs := observer.New(zap.DebugLevel)
		c, err := Open(ctx, &config.Config{
			ConnectionTarget: "sqlite://:memory:",
			CollectionName:   "users",
			Namespace:        "default",
			IDLength:         4,
		}, WithLogger(logger.FromZap(zap.New(core))))
		require.NoError(t, err)
		defer c.Close()

		_, err = c.Insert(ctx, Document{"id": "1"})
		require.NoError(t, err)

		assert.NotZero(t, logs.FilterMessage("database opened").Len())
		inserted := logs.FilterMessage("document inserted").All()
		require.Len(t, inserted, 1)
		assert.Equal(t, "docstore", inserted[0].ContextMap()["component"])
	})
}
