package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sentry-vision/management-server/pkg/config"
)

func TestOpen(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()

	t.Run("opens an in-memory sqlite database", func(t *testing.T) {
		db, err := Open(config.Database{Driver: "sqlite", DSN: ":memory:"}, log)
		require.NoError(t, err)
		assert.NotNil(t, db)
	})

	t.Run("rejects an unknown driver", func(t *testing.T) {
		_, err := Open(config.Database{Driver: "oracle", DSN: "x"}, log)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported database driver")
	})
}

func TestMigrate(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	db, err := Open(config.Database{Driver: "sqlite", DSN: ":memory:"}, log)
	require.NoError(t, err)

	type widget struct {
		ID   uint `gorm:"primarykey"`
		Name string
	}

	require.NoError(t, Migrate(db, &widget{}))
	assert.True(t, db.Migrator().HasTable(&widget{}))
}
