package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type recordingBroadcaster struct {
	events []interface{}
}

func (r *recordingBroadcaster) Broadcast(v interface{}) {
	r.events = append(r.events, v)
}

func newTestService(t *testing.T) (*Service, *recordingBroadcaster) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Alert{}))

	b := &recordingBroadcaster{}
	return NewService(db, zaptest.NewLogger(t).Sugar(), b), b
}

func TestServiceCreate(t *testing.T) {
	t.Run("persists and broadcasts", func(t *testing.T) {
		svc, b := newTestService(t)

		a, err := svc.Create(Payload{
			CameraID:    "cam-01",
			AlertType:   TypeVisual,
			Description: "person detected",
			Timestamp:   1700000000000,
		})
		require.NoError(t, err)
		assert.NotZero(t, a.ID)
		assert.Equal(t, "cam-01", a.CameraID)
		assert.Equal(t, TypeVisual, a.AlertType)
		assert.Equal(t, "person detected", a.Message)
		assert.Equal(t, int64(1700000000000), a.Timestamp)
		assert.False(t, a.Acknowledged)

		require.Len(t, b.events, 1)
		assert.Equal(t, a, b.events[0])
	})

	t.Run("fills in a missing timestamp", func(t *testing.T) {
		svc, _ := newTestService(t)

		a, err := svc.Create(Payload{CameraID: "cam-01", AlertType: TypeAudio})
		require.NoError(t, err)
		assert.NotZero(t, a.Timestamp)
	})

	t.Run("works without a broadcaster", func(t *testing.T) {
		svc, _ := newTestService(t)
		svc.broadcaster = nil

		_, err := svc.Create(Payload{CameraID: "cam-01", AlertType: TypeVisual})
		assert.NoError(t, err)
	})
}

func TestServiceList(t *testing.T) {
	svc, _ := newTestService(t)
	for i := 0; i < 25; i++ {
		_, err := svc.Create(Payload{CameraID: "cam-01", AlertType: TypeVisual})
		require.NoError(t, err)
	}

	t.Run("defaults to page size 20", func(t *testing.T) {
		page, err := svc.List(0, 0)
		require.NoError(t, err)
		assert.Len(t, page.Items, 20)
		assert.Equal(t, int64(25), page.Total)
	})

	t.Run("second page holds the remainder", func(t *testing.T) {
		page, err := svc.List(1, 20)
		require.NoError(t, err)
		assert.Len(t, page.Items, 5)
	})

	t.Run("unacknowledged filter", func(t *testing.T) {
		first, err := svc.List(0, 1)
		require.NoError(t, err)
		_, err = svc.Acknowledge(first.Items[0].ID, "operator")
		require.NoError(t, err)

		page, err := svc.ListUnacknowledged(0, 50)
		require.NoError(t, err)
		assert.Equal(t, int64(24), page.Total)
		for _, a := range page.Items {
			assert.False(t, a.Acknowledged)
		}
	})
}

func TestServiceGet(t *testing.T) {
	svc, _ := newTestService(t)
	created, err := svc.Create(Payload{CameraID: "cam-01", AlertType: TypeVisual})
	require.NoError(t, err)

	t.Run("returns an existing alert", func(t *testing.T) {
		a, err := svc.Get(created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, a.ID)
	})

	t.Run("missing alert yields ErrNotFound", func(t *testing.T) {
		_, err := svc.Get(9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestServiceByCamera(t *testing.T) {
	svc, _ := newTestService(t)
	for _, cam := range []string{"cam-01", "cam-01", "cam-02"} {
		_, err := svc.Create(Payload{CameraID: cam, AlertType: TypeVisual})
		require.NoError(t, err)
	}

	items, err := svc.ByCamera("cam-01")
	require.NoError(t, err)
	assert.Len(t, items, 2)
	for _, a := range items {
		assert.Equal(t, "cam-01", a.CameraID)
	}
}

func TestServiceAcknowledge(t *testing.T) {
	svc, _ := newTestService(t)
	created, err := svc.Create(Payload{CameraID: "cam-01", AlertType: TypeVisual})
	require.NoError(t, err)

	t.Run("records who and when", func(t *testing.T) {
		a, err := svc.Acknowledge(created.ID, "operator")
		require.NoError(t, err)
		assert.True(t, a.Acknowledged)
		assert.Equal(t, "operator", a.AcknowledgedBy)
		require.NotNil(t, a.AcknowledgedAt)
	})

	t.Run("missing alert yields ErrNotFound", func(t *testing.T) {
		_, err := svc.Acknowledge(9999, "operator")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestServiceDelete(t *testing.T) {
	svc, _ := newTestService(t)
	created, err := svc.Create(Payload{CameraID: "cam-01", AlertType: TypeVisual})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(created.ID))
	_, err = svc.Get(created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.Delete(created.ID), ErrNotFound)
}

func TestServiceStats(t *testing.T) {
	svc, _ := newTestService(t)
	for i := 0; i < 3; i++ {
		_, err := svc.Create(Payload{CameraID: "cam-01", AlertType: TypeVisual})
		require.NoError(t, err)
	}
	first, err := svc.List(0, 1)
	require.NoError(t, err)
	_, err = svc.Acknowledge(first.Items[0].ID, "operator")
	require.NoError(t, err)

	stats, err := svc.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Unacknowledged)
}
