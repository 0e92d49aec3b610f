package alert

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sentry-vision/management-server/pkg/metrics"
)

// ErrNotFound is returned when the requested alert does not exist.
var ErrNotFound = errors.New("alert not found")

// Broadcaster pushes a new alert to live subscribers. The stream hub
// implements it; a nil broadcaster disables pushes.
type Broadcaster interface {
	Broadcast(v interface{})
}

// Service owns alert persistence and live distribution.
type Service struct {
	db          *gorm.DB
	log         *zap.SugaredLogger
	broadcaster Broadcaster
}

func NewService(db *gorm.DB, log *zap.SugaredLogger, broadcaster Broadcaster) *Service {
	return &Service{db: db, log: log, broadcaster: broadcaster}
}

// Create persists an alert from a detection payload and broadcasts it.
func (s *Service) Create(payload Payload) (*Alert, error) {
	a := &Alert{
		CameraID:  payload.CameraID,
		AlertType: payload.AlertType,
		Message:   payload.Description,
		ImageData: payload.ImageBase64,
		Timestamp: payload.Timestamp,
	}
	if a.Timestamp == 0 {
		a.Timestamp = time.Now().UnixMilli()
	}

	if err := s.db.Create(a).Error; err != nil {
		return nil, fmt.Errorf("persisting alert: %w", err)
	}

	metrics.AlertsCreated.WithLabelValues(string(a.AlertType)).Inc()
	s.log.Infow("alert created",
		"alert_id", a.ID,
		"camera_id", a.CameraID,
		"alert_type", a.AlertType)

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(a)
	}
	return a, nil
}

// List returns one page of alerts, newest first.
func (s *Service) List(page, size int) (*Page, error) {
	return s.listWhere(page, size, s.db)
}

// ListUnacknowledged returns one page of unacknowledged alerts, newest
// first.
func (s *Service) ListUnacknowledged(page, size int) (*Page, error) {
	return s.listWhere(page, size, s.db.Where("acknowledged = ?", false))
}

func (s *Service) listWhere(page, size int, tx *gorm.DB) (*Page, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 || size > 200 {
		size = 20
	}

	var total int64
	if err := tx.Model(&Alert{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting alerts: %w", err)
	}

	var items []Alert
	err := tx.Model(&Alert{}).
		Order("created_at DESC").
		Offset(page * size).
		Limit(size).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}

	return &Page{Items: items, Total: total, Page: page, Size: size}, nil
}

// Get returns one alert by ID.
func (s *Service) Get(id uint) (*Alert, error) {
	var a Alert
	if err := s.db.First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading alert %d: %w", id, err)
	}
	return &a, nil
}

// ByCamera returns all alerts reported by one camera, newest first.
func (s *Service) ByCamera(cameraID string) ([]Alert, error) {
	var items []Alert
	err := s.db.Where("camera_id = ?", cameraID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("listing alerts for camera %s: %w", cameraID, err)
	}
	return items, nil
}

// Acknowledge marks an alert as handled by the given user.
func (s *Service) Acknowledge(id uint, username string) (*Alert, error) {
	a, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	a.Acknowledged = true
	a.AcknowledgedBy = username
	a.AcknowledgedAt = &now

	if err := s.db.Save(a).Error; err != nil {
		return nil, fmt.Errorf("acknowledging alert %d: %w", id, err)
	}

	metrics.AlertsAcknowledged.Inc()
	s.log.Infow("alert acknowledged", "alert_id", a.ID, "by", username)
	return a, nil
}

// Delete removes an alert. Returns ErrNotFound if it does not exist.
func (s *Service) Delete(id uint) error {
	res := s.db.Delete(&Alert{}, id)
	if res.Error != nil {
		return fmt.Errorf("deleting alert %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetStats returns total and unacknowledged alert counts.
func (s *Service) GetStats() (*Stats, error) {
	var stats Stats
	if err := s.db.Model(&Alert{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("counting alerts: %w", err)
	}
	err := s.db.Model(&Alert{}).
		Where("acknowledged = ?", false).
		Count(&stats.Unacknowledged).Error
	if err != nil {
		return nil, fmt.Errorf("counting unacknowledged alerts: %w", err)
	}
	return &stats, nil
}
