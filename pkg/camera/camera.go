// Package camera manages the security camera registry the dashboard and
// the detection engine work against.
package camera

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errors.New("camera not found")
	ErrNameTaken     = errors.New("camera name already in use")
	ErrUnknownStatus = errors.New("unknown camera status")
)

// Status is the operational state of a camera.
type Status string

const (
	StatusActive      Status = "ACTIVE"
	StatusInactive    Status = "INACTIVE"
	StatusMaintenance Status = "MAINTENANCE"
	StatusError       Status = "ERROR"
)

// ParseStatus validates a status string from a request.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusInactive, StatusMaintenance, StatusError:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Camera is a registered security camera.
type Camera struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Location  string    `gorm:"size:255" json:"location"`
	StreamURL string    `gorm:"column:stream_url;size:500" json:"streamUrl"`
	Status    Status    `gorm:"not null" json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Camera) TableName() string { return "cameras" }

// Request is the create/update body for a camera. On update, empty
// fields keep their current values.
type Request struct {
	Name      string `json:"name" binding:"required"`
	Location  string `json:"location"`
	StreamURL string `json:"streamUrl"`
	Status    Status `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE MAINTENANCE ERROR"`
}

// Service owns the camera registry.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// Create registers a camera. Names are unique.
func (s *Service) Create(req Request) (*Camera, error) {
	var count int64
	if err := s.db.Model(&Camera{}).Where("name = ?", req.Name).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("checking camera name: %w", err)
	}
	if count > 0 {
		return nil, ErrNameTaken
	}

	cam := &Camera{
		Name:      req.Name,
		Location:  req.Location,
		StreamURL: req.StreamURL,
		Status:    req.Status,
	}
	if cam.Status == "" {
		cam.Status = StatusInactive
	}

	if err := s.db.Create(cam).Error; err != nil {
		return nil, fmt.Errorf("persisting camera: %w", err)
	}
	s.log.Infow("camera created", "camera_id", cam.ID, "name", cam.Name)
	return cam, nil
}

// List returns all cameras.
func (s *Service) List() ([]Camera, error) {
	var items []Camera
	if err := s.db.Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing cameras: %w", err)
	}
	return items, nil
}

// ListByStatus returns all cameras in the given state.
func (s *Service) ListByStatus(status Status) ([]Camera, error) {
	var items []Camera
	if err := s.db.Where("status = ?", status).Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing cameras by status: %w", err)
	}
	return items, nil
}

// Get returns one camera by ID.
func (s *Service) Get(id uint) (*Camera, error) {
	var cam Camera
	if err := s.db.First(&cam, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading camera %d: %w", id, err)
	}
	return &cam, nil
}

// Update changes a camera's fields. Empty request fields are kept as-is.
func (s *Service) Update(id uint, req Request) (*Camera, error) {
	cam, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		cam.Name = req.Name
	}
	if req.Location != "" {
		cam.Location = req.Location
	}
	if req.StreamURL != "" {
		cam.StreamURL = req.StreamURL
	}
	if req.Status != "" {
		cam.Status = req.Status
	}

	if err := s.db.Save(cam).Error; err != nil {
		return nil, fmt.Errorf("updating camera %d: %w", id, err)
	}
	return cam, nil
}

// UpdateStatus changes only a camera's operational state.
func (s *Service) UpdateStatus(id uint, status Status) (*Camera, error) {
	cam, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	cam.Status = status
	if err := s.db.Save(cam).Error; err != nil {
		return nil, fmt.Errorf("updating camera %d status: %w", id, err)
	}
	s.log.Infow("camera status updated", "camera_id", id, "status", status)
	return cam, nil
}

// Delete removes a camera. Returns ErrNotFound if it does not exist.
func (s *Service) Delete(id uint) error {
	res := s.db.Delete(&Camera{}, id)
	if res.Error != nil {
		return fmt.Errorf("deleting camera %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.log.Infow("camera deleted", "camera_id", id)
	return nil
}
