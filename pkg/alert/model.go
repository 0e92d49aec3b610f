// Package alert persists and serves the security alerts the detection
// engine reports, and pushes each new alert to live dashboard subscribers.
package alert

import "time"

// Type classifies what the detection engine observed.
type Type string

const (
	TypeVisual Type = "VISUAL"
	TypeAudio  Type = "AUDIO"
)

// Alert is a persisted security alert.
type Alert struct {
	ID             uint       `gorm:"primarykey" json:"id"`
	CameraID       string     `gorm:"column:camera_id;size:100;not null;index" json:"cameraId"`
	AlertType      Type       `gorm:"column:alert_type;not null" json:"alertType"`
	Message        string     `gorm:"type:text" json:"message"`
	ImageData      string     `gorm:"column:image_data;type:text" json:"imageData,omitempty"`
	Timestamp      int64      `json:"timestamp"`
	Acknowledged   bool       `gorm:"index" json:"acknowledged"`
	AcknowledgedBy string     `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func (Alert) TableName() string { return "alerts" }

// Payload is the alert submission body the detection engine posts.
type Payload struct {
	CameraID    string `json:"cameraId" binding:"required"`
	AlertType   Type   `json:"alertType" binding:"required,oneof=VISUAL AUDIO"`
	Description string `json:"description"`
	ImageBase64 string `json:"imageBase64"`
	// Timestamp is the detection time in Unix milliseconds. Zero means
	// the server fills in its own receive time.
	Timestamp int64 `json:"timestamp"`
}

// Page is one page of alerts, newest first.
type Page struct {
	Items []Alert `json:"items"`
	Total int64   `json:"total"`
	Page  int     `json:"page"`
	Size  int     `json:"size"`
}

// Stats summarizes the alert table.
type Stats struct {
	Total          int64 `json:"total"`
	Unacknowledged int64 `json:"unacknowledged"`
}
