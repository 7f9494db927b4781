package entity

import (
	"time"

	"gorm.io/gorm"
)

// Revolutions-to-hours mapping of the run-to-failure dataset the model was
// trained on. Fixed for this deployment, not per-request configuration.
const (
	MaxRevolutions = 3398400.0
	MaxHours       = 128.0
)

// FailedRUL is the sentinel placed in a tolerant batch slot whose window
// could not be processed.
const FailedRUL = -1.0

type BatchMode string

const (
	ModeTolerant BatchMode = "tolerant"
	ModeFast     BatchMode = "fast"
)

type PredictionResult struct {
	PredictedRUL float64 `json:"predicted_rul"`
	Failed       bool    `json:"failed,omitempty"`
	Error        string  `json:"error,omitempty"`
}

type BatchResult struct {
	RequestID      string             `json:"request_id"`
	Results        []PredictionResult `json:"results"`
	TotalProcessed int                `json:"total_processed"`
	FailedCount    int                `json:"failed_count"`
	ElapsedSeconds float64            `json:"elapsed_seconds"`
}

// PredictionRecord is one persisted prediction row for the dashboard.
type PredictionRecord struct {
	ID           uint   `gorm:"primaryKey"`
	RequestID    string `gorm:"not null;type:uuid;index"`
	BearingID    string `gorm:"not null;index"`
	Mode         string `gorm:"not null"`
	WindowIndex  int
	PredictedRUL float64 `gorm:"not null"`
	CreatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// PredictionMadeMessage is the event published after a request completes.
type PredictionMadeMessage struct {
	RequestID    string    `json:"request_id"`
	BearingID    string    `json:"bearing_id"`
	Mode         string    `json:"mode"`
	WindowCount  int       `json:"window_count"`
	FailedCount  int       `json:"failed_count"`
	MeanRULHours float64   `json:"mean_rul_hours"`
	At           time.Time `json:"at"`
}

// ServiceStats are the running counters kept in redis.
type ServiceStats struct {
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}
