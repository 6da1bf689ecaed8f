package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const JobTypeVideoEnrichment = "video_enrichment"

// EnrichmentRun is one scheduled unit of enrichment work. Rows double
// as the job queue: workers claim the oldest runnable row, so scheduled
// work survives a restart and failed runs retry with a delay.
type EnrichmentRun struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	VideoID uuid.UUID `gorm:"type:uuid;not null;index" json:"video_id"`
	JobType string    `gorm:"column:job_type;not null;index" json:"job_type"`

	Status      string     `gorm:"column:status;not null;index" json:"status"` // queued|running|succeeded|failed
	Stage       string     `gorm:"column:stage;not null" json:"stage"`         // transcript|summary|finalize|done
	Attempts    int        `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Error       string     `gorm:"column:error" json:"error"`
	LastErrorAt *time.Time `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	LockedAt    *time.Time `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`

	Metadata datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (EnrichmentRun) TableName() string { return "enrichment_run" }

// Run statuses.
const (
	RunQueued    = "queued"
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)
