package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Enrichment field states. A field is pending until its job instance
// touches it; the terminal write forces completed even on the fallback
// path, so failed stays modeled but failure detail lives on the
// EnrichmentRun row.
const (
	EnrichmentPending    = "pending"
	EnrichmentProcessing = "processing"
	EnrichmentCompleted  = "completed"
	EnrichmentFailed     = "failed"
)

// Subjects the platform recognizes; drives transcript template
// selection during enrichment.
var Subjects = []string{"Mathematics", "Science", "History", "English", "Programming", "Other"}

func IsValidSubject(s string) bool {
	for _, v := range Subjects {
		if v == s {
			return true
		}
	}
	return false
}

// Video is the asset record for one uploaded lecture. StorageKey and
// SizeBytes are written once at creation; the enrichment fields are
// owned by the enrichment job afterward.
type Video struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UploaderID  uuid.UUID `gorm:"type:uuid;not null;index" json:"uploader_id"`
	Title       string    `gorm:"column:title;not null" json:"title"`
	Description string    `gorm:"column:description;not null" json:"description"`
	Subject     string    `gorm:"column:subject;not null;index" json:"subject"`
	Topic       string    `gorm:"column:topic;not null;index" json:"topic"`
	Tags        datatypes.JSON `gorm:"column:tags;type:jsonb" json:"tags"`

	StorageKey string `gorm:"column:storage_key;not null" json:"storage_key"`
	MimeType   string `gorm:"column:mime_type;not null" json:"mime_type"`
	SizeBytes  int64  `gorm:"column:size_bytes;not null" json:"size_bytes"`

	TranscriptStatus string `gorm:"column:transcript_status;not null;default:'pending'" json:"transcript_status"`
	SummaryStatus    string `gorm:"column:summary_status;not null;default:'pending'" json:"summary_status"`
	Transcript       string `gorm:"column:transcript" json:"transcript"`
	Summary          string `gorm:"column:summary" json:"summary"`

	// Playback is deliberately not gated on enrichment.
	VisibleForPlayback bool  `gorm:"column:visible_for_playback;not null;default:true" json:"visible_for_playback"`
	Views              int64 `gorm:"column:views;not null;default:0" json:"views"`

	// Optimistic concurrency for the enrichment terminal write.
	EnrichVersion int `gorm:"column:enrich_version;not null;default:0" json:"enrich_version"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Video) TableName() string { return "video" }
