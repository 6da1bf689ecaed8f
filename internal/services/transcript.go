package services

import (
	"fmt"
	"strings"

	"github.com/klhlearn/peerlearn-backend/internal/domain"
	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
)

// TranscriptService derives a transcript for a video without touching
// the media bytes. Real speech-to-text is a separate, optional
// collaborator; this heuristic is the always-available path and is
// deterministic for a given record.
type TranscriptService interface {
	Derive(video *domain.Video) (string, error)
	FallbackTranscript(title, description string) string
	FallbackSummary(title string) string
}

type transcriptService struct {
	log *logger.Logger
}

func NewTranscriptService(baseLog *logger.Logger) TranscriptService {
	return &transcriptService{log: baseLog.With("service", "TranscriptService")}
}

// Per-subject lecture templates. Each takes (title, topic) and must
// produce non-empty text for non-empty inputs.
var subjectTemplates = map[string]string{
	"Mathematics": "Welcome to this lecture on %s. Today we will work through the core definitions behind %s, derive the key results step by step, and close with worked examples you can try on your own.",
	"Science":     "In this session on %s we examine the underlying principles of %s, walk through the supporting experiments and observations, and discuss where the current evidence still leaves open questions.",
	"History":     "This lecture covers %s. We begin with the background and causes surrounding %s, trace how events unfolded, and consider the consequences that still shape the present.",
	"English":     "In this class on %s we read closely, paying attention to how %s uses language, structure, and voice, and we practice building arguments about the text with supporting evidence.",
	"Programming": "Welcome to this tutorial on %s. We will introduce the main concepts behind %s, build a small working example together, and review the common mistakes to avoid in real code.",
	"Other":       "This video covers %s. We introduce %s from first principles, highlight the ideas that matter most in practice, and finish with a short recap of what you should take away.",
}

func (s *transcriptService) Derive(video *domain.Video) (string, error) {
	if video == nil {
		return "", fmt.Errorf("derive transcript: nil video")
	}

	title := strings.TrimSpace(video.Title)
	topic := strings.TrimSpace(video.Topic)
	if topic == "" {
		topic = title
	}
	if title == "" && topic == "" {
		return "", fmt.Errorf("derive transcript: video %s has no title or topic", video.ID)
	}
	if title == "" {
		title = topic
	}

	tmpl, ok := subjectTemplates[video.Subject]
	if !ok {
		tmpl = subjectTemplates["Other"]
	}

	var b strings.Builder
	fmt.Fprintf(&b, tmpl, title, topic)
	if desc := strings.TrimSpace(video.Description); desc != "" {
		b.WriteString(" ")
		b.WriteString(desc)
	}

	out := b.String()
	if out == "" {
		return "", fmt.Errorf("derive transcript: empty result for video %s", video.ID)
	}
	return out, nil
}

// FallbackTranscript is the text of last resort; it must be non-empty
// for any input, including empty title and description.
func (s *transcriptService) FallbackTranscript(title, description string) string {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	switch {
	case title != "" && description != "":
		return fmt.Sprintf("Transcript unavailable for %q. Description: %s", title, description)
	case title != "":
		return fmt.Sprintf("Transcript unavailable for %q.", title)
	default:
		return "Transcript unavailable for this video."
	}
}

func (s *transcriptService) FallbackSummary(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "Summary unavailable for this video."
	}
	return fmt.Sprintf("This video covers %s. A detailed summary could not be generated.", title)
}
