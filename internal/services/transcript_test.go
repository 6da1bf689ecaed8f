package services

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/klhlearn/peerlearn-backend/internal/domain"
	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
)

func newTranscriptSvc(t *testing.T) TranscriptService {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return NewTranscriptService(log)
}

func TestDeriveUsesSubjectTemplate(t *testing.T) {
	svc := newTranscriptSvc(t)
	video := &domain.Video{
		ID:      uuid.New(),
		Title:   "Intro to Linked Lists",
		Topic:   "linked lists",
		Subject: "Programming",
	}

	text, err := svc.Derive(video)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !strings.Contains(text, "Intro to Linked Lists") {
		t.Fatalf("transcript does not mention the title: %q", text)
	}
	if !strings.Contains(text, "tutorial") {
		t.Fatalf("programming template not used: %q", text)
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	svc := newTranscriptSvc(t)
	video := &domain.Video{
		ID:      uuid.New(),
		Title:   "The French Revolution",
		Subject: "History",
	}

	a, err := svc.Derive(video)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	b, err := svc.Derive(video)
	if err != nil {
		t.Fatalf("derive again: %v", err)
	}
	if a != b {
		t.Fatalf("derive not deterministic:\n%q\n%q", a, b)
	}
}

func TestDeriveUnknownSubjectFallsBackToOther(t *testing.T) {
	svc := newTranscriptSvc(t)
	video := &domain.Video{ID: uuid.New(), Title: "Knot Tying", Subject: "Crafts"}

	text, err := svc.Derive(video)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if text == "" {
		t.Fatalf("expected non-empty transcript")
	}
}

func TestDeriveAppendsDescription(t *testing.T) {
	svc := newTranscriptSvc(t)
	video := &domain.Video{
		ID:          uuid.New(),
		Title:       "Cell Biology",
		Subject:     "Science",
		Description: "Mitochondria and energy production.",
	}
	text, err := svc.Derive(video)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !strings.Contains(text, "Mitochondria and energy production.") {
		t.Fatalf("description not included: %q", text)
	}
}

func TestDeriveFailsWithoutTitleOrTopic(t *testing.T) {
	svc := newTranscriptSvc(t)
	if _, err := svc.Derive(&domain.Video{ID: uuid.New(), Subject: "Mathematics"}); err == nil {
		t.Fatalf("expected error for empty title and topic")
	}
	if _, err := svc.Derive(nil); err == nil {
		t.Fatalf("expected error for nil video")
	}
}

func TestFallbacksAreNeverEmpty(t *testing.T) {
	svc := newTranscriptSvc(t)
	for _, pair := range [][2]string{{"", ""}, {"Title", ""}, {"", "desc"}, {"Title", "desc"}} {
		if svc.FallbackTranscript(pair[0], pair[1]) == "" {
			t.Fatalf("empty fallback transcript for %q/%q", pair[0], pair[1])
		}
	}
	if svc.FallbackSummary("") == "" {
		t.Fatalf("empty fallback summary")
	}
	if svc.FallbackSummary("Algebra Basics") == "" {
		t.Fatalf("empty fallback summary with title")
	}
}
