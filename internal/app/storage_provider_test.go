package app

import (
	"testing"

	"github.com/klhlearn/peerlearn-backend/internal/platform/logger"
)

func TestResolveMediaStoreLocal(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	store, err := resolveMediaStore(log, Config{StorageMode: "local", MediaDir: t.TempDir()})
	if err != nil {
		t.Fatalf("resolve local: %v", err)
	}
	if store == nil {
		t.Fatalf("nil store")
	}
}

func TestResolveMediaStoreNormalizesMode(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	if _, err := resolveMediaStore(log, Config{StorageMode: "  LOCAL ", MediaDir: t.TempDir()}); err != nil {
		t.Fatalf("mode should be trimmed and lowercased: %v", err)
	}
}

func TestResolveMediaStoreRejectsUnknownMode(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	if _, err := resolveMediaStore(log, Config{StorageMode: "s3"}); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
