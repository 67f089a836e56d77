package audit

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"rental-backoffice/backend/internal/audit/domain"
	auditrepo "rental-backoffice/backend/internal/audit/repository"
)

type failingRepo struct{}

func (failingRepo) Create(context.Context, *domain.AuditLog) error { return errors.New("db down") }

func (failingRepo) List(context.Context, string, int32, int32) ([]*domain.AuditLog, error) {
	return nil, nil
}

func TestLogger_LogEvent(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	logger := NewLogger(repo, func(context.Context) string { return "192.168.1.1" }, nil)
	ctx := context.Background()

	logger.LogEvent(ctx, "user-1", domain.ActionLoginSuccess, "username=alice")

	entries, err := repo.List(ctx, "user-1", 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Action != domain.ActionLoginSuccess {
		t.Errorf("action = %q, want %q", entry.Action, domain.ActionLoginSuccess)
	}
	if entry.IP != "192.168.1.1" {
		t.Errorf("ip = %q, want %q", entry.IP, "192.168.1.1")
	}
	if entry.Metadata != "username=alice" {
		t.Errorf("metadata = %q", entry.Metadata)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Error("entry ID and CreatedAt should be set")
	}
}

func TestLogger_LogEvent_NoExtractor(t *testing.T) {
	repo := auditrepo.NewMemoryRepository()
	NewLogger(repo, nil, nil).LogEvent(context.Background(), "", domain.ActionLoginFailure, "")

	entries, _ := repo.List(context.Background(), "", 10, 0)
	if len(entries) != 1 || entries[0].IP != "unknown" {
		t.Fatalf("expected one entry with ip unknown, got %+v", entries)
	}
}

func TestLogger_LogEvent_RepoError(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := NewLogger(failingRepo{}, nil, zap.New(core))

	logger.LogEvent(context.Background(), "user-1", domain.ActionLogout, "")

	if logs.Len() != 1 {
		t.Errorf("expected one warning, got %d", logs.Len())
	}
}

func TestLogger_LogEvent_NilRepo(t *testing.T) {
	logger := NewLogger(nil, nil, nil)
	logger.LogEvent(context.Background(), "user-1", domain.ActionLogout, "")
}
