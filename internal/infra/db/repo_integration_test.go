//go:build integration
// +build integration

package db

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"warden/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestGrantRepository_UpsertLastWriterWins(t *testing.T) {
	store := setupTestStore(t)
	resetTestDB(t, store.DB)

	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := store.Grants.Upsert(ctx, "user:alice@example.com", "projects/prod:roles/viewer", start, start.Add(time.Hour)); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := store.Grants.Upsert(ctx, "user:alice@example.com", "projects/prod:roles/viewer", start, start.Add(2*time.Hour)); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	model, err := store.Grants.Get(ctx, "user:alice@example.com", "projects/prod:roles/viewer")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if model == nil {
		t.Fatal("grant not found after upsert")
	}
	if !model.ExpiryTime.Equal(start.Add(2 * time.Hour)) {
		t.Fatalf("expiry = %v, want %v", model.ExpiryTime, start.Add(2*time.Hour))
	}

	var count int64
	if err := store.DB.WithContext(ctx).Model(&GrantModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 grant row, got %d", count)
	}
}

func TestGrantRepository_DeleteAbsent(t *testing.T) {
	store := setupTestStore(t)
	resetTestDB(t, store.DB)

	if err := store.Grants.Delete(context.Background(), "user:ghost@example.com", "group:oncall@example.com"); err != nil {
		t.Fatalf("delete absent grant: %v", err)
	}
}

func TestAuditEventRepository_AppendAndList(t *testing.T) {
	store := setupTestStore(t)
	resetTestDB(t, store.DB)

	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, eventType := range []string{domain.AuditRequestCreated, domain.AuditRequestApproved} {
		_, err := store.AuditEvents.Append(ctx, domain.AuditEvent{
			EventType:     eventType,
			ActivationID:  "mpa-abc",
			Actor:         "user:alice@example.com",
			Privilege:     "projects/prod:roles/viewer",
			Environment:   "prod",
			Justification: "case-123",
			StartTime:     start,
			EndTime:       start.Add(time.Hour),
			CreatedAt:     start.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("append %s: %v", eventType, err)
		}
	}

	events, err := store.AuditEvents.ListByActivation(ctx, "mpa-abc")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].EventType != domain.AuditRequestCreated {
		t.Fatalf("first event = %s, want %s", events[0].EventType, domain.AuditRequestCreated)
	}
	if events[1].EventType != domain.AuditRequestApproved {
		t.Fatalf("second event = %s, want %s", events[1].EventType, domain.AuditRequestApproved)
	}
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("POSTGRES_DSN_TEST"))
	if dsn == "" {
		t.Skip("POSTGRES_DSN_TEST not set")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	store := newStore(gdb)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func resetTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := db.Exec("TRUNCATE audit_events, grants RESTART IDENTITY CASCADE").Error; err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}
