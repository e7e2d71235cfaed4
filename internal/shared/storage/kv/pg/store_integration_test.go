//go:build integration

package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"resume-feedback/internal/shared/storage/db"
	"resume-feedback/internal/shared/storage/kv"
)

func TestStoreAgainstPostgres(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("resume_feedback_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	sqlDB, err := db.Connect(ctx, dsn, db.DefaultCLIOptions())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer sqlDB.Close()
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := New(sqlDB)
	if _, err := store.Get(ctx, "resume:missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Set(ctx, "resume:a", `{"feedback":""}`); err != nil {
		t.Fatalf("Set draft: %v", err)
	}
	if err := store.Set(ctx, "resume:a", `{"feedback":{"overallScore":70}}`); err != nil {
		t.Fatalf("Set final: %v", err)
	}
	if err := store.Set(ctx, "resume_b", "x"); err != nil {
		t.Fatalf("Set other: %v", err)
	}

	got, err := store.Get(ctx, "resume:a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != `{"feedback":{"overallScore":70}}` {
		t.Fatalf("expected overwritten value, got %s", got)
	}

	entries, err := store.List(ctx, "resume:")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].Key != "resume:a" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}
