package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"resume-feedback/internal/shared/storage/kv"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestSetUpserts(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("INSERT INTO kv_records").
		WithArgs("resume:1", `{"id":"1"}`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := store.Set(context.Background(), "resume:1", `{"id":"1"}`); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestGetMissingMapsToNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("SELECT value FROM kv_records").
		WithArgs("resume:missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := store.Get(context.Background(), "resume:missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetReturnsValue(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("SELECT value FROM kv_records").
		WithArgs("resume:1").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("payload"))

	got, err := store.Get(context.Background(), "resume:1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "payload" {
		t.Fatalf("unexpected value %q", got)
	}
}

func TestListEscapesPrefix(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("SELECT key, value FROM kv_records").
		WithArgs(`resume\_v1:%`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow("resume_v1:a", "1").
			AddRow("resume_v1:b", "2"))

	entries, err := store.List(context.Background(), "resume_v1:")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[1].Value != "2" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
