package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/JaimeStill/custodian/pkg/pagination"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) (*repo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	r := New(
		db,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	).(*repo)
	return r, mock
}

var serviceTestColumns = []string{
	"id", "name", "provider", "endpoint", "api_key", "model", "active",
	"confidence_threshold", "auto_tag", "auto_extract",
	"documents_processed", "avg_confidence", "last_run",
	"created_at", "updated_at",
}

func serviceRow(id uuid.UUID, name string) *sqlmock.Rows {
	return sqlmock.NewRows(serviceTestColumns).AddRow(
		id.String(), name, "openai", "https://api.openai.com", "sk-test",
		"gpt-4o", true, 0.7, true, true, int64(0), nil, nil,
		fixedTime, fixedTime,
	)
}

func TestFirstActiveOrdersByCreationThenID(t *testing.T) {
	r, mock := newTestRepo(t)

	id := uuid.New()

	// Identical created_at values must not make selection ambiguous;
	// id is the secondary sort key.
	mock.ExpectQuery("ORDER BY created_at, id").
		WillReturnRows(serviceRow(id, "default"))

	svc, err := r.FirstActive(context.Background())
	if err != nil {
		t.Fatalf("FirstActive() err = %v", err)
	}
	if svc.ID != id {
		t.Errorf("ID = %s, want %s", svc.ID, id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestFirstActiveNoActiveService(t *testing.T) {
	r, mock := newTestRepo(t)

	mock.ExpectQuery("FROM classification_services").
		WillReturnError(sql.ErrNoRows)

	if _, err := r.FirstActive(context.Background()); !errors.Is(err, ErrNoActiveService) {
		t.Errorf("FirstActive() err = %v, want ErrNoActiveService", err)
	}
}
