package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/office-seat-booking/internal/auth"
	"github.com/iliyamo/office-seat-booking/internal/model"
)

func TestRecordLoginTwiceKeepsOneEmployee(t *testing.T) {
	employees := newMemoryEmployees()
	d := NewDirectory(employees)
	first := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return first }
	ctx := context.Background()

	id := auth.Identity{W3ID: "alice", Name: "Alice Example", Email: "alice@ibm.com"}
	if err := d.RecordLogin(ctx, id); err != nil {
		t.Fatalf("first login: %v", err)
	}
	later := first.Add(24 * time.Hour)
	d.now = func() time.Time { return later }
	id.Name = "Renamed"
	if err := d.RecordLogin(ctx, id); err != nil {
		t.Fatalf("second login: %v", err)
	}

	if len(employees.employees) != 1 {
		t.Fatalf("expected one employee, got %d", len(employees.employees))
	}
	e, _ := employees.GetByW3ID(ctx, "alice")
	if !e.FirstLoginAt.Equal(first) || !e.LastLoginAt.Equal(later) {
		t.Fatalf("unexpected timestamps: first=%v last=%v", e.FirstLoginAt, e.LastLoginAt)
	}
	if e.FullName != "Alice Example" {
		t.Fatalf("profile must not change on later logins, got %q", e.FullName)
	}
}

type failingEmployees struct{ *memoryEmployees }

func (failingEmployees) RecordLogin(context.Context, model.Employee, time.Time) error {
	return errStore
}

func TestRecordLoginPropagatesStoreError(t *testing.T) {
	d := NewDirectory(failingEmployees{newMemoryEmployees()})
	if err := d.RecordLogin(context.Background(), auth.Identity{W3ID: "alice"}); !errors.Is(err, errStore) {
		t.Fatalf("expected errStore, got %v", err)
	}
}

func TestRecordLoginRequiresW3ID(t *testing.T) {
	d := NewDirectory(newMemoryEmployees())
	if err := d.RecordLogin(context.Background(), auth.Identity{Name: "anon"}); !errors.Is(err, auth.ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
}
