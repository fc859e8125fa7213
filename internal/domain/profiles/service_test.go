package profiles

import (
	"context"
	"errors"
	"testing"
	"time"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	inserted []Profile
	err      error
}

func (r *testRepo) Insert(ctx context.Context, p Profile) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.inserted = append(r.inserted, p)
	return "id-" + string(rune('0'+len(r.inserted))), nil
}

func newTestService(repo Repository, now time.Time) *Service {
	s := NewService(repo)
	s.now = func() time.Time { return now }
	return s
}

func TestCreate_AttachesOwnerAndTimestamps(t *testing.T) {
	repo := &testRepo{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	svc := newTestService(repo, now)

	p, err := svc.Create(context.Background(), "u1", map[string]any{
		"email":     "a@b.com",
		"weeks":     12,
		"userId":    "spoofed",
		"createdAt": "1999-01-01",
		"_id":       "client-id",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	if p.ID != "id-1" {
		t.Fatalf("expected store id, got %q", p.ID)
	}
	if p.UserID != "u1" {
		t.Fatalf("expected userId u1, got %q", p.UserID)
	}
	if !p.CreatedAt.Equal(p.UpdatedAt) {
		t.Fatalf("createdAt %v != updatedAt %v", p.CreatedAt, p.UpdatedAt)
	}
	if !p.CreatedAt.Equal(now.Truncate(time.Millisecond)) {
		t.Fatalf("expected ms-truncated now, got %v", p.CreatedAt)
	}

	if len(repo.inserted) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(repo.inserted))
	}
	doc := repo.inserted[0].Document()
	if doc["userId"] != "u1" {
		t.Fatalf("stored userId must come from session, got %v", doc["userId"])
	}
	if _, ok := doc["_id"]; ok {
		t.Fatalf("client _id must not reach the store")
	}
	if doc["createdAt"] != doc["updatedAt"] {
		t.Fatalf("stored timestamps differ: %v vs %v", doc["createdAt"], doc["updatedAt"])
	}
	if doc["email"] != "a@b.com" || doc["weeks"] != 12 {
		t.Fatalf("client fields lost: %v", doc)
	}
}

func TestCreate_RequiresTruthyEmail(t *testing.T) {
	falsy := map[string]map[string]any{
		"missing": {"weeks": 3},
		"nil":     {"email": nil},
		"empty":   {"email": ""},
		"false":   {"email": false},
		"zero":    {"email": 0.0},
	}

	for name, payload := range falsy {
		t.Run(name, func(t *testing.T) {
			repo := &testRepo{}
			svc := newTestService(repo, time.Now())

			_, err := svc.Create(context.Background(), "u1", payload)
			if !errors.Is(err, ErrEmailRequired) {
				t.Fatalf("expected ErrEmailRequired, got %v", err)
			}
			if len(repo.inserted) != 0 {
				t.Fatalf("store must not be touched, got %d inserts", len(repo.inserted))
			}
		})
	}
}

func TestCreate_RequiresOwner(t *testing.T) {
	repo := &testRepo{}
	svc := newTestService(repo, time.Now())

	_, err := svc.Create(context.Background(), "  ", map[string]any{"email": "a@b.com"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(repo.inserted) != 0 {
		t.Fatalf("store must not be touched")
	}
}

func TestCreate_WrapsStoreError(t *testing.T) {
	boom := errors.New("connection refused")
	svc := newTestService(&testRepo{err: boom}, time.Now())

	_, err := svc.Create(context.Background(), "u1", map[string]any{"email": "a@b.com"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
