package prompt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestMemStore() *MemStore {
	s := NewMemStore()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func TestMemStore_CRUD(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestMemStore()

	first, err := s.Create(ctx, "  Hello world  ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if first.Text != "Hello world" {
		t.Errorf("Text = %q, want trimmed", first.Text)
	}
	if _, err := uuid.Parse(first.ID); err != nil {
		t.Errorf("ID %q is not a UUID: %v", first.ID, err)
	}
	second, _ := s.Create(ctx, "Red leather, yellow leather")

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Errorf("List = %+v, want creation order", list)
	}

	got, err := s.Get(ctx, second.ID)
	if err != nil || got == nil || got.Text != second.Text {
		t.Fatalf("Get = %+v, %v", got, err)
	}

	updated, err := s.Update(ctx, first.ID, "Hello there")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Text != "Hello there" || !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Errorf("Update = %+v", updated)
	}

	if err := s.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestMemStore_Missing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestMemStore()

	if p, err := s.Get(ctx, "nope"); p != nil || err != nil {
		t.Errorf("Get missing = %v, %v; want nil, nil", p, err)
	}
	if p, err := s.Random(ctx); p != nil || err != nil {
		t.Errorf("Random on empty = %v, %v; want nil, nil", p, err)
	}
	if _, err := s.Update(ctx, "nope", "text"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update missing err = %v", err)
	}
	if err := s.Delete(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete missing err = %v", err)
	}
}

func TestMemStore_RejectsBadText(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestMemStore()

	if _, err := s.Create(ctx, " \n\t"); !errors.Is(err, ErrEmptyText) {
		t.Errorf("blank err = %v, want ErrEmptyText", err)
	}
	if _, err := s.Create(ctx, "bad \xff"); !errors.Is(err, ErrInvalidText) {
		t.Errorf("invalid UTF-8 err = %v, want ErrInvalidText", err)
	}
	p, _ := s.Create(ctx, "ok")
	if _, err := s.Update(ctx, p.ID, ""); !errors.Is(err, ErrEmptyText) {
		t.Errorf("update blank err = %v, want ErrEmptyText", err)
	}
}

func TestMemStore_Random(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestMemStore()
	for _, text := range []string{"a", "b", "c"} {
		if _, err := s.Create(ctx, text); err != nil {
			t.Fatal(err)
		}
	}

	for i, want := range []string{"a", "b", "c"} {
		s.intN = func(n int) int {
			if n != 3 {
				t.Fatalf("intN(%d), want 3", n)
			}
			return i
		}
		p, err := s.Random(ctx)
		if err != nil || p == nil || p.Text != want {
			t.Errorf("Random with index %d = %+v, %v; want %q", i, p, err, want)
		}
	}
}
