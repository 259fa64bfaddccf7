package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func ptr(s string) *string { return &s }

func newTestMemStore() *MemStore {
	m := NewMemStore()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	m.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return m
}

func TestMemStore_CreateGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newTestMemStore()

	s := &Session{ExpectedText: "Hello world", Transcription: "hello word", Score: 87}
	if err := m.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := uuid.Parse(s.ID); err != nil {
		t.Errorf("ID %q is not a UUID", s.ID)
	}
	if s.CreatedAt.IsZero() || !s.CreatedAt.Equal(s.UpdatedAt) {
		t.Errorf("timestamps = %v / %v", s.CreatedAt, s.UpdatedAt)
	}

	got, err := m.Get(ctx, s.ID)
	if err != nil || got == nil || got.Score != 87 {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if got, err := m.Get(ctx, "missing"); got != nil || err != nil {
		t.Errorf("Get missing = %v, %v; want nil, nil", got, err)
	}
}

func TestMemStore_List(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := newTestMemStore()

	users := []*string{ptr("ana"), nil, ptr("ben"), ptr("ana"), ptr("ana")}
	var ids []string
	for i, u := range users {
		s := &Session{ExpectedText: "go", Score: i, UserID: u}
		if err := m.Create(ctx, s); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, s.ID)
	}

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{name: "all newest first", want: []string{ids[4], ids[3], ids[2], ids[1], ids[0]}},
		{name: "limit", opts: ListOptions{Limit: 2}, want: []string{ids[4], ids[3]}},
		{name: "offset", opts: ListOptions{Limit: 2, Offset: 3}, want: []string{ids[1], ids[0]}},
		{name: "offset past end", opts: ListOptions{Offset: 10}, want: []string{}},
		{name: "by user", opts: ListOptions{UserID: "ana"}, want: []string{ids[4], ids[3], ids[0]}},
		{name: "by user paged", opts: ListOptions{UserID: "ana", Limit: 1, Offset: 1}, want: []string{ids[3]}},
		{name: "unknown user", opts: ListOptions{UserID: "cy"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.List(ctx, tt.opts)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if got == nil {
				t.Fatal("List returned nil slice")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d sessions, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("position %d = %s, want %s", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
}
