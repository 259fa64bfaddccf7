package prompt

import (
	"cmp"
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-memory [Store].
type MemStore struct {
	mu      sync.RWMutex
	prompts map[string]Prompt
	now     func() time.Time
	intN    func(n int) int
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		prompts: make(map[string]Prompt),
		now:     time.Now,
		intN:    rand.IntN,
	}
}

func (s *MemStore) List(_ context.Context) ([]Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sorted(), nil
}

// sorted must be called with s.mu held.
func (s *MemStore) sorted() []Prompt {
	out := make([]Prompt, 0, len(s.prompts))
	for _, p := range s.prompts {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Prompt) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (s *MemStore) Get(_ context.Context, id string) (*Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prompts[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *MemStore) Random(_ context.Context) (*Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.prompts) == 0 {
		return nil, nil
	}
	all := s.sorted()
	p := all[s.intN(len(all))]
	return &p, nil
}

func (s *MemStore) Create(_ context.Context, text string) (*Prompt, error) {
	text, err := NormalizeText(text)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p := Prompt{ID: uuid.NewString(), Text: text, CreatedAt: now, UpdatedAt: now}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts[p.ID] = p
	return &p, nil
}

func (s *MemStore) Update(_ context.Context, id, text string) (*Prompt, error) {
	text, err := NormalizeText(text)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prompts[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Text = text
	p.UpdatedAt = s.now().UTC()
	s.prompts[id] = p
	return &p, nil
}

func (s *MemStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.prompts[id]; !ok {
		return ErrNotFound
	}
	delete(s.prompts, id)
	return nil
}

func (s *MemStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.prompts), nil
}
