package prompt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSeed_EmptyStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemStore()

	n, err := Seed(ctx, s, DefaultPrompts)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if n != len(DefaultPrompts) || len(DefaultPrompts) != 11 {
		t.Errorf("seeded %d, want 11", n)
	}

	again, err := Seed(ctx, s, DefaultPrompts)
	if err != nil || again != 0 {
		t.Errorf("second Seed = %d, %v; want 0, nil", again, err)
	}
	if c, _ := s.Count(ctx); c != 11 {
		t.Errorf("Count = %d, want 11", c)
	}
}

func TestSeed_SkipsPopulatedStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemStore()
	if _, err := s.Create(ctx, "Custom prompt"); err != nil {
		t.Fatal(err)
	}
	if n, err := Seed(ctx, s, DefaultPrompts); err != nil || n != 0 {
		t.Errorf("Seed = %d, %v; want 0, nil", n, err)
	}
}

func TestSeed_InvalidEntry(t *testing.T) {
	t.Parallel()
	n, err := Seed(context.Background(), NewMemStore(), []string{"ok", "  "})
	if !errors.Is(err, ErrEmptyText) {
		t.Errorf("err = %v, want ErrEmptyText", err)
	}
	if n != 1 {
		t.Errorf("created = %d, want 1", n)
	}
}

func TestLoadSeedFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	good := filepath.Join(dir, "prompts.yaml")
	if err := os.WriteFile(good, []byte("prompts:\n  - Guten Morgen\n  - \"Wie geht's?\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	texts, err := LoadSeedFile(good)
	if err != nil {
		t.Fatalf("LoadSeedFile: %v", err)
	}
	if len(texts) != 2 || texts[1] != "Wie geht's?" {
		t.Errorf("texts = %q", texts)
	}

	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, []byte("prompts: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSeedFile(empty); err == nil {
		t.Error("expected error for a file without prompts")
	}

	unknown := filepath.Join(dir, "unknown.yaml")
	if err := os.WriteFile(unknown, []byte("sentences:\n  - hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSeedFile(unknown); err == nil {
		t.Error("expected error for an unknown key")
	}

	if _, err := LoadSeedFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
}
