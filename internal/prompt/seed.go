package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPrompts are the built-in practice sentences: everyday phrases and
// classic tongue twisters.
var DefaultPrompts = []string{
	"Hello world",
	"How are you today?",
	"The quick brown fox jumps over the lazy dog",
	"She sells seashells by the seashore",
	"Peter Piper picked a peck of pickled peppers",
	"Red leather, yellow leather",
	"I scream, you scream, we all scream for ice cream",
	"How much wood would a woodchuck chuck",
	"Sally sells seashells by the seashore",
	"Round the rough and rugged rock the ragged rascal rudely ran",
	"Where is the nearest grocery store?",
}

// Seed inserts texts into store if it holds no prompts yet. It returns the
// number of prompts created.
func Seed(ctx context.Context, store Store, texts []string) (int, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("prompt: seed: %w", err)
	}
	if n > 0 {
		slog.Debug("prompt store already populated, skipping seed", "count", n)
		return 0, nil
	}
	created := 0
	for _, text := range texts {
		if _, err := store.Create(ctx, text); err != nil {
			return created, fmt.Errorf("prompt: seed %q: %w", text, err)
		}
		created++
	}
	slog.Info("seeded prompt store", "count", created)
	return created, nil
}

// seedFile is the YAML layout read by [LoadSeedFile]:
//
//	prompts:
//	  - "Hello world"
//	  - "How are you today?"
type seedFile struct {
	Prompts []string `yaml:"prompts"`
}

// LoadSeedFile reads prompt texts from a YAML file.
func LoadSeedFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("prompt: open seed file: %w", err)
	}
	defer f.Close()

	var sf seedFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("prompt: decode seed file %q: %w", path, err)
	}
	if len(sf.Prompts) == 0 {
		return nil, fmt.Errorf("prompt: seed file %q lists no prompts", path)
	}
	return sf.Prompts, nil
}
