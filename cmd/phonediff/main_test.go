package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	phonemizermock "github.com/MrWong99/speaktrainer/pkg/provider/phonemizer/mock"
)

func TestRun(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opts     options
		expected string
		actual   string
		want     string
	}{
		{
			name:     "substitution",
			opts:     options{denominator: "diff"},
			expected: "k æ t",
			actual:   "k æ p",
			want:     "✅ k ✅ æ ❌ t→p\nscore: 66% (2 match, 1 substitute, 0 insert, 0 delete)\n",
		},
		{
			name:     "expected denominator ignores insertions",
			opts:     options{denominator: "expected"},
			expected: "g oʊ",
			actual:   "g oʊ n aʊ",
			want:     "✅ g ✅ oʊ ❌ +n ❌ +aʊ\nscore: 100% (2 match, 0 substitute, 2 insert, 0 delete)\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			if err := run(context.Background(), &out, tt.opts, nil, tt.expected, tt.actual); err != nil {
				t.Fatalf("run: %v", err)
			}
			if out.String() != tt.want {
				t.Errorf("output = %q, want %q", out.String(), tt.want)
			}
		})
	}
}

func TestRun_TextJSON(t *testing.T) {
	t.Parallel()

	ph := &phonemizermock.Provider{Table: map[string]string{
		"cat": "k_ˈæ_t",
		"cap": "k_ˈæ_p",
	}}
	var out bytes.Buffer
	opts := options{text: true, lang: "en-us", jsonOut: true, ignoreStress: true}
	if err := run(context.Background(), &out, opts, ph, "cat", "cap"); err != nil {
		t.Fatalf("run: %v", err)
	}

	var got struct {
		Expected string `json:"expected"`
		Score    int    `json:"score"`
		DiffText string `json:"diff_text"`
		Words    *struct {
			Pairs []struct {
				Expected string `json:"expected"`
				Actual   string `json:"actual"`
			} `json:"pairs"`
		} `json:"word_comparison"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, out.String())
	}
	if got.Expected != "k_ˈæ_t" || got.Score != 66 || got.DiffText != "✅ k ✅ æ ❌ t→p" {
		t.Errorf("got %+v", got)
	}
	if got.Words == nil || len(got.Words.Pairs) != 1 || got.Words.Pairs[0].Actual != "cap" {
		t.Errorf("word comparison = %+v, want one cat/cap pair", got.Words)
	}
	if len(ph.Calls) != 2 {
		t.Fatalf("phonemizer calls = %d, want 2", len(ph.Calls))
	}
	if ph.Calls[0].Language != "en-us" {
		t.Errorf("language = %q, want en-us", ph.Calls[0].Language)
	}
}

func TestRun_Errors(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	if err := run(context.Background(), &out, options{denominator: "actual"}, nil, "a", "b"); err == nil {
		t.Error("expected error for unknown denominator")
	}
	if err := run(context.Background(), &out, options{maxCells: 4}, nil, "a b c", "a b c"); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("err = %v, want input too large", err)
	}

	ph := &phonemizermock.Provider{Err: errors.New("espeak-ng: not found")}
	if err := run(context.Background(), &out, options{text: true}, ph, "cat", "cap"); err == nil {
		t.Error("expected phonemizer error")
	}
}
