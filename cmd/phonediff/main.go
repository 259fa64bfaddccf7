// Command phonediff compares two phonetic transcriptions offline and prints
// the annotated diff and score.
//
// Usage:
//
//	phonediff [flags] EXPECTED ACTUAL
//	phonediff -text -lang en-us "Hello world" "Hello word"
//
// With -text both arguments are plain text. They are converted to IPA with
// espeak-ng and compared the way the server compares a prompt with a
// transcription, including the word-level comparison.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MrWong99/speaktrainer/internal/analysis"
	"github.com/MrWong99/speaktrainer/pkg/phoneme"
	"github.com/MrWong99/speaktrainer/pkg/provider/phonemizer"
	"github.com/MrWong99/speaktrainer/pkg/provider/phonemizer/espeak"
)

type options struct {
	text         bool
	lang         string
	espeakBinary string
	denominator  string
	ignoreStress bool
	maxCells     int
	jsonOut      bool
}

// output is the -json document.
type output struct {
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	phoneme.Result
	DiffText string                   `json:"diff_text"`
	Words    *analysis.WordComparison `json:"word_comparison,omitempty"`
}

func main() {
	var o options
	flag.BoolVar(&o.text, "text", false, "treat arguments as plain text and phonemize them with espeak-ng")
	flag.StringVar(&o.lang, "lang", "en-us", "espeak-ng voice for -text")
	flag.StringVar(&o.espeakBinary, "espeak", "espeak-ng", "espeak-ng executable for -text")
	flag.StringVar(&o.denominator, "denominator", "diff", `score denominator: "diff" or "expected"`)
	flag.BoolVar(&o.ignoreStress, "ignore-stress", false, "drop stress markers before comparing")
	flag.IntVar(&o.maxCells, "max-cells", phoneme.DefaultMaxCells, "alignment table budget; 0 disables the limit")
	flag.BoolVar(&o.jsonOut, "json", false, "print the result as JSON")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: phonediff [flags] EXPECTED ACTUAL\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	var ph phonemizer.Provider
	if o.text {
		ph = espeak.New(espeak.WithBinary(o.espeakBinary))
	}
	if err := run(context.Background(), os.Stdout, o, ph, flag.Arg(0), flag.Arg(1)); err != nil {
		fmt.Fprintf(os.Stderr, "phonediff: %v\n", err)
		os.Exit(1)
	}
}

// run compares expected and actual and writes the report to w. ph is used
// only when o.text is set.
func run(ctx context.Context, w io.Writer, o options, ph phonemizer.Provider, expected, actual string) error {
	d, err := phoneme.ParseDenominator(o.denominator)
	if err != nil {
		return err
	}

	c := phoneme.NewComparer(
		phoneme.WithDenominator(d),
		phoneme.WithTokenizer(phoneme.Tokenizer{IgnoreStress: o.ignoreStress}),
		phoneme.WithMaxCells(o.maxCells),
	)

	var (
		res   phoneme.Result
		words *analysis.WordComparison
	)
	if o.text {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		svc := analysis.NewService(nil, ph,
			analysis.WithComparer(c),
			analysis.WithLanguage(o.lang),
			analysis.WithProviderNames("", "espeak"),
		)
		r, err := svc.CompareText(ctx, expected, actual, o.lang)
		if err != nil {
			return err
		}
		expected, actual = r.ExpectedPhonemes, r.ActualPhonemes
		res = phoneme.Result{Diff: r.Diff, Score: r.Score, Counts: r.Counts}
		words = r.WordComparison
	} else if res, err = c.Compare(expected, actual); err != nil {
		return err
	}

	if o.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(output{Expected: expected, Actual: actual, Result: res, DiffText: res.Diff.String(), Words: words})
	}

	if o.text {
		fmt.Fprintf(w, "expected: %s\nactual:   %s\n", expected, actual)
	}
	fmt.Fprintln(w, res.Diff.String())
	fmt.Fprintf(w, "score: %d%% (%d match, %d substitute, %d insert, %d delete)\n",
		res.Score, res.Counts.Matches, res.Counts.Substitutions, res.Counts.Insertions, res.Counts.Deletions)
	return nil
}
