// Package espeak provides a phonemizer backed by the espeak-ng command-line
// tool. Each call runs
//
//	espeak-ng -q --ipa=3 -v <voice> --stdin
//
// and feeds the text on stdin. With --ipa=3 espeak-ng separates phonemes with
// '_' and words with a space; one output line is produced per clause.
package espeak

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/MrWong99/speaktrainer/pkg/provider/phonemizer"
)

const (
	defaultBinary = "espeak-ng"
	defaultVoice  = "en-us"
)

// runFunc executes the binary with args, feeding stdin, and returns stdout.
type runFunc func(ctx context.Context, binary string, args []string, stdin string) ([]byte, error)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithBinary sets the espeak-ng executable name or path. Defaults to "espeak-ng".
func WithBinary(path string) Option {
	return func(p *Provider) { p.binary = path }
}

// WithVoice sets the voice used when Phonemize is called without a language.
// Defaults to "en-us".
func WithVoice(voice string) Option {
	return func(p *Provider) { p.voice = voice }
}

// Provider implements phonemizer.Provider by shelling out to espeak-ng.
type Provider struct {
	binary string
	voice  string
	run    runFunc
}

var _ phonemizer.Provider = (*Provider)(nil)

// New returns a Provider. It does not check that the binary exists; call
// [Provider.Check] for that.
func New(opts ...Option) *Provider {
	p := &Provider{
		binary: defaultBinary,
		voice:  defaultVoice,
		run:    runCommand,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Check reports whether the configured binary can be found.
func (p *Provider) Check(context.Context) error {
	if _, err := exec.LookPath(p.binary); err != nil {
		return fmt.Errorf("espeak: %w", err)
	}
	return nil
}

// Phonemize implements phonemizer.Provider.
func (p *Provider) Phonemize(ctx context.Context, text, language string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	voice := voiceFor(language)
	if voice == "" {
		voice = p.voice
	}

	out, err := p.run(ctx, p.binary, []string{"-q", "--ipa=3", "-v", voice, "--stdin"}, text)
	if err != nil {
		return "", fmt.Errorf("espeak: phonemize %q: %w", text, err)
	}
	return joinClauses(string(out)), nil
}

// voiceFor maps a BCP-47 tag to an espeak-ng voice name ("en-US" → "en-us").
func voiceFor(language string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(language), "_", "-"))
}

// joinClauses trims each output line and joins the non-empty ones with a space.
func joinClauses(out string) string {
	var parts []string
	for line := range strings.Lines(out) {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}

func runCommand(ctx context.Context, binary string, args []string, stdin string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, errors.Join(err, errors.New(msg))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
