package config_test

import (
	"strings"
	"testing"

	"github.com/MrWong99/speaktrainer/internal/config"
)

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "invalid log level",
			yaml:    "server:\n  log_level: verbose\n",
			wantErr: "server.log_level",
		},
		{
			name:    "invalid environment",
			yaml:    "server:\n  environment: staging\n",
			wantErr: "server.environment",
		},
		{
			name:    "tls without key",
			yaml:    "server:\n  tls:\n    cert_file: cert.pem\n",
			wantErr: "key_file",
		},
		{
			name:    "negative upload size",
			yaml:    "server:\n  max_upload_bytes: -1\n",
			wantErr: "max_upload_bytes",
		},
		{
			name:    "bad cors origin",
			yaml:    "server:\n  cors_origins: [\"localhost:3000\"]\n",
			wantErr: "cors_origins[0]",
		},
		{
			name:    "unnamed stt fallback",
			yaml:    "providers:\n  stt_fallbacks:\n    - model: base\n",
			wantErr: "stt_fallbacks[0].name",
		},
		{
			name:    "unnamed phonemizer fallback",
			yaml:    "providers:\n  phonemizer_fallbacks:\n    - model: x\n",
			wantErr: "phonemizer_fallbacks[0].name",
		},
		{
			name:    "remote url without scheme",
			yaml:    "analysis:\n  remote_url: ml-service:8001\n",
			wantErr: "analysis.remote_url",
		},
		{
			name:    "unknown denominator",
			yaml:    "scoring:\n  denominator: actual\n",
			wantErr: "scoring.denominator",
		},
		{
			name:    "negative max cells",
			yaml:    "scoring:\n  max_cells: -5\n",
			wantErr: "scoring.max_cells",
		},
		{
			name:    "negative connect attempts",
			yaml:    "storage:\n  connect_attempts: -1\n",
			wantErr: "storage.connect_attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
  environment: qa
scoring:
  denominator: nope
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"log_level", "environment", "denominator"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error should mention %q, got: %v", want, err)
		}
	}
}

func TestValidate_UnknownProviderNameOnlyWarns(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  stt:
    name: my-custom-stt
  phonemizer:
    name: festival
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err != nil {
		t.Fatalf("unknown provider names should not fail validation: %v", err)
	}
}

func TestValidate_RemoteAnalysis(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader("analysis:\n  remote_url: http://ml:8001\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Analysis.RemoteURL != "http://ml:8001" {
		t.Errorf("remote_url = %q", cfg.Analysis.RemoteURL)
	}
}
