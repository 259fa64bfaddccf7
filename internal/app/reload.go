package app

import (
	"log/slog"

	"github.com/MrWong99/speaktrainer/internal/config"
	"github.com/MrWong99/speaktrainer/pkg/phoneme"
)

// NewComparer builds the phoneme comparer selected by sc.
func NewComparer(sc config.ScoringConfig) (*phoneme.Comparer, error) {
	d, err := phoneme.ParseDenominator(sc.Denominator)
	if err != nil {
		return nil, err
	}
	opts := []phoneme.Option{
		phoneme.WithDenominator(d),
		phoneme.WithTokenizer(phoneme.Tokenizer{IgnoreStress: sc.IgnoreStress}),
	}
	if sc.MaxCells > 0 {
		opts = append(opts, phoneme.WithMaxCells(sc.MaxCells))
	}
	return phoneme.NewComparer(opts...), nil
}

// ApplyDiff applies the hot-reloadable part of a config change. Settings
// that need a restart are logged and otherwise ignored.
func (a *App) ApplyDiff(d config.ConfigDiff) {
	if d.LogLevelChanged {
		a.level.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.CORSChanged {
		a.cors.SetOrigins(d.NewCORSOrigins)
		slog.Info("cors origins changed", "origins", d.NewCORSOrigins)
	}
	if d.ScoringChanged {
		c, err := NewComparer(d.NewScoring)
		if err != nil {
			slog.Warn("ignoring invalid scoring config", "err", err)
		} else {
			a.comparer.Store(c)
			if a.local != nil {
				a.local.SetComparer(c)
			}
			slog.Info("scoring policy changed",
				"denominator", c.Denominator().String(),
				"ignore_stress", d.NewScoring.IgnoreStress,
				"max_cells", c.MaxCells(),
			)
		}
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes require a restart to take effect", "settings", d.RestartRequired)
	}
}

func slogLevel(l config.LogLevel) slog.Level {
	switch l {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
