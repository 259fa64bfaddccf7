package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// LookupFunc resolves an environment variable. [os.LookupEnv] satisfies it.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg with the container-style environment variables
// PORT, DATABASE_URL, ENVIRONMENT, ML_SERVICE_URL, DEBUG, CORS_ORIGINS and
// MAX_UPLOAD_SIZE. Unset or empty variables leave cfg untouched. A nil lookup
// uses [os.LookupEnv]. The caller should [Validate] cfg afterwards.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	var errs []error
	if v, ok := get("PORT"); ok {
		if _, err := strconv.ParseUint(v, 10, 16); err != nil {
			errs = append(errs, fmt.Errorf("PORT %q is not a valid port", v))
		} else {
			cfg.Server.ListenAddr = ":" + v
		}
	}
	if v, ok := get("DATABASE_URL"); ok {
		cfg.Storage.PostgresDSN = v
	}
	if v, ok := get("ENVIRONMENT"); ok {
		cfg.Server.Environment = Environment(strings.ToLower(v))
	}
	if v, ok := get("ML_SERVICE_URL"); ok {
		cfg.Analysis.RemoteURL = strings.TrimSuffix(v, "/")
	}
	if v, ok := get("DEBUG"); ok {
		switch strings.ToLower(v) {
		case "1", "true", "yes":
			cfg.Server.LogLevel = LogDebug
		case "0", "false", "no":
		default:
			errs = append(errs, fmt.Errorf("DEBUG %q is not a boolean", v))
		}
	}
	if v, ok := get("CORS_ORIGINS"); ok {
		var origins []string
		for o := range strings.SplitSeq(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}
	if v, ok := get("MAX_UPLOAD_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("MAX_UPLOAD_SIZE %q must be a positive byte count", v))
		} else {
			cfg.Server.MaxUploadBytes = n
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}

// EnsureSSLMode appends an sslmode parameter to a Postgres DSN that has
// none: "require" in production, "disable" otherwise. Key/value style DSNs
// get a space-separated parameter, URLs a query parameter.
func EnsureSSLMode(dsn string, env Environment) string {
	if dsn == "" || strings.Contains(dsn, "sslmode=") {
		return dsn
	}
	mode := "disable"
	if env == EnvProduction {
		mode = "require"
	}
	if !strings.Contains(dsn, "://") {
		return dsn + " sslmode=" + mode
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "sslmode=" + mode
}
