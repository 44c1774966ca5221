package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gooutside/internal/flagx"
)

var knownFlags = []string{
	"-d", "-media", "-m", "-f",
	"-s3-bucket", "-s3-region", "-s3-endpoint", "-s3-prefix",
	"-o", "-model",
	"-lt", "-ha", "-fix", "-perm", "-g",
	"-delay", "-l",
}

// parseFlags populates cfg from the flags in args. Flags it does not know are
// filtered out with flagx.FilterArgs so other components may define their own.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("gooutside", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "SQLite database DSN")
	fs.StringVar(&cfg.MediaBackend, "media", cfg.MediaBackend, "media backend: file or s3")
	fs.StringVar(&cfg.MediaDir, "m", cfg.MediaDir, "media directory")
	fs.StringVar(&cfg.MediaFormat, "f", cfg.MediaFormat, "photo format: jpeg or webp")
	fs.StringVar(&cfg.S3Bucket, "s3-bucket", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3Region, "s3-region", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3Endpoint, "s3-endpoint", cfg.S3Endpoint, "S3-compatible endpoint URL")
	fs.StringVar(&cfg.S3Prefix, "s3-prefix", cfg.S3Prefix, "S3 key prefix")
	fs.StringVar(&cfg.OllamaURL, "o", cfg.OllamaURL, "Ollama server URL")
	fs.StringVar(&cfg.OllamaModel, "model", cfg.OllamaModel, "Ollama vision model")
	fs.DurationVar(&cfg.LocationTimeout, "lt", cfg.LocationTimeout, "location fix timeout")
	fs.BoolVar(&cfg.HighAccuracy, "ha", cfg.HighAccuracy, "request high-accuracy fixes")
	fs.StringVar(&cfg.StaticFix, "fix", cfg.StaticFix, "static position lat,lon")
	fs.StringVar(&cfg.LocationPermission, "perm", cfg.LocationPermission, "location permission: fine, coarse or none")
	fs.StringVar(&cfg.GeocoderURL, "g", cfg.GeocoderURL, "Nominatim URL, or off")
	fs.DurationVar(&cfg.AnalysisDelay, "delay", cfg.AnalysisDelay, "pause before the verdict is shown")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
