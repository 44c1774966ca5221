// Package config loads runtime configuration for the GoOutside diary.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-d string        SQLite database DSN
//	-media string    media backend: file or s3
//	-m string        media directory (file backend)
//	-f string        photo format: jpeg or webp
//	-s3-bucket, -s3-region, -s3-endpoint, -s3-prefix string
//	-o string        Ollama server URL
//	-model string    Ollama vision model
//	-lt duration     location fix timeout
//	-ha bool         request high-accuracy fixes
//	-fix string      static position "lat,lon"
//	-perm string     location permission: fine, coarse or none
//	-g string        Nominatim URL ("off" disables reverse geocoding)
//	-delay duration  pause before the verdict is shown
//	-l string        log level: debug, info, warn, error
//
// # JSON schema
//
// Durations use timex.Duration, so they can be strings like "15s" or integer
// nanoseconds. Keys missing from the file keep their previous value.
//
//	{
//	  "database_dsn": "gooutside.db",
//	  "media_backend": "file",
//	  "media_dir": "photos",
//	  "media_format": "jpeg",
//	  "s3": {"bucket": "diary", "region": "us-east-1", "endpoint": "http://localhost:9000",
//	         "prefix": "photos", "access_key": "minio", "secret_key": "minio123"},
//	  "ollama_url": "http://localhost:11434",
//	  "ollama_model": "llava",
//	  "location_timeout": "15s",
//	  "high_accuracy": true,
//	  "static_fix": "52.2297,21.0122",
//	  "location_permission": "fine",
//	  "geocoder_url": "https://nominatim.openstreetmap.org",
//	  "analysis_delay": "1500ms",
//	  "log_level": "info"
//	}
//
// S3 credentials are only read from JSON; when absent the default AWS
// credential chain is used.
package config
