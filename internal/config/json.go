package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gooutside/internal/flagx"
	"github.com/dmitrijs2005/gooutside/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	DatabaseDSN  string `json:"database_dsn"`
	MediaBackend string `json:"media_backend"`
	MediaDir     string `json:"media_dir"`
	MediaFormat  string `json:"media_format"`

	S3 struct {
		Bucket    string `json:"bucket"`
		Region    string `json:"region"`
		Endpoint  string `json:"endpoint"`
		Prefix    string `json:"prefix"`
		AccessKey string `json:"access_key"`
		SecretKey string `json:"secret_key"`
	} `json:"s3"`

	OllamaURL   string `json:"ollama_url"`
	OllamaModel string `json:"ollama_model"`

	LocationTimeout    timex.Duration `json:"location_timeout"`
	HighAccuracy       bool           `json:"high_accuracy"`
	StaticFix          string         `json:"static_fix"`
	LocationPermission string         `json:"location_permission"`
	GeocoderURL        string         `json:"geocoder_url"`

	AnalysisDelay timex.Duration `json:"analysis_delay"`
	LogLevel      string         `json:"log_level"`
}

func toJson(c *Config) JsonConfig {
	var jc JsonConfig
	jc.DatabaseDSN = c.DatabaseDSN
	jc.MediaBackend = c.MediaBackend
	jc.MediaDir = c.MediaDir
	jc.MediaFormat = c.MediaFormat
	jc.S3.Bucket = c.S3Bucket
	jc.S3.Region = c.S3Region
	jc.S3.Endpoint = c.S3Endpoint
	jc.S3.Prefix = c.S3Prefix
	jc.S3.AccessKey = c.S3AccessKey
	jc.S3.SecretKey = c.S3SecretKey
	jc.OllamaURL = c.OllamaURL
	jc.OllamaModel = c.OllamaModel
	jc.LocationTimeout = timex.Duration{Duration: c.LocationTimeout}
	jc.HighAccuracy = c.HighAccuracy
	jc.StaticFix = c.StaticFix
	jc.LocationPermission = c.LocationPermission
	jc.GeocoderURL = c.GeocoderURL
	jc.AnalysisDelay = timex.Duration{Duration: c.AnalysisDelay}
	jc.LogLevel = c.LogLevel
	return jc
}

func (jc JsonConfig) apply(c *Config) {
	c.DatabaseDSN = jc.DatabaseDSN
	c.MediaBackend = jc.MediaBackend
	c.MediaDir = jc.MediaDir
	c.MediaFormat = jc.MediaFormat
	c.S3Bucket = jc.S3.Bucket
	c.S3Region = jc.S3.Region
	c.S3Endpoint = jc.S3.Endpoint
	c.S3Prefix = jc.S3.Prefix
	c.S3AccessKey = jc.S3.AccessKey
	c.S3SecretKey = jc.S3.SecretKey
	c.OllamaURL = jc.OllamaURL
	c.OllamaModel = jc.OllamaModel
	c.LocationTimeout = jc.LocationTimeout.Duration
	c.HighAccuracy = jc.HighAccuracy
	c.StaticFix = jc.StaticFix
	c.LocationPermission = jc.LocationPermission
	c.GeocoderURL = jc.GeocoderURL
	c.AnalysisDelay = jc.AnalysisDelay.Duration
	c.LogLevel = jc.LogLevel
}

// parseJson overlays cfg with the JSON file named by -c/-config in args.
// Without such a flag cfg is left untouched. The file is decoded on top of
// the current values, so keys it omits keep them.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	jc := toJson(cfg)
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	jc.apply(cfg)
	return nil
}
