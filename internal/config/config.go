package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration loaded from config.yaml.
type Config struct {
	ScanPath   string   `yaml:"scan_path"   json:"scan_path"`
	Extensions []string `yaml:"extensions"  json:"extensions"`
	Recursive  *bool    `yaml:"recursive"   json:"recursive"`
	Method     string   `yaml:"method"      json:"method"`
	Workers    int      `yaml:"workers"     json:"workers"`
	Schedule   string   `yaml:"schedule"    json:"schedule"`
	ScanPaused bool     `yaml:"scan_paused" json:"scan_paused"`
	HTTPAddr   string   `yaml:"http_addr"   json:"-"`
	LogLevel   string   `yaml:"log_level"   json:"-"`

	// ModelPath points at an ONNX embedding model; required only for the
	// siamese method.
	ModelPath      string `yaml:"model_path"       json:"-"`
	ModelInputSize int    `yaml:"model_input_size" json:"model_input_size"`

	Thresholds Thresholds `yaml:"thresholds" json:"thresholds"`
}

// Thresholds holds the per-method match cutoffs. None of the shipped values
// have a documented derivation, so they are tunable rather than baked in.
type Thresholds struct {
	PHashDistance  int     `yaml:"phash_distance"   json:"phash_distance"`
	LoweRatio      float64 `yaml:"lowe_ratio"       json:"lowe_ratio"`
	ORBMinMatches  int     `yaml:"orb_min_matches"  json:"orb_min_matches"`
	ORBRatio       float64 `yaml:"orb_ratio"        json:"orb_ratio"`
	SIFTMinMatches int     `yaml:"sift_min_matches" json:"sift_min_matches"`
	SIFTRatio      float64 `yaml:"sift_ratio"       json:"sift_ratio"`
	SSIMScore      float64 `yaml:"ssim_score"       json:"ssim_score"`
	Cosine         float64 `yaml:"cosine"           json:"cosine"`
}

// DefaultThresholds returns the standard cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PHashDistance:  5,
		LoweRatio:      0.75,
		ORBMinMatches:  10,
		ORBRatio:       0.25,
		SIFTMinMatches: 10,
		SIFTRatio:      0.20,
		SSIMScore:      0.90,
		Cosine:         0.95,
	}
}

// DefaultExtensions is the set of image extensions scanned when the config
// does not name any.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".bmp", ".gif"}

// applyDefaults fills zero/empty fields with sensible defaults.
func (c *Config) applyDefaults() {
	if len(c.Extensions) == 0 {
		c.Extensions = append([]string(nil), DefaultExtensions...)
	}
	if c.Recursive == nil {
		t := true
		c.Recursive = &t
	}
	if c.Method == "" {
		c.Method = "exact"
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.ModelInputSize == 0 {
		c.ModelInputSize = 224
	}

	def := DefaultThresholds()
	if c.Thresholds.PHashDistance == 0 {
		c.Thresholds.PHashDistance = def.PHashDistance
	}
	if c.Thresholds.LoweRatio == 0 {
		c.Thresholds.LoweRatio = def.LoweRatio
	}
	if c.Thresholds.ORBMinMatches == 0 {
		c.Thresholds.ORBMinMatches = def.ORBMinMatches
	}
	if c.Thresholds.ORBRatio == 0 {
		c.Thresholds.ORBRatio = def.ORBRatio
	}
	if c.Thresholds.SIFTMinMatches == 0 {
		c.Thresholds.SIFTMinMatches = def.SIFTMinMatches
	}
	if c.Thresholds.SIFTRatio == 0 {
		c.Thresholds.SIFTRatio = def.SIFTRatio
	}
	if c.Thresholds.SSIMScore == 0 {
		c.Thresholds.SSIMScore = def.SSIMScore
	}
	if c.Thresholds.Cosine == 0 {
		c.Thresholds.Cosine = def.Cosine
	}
}

// Load reads and parses the YAML config file at path.
// If the file does not exist, Load returns a default Config so the server
// can start without a config file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		var cfg Config
		cfg.applyDefaults()
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}
