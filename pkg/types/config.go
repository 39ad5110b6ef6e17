package types

import "time"

// StoreConfig holds settings for the curation database.
type StoreConfig struct {
	// Path is the SQLite database file (default "data/curation.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// IngestConfig holds settings for batch ingestion.
type IngestConfig struct {
	// Inbox is the directory scanned for record documents (default "inbox").
	Inbox string `json:"inbox" yaml:"inbox" mapstructure:"inbox"`

	// Workers bounds how many documents are parsed concurrently (default 4).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// ExportFormat selects the claim-graph serialization.
type ExportFormat string

const (
	FormatTurtle   ExportFormat = "turtle"
	FormatNTriples ExportFormat = "ntriples"
	FormatJSONLD   ExportFormat = "jsonld"
)

// ExportConfig holds settings for the provenance exporter.
type ExportConfig struct {
	// Dir is the directory for timestamped export files (default "data/exports").
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// Format is the default serialization: turtle, ntriples, or jsonld.
	Format ExportFormat `json:"format" yaml:"format" mapstructure:"format"`

	// Provenance wraps each accepted assertion in an annotated axiom.
	Provenance bool `json:"provenance" yaml:"provenance" mapstructure:"provenance"`

	// Prefixes adds or overrides CURIE prefix expansions.
	Prefixes map[string]string `json:"prefixes,omitempty" yaml:"prefixes,omitempty" mapstructure:"prefixes"`
}

// AuthConfig holds settings for the curator allow-list.
type AuthConfig struct {
	// CuratorsFile is the YAML allow-list (default "curators.yaml").
	CuratorsFile string `json:"curators_file" yaml:"curators_file" mapstructure:"curators_file"`

	// CacheTTL bounds how long a loaded allow-list is trusted (default 60s).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// IdentityConfig holds ORCID OAuth client settings.
type IdentityConfig struct {
	ClientID     string `json:"client_id,omitempty" yaml:"client_id,omitempty" mapstructure:"client_id"`
	ClientSecret string `json:"client_secret,omitempty" yaml:"client_secret,omitempty" mapstructure:"client_secret"`
	RedirectURL  string `json:"redirect_url" yaml:"redirect_url" mapstructure:"redirect_url"`

	// Sandbox selects the ORCID sandbox endpoints (default true).
	Sandbox bool `json:"sandbox" yaml:"sandbox" mapstructure:"sandbox"`

	// MaxRetries is the number of retries on HTTP 429 from the token endpoint.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// LogConfig selects the logger mode: "dev" or "prod".
type LogConfig struct {
	Mode string `json:"mode" yaml:"mode" mapstructure:"mode"`
}

// Config groups all settings for the sieve CLI.
type Config struct {
	Store    StoreConfig    `json:"store" yaml:"store" mapstructure:"store"`
	Ingest   IngestConfig   `json:"ingest" yaml:"ingest" mapstructure:"ingest"`
	Export   ExportConfig   `json:"export" yaml:"export" mapstructure:"export"`
	Auth     AuthConfig     `json:"auth" yaml:"auth" mapstructure:"auth"`
	Identity IdentityConfig `json:"identity" yaml:"identity" mapstructure:"identity"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultConfig returns the settings used when no config file is present.
func DefaultConfig() Config {
	return Config{
		Store:  StoreConfig{Path: "data/curation.db"},
		Ingest: IngestConfig{Inbox: "inbox", Workers: 4},
		Export: ExportConfig{Dir: "data/exports", Format: FormatTurtle, Provenance: true},
		Auth:   AuthConfig{CuratorsFile: "curators.yaml", CacheTTL: 60 * time.Second},
		Identity: IdentityConfig{
			RedirectURL: "http://localhost:8501/",
			Sandbox:     true,
			MaxRetries:  3,
		},
		Log: LogConfig{Mode: "dev"},
	}
}
