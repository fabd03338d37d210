package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rizkyfirmansyah/glad-alerts/internal/progress"
	"github.com/rizkyfirmansyah/glad-alerts/internal/retry"
)

// StorageDrive selects Google Drive as the export destination.
const StorageDrive = "drive"

// Config defines configuration for the gladalerts CLI.
type Config struct {
	// Credentials
	ServiceAccount string `yaml:"service_account"`
	KeyFile        string `yaml:"key_file"`
	Project        string `yaml:"project"`

	// Remote storage
	Storage  string `yaml:"storage"`
	Folder   string `yaml:"folder"`
	FolderID string `yaml:"folder_id"`
	PageSize int    `yaml:"page_size"`
	Workers  int    `yaml:"workers"`

	// Folders are drained after Folder, in order.
	Folders []string `yaml:"folders"`

	// ChunkSize is the read size for a single download chunk.
	ChunkSize int64 `yaml:"chunk_size"`

	// Local paths
	TempDownload string `yaml:"temp_download"`
	FinalPath    string `yaml:"final_path"`
	FinalName    string `yaml:"final_name"`
	OutputFormat string `yaml:"output_format"`
	ReportFormat string `yaml:"report_format"`
	LogFile      string `yaml:"log_file"`

	// Alert selection
	AOI           string  `yaml:"aoi"`
	AOIName       string  `yaml:"aoi_name"`
	Collection    string  `yaml:"collection"`
	MaxDays       int     `yaml:"max_days"`
	Year          int     `yaml:"year"`
	BandConf      string  `yaml:"band_conf"`
	BandAlertDate string  `yaml:"band_alert_date"`
	Scale         float64 `yaml:"scale"`
	CRS           string  `yaml:"crs"`

	RemoveDuplicates bool          `yaml:"remove_duplicates"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	MaxWait          time.Duration `yaml:"max_wait"`
	NotifyURL        string        `yaml:"notify_url"`
	Progress         bool          `yaml:"progress"`

	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig defines retry behavior shared by every remote call.
type RetryConfig struct {
	Attempts   int           `yaml:"attempts"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
	Multiplier float64       `yaml:"multiplier"`
	Jitter     bool          `yaml:"jitter"`
}

// Policy converts the configuration into a retry.Policy.
func (r RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		Attempts:   r.Attempts,
		Backoff:    r.Backoff,
		MaxBackoff: r.MaxBackoff,
		Multiplier: r.Multiplier,
		Jitter:     r.Jitter,
	}
}

// Default returns a Config with sensible defaults.
func Default() Config {
	p := retry.DefaultPolicy()
	return Config{
		Storage:          StorageDrive,
		Folder:           "GLAD",
		PageSize:         10,
		Workers:          runtime.NumCPU(),
		ChunkSize:        100 * 1024 * 1024, // 100MiB, the Drive media chunk default
		TempDownload:     "temp_download",
		FinalPath:        ".",
		FinalName:        "glad_alerts",
		OutputFormat:     "shapefile",
		ReportFormat:     "none",
		Collection:       "projects/glad/alert/UpdResult",
		MaxDays:          3,
		BandConf:         "conf",
		BandAlertDate:    "alertDate",
		CRS:              "EPSG:4326",
		RemoveDuplicates: true,
		PollInterval:     30 * time.Second,
		Retry: RetryConfig{
			Attempts:   p.Attempts,
			Backoff:    p.Backoff,
			MaxBackoff: p.MaxBackoff,
			Multiplier: p.Multiplier,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string sizes and durations.
type yamlConfig struct {
	ServiceAccount   string          `yaml:"service_account"`
	KeyFile          string          `yaml:"key_file"`
	Project          string          `yaml:"project"`
	Storage          string          `yaml:"storage"`
	Folder           string          `yaml:"folder"`
	FolderID         string          `yaml:"folder_id"`
	Folders          []string        `yaml:"folders"`
	PageSize         int             `yaml:"page_size"`
	Workers          int             `yaml:"workers"`
	ChunkSize        string          `yaml:"chunk_size"`
	TempDownload     string          `yaml:"temp_download"`
	FinalPath        string          `yaml:"final_path"`
	FinalName        string          `yaml:"final_name"`
	OutputFormat     string          `yaml:"output_format"`
	ReportFormat     string          `yaml:"report_format"`
	LogFile          string          `yaml:"log_file"`
	AOI              string          `yaml:"aoi"`
	AOIName          string          `yaml:"aoi_name"`
	Collection       string          `yaml:"collection"`
	MaxDays          int             `yaml:"max_days"`
	Year             int             `yaml:"year"`
	BandConf         string          `yaml:"band_conf"`
	BandAlertDate    string          `yaml:"band_alert_date"`
	Scale            float64         `yaml:"scale"`
	CRS              string          `yaml:"crs"`
	RemoveDuplicates *bool           `yaml:"remove_duplicates"`
	PollInterval     string          `yaml:"poll_interval"`
	MaxWait          string          `yaml:"max_wait"`
	NotifyURL        string          `yaml:"notify_url"`
	Progress         bool            `yaml:"progress"`
	Retry            yamlRetryConfig `yaml:"retry"`
}

type yamlRetryConfig struct {
	Attempts   int     `yaml:"attempts"`
	Backoff    string  `yaml:"backoff"`
	MaxBackoff string  `yaml:"max_backoff"`
	Multiplier float64 `yaml:"multiplier"`
	Jitter     bool    `yaml:"jitter"`
}

// LoadFromFile loads configuration from a YAML file on top of Default.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()
	override := Config{
		ServiceAccount: yc.ServiceAccount,
		KeyFile:        yc.KeyFile,
		Project:        yc.Project,
		Storage:        yc.Storage,
		Folder:         yc.Folder,
		FolderID:       yc.FolderID,
		Folders:        yc.Folders,
		PageSize:       yc.PageSize,
		Workers:        yc.Workers,
		TempDownload:   yc.TempDownload,
		FinalPath:      yc.FinalPath,
		FinalName:      yc.FinalName,
		OutputFormat:   yc.OutputFormat,
		ReportFormat:   yc.ReportFormat,
		LogFile:        yc.LogFile,
		AOI:            yc.AOI,
		AOIName:        yc.AOIName,
		Collection:     yc.Collection,
		MaxDays:        yc.MaxDays,
		Year:           yc.Year,
		BandConf:       yc.BandConf,
		BandAlertDate:  yc.BandAlertDate,
		Scale:          yc.Scale,
		CRS:            yc.CRS,
		NotifyURL:      yc.NotifyURL,
		Progress:       yc.Progress,
		Retry: RetryConfig{
			Attempts:   yc.Retry.Attempts,
			Multiplier: yc.Retry.Multiplier,
			Jitter:     yc.Retry.Jitter,
		},
	}

	if yc.ChunkSize != "" {
		size, err := progress.ParseBytes(yc.ChunkSize)
		if err != nil {
			return Config{}, fmt.Errorf("parse chunk_size: %w", err)
		}
		override.ChunkSize = size
	}
	durations := []struct {
		name string
		src  string
		dst  *time.Duration
	}{
		{"poll_interval", yc.PollInterval, &override.PollInterval},
		{"max_wait", yc.MaxWait, &override.MaxWait},
		{"retry.backoff", yc.Retry.Backoff, &override.Retry.Backoff},
		{"retry.max_backoff", yc.Retry.MaxBackoff, &override.Retry.MaxBackoff},
	}
	for _, d := range durations {
		if d.src == "" {
			continue
		}
		v, err := time.ParseDuration(d.src)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = v
	}

	cfg = cfg.Merge(override)
	if yc.RemoveDuplicates != nil {
		cfg.RemoveDuplicates = *yc.RemoveDuplicates
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from path into the process environment.
// Variables already set are left alone. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the GLAD_ prefix.
func (c *Config) LoadFromEnv() error {
	strs := map[string]*string{
		"GLAD_SERVICE_ACCOUNT": &c.ServiceAccount,
		"GLAD_KEY_FILE":        &c.KeyFile,
		"GLAD_PROJECT":         &c.Project,
		"GLAD_STORAGE":         &c.Storage,
		"GLAD_FOLDER":          &c.Folder,
		"GLAD_FOLDER_ID":       &c.FolderID,
		"GLAD_TEMP_DOWNLOAD":   &c.TempDownload,
		"GLAD_FINAL_PATH":      &c.FinalPath,
		"GLAD_FINAL_NAME":      &c.FinalName,
		"GLAD_OUTPUT_FORMAT":   &c.OutputFormat,
		"GLAD_REPORT_FORMAT":   &c.ReportFormat,
		"GLAD_LOG_FILE":        &c.LogFile,
		"GLAD_AOI":             &c.AOI,
		"GLAD_AOI_NAME":        &c.AOIName,
		"GLAD_COLLECTION":      &c.Collection,
		"GLAD_BAND_CONF":       &c.BandConf,
		"GLAD_BAND_ALERT_DATE": &c.BandAlertDate,
		"GLAD_CRS":             &c.CRS,
		"GLAD_NOTIFY_URL":      &c.NotifyURL,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"GLAD_PAGE_SIZE":      &c.PageSize,
		"GLAD_WORKERS":        &c.Workers,
		"GLAD_MAX_DAYS":       &c.MaxDays,
		"GLAD_YEAR":           &c.Year,
		"GLAD_RETRY_ATTEMPTS": &c.Retry.Attempts,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("parse %s: %w", key, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"GLAD_POLL_INTERVAL":     &c.PollInterval,
		"GLAD_MAX_WAIT":          &c.MaxWait,
		"GLAD_RETRY_BACKOFF":     &c.Retry.Backoff,
		"GLAD_RETRY_MAX_BACKOFF": &c.Retry.MaxBackoff,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("parse %s: %w", key, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("GLAD_CHUNK_SIZE"); v != "" {
		size, err := progress.ParseBytes(v)
		if err != nil {
			return fmt.Errorf("parse GLAD_CHUNK_SIZE: %w", err)
		}
		c.ChunkSize = size
	}
	if v := os.Getenv("GLAD_SCALE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse GLAD_SCALE: %w", err)
		}
		c.Scale = f
	}
	if v := os.Getenv("GLAD_REMOVE_DUPLICATES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse GLAD_REMOVE_DUPLICATES: %w", err)
		}
		c.RemoveDuplicates = b
	}
	if v := os.Getenv("GLAD_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv("GLAD_RETRY_JITTER"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse GLAD_RETRY_JITTER: %w", err)
		}
		c.Retry.Jitter = b
	}
	if v := os.Getenv("GLAD_FOLDERS"); v != "" {
		c.Folders = nil
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				c.Folders = append(c.Folders, f)
			}
		}
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Storage == "" {
		return errors.New("config: storage is required")
	}
	if c.Folder == "" && c.FolderID == "" {
		return errors.New("config: folder or folder_id is required")
	}
	if c.TempDownload == "" {
		return errors.New("config: temp_download is required")
	}
	if c.FinalName == "" {
		return errors.New("config: final_name is required")
	}
	if c.PageSize <= 0 {
		return errors.New("config: page_size must be positive")
	}
	if c.Workers <= 0 {
		return errors.New("config: workers must be positive")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: chunk_size must be positive")
	}
	if c.Year <= 0 || c.Year > 99 {
		return fmt.Errorf("config: year must be a two-digit year, got %d", c.Year)
	}
	switch c.OutputFormat {
	case "shapefile", "geojson":
	default:
		return fmt.Errorf("config: unknown output_format %q", c.OutputFormat)
	}
	switch c.ReportFormat {
	case "", "none", "csv", "parquet":
	default:
		return fmt.Errorf("config: unknown report_format %q", c.ReportFormat)
	}
	if c.PollInterval <= 0 {
		return errors.New("config: poll_interval must be positive")
	}
	if c.MaxWait < 0 {
		return errors.New("config: max_wait must not be negative")
	}
	if c.Retry.Attempts <= 0 {
		return errors.New("config: retry.attempts must be positive")
	}
	if c.Storage == StorageDrive && c.KeyFile == "" {
		return errors.New("config: key_file is required for drive storage")
	}
	return nil
}

// ValidateExport checks the fields only the export step needs.
func (c *Config) ValidateExport() error {
	if c.KeyFile == "" {
		return errors.New("config: key_file is required for export")
	}
	if c.Project == "" {
		return errors.New("config: project is required for export")
	}
	if c.AOI == "" {
		return errors.New("config: aoi is required for export")
	}
	if c.MaxDays <= 0 {
		return errors.New("config: max_days must be positive")
	}
	return nil
}

// BandConfName returns the confidence band for the configured year (conf23).
func (c *Config) BandConfName() string {
	return fmt.Sprintf("%s%02d", c.BandConf, c.Year)
}

// BandAlertDateName returns the alert date band for the configured year (alertDate23).
func (c *Config) BandAlertDateName() string {
	return fmt.Sprintf("%s%02d", c.BandAlertDate, c.Year)
}

// AOISlug returns the AOI name lowercased with spaces replaced by underscores.
func (c *Config) AOISlug() string {
	return strings.ReplaceAll(strings.ToLower(c.AOIName), " ", "_")
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored. RemoveDuplicates is not merged since
// its zero value is meaningful; callers set it explicitly.
func (c Config) Merge(override Config) Config {
	mergeStr := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	mergeStr(&c.ServiceAccount, override.ServiceAccount)
	mergeStr(&c.KeyFile, override.KeyFile)
	mergeStr(&c.Project, override.Project)
	mergeStr(&c.Storage, override.Storage)
	mergeStr(&c.Folder, override.Folder)
	mergeStr(&c.FolderID, override.FolderID)
	mergeStr(&c.TempDownload, override.TempDownload)
	mergeStr(&c.FinalPath, override.FinalPath)
	mergeStr(&c.FinalName, override.FinalName)
	mergeStr(&c.OutputFormat, override.OutputFormat)
	mergeStr(&c.ReportFormat, override.ReportFormat)
	mergeStr(&c.LogFile, override.LogFile)
	mergeStr(&c.AOI, override.AOI)
	mergeStr(&c.AOIName, override.AOIName)
	mergeStr(&c.Collection, override.Collection)
	mergeStr(&c.BandConf, override.BandConf)
	mergeStr(&c.BandAlertDate, override.BandAlertDate)
	mergeStr(&c.CRS, override.CRS)
	mergeStr(&c.NotifyURL, override.NotifyURL)

	if override.PageSize != 0 {
		c.PageSize = override.PageSize
	}
	if override.Workers != 0 {
		c.Workers = override.Workers
	}
	if override.ChunkSize != 0 {
		c.ChunkSize = override.ChunkSize
	}
	if override.MaxDays != 0 {
		c.MaxDays = override.MaxDays
	}
	if override.Year != 0 {
		c.Year = override.Year
	}
	if override.Scale != 0 {
		c.Scale = override.Scale
	}
	if override.PollInterval != 0 {
		c.PollInterval = override.PollInterval
	}
	if override.MaxWait != 0 {
		c.MaxWait = override.MaxWait
	}
	if override.Progress {
		c.Progress = override.Progress
	}
	if override.Retry.Attempts != 0 {
		c.Retry.Attempts = override.Retry.Attempts
	}
	if override.Retry.Backoff != 0 {
		c.Retry.Backoff = override.Retry.Backoff
	}
	if override.Retry.MaxBackoff != 0 {
		c.Retry.MaxBackoff = override.Retry.MaxBackoff
	}
	if override.Retry.Multiplier != 0 {
		c.Retry.Multiplier = override.Retry.Multiplier
	}
	if override.Retry.Jitter {
		c.Retry.Jitter = true
	}
	if len(override.Folders) > 0 {
		c.Folders = override.Folders
	}
	return c
}

// DrainFolders returns Folder followed by Folders, without repeats.
func (c *Config) DrainFolders() []string {
	var out []string
	seen := make(map[string]bool)
	for _, f := range append([]string{c.Folder}, c.Folders...) {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}
