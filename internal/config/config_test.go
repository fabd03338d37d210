package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Default()
	cfg.KeyFile = "gee-service.json"
	cfg.Year = 23
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.PageSize != 10 {
		t.Errorf("expected default page size 10, got %d", cfg.PageSize)
	}
	if cfg.Workers != runtime.NumCPU() {
		t.Errorf("expected default workers %d, got %d", runtime.NumCPU(), cfg.Workers)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Errorf("expected default poll interval 30s, got %v", cfg.PollInterval)
	}
	if cfg.MaxWait != 0 {
		t.Errorf("expected no default max wait, got %v", cfg.MaxWait)
	}
	if cfg.Retry.Attempts != 10 {
		t.Errorf("expected default retry attempts 10, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.Backoff != time.Second {
		t.Errorf("expected default retry backoff 1s, got %v", cfg.Retry.Backoff)
	}
	if !cfg.RemoveDuplicates {
		t.Error("expected remove_duplicates on by default")
	}
	if cfg.OutputFormat != "shapefile" {
		t.Errorf("expected shapefile output, got %s", cfg.OutputFormat)
	}
}

func TestLoadFromYAML(t *testing.T) {
	yamlContent := `
storage: gs://glad-exports
folder: exports
folders:
  - exports_backlog
workers: 4
chunk_size: 8MiB
year: 23
band_conf: conf
remove_duplicates: false
poll_interval: 10s
max_wait: 2h
retry:
  attempts: 20
  backoff: 3s
  max_backoff: 60s
  jitter: true
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Storage != "gs://glad-exports" {
		t.Errorf("expected storage gs://glad-exports, got %s", cfg.Storage)
	}
	if cfg.Workers != 4 {
		t.Errorf("expected workers 4, got %d", cfg.Workers)
	}
	if cfg.ChunkSize != 8*1024*1024 {
		t.Errorf("expected chunk size 8MiB, got %d", cfg.ChunkSize)
	}
	if cfg.RemoveDuplicates {
		t.Error("expected remove_duplicates false")
	}
	if cfg.PollInterval != 10*time.Second {
		t.Errorf("expected poll interval 10s, got %v", cfg.PollInterval)
	}
	if cfg.MaxWait != 2*time.Hour {
		t.Errorf("expected max wait 2h, got %v", cfg.MaxWait)
	}
	if cfg.Retry.Attempts != 20 {
		t.Errorf("expected retry attempts 20, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.Backoff != 3*time.Second {
		t.Errorf("expected retry backoff 3s, got %v", cfg.Retry.Backoff)
	}
	if cfg.Retry.MaxBackoff != 60*time.Second {
		t.Errorf("expected retry max backoff 60s, got %v", cfg.Retry.MaxBackoff)
	}
	if !cfg.Retry.Policy().Jitter {
		t.Error("expected retry jitter on")
	}
	if got := cfg.DrainFolders(); len(got) != 2 || got[0] != "exports" || got[1] != "exports_backlog" {
		t.Errorf("unexpected drain folders %v", got)
	}
	// Untouched fields keep their defaults.
	if cfg.PageSize != 10 {
		t.Errorf("expected default page size, got %d", cfg.PageSize)
	}
	if cfg.Retry.Multiplier != 2 {
		t.Errorf("expected default multiplier, got %v", cfg.Retry.Multiplier)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GLAD_WORKERS", "64")
	t.Setenv("GLAD_CHUNK_SIZE", "1MiB")
	t.Setenv("GLAD_FOLDER", "GLAD_2023")
	t.Setenv("GLAD_YEAR", "24")
	t.Setenv("GLAD_REMOVE_DUPLICATES", "false")
	t.Setenv("GLAD_RETRY_ATTEMPTS", "3")
	t.Setenv("GLAD_RETRY_BACKOFF", "500ms")
	t.Setenv("GLAD_MAX_WAIT", "1h")

	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}

	if cfg.Workers != 64 {
		t.Errorf("expected workers 64, got %d", cfg.Workers)
	}
	if cfg.ChunkSize != 1024*1024 {
		t.Errorf("expected chunk size 1MiB, got %d", cfg.ChunkSize)
	}
	if cfg.Folder != "GLAD_2023" {
		t.Errorf("expected folder GLAD_2023, got %s", cfg.Folder)
	}
	if cfg.Year != 24 {
		t.Errorf("expected year 24, got %d", cfg.Year)
	}
	if cfg.RemoveDuplicates {
		t.Error("expected remove_duplicates false")
	}
	if cfg.Retry.Attempts != 3 {
		t.Errorf("expected retry attempts 3, got %d", cfg.Retry.Attempts)
	}
	if cfg.Retry.Backoff != 500*time.Millisecond {
		t.Errorf("expected retry backoff 500ms, got %v", cfg.Retry.Backoff)
	}
	if cfg.MaxWait != time.Hour {
		t.Errorf("expected max wait 1h, got %v", cfg.MaxWait)
	}
}

func TestLoadFromEnvInvalid(t *testing.T) {
	t.Setenv("GLAD_WORKERS", "many")
	cfg := Default()
	if err := cfg.LoadFromEnv(); err == nil {
		t.Error("expected error for non-numeric GLAD_WORKERS")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("GLAD_FOLDER=from_dotenv\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	// Register cleanup for the variable godotenv sets.
	t.Setenv("GLAD_FOLDER", "")
	os.Unsetenv("GLAD_FOLDER")

	if err := LoadDotEnv(envPath); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Folder != "from_dotenv" {
		t.Errorf("expected folder from .env, got %s", cfg.Folder)
	}

	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "blob storage without key file", mutate: func(c *Config) {
			c.Storage = "mem://"
			c.KeyFile = ""
		}},
		{name: "drive without key file", mutate: func(c *Config) { c.KeyFile = "" }, wantErr: true},
		{name: "missing folder", mutate: func(c *Config) { c.Folder = "" }, wantErr: true},
		{name: "folder id only", mutate: func(c *Config) {
			c.Folder = ""
			c.FolderID = "1gRBRE2qdhOo0Jqse3Hmzu0zTTn6S8hJp"
		}},
		{name: "missing temp dir", mutate: func(c *Config) { c.TempDownload = "" }, wantErr: true},
		{name: "invalid workers", mutate: func(c *Config) { c.Workers = 0 }, wantErr: true},
		{name: "invalid page size", mutate: func(c *Config) { c.PageSize = -1 }, wantErr: true},
		{name: "four digit year", mutate: func(c *Config) { c.Year = 2023 }, wantErr: true},
		{name: "missing year", mutate: func(c *Config) { c.Year = 0 }, wantErr: true},
		{name: "unknown output format", mutate: func(c *Config) { c.OutputFormat = "kml" }, wantErr: true},
		{name: "unknown report format", mutate: func(c *Config) { c.ReportFormat = "xlsx" }, wantErr: true},
		{name: "negative max wait", mutate: func(c *Config) { c.MaxWait = -time.Second }, wantErr: true},
		{name: "zero retry attempts", mutate: func(c *Config) { c.Retry.Attempts = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateExport(t *testing.T) {
	cfg := validConfig()
	if err := cfg.ValidateExport(); err == nil {
		t.Error("expected error without project and aoi")
	}
	cfg.Project = "my-ee-project"
	cfg.AOI = "aoi/jambi.shp"
	if err := cfg.ValidateExport(); err != nil {
		t.Errorf("ValidateExport: %v", err)
	}
}

func TestBandNames(t *testing.T) {
	cfg := validConfig()
	cfg.AOIName = "Jambi Province"
	if got := cfg.BandConfName(); got != "conf23" {
		t.Errorf("BandConfName() = %s, want conf23", got)
	}
	if got := cfg.BandAlertDateName(); got != "alertDate23" {
		t.Errorf("BandAlertDateName() = %s, want alertDate23", got)
	}
	if got := cfg.AOISlug(); got != "jambi_province" {
		t.Errorf("AOISlug() = %s, want jambi_province", got)
	}
}

func TestMerge(t *testing.T) {
	base := validConfig()
	base.Folder = "GLAD"

	override := Config{
		Workers: 32,
		Retry:   RetryConfig{Attempts: 20},
	}

	merged := base.Merge(override)

	if merged.Folder != "GLAD" {
		t.Errorf("expected Folder preserved, got %s", merged.Folder)
	}
	if merged.Retry.Backoff != time.Second {
		t.Errorf("expected Retry.Backoff preserved, got %v", merged.Retry.Backoff)
	}
	if merged.Workers != 32 {
		t.Errorf("expected Workers overridden to 32, got %d", merged.Workers)
	}
	if merged.Retry.Attempts != 20 {
		t.Errorf("expected Retry.Attempts overridden to 20, got %d", merged.Retry.Attempts)
	}
}

func TestRetryPolicy(t *testing.T) {
	p := Default().Retry.Policy()
	if p.Attempts != 10 || p.Backoff != time.Second || p.Multiplier != 2 {
		t.Errorf("unexpected policy %+v", p)
	}
}

func TestRetryJitterFromEnv(t *testing.T) {
	t.Setenv("GLAD_RETRY_JITTER", "true")
	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if !cfg.Retry.Policy().Jitter {
		t.Error("expected jitter from GLAD_RETRY_JITTER")
	}

	t.Setenv("GLAD_RETRY_JITTER", "sometimes")
	if err := cfg.LoadFromEnv(); err == nil {
		t.Error("expected error for invalid GLAD_RETRY_JITTER")
	}
}

func TestDrainFolders(t *testing.T) {
	tests := []struct {
		name    string
		folder  string
		folders []string
		want    []string
	}{
		{"single", "GLAD", nil, []string{"GLAD"}},
		{"extra", "GLAD", []string{"GLAD_2022"}, []string{"GLAD", "GLAD_2022"}},
		{"repeats dropped", "GLAD", []string{"GLAD", "B", "B"}, []string{"GLAD", "B"}},
		{"no primary", "", []string{"B"}, []string{"B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Folder: tt.folder, Folders: tt.folders}
			got := cfg.DrainFolders()
			if len(got) != len(tt.want) {
				t.Fatalf("DrainFolders() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("DrainFolders() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestFoldersFromEnv(t *testing.T) {
	t.Setenv("GLAD_FOLDERS", "A, B,,C")
	cfg := Default()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if len(cfg.Folders) != 3 || cfg.Folders[1] != "B" {
		t.Errorf("unexpected folders %v", cfg.Folders)
	}
}

func TestLoadYAMLFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}
