package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 5000 {
		t.Errorf("expected Port=5000, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Chunking.Size != 1000 || cfg.Chunking.Overlap != 200 {
		t.Errorf("expected chunking 1000/200, got %d/%d", cfg.Chunking.Size, cfg.Chunking.Overlap)
	}
	if cfg.Retrieval.TopK != 3 {
		t.Errorf("expected TopK=3, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Upload.MaxBytes != 16<<20 {
		t.Errorf("expected MaxBytes=16MiB, got %d", cfg.Upload.MaxBytes)
	}
	if cfg.Registry.Driver != RegistryBolt {
		t.Errorf("expected bolt registry, got %q", cfg.Registry.Driver)
	}
	if cfg.Storage.SnapshotName != "index.dqix" {
		t.Errorf("expected snapshot index.dqix, got %q", cfg.Storage.SnapshotName)
	}
	if cfg.Embedding.Budget.Action != "warn" {
		t.Errorf("expected budget action warn, got %q", cfg.Embedding.Budget.Action)
	}
	if cfg.LLM.Model != "gpt-4" || cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("models = %q / %q", cfg.LLM.Model, cfg.Embedding.Model)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 8080, ReadTimeoutSec: 5},
		Chunking:  ChunkingConfig{Size: 500, Overlap: 50},
		Retrieval: RetrievalConfig{TopK: 8},
		Registry:  RegistryConfig{Driver: RegistryRedis},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 || cfg.HTTP.ReadTimeoutSec != 5 {
		t.Errorf("http = %+v", cfg.HTTP)
	}
	if cfg.Chunking.Size != 500 || cfg.Chunking.Overlap != 50 {
		t.Errorf("chunking = %+v", cfg.Chunking)
	}
	if cfg.Retrieval.TopK != 8 {
		t.Errorf("top_k = %d", cfg.Retrieval.TopK)
	}
	if cfg.Registry.Driver != RegistryRedis {
		t.Errorf("driver = %q", cfg.Registry.Driver)
	}
}

func TestApplyDefaults_SmallChunkOverlap(t *testing.T) {
	cfg := Config{Chunking: ChunkingConfig{Size: 100}}
	cfg.ApplyDefaults()

	if cfg.Chunking.Overlap != 20 {
		t.Errorf("expected overlap 20 for size 100, got %d", cfg.Chunking.Overlap)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestApplyDefaults_LLMInheritsProvider(t *testing.T) {
	cfg := Config{Embedding: EmbeddingConfig{APIKey: "sk-emb", BaseURL: "https://api.example.com/v1"}}
	cfg.ApplyDefaults()

	if cfg.LLM.APIKey != "sk-emb" || cfg.LLM.BaseURL != "https://api.example.com/v1" {
		t.Errorf("llm = %+v", cfg.LLM)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("llm provider = %q, want openai", cfg.LLM.Provider)
	}
}

func TestApplyDefaults_LLMProviderIndependent(t *testing.T) {
	cfg := Config{
		Embedding: EmbeddingConfig{Provider: "nebius"},
		LLM:       LLMConfig{Provider: "openai"},
	}
	cfg.ApplyDefaults()

	if cfg.LLM.Provider != "openai" || cfg.Embedding.Provider != "nebius" {
		t.Errorf("providers: llm=%q embedding=%q", cfg.LLM.Provider, cfg.Embedding.Provider)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.HTTP.Port = 70000 }, "http.port"},
		{"overlap not below size", func(c *Config) { c.Chunking.Overlap = c.Chunking.Size }, "chunking.overlap"},
		{"negative overlap", func(c *Config) { c.Chunking.Overlap = -1 }, "chunking.overlap"},
		{"budget action", func(c *Config) { c.Embedding.Budget.Action = "invalid_action" }, `embedding.budget.action must be "warn" or "reject", got "invalid_action"`},
		{"temperature", func(c *Config) { c.LLM.Temperature = 3 }, "llm.temperature"},
		{"registry driver", func(c *Config) { c.Registry.Driver = "mongo" }, "registry.driver"},
		{"redis registry without addrs", func(c *Config) { c.Registry.Driver = RegistryRedis }, "redis.addrs"},
		{"cache without addrs", func(c *Config) { c.Embedding.Cache.Enabled = true }, "redis.addrs"},
		{"cache with addrs", func(c *Config) {
			c.Embedding.Cache.Enabled = true
			c.Redis.Addrs = []string{"localhost:6379"}
		}, ""},
		{"budget limit without redis", func(c *Config) { c.Embedding.Budget.DailyTokenLimit = 1000 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("DQ_TEST_KEY", "sk-from-env")

	cfg, err := Parse([]byte(`
http:
  port: ${DQ_TEST_PORT:-8081}
embedding:
  api_key: ${DQ_TEST_KEY}
retrieval:
  top_k: 5
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.HTTP.Port != 8081 {
		t.Errorf("port = %d, want default 8081", cfg.HTTP.Port)
	}
	if cfg.Embedding.APIKey != "sk-from-env" {
		t.Errorf("api_key = %q", cfg.Embedding.APIKey)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("top_k = %d", cfg.Retrieval.TopK)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := Parse([]byte("registry:\n  driver: sqlite\n")); err == nil {
		t.Error("expected validation error")
	}
}

func TestIsAllowedExtension(t *testing.T) {
	cfg := validConfig()

	for name, want := range map[string]bool{
		"notes.txt":   true,
		"README.MD":   true,
		"report.pdf":  false,
		"noextension": false,
		"archive.tar": false,
	} {
		if got := cfg.IsAllowedExtension(name); got != want {
			t.Errorf("IsAllowedExtension(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestTimeouts(t *testing.T) {
	cfg := validConfig()
	if cfg.EmbeddingTimeout().Seconds() != 30 || cfg.LLMTimeout().Seconds() != 60 {
		t.Errorf("timeouts = %v / %v", cfg.EmbeddingTimeout(), cfg.LLMTimeout())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("retrieval:\n  top_k: 7\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Retrieval.TopK != 7 || cfg.HTTP.Port != 5000 {
		t.Errorf("cfg = %+v", cfg)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
