package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `cargo: /opt/rust/bin/cargo
manifest_path: ./crates/app/Cargo.toml
target_dir: /tmp/target
target: x86_64-unknown-linux-musl
package: app
release: true
features: [json, tls]
all_features: false
no_default_features: true
strict: true
print: true
log_level: debug
timeout: 10m

env:
  RUSTFLAGS: -Dwarnings
  CARGO_INCREMENTAL: "0"
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	assertEqual(t, "cargo", cfg.Cargo, "/opt/rust/bin/cargo")
	assertEqual(t, "manifest_path", cfg.ManifestPath, "./crates/app/Cargo.toml")
	assertEqual(t, "target_dir", cfg.TargetDir, "/tmp/target")
	assertEqual(t, "target", cfg.Target, "x86_64-unknown-linux-musl")
	assertEqual(t, "package", cfg.Package, "app")
	assertEqual(t, "log_level", cfg.LogLevel, "debug")

	if !cfg.Release || !cfg.NoDefaultFeatures || !cfg.Strict || !cfg.Print {
		t.Errorf("expected release, no_default_features, strict and print to be set: %+v", cfg)
	}
	if cfg.AllFeatures {
		t.Error("expected all_features=false")
	}
	if strings.Join(cfg.Features, ",") != "json,tls" {
		t.Errorf("expected features [json tls], got %v", cfg.Features)
	}
	if cfg.Timeout.Duration != 10*time.Minute {
		t.Errorf("expected timeout=10m, got %v", cfg.Timeout.Duration)
	}
	if cfg.Env["RUSTFLAGS"] != "-Dwarnings" || cfg.Env["CARGO_INCREMENTAL"] != "0" {
		t.Errorf("unexpected env: %v", cfg.Env)
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	path := writeTemp(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Cargo != "" {
		t.Errorf("expected empty cargo, got %q", cfg.Cargo)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/cargoexec.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "{{invalid yaml")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_CARGOEXEC_TARGET", "wasm32-wasip1")

	path := writeTemp(t, "target: ${TEST_CARGOEXEC_TARGET}\npackage: ${TEST_CARGOEXEC_PKG:-core}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "target", cfg.Target, "wasm32-wasip1")
	assertEqual(t, "package", cfg.Package, "core")
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	yaml := `target: x86_64-unknown-linux-gnu
bogus_key: should_fail
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "bogus_key") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_WhitespaceOnlyConfig(t *testing.T) {
	path := writeTemp(t, "   \n  \n  \n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed for whitespace-only config: %v", err)
	}
	if cfg.Target != "" {
		t.Errorf("expected empty target, got %q", cfg.Target)
	}
}

func TestLoad_CommentsOnlyConfig(t *testing.T) {
	path := writeTemp(t, "# This is a comment\n# Another comment\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed for comments-only config: %v", err)
	}
	if cfg.Target != "" {
		t.Errorf("expected empty target, got %q", cfg.Target)
	}
}

func TestLoadDefault(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadDefault(dir)
	if err != nil {
		t.Fatalf("LoadDefault without file: %v", err)
	}
	if cfg.Target != "" {
		t.Errorf("expected empty config, got %+v", cfg)
	}

	if err := os.WriteFile(filepath.Join(dir, DefaultFile), []byte("release: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadDefault(dir)
	if err != nil {
		t.Fatalf("LoadDefault: %v", err)
	}
	if !cfg.Release {
		t.Error("expected release=true from default file")
	}
}

func TestDuration_InvalidFormat(t *testing.T) {
	path := writeTemp(t, "timeout: ten minutes\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error should mention invalid duration, got: %v", err)
	}
}

func TestDuration_Negative(t *testing.T) {
	path := writeTemp(t, "timeout: -5s\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for negative duration")
	}
}

func TestDuration_EmptyIsZero(t *testing.T) {
	path := writeTemp(t, `timeout: ""`+"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Timeout.Duration != 0 {
		t.Errorf("expected zero timeout, got %v", cfg.Timeout.Duration)
	}
}

func TestEnvPairs_Sorted(t *testing.T) {
	cfg := &Config{Env: map[string]string{"Z": "1", "A": "2", "M": "3"}}
	pairs := cfg.EnvPairs()
	want := [][2]string{{"A", "2"}, {"M", "3"}, {"Z", "1"}}
	if len(pairs) != len(want) {
		t.Fatalf("got %d pairs, want %d", len(pairs), len(want))
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("pairs[%d] = %v, want %v", i, pairs[i], want[i])
		}
	}
	if (&Config{}).EnvPairs() != nil {
		t.Error("expected nil pairs for empty env")
	}
}

func TestLoad_AdapterWebhook(t *testing.T) {
	yaml := `adapter:
  type: webhook
  url: https://hooks.example.com/cargoexec
  headers:
    Authorization: Bearer token
  timeout: 5s
  retries: 2
`
	cfg, err := Load(writeTemp(t, yaml))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "adapter.type", cfg.Adapter.Type, "webhook")
	assertEqual(t, "adapter.url", cfg.Adapter.URL, "https://hooks.example.com/cargoexec")
	assertEqual(t, "adapter.headers", cfg.Adapter.Headers["Authorization"], "Bearer token")
	if cfg.Adapter.Timeout.Duration != 5*time.Second {
		t.Errorf("adapter.timeout = %v, want 5s", cfg.Adapter.Timeout.Duration)
	}
	if cfg.Adapter.Retries == nil || *cfg.Adapter.Retries != 2 {
		t.Errorf("adapter.retries = %v, want 2", cfg.Adapter.Retries)
	}
}

func TestLoad_AdapterRedisDefaults(t *testing.T) {
	cfg, err := Load(writeTemp(t, "adapter:\n  type: redis\n  url: redis://localhost:6379/0\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "adapter.type", cfg.Adapter.Type, "redis")
	assertEqual(t, "adapter.channel", cfg.Adapter.Channel, "")
	if cfg.Adapter.Retries != nil {
		t.Errorf("expected unset retries, got %d", *cfg.Adapter.Retries)
	}
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cargoexec.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
