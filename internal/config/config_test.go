package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindConfig_Explicit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	os.WriteFile(path, []byte("driver:\n  ws_url: ws://127.0.0.1:6700\n"), 0600)

	got, err := FindConfig(path)
	if err != nil {
		t.Fatalf("FindConfig(%q) error: %v", path, err)
	}
	if got != path {
		t.Errorf("FindConfig(%q) = %q, want %q", path, got, path)
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	_, err := FindConfig("/nonexistent/kovi.yaml")
	if err == nil {
		t.Fatal("FindConfig with missing explicit path should error")
	}
}

func TestFindConfig_SearchPath(t *testing.T) {
	// When no config exists anywhere, should error. Override
	// searchPathsFunc to avoid finding real config files on
	// developer/deploy machines.
	dir := t.TempDir()
	orig := searchPathsFunc
	searchPathsFunc = func() []string {
		return []string{filepath.Join(dir, "kovi.yaml")}
	}
	defer func() { searchPathsFunc = orig }()

	_, err := FindConfig("")
	if err == nil {
		t.Fatal("FindConfig(\"\") with no config files should error")
	}
}

func TestFindConfig_CWD(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kovi.yaml")
	os.WriteFile(path, []byte("driver:\n  ws_url: ws://127.0.0.1:6700\n"), 0600)

	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	got, err := FindConfig("")
	if err != nil {
		t.Fatalf("FindConfig(\"\") error: %v", err)
	}
	if got != "kovi.yaml" {
		t.Errorf("FindConfig(\"\") = %q, want %q", got, "kovi.yaml")
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kovi.yaml")
	os.WriteFile(path, []byte("driver:\n  ws_url: ws://127.0.0.1:6700\n  access_token: ${KOVI_TEST_TOKEN}\n"), 0600)
	os.Setenv("KOVI_TEST_TOKEN", "secret123")
	defer os.Unsetenv("KOVI_TEST_TOKEN")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Driver.AccessToken != "secret123" {
		t.Errorf("access_token = %q, want %q", cfg.Driver.AccessToken, "secret123")
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kovi.yaml")
	os.WriteFile(path, []byte("driver:\n  ws_url: ws://127.0.0.1:6700\n"), 0600)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.DataDir != "./data" {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, "./data")
	}
	if cfg.Store.Driver != "cgo" {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, "cgo")
	}
	if cfg.Store.Path != filepath.Join("./data", "kovi.db") {
		t.Errorf("Store.Path = %q, want %q", cfg.Store.Path, filepath.Join("./data", "kovi.db"))
	}
	if cfg.Driver.CallTimeoutSec != 30 {
		t.Errorf("Driver.CallTimeoutSec = %d, want 30", cfg.Driver.CallTimeoutSec)
	}
}

func TestValidate_RejectsBadStoreDriver(t *testing.T) {
	cfg := Default()
	cfg.Store.Driver = "weird"
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate should reject an unknown store driver")
	}
}

func TestValidate_RejectsBadAccessMode(t *testing.T) {
	cfg := Default()
	cfg.Plugins = []PluginEntry{{Name: "echo", AccessMode: "denylist"}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate should reject an unknown access_mode")
	}
}

func TestValidate_RejectsEmptyPluginName(t *testing.T) {
	cfg := Default()
	cfg.Plugins = []PluginEntry{{EnableOnStartup: true}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate should reject a plugin entry with no name")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if !cfg.Driver.Configured() {
		t.Error("Default() driver should be configured")
	}
	if cfg.Debug.Port != 8080 {
		t.Errorf("Debug.Port = %d, want 8080", cfg.Debug.Port)
	}
}
