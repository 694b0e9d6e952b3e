package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := loadWith(newFileBackend(filepath.Join(t.TempDir(), "missing.yaml")))
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Search.PageSize != 10 {
		t.Errorf("PageSize = %d, want 10", cfg.Search.PageSize)
	}
	if cfg.Search.AdLimit != 5 {
		t.Errorf("AdLimit = %d, want 5", cfg.Search.AdLimit)
	}
	if cfg.Cleanup.Delay != 10*time.Second {
		t.Errorf("Cleanup.Delay = %v, want 10s", cfg.Cleanup.Delay)
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if !cfg.Telegram.SearchOnText {
		t.Error("SearchOnText should default to true")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestFileValues(t *testing.T) {
	path := writeTempConfig(t, `
telegram.admin_ids: [11, 22]
telegram.probe_chat_id: -1001234
telegram.search_on_text: false
search.page_size: 5
cleanup.delay: 3s
log.level: debug
help.default: "<b>Hi</b> @:shelf_admin"
`)
	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if diff := cmp.Diff([]int64{11, 22}, cfg.Telegram.AdminIDs); diff != "" {
		t.Errorf("AdminIDs mismatch (-want +got):\n%s", diff)
	}
	if cfg.Telegram.ProbeChatID != -1001234 {
		t.Errorf("ProbeChatID = %d", cfg.Telegram.ProbeChatID)
	}
	if cfg.Telegram.SearchOnText {
		t.Error("SearchOnText should be false")
	}
	if cfg.Search.PageSize != 5 {
		t.Errorf("PageSize = %d, want 5", cfg.Search.PageSize)
	}
	if cfg.Cleanup.Delay != 3*time.Second {
		t.Errorf("Delay = %v, want 3s", cfg.Cleanup.Delay)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q", cfg.Log.Level)
	}
	if cfg.Help.Default != "<b>Hi</b> @:shelf_admin" {
		t.Errorf("Help.Default = %q", cfg.Help.Default)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeTempConfig(t, "search.page_size: 5\nserver.port: 9000\n")
	t.Setenv("SHELFBOT_SEARCH_PAGE_SIZE", "7")
	t.Setenv("SHELFBOT_TELEGRAM_TOKEN", "123:abc")
	t.Setenv("SHELFBOT_TELEGRAM_ADMIN_IDS", "1, 2 3")

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Search.PageSize != 7 {
		t.Errorf("PageSize = %d, want 7", cfg.Search.PageSize)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("Token = %q", cfg.Telegram.Token)
	}
	if diff := cmp.Diff([]int64{1, 2, 3}, cfg.Telegram.AdminIDs); diff != "" {
		t.Errorf("AdminIDs mismatch (-want +got):\n%s", diff)
	}
}

func TestSecretsIgnoredInFile(t *testing.T) {
	path := writeTempConfig(t, "telegram.token: from-file\napi.token: from-file\n")
	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Telegram.Token != "" || cfg.API.Token != "" {
		t.Errorf("secrets read from file: %q %q", cfg.Telegram.Token, cfg.API.Token)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	path := writeTempConfig(t, "cleanup.delay: soon\n")
	t.Setenv("SHELFBOT_SERVER_PORT", "not-a-port")

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Cleanup.Delay != 10*time.Second {
		t.Errorf("Delay = %v, want default", cfg.Cleanup.Delay)
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("Port = %d, want default", cfg.Server.Port)
	}
}

func TestInvalidIntInFile(t *testing.T) {
	path := writeTempConfig(t, "search.page_size: lots\n")
	if _, err := loadWith(newFileBackend(path)); err == nil {
		t.Fatal("expected error for non-integer page size")
	}
}

func TestValidateBot(t *testing.T) {
	cfg := defaults()
	err := cfg.ValidateBot()
	if err == nil {
		t.Fatal("expected error without token and admins")
	}
	if !strings.Contains(err.Error(), "SHELFBOT_TELEGRAM_TOKEN") {
		t.Errorf("error should name the env var: %v", err)
	}

	cfg.Telegram.Token = "123:abc"
	cfg.Telegram.AdminIDs = []int64{42}
	if err := cfg.ValidateBot(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSetKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	b := newFileBackend(path)

	if err := setKeyWith(b, "search.page_size", "20"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}
	if err := setKeyWith(b, "telegram.admin_ids", "5 6"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}
	if err := setKeyWith(b, "cleanup.delay", "90s"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}
	want := []string{"cleanup.delay", "search.page_size", "telegram.admin_ids"}
	if diff := cmp.Diff(want, b.keys()); diff != "" {
		t.Errorf("stored keys mismatch (-want +got):\n%s", diff)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}

	cfg, err := loadWith(newFileBackend(path))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.Search.PageSize != 20 {
		t.Errorf("PageSize = %d, want 20", cfg.Search.PageSize)
	}
	if diff := cmp.Diff([]int64{5, 6}, cfg.Telegram.AdminIDs); diff != "" {
		t.Errorf("AdminIDs mismatch (-want +got):\n%s", diff)
	}
	if cfg.Cleanup.Delay != 90*time.Second {
		t.Errorf("Delay = %v", cfg.Cleanup.Delay)
	}
}

func TestSetKey_Rejects(t *testing.T) {
	b := newFileBackend(filepath.Join(t.TempDir(), "config.yaml"))

	if err := setKeyWith(b, "telegram.token", "x"); err == nil {
		t.Error("expected error setting a secret")
	}
	if err := setKeyWith(b, "nope", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := setKeyWith(b, "search.page_size", "ten"); err == nil {
		t.Error("expected error for invalid value")
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Telegram.Token = "123:abc"
	for _, k := range ShowAll(cfg) {
		if k.Key == "telegram.token" || k.Key == "api.token" {
			t.Errorf("secret %s shown", k.Key)
		}
		if k.Key == "cleanup.delay" && k.Value != "10s" {
			t.Errorf("cleanup.delay = %q, want 10s", k.Value)
		}
	}
	if len(ValidKeys()) != len(ShowAll(cfg)) {
		t.Errorf("ValidKeys and ShowAll disagree")
	}
}

func TestConfigPathOverride(t *testing.T) {
	t.Setenv("SHELFBOT_CONFIG", "/tmp/custom.yaml")
	if Path() != "/tmp/custom.yaml" {
		t.Errorf("Path = %q", Path())
	}
	t.Setenv("SHELFBOT_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if Path() != "/xdg/shelfbot/config.yaml" {
		t.Errorf("Path = %q", Path())
	}
}

func TestUnsetKey(t *testing.T) {
	b := newFileBackend(filepath.Join(t.TempDir(), "config.yaml"))
	if err := setKeyWith(b, "search.ad_limit", "2"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}
	if err := unsetKeyWith(b, "search.ad_limit"); err != nil {
		t.Fatalf("unsetKeyWith: %v", err)
	}
	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Search.AdLimit != 5 {
		t.Errorf("AdLimit = %d, want default 5", cfg.Search.AdLimit)
	}
	if err := unsetKeyWith(b, "api.token"); err == nil {
		t.Error("expected error unsetting a secret")
	}
}
