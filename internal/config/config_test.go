package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"lyrics-collector/pkg/lrclib"
	"lyrics-collector/pkg/music"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"NETEASE_COOKIE", "QQMUSIC_COOKIE", "LYRICS_AI_API_KEY"} {
		t.Setenv(key, "")
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	cfg := Load(filepath.Join(t.TempDir(), "nope.toml"))

	if cfg.HTTP.Timeout != 10*time.Second || cfg.HTTP.Retries != 1 || cfg.HTTP.RetryDelay != time.Second {
		t.Errorf("unexpected http defaults %+v", cfg.HTTP)
	}
	if cfg.HTTP.MinInterval != 0 {
		t.Errorf("expected no request interval by default, got %v", cfg.HTTP.MinInterval)
	}

	mc := cfg.MusicConfig()
	if mc.LRCLib.HTTP.UserAgent != lrclib.DefaultUserAgent {
		t.Errorf("lrclib should keep its own user agent, got %q", mc.LRCLib.HTTP.UserAgent)
	}
	if mc.NetEase.HTTP.UserAgent != "" {
		t.Errorf("netease should fall back to the transport default, got %q", mc.NetEase.HTTP.UserAgent)
	}
	if cfg.App.ProviderDelay != time.Second || cfg.App.ProviderTimeout != 60*time.Second || cfg.App.Concurrent {
		t.Errorf("unexpected app defaults %+v", cfg.App)
	}
	if cfg.Match.MinScore != 5 || cfg.Match.MaxFetch != 10 || cfg.Match.PreviewLines != 3 {
		t.Errorf("unexpected match defaults %+v", cfg.Match)
	}
	want := []string{"qqmusic", "kugou", "netease", "lrclib"}
	for i, name := range want {
		if cfg.App.Providers[i] != name {
			t.Errorf("provider %d: expected %s, got %s", i, name, cfg.App.Providers[i])
		}
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[app]
providers = ["netease", "酷狗"]
provider_delay = "250ms"
provider_timeout = "not-a-duration"
concurrent = true
log_level = "debug"

[http]
timeout = "3s"
retries = 0
min_interval = "200ms"
user_agent = "test-agent"

[match]
min_score = 0
max_fetch = 4

[netease]
cookie = "MUSIC_U=abc"
merge_translation = true
penalties = ["cover"]

[qqmusic]
search_limit = 20

[lrclib]
base_url = "http://localhost:3000/api"

[ai]
module_name = "deepseek-chat"
api_key = "file-key"
base_url = "https://api.deepseek.com/v1"
`)

	cfg := Load(path)

	if len(cfg.App.Providers) != 2 || cfg.App.Providers[1] != "酷狗" {
		t.Errorf("unexpected providers %v", cfg.App.Providers)
	}
	if cfg.App.ProviderDelay != 250*time.Millisecond {
		t.Errorf("expected 250ms delay, got %v", cfg.App.ProviderDelay)
	}
	if cfg.App.ProviderTimeout != music.DefaultProviderTimeout {
		t.Errorf("invalid duration should keep default, got %v", cfg.App.ProviderTimeout)
	}
	if !cfg.App.Concurrent || cfg.App.LogLevel != "debug" {
		t.Errorf("unexpected app config %+v", cfg.App)
	}
	if cfg.HTTP.Timeout != 3*time.Second || cfg.HTTP.Retries != 0 || cfg.HTTP.UserAgent != "test-agent" || cfg.HTTP.MinInterval != 200*time.Millisecond {
		t.Errorf("unexpected http config %+v", cfg.HTTP)
	}
	if cfg.Match.MinScore != 0 || cfg.Match.MaxFetch != 4 || cfg.Match.PreviewLines != 3 {
		t.Errorf("unexpected match config %+v", cfg.Match)
	}
	if cfg.NetEase.Cookie != "MUSIC_U=abc" || !cfg.MergeTranslation || len(cfg.NetEase.Penalties) != 1 {
		t.Errorf("unexpected netease config %+v", cfg.NetEase)
	}
	if cfg.AI.APIKey != "file-key" || cfg.AI.ModuleName != "deepseek-chat" {
		t.Errorf("unexpected ai config %+v", cfg.AI)
	}

	mc := cfg.MusicConfig()
	if !mc.Options.Concurrent || mc.Options.ProviderDelay != 250*time.Millisecond {
		t.Errorf("unexpected manager options %+v", mc.Options)
	}
	if mc.QQMusic.SearchLimit != 20 || mc.LRCLib.BaseURL != "http://localhost:3000/api" || !mc.NetEase.MergeTranslation {
		t.Errorf("unexpected provider configs %+v %+v", mc.QQMusic, mc.LRCLib)
	}
	if mc.Kugou.HTTP.Timeout != 3*time.Second || mc.Kugou.Gather.MaxFetch != 4 {
		t.Errorf("shared settings not propagated: %+v", mc.Kugou)
	}
	if mc.LRCLib.HTTP.UserAgent != "test-agent" {
		t.Errorf("configured user agent should apply to lrclib, got %q", mc.LRCLib.HTTP.UserAgent)
	}

	m, err := music.CreateManager(mc)
	if err != nil || len(m.GetProviderNames()) != 2 {
		t.Errorf("expected manager with 2 providers, got %v %v", m, err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "[netease]\ncookie = \"from-file\"\n[ai]\napi_key = \"file-key\"\n")
	t.Setenv("NETEASE_COOKIE", "from-env")
	t.Setenv("QQMUSIC_COOKIE", "qq-env")
	t.Setenv("LYRICS_AI_API_KEY", "env-key")

	cfg := Load(path)
	if cfg.NetEase.Cookie != "from-env" || cfg.QQMusic.Cookie != "qq-env" || cfg.AI.APIKey != "env-key" {
		t.Errorf("env did not override file: %+v %+v %+v", cfg.NetEase, cfg.QQMusic, cfg.AI)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "[app\nproviders = ")

	if _, err := loadTomlConfig(path); err == nil {
		t.Error("expected parse error")
	}
	cfg := Load(path)
	if cfg.Match.MinScore != 5 {
		t.Errorf("expected defaults after parse error, got %+v", cfg.Match)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := DefaultPath(); got != "/tmp/xdg/lyrics-collector/config.toml" {
		t.Errorf("DefaultPath() = %s", got)
	}
}
