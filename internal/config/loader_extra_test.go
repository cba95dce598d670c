package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromFileValid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"scheduler": {"summaryHour": 10}}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.Scheduler.SummaryHour != 10 {
		t.Errorf("expected summary hour 10, got %d", cfg.Scheduler.SummaryHour)
	}
}

func TestLoadFromFileInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not valid json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFromFile(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestEnvOverrideTimezone(t *testing.T) {
	os.Setenv("ZAKKERNI_SCHEDULER_TIMEZONE", "Asia/Riyadh")
	defer os.Unsetenv("ZAKKERNI_SCHEDULER_TIMEZONE")

	cfg, err := LoadFromReader(strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("LoadFromReader failed: %v", err)
	}
	if cfg.Scheduler.Timezone != "Asia/Riyadh" {
		t.Errorf("expected env override %q, got %q", "Asia/Riyadh", cfg.Scheduler.Timezone)
	}
}

func TestEnvOverrideDBPath(t *testing.T) {
	os.Setenv("ZAKKERNI_STORAGE_DBPATH", "/tmp/env-bot.db")
	defer os.Unsetenv("ZAKKERNI_STORAGE_DBPATH")

	cfg, err := LoadFromReader(strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("LoadFromReader failed: %v", err)
	}
	if cfg.Storage.DBPath != "/tmp/env-bot.db" {
		t.Errorf("expected db path %q, got %q", "/tmp/env-bot.db", cfg.Storage.DBPath)
	}
}

func TestTildeExpansionInDBPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}

	cfg, err := LoadFromReader(strings.NewReader(`{"storage": {"dbPath": "~/mybot.db"}}`))
	if err != nil {
		t.Fatalf("LoadFromReader failed: %v", err)
	}

	expected := filepath.Join(home, "mybot.db")
	if cfg.Storage.DBPath != expected {
		t.Errorf("expected expanded path %q, got %q", expected, cfg.Storage.DBPath)
	}
}

func TestNoTildeExpansionForAbsolutePath(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`{"storage": {"dbPath": "/absolute/bot.db"}}`))
	if err != nil {
		t.Fatalf("LoadFromReader failed: %v", err)
	}
	if cfg.Storage.DBPath != "/absolute/bot.db" {
		t.Errorf("expected unchanged path %q, got %q", "/absolute/bot.db", cfg.Storage.DBPath)
	}
}

func TestLoadFromReaderEmptyObject(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("LoadFromReader failed: %v", err)
	}
	// defaults should still be applied
	if cfg.Scheduler.Timezone != "Africa/Cairo" {
		t.Errorf("expected default timezone, got %q", cfg.Scheduler.Timezone)
	}
	if cfg.Premium.PriceStars != 299 {
		t.Errorf("expected default price, got %d", cfg.Premium.PriceStars)
	}
}
