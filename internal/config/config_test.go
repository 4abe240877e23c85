package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadServerDefaults(t *testing.T) {
	t.Setenv("ELECTIVES_API_URL", "https://example.supabase.co")
	t.Setenv("ELECTIVES_API_KEY", "anon")
	t.Setenv("ELECTIVES_CACHE_SOCK", "")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StaleTolerance != 24*time.Hour {
		t.Errorf("stale tolerance = %v", cfg.StaleTolerance)
	}
	if cfg.RealtimeHeartbeat != 30*time.Second {
		t.Errorf("heartbeat = %v", cfg.RealtimeHeartbeat)
	}
	if !strings.HasSuffix(cfg.CacheSocket, "cache.sock") {
		t.Errorf("socket = %q", cfg.CacheSocket)
	}
	if cfg.GuardGenerations {
		t.Error("generation guard should default off")
	}
}

func TestLoadServerOverrides(t *testing.T) {
	t.Setenv("ELECTIVES_API_URL", "https://example.supabase.co")
	t.Setenv("ELECTIVES_API_KEY", "anon")
	t.Setenv("ELECTIVES_INSTITUTION_ID", "12")
	t.Setenv("ELECTIVES_GUARD_GENERATIONS", "true")
	t.Setenv("ELECTIVES_STALE_TOLERANCE", "90m")
	t.Setenv("ELECTIVES_CACHE_SOCK", "/tmp/x.sock")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.InstitutionID != "12" || !cfg.GuardGenerations || cfg.StaleTolerance != 90*time.Minute || cfg.CacheSocket != "/tmp/x.sock" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadServerRequiresBackend(t *testing.T) {
	t.Setenv("ELECTIVES_API_URL", "")
	t.Setenv("ELECTIVES_API_KEY", "anon")
	if _, err := LoadServer(); err == nil {
		t.Fatal("expected error without api url")
	}
}

func TestLoadServerBadDuration(t *testing.T) {
	t.Setenv("ELECTIVES_API_URL", "https://example.supabase.co")
	t.Setenv("ELECTIVES_API_KEY", "anon")
	t.Setenv("ELECTIVES_STALE_TOLERANCE", "soon")
	if _, err := LoadServer(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadCacheServer(t *testing.T) {
	t.Setenv("ELECTIVES_CACHE_SOCK", "")
	t.Setenv("ELECTIVES_CACHE_DB", "/tmp/c.bbolt")
	cfg, err := LoadCacheServer()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/c.bbolt" || cfg.Bucket != "electives" || cfg.MaxValueBytes != 5<<20 {
		t.Errorf("cfg = %+v", cfg)
	}
	if !strings.HasSuffix(cfg.Socket, "cache.sock") {
		t.Errorf("socket = %q", cfg.Socket)
	}
}
