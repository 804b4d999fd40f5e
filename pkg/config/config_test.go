package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.POI.MaxResults != 15 {
		t.Errorf("expected 15 max POI results, got %d", cfg.POI.MaxResults)
	}
	if float64(cfg.POI.RadiusM) != 2000 {
		t.Errorf("expected 2000m default radius, got %f", float64(cfg.POI.RadiusM))
	}
	if cfg.Geocode.DefaultCity != "Mumbai" {
		t.Errorf("expected default city Mumbai, got %q", cfg.Geocode.DefaultCity)
	}
	if time.Duration(cfg.Request.Timeout) != 25*time.Second {
		t.Errorf("expected 25s request timeout, got %v", time.Duration(cfg.Request.Timeout))
	}
	if cfg.Narrator.NarrationLengthMin != 400 || cfg.Narrator.NarrationLengthMax != 600 {
		t.Errorf("expected 400-600 word narration range, got %d-%d",
			cfg.Narrator.NarrationLengthMin, cfg.Narrator.NarrationLengthMax)
	}
}

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kahaani.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected config")
	}

	// File should now exist
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected config file to be created: %v", err)
	}
}

func TestLoadMergesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kahaani.yaml")

	content := []byte("server:\n  address: \"localhost:9999\"\npoi:\n  radius: 5km\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Address != "localhost:9999" {
		t.Errorf("expected overridden address, got %q", cfg.Server.Address)
	}
	if float64(cfg.POI.RadiusM) != 5000 {
		t.Errorf("expected 5000m radius, got %f", float64(cfg.POI.RadiusM))
	}
	// Untouched values keep defaults
	if cfg.Geocode.DefaultCity != "Mumbai" {
		t.Errorf("expected default city preserved, got %q", cfg.Geocode.DefaultCity)
	}
}

func TestEnvFallbacks(t *testing.T) {
	t.Setenv("PERPLEXITY_API_KEY", "pplx-test")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("ELEVENLABS_API_KEY", "el-test")
	t.Setenv("ELEVENLABS_AGENT_ID", "agent-test-123")

	cfg := DefaultConfig()
	cfg.applyEnvFallbacks()

	if cfg.Research.Key != "pplx-test" {
		t.Errorf("expected research key from env, got %q", cfg.Research.Key)
	}
	if cfg.LLM.Key != "sk-ant-test" {
		t.Errorf("expected anthropic key from env, got %q", cfg.LLM.Key)
	}
	if cfg.TTS.Key != "el-test" || cfg.ConvAI.Key != "el-test" {
		t.Error("expected elevenlabs key applied to tts and convai")
	}
	if cfg.ConvAI.AgentID != "agent-test-123" {
		t.Errorf("expected agent id from env, got %q", cfg.ConvAI.AgentID)
	}
}

func TestEnvFallbackDoesNotOverride(t *testing.T) {
	t.Setenv("ELEVENLABS_API_KEY", "env-key")

	cfg := DefaultConfig()
	cfg.TTS.Key = "file-key"
	cfg.applyEnvFallbacks()

	if cfg.TTS.Key != "file-key" {
		t.Errorf("file value must win over env, got %q", cfg.TTS.Key)
	}
}
