package gemini

import (
	"context"
	"testing"

	"kahaanigo/pkg/config"
)

func TestUnconfiguredClient(t *testing.T) {
	cfg := config.DefaultConfig().LLM
	cfg.Provider = "gemini"
	cfg.Key = ""

	c, err := NewClient(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if c.Configured() {
		t.Error("client without key must report unconfigured")
	}
	if _, err := c.GenerateText(context.Background(), "", "hi"); err == nil {
		t.Error("unconfigured client must refuse calls")
	}
}

func TestDefaultModel(t *testing.T) {
	cfg := config.DefaultConfig().LLM
	cfg.Model = ""

	c, err := NewClient(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if c.model != "gemini-2.0-flash" {
		t.Errorf("got %q", c.model)
	}
}
