package config_test

import (
	"testing"

	"github.com/fileharbor/fileharbor/internal/config"
)

func TestNewDefaults(t *testing.T) {
	cfg := config.New()
	if cfg.Port != 4578 {
		t.Errorf("Port = %d, want 4578", cfg.Port)
	}
	if cfg.Hostname != "localhost" {
		t.Errorf("Hostname = %q, want localhost", cfg.Hostname)
	}
	if cfg.Directory != "./data" {
		t.Errorf("Directory = %q, want ./data", cfg.Directory)
	}
	if cfg.RoutingRule != nil {
		t.Error("RoutingRule should default to nil")
	}
}

func TestOptionsOverrideDefaults(t *testing.T) {
	cfg := config.New(
		config.WithPort(9000),
		config.WithHostname("0.0.0.0"),
		config.WithIndexDocument("index.html"),
		config.WithErrorDocument("404.html"),
		config.WithSilent(true),
		config.WithRoutingRule(&config.RoutingRule{Protocol: "https", HostName: "example.com"}),
	)
	if cfg.Port != 9000 || cfg.Hostname != "0.0.0.0" {
		t.Fatalf("options not applied: %+v", cfg)
	}
	if cfg.IndexDocument != "index.html" || cfg.ErrorDocument != "404.html" {
		t.Fatalf("document options not applied: %+v", cfg)
	}
	if !cfg.Silent {
		t.Fatal("WithSilent(true) not applied")
	}
	if cfg.RoutingRule == nil || cfg.RoutingRule.HostName != "example.com" {
		t.Fatalf("RoutingRule not applied: %+v", cfg.RoutingRule)
	}
}
