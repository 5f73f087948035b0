package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "secret",
	}))
	if err != nil {
		t.Fatalf("LoadWith returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.TokenTTL != 20*time.Minute {
		t.Errorf("expected token ttl 20m, got %s", cfg.TokenTTL)
	}
	if cfg.Mongo.Database != "contract_hub" {
		t.Errorf("unexpected mongo db: %q", cfg.Mongo.Database)
	}
	if cfg.Hub.SendBuffer != 64 {
		t.Errorf("expected send buffer 64, got %d", cfg.Hub.SendBuffer)
	}
	if cfg.Hub.PingPeriod() >= cfg.Hub.PongWait {
		t.Errorf("ping period %s must be below pong wait %s", cfg.Hub.PingPeriod(), cfg.Hub.PongWait)
	}
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":      "secret",
		"PORT":            "9090",
		"ENV":             "production",
		"HUB_SEND_BUFFER": "8",
		"HUB_PONG_WAIT":   "30s",
		"REDIS_DB":        "3",
		"REDIS_PASSWORD":  "pw",
	}))
	if err != nil {
		t.Fatalf("LoadWith returned error: %v", err)
	}
	if cfg.Port != "9090" || !cfg.IsProduction() {
		t.Errorf("unexpected port/env: %q %q", cfg.Port, cfg.Env)
	}
	if cfg.Hub.SendBuffer != 8 || cfg.Hub.PongWait != 30*time.Second {
		t.Errorf("hub overrides not applied: %+v", cfg.Hub)
	}
	if cfg.Redis.DB != 3 || cfg.Redis.Password != "pw" {
		t.Errorf("redis overrides not applied: %+v", cfg.Redis)
	}
	if cfg.Redis.PoolSize != 20 || cfg.Redis.OpTimeout != 3*time.Second {
		t.Errorf("unexpected redis pool defaults: %+v", cfg.Redis)
	}
}

func TestLoadWith_MissingSecret(t *testing.T) {
	if _, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{})); err == nil {
		t.Fatalf("expected error when JWT_SECRET is missing")
	}
}

func TestLoadWith_InvalidSendBuffer(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":      "secret",
		"HUB_SEND_BUFFER": "0",
	}))
	if err == nil {
		t.Fatalf("expected error for zero send buffer")
	}
}
