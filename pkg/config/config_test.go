package config

import (
	"os"
	"path/filepath"
	"testing"
)

const validYAML = `
environment: development
backend:
  type: clickhouse
rpc:
  http_url: http://localhost:8899
  websocket_url: ws://localhost:8900
  program: LendXyKCPg8nhyeiKbq4eDDKqQsbxFbRgX3WGJxV111
  commitment: confirmed
monitor:
  market: 4UpD2fh7xH3VP9QQaXtsS1YY3bxzWhtfpks7FatyKvdY
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.Type != "clickhouse" {
		t.Fatalf("expected clickhouse backend, got %s", cfg.Backend.Type)
	}
	if cfg.RPC.Commitment != "confirmed" {
		t.Fatalf("expected confirmed commitment, got %s", cfg.RPC.Commitment)
	}
}

func TestLoadRejectsBadBackend(t *testing.T) {
	bad := `
environment: development
backend:
  type: postgres
rpc:
  http_url: http://localhost:8899
  program: LendXyKCPg8nhyeiKbq4eDDKqQsbxFbRgX3WGJxV111
monitor:
  market: 4UpD2fh7xH3VP9QQaXtsS1YY3bxzWhtfpks7FatyKvdY
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatal("expected error for unsupported backend type")
	}
}

func TestLoadRequiresRPCAndMarket(t *testing.T) {
	missing := `
environment: development
backend:
  type: kafka
`
	if _, err := Load(writeConfig(t, missing)); err == nil {
		t.Fatal("expected error for missing rpc and market settings")
	}
}

func TestLoadRejectsBadCommitment(t *testing.T) {
	bad := `
environment: development
backend:
  type: kafka
rpc:
  http_url: http://localhost:8899
  program: LendXyKCPg8nhyeiKbq4eDDKqQsbxFbRgX3WGJxV111
  commitment: recent
monitor:
  market: 4UpD2fh7xH3VP9QQaXtsS1YY3bxzWhtfpks7FatyKvdY
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatal("expected error for unsupported commitment level")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BACKEND", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadWithEnv(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}
	if cfg.Backend.Type != "kafka" {
		t.Fatalf("expected env override to kafka, got %s", cfg.Backend.Type)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Fatalf("expected 2 brokers, got %v", cfg.Kafka.Brokers)
	}
}
