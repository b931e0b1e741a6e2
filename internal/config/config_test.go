package config

import "testing"

func TestLoadServerConfigDefaults(t *testing.T) {
	t.Setenv("OSMIX_GRPC_ADDR", "")
	t.Setenv("OSMIX_PBF_PATH", "")
	t.Setenv("OSMIX_WORKER_CONCURRENCY", "")
	t.Setenv("OSMIX_PROGRESS_INTERVAL_MS", "")

	cfg := LoadServerConfig()
	if cfg.GRPCAddr != "0.0.0.0:9327" {
		t.Errorf("GRPCAddr = %q, want default", cfg.GRPCAddr)
	}
	if cfg.WorkerConcurrency != 4 {
		t.Errorf("WorkerConcurrency = %d, want 4", cfg.WorkerConcurrency)
	}
	if cfg.ProgressIntervalMS != 1000 {
		t.Errorf("ProgressIntervalMS = %d, want 1000", cfg.ProgressIntervalMS)
	}
}

func TestLoadServerConfigFromEnv(t *testing.T) {
	t.Setenv("OSMIX_GRPC_ADDR", "127.0.0.1:1234")
	t.Setenv("OSMIX_WORKER_CONCURRENCY", "8")

	cfg := LoadServerConfig()
	if cfg.GRPCAddr != "127.0.0.1:1234" {
		t.Errorf("GRPCAddr = %q, want override", cfg.GRPCAddr)
	}
	if cfg.WorkerConcurrency != 8 {
		t.Errorf("WorkerConcurrency = %d, want 8", cfg.WorkerConcurrency)
	}
}
