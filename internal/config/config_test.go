package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "herd.toml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Environment != EnvDevelopment {
		t.Fatalf("environment = %q, want development", c.Environment)
	}
	if c.Server.Listen != ":8080" || c.Server.AdminListen != "127.0.0.1:9090" {
		t.Fatalf("unexpected listen defaults: %+v", c.Server)
	}
	if c.Server.DrainTimeout != 5*time.Second || c.Server.ShutdownGrace != 10*time.Second {
		t.Fatalf("unexpected timeout defaults: %+v", c.Server)
	}
	if c.ClusterEnabled() {
		t.Fatal("clustering should be off by default in development")
	}
}

func TestLoadFile(t *testing.T) {
	p := writeConfig(t, `
environment = "production"
env = ["REGION=eu-west-1"]

[cluster]
enabled = true
worker_count = 4
restart_delay = "250ms"
max_respawns = 10

[server]
listen = ":9000"

[history]
dsn = "sqlite:///tmp/herd.db"
`)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !c.ClusterEnabled() {
		t.Fatal("cluster.enabled = true was not honored")
	}
	sc := c.SupervisorConfig()
	if sc.WorkerCount != 4 || sc.RestartDelay != 250*time.Millisecond || sc.MaxRespawns != 10 {
		t.Fatalf("unexpected supervisor config: %+v", sc)
	}
	if c.Server.Listen != ":9000" {
		t.Fatalf("server.listen = %q", c.Server.Listen)
	}
	if c.History.DSN != "sqlite:///tmp/herd.db" {
		t.Fatalf("history.dsn = %q", c.History.DSN)
	}
	if len(c.Env) != 1 || c.Env[0] != "REGION=eu-west-1" {
		t.Fatalf("env = %v", c.Env)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HERD_SERVER_LISTEN", ":7070")
	t.Setenv("HERD_CLUSTER_WORKER_COUNT", "6")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Server.Listen != ":7070" {
		t.Fatalf("HERD_SERVER_LISTEN ignored, listen = %q", c.Server.Listen)
	}
	if c.Cluster.WorkerCount != 6 {
		t.Fatalf("HERD_CLUSTER_WORKER_COUNT ignored, worker_count = %d", c.Cluster.WorkerCount)
	}
}

// Keys without a default still have to be overridable from the environment.
func TestLoadEnvOverrideWithoutDefault(t *testing.T) {
	t.Setenv("HERD_CLUSTER_ENABLED", "true")
	t.Setenv("HERD_HISTORY_DSN", "sqlite:///var/lib/herd/herd.db")
	t.Setenv("HERD_LOG_DIR", "/var/log/herd")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Cluster.Enabled == nil || !*c.Cluster.Enabled || !c.ClusterEnabled() {
		t.Fatalf("HERD_CLUSTER_ENABLED ignored: %+v", c.Cluster)
	}
	if c.History.DSN != "sqlite:///var/lib/herd/herd.db" {
		t.Fatalf("HERD_HISTORY_DSN ignored, dsn = %q", c.History.DSN)
	}
	if c.Log.Dir != "/var/log/herd" {
		t.Fatalf("HERD_LOG_DIR ignored, dir = %q", c.Log.Dir)
	}
}

// Absent env bindings must not disturb nil-means-unset resolution.
func TestLoadLeavesClusterEnabledUnset(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Cluster.Enabled != nil {
		t.Fatalf("cluster.enabled should stay unset, got %v", *c.Cluster.Enabled)
	}
}

func TestClusterEnabledResolution(t *testing.T) {
	on, off := true, false
	cases := []struct {
		env     string
		enabled *bool
		want    bool
	}{
		{EnvDevelopment, nil, false},
		{EnvProduction, nil, true},
		{EnvDevelopment, &on, true},
		{EnvProduction, &off, false},
	}
	for _, tc := range cases {
		c := Config{Environment: tc.env, Cluster: ClusterConfig{Enabled: tc.enabled}}
		if got := c.ClusterEnabled(); got != tc.want {
			t.Fatalf("env=%s enabled=%v: got %v, want %v", tc.env, tc.enabled, got, tc.want)
		}
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	if _, err := Load(writeConfig(t, `environment = "staging"`)); err == nil {
		t.Fatal("unknown environment accepted")
	}
	if _, err := Load(writeConfig(t, "[cluster]\nmax_respawns = -1\n")); err == nil {
		t.Fatal("negative max_respawns accepted")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("missing explicit config file accepted")
	}
}
