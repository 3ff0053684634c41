package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ChordDHT/internal/logger"
)

const sampleYAML = `
logger:
  active: true
  level: info
  encoding: console
  mode: stdout

dht:
  ring:
    bits: 160
    successorListSize: 8
    fingerTableLen: 160
  maintenance:
    stabilizeInterval: 1s
    fixFingersInterval: 1s
    checkPredecessorInterval: 2s
    rpcTimeout: 2s
  bootstrap:
    mode: create

node:
  bind: "0.0.0.0"
  port: 4000
  advertiseMode: private
`

func loadSample(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	return cfg
}

func TestLoadConfigParsesAllSections(t *testing.T) {
	cfg := loadSample(t)
	if cfg.DHT.Ring.Bits != 160 {
		t.Errorf("Ring.Bits = %d, want 160", cfg.DHT.Ring.Bits)
	}
	if cfg.DHT.Maintenance.StabilizeInterval != time.Second {
		t.Errorf("StabilizeInterval = %v, want 1s", cfg.DHT.Maintenance.StabilizeInterval)
	}
	if cfg.DHT.Bootstrap.Mode != "create" {
		t.Errorf("Bootstrap.Mode = %q, want create", cfg.DHT.Bootstrap.Mode)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("LoadConfig on a missing file should error")
	}
}

func TestValidateConfigAcceptsSample(t *testing.T) {
	cfg := loadSample(t)
	cfg.ApplyEnvOverrides()
	if err := cfg.ValidateConfig(); err != nil {
		t.Errorf("ValidateConfig: %v", err)
	}
}

func TestApplyEnvOverridesDefaultsAdvertiseModeToPrivate(t *testing.T) {
	cfg := loadSample(t)
	cfg.Node.AdvertiseMode = ""
	cfg.ApplyEnvOverrides()
	if cfg.Node.AdvertiseMode != "private" {
		t.Errorf("AdvertiseMode = %q, want private", cfg.Node.AdvertiseMode)
	}
}

func TestApplyEnvOverridesFromEnvironment(t *testing.T) {
	cfg := loadSample(t)
	t.Setenv("NODE_PORT", "5000")
	t.Setenv("NODE_ADVERTISE_MODE", "public")
	t.Setenv("BOOTSTRAP_PEERS", "10.0.0.1:4000,10.0.0.2:4000")
	cfg.ApplyEnvOverrides()

	if cfg.Node.Port != 5000 {
		t.Errorf("Node.Port = %d, want 5000", cfg.Node.Port)
	}
	if cfg.Node.AdvertiseMode != "public" {
		t.Errorf("AdvertiseMode = %q, want public", cfg.Node.AdvertiseMode)
	}
	if len(cfg.DHT.Bootstrap.Peers) != 2 {
		t.Errorf("Bootstrap.Peers = %v, want 2 entries", cfg.DHT.Bootstrap.Peers)
	}
}

func TestValidateConfigRejectsBadAdvertiseMode(t *testing.T) {
	cfg := loadSample(t)
	cfg.ApplyEnvOverrides()
	cfg.Node.AdvertiseMode = "sideways"
	if err := cfg.ValidateConfig(); err == nil {
		t.Error("ValidateConfig should reject an invalid advertiseMode")
	}
}

func TestValidateConfigBootstrapModes(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"dns missing dnsName", func(c *Config) {
			c.DHT.Bootstrap.Mode = "dns"
		}, true},
		{"dns srv ok", func(c *Config) {
			c.DHT.Bootstrap.Mode = "dns"
			c.DHT.Bootstrap.DNSName = "ring.internal"
			c.DHT.Bootstrap.SRV = true
			c.DHT.Bootstrap.Service = "chord"
			c.DHT.Bootstrap.Proto = "tcp"
		}, false},
		{"dns A record missing port", func(c *Config) {
			c.DHT.Bootstrap.Mode = "dns"
			c.DHT.Bootstrap.DNSName = "ring.internal"
		}, true},
		{"route53 missing zone", func(c *Config) {
			c.DHT.Bootstrap.Mode = "route53"
		}, true},
		{"route53 ok", func(c *Config) {
			c.DHT.Bootstrap.Mode = "route53"
			c.DHT.Bootstrap.Register.HostedZoneID = "Z1"
			c.DHT.Bootstrap.Register.DomainSuffix = "ring.example.com"
		}, false},
		{"coredns missing endpoints", func(c *Config) {
			c.DHT.Bootstrap.Mode = "coredns"
			c.DHT.Bootstrap.CoreDNS.Domain = "ring.cluster.local"
			c.DHT.Bootstrap.CoreDNS.TTL = 30
		}, true},
		{"coredns ok", func(c *Config) {
			c.DHT.Bootstrap.Mode = "coredns"
			c.DHT.Bootstrap.CoreDNS.EtcdEndpoints = []string{"etcd-0:2379"}
			c.DHT.Bootstrap.CoreDNS.Domain = "ring.cluster.local"
			c.DHT.Bootstrap.CoreDNS.TTL = 30
		}, false},
		{"static malformed peer", func(c *Config) {
			c.DHT.Bootstrap.Mode = "static"
			c.DHT.Bootstrap.Peers = []string{"not-an-address"}
		}, true},
		{"static ok", func(c *Config) {
			c.DHT.Bootstrap.Mode = "static"
			c.DHT.Bootstrap.Peers = []string{"10.0.0.1:4000"}
		}, false},
		{"unsupported mode", func(c *Config) {
			c.DHT.Bootstrap.Mode = "morse-code"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadSample(t)
			cfg.ApplyEnvOverrides()
			tt.mutate(cfg)
			err := cfg.ValidateConfig()
			if tt.wantErr && err == nil {
				t.Error("ValidateConfig() = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateConfig() = %v, want nil", err)
			}
		})
	}
}

func TestValidateConfigRejectsBadRing(t *testing.T) {
	cfg := loadSample(t)
	cfg.ApplyEnvOverrides()
	cfg.DHT.Ring.FingerTableLen = cfg.DHT.Ring.Bits + 1
	if err := cfg.ValidateConfig(); err == nil {
		t.Error("ValidateConfig should reject fingerTableLen > bits")
	}
}

func TestValidateConfigRejectsOutOfRangePort(t *testing.T) {
	cfg := loadSample(t)
	cfg.ApplyEnvOverrides()
	cfg.Node.Port = 70000
	if err := cfg.ValidateConfig(); err == nil {
		t.Error("ValidateConfig should reject an out-of-range port")
	}
}

func TestLogConfigDoesNotPanic(t *testing.T) {
	cfg := loadSample(t)
	cfg.ApplyEnvOverrides()
	cfg.LogConfig(&logger.NopLogger{})
}
