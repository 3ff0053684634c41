// Package config loads, overrides, and validates node configuration.
//
// Loading is a three-phase lifecycle: LoadConfig does only syntactic YAML
// parsing, ApplyEnvOverrides applies deployment-specific overrides from the
// environment, and ValidateConfig checks the result is structurally and
// semantically sound. Callers are expected to run all three in order before
// handing the config to the rest of the node.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ChordDHT/internal/logger"
)

type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

type TelemetryConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

type FileLoggerConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"`
	Compress   bool   `yaml:"compress"`
}

type LoggerConfig struct {
	Active   bool             `yaml:"active"`
	Level    string           `yaml:"level"`
	Encoding string           `yaml:"encoding"`
	Mode     string           `yaml:"mode"`
	File     FileLoggerConfig `yaml:"file"`
}

// RingConfig holds the identifier-space and finger-table tuning parameters.
type RingConfig struct {
	Bits           int `yaml:"bits"`
	SuccessorList  int `yaml:"successorListSize"`
	FingerTableLen int `yaml:"fingerTableLen"`
}

// MaintenanceConfig holds the periodic background task intervals and the
// per-call RPC timeout.
type MaintenanceConfig struct {
	StabilizeInterval      time.Duration `yaml:"stabilizeInterval"`
	FixFingersInterval     time.Duration `yaml:"fixFingersInterval"`
	CheckPredecessorPeriod time.Duration `yaml:"checkPredecessorInterval"`
	RPCTimeout             time.Duration `yaml:"rpcTimeout"`
}

type RegisterConfig struct {
	Enabled      bool   `yaml:"enabled"`
	HostedZoneID string `yaml:"hostedZoneId"`
	DomainSuffix string `yaml:"domainSuffix"`
	TTL          int64  `yaml:"ttl"`
}

// CoreDNSConfig configures the etcd-backed CoreDNS registration path: peers
// are published as JSON records under BasePath, the way the CoreDNS etcd
// plugin expects them laid out.
type CoreDNSConfig struct {
	EtcdEndpoints []string `yaml:"etcdEndpoints"`
	BasePath      string   `yaml:"basePath"`
	Domain        string   `yaml:"domain"`
	TTL           int64    `yaml:"ttl"`
}

type BootstrapConfig struct {
	Mode     string         `yaml:"mode"`
	Resolver string         `yaml:"resolver"`
	DNSName  string         `yaml:"dnsName"`
	Service  string         `yaml:"service"`
	Proto    string         `yaml:"proto"`
	SRV      bool           `yaml:"srv"`
	Port     int            `yaml:"port"`
	Peers    []string       `yaml:"peers"`
	Register RegisterConfig `yaml:"register"`
	CoreDNS  CoreDNSConfig  `yaml:"coredns"`
}

type DHTConfig struct {
	Ring        RingConfig        `yaml:"ring"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Bootstrap   BootstrapConfig   `yaml:"bootstrap"`
}

type NodeConfig struct {
	Bind          string `yaml:"bind"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	AdvertiseMode string `yaml:"advertiseMode"`
}

type Config struct {
	Logger    LoggerConfig    `yaml:"logger"`
	DHT       DHTConfig       `yaml:"dht"`
	Node      NodeConfig      `yaml:"node"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LoadConfig loads the configuration from a YAML file at the given path.
//
// This performs only syntactic parsing. Call ApplyEnvOverrides and then
// ValidateConfig before using the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides to the
// configuration. Supported overrides:
//
//	NODE_BIND            -> cfg.Node.Bind
//	NODE_HOST            -> cfg.Node.Host
//	NODE_PORT            -> cfg.Node.Port
//	NODE_ADVERTISE_MODE  -> cfg.Node.AdvertiseMode ("private" or "public")
//	BOOTSTRAP_MODE       -> cfg.DHT.Bootstrap.Mode
//	BOOTSTRAP_RESOLVER   -> cfg.DHT.Bootstrap.Resolver
//	BOOTSTRAP_DNSNAME    -> cfg.DHT.Bootstrap.DNSName
//	BOOTSTRAP_SERVICE    -> cfg.DHT.Bootstrap.Service
//	BOOTSTRAP_PROTO      -> cfg.DHT.Bootstrap.Proto
//	BOOTSTRAP_SRV        -> cfg.DHT.Bootstrap.SRV
//	BOOTSTRAP_PORT       -> cfg.DHT.Bootstrap.Port
//	BOOTSTRAP_PEERS      -> cfg.DHT.Bootstrap.Peers (comma-separated)
//	COREDNS_ETCD_ENDPOINTS -> cfg.DHT.Bootstrap.CoreDNS.EtcdEndpoints (comma-separated)
//	COREDNS_BASE_PATH    -> cfg.DHT.Bootstrap.CoreDNS.BasePath
//	COREDNS_DOMAIN       -> cfg.DHT.Bootstrap.CoreDNS.Domain
//	COREDNS_TTL          -> cfg.DHT.Bootstrap.CoreDNS.TTL
//	REGISTER_ENABLED     -> cfg.DHT.Bootstrap.Register.Enabled
//	REGISTER_ZONE_ID     -> cfg.DHT.Bootstrap.Register.HostedZoneID
//	REGISTER_SUFFIX      -> cfg.DHT.Bootstrap.Register.DomainSuffix
//	REGISTER_TTL         -> cfg.DHT.Bootstrap.Register.TTL
//	TRACE_ENABLED        -> cfg.Telemetry.Tracing.Enabled
//	TRACE_EXPORTER       -> cfg.Telemetry.Tracing.Exporter
//	TRACE_ENDPOINT       -> cfg.Telemetry.Tracing.Endpoint
//	LOGGER_ENABLED       -> cfg.Logger.Active
//	LOGGER_LEVEL         -> cfg.Logger.Level
//	LOGGER_ENCODING      -> cfg.Logger.Encoding
//	LOGGER_MODE          -> cfg.Logger.Mode
//	LOGGER_FILE_PATH     -> cfg.Logger.File.Path
func (cfg *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NODE_BIND"); v != "" {
		cfg.Node.Bind = v
	} else if cfg.Node.Bind == "" {
		cfg.Node.Bind = "0.0.0.0"
	}
	if v := os.Getenv("NODE_HOST"); v != "" {
		cfg.Node.Host = v
	}
	if v := os.Getenv("NODE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Node.Port = port
		}
	}
	if v := os.Getenv("NODE_ADVERTISE_MODE"); v != "" {
		cfg.Node.AdvertiseMode = v
	} else if cfg.Node.AdvertiseMode == "" {
		cfg.Node.AdvertiseMode = "private"
	}

	if v := os.Getenv("BOOTSTRAP_MODE"); v != "" {
		cfg.DHT.Bootstrap.Mode = v
	}
	if v := os.Getenv("BOOTSTRAP_RESOLVER"); v != "" {
		cfg.DHT.Bootstrap.Resolver = v
	}
	if v := os.Getenv("BOOTSTRAP_DNSNAME"); v != "" {
		cfg.DHT.Bootstrap.DNSName = v
	}
	if v := os.Getenv("BOOTSTRAP_SERVICE"); v != "" {
		cfg.DHT.Bootstrap.Service = v
	}
	if v := os.Getenv("BOOTSTRAP_PROTO"); v != "" {
		cfg.DHT.Bootstrap.Proto = v
	}
	if v := os.Getenv("BOOTSTRAP_SRV"); v != "" {
		cfg.DHT.Bootstrap.SRV = parseBool(v)
	}
	if v := os.Getenv("BOOTSTRAP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.DHT.Bootstrap.Port = port
		}
	}
	if v := os.Getenv("BOOTSTRAP_PEERS"); v != "" {
		cfg.DHT.Bootstrap.Peers = strings.Split(v, ",")
	}
	if v := os.Getenv("COREDNS_ETCD_ENDPOINTS"); v != "" {
		cfg.DHT.Bootstrap.CoreDNS.EtcdEndpoints = strings.Split(v, ",")
	}
	if v := os.Getenv("COREDNS_BASE_PATH"); v != "" {
		cfg.DHT.Bootstrap.CoreDNS.BasePath = v
	}
	if v := os.Getenv("COREDNS_DOMAIN"); v != "" {
		cfg.DHT.Bootstrap.CoreDNS.Domain = v
	}
	if v := os.Getenv("COREDNS_TTL"); v != "" {
		if ttl, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.DHT.Bootstrap.CoreDNS.TTL = ttl
		}
	}
	if v := os.Getenv("REGISTER_ENABLED"); v != "" {
		cfg.DHT.Bootstrap.Register.Enabled = parseBool(v)
	}
	if v := os.Getenv("REGISTER_ZONE_ID"); v != "" {
		cfg.DHT.Bootstrap.Register.HostedZoneID = v
	}
	if v := os.Getenv("REGISTER_SUFFIX"); v != "" {
		cfg.DHT.Bootstrap.Register.DomainSuffix = v
	}
	if v := os.Getenv("REGISTER_TTL"); v != "" {
		if ttl, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.DHT.Bootstrap.Register.TTL = ttl
		}
	}
	if v := os.Getenv("TRACE_ENABLED"); v != "" {
		cfg.Telemetry.Tracing.Enabled = parseBool(v)
	}
	if v := os.Getenv("TRACE_EXPORTER"); v != "" {
		cfg.Telemetry.Tracing.Exporter = v
	}
	if v := os.Getenv("TRACE_ENDPOINT"); v != "" {
		cfg.Telemetry.Tracing.Endpoint = v
	}
	if v := os.Getenv("LOGGER_ENABLED"); v != "" {
		cfg.Logger.Active = parseBool(v)
	}
	if v := os.Getenv("LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("LOGGER_ENCODING"); v != "" {
		cfg.Logger.Encoding = v
	}
	if v := os.Getenv("LOGGER_MODE"); v != "" {
		cfg.Logger.Mode = v
	}
	if v := os.Getenv("LOGGER_FILE_PATH"); v != "" {
		cfg.Logger.File.Path = v
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(v)
	return v == "true" || v == "1" || v == "yes"
}

// ValidateConfig performs structural and semantic validation of the loaded
// configuration. All detected issues are accumulated and returned as a
// single error.
func (cfg *Config) ValidateConfig() error {
	var errs []string

	switch cfg.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.level: %s", cfg.Logger.Level))
	}
	switch cfg.Logger.Encoding {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.encoding: %s", cfg.Logger.Encoding))
	}
	switch cfg.Logger.Mode {
	case "stdout":
	case "file":
		if cfg.Logger.File.Path == "" {
			errs = append(errs, "logger.file.path is required when mode=file")
		}
		if cfg.Logger.File.MaxSize < 0 || cfg.Logger.File.MaxBackups < 0 || cfg.Logger.File.MaxAge < 0 {
			errs = append(errs, "logger.file.* values must be non-negative")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.mode: %s", cfg.Logger.Mode))
	}

	if cfg.DHT.Ring.Bits <= 0 {
		errs = append(errs, "dht.ring.bits must be > 0")
	}
	if cfg.DHT.Ring.FingerTableLen <= 0 {
		errs = append(errs, "dht.ring.fingerTableLen must be > 0")
	}
	if cfg.DHT.Ring.FingerTableLen > cfg.DHT.Ring.Bits {
		errs = append(errs, "dht.ring.fingerTableLen must be <= dht.ring.bits")
	}
	if cfg.DHT.Ring.SuccessorList <= 0 {
		errs = append(errs, "dht.ring.successorListSize must be > 0")
	}
	if cfg.DHT.Maintenance.StabilizeInterval <= 0 {
		errs = append(errs, "dht.maintenance.stabilizeInterval must be > 0")
	}
	if cfg.DHT.Maintenance.FixFingersInterval <= 0 {
		errs = append(errs, "dht.maintenance.fixFingersInterval must be > 0")
	}
	if cfg.DHT.Maintenance.CheckPredecessorPeriod <= 0 {
		errs = append(errs, "dht.maintenance.checkPredecessorInterval must be > 0")
	}
	if cfg.DHT.Maintenance.RPCTimeout <= 0 {
		errs = append(errs, "dht.maintenance.rpcTimeout must be > 0")
	}

	b := cfg.DHT.Bootstrap
	switch b.Mode {
	case "dns":
		if b.DNSName == "" {
			errs = append(errs, "bootstrap.dnsName is required in mode=dns")
		}
		if b.SRV {
			if b.Service == "" || b.Proto == "" {
				errs = append(errs, "bootstrap.service and bootstrap.proto are required when srv=true")
			}
		} else if b.Port <= 0 {
			errs = append(errs, "bootstrap.port must be > 0 when using A/AAAA (srv=false)")
		}
	case "route53":
		if b.Register.HostedZoneID == "" {
			errs = append(errs, "bootstrap.register.hostedZoneId is required in mode=route53")
		}
		if b.Register.DomainSuffix == "" {
			errs = append(errs, "bootstrap.register.domainSuffix is required in mode=route53")
		}
		if b.Register.Enabled && b.Register.TTL <= 0 {
			errs = append(errs, "bootstrap.register.ttl must be > 0 when register.enabled=true")
		}
	case "coredns":
		if len(b.CoreDNS.EtcdEndpoints) == 0 {
			errs = append(errs, "bootstrap.coredns.etcdEndpoints must be non-empty in mode=coredns")
		}
		if b.CoreDNS.Domain == "" {
			errs = append(errs, "bootstrap.coredns.domain is required in mode=coredns")
		}
		if b.CoreDNS.TTL <= 0 {
			errs = append(errs, "bootstrap.coredns.ttl must be > 0 in mode=coredns")
		}
	case "static":
		for _, p := range b.Peers {
			if _, _, err := net.SplitHostPort(p); err != nil {
				errs = append(errs, fmt.Sprintf("invalid peer address %q in bootstrap.peers: %v", p, err))
			}
		}
	case "create":
		// first node of the ring, no extra constraints
	default:
		errs = append(errs, fmt.Sprintf("invalid bootstrap.mode: %s (must be dns, route53, coredns, static or create)", b.Mode))
	}

	if cfg.Node.Port < 0 || cfg.Node.Port > 65535 {
		errs = append(errs, fmt.Sprintf("node.port must be in [0,65535], got %d", cfg.Node.Port))
	}
	switch cfg.Node.AdvertiseMode {
	case "private", "public":
	default:
		errs = append(errs, fmt.Sprintf("invalid node.advertiseMode: %s (must be private or public)", cfg.Node.AdvertiseMode))
	}

	if cfg.Telemetry.Tracing.Enabled {
		switch cfg.Telemetry.Tracing.Exporter {
		case "stdout", "otlp":
		default:
			errs = append(errs, fmt.Sprintf("invalid telemetry.tracing.exporter: %s", cfg.Telemetry.Tracing.Exporter))
		}
		if cfg.Telemetry.Tracing.Exporter == "otlp" && cfg.Telemetry.Tracing.Endpoint == "" {
			errs = append(errs, "telemetry.tracing.endpoint is required when exporter=otlp")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// LogConfig prints the loaded configuration at DEBUG level, useful for
// diagnosing startup issues.
func (cfg *Config) LogConfig(lgr logger.Logger) {
	lgr.Debug("loaded configuration",
		logger.F("logger.active", cfg.Logger.Active),
		logger.F("logger.level", cfg.Logger.Level),
		logger.F("logger.encoding", cfg.Logger.Encoding),
		logger.F("logger.mode", cfg.Logger.Mode),
		logger.F("logger.file.path", cfg.Logger.File.Path),

		logger.F("dht.ring.bits", cfg.DHT.Ring.Bits),
		logger.F("dht.ring.fingerTableLen", cfg.DHT.Ring.FingerTableLen),
		logger.F("dht.ring.successorListSize", cfg.DHT.Ring.SuccessorList),

		logger.F("dht.maintenance.stabilizeInterval", cfg.DHT.Maintenance.StabilizeInterval.String()),
		logger.F("dht.maintenance.fixFingersInterval", cfg.DHT.Maintenance.FixFingersInterval.String()),
		logger.F("dht.maintenance.checkPredecessorInterval", cfg.DHT.Maintenance.CheckPredecessorPeriod.String()),
		logger.F("dht.maintenance.rpcTimeout", cfg.DHT.Maintenance.RPCTimeout.String()),

		logger.F("dht.bootstrap.mode", cfg.DHT.Bootstrap.Mode),
		logger.F("dht.bootstrap.resolver", cfg.DHT.Bootstrap.Resolver),
		logger.F("dht.bootstrap.dnsName", cfg.DHT.Bootstrap.DNSName),
		logger.F("dht.bootstrap.service", cfg.DHT.Bootstrap.Service),
		logger.F("dht.bootstrap.proto", cfg.DHT.Bootstrap.Proto),
		logger.F("dht.bootstrap.srv", cfg.DHT.Bootstrap.SRV),
		logger.F("dht.bootstrap.port", cfg.DHT.Bootstrap.Port),
		logger.F("dht.bootstrap.peers", cfg.DHT.Bootstrap.Peers),

		logger.F("dht.bootstrap.register.enabled", cfg.DHT.Bootstrap.Register.Enabled),
		logger.F("dht.bootstrap.register.hostedZoneId", cfg.DHT.Bootstrap.Register.HostedZoneID),
		logger.F("dht.bootstrap.register.domainSuffix", cfg.DHT.Bootstrap.Register.DomainSuffix),
		logger.F("dht.bootstrap.register.ttl", cfg.DHT.Bootstrap.Register.TTL),

		logger.F("dht.bootstrap.coredns.etcdEndpoints", cfg.DHT.Bootstrap.CoreDNS.EtcdEndpoints),
		logger.F("dht.bootstrap.coredns.basePath", cfg.DHT.Bootstrap.CoreDNS.BasePath),
		logger.F("dht.bootstrap.coredns.domain", cfg.DHT.Bootstrap.CoreDNS.Domain),
		logger.F("dht.bootstrap.coredns.ttl", cfg.DHT.Bootstrap.CoreDNS.TTL),

		logger.F("node.host", cfg.Node.Host),
		logger.F("node.bind", cfg.Node.Bind),
		logger.F("node.port", cfg.Node.Port),
		logger.F("node.advertiseMode", cfg.Node.AdvertiseMode),

		logger.F("telemetry.tracing.enabled", cfg.Telemetry.Tracing.Enabled),
		logger.F("telemetry.tracing.exporter", cfg.Telemetry.Tracing.Exporter),
		logger.F("telemetry.tracing.endpoint", cfg.Telemetry.Tracing.Endpoint),
	)
}
