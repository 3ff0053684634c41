package bootstrap

import (
	"fmt"

	"ChordDHT/internal/config"
	"ChordDHT/internal/logger"
)

// New builds the Bootstrap implementation named by cfg.Mode. mode=create
// is not handled here and returns an unsupported-mode error like any other
// unknown mode: the caller checks for it before calling New, since creating
// the first node of a ring needs no discovery source at all.
func New(cfg config.BootstrapConfig, lgr logger.Logger) (Bootstrap, error) {
	switch cfg.Mode {
	case "static":
		return NewStatic(cfg.Peers)
	case "dns":
		return NewDNS(cfg, lgr), nil
	case "route53":
		return NewRoute53(cfg)
	case "coredns":
		return NewCoreDNS(cfg.CoreDNS)
	default:
		return nil, fmt.Errorf("bootstrap: unsupported mode %q", cfg.Mode)
	}
}
