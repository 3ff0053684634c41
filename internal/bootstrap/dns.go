package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"

	"ChordDHT/internal/config"
	"ChordDHT/internal/logger"
	"ChordDHT/internal/peer"
)

// DNS discovers candidate peers by querying a plain DNS resolver directly —
// either an SRV record set (priority/weight/port/target, per RFC 2782) or a
// bare A/AAAA lookup against a fixed port. It never registers: a generic
// resolver has no write path, so Register/Deregister are no-ops.
type DNS struct {
	client   *dns.Client
	resolver string
	dnsName  string
	service  string
	proto    string
	srv      bool
	port     int
	lgr      logger.Logger
}

// NewDNS builds a DNS bootstrap source from a BootstrapConfig in mode=dns.
func NewDNS(cfg config.BootstrapConfig, lgr logger.Logger) *DNS {
	resolver := cfg.Resolver
	if resolver == "" {
		resolver = "8.8.8.8:53"
	} else if !strings.Contains(resolver, ":") {
		resolver += ":53"
	}
	return &DNS{
		client:   &dns.Client{Timeout: 2 * time.Second},
		resolver: resolver,
		dnsName:  cfg.DNSName,
		service:  cfg.Service,
		proto:    cfg.Proto,
		srv:      cfg.SRV,
		port:     cfg.Port,
		lgr:      lgr,
	}
}

// Discover resolves the configured name into peer addresses. A resolution
// failure or an empty result set is not an error: it just means no peers
// were found this round, and the caller treats that like mode=create.
func (d *DNS) Discover(ctx context.Context) ([]peer.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if d.srv {
		return d.discoverSRV(ctx)
	}
	return d.discoverHost(ctx)
}

func (d *DNS) discoverSRV(ctx context.Context) ([]peer.Address, error) {
	name := fmt.Sprintf("_%s._%s.%s", d.service, d.proto, d.dnsName)
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeSRV)
	d.lgr.Info("bootstrap: sending SRV query", logger.F("qname", msg.Question[0].Name))

	in, _, err := d.client.ExchangeContext(ctx, msg, d.resolver)
	if err != nil {
		d.lgr.Warn("bootstrap: SRV lookup failed", logger.F("qname", name), logger.F("err", err))
		return nil, nil
	}
	if len(in.Answer) == 0 {
		d.lgr.Warn("bootstrap: SRV lookup returned no answers", logger.F("qname", name))
		return nil, nil
	}

	glue := map[string][]string{}
	for _, extra := range in.Extra {
		switch rr := extra.(type) {
		case *dns.A:
			name := strings.TrimSuffix(rr.Hdr.Name, ".")
			glue[name] = append(glue[name], rr.A.String())
		case *dns.AAAA:
			name := strings.TrimSuffix(rr.Hdr.Name, ".")
			glue[name] = append(glue[name], rr.AAAA.String())
		}
	}

	var out []peer.Address
	for _, ans := range in.Answer {
		srv, ok := ans.(*dns.SRV)
		if !ok {
			continue
		}
		target := strings.TrimSuffix(srv.Target, ".")
		ips, found := glue[target]
		if !found {
			ips = d.resolveHost(ctx, target)
		}
		for _, ip := range ips {
			out = append(out, peer.Address{Host: ip, Port: int(srv.Port)})
		}
	}
	return out, nil
}

func (d *DNS) discoverHost(ctx context.Context) ([]peer.Address, error) {
	ips := d.resolveHost(ctx, d.dnsName)
	if len(ips) == 0 {
		d.lgr.Warn("bootstrap: host lookup returned no addresses", logger.F("qname", d.dnsName))
		return nil, nil
	}
	out := make([]peer.Address, 0, len(ips))
	for _, ip := range ips {
		out = append(out, peer.Address{Host: ip, Port: d.port})
	}
	return out, nil
}

// resolveHost queries A then, if empty, AAAA for target, best-effort.
func (d *DNS) resolveHost(ctx context.Context, target string) []string {
	var ips []string
	name := dns.Fqdn(target)

	msgA := new(dns.Msg)
	msgA.SetQuestion(name, dns.TypeA)
	if in, _, err := d.client.ExchangeContext(ctx, msgA, d.resolver); err == nil {
		for _, ans := range in.Answer {
			if a, ok := ans.(*dns.A); ok {
				ips = append(ips, a.A.String())
			}
		}
	}
	if len(ips) > 0 {
		return ips
	}

	msgAAAA := new(dns.Msg)
	msgAAAA.SetQuestion(name, dns.TypeAAAA)
	if in, _, err := d.client.ExchangeContext(ctx, msgAAAA, d.resolver); err == nil {
		for _, ans := range in.Answer {
			if aaaa, ok := ans.(*dns.AAAA); ok {
				ips = append(ips, aaaa.AAAA.String())
			}
		}
	}
	return ips
}

// Register is a no-op: a plain resolver has nothing accepting writes.
func (d *DNS) Register(ctx context.Context, self peer.Address) error { return nil }

// Deregister is a no-op for the same reason.
func (d *DNS) Deregister(ctx context.Context, self peer.Address) error { return nil }
