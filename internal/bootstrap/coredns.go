package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	clientv3 "go.etcd.io/etcd/client/v3"

	"ChordDHT/internal/config"
	"ChordDHT/internal/peer"
)

// CoreDNS discovers and publishes peers through etcd, in the layout the
// CoreDNS etcd plugin reads directly: one leased key per peer under
// basePath, holding a small JSON record. A lease ties each record to its
// owner's lifetime — an etcd-visible liveness signal independent of the
// ring's own stabilize/check_predecessor loops.
type CoreDNS struct {
	client   *clientv3.Client
	basePath string
	domain   string
	ttl      int64
}

type coreDNSRecord struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Priority int    `json:"priority"`
	Weight   int    `json:"weight"`
}

// NewCoreDNS dials the configured etcd endpoints. The connection is shared
// across Discover/Register/Deregister for the node's lifetime.
func NewCoreDNS(cfg config.CoreDNSConfig) (*CoreDNS, error) {
	cli, err := clientv3.New(clientv3.Config{Endpoints: cfg.EtcdEndpoints})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: dial etcd: %w", err)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30
	}
	return &CoreDNS{
		client:   cli,
		basePath: strings.TrimSuffix(cfg.BasePath, "/"),
		domain:   strings.TrimSuffix(cfg.Domain, "."),
		ttl:      ttl,
	}, nil
}

// Discover lists every peer record currently published under basePath.
func (c *CoreDNS) Discover(ctx context.Context) ([]peer.Address, error) {
	resp, err := c.client.Get(ctx, c.key(""), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("bootstrap: list etcd keys: %w", err)
	}
	out := make([]peer.Address, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var rec coreDNSRecord
		if err := json.Unmarshal(kv.Value, &rec); err != nil {
			continue
		}
		out = append(out, peer.Address{Host: rec.Host, Port: rec.Port})
	}
	return out, nil
}

// Register grants a lease of ttl seconds and publishes self under it. The
// record is automatically reaped by etcd if the node never renews — callers
// that want to stay discoverable longer than ttl must call Register again
// before it expires.
func (c *CoreDNS) Register(ctx context.Context, self peer.Address) error {
	lease, err := c.client.Grant(ctx, c.ttl)
	if err != nil {
		return fmt.Errorf("bootstrap: grant etcd lease: %w", err)
	}
	rec := coreDNSRecord{Host: self.Host, Port: self.Port, Priority: 10, Weight: 100}
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("bootstrap: marshal record: %w", err)
	}
	if _, err := c.client.Put(ctx, c.key(recordLabel(self)), string(val), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("bootstrap: put etcd record: %w", err)
	}
	return nil
}

// Deregister removes self's record immediately rather than waiting on lease
// expiry.
func (c *CoreDNS) Deregister(ctx context.Context, self peer.Address) error {
	_, err := c.client.Delete(ctx, c.key(recordLabel(self)))
	if err != nil {
		return fmt.Errorf("bootstrap: delete etcd record: %w", err)
	}
	return nil
}

func (c *CoreDNS) key(label string) string {
	return fmt.Sprintf("%s/%s/%s", c.basePath, c.domain, label)
}
