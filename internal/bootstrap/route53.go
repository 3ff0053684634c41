package bootstrap

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"

	"ChordDHT/internal/config"
	"ChordDHT/internal/peer"
)

// Route53 discovers and publishes ring membership as SRV records in a
// hosted zone, using the AWS API directly rather than a DNS query — it sees
// writes from Register immediately, with no propagation delay.
type Route53 struct {
	client       *route53.Client
	hostedZoneID string
	domainSuffix string
	ttl          int64
}

// NewRoute53 builds a Route53 bootstrap source from a BootstrapConfig in
// mode=route53. Credentials and region come from the default AWS config
// chain (environment, shared config file, or instance role).
func NewRoute53(cfg config.BootstrapConfig) (*Route53, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
	}

	ttl := cfg.Register.TTL
	if ttl <= 0 {
		ttl = 30
	}
	return &Route53{
		client:       route53.NewFromConfig(awsCfg),
		hostedZoneID: cfg.Register.HostedZoneID,
		domainSuffix: strings.TrimSuffix(cfg.Register.DomainSuffix, "."),
		ttl:          ttl,
	}, nil
}

// Discover lists every SRV record in the hosted zone under domainSuffix and
// resolves each target to its addresses.
func (r *Route53) Discover(ctx context.Context) ([]peer.Address, error) {
	var out []peer.Address

	input := &route53.ListResourceRecordSetsInput{HostedZoneId: aws.String(r.hostedZoneID)}
	paginator := route53.NewListResourceRecordSetsPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: list route53 records: %w", err)
		}
		for _, rrset := range page.ResourceRecordSets {
			if rrset.Type != types.RRTypeSrv {
				continue
			}
			if !strings.HasSuffix(strings.TrimSuffix(*rrset.Name, "."), r.domainSuffix) {
				continue
			}
			for _, rr := range rrset.ResourceRecords {
				var prio, weight, port int
				var target string
				if _, err := fmt.Sscanf(*rr.Value, "%d %d %d %s", &prio, &weight, &port, &target); err != nil {
					continue
				}
				target = strings.TrimSuffix(target, ".")
				ips, err := net.LookupHost(target)
				if err != nil {
					continue
				}
				for _, ip := range ips {
					out = append(out, peer.Address{Host: ip, Port: port})
				}
			}
		}
	}
	return out, nil
}

// Register upserts an SRV record for self, named by its host:port so a
// rejoin with the same address overwrites rather than duplicates.
func (r *Route53) Register(ctx context.Context, self peer.Address) error {
	input := &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(r.hostedZoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{{
				Action:            types.ChangeActionUpsert,
				ResourceRecordSet: r.recordSet(self),
			}},
		},
	}
	_, err := r.client.ChangeResourceRecordSets(ctx, input)
	if err != nil {
		return fmt.Errorf("bootstrap: register %s in route53: %w", self, err)
	}
	return nil
}

// Deregister removes the SRV record previously published by Register.
func (r *Route53) Deregister(ctx context.Context, self peer.Address) error {
	input := &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(r.hostedZoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{{
				Action:            types.ChangeActionDelete,
				ResourceRecordSet: r.recordSet(self),
			}},
		},
	}
	_, err := r.client.ChangeResourceRecordSets(ctx, input)
	if err != nil {
		return fmt.Errorf("bootstrap: deregister %s in route53: %w", self, err)
	}
	return nil
}

func (r *Route53) recordSet(self peer.Address) *types.ResourceRecordSet {
	recordName := fmt.Sprintf("%s.%s.", recordLabel(self), r.domainSuffix)
	return &types.ResourceRecordSet{
		Name: aws.String(recordName),
		Type: types.RRTypeSrv,
		TTL:  aws.Int64(r.ttl),
		ResourceRecords: []types.ResourceRecord{{
			// priority weight port target, priority and weight fixed at 0
			Value: aws.String(fmt.Sprintf("0 0 %d %s.", self.Port, self.Host)),
		}},
	}
}

// recordLabel turns an address into a DNS label safe name, since host:port
// isn't itself a valid label.
func recordLabel(a peer.Address) string {
	return strings.ReplaceAll(a.Host, ".", "-") + "-" + strconv.Itoa(a.Port)
}
