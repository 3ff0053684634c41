package bootstrap

import (
	"encoding/json"
	"testing"
)

func TestCoreDNSKeyLayout(t *testing.T) {
	c := &CoreDNS{basePath: "/skydns", domain: "ring.cluster.local"}
	got := c.key("10-0-0-5-4000")
	want := "/skydns/ring.cluster.local/10-0-0-5-4000"
	if got != want {
		t.Errorf("key() = %q, want %q", got, want)
	}
}

func TestCoreDNSKeyDoesNotTrimRawFields(t *testing.T) {
	c := &CoreDNS{basePath: "/skydns/", domain: "ring.cluster.local."}
	// NewCoreDNS is what normally strips these; exercise key() directly
	// against the raw fields to document that it does not re-trim itself.
	got := c.key("label")
	want := "/skydns//ring.cluster.local./label"
	if got != want {
		t.Errorf("key() = %q, want %q", got, want)
	}
}

func TestCoreDNSRecordJSONRoundTrip(t *testing.T) {
	rec := coreDNSRecord{Host: "10.0.0.5", Port: 4000, Priority: 10, Weight: 100}
	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got coreDNSRecord
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != rec {
		t.Errorf("round trip = %+v, want %+v", got, rec)
	}
}
