package bootstrap

import (
	"testing"

	"ChordDHT/internal/config"
	"ChordDHT/internal/logger"
)

func TestNewDispatchesOnMode(t *testing.T) {
	lgr := &logger.NopLogger{}

	if _, err := New(config.BootstrapConfig{Mode: "static", Peers: []string{"10.0.0.1:4000"}}, lgr); err != nil {
		t.Errorf("mode=static: %v", err)
	}
	if _, err := New(config.BootstrapConfig{Mode: "dns", DNSName: "ring.internal"}, lgr); err != nil {
		t.Errorf("mode=dns: %v", err)
	}
}

func TestNewRejectsUnsupportedMode(t *testing.T) {
	lgr := &logger.NopLogger{}
	_, err := New(config.BootstrapConfig{Mode: "carrier-pigeon"}, lgr)
	if err == nil {
		t.Fatal("New with an unsupported mode should error")
	}
	// mode=create is special-cased by the caller and never reaches New.
	_, err = New(config.BootstrapConfig{Mode: "create"}, lgr)
	if err == nil {
		t.Error("New(mode=create) should error, the caller is expected to special-case it instead")
	}
}

func TestNewStaticRejectsBadPeerThroughFactory(t *testing.T) {
	lgr := &logger.NopLogger{}
	_, err := New(config.BootstrapConfig{Mode: "static", Peers: []string{"not-an-address"}}, lgr)
	if err == nil {
		t.Error("New(mode=static) with a malformed peer should error")
	}
}
