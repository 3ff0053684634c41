// Command node launches a single Chord DHT ring member: it loads
// configuration, brings up the TCP listener, joins or creates a ring, and
// runs until it receives SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ChordDHT/internal/bootstrap"
	"ChordDHT/internal/config"
	"ChordDHT/internal/logger"
	zapfactory "ChordDHT/internal/logger/zap"
	"ChordDHT/internal/netutil"
	"ChordDHT/internal/node"
	"ChordDHT/internal/peer"
	"ChordDHT/internal/ring"
	"ChordDHT/internal/telemetry"
)

var defaultConfigPath = "config/node/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %q: %v", *configPath, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var lgr logger.Logger
	if cfg.Logger.Active {
		zapLog, err := zapfactory.New(cfg.Logger)
		if err != nil {
			log.Fatalf("failed to initialize logger: %v", err)
		}
		defer func() { _ = zapLog.Sync() }()
		lgr = zapfactory.NewZapAdapter(zapLog)
	} else {
		lgr = &logger.NopLogger{}
	}
	cfg.LogConfig(lgr)

	lis, advertised, err := netutil.Listen(cfg.Node.AdvertiseMode, cfg.Node.Bind, cfg.Node.Host, cfg.Node.Port)
	if err != nil {
		lgr.Error("failed to initialize listener", logger.F("err", err))
		os.Exit(1)
	}
	defer func() { _ = lis.Close() }()
	lgr.Debug("listener ready", logger.F("advertised", advertised))

	space, err := ring.NewSpace(cfg.DHT.Ring.Bits)
	if err != nil {
		lgr.Error("failed to initialize identifier space", logger.F("err", err))
		os.Exit(1)
	}

	self, err := parseAdvertised(advertised)
	if err != nil {
		lgr.Error("failed to parse advertised address", logger.F("err", err))
		os.Exit(1)
	}

	n := node.New(self, space, cfg.DHT.Ring.SuccessorList, cfg.DHT.Maintenance, node.WithLogger(lgr))
	lgr = lgr.Named("main").With(self.Field("self"), logger.F("id", n.ID().ToHexString()))
	lgr.Info("node initialized")

	shutdown := telemetry.InitTracer(cfg.Telemetry, "chorddht-node", n.ID())
	defer func() { _ = shutdown(context.Background()) }()

	if cfg.DHT.Bootstrap.Mode == "create" {
		n.CreateRing()
	} else {
		bs, err := bootstrap.New(cfg.DHT.Bootstrap, lgr.Named("bootstrap"))
		if err != nil {
			lgr.Error("failed to initialize bootstrap", logger.F("err", err))
			os.Exit(1)
		}

		discoverCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		peers, err := bs.Discover(discoverCtx)
		cancel()
		if err != nil {
			lgr.Error("failed to resolve bootstrap peers", logger.F("err", err))
			os.Exit(1)
		}

		if len(peers) == 0 {
			lgr.Info("no bootstrap peers found, creating new ring")
			n.CreateRing()
		} else {
			joined := false
			for _, p := range peers {
				joinCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				err := n.Join(joinCtx, p)
				cancel()
				if err == nil {
					joined = true
					break
				}
				lgr.Warn("join attempt failed, trying next bootstrap peer", logger.F("peer", p.String()), logger.F("err", err))
			}
			if !joined {
				lgr.Error("failed to join DHT through any bootstrap peer")
				os.Exit(1)
			}
		}

		regCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := bs.Register(regCtx, self); err != nil {
			lgr.Warn("failed to register with bootstrap", logger.F("err", err))
		}
		cancel()
		defer func() {
			deregCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := bs.Deregister(deregCtx, self); err != nil {
				lgr.Warn("failed to deregister from bootstrap", logger.F("err", err))
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	n.Start(ctx)
	lgr.Debug("maintenance loops started")

	serveErr := make(chan error, 1)
	go func() { serveErr <- n.Serve(ctx, lis) }()
	lgr.Info("serving")

	select {
	case <-ctx.Done():
		lgr.Info("shutdown signal received, stopping gracefully")
		stop()
		_ = lis.Close()
		n.Shutdown()
	case err := <-serveErr:
		lgr.Error("listener terminated unexpectedly", logger.F("err", err))
		stop()
		n.Shutdown()
		os.Exit(1)
	}
}

// parseAdvertised splits a "host:port" string into a peer.Address.
func parseAdvertised(addr string) (peer.Address, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return peer.Address{}, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return peer.Address{}, err
	}
	return peer.Address{Host: host, Port: port}, nil
}
