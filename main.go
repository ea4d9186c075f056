package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/audio"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/bridge"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/config"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/engine"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/logger"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/monitor"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/persistence"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/rpc"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/server"
	"github.com/Mercetti/ALL-IN-CHAT-POKER-sub013/services"
)

func main() {
	// .env is optional; real environment variables win
	envErr := godotenv.Load()

	// Initialize logger
	logger.Init(os.Getenv("OVERLAY_SERVER_MODE"))
	defer logger.Sync()
	if envErr != nil && !os.IsNotExist(envErr) {
		logger.Log.Warnf("Failed to read .env: %v", envErr)
	}

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Tier store
	store, err := persistence.Open(cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to open tier store: %v", err)
	}
	defer store.Close()
	logger.Log.Infof("Tier store ready (driver %q).", cfg.Database.Driver)

	clock := clockwork.NewRealClock()
	entitlements := services.NewEntitlementService(store, clock)
	mon := monitor.NewMonitor("overlay")

	// Audio
	library := audio.DefaultLibrary()
	if cfg.Audio.CatalogPath != "" {
		library, err = audio.LoadLibrary(cfg.Audio.CatalogPath)
		if err != nil {
			logger.Log.Fatalf("Failed to load audio catalog: %v", err)
		}
	}
	var provider audio.Provider
	if cfg.Audio.ProviderURL != "" {
		provider = audio.NewHTTPProvider(cfg.Audio.ProviderURL, cfg.Audio.Timeout)
	} else {
		logger.Log.Info("No audio provider configured, generation is procedural only.")
	}
	generator := audio.NewGenerator(provider, cfg.Audio.Timeout, cfg.Audio.Workers, mon)
	gate := audio.NewGate(library, entitlements)

	// Engine, gateway and bridge
	eng := engine.NewLocalEngine(engine.DefaultPersonas)
	gateway := server.NewGateway(cfg, eng,
		server.WithMonitor(mon),
		server.WithAudio(gate, generator),
		server.WithClock(clock),
	)
	br := bridge.New(gateway.Router(), gateway.Sessions(), mon)
	br.Attach(eng)
	defer br.Detach()

	if cfg.NATS.URL != "" {
		nc, err := bridge.ConnectNATS(cfg.NATS.URL)
		if err != nil {
			logger.Log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer nc.Close()
		source := bridge.NewNATSSource(nc, cfg.NATS.SubjectPrefix, eng)
		if err := source.Start(); err != nil {
			logger.Log.Fatalf("Failed to subscribe to engine events: %v", err)
		}
		defer source.Stop()
	}

	// Control RPC
	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	control := rpc.NewControlService(gateway, gateway.Router(), eng, entitlements)
	if err := rpcServer.Register(rpc.ServiceName, control); err != nil {
		logger.Log.Fatalf("Failed to register control service: %v", err)
	}
	go rpcServer.Start()
	defer rpcServer.Stop()

	// Start Server
	errCh := make(chan error, 1)
	go func() {
		errCh <- gateway.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Log.Infof("Received %s, shutting down.", sig)
	case err := <-errCh:
		if err != nil {
			logger.Log.Errorf("Gateway stopped: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gateway.Shutdown(ctx); err != nil {
		logger.Log.Warnf("Gateway shutdown: %v", err)
	}
	generator.Wait()
	logger.Log.Info("Overlay server stopped.")
}
