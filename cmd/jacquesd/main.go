// Command jacquesd is the jacques daemon: it runs the Session Registry, the
// Process Monitor and Cleanup Service sweeps, the Catalog Indexer, the
// Notification Engine, the Usage Limits Client, the Terminal Orchestrator,
// the WS Hub on :4242, and the HTTP/SSE Gateway on :4243, per §4 and §6.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jacquesd/jacques/internal/catalog"
	"github.com/jacquesd/jacques/internal/config"
	"github.com/jacquesd/jacques/internal/frontend"
	"github.com/jacquesd/jacques/internal/httpapi"
	"github.com/jacquesd/jacques/internal/monitor"
	"github.com/jacquesd/jacques/internal/notify"
	"github.com/jacquesd/jacques/internal/registry"
	"github.com/jacquesd/jacques/internal/terminal"
	"github.com/jacquesd/jacques/internal/usagelimits"
	"github.com/jacquesd/jacques/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults to ~/.jacques/config.json)")
	devDir := flag.String("dev", "", "serve the GUI from this filesystem directory instead of the embedded build")
	wsPort := flag.Int("ws-port", 0, "override the WS Hub port")
	httpPort := flag.Int("http-port", 0, "override the HTTP/SSE Gateway port")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	if *verbose {
		log = log.Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = config.DefaultConfigPath()
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfgPath).Msg("failed to load config")
	}
	if *wsPort > 0 {
		cfg.Server.WSPort = *wsPort
	}
	if *httpPort > 0 {
		cfg.Server.HTTPPort = *httpPort
	}

	store := registry.NewStore()
	hub := ws.NewHub(log.With().Str("component", "ws").Logger())
	hub.SetPrivacyFilter(cfg.Privacy.NewPrivacyFilter())
	reg := registry.New(store, hub.Notify)

	orchestrator := terminal.New()
	procMonitor := monitor.New(
		reg,
		cfg.Monitor.ProcessVerifyInterval.Duration(),
		cfg.Monitor.IdleThreshold.Duration(),
		cfg.Monitor.PidlessGracePeriod.Duration(),
		cfg.Monitor.PendingBypassTTL.Duration(),
		log.With().Str("component", "monitor").Logger(),
	)
	orchestrator.OnLaunchBypass(procMonitor.MarkPendingBypass)

	cleanup := registry.NewCleanupService(reg, cfg.Monitor.MaxIdleMinutes.Duration(), log.With().Str("component", "cleanup").Logger())

	indexer := catalog.NewIndexer()
	usageClient := usagelimits.New()

	desktop := notify.NewDesktopNotifier()
	sink := notify.Sink(func(item notify.NotificationItem) { hub.NotifyNotificationFired(item) })
	notifyEngine := notify.New(func() config.NotificationSettings { return cfg.Notifications }, desktop, sink, log.With().Str("component", "notify").Logger())

	scanner := notify.NewScanner(notifyEngine, func() []notify.ScanTarget {
		var targets []notify.ScanTarget
		for _, sess := range reg.List() {
			if sess.TranscriptPath == "" {
				continue
			}
			targets = append(targets, notify.ScanTarget{SessionID: sess.SessionID, TranscriptPath: sess.TranscriptPath})
		}
		return targets
	}, log.With().Str("component", "scanner").Logger())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	wg.Add(1)
	go func() { defer wg.Done(); procMonitor.Run(ctx) }()

	wg.Add(1)
	go func() { defer wg.Done(); cleanup.Run(ctx) }()

	wg.Add(1)
	go func() { defer wg.Done(); scanner.Run(ctx, 30*time.Second) }()

	wsServer := ws.NewServer(hub, reg, orchestrator, cfg.Server.AllowedOrigins, cfg.Server.AuthToken, log.With().Str("component", "ws-server").Logger())
	wsMux := http.NewServeMux()
	wsServer.SetupRoutes(wsMux)
	wsAddr := cfg.Server.Host + ":" + portString(cfg.Server.WSPort)
	wsHTTP := &http.Server{Addr: wsAddr, Handler: wsMux}

	var staticHandler http.Handler
	if *devDir == "" {
		staticHandler = frontend.Handler()
	}
	gateway := httpapi.New(reg, indexer, notifyEngine, usageClient, orchestrator, cfg, cfgPath, staticHandler, *devDir, log.With().Str("component", "gateway").Logger())
	httpMux := http.NewServeMux()
	gateway.SetupRoutes(httpMux)
	httpAddr := cfg.Server.Host + ":" + portString(cfg.Server.HTTPPort)
	httpServer := &http.Server{Addr: httpAddr, Handler: httpMux}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", wsAddr).Msg("ws hub listening")
		if err := wsHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("ws hub exited")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Str("addr", httpAddr).Msg("http gateway listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http gateway exited")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigCh {
		if sig == syscall.SIGHUP {
			next, err := config.Load(cfgPath)
			if err != nil {
				log.Warn().Err(err).Msg("SIGHUP: failed to reload config, keeping current")
				continue
			}
			for _, change := range config.Diff(cfg, next) {
				log.Info().Str("change", change).Msg("config reloaded")
			}
			*cfg = *next
			hub.SetPrivacyFilter(cfg.Privacy.NewPrivacyFilter())
			continue
		}
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		break
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = wsHTTP.Shutdown(shutdownCtx)
	_ = httpServer.Shutdown(shutdownCtx)
	cancel()
	wg.Wait()
}

func portString(p int) string {
	return strconv.Itoa(p)
}
