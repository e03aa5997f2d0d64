package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"spawncycle.ai/internal/persistence/configstore"
	persistlog "spawncycle.ai/internal/persistence/log"
	"spawncycle.ai/internal/sim/multiworld"
	"spawncycle.ai/internal/sim/spawncycle"
	"spawncycle.ai/internal/sim/world"
	"spawncycle.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		configPath = flag.String("config", "./configs/config.yml", "spawn cycle config path (created from defaults if missing)")
		worldsPath = flag.String("worlds", "./configs/worlds.yaml", "multi-world config path")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable the move history index")
		ops        = flag.String("ops", "", "comma-separated operator names allowed to run commands (empty: everyone)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := configstore.Open(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	wcfg, err := multiworld.Load(*worldsPath)
	if err != nil {
		logger.Fatalf("load worlds: %v", err)
	}
	m, err := multiworld.NewManager(wcfg, logger)
	if err != nil {
		logger.Fatalf("init worlds: %v", err)
	}
	// Known players and each world's last applied spawn live in config.yml.
	m.UseStore(cfg)

	worldName := cfg.GetString(spawncycle.KeyWorldName, "world")
	state, err := openStateStore(cfg, worldName, logger)
	if err != nil {
		logger.Fatalf("state store: %v", err)
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Fatalf("mkdir data: %v", err)
	}
	var sinks []spawncycle.MoveSink
	idx, err := openMoveIndex(*dataDir, *disableDB)
	if err != nil {
		logger.Fatalf("move index: %v", err)
	}
	if idx != nil {
		sinks = append(sinks, idx)
		logger.Printf("move index: %s", indexPath(*dataDir))
	}
	audit := persistlog.NewMoveLogger(*dataDir)
	audit.Err = func(err error) { logger.Printf("audit write: %v", err) }
	sinks = append(sinks, audit)

	loop := m.LoopFor(worldName)
	ctrl := spawncycle.New(spawncycle.Options{
		Worlds:    m,
		Scheduler: loop.Scheduler().Owner("spawncycle"),
		Config:    cfg,
		State:     state,
		Messenger: m,
		Logger:    log.New(os.Stdout, "[spawncycle] ", log.LstdFlags|log.Lmicroseconds),
		Sinks:     sinks,
	})
	m.Route(worldName, world.Hooks{
		OnJoin:        func(ev spawncycle.JoinEvent) { ctrl.OnJoin(ev) },
		OnRespawn:     func(ev spawncycle.RespawnEvent) { ctrl.OnRespawn(ev) },
		OnSpawnChange: func(ev spawncycle.SpawnChangeEvent) { ctrl.OnSpawnChange(ev) },
		OnCommand:     ctrl.HandleCommand,
	})

	// Enable before the loops start so startup updates run on the first tick.
	if err := ctrl.Enable(); err != nil {
		logger.Printf("spawn cycle: %v", err)
	}
	if idx != nil {
		st := ctrl.Status()
		idx.SetMeta("world", worldName)
		idx.SetMeta("mode", string(st.Mode))
		idx.SetMeta("started_at", time.Now().UTC().Format(time.RFC3339))
	}

	ctx, cancel := signalContext()
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world loop: %v", err)
			cancel()
		}
	}()

	enableAdmin := envBool("SC_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprof := envBool("SC_ENABLE_PPROF_HTTP", false)
	if !enableAdmin {
		logger.Printf("admin endpoints disabled (SC_ENABLE_ADMIN_HTTP=false)")
	}
	wsSrv := ws.NewServer(m, logger, ws.Options{
		Operators:      splitList(*ops),
		RequestTimeout: 5 * time.Second,
	})
	mux := newMux(httpDeps{
		worlds:      m,
		ctrl:        ctrl,
		control:     worldName,
		idx:         idx,
		enableAdmin: enableAdmin,
		enablePprof: enablePprof,
		ws:          wsSrv.Handler(),
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (control world %s)", *addr, worldName)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("ListenAndServe: %v", err)
		cancel()
	}

	wg.Wait()
	// Loops are stopped; Disable runs on this goroutine alone.
	ctrl.Disable()
	if idx != nil {
		if err := idx.Close(); err != nil {
			logger.Printf("close index: %v", err)
		}
	}
	if err := audit.Close(); err != nil {
		logger.Printf("close audit log: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
