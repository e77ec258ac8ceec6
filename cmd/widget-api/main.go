// Reference widget REST backend over sqlite
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	prof "github.com/go-while/go-cpu-mem-profiler"

	"github.com/go-while/go-widgets/internal/api"
	"github.com/go-while/go-widgets/internal/config"
	"github.com/go-while/go-widgets/internal/database"
)

var Prof *prof.Profiler

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion
	var (
		configFile = flag.String("config", "", "config file (yaml, toml or json); WIDGETS_* environment variables override it")
		port       = flag.Int("port", 0, "listen port (default: 9000)")
		dbPath     = flag.String("db", "", "sqlite database file (default: data/widgets.sq3)")
		pprofAddr  = flag.String("pprof", "", "serve pprof and write memory profiles, e.g. :51112 (default: off)")
		debug      = flag.Bool("debug", false, "gin debug mode")
	)
	flag.Parse()

	log.Printf("Starting go-widgets: API Server (version: %s)", appVersion)

	mainConfig, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("[API]: Failed to load config: %v", err)
	}
	if *port > 0 {
		mainConfig.Backend.ListenPort = *port
	}
	if *dbPath != "" {
		mainConfig.Backend.DBPath = *dbPath
	}
	if err := mainConfig.Validate(); err != nil {
		log.Fatalf("[API]: Invalid config: %v", err)
	}

	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if *pprofAddr != "" {
		Prof = prof.NewProf()
		go Prof.PprofWeb(*pprofAddr)
		Prof.StartMemProfile(5*time.Minute, 30*time.Second)
	}

	db, err := database.OpenDatabase(mainConfig.Backend.DBPath)
	if err != nil {
		log.Fatalf("[API]: Failed to open database: %v", err)
	}

	server, err := api.NewServer(db, &mainConfig.Backend)
	if err != nil {
		log.Fatalf("[API]: Failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.Start()
	}()

	select {
	case <-ctx.Done():
		log.Printf("[API]: Received shutdown signal, initiating graceful shutdown...")
	case err := <-serverErrChan:
		if err != nil {
			log.Printf("[API]: Server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[API]: Error stopping server: %v", err)
	}
	if err := db.Shutdown(); err != nil {
		log.Fatalf("[API]: Failed to shutdown database: %v", err)
	}
	log.Printf("[API]: Graceful shutdown completed")
}
