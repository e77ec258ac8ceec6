// Browser interface for managing widgets through the widget REST API
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	prof "github.com/go-while/go-cpu-mem-profiler"
	"golang.org/x/term"

	"github.com/go-while/go-widgets/internal/apiclient"
	"github.com/go-while/go-widgets/internal/config"
	"github.com/go-while/go-widgets/internal/telemetry"
	"github.com/go-while/go-widgets/internal/web"
)

var Prof *prof.Profiler

var (
	// command-line flags
	configFile   string
	webport      int
	webssl       bool
	webcertFile  string
	webkeyFile   string
	apiURL       string
	apiTimeout   time.Duration
	pprofAddr    string
	debug        bool
	hashPassword bool
	listEmbedded bool
)

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion

	flag.StringVar(&configFile, "config", "", "config file (yaml, toml or json); WIDGETS_* environment variables override it")
	flag.IntVar(&webport, "webport", 0, "Web server port (default: 11980)")
	flag.BoolVar(&webssl, "webssl", false, "Enable SSL")
	flag.StringVar(&webcertFile, "websslcert", "", "SSL certificate file (/path/to/fullchain.pem)")
	flag.StringVar(&webkeyFile, "websslkey", "", "SSL key file (/path/to/privkey.pem)")
	flag.StringVar(&apiURL, "api", "", "widget API base URL (default: "+config.DefaultAPIBaseURL+")")
	flag.DurationVar(&apiTimeout, "api-timeout", 0, "timeout per API request (default: 15s)")
	flag.StringVar(&pprofAddr, "pprof", "", "serve pprof and write memory profiles, e.g. :51111 (default: off)")
	flag.BoolVar(&debug, "debug", false, "gin debug mode")
	flag.BoolVar(&hashPassword, "hash-password", false, "read a password from the terminal, print its bcrypt hash for web.admin_password_hash and exit")
	flag.BoolVar(&listEmbedded, "list-embedded", false, "list embedded templates and static files and exit")
	flag.Parse()

	if hashPassword {
		if err := printPasswordHash(); err != nil {
			log.Fatalf("[WEB]: %v", err)
		}
		return
	}
	if listEmbedded {
		files, err := web.ListEmbeddedFiles()
		if err != nil {
			log.Fatalf("[WEB]: %v", err)
		}
		for _, f := range files {
			fmt.Println(f)
		}
		return
	}

	log.Printf("Starting go-widgets: Web Server (version: %s)", appVersion)

	mainConfig, err := config.Load(configFile)
	if err != nil {
		log.Fatalf("[WEB]: Failed to load config: %v", err)
	}
	applyFlags(mainConfig)
	if err := mainConfig.Validate(); err != nil {
		log.Fatalf("[WEB]: Invalid config: %v", err)
	}
	log.Printf("[WEB]: port: %d, ssl: %t, timeout: %s", mainConfig.Web.ListenPort, mainConfig.Web.SSL, mainConfig.API.Timeout)

	if pprofAddr != "" {
		Prof = prof.NewProf()
		go Prof.PprofWeb(pprofAddr)
		Prof.StartMemProfile(5*time.Minute, 30*time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Setup(ctx, mainConfig.Telemetry)
	if err != nil {
		log.Fatalf("[WEB]: Failed to set up tracing: %v", err)
	}

	client, err := apiclient.New(mainConfig.API, apiclient.WithTracerProvider(tp.TracerProvider()))
	if err != nil {
		log.Fatalf("[WEB]: Failed to create API client: %v", err)
	}
	log.Printf("[WEB]: widget API at %s", client.BaseURL())

	server, err := web.NewServer(client, &mainConfig.Web)
	if err != nil {
		log.Fatalf("[WEB]: Failed to create web server: %v", err)
	}
	server.StartFlashCleanup(ctx, 5*time.Minute)

	webServerErrChan := make(chan error, 1)
	go func() {
		webServerErrChan <- server.Start()
	}()
	log.Printf("[WEB]: Server started successfully. Press Ctrl+C to gracefully shutdown...")

	select {
	case <-ctx.Done():
		log.Printf("[WEB]: Received shutdown signal, initiating graceful shutdown...")
	case err := <-webServerErrChan:
		if err != nil {
			log.Fatalf("[WEB]: Failed to start web server: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WEB]: Error stopping web server: %v", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WEB]: Error flushing traces: %v", err)
	}
	log.Printf("[WEB]: Graceful shutdown completed")
}

// applyFlags lets explicitly set flags win over file and environment
func applyFlags(cfg *config.MainConfig) {
	if webport > 0 {
		cfg.Web.ListenPort = webport
	}
	if webssl {
		cfg.Web.SSL = true
	}
	if webcertFile != "" {
		cfg.Web.CertFile = webcertFile
	}
	if webkeyFile != "" {
		cfg.Web.KeyFile = webkeyFile
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if apiTimeout > 0 {
		cfg.API.Timeout = apiTimeout
	}
	if debug {
		cfg.Web.Debug = true
	}
}

func printPasswordHash() error {
	fmt.Print("Enter password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return fmt.Errorf("failed to read password: %v", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirmPassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return fmt.Errorf("failed to read password confirmation: %v", err)
	}
	fmt.Println()

	if string(password) != string(confirmPassword) {
		return fmt.Errorf("passwords do not match")
	}
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters long")
	}

	hash, err := web.HashPassword(string(password))
	if err != nil {
		return fmt.Errorf("failed to hash password: %v", err)
	}
	fmt.Println(hash)
	return nil
}
