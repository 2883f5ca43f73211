package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"wingman-relay/internal/infra/config"
	"wingman-relay/internal/infra/logger"
	"wingman-relay/internal/infra/tracer"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		case "check":
			if err := runCheck(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "check: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	if len(os.Args) >= 2 && !strings.HasPrefix(os.Args[1], "-") {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'wingman-relay --help' for usage information.\n", os.Args[1])
		os.Exit(1)
	}

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`wingman-relay - OpenRouter relay for the Wingman chat, coach and reply views

USAGE:
    wingman-relay [COMMAND] [FLAGS]

COMMANDS:
    check       Validate the config and deployment catalog, then exit

    (no command) - Serve the relay API

FLAGS:
    -h, --help             Show this help message
    --config PATH          Config file path (default: ./relay.yaml)
    --deployment NAME      Deployment profile (server, edge)
    --addr ADDR            Listen address (e.g. :8787)

CONFIGURATION:
    Config file: ./relay.yaml (optional; defaults apply when missing)
    Environment: WINGMAN_* variables override the config file
    Flags override both

EXAMPLES:
    wingman-relay                              # edge profile on :8787
    wingman-relay --deployment server          # server profile
    wingman-relay --config /etc/wingman.yaml   # custom config
    wingman-relay check --deployment server    # validate without serving`)
}

// cliFlags holds the optional overrides accepted on the command line.
type cliFlags struct {
	ConfigPath string
	Deployment string
	Addr       string
}

// parseFlags extracts --config, --deployment and --addr from args.
func parseFlags(args []string) cliFlags {
	var flags cliFlags
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--config" && i+1 < len(args):
			flags.ConfigPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "--config="):
			flags.ConfigPath = strings.TrimPrefix(args[i], "--config=")
		case args[i] == "--deployment" && i+1 < len(args):
			flags.Deployment = args[i+1]
			i++
		case strings.HasPrefix(args[i], "--deployment="):
			flags.Deployment = strings.TrimPrefix(args[i], "--deployment=")
		case args[i] == "--addr" && i+1 < len(args):
			flags.Addr = args[i+1]
			i++
		case strings.HasPrefix(args[i], "--addr="):
			flags.Addr = strings.TrimPrefix(args[i], "--addr=")
		}
	}
	return flags
}

// configPath returns the flag value, then WINGMAN_CONFIG, then relay.yaml.
func configPath(flags cliFlags) string {
	if flags.ConfigPath != "" {
		return flags.ConfigPath
	}
	if p := os.Getenv("WINGMAN_CONFIG"); p != "" {
		return p
	}
	return "relay.yaml"
}

// loadConfig loads the config file and applies flag overrides on top.
func loadConfig(flags cliFlags) (*config.Config, error) {
	cfg, err := config.Load(configPath(flags))
	if err != nil {
		return nil, err
	}
	if flags.Deployment == "" && flags.Addr == "" {
		return cfg, nil
	}
	if flags.Deployment != "" {
		cfg.Deployment = strings.ToLower(flags.Deployment)
	}
	if flags.Addr != "" {
		cfg.Server.Addr = flags.Addr
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(args []string) error {
	// 1. Config
	cfg, err := loadConfig(parseFlags(args))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// 2. Logger & Tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx := context.Background()
	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(ctx)

	// 3. Catalog, upstream, use cases, HTTP
	app, err := buildApp(cfg, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           app.Handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	// 4. Graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	log.Info("relay started",
		"deployment", cfg.Deployment,
		"addr", ln.Addr().String(),
		"chat_mode", string(app.Catalog.ChatMode),
		"personalities", len(app.Catalog.Personalities),
		"breaker", cfg.Upstream.CircuitBreaker.Enabled,
	)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	return nil
}

// runCheck validates config and catalog and prints a short summary.
func runCheck(args []string) error {
	cfg, err := loadConfig(parseFlags(args))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cat, err := config.LoadCatalog(cfg.Deployment, cfg.CatalogFile)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if _, err := buildProfiles(cat); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	fmt.Printf("deployment:    %s\n", cfg.Deployment)
	fmt.Printf("chat mode:     %s\n", cat.ChatMode)
	fmt.Printf("personalities: %d\n", len(cat.Personalities))
	fmt.Printf("fallback:      %d models\n", len(cat.FallbackModels()))
	fmt.Printf("upstream:      %s\n", cfg.Upstream.BaseURL)
	fmt.Println("ok")
	return nil
}
