// Command adbwatch-web serves device presence over HTTP.
//
// It offers a small REST API for listing connected devices, forcing a
// re-enumeration and long-polling until a device arrives. The presence
// monitor runs in the background for the lifetime of the server.
//
// Usage:
//
//	adbwatch-web [flags]
//
// Flags:
//
//	-port int           HTTP server port (default 8080)
//	-config string      Configuration file path
//	-log-level string   Log level: debug, info, warn, error
//	-events string      Capture session events to this .alog file
//	-state string       Persist last known devices to this JSON file
//	-adb string         Bridge tool path
//	-fastboot string    Bootloader tool path, or "none"
//	-version            Show version information
//
// Examples:
//
//	# Start the web server on default port
//	adbwatch-web
//
//	# Start on a custom port with a state file
//	adbwatch-web -port 9000 -state ~/.adbwatch/state.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/regaw-leinad/androidlib-go/internal/app"
)

// Version information - set at build time via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "dev"
	GitCommit = "unknown"
)

var (
	flags       app.Flags
	port        = flag.Int("port", 8080, "HTTP server port")
	showVersion = flag.Bool("version", false, "Show version information")
)

func init() {
	flags.Register(flag.CommandLine)
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if *showVersion {
		fmt.Printf("adbwatch-web %s (built %s, commit %s)\n", Version, BuildDate, GitCommit)
		return 0
	}

	cfg, err := flags.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration: %v\n", err)
		return 1
	}
	app.SetupLogging(cfg.Logging.Level)

	c, closeLog, err := app.Open(cfg, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create controller: %v\n", err)
		return 1
	}
	defer func() {
		if err := closeLog(); err != nil {
			log.Printf("Error closing event log: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := NewServer(ServerConfig{
		Port:    *port,
		Version: Version,
	}, c)

	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		if err := c.Watch(ctx); err != nil {
			log.Printf("Watch stopped: %v", err)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Starting adbwatch-web on http://localhost:%d", *port)
		log.Printf("Bridge: %s", c.Bridge().Path)
		serveErr <- srv.ListenAndServe()
	}()

	code := 0
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "Error: server failed: %v\n", err)
			code = 1
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}
	<-watchDone
	if err := c.Close(shutdownCtx); err != nil {
		log.Printf("Error closing session: %v", err)
	}
	return code
}
