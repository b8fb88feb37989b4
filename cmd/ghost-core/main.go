// Command ghost-core runs the identity vault, gossip messaging actor, and
// dead-drop pipeline as a single local process, grounded on
// cmd/daemon/main.go's flag-parsing and signal.NotifyContext shutdown
// pattern. It has no network-facing RPC surface of its own — the host
// command/event contract spec.md §6 describes is exposed through
// internal/core.Service for an embedding application to call directly.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ghostcore/internal/core"
	"ghostcore/internal/ghost"
	"ghostcore/internal/platform/logging"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	dataDir := flag.String("data-dir", "", "Directory for the encrypted identity file and local state")
	ipfsAddr := flag.String("ipfs-addr", "", "Content-addressed storage daemon API base URL (default http://127.0.0.1:5001/api/v0)")
	password := flag.String("password", "", "Identity vault password (prompted behaviors are left to the embedding host; this flag exists for local testing only)")
	listenPort := flag.Int("listen-port", 0, "Gossip transport listen port (0 = OS-assigned)")
	metricsAddr := flag.String("metrics-addr", "127.0.0.1:9095", "Address to serve Prometheus /metrics on (empty disables it)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("ghost-core version=%s commit=%s\n", version, commit)
		return
	}

	logger := logging.Default()

	if *dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			logger.Error("resolve home directory", "err", err)
			os.Exit(1)
		}
		*dataDir = home + "/.ghost-core"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ghostCfg := ghost.DefaultConfig()
	ghostCfg.ListenPort = *listenPort

	svc := core.New(core.Config{
		AppDataDir: *dataDir,
		IPFSAddr:   *ipfsAddr,
		Ghost:      ghostCfg,
	}, logger)

	if *password == "" {
		logger.Error("no password supplied; pass -password or embed internal/core.Service directly")
		os.Exit(1)
	}

	publicID, err := svc.InitIdentity(*password)
	if err != nil {
		logger.Error("init identity", "err", err)
		os.Exit(1)
	}
	logger.Info("ghost-core starting", "public_id", publicID)

	if err := svc.StartGhostMode(ctx); err != nil {
		logger.Error("start ghost mode", "err", err)
		os.Exit(1)
	}
	defer svc.Close()

	if *metricsAddr != "" {
		serveMetrics(ctx, svc, *metricsAddr, logger)
	}

	logEvents(ctx, svc, logger)

	<-ctx.Done()
	logger.Info("ghost-core stopping")
}

// serveMetrics starts an HTTP server exposing the service's prometheus
// registry at /metrics, shut down when ctx is cancelled. Bind failures are
// logged, not fatal — metrics are observability, not a load-bearing
// dependency of the vault/gossip/dead-drop operations.
func serveMetrics(ctx context.Context, svc *core.Service, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(svc.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	logger.Info("metrics listening", "addr", addr)
}

// logEvents relays the notification hub's stream to the structured logger
// so the daemon is observable even with no embedding host attached.
func logEvents(ctx context.Context, svc *core.Service, logger *slog.Logger) {
	_, live, cancel := svc.Events(0)
	go func() {
		defer cancel()
		for {
			select {
			case event, ok := <-live:
				if !ok {
					return
				}
				logger.Info("event", "method", event.Method, "seq", event.Seq)
			case <-ctx.Done():
				return
			}
		}
	}()
}
