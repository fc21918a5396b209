package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbbridge/dbbridge/core/bridge"
	"github.com/dbbridge/dbbridge/core/cache"
	"github.com/dbbridge/dbbridge/core/logging"
	"github.com/dbbridge/dbbridge/core/observability"
	"github.com/dbbridge/dbbridge/core/registry"
	"github.com/dbbridge/dbbridge/core/secret"
	"github.com/dbbridge/dbbridge/core/server"
)

var cacheRedis string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve [registry-file]",
	Short: "Serve the registry's connections over HTTP",
	Long: `Serve every active registry connection behind an HTTP API: statement
execution on POST /v1/query, liveness on GET /v1/connections, plus health,
metrics and the OpenAPI document. The registry file is watched and
reloaded on change; sessions from the previous generation are closed.`,
	RunE:          serveConnections,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&registryFile, "registry", "r", "", "Path to the registry file (default: "+registry.DefaultPath+")")
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "Server port (overrides the PORT env var)")
	serveCmd.Flags().StringVar(&cacheRedis, "cache-redis", "", "Redis URL for a shared result cache (default: in-memory)")
	addLoggingFlags(serveCmd)
}

func serveConnections(cmd *cobra.Command, args []string) error {
	if err := configureLogging(); err != nil {
		return err
	}
	log := logging.New("serve")

	path, err := resolveRegistryArg(args, "serve")
	if err != nil {
		return err
	}
	LoadEnvFiles(filepath.Dir(path))

	reg, err := registry.Load(path)
	if err != nil {
		return logging.WithTag("serve", err)
	}
	cipher, err := secret.CipherFromEnv()
	if err != nil {
		return logging.WithTag("serve", err)
	}
	log.Infof("Registry loaded: %s (%d active connections)", path, len(reg.Active()))

	mgr := bridge.NewManager(reg, cipher)

	// Hot-reload: a registry edit swaps the manager's registry and resets
	// its sessions. The serving layer sees the new generation on the next
	// request.
	watcher, err := registry.Watch(path, func(next *registry.Registry) {
		mgr.Reload(next)
	})
	if err != nil {
		return logging.WithTag("serve", err)
	}
	defer watcher.Close()

	store, err := cache.New(cacheRedis)
	if err != nil {
		return logging.WithTag("serve", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	providers, err := observability.Setup(ctx, GetVersion())
	if err != nil {
		return logging.WithTag("serve", err)
	}

	resolvedPort := resolvePort()
	srv := server.NewServer(resolvedPort)
	srv.SetShutdownFunc(cancel)
	server.RegisterRoutes(srv.Router(), mgr, store, resolvedPort)

	if err := srv.StartAsync(); err != nil {
		return logging.WithTag("serve", err)
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infof("Shutting down")
	stopErr := srv.Stop()

	if err := mgr.CloseAll(); err != nil {
		log.Warnf("Connections did not close cleanly: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Telemetry shutdown reported errors: %v", err)
	}

	if stopErr != nil {
		return logging.WithTag("serve", stopErr)
	}
	return nil
}

// resolvePort picks the serving port: the --port flag wins, then the PORT
// environment variable, then the built-in default.
func resolvePort() string {
	if port != "" {
		return port
	}
	if envPort := os.Getenv("PORT"); envPort != "" {
		return envPort
	}
	return "8080"
}
