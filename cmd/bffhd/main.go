package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/bffhd/pkg/api"
	"github.com/cuemby/bffhd/pkg/audit"
	"github.com/cuemby/bffhd/pkg/auth"
	"github.com/cuemby/bffhd/pkg/bffherr"
	"github.com/cuemby/bffhd/pkg/config"
	"github.com/cuemby/bffhd/pkg/log"
	"github.com/cuemby/bffhd/pkg/metrics"
	"github.com/cuemby/bffhd/pkg/permparse"
	"github.com/cuemby/bffhd/pkg/resource"
	"github.com/cuemby/bffhd/pkg/store"
	"github.com/cuemby/bffhd/pkg/userstore"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "bffhd",
	Short:   "bffhd - resource access broker daemon",
	Version: Version,
	RunE:    runDaemon,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("bffhd version %s\nCommit: %s\n", Version, Commit))
	rootCmd.PersistentFlags().String("config", "/etc/bffhd/bffhd.yaml", "Path to the daemon config file")
	rootCmd.PersistentFlags().Bool("pretty", false, "Console-formatted logs instead of JSON")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	pretty, _ := cmd.Flags().GetBool("pretty")

	log.Init(log.Config{Level: log.InfoLevel, Pretty: pretty})
	logger := log.Component("main")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	defer st.Close()

	users, err := userstore.Open(cfg.DBPath + ".users")
	if err != nil {
		return fmt.Errorf("opening user store: %w", err)
	}
	defer users.Close()

	for name, role := range cfg.Roles {
		if err := users.PutRole(name, userstore.Role{
			Name:        name,
			Parents:     role.Parents,
			Permissions: role.Permissions,
		}); err != nil {
			return fmt.Errorf("loading role %q: %w", name, err)
		}
	}

	auditLog, err := audit.Open(cfg.AuditLogPath)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer auditLog.Close()

	engineCtx, stopEngines := context.WithCancel(context.Background())
	defer stopEngines()

	registry := resource.NewRegistry()
	numericID := uint64(1)
	machineIDs := make([]string, 0, len(cfg.Machines))
	for id := range cfg.Machines {
		machineIDs = append(machineIDs, id)
	}
	sort.Strings(machineIDs)
	for _, id := range machineIDs {
		m := cfg.Machines[id]
		priv := resource.Privileges{
			Disclose: permparse.Permission(m.Privileges.Disclose),
			Read:     permparse.Permission(m.Privileges.Read),
			Write:    permparse.Permission(m.Privileges.Write),
			Manage:   permparse.Permission(m.Privileges.Manage),
		}
		res, err := registry.Add(id, numericID, m.Name, priv, st, auditLog, nil)
		if err != nil {
			return fmt.Errorf("loading machine %q: %w", id, err)
		}
		res.Category = m.Category
		res.Wiki = m.Wiki
		go res.Engine.Run(engineCtx)
		numericID++
	}

	mechanisms := auth.NewRegistry()
	mechanisms.Register("PLAIN", auth.NewPlainFactory(users, users))
	mechanisms.Register("FABFIRE", auth.NewFabFireFactory(cfg.SpaceName, auth.NewUserStoreCardKeys(users)))

	collector := metrics.NewCollector(registry)
	collector.Start()
	defer collector.Stop()

	server := api.NewServer(registry, users, mechanisms)
	health := api.NewHealthServer(registry)

	httpMux := http.NewServeMux()
	httpMux.Handle("/metrics", metrics.Handler())
	httpMux.Handle("/", health.GetHandler())
	httpServer := &http.Server{Addr: ":8080", Handler: httpMux}

	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("starting health/metrics listener")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("health/metrics listener failed")
		}
	}()

	if len(cfg.Listens) == 0 {
		return bffherr.New(bffherr.KindConfigInvalid, "no listen addresses configured")
	}
	listen := cfg.Listens[0]
	addr := net.JoinHostPort(listen.Address, fmt.Sprintf("%d", listen.Port))

	lis, err := server.Listen(addr, api.TLSConfig{
		CertFile:   cfg.TLSCertFile,
		KeyFile:    cfg.TLSKeyFile,
		KeyLogFile: cfg.TLSKeyLog,
	})
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("starting gRPC listener")
		if err := server.Serve(lis); err != nil {
			logger.Error().Err(err).Msg("gRPC server stopped")
		}
	}()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	hupCh := make(chan os.Signal, 1)
	signal.Notify(hupCh, syscall.SIGHUP)

	for {
		select {
		case <-hupCh:
			logger.Info().Msg("SIGHUP: reopening audit log")
			if err := auditLog.Rotate(); err != nil {
				logger.Error().Err(err).Msg("audit log rotate failed")
			}
		case <-shutdownCh:
			logger.Info().Msg("shutting down")
			server.Stop()
			_ = httpServer.Close()
			return nil
		}
	}
}
