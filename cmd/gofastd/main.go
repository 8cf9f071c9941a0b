// Command gofastd runs the gofastd in-memory data store server.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gofast-project/gofastd/internal/config"
	"github.com/gofast-project/gofastd/internal/dispatch"
	"github.com/gofast-project/gofastd/internal/metrics"
	"github.com/gofast-project/gofastd/internal/persistence"
	"github.com/gofast-project/gofastd/internal/pubsub"
	"github.com/gofast-project/gofastd/internal/server"
	"github.com/gofast-project/gofastd/internal/store"
	"github.com/gofast-project/gofastd/internal/txn"
)

var version = "1.0.0" // set during build with -ldflags

var rootCmd = &cobra.Command{
	Use:   "gofastd",
	Short: "gofastd - an in-memory key-value data store server",
	Long: `gofastd is an in-memory data store server speaking the RESP
protocol, supporting strings, lists, hashes, sets, sorted sets,
streams, bitmaps, and HyperLogLogs, with transactions, pub/sub,
blocking list operations, and snapshot + append-only persistence.`,
	Version: version,
	RunE:    runServer,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		fmt.Println(cfg.String())
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gofastd v%s\n", version)
		fmt.Printf("built with Go %s\n", runtime.Version())
		fmt.Printf("os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("host", "H", "127.0.0.1", "Host to bind to")
	flags.IntP("port", "p", 6379, "Port to listen on")
	flags.Int("databases", 16, "Number of logical databases")
	flags.Int("max-clients", 10000, "Maximum number of clients")
	flags.String("max-memory", "0", "Maximum memory to use (e.g., 512MB, 2GB; 0 disables eviction)")
	flags.String("max-memory-policy", "noeviction", "Eviction policy (noeviction, allkeys-random, volatile-random, volatile-ttl)")
	flags.Int("tick-hz", 10, "Background maintenance tick rate")
	flags.String("log-level", "info", "Log level (trace, debug, info, warn, error, fatal)")
	flags.String("data-dir", "./data", "Data directory for persistence")
	flags.String("snapshot-file", "dump.gfs", "Snapshot file name within data-dir")
	flags.String("auto-save-rules", "900 1 300 10 60 10000", "Autosave rule pairs (\"seconds changes\" ...)")
	flags.Bool("append-only", false, "Enable append-only file persistence")
	flags.String("append-fsync", "everysec", "AOF fsync policy (always, everysec, no)")
	flags.Bool("require-auth", false, "Require AUTH before other commands")
	flags.String("password", "", "Authentication password")
	flags.Bool("tcp-keepalive", true, "Enable TCP keep-alive")
	flags.Duration("idle-timeout", 0, "Disconnect idle clients after this duration (0 disables)")
	flags.String("metrics-addr", "", "Address to serve Prometheus metrics on (empty disables)")

	bind := func(key, flag string) {
		viper.BindPFlag(key, flags.Lookup(flag))
	}
	bind("host", "host")
	bind("port", "port")
	bind("databases", "databases")
	bind("max_clients", "max-clients")
	bind("max_memory", "max-memory")
	bind("max_memory_policy", "max-memory-policy")
	bind("tick_hz", "tick-hz")
	bind("log_level", "log-level")
	bind("data_dir", "data-dir")
	bind("snapshot_file", "snapshot-file")
	bind("auto_save_rules", "auto-save-rules")
	bind("append_only", "append-only")
	bind("append_fsync", "append-fsync")
	bind("require_auth", "require-auth")
	bind("password", "password")
	bind("tcp_keepalive", "tcp-keepalive")
	bind("idle_timeout", "idle-timeout")
	bind("metrics_addr", "metrics-addr")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log.Printf("starting gofastd v%s", version)
	log.Printf("listening on %s:%d, databases=%d", cfg.Host, cfg.Port, cfg.Databases)
	log.Printf("maxmemory=%s policy=%s", cfg.MaxMemory, cfg.MaxMemoryPolicy)
	if cfg.AppendOnly {
		log.Printf("append-only file enabled, fsync=%s", cfg.AppendFsync)
	}
	log.Println(strings.Repeat("=", 51))

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	maxMemBytes, err := cfg.ParseMemorySize()
	if err != nil {
		return fmt.Errorf("invalid max-memory: %w", err)
	}
	ks := store.NewKeyspace(cfg.Databases, maxMemBytes, store.ParseEvictionPolicy(cfg.MaxMemoryPolicy))

	snapshotPath := cfg.DataDir + "/" + cfg.SnapshotFile
	if err := persistence.Load(snapshotPath, ks); err != nil {
		log.Printf("no snapshot loaded: %v", err)
	}

	var aof *persistence.AOF
	if cfg.AppendOnly {
		aofPath := cfg.DataDir + "/" + cfg.AppendFilename
		aof, err = persistence.Open(aofPath, persistence.ParseFsyncPolicy(cfg.AppendFsync))
		if err != nil {
			return fmt.Errorf("failed to open append-only file: %w", err)
		}
		defer aof.Close()
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	tm := txn.NewManager()
	ps := pubsub.NewRegistry()
	d := dispatch.New(ks, tm, ps, m, cfg)
	d.AOF = aof

	if aof != nil {
		replayDispatcher := dispatch.New(ks, tm, ps, m, cfg)
		replayConn := replayDispatcher.NewConn()
		ctx := cmd.Context()
		n, err := persistence.Replay(cfg.DataDir+"/"+cfg.AppendFilename, func(cmdArgs []string) error {
			replayDispatcher.Dispatch(ctx, replayConn, cmdArgs)
			return nil
		})
		if err != nil {
			log.Printf("append-only file replay error: %v", err)
		} else if n > 0 {
			log.Printf("replayed %d commands from append-only file", n)
		}
	}

	ks.StartActiveExpiration(time.Second/time.Duration(maxInt(cfg.TickHz, 1)), cfg.ExpireSampleSize)
	defer ks.Stop()

	srv := server.New(cfg, ks, d, m, aof)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
	case <-sigChan:
		log.Println("shutting down gofastd...")
		srv.Stop()
		if err := persistence.Save(snapshotPath, ks); err != nil {
			log.Printf("final snapshot save failed: %v", err)
		}
		log.Println("gofastd stopped")
	}

	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
