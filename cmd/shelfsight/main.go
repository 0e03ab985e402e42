package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/shelfsight/catalog"
	"github.com/hrygo/shelfsight/extractor"
	"github.com/hrygo/shelfsight/imaging"
	"github.com/hrygo/shelfsight/internal/profile"
	"github.com/hrygo/shelfsight/internal/version"
	"github.com/hrygo/shelfsight/job"
	"github.com/hrygo/shelfsight/metrics"
	"github.com/hrygo/shelfsight/search"
	"github.com/hrygo/shelfsight/server"
	"github.com/hrygo/shelfsight/store"
	"github.com/hrygo/shelfsight/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "shelfsight",
	Short: `Color-aware visual product search. Upload a shelf photo, get the matching catalog products back.`,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Systemd deployments configure through the unit environment.
		if !isRunningAsSystemdService() {
			_ = godotenv.Load()
		}
		return nil
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Driver:  viper.GetString("driver"),
			DSN:     viper.GetString("dsn"),
			Version: version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			return err
		}
		return run(instanceProfile)
	},
}

func run(instanceProfile *profile.Profile) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		slog.Error("failed to create db driver", "err", err)
		return err
	}
	storeInstance := store.New(dbDriver, instanceProfile)
	defer storeInstance.Close()

	if err := storeInstance.Migrate(ctx); err != nil {
		slog.Error("failed to migrate", "err", err)
		return err
	}

	exporter := metrics.NewExporter(metrics.DefaultConfig())

	newRegistry := func() (*extractor.ModelRegistry, error) {
		return extractor.NewModelRegistry(&extractor.RegistryConfig{
			Feature: extractor.FeatureConfig{
				BaseURL:    instanceProfile.FeatureServiceURL,
				Dimensions: instanceProfile.FeatureDimensions,
				Timeout:    time.Duration(instanceProfile.FeatureTimeout) * time.Second,
			},
			Text: extractor.TextConfig{
				BaseURL:   instanceProfile.OCRServiceURL,
				Languages: instanceProfile.OCRLanguages,
				Enabled:   instanceProfile.OCREnabled,
			},
			Embedding: extractor.EmbeddingConfig{
				APIKey:     instanceProfile.EmbeddingAPIKey,
				BaseURL:    instanceProfile.EmbeddingBaseURL,
				Model:      instanceProfile.EmbeddingModel,
				Dimensions: instanceProfile.EmbeddingDimensions,
			},
		})
	}

	source := catalog.NewSource(storeInstance)
	index := search.NewIndex(instanceProfile.FeatureDimensions, source)
	rebuilder := search.NewRebuilder(index, 5*time.Second)
	rebuilder.OnRebuilt = func(snapshot *search.Snapshot, elapsed time.Duration) {
		sizes := make(map[string]int)
		for category, size := range snapshot.ShardSizes() {
			sizes[string(category)] = size
		}
		exporter.RebuildCompleted(elapsed, sizes, snapshot.Len())
	}

	normalizer := imaging.NewNormalizer(imaging.Config{
		DebugSink: debugSink(instanceProfile),
	})

	ingestRegistry, err := newRegistry()
	if err != nil {
		slog.Error("failed to build model registry", "err", err)
		return err
	}
	processor := catalog.NewProcessor(storeInstance, ingestRegistry, normalizer, rebuilder, instanceProfile.Data)

	jobs := job.NewService(instanceProfile, storeInstance, index, source, normalizer, newRegistry, exporter)

	// Populate the index before serving, then keep it fresh.
	if _, err := index.Rebuild(ctx); err != nil {
		slog.Warn("initial index rebuild failed, serving an empty index", "err", err)
	}
	go rebuilder.Run(ctx)

	if err := jobs.Start(ctx); err != nil {
		slog.Error("failed to start job workers", "err", err)
		return err
	}

	s := server.NewServer(instanceProfile, storeInstance, jobs, processor, index, rebuilder, exporter)

	c := make(chan os.Signal, 1)
	// SIGTERM is the graceful shutdown signal used by systemd and
	// Kubernetes.
	signal.Notify(c, terminationSignals...)
	go func() {
		<-c
		cancel()
	}()

	printGreetings(instanceProfile)

	err = s.Start(ctx)
	jobs.Wait()
	return err
}

func debugSink(p *profile.Profile) imaging.DebugSink {
	if !p.DebugCapture {
		return nil
	}
	sink, err := imaging.NewFileDebugSink(p.DebugCaptureDir)
	if err != nil {
		slog.Warn("debug capture disabled", "err", err)
		return nil
	}
	return sink
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 28085)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28085, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite, postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")

	for _, key := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("shelfsight")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("ShelfSight %s started successfully!\n", profile.Version)
	fmt.Printf("Data directory: %s\n", profile.Data)
	fmt.Printf("Database driver: %s\n", profile.Driver)
	fmt.Printf("Mode: %s\n", profile.Mode)
	if profile.Addr == "" {
		fmt.Printf("Listening on port %d\n", profile.Port)
	} else {
		fmt.Printf("Listening on %s:%d\n", profile.Addr, profile.Port)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd.
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
