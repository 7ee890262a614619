// Thing Core - networked device gateway
//
// This is the main entry point for the Thing Core application: a small
// gateway that owns a registry of things (networked devices described by
// property/action/event collections), persists their descriptions in
// SQLite, serves them over REST and per-thing websockets, and optionally
// relays dispatched events to an MQTT broker and InfluxDB.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/thing-core/migrations"

	"github.com/nerrad567/thing-core/internal/api"
	"github.com/nerrad567/thing-core/internal/infrastructure/config"
	"github.com/nerrad567/thing-core/internal/infrastructure/database"
	"github.com/nerrad567/thing-core/internal/infrastructure/logging"
	"github.com/nerrad567/thing-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/thing-core/internal/infrastructure/telemetry"
	"github.com/nerrad567/thing-core/internal/thing"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Thing Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect the MQTT event relay (optional). Connected before the
	// registry so the repository can be wrapped with the description
	// mirror.
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT relay disabled")
	}

	// Initialise the thing registry
	var repo thing.Repository = thing.NewSQLiteRepository(db.DB)
	if mqttClient != nil {
		// Every saved description is mirrored retained on the broker
		repo = mqttClient.MirrorRepository(repo)
	}
	assets := thing.NewDiskAssetStore(cfg.Uploads.Dir, cfg.Uploads.BaseHref)
	registry := thing.NewRegistry(repo, assets, cfg.Gateway.ThingsRoot)
	registry.SetLogger(log)

	if loadErr := registry.LoadAll(ctx); loadErr != nil {
		return fmt.Errorf("loading thing registry: %w", loadErr)
	}
	log.Info("thing registry initialised", "things", registry.Count())

	if mqttClient != nil {
		// Every dispatched thing event is republished to the broker
		registry.AddEventSink(mqttClient.EventRelay())
	}

	// Connect event telemetry (optional)
	var telemetryClient *telemetry.Client
	if cfg.InfluxDB.Enabled {
		telemetryClient, err = telemetry.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting telemetry: %w", err)
		}
		defer func() {
			log.Info("closing telemetry connection")
			if closeErr := telemetryClient.Close(); closeErr != nil {
				log.Error("error closing telemetry", "error", closeErr)
			}
		}()
		log.Info("telemetry connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		telemetryClient.SetOnError(func(err error) {
			log.Error("telemetry write error", "error", err)
		})

		registry.AddEventSink(telemetryClient.EventSink())
	} else {
		log.Info("telemetry disabled")
	}

	// Start the API server
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Uploads:  cfg.Uploads,
		Logger:   log,
		Registry: registry,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, server, mqttClient, telemetryClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Periodic gateway stats for telemetry dashboards
	if telemetryClient != nil {
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					telemetryClient.WritePoint("gateway_stats",
						map[string]string{"service": "thingcore"},
						map[string]interface{}{"things": registry.Count()},
					)
				}
			}
		}()
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Telemetry (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database

	log.Info("Thing Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses THINGCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("THINGCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// Optional components that are disabled (nil) are skipped.
func healthCheck(ctx context.Context, db *database.DB, server *api.Server, mqttClient *mqtt.Client, telemetryClient *telemetry.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if telemetryClient != nil {
		if err := telemetryClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}
	return nil
}
