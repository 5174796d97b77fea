// Kiosk Core - Airport Wayfinding Kiosk
//
// This is the main entry point for the kiosk daemon. It owns the hosted
// map engine session, the venue POI directory, gate resolution, and the
// localhost API the touch-screen UI talks to. Designed for:
//   - Unattended 24/7 operation
//   - Degraded service through engine outages (snapshot fallback)
//   - Optional fleet telemetry (MQTT) and usage metrics (InfluxDB)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/terminalworks/kiosk-core/migrations"

	"github.com/terminalworks/kiosk-core/internal/api"
	"github.com/terminalworks/kiosk-core/internal/gate"
	"github.com/terminalworks/kiosk-core/internal/infrastructure/config"
	"github.com/terminalworks/kiosk-core/internal/infrastructure/database"
	"github.com/terminalworks/kiosk-core/internal/infrastructure/influxdb"
	"github.com/terminalworks/kiosk-core/internal/infrastructure/logging"
	"github.com/terminalworks/kiosk-core/internal/infrastructure/mqtt"
	"github.com/terminalworks/kiosk-core/internal/mapengine"
	"github.com/terminalworks/kiosk-core/internal/mapsession"
	"github.com/terminalworks/kiosk-core/internal/poi"
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

// defaultWaitsRefreshInterval is used when the config leaves the security
// wait refresh interval unset.
const defaultWaitsRefreshInterval = 5 * time.Minute

// directoryInitTimeout bounds the initial engine directory fetch. Past
// this the cache falls back to its persisted snapshot.
const directoryInitTimeout = 30 * time.Second

// heartbeatInterval is how often the retained status topic is refreshed so
// fleet dashboards can distinguish a healthy kiosk from a silently hung one.
const heartbeatInterval = time.Minute

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
	log.Info("starting kiosk core",
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
	log.Info("configuration loaded", "path", configPath, "kiosk_id", cfg.Kiosk.ID)

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

	// Map session manager. The engine is loaded lazily by the first
	// InitSession; a vendor outage at boot must not keep the kiosk down.
	kioskLocation := poi.Position{
		Latitude:  cfg.Kiosk.Location.Latitude,
		Longitude: cfg.Kiosk.Location.Longitude,
		FloorID:   cfg.Kiosk.Location.FloorID,
	}
	sessions := mapsession.NewManager(mapsession.Config{
		AccountID:         cfg.Engine.AccountID,
		VenueID:           cfg.Engine.VenueID,
		KioskLocation:     kioskLocation,
		HomeStateToken:    cfg.Engine.HomeStateToken,
		ShowControls:      cfg.Engine.ShowControls,
		QuickCategories:   cfg.Engine.QuickCategories,
		Plugins:           cfg.Engine.Plugins,
		SearchSettleDelay: cfg.SearchSettleDelay(),
	}, func(loadCtx context.Context) (mapengine.Engine, error) {
		engine, loadErr := mapengine.Load(loadCtx, mapengine.HostedConfig{
			BaseURL:        cfg.Engine.BaseURL,
			APIKey:         cfg.Engine.APIKey,
			RequestTimeout: time.Duration(cfg.Engine.RequestTimeoutSeconds) * time.Second,
		})
		if loadErr != nil {
			return nil, loadErr
		}
		engine.SetLogger(log)
		return engine, nil
	})
	sessions.SetLogger(log)
	defer func() {
		log.Info("closing map session")
		sessions.Close()
	}()

	if _, initErr := sessions.InitSession(ctx); initErr != nil {
		// Not fatal: the directory falls back to its snapshot and the
		// session can be reinitialised once the vendor recovers.
		log.Warn("map session unavailable at startup", "error", initErr)
	} else {
		log.Info("map session ready")
	}

	// POI directory cache, snapshot-backed so the kiosk can serve a stale
	// directory through engine outages.
	snapshots := poi.NewSQLiteSnapshotStore(db.DB)
	directory := poi.NewCache(sessions, snapshots, kioskLocation)
	directory.SetLogger(log)
	directory.SetFallbackWaitMinutes(cfg.Kiosk.FallbackWaitMinutes)

	// Populate in the background so a slow or dead engine cannot hold up
	// boot. Directory endpoints serve 503 until this completes.
	go func() {
		dirCtx, cancelDir := context.WithTimeout(ctx, directoryInitTimeout)
		defer cancelDir()
		if initErr := directory.Initialise(dirCtx); initErr != nil {
			log.Warn("poi directory unavailable at startup", "error", initErr)
			return
		}
		stats := directory.Stats()
		log.Info("poi directory ready", "count", stats.Count, "from_snapshot", stats.FromSnapshot)
	}()

	// Gate resolution. No flight schedule feed is configured yet, so
	// lookups rely on the engine's search alone.
	gates := gate.NewService(sessions, directory, nil)
	gates.SetLogger(log)

	// Connect to MQTT broker (optional fleet telemetry)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, cfg.Kiosk.ID)
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
			"kiosk_id", cfg.Kiosk.ID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(disconnectErr error) {
			log.Warn("MQTT disconnected", "error", disconnectErr)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional usage metrics)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB, cfg.Kiosk.ID)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(writeErr error) {
			log.Error("InfluxDB write error", "error", writeErr)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start API server for the touch-screen UI
	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Logger:    log,
		Sessions:  sessions,
		Directory: directory,
		Gates:     gates,
		Metrics:   influxClient,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Subscribe to fleet commands and forward session telemetry
	if mqttClient != nil {
		if subErr := subscribeCommands(ctx, mqttClient, cfg.Kiosk.ID, directory, sessions, server, influxClient, log); subErr != nil {
			log.Warn("fleet command subscription failed", "error", subErr)
		}
		go forwardSessionTelemetry(ctx, mqttClient, cfg.Kiosk.ID, sessions, log)
		go heartbeatLoop(ctx, mqttClient, cfg.Kiosk.ID, sessions, log)
	}

	// Periodic security wait refresh
	go refreshWaitsLoop(ctx, cfg, directory, server, mqttClient, influxClient, log)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient, server); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Map session
	// 5. Database

	log.Info("kiosk core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses KIOSK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("KIOSK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, server *api.Server) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	if err := server.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}

// refreshWaitsLoop refreshes security wait times on a fixed interval and
// fans the result out to UI WebSocket clients, the fleet broker, and the
// metrics pipeline. Failures are logged and retried next tick.
func refreshWaitsLoop(ctx context.Context, cfg *config.Config, directory *poi.Cache, server *api.Server, mqttClient *mqtt.Client, metrics *influxdb.Client, log *logging.Logger) {
	interval := time.Duration(cfg.Kiosk.WaitsRefreshInterval) * time.Second
	if interval <= 0 {
		interval = defaultWaitsRefreshInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		waits, err := directory.RefreshSecurityWaitTimes(ctx)
		if err != nil {
			log.Warn("security wait refresh failed", "error", err)
			continue
		}

		server.NotifyWaitsUpdated(waits)

		if metrics != nil {
			for _, w := range waits {
				metrics.WriteSecurityWait(w.ID, w.QueueType, float64(w.WaitMinutes))
			}
		}

		if mqttClient != nil {
			payload, marshalErr := json.Marshal(map[string]any{
				"kiosk_id":   cfg.Kiosk.ID,
				"waits":      waits,
				"updated_at": time.Now().UTC(),
			})
			if marshalErr == nil {
				topic := mqtt.Topics{}.Waits(cfg.Kiosk.ID)
				if pubErr := mqttClient.PublishRetained(topic, payload); pubErr != nil {
					log.Warn("wait time publish failed", "error", pubErr)
				}
			}
		}

		log.Debug("security waits refreshed", "checkpoints", len(waits))
	}
}

// subscribeCommands wires remote fleet commands to local operations. The
// command name is the topic suffix; payloads are ignored. Unknown commands
// are logged and dropped.
func subscribeCommands(ctx context.Context, mqttClient *mqtt.Client, kioskID string, directory *poi.Cache, sessions *mapsession.Manager, server *api.Server, metrics *influxdb.Client, log *logging.Logger) error {
	topic := mqtt.Topics{}.AllCommands(kioskID)
	prefix := mqtt.Topics{}.Command(kioskID, "")

	return mqttClient.Subscribe(topic, 1, func(msgTopic string, _ []byte) error {
		command := msgTopic[len(prefix):]
		log.Info("fleet command received", "command", command)

		switch command {
		case "clear_cache":
			directory.Clear()
		case "reinit_session":
			sessions.DestroySession()
			if _, err := sessions.InitSession(ctx); err != nil {
				log.Error("remote session reinit failed", "error", err)
				return err
			}
			if metrics != nil {
				metrics.WriteSessionRestarts(sessions.Stats().InitCount)
			}
		case "refresh_waits":
			waits, err := directory.RefreshSecurityWaitTimes(ctx)
			if err != nil {
				log.Warn("remote wait refresh failed", "error", err)
				return err
			}
			server.NotifyWaitsUpdated(waits)
		default:
			log.Warn("unknown fleet command", "command", command)
		}
		return nil
	})
}

// heartbeatLoop refreshes the retained status topic periodically. The LWT
// covers unexpected disconnects; the heartbeat covers a process that stays
// connected but stops making progress.
func heartbeatLoop(ctx context.Context, mqttClient *mqtt.Client, kioskID string, sessions *mapsession.Manager, log *logging.Logger) {
	started := time.Now()
	topic := mqtt.Topics{}.Status(kioskID)

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		payload, err := json.Marshal(map[string]any{
			"status":         "online",
			"kiosk_id":       kioskID,
			"uptime_s":       int(time.Since(started).Seconds()),
			"session_status": sessions.Status(),
			"timestamp":      time.Now().UTC(),
		})
		if err != nil {
			continue
		}
		if pubErr := mqttClient.PublishRetained(topic, payload); pubErr != nil {
			log.Debug("heartbeat publish failed", "error", pubErr)
		}
	}
}

// forwardSessionTelemetry publishes map session lifecycle changes to the
// fleet broker. State changes go to the retained session topic so ops
// dashboards see the current state immediately; other map events go to the
// per-event topics.
func forwardSessionTelemetry(ctx context.Context, mqttClient *mqtt.Client, kioskID string, sessions *mapsession.Manager, log *logging.Logger) {
	events, unsubscribe := sessions.Subscribe()
	defer unsubscribe()

	topics := mqtt.Topics{}

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-events:
			if !ok {
				return
			}

			payload, err := json.Marshal(n)
			if err != nil {
				continue
			}

			if n.Type == mapsession.NoteStateChanged {
				if pubErr := mqttClient.PublishRetained(topics.Session(kioskID), payload); pubErr != nil {
					log.Debug("session state publish failed", "error", pubErr)
				}
				continue
			}

			if pubErr := mqttClient.Publish(topics.Event(kioskID, string(n.Type)), payload, 0, false); pubErr != nil {
				log.Debug("event publish failed", "type", n.Type, "error", pubErr)
			}
		}
	}
}
