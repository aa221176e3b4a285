package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "dashboard_sync/internal/docs"
	"dashboard_sync/internal/handlers"
	"dashboard_sync/internal/logger"
	"dashboard_sync/internal/queue"
	"dashboard_sync/internal/remote"
	"dashboard_sync/internal/repository"
	"dashboard_sync/internal/repository/db"
	"dashboard_sync/internal/server"
	"dashboard_sync/internal/service"
	"dashboard_sync/internal/sink"

	"github.com/spf13/viper"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// load config.yml (missing file falls back to defaults and env)
	cfgErr := loadConfig()

	// init logger
	log := logger.Get(viper.GetString("log.level"))
	if cfgErr != nil {
		log.Warnw("config_file_not_loaded", "err", cfgErr)
	}

	// open DB
	conn, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// wire dependencies
	repos := repository.NewRepository(conn)
	state, err := loadState(ctx, repos)
	if err != nil {
		log.Fatalw("failed to load cursors", "err", err)
	}
	cfg, err := serviceConfig()
	if err != nil {
		log.Fatalw("invalid configuration", "err", err)
	}

	q := queue.New(cfg.QueueOpTimeout)
	stores := remote.NewFactory(
		remote.WithBaseURL(viper.GetString("remote.base_url")),
		remote.WithTimeout(viper.GetDuration("remote.timeout")),
	)
	hub := sink.NewHub()
	router := sink.NewRouter(discordPoster(log), hub, viper.GetDuration("discord.timeout"), log)

	services := service.NewService(repos, service.Deps{
		State:  state,
		Queue:  q,
		Stores: stores,
		Sink:   router,
		Log:    log,
		Config: cfg,
	})
	apiHandler := handlers.NewHandler(services, hub, log)

	// start the poll and GC scheduler
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		services.Scheduler.Run(ctx, cfg.Poll.Interval)
	}()

	// start HTTP server
	srv := &server.Server{WriteTimeout: viper.GetDuration("server.write_timeout")}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
	<-schedulerDone
	q.Close()
	router.Wait()
	log.Infow("shutdown_complete")
}

func loadConfig() error {
	setDefaults()
	viper.SetEnvPrefix("DASHSYNC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

func setDefaults() {
	d := service.DefaultConfig()
	viper.SetDefault("port", "8080")
	viper.SetDefault("db.path", "app.db")
	viper.SetDefault("log.level", logger.InfoLevel)
	viper.SetDefault("server.write_timeout", 60*time.Second)

	viper.SetDefault("auth.signing_key", "")
	viper.SetDefault("auth.token_ttl", d.Auth.TokenTTL)

	viper.SetDefault("poll.interval", d.Poll.Interval)
	viper.SetDefault("poll.rotation_grace", d.Poll.RotationGrace)
	viper.SetDefault("poll.cycle_timeout", d.Poll.CycleTimeout)
	viper.SetDefault("queue.op_timeout", d.QueueOpTimeout)

	viper.SetDefault("remote.base_url", "")
	viper.SetDefault("remote.timeout", 30*time.Second)

	viper.SetDefault("discord.token", "")
	viper.SetDefault("discord.base_url", "")
	viper.SetDefault("discord.timeout", 30*time.Second)

	viper.SetDefault("placement.radius", d.Placement.Radius)
	viper.SetDefault("placement.items_per_row", d.Placement.ItemsPerRow)
	viper.SetDefault("placement.column_spacing", d.Placement.ColumnSpacing)
	viper.SetDefault("placement.row_spacing", d.Placement.RowSpacing)
	viper.SetDefault("placement.base_offset.x", d.Placement.BaseOffset.X)
	viper.SetDefault("placement.base_offset.y", d.Placement.BaseOffset.Y)
	viper.SetDefault("placement.base_offset.z", d.Placement.BaseOffset.Z)
	viper.SetDefault("placement.table_class", d.Placement.TableClass)
	viper.SetDefault("placement.default_y_offset", d.Placement.DefaultYOffset)
	viper.SetDefault("placement.templates_file", "")

	viper.SetDefault("gc.window_start", d.GC.WindowStart)
	viper.SetDefault("gc.window_end", d.GC.WindowEnd)
	viper.SetDefault("gc.guard", d.GC.Guard)
}

// serviceConfig reads the sync core tunables from viper.
func serviceConfig() (service.Config, error) {
	cfg := service.DefaultConfig()
	cfg.Auth.SigningKey = viper.GetString("auth.signing_key")
	cfg.Auth.TokenTTL = viper.GetDuration("auth.token_ttl")

	cfg.Poll.Interval = viper.GetDuration("poll.interval")
	cfg.Poll.RotationGrace = viper.GetDuration("poll.rotation_grace")
	cfg.Poll.CycleTimeout = viper.GetDuration("poll.cycle_timeout")
	cfg.QueueOpTimeout = viper.GetDuration("queue.op_timeout")

	cfg.Placement.Radius = viper.GetFloat64("placement.radius")
	cfg.Placement.ItemsPerRow = viper.GetInt("placement.items_per_row")
	cfg.Placement.ColumnSpacing = viper.GetFloat64("placement.column_spacing")
	cfg.Placement.RowSpacing = viper.GetFloat64("placement.row_spacing")
	cfg.Placement.BaseOffset.X = viper.GetFloat64("placement.base_offset.x")
	cfg.Placement.BaseOffset.Y = viper.GetFloat64("placement.base_offset.y")
	cfg.Placement.BaseOffset.Z = viper.GetFloat64("placement.base_offset.z")
	cfg.Placement.TableClass = viper.GetString("placement.table_class")
	cfg.Placement.DefaultYOffset = viper.GetFloat64("placement.default_y_offset")
	if err := cfg.Placement.LoadTemplates(viper.GetString("placement.templates_file")); err != nil {
		return cfg, err
	}

	cfg.GC.WindowStart = viper.GetDuration("gc.window_start")
	cfg.GC.WindowEnd = viper.GetDuration("gc.window_end")
	cfg.GC.Guard = viper.GetDuration("gc.guard")
	return cfg, nil
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "app.db")
		dbPath = "app.db"
	}
	return db.InitDB(dbPath)
}

// loadState seeds the in-memory cursors from the database.
func loadState(ctx context.Context, repos *repository.Repository) (*service.StateStore, error) {
	cursors, err := repos.Cursors.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	state := service.NewStateStore()
	state.Seed(cursors)
	return state, nil
}

// discordPoster returns nil when no bot token is configured; events then only
// reach websocket subscribers.
func discordPoster(log *logger.Logger) sink.Poster {
	token := viper.GetString("discord.token")
	if token == "" {
		log.Warnw("discord_disabled", "reason", "discord.token not set")
		return nil
	}
	poster, err := sink.NewDiscordPoster(viper.GetString("discord.base_url"), token, viper.GetDuration("discord.timeout"))
	if err != nil {
		log.Fatalw("failed to init discord poster", "err", err)
	}
	return poster
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
