package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"bizmanager/internal/api"
	"bizmanager/internal/apiclient"
	"bizmanager/internal/auth"
	"bizmanager/internal/config"
	mydb "bizmanager/internal/db"
	"bizmanager/internal/events"
	"bizmanager/internal/idempotency"
	"bizmanager/internal/logging"
	"bizmanager/internal/seed"
	"bizmanager/internal/store"
	"bizmanager/internal/telemetry"
	"bizmanager/internal/web"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	root := &cobra.Command{
		Use:           "bizmanager",
		Short:         "Inventory and sales manager for small businesses",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "api",
			Short: "Run the REST API",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runAPI(cmd.Context(), cfg, log)
			},
		},
		&cobra.Command{
			Use:   "web",
			Short: "Run the browser front end",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runWeb(cmd.Context(), cfg, log)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := openDB(cfg, log)
				if err != nil {
					return err
				}
				if sqlDB, err := db.DB(); err == nil {
					_ = sqlDB.Close()
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "seed <file.yaml>",
			Short: "Load a business, its users and products from YAML",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSeed(cmd.Context(), cfg, log, args[0])
			},
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("exiting")
		stop()
		os.Exit(1)
	}
}

// openDB connects and migrates.
func openDB(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := mydb.Open(cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := mydb.Migrate(db); err != nil {
		return nil, err
	}
	log.Info().Msg("database schema is up to date")
	return db, nil
}

func newGuard(ctx context.Context, cfg *config.Config, log zerolog.Logger) (idempotency.Guard, func(), error) {
	if cfg.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR not set, sale submissions are not de-duplicated")
		return idempotency.Noop{}, func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("idempotency keys stored in redis")
	return idempotency.NewRedisGuard(rdb, cfg.IdempotencyTTL), func() { _ = rdb.Close() }, nil
}

func newPublisher(cfg *config.Config, log zerolog.Logger) (events.Publisher, error) {
	switch cfg.EventsBroker {
	case "rabbitmq":
		pool, err := events.NewChannelPool(cfg.RabbitMQURL, cfg.RabbitMQQueue, cfg.ChannelPoolSize, log)
		if err != nil {
			return nil, err
		}
		log.Info().Str("queue", cfg.RabbitMQQueue).Msg("publishing sales to rabbitmq")
		return events.NewRabbitPublisher(pool, cfg.RabbitMQQueue), nil
	case "kafka":
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing sales to kafka")
		return events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic)), nil
	case "", "none":
		return events.Nop{}, nil
	}
	return nil, fmt.Errorf("unknown EVENTS_BROKER %q", cfg.EventsBroker)
}

func runAPI(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if cfg.UsesDevSecrets() {
		log.Warn().Msg("JWT_SECRET or SESSION_SECRET not set, using development defaults")
	}
	shutdownTracing, err := telemetry.Setup("bizmanager-api", cfg.Tracing)
	if err != nil {
		return err
	}
	defer flush(shutdownTracing, log)

	db, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	st := store.New(db)

	guard, closeGuard, err := newGuard(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeGuard()

	pub, err := newPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer pub.Close()

	srv := api.New(api.Deps{
		Users:      st,
		Products:   st,
		Sales:      st,
		Tokens:     auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Guard:      guard,
		Events:     pub,
		Ping:       st.Ping,
		Log:        log,
		LoginRate:  rate.Limit(cfg.LoginRate),
		LoginBurst: cfg.LoginBurst,
		Location:   time.Local,
	})
	return serve(ctx, ":"+cfg.APIPort, telemetry.Handler(srv.Router(), "bizmanager-api"), log.With().Str("process", "api").Logger())
}

func runWeb(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if cfg.UsesDevSecrets() {
		log.Warn().Msg("SESSION_SECRET not set, using the development default")
	}
	shutdownTracing, err := telemetry.Setup("bizmanager-web", cfg.Tracing)
	if err != nil {
		return err
	}
	defer flush(shutdownTracing, log)

	cookies := cookie.NewStore([]byte(cfg.SessionSecret))
	cookies.Options(sessions.Options{Path: "/", MaxAge: 12 * 60 * 60, HttpOnly: true, SameSite: http.SameSiteLaxMode})

	srv := web.New(web.Options{
		Connect:      web.ClientConnect(apiclient.New(cfg.APIBaseURL, cfg.HTTPTimeout)),
		Store:        cookies,
		Log:          log,
		BusinessName: cfg.BusinessName,
		Location:     time.Local,
	})
	r, err := srv.Router()
	if err != nil {
		return err
	}
	log.Info().Str("api", cfg.APIBaseURL).Msg("web front end talks to api")
	return serve(ctx, ":"+cfg.WebPort, telemetry.Handler(r, "bizmanager-web"), log.With().Str("process", "web").Logger())
}

func runSeed(ctx context.Context, cfg *config.Config, log zerolog.Logger, path string) error {
	f, err := seed.Load(path)
	if err != nil {
		return err
	}
	db, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	_, err = seed.Apply(ctx, store.New(db), f, log)
	return err
}

// serve runs h on addr until ctx is cancelled, then drains in-flight
// requests.
func serve(ctx context.Context, addr string, h http.Handler, log zerolog.Logger) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func flush(shutdown telemetry.Shutdown, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to flush traces")
	}
}
