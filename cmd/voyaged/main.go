package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/voyages/internal/httpapi"
	"github.com/MarkoPoloResearchLab/voyages/internal/statscache"
	"github.com/MarkoPoloResearchLab/voyages/internal/store/gormstore"
	"github.com/MarkoPoloResearchLab/voyages/internal/telemetry"
	"github.com/MarkoPoloResearchLab/voyages/pkg/booking"
)

const (
	flagDatabaseURL    = "database-url"
	flagListenAddr     = "listen-addr"
	flagAllowedOrigins = "allowed-origins"
	flagJWTSigningKey  = "jwt-signing-key"
	flagJWTIssuer      = "jwt-issuer"
	flagRequestTimeout = "request-timeout"
	flagRedisAddr      = "redis-addr"
	flagStatsCacheTTL  = "stats-cache-ttl"
	flagAutoMigrate    = "auto-migrate"
	envPrefix          = "VOYAGES"

	defaultDatabaseURL    = "sqlite:///tmp/voyages.db"
	defaultListenAddr     = ":8000"
	defaultRequestTimeout = 5 * time.Second
	redisPingTimeout      = 2 * time.Second
)

type runtimeConfig struct {
	DatabaseURL   string
	AutoMigrate   bool
	RedisAddr     string
	StatsCacheTTL time.Duration
	HTTP          httpapi.Config
}

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "voyaged: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := &runtimeConfig{}
	v := viper.New()
	cmd := &cobra.Command{
		Use:           "voyaged",
		Short:         "Voyage booking REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, v, cfg)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.PersistentFlags().String(flagDatabaseURL, defaultDatabaseURL, "database URL (postgres:// or sqlite://)")
	cmd.PersistentFlags().Bool(flagAutoMigrate, false, "migrate the schema on PostgreSQL too (SQLite always migrates)")
	cmd.PersistentFlags().String(flagJWTSigningKey, "", "HS256 signing key for bearer tokens (required)")
	cmd.PersistentFlags().String(flagJWTIssuer, "", "expected bearer token issuer")
	cmd.Flags().String(flagListenAddr, defaultListenAddr, "HTTP listen address")
	cmd.Flags().String(flagAllowedOrigins, "", "comma-separated list of allowed CORS origins")
	cmd.Flags().Duration(flagRequestTimeout, defaultRequestTimeout, "per-request timeout")
	cmd.Flags().String(flagRedisAddr, "", "Redis address for the statistics cache; empty disables caching")
	cmd.Flags().Duration(flagStatsCacheTTL, statscache.DefaultTTL, "statistics cache TTL")

	cmd.AddCommand(newUserCommand(v))
	return cmd
}

func bindFlags(cmd *cobra.Command, v *viper.Viper, names ...string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, name := range names {
		if err := v.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

func loadConfig(cmd *cobra.Command, v *viper.Viper, cfg *runtimeConfig) error {
	if err := bindFlags(cmd, v, flagDatabaseURL, flagAutoMigrate, flagListenAddr, flagAllowedOrigins, flagJWTSigningKey, flagJWTIssuer, flagRequestTimeout, flagRedisAddr, flagStatsCacheTTL); err != nil {
		return err
	}

	cfg.DatabaseURL = strings.TrimSpace(v.GetString(flagDatabaseURL))
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = defaultDatabaseURL
	}
	cfg.AutoMigrate = v.GetBool(flagAutoMigrate)
	cfg.RedisAddr = strings.TrimSpace(v.GetString(flagRedisAddr))
	cfg.StatsCacheTTL = v.GetDuration(flagStatsCacheTTL)
	cfg.HTTP = httpapi.Config{
		ListenAddr:     strings.TrimSpace(v.GetString(flagListenAddr)),
		AllowedOrigins: httpapi.ParseAllowedOrigins(v.GetString(flagAllowedOrigins)),
		JWTSigningKey:  v.GetString(flagJWTSigningKey),
		JWTIssuer:      v.GetString(flagJWTIssuer),
		RequestTimeout: v.GetDuration(flagRequestTimeout),
	}
	return cfg.HTTP.Validate()
}

func runServer(ctx context.Context, cfg *runtimeConfig) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gormDB, cleanup, driver, err := openDatabase(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database open: %w", err)
	}
	defer cleanup()

	if err := prepareSchema(gormDB, driver, cfg.AutoMigrate); err != nil {
		return err
	}
	store := gormstore.New(gormDB)

	metrics, err := telemetry.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("metrics init: %w", err)
	}
	operationLogger := telemetry.MultiOperationLogger{telemetry.NewZapOperationLogger(logger), metrics}

	aggregator, err := booking.NewStatisticsAggregator(store)
	if err != nil {
		return fmt.Errorf("statistics init: %w", err)
	}
	var statistics httpapi.StatisticsProvider = aggregator
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = client.Close() }()
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
			logger.Warn("redis unreachable, statistics will be computed until it recovers", zap.String("addr", cfg.RedisAddr), zap.Error(pingErr))
		}
		cancel()
		cache, err := statscache.New(client, aggregator, statscache.WithTTL(cfg.StatsCacheTTL), statscache.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("statistics cache init: %w", err)
		}
		statistics = cache
		operationLogger = append(operationLogger, cache)
	}

	clock := func() time.Time { return time.Now().UTC() }
	service, err := booking.NewService(store, clock, booking.WithOperationLogger(operationLogger))
	if err != nil {
		return fmt.Errorf("booking service init: %w", err)
	}

	tokens, err := httpapi.NewTokenAuthority(cfg.HTTP.JWTSigningKey, cfg.HTTP.JWTIssuer)
	if err != nil {
		return fmt.Errorf("token authority init: %w", err)
	}
	server, err := httpapi.NewServer(cfg.HTTP, httpapi.Dependencies{
		Service:    service,
		Statistics: statistics,
		Tokens:     tokens,
		Gatherer:   prometheus.DefaultGatherer,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("http server init: %w", err)
	}
	return server.Run(ctx)
}
