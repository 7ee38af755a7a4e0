package main

import (
	"fmt"
	"strings"
	"time"

	cfgPkg "github.com/zuricore/identity-service/app/config"
	"github.com/zuricore/identity-service/app/logger"
	"github.com/zuricore/identity-service/app/notify"
	"github.com/zuricore/identity-service/app/services"
	"github.com/zuricore/identity-service/app/store"
)

func main() {
	logger.Init()
	cfgPkg.Load()

	tokenSecret := cfgPkg.GetString("TOKEN_SECRET", "")
	sessionSecret := cfgPkg.GetString("SESSION_SECRET", "")
	if tokenSecret == "" || sessionSecret == "" {
		logger.Logger.Fatal().Msg("TOKEN_SECRET and SESSION_SECRET are required")
	}

	dbAddr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfgPkg.GetString("POSTGRES_USER", "postgres"),
		cfgPkg.GetString("POSTGRES_PASSWORD", "postgres"),
		cfgPkg.GetString("POSTGRES_HOST", "localhost"),
		cfgPkg.GetString("POSTGRES_PORT", "5432"),
		cfgPkg.GetString("POSTGRES_DB", "identity"),
		cfgPkg.GetString("POSTGRES_SSLMODE", "disable"),
	)

	cfg := cfgPkg.GetString("CORS_ALLOWED_ORIGINS", "")
	var corsOrigins []string
	if cfg != "" {
		for _, o := range strings.Split(cfg, ",") {
			corsOrigins = append(corsOrigins, strings.TrimSpace(o))
		}
	}

	appCfg := config{
		addr:        cfgPkg.GetString("ADDR", ":8080"),
		env:         cfgPkg.GetString("ENVIRONMENT", "development"),
		corsOrigins: corsOrigins,
		maxBodySize: int64(cfgPkg.GetInt("REQUEST_BODY_MAX_SIZE", 1<<20)),
		db: dbConfig{
			addr:         dbAddr,
			maxOpenConns: cfgPkg.GetInt("DB_MAX_OPEN_CONNS", 30),
			maxIdleConns: cfgPkg.GetInt("DB_MAX_IDLE_CONNS", 30),
			maxIdleTime:  cfgPkg.GetString("DB_MAX_IDLE_TIME", "15m"),
		},
	}

	db, err := cfgPkg.NewDB(appCfg.db.addr, appCfg.db.maxOpenConns, appCfg.db.maxIdleConns, appCfg.db.maxIdleTime)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	logger.Logger.Info().Msg("postgres connection pool established")

	if err := store.Migrate(db); err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisClient, err := cfgPkg.NewRedisClient()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	logger.Logger.Info().Msg("redis connection established")

	app := &application{
		config: appCfg,
		store:  store.NewStorage(db),
		redis:  redisClient,
		db:     db,
	}

	// Notifications go to the HTTP sink unless the deployment routes them
	// through the message broker.
	var notifier notify.Notifier
	switch cfgPkg.GetString("NOTIFIER", "http") {
	case "amqp":
		conn, ch, err := cfgPkg.NewRabbitMQConnection()
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("failed to connect to rabbitmq")
		}
		logger.Logger.Info().Msg("rabbitmq connection established")
		app.amqpConn, app.amqpCh = conn, ch
		notifier = notify.NewAMQPNotifier(ch, cfgPkg.NotificationExchange)
	default:
		notifier = notify.NewHTTPNotifier(cfgPkg.GetString("NOTIFICATION_SINK_URL", "http://localhost:8081"))
	}

	sessions := services.NewSessionManager(
		[]byte(sessionSecret),
		cfgPkg.GetDuration("SESSION_TTL", 24*time.Hour),
	)
	app.sessions = sessions

	app.identity = services.NewIdentityService(
		app.store,
		services.NewTokenCodec([]byte(tokenSecret)),
		sessions,
		notifier,
		services.NewConsumedTokenStore(redisClient),
		services.NewTwoFactorCodeStore(redisClient, cfgPkg.GetDuration("TWO_FACTOR_CODE_TTL", 5*time.Minute)),
		services.IdentityConfig{
			FrontendBaseURL: cfgPkg.GetString("FRONTEND_BASE_URL", "http://localhost:3000"),
			VerificationTTL: cfgPkg.GetDuration("VERIFICATION_TOKEN_TTL", 24*time.Hour),
			ResetTTL:        cfgPkg.GetDuration("RESET_TOKEN_TTL", time.Hour),
			EmailChangeTTL:  cfgPkg.GetDuration("EMAIL_CHANGE_TOKEN_TTL", time.Hour),
		},
	)

	if err := app.runWithGracefulShutdown(app.mount()); err != nil {
		logger.Logger.Fatal().Err(err).Msg("server error")
	}
}
