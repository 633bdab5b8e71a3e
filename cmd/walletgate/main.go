package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletgate/adapters/chain"
	"github.com/layer-3/walletgate/adapters/events"
	"github.com/layer-3/walletgate/adapters/store"
	"github.com/layer-3/walletgate/adapters/tokenizer"
	"github.com/layer-3/walletgate/adapters/users"
	"github.com/layer-3/walletgate/internal/config"
	"github.com/layer-3/walletgate/ports"
	"github.com/layer-3/walletgate/service"
	httptransport "github.com/layer-3/walletgate/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Set up zerolog to use pretty printing
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out: os.Stderr,
	})
	log.Info().Msg("starting up...")

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("could not load the configuration")
	}
	if cfg.IsEnvProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		gin.SetMode(gin.ReleaseMode)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Debug().Str("config", fmt.Sprintf("%+v", cfg)).Msg("")

	signingKey, err := tokenizer.LoadSigningKey(cfg.SigningKeyFile)
	if err != nil {
		log.Fatal().Err(err).Msg("could not load the signing key")
	}
	if cfg.SigningKeyFile == "" {
		log.Warn().Msg("no signing key configured, issued tokens will not survive a restart")
	}

	var (
		challengeStore ports.Store
		publisher      message.Publisher
	)
	wmLogger := watermill.NewStdLogger(false, false)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("could not parse the Redis URL")
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			wmLogger,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create the Redis publisher")
		}
		challengeStore = store.NewRedisStore(redisClient)
		log.Info().Msg("using Redis for challenges, token invalidation and events")
	} else {
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		challengeStore = store.NewMemoryStore()
		log.Info().Msg("no Redis configured, keeping state in memory")
	}
	defer publisher.Close()

	userRepo, err := users.NewMemDBRepository()
	if err != nil {
		log.Fatal().Err(err).Msg("could not create the user repository")
	}

	opts := []service.Option{
		service.WithAppName(cfg.AppName),
		service.WithTTLs(cfg.ChallengeTTL, cfg.AccessTTL),
		service.WithLogger(log.Logger),
	}
	if cfg.ChainRPCURL != "" {
		balances, err := chain.Dial(context.Background(), cfg.ChainRPCURL)
		if err != nil {
			log.Fatal().Err(err).Msg("could not connect to the chain RPC")
		}
		defer balances.Close()
		opts = append(opts, service.WithBalanceReader(balances))
	}

	authService := service.NewAuthService(
		tokenizer.NewJWTTokenizer(signingKey),
		challengeStore,
		userRepo,
		events.NewWatermillPublisher(publisher),
		opts...,
	)

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           httptransport.SetupRouter(authService, cfg.CookieSecure, log.Logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrs := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.ListenAddress).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrs <- err
		}
	}()

	// Wait for the application to be terminated
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt)
	select {
	case err := <-serverErrs:
		log.Error().Err(err).Msg("the HTTP server raised an unexpected error")
	case <-shutdown:
	}

	log.Info().Msg("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("could not shut down the HTTP server cleanly")
	}
}
