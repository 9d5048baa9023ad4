package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/spencer-p/tidecast/pkg/data"
	"github.com/spencer-p/tidecast/pkg/handlers"
	"github.com/spencer-p/tidecast/pkg/logging"
	"github.com/spencer-p/tidecast/pkg/predict"
)

type Config struct {
	Port   string `default:"8080"`
	Prefix string `default:"/"`

	APIURL          string        `envconfig:"API_URL" default:"http://localhost:8000"`
	PlotStrategy    string        `envconfig:"PLOT_STRATEGY" default:"fetch"`
	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"0s"`

	ResultTTL   time.Duration `envconfig:"RESULT_TTL" default:"1h"`
	MaxUploadMB int64         `envconfig:"MAX_UPLOAD_MB" default:"32"`

	SessionKey    string `envconfig:"SESSION_KEY"`
	EncryptionKey string `envconfig:"ENCRYPTION_KEY"`
	SecureCookies bool   `envconfig:"SECURE_COOKIES" default:"false"`

	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	LogConsole bool   `envconfig:"LOG_CONSOLE" default:"true"`
}

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	var env Config
	if err := envconfig.Process("", &env); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Setup(env.LogLevel, env.LogConsole)

	strategy, err := predict.ParsePlotStrategy(env.PlotStrategy)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	client, err := predict.NewClient(predict.Config{
		BaseURL:      env.APIURL,
		PlotStrategy: strategy,
		HTTPClient:   &http.Client{Timeout: env.UpstreamTimeout},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	history, err := data.PostgresFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open history")
	}
	if history == nil {
		log.Info().Msg("PGHOST unset, submission history disabled")
	}

	server := handlers.New(handlers.Options{
		Client: client,
		Sessions: handlers.NewSessionStore(handlers.SessionOptions{
			HashKey:  env.SessionKey,
			Password: env.EncryptionKey,
			Secure:   env.SecureCookies,
		}),
		History:   history,
		Prefix:    env.Prefix,
		ResultTTL: env.ResultTTL,
		MaxUpload: env.MaxUploadMB << 20,
	})

	r := mux.NewRouter().StrictSlash(true)
	if prefix := strings.TrimRight(env.Prefix, "/"); prefix != "" {
		server.Register(r.PathPrefix(prefix).Subrouter())
	} else {
		server.Register(r)
	}

	srv := &http.Server{
		Handler:      r,
		Addr:         "0.0.0.0:" + env.Port,
		WriteTimeout: 10 * time.Minute,
		ReadTimeout:  time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().
		Str("addr", srv.Addr).
		Str("prefix", env.Prefix).
		Str("api", env.APIURL).
		Str("plot_strategy", string(strategy)).
		Msg("listening and serving")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server failed")
	}
}
