package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/learnerguy001/Smart-Traffic-main/internal/analysis"
	"github.com/learnerguy001/Smart-Traffic-main/internal/config"
	"github.com/learnerguy001/Smart-Traffic-main/internal/evidence"
	"github.com/learnerguy001/Smart-Traffic-main/internal/generator"
	"github.com/learnerguy001/Smart-Traffic-main/internal/httpserver"
	"github.com/learnerguy001/Smart-Traffic-main/internal/llm"
	"github.com/learnerguy001/Smart-Traffic-main/internal/storage"
	"github.com/learnerguy001/Smart-Traffic-main/internal/tts"
	"github.com/learnerguy001/Smart-Traffic-main/internal/violation"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	log.Logger = logger

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := violation.NewStore(storage.NewFileAdapter(cfg.DataFile), logger)
	if err := store.Hydrate(); err != nil {
		logger.Fatal().Err(err).Msg("load violation data")
	}

	var primary tts.Synthesizer
	switch cfg.TTSProvider {
	case "deepgram":
		primary = tts.NewDeepgramClient(cfg.DeepgramKey, cfg.DeepgramModel)
	default:
		primary = tts.NewAIMLClient(cfg.AIMLKey, cfg.AIMLTTSModel, cfg.AIMLTTSVoice)
	}
	engine := tts.NewEngine(primary, tts.NewLocalSynthesizer(), logger)

	var uploader evidence.Uploader
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceRoleKey != "" {
		stor, err := evidence.New(evidence.Config{
			URL:            cfg.SupabaseURL,
			ServiceRoleKey: cfg.SupabaseServiceRoleKey,
			Bucket:         cfg.SupabaseBucket,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("init evidence storage")
		}
		uploader = stor
	} else {
		uploader = evidence.Disabled{Log: logger}
	}

	pipeline := analysis.New(store, uploader, logger)
	gen := generator.New(store, logger)
	stopGen := gen.Start(ctx)
	defer stopGen()

	srv := httpserver.New(httpserver.Deps{
		Store:     store,
		Generator: gen,
		Pipeline:  pipeline,
		LLM:       llm.NewAIMLClient(cfg.AIMLKey, cfg.AIMLChatModel),
		Speech:    engine,
		Log:       logger,
		BaseCtx:   ctx,
	})
	store.SetAnnouncer(tts.NewAnnouncer(engine, srv.AnnouncementSink(), logger))

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           srv.Echo,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("address", cfg.HTTPAddress).Msg("server listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown incomplete")
	}
}
