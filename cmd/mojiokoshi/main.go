// Command mojiokoshi runs the LINE bot that replies to images, audio and
// video with the text they contain.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hyodoblog/mojiokoshi-line-bot/auth/google"
	"github.com/hyodoblog/mojiokoshi-line-bot/bootstrap"
	"github.com/hyodoblog/mojiokoshi-line-bot/component"
	"github.com/hyodoblog/mojiokoshi-line-bot/line"
	"github.com/hyodoblog/mojiokoshi-line-bot/logger"
	"github.com/hyodoblog/mojiokoshi-line-bot/media"
	"github.com/hyodoblog/mojiokoshi-line-bot/observability"
	"github.com/hyodoblog/mojiokoshi-line-bot/ocr"
	"github.com/hyodoblog/mojiokoshi-line-bot/ocr/vision"
	"github.com/hyodoblog/mojiokoshi-line-bot/pipeline"
	"github.com/hyodoblog/mojiokoshi-line-bot/provider"
	"github.com/hyodoblog/mojiokoshi-line-bot/recognition"
	"github.com/hyodoblog/mojiokoshi-line-bot/server"
	"github.com/hyodoblog/mojiokoshi-line-bot/transcription"
	"github.com/hyodoblog/mojiokoshi-line-bot/transcription/speech"
	"github.com/hyodoblog/mojiokoshi-line-bot/transcription/whisper"
	"github.com/hyodoblog/mojiokoshi-line-bot/version"
	"github.com/hyodoblog/mojiokoshi-line-bot/webhook"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml (default: search cmd/mojiokoshi, config, .)")
	flag.Parse()

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Version == "" {
		cfg.Version = version.Get().String()
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	if err := wire(ctx, app); err != nil {
		return err
	}
	return app.Run(ctx)
}

// wire builds every collaborator explicitly and registers the components.
func wire(ctx context.Context, app *bootstrap.App[*AppConfig]) error {
	cfg := app.Cfg

	shutdownTelemetry, err := observability.Setup(ctx, cfg.Observability, observability.Resource{
		ServiceName:    cfg.Name,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
	})
	if err != nil {
		return err
	}
	telemetry := &component.Func{
		ComponentName: "telemetry",
		Type:          "otlp",
		Details:       cfg.Observability.Endpoint,
		OnStop:        shutdownTelemetry,
	}
	if !cfg.Observability.Enabled {
		telemetry.Details = "disabled"
	}
	if err := app.RegisterComponent(telemetry); err != nil {
		return err
	}

	metrics, err := observability.NewMetrics(observability.Meter())
	if err != nil {
		return err
	}

	lineClient, err := line.NewClient(cfg.Line, app.Logger)
	if err != nil {
		return err
	}

	tokens, err := tokenSource(ctx, cfg.Recognition)
	if err != nil {
		if cfg.Recognition.Credentials != "" {
			return err
		}
		// Backends configured with an api_key still work.
		app.Logger.Warn("google credentials not found", logger.Fields(logger.FieldError, err.Error()))
	}
	images, err := newOCRProvider(cfg.Recognition, tokens)
	if err != nil {
		return err
	}
	speechProvider, err := newSpeechProvider(cfg.Recognition, tokens)
	if err != nil {
		return err
	}
	gateway := recognition.NewGateway(
		decorate(images, app.Logger, metrics),
		decorate(speechProvider, app.Logger, metrics),
		recognition.WithLanguageHints(cfg.Recognition.LanguageHints...),
		recognition.WithLogger(app.Logger),
	)

	executor := media.NewExecutor(cfg.Media, app.Logger, metrics)
	runner := pipeline.New(
		lineClient,
		media.NewTranscoder(executor, cfg.Media),
		media.NewProber(executor, cfg.Media),
		gateway,
		cfg.Pipeline,
		pipeline.WithLogger(app.Logger),
		pipeline.WithMetrics(metrics),
	)

	srv := server.New(cfg.Server, app.Logger)
	srv.Mount(cfg.Name, app.Components.HealthAll)
	webhook.NewHandler(lineClient.ChannelSecret(), lineClient, runner, app.Logger).Register(srv.Engine())

	if err := app.RegisterComponent(media.NewComponent(cfg.Media)); err != nil {
		return err
	}
	if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
		return err
	}

	app.Summary.TrackClient("line-api", lineClient.APIEndpoint(), "messaging")
	app.Summary.TrackClient("line-data", lineClient.DataEndpoint(), "messaging")
	app.Summary.TrackClient(images.Name(), "images", "ocr")
	app.Summary.TrackClient(speechProvider.Name(), cfg.Pipeline.LanguageCode, "speech")
	return nil
}

// tokenSource resolves Google credentials: the configured key file, then
// application default credentials.
func tokenSource(ctx context.Context, cfg RecognitionConfig) (google.TokenSource, error) {
	if cfg.Credentials != "" {
		return google.ServiceAccountTokenSourceFromFile(ctx, cfg.Credentials, google.CloudPlatformScope)
	}
	return google.DefaultTokenSource(ctx, google.CloudPlatformScope)
}

func newOCRProvider(cfg RecognitionConfig, tokens google.TokenSource) (ocr.Provider, error) {
	reg := ocr.NewRegistry()
	reg.RegisterFactory(vision.ProviderName, vision.Factory(tokens))
	p, err := reg.Create(cfg.OCR.Backend, cfg.OCR.Settings)
	if err != nil {
		return nil, fmt.Errorf("ocr backend %q: %w", cfg.OCR.Backend, err)
	}
	return p, nil
}

func newSpeechProvider(cfg RecognitionConfig, tokens google.TokenSource) (transcription.Provider, error) {
	reg := transcription.NewRegistry()
	reg.RegisterFactory(speech.ProviderName, speech.Factory(tokens))
	reg.RegisterFactory(whisper.ProviderName, whisper.Factory())
	p, err := reg.Create(cfg.Speech.Backend, cfg.Speech.Settings)
	if err != nil {
		return nil, fmt.Errorf("speech backend %q (available: %v): %w", cfg.Speech.Backend, reg.List(), err)
	}
	return p, nil
}

// decorate adds logging, tracing and metrics to a recognition provider.
// Provider failures reach the pipeline as they are; nothing is retried.
func decorate[I, O any](p provider.RequestResponse[I, O], log *logger.Logger, metrics *observability.Metrics) provider.RequestResponse[I, O] {
	return provider.Chain(
		provider.WithLogging[I, O](log.WithComponent("recognition")),
		provider.WithTracing[I, O](),
		provider.WithMetrics[I, O](metrics),
	)(p)
}
