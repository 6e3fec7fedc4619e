package media

import (
	"github.com/hyodoblog/mojiokoshi-line-bot/logger"
	"github.com/hyodoblog/mojiokoshi-line-bot/observability"
	"github.com/hyodoblog/mojiokoshi-line-bot/process"
	"github.com/hyodoblog/mojiokoshi-line-bot/provider"
	"github.com/hyodoblog/mojiokoshi-line-bot/resilience"
)

// Executor runs one subprocess to completion.
type Executor = provider.RequestResponse[process.Command, *process.Result]

// NewExecutor returns the process tool for ffmpeg and ffprobe, decorated
// with logging, tracing, metrics and a bulkhead of cfg.MaxConcurrent slots.
// Calls wait for a free slot until their context is done. metrics may be nil.
func NewExecutor(cfg Config, log *logger.Logger, metrics *observability.Metrics) Executor {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	tool := process.NewTool(process.ToolConfig{
		Name:        "ffmpeg",
		Binaries:    []string{cfg.FFmpegPath, cfg.FFprobePath},
		Timeout:     cfg.Timeout,
		GracePeriod: cfg.GracePeriod,
	})
	return provider.Chain(
		provider.WithLogging[process.Command, *process.Result](log.WithComponent("media")),
		provider.WithTracing[process.Command, *process.Result](),
		provider.WithMetrics[process.Command, *process.Result](metrics),
		provider.WithResilience[process.Command, *process.Result](provider.ResilienceConfig{
			Bulkhead: &resilience.BulkheadConfig{
				Name:          "ffmpeg",
				MaxConcurrent: cfg.MaxConcurrent,
				MaxWait:       -1,
			},
		}),
	)(tool)
}
