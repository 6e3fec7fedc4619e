package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/hyodoblog/mojiokoshi-line-bot/errors"
	"github.com/hyodoblog/mojiokoshi-line-bot/logger"
	"github.com/hyodoblog/mojiokoshi-line-bot/media"
	"github.com/hyodoblog/mojiokoshi-line-bot/observability"
	"github.com/hyodoblog/mojiokoshi-line-bot/recognition"
	"github.com/hyodoblog/mojiokoshi-line-bot/textchunk"
)

// ContentFetcher downloads the content of a message.
type ContentFetcher interface {
	FetchContent(ctx context.Context, messageID string) ([]byte, error)
}

// Transcoder normalizes audio and video to lossless audio.
type Transcoder interface {
	ToLosslessAudio(ctx context.Context, data []byte) ([]byte, error)
	ExtractAudioTrack(ctx context.Context, data []byte) ([]byte, error)
}

// Prober reads the audio profile of transcoded audio.
type Prober interface {
	Probe(ctx context.Context, data []byte) (*media.AudioProfile, error)
}

// Recognizer extracts text from images and speech.
type Recognizer interface {
	RecognizeImageText(ctx context.Context, image []byte) (string, error)
	RecognizeSpeech(ctx context.Context, audio []byte, profile *media.AudioProfile, languageCode string, opts ...recognition.SpeechOption) (string, error)
}

// Event is the part of an inbound message the pipeline consumes.
type Event struct {
	Kind      media.Kind
	MessageID string
	// Duration is the reported length of audio or video. Zero means unknown
	// and passes the duration guard.
	Duration time.Duration
}

// Result is the outcome of one run.
type Result struct {
	RunID string
	Kind  media.Kind
	// State is the terminal state.
	State State
	// Path lists every state visited, starting with StateReceived.
	Path []State
	// Segments are the reply texts in delivery order. Empty when Failed.
	Segments []string
	// Profile is the probed audio profile, nil for images.
	Profile *media.AudioProfile
	// Err is the failure cause when State is StateFailed.
	Err error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(log *logger.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithMetrics records every finished run.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithObserver registers fn to be called synchronously on every transition.
func WithObserver(fn func(Transition)) Option {
	return func(p *Pipeline) { p.observers = append(p.observers, fn) }
}

// Pipeline runs media events through fetch, transcode, probe, recognition
// and chunking.
type Pipeline struct {
	fetcher    ContentFetcher
	transcoder Transcoder
	prober     Prober
	recognizer Recognizer
	cfg        Config
	log        *logger.Logger
	metrics    *observability.Metrics
	observers  []func(Transition)
}

// New creates a Pipeline from its collaborators.
func New(fetcher ContentFetcher, transcoder Transcoder, prober Prober, recognizer Recognizer, cfg Config, opts ...Option) *Pipeline {
	cfg.ApplyDefaults()
	p := &Pipeline{
		fetcher:    fetcher,
		transcoder: transcoder,
		prober:     prober,
		recognizer: recognizer,
		cfg:        cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.GetGlobalLogger()
	}
	p.log = p.log.WithComponent("pipeline")
	return p
}

// Run processes one event. On failure it returns the Failed result together
// with its cause, so callers can still inspect the path taken.
func (p *Pipeline) Run(ctx context.Context, ev Event) (*Result, error) {
	if ev.MessageID == "" {
		return nil, apperrors.Validation("message id is required")
	}
	switch ev.Kind {
	case media.KindImage, media.KindAudio, media.KindVideo:
	default:
		return nil, apperrors.Validation(fmt.Sprintf("unsupported media kind %q", ev.Kind))
	}

	ctx = logger.ContextWithMessageID(ctx, ev.MessageID)
	r := &run{
		p:     p,
		ev:    ev,
		log:   p.log.WithContext(ctx),
		start: time.Now(),
		res: &Result{
			RunID: uuid.NewString(),
			Kind:  ev.Kind,
			State: StateReceived,
			Path:  []State{StateReceived},
		},
	}
	r.log.Debug("pipeline received", logger.Fields(
		logger.FieldMediaKind, ev.Kind.String(),
		"media_duration_ms", ev.Duration.Milliseconds(),
	))

	var text string
	var err error
	if ev.Kind == media.KindImage {
		text, err = r.image(ctx)
	} else {
		if ev.Duration >= p.cfg.DurationLimit {
			r.reject()
			r.finish(ctx)
			return r.res, nil
		}
		text, err = r.speech(ctx)
	}
	if err == nil {
		r.res.Segments = textchunk.Chunk(text, p.cfg.ChunkLimit)
		r.advance(StateChunked, nil)
	}

	r.finish(ctx)
	return r.res, r.res.Err
}

// run is the state of one Run call.
type run struct {
	p     *Pipeline
	ev    Event
	log   *logger.Logger
	start time.Time
	res   *Result
}

func (r *run) image(ctx context.Context) (string, error) {
	data, err := stage(ctx, r, StateFetched, func(ctx context.Context) ([]byte, error) {
		return r.p.fetcher.FetchContent(ctx, r.ev.MessageID)
	})
	if err != nil {
		return "", err
	}
	return stage(ctx, r, StateRecognized, func(ctx context.Context) (string, error) {
		return r.p.recognizer.RecognizeImageText(ctx, data)
	})
}

func (r *run) speech(ctx context.Context) (string, error) {
	raw, err := stage(ctx, r, StateFetched, func(ctx context.Context) ([]byte, error) {
		return r.p.fetcher.FetchContent(ctx, r.ev.MessageID)
	})
	if err != nil {
		return "", err
	}

	audio, err := stage(ctx, r, StateTranscoded, func(ctx context.Context) ([]byte, error) {
		if r.ev.Kind == media.KindVideo {
			return r.p.transcoder.ExtractAudioTrack(ctx, raw)
		}
		return r.p.transcoder.ToLosslessAudio(ctx, raw)
	})
	if err != nil {
		return "", err
	}

	// Probe the transcoded audio: raw containers report unreliable metadata.
	profile, err := stage(ctx, r, StateProbed, func(ctx context.Context) (*media.AudioProfile, error) {
		return r.p.prober.Probe(ctx, audio)
	})
	if err != nil {
		return "", err
	}
	r.res.Profile = profile

	var opts []recognition.SpeechOption
	if r.p.cfg.SpeechModel != "" {
		opts = append(opts, recognition.WithModel(r.p.cfg.SpeechModel))
	}
	return stage(ctx, r, StateRecognized, func(ctx context.Context) (string, error) {
		return r.p.recognizer.RecognizeSpeech(ctx, audio, profile, r.p.cfg.LanguageCode, opts...)
	})
}

// stage runs fn under the stage timeout and moves to next on success or to
// StateFailed on error.
func stage[T any](ctx context.Context, r *run, next State, fn func(context.Context) (T, error)) (T, error) {
	sctx, cancel := context.WithTimeout(ctx, r.p.cfg.StageTimeout)
	defer cancel()

	v, err := fn(sctx)
	if err != nil {
		if sctx.Err() != nil && ctx.Err() == nil && !apperrors.IsAppError(err) {
			err = apperrors.Timeout(next.String()).WithCause(err)
		}
		r.res.Err = err
		r.advance(StateFailed, err)
		var zero T
		return zero, err
	}
	r.advance(next, nil)
	return v, nil
}

func (r *run) reject() {
	msg := RejectAudioMessage
	if r.ev.Kind == media.KindVideo {
		msg = RejectVideoMessage
	}
	r.res.Segments = []string{msg}
	r.advance(StateRejected, nil)
}

func (r *run) advance(to State, err error) {
	from := r.res.State
	r.res.State = to
	r.res.Path = append(r.res.Path, to)

	fields := logger.Fields(logger.FieldState, to.String(), "from", from.String())
	if err != nil {
		r.log.Warn("pipeline transition", logger.MergeWithError(fields, err))
	} else {
		r.log.Debug("pipeline transition", fields)
	}

	t := Transition{RunID: r.res.RunID, MessageID: r.ev.MessageID, From: from, To: to, Err: err}
	for _, fn := range r.p.observers {
		fn(t)
	}
}

func (r *run) finish(ctx context.Context) {
	elapsed := time.Since(r.start)
	fields := logger.DurationFields("pipeline", elapsed)
	fields[logger.FieldState] = r.res.State.String()
	fields[logger.FieldMediaKind] = r.ev.Kind.String()
	fields[logger.FieldSegments] = len(r.res.Segments)

	if r.res.State == StateFailed {
		r.log.Error("pipeline failed", logger.MergeWithError(fields, r.res.Err))
	} else {
		r.log.Info("pipeline finished", fields)
	}

	if r.p.metrics != nil {
		r.p.metrics.RecordPipelineRun(ctx, r.ev.Kind.String(), r.res.State.String(), len(r.res.Segments))
		if ae, ok := apperrors.AsAppError(r.res.Err); ok {
			r.p.metrics.RecordError(ctx, string(ae.Code), "pipeline")
		}
	}
}
