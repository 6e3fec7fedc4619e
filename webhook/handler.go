// Package webhook receives LINE webhook deliveries, dispatches every event
// by message type and replies to the sender.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/hyodoblog/mojiokoshi-line-bot/errors"
	"github.com/hyodoblog/mojiokoshi-line-bot/line"
	"github.com/hyodoblog/mojiokoshi-line-bot/logger"
	"github.com/hyodoblog/mojiokoshi-line-bot/media"
	"github.com/hyodoblog/mojiokoshi-line-bot/pipeline"
	"github.com/hyodoblog/mojiokoshi-line-bot/server"
	"github.com/hyodoblog/mojiokoshi-line-bot/validation"
)

const (
	// FailureMessage answers a media message whose pipeline failed.
	FailureMessage = "変換に失敗しました。時間をおいてもう一度お試しください"
	// UnsupportedMessage answers message types the bot cannot read.
	UnsupportedMessage = "画像・音声・動画を送信してください"
)

// Replier delivers reply texts in order.
type Replier interface {
	ReplyTo(ctx context.Context, replyToken, to string, texts []string) error
}

// Runner runs the transcription pipeline for one media message.
type Runner interface {
	Run(ctx context.Context, ev pipeline.Event) (*pipeline.Result, error)
}

// Outcome describes how an event was handled.
type Outcome string

const (
	OutcomeReplied      Outcome = "replied"
	OutcomeIgnored      Outcome = "ignored"
	OutcomeVerification Outcome = "verification"
)

// Handler serves the webhook routes.
type Handler struct {
	secret  string
	replier Replier
	runner  Runner
	log     *logger.Logger
}

// NewHandler creates a Handler. Signatures are checked against
// channelSecret.
func NewHandler(channelSecret string, replier Replier, runner Runner, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Handler{
		secret:  channelSecret,
		replier: replier,
		runner:  runner,
		log:     log.WithComponent("webhook"),
	}
}

// Register mounts GET / and POST / and POST /webhook.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/", h.Hello)
	r.POST("/", h.Webhook)
	r.POST("/webhook", h.Webhook)
}

// Hello answers the plain liveness route.
func (h *Handler) Hello(c *gin.Context) {
	c.String(http.StatusOK, "Hello World")
}

// Webhook verifies and decodes a delivery, handles all of its events
// concurrently and answers 200 once every event was handled, or 500 if any
// reply failed.
func (h *Handler) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		server.Fail(c, apperrors.Validation("unreadable body").WithCause(err))
		return
	}
	if !line.VerifySignature(h.secret, body, c.GetHeader(line.SignatureHeader)) {
		h.log.WithContext(c.Request.Context()).Warn("webhook signature mismatch", logger.Fields(
			"remote", c.ClientIP(),
		))
		server.Fail(c, apperrors.InvalidSignature())
		return
	}

	var req line.WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		server.Fail(c, apperrors.Validation("malformed webhook body").WithCause(err))
		return
	}
	if err := validation.Validate(&req); err != nil {
		server.Fail(c, err)
		return
	}

	if err := h.HandleEvents(c.Request.Context(), req.Events); err != nil {
		server.Fail(c, apperrors.Internal(err))
		return
	}
	c.Status(http.StatusOK)
}

// HandleEvents handles events concurrently and joins their errors.
func (h *Handler) HandleEvents(ctx context.Context, events []line.Event) error {
	errs := make([]error, len(events))
	var wg sync.WaitGroup
	for i := range events {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = h.HandleEvent(ctx, events[i])
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// HandleEvent dispatches one event and sends its reply.
func (h *Handler) HandleEvent(ctx context.Context, ev line.Event) (Outcome, error) {
	start := time.Now()
	if ev.WebhookEventID != "" {
		ctx = logger.ContextWithRequestID(ctx, ev.WebhookEventID)
	}
	log := h.log.WithContext(ctx)

	if ev.IsVerification() {
		log.Info("webhook verification event")
		return OutcomeVerification, nil
	}
	if ev.Type != line.EventTypeMessage || ev.Message == nil {
		log.Debug("event ignored", logger.Fields("event_type", ev.Type))
		return OutcomeIgnored, nil
	}

	var texts []string
	switch m := ev.Message.Variant().(type) {
	case line.IncomingText:
		texts = []string{m.Text}
	case line.IncomingImage:
		texts = h.transcribe(ctx, pipeline.Event{Kind: media.KindImage, MessageID: m.ID})
	case line.IncomingAudio:
		texts = h.transcribe(ctx, pipeline.Event{Kind: media.KindAudio, MessageID: m.ID, Duration: m.Duration})
	case line.IncomingVideo:
		texts = h.transcribe(ctx, pipeline.Event{Kind: media.KindVideo, MessageID: m.ID, Duration: m.Duration})
	case line.UnsupportedMessage:
		texts = []string{UnsupportedMessage}
	}

	if err := h.replier.ReplyTo(ctx, ev.ReplyToken, ev.Source.ID(), texts); err != nil {
		log.Error("reply failed", logger.MergeWithError(logger.Fields(
			logger.FieldMessageID, ev.Message.ID,
		), err))
		return OutcomeReplied, err
	}

	fields := logger.DurationFields("handle_event", time.Since(start))
	fields[logger.FieldMessageID] = ev.Message.ID
	fields[logger.FieldSegments] = len(texts)
	log.Info("event replied", fields)
	return OutcomeReplied, nil
}

// transcribe runs the pipeline and maps a failure to FailureMessage so the
// sender always gets an answer.
func (h *Handler) transcribe(ctx context.Context, ev pipeline.Event) []string {
	res, err := h.runner.Run(ctx, ev)
	if err != nil || res == nil || len(res.Segments) == 0 {
		fields := logger.Fields(logger.FieldMessageID, ev.MessageID, logger.FieldMediaKind, ev.Kind.String())
		if err != nil {
			fields = logger.MergeWithError(fields, err)
		}
		h.log.WithContext(ctx).Warn("transcription failed, sending failure reply", fields)
		return []string{FailureMessage}
	}
	return res.Segments
}
