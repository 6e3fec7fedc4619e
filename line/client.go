package line

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	apperrors "github.com/hyodoblog/mojiokoshi-line-bot/errors"
	"github.com/hyodoblog/mojiokoshi-line-bot/httpclient"
	"github.com/hyodoblog/mojiokoshi-line-bot/logger"
)

var (
	// ErrContentTooLarge is the cause of a TransportFailed error for content
	// over the configured limit.
	ErrContentTooLarge = errors.New("line: content exceeds max_content_bytes")
	// ErrNoMessages is returned when a reply has nothing to send.
	ErrNoMessages = errors.New("line: no messages to send")
)

const readChunkSize = 32 << 10

// Client calls the Messaging API. It is safe for concurrent use.
type Client struct {
	cfg  Config
	api  *httpclient.Client
	data *httpclient.Client
	log  *logger.Logger
}

// NewClient creates a Client. cfg is defaulted and validated.
func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	auth := httpclient.BearerAuth(cfg.ChannelAccessToken)
	if cfg.Assertion.enabled() {
		ts, err := NewAssertionTokenSource(cfg.Assertion, cfg.APIEndpoint, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		auth = httpclient.TokenAuth(func(context.Context) (string, error) {
			tok, err := ts.Token()
			if err != nil {
				return "", err
			}
			return tok.AccessToken, nil
		})
	}
	api, err := httpclient.New(httpclient.Config{
		Name:           "line-api",
		BaseURL:        cfg.APIEndpoint,
		Timeout:        cfg.Timeout,
		Auth:           auth,
		CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("line-api"),
	})
	if err != nil {
		return nil, err
	}
	data, err := httpclient.New(httpclient.Config{
		Name:    "line-data",
		BaseURL: cfg.DataEndpoint,
		Auth:    auth,
	})
	if err != nil {
		return nil, err
	}

	return &Client{cfg: cfg, api: api, data: data, log: log.WithComponent("line")}, nil
}

// ChannelSecret returns the secret webhook signatures are checked against.
func (c *Client) ChannelSecret() string { return c.cfg.ChannelSecret }

// APIEndpoint returns the reply/push endpoint, for startup summaries.
func (c *Client) APIEndpoint() string { return c.cfg.APIEndpoint }

// DataEndpoint returns the content endpoint, for startup summaries.
func (c *Client) DataEndpoint() string { return c.cfg.DataEndpoint }

// FetchContent downloads the content of a message. The body is read chunk by
// chunk and the chunks are concatenated in the order received. Any failure,
// including one in the middle of the stream, is a TransportFailed error.
// There is no retry.
func (c *Client) FetchContent(ctx context.Context, messageID string) ([]byte, error) {
	resp, err := c.data.DoStream(ctx, httpclient.Request{
		Method: http.MethodGet,
		Path:   "/v2/bot/message/" + url.PathEscape(messageID) + "/content",
	})
	if err != nil {
		return nil, apperrors.TransportFailed(messageID, err)
	}
	defer resp.Close()

	limit := c.cfg.maxContentBytes()
	if resp.ContentLength > limit {
		return nil, apperrors.TransportFailed(messageID, ErrContentTooLarge)
	}

	var buf bytes.Buffer
	if resp.ContentLength > 0 {
		buf.Grow(int(resp.ContentLength))
	}
	chunk := make([]byte, readChunkSize)
	for {
		n, err := resp.Body.Read(chunk)
		if n > 0 {
			if int64(buf.Len()+n) > limit {
				return nil, apperrors.TransportFailed(messageID, ErrContentTooLarge)
			}
			buf.Write(chunk[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.TransportFailed(messageID, err)
		}
	}

	c.log.WithContext(ctx).Debug("content fetched", logger.Fields(
		logger.FieldMessageID, messageID,
		logger.FieldBytes, buf.Len(),
	))
	return buf.Bytes(), nil
}

// TextMessage is an outbound text message.
type TextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []TextMessage `json:"messages"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []TextMessage `json:"messages"`
}

// Reply sends texts in order as replies to replyToken. Texts beyond the
// per-request limit are dropped with a warning; use ReplyTo to deliver them.
func (c *Client) Reply(ctx context.Context, replyToken string, texts []string) error {
	return c.ReplyTo(ctx, replyToken, "", texts)
}

// ReplyTo sends texts in order. The first five use the reply token; the rest
// are pushed to `to` in batches of five. With an empty `to` the rest are
// dropped with a warning.
func (c *Client) ReplyTo(ctx context.Context, replyToken, to string, texts []string) error {
	if len(texts) == 0 {
		return ErrNoMessages
	}

	batches := batch(texts, MaxMessagesPerRequest)
	if err := c.send(ctx, "/v2/bot/message/reply", replyRequest{ReplyToken: replyToken, Messages: batches[0]}); err != nil {
		return err
	}

	rest := batches[1:]
	if len(rest) == 0 {
		return nil
	}
	if to == "" {
		c.log.WithContext(ctx).Warn("reply truncated", logger.Fields(
			logger.FieldSegments, len(texts),
			"sent", MaxMessagesPerRequest,
		))
		return nil
	}
	for _, msgs := range rest {
		if err := c.send(ctx, "/v2/bot/message/push", pushRequest{To: to, Messages: msgs}); err != nil {
			return err
		}
	}
	return nil
}

// Push sends texts in order to a user, group or room.
func (c *Client) Push(ctx context.Context, to string, texts []string) error {
	if len(texts) == 0 {
		return ErrNoMessages
	}
	for _, msgs := range batch(texts, MaxMessagesPerRequest) {
		if err := c.send(ctx, "/v2/bot/message/push", pushRequest{To: to, Messages: msgs}); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, path string, body any) error {
	_, err := c.api.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: path, Body: body})
	if err != nil {
		return apperrors.ExternalServiceError("line", fmt.Errorf("%s: %w", path, err))
	}
	return nil
}

func batch(texts []string, size int) [][]TextMessage {
	var out [][]TextMessage
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		msgs := make([]TextMessage, 0, end-start)
		for _, t := range texts[start:end] {
			msgs = append(msgs, TextMessage{Type: "text", Text: t})
		}
		out = append(out, msgs)
	}
	return out
}
