package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// DefaultChunkSize is the gateway's per-request token limit
const DefaultChunkSize = 100

// Sender is the subset of *messaging.Client used for delivery
type Sender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Message is the gateway-agnostic push content
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// BatchResult summarizes one SendBatch call. Sent counts tokens in chunks
// that were handed to the gateway, not confirmed deliveries.
type BatchResult struct {
	Sent          int
	Chunks        int
	FailedChunks  int
	TokenErrors   map[string]error
	InvalidTokens []string
}

// Config holds Firebase credentials. CredentialsJSON wins over CredentialsFile.
type Config struct {
	CredentialsFile string
	CredentialsJSON string
	ChunkSize       int
}

// Client batches push messages to FCM
type Client struct {
	sender    Sender
	chunkSize int
	log       *zap.Logger
}

// New creates a client over an existing sender. A nil sender yields a
// disabled client whose SendBatch is a no-op.
func New(sender Sender, chunkSize int, log *zap.Logger) *Client {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Client{
		sender:    sender,
		chunkSize: chunkSize,
		log:       log.Named("push"),
	}
}

// NewFCM initializes Firebase messaging. Missing or broken credentials do not
// block startup; the returned client is disabled instead.
func NewFCM(ctx context.Context, cfg Config, log *zap.Logger) *Client {
	var opt option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opt = option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))
	case cfg.CredentialsFile != "":
		opt = option.WithCredentialsFile(cfg.CredentialsFile)
	default:
		log.Warn("⚠️ Firebase credentials not provided, push notifications disabled")
		return New(nil, cfg.ChunkSize, log)
	}

	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		log.Warn("⚠️ Failed to initialize Firebase app, push notifications disabled", zap.Error(err))
		return New(nil, cfg.ChunkSize, log)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		log.Warn("⚠️ Failed to get messaging client, push notifications disabled", zap.Error(err))
		return New(nil, cfg.ChunkSize, log)
	}

	log.Info("✅ Firebase FCM initialized")
	return New(client, cfg.ChunkSize, log)
}

// Enabled reports whether a gateway is configured
func (c *Client) Enabled() bool {
	return c.sender != nil
}

// SendBatch hands msg to the gateway for every token, at most chunkSize
// tokens per call. A failing chunk is logged and skipped; remaining chunks
// are still sent. Nothing is retried.
func (c *Client) SendBatch(ctx context.Context, tokens []string, msg Message) *BatchResult {
	result := &BatchResult{TokenErrors: map[string]error{}}
	if len(tokens) == 0 {
		return result
	}
	if c.sender == nil {
		c.log.Debug("push disabled, skipping batch", zap.Int("tokens", len(tokens)))
		return result
	}

	for start := 0; start < len(tokens); start += c.chunkSize {
		end := min(start+c.chunkSize, len(tokens))
		chunk := tokens[start:end]
		result.Chunks++

		resp, err := c.sender.SendEachForMulticast(ctx, buildMulticast(chunk, msg))
		if err != nil {
			result.FailedChunks++
			for _, t := range chunk {
				result.TokenErrors[t] = err
			}
			c.log.Warn("push chunk failed",
				zap.Int("chunk", result.Chunks),
				zap.Int("tokens", len(chunk)),
				zap.Error(err))
			continue
		}

		result.Sent += len(chunk)
		if resp == nil || resp.FailureCount == 0 {
			continue
		}
		for idx, r := range resp.Responses {
			if r == nil || r.Success || idx >= len(chunk) {
				continue
			}
			result.TokenErrors[chunk[idx]] = r.Error
			if messaging.IsUnregistered(r.Error) {
				result.InvalidTokens = append(result.InvalidTokens, chunk[idx])
			}
		}
	}

	c.log.Debug("push batch dispatched",
		zap.Int("tokens", len(tokens)),
		zap.Int("sent", result.Sent),
		zap.Int("failed_chunks", result.FailedChunks))
	return result
}

func buildMulticast(tokens []string, msg Message) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
}

// Err returns a combined error for the failed chunks, or nil
func (r *BatchResult) Err() error {
	if r.FailedChunks == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d push chunks failed", r.FailedChunks, r.Chunks)
}
