package notify

import (
	"context"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/messaging"
)

// fcmBatchLimit is the FCM cap on tokens per multicast request.
const fcmBatchLimit = 500

type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Pusher sends one message to many device tokens and reports the tokens the
// gateway rejected as unregistered or malformed.
type Pusher interface {
	Send(ctx context.Context, tokens []string, msg Message) (invalid []string, err error)
}

type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// FCMPusher sends through Firebase Cloud Messaging.
type FCMPusher struct {
	client multicastSender
}

func NewFCMPusher(client *messaging.Client) *FCMPusher {
	return &FCMPusher{client: client}
}

func (p *FCMPusher) Send(ctx context.Context, tokens []string, msg Message) ([]string, error) {
	var invalid []string
	for start := 0; start < len(tokens); start += fcmBatchLimit {
		end := min(start+fcmBatchLimit, len(tokens))
		batch := tokens[start:end]

		resp, err := p.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens: batch,
			Notification: &messaging.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: msg.Data,
		})
		if err != nil {
			return invalid, fmt.Errorf("failed to send multicast notification: %w", err)
		}

		for i, r := range resp.Responses {
			if r.Error == nil {
				continue
			}
			if messaging.IsInvalidArgument(r.Error) || messaging.IsUnregistered(r.Error) {
				invalid = append(invalid, batch[i])
			}
		}
		if resp.FailureCount > 0 {
			slog.Warn("push batch had failures", "success", resp.SuccessCount, "failure", resp.FailureCount)
		}
	}
	return invalid, nil
}

// NoopPusher drops messages. Used when Firebase is not configured.
type NoopPusher struct{}

func (NoopPusher) Send(_ context.Context, tokens []string, msg Message) ([]string, error) {
	slog.Debug("push disabled, dropping message", "title", msg.Title, "tokens", len(tokens))
	return nil, nil
}
