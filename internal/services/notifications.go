package services

import (
	"context"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/notify"
	"gorm.io/gorm"
)

// sendPush delivers msg to every user with a registered token and clears
// tokens the gateway reports as dead. Failures are logged, never returned.
func sendPush(ctx context.Context, db *gorm.DB, pusher notify.Pusher, users []models.User, msg notify.Message) int {
	if pusher == nil {
		return 0
	}
	tokens := make([]string, 0, len(users))
	seen := make(map[string]bool, len(users))
	for _, u := range users {
		if u.PushToken == nil || *u.PushToken == "" || seen[*u.PushToken] {
			continue
		}
		seen[*u.PushToken] = true
		tokens = append(tokens, *u.PushToken)
	}
	if len(tokens) == 0 {
		return 0
	}

	invalid, err := pusher.Send(ctx, tokens, msg)
	if err != nil {
		metrics.PushSent.WithLabelValues("failure").Add(float64(len(tokens)))
		slog.Warn("push send failed", "tokens", len(tokens), "error", err)
		return 0
	}
	delivered := len(tokens) - len(invalid)
	metrics.PushSent.WithLabelValues("success").Add(float64(delivered))

	if len(invalid) > 0 {
		metrics.PushSent.WithLabelValues("pruned").Add(float64(len(invalid)))
		if err := db.WithContext(ctx).Model(&models.User{}).
			Where("push_token IN ?", invalid).
			Updates(map[string]interface{}{"push_token": nil, "push_platform": nil}).Error; err != nil {
			slog.Warn("failed to clear invalid push tokens", "count", len(invalid), "error", err)
		}
	}
	return delivered
}
