package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/notify"
	"gorm.io/gorm"
)

// ReminderService pushes a notice to the household when a rotation ends.
type ReminderService struct {
	db     *gorm.DB
	pusher notify.Pusher
}

func NewReminderService(db *gorm.DB, pusher notify.Pusher) *ReminderService {
	return &ReminderService{db: db, pusher: pusher}
}

// SendDue reminds every household with an active rotation ending on now's
// UTC date. Each rotation is reminded at most once.
func (s *ReminderService) SendDue(ctx context.Context, now time.Time) (int, error) {
	today := now.UTC().Format(models.DateLayout)

	var rotations []models.Rotation
	if err := s.db.WithContext(ctx).
		Where("is_active = ? AND end_date = ? AND reminder_sent_at IS NULL", true, today).
		Find(&rotations).Error; err != nil {
		return 0, fmt.Errorf("find ending rotations: %w", err)
	}

	sent := 0
	for i := range rotations {
		r := &rotations[i]
		res := s.db.WithContext(ctx).Model(&models.Rotation{}).
			Where("id = ? AND reminder_sent_at IS NULL", r.ID).
			Update("reminder_sent_at", now)
		if res.Error != nil {
			slog.Error("failed to stamp rotation reminder", "rotation_id", r.ID, "error", res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}
		s.remind(ctx, r)
		sent++
	}
	return sent, nil
}

func (s *ReminderService) remind(ctx context.Context, r *models.Rotation) {
	var child models.Child
	name := "your child"
	if err := s.db.WithContext(ctx).First(&child, "id = ?", r.ChildID).Error; err == nil {
		name = child.Name
	}

	var users []models.User
	err := s.db.WithContext(ctx).
		Joins("JOIN household_members ON household_members.uid = users.uid").
		Where("household_members.household_id = ? AND household_members.invite_status = ?", r.HouseholdID, models.InviteStatusAccepted).
		Find(&users).Error
	if err != nil {
		slog.Error("failed to load household members for reminder", "household_id", r.HouseholdID, "error", err)
		return
	}

	sendPush(ctx, s.db, s.pusher, users, notify.Message{
		Title: "Time to rotate",
		Body:  fmt.Sprintf("%s's toy rotation ends today. Plan the next one!", name),
		Data: map[string]string{
			"type":       "rotation_reminder",
			"rotationId": r.ID.String(),
			"childId":    r.ChildID.String(),
		},
	})
}
