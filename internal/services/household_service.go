package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/notify"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Caller is an authenticated user together with the household they act in.
type Caller struct {
	User        *models.User
	HouseholdID string
}

func (c *Caller) IsOwner() bool {
	return c.HouseholdID == c.User.UID
}

type HouseholdService struct {
	db     *gorm.DB
	cfg    *config.Config
	mailer notify.Mailer
	pusher notify.Pusher
	now    func() time.Time
}

func NewHouseholdService(db *gorm.DB, cfg *config.Config, mailer notify.Mailer, pusher notify.Pusher) *HouseholdService {
	return &HouseholdService{db: db, cfg: cfg, mailer: mailer, pusher: pusher, now: time.Now}
}

// Resolve returns the caller's profile and household, creating both the
// first time the caller writes anything.
func (s *HouseholdService) Resolve(ctx context.Context, id *tenant.Identity) (*Caller, error) {
	user, err := s.load(ctx, id.UID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return &Caller{User: user, HouseholdID: user.HouseholdID}, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err = ensureProfile(tx, id, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Caller{User: user, HouseholdID: user.HouseholdID}, nil
}

// Lookup is Resolve for read-only calls. A caller without a profile acts in
// their own, still empty, household and nothing is written.
func (s *HouseholdService) Lookup(ctx context.Context, id *tenant.Identity) (*Caller, error) {
	user, err := s.load(ctx, id.UID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = &models.User{UID: id.UID, HouseholdID: id.UID, SubscriptionTier: models.TierFree}
	}
	return &Caller{User: user, HouseholdID: user.HouseholdID}, nil
}

// load returns the stored profile, or nil when there is none or it predates
// households.
func (s *HouseholdService) load(ctx context.Context, uid string) (*models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Where("uid = ?", uid).Limit(1).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if len(users) == 0 || users[0].HouseholdID == "" {
		return nil, nil
	}
	return &users[0], nil
}

func (s *HouseholdService) GetHousehold(ctx context.Context, id *tenant.Identity) (*models.Household, error) {
	caller, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	var household models.Household
	err = s.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&household, "id = ?", caller.HouseholdID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load household: %w", err)
	}
	return &household, nil
}

func (s *HouseholdService) InviteCaregiver(ctx context.Context, id *tenant.Identity, email string) (*models.Invitation, error) {
	caller, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsOwner() {
		return nil, callable.PermissionDenied("Only the household owner can invite caregivers")
	}

	email = normalizeEmail(email)
	if email == "" {
		return nil, callable.InvalidArgument("A valid email address is required")
	}
	if email == normalizeEmail(id.Email) {
		return nil, callable.InvalidArgument("You cannot invite yourself")
	}

	now := s.now()
	inviterName := id.Name
	if caller.User.DisplayName != nil && *caller.User.DisplayName != "" {
		inviterName = *caller.User.DisplayName
	}

	invitation := &models.Invitation{
		HouseholdID:  caller.HouseholdID,
		InviterUID:   caller.User.UID,
		InviterName:  inviterName,
		InviteeEmail: email,
		Status:       models.InviteStatusPending,
		ExpiresAt:    now.Add(s.cfg.InvitationTTL),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.HouseholdMember
		err := tx.Where("household_id = ? AND email = ?", caller.HouseholdID, email).First(&member).Error
		switch {
		case err == nil:
			if member.InviteStatus == models.InviteStatusAccepted {
				return callable.AlreadyExists("This person is already a member of your household")
			}
			var pending int64
			if err := tx.Model(&models.Invitation{}).
				Where("household_id = ? AND invitee_email = ? AND status = ? AND expires_at > ?",
					caller.HouseholdID, email, models.InviteStatusPending, now).
				Count(&pending).Error; err != nil {
				return err
			}
			if pending > 0 {
				return callable.AlreadyExists("An invitation is already pending for this email")
			}
			if err := tx.Model(&member).Updates(map[string]interface{}{
				"invite_status": models.InviteStatusPending,
				"invited_at":    now,
				"uid":           "",
				"joined_at":     nil,
			}).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			member = models.HouseholdMember{
				HouseholdID:  caller.HouseholdID,
				Email:        email,
				Role:         models.RoleCaregiver,
				InviteStatus: models.InviteStatusPending,
				InvitedAt:    &now,
			}
			if err := tx.Create(&member).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					return callable.AlreadyExists("An invitation is already pending for this email")
				}
				return err
			}
		default:
			return err
		}
		return tx.Create(invitation).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifyInvitee(ctx, invitation)
	slog.Info("caregiver invited", "household_id", caller.HouseholdID, "invitation_id", invitation.ID)
	return invitation, nil
}

// notifyInvitee is best effort; the invitation stands even if delivery fails.
func (s *HouseholdService) notifyInvitee(ctx context.Context, inv *models.Invitation) {
	if s.mailer != nil {
		if err := s.mailer.SendInvitation(ctx, inv.InviteeEmail, inv.InviterName, inv.ID.String()); err != nil {
			slog.Error("invitation email failed", "household_id", inv.HouseholdID, "error", err)
		}
	}

	var invitee models.User
	err := s.db.WithContext(ctx).Where("LOWER(email) = ? AND push_token IS NOT NULL AND push_token <> ''", inv.InviteeEmail).First(&invitee).Error
	if err != nil {
		return
	}
	name := inv.InviterName
	if name == "" {
		name = "Someone"
	}
	sendPush(ctx, s.db, s.pusher, []models.User{invitee}, notify.Message{
		Title: "Household invitation",
		Body:  fmt.Sprintf("%s invited you to share toy rotations", name),
		Data:  map[string]string{"type": "invitation", "invitationId": inv.ID.String()},
	})
}

func (s *HouseholdService) AcceptInvitation(ctx context.Context, id *tenant.Identity, invitationID string) (*models.Household, error) {
	now := s.now()
	var householdID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := loadInvitationFor(tx, id, invitationID, now)
		if err != nil {
			return err
		}

		user, err := ensureProfile(tx, id, now)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"uid":           user.UID,
			"invite_status": models.InviteStatusAccepted,
			"joined_at":     now,
		}
		if user.DisplayName != nil {
			updates["display_name"] = *user.DisplayName
		} else if id.Name != "" {
			updates["display_name"] = id.Name
		}
		res := tx.Model(&models.HouseholdMember{}).
			Where("household_id = ? AND email = ?", inv.HouseholdID, inv.InviteeEmail).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			member := models.HouseholdMember{
				HouseholdID:  inv.HouseholdID,
				UID:          user.UID,
				Email:        inv.InviteeEmail,
				Role:         models.RoleCaregiver,
				InviteStatus: models.InviteStatusAccepted,
				InvitedAt:    &inv.CreatedAt,
				JoinedAt:     &now,
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&models.User{}).Where("uid = ?", user.UID).
			Update("household_id", inv.HouseholdID).Error; err != nil {
			return err
		}

		householdID = inv.HouseholdID
		return tx.Model(inv).Updates(map[string]interface{}{
			"status":       models.InviteStatusAccepted,
			"responded_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	slog.Info("invitation accepted", "household_id", householdID, "user_id", id.UID)

	var household models.Household
	if err := s.db.WithContext(ctx).Preload("Members").First(&household, "id = ?", householdID).Error; err != nil {
		return nil, fmt.Errorf("load household: %w", err)
	}
	return &household, nil
}

func (s *HouseholdService) DeclineInvitation(ctx context.Context, id *tenant.Identity, invitationID string) error {
	now := s.now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := loadInvitationFor(tx, id, invitationID, now)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.HouseholdMember{}).
			Where("household_id = ? AND email = ? AND invite_status = ?", inv.HouseholdID, inv.InviteeEmail, models.InviteStatusPending).
			Update("invite_status", models.InviteStatusDeclined).Error; err != nil {
			return err
		}
		return tx.Model(inv).Updates(map[string]interface{}{
			"status":       models.InviteStatusDeclined,
			"responded_at": now,
		}).Error
	})
}

func (s *HouseholdService) GetPendingInvitations(ctx context.Context, id *tenant.Identity) ([]models.Invitation, error) {
	invitations := []models.Invitation{}
	email := normalizeEmail(id.Email)
	if email == "" || !id.EmailVerified {
		return invitations, nil
	}
	err := s.db.WithContext(ctx).
		Where("invitee_email = ? AND status = ? AND expires_at > ?", email, models.InviteStatusPending, s.now()).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return invitations, nil
}

func (s *HouseholdService) RemoveCaregiver(ctx context.Context, id *tenant.Identity, uid string) error {
	caller, err := s.Resolve(ctx, id)
	if err != nil {
		return err
	}
	if !caller.IsOwner() {
		return callable.PermissionDenied("Only the household owner can remove caregivers")
	}
	if uid == caller.User.UID {
		return callable.InvalidArgument("The owner cannot be removed from the household")
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("household_id = ? AND uid = ? AND role = ?", caller.HouseholdID, uid, models.RoleCaregiver).
			Delete(&models.HouseholdMember{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return callable.NotFound("Caregiver not found")
		}
		return detachFromHousehold(tx, uid, caller.HouseholdID, now)
	})
	if err != nil {
		return err
	}
	slog.Info("caregiver removed", "household_id", caller.HouseholdID, "user_id", uid)
	return nil
}

// loadInvitationFor returns a pending invitation addressed to the caller.
// Only a verified email proves the caller owns the invited address.
func loadInvitationFor(tx *gorm.DB, id *tenant.Identity, invitationID string, now time.Time) (*models.Invitation, error) {
	invID, err := uuid.Parse(invitationID)
	if err != nil {
		return nil, callable.InvalidArgument("invitationId is invalid")
	}
	if !id.EmailVerified {
		return nil, callable.FailedPrecondition("Verify your email address before responding to invitations")
	}

	var inv models.Invitation
	err = tx.First(&inv, "id = ?", invID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, callable.NotFound("Invitation not found")
	}
	if err != nil {
		return nil, err
	}
	if email := normalizeEmail(id.Email); email == "" || inv.InviteeEmail != email {
		return nil, callable.NotFound("Invitation not found")
	}
	if inv.Status != models.InviteStatusPending {
		return nil, callable.FailedPrecondition("Invitation is no longer pending")
	}
	if inv.IsExpired(now) {
		return nil, callable.FailedPrecondition("Invitation has expired")
	}
	return &inv, nil
}

// ensureProfile loads the caller's profile, creating it with its own
// household on first use. Safe against concurrent first calls.
func ensureProfile(tx *gorm.DB, id *tenant.Identity, now time.Time) (*models.User, error) {
	var user models.User
	err := tx.First(&user, "uid = ?", id.UID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			UID:              id.UID,
			Email:            normalizeEmail(id.Email),
			Status:           models.UserStatusActive,
			HouseholdID:      id.UID,
			SubscriptionTier: models.TierFree,
			DeletionStatus:   models.DeletionStatusActive,
		}
		if id.Name != "" {
			name := id.Name
			user.DisplayName = &name
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&user)
		if res.Error != nil {
			return nil, fmt.Errorf("create profile: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			if err := applyStoredSubscription(tx, id.UID); err != nil {
				return nil, err
			}
		}
		if err := tx.First(&user, "uid = ?", id.UID).Error; err != nil {
			return nil, fmt.Errorf("load profile: %w", err)
		}
	}

	if user.HouseholdID == "" {
		user.HouseholdID = user.UID
		if err := tx.Model(&user).Update("household_id", user.UID).Error; err != nil {
			return nil, err
		}
	}
	if user.HouseholdID == user.UID {
		if err := ensureOwnHousehold(tx, &user, now); err != nil {
			return nil, err
		}
	}
	return &user, nil
}

func ensureOwnHousehold(tx *gorm.DB, user *models.User, now time.Time) error {
	household := models.Household{ID: user.UID, OwnerUID: user.UID}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&household).Error; err != nil {
		return fmt.Errorf("create household: %w", err)
	}

	owner := models.HouseholdMember{
		HouseholdID:  user.UID,
		UID:          user.UID,
		Email:        user.Email,
		Role:         models.RoleOwner,
		InviteStatus: models.InviteStatusAccepted,
		InvitedAt:    &now,
		JoinedAt:     &now,
	}
	if user.DisplayName != nil {
		owner.DisplayName = *user.DisplayName
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&owner).Error; err != nil {
		return fmt.Errorf("create owner member: %w", err)
	}
	return nil
}

// detachFromHousehold points a former caregiver back at their own household.
func detachFromHousehold(tx *gorm.DB, uid, fromHouseholdID string, now time.Time) error {
	var user models.User
	err := tx.First(&user, "uid = ? AND household_id = ?", uid, fromHouseholdID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	user.HouseholdID = user.UID
	if err := tx.Model(&user).Update("household_id", user.UID).Error; err != nil {
		return err
	}
	return ensureOwnHousehold(tx, &user, now)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
