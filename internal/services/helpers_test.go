package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/ai"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/notify"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/tenant"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeCompleter struct {
	mu         sync.Mutex
	reply      string
	err        error
	configured bool
	calls      int
	last       ai.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req ai.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	return f.reply, f.err
}

func (f *fakeCompleter) Configured(bool) bool { return f.configured }

type pushCall struct {
	tokens []string
	msg    notify.Message
}

type recordingPusher struct {
	mu      sync.Mutex
	calls   []pushCall
	invalid []string
	err     error
}

func (p *recordingPusher) Send(_ context.Context, tokens []string, msg notify.Message) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, pushCall{tokens: tokens, msg: msg})
	return p.invalid, p.err
}

type recordingMailer struct {
	mu          sync.Mutex
	invitations []string
	deletions   []string
}

func (m *recordingMailer) SendInvitation(_ context.Context, toEmail, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invitations = append(m.invitations, toEmail)
	return nil
}

func (m *recordingMailer) SendDeletionScheduled(_ context.Context, toEmail, deletionDate string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletions = append(m.deletions, toEmail+" "+deletionDate)
	return nil
}

type recordingDeleter struct {
	deleted []string
}

func (d *recordingDeleter) DeleteUser(_ context.Context, uid string) error {
	d.deleted = append(d.deleted, uid)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		SuggestionsPerDay:          1,
		TrialRecognitionsPerMonth:  5,
		PaidRecognitionsPerMonth:   50,
		TrialSpaceAnalysesPerMonth: 2,
		PaidSpaceAnalysesPerMonth:  10,
		FreeMaxChildren:            2,
		FreeMaxToys:                50,
		DeletionGraceDays:          30,
		InvitationTTL:              7 * 24 * time.Hour,
	}
}

type fixture struct {
	db        *gorm.DB
	cfg       *config.Config
	mailer    *recordingMailer
	pusher    *recordingPusher
	completer *fakeCompleter
	deleter   *recordingDeleter

	usage         *UsageService
	households    *HouseholdService
	profiles      *ProfileService
	children      *ChildService
	toys          *ToyService
	rotations     *RotationService
	feedback      *FeedbackService
	ai            *AIService
	subscriptions *SubscriptionService
	reminders     *ReminderService
	deletions     *DeletionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:        testutil.NewDB(t),
		cfg:       testConfig(),
		mailer:    &recordingMailer{},
		pusher:    &recordingPusher{},
		completer: &fakeCompleter{configured: true},
		deleter:   &recordingDeleter{},
	}
	f.usage = NewUsageService(f.db, f.cfg)
	f.households = NewHouseholdService(f.db, f.cfg, f.mailer, f.pusher)
	f.profiles = NewProfileService(f.db, f.cfg, f.usage, f.mailer)
	f.children = NewChildService(f.db, f.cfg, f.households)
	f.toys = NewToyService(f.db, f.cfg, f.households)
	f.rotations = NewRotationService(f.db, f.households)
	f.feedback = NewFeedbackService(f.db, f.households)
	f.ai = NewAIService(f.db, f.usage, f.completer)
	f.subscriptions = NewSubscriptionService(f.db)
	f.reminders = NewReminderService(f.db, f.pusher)
	f.deletions = NewDeletionService(f.db, f.deleter)
	return f
}

func identity(uid string) *tenant.Identity {
	return &tenant.Identity{UID: uid, Email: uid + "@example.com", Name: "Parent " + uid, EmailVerified: true}
}

// setTier creates the profile if needed and switches its subscription tier.
func (f *fixture) setTier(t *testing.T, id *tenant.Identity, tier string) {
	t.Helper()
	_, err := f.households.Resolve(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.User{}).Where("uid = ?", id.UID).
		Update("subscription_tier", tier).Error)
}

func (f *fixture) addChild(t *testing.T, id *tenant.Identity, name string) *models.Child {
	t.Helper()
	child, err := f.children.Add(context.Background(), id, dto.AddChildRequest{Name: name, DateOfBirth: "2023-05-01"})
	require.NoError(t, err)
	return child
}

func (f *fixture) addToy(t *testing.T, id *tenant.Identity, name string) *models.Toy {
	t.Helper()
	toy, err := f.toys.Add(context.Background(), id, dto.AddToyRequest{Name: name, Category: "Building & Construction"})
	require.NoError(t, err)
	return toy
}

func (f *fixture) startRotation(t *testing.T, id *tenant.Identity, child *models.Child, toys ...*models.Toy) *models.Rotation {
	t.Helper()
	ids := make([]string, len(toys))
	for i, toy := range toys {
		ids[i] = toy.ID.String()
	}
	rotation, err := f.rotations.Create(context.Background(), id, dto.CreateRotationRequest{ChildID: child.ID.String(), ToyIDs: ids})
	require.NoError(t, err)
	return rotation
}

func (f *fixture) count(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	q := f.db.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

// joinHousehold makes caregiver an accepted member of owner's household.
func (f *fixture) joinHousehold(t *testing.T, owner, caregiver *tenant.Identity) {
	t.Helper()
	ctx := context.Background()
	inv, err := f.households.InviteCaregiver(ctx, owner, caregiver.Email)
	require.NoError(t, err)
	_, err = f.households.AcceptInvitation(ctx, caregiver, inv.ID.String())
	require.NoError(t, err)
}

func ptr[T any](v T) *T { return &v }
