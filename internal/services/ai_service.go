package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/ai"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	recentFeedbackLimit = 20
	minDisplayCapacity  = 4
	maxDisplayCapacity  = 20

	fallbackInsight   = "Here is a fresh mix of toys for this rotation. Watch which ones spark the most play and log it as feedback."
	fallbackReasoning = "Selected at random because AI suggestions are unavailable right now."
	spaceApology      = "Sorry, we couldn't analyze your play space right now. Please try again later."
	spaceFreeInsights = "Upgrade to get an AI analysis of your play space photo. Until then, keep a small selection of toys at your child's eye level and store the rest out of sight."
)

// Completer is the subset of *ai.Client the AI features use.
type Completer interface {
	Complete(ctx context.Context, req ai.Request) (string, error)
	Configured(vision bool) bool
}

type AIService struct {
	db     *gorm.DB
	usage  *UsageService
	client Completer
	now    func() time.Time
	perm   func(n int) []int
}

func NewAIService(db *gorm.DB, usage *UsageService, client Completer) *AIService {
	return &AIService{
		db:     db,
		usage:  usage,
		client: client,
		now:    time.Now,
		perm:   rand.Perm,
	}
}

// access reads the caller's household and the tier that household runs on
// without writing anything. AI features follow the owner's plan; a caller
// with no profile is their own free household.
func (s *AIService) access(ctx context.Context, uid string) (string, string, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("uid", "household_id").First(&user, "uid = ?", uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uid, models.TierFree, nil
	}
	if err != nil {
		return "", "", fmt.Errorf("load profile: %w", err)
	}
	householdID := user.HouseholdID
	if householdID == "" {
		householdID = uid
	}
	return householdID, ownerTier(s.db.WithContext(ctx), householdID, s.now()), nil
}

func (s *AIService) configured(vision bool) bool {
	return s.client != nil && s.client.Configured(vision)
}

func (s *AIService) reserve(ctx context.Context, uid, feature, tier string) error {
	return s.usage.Reserve(ctx, uid, feature, s.usage.LimitFor(feature, tier), s.now())
}

func record[T any](feature string, uid string, out ai.Outcome[T]) {
	metrics.AIOutcomes.WithLabelValues(feature, out.Label()).Inc()
	if out.Fallback {
		slog.Warn("AI result replaced by fallback", "feature", feature, "user_id", uid, "reason", out.Reason)
	}
}

// GetRotationSuggestion asks the model to pick the child's next rotation
// from the household's toys.
func (s *AIService) GetRotationSuggestion(ctx context.Context, id *tenant.Identity, req dto.RotationSuggestionRequest) (*dto.RotationSuggestionResponse, error) {
	householdID, tier, err := s.access(ctx, id.UID)
	if err != nil {
		return nil, err
	}
	if tier == models.TierFree {
		return nil, callable.PermissionDenied("AI rotation suggestions require a premium subscription")
	}
	if !s.configured(false) {
		return nil, callable.Internal("AI service is not configured")
	}

	db := s.db.WithContext(ctx)
	child, err := findChild(db, householdID, req.ChildID)
	if err != nil {
		return nil, err
	}
	candidates, err := loadCandidates(db, householdID, req.ToyIDs)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, callable.FailedPrecondition("No toys available for rotation. Add some toys first.")
	}

	if err := s.reserve(ctx, id.UID, models.FeatureRotationSuggestion, tier); err != nil {
		return nil, err
	}

	var feedback []models.Feedback
	if err := db.Scopes(tenant.ForHousehold(householdID)).
		Where("child_id = ?", child.ID).
		Order("created_at DESC").Limit(recentFeedbackLimit).
		Find(&feedback).Error; err != nil {
		slog.Warn("failed to load recent feedback", "child_id", child.ID, "error", err)
	}

	displayCount := child.RotationSettings.DisplayCount
	if displayCount <= 0 {
		displayCount = models.DefaultDisplayCount
	}

	content, callErr := s.client.Complete(ctx, ai.Request{
		System:      ai.SuggestionSystemPrompt,
		Prompt:      suggestionPrompt(child, candidates, feedback, displayCount, s.now()),
		Temperature: 0.7,
		MaxTokens:   800,
	})
	out := suggestionOutcome(content, callErr, candidates, displayCount, s.perm)
	record(models.FeatureRotationSuggestion, id.UID, out)

	resp := out.Value
	resp.Fallback = out.Fallback
	return &resp, nil
}

func loadCandidates(db *gorm.DB, householdID string, rawIDs []string) ([]models.Toy, error) {
	q := db.Scopes(tenant.ForHousehold(householdID)).Where("status <> ?", models.ToyStatusRetired)
	if len(rawIDs) > 0 {
		ids, err := parseToyIDs(rawIDs)
		if err != nil {
			return nil, err
		}
		q = q.Where("id IN ?", ids)
	}
	var toys []models.Toy
	if err := q.Order("created_at ASC").Find(&toys).Error; err != nil {
		return nil, fmt.Errorf("load candidate toys: %w", err)
	}
	return toys, nil
}

func suggestionPrompt(child *models.Child, toys []models.Toy, feedback []models.Feedback, displayCount int, now time.Time) string {
	var b strings.Builder

	age := "unknown"
	if months := child.AgeInMonths(now); months >= 0 {
		age = fmt.Sprintf("%d months", months)
	}
	fmt.Fprintf(&b, "Child: %s, age %s.\n", child.Name, age)
	if len(child.Interests) > 0 {
		fmt.Fprintf(&b, "Interests: %s.\n", strings.Join(child.Interests, ", "))
	}
	fmt.Fprintf(&b, "Select up to %d toys to put out for this rotation.\n\nCandidate toys:\n", displayCount)
	for _, t := range toys {
		fmt.Fprintf(&b, "- id=%s name=%q category=%q skills=[%s] status=%s\n",
			t.ID, t.Name, t.Category, strings.Join(t.SkillTags, ", "), t.Status)
	}

	if len(feedback) > 0 {
		b.WriteString("\nRecent engagement feedback (newest first):\n")
		for _, f := range feedback {
			fmt.Fprintf(&b, "- toy=%s engagement=%s", f.ToyID, f.Engagement)
			if f.Notes != "" {
				fmt.Fprintf(&b, " notes=%q", f.Notes)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

type suggestionReply struct {
	ToyIDs         []string `json:"toyIds"`
	InsightSummary string   `json:"insightSummary"`
	Reasoning      string   `json:"reasoning"`
}

// suggestionOutcome keeps only candidate ids, without duplicates, capped at
// displayCount. Anything unusable becomes a random pick of the candidates.
func suggestionOutcome(content string, callErr error, candidates []models.Toy, displayCount int, perm func(int) []int) ai.Outcome[dto.RotationSuggestionResponse] {
	fallback := func(reason string) ai.Outcome[dto.RotationSuggestionResponse] {
		return ai.Fallback(dto.RotationSuggestionResponse{
			ToyIDs:         randomPick(candidates, displayCount, perm),
			InsightSummary: fallbackInsight,
			Reasoning:      fallbackReasoning,
		}, reason)
	}
	if callErr != nil {
		return fallback(callErr.Error())
	}
	reply, err := ai.Decode[suggestionReply](content)
	if err != nil {
		return fallback(err.Error())
	}

	allowed := make(map[string]bool, len(candidates))
	for _, t := range candidates {
		allowed[t.ID.String()] = true
	}
	ids := make([]string, 0, displayCount)
	seen := make(map[string]bool, len(reply.ToyIDs))
	for _, raw := range reply.ToyIDs {
		parsed, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		key := parsed.String()
		if !allowed[key] || seen[key] {
			continue
		}
		seen[key] = true
		ids = append(ids, key)
		if len(ids) == displayCount {
			break
		}
	}
	if len(ids) == 0 {
		return fallback("no valid toy ids in AI response")
	}

	return ai.Parsed(dto.RotationSuggestionResponse{
		ToyIDs:         ids,
		InsightSummary: defaultString(strings.TrimSpace(reply.InsightSummary), fallbackInsight),
		Reasoning:      strings.TrimSpace(reply.Reasoning),
	})
}

func randomPick(candidates []models.Toy, n int, perm func(int) []int) []string {
	if n > len(candidates) {
		n = len(candidates)
	}
	order := perm(len(candidates))
	ids := make([]string, 0, n)
	for _, i := range order[:n] {
		ids = append(ids, candidates[i].ID.String())
	}
	return ids
}

// RecognizeToyFromPhoto identifies a toy in a photo so the client can
// prefill the add-toy form.
func (s *AIService) RecognizeToyFromPhoto(ctx context.Context, id *tenant.Identity, req dto.ImageRequest) (*dto.ToyRecognitionResponse, error) {
	image, err := cleanImage(req.ImageBase64)
	if err != nil {
		return nil, err
	}
	_, tier, err := s.access(ctx, id.UID)
	if err != nil {
		return nil, err
	}
	if tier == models.TierFree {
		return nil, callable.PermissionDenied("Toy recognition requires a premium subscription")
	}
	if !s.configured(true) {
		return nil, callable.Internal("AI service is not configured")
	}
	if err := s.reserve(ctx, id.UID, models.FeatureToyRecognition, tier); err != nil {
		return nil, err
	}

	content, callErr := s.client.Complete(ctx, ai.Request{
		System: fmt.Sprintf(ai.RecognitionSystemPrompt,
			strings.Join(models.ToyCategories, ", "), strings.Join(models.SkillTags, ", ")),
		Prompt:      "Identify the toy in this photo.",
		ImageBase64: image,
		Temperature: 0.2,
		MaxTokens:   500,
	})
	out := recognitionOutcome(content, callErr)
	record(models.FeatureToyRecognition, id.UID, out)

	resp := out.Value
	resp.Fallback = out.Fallback
	return &resp, nil
}

type recognitionReply struct {
	Name       string           `json:"name"`
	Category   string           `json:"category"`
	SkillTags  []string         `json:"skillTags"`
	AgeRange   *models.AgeRange `json:"ageRange"`
	Confidence float64          `json:"confidence"`
}

func recognitionOutcome(content string, callErr error) ai.Outcome[dto.ToyRecognitionResponse] {
	unknown := dto.ToyRecognitionResponse{
		Name:      "Unknown Toy",
		Category:  models.CategoryOther,
		SkillTags: []string{},
	}
	if callErr != nil {
		return ai.Fallback(unknown, callErr.Error())
	}
	reply, err := ai.Decode[recognitionReply](content)
	if err != nil {
		return ai.Fallback(unknown, err.Error())
	}
	name := strings.TrimSpace(reply.Name)
	if name == "" {
		return ai.Fallback(unknown, "AI response has no toy name")
	}

	tags := []string{}
	seen := map[string]bool{}
	for _, raw := range reply.SkillTags {
		if tag := models.NormalizeSkillTag(raw); tag != "" && !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}

	var ageRange *models.AgeRange
	if r := reply.AgeRange; r != nil && r.MinMonths >= 0 && r.MaxMonths >= r.MinMonths {
		ageRange = r
	}

	return ai.Parsed(dto.ToyRecognitionResponse{
		Name:       name,
		Category:   defaultString(models.NormalizeCategory(reply.Category), models.CategoryOther),
		SkillTags:  tags,
		AgeRange:   ageRange,
		Confidence: clampUnit(reply.Confidence),
	})
}

// AnalyzeSpace reviews a photo of the play area. Free accounts get
// rule-based observations without a model call.
func (s *AIService) AnalyzeSpace(ctx context.Context, id *tenant.Identity, req dto.ImageRequest) (*dto.SpaceAnalysisResponse, error) {
	image, err := cleanImage(req.ImageBase64)
	if err != nil {
		return nil, err
	}
	householdID, tier, err := s.access(ctx, id.UID)
	if err != nil {
		return nil, err
	}

	observations, err := s.ruleBasedObservations(ctx, householdID)
	if err != nil {
		return nil, err
	}

	if tier == models.TierFree {
		return &dto.SpaceAnalysisResponse{
			Observations: observations,
			Insights:     spaceFreeInsights,
		}, nil
	}
	if !s.configured(true) {
		return nil, callable.Internal("AI service is not configured")
	}
	if err := s.reserve(ctx, id.UID, models.FeatureSpaceAnalysis, tier); err != nil {
		return nil, err
	}

	content, callErr := s.client.Complete(ctx, ai.Request{
		System:      ai.SpaceSystemPrompt,
		Prompt:      "Analyze this play space.\n" + strings.Join(observations, "\n"),
		ImageBase64: image,
		Temperature: 0.5,
		MaxTokens:   800,
	})
	out := spaceOutcome(content, callErr, observations)
	record(models.FeatureSpaceAnalysis, id.UID, out)

	resp := out.Value
	resp.Fallback = out.Fallback
	resp.AIPowered = !out.Fallback
	return &resp, nil
}

func (s *AIService) ruleBasedObservations(ctx context.Context, householdID string) ([]string, error) {
	var counts struct {
		Total  int64
		Active int64
	}
	err := s.db.WithContext(ctx).Model(&models.Toy{}).
		Scopes(tenant.ForHousehold(householdID)).
		Where("status <> ?", models.ToyStatusRetired).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS active", models.ToyStatusActive).
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count toys: %w", err)
	}
	return spaceObservations(int(counts.Total), int(counts.Active)), nil
}

func spaceObservations(total, active int) []string {
	obs := []string{fmt.Sprintf("You have %d toys in your collection, %d currently on display.", total, active)}
	switch {
	case total == 0:
		obs = append(obs, "Add your toys to start planning rotations for this space.")
	case active > models.DefaultDisplayCount:
		obs = append(obs, fmt.Sprintf("More than %d toys out at once can overwhelm young children. Try storing a few.", models.DefaultDisplayCount))
	case total > 2*models.DefaultDisplayCount:
		obs = append(obs, "Most of your collection can rest in storage while a small set stays out.")
	}
	obs = append(obs,
		"Low, open shelves let children see and reach every toy on display.",
		"Group toys by type so each rotation has a clear home.",
	)
	return obs
}

type spaceReply struct {
	Observations              []string `json:"observations"`
	Insights                  string   `json:"insights"`
	DisplayCapacitySuggestion int      `json:"displayCapacitySuggestion"`
}

func spaceOutcome(content string, callErr error, rules []string) ai.Outcome[dto.SpaceAnalysisResponse] {
	fallback := dto.SpaceAnalysisResponse{Observations: rules, Insights: spaceApology}
	if callErr != nil {
		return ai.Fallback(fallback, callErr.Error())
	}
	reply, err := ai.Decode[spaceReply](content)
	if err != nil {
		return ai.Fallback(fallback, err.Error())
	}
	insights := strings.TrimSpace(reply.Insights)
	if insights == "" {
		return ai.Fallback(fallback, "AI response has no insights")
	}

	observations := cleanStrings(reply.Observations)
	if len(observations) == 0 {
		observations = rules
	}
	var capacity *int
	if c := reply.DisplayCapacitySuggestion; c > 0 {
		c = min(max(c, minDisplayCapacity), maxDisplayCapacity)
		capacity = &c
	}
	return ai.Parsed(dto.SpaceAnalysisResponse{
		Observations:              observations,
		Insights:                  insights,
		DisplayCapacitySuggestion: capacity,
	})
}

// cleanImage strips a data URL prefix and checks the payload is base64.
func cleanImage(raw string) (string, error) {
	image := strings.TrimSpace(raw)
	if i := strings.Index(image, ";base64,"); strings.HasPrefix(image, "data:") && i >= 0 {
		image = image[i+len(";base64,"):]
	}
	if image == "" {
		return "", callable.InvalidArgument("imageBase64 is required")
	}
	if len(image) > dto.MaxImageBase64Len {
		return "", callable.InvalidArgument("Image is too large. Maximum size is 4 MB.")
	}
	if _, err := base64.StdEncoding.DecodeString(image); err != nil {
		return "", callable.InvalidArgument("imageBase64 is not valid base64")
	}
	return image, nil
}

func clampUnit(v float64) float64 {
	return min(max(v, 0), 1)
}
