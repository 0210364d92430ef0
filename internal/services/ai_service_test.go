package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testImage = base64.StdEncoding.EncodeToString([]byte("not really a jpeg"))

func identityPerm(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestAIFeatures_FreeTierIsDeniedWithoutWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := identity("u1")

	_, err := f.ai.GetRotationSuggestion(ctx, id, dto.RotationSuggestionRequest{ChildID: uuid.NewString()})
	assert.True(t, callable.IsCode(err, callable.CodePermissionDenied))

	_, err = f.ai.RecognizeToyFromPhoto(ctx, id, dto.ImageRequest{ImageBase64: testImage})
	assert.True(t, callable.IsCode(err, callable.CodePermissionDenied))

	assert.Zero(t, f.completer.calls)
	assert.Zero(t, f.count(t, &models.User{}, ""))
	assert.Zero(t, f.count(t, &models.AIUsage{}, ""))
}

func TestAIFeatures_ExpiredTrialCountsAsFree(t *testing.T) {
	f := newFixture(t)
	id := identity("u1")
	f.setTier(t, id, models.TierTrial)
	require.NoError(t, f.db.Model(&models.User{}).Where("uid = ?", "u1").
		Update("trial_end_date", time.Now().AddDate(0, 0, -2).UTC().Format(models.DateLayout)).Error)

	_, err := f.ai.RecognizeToyFromPhoto(context.Background(), id, dto.ImageRequest{ImageBase64: testImage})
	assert.True(t, callable.IsCode(err, callable.CodePermissionDenied))
}

func TestAIFeatures_NotConfigured(t *testing.T) {
	f := newFixture(t)
	f.completer.configured = false
	ctx := context.Background()
	id := identity("u1")
	f.setTier(t, id, models.TierPaid)

	_, err := f.ai.GetRotationSuggestion(ctx, id, dto.RotationSuggestionRequest{ChildID: uuid.NewString()})
	assert.True(t, callable.IsCode(err, callable.CodeInternal))

	_, err = f.ai.AnalyzeSpace(ctx, id, dto.ImageRequest{ImageBase64: testImage})
	assert.True(t, callable.IsCode(err, callable.CodeInternal))

	assert.Zero(t, f.count(t, &models.AIUsage{}, ""))
}

func TestAIFeatures_CaregiverUsesOwnersPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, caregiver := identity("owner"), identity("care")
	f.setTier(t, owner, models.TierPaid)
	child := f.addChild(t, owner, "Mia")
	toy := f.addToy(t, owner, "A")
	f.joinHousehold(t, owner, caregiver)

	f.completer.reply = fmt.Sprintf(`{"toyIds":[%q],"insightSummary":"ok"}`, toy.ID)
	resp, err := f.ai.GetRotationSuggestion(ctx, caregiver, dto.RotationSuggestionRequest{ChildID: child.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, []string{toy.ID.String()}, resp.ToyIDs)

	space, err := f.ai.AnalyzeSpace(ctx, caregiver, dto.ImageRequest{ImageBase64: testImage})
	require.NoError(t, err)
	assert.Contains(t, space.Observations[0], "1 toys")

	// Allowances are counted per person.
	used, err := f.usage.Used(ctx, "care", models.FeatureRotationSuggestion, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, used)
	used, err = f.usage.Used(ctx, "owner", models.FeatureRotationSuggestion, time.Now())
	require.NoError(t, err)
	assert.Zero(t, used)

	f.setTier(t, owner, models.TierFree)
	f.setTier(t, caregiver, models.TierPaid)
	_, err = f.ai.RecognizeToyFromPhoto(ctx, caregiver, dto.ImageRequest{ImageBase64: testImage})
	assert.True(t, callable.IsCode(err, callable.CodePermissionDenied))
}

func TestGetRotationSuggestion_KeepsOnlyCandidateIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := identity("u1")
	f.setTier(t, id, models.TierPaid)

	child, err := f.children.Add(ctx, id, dto.AddChildRequest{
		Name: "Mia", DateOfBirth: "2023-05-01", Interests: []string{"trains"},
		RotationSettings: &dto.RotationSettingsInput{DisplayCount: ptr(2)},
	})
	require.NoError(t, err)
	a, b, c := f.addToy(t, id, "A"), f.addToy(t, id, "B"), f.addToy(t, id, "C")
	foreign := f.addToy(t, identity("other"), "Foreign")

	f.completer.reply = fmt.Sprintf("```json\n{\"toyIds\":[%q,%q,%q,%q,%q,%q],\"insightSummary\":\"Mix it up\",\"reasoning\":\"variety\"}\n```",
		b.ID, b.ID, "bogus", foreign.ID, strings.ToUpper(a.ID.String()), c.ID)

	resp, err := f.ai.GetRotationSuggestion(ctx, id, dto.RotationSuggestionRequest{ChildID: child.ID.String()})
	require.NoError(t, err)

	assert.False(t, resp.Fallback)
	assert.Equal(t, []string{b.ID.String(), a.ID.String()}, resp.ToyIDs)
	assert.Equal(t, "Mix it up", resp.InsightSummary)
	assert.Equal(t, "variety", resp.Reasoning)

	assert.Contains(t, f.completer.last.Prompt, "Mia")
	assert.Contains(t, f.completer.last.Prompt, "trains")
	assert.Contains(t, f.completer.last.Prompt, c.ID.String())
	assert.NotContains(t, f.completer.last.Prompt, foreign.ID.String())

	used, err := f.usage.Used(ctx, "u1", models.FeatureRotationSuggestion, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, used)
}

func TestGetRotationSuggestion_FallsBackToRandomPick(t *testing.T) {
	f := newFixture(t)
	f.ai.perm = identityPerm
	f.completer.err = errors.New("provider down")
	ctx := context.Background()
	id := identity("u1")
	f.setTier(t, id, models.TierTrial)
	child := f.addChild(t, id, "Mia")
	a, b := f.addToy(t, id, "A"), f.addToy(t, id, "B")

	resp, err := f.ai.GetRotationSuggestion(ctx, id, dto.RotationSuggestionRequest{ChildID: child.ID.String()})
	require.NoError(t, err)

	assert.True(t, resp.Fallback)
	assert.Equal(t, []string{a.ID.String(), b.ID.String()}, resp.ToyIDs)
	assert.Equal(t, fallbackInsight, resp.InsightSummary)

	// The fallback still used today's suggestion.
	_, err = f.ai.GetRotationSuggestion(ctx, id, dto.RotationSuggestionRequest{ChildID: child.ID.String()})
	assert.True(t, callable.IsCode(err, callable.CodeResourceExhausted))
	assert.Equal(t, 1, f.completer.calls)
}

func TestGetRotationSuggestion_RestrictsToRequestedToys(t *testing.T) {
	f := newFixture(t)
	f.ai.perm = identityPerm
	f.completer.reply = "no json here"
	ctx := context.Background()
	id := identity("u1")
	f.setTier(t, id, models.TierPaid)
	child := f.addChild(t, id, "Mia")
	f.addToy(t, id, "A")
	b := f.addToy(t, id, "B")

	resp, err := f.ai.GetRotationSuggestion(ctx, id, dto.RotationSuggestionRequest{
		ChildID: child.ID.String(),
		ToyIDs:  []string{b.ID.String()},
	})
	require.NoError(t, err)
	assert.True(t, resp.Fallback)
	assert.Equal(t, []string{b.ID.String()}, resp.ToyIDs)
}

func TestGetRotationSuggestion_NoToys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := identity("u1")
	f.setTier(t, id, models.TierPaid)
	child := f.addChild(t, id, "Mia")
	retired := f.addToy(t, id, "Old")
	require.NoError(t, f.toys.Delete(ctx, id, retired.ID.String()))

	_, err := f.ai.GetRotationSuggestion(ctx, id, dto.RotationSuggestionRequest{ChildID: child.ID.String()})
	assert.True(t, callable.IsCode(err, callable.CodeFailedPrecondition))
	assert.Zero(t, f.count(t, &models.AIUsage{}, ""))
}

func TestRecognizeToyFromPhoto_NormalizesReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := identity("u1")
	f.setTier(t, id, models.TierTrial)
	f.completer.reply = `Sure! {"name":" Stacking Rings ","category":"puzzles & problem solving",
		"skillTags":["fine motor","Juggling","Fine Motor"],"ageRange":{"minMonths":24,"maxMonths":12},"confidence":1.7}`

	resp, err := f.ai.RecognizeToyFromPhoto(ctx, id, dto.ImageRequest{ImageBase64: "data:image/jpeg;base64," + testImage})
	require.NoError(t, err)

	assert.False(t, resp.Fallback)
	assert.Equal(t, "Stacking Rings", resp.Name)
	assert.Equal(t, "Puzzles & Problem Solving", resp.Category)
	assert.Equal(t, []string{"Fine Motor"}, resp.SkillTags)
	assert.Nil(t, resp.AgeRange)
	assert.Equal(t, 1.0, resp.Confidence)
	assert.Equal(t, testImage, f.completer.last.ImageBase64)
	assert.Contains(t, f.completer.last.System, "Sensory & Comfort")
}

func TestRecognizeToyFromPhoto_Fallback(t *testing.T) {
	f := newFixture(t)
	id := identity("u1")
	f.setTier(t, id, models.TierPaid)
	f.completer.reply = `{"name":"","category":"Other"}`

	resp, err := f.ai.RecognizeToyFromPhoto(context.Background(), id, dto.ImageRequest{ImageBase64: testImage})
	require.NoError(t, err)

	assert.True(t, resp.Fallback)
	assert.Equal(t, "Unknown Toy", resp.Name)
	assert.Equal(t, models.CategoryOther, resp.Category)
	assert.Empty(t, resp.SkillTags)
	assert.Zero(t, resp.Confidence)
}

func TestAnalyzeSpace_FreeTierGetsRuleBasedResult(t *testing.T) {
	f := newFixture(t)

	resp, err := f.ai.AnalyzeSpace(context.Background(), identity("u1"), dto.ImageRequest{ImageBase64: testImage})
	require.NoError(t, err)

	assert.False(t, resp.AIPowered)
	assert.False(t, resp.Fallback)
	assert.Equal(t, spaceFreeInsights, resp.Insights)
	require.NotEmpty(t, resp.Observations)
	assert.Contains(t, resp.Observations[0], "0 toys")
	assert.Zero(t, f.completer.calls)
	assert.Zero(t, f.count(t, &models.User{}, ""))
	assert.Zero(t, f.count(t, &models.AIUsage{}, ""))
}

func TestAnalyzeSpace_PaidTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := identity("u1")
	f.setTier(t, id, models.TierPaid)
	f.addToy(t, id, "A")
	f.completer.reply = `{"observations":["Shelves are crowded"," "],"insights":"Clear the bottom shelf.","displayCapacitySuggestion":50}`

	resp, err := f.ai.AnalyzeSpace(ctx, id, dto.ImageRequest{ImageBase64: testImage})
	require.NoError(t, err)

	assert.True(t, resp.AIPowered)
	assert.False(t, resp.Fallback)
	assert.Equal(t, []string{"Shelves are crowded"}, resp.Observations)
	assert.Equal(t, "Clear the bottom shelf.", resp.Insights)
	require.NotNil(t, resp.DisplayCapacitySuggestion)
	assert.Equal(t, maxDisplayCapacity, *resp.DisplayCapacitySuggestion)
	assert.Contains(t, f.completer.last.Prompt, "1 toys")
}

func TestAnalyzeSpace_FallbackKeepsRules(t *testing.T) {
	f := newFixture(t)
	id := identity("u1")
	f.setTier(t, id, models.TierTrial)
	f.completer.err = errors.New("timeout")

	resp, err := f.ai.AnalyzeSpace(context.Background(), id, dto.ImageRequest{ImageBase64: testImage})
	require.NoError(t, err)

	assert.True(t, resp.Fallback)
	assert.False(t, resp.AIPowered)
	assert.Equal(t, spaceApology, resp.Insights)
	assert.Equal(t, spaceObservations(0, 0), resp.Observations)
	assert.Nil(t, resp.DisplayCapacitySuggestion)
}

func TestSpaceObservations(t *testing.T) {
	assert.Contains(t, spaceObservations(0, 0)[1], "Add your toys")
	assert.Contains(t, spaceObservations(30, 12)[1], "overwhelm")
	assert.Contains(t, spaceObservations(30, 5)[1], "rest in storage")
	assert.Len(t, spaceObservations(5, 5), 3)
}

func TestCleanImage(t *testing.T) {
	got, err := cleanImage("  data:image/png;base64," + testImage + " ")
	require.NoError(t, err)
	assert.Equal(t, testImage, got)

	for name, raw := range map[string]string{
		"empty":       "",
		"prefix only": "data:image/png;base64,",
		"not base64":  "%%%not-base64%%%",
		"too large":   strings.Repeat("A", dto.MaxImageBase64Len+4),
	} {
		_, err := cleanImage(raw)
		assert.True(t, callable.IsCode(err, callable.CodeInvalidArgument), name)
	}
}
