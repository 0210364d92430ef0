package routes

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/ai"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/notify"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/testutil"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret       = "test-jwt-secret"
	testWebhookToken = "Bearer rc-secret"
	testAdminToken   = "admin-secret"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := &config.Config{
		AuthMode:          "jwt",
		JWTSecret:         testSecret,
		AdminToken:        testAdminToken,
		SuggestionsPerDay: 1,
		FreeMaxChildren:   2,
		FreeMaxToys:       50,
		DeletionGraceDays: 30,
		InvitationTTL:     7 * 24 * time.Hour,
	}
	pusher := notify.NoopPusher{}

	usage := services.NewUsageService(db, cfg)
	households := services.NewHouseholdService(db, cfg, nil, pusher)
	rotations := services.NewRotationService(db, households)
	feedback := services.NewFeedbackService(db, households)
	configHandler := handlers.NewRemoteConfigHandler(db)
	require.NoError(t, configHandler.SeedDefaults())

	app := fiber.New()
	Setup(app, cfg, middleware.Authenticate(cfg, nil), nil, Handlers{
		Health:    handlers.NewHealthHandler(cfg),
		Webhook:   handlers.NewWebhookHandler(services.NewSubscriptionService(db), testWebhookToken),
		Legal:     handlers.NewLegalHandler("ToyRotator", "support@toyrotator.app"),
		Config:    configHandler,
		Profile:   handlers.NewProfileHandler(services.NewProfileService(db, cfg, usage, nil)),
		Household: handlers.NewHouseholdHandler(households),
		Child:     handlers.NewChildHandler(services.NewChildService(db, cfg, households)),
		Toy:       handlers.NewToyHandler(services.NewToyService(db, cfg, households)),
		Rotation:  handlers.NewRotationHandler(rotations, feedback),
		AI:        handlers.NewAIHandler(services.NewAIService(db, usage, ai.NewClient(cfg))),
	})
	return app
}

func token(t *testing.T, uid string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   uid,
		"email": uid + "@example.com",
		"name":  "Parent " + uid,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// call posts body to a callable function and decodes the JSON reply.
func call(t *testing.T, app *fiber.App, fn, bearer, body string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/fn/"+fn, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return do(t, app, req)
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func TestCallable_RequiresAuthentication(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, "getUserInfo", "", "{}")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, true, body["error"])
	assert.Equal(t, string(callable.CodeUnauthenticated), body["code"])

	status, _ = call(t, app, "getUserInfo", "not-a-jwt", "{}")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestGetUserInfo_ReturnsBareProfile(t *testing.T) {
	app := newTestApp(t)

	status, body := call(t, app, "getUserInfo", token(t, "u1"), "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "u1", body["uid"])
	assert.Equal(t, "inactive", body["status"])
	assert.NotContains(t, body, "success")
}

func TestCallable_EnvelopeAndValidation(t *testing.T) {
	app := newTestApp(t)
	bearer := token(t, "u1")

	status, body := call(t, app, "addChildProfile", bearer, `{"dateOfBirth":"2023-05-01"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, string(callable.CodeInvalidArgument), body["code"])
	assert.Equal(t, "name is required", body["message"])

	status, body = call(t, app, "addChildProfile", bearer, `{"name":"Mia","dateOfBirth":"05/01/2023"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "dateOfBirth must match 2006-01-02", body["message"])

	status, body = call(t, app, "addChildProfile", bearer, `{"name":"Mia","dateOfBirth":"2023-05-01"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Child profile created", body["message"])
	child, ok := body["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Mia", child["name"])
	assert.NotEmpty(t, child["id"])

	status, body = call(t, app, "getChildProfiles", bearer, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = call(t, app, "getToys", bearer, `{"status":`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid request body", body["message"])
}

func TestUpdateToy_EmptyChildIDUnlinks(t *testing.T) {
	app := newTestApp(t)
	bearer := token(t, "u1")

	_, body := call(t, app, "addChildProfile", bearer, `{"name":"Mia","dateOfBirth":"2023-05-01"}`)
	childID := body["data"].(map[string]interface{})["id"].(string)

	status, body := call(t, app, "addToy", bearer, `{"name":"Blocks","category":"Building & Construction","childId":"`+childID+`"}`)
	require.Equal(t, fiber.StatusOK, status)
	toy := body["data"].(map[string]interface{})
	require.Equal(t, childID, toy["childId"])
	toyID := toy["id"].(string)

	status, body = call(t, app, "updateToy", bearer, `{"toyId":"`+toyID+`","childId":"not-an-id"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "childId is invalid", body["message"])

	status, body = call(t, app, "updateToy", bearer, `{"toyId":"`+toyID+`","childId":""}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.NotContains(t, body["data"], "childId")

	status, body = call(t, app, "getToys", bearer, `{"childId":"`+childID+`"}`)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, body["data"])
}

func TestCallable_MapsServiceErrors(t *testing.T) {
	app := newTestApp(t)
	bearer := token(t, "u1")

	status, body := call(t, app, "deleteChildProfile", bearer, `{"childId":"7a0c1e5e-9d1b-4c36-8f43-3f1f3c2f8a10"}`)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, string(callable.CodeNotFound), body["code"])

	status, _ = call(t, app, "cancelAccountDeletion", bearer, "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = call(t, app, "recognizeToyFromPhoto", bearer, `{"imageBase64":"aGVsbG8="}`)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, string(callable.CodePermissionDenied), body["code"])

	status, body = call(t, app, "analyzeSpace", bearer, `{"imageBase64":"aGVsbG8="}`)
	require.Equal(t, fiber.StatusOK, status)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, false, data["aiPowered"])
}

func TestRevenueCatWebhook(t *testing.T) {
	app := newTestApp(t)
	bearer := token(t, "u1")
	_, _ = call(t, app, "updateUserProfile", bearer, `{"displayName":"Sam"}`)

	post := func(auth, body string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/revenuecat", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		status, _ := do(t, app, req)
		return status
	}
	event := `{"api_version":"1.0","event":{"id":"evt-1","type":"INITIAL_PURCHASE","app_user_id":"u1","period_type":"NORMAL"}}`

	assert.Equal(t, fiber.StatusUnauthorized, post("", event))
	assert.Equal(t, fiber.StatusUnauthorized, post("Bearer wrong", event))
	assert.Equal(t, fiber.StatusBadRequest, post(testWebhookToken, `{"event":{"type":"RENEWAL"}}`))
	assert.Equal(t, fiber.StatusOK, post(testWebhookToken, event))

	status, body := call(t, app, "getUserInfo", bearer, "")
	require.Equal(t, fiber.StatusOK, status)
	sub := body["subscriptionStatus"].(map[string]interface{})
	assert.Equal(t, "paid", sub["tier"])
}

func TestVersionCheck(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/version-check?version=0.9.5", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["updateRequired"])
	assert.Equal(t, "1.0.0", body["minVersion"])
	assert.NotEmpty(t, body["message"])

	status, body = do(t, app, httptest.NewRequest(http.MethodGet, "/api/version-check?version=1.2.0", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["updateRequired"])

	status, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/version-check", nil))
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestAdminConfig(t *testing.T) {
	app := newTestApp(t)

	put := func(header, value string) int {
		req := httptest.NewRequest(http.MethodPut, "/api/admin/config/min_app_version",
			strings.NewReader(`{"value":"`+value+`","type":"string"}`))
		req.Header.Set("Content-Type", "application/json")
		if header != "" {
			req.Header.Set("X-Admin-Token", header)
		}
		status, _ := do(t, app, req)
		return status
	}

	assert.Equal(t, fiber.StatusUnauthorized, put("", "2.0.0"))
	assert.Equal(t, fiber.StatusUnauthorized, put("wrong", "2.0.0"))
	assert.Equal(t, fiber.StatusOK, put(testAdminToken, "2.0.0"))

	req := httptest.NewRequest(http.MethodPut, "/api/admin/config/min_app_version", strings.NewReader(`{"value":"3.0.0"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token(t, "not-admin"))
	status, _ := do(t, app, req)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "2.0.0", body["min_app_version"])
	assert.Equal(t, false, body["force_update"])
}

func TestHealthAndLegal(t *testing.T) {
	app := newTestApp(t)

	status, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "jwt", body["auth_mode"])
	assert.Equal(t, false, body["ai_configured"])

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/legal/privacy", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}
