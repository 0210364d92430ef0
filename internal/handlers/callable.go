package handlers

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/callable"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/toyrotator-backend/internal/tenant"
	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bind decodes the JSON body into a T and validates it. An empty body is
// treated as an empty object.
func bind[T any](c *fiber.Ctx) (T, error) {
	var req T
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return req, callable.InvalidArgument("Invalid request body")
		}
	}
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return req, callable.InvalidArgument(validationMessage(verrs[0]))
		}
		return req, callable.InvalidArgument("Invalid request")
	}
	return req, nil
}

func validationMessage(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "uuid":
		return field + " must be a valid id"
	case "oneof":
		return field + " must be one of: " + e.Param()
	case "datetime":
		return field + " must match " + e.Param()
	case "max":
		return field + " must be at most " + e.Param()
	case "min":
		return field + " must be at least " + e.Param()
	case "gtefield":
		return field + " must not be less than " + e.Param()
	default:
		return field + " is invalid"
	}
}

// Operation is one callable function. It returns the value written as the
// JSON response body.
type Operation func(c *fiber.Ctx, id *tenant.Identity) (interface{}, error)

// Callable adapts an Operation to Fiber: it resolves the caller, records
// latency and result code, and writes typed errors in the wire format.
func Callable(name string, op Operation) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		uid := tenant.GetUserID(c)

		var out interface{}
		id, err := tenant.GetIdentity(c)
		if err == nil {
			out, err = op(c, id)
		}

		code := "ok"
		status := fiber.StatusOK
		var body interface{} = out
		if err != nil {
			ce := callable.From(err)
			code = string(ce.Code)
			status = callable.StatusFor(ce.Code)
			body = callable.ErrorResponse{Error: true, Code: ce.Code, Message: ce.Message}
			if ce.Code == callable.CodeInternal {
				if hub := sentryfiber.GetHubFromContext(c); hub != nil {
					hub.CaptureException(err)
				} else {
					sentry.CaptureException(err)
				}
			}
		}

		elapsed := time.Since(start)
		metrics.CallableRequests.WithLabelValues(name, code).Inc()
		metrics.CallableDuration.WithLabelValues(name).Observe(elapsed.Seconds())

		requestID, _ := c.Locals("requestid").(string)
		attrs := []any{"function", name, "user_id", uid, "request_id", requestID, "code", code, "latency_ms", elapsed.Milliseconds()}
		switch {
		case status >= fiber.StatusInternalServerError:
			slog.Error("callable failed", append(attrs, "error", err)...)
		case err != nil:
			slog.Warn("callable rejected", append(attrs, "error", err.Error())...)
		default:
			slog.Info("callable", attrs...)
		}

		return c.Status(status).JSON(body)
	}
}
