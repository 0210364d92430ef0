package handlers

import (
	"github.com/gofiber/fiber/v2"
)

const legalStyle = `<meta name="viewport" content="width=device-width, initial-scale=1">
<style>body{font-family:-apple-system,BlinkMacSystemFont,sans-serif;max-width:800px;margin:0 auto;padding:20px;color:#333}h1{color:#1a1a1a}h2{color:#444;margin-top:30px}</style>`

type LegalHandler struct {
	appName      string
	contactEmail string
}

func NewLegalHandler(appName, contactEmail string) *LegalHandler {
	if contactEmail == "" {
		contactEmail = "support@toyrotator.app"
	}
	return &LegalHandler{appName: appName, contactEmail: contactEmail}
}

func (h *LegalHandler) PrivacyPolicy(c *fiber.Ctx) error {
	return c.Type("html").SendString(`<!DOCTYPE html>
<html><head><title>Privacy Policy - ` + h.appName + `</title>
` + legalStyle + `
</head><body>
<h1>Privacy Policy</h1>
<p>Last updated: October 2026</p>
<h2>Information We Collect</h2>
<p>We collect your email address, the names and birth dates of the children you add, your toy inventory, rotation history and engagement notes. Caregivers you invite see the same household data.</p>
<h2>Photos and AI Features</h2>
<p>Photos you submit for toy recognition or play space analysis are sent to our AI provider to produce a result and are not stored by ` + h.appName + `.</p>
<h2>How We Use Your Information</h2>
<p>Your data is used solely to operate ` + h.appName + `, send rotation reminders and improve our services. We do not sell your personal information to third parties.</p>
<h2>Account Deletion</h2>
<p>You can request account deletion from the app settings. Your account and household data are removed 30 days later unless you cancel the request.</p>
<h2>Contact</h2>
<p>For questions about this policy, contact us at ` + h.contactEmail + `</p>
</body></html>`)
}

func (h *LegalHandler) TermsOfService(c *fiber.Ctx) error {
	return c.Type("html").SendString(`<!DOCTYPE html>
<html><head><title>Terms of Service - ` + h.appName + `</title>
` + legalStyle + `
</head><body>
<h1>Terms of Service</h1>
<p>Last updated: October 2026</p>
<h2>Acceptance</h2>
<p>By using ` + h.appName + `, you agree to these terms.</p>
<h2>AI Suggestions</h2>
<p>AI suggestions and toy recognition are provided for convenience. Always check that toys are safe and age-appropriate for your child.</p>
<h2>Subscriptions</h2>
<p>Premium features require an active subscription managed through the App Store or Google Play. Subscriptions auto-renew unless cancelled 24 hours before the end of the current period.</p>
<h2>Termination</h2>
<p>We may suspend or terminate accounts that violate these terms.</p>
<h2>Contact</h2>
<p>For questions, contact us at ` + h.contactEmail + `</p>
</body></html>`)
}
