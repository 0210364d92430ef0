package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// Mailer sends the account and household emails.
type Mailer interface {
	SendInvitation(ctx context.Context, toEmail, inviterName, invitationID string) error
	SendDeletionScheduled(ctx context.Context, toEmail, deletionDate string) error
}

type sesSender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailService sends email through Amazon SES. It is disabled when no sender
// address is configured.
type EmailService struct {
	client     sesSender
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
}

func NewEmailService(ctx context.Context, awsRegion, fromEmail, fromName, appBaseURL string) (*EmailService, error) {
	if fromEmail == "" {
		slog.Info("email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{enabled: false}, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(awsRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	slog.Info("email service enabled", "from", fromEmail, "region", awsRegion)
	return &EmailService{
		client:     sesv2.NewFromConfig(cfg),
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
	}, nil
}

func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

func (s *EmailService) SendInvitation(ctx context.Context, toEmail, inviterName, invitationID string) error {
	if inviterName == "" {
		inviterName = "A family member"
	}
	link := fmt.Sprintf("%s/invitations/%s", s.appBaseURL, invitationID)
	subject := fmt.Sprintf("%s invited you to their ToyRotator household", inviterName)
	text := fmt.Sprintf("%s invited you to help manage toy rotations on ToyRotator.\n\nOpen the app and sign in with this email address to accept: %s\n\nThis invitation expires in 7 days.", inviterName, link)
	body := fmt.Sprintf(`<p>%s invited you to help manage toy rotations on ToyRotator.</p>
<p>Open the app and sign in with this email address to accept the invitation.</p>
<p><a href="%s">View invitation</a></p>
<p>This invitation expires in 7 days.</p>`, html.EscapeString(inviterName), html.EscapeString(link))
	return s.send(ctx, toEmail, subject, body, text)
}

func (s *EmailService) SendDeletionScheduled(ctx context.Context, toEmail, deletionDate string) error {
	subject := "Your ToyRotator account is scheduled for deletion"
	text := fmt.Sprintf("Your account and all household data will be permanently deleted on %s.\n\nChanged your mind? Sign in before then and cancel the deletion from your profile.", deletionDate)
	body := fmt.Sprintf(`<p>Your account and all household data will be permanently deleted on <strong>%s</strong>.</p>
<p>Changed your mind? Sign in before then and cancel the deletion from your profile.</p>`, html.EscapeString(deletionDate))
	return s.send(ctx, toEmail, subject, body, text)
}

func (s *EmailService) send(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	if !s.enabled {
		slog.Info("skipping email send (service disabled)", "subject", subject)
		return nil
	}
	if toEmail == "" {
		return nil
	}

	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	slog.Info("email sent", "subject", subject)
	return nil
}
