package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	pkglogger "github.com/BradenHooton/labgate/pkg/logger"
)

// SESNotifier sends one-time codes using AWS SES
type SESNotifier struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewSESNotifier loads the default AWS credential chain for region
func NewSESNotifier(ctx context.Context, region, fromAddress string, logger *slog.Logger) (*SESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESNotifier{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

func verificationBodies(code string, expiresAt time.Time) (string, string) {
	minutes := int(time.Until(expiresAt).Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .code { font-size: 32px; letter-spacing: 8px; font-weight: bold; text-align: center; padding: 16px; background-color: #f8f9fa; border-radius: 4px; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Your sign-in code</h1>
        <p>Enter this code to finish signing in to the super admin console:</p>
        <div class="code">%s</div>
        <p>The code expires in %d minutes and can be used once.</p>
        <p>If you did not try to sign in, change your password.</p>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, code, minutes)

	textBody := fmt.Sprintf(`Your sign-in code

Enter this code to finish signing in to the super admin console:

    %s

The code expires in %d minutes and can be used once.
If you did not try to sign in, change your password.
`, code, minutes)

	return htmlBody, textBody
}

// SendVerificationCode emails the code to the account address
func (n *SESNotifier) SendVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	htmlBody, textBody := verificationBodies(code, expiresAt)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your sign-in code"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := n.sesClient.SendEmail(ctx, input)
	if err != nil {
		n.logger.Error("failed to send verification code via SES",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Info("verification code sent",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

// LogNotifier writes codes to the log instead of sending mail. The code is
// only visible outside production.
type LogNotifier struct {
	env    string
	logger *slog.Logger
}

func NewLogNotifier(env string, logger *slog.Logger) *LogNotifier {
	return &LogNotifier{env: env, logger: logger}
}

func (n *LogNotifier) SendVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	n.logger.Info("verification code issued",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		pkglogger.RedactedAttr("code", code, n.env),
		slog.Time("expires_at", expiresAt))
	return nil
}
