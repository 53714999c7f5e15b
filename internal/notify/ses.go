package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/google/uuid"

	"github.com/recares/dme-matcher/internal/pkg/logger"
)

// SESConfig holds the settings of the SES channel.
type SESConfig struct {
	Region           string
	AccessKey        string
	SecretKey        string
	FromEmail        string
	FromName         string
	ConfigurationSet string
	Timeout          time.Duration
}

// sesAPI is the subset of the SES client used by the channel.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESChannel sends messages through AWS SES v2.
type SESChannel struct {
	cfg    SESConfig
	client sesAPI
}

// NewSESChannel creates an SES channel. Static credentials are used when
// both keys are set, otherwise the default AWS credential chain.
func NewSESChannel(ctx context.Context, cfg SESConfig) (*SESChannel, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("ses: from email is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ses: load aws config: %w", err)
	}
	return &SESChannel{cfg: cfg, client: sesv2.NewFromConfig(awsCfg)}, nil
}

func (s *SESChannel) Send(ctx context.Context, msg Message) error {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	from := s.cfg.FromEmail
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTMLBody), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("kind"), Value: aws.String(msg.Kind)},
			{Name: aws.String("dispatch_id"), Value: aws.String(uuid.New().String())},
		},
	}
	if s.cfg.ConfigurationSet != "" {
		input.ConfigurationSetName = aws.String(s.cfg.ConfigurationSet)
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send %s: %w", msg.Kind, err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	logger.Debug("ses message sent", "kind", msg.Kind, "to", msg.To, "message_id", messageID)
	return nil
}
