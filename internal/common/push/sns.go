// internal/common/push/sns.go
package push

import (
	"context"
	"encoding/json"
	"fmt"

	"gig-dispatch/internal/common/config"
	"gig-dispatch/internal/common/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSAPI is the slice of the SNS client used here, defined for mocking.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSGateway publishes notifications to an SNS topic that fans out to the
// mobile push platform endpoints.
type SNSGateway struct {
	client   SNSAPI
	topicARN string
	logger   logger.Logger
}

func NewSNSGateway(ctx context.Context, cfg config.SNSPushConfig, log logger.Logger) (*SNSGateway, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &SNSGateway{
		client:   sns.NewFromConfig(awsCfg),
		topicARN: cfg.TopicARN,
		logger:   log.WithFields(map[string]interface{}{"pushProvider": "sns"}),
	}, nil
}

func (g *SNSGateway) Send(ctx context.Context, n *Notification) error {
	message, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	_, err = g.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(g.topicARN),
		Message:  aws.String(string(message)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"recipientId": {
				DataType:    aws.String("String"),
				StringValue: aws.String(n.RecipientID),
			},
			"category": {
				DataType:    aws.String("String"),
				StringValue: aws.String(n.Category),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish for recipient %s: %w", n.RecipientID, err)
	}

	g.logger.Debug("push delivered", map[string]interface{}{
		"recipientId": n.RecipientID,
		"category":    n.Category,
	})
	return nil
}
