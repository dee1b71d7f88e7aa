package alert

import (
	"context"
	"encoding/json"

	"ergasia-workers/internal/common/errors"
	"ergasia-workers/internal/models"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type TopicPublisher interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// Publisher fans stored inbox messages out to an SNS topic.
type Publisher struct {
	client   TopicPublisher
	topicARN string
}

func NewPublisher(client TopicPublisher, topicARN string) *Publisher {
	return &Publisher{client: client, topicARN: topicARN}
}

// Publish sends msg as JSON. Category and action travel as message attributes
// so subscribers can filter.
func (p *Publisher) Publish(ctx context.Context, msg models.InboxMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.NewNotificationSendFailedError("sns", err)
	}

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(p.topicARN),
		Message:  awssdk.String(string(payload)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"category": {DataType: awssdk.String("String"), StringValue: awssdk.String(string(msg.Category))},
			"action":   {DataType: awssdk.String("String"), StringValue: awssdk.String(string(msg.Action))},
		},
	})
	if err != nil {
		return errors.NewNotificationSendFailedError("sns", err)
	}
	return nil
}
