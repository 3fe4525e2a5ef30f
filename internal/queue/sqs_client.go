package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"call-analytics-backend/internal/shared/awsenv"
)

// SendAPI is the subset of the SQS client used for producing messages.
type SendAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSClient sends analysis jobs to SQS. On FIFO queues each analysis gets its own
// message group and deduplication id, so a double submit inside the dedup window
// collapses into one job.
type SQSClient struct {
	api      SendAPI
	queueURL string
	fifo     bool
}

func NewSQSClient(ctx context.Context, queueURL, region string) (*SQSClient, error) {
	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, fmt.Errorf("CA_SQS_QUEUE_URL is required")
	}
	cfg, err := awsenv.Load(ctx, region)
	if err != nil {
		return nil, err
	}
	return NewSQSClientWithAPI(sqs.NewFromConfig(cfg), queueURL), nil
}

func NewSQSClientWithAPI(api SendAPI, queueURL string) *SQSClient {
	queueURL = strings.TrimSpace(queueURL)
	return &SQSClient{api: api, queueURL: queueURL, fifo: strings.HasSuffix(queueURL, ".fifo")}
}

func (s *SQSClient) Send(ctx context.Context, msg Message) error {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode job %q: %w", msg.AnalysisID, err)
	}
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(payload)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"version": {DataType: aws.String("Number"), StringValue: aws.String(strconv.Itoa(msg.Version))},
		},
	}
	if msg.RequestID != "" {
		input.MessageAttributes["requestId"] = sqstypes.MessageAttributeValue{
			DataType: aws.String("String"), StringValue: aws.String(msg.RequestID),
		}
	}
	if s.fifo {
		input.MessageGroupId = aws.String(msg.AnalysisID)
		input.MessageDeduplicationId = aws.String(msg.AnalysisID + "-" + msg.EnqueuedAt)
	}
	if _, err := s.api.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("sqs send job %q: %w", msg.AnalysisID, err)
	}
	return nil
}

var _ Client = (*SQSClient)(nil)
