package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"call-analytics-backend/internal/bootstrap"
	"call-analytics-backend/internal/shared/awsenv"
	"call-analytics-backend/internal/shared/config"
	"call-analytics-backend/internal/shared/metrics"
	"call-analytics-backend/internal/shared/storage/db"
	"call-analytics-backend/internal/shared/telemetry"
	"call-analytics-backend/internal/shared/util"
	"call-analytics-backend/internal/workerproc"
)

const (
	receiveBatch    = 10
	receiveWaitSecs = 20
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// consumer long-polls one queue and runs each analysis it receives.
type consumer struct {
	client     sqsAPI
	queueURL   string
	processor  workerproc.Processor
	visibility time.Duration
	slots      chan struct{}
	wg         sync.WaitGroup
}

func main() {
	cfg := config.Load()
	telemetry.Configure(cfg.LogLevel)
	if cfg.SQSQueueURL == "" {
		log.Fatal("CA_SQS_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsenv.Load(ctx, cfg.AWSRegion)
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}
	app, err := bootstrap.Build(ctx, cfg, db.RoleWorker)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	c := &consumer{
		client:     sqs.NewFromConfig(awsCfg),
		queueURL:   cfg.SQSQueueURL,
		processor:  app.Analyses,
		visibility: cfg.SQSVisibilityTimeout,
		slots:      make(chan struct{}, cfg.WorkerConcurrency),
	}
	telemetry.Info("worker.started", map[string]any{
		"queue_url":   c.queueURL,
		"concurrency": cfg.WorkerConcurrency,
		"visibility":  c.visibility.String(),
	})

	c.run(ctx)

	telemetry.Info("worker.shutdown", map[string]any{"timeout": cfg.ShutdownTimeout.String()})
	if !c.drain(cfg.ShutdownTimeout) {
		telemetry.Warn("worker.shutdown_timeout", map[string]any{"timeout": cfg.ShutdownTimeout.String()})
	}
}

// run receives until ctx is cancelled. Handlers keep running after that; drain waits for them.
func (c *consumer) run(ctx context.Context) {
	for ctx.Err() == nil {
		resp, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: receiveBatch,
			WaitTimeSeconds:     receiveWaitSecs,
			VisibilityTimeout:   int32(c.visibility / time.Second),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			telemetry.Warn("worker.receive_failed", map[string]any{"error": util.SanitizeError(err)})
			continue
		}
		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				return
			case c.slots <- struct{}{}:
			}
			metrics.IncAnalysisJobsReceived()
			c.wg.Add(1)
			go func(m sqstypes.Message) {
				defer c.wg.Done()
				defer func() { <-c.slots }()
				c.handle(context.WithoutCancel(ctx), m)
			}(msg)
		}
	}
}

func (c *consumer) drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (c *consumer) handle(ctx context.Context, msg sqstypes.Message) {
	job, verdict, err := workerproc.Handle(ctx, c.processor, aws.ToString(msg.Body))
	fields := map[string]any{
		"analysis_id":    job.AnalysisID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
		"verdict":        verdict.String(),
	}
	if job.RequestID != "" {
		fields["request_id"] = job.RequestID
	}
	if err != nil {
		fields["error"] = util.SanitizeError(err)
	}

	switch verdict {
	case workerproc.Ack:
		if c.delete(ctx, msg, fields) {
			telemetry.Info("worker.analysis.completed", fields)
			metrics.IncAnalysisJobsCompleted()
		}
	case workerproc.Drop:
		fields["body_len"] = job.BodyLen
		fields["body_sha256"] = job.BodySHA256
		telemetry.Error("worker.analysis.dropped", fields)
		if c.delete(ctx, msg, fields) {
			metrics.IncAnalysisJobsDeletedUnrecoverable()
		}
	default:
		telemetry.Error("worker.analysis.failed", fields)
		metrics.IncAnalysisJobsFailed()
	}
}

func (c *consumer) delete(ctx context.Context, msg sqstypes.Message, fields map[string]any) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		telemetry.Error("worker.analysis.delete_failed", withError(fields, "missing receipt handle"))
		return false
	}
	if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		telemetry.Error("worker.analysis.delete_failed", withError(fields, util.SanitizeError(err)))
		return false
	}
	return true
}

func withError(fields map[string]any, msg string) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["delete_error"] = msg
	return out
}

func receiveCount(msg sqstypes.Message) int {
	n, err := strconv.Atoi(msg.Attributes["ApproximateReceiveCount"])
	if err != nil {
		return 0
	}
	return n
}
