package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"bitbucket.org/pratesvistorias/vistorias_backend/config"
	"bitbucket.org/pratesvistorias/vistorias_backend/models"
	"bitbucket.org/pratesvistorias/vistorias_backend/utils"
	"github.com/sirupsen/logrus"
)

var ErrorJobNotReady = errors.New("job backoff has not elapsed")

const jobInitialBackoff = 30 * time.Second

// JobMessage is the Pub/Sub payload. It carries only the job id; the
// JobRun row holds everything needed to execute, so redeliveries are
// self-contained.
type JobMessage struct {
	JobId         int    `json:"job_id"`
	CorrelationId string `json:"correlation_id,omitempty"`
}

func JobTopicName() string {
	topic := os.Getenv("JOBS_TOPIC")
	if topic == "" {
		topic = "vistorias-jobs"
	}
	return topic
}

// EnqueueJob records a JobRun and publishes its id for asynchronous
// execution.
func EnqueueJob(ctx context.Context, closureId int, kind models.JobKind, payload []byte) (*models.JobRun, error) {
	logger := config.GetLogger()

	job, err := models.CreateJobRun(ctx, closureId, kind, payload)
	if err != nil {
		return nil, err
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	messageId, err := config.PublishJob(ctx, JobTopicName(), JobMessage{
		JobId:         job.ID,
		CorrelationId: correlationId,
	})
	if err != nil {
		config.LogError(logger, "worker.go", "EnqueueJob", "publish", job.ID, err)
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"job_id":     job.ID,
		"closure_id": closureId,
		"kind":       kind,
		"message_id": messageId,
	}).Info("job enqueued")

	return job, nil
}

// jobBackoff doubles per attempt: 30s, 1m, 2m, ...
func jobBackoff(attempts int) time.Duration {
	backoff := jobInitialBackoff
	for i := 1; i < attempts; i++ {
		backoff *= 2
		if backoff >= 10*time.Minute {
			return 10 * time.Minute
		}
	}
	return backoff
}

// RunJob executes one delivered job. retry=true asks the transport to
// redeliver; retry=false means the outcome is final (success, terminal
// failure, or a duplicate delivery of a finished job).
func RunJob(ctx context.Context, jobId int) (retry bool, err error) {
	logger := config.GetLogger()
	db := config.GetDB()

	job, err := models.GetJobRun(ctx, jobId)
	if err != nil {
		// Unknown job id: drop, a retry cannot fix it.
		return false, err
	}

	switch job.Status {
	case models.JobStatusSucceeded, models.JobStatusFailed:
		// Duplicate delivery of a finished job.
		return false, nil
	}
	if job.NextAttemptAt != nil && job.NextAttemptAt.After(time.Now().UTC()) {
		return true, ErrorJobNotReady
	}

	if err := job.MarkRunning(ctx, db); err != nil {
		return true, err
	}

	summary, runErr := executeJob(ctx, job)
	if runErr == nil {
		if err := job.MarkSucceeded(ctx, db, summary); err != nil {
			return true, err
		}
		return false, nil
	}

	config.LogError(logger, "worker.go", "RunJob", "execute", job.ID, runErr)
	final, markErr := job.MarkFailedAttempt(ctx, db, runErr, jobBackoff(job.Attempts))
	if markErr != nil {
		return true, markErr
	}
	if final {
		logger.WithFields(logrus.Fields{
			"job_id":   job.ID,
			"attempts": job.Attempts,
		}).Error("job failed permanently: " + runErr.Error())
		return false, runErr
	}
	return true, runErr
}

func executeJob(ctx context.Context, job *models.JobRun) (string, error) {
	switch job.Kind {
	case models.JobKindImport:
		result, err := ImportSpreadsheet(ctx, job.ClosurePeriodId, job.Payload)
		if err != nil {
			return "", err
		}
		return importSummary(result), nil
	case models.JobKindCalculate:
		result, err := CalculateClosure(ctx, job.ClosurePeriodId)
		if err != nil {
			return "", err
		}
		return resultSummary(result), nil
	}
	return "", errors.New("unknown job kind")
}

// DecodeJobMessage parses the Pub/Sub data payload.
func DecodeJobMessage(data []byte) (*JobMessage, error) {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.JobId == 0 {
		return nil, errors.New("job_id required")
	}
	return &msg, nil
}
