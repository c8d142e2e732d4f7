package models

import (
	"context"
	"time"

	"bitbucket.org/pratesvistorias/vistorias_backend/config"
	"bitbucket.org/pratesvistorias/vistorias_backend/utils"
	"gorm.io/gorm"
)

type JobKind string

const (
	JobKindImport    JobKind = "IMPORT"
	JobKindCalculate JobKind = "CALCULATE"
)

type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
)

const JobMaxAttempts = 3

// JobRun is one queued background execution of an import or calculation.
// The Pub/Sub message carries only the job id; everything needed to run
// (including the uploaded spreadsheet for imports) is stored here so that
// redeliveries are self-contained.
type JobRun struct {
	ID              int        `gorm:"primary_key" json:"id"`
	ClosurePeriodId int        `gorm:"not null;index" json:"closure_period_id"`
	Kind            JobKind    `gorm:"size:20;not null" json:"kind"`
	Status          JobStatus  `gorm:"size:20;not null;default:QUEUED" json:"status"`
	Payload         []byte     `gorm:"type:mediumblob" json:"-"`
	Attempts        int        `gorm:"not null;default:0" json:"attempts"`
	LastError       string     `gorm:"size:1000" json:"last_error"`
	ResultSummary   string     `gorm:"type:text" json:"result_summary"`
	NextAttemptAt   *time.Time `json:"next_attempt_at"`
	StartedAt       *time.Time `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func CreateJobRun(ctx context.Context, closureId int, kind JobKind, payload []byte) (*JobRun, error) {
	db := config.GetDB()
	job := JobRun{
		ClosurePeriodId: closureId,
		Kind:            kind,
		Status:          JobStatusQueued,
		Payload:         payload,
	}
	if err := db.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func GetJobRun(ctx context.Context, id int) (*JobRun, error) {
	return utils.FetchModel[JobRun](ctx, id)
}

func (job *JobRun) MarkRunning(ctx context.Context, db *gorm.DB) error {
	now := time.Now().UTC()
	err := db.WithContext(ctx).Model(job).Updates(map[string]interface{}{
		"Status":    JobStatusRunning,
		"Attempts":  job.Attempts + 1,
		"StartedAt": &now,
	}).Error
	if err != nil {
		return err
	}
	job.Attempts++
	job.Status = JobStatusRunning
	return nil
}

func (job *JobRun) MarkSucceeded(ctx context.Context, db *gorm.DB, summary string) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).Model(job).Updates(map[string]interface{}{
		"Status":        JobStatusSucceeded,
		"ResultSummary": summary,
		"LastError":     "",
		"FinishedAt":    &now,
	}).Error
}

// MarkFailedAttempt records the error; when attempts remain it re-queues
// with the given backoff delay, otherwise the job goes to Failed for good.
func (job *JobRun) MarkFailedAttempt(ctx context.Context, db *gorm.DB, runErr error, backoff time.Duration) (final bool, err error) {
	updates := map[string]interface{}{
		"LastError": runErr.Error(),
	}
	if job.Attempts >= JobMaxAttempts {
		now := time.Now().UTC()
		updates["Status"] = JobStatusFailed
		updates["FinishedAt"] = &now
		final = true
	} else {
		next := time.Now().UTC().Add(backoff)
		updates["Status"] = JobStatusQueued
		updates["NextAttemptAt"] = &next
	}
	return final, db.WithContext(ctx).Model(job).Updates(updates).Error
}
