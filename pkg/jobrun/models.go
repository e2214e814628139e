package jobrun

import (
	"time"

	"github.com/synaptica-ai/genomics/pkg/genomic"
)

// JobRun is one execution of a batch job.
type JobRun struct {
	ID           uint                     `gorm:"primaryKey;column:id"`
	Created      time.Time                `gorm:"column:created"`
	Modified     time.Time                `gorm:"column:modified"`
	JobID        genomic.Job              `gorm:"column:job_id;index"`
	JobIDStr     string                   `gorm:"column:job_id_str"`
	StartTime    time.Time                `gorm:"column:start_time"`
	EndTime      *time.Time               `gorm:"column:end_time"`
	RunStatus    genomic.SubProcessStatus `gorm:"column:run_status"`
	RunStatusStr string                   `gorm:"column:run_status_str"`
	RunResult    genomic.SubProcessResult `gorm:"column:run_result"`
	RunResultStr string                   `gorm:"column:run_result_str"`
}

func (JobRun) TableName() string {
	return "genomic_job_run"
}

// FileProcessed records a single input file handled by a job run.
type FileProcessed struct {
	ID                    uint                     `gorm:"primaryKey;column:id"`
	Created               time.Time                `gorm:"column:created"`
	Modified              time.Time                `gorm:"column:modified"`
	RunID                 uint                     `gorm:"column:run_id;index"`
	GenomicManifestFileID *uint                    `gorm:"column:genomic_manifest_file_id;index"`
	FilePath              string                   `gorm:"column:file_path;index"`
	BucketName            string                   `gorm:"column:bucket_name"`
	FileName              string                   `gorm:"column:file_name;index"`
	FileStatus            genomic.SubProcessStatus `gorm:"column:file_status"`
	FileResult            genomic.SubProcessResult `gorm:"column:file_result"`
	UploadDate            *time.Time               `gorm:"column:upload_date"`
	StartTime             time.Time                `gorm:"column:start_time"`
	EndTime               *time.Time               `gorm:"column:end_time"`
}

func (FileProcessed) TableName() string {
	return "genomic_file_processed"
}

type ManifestFile struct {
	ID             uint                 `gorm:"primaryKey;column:id"`
	Created        time.Time            `gorm:"column:created"`
	Modified       time.Time            `gorm:"column:modified"`
	FilePath       string               `gorm:"column:file_path;index"`
	BucketName     string               `gorm:"column:bucket_name"`
	FileName       string               `gorm:"column:file_name"`
	UploadDate     *time.Time           `gorm:"column:upload_date"`
	ManifestTypeID genomic.ManifestType `gorm:"column:manifest_type_id"`
	RecordCount    int                  `gorm:"column:record_count"`
	IgnoreFlag     int                  `gorm:"column:ignore_flag"`
}

func (ManifestFile) TableName() string {
	return "genomic_manifest_file"
}

// ManifestFeedback links an input manifest to the feedback manifest that
// acknowledges it.
type ManifestFeedback struct {
	ID                     uint       `gorm:"primaryKey;column:id"`
	Created                time.Time  `gorm:"column:created"`
	Modified               time.Time  `gorm:"column:modified"`
	InputManifestFileID    uint       `gorm:"column:input_manifest_file_id;index"`
	FeedbackManifestFileID *uint      `gorm:"column:feedback_manifest_file_id"`
	FeedbackRecordCount    int        `gorm:"column:feedback_record_count"`
	FeedbackComplete       int        `gorm:"column:feedback_complete"`
	FeedbackCompleteDate   *time.Time `gorm:"column:feedback_complete_date"`
	IgnoreFlag             int        `gorm:"column:ignore_flag"`
}

func (ManifestFeedback) TableName() string {
	return "genomic_manifest_feedback"
}
