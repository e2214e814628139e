package incident

import (
	"time"

	"github.com/synaptica-ai/genomics/pkg/genomic"
)

// DefaultMaxMessageLength is the width of the message column.
const DefaultMaxMessageLength = 512

// Incident is an anomaly raised by a job. Code and Status hold enum names.
type Incident struct {
	ID                        uint       `gorm:"primaryKey;column:id"`
	Created                   time.Time  `gorm:"column:created;index"`
	Modified                  time.Time  `gorm:"column:modified"`
	Code                      string     `gorm:"column:code;index"`
	Message                   string     `gorm:"column:message;size:512;index"`
	IsTruncated               int        `gorm:"column:is_truncated"`
	Status                    string     `gorm:"column:status"`
	SlackNotification         int        `gorm:"column:slack_notification"`
	SlackNotificationDate     *time.Time `gorm:"column:slack_notification_date"`
	EmailNotificationSent     int        `gorm:"column:email_notification_sent"`
	EmailNotificationSentDate *time.Time `gorm:"column:email_notification_sent_date"`
	SourceJobRunID            *uint      `gorm:"column:source_job_run_id"`
	SourceFileProcessedID     *uint      `gorm:"column:source_file_processed_id;index"`
	GenomicSetMemberID        *uint      `gorm:"column:genomic_set_member_id"`
	BiobankID                 string     `gorm:"column:biobank_id"`
	SampleID                  string     `gorm:"column:sample_id"`
	CollectionTubeID          string     `gorm:"column:collection_tube_id"`
	SubmittedGCSiteID         *string    `gorm:"column:submitted_gc_site_id"`
	ManifestFileName          string     `gorm:"column:manifest_file_name;index"`
}

func (Incident) TableName() string {
	return "genomic_incident"
}

// New builds an open incident for code.
func New(code genomic.IncidentCode, message string) Incident {
	return Incident{
		Code:    code.String(),
		Message: message,
		Status:  genomic.IncidentOpen.String(),
	}
}

// WithSlack asks for the incident to be pushed to the alert channel.
func (i Incident) WithSlack() Incident {
	i.SlackNotification = 1
	return i
}

// Truncate cuts message to at most max characters and reports whether it
// had to.
func Truncate(message string, max int) (string, bool) {
	if max <= 0 {
		max = DefaultMaxMessageLength
	}
	runes := []rune(message)
	if len(runes) <= max {
		return message, false
	}
	return string(runes[:max]), true
}
