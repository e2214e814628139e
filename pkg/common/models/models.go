package models

import (
	"time"
)

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // raw-manifest-rows, genomic_incident
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// RawRowBatch is the payload of a raw-manifest-rows event, one per parsed
// manifest file.
type RawRowBatch struct {
	ManifestType string                   `json:"manifest_type"`
	FilePath     string                   `json:"file_path"`
	JobRunID     uint                     `json:"job_run_id"`
	FileID       uint                     `json:"file_processed_id,omitempty"`
	Rows         []map[string]interface{} `json:"rows"`
}

// IncidentNotification is the flat payload handed to the dispatch sink.
type IncidentNotification struct {
	Slack            bool   `json:"slack"`
	SourceJobRunID   *uint  `json:"source_job_run_id"`
	Code             string `json:"code"`
	Message          string `json:"message"`
	ManifestFileName string `json:"manifest_file_name"`
}

func (n IncidentNotification) AsMap() map[string]interface{} {
	var runID interface{}
	if n.SourceJobRunID != nil {
		runID = *n.SourceJobRunID
	}
	return map[string]interface{}{
		"slack":              n.Slack,
		"source_job_run_id":  runID,
		"code":               n.Code,
		"message":            n.Message,
		"manifest_file_name": n.ManifestFileName,
	}
}
