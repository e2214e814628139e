// Package ingestion validates raw manifest rows, stores them on the raw row
// table and hands request and sample manifests to their sub-workflow.
package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/synaptica-ai/genomics/pkg/common/clock"
	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"github.com/synaptica-ai/genomics/pkg/common/models"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"github.com/synaptica-ai/genomics/pkg/incident"
	"github.com/synaptica-ai/genomics/pkg/observability/metrics"
	"github.com/synaptica-ai/genomics/pkg/reconcile"
	"github.com/synaptica-ai/genomics/pkg/subworkflow"
	"gorm.io/datatypes"
)

// EventRawManifestRows is the event type carrying a RawRowBatch.
const EventRawManifestRows = "raw-manifest-rows"

// Recorder stores incidents. incident.Reporter satisfies it.
type Recorder interface {
	Record(ctx context.Context, inc incident.Incident) (*incident.Incident, error)
}

type Result struct {
	Family   reconcile.Family    `json:"manifest_type"`
	FilePath string              `json:"file_path"`
	Stored   int                 `json:"stored"`
	Replaced int64               `json:"replaced"`
	Pipeline *subworkflow.Result `json:"pipeline,omitempty"`
}

type Service struct {
	validator    *Validator
	raw          *reconcile.RawRepository
	subworkflows *subworkflow.Runner
	incidents    Recorder
	clock        clock.Clock
}

func NewService(validator *Validator, raw *reconcile.RawRepository, subworkflows *subworkflow.Runner, incidents Recorder, clk clock.Clock) *Service {
	return &Service{
		validator:    validator,
		raw:          raw,
		subworkflows: subworkflows,
		incidents:    incidents,
		clock:        clock.Or(clk),
	}
}

// Ingest validates and stores one parsed manifest file. A batch with any
// invalid line is rejected whole and recorded as an incident.
func (s *Service) Ingest(ctx context.Context, batch models.RawRowBatch) (*Result, error) {
	family, err := reconcile.ParseFamily(strings.ToUpper(strings.TrimSpace(batch.ManifestType)))
	if err != nil {
		return nil, genomic.NewValidationError("manifest type %q: %v", batch.ManifestType, err)
	}
	if batch.FilePath == "" {
		return nil, genomic.NewValidationError("file path required")
	}

	log := logger.Log.WithFields(map[string]interface{}{
		"manifest_type": family,
		"file_path":     batch.FilePath,
		"job_run_id":    batch.JobRunID,
		"rows":          len(batch.Rows),
	})

	lines, err := s.validator.Lines(family, batch.Rows)
	if err != nil {
		var be *BatchError
		if errors.As(err, &be) {
			metrics.ObserveRejectedBatch(string(family))
			log.WithError(err).Warn("Rejected raw manifest batch")
			s.recordInvalid(ctx, batch, be)
		}
		return nil, err
	}

	now := s.clock.Now()
	rows := make([]reconcile.RawManifestRow, 0, len(lines))
	for i, l := range lines {
		rows = append(rows, reconcile.RawManifestRow{
			Created:              now,
			ManifestType:         family,
			FilePath:             batch.FilePath,
			BiobankID:            l.BiobankID,
			SampleID:             l.SampleID,
			CollectionTubeID:     l.CollectionTubeID,
			GenomeType:           l.GenomeType,
			TestName:             l.TestName,
			SiteID:               l.SiteID,
			ClinicalAnalysisType: l.ClinicalAnalysisType,
			Payload:              datatypes.JSONMap(batch.Rows[i]),
		})
	}

	replaced, err := s.raw.ReplaceFile(ctx, family, batch.FilePath, rows)
	if err != nil {
		return nil, fmt.Errorf("store raw %s rows: %w", family, err)
	}
	res := &Result{Family: family, FilePath: batch.FilePath, Stored: len(rows), Replaced: replaced}
	log.WithFields(map[string]interface{}{
		"stored":   res.Stored,
		"replaced": replaced,
	}).Info("Stored raw manifest rows")

	if def, stage, ok := subworkflow.ForFamily(family); ok && s.subworkflows != nil {
		sub, err := s.subworkflows.RunStage(ctx, def, stage, subworkflow.Request{
			JobRunID:         batch.JobRunID,
			ManifestFileName: path.Base(batch.FilePath),
			Rows:             subworkflowRows(lines),
		})
		if err != nil {
			return res, fmt.Errorf("%s %s sub-workflow: %w", def.Pipeline, stage, err)
		}
		res.Pipeline = &sub
	}
	return res, nil
}

func (s *Service) recordInvalid(ctx context.Context, batch models.RawRowBatch, be *BatchError) {
	if s.incidents == nil {
		return
	}
	name := path.Base(batch.FilePath)
	inc := incident.New(genomic.IncidentFileValidationFailedValues,
		fmt.Sprintf("%s: %s in %s", be.Family, be.Error(), name)).WithSlack()
	inc.ManifestFileName = name
	if batch.JobRunID != 0 {
		runID := batch.JobRunID
		inc.SourceJobRunID = &runID
	}
	if batch.FileID != 0 {
		fileID := batch.FileID
		inc.SourceFileProcessedID = &fileID
	}
	if _, err := s.incidents.Record(ctx, inc); err != nil {
		logger.Log.WithError(err).WithField("file_path", batch.FilePath).Error("Failed to record validation incident")
	}
}

// Handle consumes raw-manifest-rows events. Rejected batches are recorded
// and acknowledged; only storage failures are returned for redelivery.
func (s *Service) Handle(ctx context.Context, event models.Event) error {
	if event.Type != EventRawManifestRows {
		logger.Log.WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).Debug("Skipping event")
		return nil
	}
	batch, err := decodeBatch(event.Data)
	if err != nil {
		logger.Log.WithError(err).WithField("event_id", event.ID).Error("Dropping undecodable raw row batch")
		return nil
	}
	if _, err := s.Ingest(ctx, batch); err != nil {
		if genomic.IsValidationError(err) {
			return nil
		}
		return err
	}
	return nil
}

// Abandon records an incident for a raw row event the consumer stopped
// retrying. The batch's file is named when the event still decodes.
func (s *Service) Abandon(ctx context.Context, event models.Event, attempts int, cause error) {
	logger.Log.WithError(cause).WithFields(map[string]interface{}{
		"event_id": event.ID,
		"attempts": attempts,
	}).Error("Abandoned raw row batch")
	if s.incidents == nil {
		return
	}
	name := event.ID
	batch, err := decodeBatch(event.Data)
	if err == nil && batch.FilePath != "" {
		name = path.Base(batch.FilePath)
	}
	inc := incident.New(genomic.IncidentDataValidationFailed,
		fmt.Sprintf("ingestion of %s abandoned after %d attempts: %v", name, attempts, cause)).WithSlack()
	if err == nil {
		if batch.FilePath != "" {
			inc.ManifestFileName = name
		}
		if batch.JobRunID != 0 {
			runID := batch.JobRunID
			inc.SourceJobRunID = &runID
		}
		if batch.FileID != 0 {
			fileID := batch.FileID
			inc.SourceFileProcessedID = &fileID
		}
	}
	if _, err := s.incidents.Record(ctx, inc); err != nil {
		logger.Log.WithError(err).WithField("event_id", event.ID).Error("Failed to record abandoned batch incident")
	}
}

func decodeBatch(data map[string]interface{}) (models.RawRowBatch, error) {
	var batch models.RawRowBatch
	b, err := json.Marshal(data)
	if err != nil {
		return batch, err
	}
	if err := json.Unmarshal(b, &batch); err != nil {
		return batch, fmt.Errorf("decode raw row batch: %w", err)
	}
	return batch, nil
}

func subworkflowRows(lines []Line) []subworkflow.Row {
	out := make([]subworkflow.Row, 0, len(lines))
	for _, l := range lines {
		out = append(out, subworkflow.Row{
			BiobankID:        l.BiobankID,
			CollectionTubeID: l.CollectionTubeID,
			SampleID:         l.SampleID,
			GenomeType:       l.GenomeType,
			SiteID:           l.SiteID,
			Platform:         l.Platform,
		})
	}
	return out
}
