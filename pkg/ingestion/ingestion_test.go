package ingestion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/genomics/pkg/common/clock"
	"github.com/synaptica-ai/genomics/pkg/common/config"
	"github.com/synaptica-ai/genomics/pkg/common/models"
	"github.com/synaptica-ai/genomics/pkg/common/testutil"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"github.com/synaptica-ai/genomics/pkg/incident"
	"github.com/synaptica-ai/genomics/pkg/ledger"
	"github.com/synaptica-ai/genomics/pkg/reconcile"
	"github.com/synaptica-ai/genomics/pkg/subworkflow"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type recorder struct {
	got []incident.Incident
}

func (r *recorder) Record(_ context.Context, inc incident.Incident) (*incident.Incident, error) {
	r.got = append(r.got, inc)
	return &inc, nil
}

type fixture struct {
	service   *Service
	raw       *reconcile.RawRepository
	runner    *subworkflow.Runner
	ledger    *ledger.Repository
	people    *ledger.Participants
	incidents *recorder
	clk       *clock.Fixed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t, &reconcile.RawManifestRow{}, &ledger.SampleRecord{},
		&ledger.ParticipantSummary{}, &ledger.BiobankStoredSample{}, &subworkflow.PipelineMember{})
	clk := clock.NewFixed(t0)
	rec := &recorder{}
	raw := reconcile.NewRawRepository(db, clk, config.DefaultSettings()).WithBatchSize(2)
	runner := subworkflow.NewRunner(db, clk, rec)
	return &fixture{
		service:   NewService(NewValidator("A"), raw, runner, rec, clk),
		raw:       raw,
		runner:    runner,
		ledger:    ledger.NewRepository(db, clk),
		people:    ledger.NewParticipants(db),
		incidents: rec,
		clk:       clk,
	}
}

func aw1Rows() []map[string]interface{} {
	return []map[string]interface{}{
		{"Biobank ID": "A1001", "Sample ID": "S1", "Collection Tube ID": "T1", "Genome Type": "aou_array", "Test Name": "aou_array", "Site ID": "uw"},
		{"Biobank ID": "A1002", "Sample ID": "S2", "Collection Tube ID": "T2", "Genome Type": "aou_array", "Test Name": "aou_array", "Site ID": "uw"},
		{"Biobank ID": "", "Sample ID": "", "Collection Tube ID": ""},
	}
}

func TestIngestStoresNormalizedRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	path := "uw-bucket/AW1_sample_manifests/UW_AoU_GEN_PKG-1.csv"

	res, err := f.service.Ingest(ctx, models.RawRowBatch{ManifestType: "aw1", FilePath: path, JobRunID: 3, Rows: aw1Rows()})
	require.NoError(t, err)
	assert.Equal(t, reconcile.FamilyAW1, res.Family)
	assert.Equal(t, 3, res.Stored)
	assert.Zero(t, res.Replaced)
	assert.Nil(t, res.Pipeline)

	rows, err := f.raw.ByFilePath(ctx, reconcile.FamilyAW1, path)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "1001", rows[0].BiobankID)
	assert.Equal(t, "T1", rows[0].CollectionTubeID)
	assert.Equal(t, "uw", rows[0].SiteID)
	assert.Equal(t, "A1001", rows[0].Payload["Biobank ID"])
	assert.True(t, rows[0].Created.Equal(t0))

	count, err := f.raw.CountForFilePath(ctx, reconcile.FamilyAW1, path)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// reprocessing the same file replaces its rows
	f.clk.Advance(time.Hour)
	res, err = f.service.Ingest(ctx, models.RawRowBatch{ManifestType: "AW1", FilePath: path, Rows: aw1Rows()[:2]})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Replaced)
	rows, err = f.raw.ByFilePath(ctx, reconcile.FamilyAW1, path)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestInvalidBatchIsRejectedWhole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	path := "bucket/W4WR/UW_W4WR_1.csv"

	_, err := f.service.Ingest(ctx, models.RawRowBatch{
		ManifestType: "W4WR",
		FilePath:     path,
		JobRunID:     9,
		FileID:       4,
		Rows: []map[string]interface{}{
			{"biobank_id": "A1", "sample_id": "S1", "clinical_analysis_type": "hdrv1"},
			{"biobank_id": "A2", "sample_id": "S2", "clinical_analysis_type": "WGS"},
			{"biobank_id": "A3"},
		},
	})
	require.Error(t, err)
	assert.True(t, genomic.IsValidationError(err))

	var be *BatchError
	require.ErrorAs(t, err, &be)
	require.Len(t, be.Rows, 2)
	assert.Equal(t, 2, be.Rows[0].Row)
	assert.Equal(t, []string{"ClinicalAnalysisType:oneof"}, be.Rows[0].Fields)
	assert.Equal(t, 3, be.Rows[1].Row)
	assert.Equal(t, []string{"ClinicalAnalysisType:required", "SampleID:required"}, be.Rows[1].Fields)

	count, err := f.raw.CountForFilePath(ctx, reconcile.FamilyW4WR, path)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.Len(t, f.incidents.got, 1)
	inc := f.incidents.got[0]
	assert.Equal(t, genomic.IncidentFileValidationFailedValues.String(), inc.Code)
	assert.Equal(t, "UW_W4WR_1.csv", inc.ManifestFileName)
	assert.Equal(t, 1, inc.SlackNotification)
	require.NotNil(t, inc.SourceJobRunID)
	assert.Equal(t, uint(9), *inc.SourceJobRunID)
	require.NotNil(t, inc.SourceFileProcessedID)
	assert.Equal(t, uint(4), *inc.SourceFileProcessedID)
}

func TestUnknownManifestType(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Ingest(context.Background(), models.RawRowBatch{ManifestType: "AW9", FilePath: "x"})
	assert.True(t, genomic.IsValidationError(err))
	assert.Empty(t, f.incidents.got)
}

func TestHandleDispatchesSubworkflow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.people.SaveSummary(ctx, &ledger.ParticipantSummary{
		ParticipantID:             77,
		WithdrawalStatus:          ledger.WithdrawalNotWithdrawn,
		SuspensionStatus:          ledger.SuspensionNotSuspended,
		ConsentForStudyEnrollment: ledger.QuestionnaireSubmitted,
	}))
	require.NoError(t, f.ledger.Create(ctx, &ledger.SampleRecord{
		ParticipantID:          77,
		BiobankID:              "5001",
		CollectionTubeID:       "T5001",
		GenomeType:             config.GenomeTypeWGS,
		GCManifestSampleSource: "whole blood",
		WorkflowState:          genomic.StateAW1,
	}))

	// other event types are acknowledged untouched
	require.NoError(t, f.service.Handle(ctx, models.Event{Type: "genomic_incident"}))

	event := models.Event{
		ID:   "evt-1",
		Type: EventRawManifestRows,
		Data: map[string]interface{}{
			"manifest_type": "LR",
			"file_path":     "bucket/LR/bcm_lr_request_1.csv",
			"job_run_id":    12,
			"rows": []interface{}{
				map[string]interface{}{"biobank_id": "A5001", "genome_type": "aou_long_read", "lr_site_id": "bcm", "long_read_platform": "ont"},
			},
		},
	}
	require.NoError(t, f.service.Handle(ctx, event))

	members, err := f.runner.Members(ctx, subworkflow.PipelineLongRead)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "5001", members[0].BiobankID)
	assert.Equal(t, "ONT", members[0].Platform)
	require.NotNil(t, members[0].CreatedJobRunID)
	assert.Equal(t, uint(12), *members[0].CreatedJobRunID)
	assert.Empty(t, f.incidents.got)

	// an invalid batch is recorded and acknowledged
	event.Data["rows"] = []interface{}{map[string]interface{}{"biobank_id": "A5001"}}
	require.NoError(t, f.service.Handle(ctx, event))
	assert.Len(t, f.incidents.got, 1)
}

func TestAbandonRecordsIncident(t *testing.T) {
	f := newFixture(t)
	event := models.Event{
		ID:   "evt-9",
		Type: EventRawManifestRows,
		Data: map[string]interface{}{
			"manifest_type":     "AW1",
			"file_path":         "bucket/AW1/uw_aw1_9.csv",
			"job_run_id":        4,
			"file_processed_id": 6,
		},
	}

	f.service.Abandon(context.Background(), event, 5, errors.New("connection reset"))

	require.Len(t, f.incidents.got, 1)
	inc := f.incidents.got[0]
	assert.Equal(t, genomic.IncidentDataValidationFailed.String(), inc.Code)
	assert.Equal(t, "uw_aw1_9.csv", inc.ManifestFileName)
	assert.Equal(t, 1, inc.SlackNotification)
	assert.Contains(t, inc.Message, "after 5 attempts")
	assert.Contains(t, inc.Message, "connection reset")
	require.NotNil(t, inc.SourceJobRunID)
	assert.Equal(t, uint(4), *inc.SourceJobRunID)
	require.NotNil(t, inc.SourceFileProcessedID)
	assert.Equal(t, uint(6), *inc.SourceFileProcessedID)
}

func TestLineFromHeaderAliases(t *testing.T) {
	l := lineFrom(normalizeRow(map[string]interface{}{
		"BiobankID":          "T42",
		"collection-tubeid":  "CT9",
		"p_site_id":          "bi",
		"LONG_READ_PLATFORM": " pacbio_ccs ",
		"extra":              nil,
	}), "A")
	assert.Equal(t, "42", l.BiobankID)
	assert.Equal(t, "CT9", l.CollectionTubeID)
	assert.Equal(t, "bi", l.SiteID)
	assert.Equal(t, "PACBIO_CCS", l.Platform)
}
