package gcmetrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/genomics/pkg/common/clock"
	"github.com/synaptica-ai/genomics/pkg/common/config"
	"github.com/synaptica-ai/genomics/pkg/common/testutil"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"github.com/synaptica-ai/genomics/pkg/jobrun"
	"github.com/synaptica-ai/genomics/pkg/ledger"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	metrics *Repository
	files   *DataFileRepository
	ledger  *ledger.Repository
	runs    *jobrun.Repository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.NewDB(t, &Metrics{}, &DataFile{}, &ledger.SampleRecord{}, &jobrun.FileProcessed{})
	clk := clock.NewFixed(t0)
	return fixture{
		metrics: NewRepository(db, clk),
		files:   NewDataFileRepository(db, clk),
		ledger:  ledger.NewRepository(db, clk),
		runs:    jobrun.NewRepository(db, clk),
	}
}

func TestUpsertFromRowAppliesMapping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	row := Row{
		"member_id":              "7",
		"limsid":                 "L-1",
		"meancoverage":           "32.1",
		"sexconcordance":         "True",
		"processingstatus":       "Pass",
		"pipelineid":             "dragen_3.7",
		"contamination_category": "EXTRACT_WGS",
		"hfvcfpath":              "gs://bucket/s1.hard-filtered.vcf.gz",
	}
	m, err := f.metrics.UpsertFromRow(ctx, row, nil)
	require.NoError(t, err)
	require.NotNil(t, m.GenomicSetMemberID)
	assert.Equal(t, uint(7), *m.GenomicSetMemberID)
	assert.Equal(t, "32.1", *m.MeanCoverage)
	assert.Equal(t, genomic.ContaminationExtractWGS, m.ContaminationCategory)
	assert.Equal(t, "EXTRACT_WGS", m.ContaminationCategoryStr)
	assert.Nil(t, m.CramPath, "missing vendor keys are stored as null")
	assert.Nil(t, m.GenomicFileProcessedID)

	again, err := f.metrics.UpsertFromRow(ctx, Row{
		"member_id":  "7",
		"pipelineid": "dragen_3.7",
		"crampath":   "gs://bucket/s1.cram",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, m.ID, again.ID, "same member and pipeline reuses the row")
	assert.Nil(t, again.MeanCoverage)
	require.NotNil(t, again.CramPath)

	other, err := f.metrics.UpsertFromRow(ctx, Row{"member_id": "7", "pipelineid": "dragen_4.0"}, nil)
	require.NoError(t, err)
	assert.NotEqual(t, m.ID, other.ID)

	missing := uint(999)
	_, err = f.metrics.UpsertFromRow(ctx, Row{"member_id": "8"}, &missing)
	assert.ErrorIs(t, err, genomic.ErrRecordNotFound)

	_, err = f.metrics.UpsertFromRow(ctx, Row{"member_id": "x"}, nil)
	assert.True(t, genomic.IsValidationError(err))
}

func TestUpdateDeletedFlagsOnlyTouchesPresentKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.metrics.UpsertFromRow(ctx, Row{"member_id": "1"}, nil)
	require.NoError(t, err)

	require.NoError(t, f.metrics.UpdateDeletedFlags(ctx, Row{"cram": "D", "crai": "D"}, m.ID))
	require.NoError(t, f.metrics.UpdateDeletedFlags(ctx, Row{"crai": ""}, m.ID))

	got, err := f.metrics.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CramDeleted)
	assert.Equal(t, 0, got.CraiDeleted)
	assert.Equal(t, 0, got.VcfDeleted)
}

func TestByMemberIDSkipsIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.metrics.UpsertFromRow(ctx, Row{"member_id": "3", "pipelineid": "p1"}, nil)
	require.NoError(t, err)

	got, err := f.metrics.ByMemberID(ctx, 3, "")
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	_, err = f.metrics.ByMemberID(ctx, 3, "p2")
	assert.ErrorIs(t, err, genomic.ErrRecordNotFound)
}

func TestContaminationReextract(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plain := &ledger.SampleRecord{ParticipantID: 1, BiobankID: "1", GenomeType: config.GenomeTypeWGS, WorkflowState: genomic.StateAW2}
	replated := &ledger.SampleRecord{ParticipantID: 2, BiobankID: "2", GenomeType: config.GenomeTypeWGS, WorkflowState: genomic.StateAW2}
	clean := &ledger.SampleRecord{ParticipantID: 3, BiobankID: "3", GenomeType: config.GenomeTypeWGS, WorkflowState: genomic.StateAW2}
	for _, m := range []*ledger.SampleRecord{plain, replated, clean} {
		require.NoError(t, f.ledger.Create(ctx, m))
	}
	child := []ledger.SampleRecord{{ParticipantID: 2, BiobankID: "2", GenomeType: config.GenomeTypeWGS, WorkflowState: genomic.StateExtractRequested, ReplatedMemberID: &replated.ID}}
	require.NoError(t, f.ledger.InsertBulk(ctx, child))

	for _, r := range []Row{
		{"member_id": "1", "contamination_category": "EXTRACT_BOTH"},
		{"member_id": "2", "contamination_category": "EXTRACT_WGS"},
		{"member_id": "3", "contamination_category": "NO_EXTRACT"},
	} {
		_, err := f.metrics.UpsertFromRow(ctx, r, nil)
		require.NoError(t, err)
	}

	got, err := f.metrics.ContaminationReextract(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, plain.ID, got[0].MemberID)
	assert.Equal(t, genomic.ContaminationExtractBoth, got[0].ContaminationCategory)
}

func TestRecordCountForFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	file := &jobrun.FileProcessed{RunID: 1, FilePath: "bucket/AW2_x.csv", FileName: "AW2_x.csv"}
	require.NoError(t, f.runs.InsertFile(ctx, file))

	for _, member := range []string{"1", "2"} {
		_, err := f.metrics.UpsertFromRow(ctx, Row{"member_id": member, "file_id": "1"}, nil)
		require.NoError(t, err)
	}
	count, err := f.metrics.RecordCountForFile(ctx, "bucket/AW2_x.csv")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestDataFileIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.files.Create(ctx, &DataFile{FilePath: "gs://b/s1.cram", FileType: "cram", IdentifierType: IdentifierSampleID, IdentifierValue: "s1"}))
	require.NoError(t, f.files.Create(ctx, &DataFile{FilePath: "gs://b/s1.cram.crai", FileType: "cram.crai", IdentifierType: IdentifierSampleID, IdentifierValue: "s1", IgnoreFlag: 1}))

	files, err := f.files.ByIdentifier(ctx, IdentifierSampleID, "s1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "cram", files[0].FileType)

	files, err = f.files.ByFilePath(ctx, "gs://b/s1.cram.crai")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRequiredFileTypes(t *testing.T) {
	array, err := RequiredFileTypes(config.GenomeTypeArray)
	require.NoError(t, err)
	assert.Len(t, array, 7)

	wgs, err := RequiredFileTypes(config.GenomeTypeWGS)
	require.NoError(t, err)
	assert.Len(t, wgs, 6)

	_, err = RequiredFileTypes(config.GenomeTypeRNA)
	assert.Error(t, err)

	assert.Equal(t, IdentifierChipwellBarcode, IdentifierTypeFor(config.GenomeTypeArray))
	assert.Equal(t, IdentifierSampleID, IdentifierTypeFor(config.GenomeTypeWGS))
}
