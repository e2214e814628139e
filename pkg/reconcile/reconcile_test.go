package reconcile

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/genomics/pkg/common/clock"
	"github.com/synaptica-ai/genomics/pkg/common/config"
	"github.com/synaptica-ai/genomics/pkg/common/testutil"
	"github.com/synaptica-ai/genomics/pkg/gcmetrics"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"github.com/synaptica-ai/genomics/pkg/jobrun"
	"github.com/synaptica-ai/genomics/pkg/ledger"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	clk     *clock.Fixed
	engine  *Engine
	raw     *RawRepository
	ledger  *ledger.Repository
	metrics *gcmetrics.Repository
	files   *gcmetrics.DataFileRepository
	runs    *jobrun.Repository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.NewDB(t,
		&RawManifestRow{}, &PastDueResult{},
		&ledger.SampleRecord{}, &gcmetrics.Metrics{}, &gcmetrics.DataFile{},
		&jobrun.JobRun{},
	)
	clk := clock.NewFixed(t0)
	engine := NewEngine(db, clk, config.DefaultSettings())
	return fixture{
		clk:     clk,
		engine:  engine,
		raw:     engine.Raw(),
		ledger:  ledger.NewRepository(db, clk),
		metrics: gcmetrics.NewRepository(db, clk),
		files:   gcmetrics.NewDataFileRepository(db, clk),
		runs:    jobrun.NewRepository(db, clk),
	}
}

func strPtr(s string) *string { return &s }

func (f fixture) member(t *testing.T, m ledger.SampleRecord) *ledger.SampleRecord {
	t.Helper()
	require.NoError(t, f.ledger.Create(context.Background(), &m))
	return &m
}

func (f fixture) rawRows(t *testing.T, rows ...RawManifestRow) {
	t.Helper()
	require.NoError(t, f.raw.InsertBatch(context.Background(), rows))
}

func TestIngestionDeltaScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m := f.member(t, ledger.SampleRecord{
		ParticipantID: 42,
		BiobankID:     "B1",
		SampleID:      strPtr("S1"),
		GenomeType:    config.GenomeTypeWGS,
		WorkflowState: genomic.StateAW1,
	})
	f.rawRows(t, RawManifestRow{
		ManifestType: FamilyAW2,
		FilePath:     "gc-bucket/AW2_SEQ_001.csv",
		BiobankID:    "B1",
		SampleID:     "S1",
	})

	deltas, err := f.engine.FindIngestionDeltas(ctx, FamilyAW2)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, "S1", deltas[0].SampleID)

	_, err = f.metrics.UpsertFromRow(ctx, gcmetrics.Row{"member_id": fmt.Sprint(m.ID)}, nil)
	require.NoError(t, err)

	deltas, err = f.engine.FindIngestionDeltas(ctx, FamilyAW2)
	require.NoError(t, err)
	assert.Empty(t, deltas)
}

func TestAW2DeltaSkipsReplatedMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parent := f.member(t, ledger.SampleRecord{ParticipantID: 1, BiobankID: "B1", GenomeType: config.GenomeTypeWGS})
	f.member(t, ledger.SampleRecord{
		ParticipantID:    2,
		BiobankID:        "B2",
		SampleID:         strPtr("S2"),
		GenomeType:       config.GenomeTypeWGS,
		ReplatedMemberID: &parent.ID,
	})
	f.rawRows(t, RawManifestRow{ManifestType: FamilyAW2, BiobankID: "B2", SampleID: "S2"})

	deltas, err := f.engine.FindIngestionDeltas(ctx, FamilyAW2)
	require.NoError(t, err)
	assert.Empty(t, deltas)
}

func TestAW1DeltasMatchOnBiobankAndTube(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.member(t, ledger.SampleRecord{
		ParticipantID:    1,
		BiobankID:        "B1",
		CollectionTubeID: "T1",
		GenomeType:       config.GenomeTypeWGS,
	})
	aw1 := func(bid, tube, sample string) RawManifestRow {
		return RawManifestRow{
			ManifestType:     FamilyAW1,
			FilePath:         "bb-bucket/AW1_SEQ_001.csv",
			BiobankID:        bid,
			CollectionTubeID: tube,
			SampleID:         sample,
			TestName:         config.GenomeTypeWGS,
		}
	}
	ignored := aw1("B4", "T4", "S4")
	ignored.IgnoreFlag = 1
	f.rawRows(t,
		aw1("B1", "T1", "S1"),
		aw1("B1", "T9", "S9"),
		aw1("B3", "", "S3"),
		ignored,
	)

	deltas, err := f.engine.FindIngestionDeltas(ctx, FamilyAW1)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, "T9", deltas[0].CollectionTubeID)

	_, err = f.engine.FindIngestionDeltas(ctx, FamilyL1)
	assert.Error(t, err)
}

func TestDeltaDuplicatesKeepNewestThenHighestID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.member(t, ledger.SampleRecord{ParticipantID: 1, BiobankID: "B1", SampleID: strPtr("S1"), GenomeType: config.GenomeTypeWGS})
	f.member(t, ledger.SampleRecord{ParticipantID: 2, BiobankID: "B2", SampleID: strPtr("S2"), GenomeType: config.GenomeTypeWGS})

	f.rawRows(t,
		RawManifestRow{ManifestType: FamilyAW2, Created: t0.Add(time.Hour), FilePath: "newest", BiobankID: "B1", SampleID: "S1"},
		RawManifestRow{ManifestType: FamilyAW2, Created: t0, FilePath: "older", BiobankID: "B1", SampleID: "S1"},
		RawManifestRow{ManifestType: FamilyAW2, Created: t0, FilePath: "tie-low", BiobankID: "B2", SampleID: "S2"},
		RawManifestRow{ManifestType: FamilyAW2, Created: t0, FilePath: "tie-high", BiobankID: "B2", SampleID: "S2"},
	)

	deltas, err := f.engine.FindIngestionDeltas(ctx, FamilyAW2)
	require.NoError(t, err)
	require.Len(t, deltas, 2)
	assert.Equal(t, "newest", deltas[0].FilePath)
	assert.Equal(t, "tie-high", deltas[1].FilePath)
	assert.Less(t, deltas[0].ID, deltas[1].ID, "deltas are ordered by id")
}

func TestIncompleteNewerDuplicateDoesNotHideDelta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.rawRows(t,
		RawManifestRow{ManifestType: FamilyAW1, Created: t0, FilePath: "valid",
			BiobankID: "B5", CollectionTubeID: "T5", SampleID: "S5", TestName: config.GenomeTypeWGS},
		RawManifestRow{ManifestType: FamilyAW1, Created: t0.Add(time.Hour), FilePath: "no-sample",
			BiobankID: "B5", CollectionTubeID: "T5", TestName: config.GenomeTypeWGS},
		RawManifestRow{ManifestType: FamilyAW1, Created: t0.Add(2 * time.Hour), FilePath: "no-test",
			BiobankID: "B5", CollectionTubeID: "T5", SampleID: "S6"},
	)

	deltas, err := f.engine.FindIngestionDeltas(ctx, FamilyAW1)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, "valid", deltas[0].FilePath)
}

func TestLatestByIdentifier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.rawRows(t,
		RawManifestRow{ManifestType: FamilyAW2, Created: t0, FilePath: "gc/AW2_SEQ_1.csv", SampleID: "S1"},
		RawManifestRow{ManifestType: FamilyAW2, Created: t0.Add(time.Hour), FilePath: "gc/AW2_SEQ_2.csv", SampleID: "S1"},
		RawManifestRow{ManifestType: FamilyAW2, Created: t0.Add(2 * time.Hour), FilePath: "gc/AW2_GEN_3.csv", SampleID: "S1"},
		RawManifestRow{ManifestType: FamilyAW2, Created: t0.Add(3 * time.Hour), FilePath: "gc/AW2XSEQX4.csv", SampleID: "S1"},
		RawManifestRow{ManifestType: FamilyAW1, Created: t0, FilePath: "bb/AW1_SEQ_1.csv", BiobankID: "B1", SampleID: "S1"},
	)

	row, err := f.raw.LatestByIdentifier(ctx, FamilyAW2, "S1", config.GenomeTypeWGS, nil)
	require.NoError(t, err)
	assert.Equal(t, "gc/AW2_SEQ_2.csv", row.FilePath, "underscores in the prefix are literal")

	row, err = f.raw.LatestByIdentifier(ctx, FamilyAW2, "S1", config.GenomeTypeArray, nil)
	require.NoError(t, err)
	assert.Equal(t, "gc/AW2_GEN_3.csv", row.FilePath)

	after := t0.Add(time.Hour)
	_, err = f.raw.LatestByIdentifier(ctx, FamilyAW2, "S1", config.GenomeTypeWGS, &after)
	assert.ErrorIs(t, err, genomic.ErrRecordNotFound)

	row, err = f.raw.LatestByIdentifier(ctx, FamilyAW1, "B1", config.GenomeTypeWGS, nil)
	require.NoError(t, err)
	assert.Equal(t, "bb/AW1_SEQ_1.csv", row.FilePath)

	_, err = f.raw.LatestByIdentifier(ctx, FamilyAW2, "S1", "aou_unknown", nil)
	assert.Error(t, err)
}

func TestRawRowsByFilePath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	path := "bb/AW1_SEQ_1.csv"
	f.rawRows(t,
		RawManifestRow{ManifestType: FamilyAW1, FilePath: path, BiobankID: "B1"},
		RawManifestRow{ManifestType: FamilyAW1, FilePath: path, BiobankID: "B2"},
		RawManifestRow{ManifestType: FamilyAW1, FilePath: path},
		RawManifestRow{ManifestType: FamilyAW1, FilePath: "bb/other.csv", BiobankID: "B3"},
	)

	count, err := f.raw.CountForFilePath(ctx, FamilyAW1, path)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "blank AW1 lines are not counted")

	rows, err := f.raw.ByFilePath(ctx, FamilyAW1, path)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	removed, err := f.raw.DeleteByFilePath(ctx, FamilyAW1, path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	count, err = f.raw.CountForFilePath(ctx, FamilyAW1, path)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func (f fixture) dataFiles(t *testing.T, identifierType, value string, types []string) {
	t.Helper()
	for _, ft := range types {
		require.NoError(t, f.files.Create(context.Background(), &gcmetrics.DataFile{
			FilePath:        "gc/" + value + "." + ft,
			FileType:        ft,
			IdentifierType:  identifierType,
			IdentifierValue: value,
		}))
	}
}

func TestFileCompletenessIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	required, err := gcmetrics.RequiredFileTypes(config.GenomeTypeWGS)
	require.NoError(t, err)
	k := len(required)

	m := f.member(t, ledger.SampleRecord{
		ParticipantID: 1,
		BiobankID:     "B1",
		SampleID:      strPtr("S1"),
		GenomeType:    config.GenomeTypeWGS,
		WorkflowState: genomic.StateGCDataFilesMissing,
	})
	f.dataFiles(t, gcmetrics.IdentifierSampleID, "S1", required[:k-1])
	// an ignored copy of the last type does not count
	require.NoError(t, f.files.Create(ctx, &gcmetrics.DataFile{
		FileType:        required[k-1],
		IdentifierType:  gcmetrics.IdentifierSampleID,
		IdentifierValue: "S1",
		IgnoreFlag:      1,
	}))

	found, err := f.engine.FindMissingRequiredFiles(ctx, config.GenomeTypeWGS, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
	has, err := f.engine.HasAllRequiredFiles(ctx, *m)
	require.NoError(t, err)
	assert.False(t, has)

	f.dataFiles(t, gcmetrics.IdentifierSampleID, "S1", required[k-1:])
	// duplicates of a type already present add nothing
	f.dataFiles(t, gcmetrics.IdentifierSampleID, "S1", required[:1])

	found, err = f.engine.FindMissingRequiredFiles(ctx, config.GenomeTypeWGS, nil)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, m.ID, found[0].ID)
	has, err = f.engine.HasAllRequiredFiles(ctx, *m)
	require.NoError(t, err)
	assert.True(t, has)

	found, err = f.engine.FindMissingRequiredFiles(ctx, config.GenomeTypeWGS, []string{"S2"})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestArrayFilesKeyedByChipwellBarcode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	required, err := gcmetrics.RequiredFileTypes(config.GenomeTypeArray)
	require.NoError(t, err)

	m := f.member(t, ledger.SampleRecord{
		ParticipantID: 1,
		BiobankID:     "B1",
		SampleID:      strPtr("S1"),
		GenomeType:    config.GenomeTypeArray,
		WorkflowState: genomic.StateGCDataFilesMissing,
	})
	f.dataFiles(t, gcmetrics.IdentifierChipwellBarcode, "CWB_R01C01", required)

	found, err := f.engine.FindMissingRequiredFiles(ctx, config.GenomeTypeArray, nil)
	require.NoError(t, err)
	assert.Empty(t, found, "files are matched through the metrics barcode")

	_, err = f.metrics.UpsertFromRow(ctx, gcmetrics.Row{
		"member_id":       fmt.Sprint(m.ID),
		"chipwellbarcode": "CWB_R01C01",
	}, nil)
	require.NoError(t, err)

	found, err = f.engine.FindMissingRequiredFiles(ctx, config.GenomeTypeArray, nil)
	require.NoError(t, err)
	require.Len(t, found, 1)

	_, err = f.engine.FindMissingRequiredFiles(ctx, config.GenomeTypeLongRead, nil)
	assert.Error(t, err)
}

func TestDeadlinePolicy(t *testing.T) {
	policies := PoliciesFromLimits(config.CVLLimits{PGXTimeLimit: 30, HDRTimeLimit: 30, W3SCExtension: 10})

	pgx := policies[genomic.ModulePGXV1]
	assert.True(t, pgx.PastDue(t0, false, t0.AddDate(0, 0, 31)))
	assert.False(t, pgx.PastDue(t0, false, t0.AddDate(0, 0, 29)))
	assert.Equal(t, pgx.Deadline(t0, false), pgx.Deadline(t0, true), "pgx has no checkpoint")

	hdr := policies[genomic.ModuleHDRV1]
	assert.Equal(t, t0.AddDate(0, 0, 30), hdr.Deadline(t0, false))
	assert.Equal(t, t0.AddDate(0, 0, 40), hdr.Deadline(t0, true))
	assert.False(t, hdr.PastDue(t0, true, t0.AddDate(0, 0, 39)))
	assert.True(t, hdr.PastDue(t0, true, t0.AddDate(0, 0, 41)))

	now := t0.AddDate(0, 0, 35)
	assert.Equal(t, t0.AddDate(0, 0, 5), hdr.Cutoff(now, false))
	assert.Equal(t, t0.AddDate(0, 0, -5), hdr.Cutoff(now, true))
}

// cvlMember creates a WGS member whose informing-loop run for module
// started at the fixture clock's current time.
func (f fixture) cvlMember(t *testing.T, participant uint, sample string, module genomic.ResultsModuleType) *ledger.SampleRecord {
	t.Helper()
	run, err := f.runs.InsertRun(context.Background(), genomic.JobCVLW1ILWorkflow)
	require.NoError(t, err)
	m := ledger.SampleRecord{
		ParticipantID: participant,
		BiobankID:     fmt.Sprintf("B%d", participant),
		SampleID:      strPtr(sample),
		GenomeType:    config.GenomeTypeWGS,
		GCSiteID:      "bcm",
		WorkflowState: genomic.StateCVLW1IL,
	}
	if module == genomic.ModulePGXV1 {
		m.CVLW1ILPGXJobRunID = &run.ID
	} else {
		m.CVLW1ILHDRJobRunID = &run.ID
	}
	return f.member(t, m)
}

func TestPastDuePGX(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m := f.cvlMember(t, 1, "S1", genomic.ModulePGXV1)
	f.cvlMember(t, 2, "S2", genomic.ModuleHDRV1)

	due, err := f.engine.FindPastDueResults(ctx, genomic.ModulePGXV1, t0.AddDate(0, 0, 29))
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = f.engine.FindPastDueResults(ctx, genomic.ModulePGXV1, t0.AddDate(0, 0, 31))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, m.ID, due[0].GenomicSetMemberID)
	assert.Equal(t, "S1", due[0].SampleID)
	assert.Equal(t, "bcm", due[0].CVLSiteID)
	assert.Equal(t, genomic.ModulePGXV1, due[0].ResultsType)

	// an HDR result does not satisfy PGX
	f.rawRows(t, RawManifestRow{ManifestType: FamilyW4WR, SampleID: "S1", ClinicalAnalysisType: string(genomic.ModuleHDRV1)})
	due, err = f.engine.FindPastDueResults(ctx, genomic.ModulePGXV1, t0.AddDate(0, 0, 31))
	require.NoError(t, err)
	assert.Len(t, due, 1)

	f.rawRows(t, RawManifestRow{ManifestType: FamilyW4WR, SampleID: "S1", ClinicalAnalysisType: string(genomic.ModulePGXV1)})
	due, err = f.engine.FindPastDueResults(ctx, genomic.ModulePGXV1, t0.AddDate(0, 0, 31))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestPastDueHDRCheckpointExtension(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.cvlMember(t, 1, "S1", genomic.ModuleHDRV1)
	f.cvlMember(t, 2, "S2", genomic.ModuleHDRV1)
	f.cvlMember(t, 3, "S3", genomic.ModuleHDRV1)
	f.rawRows(t,
		RawManifestRow{ManifestType: FamilyW3SC, SampleID: "S2"},
		RawManifestRow{ManifestType: FamilyW2W, SampleID: "S3"},
	)

	samples := func(now time.Time) []string {
		due, err := f.engine.FindPastDueResults(ctx, genomic.ModuleHDRV1, now)
		require.NoError(t, err)
		out := make([]string, len(due))
		for i, d := range due {
			out[i] = d.SampleID
		}
		return out
	}

	assert.Empty(t, samples(t0.AddDate(0, 0, 29)))
	assert.Equal(t, []string{"S1"}, samples(t0.AddDate(0, 0, 31)), "checkpoint extends S2, withdrawal cancels S3")
	assert.Equal(t, []string{"S1"}, samples(t0.AddDate(0, 0, 39)))
	assert.Equal(t, []string{"S1", "S2"}, samples(t0.AddDate(0, 0, 41)))
}

func TestPastDueLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.cvlMember(t, 1, "S1", genomic.ModulePGXV1)
	f.cvlMember(t, 2, "S2", genomic.ModulePGXV1)
	now := t0.AddDate(0, 0, 31)
	f.clk.Set(now)

	due, err := f.engine.FindPastDueResults(ctx, genomic.ModulePGXV1, now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	require.NoError(t, f.engine.RecordPastDue(ctx, due))

	due, err = f.engine.FindPastDueResults(ctx, genomic.ModulePGXV1, now)
	require.NoError(t, err)
	assert.Empty(t, due, "recorded samples are not found again")

	pending, err := f.engine.SamplesForNotification(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	err = f.engine.BatchUpdate(ctx, ActionAlert, []uint{pending[0].ID, 9999})
	assert.ErrorIs(t, err, genomic.ErrRecordNotFound)
	still, err := f.engine.SamplesForNotification(ctx)
	require.NoError(t, err)
	assert.Len(t, still, 2, "a failed batch changes nothing")

	require.NoError(t, f.engine.BatchUpdate(ctx, ActionAlert, []uint{pending[0].ID, pending[1].ID}))
	still, err = f.engine.SamplesForNotification(ctx)
	require.NoError(t, err)
	assert.Empty(t, still)

	toResolve, err := f.engine.SamplesToResolve(ctx)
	require.NoError(t, err)
	assert.Empty(t, toResolve)

	f.rawRows(t, RawManifestRow{ManifestType: FamilyW4WR, SampleID: "S2", ClinicalAnalysisType: string(genomic.ModulePGXV1)})
	toResolve, err = f.engine.SamplesToResolve(ctx)
	require.NoError(t, err)
	require.Len(t, toResolve, 1)
	assert.Equal(t, "S2", toResolve[0].SampleID)

	require.NoError(t, f.engine.BatchUpdate(ctx, ActionResolve, []uint{toResolve[0].ID}))
	toResolve, err = f.engine.SamplesToResolve(ctx)
	require.NoError(t, err)
	assert.Empty(t, toResolve)

	err = f.engine.BatchUpdate(ctx, PastDueAction("snooze"), []uint{1})
	assert.True(t, genomic.IsValidationError(err))
}

func TestIngestionCountsSince(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.member(t, ledger.SampleRecord{ParticipantID: 1, BiobankID: "B1", CollectionTubeID: "T1", GenomeType: config.GenomeTypeWGS})
	f.rawRows(t,
		RawManifestRow{ManifestType: FamilyAW1, Created: t0.Add(-time.Hour), FilePath: "old.csv", BiobankID: "B0", CollectionTubeID: "T0"},
		RawManifestRow{ManifestType: FamilyAW1, Created: t0, FilePath: "a.csv", BiobankID: "B1", CollectionTubeID: "T1"},
		RawManifestRow{ManifestType: FamilyAW1, Created: t0, FilePath: "a.csv", BiobankID: "B2", CollectionTubeID: "T2"},
		RawManifestRow{ManifestType: FamilyAW1, Created: t0, FilePath: "a.csv"},
	)

	counts, err := f.engine.IngestionCountsSince(ctx, t0, FamilyAW1)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, "a.csv", counts[0].FilePath)
	assert.Equal(t, int64(2), counts[0].RawCount)
	assert.Equal(t, int64(1), counts[0].IngestedCount)
	assert.False(t, counts[0].Complete())
}
