package subworkflow

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
	"github.com/synaptica-ai/genomics/pkg/incident"
	"github.com/synaptica-ai/genomics/pkg/ledger"
	"github.com/synaptica-ai/genomics/pkg/reconcile"
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
	runner       *Runner
	ledger       *ledger.Repository
	participants *ledger.Participants
	incidents    *recorder
	nextPID      uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t, &ledger.SampleRecord{}, &ledger.ParticipantSummary{},
		&ledger.BiobankStoredSample{}, &PipelineMember{})
	clk := clock.NewFixed(t0)
	rec := &recorder{}
	return &fixture{
		runner:       NewRunner(db, clk, rec),
		ledger:       ledger.NewRepository(db, clk),
		participants: ledger.NewParticipants(db),
		incidents:    rec,
		nextPID:      100,
	}
}

func (f *fixture) member(t *testing.T, biobankID, genomeType string, opts ...func(*ledger.SampleRecord, *ledger.ParticipantSummary)) *ledger.SampleRecord {
	t.Helper()
	ctx := context.Background()
	f.nextPID++
	ps := &ledger.ParticipantSummary{
		ParticipantID:             f.nextPID,
		WithdrawalStatus:          ledger.WithdrawalNotWithdrawn,
		SuspensionStatus:          ledger.SuspensionNotSuspended,
		ConsentForStudyEnrollment: ledger.QuestionnaireSubmitted,
	}
	m := &ledger.SampleRecord{
		ParticipantID:          f.nextPID,
		BiobankID:              biobankID,
		CollectionTubeID:       "T" + biobankID,
		GenomeType:             genomeType,
		GCManifestSampleSource: "Whole Blood",
		QcStatus:               genomic.QcPass,
		AIAN:                   "N",
		WorkflowState:          genomic.StateAW1,
	}
	for _, opt := range opts {
		opt(m, ps)
	}
	require.NoError(t, f.participants.SaveSummary(ctx, ps))
	require.NoError(t, f.ledger.Create(ctx, m))
	return m
}

func def(t *testing.T, p Pipeline) Definition {
	t.Helper()
	for _, d := range Definitions {
		if d.Pipeline == p {
			return d
		}
	}
	t.Fatalf("no pipeline %s", p)
	return Definition{}
}

func TestLookup(t *testing.T) {
	d, stage, ok := ForJob(genomic.JobPRP1Workflow)
	require.True(t, ok)
	assert.Equal(t, PipelineProteomics, d.Pipeline)
	assert.Equal(t, StageSample, stage)

	d, stage, ok = ForFamily(reconcile.FamilyLR)
	require.True(t, ok)
	assert.Equal(t, PipelineLongRead, d.Pipeline)
	assert.Equal(t, StageRequest, stage)
	assert.Equal(t, genomic.JobLRLRWorkflow, d.Job(stage))

	_, _, ok = ForFamily(reconcile.FamilyAW1)
	assert.False(t, ok)

	_, err := newFixture(t).runner.Run(context.Background(), genomic.JobAW1Manifest, Request{Rows: []Row{{BiobankID: "1"}}})
	assert.True(t, genomic.IsValidationError(err))
}

func TestLongReadRequestAndSample(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok := f.member(t, "1001", config.GenomeTypeWGS)
	f.member(t, "1002", config.GenomeTypeWGS, func(m *ledger.SampleRecord, _ *ledger.ParticipantSummary) {
		m.BlockResearch = 1
	})
	f.member(t, "1003", config.GenomeTypeWGS, func(_ *ledger.SampleRecord, ps *ledger.ParticipantSummary) {
		ps.WithdrawalStatus = ledger.WithdrawalNoUse
	})
	f.member(t, "1004", config.GenomeTypeArray)

	rows := []Row{
		{BiobankID: "1001", GenomeType: config.GenomeTypeLongRead, SiteID: "BCM", Platform: "pacbio_ccs"},
		{BiobankID: "1002"}, {BiobankID: "1003"}, {BiobankID: "1004"}, {BiobankID: "1005"},
	}
	res, err := f.runner.Run(ctx, genomic.JobLRLRWorkflow, Request{JobRunID: 7, ManifestFileName: "bcm_lr_1.csv", Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SetNumber)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, []string{"1002", "1003", "1004", "1005"}, res.Missing)

	members, err := f.runner.Members(ctx, PipelineLongRead)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, ok.ID, members[0].GenomicSetMemberID)
	assert.Equal(t, "T1001", members[0].CollectionTubeID)
	assert.Equal(t, "bcm", members[0].SiteID)
	assert.Equal(t, "PACBIO_CCS", members[0].Platform)
	assert.Equal(t, config.GenomeTypeLongRead, members[0].GenomeType)
	require.NotNil(t, members[0].CreatedJobRunID)
	assert.Equal(t, uint(7), *members[0].CreatedJobRunID)

	require.Len(t, f.incidents.got, 1)
	inc := f.incidents.got[0]
	assert.Equal(t, genomic.IncidentRequestManifestValidationFail.String(), inc.Code)
	assert.Equal(t, 1, inc.SlackNotification)
	assert.Equal(t, "bcm_lr_1.csv", inc.ManifestFileName)
	assert.Contains(t, inc.Message, "[1002,1003,1004,1005]")

	// sample manifest from another site or platform leaves the member alone
	_, err = f.runner.Run(ctx, genomic.JobLRL1Workflow, Request{Rows: []Row{
		{BiobankID: "1001", CollectionTubeID: "T1001", SampleID: "LR-1", SiteID: "uw", Platform: "PACBIO_CCS"},
	}})
	require.NoError(t, err)
	res, err = f.runner.Run(ctx, genomic.JobLRL1Workflow, Request{Rows: []Row{
		{BiobankID: "1001", CollectionTubeID: "T1001", SampleID: "LR-1", SiteID: "BCM", Platform: "ont"},
	}})
	require.NoError(t, err)
	assert.Zero(t, res.Updated)

	res, err = f.runner.Run(ctx, genomic.JobLRL1Workflow, Request{Rows: []Row{
		{BiobankID: "1001", CollectionTubeID: "T1001", SampleID: "LR-1", SiteID: "BCM", Platform: "PacBio_CCS"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	members, err = f.runner.Members(ctx, PipelineLongRead)
	require.NoError(t, err)
	require.NotNil(t, members[0].SampleID)
	assert.Equal(t, "LR-1", *members[0].SampleID)
}

func TestSetNumberIncrementsPerPipeline(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.member(t, "2001", config.GenomeTypeWGS)
	f.member(t, "2002", config.GenomeTypeWGS)

	req := func(bid string) Request {
		return Request{Rows: []Row{{BiobankID: bid, SiteID: "bcm", Platform: "ONT"}}}
	}
	first, err := f.runner.RunStage(ctx, def(t, PipelineLongRead), StageRequest, req("2001"))
	require.NoError(t, err)
	second, err := f.runner.RunStage(ctx, def(t, PipelineLongRead), StageRequest, req("2002"))
	require.NoError(t, err)
	assert.Equal(t, 1, first.SetNumber)
	assert.Equal(t, 2, second.SetNumber)

	// a re-request of an enrolled member is reported, not duplicated
	again, err := f.runner.RunStage(ctx, def(t, PipelineLongRead), StageRequest, req("2001"))
	require.NoError(t, err)
	assert.Zero(t, again.Inserted)
	assert.Equal(t, []string{"2001"}, again.Missing)

	maxSet, err := f.runner.MaxSet(ctx, PipelineLongRead)
	require.NoError(t, err)
	assert.Equal(t, 2, maxSet)
	rnaSet, err := f.runner.MaxSet(ctx, PipelineRNA)
	require.NoError(t, err)
	assert.Zero(t, rnaSet)
}

func TestUnknownPlatformRejected(t *testing.T) {
	f := newFixture(t)
	_, err := f.runner.Run(context.Background(), genomic.JobLRLRWorkflow, Request{Rows: []Row{
		{BiobankID: "1", Platform: "illumina"},
	}})
	assert.True(t, genomic.IsValidationError(err))
}

func TestProteomicsUsesStoredSampleTube(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.member(t, "3001", config.GenomeTypeArray)
	f.member(t, "3002", config.GenomeTypeArray, func(m *ledger.SampleRecord, _ *ledger.ParticipantSummary) {
		m.AIAN = "Y"
	})
	f.member(t, "3003", config.GenomeTypeArray, func(m *ledger.SampleRecord, _ *ledger.ParticipantSummary) {
		m.QcStatus = genomic.QcFail
	})
	f.member(t, "3004", config.GenomeTypeArray)
	for _, s := range []ledger.BiobankStoredSample{
		{BiobankStoredSampleID: "ED-3001", BiobankID: "3001", Test: "1ED10"},
		{BiobankStoredSampleID: "ED-3002", BiobankID: "3002", Test: "1ED10"},
		{BiobankStoredSampleID: "ED-3003", BiobankID: "3003", Test: "1ED10"},
		{BiobankStoredSampleID: "PX-3004", BiobankID: "3004", Test: "1PXR2"},
	} {
		s := s
		require.NoError(t, f.participants.SaveStoredSample(ctx, &s))
	}

	rows := []Row{{BiobankID: "3001", SiteID: "BI", GenomeType: config.GenomeTypeProteomics}, {BiobankID: "3002"}, {BiobankID: "3003"}, {BiobankID: "3004"}}
	res, err := f.runner.Run(ctx, genomic.JobPRPRWorkflow, Request{ManifestFileName: "bi_pr_1.csv", Rows: rows})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, []string{"3002", "3003", "3004"}, res.Missing)

	members, err := f.runner.Members(ctx, PipelineProteomics)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "ED-3001", members[0].CollectionTubeID)
	assert.Empty(t, members[0].Platform)

	// RNA draws on the other stored sample
	res, err = f.runner.Run(ctx, genomic.JobRNARRWorkflow, Request{Rows: []Row{{BiobankID: "3004", SiteID: "bi"}}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)

	// sample manifests take the site from the file name
	res, err = f.runner.Run(ctx, genomic.JobPRP1Workflow, Request{
		ManifestFileName: "gs://bucket/BI_P1_2026.csv",
		Rows: []Row{
			{BiobankID: "3001", CollectionTubeID: "ED-3001", SampleID: "P-1"},
			{BiobankID: "3009", CollectionTubeID: "ED-3009", SampleID: "P-9"},
			{BiobankID: "3004", CollectionTubeID: "PX-3004"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)

	members, err = f.runner.Members(ctx, PipelineProteomics)
	require.NoError(t, err)
	require.NotNil(t, members[0].SampleID)
	assert.Equal(t, "P-1", *members[0].SampleID)
}

func TestSiteFromFileName(t *testing.T) {
	assert.Equal(t, "bi", siteFromFileName("BI_P1_2026.csv"))
	assert.Equal(t, "uw", siteFromFileName("gs://x/y/UW_R1.csv"))
}
