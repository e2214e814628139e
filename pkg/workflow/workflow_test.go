package workflow

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
	"github.com/synaptica-ai/genomics/pkg/ledger"
	"gorm.io/gorm"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	db           *gorm.DB
	clock        *clock.Fixed
	ledger       *ledger.Repository
	participants *ledger.Participants
	machine      *Machine
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testutil.NewDB(t, &ledger.SampleRecord{}, &gcmetrics.Metrics{},
		&ledger.ParticipantSummary{}, &ledger.ConsentFile{},
		&ledger.BiobankOrder{}, &ledger.BiobankOrderIdentifier{}, &ledger.BiobankStoredSample{})
	clk := clock.NewFixed(t0)
	repo := ledger.NewRepository(db, clk)
	return fixture{
		db:           db,
		clock:        clk,
		ledger:       repo,
		participants: ledger.NewParticipants(db),
		machine:      NewMachine(repo),
	}
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

// seedEligible creates a WGS record that satisfies every informing loop
// condition, with its biobank order finalized at finalized.
func (f fixture) seedEligible(t *testing.T, pid uint, finalized time.Time) *ledger.SampleRecord {
	t.Helper()
	ctx := context.Background()
	tube := fmt.Sprintf("tube-%d", pid)

	rec := &ledger.SampleRecord{
		ParticipantID:          pid,
		BiobankID:              fmt.Sprintf("%d", 1000+pid),
		SampleID:               strPtr(fmt.Sprintf("S%d", pid)),
		CollectionTubeID:       tube,
		GenomeType:             config.GenomeTypeWGS,
		WorkflowState:          genomic.StateCVLReady,
		QcStatus:               genomic.QcPass,
		GCManifestSampleSource: "Whole Blood",
	}
	require.NoError(t, f.ledger.Create(ctx, rec))
	require.NoError(t, f.participants.SaveSummary(ctx, &ledger.ParticipantSummary{
		ParticipantID:             pid,
		WithdrawalStatus:          ledger.WithdrawalNotWithdrawn,
		SuspensionStatus:          ledger.SuspensionNotSuspended,
		DeceasedStatus:            ledger.DeceasedUnset,
		ConsentForStudyEnrollment: ledger.QuestionnaireSubmitted,
		ConsentForGenomicsROR:     ledger.QuestionnaireSubmitted,
	}))
	require.NoError(t, f.participants.SaveConsentFile(ctx, &ledger.ConsentFile{
		ParticipantID: pid,
		Type:          ledger.ConsentTypeGROR,
		SyncStatus:    ledger.ConsentSyncReadyForSync,
	}))
	memberID := rec.ID
	require.NoError(t, f.db.Create(&gcmetrics.Metrics{
		Created:            t0,
		Modified:           t0,
		GenomicSetMemberID: &memberID,
		ProcessingStatus:   strPtr("Pass"),
		SexConcordance:     strPtr("True"),
		DrcSexConcordance:  strPtr("Pass"),
		DrcFpConcordance:   strPtr("PASS"),
	}).Error)
	require.NoError(t, f.participants.SaveBiobankOrder(ctx, &ledger.BiobankOrder{
		BiobankOrderID: fmt.Sprintf("order-%d", pid),
		ParticipantID:  pid,
		FinalizedTime:  &finalized,
	}, fmt.Sprintf("ident-%d", pid), tube))
	return rec
}

func TestAdvanceRecordsStateMirrorAndTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := &ledger.SampleRecord{ParticipantID: 42, BiobankID: "42", GenomeType: config.GenomeTypeWGS, WorkflowState: genomic.StateAW1}
	require.NoError(t, f.ledger.Create(ctx, rec))

	f.clock.Advance(time.Hour)
	require.NoError(t, f.machine.Advance(ctx, rec.ID, genomic.StateAW2))

	got, err := f.ledger.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, genomic.StateAW2, got.WorkflowState)
	assert.Equal(t, "AW2", got.WorkflowStateStr)
	require.NotNil(t, got.WorkflowStateModifiedTime)
	assert.True(t, got.WorkflowStateModifiedTime.Equal(t0.Add(time.Hour)))

	// Off-shape moves are recorded, not dropped.
	require.NoError(t, f.machine.Advance(ctx, rec.ID, genomic.StateGEMReady))
	got, err = f.ledger.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, genomic.StateGEMReady, got.WorkflowState)

	err = f.machine.Advance(ctx, 9999, genomic.StateAW2)
	assert.ErrorIs(t, err, genomic.ErrRecordNotFound)

	err = f.machine.AdvanceMany(ctx, []uint{rec.ID, 9999}, genomic.StateAW2Fail)
	assert.ErrorIs(t, err, genomic.ErrRecordNotFound)
	got, err = f.ledger.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, genomic.StateGEMReady, got.WorkflowState, "failed batch applies nothing")
}

func TestUpdateJobRunIDRejectsUnknownField(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := &ledger.SampleRecord{ParticipantID: 1, BiobankID: "1", GenomeType: config.GenomeTypeWGS}
	require.NoError(t, f.ledger.Create(ctx, rec))

	result, err := f.machine.UpdateJobRunID(ctx, []uint{rec.ID}, genomic.JobRunField(999), 5)
	assert.ErrorIs(t, err, genomic.ErrInvalidField)
	assert.Equal(t, genomic.ResultError, result)

	result, err = f.machine.UpdateJobRunID(ctx, []uint{rec.ID}, genomic.FieldCVLW1ILHDRJobRun, 5)
	require.NoError(t, err)
	assert.Equal(t, genomic.ResultSuccess, result)
}

func TestShape(t *testing.T) {
	tests := []struct {
		name       string
		genomeType string
		from, to   genomic.WorkflowState
		ok         bool
	}{
		{"wgs intake", config.GenomeTypeWGS, genomic.StateAW1, genomic.StateAW2, true},
		{"wgs to cvl", config.GenomeTypeWGS, genomic.StateAW2, genomic.StateCVLReady, true},
		{"wgs to gem", config.GenomeTypeWGS, genomic.StateAW2, genomic.StateGEMReady, false},
		{"array to gem report", config.GenomeTypeArray, genomic.StateGEMReady, genomic.StateGEMRptReady, true},
		{"array to terminal", config.GenomeTypeArray, genomic.StateAW1, genomic.StateIgnore, true},
		{"out of terminal", config.GenomeTypeArray, genomic.StateWithdrawn, genomic.StateAW1, false},
		{"long read", config.GenomeTypeLongRead, genomic.StateLRPending, genomic.StateLRAccepted, true},
		{"untabled genome type", config.GenomeTypeRNA, genomic.StateAW1, genomic.StateGEMReady, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := Shape(tc.genomeType, tc.from, tc.to)
			assert.Equal(t, tc.ok, ok, reason)
		})
	}
	assert.True(t, IsTerminal(genomic.StateControlSample))
	assert.False(t, IsTerminal(genomic.StateAW2))
}

func TestFindReadyForInformingLoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	late := f.seedEligible(t, 1, t0.Add(-time.Hour))
	early := f.seedEligible(t, 2, t0.Add(-48*time.Hour))
	withdrawn := f.seedEligible(t, 3, t0.Add(-72*time.Hour))
	blocked := f.seedEligible(t, 4, t0.Add(-72*time.Hour))
	unsynced := f.seedEligible(t, 5, t0.Add(-72*time.Hour))

	require.NoError(t, f.db.Model(&ledger.ParticipantSummary{}).
		Where("participant_id = ?", withdrawn.ParticipantID).
		Update("withdrawal_status", ledger.WithdrawalNoUse).Error)
	_, err := f.ledger.BatchUpdateField(ctx, []uint{blocked.ID}, ledger.FieldBlockResults, 1)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&ledger.ConsentFile{}).
		Where("participant_id = ?", unsynced.ParticipantID).
		Update("sync_status", ledger.ConsentSyncNeedsCorrecting).Error)

	ready, err := f.machine.FindReadyForInformingLoop(ctx, 0)
	require.NoError(t, err)
	require.Len(t, ready, 2)
	assert.Equal(t, early.ID, ready[0].ID)
	assert.Equal(t, late.ID, ready[1].ID)

	limited, err := f.machine.FindReadyForInformingLoop(ctx, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, early.ID, limited[0].ID)

	none, err := f.machine.ReadyForParticipant(ctx, early.ParticipantID)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, f.machine.SetInformingLoopReady(ctx, early.ID))

	flagged, err := f.machine.ReadyForParticipant(ctx, early.ParticipantID)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, 1, flagged[0].InformingLoopReadyFlag)

	ready, err = f.machine.FindReadyForInformingLoop(ctx, 0)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, late.ID, ready[0].ID)
}

func TestInformingLoopRequiresPassingMetrics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.seedEligible(t, 1, t0)
	require.NoError(t, f.db.Model(&gcmetrics.Metrics{}).
		Where("genomic_set_member_id = ?", rec.ID).
		Update("drc_fp_concordance", "fail").Error)

	ready, err := f.machine.FindReadyForInformingLoop(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, ready)
}

func TestIgnoredBiobankOrderIsNotReady(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	flagged := f.seedEligible(t, 7, t0.Add(-time.Hour))
	require.NoError(t, f.machine.SetInformingLoopReady(ctx, flagged.ID))
	unflagged := f.seedEligible(t, 8, t0.Add(-2*time.Hour))

	got, err := f.machine.ReadyForParticipant(ctx, flagged.ParticipantID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	ready, err := f.machine.FindReadyForInformingLoop(ctx, 0)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, unflagged.ID, ready[0].ID)

	require.NoError(t, f.db.Model(&ledger.BiobankOrder{}).
		Where("biobank_order_id IN ?", []string{"order-7", "order-8"}).
		Update("is_ignored", 1).Error)

	got, err = f.machine.ReadyForParticipant(ctx, flagged.ParticipantID)
	require.NoError(t, err)
	assert.Empty(t, got)
	ready, err = f.machine.FindReadyForInformingLoop(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, ready)
}

func TestInformingLoopRequiresBiobankOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.seedEligible(t, 1, t0)
	require.NoError(t, f.db.Where("biobank_stored_sample_id = ?", rec.CollectionTubeID).
		Delete(&ledger.BiobankStoredSample{}).Error)

	ready, err := f.machine.FindReadyForInformingLoop(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, ready)
}

func TestConsentRemovalDatePicksEarliestRevoked(t *testing.T) {
	t1 := t0.Add(-24 * time.Hour)
	t2 := t0.Add(-72 * time.Hour)
	t3 := t0.Add(-time.Hour)

	date, ok := ConsentRemovalDate(ledger.ParticipantSummary{
		ConsentForGenomicsROR:             ledger.QuestionnaireSubmittedNoConsent,
		ConsentForGenomicsRORAuthored:     timePtr(t1),
		ConsentForStudyEnrollment:         ledger.QuestionnaireSubmittedNoConsent,
		ConsentForStudyEnrollmentAuthored: timePtr(t2),
		WithdrawalStatus:                  ledger.WithdrawalNoUse,
		WithdrawalAuthored:                timePtr(t3),
	})
	require.True(t, ok)
	assert.True(t, date.Equal(t2))

	date, ok = ConsentRemovalDate(ledger.ParticipantSummary{
		ConsentForGenomicsROR:             ledger.QuestionnaireSubmittedNoConsent,
		ConsentForGenomicsRORAuthored:     timePtr(t1),
		ConsentForStudyEnrollment:         ledger.QuestionnaireSubmitted,
		ConsentForStudyEnrollmentAuthored: timePtr(t2),
		WithdrawalStatus:                  ledger.WithdrawalNotWithdrawn,
		WithdrawalAuthored:                timePtr(t3),
	})
	require.True(t, ok)
	assert.True(t, date.Equal(t1), "submitted consents do not count")

	_, ok = ConsentRemovalDate(ledger.ParticipantSummary{
		ConsentForGenomicsROR:     ledger.QuestionnaireSubmitted,
		ConsentForStudyEnrollment: ledger.QuestionnaireSubmitted,
		WithdrawalStatus:          ledger.WithdrawalNotWithdrawn,
	})
	assert.False(t, ok)
}

func TestConsentRemovalJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	revokedAt := t0.Add(-24 * time.Hour)
	rec := &ledger.SampleRecord{ParticipantID: 7, BiobankID: "7", GenomeType: config.GenomeTypeArray, WorkflowState: genomic.StateGEMRptReady}
	require.NoError(t, f.ledger.Create(ctx, rec))
	summary := &ledger.ParticipantSummary{
		ParticipantID:                 7,
		WithdrawalStatus:              ledger.WithdrawalNotWithdrawn,
		ConsentForStudyEnrollment:     ledger.QuestionnaireSubmitted,
		ConsentForGenomicsROR:         ledger.QuestionnaireSubmittedNoConsent,
		ConsentForGenomicsRORAuthored: &revokedAt,
	}
	require.NoError(t, f.participants.SaveSummary(ctx, summary))

	kept := &ledger.SampleRecord{ParticipantID: 8, BiobankID: "8", GenomeType: config.GenomeTypeArray, WorkflowState: genomic.StateGEMRptReady}
	require.NoError(t, f.ledger.Create(ctx, kept))
	require.NoError(t, f.participants.SaveSummary(ctx, &ledger.ParticipantSummary{
		ParticipantID:             8,
		WithdrawalStatus:          ledger.WithdrawalNotWithdrawn,
		ConsentForStudyEnrollment: ledger.QuestionnaireSubmitted,
		ConsentForGenomicsROR:     ledger.QuestionnaireSubmitted,
	}))

	result, err := f.machine.ConsentRemoval(ctx, f.participants, t0)
	require.NoError(t, err)
	assert.Equal(t, ConsentRemovalSummary{PendingDelete: 1}, result)

	got, err := f.ledger.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, genomic.StateGEMRptPendingDelete, got.WorkflowState)
	require.NotNil(t, got.ReportConsentRemovalDate)
	assert.True(t, got.ReportConsentRemovalDate.Equal(revokedAt))

	got, err = f.ledger.Get(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, genomic.StateGEMRptReady, got.WorkflowState)

	reconsentAt := t0.Add(2 * time.Hour)
	summary.ConsentForGenomicsROR = ledger.QuestionnaireSubmitted
	summary.ConsentForGenomicsRORAuthored = &reconsentAt
	require.NoError(t, f.participants.SaveSummary(ctx, summary))

	f.clock.Advance(3 * time.Hour)
	result, err = f.machine.ConsentRemoval(ctx, f.participants, t0)
	require.NoError(t, err)
	assert.Equal(t, ConsentRemovalSummary{Restored: 1}, result)

	got, err = f.ledger.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, genomic.StateGEMRptReady, got.WorkflowState)
	assert.Nil(t, got.ReportConsentRemovalDate)
}

type fakeFinder map[string][]ledger.SampleRecord

func (f fakeFinder) FindMissingRequiredFiles(_ context.Context, genomeType string, _ []string) ([]ledger.SampleRecord, error) {
	return f[genomeType], nil
}

func TestResolvedDataFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	array := &ledger.SampleRecord{ParticipantID: 1, BiobankID: "1", GenomeType: config.GenomeTypeArray, WorkflowState: genomic.StateGCDataFilesMissing}
	wgs := &ledger.SampleRecord{ParticipantID: 1, BiobankID: "1", GenomeType: config.GenomeTypeWGS, WorkflowState: genomic.StateGCDataFilesMissing}
	require.NoError(t, f.ledger.Create(ctx, array))
	require.NoError(t, f.ledger.Create(ctx, wgs))

	moved, err := f.machine.ResolvedDataFiles(ctx, fakeFinder{
		config.GenomeTypeArray: {*array},
		config.GenomeTypeWGS:   {*wgs},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	got, err := f.ledger.Get(ctx, array.ID)
	require.NoError(t, err)
	assert.Equal(t, genomic.StateGEMReady, got.WorkflowState)
	got, err = f.ledger.Get(ctx, wgs.ID)
	require.NoError(t, err)
	assert.Equal(t, genomic.StateCVLReady, got.WorkflowState)
}
