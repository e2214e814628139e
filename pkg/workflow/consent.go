package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"github.com/synaptica-ai/genomics/pkg/ledger"
)

// ConsentRemovalDate is the earliest of the GROR revocation, primary
// consent revocation and withdrawal times among those actually revoked.
func ConsentRemovalDate(s ledger.ParticipantSummary) (time.Time, bool) {
	var dates []time.Time
	if s.ConsentForGenomicsROR != ledger.QuestionnaireSubmitted && s.ConsentForGenomicsRORAuthored != nil {
		dates = append(dates, *s.ConsentForGenomicsRORAuthored)
	}
	if s.ConsentForStudyEnrollment != ledger.QuestionnaireSubmitted && s.ConsentForStudyEnrollmentAuthored != nil {
		dates = append(dates, *s.ConsentForStudyEnrollmentAuthored)
	}
	if s.WithdrawalStatus != ledger.WithdrawalNotWithdrawn && s.WithdrawalAuthored != nil {
		dates = append(dates, *s.WithdrawalAuthored)
	}
	if len(dates) == 0 {
		return time.Time{}, false
	}
	earliest := dates[0]
	for _, d := range dates[1:] {
		if d.Before(earliest) {
			earliest = d
		}
	}
	return earliest.UTC(), true
}

// ConsentRemovalSummary counts what one consent removal pass changed.
type ConsentRemovalSummary struct {
	PendingDelete int
	Restored      int
}

// ConsentRemoval moves GEM report-ready records of participants who revoked
// consent to GEM_RPT_PENDING_DELETE, stamping the removal date, and puts
// records whose participant re-consented after since back to
// GEM_RPT_READY.
func (m *Machine) ConsentRemoval(ctx context.Context, participants *ledger.Participants, since time.Time) (ConsentRemovalSummary, error) {
	var summary ConsentRemovalSummary

	revoked, err := m.ledger.Unconsented(ctx, []genomic.WorkflowState{genomic.StateGEMRptReady})
	if err != nil {
		return summary, fmt.Errorf("find unconsented members: %w", err)
	}
	pending := make([]uint, 0, len(revoked))
	for _, rec := range revoked {
		ps, err := participants.Summary(ctx, rec.ParticipantID)
		if err != nil {
			return summary, err
		}
		date, ok := ConsentRemovalDate(*ps)
		if !ok {
			logger.Log.WithField("member_id", rec.ID).Warn("Consent revoked without an authored date")
			continue
		}
		if err := m.ledger.UpdateConsentRemovalDate(ctx, rec.ID, date); err != nil {
			return summary, err
		}
		pending = append(pending, rec.ID)
	}
	if err := m.AdvanceMany(ctx, pending, genomic.StateGEMRptPendingDelete); err != nil {
		return summary, err
	}
	summary.PendingDelete = len(pending)

	reconsented, err := m.ledger.ReconsentedSince(ctx, since)
	if err != nil {
		return summary, fmt.Errorf("find reconsented members: %w", err)
	}
	restored := make([]uint, 0, len(reconsented))
	for _, rec := range reconsented {
		ps, err := participants.Summary(ctx, rec.ParticipantID)
		if err != nil {
			return summary, err
		}
		if _, stillRevoked := ConsentRemovalDate(*ps); stillRevoked {
			continue
		}
		restored = append(restored, rec.ID)
	}
	if err := m.ledger.ClearConsentRemovalDate(ctx, restored); err != nil {
		return summary, err
	}
	if err := m.AdvanceMany(ctx, restored, genomic.StateGEMRptReady); err != nil {
		return summary, err
	}
	summary.Restored = len(restored)

	logger.Log.WithFields(map[string]interface{}{
		"pending_delete": summary.PendingDelete,
		"restored":       summary.Restored,
	}).Info("Processed GEM consent changes")
	return summary, nil
}
