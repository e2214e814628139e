package outreach

import (
	"context"
	"fmt"
	"time"

	"github.com/synaptica-ai/genomics/pkg/common/database"
	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"gorm.io/gorm"
)

var gemReportWorkflowStates = []genomic.WorkflowState{
	genomic.StateGEMRptReady,
	genomic.StateGEMRptPendingDelete,
	genomic.StateGEMRptDeleted,
}

type gemReportRow struct {
	MemberID      uint                  `gorm:"column:genomic_set_member_id"`
	ParticipantID uint                  `gorm:"column:participant_id"`
	SampleID      *string               `gorm:"column:sample_id"`
	WorkflowState genomic.WorkflowState `gorm:"column:genomic_workflow_state"`
	Authored      time.Time             `gorm:"column:event_authored_time"`
}

// BackfillGEMReportStates writes a report-state fact for every GEM member
// in a report workflow state that has none, authored at its A2 manifest
// run. It returns how many facts were written.
func (s *Store) BackfillGEMReportStates(ctx context.Context) (int, error) {
	written := 0
	err := database.WithTransaction(ctx, s.db, database.DefaultRetryPolicy(), func(tx *gorm.DB) error {
		written = 0
		var rows []gemReportRow
		err := tx.Table("genomic_set_member AS m").
			Select("m.id AS genomic_set_member_id, m.participant_id, m.sample_id, m.genomic_workflow_state, "+
				"jr.created AS event_authored_time").
			Joins("JOIN genomic_job_run jr ON jr.id = m.gem_a2_manifest_job_run_id").
			Joins("LEFT JOIN genomic_member_report_state rs ON rs.genomic_set_member_id = m.id").
			Where("rs.id IS NULL AND m.gem_a2_manifest_job_run_id IS NOT NULL").
			Where("m.genomic_workflow_state IN ?", gemReportWorkflowStates).
			Order("m.id").
			Scan(&rows).Error
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		now := s.clock.Now()
		facts := make([]MemberReportState, 0, len(rows))
		for _, r := range rows {
			state, ok := genomic.ReportStateFromWorkflowState(r.WorkflowState)
			if !ok {
				continue
			}
			authored := r.Authored.UTC()
			fact := MemberReportState{
				Created:            now,
				Modified:           now,
				GenomicSetMemberID: r.MemberID,
				ParticipantID:      r.ParticipantID,
				Module:             ModuleGEM,
				ReportState:        state,
				ReportStateStr:     state.String(),
				EventAuthoredTime:  &authored,
			}
			if r.SampleID != nil {
				fact.SampleID = *r.SampleID
			}
			facts = append(facts, fact)
		}
		written = len(facts)
		return database.InsertInBatches(ctx, tx, &facts, database.DefaultBatchSize)
	})
	if err != nil {
		return 0, fmt.Errorf("backfill gem report states: %w", err)
	}
	if written > 0 {
		logger.Log.WithField("facts", written).Info("Backfilled GEM report states")
	}
	return written, nil
}
