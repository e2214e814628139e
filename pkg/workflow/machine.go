package workflow

import (
	"context"

	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"github.com/synaptica-ai/genomics/pkg/ledger"
	"github.com/synaptica-ai/genomics/pkg/observability/metrics"
)

// Machine records workflow transitions on the sample ledger. Callers check
// the stage preconditions; the machine only records and timestamps.
type Machine struct {
	ledger *ledger.Repository
}

func NewMachine(repo *ledger.Repository) *Machine {
	return &Machine{ledger: repo}
}

func (m *Machine) Ledger() *ledger.Repository { return m.ledger }

// Advance moves one record to state.
func (m *Machine) Advance(ctx context.Context, id uint, state genomic.WorkflowState) error {
	return m.AdvanceMany(ctx, []uint{id}, state)
}

// AdvanceMany moves every id to state in one statement. Off-shape moves are
// logged and recorded anyway; unknown ids fail the whole batch with
// ErrRecordNotFound.
func (m *Machine) AdvanceMany(ctx context.Context, ids []uint, state genomic.WorkflowState) error {
	if len(ids) == 0 {
		return nil
	}
	current, err := m.ledger.GetMembersFromIDs(ctx, ids)
	if err != nil {
		return err
	}
	for _, rec := range current {
		ok, reason := Shape(rec.GenomeType, rec.WorkflowState, state)
		metrics.ObserveTransition(state.String(), ok)
		if !ok {
			logger.Log.WithFields(map[string]interface{}{
				"member_id":   rec.ID,
				"genome_type": rec.GenomeType,
				"from":        rec.WorkflowState.String(),
				"to":          state.String(),
			}).Warn("Off-shape workflow transition: " + reason)
		}
	}

	if err := m.ledger.UpdateWorkflowState(ctx, ids, state); err != nil {
		return err
	}
	logger.Log.WithFields(map[string]interface{}{
		"state":   state.String(),
		"members": len(ids),
	}).Info("Advanced workflow state")
	return nil
}

// SetInformingLoopReady flags a record as ready for the informing loop.
func (m *Machine) SetInformingLoopReady(ctx context.Context, ids ...uint) error {
	return m.ledger.SetInformingLoopReady(ctx, ids)
}

// UpdateJobRunID stamps a job run reference on ids.
func (m *Machine) UpdateJobRunID(ctx context.Context, ids []uint, field genomic.JobRunField, runID uint) (genomic.SubProcessResult, error) {
	return m.ledger.UpdateJobRunID(ctx, ids, field, runID)
}
