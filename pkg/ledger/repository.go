package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/synaptica-ai/genomics/pkg/common/clock"
	"github.com/synaptica-ai/genomics/pkg/common/database"
	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"gorm.io/gorm"
)

// excludedStates are hidden from every lookup.
var excludedStates = []genomic.WorkflowState{genomic.StateIgnore}

type Repository struct {
	db     *gorm.DB
	clock  clock.Clock
	policy database.RetryPolicy
}

func NewRepository(db *gorm.DB, clk clock.Clock) *Repository {
	return &Repository{db: db, clock: clock.Or(clk), policy: database.DefaultRetryPolicy()}
}

// WithPolicy returns a copy of the repository using policy for its
// transactions.
func (r *Repository) WithPolicy(policy database.RetryPolicy) *Repository {
	cp := *r
	cp.policy = policy
	return &cp
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&SampleRecord{})
}

func (r *Repository) DB() *gorm.DB { return r.db }

func (r *Repository) Clock() clock.Clock { return r.clock }

func (r *Repository) live(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&SampleRecord{}).Where("genomic_workflow_state NOT IN ?", excludedStates)
}

func (r *Repository) stamp(m *SampleRecord) {
	now := r.clock.Now()
	if m.Created.IsZero() {
		m.Created = now
	}
	m.Modified = now
	m.WorkflowStateStr = m.WorkflowState.String()
	m.QcStatusStr = m.QcStatus.String()
	if m.WorkflowStateModifiedTime == nil {
		m.WorkflowStateModifiedTime = &now
	}
}

// Create inserts a new record. A second live record for the same
// participant and genome type is rejected unless it is a control sample.
func (r *Repository) Create(ctx context.Context, m *SampleRecord) error {
	r.stamp(m)
	return database.WithTransaction(ctx, r.db, r.policy, func(tx *gorm.DB) error {
		if !m.IsControl() {
			var count int64
			err := tx.Model(&SampleRecord{}).
				Where("participant_id = ? AND genome_type = ?", m.ParticipantID, m.GenomeType).
				Where("ignore_flag != 1 AND genomic_workflow_state NOT IN ?", excludedStates).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				return genomic.NewValidationError("participant %d already has a live %s record", m.ParticipantID, m.GenomeType)
			}
		}
		return tx.Create(m).Error
	})
}

func (r *Repository) Get(ctx context.Context, id uint) (*SampleRecord, error) {
	var m SampleRecord
	result := r.db.WithContext(ctx).First(&m, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, genomic.NotFound("member", id)
	}
	return &m, result.Error
}

func (r *Repository) first(q *gorm.DB, kind string, key interface{}) (*SampleRecord, error) {
	var m SampleRecord
	result := q.Order("id").First(&m)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, genomic.NotFound(kind, key)
	}
	return &m, result.Error
}

func withGenomeType(q *gorm.DB, genomeType string) *gorm.DB {
	if genomeType != "" {
		q = q.Where("genome_type = ?", genomeType)
	}
	return q
}

// GetBySampleID returns the member holding sampleID. An empty genomeType
// matches any.
func (r *Repository) GetBySampleID(ctx context.Context, sampleID, genomeType string) (*SampleRecord, error) {
	q := withGenomeType(r.live(ctx).Where("sample_id = ?", sampleID), genomeType)
	return r.first(q, "member with sample id", sampleID)
}

func (r *Repository) GetByBiobankID(ctx context.Context, biobankID, genomeType string) (*SampleRecord, error) {
	q := withGenomeType(r.live(ctx).Where("biobank_id = ?", biobankID), genomeType)
	return r.first(q, "member with biobank id", biobankID)
}

func (r *Repository) GetByCollectionTube(ctx context.Context, tubeID, genomeType string) (*SampleRecord, error) {
	q := withGenomeType(r.live(ctx).Where("collection_tube_id = ?", tubeID), genomeType)
	return r.first(q, "member with collection tube", tubeID)
}

func (r *Repository) GetByParticipant(ctx context.Context, participantID uint, genomeType string) (*SampleRecord, error) {
	q := withGenomeType(r.live(ctx).Where("participant_id = ?", participantID), genomeType)
	return r.first(q, "member for participant", participantID)
}

func (r *Repository) GetMembersFromSampleIDs(ctx context.Context, sampleIDs []string, genomeType string) ([]SampleRecord, error) {
	var members []SampleRecord
	if len(sampleIDs) == 0 {
		return members, nil
	}
	q := withGenomeType(r.live(ctx).Where("sample_id IN ?", sampleIDs), genomeType)
	err := q.Order("id").Find(&members).Error
	return members, err
}

func (r *Repository) GetMembersFromIDs(ctx context.Context, ids []uint) ([]SampleRecord, error) {
	var members []SampleRecord
	if len(ids) == 0 {
		return members, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&members).Error
	return members, err
}

func (r *Repository) GetNonNullSampleIDs(ctx context.Context) ([]SampleRecord, error) {
	var members []SampleRecord
	err := r.live(ctx).Where("sample_id IS NOT NULL").Order("id").Find(&members).Error
	return members, err
}

// InState returns live members in any of states.
func (r *Repository) InState(ctx context.Context, states ...genomic.WorkflowState) ([]SampleRecord, error) {
	var members []SampleRecord
	err := r.live(ctx).Where("genomic_workflow_state IN ?", states).Order("id").Find(&members).Error
	return members, err
}

// UpdateWorkflowState moves every id to state in one statement, keeping the
// string mirror and state modified time in step.
func (r *Repository) UpdateWorkflowState(ctx context.Context, ids []uint, state genomic.WorkflowState) error {
	return r.updateColumns(ctx, ids, map[string]interface{}{
		"genomic_workflow_state":               state,
		"genomic_workflow_state_str":           state.String(),
		"genomic_workflow_state_modified_time": r.clock.Now(),
	})
}

// SetInformingLoopReady flags ids as ready for the informing loop.
func (r *Repository) SetInformingLoopReady(ctx context.Context, ids []uint) error {
	return r.updateColumns(ctx, ids, map[string]interface{}{
		"informing_loop_ready_flag":          1,
		"informing_loop_ready_flag_modified": r.clock.Now(),
	})
}

// UpdateJobRunID stamps runID into field for every id in one statement.
// Unknown ids abort the update with ErrRecordNotFound.
func (r *Repository) UpdateJobRunID(ctx context.Context, ids []uint, field genomic.JobRunField, runID uint) (genomic.SubProcessResult, error) {
	column, err := field.Column()
	if err != nil {
		logger.Log.WithError(err).WithField("field", int(field)).Error("Invalid job run field")
		return genomic.ResultError, err
	}
	if err := r.updateColumn(ctx, ids, column, runID); err != nil {
		return genomic.ResultError, err
	}
	logger.Log.WithFields(map[string]interface{}{
		"column":  column,
		"run_id":  runID,
		"members": len(ids),
	}).Info("Updated member job run id")
	return genomic.ResultSuccess, nil
}

// BatchUpdateField sets field to value for every id.
func (r *Repository) BatchUpdateField(ctx context.Context, ids []uint, field MemberField, value interface{}) (genomic.SubProcessResult, error) {
	column, err := field.Column()
	if err != nil {
		return genomic.ResultError, fmt.Errorf("member field %d: %w", int(field), err)
	}
	values := map[string]interface{}{column: value}
	if field == FieldQcStatus {
		qc, ok := value.(genomic.QcStatus)
		if !ok {
			return genomic.ResultError, genomic.NewValidationError("qc_status expects a QcStatus, got %T", value)
		}
		values["qc_status_str"] = qc.String()
	}
	if err := r.updateColumns(ctx, ids, values); err != nil {
		return genomic.ResultError, err
	}
	return genomic.ResultSuccess, nil
}

func (r *Repository) updateColumn(ctx context.Context, ids []uint, column string, value interface{}) error {
	return r.updateColumns(ctx, ids, map[string]interface{}{column: value})
}

func (r *Repository) updateColumns(ctx context.Context, ids []uint, values map[string]interface{}) error {
	unique := uniqueIDs(ids)
	if len(unique) == 0 {
		return nil
	}
	values["modified"] = r.clock.Now()
	return database.WithTransaction(ctx, r.db, r.policy, func(tx *gorm.DB) error {
		res := tx.Model(&SampleRecord{}).Where("id IN ?", unique).Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != int64(len(unique)) {
			return fmt.Errorf("updated %d of %d members: %w", res.RowsAffected, len(unique), genomic.ErrRecordNotFound)
		}
		return nil
	})
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// InsertBulk writes records in multi-row batches. The live-key check is not
// applied; callers insert members they have already selected as new.
func (r *Repository) InsertBulk(ctx context.Context, records []SampleRecord) error {
	if len(records) == 0 {
		return nil
	}
	for i := range records {
		r.stamp(&records[i])
	}
	return database.InsertInBatches(ctx, r.db, &records, database.DefaultBatchSize)
}

// BulkUpdate applies one parameter set per row inside a single transaction.
func (r *Repository) BulkUpdate(ctx context.Context, updates []database.RowUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	now := r.clock.Now()
	for _, u := range updates {
		u.Values["modified"] = now
		if s, ok := u.Values["genomic_workflow_state"].(genomic.WorkflowState); ok {
			u.Values["genomic_workflow_state_str"] = s.String()
			u.Values["genomic_workflow_state_modified_time"] = now
		}
	}
	return database.WithTransaction(ctx, r.db, r.policy, func(tx *gorm.DB) error {
		return database.BulkUpdate(ctx, tx, &SampleRecord{}, updates)
	})
}

// LatestReplate follows the forward replate chain starting at id and
// returns its last record, which is the starting record when it was never
// replated.
func (r *Repository) LatestReplate(ctx context.Context, id uint) (*SampleRecord, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	visited := map[uint]bool{current.ID: true}
	for {
		var next SampleRecord
		result := r.db.WithContext(ctx).
			Where("replated_member_id = ?", current.ID).
			Order("created DESC, id DESC").
			First(&next)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return current, nil
		}
		if result.Error != nil {
			return nil, result.Error
		}
		if visited[next.ID] {
			return nil, fmt.Errorf("replate chain from member %d revisits member %d", id, next.ID)
		}
		visited[next.ID] = true
		current = &next
	}
}

// UpdateConsentRemovalDate records when report consent was removed.
func (r *Repository) UpdateConsentRemovalDate(ctx context.Context, id uint, date time.Time) error {
	logger.Log.WithField("member_id", id).Info("Updating report consent removal date")
	return r.updateColumn(ctx, []uint{id}, "report_consent_removal_date", date.UTC())
}

func (r *Repository) ClearConsentRemovalDate(ctx context.Context, ids []uint) error {
	return r.updateColumns(ctx, ids, map[string]interface{}{"report_consent_removal_date": nil})
}

// Unconsented returns live members in states whose participant revoked
// GROR or primary consent, or withdrew.
func (r *Repository) Unconsented(ctx context.Context, states []genomic.WorkflowState) ([]SampleRecord, error) {
	var members []SampleRecord
	err := r.db.WithContext(ctx).
		Table("genomic_set_member AS m").
		Select("m.*").
		Joins("JOIN participant_summary ps ON ps.participant_id = m.participant_id").
		Where("m.genomic_workflow_state NOT IN ?", excludedStates).
		Where("m.genomic_workflow_state IN ?", states).
		Where("ps.consent_for_genomics_ror != ? OR ps.consent_for_study_enrollment != ? OR ps.withdrawal_status != ?",
			QuestionnaireSubmitted, QuestionnaireSubmitted, WithdrawalNotWithdrawn).
		Order("m.id").
		Find(&members).Error
	return members, err
}

// ReconsentedSince returns members pending report deletion whose
// participant re-submitted GROR or primary consent after since.
func (r *Repository) ReconsentedSince(ctx context.Context, since time.Time) ([]SampleRecord, error) {
	var members []SampleRecord
	err := r.db.WithContext(ctx).
		Table("genomic_set_member AS m").
		Select("m.*").
		Joins("JOIN participant_summary ps ON ps.participant_id = m.participant_id").
		Where("m.genomic_workflow_state IN ?", []genomic.WorkflowState{
			genomic.StateGEMRptPendingDelete,
			genomic.StateGEMRptDeleted,
		}).
		Where("(ps.consent_for_genomics_ror = ? AND ps.consent_for_genomics_ror_authored > ?) OR "+
			"(ps.consent_for_study_enrollment = ? AND ps.consent_for_study_enrollment_authored > ?)",
			QuestionnaireSubmitted, since.UTC(), QuestionnaireSubmitted, since.UTC()).
		Order("m.id").
		Find(&members).Error
	return members, err
}

// NormalizeBiobankID strips the configured biobank prefix, or a T or A test
// prefix. Control sample ids (HG...) are returned unchanged.
func NormalizeBiobankID(prefix, biobankID string) string {
	bid := strings.TrimSpace(biobankID)
	if bid == "" || strings.HasPrefix(bid, "HG") {
		return bid
	}
	first := bid[:1]
	if first == prefix || first == "T" || first == "A" {
		return bid[1:]
	}
	return bid
}

func IsControlBiobankID(biobankID string) bool {
	return strings.HasPrefix(biobankID, "HG")
}
