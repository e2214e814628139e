package ledger

import (
	"context"
	"errors"

	"github.com/synaptica-ai/genomics/pkg/common/logger"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"gorm.io/gorm"
)

// AW1Row is the subset of a raw AW1 manifest line needed to resolve its
// ledger member.
type AW1Row struct {
	BiobankID        string
	SampleID         string
	CollectionTubeID string
	GenomeType       string
	TestName         string
	SiteID           string
	SampleSource     string
	ParentSampleID   string
	FailureMode      string
}

// MemberFromRawAW1 resolves the member an AW1 line belongs to. Control
// samples (HG biobank ids) are inserted as new participant-less members in
// AW1 and returned with created set. Otherwise the member awaiting a sample
// id is looked up; nil means none is waiting.
func (r *Repository) MemberFromRawAW1(ctx context.Context, prefix string, row AW1Row) (member *SampleRecord, created bool, err error) {
	if IsControlBiobankID(row.BiobankID) {
		m, err := r.createControlSample(ctx, row)
		return m, err == nil, err
	}

	bid := NormalizeBiobankID(prefix, row.BiobankID)
	var m SampleRecord
	result := r.db.WithContext(ctx).
		Where("biobank_id = ? AND genome_type = ? AND sample_id IS NULL", bid, row.TestName).
		Order("id").
		First(&m)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if result.Error != nil {
		return nil, false, result.Error
	}
	return &m, false, nil
}

// MaxControlSetID is the highest genomic set id holding control samples.
func (r *Repository) MaxControlSetID(ctx context.Context) (uint, error) {
	var m SampleRecord
	result := r.db.WithContext(ctx).
		Where("genomic_workflow_state = ?", genomic.StateControlSample).
		Order("genomic_set_id DESC").
		First(&m)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return m.GenomicSetID, result.Error
}

func (r *Repository) createControlSample(ctx context.Context, row AW1Row) (*SampleRecord, error) {
	setID, err := r.MaxControlSetID(ctx)
	if err != nil {
		return nil, err
	}
	sampleID := row.SampleID
	m := &SampleRecord{
		GenomicSetID:             setID,
		ParticipantID:            0,
		BiobankID:                row.BiobankID,
		SampleID:                 &sampleID,
		CollectionTubeID:         row.CollectionTubeID,
		GenomeType:               row.GenomeType,
		GCSiteID:                 row.SiteID,
		GCManifestSampleSource:   row.SampleSource,
		GCManifestParentSampleID: row.ParentSampleID,
		GCManifestTestName:       row.TestName,
		GCManifestFailureMode:    row.FailureMode,
		WorkflowState:            genomic.StateAW1,
	}
	if err := r.Create(ctx, m); err != nil {
		return nil, err
	}
	logger.Log.WithFields(map[string]interface{}{
		"member_id":  m.ID,
		"biobank_id": m.BiobankID,
		"sample_id":  sampleID,
	}).Info("Created control sample from raw AW1")
	return m, nil
}

// ControlSampleParent returns the CONTROL_SAMPLE record a control's
// parent sample id refers to.
func (r *Repository) ControlSampleParent(ctx context.Context, genomeType, sampleID string) (*SampleRecord, error) {
	q := r.db.WithContext(ctx).Model(&SampleRecord{}).
		Where("genomic_workflow_state = ? AND sample_id = ? AND genome_type = ?",
			genomic.StateControlSample, sampleID, genomeType)
	return r.first(q, "control sample", sampleID)
}
