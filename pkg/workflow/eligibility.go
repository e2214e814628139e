package workflow

import (
	"context"

	"github.com/synaptica-ai/genomics/pkg/common/config"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"github.com/synaptica-ai/genomics/pkg/ledger"
	"gorm.io/gorm"
)

// liveBiobankOrder matches a non-ignored biobank order the record's
// collection tube was drawn under.
const liveBiobankOrder = `
	FROM biobank_stored_sample bss
	JOIN biobank_order_identifier boi ON boi.value = bss.biobank_order_identifier
	JOIN biobank_order bo ON bo.biobank_order_id = boi.biobank_order_id
	WHERE bss.biobank_stored_sample_id = genomic_set_member.collection_tube_id
	AND bo.is_ignored != 1`

// InformingLoopReadyScope restricts a genomic_set_member query to WGS
// records whose participant may enter the informing loop: QC passed and
// concordant metrics, whole blood, both consents submitted with a synced
// GROR consent file, a biobank order that is not ignored, and not
// withdrawn, suspended, deceased, diverted, ignored or blocked. It is the
// single definition shared by every informing-loop query.
func InformingLoopReadyScope(db *gorm.DB) *gorm.DB {
	return db.
		Joins("JOIN participant_summary ON participant_summary.participant_id = genomic_set_member.participant_id").
		Joins("JOIN genomic_gc_validation_metrics ON genomic_gc_validation_metrics.genomic_set_member_id = genomic_set_member.id"+
			" AND genomic_gc_validation_metrics.ignore_flag != 1").
		Joins("JOIN consent_file ON consent_file.participant_id = genomic_set_member.participant_id AND consent_file.type = ?",
			ledger.ConsentTypeGROR).
		Where("LOWER(genomic_gc_validation_metrics.processing_status) = ?", "pass").
		Where("genomic_set_member.genome_type = ?", config.GenomeTypeWGS).
		Where("participant_summary.withdrawal_status = ?", ledger.WithdrawalNotWithdrawn).
		Where("participant_summary.suspension_status = ?", ledger.SuspensionNotSuspended).
		Where("participant_summary.deceased_status = ?", ledger.DeceasedUnset).
		Where("LOWER(genomic_gc_validation_metrics.sex_concordance) IN ?", []string{"true", "other"}).
		Where("LOWER(genomic_gc_validation_metrics.drc_sex_concordance) = ?", "pass").
		Where("LOWER(genomic_gc_validation_metrics.drc_fp_concordance) = ?", "pass").
		Where("genomic_set_member.qc_status = ?", genomic.QcPass).
		Where("LOWER(genomic_set_member.gc_manifest_sample_source) = ?", "whole blood").
		Where("participant_summary.consent_for_study_enrollment = ?", ledger.QuestionnaireSubmitted).
		Where("participant_summary.consent_for_genomics_ror = ?", ledger.QuestionnaireSubmitted).
		Where("genomic_set_member.diversion_pouch_site_flag != 1").
		Where("genomic_set_member.ignore_flag != 1").
		Where("genomic_set_member.block_results != 1").
		Where("consent_file.sync_status IN ?", []string{ledger.ConsentSyncReadyForSync, ledger.ConsentSyncComplete}).
		Where("EXISTS (SELECT 1" + liveBiobankOrder + ")")
}

// FindReadyForInformingLoop returns eligible records not yet flagged,
// oldest finalized biobank order first. limit <= 0 means no limit.
func (m *Machine) FindReadyForInformingLoop(ctx context.Context, limit int) ([]ledger.SampleRecord, error) {
	db := m.ledger.DB().WithContext(ctx)
	ready := db.Model(&ledger.SampleRecord{}).
		Scopes(InformingLoopReadyScope).
		Select("genomic_set_member.id").
		Where("genomic_set_member.informing_loop_ready_flag != 1").
		Where("genomic_set_member.informing_loop_ready_flag_modified IS NULL")

	q := db.Model(&ledger.SampleRecord{}).
		Where("genomic_set_member.id IN (?)", ready).
		Order("(SELECT MIN(bo.finalized_time)" + liveBiobankOrder + "), genomic_set_member.id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []ledger.SampleRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ReadyForParticipant returns the participant's flagged, still eligible
// records.
func (m *Machine) ReadyForParticipant(ctx context.Context, participantID uint) ([]ledger.SampleRecord, error) {
	db := m.ledger.DB().WithContext(ctx)
	ready := db.Model(&ledger.SampleRecord{}).
		Scopes(InformingLoopReadyScope).
		Select("genomic_set_member.id").
		Where("genomic_set_member.participant_id = ?", participantID).
		Where("genomic_set_member.informing_loop_ready_flag = 1").
		Where("genomic_set_member.informing_loop_ready_flag_modified IS NOT NULL")

	var rows []ledger.SampleRecord
	err := db.Where("id IN (?)", ready).Order("id").Find(&rows).Error
	return rows, err
}
