package ledger

import (
	"time"

	"github.com/synaptica-ai/genomics/pkg/genomic"
)

// SampleRecord is one (participant, genome type) pipeline instance.
type SampleRecord struct {
	ID       uint      `gorm:"primaryKey;column:id"`
	Created  time.Time `gorm:"column:created"`
	Modified time.Time `gorm:"column:modified"`

	GenomicSetID      uint    `gorm:"column:genomic_set_id;index"`
	ParticipantID     uint    `gorm:"column:participant_id;index"`
	BiobankID         string  `gorm:"column:biobank_id;index"`
	SampleID          *string `gorm:"column:sample_id;index"`
	CollectionTubeID  string  `gorm:"column:collection_tube_id;index"`
	GenomeType        string  `gorm:"column:genome_type;index"`
	ParticipantOrigin string  `gorm:"column:participant_origin"`
	SexAtBirth        string  `gorm:"column:sex_at_birth"`
	AIAN              string  `gorm:"column:ai_an"`

	GCSiteID                 string `gorm:"column:gc_site_id"`
	GCManifestSampleSource   string `gorm:"column:gc_manifest_sample_source"`
	GCManifestParentSampleID string `gorm:"column:gc_manifest_parent_sample_id"`
	GCManifestTestName       string `gorm:"column:gc_manifest_test_name"`
	GCManifestFailureMode    string `gorm:"column:gc_manifest_failure_mode"`

	WorkflowState             genomic.WorkflowState `gorm:"column:genomic_workflow_state;index"`
	WorkflowStateStr          string                `gorm:"column:genomic_workflow_state_str"`
	WorkflowStateModifiedTime *time.Time            `gorm:"column:genomic_workflow_state_modified_time"`

	QcStatus    genomic.QcStatus `gorm:"column:qc_status"`
	QcStatusStr string           `gorm:"column:qc_status_str"`

	DiversionPouchSiteFlag         int        `gorm:"column:diversion_pouch_site_flag"`
	IgnoreFlag                     int        `gorm:"column:ignore_flag"`
	BlockResults                   int        `gorm:"column:block_results"`
	BlockResultsReason             string     `gorm:"column:block_results_reason"`
	BlockResearch                  int        `gorm:"column:block_research"`
	BlockResearchReason            string     `gorm:"column:block_research_reason"`
	InformingLoopReadyFlag         int        `gorm:"column:informing_loop_ready_flag"`
	InformingLoopReadyFlagModified *time.Time `gorm:"column:informing_loop_ready_flag_modified"`
	ReportConsentRemovalDate       *time.Time `gorm:"column:report_consent_removal_date"`

	// ReplatedMemberID points at the record this one was replated from.
	ReplatedMemberID   *uint `gorm:"column:replated_member_id;index"`
	AW1FileProcessedID *uint `gorm:"column:aw1_file_processed_id"`
	AW2FileProcessedID *uint `gorm:"column:aw2_file_processed_id"`

	ReconcileMetricsBBManifestJobRunID *uint `gorm:"column:reconcile_metrics_bb_manifest_job_run_id"`
	ReconcileMetricsSequencingJobRunID *uint `gorm:"column:reconcile_metrics_sequencing_job_run_id"`
	ReconcileGCManifestJobRunID        *uint `gorm:"column:reconcile_gc_manifest_job_run_id"`
	ReconcileCVLJobRunID               *uint `gorm:"column:reconcile_cvl_job_run_id"`
	CVLW1ILPGXJobRunID                 *uint `gorm:"column:cvl_w1il_pgx_job_run_id"`
	CVLW1ILHDRJobRunID                 *uint `gorm:"column:cvl_w1il_hdr_job_run_id"`
	CVLW2SCManifestJobRunID            *uint `gorm:"column:cvl_w2sc_manifest_job_run_id"`
	CVLW2WJobRunID                     *uint `gorm:"column:cvl_w2w_job_run_id"`
	CVLW3SRManifestJobRunID            *uint `gorm:"column:cvl_w3sr_manifest_job_run_id"`
	CVLW4WRPGXManifestJobRunID         *uint `gorm:"column:cvl_w4wr_pgx_manifest_job_run_id"`
	CVLW4WRHDRManifestJobRunID         *uint `gorm:"column:cvl_w4wr_hdr_manifest_job_run_id"`
	CVLW5NFPGXManifestJobRunID         *uint `gorm:"column:cvl_w5nf_pgx_manifest_job_run_id"`
	CVLW5NFHDRManifestJobRunID         *uint `gorm:"column:cvl_w5nf_hdr_manifest_job_run_id"`
	GEMA1ManifestJobRunID              *uint `gorm:"column:gem_a1_manifest_job_run_id"`
	GEMA2ManifestJobRunID              *uint `gorm:"column:gem_a2_manifest_job_run_id"`
	GEMA3ManifestJobRunID              *uint `gorm:"column:gem_a3_manifest_job_run_id"`
	AW2FManifestJobRunID               *uint `gorm:"column:aw2f_manifest_job_run_id"`
	AW3ManifestJobRunID                *uint `gorm:"column:aw3_manifest_job_run_id"`
	AW4ManifestJobRunID                *uint `gorm:"column:aw4_manifest_job_run_id"`
	AW0ManifestJobRunID                *uint `gorm:"column:aw0_manifest_job_run_id"`
	CreatedJobRunID                    *uint `gorm:"column:created_job_run_id"`
}

func (SampleRecord) TableName() string {
	return "genomic_set_member"
}

// IsControl reports whether the record is a lab control sample, which is
// exempt from the one-live-record-per-participant rule.
func (m SampleRecord) IsControl() bool {
	return m.ParticipantID == 0 || m.WorkflowState == genomic.StateControlSample
}

func (m SampleRecord) SampleIDValue() string {
	if m.SampleID == nil {
		return ""
	}
	return *m.SampleID
}

// MemberField names a non job-run column that may be batch updated.
type MemberField int

const (
	FieldIgnoreFlag MemberField = iota + 1
	FieldBlockResults
	FieldBlockResultsReason
	FieldBlockResearch
	FieldBlockResearchReason
	FieldDiversionPouchSiteFlag
	FieldQcStatus
	FieldGCManifestSampleSource
	FieldParticipantOrigin
	FieldReplatedMemberID
)

func (f MemberField) Column() (string, error) {
	switch f {
	case FieldIgnoreFlag:
		return "ignore_flag", nil
	case FieldBlockResults:
		return "block_results", nil
	case FieldBlockResultsReason:
		return "block_results_reason", nil
	case FieldBlockResearch:
		return "block_research", nil
	case FieldBlockResearchReason:
		return "block_research_reason", nil
	case FieldDiversionPouchSiteFlag:
		return "diversion_pouch_site_flag", nil
	case FieldQcStatus:
		return "qc_status", nil
	case FieldGCManifestSampleSource:
		return "gc_manifest_sample_source", nil
	case FieldParticipantOrigin:
		return "participant_origin", nil
	case FieldReplatedMemberID:
		return "replated_member_id", nil
	}
	return "", genomic.ErrInvalidField
}
