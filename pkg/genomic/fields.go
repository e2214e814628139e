package genomic

import "fmt"

// JobRunField names one of the job-run reference columns on a SampleRecord.
// The set is closed; callers cannot address a column by string.
type JobRunField int

const (
	FieldReconcileManifestJobRun JobRunField = iota + 1
	FieldReconcileSequencingJobRun
	FieldReconcileGCManifestJobRun
	FieldReconcileCVLJobRun
	FieldCVLW1ILPGXJobRun
	FieldCVLW1ILHDRJobRun
	FieldCVLW2SCManifestJobRun
	FieldCVLW2WJobRun
	FieldCVLW3SRManifestJobRun
	FieldCVLW4WRPGXManifestJobRun
	FieldCVLW4WRHDRManifestJobRun
	FieldCVLW5NFPGXManifestJobRun
	FieldCVLW5NFHDRManifestJobRun
	FieldGEMA1ManifestJobRun
	FieldGEMA2ManifestJobRun
	FieldGEMA3ManifestJobRun
	FieldAW2FManifestJobRun
	FieldAW3ManifestJobRun
	FieldAW4ManifestJobRun
	FieldAW0ManifestJobRun
	FieldCreatedJobRun
)

// Column returns the database column backing f.
func (f JobRunField) Column() (string, error) {
	switch f {
	case FieldReconcileManifestJobRun:
		return "reconcile_metrics_bb_manifest_job_run_id", nil
	case FieldReconcileSequencingJobRun:
		return "reconcile_metrics_sequencing_job_run_id", nil
	case FieldReconcileGCManifestJobRun:
		return "reconcile_gc_manifest_job_run_id", nil
	case FieldReconcileCVLJobRun:
		return "reconcile_cvl_job_run_id", nil
	case FieldCVLW1ILPGXJobRun:
		return "cvl_w1il_pgx_job_run_id", nil
	case FieldCVLW1ILHDRJobRun:
		return "cvl_w1il_hdr_job_run_id", nil
	case FieldCVLW2SCManifestJobRun:
		return "cvl_w2sc_manifest_job_run_id", nil
	case FieldCVLW2WJobRun:
		return "cvl_w2w_job_run_id", nil
	case FieldCVLW3SRManifestJobRun:
		return "cvl_w3sr_manifest_job_run_id", nil
	case FieldCVLW4WRPGXManifestJobRun:
		return "cvl_w4wr_pgx_manifest_job_run_id", nil
	case FieldCVLW4WRHDRManifestJobRun:
		return "cvl_w4wr_hdr_manifest_job_run_id", nil
	case FieldCVLW5NFPGXManifestJobRun:
		return "cvl_w5nf_pgx_manifest_job_run_id", nil
	case FieldCVLW5NFHDRManifestJobRun:
		return "cvl_w5nf_hdr_manifest_job_run_id", nil
	case FieldGEMA1ManifestJobRun:
		return "gem_a1_manifest_job_run_id", nil
	case FieldGEMA2ManifestJobRun:
		return "gem_a2_manifest_job_run_id", nil
	case FieldGEMA3ManifestJobRun:
		return "gem_a3_manifest_job_run_id", nil
	case FieldAW2FManifestJobRun:
		return "aw2f_manifest_job_run_id", nil
	case FieldAW3ManifestJobRun:
		return "aw3_manifest_job_run_id", nil
	case FieldAW4ManifestJobRun:
		return "aw4_manifest_job_run_id", nil
	case FieldAW0ManifestJobRun:
		return "aw0_manifest_job_run_id", nil
	case FieldCreatedJobRun:
		return "created_job_run_id", nil
	}
	return "", fmt.Errorf("job run field %d: %w", int(f), ErrInvalidField)
}

// W1ILFieldFor returns the informing-loop job-run field of a result module.
func W1ILFieldFor(m ResultsModuleType) (JobRunField, error) {
	switch m {
	case ModulePGXV1:
		return FieldCVLW1ILPGXJobRun, nil
	case ModuleHDRV1:
		return FieldCVLW1ILHDRJobRun, nil
	}
	return 0, fmt.Errorf("results module %q: %w", m, ErrInvalidField)
}
