package genomic

import (
	"fmt"
	"strings"
)

// Members that entered the canonical set with EnumVersion 2. Everything
// else was already present in version 1 under the same name and value.
// TODO: confirm both lists with the genomics domain owners.
var (
	jobsAddedInV2 = map[Job]bool{
		JobCVLW3SRWorkflow:        true,
		JobCVLW4WRWorkflow:        true,
		JobCVLW5NFWorkflow:        true,
		JobReconcileCVLHDRResults: true,
		JobReconcileCVLPGXResults: true,
		JobReconcileCVLAlerts:     true,
		JobReconcileCVLResolve:    true,
		JobLRLRWorkflow:           true,
		JobLRL1Workflow:           true,
		JobPRPRWorkflow:           true,
		JobPRP1Workflow:           true,
		JobRNARRWorkflow:          true,
		JobRNAR1Workflow:          true,
	}
	incidentCodesAddedInV2 = map[IncidentCode]bool{
		IncidentRequestManifestValidationFail: true,
	}
)

// JobVersion reports the EnumVersion in which j was introduced.
func JobVersion(j Job) int {
	if jobsAddedInV2[j] {
		return 2
	}
	return 1
}

// LegacyJob resolves a job name persisted by a version-1 writer. Names that
// are not version-1 members are rejected rather than guessed.
func LegacyJob(name string) (Job, error) {
	j, err := ParseJob(strings.ToUpper(strings.TrimSpace(name)))
	if err != nil {
		return JobUnset, fmt.Errorf("legacy job: %w", err)
	}
	if jobsAddedInV2[j] {
		return JobUnset, fmt.Errorf("legacy job: %q is not a version 1 member", name)
	}
	return j, nil
}

// LegacyWorkflowState resolves a workflow state name persisted by a
// version-1 writer. Every version-1 state kept its value.
func LegacyWorkflowState(name string) (WorkflowState, error) {
	s, err := ParseWorkflowState(strings.ToUpper(strings.TrimSpace(name)))
	if err != nil {
		return StateUnset, fmt.Errorf("legacy workflow state: %w", err)
	}
	return s, nil
}

// LegacyIncidentCode resolves an incident code name persisted by a
// version-1 writer.
func LegacyIncidentCode(name string) (IncidentCode, error) {
	c, err := ParseIncidentCode(strings.ToUpper(strings.TrimSpace(name)))
	if err != nil {
		return IncidentUnset, fmt.Errorf("legacy incident code: %w", err)
	}
	if incidentCodesAddedInV2[c] {
		return IncidentUnset, fmt.Errorf("legacy incident code: %q is not a version 1 member", name)
	}
	return c, nil
}

// ReportStateFromWorkflowState maps a reporting workflow state onto the
// report state of the same name. Workflow states without a report
// counterpart return false.
func ReportStateFromWorkflowState(s WorkflowState) (ReportState, bool) {
	name, ok := workflowStateNames[s]
	if !ok || s == StateUnset {
		return ReportUnset, false
	}
	rs, err := ParseReportState(name)
	if err != nil {
		return ReportUnset, false
	}
	return rs, true
}
