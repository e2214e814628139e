package genomic

// WorkflowState is the pipeline position of a SampleRecord. Values are
// persisted; never renumber.
type WorkflowState int

const (
	StateUnset               WorkflowState = 0
	StateWithdrawn           WorkflowState = 1
	StateAW0                 WorkflowState = 2
	StateAW1                 WorkflowState = 3
	StateAW1FPre             WorkflowState = 4
	StateAW1FPost            WorkflowState = 5
	StateAW2                 WorkflowState = 6
	StateGCDataFilesMissing  WorkflowState = 7
	StateAW2Fail             WorkflowState = 8
	StateW1                  WorkflowState = 9
	StateW2                  WorkflowState = 10
	StateW3                  WorkflowState = 11
	StateAW1C                WorkflowState = 12
	StateAW1CFPre            WorkflowState = 13
	StateAW1CFPost           WorkflowState = 14
	StateRHPStart            WorkflowState = 15
	StateW4                  WorkflowState = 16
	StateW4F                 WorkflowState = 17
	StateRHPRptReady         WorkflowState = 18
	StateRHPRptPendingDelete WorkflowState = 19
	StateRHPRptDeleted       WorkflowState = 20
	StateRHPRptAccessed      WorkflowState = 21
	StateCVLReady            WorkflowState = 22
	StateGEMRptReady         WorkflowState = 23
	StateGEMRptPendingDelete WorkflowState = 24
	StateGEMRptDeleted       WorkflowState = 25
	StateGEMRptAccessed      WorkflowState = 26
	StateGEMReady            WorkflowState = 27
	StateA1                  WorkflowState = 28
	StateA2                  WorkflowState = 29
	StateA2F                 WorkflowState = 30
	StateA3                  WorkflowState = 31
	StateAW0Ready            WorkflowState = 32
	StateIgnore              WorkflowState = 33
	StateControlSample       WorkflowState = 34
	StateLRPending           WorkflowState = 35
	StateLRRejected          WorkflowState = 36
	StateLRAccepted          WorkflowState = 37
	StateExtractRequested    WorkflowState = 38
	StateCVLRptPendingDelete WorkflowState = 39
	StateCVLRptDeleted       WorkflowState = 40
	StateCVLW1IL             WorkflowState = 50
	StateCVLW2SC             WorkflowState = 51
)

var workflowStateNames = map[WorkflowState]string{
	StateUnset:               "UNSET",
	StateWithdrawn:           "WITHDRAWN",
	StateAW0:                 "AW0",
	StateAW1:                 "AW1",
	StateAW1FPre:             "AW1F_PRE",
	StateAW1FPost:            "AW1F_POST",
	StateAW2:                 "AW2",
	StateGCDataFilesMissing:  "GC_DATA_FILES_MISSING",
	StateAW2Fail:             "AW2_FAIL",
	StateW1:                  "W1",
	StateW2:                  "W2",
	StateW3:                  "W3",
	StateAW1C:                "AW1C",
	StateAW1CFPre:            "AW1CF_PRE",
	StateAW1CFPost:           "AW1CF_POST",
	StateRHPStart:            "RHP_START",
	StateW4:                  "W4",
	StateW4F:                 "W4F",
	StateRHPRptReady:         "RHP_RPT_READY",
	StateRHPRptPendingDelete: "RHP_RPT_PENDING_DELETE",
	StateRHPRptDeleted:       "RHP_RPT_DELETED",
	StateRHPRptAccessed:      "RHP_RPT_ACCESSED",
	StateCVLReady:            "CVL_READY",
	StateGEMRptReady:         "GEM_RPT_READY",
	StateGEMRptPendingDelete: "GEM_RPT_PENDING_DELETE",
	StateGEMRptDeleted:       "GEM_RPT_DELETED",
	StateGEMRptAccessed:      "GEM_RPT_ACCESSED",
	StateGEMReady:            "GEM_READY",
	StateA1:                  "A1",
	StateA2:                  "A2",
	StateA2F:                 "A2F",
	StateA3:                  "A3",
	StateAW0Ready:            "AW0_READY",
	StateIgnore:              "IGNORE",
	StateControlSample:       "CONTROL_SAMPLE",
	StateLRPending:           "LR_PENDING",
	StateLRRejected:          "LR_REJECTED",
	StateLRAccepted:          "LR_ACCEPTED",
	StateExtractRequested:    "EXTRACT_REQUESTED",
	StateCVLRptPendingDelete: "CVL_RPT_PENDING_DELETE",
	StateCVLRptDeleted:       "CVL_RPT_DELETED",
	StateCVLW1IL:             "CVL_W1IL",
	StateCVLW2SC:             "CVL_W2SC",
}

func (s WorkflowState) String() string { return nameOf(workflowStateNames, s, "WorkflowState") }

func (s WorkflowState) Valid() bool {
	_, ok := workflowStateNames[s]
	return ok
}

func ParseWorkflowState(name string) (WorkflowState, error) {
	return parseName(workflowStateNames, name, "workflow state")
}

func WorkflowStateNames() []string { return sortedNames(workflowStateNames) }

// ReportState is the participant-facing result state recorded on
// MemberReportState facts.
type ReportState int

const (
	ReportUnset            ReportState = 0
	ReportGEMReady         ReportState = 1
	ReportGEMPendingDelete ReportState = 2
	ReportGEMDeleted       ReportState = 3
	ReportPGXReady         ReportState = 4
	ReportPGXPendingDelete ReportState = 5
	ReportPGXDeleted       ReportState = 6
	ReportHDRUninformative ReportState = 7
	ReportHDRPositive      ReportState = 8
	ReportHDRPendingDelete ReportState = 9
	ReportHDRDeleted       ReportState = 10
	ReportCVLPendingDelete ReportState = 11
	ReportCVLDeleted       ReportState = 12
)

var reportStateNames = map[ReportState]string{
	ReportUnset:            "UNSET",
	ReportGEMReady:         "GEM_RPT_READY",
	ReportGEMPendingDelete: "GEM_RPT_PENDING_DELETE",
	ReportGEMDeleted:       "GEM_RPT_DELETED",
	ReportPGXReady:         "PGX_RPT_READY",
	ReportPGXPendingDelete: "PGX_RPT_PENDING_DELETE",
	ReportPGXDeleted:       "PGX_RPT_DELETED",
	ReportHDRUninformative: "HDR_RPT_UNINFORMATIVE",
	ReportHDRPositive:      "HDR_RPT_POSITIVE",
	ReportHDRPendingDelete: "HDR_RPT_PENDING_DELETE",
	ReportHDRDeleted:       "HDR_RPT_DELETED",
	ReportCVLPendingDelete: "CVL_RPT_PENDING_DELETE",
	ReportCVLDeleted:       "CVL_RPT_DELETED",
}

func (s ReportState) String() string { return nameOf(reportStateNames, s, "ReportState") }

func ParseReportState(name string) (ReportState, error) {
	return parseName(reportStateNames, name, "report state")
}
