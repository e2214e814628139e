package genomic

// Job identifies a named pipeline job recorded on JobRun.job_id.
type Job int

const (
	JobUnset                              Job = 0
	JobMetricsIngestion                   Job = 1
	JobReconcileManifest                  Job = 2
	JobReconcileArrayData                 Job = 3
	JobNewParticipantWorkflow             Job = 4
	JobCVLReconciliationReport            Job = 5
	JobCreateCVLW1Manifests               Job = 6
	JobBBReturnManifest                   Job = 7
	JobAW1Manifest                        Job = 8
	JobCVLSecValMan                       Job = 9
	JobGEMA1Manifest                      Job = 10
	JobGEMA2Manifest                      Job = 11
	JobGEMA3Manifest                      Job = 12
	JobAW1FManifest                       Job = 13
	JobReconcileWGSData                   Job = 14
	JobW2Ingest                           Job = 15
	JobW3Manifest                         Job = 16
	JobC2ParticipantWorkflow              Job = 17
	JobAW1FAlerts                         Job = 18
	JobC1ParticipantWorkflow              Job = 19
	JobAW3ArrayWorkflow                   Job = 20
	JobAW3WGSWorkflow                     Job = 21
	JobAW4ArrayWorkflow                   Job = 22
	JobAW4WGSWorkflow                     Job = 23
	JobGEMMetricsIngest                   Job = 24
	JobAW1CIngest                         Job = 25
	JobAW1CFIngest                        Job = 26
	JobAW1CFAlerts                        Job = 27
	JobGenomicManifestFileTrigger         Job = 28
	JobAW2FManifest                       Job = 29
	JobFeedbackScan                       Job = 30
	JobRecalculateContaminationCategory   Job = 31
	JobCalculateRecordCountAW1            Job = 32
	JobCalculateRecordCountAW2            Job = 33
	JobLoadAW1ToRawTable                  Job = 34
	JobLoadAW2ToRawTable                  Job = 35
	JobAW5ArrayManifest                   Job = 36
	JobAW5WGSManifest                     Job = 37
	JobIngestDataFiles                    Job = 38
	JobIngestInformingLoop                Job = 39
	JobAccessionDataFiles                 Job = 40
	JobFeedbackRecordReconcile            Job = 41
	JobResolveMissingFiles                Job = 42
	JobMissingFilesCleanup                Job = 43
	JobGenerateAW2FRemainder              Job = 44
	JobUpdateMembersStateResolvedFiles    Job = 45
	JobReconcileGCDataFileToTable         Job = 46
	JobReconcileRawAW1Ingested            Job = 47
	JobReconcileRawAW2Ingested            Job = 48
	JobUpdateMembersBlocklists            Job = 49
	JobMetricsFileIngest                  Job = 50
	JobReconcileInformingLoopResponses    Job = 51
	JobIngestResultViewed                 Job = 52
	JobLoadAW3ToRawTable                  Job = 53
	JobLoadAW4ToRawTable                  Job = 54
	JobReconcilePDRData                   Job = 55
	JobDeleteOldGPUserEventMetrics        Job = 56
	JobRetryManifestIngestions            Job = 57
	JobUpdateReportStatesForConsentRemove Job = 58
	JobCalculateInformingLoopReady        Job = 59
	JobBackfillGEMReportStates            Job = 60

	// Data quality pipeline. Names feed the summary report targets.
	JobDailySummaryReportJobRuns          Job = 101
	JobWeeklySummaryReportJobRuns         Job = 102
	JobDailySummaryReportIngestions       Job = 103
	JobWeeklySummaryReportIngestions      Job = 104
	JobDailySummaryReportIncidents        Job = 105
	JobDailySendValidationEmails          Job = 106
	JobDailySummaryValidationFailsResolve Job = 107

	JobCVLW1ILWorkflow        Job = 200
	JobCVLW2SCWorkflow        Job = 201
	JobCVLW3SRWorkflow        Job = 202
	JobCVLW4WRWorkflow        Job = 203
	JobCVLW5NFWorkflow        Job = 204
	JobReconcileCVLHDRResults Job = 205
	JobReconcileCVLPGXResults Job = 206
	JobReconcileCVLAlerts     Job = 207
	JobReconcileCVLResolve    Job = 208

	JobLRLRWorkflow Job = 300
	JobLRL1Workflow Job = 301

	JobPRPRWorkflow Job = 400
	JobPRP1Workflow Job = 401

	JobRNARRWorkflow Job = 500
	JobRNAR1Workflow Job = 501

	JobGEMGPMigrationExport Job = 1001

	JobAW3ArrayInvestigationWorkflow Job = 2001
	JobAW3WGSInvestigationWorkflow   Job = 2002
	JobAW4ArrayInvestigationWorkflow Job = 2003
	JobAW4WGSInvestigationWorkflow   Job = 2004
)

var jobNames = map[Job]string{
	JobUnset:                              "UNSET",
	JobMetricsIngestion:                   "METRICS_INGESTION",
	JobReconcileManifest:                  "RECONCILE_MANIFEST",
	JobReconcileArrayData:                 "RECONCILE_ARRAY_DATA",
	JobNewParticipantWorkflow:             "NEW_PARTICIPANT_WORKFLOW",
	JobCVLReconciliationReport:            "CVL_RECONCILIATION_REPORT",
	JobCreateCVLW1Manifests:               "CREATE_CVL_W1_MANIFESTS",
	JobBBReturnManifest:                   "BB_RETURN_MANIFEST",
	JobAW1Manifest:                        "AW1_MANIFEST",
	JobCVLSecValMan:                       "CVL_SEC_VAL_MAN",
	JobGEMA1Manifest:                      "GEM_A1_MANIFEST",
	JobGEMA2Manifest:                      "GEM_A2_MANIFEST",
	JobGEMA3Manifest:                      "GEM_A3_MANIFEST",
	JobAW1FManifest:                       "AW1F_MANIFEST",
	JobReconcileWGSData:                   "RECONCILE_WGS_DATA",
	JobW2Ingest:                           "W2_INGEST",
	JobW3Manifest:                         "W3_MANIFEST",
	JobC2ParticipantWorkflow:              "C2_PARTICIPANT_WORKFLOW",
	JobAW1FAlerts:                         "AW1F_ALERTS",
	JobC1ParticipantWorkflow:              "C1_PARTICIPANT_WORKFLOW",
	JobAW3ArrayWorkflow:                   "AW3_ARRAY_WORKFLOW",
	JobAW3WGSWorkflow:                     "AW3_WGS_WORKFLOW",
	JobAW4ArrayWorkflow:                   "AW4_ARRAY_WORKFLOW",
	JobAW4WGSWorkflow:                     "AW4_WGS_WORKFLOW",
	JobGEMMetricsIngest:                   "GEM_METRICS_INGEST",
	JobAW1CIngest:                         "AW1C_INGEST",
	JobAW1CFIngest:                        "AW1CF_INGEST",
	JobAW1CFAlerts:                        "AW1CF_ALERTS",
	JobGenomicManifestFileTrigger:         "GENOMIC_MANIFEST_FILE_TRIGGER",
	JobAW2FManifest:                       "AW2F_MANIFEST",
	JobFeedbackScan:                       "FEEDBACK_SCAN",
	JobRecalculateContaminationCategory:   "RECALCULATE_CONTAMINATION_CATEGORY",
	JobCalculateRecordCountAW1:            "CALCULATE_RECORD_COUNT_AW1",
	JobCalculateRecordCountAW2:            "CALCULATE_RECORD_COUNT_AW2",
	JobLoadAW1ToRawTable:                  "LOAD_AW1_TO_RAW_TABLE",
	JobLoadAW2ToRawTable:                  "LOAD_AW2_TO_RAW_TABLE",
	JobAW5ArrayManifest:                   "AW5_ARRAY_MANIFEST",
	JobAW5WGSManifest:                     "AW5_WGS_MANIFEST",
	JobIngestDataFiles:                    "INGEST_DATA_FILES",
	JobIngestInformingLoop:                "INGEST_INFORMING_LOOP",
	JobAccessionDataFiles:                 "ACCESSION_DATA_FILES",
	JobFeedbackRecordReconcile:            "FEEDBACK_RECORD_RECONCILE",
	JobResolveMissingFiles:                "RESOLVE_MISSING_FILES",
	JobMissingFilesCleanup:                "MISSING_FILES_CLEANUP",
	JobGenerateAW2FRemainder:              "GENERATE_AW2F_REMAINDER",
	JobUpdateMembersStateResolvedFiles:    "UPDATE_MEMBERS_STATE_RESOLVED_DATA_FILES",
	JobReconcileGCDataFileToTable:         "RECONCILE_GC_DATA_FILE_TO_TABLE",
	JobReconcileRawAW1Ingested:            "RECONCILE_RAW_AW1_INGESTED",
	JobReconcileRawAW2Ingested:            "RECONCILE_RAW_AW2_INGESTED",
	JobUpdateMembersBlocklists:            "UPDATE_MEMBERS_BLOCKLISTS",
	JobMetricsFileIngest:                  "METRICS_FILE_INGEST",
	JobReconcileInformingLoopResponses:    "RECONCILE_INFORMING_LOOP_RESPONSES",
	JobIngestResultViewed:                 "INGEST_RESULT_VIEWED",
	JobLoadAW3ToRawTable:                  "LOAD_AW3_TO_RAW_TABLE",
	JobLoadAW4ToRawTable:                  "LOAD_AW4_TO_RAW_TABLE",
	JobReconcilePDRData:                   "RECONCILE_PDR_DATA",
	JobDeleteOldGPUserEventMetrics:        "DELETE_OLD_GP_USER_EVENT_METRICS",
	JobRetryManifestIngestions:            "RETRY_MANIFEST_INGESTIONS",
	JobUpdateReportStatesForConsentRemove: "UPDATE_REPORT_STATES_FOR_CONSENT_REMOVAL",
	JobCalculateInformingLoopReady:        "CALCULATE_INFORMING_LOOP_READY",
	JobBackfillGEMReportStates:            "BACKFILL_GEM_REPORT_STATES",

	JobDailySummaryReportJobRuns:          "DAILY_SUMMARY_REPORT_JOB_RUNS",
	JobWeeklySummaryReportJobRuns:         "WEEKLY_SUMMARY_REPORT_JOB_RUNS",
	JobDailySummaryReportIngestions:       "DAILY_SUMMARY_REPORT_INGESTIONS",
	JobWeeklySummaryReportIngestions:      "WEEKLY_SUMMARY_REPORT_INGESTIONS",
	JobDailySummaryReportIncidents:        "DAILY_SUMMARY_REPORT_INCIDENTS",
	JobDailySendValidationEmails:          "DAILY_SEND_VALIDATION_EMAILS",
	JobDailySummaryValidationFailsResolve: "DAILY_SUMMARY_VALIDATION_FAILS_RESOLVED",

	JobCVLW1ILWorkflow:        "CVL_W1IL_WORKFLOW",
	JobCVLW2SCWorkflow:        "CVL_W2SC_WORKFLOW",
	JobCVLW3SRWorkflow:        "CVL_W3SR_WORKFLOW",
	JobCVLW4WRWorkflow:        "CVL_W4WR_WORKFLOW",
	JobCVLW5NFWorkflow:        "CVL_W5NF_WORKFLOW",
	JobReconcileCVLHDRResults: "RECONCILE_CVL_HDR_RESULTS",
	JobReconcileCVLPGXResults: "RECONCILE_CVL_PGX_RESULTS",
	JobReconcileCVLAlerts:     "RECONCILE_CVL_ALERTS",
	JobReconcileCVLResolve:    "RECONCILE_CVL_RESOLVE",

	JobLRLRWorkflow:  "LR_LR_WORKFLOW",
	JobLRL1Workflow:  "LR_L1_WORKFLOW",
	JobPRPRWorkflow:  "PR_PR_WORKFLOW",
	JobPRP1Workflow:  "PR_P1_WORKFLOW",
	JobRNARRWorkflow: "RNA_RR_WORKFLOW",
	JobRNAR1Workflow: "RNA_R1_WORKFLOW",

	JobGEMGPMigrationExport: "GEM_GP_MIGRATION_EXPORT",

	JobAW3ArrayInvestigationWorkflow: "AW3_ARRAY_INVESTIGATION_WORKFLOW",
	JobAW3WGSInvestigationWorkflow:   "AW3_WGS_INVESTIGATION_WORKFLOW",
	JobAW4ArrayInvestigationWorkflow: "AW4_ARRAY_INVESTIGATION_WORKFLOW",
	JobAW4WGSInvestigationWorkflow:   "AW4_WGS_INVESTIGATION_WORKFLOW",
}

func (j Job) String() string { return nameOf(jobNames, j, "Job") }

func (j Job) Valid() bool {
	_, ok := jobNames[j]
	return ok
}

func ParseJob(name string) (Job, error) { return parseName(jobNames, name, "job") }

func JobNames() []string { return sortedNames(jobNames) }

// IngestionJobs are the jobs whose incidents feed the daily validation
// email.
var IngestionJobs = []Job{
	JobMetricsIngestion,
	JobAW1Manifest,
	JobAW1FManifest,
	JobAW4ArrayWorkflow,
	JobAW4WGSWorkflow,
	JobAW5ArrayManifest,
	JobAW5WGSManifest,
}
