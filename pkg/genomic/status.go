package genomic

// SubProcessStatus is the JobRun / FileProcessed lifecycle status.
type SubProcessStatus int

const (
	StatusQueued    SubProcessStatus = 0
	StatusCompleted SubProcessStatus = 1
	StatusRunning   SubProcessStatus = 2
	StatusAborted   SubProcessStatus = 3
)

var subProcessStatusNames = map[SubProcessStatus]string{
	StatusQueued:    "QUEUED",
	StatusCompleted: "COMPLETED",
	StatusRunning:   "RUNNING",
	StatusAborted:   "ABORTED",
}

func (s SubProcessStatus) String() string {
	return nameOf(subProcessStatusNames, s, "SubProcessStatus")
}

func ParseSubProcessStatus(name string) (SubProcessStatus, error) {
	return parseName(subProcessStatusNames, name, "sub-process status")
}

// SubProcessResult is the outcome recorded on a JobRun. ResultError is a
// value, not an error type.
type SubProcessResult int

const (
	ResultUnset                SubProcessResult = 0
	ResultSuccess              SubProcessResult = 1
	ResultNoFiles              SubProcessResult = 2
	ResultInvalidFileName      SubProcessResult = 3
	ResultInvalidFileStructure SubProcessResult = 4
	ResultError                SubProcessResult = 5
)

var subProcessResultNames = map[SubProcessResult]string{
	ResultUnset:                "UNSET",
	ResultSuccess:              "SUCCESS",
	ResultNoFiles:              "NO_FILES",
	ResultInvalidFileName:      "INVALID_FILE_NAME",
	ResultInvalidFileStructure: "INVALID_FILE_STRUCTURE",
	ResultError:                "ERROR",
}

func (r SubProcessResult) String() string {
	return nameOf(subProcessResultNames, r, "SubProcessResult")
}

func ParseSubProcessResult(name string) (SubProcessResult, error) {
	return parseName(subProcessResultNames, name, "sub-process result")
}

type ManifestType int

const (
	ManifestAW0      ManifestType = 1
	ManifestAW1      ManifestType = 2
	ManifestAW2      ManifestType = 3
	ManifestCVLW1    ManifestType = 4
	ManifestGEMA1    ManifestType = 5
	ManifestGEMA3    ManifestType = 6
	ManifestCVLW3    ManifestType = 7
	ManifestAW3Array ManifestType = 8
	ManifestAW3WGS   ManifestType = 9
	ManifestAW2F     ManifestType = 10
	ManifestGEMA2    ManifestType = 11
	ManifestAW4Array ManifestType = 12
	ManifestAW4WGS   ManifestType = 13
	ManifestAW1F     ManifestType = 14
	ManifestAW5Array ManifestType = 15
	ManifestAW5WGS   ManifestType = 16
	ManifestCVLW1IL  ManifestType = 17
	ManifestCVLW2SC  ManifestType = 18
)

var manifestTypeNames = map[ManifestType]string{
	ManifestAW0:      "AW0",
	ManifestAW1:      "AW1",
	ManifestAW2:      "AW2",
	ManifestCVLW1:    "CVL_W1",
	ManifestGEMA1:    "GEM_A1",
	ManifestGEMA3:    "GEM_A3",
	ManifestCVLW3:    "CVL_W3",
	ManifestAW3Array: "AW3_ARRAY",
	ManifestAW3WGS:   "AW3_WGS",
	ManifestAW2F:     "AW2F",
	ManifestGEMA2:    "GEM_A2",
	ManifestAW4Array: "AW4_ARRAY",
	ManifestAW4WGS:   "AW4_WGS",
	ManifestAW1F:     "AW1F",
	ManifestAW5Array: "AW5_ARRAY",
	ManifestAW5WGS:   "AW5_WGS",
	ManifestCVLW1IL:  "CVL_W1IL",
	ManifestCVLW2SC:  "CVL_W2SC",
}

func (m ManifestType) String() string { return nameOf(manifestTypeNames, m, "ManifestType") }

func ParseManifestType(name string) (ManifestType, error) {
	return parseName(manifestTypeNames, name, "manifest type")
}

type ContaminationCategory int

const (
	ContaminationUnset             ContaminationCategory = 0
	ContaminationNoExtract         ContaminationCategory = 1
	ContaminationExtractWGS        ContaminationCategory = 2
	ContaminationExtractBoth       ContaminationCategory = 3
	ContaminationTerminalNoExtract ContaminationCategory = 4
)

var contaminationCategoryNames = map[ContaminationCategory]string{
	ContaminationUnset:             "UNSET",
	ContaminationNoExtract:         "NO_EXTRACT",
	ContaminationExtractWGS:        "EXTRACT_WGS",
	ContaminationExtractBoth:       "EXTRACT_BOTH",
	ContaminationTerminalNoExtract: "TERMINAL_NO_EXTRACT",
}

func (c ContaminationCategory) String() string {
	return nameOf(contaminationCategoryNames, c, "ContaminationCategory")
}

func ParseContaminationCategory(name string) (ContaminationCategory, error) {
	return parseName(contaminationCategoryNames, name, "contamination category")
}

type QcStatus int

const (
	QcUnset QcStatus = 0
	QcPass  QcStatus = 1
	QcFail  QcStatus = 2
)

var qcStatusNames = map[QcStatus]string{
	QcUnset: "UNSET",
	QcPass:  "PASS",
	QcFail:  "FAIL",
}

func (q QcStatus) String() string { return nameOf(qcStatusNames, q, "QcStatus") }

func ParseQcStatus(name string) (QcStatus, error) {
	return parseName(qcStatusNames, name, "qc status")
}

type IncidentCode int

const (
	IncidentUnset                                IncidentCode = 0
	IncidentUnknown                              IncidentCode = 1
	IncidentUnableToFindMember                   IncidentCode = 2
	IncidentMissingFiles                         IncidentCode = 3
	IncidentDataValidationFailed                 IncidentCode = 4
	IncidentFileValidationFailedName             IncidentCode = 5
	IncidentFileValidationFailedStructure        IncidentCode = 6
	IncidentUnableToFindMetric                   IncidentCode = 7
	IncidentManifestGenerateDataValidationFailed IncidentCode = 8
	IncidentFileValidationFailedValues           IncidentCode = 9
	IncidentFileValidationInvalidFileName        IncidentCode = 10
	IncidentInformingLoopToEventsMismatch        IncidentCode = 11
	IncidentRequestManifestValidationFail        IncidentCode = 12
)

var incidentCodeNames = map[IncidentCode]string{
	IncidentUnset:                                "UNSET",
	IncidentUnknown:                              "UNKNOWN",
	IncidentUnableToFindMember:                   "UNABLE_TO_FIND_MEMBER",
	IncidentMissingFiles:                         "MISSING_FILES",
	IncidentDataValidationFailed:                 "DATA_VALIDATION_FAILED",
	IncidentFileValidationFailedName:             "FILE_VALIDATION_FAILED_NAME",
	IncidentFileValidationFailedStructure:        "FILE_VALIDATION_FAILED_STRUCTURE",
	IncidentUnableToFindMetric:                   "UNABLE_TO_FIND_METRIC",
	IncidentManifestGenerateDataValidationFailed: "MANIFEST_GENERATE_DATA_VALIDATION_FAILED",
	IncidentFileValidationFailedValues:           "FILE_VALIDATION_FAILED_VALUES",
	IncidentFileValidationInvalidFileName:        "FILE_VALIDATION_INVALID_FILE_NAME",
	IncidentInformingLoopToEventsMismatch:        "INFORMING_LOOP_TO_EVENTS_MISMATCH",
	IncidentRequestManifestValidationFail:        "REQUEST_MANIFEST_VALIDATION_FAIL",
}

func (c IncidentCode) String() string { return nameOf(incidentCodeNames, c, "IncidentCode") }

func ParseIncidentCode(name string) (IncidentCode, error) {
	return parseName(incidentCodeNames, name, "incident code")
}

type IncidentStatus int

const (
	IncidentOpen            IncidentStatus = 0
	IncidentResolved        IncidentStatus = 1
	IncidentUnableToResolve IncidentStatus = 2
)

var incidentStatusNames = map[IncidentStatus]string{
	IncidentOpen:            "OPEN",
	IncidentResolved:        "RESOLVED",
	IncidentUnableToResolve: "UNABLE_TO_RESOLVE",
}

func (s IncidentStatus) String() string { return nameOf(incidentStatusNames, s, "IncidentStatus") }

func ParseIncidentStatus(name string) (IncidentStatus, error) {
	return parseName(incidentStatusNames, name, "incident status")
}

// ResultsModuleType names a CVL result module. Stored as its string form.
type ResultsModuleType string

const (
	ModuleHDRV1 ResultsModuleType = "HDRV1"
	ModulePGXV1 ResultsModuleType = "PGXV1"
)

func ParseResultsModuleType(name string) (ResultsModuleType, error) {
	switch ResultsModuleType(name) {
	case ModuleHDRV1, ModulePGXV1:
		return ResultsModuleType(name), nil
	}
	return "", parseErr("results module type", name)
}

// Short is the lowercase module family (hdr, pgx) used in outreach payloads
// and raw manifest columns.
func (m ResultsModuleType) Short() string {
	switch m {
	case ModuleHDRV1:
		return "hdr"
	case ModulePGXV1:
		return "pgx"
	}
	return ""
}

type LongReadPlatform string

const (
	PlatformPacBioCCS LongReadPlatform = "PACBIO_CCS"
	PlatformONT       LongReadPlatform = "ONT"
)

func ParseLongReadPlatform(name string) (LongReadPlatform, error) {
	switch LongReadPlatform(name) {
	case PlatformPacBioCCS, PlatformONT:
		return LongReadPlatform(name), nil
	}
	return "", parseErr("long read platform", name)
}
