package ingestion

import (
	"fmt"
	"strings"
)

// Line holds the columns of a raw manifest line that are indexed on the raw
// row table. Every family struct below has exactly these fields so a Line
// converts to it directly; only the validation tags differ.
type Line struct {
	BiobankID            string
	SampleID             string
	CollectionTubeID     string
	GenomeType           string
	TestName             string
	SiteID               string
	ClinicalAnalysisType string
	Platform             string
}

type aw1Line struct {
	BiobankID            string `validate:"omitempty,alphanum"`
	SampleID             string `validate:"required_with=BiobankID"`
	CollectionTubeID     string `validate:"required_with=BiobankID"`
	GenomeType           string `validate:"required_with=BiobankID"`
	TestName             string `validate:"required_with=BiobankID"`
	SiteID               string
	ClinicalAnalysisType string
	Platform             string
}

type gcLine struct {
	BiobankID            string `validate:"required,alphanum"`
	SampleID             string `validate:"required"`
	CollectionTubeID     string
	GenomeType           string
	TestName             string
	SiteID               string
	ClinicalAnalysisType string
	Platform             string
}

type cvlResultLine struct {
	BiobankID            string `validate:"required,alphanum"`
	SampleID             string `validate:"required"`
	CollectionTubeID     string
	GenomeType           string
	TestName             string
	SiteID               string
	ClinicalAnalysisType string `validate:"required,oneof=HDRV1 PGXV1"`
	Platform             string
}

type requestLine struct {
	BiobankID            string `validate:"required,alphanum"`
	SampleID             string
	CollectionTubeID     string
	GenomeType           string `validate:"required"`
	TestName             string
	SiteID               string `validate:"required"`
	ClinicalAnalysisType string
	Platform             string
}

type longReadRequestLine struct {
	BiobankID            string `validate:"required,alphanum"`
	SampleID             string
	CollectionTubeID     string
	GenomeType           string `validate:"required"`
	TestName             string
	SiteID               string `validate:"required"`
	ClinicalAnalysisType string
	Platform             string `validate:"required,oneof=PACBIO_CCS ONT"`
}

type sampleLine struct {
	BiobankID            string `validate:"required,alphanum"`
	SampleID             string `validate:"required"`
	CollectionTubeID     string `validate:"required"`
	GenomeType           string
	TestName             string
	SiteID               string
	ClinicalAnalysisType string
	Platform             string
}

type longReadSampleLine struct {
	BiobankID            string `validate:"required,alphanum"`
	SampleID             string `validate:"required"`
	CollectionTubeID     string `validate:"required"`
	GenomeType           string
	TestName             string
	SiteID               string `validate:"required"`
	ClinicalAnalysisType string
	Platform             string `validate:"required,oneof=PACBIO_CCS ONT"`
}

// columnAliases lists the manifest headers each indexed column is read
// from, in priority order.
var columnAliases = map[string][]string{
	"biobank_id":             {"biobank_id", "biobankid"},
	"sample_id":              {"sample_id", "sampleid"},
	"collection_tube_id":     {"collection_tube_id", "collectiontubeid", "collection_tubeid"},
	"genome_type":            {"genome_type", "genometype"},
	"test_name":              {"test_name", "testname"},
	"clinical_analysis_type": {"clinical_analysis_type"},
	"platform":               {"long_read_platform", "platform"},
}

// normalizeHeader lower-cases a header and folds spaces and dashes to
// underscores.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

func normalizeRow(row map[string]interface{}) map[string]string {
	out := make(map[string]string, len(row))
	for k, v := range row {
		if v == nil {
			out[normalizeHeader(k)] = ""
			continue
		}
		out[normalizeHeader(k)] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func pick(row map[string]string, column string) string {
	for _, key := range columnAliases[column] {
		if v, ok := row[key]; ok && v != "" {
			return v
		}
	}
	return ""
}

// siteID reads the first populated header naming a site. Families disagree
// on the header (gc_site_id, lr_site_id, p_site_id, ...).
func siteID(row map[string]string) string {
	for _, key := range []string{"site_id", "gc_site_id", "cvl_site_id", "lr_site_id", "p_site_id", "rr_site_id", "r_site_id"} {
		if v := row[key]; v != "" {
			return v
		}
	}
	for k, v := range row {
		if strings.HasSuffix(k, "_site_id") && v != "" {
			return v
		}
	}
	return ""
}

// lineFrom extracts the indexed columns of row. The biobank id is stored
// without its environment prefix.
func lineFrom(row map[string]string, biobankPrefix string) Line {
	return Line{
		BiobankID:            normalizeBiobankID(biobankPrefix, pick(row, "biobank_id")),
		SampleID:             pick(row, "sample_id"),
		CollectionTubeID:     pick(row, "collection_tube_id"),
		GenomeType:           pick(row, "genome_type"),
		TestName:             pick(row, "test_name"),
		SiteID:               siteID(row),
		ClinicalAnalysisType: strings.ToUpper(pick(row, "clinical_analysis_type")),
		Platform:             strings.ToUpper(pick(row, "platform")),
	}
}
