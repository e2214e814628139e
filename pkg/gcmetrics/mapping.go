package gcmetrics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/synaptica-ai/genomics/pkg/common/config"
	"github.com/synaptica-ai/genomics/pkg/genomic"
)

// Row is one vendor metrics line keyed by lower-cased header.
type Row map[string]string

// FieldMapping ties a metrics column to the vendor header it is read from.
type FieldMapping struct {
	Column string
	Vendor string
}

// MetricsMapping lists every column filled from an AW2 line.
var MetricsMapping = []FieldMapping{
	{"genomic_set_member_id", "member_id"},
	{"genomic_file_processed_id", "file_id"},
	{"lims_id", "limsid"},
	{"chipwellbarcode", "chipwellbarcode"},
	{"call_rate", "callrate"},
	{"mean_coverage", "meancoverage"},
	{"genome_coverage", "genomecoverage"},
	{"aou_hdr_coverage", "aouhdrcoverage"},
	{"contamination", "contamination"},
	{"mapped_reads_pct", "mappedreadspct"},
	{"contamination_category", "contamination_category"},
	{"sex_concordance", "sexconcordance"},
	{"sex_ploidy", "sexploidy"},
	{"aligned_q30_bases", "alignedq30bases"},
	{"array_concordance", "arrayconcordance"},
	{"processing_status", "processingstatus"},
	{"notes", "notes"},
	{"site_id", "siteid"},
	{"pipeline_id", "pipelineid"},
	{"cram_path", "crampath"},
	{"crai_path", "craipath"},
	{"cram_md5_path", "crammd5path"},
	{"hf_vcf_path", "hfvcfpath"},
	{"hf_vcf_md5_path", "hfvcfmd5path"},
	{"hf_vcf_tbi_path", "hfvcftbipath"},
	{"idat_red_path", "idatredpath"},
	{"idat_green_path", "idatgreenpath"},
	{"idat_red_md5_path", "idatredmd5path"},
	{"idat_green_md5_path", "idatgreenmd5path"},
	{"vcf_path", "vcfpath"},
	{"vcf_tbi_path", "vcftbipath"},
	{"vcf_md5_path", "vcfmd5path"},
	{"gvcf_path", "gvcfpath"},
	{"gvcf_md5_path", "gvcfmd5path"},
}

// DeletedFlagMapping lists the deletion flags a vendor may report; the
// value D marks the file deleted.
var DeletedFlagMapping = []FieldMapping{
	{"idat_red_deleted", "redidat"},
	{"idat_red_md5_deleted", "redidatmd5"},
	{"idat_green_deleted", "greenidat"},
	{"idat_green_md5_deleted", "greenidatmd5"},
	{"vcf_deleted", "vcf"},
	{"vcf_tbi_deleted", "vcfindex"},
	{"vcf_md5_deleted", "vcfmd5"},
	{"hf_vcf_deleted", "vcfhf"},
	{"hf_vcf_tbi_deleted", "vcfhfindex"},
	{"hf_vcf_md5_deleted", "vcfhfmd5"},
	{"raw_vcf_deleted", "vcfraw"},
	{"raw_vcf_tbi_deleted", "vcfrawindex"},
	{"raw_vcf_md5_deleted", "vcfrawmd5"},
	{"cram_deleted", "cram"},
	{"cram_md5_deleted", "crammd5"},
	{"crai_deleted", "crai"},
}

// columnValues converts a vendor row into column values. Headers the row
// does not carry become NULL, or zero for the contamination category.
func columnValues(row Row) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(MetricsMapping)+1)
	for _, m := range MetricsMapping {
		raw, ok := row[m.Vendor]
		switch m.Column {
		case "genomic_set_member_id", "genomic_file_processed_id":
			if !ok || strings.TrimSpace(raw) == "" {
				values[m.Column] = nil
				continue
			}
			id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return nil, genomic.NewValidationError("%s: %q is not an id", m.Vendor, raw)
			}
			values[m.Column] = uint(id)
		case "contamination_category":
			category, err := parseCategory(raw)
			if err != nil {
				return nil, err
			}
			values[m.Column] = category
			values["contamination_category_str"] = category.String()
		default:
			if !ok {
				values[m.Column] = nil
				continue
			}
			values[m.Column] = raw
		}
	}
	return values, nil
}

func parseCategory(raw string) (genomic.ContaminationCategory, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return genomic.ContaminationUnset, nil
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return genomic.ContaminationCategory(n), nil
	}
	c, err := genomic.ParseContaminationCategory(strings.ToUpper(raw))
	if err != nil {
		return 0, genomic.NewValidationError("contamination_category: %v", err)
	}
	return c, nil
}

// deletedFlagValues returns only the flags present in row.
func deletedFlagValues(row Row) map[string]interface{} {
	values := make(map[string]interface{})
	for _, m := range DeletedFlagMapping {
		raw, ok := row[m.Vendor]
		if !ok {
			continue
		}
		flag := 0
		if raw == "D" {
			flag = 1
		}
		values[m.Column] = flag
	}
	return values
}

// RequiredFileTypes are the data file types a genome center must deliver
// before a sample of genomeType leaves GC_DATA_FILES_MISSING.
func RequiredFileTypes(genomeType string) ([]string, error) {
	switch genomeType {
	case config.GenomeTypeArray:
		return []string{
			"Red.idat", "Red.idat.md5sum",
			"Grn.idat", "Grn.idat.md5sum",
			"vcf.gz", "vcf.gz.tbi", "vcf.gz.md5sum",
		}, nil
	case config.GenomeTypeWGS:
		return []string{
			"hard-filtered.vcf.gz", "hard-filtered.vcf.gz.tbi", "hard-filtered.vcf.gz.md5sum",
			"cram", "cram.crai", "cram.md5sum",
		}, nil
	}
	return nil, fmt.Errorf("no required data files for genome type %q", genomeType)
}

// IdentifierTypeFor is how data files of genomeType are keyed.
func IdentifierTypeFor(genomeType string) string {
	if genomeType == config.GenomeTypeArray {
		return IdentifierChipwellBarcode
	}
	return IdentifierSampleID
}
