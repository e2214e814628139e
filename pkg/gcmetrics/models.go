package gcmetrics

import (
	"time"

	"github.com/synaptica-ai/genomics/pkg/genomic"
)

// Metrics is the validation metrics row a genome center reports for one
// sample and pipeline.
type Metrics struct {
	ID                     uint      `gorm:"primaryKey;column:id"`
	Created                time.Time `gorm:"column:created"`
	Modified               time.Time `gorm:"column:modified"`
	GenomicSetMemberID     *uint     `gorm:"column:genomic_set_member_id;index"`
	GenomicFileProcessedID *uint     `gorm:"column:genomic_file_processed_id;index"`

	LimsID                   *string                       `gorm:"column:lims_id"`
	ChipwellBarcode          *string                       `gorm:"column:chipwellbarcode;index"`
	CallRate                 *string                       `gorm:"column:call_rate"`
	MeanCoverage             *string                       `gorm:"column:mean_coverage"`
	GenomeCoverage           *string                       `gorm:"column:genome_coverage"`
	AouHdrCoverage           *string                       `gorm:"column:aou_hdr_coverage"`
	Contamination            *string                       `gorm:"column:contamination"`
	MappedReadsPct           *string                       `gorm:"column:mapped_reads_pct"`
	ContaminationCategory    genomic.ContaminationCategory `gorm:"column:contamination_category"`
	ContaminationCategoryStr string                        `gorm:"column:contamination_category_str"`
	SexConcordance           *string                       `gorm:"column:sex_concordance"`
	SexPloidy                *string                       `gorm:"column:sex_ploidy"`
	AlignedQ30Bases          *string                       `gorm:"column:aligned_q30_bases"`
	ArrayConcordance         *string                       `gorm:"column:array_concordance"`
	ProcessingStatus         *string                       `gorm:"column:processing_status"`
	Notes                    *string                       `gorm:"column:notes"`
	SiteID                   *string                       `gorm:"column:site_id"`
	PipelineID               *string                       `gorm:"column:pipeline_id"`
	DrcSexConcordance        *string                       `gorm:"column:drc_sex_concordance"`
	DrcFpConcordance         *string                       `gorm:"column:drc_fp_concordance"`

	CramPath         *string `gorm:"column:cram_path"`
	CraiPath         *string `gorm:"column:crai_path"`
	CramMd5Path      *string `gorm:"column:cram_md5_path"`
	HfVcfPath        *string `gorm:"column:hf_vcf_path"`
	HfVcfMd5Path     *string `gorm:"column:hf_vcf_md5_path"`
	HfVcfTbiPath     *string `gorm:"column:hf_vcf_tbi_path"`
	IdatRedPath      *string `gorm:"column:idat_red_path"`
	IdatGreenPath    *string `gorm:"column:idat_green_path"`
	IdatRedMd5Path   *string `gorm:"column:idat_red_md5_path"`
	IdatGreenMd5Path *string `gorm:"column:idat_green_md5_path"`
	VcfPath          *string `gorm:"column:vcf_path"`
	VcfTbiPath       *string `gorm:"column:vcf_tbi_path"`
	VcfMd5Path       *string `gorm:"column:vcf_md5_path"`
	GvcfPath         *string `gorm:"column:gvcf_path"`
	GvcfMd5Path      *string `gorm:"column:gvcf_md5_path"`

	IdatRedDeleted      int `gorm:"column:idat_red_deleted"`
	IdatRedMd5Deleted   int `gorm:"column:idat_red_md5_deleted"`
	IdatGreenDeleted    int `gorm:"column:idat_green_deleted"`
	IdatGreenMd5Deleted int `gorm:"column:idat_green_md5_deleted"`
	VcfDeleted          int `gorm:"column:vcf_deleted"`
	VcfTbiDeleted       int `gorm:"column:vcf_tbi_deleted"`
	VcfMd5Deleted       int `gorm:"column:vcf_md5_deleted"`
	HfVcfDeleted        int `gorm:"column:hf_vcf_deleted"`
	HfVcfTbiDeleted     int `gorm:"column:hf_vcf_tbi_deleted"`
	HfVcfMd5Deleted     int `gorm:"column:hf_vcf_md5_deleted"`
	RawVcfDeleted       int `gorm:"column:raw_vcf_deleted"`
	RawVcfTbiDeleted    int `gorm:"column:raw_vcf_tbi_deleted"`
	RawVcfMd5Deleted    int `gorm:"column:raw_vcf_md5_deleted"`
	CramDeleted         int `gorm:"column:cram_deleted"`
	CramMd5Deleted      int `gorm:"column:cram_md5_deleted"`
	CraiDeleted         int `gorm:"column:crai_deleted"`

	IgnoreFlag int `gorm:"column:ignore_flag"`
}

func (Metrics) TableName() string {
	return "genomic_gc_validation_metrics"
}

// Identifier types of the GC data file index.
const (
	IdentifierChipwellBarcode = "chipwellbarcode"
	IdentifierSampleID        = "sample_id"
)

// DataFile is one object found in a genome center bucket, indexed by the
// chipwellbarcode or sample id embedded in its name.
type DataFile struct {
	ID              uint      `gorm:"primaryKey;column:id"`
	Created         time.Time `gorm:"column:created"`
	Modified        time.Time `gorm:"column:modified"`
	FilePath        string    `gorm:"column:file_path;index"`
	GCSiteID        string    `gorm:"column:gc_site_id"`
	BucketName      string    `gorm:"column:bucket_name"`
	FilePrefix      string    `gorm:"column:file_prefix"`
	FileName        string    `gorm:"column:file_name"`
	FileType        string    `gorm:"column:file_type;index"`
	IdentifierType  string    `gorm:"column:identifier_type"`
	IdentifierValue string    `gorm:"column:identifier_value;index"`
	IgnoreFlag      int       `gorm:"column:ignore_flag"`
}

func (DataFile) TableName() string {
	return "genomic_gc_data_file"
}
