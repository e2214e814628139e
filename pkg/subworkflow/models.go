package subworkflow

import "time"

// PipelineMember is a ledger record enrolled in a sub-workflow pipeline.
type PipelineMember struct {
	ID                 uint      `gorm:"primaryKey;column:id"`
	Created            time.Time `gorm:"column:created"`
	Modified           time.Time `gorm:"column:modified"`
	Pipeline           Pipeline  `gorm:"column:pipeline;index"`
	GenomicSetMemberID uint      `gorm:"column:genomic_set_member_id;index"`
	BiobankID          string    `gorm:"column:biobank_id;index"`
	CollectionTubeID   string    `gorm:"column:collection_tube_id"`
	GenomeType         string    `gorm:"column:genome_type"`
	SampleID           *string   `gorm:"column:sample_id"`
	SiteID             string    `gorm:"column:site_id"`
	Platform           string    `gorm:"column:platform"`
	SetNumber          int       `gorm:"column:set_number"`
	CreatedJobRunID    *uint     `gorm:"column:created_job_run_id"`
	IgnoreFlag         int       `gorm:"column:ignore_flag"`
}

func (PipelineMember) TableName() string {
	return "genomic_pipeline_member"
}
