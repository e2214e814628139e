package gcmetrics

import (
	"context"

	"github.com/synaptica-ai/genomics/pkg/common/clock"
	"gorm.io/gorm"
)

// DataFileRepository indexes the files genome centers drop in their
// buckets.
type DataFileRepository struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewDataFileRepository(db *gorm.DB, clk clock.Clock) *DataFileRepository {
	return &DataFileRepository{db: db, clock: clock.Or(clk)}
}

func (r *DataFileRepository) Create(ctx context.Context, f *DataFile) error {
	now := r.clock.Now()
	f.Created = now
	f.Modified = now
	return r.db.WithContext(ctx).Create(f).Error
}

// ByIdentifier returns live files keyed by identifierType and value.
func (r *DataFileRepository) ByIdentifier(ctx context.Context, identifierType, value string) ([]DataFile, error) {
	var files []DataFile
	err := r.db.WithContext(ctx).
		Where("identifier_type = ? AND identifier_value = ? AND ignore_flag = 0", identifierType, value).
		Order("id").
		Find(&files).Error
	return files, err
}

func (r *DataFileRepository) ByFilePath(ctx context.Context, path string) ([]DataFile, error) {
	var files []DataFile
	err := r.db.WithContext(ctx).
		Where("file_path = ? AND ignore_flag = 0", path).
		Order("id").
		Find(&files).Error
	return files, err
}
