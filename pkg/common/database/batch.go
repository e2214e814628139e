package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

const DefaultBatchSize = 500

// RowUpdate is one parameter set of a bulk update keyed by primary key.
type RowUpdate struct {
	ID     uint
	Values map[string]interface{}
}

// InsertInBatches writes records (a pointer to a slice of models) in
// multi-row INSERT statements of at most size rows each.
func InsertInBatches(ctx context.Context, tx *gorm.DB, records interface{}, size int) error {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return tx.WithContext(ctx).CreateInBatches(records, size).Error
}

// BulkUpdate applies every parameter set inside the caller's transaction
// through a prepared statement session.
func BulkUpdate(ctx context.Context, tx *gorm.DB, model interface{}, updates []RowUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	stmt := tx.WithContext(ctx).Session(&gorm.Session{PrepareStmt: true})
	for _, u := range updates {
		res := stmt.Model(model).Where("id = ?", u.ID).Updates(u.Values)
		if res.Error != nil {
			return fmt.Errorf("bulk update id %d: %w", u.ID, res.Error)
		}
	}
	return nil
}
