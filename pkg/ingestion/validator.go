package ingestion

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/synaptica-ai/genomics/pkg/genomic"
	"github.com/synaptica-ai/genomics/pkg/ledger"
	"github.com/synaptica-ai/genomics/pkg/reconcile"
)

// RowError reports the failed fields of one manifest line. Row is 1-based.
type RowError struct {
	Row    int
	Fields []string
}

func (e RowError) String() string {
	return fmt.Sprintf("row %d: %s", e.Row, strings.Join(e.Fields, ","))
}

// BatchError rejects a whole batch because some of its lines are invalid.
type BatchError struct {
	Family reconcile.Family
	Rows   []RowError
}

func (e *BatchError) Error() string {
	parts := make([]string, 0, len(e.Rows))
	for _, r := range e.Rows {
		parts = append(parts, r.String())
	}
	return fmt.Sprintf("%s value validation failed: %s", e.Family, strings.Join(parts, "; "))
}

// Unwrap makes a rejected batch a genomic.ValidationError to errors.As.
func (e *BatchError) Unwrap() error {
	return genomic.NewValidationError("%d invalid %s rows", len(e.Rows), e.Family)
}

type Validator struct {
	validate *validator.Validate
	prefix   string
}

func NewValidator(biobankPrefix string) *Validator {
	return &Validator{validate: validator.New(), prefix: biobankPrefix}
}

// Lines decodes and validates every row of a batch. All rows are checked
// so the error names every bad line.
func (v *Validator) Lines(family reconcile.Family, rows []map[string]interface{}) ([]Line, error) {
	lines := make([]Line, 0, len(rows))
	var bad []RowError
	for i, raw := range rows {
		line := lineFrom(normalizeRow(raw), v.prefix)
		if err := v.check(family, line); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return nil, err
			}
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+":"+fe.Tag())
			}
			sort.Strings(fields)
			bad = append(bad, RowError{Row: i + 1, Fields: fields})
			continue
		}
		lines = append(lines, line)
	}
	if len(bad) > 0 {
		return nil, &BatchError{Family: family, Rows: bad}
	}
	return lines, nil
}

func (v *Validator) check(family reconcile.Family, l Line) error {
	switch family {
	case reconcile.FamilyAW1:
		return v.validate.Struct(aw1Line(l))
	case reconcile.FamilyAW2, reconcile.FamilyAW3, reconcile.FamilyAW4,
		reconcile.FamilyW2W, reconcile.FamilyW3SC:
		return v.validate.Struct(gcLine(l))
	case reconcile.FamilyW4WR:
		return v.validate.Struct(cvlResultLine(l))
	case reconcile.FamilyLR:
		return v.validate.Struct(longReadRequestLine(l))
	case reconcile.FamilyPR, reconcile.FamilyRR:
		return v.validate.Struct(requestLine(l))
	case reconcile.FamilyL1:
		return v.validate.Struct(longReadSampleLine(l))
	case reconcile.FamilyP1, reconcile.FamilyR1:
		return v.validate.Struct(sampleLine(l))
	}
	return genomic.NewValidationError("no validation rules for %s", family)
}

func normalizeBiobankID(prefix, id string) string {
	return ledger.NormalizeBiobankID(prefix, id)
}
