package outreach

import (
	"context"
	"fmt"

	"github.com/synaptica-ai/genomics/pkg/common/clock"
	"gorm.io/gorm"
)

// Store appends outreach facts. Nothing here is ever updated in place.
type Store struct {
	db    *gorm.DB
	clock clock.Clock
}

func NewStore(db *gorm.DB, clk clock.Clock) *Store {
	return &Store{db: db, clock: clock.Or(clk)}
}

func (s *Store) AutoMigrate() error {
	return s.db.AutoMigrate(Models()...)
}

func (s *Store) RecordReportState(ctx context.Context, rs *MemberReportState) error {
	now := s.clock.Now()
	if rs.Created.IsZero() {
		rs.Created = now
	}
	rs.Modified = now
	rs.ReportStateStr = rs.ReportState.String()
	return s.db.WithContext(ctx).Create(rs).Error
}

func (s *Store) RecordResultViewed(ctx context.Context, rv *ResultViewed) error {
	now := s.clock.Now()
	if rv.Created.IsZero() {
		rv.Created = now
	}
	rv.Modified = now
	return s.db.WithContext(ctx).Create(rv).Error
}

func (s *Store) RecordInformingLoop(ctx context.Context, il *InformingLoop) error {
	now := s.clock.Now()
	if il.Created.IsZero() {
		il.Created = now
	}
	il.Modified = now
	return s.db.WithContext(ctx).Create(il).Error
}

func (s *Store) RecordAppointment(ctx context.Context, ev *AppointmentEvent) error {
	now := s.clock.Now()
	if ev.Created.IsZero() {
		ev.Created = now
	}
	ev.Modified = now
	return s.db.WithContext(ctx).Create(ev).Error
}

// CreateSampleSwap opens a swap investigation and attaches members to it
// under category.
func (s *Store) CreateSampleSwap(ctx context.Context, name, category string, memberIDs ...uint) (*SampleSwap, error) {
	now := s.clock.Now()
	swap := &SampleSwap{Created: now, Name: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(swap).Error; err != nil {
			return err
		}
		for _, id := range memberIDs {
			m := SampleSwapMember{Created: now, GenomicSampleSwapID: swap.ID, GenomicSetMemberID: id, Category: category}
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create sample swap %s: %w", name, err)
	}
	return swap, nil
}
