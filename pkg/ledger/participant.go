package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/synaptica-ai/genomics/pkg/genomic"
	"gorm.io/gorm"
)

// Participant status values mirror the enrollment system's encoding.
const (
	QuestionnaireUnset              = 0
	QuestionnaireSubmitted          = 1
	QuestionnaireSubmittedNoConsent = 2

	WithdrawalUnset        = 0
	WithdrawalNotWithdrawn = 1
	WithdrawalNoUse        = 2
	WithdrawalEarlyOut     = 3

	SuspensionUnset        = 0
	SuspensionNotSuspended = 1
	SuspensionNoContact    = 2

	DeceasedUnset    = 0
	DeceasedPending  = 1
	DeceasedApproved = 2
)

const (
	ConsentTypeGROR    = "GROR"
	ConsentTypePrimary = "PRIMARY"

	ConsentSyncNeedsCorrecting = "NEEDS_CORRECTING"
	ConsentSyncReadyForSync    = "READY_FOR_SYNC"
	ConsentSyncComplete        = "SYNC_COMPLETE"
)

type ParticipantSummary struct {
	ID                                uint       `gorm:"primaryKey;column:id"`
	ParticipantID                     uint       `gorm:"column:participant_id;uniqueIndex"`
	ParticipantOrigin                 string     `gorm:"column:participant_origin"`
	WithdrawalStatus                  int        `gorm:"column:withdrawal_status"`
	WithdrawalAuthored                *time.Time `gorm:"column:withdrawal_authored"`
	SuspensionStatus                  int        `gorm:"column:suspension_status"`
	DeceasedStatus                    int        `gorm:"column:deceased_status"`
	ConsentForStudyEnrollment         int        `gorm:"column:consent_for_study_enrollment"`
	ConsentForStudyEnrollmentAuthored *time.Time `gorm:"column:consent_for_study_enrollment_authored"`
	ConsentForGenomicsROR             int        `gorm:"column:consent_for_genomics_ror"`
	ConsentForGenomicsRORAuthored     *time.Time `gorm:"column:consent_for_genomics_ror_authored"`
}

func (ParticipantSummary) TableName() string {
	return "participant_summary"
}

type ConsentFile struct {
	ID            uint   `gorm:"primaryKey;column:id"`
	ParticipantID uint   `gorm:"column:participant_id;index"`
	Type          string `gorm:"column:type"`
	SyncStatus    string `gorm:"column:sync_status"`
}

func (ConsentFile) TableName() string {
	return "consent_file"
}

type BiobankOrder struct {
	BiobankOrderID string     `gorm:"primaryKey;column:biobank_order_id"`
	ParticipantID  uint       `gorm:"column:participant_id"`
	IsIgnored      int        `gorm:"column:is_ignored"`
	FinalizedTime  *time.Time `gorm:"column:finalized_time"`
}

func (BiobankOrder) TableName() string {
	return "biobank_order"
}

type BiobankOrderIdentifier struct {
	Value          string `gorm:"primaryKey;column:value"`
	BiobankOrderID string `gorm:"column:biobank_order_id;index"`
}

func (BiobankOrderIdentifier) TableName() string {
	return "biobank_order_identifier"
}

type BiobankStoredSample struct {
	BiobankStoredSampleID  string `gorm:"primaryKey;column:biobank_stored_sample_id"`
	BiobankOrderIdentifier string `gorm:"column:biobank_order_identifier;index"`
	BiobankID              string `gorm:"column:biobank_id;index"`
	Test                   string `gorm:"column:test"`
}

func (BiobankStoredSample) TableName() string {
	return "biobank_stored_sample"
}

// Participants reads and seeds the participant side tables. They are owned
// by the enrollment system; this service only writes them in tests and
// local fixtures.
type Participants struct {
	db *gorm.DB
}

func NewParticipants(db *gorm.DB) *Participants {
	return &Participants{db: db}
}

func (p *Participants) AutoMigrate() error {
	return p.db.AutoMigrate(
		&ParticipantSummary{},
		&ConsentFile{},
		&BiobankOrder{},
		&BiobankOrderIdentifier{},
		&BiobankStoredSample{},
	)
}

func (p *Participants) Summary(ctx context.Context, participantID uint) (*ParticipantSummary, error) {
	var s ParticipantSummary
	result := p.db.WithContext(ctx).Where("participant_id = ?", participantID).First(&s)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, genomic.NotFound("participant summary", participantID)
	}
	return &s, result.Error
}

func (p *Participants) SaveSummary(ctx context.Context, s *ParticipantSummary) error {
	return p.db.WithContext(ctx).Save(s).Error
}

func (p *Participants) SaveStoredSample(ctx context.Context, s *BiobankStoredSample) error {
	return p.db.WithContext(ctx).Create(s).Error
}

func (p *Participants) SaveConsentFile(ctx context.Context, f *ConsentFile) error {
	return p.db.WithContext(ctx).Create(f).Error
}

// SaveBiobankOrder links a collection tube to its order through the
// identifier and stored-sample rows.
func (p *Participants) SaveBiobankOrder(ctx context.Context, order *BiobankOrder, identifier, collectionTubeID string) error {
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("create biobank order: %w", err)
		}
		if err := tx.Create(&BiobankOrderIdentifier{Value: identifier, BiobankOrderID: order.BiobankOrderID}).Error; err != nil {
			return fmt.Errorf("create order identifier: %w", err)
		}
		return tx.Create(&BiobankStoredSample{
			BiobankStoredSampleID:  collectionTubeID,
			BiobankOrderIdentifier: identifier,
		}).Error
	})
}
