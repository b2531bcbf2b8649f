package pseudonym

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("pseudonym mapping not found")

// MappingRepository is the durable side of the store. The gorm implementation
// below is the production one; tests substitute an in-memory map.
type MappingRepository interface {
	Lookup(ctx context.Context, originalID, identifierType string) (string, error)
	// Save inserts the mapping if absent and returns the authoritative
	// pseudonym. Under a concurrent race the first writer wins; the losing
	// writer adopts the stored value.
	Save(ctx context.Context, rec *MappingRecord) (string, error)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&MappingRecord{})
}

func (r *Repository) Lookup(ctx context.Context, originalID, identifierType string) (string, error) {
	var record MappingRecord
	err := r.db.WithContext(ctx).
		First(&record, "original_identifier = ? AND identifier_type = ?", originalID, identifierType).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return record.Pseudonym, nil
}

func (r *Repository) Save(ctx context.Context, rec *MappingRecord) (string, error) {
	rec.CreatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rec)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		// Lost the race: another resolver inserted first. Adopt its value.
		return r.Lookup(ctx, rec.OriginalIdentifier, rec.IdentifierType)
	}
	return rec.Pseudonym, nil
}
