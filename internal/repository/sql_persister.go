package repository

import (
	"context"
	"fmt"

	"github.com/timmy/copyscale/internal/domain"
	"gorm.io/gorm"
)

const insertBatchSize = 100

// SQLPersister keeps the document as rows of the fingerprints table.
type SQLPersister struct {
	db *gorm.DB
}

// NewSQLPersister creates a persister on an initialized database.
func NewSQLPersister(db *gorm.DB) *SQLPersister {
	return &SQLPersister{db: db}
}

// Load reads every row in enumeration order.
func (p *SQLPersister) Load(ctx context.Context) (Document, error) {
	var records []domain.FingerprintRecord
	if err := p.db.WithContext(ctx).Order("position ASC").Find(&records).Error; err != nil {
		return Document{}, fmt.Errorf("%w: load fingerprints: %v", domain.ErrStoreIO, err)
	}
	return Document{Records: records}, nil
}

// Save replaces the table contents in one transaction.
func (p *SQLPersister) Save(ctx context.Context, doc Document) error {
	records := make([]domain.FingerprintRecord, len(doc.Records))
	for i, rec := range doc.Records {
		rec.Position = i
		records[i] = rec
	}

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&domain.FingerprintRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, insertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("%w: save fingerprints: %v", domain.ErrStoreIO, err)
	}
	return nil
}
