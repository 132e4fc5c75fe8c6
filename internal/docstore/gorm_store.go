package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type documentRow struct {
	Collection string    `gorm:"column:collection;primaryKey"`
	DocID      string    `gorm:"column:doc_id;primaryKey"`
	Data       string    `gorm:"column:data"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (documentRow) TableName() string { return "documents" }

// GormStore keeps one JSON document per row. Merge-write runs inside a
// transaction with a row lock on dialects that support it, so two
// concurrent merges on the same document serialize instead of clobbering
// each other's fields.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates the documents table.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&documentRow{})
}

func (s *GormStore) Get(ctx context.Context, collection, id string) (Fields, error) {
	var row documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("docstore get %s/%s: %w", collection, id, err)
	}
	return decode(row.Data)
}

func (s *GormStore) MergeWrite(ctx context.Context, collection, id string, fields Fields) error {
	if len(fields) == 0 {
		return nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("collection = ? AND doc_id = ?", collection, id)
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		merged := Fields{}
		var row documentRow
		if err := q.First(&row).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		} else {
			existing, err := decode(row.Data)
			if err != nil {
				return err
			}
			merged = existing
		}

		for k, v := range fields {
			merged[k] = v
		}

		data, err := json.Marshal(merged)
		if err != nil {
			return err
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).Create(&documentRow{
			Collection: collection,
			DocID:      id,
			Data:       string(data),
			UpdatedAt:  time.Now(),
		}).Error
	})
	if err != nil {
		return fmt.Errorf("docstore merge %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *GormStore) QueryWhere(ctx context.Context, collection, field string, value any) ([]Fields, error) {
	var rows []documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("docstore query %s: %w", collection, err)
	}

	// Equality filter runs on decoded documents: portable across the
	// postgres/sqlite split and the roster collections stay small.
	want := fmt.Sprintf("%v", value)
	var out []Fields
	for _, row := range rows {
		doc, err := decode(row.Data)
		if err != nil {
			return nil, err
		}
		got, ok := doc[field]
		if !ok {
			continue
		}
		if fmt.Sprintf("%v", got) == want {
			out = append(out, doc)
		}
	}
	return out, nil
}

func decode(data string) (Fields, error) {
	var f Fields
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return nil, fmt.Errorf("docstore decode: %w", err)
	}
	return f, nil
}
