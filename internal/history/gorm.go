package history

import (
	"context"
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Blob struct {
	Key       string `gorm:"primaryKey;size:128"`
	Data      []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func (Blob) TableName() string { return "history_blobs" }

// GormStore keeps history blobs in a relational table. The default
// deployment uses a local sqlite file.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Blob{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// OpenSQLite opens (creating if needed) a sqlite-backed store at path.
func OpenSQLite(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return NewGormStore(db)
}

func (s *GormStore) Load(ctx context.Context, key string) ([]byte, error) {
	var b Blob
	if err := s.db.WithContext(ctx).First(&b, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b.Data, nil
}

func (s *GormStore) Save(ctx context.Context, key string, data []byte) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&Blob{Key: key, Data: data, UpdatedAt: time.Now()}).Error
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&Blob{}, "key = ?", key).Error
}
