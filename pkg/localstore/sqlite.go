package localstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type kvEntry struct {
	Key       string    `gorm:"column:store_key;primaryKey"`
	Value     []byte    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (kvEntry) TableName() string {
	return "local_kv"
}

// SQLiteStore keeps values in a single-table sqlite database through gorm.
type SQLiteStore struct {
	conn *gorm.DB
}

// OpenSQLite opens (or creates) the database at dsn. Use ":memory:" style DSNs in tests.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(
			log.New(io.Discard, "", log.LstdFlags),
			gormlogger.Config{LogLevel: gormlogger.Silent},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}
	return newSQLiteStore(ctx, conn)
}

func newSQLiteStore(ctx context.Context, conn *gorm.DB) (*SQLiteStore, error) {
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	// single writer
	sqlDB.SetMaxOpenConns(1)
	if err := conn.WithContext(ctx).AutoMigrate(&kvEntry{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate local_kv: %w", err)
	}
	return &SQLiteStore{conn: conn}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, key string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	entry := kvEntry{Key: key, Value: data, UpdatedAt: time.Now().UTC()}
	return s.conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "store_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

func (s *SQLiteStore) Load(ctx context.Context, key string) ([]byte, error) {
	var entry kvEntry
	err := s.conn.WithContext(ctx).Where("store_key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry.Value, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
