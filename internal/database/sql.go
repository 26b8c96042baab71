package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shortlink/internal/types"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type shortLinkRow struct {
	Code           string     `gorm:"column:code;primaryKey;size:255"`
	TargetURL      string     `gorm:"column:target_url;type:text;not null"`
	ExpiresAt      *time.Time `gorm:"column:expires_at"`
	ClickCount     int64      `gorm:"column:click_count;not null;default:0"`
	OwnerID        *string    `gorm:"column:owner_id;size:255;index"`
	LastAccessedAt *time.Time `gorm:"column:last_accessed_at"`
	CreatedAt      time.Time  `gorm:"column:created_at;not null"`
}

func (shortLinkRow) TableName() string {
	return "short_links"
}

func (r *shortLinkRow) toLink() *types.ShortLink {
	return &types.ShortLink{
		Code:           r.Code,
		TargetURL:      r.TargetURL,
		ExpiresAt:      r.ExpiresAt,
		ClickCount:     r.ClickCount,
		OwnerID:        r.OwnerID,
		LastAccessedAt: r.LastAccessedAt,
		CreatedAt:      r.CreatedAt,
	}
}

// Codes are case-sensitive. MySQL's default collation is not, so tables
// created there compare bytes instead.
const mysqlTableOptions = "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin"

// SQL stores links through gorm on SQLite or MySQL.
type SQL struct {
	db      *gorm.DB
	dialect string
}

// OpenSQL connects with the given dialect ("sqlite" or "mysql") and
// migrates the short_links table.
func OpenSQL(dialect, dsn string) (*SQL, error) {
	var dialector gorm.Dialector
	switch dialect {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if dialect == "sqlite" {
		// SQLite allows a single writer; one connection queues writers in
		// the pool instead of failing with "database is locked".
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	s := &SQL{db: db, dialect: dialect}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQL) Migrate() error {
	return s.migrator().AutoMigrate(&shortLinkRow{})
}

func (s *SQL) migrator() *gorm.DB {
	if s.dialect == "mysql" {
		return s.db.Set("gorm:table_options", mysqlTableOptions)
	}
	return s.db
}

func (s *SQL) InsertIfAbsent(ctx context.Context, link *types.ShortLink) (bool, error) {
	row := shortLinkRow{
		Code:      link.Code,
		TargetURL: link.TargetURL,
		ExpiresAt: link.ExpiresAt,
		OwnerID:   link.OwnerID,
		CreatedAt: link.CreatedAt,
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *SQL) Get(ctx context.Context, code string) (*types.ShortLink, error) {
	var row shortLinkRow
	err := s.db.WithContext(ctx).Where("code = ?", code).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.toLink(), nil
}

// IncrementAndTouch bumps the counter with a single UPDATE and reads the
// row back inside the same transaction, while the row lock is still held.
func (s *SQL) IncrementAndTouch(ctx context.Context, code string, now time.Time) (*types.ShortLink, error) {
	var row shortLinkRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&shortLinkRow{}).
			Where("code = ?", code).
			Updates(map[string]any{
				"click_count":      gorm.Expr("click_count + ?", 1),
				"last_accessed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("code = ?", code).Take(&row).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return row.toLink(), nil
}

func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
