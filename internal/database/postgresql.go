package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"log/slog"
	"time"

	"shortlink/internal/types"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const linkColumns = "code, target_url, expires_at, click_count, owner_id, last_accessed_at, created_at"

const insertLinkQuery = `INSERT INTO short_links (code, target_url, expires_at, click_count, owner_id, created_at)
VALUES (:code, :target_url, :expires_at, 0, :owner_id, :created_at)
ON CONFLICT (code) DO NOTHING`

const selectLinkQuery = `SELECT ` + linkColumns + ` FROM short_links WHERE code = $1`

const touchLinkQuery = `UPDATE short_links
SET click_count = click_count + 1, last_accessed_at = $2
WHERE code = $1
RETURNING ` + linkColumns

// Postgres keeps links in the short_links table. Uniqueness comes from the
// primary key and ON CONFLICT, clicks from a single UPDATE ... RETURNING.
type Postgres struct {
	db *sqlx.DB
}

func ConnectPostgres(ctx context.Context, url string) (*Postgres, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, err
	}

	pg := NewPostgres(db)

	if err := pg.RunMigrations(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return pg, nil
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) RunMigrations() error {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	driver, err := postgres.WithInstance(p.db.DB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance(
		"iofs", d,
		"postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	slog.Info("Database migrations applied successfully")
	return nil
}

func (p *Postgres) InsertIfAbsent(ctx context.Context, link *types.ShortLink) (bool, error) {
	res, err := p.db.NamedExecContext(ctx, insertLinkQuery, link)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p *Postgres) Get(ctx context.Context, code string) (*types.ShortLink, error) {
	var link types.ShortLink
	if err := p.db.GetContext(ctx, &link, selectLinkQuery, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (p *Postgres) IncrementAndTouch(ctx context.Context, code string, now time.Time) (*types.ShortLink, error) {
	var link types.ShortLink
	if err := p.db.GetContext(ctx, &link, touchLinkQuery, code, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
