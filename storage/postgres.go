package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ewintr.nl/uploadwatch/model"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

type Postgres struct {
	db *sql.DB
}

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	p, err := NewPostgres(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return p, nil
}

// NewPostgres brings the schema of db up to date.
func NewPostgres(ctx context.Context, db *sql.DB) (*Postgres, error) {
	p := &Postgres{db: db}
	if err := p.migrate(ctx, pgMigration); err != nil {
		return nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}

	return p, nil
}

func (p *Postgres) Record(ctx context.Context, sub model.Submission, at time.Time) error {
	if _, err := p.db.ExecContext(ctx, `
INSERT INTO submission
(id, target, title, url, submitted_at)
VALUES ($1, $2, $3, $4, $5)
`, uuid.New(), sub.Target, sub.Title, sub.URL, at); err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}

	return nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) migrate(ctx context.Context, wanted []string) error {
	if _, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS migration
("id" SERIAL PRIMARY KEY, "query" TEXT)`); err != nil {
		return err
	}

	rows, err := p.db.QueryContext(ctx, `SELECT query FROM migration ORDER BY id`)
	if err != nil {
		return err
	}

	existing := []string{}
	for rows.Next() {
		var query string
		if err := rows.Scan(&query); err != nil {
			rows.Close()
			return err
		}
		existing = append(existing, query)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	missing, err := compareMigrations(wanted, existing)
	if err != nil {
		return err
	}

	for _, query := range missing {
		tx, err := p.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %q: %w", query, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO migration (query) VALUES ($1)`, query); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}

	return nil
}

func compareMigrations(wanted, existing []string) ([]string, error) {
	needed := []string{}
	if len(wanted) < len(existing) {
		return []string{}, fmt.Errorf("not enough migrations")
	}

	for i, want := range wanted {
		switch {
		case i >= len(existing):
			needed = append(needed, want)
		case want == existing[i]:
			// do nothing
		case want != existing[i]:
			return []string{}, fmt.Errorf("incompatible migration: %v", want)
		}
	}

	return needed, nil
}
