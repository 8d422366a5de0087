// Package resultdb stores HistDiff scores in SQLite or PostgreSQL, one row
// per (plate, well, feature), so that the scores of many plates can be
// queried together.
package resultdb

import (
	"context"
	"strings"

	"github.com/carbocation/histdiff/hdscore"
	"github.com/carbocation/pfx"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"gopkg.in/guregu/null.v3"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `CREATE TABLE IF NOT EXISTS histdiff_score (
	plate TEXT NOT NULL,
	well TEXT NOT NULL,
	feature TEXT NOT NULL,
	score REAL,
	grp TEXT NOT NULL DEFAULT '',
	run_id TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (plate, well, feature)
)`

// Score is one stored cell. A NULL score means the well had no score for the
// feature.
type Score struct {
	Plate   string     `db:"plate"`
	Well    string     `db:"well"`
	Feature string     `db:"feature"`
	Score   null.Float `db:"score"`
	Group   string     `db:"grp"`

	// RunID identifies the Write call that stored the row.
	RunID string `db:"run_id"`
}

// Open connects to the database named by dsn, creating the score table if
// needed. postgres:// and postgresql:// URLs go to PostgreSQL; anything else
// is the path of a SQLite file.
func Open(dsn string) (*sqlx.DB, error) {
	driver, dsn := driverFor(dsn)

	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, pfx.Err(err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, pfx.Err(err)
	}

	return db, nil
}

func driverFor(dsn string) (driver, name string) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres", dsn
	}

	// URI filenames have to begin with 'file:'; see
	// https://www.sqlite.org/c3ref/open.html
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}

	return "sqlite3", dsn
}

// Write replaces the stored scores of plateName with the content of t, in one
// transaction. Every well gets a row for every feature of the table. It
// returns the number of rows written.
func Write(ctx context.Context, db *sqlx.DB, plateName string, t *hdscore.Table) (int, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, pfx.Err(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM histdiff_score WHERE plate = ?"), plateName); err != nil {
		return 0, pfx.Err(err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, `INSERT INTO histdiff_score (plate, well, feature, score, grp, run_id)
VALUES (:plate, :well, :feature, :score, :grp, :run_id)`)
	if err != nil {
		return 0, pfx.Err(err)
	}
	defer stmt.Close()

	n := 0
	runID := uuid.NewString()
	features := t.Features()
	for _, well := range t.Wells() {
		for _, feature := range features {
			row := Score{
				Plate:   plateName,
				Well:    well,
				Feature: feature,
				Score:   t.Get(well, feature),
				Group:   t.Group(well),
				RunID:   runID,
			}
			if _, err := stmt.ExecContext(ctx, row); err != nil {
				return n, pfx.Err(err)
			}
			n++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, pfx.Err(err)
	}

	return n, nil
}

// Scores reads back the stored scores of one plate, ordered by well and
// feature name.
func Scores(ctx context.Context, db *sqlx.DB, plateName string) ([]Score, error) {
	out := []Score{}
	err := db.SelectContext(ctx, &out, db.Rebind(`SELECT plate, well, feature, score, grp, run_id
FROM histdiff_score WHERE plate = ? ORDER BY well, feature`), plateName)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return out, nil
}

// Plates lists the plates that have stored scores.
func Plates(ctx context.Context, db *sqlx.DB) ([]string, error) {
	out := []string{}
	if err := db.SelectContext(ctx, &out, "SELECT DISTINCT plate FROM histdiff_score ORDER BY plate"); err != nil {
		return nil, pfx.Err(err)
	}

	return out, nil
}
