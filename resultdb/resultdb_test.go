package resultdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/carbocation/histdiff/hdscore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRead(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "scores.db"))
	require.NoError(t, err)
	defer db.Close()

	tbl := hdscore.NewTable()
	_, err = tbl.Merge("plate", hdscore.Scores{
		"A1": {"area": -0.5, "size": 1},
		"A2": {"area": 0.25},
	}, hdscore.Overwrite)
	require.NoError(t, err)

	ctx := context.Background()
	n, err := Write(ctx, db, "P1", tbl)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	rows, err := Scores(ctx, db, "P1")
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "A1", rows[0].Well)
	assert.Equal(t, "area", rows[0].Feature)
	assert.Equal(t, -0.5, rows[0].Score.Float64)
	assert.Equal(t, "plate", rows[0].Group)

	assert.Equal(t, "A2", rows[3].Well)
	assert.Equal(t, "size", rows[3].Feature)
	assert.False(t, rows[3].Score.Valid)
	runID := rows[0].RunID
	assert.NotEmpty(t, runID)
	for _, r := range rows {
		assert.Equal(t, runID, r.RunID)
	}

	// Writing the plate again replaces it.
	n, err = Write(ctx, db, "P1", tbl)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	rows, err = Scores(ctx, db, "P1")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.NotEqual(t, runID, rows[0].RunID)

	_, err = Write(ctx, db, "P2", tbl)
	require.NoError(t, err)
	plates, err := Plates(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1", "P2"}, plates)
}

func TestDriverFor(t *testing.T) {
	driver, dsn := driverFor("postgres://user@localhost/histdiff")
	assert.Equal(t, "postgres", driver)
	assert.Equal(t, "postgres://user@localhost/histdiff", dsn)

	driver, dsn = driverFor("/tmp/scores.db")
	assert.Equal(t, "sqlite3", driver)
	assert.Equal(t, "file:/tmp/scores.db", dsn)

	_, dsn = driverFor("file:scores.db")
	assert.Equal(t, "file:scores.db", dsn)
}
