package transform

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwpipe/internal/warehouse"
	"dwpipe/pkg/errors"
)

func TestStepOrder(t *testing.T) {
	want := []string{
		"insert_songplays",
		"insert_users",
		"insert_songs",
		"insert_artists",
		"insert_times",
	}

	steps := Steps()
	require.Len(t, steps, len(want))
	for i, step := range steps {
		assert.Equal(t, want[i], step.Name)
	}
}

func TestSongplayStatement(t *testing.T) {
	assert.Contains(t, insertSongplaysSQL, "SELECT DISTINCT")
	assert.Contains(t, insertSongplaysSQL, "JOIN staging_songs s")
	assert.Contains(t, insertSongplaysSQL, "ON e.song = s.title")
	assert.Contains(t, insertSongplaysSQL, "AND e.artist = s.artist_name")
	// Inner join: unmatched events drop out, they never error
	assert.NotContains(t, insertSongplaysSQL, "LEFT JOIN")
	assert.NotContains(t, insertSongplaysSQL, "OUTER")
}

func TestUserStatementFiltersNullIds(t *testing.T) {
	assert.Contains(t, insertUsersSQL, "SELECT DISTINCT")
	assert.Contains(t, insertUsersSQL, "WHERE userId IS NOT NULL")
}

func TestDimensionStatementsAreDistinct(t *testing.T) {
	for _, sql := range []string{insertSongsSQL, insertArtistsSQL, insertTimesSQL} {
		assert.Contains(t, sql, "SELECT DISTINCT")
	}
}

func TestTimeStatementCalendarParts(t *testing.T) {
	// One consistent convention for the whole run: the warehouse EXTRACT
	// calendar, ISO week numbering and weekday 0=Sunday.
	for _, part := range []string{"hour", "day", "week", "month", "year", "weekday"} {
		assert.Contains(t, insertTimesSQL, fmt.Sprintf("EXTRACT(%s FROM ts)", part))
	}
	assert.Contains(t, insertTimesSQL, "FROM staging_events")
}

func TestCalendarReference(t *testing.T) {
	// Fixed reference for the documented convention: 2024-03-04T05:06:07 is
	// a Monday in ISO week 10. Redshift's EXTRACT(weekday ...) numbers
	// Sunday as 0, so the expected stored weekday for this timestamp is 1.
	ts := time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)

	assert.Equal(t, time.Monday, ts.Weekday())
	_, week := ts.ISOWeek()
	assert.Equal(t, 10, week)
	assert.Equal(t, 1, int(ts.Weekday()))
}

func expectEmptyFactProbe(mock sqlmock.Sqlmock, count int64) {
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM songplays`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
}

func expectNoCollisions(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT user_id FROM users GROUP BY user_id`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
}

func TestRunExecutesAllStepsInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.MatchExpectationsInOrder(true)
	expectEmptyFactProbe(mock, 0)
	mock.ExpectExec("INSERT INTO songplays").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 2))
	expectNoCollisions(mock)
	mock.ExpectExec("INSERT INTO songs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO artists").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO times").WillReturnResult(sqlmock.NewResult(0, 2))

	engine := NewEngine(warehouse.NewServiceWithDB(db))
	require.NoError(t, engine.Run(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunRefusesPopulatedFactTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expectEmptyFactProbe(mock, 42)

	engine := NewEngine(warehouse.NewServiceWithDB(db))
	err = engine.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeFactNotEmpty, errors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "42")
	// No insert may run after a refused precondition
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunForceSkipsPrecondition(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.MatchExpectationsInOrder(true)
	mock.ExpectExec("INSERT INTO songplays").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
	expectNoCollisions(mock)
	mock.ExpectExec("INSERT INTO songs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO artists").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO times").WillReturnResult(sqlmock.NewResult(0, 1))

	engine := NewEngine(warehouse.NewServiceWithDB(db))
	engine.Force = true
	require.NoError(t, engine.Run(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunSurfacesUserCollisions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.MatchExpectationsInOrder(true)
	expectEmptyFactProbe(mock, 0)
	mock.ExpectExec("INSERT INTO songplays").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectQuery(`SELECT user_id FROM users GROUP BY user_id`).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(8).AddRow(42))

	engine := NewEngine(warehouse.NewServiceWithDB(db))
	err = engine.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDimensionConflict, errors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "8, 42")
	// The song/artist/time inserts must not have run
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunStopsAtFailedStep(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.MatchExpectationsInOrder(true)
	expectEmptyFactProbe(mock, 0)
	mock.ExpectExec("INSERT INTO songplays").
		WillReturnError(fmt.Errorf("serialization failure"))

	engine := NewEngine(warehouse.NewServiceWithDB(db))
	err = engine.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeStatementFailed, errors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "insert_songplays")
	assert.NoError(t, mock.ExpectationsWereMet())
}
