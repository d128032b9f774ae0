package analytics

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwpipe/internal/warehouse"
	"dwpipe/pkg/errors"
)

func TestReport(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM staging_events`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(8056))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM staging_songs`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(14896))
	mock.ExpectQuery(`SELECT a.name, s.title`).
		WillReturnRows(sqlmock.NewRows([]string{"name", "title", "plays"}).
			AddRow("Dwight Yoakam", "You're The One", 37))
	mock.ExpectQuery(`SELECT location`).
		WillReturnRows(sqlmock.NewRows([]string{"location", "plays"}).
			AddRow("San Francisco-Oakland-Hayward, CA", 41))

	var buf bytes.Buffer
	err = Report(context.Background(), warehouse.NewServiceWithDB(db), &buf)

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "8056")
	assert.Contains(t, out, "14896")
	assert.Contains(t, out, "You're The One by Dwight Yoakam (37 plays)")
	assert.Contains(t, out, "San Francisco-Oakland-Hayward, CA (41 plays)")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportEmptyWarehouse(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM staging_events`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM staging_songs`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT a.name, s.title`).
		WillReturnRows(sqlmock.NewRows([]string{"name", "title", "plays"}))
	mock.ExpectQuery(`SELECT location`).
		WillReturnRows(sqlmock.NewRows([]string{"location", "plays"}))

	var buf bytes.Buffer
	err = Report(context.Background(), warehouse.NewServiceWithDB(db), &buf)

	require.NoError(t, err)
	// No top-N rows on an empty model, counts still render
	assert.Contains(t, buf.String(), "Events in staging")
	assert.NotContains(t, buf.String(), "Most played song")
}

func TestReportSurfacesQueryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM staging_events`).
		WillReturnError(fmt.Errorf(`relation "staging_events" does not exist`))

	var buf bytes.Buffer
	err = Report(context.Background(), warehouse.NewServiceWithDB(db), &buf)

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeStatementFailed, errors.GetErrorCode(err))
}
