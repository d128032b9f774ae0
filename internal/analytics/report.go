// Package analytics runs read-only reporting queries over the completed star
// schema. It is a consumer of the dimensional model, not part of the
// pipeline: nothing here writes to the warehouse.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"dwpipe/pkg/errors"
)

const (
	stagingEventCountSQL = `SELECT COUNT(*) FROM staging_events;`
	stagingSongCountSQL  = `SELECT COUNT(*) FROM staging_songs;`

	topSongSQL = `SELECT a.name, s.title, COUNT(*) AS plays
    FROM songplays p
    JOIN artists a ON p.artist_id = a.artist_id
    JOIN songs s ON s.song_id = p.song_id
    GROUP BY a.name, s.title
    ORDER BY plays DESC
    LIMIT 1;`

	topLocationSQL = `SELECT location, COUNT(*) AS plays
    FROM songplays
    GROUP BY location
    ORDER BY plays DESC
    LIMIT 1;`
)

// Querier is the read-only query surface the report needs. Every report
// statement returns at most one row.
type Querier interface {
	QueryRow(ctx context.Context, query string, args ...interface{}) (*sql.Row, error)
}

// Report runs the sample analytical queries and renders them to w
func Report(ctx context.Context, q Querier, w io.Writer) error {
	eventCount, err := scanCount(ctx, q, stagingEventCountSQL)
	if err != nil {
		return errors.StatementError("count_staging_events", stagingEventCountSQL, err)
	}
	songCount, err := scanCount(ctx, q, stagingSongCountSQL)
	if err != nil {
		return errors.StatementError("count_staging_songs", stagingSongCountSQL, err)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	// Song titles and MSA location names overflow the default column width;
	// keep each value on one line.
	table.SetAutoWrapText(false)
	table.Append([]string{"Events in staging", strconv.FormatInt(eventCount, 10)})
	table.Append([]string{"Songs in staging", strconv.FormatInt(songCount, 10)})

	if artist, title, plays, ok, err := topSong(ctx, q); err != nil {
		return err
	} else if ok {
		table.Append([]string{"Most played song",
			fmt.Sprintf("%s by %s (%d plays)", title, artist, plays)})
	}

	if location, plays, ok, err := topLocation(ctx, q); err != nil {
		return err
	} else if ok {
		table.Append([]string{"Most active location",
			fmt.Sprintf("%s (%d plays)", location, plays)})
	}

	table.Render()
	return nil
}

func scanCount(ctx context.Context, q Querier, query string) (int64, error) {
	row, err := q.QueryRow(ctx, query)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func topSong(ctx context.Context, q Querier) (artist, title string, plays int64, ok bool, err error) {
	row, err := q.QueryRow(ctx, topSongSQL)
	if err != nil {
		return "", "", 0, false, errors.StatementError("top_song", topSongSQL, err)
	}
	switch err := row.Scan(&artist, &title, &plays); err {
	case nil:
		return artist, title, plays, true, nil
	case sql.ErrNoRows:
		return "", "", 0, false, nil
	default:
		return "", "", 0, false, errors.StatementError("top_song", topSongSQL, err)
	}
}

func topLocation(ctx context.Context, q Querier) (location string, plays int64, ok bool, err error) {
	row, err := q.QueryRow(ctx, topLocationSQL)
	if err != nil {
		return "", 0, false, errors.StatementError("top_location", topLocationSQL, err)
	}
	switch err := row.Scan(&location, &plays); err {
	case nil:
		return location, plays, true, nil
	case sql.ErrNoRows:
		return "", 0, false, nil
	default:
		return "", 0, false, errors.StatementError("top_location", topLocationSQL, err)
	}
}
