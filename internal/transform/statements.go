package transform

import "dwpipe/internal/warehouse"

// The five star-schema derivations, in execution order. The fact insert runs
// first; its inner join embeds the song/artist dimension lookup, so it reads
// only the staging tables and never depends on the dimension inserts.
//
// Every statement is scoped to its own result set: DISTINCT collapses
// duplicates within one run but nothing deduplicates against rows already in
// the target tables. A fresh run requires empty fact/dimension tables; the
// engine enforces that precondition (see engine.go).

// insertSongplaysSQL resolves each event's (song, artist) text pair against
// the catalog. Events without a catalog match are dropped by the inner join;
// that is a data-quality gap, not an error. Byte-identical duplicate events
// collapse to one fact row, genuinely repeated identical plays do too.
const insertSongplaysSQL = `INSERT INTO songplays (
    start_time,
    user_id,
    level,
    song_id,
    artist_id,
    session_id,
    location,
    user_agent
) SELECT DISTINCT
    e.ts,
    e.userId,
    e.level,
    s.song_id,
    s.artist_id,
    e.sessionId,
    e.location,
    e.userAgent
    FROM staging_events e
    JOIN staging_songs s
    ON e.song = s.title
    AND e.artist = s.artist_name;`

// insertUsersSQL derives one row per distinct attribute tuple. A user whose
// level changes within one load yields two rows for one user_id; Redshift
// does not enforce the primary key, so the engine probes for collisions
// after this step instead of letting them pass silently.
const insertUsersSQL = `INSERT INTO users (
    user_id,
    first_name,
    last_name,
    gender,
    level
) SELECT DISTINCT
    userId,
    firstName,
    lastName,
    gender,
    level
    FROM staging_events
    WHERE userId IS NOT NULL;`

const insertSongsSQL = `INSERT INTO songs (
    song_id,
    title,
    artist_id,
    year,
    duration
) SELECT DISTINCT
    song_id,
    title,
    artist_id,
    year,
    duration
    FROM staging_songs;`

const insertArtistsSQL = `INSERT INTO artists (
    artist_id,
    name,
    location,
    latitude,
    longitude
) SELECT DISTINCT
    artist_id,
    artist_name,
    artist_location,
    artist_latitude,
    artist_longitude
    FROM staging_songs;`

// insertTimesSQL expands each distinct event timestamp into calendar parts
// using the warehouse's native EXTRACT: week is ISO-8601 week numbering,
// weekday is 0=Sunday through 6=Saturday. One convention for the whole run.
const insertTimesSQL = `INSERT INTO times (
    start_time,
    hour,
    day,
    week,
    month,
    year,
    weekday
) SELECT DISTINCT
    ts,
    EXTRACT(hour FROM ts),
    EXTRACT(day FROM ts),
    EXTRACT(week FROM ts),
    EXTRACT(month FROM ts),
    EXTRACT(year FROM ts),
    EXTRACT(weekday FROM ts)
    FROM staging_events;`

// Steps returns the ordered insert sequence
func Steps() []warehouse.Step {
	return []warehouse.Step{
		{Name: "insert_songplays", SQL: insertSongplaysSQL},
		{Name: "insert_users", SQL: insertUsersSQL},
		{Name: "insert_songs", SQL: insertSongsSQL},
		{Name: "insert_artists", SQL: insertArtistsSQL},
		{Name: "insert_times", SQL: insertTimesSQL},
	}
}
