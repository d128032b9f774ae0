package schema

// TableDef is one warehouse table: its name and the statement that creates
// it. The order of Tables is the canonical drop and create order.
type TableDef struct {
	Name      string
	CreateSQL string
}

// Tables lists the two staging tables followed by the five star-schema
// tables. Staging columns are nullable and untyped beyond what COPY needs;
// dimension primary keys are declared but Redshift does not enforce them.
var Tables = []TableDef{
	{
		Name: "staging_events",
		CreateSQL: `CREATE TABLE staging_events (
    artist                varchar(250)  null,
    auth                  varchar(10)   null,
    firstName             varchar(50)   null,
    gender                char(1)       null,
    itemInSession         integer       null,
    lastName              varchar(50)   null,
    length                numeric(9,5)  null,
    level                 varchar(10)   null,
    location              varchar(50)   null,
    method                varchar(10)   null,
    page                  varchar(20)   null,
    registration          numeric(13,0) null,
    sessionId             integer       null,
    song                  varchar(250)  null,
    status                integer       null,
    ts                    timestamp     null,
    userAgent             varchar(150)  null,
    userId                integer       null
);`,
	},
	{
		Name: "staging_songs",
		CreateSQL: `CREATE TABLE staging_songs (
    num_songs             integer       null,
    artist_id             varchar(18)   null,
    artist_latitude       numeric(9,6)  null,
    artist_longitude      numeric(9,6)  null,
    artist_location       varchar(400)  null,
    artist_name           varchar(400)  null,
    song_id               varchar(18)   null,
    title                 varchar(400)  null,
    duration              numeric(9,5)  null,
    year                  integer       null
);`,
	},
	{
		Name: "songplays",
		CreateSQL: `CREATE TABLE songplays (
    songplay_id           integer       identity(0,1) primary key,
    start_time            timestamp     null,
    user_id               integer       null,
    level                 varchar(10)   null,
    song_id               varchar(18)   null,
    artist_id             varchar(18)   null,
    session_id            integer       null,
    location              varchar(50)   null,
    user_agent            varchar(150)  null
);`,
	},
	{
		Name: "users",
		CreateSQL: `CREATE TABLE users (
    user_id               integer       primary key,
    first_name            varchar(50)   null,
    last_name             varchar(50)   null,
    gender                char(1)       null,
    level                 varchar(10)   null
);`,
	},
	{
		Name: "songs",
		CreateSQL: `CREATE TABLE songs (
    song_id               varchar(18)   primary key,
    title                 varchar(400)  null,
    artist_id             varchar(18)   null,
    year                  integer       null,
    duration              numeric(9,5)  null
);`,
	},
	{
		Name: "artists",
		CreateSQL: `CREATE TABLE artists (
    artist_id             varchar(18)   primary key,
    name                  varchar(400)  null,
    location              varchar(400)  null,
    latitude              numeric(9,6)  null,
    longitude             numeric(9,6)  null
);`,
	},
	{
		Name: "times",
		CreateSQL: `CREATE TABLE times (
    start_time            timestamp     primary key,
    hour                  integer       null,
    day                   integer       null,
    week                  integer       null,
    month                 integer       null,
    year                  integer       null,
    weekday               integer       null
);`,
	},
}
