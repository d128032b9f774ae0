package staging

import (
	"context"
	"fmt"
	"strings"

	"dwpipe/internal/warehouse"
	"dwpipe/pkg/errors"
	"dwpipe/pkg/models"
)

// Loader runs the two bulk-load statements that populate the staging tables
// from S3. Each COPY is atomic per table at the statement level: it succeeds
// or raises, the loader never observes a partial load.
type Loader struct {
	cfg     *models.Config
	roleARN string
	exec    Executor
}

// Executor is the statement-running surface the loader needs
type Executor interface {
	ExecSteps(ctx context.Context, steps []warehouse.Step) error
}

// NewLoader creates a loader. roleARN is the resolved identity with read
// access to the S3 locations.
func NewLoader(cfg *models.Config, roleARN string, exec Executor) *Loader {
	return &Loader{cfg: cfg, roleARN: roleARN, exec: exec}
}

// Steps returns the ordered COPY steps: events first, then songs
func (l *Loader) Steps() ([]warehouse.Step, error) {
	events, err := CopyEvents(l.cfg, l.roleARN)
	if err != nil {
		return nil, err
	}
	songs, err := CopySongs(l.cfg, l.roleARN)
	if err != nil {
		return nil, err
	}
	return []warehouse.Step{events, songs}, nil
}

// Run executes both COPY statements in order
func (l *Loader) Run(ctx context.Context) error {
	steps, err := l.Steps()
	if err != nil {
		return err
	}
	return l.exec.ExecSteps(ctx, steps)
}

// CopyEvents builds the staging_events COPY. The event JSON shape needs the
// caller-supplied jsonpaths mapping; timestamps arrive as epoch millis.
func CopyEvents(cfg *models.Config, roleARN string) (warehouse.Step, error) {
	parts, err := literals(map[string]string{
		"S3.LOG_DATA":     cfg.S3.LogData,
		"S3.LOG_JSONPATH": cfg.S3.LogJSONPath,
		"IAM role ARN":    roleARN,
		"AWS.REGION":      cfg.CopyRegion(),
	})
	if err != nil {
		return warehouse.Step{}, err
	}

	sql := fmt.Sprintf(`COPY staging_events FROM %s
IAM_ROLE %s
JSON %s
TIMEFORMAT 'epochmillisecs'
REGION %s;`,
		parts["S3.LOG_DATA"], parts["IAM role ARN"], parts["S3.LOG_JSONPATH"], parts["AWS.REGION"])

	return warehouse.Step{Name: "copy_staging_events", SQL: sql}, nil
}

// CopySongs builds the staging_songs COPY. The song shape is auto-detected.
func CopySongs(cfg *models.Config, roleARN string) (warehouse.Step, error) {
	parts, err := literals(map[string]string{
		"S3.SONG_DATA": cfg.S3.SongData,
		"IAM role ARN": roleARN,
		"AWS.REGION":   cfg.CopyRegion(),
	})
	if err != nil {
		return warehouse.Step{}, err
	}

	sql := fmt.Sprintf(`COPY staging_songs FROM %s
IAM_ROLE %s
JSON 'auto'
REGION %s;`,
		parts["S3.SONG_DATA"], parts["IAM role ARN"], parts["AWS.REGION"])

	return warehouse.Step{Name: "copy_staging_songs", SQL: sql}, nil
}

// literals quotes each configuration value as a SQL string literal. COPY
// options do not accept bound parameters, so the values are embedded; any
// value containing a quote, backslash or control character is rejected
// outright rather than escaped.
func literals(values map[string]string) (map[string]string, error) {
	quoted := make(map[string]string, len(values))
	for field, value := range values {
		if value == "" {
			return nil, errors.ConfigError(fmt.Sprintf("%s is empty", field), field)
		}
		if strings.ContainsAny(value, "'\"\\\n\r;") {
			return nil, errors.New(errors.ErrCodeCopyFailed,
				fmt.Sprintf("%s contains characters not allowed in a COPY option", field)).
				WithContext("field", field)
		}
		quoted[field] = "'" + value + "'"
	}
	return quoted, nil
}
