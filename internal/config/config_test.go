package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dwpipe/pkg/errors"
)

const validConfig = `[IAM]
ROLE_NAME = dwh-redshift-role

[EC2]
SECURITY_GROUP_NAME = dwh-redshift-sg

[REDSHIFT]
CLUSTER_TYPE = multi-node
NUM_NODES = 4
NODE_TYPE = dc2.large
CLUSTER_IDENTIFIER = dwh-cluster
DB_NAME = dwh
DB_USER = dwhuser
DB_PASSWORD = Passw0rd
PORT = 5439

[S3]
LOG_DATA = s3://udacity-dend/log_data
SONG_DATA = s3://udacity-dend/song_data
LOG_JSONPATH = s3://udacity-dend/log_json_path.json
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dwh.cfg")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "dwh-redshift-role", cfg.IAM.RoleName)
	assert.Equal(t, "dwh-redshift-sg", cfg.EC2.SecurityGroupName)
	assert.Equal(t, "dwh-cluster", cfg.Redshift.ClusterIdentifier)
	assert.Equal(t, "5439", cfg.Redshift.Port)
	assert.Equal(t, "s3://udacity-dend/log_json_path.json", cfg.S3.LogJSONPath)

	// AWS.REGION is optional and defaults downstream
	assert.Empty(t, cfg.AWS.Region)
	assert.Equal(t, "us-west-2", cfg.CopyRegion())
}

func TestLoadRegionOverride(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig+"\n[AWS]\nREGION = eu-central-1\n"))
	require.NoError(t, err)

	assert.Equal(t, "eu-central-1", cfg.CopyRegion())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.cfg"))

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigNotFound, errors.GetErrorCode(err))
}

func TestLoadMissingKeys(t *testing.T) {
	content := `[IAM]
ROLE_NAME = dwh-redshift-role

[REDSHIFT]
CLUSTER_TYPE = multi-node
`
	_, err := Load(writeConfig(t, content))

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigMissing, errors.GetErrorCode(err))
	assert.Contains(t, err.Error(), "EC2.SECURITY_GROUP_NAME")
	assert.Contains(t, err.Error(), "S3.LOG_DATA")
	assert.Contains(t, err.Error(), "REDSHIFT.DB_PASSWORD")
}

func TestLoadBadNumNodes(t *testing.T) {
	tests := []struct {
		name  string
		old   string
		new   string
		field string
	}{
		{"non-numeric nodes", "NUM_NODES = 4", "NUM_NODES = four", "NUM_NODES"},
		{"non-numeric port", "PORT = 5439", "PORT = default", "PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := strings.Replace(validConfig, tt.old, tt.new, 1)
			_, err := Load(writeConfig(t, content))

			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetErrorCode(err))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
