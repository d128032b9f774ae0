package config

import (
	"fmt"
	"os"

	"github.com/go-viper/encoding/ini"
	"github.com/spf13/viper"

	"dwpipe/pkg/errors"
	"dwpipe/pkg/models"
)

// DefaultConfigFile is used when no --config flag is given
const DefaultConfigFile = "dwh.cfg"

// requiredKeys lists every key the pipeline cannot run without. AWS.REGION is
// optional; everything else is a fatal startup error when absent.
var requiredKeys = []string{
	"IAM.ROLE_NAME",
	"EC2.SECURITY_GROUP_NAME",
	"REDSHIFT.CLUSTER_TYPE",
	"REDSHIFT.NUM_NODES",
	"REDSHIFT.NODE_TYPE",
	"REDSHIFT.CLUSTER_IDENTIFIER",
	"REDSHIFT.DB_NAME",
	"REDSHIFT.DB_USER",
	"REDSHIFT.DB_PASSWORD",
	"REDSHIFT.PORT",
	"S3.LOG_DATA",
	"S3.SONG_DATA",
	"S3.LOG_JSONPATH",
}

// Load reads the INI configuration file at path and returns the typed
// configuration. The result is a plain value for callers to pass around;
// Load never stores global state.
func Load(path string) (*models.Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeConfigNotFound,
			fmt.Sprintf("Configuration file %q not found", path)).
			WithSuggestions("Pass the file path with --config")
	}

	codecs := viper.NewCodecRegistry()
	if err := codecs.RegisterCodec("ini", ini.Codec{}); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "Failed to register ini codec")
	}

	v := viper.NewWithOptions(viper.WithCodecRegistry(codecs))
	v.SetConfigFile(path)
	v.SetConfigType("ini")

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid,
			fmt.Sprintf("Failed to parse configuration file %q", path))
	}

	var missing []string
	for _, key := range requiredKeys {
		if v.GetString(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, errors.MissingConfigError(missing)
	}

	cfg := &models.Config{
		IAM: models.IAM{
			RoleName: v.GetString("IAM.ROLE_NAME"),
		},
		EC2: models.EC2{
			SecurityGroupName: v.GetString("EC2.SECURITY_GROUP_NAME"),
		},
		Redshift: models.Redshift{
			ClusterType:       v.GetString("REDSHIFT.CLUSTER_TYPE"),
			NumNodes:          v.GetString("REDSHIFT.NUM_NODES"),
			NodeType:          v.GetString("REDSHIFT.NODE_TYPE"),
			ClusterIdentifier: v.GetString("REDSHIFT.CLUSTER_IDENTIFIER"),
			DBName:            v.GetString("REDSHIFT.DB_NAME"),
			DBUser:            v.GetString("REDSHIFT.DB_USER"),
			DBPassword:        v.GetString("REDSHIFT.DB_PASSWORD"),
			Port:              v.GetString("REDSHIFT.PORT"),
		},
		S3: models.S3{
			LogData:     v.GetString("S3.LOG_DATA"),
			SongData:    v.GetString("S3.SONG_DATA"),
			LogJSONPath: v.GetString("S3.LOG_JSONPATH"),
		},
		AWS: models.AWS{
			Region: v.GetString("AWS.REGION"),
		},
	}

	// Numeric values must parse up front, not at first use
	if _, err := cfg.Redshift.NumNodesInt(); err != nil {
		return nil, errors.ConfigError(err.Error(), "REDSHIFT.NUM_NODES")
	}
	if _, err := cfg.Redshift.PortInt(); err != nil {
		return nil, errors.ConfigError(err.Error(), "REDSHIFT.PORT")
	}

	return cfg, nil
}
