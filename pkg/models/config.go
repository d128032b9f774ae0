package models

import (
	"fmt"
	"net/url"
	"strconv"
)

// DefaultCopyRegion is the region used for COPY statements when the
// configuration file does not override it.
const DefaultCopyRegion = "us-west-2"

// Config is the typed view of the pipeline configuration file. It is loaded
// once at command startup and passed explicitly into every component; there
// is no package-level configuration state.
type Config struct {
	IAM      IAM
	EC2      EC2
	Redshift Redshift
	S3       S3
	AWS      AWS
}

// IAM holds the service-role settings
type IAM struct {
	RoleName string
}

// EC2 holds the network settings
type EC2 struct {
	SecurityGroupName string
}

// Redshift holds the cluster shape and database credentials
type Redshift struct {
	ClusterType       string
	NumNodes          string
	NodeType          string
	ClusterIdentifier string
	DBName            string
	DBUser            string
	DBPassword        string
	Port              string
}

// S3 holds the object-storage locations of the raw data
type S3 struct {
	LogData     string
	SongData    string
	LogJSONPath string
}

// AWS holds optional provider settings
type AWS struct {
	Region string
}

// NumNodesInt returns the cluster node count as an integer
func (r Redshift) NumNodesInt() (int, error) {
	n, err := strconv.Atoi(r.NumNodes)
	if err != nil {
		return 0, fmt.Errorf("NUM_NODES %q is not an integer: %w", r.NumNodes, err)
	}
	return n, nil
}

// PortInt returns the cluster port as an integer
func (r Redshift) PortInt() (int, error) {
	p, err := strconv.Atoi(r.Port)
	if err != nil {
		return 0, fmt.Errorf("PORT %q is not an integer: %w", r.Port, err)
	}
	return p, nil
}

// ConnectionString assembles the warehouse DSN for the given live cluster
// endpoint. The host is resolved at connect time, never cached in the file.
func (c *Config) ConnectionString(endpoint string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s",
		url.QueryEscape(c.Redshift.DBUser),
		url.QueryEscape(c.Redshift.DBPassword),
		endpoint,
		c.Redshift.Port,
		c.Redshift.DBName,
	)
}

// CopyRegion returns the region for COPY statements, defaulting when unset
func (c *Config) CopyRegion() string {
	if c.AWS.Region == "" {
		return DefaultCopyRegion
	}
	return c.AWS.Region
}
