package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	redshifttypes "github.com/aws/aws-sdk-go-v2/service/redshift/types"
	"github.com/aws/smithy-go"

	apperrors "dwpipe/pkg/errors"
	"dwpipe/pkg/models"
)

// s3ReadOnlyPolicyARN grants the cluster read access to the raw data buckets
const s3ReadOnlyPolicyARN = "arn:aws:iam::aws:policy/AmazonS3ReadOnlyAccess"

// redshiftTrustPolicy lets the Redshift service assume the role
const redshiftTrustPolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Principal": {"Service": "redshift.amazonaws.com"},
      "Action": "sts:AssumeRole"
    }
  ]
}`

// The clients are consumed through interfaces so provisioning logic can be
// exercised without AWS.

type iamAPI interface {
	CreateRole(ctx context.Context, in *iam.CreateRoleInput, opts ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	AttachRolePolicy(ctx context.Context, in *iam.AttachRolePolicyInput, opts ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error)
	GetRole(ctx context.Context, in *iam.GetRoleInput, opts ...func(*iam.Options)) (*iam.GetRoleOutput, error)
	DetachRolePolicy(ctx context.Context, in *iam.DetachRolePolicyInput, opts ...func(*iam.Options)) (*iam.DetachRolePolicyOutput, error)
	DeleteRole(ctx context.Context, in *iam.DeleteRoleInput, opts ...func(*iam.Options)) (*iam.DeleteRoleOutput, error)
}

type ec2API interface {
	DescribeVpcs(ctx context.Context, in *ec2.DescribeVpcsInput, opts ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error)
	CreateSecurityGroup(ctx context.Context, in *ec2.CreateSecurityGroupInput, opts ...func(*ec2.Options)) (*ec2.CreateSecurityGroupOutput, error)
	AuthorizeSecurityGroupIngress(ctx context.Context, in *ec2.AuthorizeSecurityGroupIngressInput, opts ...func(*ec2.Options)) (*ec2.AuthorizeSecurityGroupIngressOutput, error)
	DescribeSecurityGroups(ctx context.Context, in *ec2.DescribeSecurityGroupsInput, opts ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error)
	RevokeSecurityGroupIngress(ctx context.Context, in *ec2.RevokeSecurityGroupIngressInput, opts ...func(*ec2.Options)) (*ec2.RevokeSecurityGroupIngressOutput, error)
	RevokeSecurityGroupEgress(ctx context.Context, in *ec2.RevokeSecurityGroupEgressInput, opts ...func(*ec2.Options)) (*ec2.RevokeSecurityGroupEgressOutput, error)
	DeleteSecurityGroup(ctx context.Context, in *ec2.DeleteSecurityGroupInput, opts ...func(*ec2.Options)) (*ec2.DeleteSecurityGroupOutput, error)
}

type redshiftAPI interface {
	CreateCluster(ctx context.Context, in *redshift.CreateClusterInput, opts ...func(*redshift.Options)) (*redshift.CreateClusterOutput, error)
	DescribeClusters(ctx context.Context, in *redshift.DescribeClustersInput, opts ...func(*redshift.Options)) (*redshift.DescribeClustersOutput, error)
	DeleteCluster(ctx context.Context, in *redshift.DeleteClusterInput, opts ...func(*redshift.Options)) (*redshift.DeleteClusterOutput, error)
}

// Provisioner owns the one-shot cluster lifecycle: role, security group,
// cluster. Calls are sequential with no retry; a name conflict is the only
// tolerated failure.
type Provisioner struct {
	cfg      *models.Config
	iam      iamAPI
	ec2      ec2API
	redshift redshiftAPI

	// WaitInterval and MaxWaitAttempts bound the availability poll
	WaitInterval    time.Duration
	MaxWaitAttempts int

	// Warnf reports non-fatal conditions (existing resources being reused)
	Warnf func(format string, args ...interface{})
}

// New builds a provisioner using the default AWS credential chain
func New(ctx context.Context, cfg *models.Config) (*Provisioner, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, apperrors.ProvisionError("Failed to load AWS credentials", "credentials", err)
	}

	return &Provisioner{
		cfg:             cfg,
		iam:             iam.NewFromConfig(awsCfg),
		ec2:             ec2.NewFromConfig(awsCfg),
		redshift:        redshift.NewFromConfig(awsCfg),
		WaitInterval:    30 * time.Second,
		MaxWaitAttempts: 20,
		Warnf:           func(string, ...interface{}) {},
	}, nil
}

// EnsureRole creates the service role with the Redshift trust policy and the
// S3 read-only policy attached, tolerating an existing role with the same
// name, and returns the role ARN.
func (p *Provisioner) EnsureRole(ctx context.Context) (string, error) {
	name := p.cfg.IAM.RoleName

	_, err := p.iam.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(name),
		Description:              aws.String("Service role for Redshift"),
		AssumeRolePolicyDocument: aws.String(redshiftTrustPolicy),
	})
	switch {
	case err == nil:
		if _, err := p.iam.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
			RoleName:  aws.String(name),
			PolicyArn: aws.String(s3ReadOnlyPolicyARN),
		}); err != nil {
			return "", apperrors.ProvisionError("Failed to attach S3 policy to role", name, err)
		}
	case isEntityExists(err):
		p.Warnf("%s", apperrors.ResourceExistsError("IAM role", name).Message)
	default:
		return "", apperrors.ProvisionError("Failed to create IAM role", name, err)
	}

	out, err := p.iam.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(name)})
	if err != nil {
		return "", apperrors.ProvisionError("Failed to resolve role ARN", name, err)
	}
	return aws.ToString(out.Role.Arn), nil
}

// RoleARN resolves the ARN of the existing service role without creating it
func (p *Provisioner) RoleARN(ctx context.Context) (string, error) {
	name := p.cfg.IAM.RoleName
	out, err := p.iam.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(name)})
	if err != nil {
		return "", apperrors.ProvisionError("Failed to resolve role ARN", name, err).
			WithSuggestions("Run cluster-up first to create the role")
	}
	return aws.ToString(out.Role.Arn), nil
}

// EnsureSecurityGroup creates a security group in the default VPC opening the
// cluster port to the world, tolerating an existing group with the same
// name, and returns the group id.
func (p *Provisioner) EnsureSecurityGroup(ctx context.Context) (string, error) {
	name := p.cfg.EC2.SecurityGroupName

	port, err := p.cfg.Redshift.PortInt()
	if err != nil {
		return "", apperrors.ConfigError(err.Error(), "REDSHIFT.PORT")
	}

	vpcs, err := p.ec2.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("isDefault"), Values: []string{"true"}},
		},
	})
	if err != nil {
		return "", apperrors.ProvisionError("Failed to discover the default VPC", "vpc", err)
	}
	if len(vpcs.Vpcs) == 0 {
		return "", apperrors.New(apperrors.ErrCodeProvisionFailed, "No default VPC in this account")
	}

	created, err := p.ec2.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:   aws.String(name),
		Description: aws.String("Security group to open up Redshift port"),
		VpcId:       vpcs.Vpcs[0].VpcId,
	})
	if err != nil {
		if !isGroupDuplicate(err) {
			return "", apperrors.ProvisionError("Failed to create security group", name, err)
		}
		p.Warnf("%s", apperrors.ResourceExistsError("Security group", name).Message)
		return p.securityGroupID(ctx)
	}

	groupID := aws.ToString(created.GroupId)
	_, err = p.ec2.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId: aws.String(groupID),
		IpPermissions: []ec2types.IpPermission{
			{
				IpProtocol: aws.String("tcp"),
				FromPort:   aws.Int32(int32(port)),
				ToPort:     aws.Int32(int32(port)),
				IpRanges:   []ec2types.IpRange{{CidrIp: aws.String("0.0.0.0/0")}},
			},
		},
	})
	if err != nil {
		return "", apperrors.ProvisionError("Failed to open the cluster port", name, err)
	}
	return groupID, nil
}

// CreateCluster spins up the cluster with the role and security group
func (p *Provisioner) CreateCluster(ctx context.Context, roleARN, securityGroupID string) error {
	rs := p.cfg.Redshift
	numNodes, err := rs.NumNodesInt()
	if err != nil {
		return apperrors.ConfigError(err.Error(), "REDSHIFT.NUM_NODES")
	}

	_, err = p.redshift.CreateCluster(ctx, &redshift.CreateClusterInput{
		ClusterType:         aws.String(rs.ClusterType),
		NodeType:            aws.String(rs.NodeType),
		NumberOfNodes:       aws.Int32(int32(numNodes)),
		DBName:              aws.String(rs.DBName),
		ClusterIdentifier:   aws.String(rs.ClusterIdentifier),
		VpcSecurityGroupIds: []string{securityGroupID},
		MasterUsername:      aws.String(rs.DBUser),
		MasterUserPassword:  aws.String(rs.DBPassword),
		IamRoles:            []string{roleARN},
	})
	if err != nil {
		return apperrors.ProvisionError("Failed to create cluster", rs.ClusterIdentifier, err)
	}
	return nil
}

// WaitAvailable polls the cluster status at WaitInterval until it reports
// available, failing after MaxWaitAttempts polls instead of blocking forever.
func (p *Provisioner) WaitAvailable(ctx context.Context) error {
	id := p.cfg.Redshift.ClusterIdentifier

	for attempt := 1; attempt <= p.MaxWaitAttempts; attempt++ {
		status, err := p.clusterStatus(ctx)
		if err != nil {
			return err
		}
		if status == "available" {
			return nil
		}

		if attempt == p.MaxWaitAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return apperrors.Wrap(ctx.Err(), apperrors.ErrCodeClusterTimeout,
				"Canceled while waiting for the cluster")
		case <-time.After(p.WaitInterval):
		}
	}

	return apperrors.New(apperrors.ErrCodeClusterTimeout,
		fmt.Sprintf("Cluster %q did not become available within %d polls", id, p.MaxWaitAttempts)).
		WithContext("interval", p.WaitInterval.String()).
		WithSuggestions(
			"Check the cluster status in the AWS console",
			"Re-run cluster-up once the cluster settles",
		)
}

// Endpoint resolves the live cluster endpoint address for DSN assembly
func (p *Provisioner) Endpoint(ctx context.Context) (string, error) {
	cluster, err := p.describeCluster(ctx)
	if err != nil {
		return "", err
	}
	if cluster.Endpoint == nil || aws.ToString(cluster.Endpoint.Address) == "" {
		return "", apperrors.New(apperrors.ErrCodeClusterNotFound,
			fmt.Sprintf("Cluster %q has no endpoint yet", p.cfg.Redshift.ClusterIdentifier)).
			WithSuggestions("Wait for the cluster to become available")
	}
	return aws.ToString(cluster.Endpoint.Address), nil
}

// DeleteCluster shuts the cluster down without a final snapshot
func (p *Provisioner) DeleteCluster(ctx context.Context) error {
	id := p.cfg.Redshift.ClusterIdentifier
	_, err := p.redshift.DeleteCluster(ctx, &redshift.DeleteClusterInput{
		ClusterIdentifier:        aws.String(id),
		SkipFinalClusterSnapshot: aws.Bool(true),
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeTeardownFailed,
			fmt.Sprintf("Failed to delete cluster %q", id))
	}
	return nil
}

// DeleteSecurityGroup revokes the group's ingress and egress rules, then
// deletes it.
func (p *Provisioner) DeleteSecurityGroup(ctx context.Context) error {
	name := p.cfg.EC2.SecurityGroupName

	groups, err := p.ec2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("group-name"), Values: []string{name}},
		},
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeTeardownFailed,
			fmt.Sprintf("Failed to look up security group %q", name))
	}
	if len(groups.SecurityGroups) == 0 {
		return apperrors.New(apperrors.ErrCodeTeardownFailed,
			fmt.Sprintf("Security group %q not found", name))
	}
	group := groups.SecurityGroups[0]

	if len(group.IpPermissions) > 0 {
		if _, err := p.ec2.RevokeSecurityGroupIngress(ctx, &ec2.RevokeSecurityGroupIngressInput{
			GroupId:       group.GroupId,
			IpPermissions: group.IpPermissions,
		}); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeTeardownFailed,
				fmt.Sprintf("Failed to revoke ingress on %q", name))
		}
	}
	if len(group.IpPermissionsEgress) > 0 {
		if _, err := p.ec2.RevokeSecurityGroupEgress(ctx, &ec2.RevokeSecurityGroupEgressInput{
			GroupId:       group.GroupId,
			IpPermissions: group.IpPermissionsEgress,
		}); err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeTeardownFailed,
				fmt.Sprintf("Failed to revoke egress on %q", name))
		}
	}

	if _, err := p.ec2.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{
		GroupId: group.GroupId,
	}); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeTeardownFailed,
			fmt.Sprintf("Failed to delete security group %q", name))
	}
	return nil
}

// DeleteRole detaches the S3 policy and deletes the service role
func (p *Provisioner) DeleteRole(ctx context.Context) error {
	name := p.cfg.IAM.RoleName

	if _, err := p.iam.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
		RoleName:  aws.String(name),
		PolicyArn: aws.String(s3ReadOnlyPolicyARN),
	}); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeTeardownFailed,
			fmt.Sprintf("Failed to detach policy from role %q", name))
	}

	if _, err := p.iam.DeleteRole(ctx, &iam.DeleteRoleInput{
		RoleName: aws.String(name),
	}); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeTeardownFailed,
			fmt.Sprintf("Failed to delete role %q", name))
	}
	return nil
}

func (p *Provisioner) describeCluster(ctx context.Context) (*redshifttypes.Cluster, error) {
	id := p.cfg.Redshift.ClusterIdentifier
	out, err := p.redshift.DescribeClusters(ctx, &redshift.DescribeClustersInput{
		ClusterIdentifier: aws.String(id),
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeClusterNotFound,
			fmt.Sprintf("Failed to describe cluster %q", id))
	}
	if len(out.Clusters) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeClusterNotFound,
			fmt.Sprintf("Cluster %q not found", id))
	}
	return &out.Clusters[0], nil
}

func (p *Provisioner) clusterStatus(ctx context.Context) (string, error) {
	cluster, err := p.describeCluster(ctx)
	if err != nil {
		return "", err
	}
	return aws.ToString(cluster.ClusterStatus), nil
}

func (p *Provisioner) securityGroupID(ctx context.Context) (string, error) {
	name := p.cfg.EC2.SecurityGroupName
	groups, err := p.ec2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{
			{Name: aws.String("group-name"), Values: []string{name}},
		},
	})
	if err != nil {
		return "", apperrors.ProvisionError("Failed to look up security group", name, err)
	}
	if len(groups.SecurityGroups) == 0 {
		return "", apperrors.New(apperrors.ErrCodeProvisionFailed,
			fmt.Sprintf("Security group %q reported as duplicate but not found", name))
	}
	return aws.ToString(groups.SecurityGroups[0].GroupId), nil
}

func isEntityExists(err error) bool {
	var exists *iamtypes.EntityAlreadyExistsException
	return errors.As(err, &exists)
}

func isGroupDuplicate(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidGroup.Duplicate"
}
