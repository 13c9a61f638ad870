package hostinfo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// tagKeyName is the AWS well-known tag the test instance template sets to the
// full hostname.
const tagKeyName = "Name"

var ErrNotFound = errors.New("no live instance tagged with the hostname")

// Instance summarizes the EC2 instance backing a test host.
type Instance struct {
	ID         string
	State      string
	Type       string
	PublicIP   string
	PrivateIP  string
	LaunchTime time.Time
}

func (i Instance) String() string {
	ip := i.PublicIP
	if ip == "" {
		ip = i.PrivateIP
	}
	return fmt.Sprintf("%s (%s, %s, %s)", i.ID, i.State, i.Type, ip)
}

// Finder looks up the instance of a test host.
type Finder interface {
	Find(ctx context.Context, host string) (*Instance, error)
}

// DescribeInstancesAPI is the slice of the EC2 client Find uses.
type DescribeInstancesAPI interface {
	DescribeInstances(ctx context.Context, in *ec2.DescribeInstancesInput, opts ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

var _ Finder = (*EC2)(nil)

type EC2 struct {
	client DescribeInstancesAPI
}

func New(client DescribeInstancesAPI) *EC2 {
	return &EC2{client: client}
}

// NewFromEnv builds a client from the default AWS credential chain.
func NewFromEnv(ctx context.Context) (*EC2, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return New(ec2.NewFromConfig(cfg)), nil
}

// Find returns the most recently launched, not terminated instance whose Name
// tag equals host.
func (e *EC2) Find(ctx context.Context, host string) (*Instance, error) {
	in := &ec2.DescribeInstancesInput{
		Filters: []types.Filter{
			{Name: aws.String("tag:" + tagKeyName), Values: []string{host}},
			{Name: aws.String("instance-state-name"), Values: []string{
				string(types.InstanceStateNamePending),
				string(types.InstanceStateNameRunning),
				string(types.InstanceStateNameStopping),
				string(types.InstanceStateNameStopped),
			}},
		},
	}

	var found *Instance
	p := ec2.NewDescribeInstancesPaginator(e.client, in)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe instances: %w", err)
		}
		for _, r := range out.Reservations {
			for _, inst := range r.Instances {
				i := summarize(inst)
				if found == nil || i.LaunchTime.After(found.LaunchTime) {
					found = &i
				}
			}
		}
	}

	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, host)
	}
	return found, nil
}

func summarize(inst types.Instance) Instance {
	i := Instance{
		ID:        aws.ToString(inst.InstanceId),
		Type:      string(inst.InstanceType),
		PublicIP:  aws.ToString(inst.PublicIpAddress),
		PrivateIP: aws.ToString(inst.PrivateIpAddress),
	}
	if inst.State != nil {
		i.State = string(inst.State.Name)
	}
	if inst.LaunchTime != nil {
		i.LaunchTime = *inst.LaunchTime
	}
	return i
}
