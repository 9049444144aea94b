package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	asgtypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/rs/zerolog"

	"github.com/cloudshift/cutover/pkg/log"
	"github.com/cloudshift/cutover/pkg/types"
)

const (
	keyActiveColor     = "/active-color"
	keyActiveTargetRef = "/active-target-ref"
	keyDiscovery       = "/discovery/"

	mutateAttempts = 3
	mutateBackoff  = 2 * time.Second
)

// AWSGateway implements Gateway on top of Auto Scaling, ELBv2 and SSM
// Parameter Store. The forwarding rule is a listener's default action; the
// state pair and discovery data live under the environment's parameter
// prefix.
type AWSGateway struct {
	asg    *autoscaling.Client
	elb    *elbv2.Client
	ssm    *ssm.Client
	logger zerolog.Logger
}

// NewAWSGateway builds a gateway from the ambient AWS configuration
// (environment, shared config, instance role).
func NewAWSGateway(ctx context.Context, region string) (*AWSGateway, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &AWSGateway{
		asg:    autoscaling.NewFromConfig(cfg),
		elb:    elbv2.NewFromConfig(cfg),
		ssm:    ssm.NewFromConfig(cfg),
		logger: log.WithComponent("gateway"),
	}, nil
}

// mutate runs a mutating control-plane call with bounded retries. Callers
// see a single hard failure after the attempts are exhausted.
func (g *AWSGateway) mutate(ctx context.Context, what string, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= mutateAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		g.logger.Warn().Err(err).Int("attempt", attempt).Msg(what + " failed")
		if attempt == mutateAttempts {
			break
		}
		select {
		case <-time.After(mutateBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", what, mutateAttempts, err)
}

func (g *AWSGateway) describeGroup(ctx context.Context, group string) (*asgtypes.AutoScalingGroup, error) {
	out, err := g.asg.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
		AutoScalingGroupNames: []string{group},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe scaling group %s: %w", group, err)
	}
	if len(out.AutoScalingGroups) == 0 {
		return nil, fmt.Errorf("scaling group %s not found", group)
	}
	return &out.AutoScalingGroups[0], nil
}

// GroupCapacity returns the current desired/min/max of a scaling group.
func (g *AWSGateway) GroupCapacity(ctx context.Context, group string) (types.GroupCapacity, error) {
	asg, err := g.describeGroup(ctx, group)
	if err != nil {
		return types.GroupCapacity{}, err
	}
	return types.GroupCapacity{
		Desired: aws.ToInt32(asg.DesiredCapacity),
		Min:     aws.ToInt32(asg.MinSize),
		Max:     aws.ToInt32(asg.MaxSize),
	}, nil
}

// SetBounds updates the min/max bounds of a scaling group.
func (g *AWSGateway) SetBounds(ctx context.Context, group string, min, max int32) error {
	return g.mutate(ctx, "set bounds on "+group, func(ctx context.Context) error {
		_, err := g.asg.UpdateAutoScalingGroup(ctx, &autoscaling.UpdateAutoScalingGroupInput{
			AutoScalingGroupName: aws.String(group),
			MinSize:              aws.Int32(min),
			MaxSize:              aws.Int32(max),
		})
		return err
	})
}

// SetDesired updates the desired capacity of a scaling group. A non-empty
// version selects that version of the group's launch template, which by
// convention shares the scaling group's name.
func (g *AWSGateway) SetDesired(ctx context.Context, group string, n int32, version string) error {
	return g.mutate(ctx, "set desired capacity on "+group, func(ctx context.Context) error {
		input := &autoscaling.UpdateAutoScalingGroupInput{
			AutoScalingGroupName: aws.String(group),
			DesiredCapacity:      aws.Int32(n),
		}
		if version != "" {
			input.LaunchTemplate = &asgtypes.LaunchTemplateSpecification{
				LaunchTemplateName: aws.String(group),
				Version:            aws.String(version),
			}
		}
		_, err := g.asg.UpdateAutoScalingGroup(ctx, input)
		return err
	})
}

// FleetHealth counts instances the scaling layer considers live.
func (g *AWSGateway) FleetHealth(ctx context.Context, group string) (int32, int32, error) {
	asg, err := g.describeGroup(ctx, group)
	if err != nil {
		return 0, 0, err
	}
	var healthy int32
	for _, inst := range asg.Instances {
		if inst.LifecycleState == asgtypes.LifecycleStateInService &&
			aws.ToString(inst.HealthStatus) == "Healthy" {
			healthy++
		}
	}
	return healthy, int32(len(asg.Instances)), nil
}

// RouteHealth counts targets passing the routable group's health probe.
func (g *AWSGateway) RouteHealth(ctx context.Context, targetGroup string) (int32, int32, error) {
	out, err := g.elb.DescribeTargetHealth(ctx, &elbv2.DescribeTargetHealthInput{
		TargetGroupArn: aws.String(targetGroup),
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to describe target health for %s: %w", targetGroup, err)
	}
	var healthy int32
	for _, desc := range out.TargetHealthDescriptions {
		if desc.TargetHealth != nil && desc.TargetHealth.State == elbtypes.TargetHealthStateEnumHealthy {
			healthy++
		}
	}
	return healthy, int32(len(out.TargetHealthDescriptions)), nil
}

// GetRule returns the target group the listener's default action forwards to.
func (g *AWSGateway) GetRule(ctx context.Context, ruleRef string) (string, error) {
	out, err := g.elb.DescribeListeners(ctx, &elbv2.DescribeListenersInput{
		ListenerArns: []string{ruleRef},
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe listener %s: %w", ruleRef, err)
	}
	if len(out.Listeners) == 0 {
		return "", fmt.Errorf("listener %s not found", ruleRef)
	}
	for _, action := range out.Listeners[0].DefaultActions {
		if action.Type != elbtypes.ActionTypeEnumForward {
			continue
		}
		if ref := aws.ToString(action.TargetGroupArn); ref != "" {
			return ref, nil
		}
		if action.ForwardConfig != nil {
			if len(action.ForwardConfig.TargetGroups) != 1 {
				return "", fmt.Errorf("listener %s forwards to %d target groups, expected exactly one",
					ruleRef, len(action.ForwardConfig.TargetGroups))
			}
			return aws.ToString(action.ForwardConfig.TargetGroups[0].TargetGroupArn), nil
		}
	}
	return "", fmt.Errorf("listener %s has no forward action", ruleRef)
}

// SetRule points the listener's default action at the given target group.
func (g *AWSGateway) SetRule(ctx context.Context, ruleRef, targetRef string) error {
	return g.mutate(ctx, "set forwarding rule "+ruleRef, func(ctx context.Context) error {
		_, err := g.elb.ModifyListener(ctx, &elbv2.ModifyListenerInput{
			ListenerArn: aws.String(ruleRef),
			DefaultActions: []elbtypes.Action{
				{
					Type:           elbtypes.ActionTypeEnumForward,
					TargetGroupArn: aws.String(targetRef),
				},
			},
		})
		return err
	})
}

func (g *AWSGateway) getParameter(ctx context.Context, name string) (string, error) {
	out, err := g.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name: aws.String(name),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.Parameter.Value), nil
}

// ReadState reads the state pair from the parameter store.
func (g *AWSGateway) ReadState(ctx context.Context, prefix string) (*types.DeploymentState, error) {
	color, err := g.getParameter(ctx, prefix+keyActiveColor)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s%s: %w", prefix, keyActiveColor, err)
	}
	ref, err := g.getParameter(ctx, prefix+keyActiveTargetRef)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s%s: %w", prefix, keyActiveTargetRef, err)
	}
	c, err := types.ParseColor(color)
	if err != nil {
		return nil, fmt.Errorf("corrupt state under %s: %w", prefix, err)
	}
	return &types.DeploymentState{ActiveColor: c, ActiveTargetRef: ref}, nil
}

// WriteState persists both entries of the state pair. A consumer reading
// the entries independently may observe a transient mismatch between the
// two writes.
func (g *AWSGateway) WriteState(ctx context.Context, prefix string, st *types.DeploymentState) error {
	put := func(name, value string) error {
		return g.mutate(ctx, "write "+name, func(ctx context.Context) error {
			_, err := g.ssm.PutParameter(ctx, &ssm.PutParameterInput{
				Name:      aws.String(name),
				Value:     aws.String(value),
				Type:      ssmtypes.ParameterTypeString,
				Overwrite: aws.Bool(true),
			})
			return err
		})
	}
	if err := put(prefix+keyActiveColor, string(st.ActiveColor)); err != nil {
		return err
	}
	return put(prefix+keyActiveTargetRef, st.ActiveTargetRef)
}

// DiscoveryExists reports whether discovery data is stored for the version.
func (g *AWSGateway) DiscoveryExists(ctx context.Context, prefix, version string) (bool, error) {
	_, err := g.getParameter(ctx, prefix+keyDiscovery+version)
	if err != nil {
		var notFound *ssmtypes.ParameterNotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read discovery data for %s: %w", version, err)
	}
	return true, nil
}

// CopyDiscovery copies the version's discovery blob between environments.
func (g *AWSGateway) CopyDiscovery(ctx context.Context, fromPrefix, toPrefix, version string) error {
	blob, err := g.getParameter(ctx, fromPrefix+keyDiscovery+version)
	if err != nil {
		return fmt.Errorf("failed to read discovery data from %s: %w", fromPrefix, err)
	}
	return g.mutate(ctx, "copy discovery data to "+toPrefix, func(ctx context.Context) error {
		_, err := g.ssm.PutParameter(ctx, &ssm.PutParameterInput{
			Name:      aws.String(toPrefix + keyDiscovery + version),
			Value:     aws.String(blob),
			Type:      ssmtypes.ParameterTypeString,
			Overwrite: aws.Bool(true),
		})
		return err
	})
}
