package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/younsl/idlesweep/internal/cloud"
	"github.com/younsl/idlesweep/internal/models"
	"github.com/younsl/idlesweep/pkg/utils"
)

// EC2API is the subset of the EC2 client used by EC2Inventory
type EC2API interface {
	ec2.DescribeVolumesAPIClient
	ec2.DescribeInstancesAPIClient
	ec2.DescribeSnapshotsAPIClient
	DescribeAddresses(ctx context.Context, params *ec2.DescribeAddressesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeAddressesOutput, error)
	CreateTags(ctx context.Context, params *ec2.CreateTagsInput, optFns ...func(*ec2.Options)) (*ec2.CreateTagsOutput, error)
	CreateSnapshot(ctx context.Context, params *ec2.CreateSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.CreateSnapshotOutput, error)
	DeleteVolume(ctx context.Context, params *ec2.DeleteVolumeInput, optFns ...func(*ec2.Options)) (*ec2.DeleteVolumeOutput, error)
	DeleteSnapshot(ctx context.Context, params *ec2.DeleteSnapshotInput, optFns ...func(*ec2.Options)) (*ec2.DeleteSnapshotOutput, error)
	ReleaseAddress(ctx context.Context, params *ec2.ReleaseAddressInput, optFns ...func(*ec2.Options)) (*ec2.ReleaseAddressOutput, error)
}

// EC2Inventory lists and mutates the volumes, snapshots, address leases and
// stopped instances of one region
type EC2Inventory struct {
	client EC2API
}

// NewEC2Inventory creates an EC2Inventory over client
func NewEC2Inventory(client EC2API) *EC2Inventory {
	return &EC2Inventory{client: client}
}

// NewEC2InventoryFromConfig creates an EC2Inventory from an AWS config
func NewEC2InventoryFromConfig(cfg aws.Config) *EC2Inventory {
	return NewEC2Inventory(ec2.NewFromConfig(cfg))
}

func tagFilter(key, pattern string) []types.Filter {
	return []types.Filter{{
		Name:   aws.String("tag:" + key),
		Values: []string{pattern},
	}}
}

// ListVolumes returns every volume in the region
func (c *EC2Inventory) ListVolumes(ctx context.Context) ([]models.Volume, error) {
	return c.describeVolumes(ctx, "ListVolumes", &ec2.DescribeVolumesInput{})
}

// ListTaggedVolumes returns volumes whose tag key matches pattern
func (c *EC2Inventory) ListTaggedVolumes(ctx context.Context, key, pattern string) ([]models.Volume, error) {
	return c.describeVolumes(ctx, "ListTaggedVolumes", &ec2.DescribeVolumesInput{
		Filters: tagFilter(key, pattern),
	})
}

// DescribeVolumes returns the volumes with the given IDs
func (c *EC2Inventory) DescribeVolumes(ctx context.Context, ids []string) ([]models.Volume, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	resp, err := c.client.DescribeVolumes(ctx, &ec2.DescribeVolumesInput{VolumeIds: ids})
	if err != nil {
		return nil, cloud.Wrap("DescribeVolumes", ids[0], err)
	}
	volumes := make([]models.Volume, 0, len(resp.Volumes))
	for _, v := range resp.Volumes {
		volumes = append(volumes, toVolume(v))
	}
	return volumes, nil
}

func (c *EC2Inventory) describeVolumes(ctx context.Context, op string, input *ec2.DescribeVolumesInput) ([]models.Volume, error) {
	var volumes []models.Volume
	paginator := ec2.NewDescribeVolumesPaginator(c.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, cloud.Wrap(op, "", err)
		}
		for _, v := range page.Volumes {
			volumes = append(volumes, toVolume(v))
		}
	}
	return volumes, nil
}

func toVolume(v types.Volume) models.Volume {
	volume := models.Volume{
		VolumeID:         utils.SafeDeref(v.VolumeId),
		Name:             utils.GetName(v.Tags),
		SizeGB:           utils.SafeInt32(v.Size),
		VolumeType:       string(v.VolumeType),
		State:            string(v.State),
		AvailabilityZone: utils.SafeDeref(v.AvailabilityZone),
		Tags:             utils.GetTagsMap(v.Tags),
	}
	if v.CreateTime != nil {
		volume.CreateTime = *v.CreateTime
	}
	for _, a := range v.Attachments {
		volume.AttachedTo = append(volume.AttachedTo, utils.SafeDeref(a.InstanceId))
	}
	return volume
}

// ListStoppedInstances returns every instance in the stopped state
func (c *EC2Inventory) ListStoppedInstances(ctx context.Context) ([]models.Instance, error) {
	input := &ec2.DescribeInstancesInput{
		Filters: []types.Filter{{
			Name:   aws.String("instance-state-name"),
			Values: []string{"stopped"},
		}},
	}

	var instances []models.Instance
	paginator := ec2.NewDescribeInstancesPaginator(c.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, cloud.Wrap("ListStoppedInstances", "", err)
		}
		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				instances = append(instances, toInstance(inst))
			}
		}
	}
	return instances, nil
}

func toInstance(inst types.Instance) models.Instance {
	instance := models.Instance{
		InstanceID:            utils.SafeDeref(inst.InstanceId),
		Name:                  utils.GetName(inst.Tags),
		InstanceType:          string(inst.InstanceType),
		StateTransitionReason: utils.SafeDeref(inst.StateTransitionReason),
		StoppedSince:          utils.ParseStateTransitionTime(utils.SafeDeref(inst.StateTransitionReason)),
		Tags:                  utils.GetTagsMap(inst.Tags),
	}
	for _, bdm := range inst.BlockDeviceMappings {
		if bdm.Ebs != nil && bdm.Ebs.VolumeId != nil {
			instance.VolumeIDs = append(instance.VolumeIDs, *bdm.Ebs.VolumeId)
		}
	}
	return instance
}

// ListSnapshots returns every snapshot owned by the account
func (c *EC2Inventory) ListSnapshots(ctx context.Context) ([]models.Snapshot, error) {
	return c.describeSnapshots(ctx, "ListSnapshots", &ec2.DescribeSnapshotsInput{
		OwnerIds: []string{"self"},
	})
}

// ListTaggedSnapshots returns owned snapshots whose tag key matches pattern
func (c *EC2Inventory) ListTaggedSnapshots(ctx context.Context, key, pattern string) ([]models.Snapshot, error) {
	return c.describeSnapshots(ctx, "ListTaggedSnapshots", &ec2.DescribeSnapshotsInput{
		OwnerIds: []string{"self"},
		Filters:  tagFilter(key, pattern),
	})
}

func (c *EC2Inventory) describeSnapshots(ctx context.Context, op string, input *ec2.DescribeSnapshotsInput) ([]models.Snapshot, error) {
	var snapshots []models.Snapshot
	paginator := ec2.NewDescribeSnapshotsPaginator(c.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, cloud.Wrap(op, "", err)
		}
		for _, s := range page.Snapshots {
			snapshot := models.Snapshot{
				SnapshotID:  utils.SafeDeref(s.SnapshotId),
				VolumeID:    utils.SafeDeref(s.VolumeId),
				SizeGB:      utils.SafeInt32(s.VolumeSize),
				Description: utils.SafeDeref(s.Description),
				Tags:        utils.GetTagsMap(s.Tags),
			}
			if s.StartTime != nil {
				snapshot.StartTime = *s.StartTime
			}
			snapshots = append(snapshots, snapshot)
		}
	}
	return snapshots, nil
}

// ListAddresses returns every Elastic IP address lease
func (c *EC2Inventory) ListAddresses(ctx context.Context) ([]models.Address, error) {
	return c.describeAddresses(ctx, "ListAddresses", &ec2.DescribeAddressesInput{})
}

// ListTaggedAddresses returns address leases whose tag key matches pattern
func (c *EC2Inventory) ListTaggedAddresses(ctx context.Context, key, pattern string) ([]models.Address, error) {
	return c.describeAddresses(ctx, "ListTaggedAddresses", &ec2.DescribeAddressesInput{
		Filters: tagFilter(key, pattern),
	})
}

// describeAddresses makes a single call since DescribeAddresses has no pages
func (c *EC2Inventory) describeAddresses(ctx context.Context, op string, input *ec2.DescribeAddressesInput) ([]models.Address, error) {
	resp, err := c.client.DescribeAddresses(ctx, input)
	if err != nil {
		return nil, cloud.Wrap(op, "", err)
	}
	addresses := make([]models.Address, 0, len(resp.Addresses))
	for _, a := range resp.Addresses {
		addresses = append(addresses, models.Address{
			AllocationID:       utils.SafeDeref(a.AllocationId),
			PublicIP:           utils.SafeDeref(a.PublicIp),
			AssociationID:      utils.SafeDeref(a.AssociationId),
			InstanceID:         utils.SafeDeref(a.InstanceId),
			NetworkInterfaceID: utils.SafeDeref(a.NetworkInterfaceId),
			Tags:               utils.GetTagsMap(a.Tags),
		})
	}
	return addresses, nil
}

// CreateTags applies tags to every resource in ids in a single call
func (c *EC2Inventory) CreateTags(ctx context.Context, ids []string, tags map[string]string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := c.client.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: ids,
		Tags:      utils.ConvertToEC2Tags(tags),
	})
	return cloud.Wrap("CreateTags", ids[0], err)
}

// CreateSnapshot snapshots a volume and returns the new snapshot ID
func (c *EC2Inventory) CreateSnapshot(ctx context.Context, volumeID, description string, tags map[string]string) (string, error) {
	resp, err := c.client.CreateSnapshot(ctx, &ec2.CreateSnapshotInput{
		VolumeId:    aws.String(volumeID),
		Description: aws.String(description),
		TagSpecifications: []types.TagSpecification{{
			ResourceType: types.ResourceTypeSnapshot,
			Tags:         utils.ConvertToEC2Tags(tags),
		}},
	})
	if err != nil {
		return "", cloud.Wrap("CreateSnapshot", volumeID, err)
	}
	return utils.SafeDeref(resp.SnapshotId), nil
}

// DeleteVolume deletes a volume
func (c *EC2Inventory) DeleteVolume(ctx context.Context, volumeID string) error {
	_, err := c.client.DeleteVolume(ctx, &ec2.DeleteVolumeInput{VolumeId: aws.String(volumeID)})
	return cloud.Wrap("DeleteVolume", volumeID, err)
}

// DeleteSnapshot deletes a snapshot
func (c *EC2Inventory) DeleteSnapshot(ctx context.Context, snapshotID string) error {
	_, err := c.client.DeleteSnapshot(ctx, &ec2.DeleteSnapshotInput{SnapshotId: aws.String(snapshotID)})
	return cloud.Wrap("DeleteSnapshot", snapshotID, err)
}

// ReleaseAddress releases an Elastic IP allocation
func (c *EC2Inventory) ReleaseAddress(ctx context.Context, allocationID string) error {
	_, err := c.client.ReleaseAddress(ctx, &ec2.ReleaseAddressInput{AllocationId: aws.String(allocationID)})
	return cloud.Wrap("ReleaseAddress", allocationID, err)
}
