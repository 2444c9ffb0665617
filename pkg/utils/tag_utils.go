package utils

import (
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// GetTagValue returns the value of a tag with the given key
func GetTagValue(tags []types.Tag, key string) string {
	for _, tag := range tags {
		if tag.Key != nil && *tag.Key == key {
			if tag.Value != nil {
				return *tag.Value
			}
			return ""
		}
	}
	return ""
}

// GetName returns the value of the Name tag
func GetName(tags []types.Tag) string {
	return GetTagValue(tags, "Name")
}

// GetTagsMap converts a slice of tags to a map
func GetTagsMap(tags []types.Tag) map[string]string {
	result := make(map[string]string, len(tags))
	for _, tag := range tags {
		if tag.Key != nil {
			result[*tag.Key] = SafeDeref(tag.Value)
		}
	}
	return result
}

// ConvertToEC2Tags converts a map of tags to a slice of EC2 tags sorted by key
func ConvertToEC2Tags(tags map[string]string) []types.Tag {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]types.Tag, 0, len(keys))
	for _, k := range keys {
		result = append(result, types.Tag{
			Key:   aws.String(k),
			Value: aws.String(tags[k]),
		})
	}
	return result
}
