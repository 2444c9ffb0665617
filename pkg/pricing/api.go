package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/pricing/types"
)

// APIRegion is where the AWS Pricing API is served from
const APIRegion = "us-east-1"

// ProductsAPI is the subset of the Pricing API client used here
type ProductsAPI interface {
	GetProducts(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error)
}

// Client looks up live EBS rates from the AWS Pricing API
type Client struct {
	api ProductsAPI
}

// NewClient creates a Client from a Pricing API implementation
func NewClient(api ProductsAPI) *Client {
	return &Client{api: api}
}

// NewClientFromConfig creates a Client bound to the Pricing API region
func NewClientFromConfig(cfg aws.Config) *Client {
	return NewClient(pricing.NewFromConfig(cfg, func(o *pricing.Options) {
		o.Region = APIRegion
	}))
}

// VolumePrice returns the on-demand per GB-month price of a volume type in a region
func (c *Client) VolumePrice(ctx context.Context, volumeType, region string) (float64, error) {
	location, ok := RegionDescriptiveNames[region]
	if !ok {
		return 0, fmt.Errorf("no pricing location known for region %s", region)
	}

	filters := []types.Filter{
		{
			Type:  types.FilterTypeTermMatch,
			Field: aws.String("volumeApiName"),
			Value: aws.String(volumeType),
		},
		{
			Type:  types.FilterTypeTermMatch,
			Field: aws.String("location"),
			Value: aws.String(location),
		},
		{
			Type:  types.FilterTypeTermMatch,
			Field: aws.String("productFamily"),
			Value: aws.String("Storage"),
		},
	}

	resp, err := c.api.GetProducts(ctx, &pricing.GetProductsInput{
		ServiceCode: aws.String("AmazonEC2"),
		Filters:     filters,
		MaxResults:  aws.Int32(100),
	})
	if err != nil {
		return 0, fmt.Errorf("error calling AWS Pricing API: %w", err)
	}

	for _, product := range resp.PriceList {
		name, err := volumeAPIName(product)
		if err != nil || name != volumeType {
			continue
		}
		return ExtractGBMonthPrice(product)
	}

	return 0, fmt.Errorf("no exact match found for EBS volume type %s in region %s", volumeType, region)
}

type priceDocument struct {
	Product struct {
		Attributes map[string]string `json:"attributes"`
	} `json:"product"`
	Terms struct {
		OnDemand map[string]struct {
			PriceDimensions map[string]struct {
				Unit         string            `json:"unit"`
				PricePerUnit map[string]string `json:"pricePerUnit"`
			} `json:"priceDimensions"`
		} `json:"OnDemand"`
	} `json:"terms"`
}

func volumeAPIName(product string) (string, error) {
	var doc priceDocument
	if err := json.Unmarshal([]byte(product), &doc); err != nil {
		return "", fmt.Errorf("error parsing pricing data: %w", err)
	}
	return doc.Product.Attributes["volumeApiName"], nil
}

// ExtractGBMonthPrice pulls the USD per GB-month price out of a price list document
func ExtractGBMonthPrice(product string) (float64, error) {
	var doc priceDocument
	if err := json.Unmarshal([]byte(product), &doc); err != nil {
		return 0, fmt.Errorf("error parsing pricing data: %w", err)
	}

	for _, offer := range doc.Terms.OnDemand {
		for _, dimension := range offer.PriceDimensions {
			if dimension.Unit != "GB-Mo" && dimension.Unit != "GB-month" {
				return 0, fmt.Errorf("unexpected pricing unit: %s", dimension.Unit)
			}
			usd, ok := dimension.PricePerUnit["USD"]
			if !ok {
				return 0, fmt.Errorf("USD price not found")
			}
			price, err := strconv.ParseFloat(usd, 64)
			if err != nil {
				return 0, fmt.Errorf("error parsing price: %w", err)
			}
			return price, nil
		}
	}

	return 0, fmt.Errorf("no on-demand price dimension found")
}
