package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/pricing"
)

const gp3Product = `{
  "product": {"attributes": {"volumeApiName": "gp3", "location": "Asia Pacific (Mumbai)"}},
  "terms": {"OnDemand": {"SKU.TERM": {"priceDimensions": {"SKU.TERM.DIM": {
    "unit": "GB-Mo", "pricePerUnit": {"USD": "0.0912000000"}}}}}}
}`

const gp2Product = `{
  "product": {"attributes": {"volumeApiName": "gp2"}},
  "terms": {"OnDemand": {"A": {"priceDimensions": {"B": {
    "unit": "GB-Mo", "pricePerUnit": {"USD": "0.1140000000"}}}}}}
}`

const hourlyProduct = `{
  "terms": {"OnDemand": {"A": {"priceDimensions": {"B": {
    "unit": "Hrs", "pricePerUnit": {"USD": "0.005"}}}}}}
}`

type fakeProducts struct {
	priceList []string
	err       error
	input     *pricing.GetProductsInput
}

func (f *fakeProducts) GetProducts(_ context.Context, params *pricing.GetProductsInput, _ ...func(*pricing.Options)) (*pricing.GetProductsOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &pricing.GetProductsOutput{PriceList: f.priceList}, nil
}

func TestExtractGBMonthPrice(t *testing.T) {
	price, err := ExtractGBMonthPrice(gp3Product)
	if err != nil {
		t.Fatalf("ExtractGBMonthPrice() error = %v", err)
	}
	if price != 0.0912 {
		t.Errorf("price = %v, want 0.0912", price)
	}

	if _, err := ExtractGBMonthPrice(hourlyProduct); err == nil {
		t.Error("expected error for hourly unit")
	}
	if _, err := ExtractGBMonthPrice("not json"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestClientVolumePrice(t *testing.T) {
	api := &fakeProducts{priceList: []string{gp2Product, gp3Product}}
	client := NewClient(api)

	price, err := client.VolumePrice(context.Background(), "gp3", "ap-south-1")
	if err != nil {
		t.Fatalf("VolumePrice() error = %v", err)
	}
	if price != 0.0912 {
		t.Errorf("price = %v, want 0.0912", price)
	}
	if got := *api.input.ServiceCode; got != "AmazonEC2" {
		t.Errorf("service code = %q, want AmazonEC2", got)
	}
}

func TestClientVolumePriceErrors(t *testing.T) {
	client := NewClient(&fakeProducts{priceList: []string{gp2Product}})
	if _, err := client.VolumePrice(context.Background(), "io2", "ap-south-1"); err == nil {
		t.Error("expected error when no product matches")
	}
	if _, err := client.VolumePrice(context.Background(), "gp2", "mars-north-1"); err == nil {
		t.Error("expected error for unknown region")
	}

	failing := NewClient(&fakeProducts{err: errors.New("throttled")})
	if _, err := failing.VolumePrice(context.Background(), "gp2", "ap-south-1"); err == nil {
		t.Error("expected API error to propagate")
	}
}

func TestClientCompare(t *testing.T) {
	client := NewClient(&fakeProducts{priceList: []string{gp2Product, gp3Product}})
	table := Table{VolumePerGBMonth: map[string]float64{"gp3": 0.08, "io1": 0.143, "gp2": 0.114}}

	rows := client.Compare(context.Background(), table, "ap-south-1")
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}

	want := []string{"gp2", "gp3", "io1"}
	for i, row := range rows {
		if row.VolumeType != want[i] {
			t.Errorf("rows[%d].VolumeType = %q, want %q", i, row.VolumeType, want[i])
		}
	}
	if rows[0].Err != nil || rows[0].Drift() != 0 {
		t.Errorf("gp2 row = %+v, want matching live price", rows[0])
	}
	if rows[1].Source != PricingSourceAPI || Round2(rows[1].Drift()*1000) != 11.2 {
		t.Errorf("gp3 row = %+v, want drift 0.0112", rows[1])
	}
	if rows[2].Err == nil || rows[2].Source != PricingSourceNA {
		t.Errorf("io1 row = %+v, want lookup failure", rows[2])
	}
}
