// Package usda is a client for the USDA FoodData Central API, the nutrition
// database behind the agent's lookup tool.
package usda

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jaxonc/AIE7-Certification-Challenge/models"
)

const defaultBaseURL = "https://api.nal.usda.gov/fdc/v1"

type Service struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type LookupResult struct {
	Found   bool            `json:"found"`
	Product *models.Product `json:"product,omitempty"`
}

func NewService(apiKey string) *Service {
	return NewServiceWithBaseURL(apiKey, defaultBaseURL)
}

// NewServiceWithBaseURL exists so tests can point the client at a local
// httptest server.
func NewServiceWithBaseURL(apiKey, baseURL string) *Service {
	return &Service{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type searchResponse struct {
	Foods []searchFood `json:"foods"`
}

type searchFood struct {
	FdcID         int            `json:"fdcId"`
	Description   string         `json:"description"`
	BrandOwner    string         `json:"brandOwner"`
	BrandName     string         `json:"brandName"`
	GtinUpc       string         `json:"gtinUpc"`
	Ingredients   string         `json:"ingredients"`
	FoodCategory  string         `json:"foodCategory"`
	FoodNutrients []foodNutrient `json:"foodNutrients"`
}

type foodNutrient struct {
	NutrientName string  `json:"nutrientName"`
	Value        float64 `json:"value"`
	UnitName     string  `json:"unitName"`
}

// LookupByUPC finds the branded food whose GTIN/UPC matches the given code.
// A missing product is a not-found result, not an error.
func (s *Service) LookupByUPC(ctx context.Context, upc string) (*LookupResult, error) {
	log.Printf("[INFO] Starting USDA FDC lookup for UPC %s", upc)

	resp, err := s.search(ctx, upc)
	if err != nil {
		return nil, err
	}

	for _, food := range resp.Foods {
		if sameCode(food.GtinUpc, upc) {
			log.Printf("[INFO] USDA FDC matched UPC %s to %q (fdcId %d)", upc, food.Description, food.FdcID)
			return &LookupResult{Found: true, Product: food.toProduct()}, nil
		}
	}

	log.Printf("[INFO] USDA FDC has no product for UPC %s", upc)
	return &LookupResult{Found: false}, nil
}

// SearchByName returns the best branded match for a product name.
func (s *Service) SearchByName(ctx context.Context, name string) (*LookupResult, error) {
	log.Printf("[INFO] Starting USDA FDC search for name %q", name)

	resp, err := s.search(ctx, name)
	if err != nil {
		return nil, err
	}

	if len(resp.Foods) == 0 {
		log.Printf("[INFO] USDA FDC has no product matching %q", name)
		return &LookupResult{Found: false}, nil
	}

	food := resp.Foods[0]
	log.Printf("[INFO] USDA FDC matched %q to %q (fdcId %d)", name, food.Description, food.FdcID)
	return &LookupResult{Found: true, Product: food.toProduct()}, nil
}

func (s *Service) search(ctx context.Context, query string) (*searchResponse, error) {
	params := url.Values{}
	params.Set("api_key", s.apiKey)
	params.Set("query", query)
	params.Set("dataType", "Branded")
	params.Set("pageSize", "10")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/foods/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build USDA FDC request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("USDA FDC request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("USDA FDC returned status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode USDA FDC response: %w", err)
	}

	return &parsed, nil
}

func (f *searchFood) toProduct() *models.Product {
	product := &models.Product{
		FDCID:       f.FdcID,
		UPC:         f.GtinUpc,
		Description: f.Description,
		Brand:       firstNonEmpty(f.BrandName, f.BrandOwner),
		Category:    f.FoodCategory,
		Ingredients: f.Ingredients,
	}

	for _, n := range f.FoodNutrients {
		if n.NutrientName == "" {
			continue
		}
		product.Nutrients = append(product.Nutrients, models.Nutrient{
			Name:   n.NutrientName,
			Amount: n.Value,
			Unit:   n.UnitName,
		})
	}

	return product
}

// sameCode compares codes ignoring leading zeros, since FDC stores some
// GTINs zero-padded to 13 or 14 digits.
func sameCode(a, b string) bool {
	return strings.TrimLeft(a, "0") == strings.TrimLeft(b, "0")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
