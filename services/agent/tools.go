package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jaxonc/AIE7-Certification-Challenge/models"
	"github.com/jaxonc/AIE7-Certification-Challenge/services/match"
	"github.com/jaxonc/AIE7-Certification-Challenge/services/upc"
	"github.com/jaxonc/AIE7-Certification-Challenge/services/usda"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
)

// AgentTool is the contract every tool implements. Call receives arguments
// as a JSON document matching the tool's declared schema and must contain
// its own failures: an error return is mapped to an error-status result by
// the loop, never re-raised.
type AgentTool interface {
	Name() string
	Description() string
	Call(ctx context.Context, input string) (models.ToolOutcome, error)
	GetAnthropicToolSpec() anthropic.ToolInputSchemaParam
}

func generateAnthropicSchema[T any]() anthropic.ToolInputSchemaParam {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	return anthropic.ToolInputSchemaParam{
		Properties: schema.Properties,
	}
}

// --- upc_extraction ---

type UPCExtractionToolInput struct {
	Text string `json:"text" jsonschema:"required,description=The user's complete message to scan for UPC codes"`
}

type UPCExtractionTool struct{}

func NewUPCExtractionTool() UPCExtractionTool {
	return UPCExtractionTool{}
}

func (e UPCExtractionTool) Name() string {
	return "upc_extraction"
}

func (e UPCExtractionTool) Description() string {
	return "Extracts UPC codes and product descriptions from natural language text about products. Use this tool when the user mentions numbers that could be UPC codes or asks about specific products. Input should be the user's complete message."
}

func (e UPCExtractionTool) Call(ctx context.Context, input string) (models.ToolOutcome, error) {
	var params UPCExtractionToolInput
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return models.ToolOutcome{}, fmt.Errorf("failed to parse upc extraction tool input: %w", err)
	}

	candidates := upc.Extract(params.Text)
	description := extractDescription(params.Text)

	type extractionResult struct {
		FoundUPC    bool                  `json:"found_upc"`
		Candidates  []models.UPCCandidate `json:"candidates,omitempty"`
		Description string                `json:"description,omitempty"`
		Message     string                `json:"message"`
	}

	result := extractionResult{
		FoundUPC:    len(candidates) > 0,
		Candidates:  candidates,
		Description: description,
	}
	if result.FoundUPC {
		result.Message = fmt.Sprintf("extracted %d UPC candidate(s)", len(candidates))
	} else {
		result.Message = "no UPC-like digit sequence found in the input"
	}

	content, err := json.Marshal(result)
	if err != nil {
		return models.ToolOutcome{}, fmt.Errorf("failed to marshal extraction result: %w", err)
	}

	return models.OKOutcome(string(content)), nil
}

func (e UPCExtractionTool) GetAnthropicToolSpec() anthropic.ToolInputSchemaParam {
	return generateAnthropicSchema[UPCExtractionToolInput]()
}

var descriptionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)description\s+(?:is\s+)?([^.!?,\d]+)`),
	regexp.MustCompile(`(?i)\bfor\s+(?:the\s+)?([a-z' ]{3,40}?)(?:\s+upc|\s+with|\s+barcode|[.!?]|$)`),
}

var foodWordPattern = regexp.MustCompile(`(?i)\b(?:chips?|fries?|cereal|cookies?|snacks?|crackers?|candy|chocolate|soda|drink|juice|bars?|popcorn|pretzels?)\b`)

// extractDescription pulls a best-effort product description out of the
// message so the lookup result can later be checked against what the user
// thinks the product is.
func extractDescription(text string) string {
	for _, pattern := range descriptionPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			candidate := strings.TrimSpace(m[1])
			if candidate != "" {
				return candidate
			}
		}
	}

	words := foodWordPattern.FindAllString(strings.ToLower(text), -1)
	return strings.Join(words, " ")
}

// --- upc_validator ---

type UPCValidatorToolInput struct {
	UPC string `json:"upc" jsonschema:"required,description=The UPC code to validate; separators like hyphens and spaces are tolerated"`
}

type UPCValidatorTool struct{}

func NewUPCValidatorTool() UPCValidatorTool {
	return UPCValidatorTool{}
}

func (v UPCValidatorTool) Name() string {
	return "upc_validator"
}

func (v UPCValidatorTool) Description() string {
	return "Validates a UPC/EAN/GTIN code (8, 12, 13 or 14 digits) against its weighted modulo-10 check digit. Returns whether the checksum passes and, when it fails, the expected check digit."
}

func (v UPCValidatorTool) Call(ctx context.Context, input string) (models.ToolOutcome, error) {
	var params UPCValidatorToolInput
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return models.ToolOutcome{}, fmt.Errorf("failed to parse upc validator tool input: %w", err)
	}

	digits := upc.Normalize(strings.TrimSpace(params.UPC))

	type validationResult struct {
		UPC                string `json:"upc"`
		Length             int    `json:"length"`
		IsValid            bool   `json:"is_valid"`
		Reason             string `json:"reason,omitempty"`
		ExpectedCheckDigit *int   `json:"expected_check_digit,omitempty"`
	}

	result := validationResult{
		UPC:    digits,
		Length: len(digits),
	}

	result.IsValid = upc.Validate(digits)
	if !result.IsValid {
		switch {
		case len(digits) == 0:
			result.Reason = "no digits provided"
		case !isSupportedLength(len(digits)):
			result.Reason = fmt.Sprintf("unsupported length %d: expected 8, 12, 13 or 14 digits", len(digits))
		default:
			if expected, err := upc.CheckDigit(digits[:len(digits)-1]); err == nil {
				result.ExpectedCheckDigit = &expected
				result.Reason = fmt.Sprintf("checksum failed: final digit should be %d", expected)
			} else {
				result.Reason = "input contains non-digit characters"
			}
		}
	}

	content, err := json.Marshal(result)
	if err != nil {
		return models.ToolOutcome{}, fmt.Errorf("failed to marshal validation result: %w", err)
	}

	return models.OKOutcome(string(content)), nil
}

func (v UPCValidatorTool) GetAnthropicToolSpec() anthropic.ToolInputSchemaParam {
	return generateAnthropicSchema[UPCValidatorToolInput]()
}

func isSupportedLength(n int) bool {
	return n == 8 || n == 12 || n == 13 || n == 14
}

// --- upc_check_digit_calculator ---

type UPCCheckDigitToolInput struct {
	Digits string `json:"digits" jsonschema:"required,description=Either a full UPC whose final digit should be recomputed, or a payload one digit short of a supported length"`
}

type UPCCheckDigitTool struct{}

func NewUPCCheckDigitTool() UPCCheckDigitTool {
	return UPCCheckDigitTool{}
}

func (c UPCCheckDigitTool) Name() string {
	return "upc_check_digit_calculator"
}

func (c UPCCheckDigitTool) Description() string {
	return "Computes or repairs the check digit of a UPC/EAN/GTIN code. Given a full code it recomputes the final digit; given a payload it appends the correct check digit."
}

func (c UPCCheckDigitTool) Call(ctx context.Context, input string) (models.ToolOutcome, error) {
	var params UPCCheckDigitToolInput
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return models.ToolOutcome{}, fmt.Errorf("failed to parse check digit tool input: %w", err)
	}

	digits := upc.Normalize(strings.TrimSpace(params.Digits))

	corrected, err := upc.Repair(digits)
	if err != nil {
		return models.ToolOutcome{}, fmt.Errorf("cannot compute check digit: %w", err)
	}

	type checkDigitResult struct {
		Input      string `json:"input"`
		Corrected  string `json:"corrected"`
		CheckDigit int    `json:"check_digit"`
		Changed    bool   `json:"changed"`
	}

	result := checkDigitResult{
		Input:      digits,
		Corrected:  corrected,
		CheckDigit: int(corrected[len(corrected)-1] - '0'),
		Changed:    corrected != digits,
	}

	content, err := json.Marshal(result)
	if err != nil {
		return models.ToolOutcome{}, fmt.Errorf("failed to marshal check digit result: %w", err)
	}

	return models.OKOutcome(string(content)), nil
}

func (c UPCCheckDigitTool) GetAnthropicToolSpec() anthropic.ToolInputSchemaParam {
	return generateAnthropicSchema[UPCCheckDigitToolInput]()
}

// --- usda_food_lookup ---

// NutritionLookup is implemented by the USDA FoodData Central client.
type NutritionLookup interface {
	LookupByUPC(ctx context.Context, upc string) (*usda.LookupResult, error)
	SearchByName(ctx context.Context, name string) (*usda.LookupResult, error)
}

type USDALookupToolInput struct {
	UPC         string `json:"upc,omitempty" jsonschema:"description=The UPC code to look up (digits only)"`
	Name        string `json:"name,omitempty" jsonschema:"description=A product name to search for when no UPC is available"`
	Description string `json:"description,omitempty" jsonschema:"description=The user's own description of the product; when provided it is compared against the product data"`
}

type USDALookupTool struct {
	lookup NutritionLookup
}

func NewUSDALookupTool(lookup NutritionLookup) USDALookupTool {
	return USDALookupTool{lookup: lookup}
}

func (u USDALookupTool) Name() string {
	return "usda_food_lookup"
}

func (u USDALookupTool) Description() string {
	return "Looks up nutrition facts in the USDA FoodData Central database by UPC code or product name. Reports not_found when the database has no matching product."
}

func (u USDALookupTool) Call(ctx context.Context, input string) (models.ToolOutcome, error) {
	var params USDALookupToolInput
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return models.ToolOutcome{}, fmt.Errorf("failed to parse usda lookup tool input: %w", err)
	}

	var (
		result *usda.LookupResult
		err    error
	)
	switch {
	case params.UPC != "":
		result, err = u.lookup.LookupByUPC(ctx, upc.Normalize(params.UPC))
	case params.Name != "":
		result, err = u.lookup.SearchByName(ctx, params.Name)
	default:
		return models.ToolOutcome{}, fmt.Errorf("either upc or name must be provided")
	}
	if err != nil {
		return models.ToolOutcome{}, fmt.Errorf("nutrition lookup failed: %w", err)
	}

	if !result.Found {
		return models.NotFoundOutcome(`{"found": false, "message": "no matching product in USDA FoodData Central; consider a web search"}`), nil
	}

	type lookupResult struct {
		Found             bool            `json:"found"`
		Product           *models.Product `json:"product"`
		DescriptionVerify *match.Result   `json:"description_comparison,omitempty"`
	}

	payload := lookupResult{
		Found:   true,
		Product: result.Product,
	}
	if params.Description != "" {
		comparison := match.CompareDescription(params.Description, result.Product)
		payload.DescriptionVerify = &comparison
	}

	content, err := json.Marshal(payload)
	if err != nil {
		return models.ToolOutcome{}, fmt.Errorf("failed to marshal lookup result: %w", err)
	}

	return models.OKOutcome(string(content)), nil
}

func (u USDALookupTool) GetAnthropicToolSpec() anthropic.ToolInputSchemaParam {
	return generateAnthropicSchema[USDALookupToolInput]()
}

// --- product_knowledge_search ---

// KnowledgeRetriever is implemented by the Pinecone document index.
type KnowledgeRetriever interface {
	Query(ctx context.Context, query string, topK int) ([]models.Passage, error)
}

type ProductKnowledgeToolInput struct {
	Query string `json:"query" jsonschema:"required,description=What to look for in the product knowledge base"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"description=How many passages to return (default 5)"`
}

type ProductKnowledgeTool struct {
	retriever KnowledgeRetriever
}

func NewProductKnowledgeTool(retriever KnowledgeRetriever) ProductKnowledgeTool {
	return ProductKnowledgeTool{retriever: retriever}
}

func (p ProductKnowledgeTool) Name() string {
	return "product_knowledge_search"
}

func (p ProductKnowledgeTool) Description() string {
	return "Searches the curated product knowledge base for passages relevant to a query. Use this before falling back to web search for product questions."
}

func (p ProductKnowledgeTool) Call(ctx context.Context, input string) (models.ToolOutcome, error) {
	var params ProductKnowledgeToolInput
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return models.ToolOutcome{}, fmt.Errorf("failed to parse product knowledge tool input: %w", err)
	}

	passages, err := p.retriever.Query(ctx, params.Query, params.TopK)
	if err != nil {
		return models.ToolOutcome{}, fmt.Errorf("knowledge base query failed: %w", err)
	}

	if len(passages) == 0 {
		return models.NotFoundOutcome(`{"passages": [], "message": "no relevant passages in the product knowledge base"}`), nil
	}

	content, err := json.Marshal(map[string]any{"passages": passages})
	if err != nil {
		return models.ToolOutcome{}, fmt.Errorf("failed to marshal passages: %w", err)
	}

	return models.OKOutcome(string(content)), nil
}

func (p ProductKnowledgeTool) GetAnthropicToolSpec() anthropic.ToolInputSchemaParam {
	return generateAnthropicSchema[ProductKnowledgeToolInput]()
}

// --- tavily_web_search ---

// WebSearcher is implemented by the Tavily client.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

type WebSearchToolInput struct {
	Query string `json:"query" jsonschema:"required,description=The web search query"`
}

type WebSearchTool struct {
	searcher WebSearcher
}

func NewWebSearchTool(searcher WebSearcher) WebSearchTool {
	return WebSearchTool{searcher: searcher}
}

func (w WebSearchTool) Name() string {
	return "tavily_web_search"
}

func (w WebSearchTool) Description() string {
	return "Searches the web for food and product information. Use this as a fallback when database and knowledge base lookups come up empty, or for supplementary context."
}

func (w WebSearchTool) Call(ctx context.Context, input string) (models.ToolOutcome, error) {
	var params WebSearchToolInput
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return models.ToolOutcome{}, fmt.Errorf("failed to parse web search tool input: %w", err)
	}

	results, err := w.searcher.Search(ctx, params.Query)
	if err != nil {
		return models.ToolOutcome{}, fmt.Errorf("web search failed: %w", err)
	}

	content, err := json.Marshal(map[string]any{"results": results})
	if err != nil {
		return models.ToolOutcome{}, fmt.Errorf("failed to marshal search results: %w", err)
	}

	return models.OKOutcome(string(content)), nil
}

func (w WebSearchTool) GetAnthropicToolSpec() anthropic.ToolInputSchemaParam {
	return generateAnthropicSchema[WebSearchToolInput]()
}
