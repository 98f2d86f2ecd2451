// Package docindex queries the Pinecone index of product fact sheets built
// by cmd/indexdocs. The agent treats it as an opaque ranked-passage source.
package docindex

import (
	"context"
	"fmt"
	"log"

	"github.com/jaxonc/AIE7-Certification-Challenge/models"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

const Namespace = "product-docs"

type Service struct {
	client    *pinecone.Client
	embedder  embeddings.Embedder
	indexName string
}

func NewService(pineconeAPIKey, openaiAPIKey, indexName string) (*Service, error) {
	log.Printf("[INFO] Initializing document index service for index %q", indexName)

	pc, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: pineconeAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pinecone client: %w", err)
	}

	llm, err := openai.New(
		openai.WithEmbeddingModel("text-embedding-3-small"),
		openai.WithToken(openaiAPIKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	log.Printf("[INFO] Document index service initialized successfully")
	return &Service{
		client:    pc,
		embedder:  embedder,
		indexName: indexName,
	}, nil
}

// Query embeds the query text and returns the topK closest passages, most
// similar first.
func (s *Service) Query(ctx context.Context, query string, topK int) ([]models.Passage, error) {
	log.Printf("[INFO] Starting document index query %q with topK %d", query, topK)

	if topK <= 0 {
		topK = 5
	}

	idxDesc, err := s.client.DescribeIndex(ctx, s.indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index: %w", err)
	}

	idxConn, err := s.client.Index(pinecone.NewIndexConnParams{
		Host:      idxDesc.Host,
		Namespace: Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create index connection: %w", err)
	}

	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	result, err := idxConn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          queryVector,
		TopK:            uint32(topK),
		IncludeValues:   false,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}

	var passages []models.Passage
	for _, m := range result.Matches {
		if m.Vector == nil || m.Vector.Metadata == nil {
			continue
		}
		metadata := m.Vector.Metadata.AsMap()

		content, _ := metadata["content"].(string)
		if content == "" {
			continue
		}

		if title, ok := metadata["title"].(string); ok && title != "" {
			content = title + "\n\n" + content
		}

		passages = append(passages, models.Passage{
			Text:     content,
			Score:    m.Score,
			SourceID: m.Vector.Id,
		})
	}

	log.Printf("[INFO] Document index query returned %d passages", len(passages))
	return passages, nil
}
