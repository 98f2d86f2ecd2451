package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jaxonc/AIE7-Certification-Challenge/config"
	"github.com/jaxonc/AIE7-Certification-Challenge/db"
	"github.com/jaxonc/AIE7-Certification-Challenge/models"
	"github.com/jaxonc/AIE7-Certification-Challenge/services/docindex"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	chunkSize    = 750
	chunkOverlap = 100
)

type DocumentChunk struct {
	ID         string
	DocumentID int
	ChunkIndex int
	UPC        string
	Title      string
	Content    string
}

func main() {
	log.Printf("[INFO] Starting product document indexing process")

	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		log.Fatal("[ERROR] DB_URL environment variable is required")
	}
	if cfg.PineconeAPIKey == "" {
		log.Fatal("[ERROR] PINECONE_API_KEY environment variable is required")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Fatal("[ERROR] OPENAI_API_KEY environment variable is required")
	}

	docRepo, err := db.NewPostgresProductDocumentRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[ERROR] Failed to initialize product document database: %v", err)
	}
	defer docRepo.Close()

	llm, err := openai.New(
		openai.WithEmbeddingModel("text-embedding-3-small"),
		openai.WithToken(cfg.OpenAIAPIKey),
	)
	if err != nil {
		log.Fatalf("[ERROR] Failed to create OpenAI client: %v", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		log.Fatalf("[ERROR] Failed to create embedder: %v", err)
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: cfg.PineconeAPIKey,
	})
	if err != nil {
		log.Fatalf("[ERROR] Failed to create Pinecone client: %v", err)
	}

	if err := ensurePineconeIndex(pc, cfg.PineconeIndexName); err != nil {
		log.Fatalf("[ERROR] Failed to ensure Pinecone index: %v", err)
	}

	docs, err := docRepo.GetAllProductDocuments()
	if err != nil {
		log.Fatalf("[ERROR] Failed to retrieve product documents: %v", err)
	}

	log.Printf("[INFO] Retrieved %d product documents from database", len(docs))

	for i, doc := range docs {
		log.Printf("[INFO] Processing document %d/%d (ID: %d)", i+1, len(docs), doc.ID)

		if err := processDocument(pc, cfg.PineconeIndexName, doc, embedder); err != nil {
			log.Printf("[ERROR] Failed to process document ID %d: %v", doc.ID, err)
			continue
		}

		log.Printf("[INFO] Successfully processed document ID %d", doc.ID)
	}

	log.Printf("[INFO] Product document indexing process completed")
}

func ensurePineconeIndex(pc *pinecone.Client, indexName string) error {
	ctx := context.Background()

	indexes, err := pc.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexes: %w", err)
	}

	for _, idx := range indexes {
		if idx.Name == indexName {
			log.Printf("[INFO] Index %s already exists", indexName)
			return nil
		}
	}

	log.Printf("[INFO] Creating Pinecone index: %s", indexName)
	dimension := int32(1536) // text-embedding-3-small dimension
	deletionProtection := pinecone.DeletionProtectionDisabled
	metric := pinecone.Cosine

	_, err = pc.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:               indexName,
		Dimension:          &dimension,
		Metric:             &metric,
		Cloud:              pinecone.Aws,
		Region:             "us-east-1",
		DeletionProtection: &deletionProtection,
		Tags:               &pinecone.IndexTags{"project": "food-agent-indexing"},
	})
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	for {
		idx, err := pc.DescribeIndex(ctx, indexName)
		if err != nil {
			return fmt.Errorf("failed to describe index: %w", err)
		}
		if idx.Status.Ready {
			log.Printf("[INFO] Index %s is ready", indexName)
			break
		}
		log.Printf("[INFO] Waiting for index %s to be ready...", indexName)
		time.Sleep(10 * time.Second)
	}

	return nil
}

func processDocument(pc *pinecone.Client, indexName string, doc *models.ProductDocument, embedder embeddings.Embedder) error {
	chunks := chunkDocument(doc)
	if len(chunks) == 0 {
		log.Printf("[INFO] No chunks created for document ID %d", doc.ID)
		return nil
	}
	log.Printf("[INFO] Created %d chunks for document ID %d", len(chunks), doc.ID)

	idxConn, err := indexConnection(pc, indexName)
	if err != nil {
		return err
	}

	if err := deleteExistingVectors(idxConn, doc.ID); err != nil {
		return fmt.Errorf("failed to delete existing vectors: %w", err)
	}

	vectors := make([]*pinecone.Vector, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := createVector(chunk, embedder)
		if err != nil {
			return fmt.Errorf("failed to create vector for chunk %s: %w", chunk.ID, err)
		}
		vectors = append(vectors, vector)
	}

	if _, err := idxConn.UpsertVectors(context.Background(), vectors); err != nil {
		return fmt.Errorf("failed to upsert vectors: %w", err)
	}

	return nil
}

func indexConnection(pc *pinecone.Client, indexName string) (*pinecone.IndexConnection, error) {
	ctx := context.Background()

	idxDesc, err := pc.DescribeIndex(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index: %w", err)
	}

	idxConn, err := pc.Index(pinecone.NewIndexConnParams{
		Host:      idxDesc.Host,
		Namespace: docindex.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create index connection: %w", err)
	}

	return idxConn, nil
}

// chunkDocument splits the document content into overlapping character
// windows so retrieval can land in the middle of a long description. Short
// documents become a single chunk. Windows are measured in runes so a chunk
// never splits a multibyte character into invalid UTF-8.
func chunkDocument(doc *models.ProductDocument) []DocumentChunk {
	content := []rune(strings.TrimSpace(doc.Content))
	if len(content) == 0 {
		return nil
	}

	var chunks []DocumentChunk
	step := chunkSize - chunkOverlap
	for start, index := 0, 0; start < len(content); start, index = start+step, index+1 {
		end := start + chunkSize
		if end > len(content) {
			end = len(content)
		}

		chunks = append(chunks, DocumentChunk{
			ID:         fmt.Sprintf("product-%d-chunk-%d", doc.ID, index),
			DocumentID: doc.ID,
			ChunkIndex: index,
			UPC:        doc.UPC,
			Title:      doc.Title,
			Content:    string(content[start:end]),
		})

		if end == len(content) {
			break
		}
	}

	return chunks
}

func deleteExistingVectors(idxConn *pinecone.IndexConnection, documentID int) error {
	ctx := context.Background()

	prefix := fmt.Sprintf("product-%d-", documentID)
	limit := uint32(100)

	listResp, err := idxConn.ListVectors(ctx, &pinecone.ListVectorsRequest{
		Prefix: &prefix,
		Limit:  &limit,
	})
	if err != nil {
		// A missing namespace just means nothing has been indexed yet.
		if strings.Contains(err.Error(), "Namespace not found") {
			return nil
		}
		return fmt.Errorf("failed to list vectors: %w", err)
	}

	for len(listResp.VectorIds) > 0 {
		ids := make([]string, 0, len(listResp.VectorIds))
		for _, id := range listResp.VectorIds {
			if id != nil {
				ids = append(ids, *id)
			}
		}

		if len(ids) > 0 {
			if err := idxConn.DeleteVectorsById(ctx, ids); err != nil {
				return fmt.Errorf("failed to delete vector batch: %w", err)
			}
			log.Printf("[INFO] Deleted %d stale vectors for document ID %d", len(ids), documentID)
		}

		if listResp.NextPaginationToken == nil {
			break
		}
		listResp, err = idxConn.ListVectors(ctx, &pinecone.ListVectorsRequest{
			Prefix:          &prefix,
			Limit:           &limit,
			PaginationToken: listResp.NextPaginationToken,
		})
		if err != nil {
			return fmt.Errorf("failed to list next batch of vectors: %w", err)
		}
	}

	return nil
}

func createVector(chunk DocumentChunk, embedder embeddings.Embedder) (*pinecone.Vector, error) {
	ctx := context.Background()

	combinedText := fmt.Sprintf("Title: %s\n\nContent: %s", chunk.Title, chunk.Content)

	vectors, err := embedder.EmbedDocuments(ctx, []string{combinedText})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	metadata, err := structpb.NewStruct(map[string]any{
		"document_id": chunk.DocumentID,
		"chunk_index": chunk.ChunkIndex,
		"upc":         chunk.UPC,
		"title":       chunk.Title,
		"content":     chunk.Content,
		"created_at":  time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata struct for chunk %s: %w", chunk.ID, err)
	}

	return &pinecone.Vector{
		Id:       chunk.ID,
		Values:   &vectors[0],
		Metadata: metadata,
	}, nil
}
