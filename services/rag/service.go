// Package rag answers questions from the product knowledge base: retrieve
// the closest passages, then generate strictly from that context.
package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jaxonc/AIE7-Certification-Challenge/models"

	"github.com/samber/lo"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const ragPrompt = `You are a helpful assistant who answers questions based on provided context. You must only use the provided context, and cannot use your own knowledge.

### Question
%s

### Context
%s`

const defaultTopK = 5

// Retriever is the ranked-passage source backing the knowledge base,
// normally the Pinecone document index.
type Retriever interface {
	Query(ctx context.Context, query string, topK int) ([]models.Passage, error)
}

type Service struct {
	retriever Retriever
	llm       llms.Model
}

func NewService(retriever Retriever, openaiAPIKey string) (*Service, error) {
	llm, err := openai.New(
		openai.WithModel("gpt-4o-mini"),
		openai.WithToken(openaiAPIKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	return &Service{
		retriever: retriever,
		llm:       llm,
	}, nil
}

// NewServiceWithModel lets tests substitute a scripted model.
func NewServiceWithModel(retriever Retriever, llm llms.Model) *Service {
	return &Service{retriever: retriever, llm: llm}
}

// Answer retrieves context for the question and generates a grounded
// response. The passages used are returned alongside the answer.
func (s *Service) Answer(ctx context.Context, question string) (*models.RAGResponse, error) {
	log.Printf("[INFO] Starting RAG answer for question %q", question)

	passages, err := s.retriever.Query(ctx, question, defaultTopK)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}

	if len(passages) == 0 {
		log.Printf("[WARN] No context found for question %q", question)
		return &models.RAGResponse{
			Response: "I don't have any product knowledge matching that question.",
			Context:  []models.Passage{},
		}, nil
	}

	docsContent := strings.Join(lo.Map(passages, func(p models.Passage, _ int) string {
		return p.Text
	}), "\n\n")

	response, err := llms.GenerateFromSinglePrompt(ctx, s.llm, fmt.Sprintf(ragPrompt, question, docsContent))
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	log.Printf("[INFO] RAG answer generated from %d passages", len(passages))
	return &models.RAGResponse{
		Response: response,
		Context:  passages,
	}, nil
}
