// Package voyage generates text embeddings with the Voyage AI API.
package voyage

import (
	"context"
	"fmt"

	"github.com/austinfhunter/voyageai"
)

const (
	// DefaultDimensions is the embedding width requested from the model.
	DefaultDimensions = 1024

	// DefaultModel is the embedding model used unless overridden.
	DefaultModel = "voyage-3.5-lite"
)

// EmbeddingType selects the model's asymmetric embedding space.
type EmbeddingType string

const (
	EmbeddingTypeDocument EmbeddingType = "document"
	EmbeddingTypeQuery    EmbeddingType = "query"
	EmbeddingTypeDefault  EmbeddingType = ""
)

// Service handles generating embeddings for event text
type Service struct {
	client     *voyageai.VoyageClient
	dimensions int
	model      string
}

// NewService creates a new embedding service
func NewService(apiKey string) *Service {
	return &Service{
		client: voyageai.NewClient(&voyageai.VoyageClientOpts{
			Key: apiKey,
		}),
		dimensions: DefaultDimensions,
		model:      DefaultModel,
	}
}

// SetDimensions sets the dimensions for the embedding model
func (s *Service) SetDimensions(dimensions int) *Service {
	s.dimensions = dimensions
	return s
}

// SetModel sets the embedding model
func (s *Service) SetModel(model string) *Service {
	s.model = model
	return s
}

// GenerateEmbedding generates an embedding for a single text
func (s *Service) GenerateEmbedding(ctx context.Context, text string, embeddingType EmbeddingType) ([]float32, error) {
	embeddings, err := s.client.Embed(
		[]string{text},
		s.model,
		&voyageai.EmbeddingRequestOpts{
			InputType:       parseEmbeddingType(embeddingType),
			OutputDimension: &s.dimensions,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("could not get embedding: %w", err)
	}

	return embeddings.Data[0].Embedding, nil
}

// GenerateEmbeddings generates embeddings for multiple texts in one request
func (s *Service) GenerateEmbeddings(ctx context.Context, texts []string, embeddingType EmbeddingType) ([]voyageai.EmbeddingObject, error) {
	embeddings, err := s.client.Embed(
		texts,
		s.model,
		&voyageai.EmbeddingRequestOpts{
			InputType:       parseEmbeddingType(embeddingType),
			OutputDimension: &s.dimensions,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("could not get embeddings: %w", err)
	}

	return embeddings.Data, nil
}

func parseEmbeddingType(embeddingType EmbeddingType) *string {
	if embeddingType != EmbeddingTypeDefault {
		value := string(embeddingType)
		return &value
	}
	return nil
}
