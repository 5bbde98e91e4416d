// Package pinecone wraps the official Pinecone SDK for storing and searching
// training-event vectors.
package pinecone

import (
	"context"
	"fmt"

	"github.com/pinecone-io/go-pinecone/pinecone"

	"google.golang.org/protobuf/types/known/structpb"
)

// NewService creates a new Pinecone service using the official SDK
func NewService(apiKey string) (*Service, error) {
	client, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize pinecone client: %w", err)
	}

	return &Service{client: client}, nil
}

// ForIndex returns an operations handle for the index at host, scoped to
// namespace.
func (s *Service) ForIndex(host, namespace string) (*IndexOperations, error) {
	conn, err := s.client.Index(pinecone.NewIndexConnParams{
		Host:      host,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to pinecone index: %w", err)
	}

	return &IndexOperations{index: conn}, nil
}

// FindById finds a vector by its ID
func (idx *IndexOperations) FindById(ctx context.Context, id string) (*Vector, error) {
	vector, err := idx.index.QueryByVectorId(ctx, &pinecone.QueryByVectorIdRequest{
		VectorId:        id,
		TopK:            1,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}

	if len(vector.Matches) == 0 {
		return nil, fmt.Errorf("vector not found")
	}

	return vector.Matches[0].Vector, nil
}

// Search performs a vector similarity search in the index
func (idx *IndexOperations) Search(ctx context.Context, queryVector []float32, topK int, filter map[string]any, includeMetadata bool) ([]QueryMatch, error) {
	var metadataFilter *pinecone.MetadataFilter
	if filter != nil {
		mf, err := structpb.NewStruct(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to create metadata filter: %w", err)
		}
		metadataFilter = mf
	}

	queryRequest := &pinecone.QueryByVectorValuesRequest{
		Vector:          queryVector,
		TopK:            uint32(topK),
		IncludeValues:   false,
		IncludeMetadata: includeMetadata,
		MetadataFilter:  metadataFilter,
	}

	queryResponse, err := idx.index.QueryByVectorValues(ctx, queryRequest)
	if err != nil {
		return nil, err
	}

	matches := make([]QueryMatch, len(queryResponse.Matches))
	for i, match := range queryResponse.Matches {
		matches[i] = *match
	}

	return matches, nil
}

// Upsert stores vectors in the index
func (idx *IndexOperations) Upsert(ctx context.Context, vectors []Vector) error {
	pineconeVectors := make([]*pinecone.Vector, len(vectors))
	for i, v := range vectors {
		pineconeVectors[i] = &v
	}

	_, err := idx.index.UpsertVectors(ctx, pineconeVectors)
	return err
}

// Delete removes vectors from the index
func (idx *IndexOperations) Delete(ctx context.Context, ids []string) error {
	return idx.index.DeleteVectorsById(ctx, ids)
}
