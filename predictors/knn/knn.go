// Package knn implements a nearest-neighbor predictor: training events are
// embedded with Voyage AI and stored in a Pinecone index, and a prediction is
// the majority vote (or mean, for regression) over the labels of the nearest
// stored neighbors. It predicts per event only; nearest-neighbor lookup has
// no search-expression form.
package knn

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/austinfhunter/voyageai"
	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	searchml "github.com/quantfold/searchml"
	"github.com/quantfold/searchml/clients/pinecone"
	"github.com/quantfold/searchml/clients/voyage"
)

// DefaultTopK is the neighbor count consulted per prediction.
const DefaultTopK = 5

// Mode selects how neighbor labels are combined.
type Mode string

const (
	ModeClassification Mode = "classification"
	ModeRegression     Mode = "regression"
)

// EmbeddingClient generates vector embeddings for event text
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string, embeddingType voyage.EmbeddingType) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string, embeddingType voyage.EmbeddingType) ([]voyageai.EmbeddingObject, error)
}

// VectorIndex stores and searches training-event vectors
type VectorIndex interface {
	Search(ctx context.Context, queryVector []float32, topK int, filter map[string]any, includeMetadata bool) ([]pinecone.QueryMatch, error)
	Upsert(ctx context.Context, vectors []pinecone.Vector) error
}

// Predictor is a k-nearest-neighbor predictor over embedded events.
type Predictor struct {
	service   searchml.SearchService
	embedding EmbeddingClient
	index     VectorIndex
	mode      Mode
	topK      int
	pageSize  int
	trained   bool
	runID     string
	stored    int
}

// New creates an untrained k-NN predictor. Vectors are tagged with a per-run
// id so repeated trainings don't vote across each other's data.
func New(service searchml.SearchService, embedding EmbeddingClient, index VectorIndex, mode Mode) *Predictor {
	return &Predictor{
		service:   service,
		embedding: embedding,
		index:     index,
		mode:      mode,
		topK:      DefaultTopK,
		pageSize:  searchml.DefaultPageSize,
		runID:     uuid.New().String()[:8],
	}
}

// SetTopK overrides the neighbor count consulted per prediction
func (p *Predictor) SetTopK(k int) *Predictor {
	if k > 0 {
		p.topK = k
	}
	return p
}

// SetPageSize overrides the page size used while paging training data
func (p *Predictor) SetPageSize(n int) *Predictor {
	if n > 0 {
		p.pageSize = n
	}
	return p
}

// Stored returns how many training vectors the last Train call upserted.
func (p *Predictor) Stored() int { return p.stored }

// Train pages through the events matched by query, embeds each one page at a
// time and upserts the vectors with their label as metadata.
func (p *Predictor) Train(ctx context.Context, query string, featureFields []string, labelField string) error {
	fields := append(append([]string{}, featureFields...), labelField)
	job, err := p.service.Submit(ctx,
		fmt.Sprintf("search %s | table %s", query, strings.Join(fields, " ")),
		searchml.SubmitOptions{Mode: searchml.ExecModeBlocking, Timeout: searchml.DefaultJobTimeout},
	)
	if err != nil {
		return fmt.Errorf("submit training job: %w", err)
	}

	pager := searchml.NewPager(job, p.pageSize)
	stored := 0
	for {
		page, err := pager.Next(ctx)
		if err != nil {
			return err
		}
		if page == nil {
			break
		}

		texts := make([]string, 0, len(page.Records))
		labels := make([]string, 0, len(page.Records))
		for _, rec := range page.Records {
			if !rec.HasFields(fields...) {
				continue
			}
			texts = append(texts, eventText(rec, featureFields))
			labels = append(labels, rec[labelField])
		}
		if len(texts) == 0 {
			continue
		}

		embeddings, err := p.embedding.GenerateEmbeddings(ctx, texts, voyage.EmbeddingTypeDocument)
		if err != nil {
			return fmt.Errorf("embed training page at offset %d: %w", page.Offset, err)
		}

		vectors := make([]pinecone.Vector, len(embeddings))
		for i, emb := range embeddings {
			meta, merr := structpb.NewStruct(map[string]any{
				"label": labels[i],
				"run":   p.runID,
			})
			if merr != nil {
				return fmt.Errorf("build vector metadata: %w", merr)
			}
			vectors[i] = pinecone.Vector{
				Id:       fmt.Sprintf("%s:%d", p.runID, stored+i),
				Values:   emb.Embedding,
				Metadata: &pinecone.Metadata{Fields: meta.Fields},
			}
		}

		if err := p.index.Upsert(ctx, vectors); err != nil {
			return fmt.Errorf("upsert training vectors: %w", err)
		}
		stored += len(vectors)
	}

	if stored == 0 {
		return errors.New("knn: training query matched no usable events")
	}

	p.stored = stored
	p.trained = true
	return nil
}

// PredictEvent embeds the record and combines the labels of its nearest
// neighbors from this run's training data.
func (p *Predictor) PredictEvent(ctx context.Context, rec searchml.Record, featureFields []string, labelField string) (string, error) {
	if !p.trained {
		return "", searchml.ErrNotTrained
	}

	vector, err := p.embedding.GenerateEmbedding(ctx, eventText(rec, featureFields), voyage.EmbeddingTypeQuery)
	if err != nil {
		return "", fmt.Errorf("embed event: %w", err)
	}

	matches, err := p.index.Search(ctx, vector, p.topK, map[string]any{"run": p.runID}, true)
	if err != nil {
		return "", fmt.Errorf("search neighbors: %w", err)
	}
	if len(matches) == 0 {
		return "", errors.New("knn: no neighbors found")
	}

	switch p.mode {
	case ModeRegression:
		return neighborMean(matches)
	default:
		return neighborVote(matches), nil
	}
}

// eventText flattens a record's feature fields into the text that gets
// embedded. Field order is fixed by featureFields so the same event always
// produces the same text.
func eventText(rec searchml.Record, featureFields []string) string {
	parts := make([]string, 0, len(featureFields))
	for _, f := range featureFields {
		parts = append(parts, f+"="+rec[f])
	}
	return strings.Join(parts, " ")
}

// neighborVote picks the most common neighbor label, breaking ties toward the
// better-scoring one.
func neighborVote(matches []pinecone.QueryMatch) string {
	counts := make(map[string]int)
	first := make(map[string]int)
	for i, m := range matches {
		label := matchLabel(m)
		if _, seen := counts[label]; !seen {
			first[label] = i
		}
		counts[label]++
	}

	best := ""
	bestN := -1
	for label, n := range counts {
		if n > bestN || (n == bestN && first[label] < first[best]) {
			best, bestN = label, n
		}
	}
	return best
}

// neighborMean averages the neighbor labels as numbers. A label that does not
// parse is a malformed numeric field, reported so the caller can skip the
// record.
func neighborMean(matches []pinecone.QueryMatch) (string, error) {
	var sum float64
	for _, m := range matches {
		label := matchLabel(m)
		v, err := strconv.ParseFloat(label, 64)
		if err != nil {
			return "", &searchml.FieldError{Field: "label", Value: label, Err: err}
		}
		sum += v
	}
	mean := sum / float64(len(matches))
	return strconv.FormatFloat(mean, 'f', -1, 64), nil
}

func matchLabel(m pinecone.QueryMatch) string {
	if m.Vector == nil || m.Vector.Metadata == nil {
		return ""
	}
	field, ok := m.Vector.Metadata.Fields["label"]
	if !ok {
		return ""
	}
	return field.GetStringValue()
}
