package rag_test

import (
	"context"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/mocks/mockllms"
	"github.com/effective-security/mcpchat/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// keywordEmbedder maps texts to fixed vectors by keyword
type keywordEmbedder struct{}

func (keywordEmbedder) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	res := make([][]float32, len(texts))
	for i, t := range texts {
		t = strings.ToLower(t)
		v := []float32{0.01, 0.01, 0.01}
		if strings.Contains(t, "loan") {
			v[0] = 1
		}
		if strings.Contains(t, "energy") {
			v[1] = 1
		}
		if strings.Contains(t, "water") {
			v[2] = 1
		}
		res[i] = v
	}
	return res, nil
}

func TestChunk(t *testing.T) {
	t.Parallel()

	assert.Empty(t, rag.Chunk("", 10))
	assert.Equal(t, []string{"abc"}, rag.Chunk("abc", 10))
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, rag.Chunk("abcdefghij", 4))
	assert.Equal(t, []string{"жёлт", "ый"}, rag.Chunk("жёлтый", 4))

	long := strings.Repeat("x", 1201)
	chunks := rag.Chunk(long, 0)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], rag.DefaultChunkSize)
	assert.Len(t, chunks[2], 201)
}

func TestRetriever(t *testing.T) {
	ctx := context.Background()
	r := rag.NewRetriever(keywordEmbedder{}, rag.NewMemoryStore(), "")
	defer r.Close()
	assert.Equal(t, rag.DefaultCollection, r.Collection())

	n, err := r.Ingest(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = r.Ingest(ctx, []string{
		"Energy sector loan for solar",
		"Water supply project",
		"Education program",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	res, err := r.Search(ctx, "water", 0)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "chunk_1", res[0].ID)
	assert.Equal(t, "Water supply project", res[0].Text)
	assert.Equal(t, map[string]any{"chunk_id": 1}, res[0].Metadata)
	assert.InDelta(t, 0, res[0].Distance, 0.01)

	res, err = r.Search(ctx, "loan", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "chunk_0", res[0].ID)

	_, err = r.Search(ctx, "  ", 1)
	assert.EqualError(t, err, "query is required")

	// ingest replaces the collection
	n, err = r.Ingest(ctx, []string{"Education only"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res, err = r.Search(ctx, "water", 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Education only", res[0].Text)
}

func TestRetrieverErrors(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	emb := mockllms.NewMockEmbedder(ctrl)

	r := rag.NewRetriever(emb, rag.NewMemoryStore(), "test")

	emb.EXPECT().CreateEmbedding(gomock.Any(), []string{"q"}).Return(nil, errors.New("quota exceeded"))
	_, err := r.Search(ctx, "q", 3)
	assert.EqualError(t, err, "failed to embed query: quota exceeded")

	emb.EXPECT().CreateEmbedding(gomock.Any(), []string{"a", "b"}).Return([][]float32{{1}}, nil)
	_, err = r.Ingest(ctx, []string{"a", "b"})
	assert.EqualError(t, err, "unexpected number of embeddings: 1, expected 2")

	emb.EXPECT().CreateEmbedding(gomock.Any(), []string{"a"}).Return(nil, errors.New("unauthorized"))
	_, err = r.Ingest(ctx, []string{"a"})
	assert.EqualError(t, err, "failed to create embeddings: unauthorized")
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := rag.NewMemoryStore()
	defer s.Close()

	err := s.Upsert(ctx, "c", []rag.Document{{ID: "1"}}, nil)
	assert.EqualError(t, err, "documents and embeddings mismatch: 1 != 0")

	err = s.Upsert(ctx, "c", []rag.Document{{Text: "no id"}}, [][]float32{{1, 0}})
	assert.EqualError(t, err, "document ID is required")

	res, err := s.Query(ctx, "missing", []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, res)

	require.NoError(t, s.Upsert(ctx, "c", []rag.Document{
		{ID: "a", Text: "x axis"},
		{ID: "b", Text: "y axis"},
		{ID: "z", Text: "zero"},
	}, [][]float32{{1, 0}, {0, 1}, {0, 0}}))

	res, err = s.Query(ctx, "c", []float32{0, 2}, 0)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "b", res[0].ID)
	assert.InDelta(t, 0, res[0].Distance, 0.0001)
	// orthogonal and zero vectors are at the same distance, ordered by ID
	assert.Equal(t, "a", res[1].ID)
	assert.Equal(t, "z", res[2].ID)
	assert.InDelta(t, 1, res[2].Distance, 0.0001)

	// upsert replaces by ID
	require.NoError(t, s.Upsert(ctx, "c", []rag.Document{{ID: "a", Text: "now y"}}, [][]float32{{0, 1}}))
	res, err = s.Query(ctx, "c", []float32{0, 1}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "a", res[0].ID)
	assert.Equal(t, "now y", res[0].Text)

	require.NoError(t, s.Reset(ctx, "c"))
	res, err = s.Query(ctx, "c", []float32{0, 1}, 2)
	require.NoError(t, err)
	assert.Empty(t, res)
}
