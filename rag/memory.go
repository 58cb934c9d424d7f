package rag

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

type memoryEntry struct {
	doc       Document
	embedding []float32
}

type memoryStore struct {
	lock        sync.RWMutex
	collections map[string]map[string]memoryEntry
}

// NewMemoryStore returns in-memory VectorStore with cosine distance
func NewMemoryStore() VectorStore {
	return &memoryStore{
		collections: make(map[string]map[string]memoryEntry),
	}
}

func (s *memoryStore) Reset(_ context.Context, collection string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.collections, collection)
	return nil
}

func (s *memoryStore) Upsert(_ context.Context, collection string, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return errors.Newf("documents and embeddings mismatch: %d != %d", len(docs), len(embeddings))
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	col := s.collections[collection]
	if col == nil {
		col = make(map[string]memoryEntry, len(docs))
		s.collections[collection] = col
	}
	for i, doc := range docs {
		if doc.ID == "" {
			return errors.New("document ID is required")
		}
		col[doc.ID] = memoryEntry{
			doc:       doc,
			embedding: append([]float32(nil), embeddings[i]...),
		}
	}
	return nil
}

func (s *memoryStore) Query(_ context.Context, collection string, embedding []float32, topK int) ([]Result, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	col := s.collections[collection]
	res := make([]Result, 0, len(col))
	for _, e := range col {
		res = append(res, Result{
			Document: e.doc,
			Distance: cosineDistance(embedding, e.embedding),
		})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Distance == res[j].Distance {
			return res[i].ID < res[j].ID
		}
		return res[i].Distance < res[j].Distance
	})
	if topK > 0 && len(res) > topK {
		res = res[:topK]
	}
	return res, nil
}

func (s *memoryStore) Close() error {
	return nil
}

func cosineDistance(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
