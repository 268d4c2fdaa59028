package service

import (
	"context"
	"errors"
	"sync"

	"concierge/internal/model"
	"concierge/internal/repository"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls []string
	vec   []float32
	err   error
	// errFor fails specific texts
	errFor map[string]error
	// dimsFor overrides vector length for specific texts
	dimsFor map[string]int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if err, ok := f.errFor[text]; ok {
		return nil, err
	}
	if n, ok := f.dimsFor[text]; ok {
		return make([]float32, n), nil
	}
	out := make([]float32, len(f.vec))
	copy(out, f.vec)
	return out, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeCatalog struct {
	lexical    []model.Project
	lexicalErr error
	vector     []model.RankedListing
	vectorErr  error

	lexicalQueries []repository.LexicalQuery
	vectorQueries  []repository.VectorQuery
}

func (f *fakeCatalog) SearchLexical(_ context.Context, q repository.LexicalQuery) ([]model.Project, error) {
	f.lexicalQueries = append(f.lexicalQueries, q)
	if f.lexicalErr != nil {
		return nil, f.lexicalErr
	}
	out := f.lexical
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeCatalog) SearchVector(_ context.Context, q repository.VectorQuery) ([]model.RankedListing, error) {
	f.vectorQueries = append(f.vectorQueries, q)
	if f.vectorErr != nil {
		return nil, f.vectorErr
	}
	out := f.vector
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// memoryEmbeddingStore keeps embeddings in maps so reindex idempotence can be
// observed across runs.
type memoryEmbeddingStore struct {
	mu        sync.Mutex
	projects  []model.Project
	areas     []model.Area
	projVecs  map[string][]float32
	areaVecs  map[string][]float32
	selectErr error
	updateErr map[string]error

	provisionReport *model.ProvisionReport
	provisionErr    error
	provisionCalls  int
	provisionGate   chan struct{}
}

func newMemoryEmbeddingStore(projects []model.Project, areas []model.Area) *memoryEmbeddingStore {
	return &memoryEmbeddingStore{
		projects:  projects,
		areas:     areas,
		projVecs:  map[string][]float32{},
		areaVecs:  map[string][]float32{},
		updateErr: map[string]error{},
	}
}

func (m *memoryEmbeddingStore) ProjectsMissingEmbedding(context.Context) ([]model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selectErr != nil {
		return nil, m.selectErr
	}
	var out []model.Project
	for _, p := range m.projects {
		if _, ok := m.projVecs[p.ID]; !ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryEmbeddingStore) AreasMissingEmbedding(context.Context) ([]model.Area, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Area
	for _, a := range m.areas {
		if _, ok := m.areaVecs[a.ID]; !ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryEmbeddingStore) UpdateProjectEmbedding(_ context.Context, id string, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.updateErr[id]; err != nil {
		return err
	}
	m.projVecs[id] = vec
	return nil
}

func (m *memoryEmbeddingStore) UpdateAreaEmbedding(_ context.Context, id string, vec []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.updateErr[id]; err != nil {
		return err
	}
	m.areaVecs[id] = vec
	return nil
}

func (m *memoryEmbeddingStore) ProvisionVectorIndex(ctx context.Context, _ repository.IndexOptions) (*model.ProvisionReport, error) {
	m.mu.Lock()
	m.provisionCalls++
	gate := m.provisionGate
	m.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.provisionErr != nil {
		return nil, m.provisionErr
	}
	return m.provisionReport, nil
}

type fakeLLM struct {
	enabled    bool
	completion *Completion
	err        error
	requests   []CompletionRequest
}

func (f *fakeLLM) Complete(_ context.Context, req CompletionRequest) (*Completion, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.completion == nil {
		return nil, errors.New("no completion configured")
	}
	return f.completion, nil
}

func (f *fakeLLM) IsEnabled() bool { return f.enabled }
