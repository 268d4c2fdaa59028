package service

import (
	"context"
	"time"

	apperrors "concierge/internal/errors"
	"concierge/internal/logger"
	"concierge/internal/metrics"
	"concierge/internal/model"
	"concierge/internal/repository"
)

// RetrieverConfig holds retrieval limits and the lexical base predicate
type RetrieverConfig struct {
	Status            string
	LexicalLimit      int
	VectorLimit       int
	MaxLimit          int
	LexicalMinResults int
}

// RetrieveOptions selects the strategy and size of one retrieval
type RetrieveOptions struct {
	Mode    model.RetrievalMethod
	Limit   int // <= 0 uses the per-mode default
	Filters model.VectorFilters
}

// CandidateRetriever produces the ranked candidate set for a chat turn
type CandidateRetriever struct {
	store    CatalogStore
	embedder Embedder
	cfg      RetrieverConfig
	log      logger.Logger
}

// NewCandidateRetriever creates a retriever. embedder may be nil, in which
// case vector retrieval is unavailable and lexical mode never falls back.
func NewCandidateRetriever(store CatalogStore, embedder Embedder, cfg RetrieverConfig, log logger.Logger) *CandidateRetriever {
	return &CandidateRetriever{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
		log:      log,
	}
}

// VectorEnabled reports whether an embedder is configured.
func (r *CandidateRetriever) VectorEnabled() bool {
	return r.embedder != nil
}

// Retrieve never returns an error. Store and embedding failures are logged
// and yield an empty, Degraded result.
func (r *CandidateRetriever) Retrieve(ctx context.Context, filter *model.StructuredFilter, opts RetrieveOptions) *model.RetrievalResult {
	if filter == nil {
		filter = &model.StructuredFilter{}
	}
	if opts.Mode == model.MethodVector {
		return r.retrieveVector(ctx, filter, r.limit(model.MethodVector, opts.Limit), opts.Filters)
	}

	limit := r.limit(model.MethodLexical, opts.Limit)
	result := r.retrieveLexical(ctx, filter, limit)
	if result.Len() >= r.cfg.LexicalMinResults || r.embedder == nil {
		return result
	}

	r.log.Debug("Lexical retrieval below threshold, trying vector search", map[string]interface{}{
		"found":     result.Len(),
		"threshold": r.cfg.LexicalMinResults,
	})
	filters := opts.Filters
	if filters.Status == "" {
		filters.Status = r.cfg.Status
	}
	vector := r.retrieveVector(ctx, filter, limit, filters)
	if vector.Len() > result.Len() {
		vector.Degraded = vector.Degraded || result.Degraded
		return vector
	}
	result.Degraded = result.Degraded || vector.Degraded
	return result
}

func (r *CandidateRetriever) limit(method model.RetrievalMethod, requested int) int {
	limit := requested
	if limit <= 0 {
		if method == model.MethodVector {
			limit = r.cfg.VectorLimit
		} else {
			limit = r.cfg.LexicalLimit
		}
	}
	if r.cfg.MaxLimit > 0 && limit > r.cfg.MaxLimit {
		limit = r.cfg.MaxLimit
	}
	return limit
}

func (r *CandidateRetriever) retrieveLexical(ctx context.Context, filter *model.StructuredFilter, limit int) *model.RetrievalResult {
	start := time.Now()
	result := &model.RetrievalResult{
		Method:   model.MethodLexical,
		Listings: []model.RankedListing{},
		Filter:   filter,
	}

	projects, err := r.store.SearchLexical(ctx, repository.LexicalQuery{
		Status:           r.cfg.Status,
		AreaKeyword:      filter.Area,
		DeveloperKeyword: filter.Developer,
		Limit:            limit,
	})
	r.observe(model.MethodLexical, start, len(projects))
	if err != nil {
		r.logFailure(model.MethodLexical, apperrors.Retrieval(err))
		result.Degraded = true
		return result
	}

	if len(projects) > limit {
		projects = projects[:limit]
	}
	for _, p := range projects {
		result.Listings = append(result.Listings, model.RankedListing{Project: p})
	}
	return result
}

func (r *CandidateRetriever) retrieveVector(ctx context.Context, filter *model.StructuredFilter, limit int, filters model.VectorFilters) *model.RetrievalResult {
	start := time.Now()
	result := &model.RetrievalResult{
		Method:   model.MethodVector,
		Listings: []model.RankedListing{},
		Filter:   filter,
	}

	if r.embedder == nil {
		r.log.Warn("Vector retrieval requested but no embedder is configured", nil)
		result.Degraded = true
		return result
	}
	if filter.Message == "" {
		return result
	}

	vec, err := r.embedder.Embed(ctx, filter.Message)
	if err != nil {
		r.logFailure(model.MethodVector, apperrors.Wrap(apperrors.CodeRetrieval, "query embedding failed", err))
		result.Degraded = true
		return result
	}

	listings, err := r.store.SearchVector(ctx, repository.VectorQuery{
		Embedding:     vec,
		Limit:         limit,
		VectorFilters: filters,
	})
	r.observe(model.MethodVector, start, len(listings))
	if err != nil {
		r.logFailure(model.MethodVector, apperrors.Retrieval(err))
		result.Degraded = true
		return result
	}

	if len(listings) > limit {
		listings = listings[:limit]
	}
	result.Listings = append(result.Listings, listings...)
	return result
}

func (r *CandidateRetriever) observe(method model.RetrievalMethod, start time.Time, n int) {
	metrics.RetrievalDuration.WithLabelValues(string(method)).Observe(time.Since(start).Seconds())
	metrics.RetrievalCandidates.WithLabelValues(string(method)).Observe(float64(n))
}

func (r *CandidateRetriever) logFailure(method model.RetrievalMethod, err *apperrors.AppError) {
	r.log.WithError(err).Error("Retrieval degraded to empty candidate list", map[string]interface{}{
		"code":   string(err.Code),
		"method": string(method),
	})
}
