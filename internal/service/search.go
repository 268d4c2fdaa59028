package service

import (
	"context"
	"strings"
	"time"

	apperrors "concierge/internal/errors"
	"concierge/internal/model"
)

// SearchService handles direct semantic search over the catalogue
type SearchService struct {
	retriever *CandidateRetriever
}

// NewSearchService creates a new search service
func NewSearchService(retriever *CandidateRetriever) *SearchService {
	return &SearchService{retriever: retriever}
}

// SemanticSearch embeds the query and returns the nearest projects with
// their cosine similarity. Unlike chat retrieval, failures are reported to
// the caller.
func (s *SearchService) SemanticSearch(ctx context.Context, req *model.SemanticSearchRequest) (*model.SemanticSearchResponse, error) {
	startTime := time.Now()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperrors.Validation("query is required")
	}
	if !s.retriever.VectorEnabled() {
		return nil, apperrors.New(apperrors.CodeRetrieval, "semantic search is not enabled")
	}

	filter := &model.StructuredFilter{Message: query}
	result := s.retriever.Retrieve(ctx, filter, RetrieveOptions{
		Mode:    model.MethodVector,
		Limit:   req.Limit,
		Filters: req.Filters(),
	})
	if result.Degraded {
		return nil, apperrors.New(apperrors.CodeRetrieval, "semantic search is temporarily unavailable")
	}

	return &model.SemanticSearchResponse{
		Results: result.Listings,
		Total:   result.Len(),
		Took:    time.Since(startTime).Milliseconds(),
	}, nil
}
