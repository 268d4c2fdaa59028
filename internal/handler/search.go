package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "concierge/internal/errors"
	"concierge/internal/logger"
	"concierge/internal/model"

	"github.com/gin-gonic/gin"
)

// SemanticSearcher runs direct vector searches
type SemanticSearcher interface {
	SemanticSearch(ctx context.Context, req *model.SemanticSearchRequest) (*model.SemanticSearchResponse, error)
}

// SearchHandler handles search-related HTTP requests
type SearchHandler struct {
	search   SemanticSearcher
	maxLimit int
	log      logger.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(search SemanticSearcher, maxLimit int, log logger.Logger) *SearchHandler {
	return &SearchHandler{
		search:   search,
		maxLimit: maxLimit,
		log:      log,
	}
}

// SemanticSearch handles POST /api/v1/search/semantic
func (h *SearchHandler) SemanticSearch(c *gin.Context) {
	var req model.SemanticSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": string(apperrors.CodeValidation), "message": "Invalid request: " + err.Error()})
		return
	}

	// Validate and cap limits
	if req.Limit < 0 {
		req.Limit = 0
	}
	if h.maxLimit > 0 && req.Limit > h.maxLimit {
		req.Limit = h.maxLimit
	}

	response, err := h.search.SemanticSearch(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
	} else {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
	}
}
