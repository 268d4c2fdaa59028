package handler

import (
	"context"
	"crypto/subtle"
	"net/http"

	apperrors "concierge/internal/errors"
	"concierge/internal/logger"
	"concierge/internal/model"

	"github.com/gin-gonic/gin"
)

// AdminTokenHeader authenticates administrative requests.
const AdminTokenHeader = "X-Admin-Token"

// CatalogIndexer maintains catalogue embeddings and the vector index
type CatalogIndexer interface {
	Reindex(ctx context.Context) (*model.ReindexReport, error)
	ProvisionIndex(ctx context.Context) (*model.ProvisionReport, error)
}

// AdminHandler handles administrative HTTP requests
type AdminHandler struct {
	indexer CatalogIndexer
	log     logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(indexer CatalogIndexer, log logger.Logger) *AdminHandler {
	return &AdminHandler{indexer: indexer, log: log}
}

// RequireAdminToken rejects requests whose X-Admin-Token does not match
// token. An empty token leaves the routes open.
func RequireAdminToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		if subtle.ConstantTimeCompare([]byte(c.GetHeader(AdminTokenHeader)), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": string(apperrors.CodeUnauthorized)})
			return
		}
		c.Next()
	}
}

// Reindex handles POST /api/v1/admin/reindex
func (h *AdminHandler) Reindex(c *gin.Context) {
	report, err := h.indexer.Reindex(c.Request.Context())
	if err != nil {
		h.adminError(c, "Reindex failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"steps":         report.Steps,
		"embedded":      len(report.Projects.Succeeded),
		"areasEmbedded": len(report.Areas.Succeeded),
		"failed":        failedOrEmpty(report.Projects.Failed),
		"areasFailed":   failedOrEmpty(report.Areas.Failed),
		"took_ms":       report.Took,
	})
}

// ProvisionIndex handles POST /api/v1/admin/vector-index
func (h *AdminHandler) ProvisionIndex(c *gin.Context) {
	report, err := h.indexer.ProvisionIndex(c.Request.Context())
	if err != nil {
		h.adminError(c, "Vector index provisioning failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      report.Verification.OK(),
		"steps":        report.Steps,
		"verification": report.Verification,
	})
}

func (h *AdminHandler) adminError(c *gin.Context, msg string, err error) {
	code := apperrors.CodeOf(err)
	h.log.WithError(err).Error(msg, map[string]interface{}{"requestId": RequestIDFrom(c), "code": string(code)})
	c.JSON(apperrors.HTTPStatus(code), gin.H{"success": false, "error": apperrors.MessageOf(err)})
}

func failedOrEmpty(items []model.FailedItem) []model.FailedItem {
	if items == nil {
		return []model.FailedItem{}
	}
	return items
}
