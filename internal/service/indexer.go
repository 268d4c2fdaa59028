package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "concierge/internal/errors"
	"concierge/internal/logger"
	"concierge/internal/metrics"
	"concierge/internal/model"
	"concierge/internal/repository"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// IndexerConfig controls reindex throughput and HNSW parameters
type IndexerConfig struct {
	Dimensions     int
	Concurrency    int
	RatePerSecond  float64 // <= 0 disables throttling
	AmenityCap     int
	M              int
	EfConstruction int
}

// EmbeddingIndexer computes embeddings for catalogue rows that lack one and
// provisions the vector index.
type EmbeddingIndexer struct {
	store    EmbeddingStore
	embedder Embedder
	cfg      IndexerConfig
	limiter  *rate.Limiter
	log      logger.Logger

	reindexMu   sync.Mutex
	provisionMu sync.Mutex
}

// NewEmbeddingIndexer creates an indexer
func NewEmbeddingIndexer(store EmbeddingStore, embedder Embedder, cfg IndexerConfig, log logger.Logger) *EmbeddingIndexer {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	ix := &EmbeddingIndexer{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
		log:      log,
	}
	if cfg.RatePerSecond > 0 {
		ix.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return ix
}

type indexItem struct {
	ID   string
	Text string
}

type persistFunc func(ctx context.Context, id string, embedding []float32) error

// Reindex embeds every project and area whose embedding is NULL. Per-row
// failures are collected in the report; an error is returned only when a
// selection query fails or another reindex is already running.
func (ix *EmbeddingIndexer) Reindex(ctx context.Context) (*model.ReindexReport, error) {
	if !ix.reindexMu.TryLock() {
		return nil, apperrors.Conflict("a reindex is already running")
	}
	defer ix.reindexMu.Unlock()

	start := time.Now()
	report := &model.ReindexReport{Steps: []string{}}

	projects, err := ix.store.ProjectsMissingEmbedding(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeRetrieval, "failed to select projects without embedding", err)
	}
	report.Steps = append(report.Steps, fmt.Sprintf("Found %d projects without embeddings", len(projects)))

	items := make([]indexItem, len(projects))
	for i, p := range projects {
		items[i] = indexItem{ID: p.ID, Text: ProjectEmbeddingText(p, ix.cfg.AmenityCap)}
	}
	report.Projects = ix.runBatch(ctx, "project", items, ix.store.UpdateProjectEmbedding)
	report.Steps = append(report.Steps, batchStep("projects", len(items), report.Projects))

	areas, err := ix.store.AreasMissingEmbedding(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeRetrieval, "failed to select areas without embedding", err)
	}
	report.Steps = append(report.Steps, fmt.Sprintf("Found %d areas without embeddings", len(areas)))

	items = make([]indexItem, len(areas))
	for i, a := range areas {
		items[i] = indexItem{ID: a.ID, Text: AreaEmbeddingText(a)}
	}
	report.Areas = ix.runBatch(ctx, "area", items, ix.store.UpdateAreaEmbedding)
	report.Steps = append(report.Steps, batchStep("areas", len(items), report.Areas))

	report.Took = time.Since(start).Milliseconds()
	ix.log.Info("Reindex finished", map[string]interface{}{
		"projectsEmbedded": len(report.Projects.Succeeded),
		"projectsFailed":   len(report.Projects.Failed),
		"areasEmbedded":    len(report.Areas.Succeeded),
		"areasFailed":      len(report.Areas.Failed),
		"tookMs":           report.Took,
	})
	return report, nil
}

func batchStep(entity string, total int, res model.BatchResult) string {
	return fmt.Sprintf("Embedded %d/%d %s (%d failed)", len(res.Succeeded), total, entity, len(res.Failed))
}

// runBatch embeds items with bounded concurrency. Results keep the input
// order regardless of completion order.
func (ix *EmbeddingIndexer) runBatch(ctx context.Context, entity string, items []indexItem, persist persistFunc) model.BatchResult {
	outcomes := make([]error, len(items))

	var g errgroup.Group
	g.SetLimit(ix.cfg.Concurrency)
	for i, item := range items {
		g.Go(func() error {
			outcomes[i] = ix.embedOne(ctx, item, persist)
			return nil
		})
	}
	_ = g.Wait()

	result := model.BatchResult{Succeeded: []string{}, Failed: []model.FailedItem{}}
	for i, item := range items {
		if err := outcomes[i]; err != nil {
			metrics.EmbeddingRows.WithLabelValues(entity, "failed").Inc()
			ix.log.WithError(err).Warn("Embedding failed, skipping row", map[string]interface{}{
				"code":   string(apperrors.CodeEmbedding),
				"entity": entity,
				"id":     item.ID,
			})
			result.Failed = append(result.Failed, model.FailedItem{ID: item.ID, Reason: err.Error()})
			continue
		}
		metrics.EmbeddingRows.WithLabelValues(entity, "embedded").Inc()
		result.Succeeded = append(result.Succeeded, item.ID)
	}
	return result
}

func (ix *EmbeddingIndexer) embedOne(ctx context.Context, item indexItem, persist persistFunc) error {
	if ix.limiter != nil {
		if err := ix.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	vec, err := ix.embedder.Embed(ctx, item.Text)
	if err != nil {
		return err
	}
	if ix.cfg.Dimensions > 0 && len(vec) != ix.cfg.Dimensions {
		return fmt.Errorf("embedding has %d dimensions, expected %d", len(vec), ix.cfg.Dimensions)
	}
	return persist(ctx, item.ID, vec)
}

// ProvisionIndex idempotently creates the pgvector extension, embedding
// columns and HNSW indexes. Concurrent calls in this process, or a holder of
// the database advisory lock elsewhere, get a conflict error.
func (ix *EmbeddingIndexer) ProvisionIndex(ctx context.Context) (*model.ProvisionReport, error) {
	if !ix.provisionMu.TryLock() {
		return nil, apperrors.Conflict("vector index provisioning is already running")
	}
	defer ix.provisionMu.Unlock()

	report, err := ix.store.ProvisionVectorIndex(ctx, repository.IndexOptions{
		Dimensions:     ix.cfg.Dimensions,
		M:              ix.cfg.M,
		EfConstruction: ix.cfg.EfConstruction,
	})
	if errors.Is(err, repository.ErrProvisionLocked) {
		return nil, apperrors.Conflict("vector index provisioning is already running")
	}
	if err != nil {
		return report, apperrors.Wrap(apperrors.CodeInternal, "vector index provisioning failed", err)
	}
	if report == nil {
		report = &model.ProvisionReport{}
	}

	ix.log.Info("Vector index provisioned", map[string]interface{}{
		"dimensions":     ix.cfg.Dimensions,
		"m":              ix.cfg.M,
		"efConstruction": ix.cfg.EfConstruction,
		"verified":       report.Verification.OK(),
	})
	return report, nil
}

// ProjectEmbeddingText renders the canonical text embedded for a project.
// Field order is fixed; changing it changes every stored vector.
func ProjectEmbeddingText(p model.Project, amenityCap int) string {
	var b strings.Builder
	writeField(&b, "Project", p.Name)
	writeField(&b, "Location", p.Location)
	writeField(&b, "Description", p.Description)
	writeField(&b, "Amenities", strings.Join(p.TopAmenities(amenityCap), ", "))
	writeField(&b, "Price from", p.PriceFrom)
	return b.String()
}

// AreaEmbeddingText renders the canonical text embedded for an area.
func AreaEmbeddingText(a model.Area) string {
	var b strings.Builder
	writeField(&b, "Area", a.Name)
	writeField(&b, "Description", a.Description)
	writeField(&b, "Starting price", a.StartingPrice)
	return b.String()
}

func writeField(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(strings.TrimRight(value, "."))
	b.WriteByte('.')
}
