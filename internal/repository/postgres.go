package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"concierge/internal/model"
	"concierge/internal/utils"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// ErrProvisionLocked is returned when another session holds the provisioning
// advisory lock.
var ErrProvisionLocked = errors.New("vector index provisioning already running")

// provisionLockKey is the pg_advisory_lock key guarding index provisioning.
const provisionLockKey int64 = 0x6f6666706c616e // "offplan"

// projectColumns is shared by every project query. Text columns are coalesced
// so rows with NULL labels still scan.
const projectColumns = `
	p.id::text AS id,
	COALESCE(p.name, '') AS name,
	COALESCE(p.slug, '') AS slug,
	COALESCE(p.location, '') AS location,
	COALESCE(p.description, '') AS description,
	COALESCE(p.price_from, '') AS price_from,
	COALESCE(p.payment_plan, '') AS payment_plan,
	COALESCE(p.completion_date, '') AS completion_date,
	COALESCE(p.status, '') AS status,
	p.images,
	p.amenities,
	p.unit_types,
	p.match_score,
	COALESCE(p.developer_id::text, '') AS developer_id,
	COALESCE(d.name, '') AS developer_name,
	COALESCE(p.area_id::text, '') AS area_id,
	COALESCE(a.name, '') AS area_name,
	COALESCE(a.slug, '') AS area_slug,
	p.created_at`

const projectJoins = `
	FROM projects p
	LEFT JOIN developers d ON d.id = p.developer_id
	LEFT JOIN areas a ON a.id = p.area_id`

// LexicalQuery is a wildcard-filtered catalogue lookup
type LexicalQuery struct {
	Status           string // empty disables the status predicate
	AreaKeyword      string
	DeveloperKeyword string
	Limit            int
}

// VectorQuery is a cosine nearest-neighbour lookup
type VectorQuery struct {
	Embedding []float32
	Limit     int
	model.VectorFilters
}

// PostgresRepository handles catalogue reads and embedding writes
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	return &PostgresRepository{db: db}, nil
}

// NewPostgresRepositoryWithDB wraps an existing connection pool
func NewPostgresRepositoryWithDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Ping checks the database connection
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SearchLexical returns projects matching the status, area and developer
// predicates, ordered by match score (nulls last) then recency.
func (r *PostgresRepository) SearchLexical(ctx context.Context, q LexicalQuery) ([]model.Project, error) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIndex := 1

	if q.Status != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("p.status = $%d", argIndex))
		args = append(args, q.Status)
		argIndex++
	}
	if q.AreaKeyword != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("(a.name ILIKE $%d OR p.location ILIKE $%d)", argIndex, argIndex))
		args = append(args, utils.LikePattern(q.AreaKeyword))
		argIndex++
	}
	if q.DeveloperKeyword != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("d.name ILIKE $%d", argIndex))
		args = append(args, utils.LikePattern(q.DeveloperKeyword))
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT %s
		%s
		WHERE %s
		ORDER BY p.match_score DESC NULLS LAST, p.created_at DESC
		LIMIT $%d
	`, projectColumns, projectJoins, strings.Join(whereClauses, " AND "), argIndex)
	args = append(args, q.Limit)

	projects := []model.Project{}
	if err := r.db.SelectContext(ctx, &projects, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search projects: %w", err)
	}
	return projects, nil
}

// SearchVector ranks projects with an embedding by cosine distance to the
// query vector. Filters narrow the candidate set and never affect ordering.
func (r *PostgresRepository) SearchVector(ctx context.Context, q VectorQuery) ([]model.RankedListing, error) {
	whereClauses := []string{"p.embedding IS NOT NULL"}
	args := []interface{}{pgvector.NewVector(q.Embedding)}
	argIndex := 2

	if q.Bedrooms != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("p.unit_types::text ILIKE $%d", argIndex))
		args = append(args, utils.LikePattern(q.Bedrooms))
		argIndex++
	}
	if q.Type != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("p.description ILIKE $%d", argIndex))
		args = append(args, utils.LikePattern(q.Type))
		argIndex++
	}
	if q.AreaID != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("p.area_id::text = $%d", argIndex))
		args = append(args, q.AreaID)
		argIndex++
	}
	if q.DeveloperID != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("p.developer_id::text = $%d", argIndex))
		args = append(args, q.DeveloperID)
		argIndex++
	}
	if q.Status != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("p.status = $%d", argIndex))
		args = append(args, q.Status)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT %s,
			1 - (p.embedding <=> $1) AS similarity
		%s
		WHERE %s
		ORDER BY p.embedding <=> $1
		LIMIT $%d
	`, projectColumns, projectJoins, strings.Join(whereClauses, " AND "), argIndex)
	args = append(args, q.Limit)

	listings := []model.RankedListing{}
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to run vector search: %w", err)
	}
	return listings, nil
}

// ProjectsMissingEmbedding returns every project whose embedding is NULL, in
// creation order so repeated runs process rows in the same sequence.
func (r *PostgresRepository) ProjectsMissingEmbedding(ctx context.Context) ([]model.Project, error) {
	query := fmt.Sprintf(`
		SELECT %s
		%s
		WHERE p.embedding IS NULL
		ORDER BY p.created_at, p.id
	`, projectColumns, projectJoins)

	projects := []model.Project{}
	if err := r.db.SelectContext(ctx, &projects, query); err != nil {
		return nil, fmt.Errorf("failed to select projects without embedding: %w", err)
	}
	return projects, nil
}

// AreasMissingEmbedding returns every area whose embedding is NULL
func (r *PostgresRepository) AreasMissingEmbedding(ctx context.Context) ([]model.Area, error) {
	query := `
		SELECT
			id::text AS id,
			COALESCE(name, '') AS name,
			COALESCE(slug, '') AS slug,
			COALESCE(image, '') AS image,
			COALESCE(starting_price, '') AS starting_price,
			COALESCE(project_count, 0) AS project_count,
			COALESCE(description, '') AS description
		FROM areas
		WHERE embedding IS NULL
		ORDER BY name, id
	`
	areas := []model.Area{}
	if err := r.db.SelectContext(ctx, &areas, query); err != nil {
		return nil, fmt.Errorf("failed to select areas without embedding: %w", err)
	}
	return areas, nil
}

// UpdateProjectEmbedding updates the embedding vector for a project
func (r *PostgresRepository) UpdateProjectEmbedding(ctx context.Context, id string, embedding []float32) error {
	return r.updateEmbedding(ctx, "projects", id, embedding)
}

// UpdateAreaEmbedding updates the embedding vector for an area
func (r *PostgresRepository) UpdateAreaEmbedding(ctx context.Context, id string, embedding []float32) error {
	return r.updateEmbedding(ctx, "areas", id, embedding)
}

func (r *PostgresRepository) updateEmbedding(ctx context.Context, table, id string, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	query := fmt.Sprintf(`UPDATE %s SET embedding = $1 WHERE id::text = $2`, table)
	res, err := r.db.ExecContext(ctx, query, vec, id)
	if err != nil {
		return fmt.Errorf("failed to update %s embedding: %w", table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s row %s not found", table, id)
	}
	return nil
}

// IndexOptions configures HNSW provisioning
type IndexOptions struct {
	Dimensions     int
	M              int
	EfConstruction int
}

// ProvisionVectorIndex enables pgvector, adds the embedding columns and builds
// the HNSW indexes. Every statement is idempotent. The whole run holds a
// session advisory lock on a single pooled connection so two callers cannot
// provision at once; ErrProvisionLocked is returned to the loser.
func (r *PostgresRepository) ProvisionVectorIndex(ctx context.Context, opts IndexOptions) (*model.ProvisionReport, error) {
	conn, err := r.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Close()

	var locked bool
	if err := conn.GetContext(ctx, &locked, `SELECT pg_try_advisory_lock($1)`, provisionLockKey); err != nil {
		return nil, fmt.Errorf("failed to take provisioning lock: %w", err)
	}
	if !locked {
		return nil, ErrProvisionLocked
	}
	defer func() {
		// Unlock on a fresh context so a cancelled request still releases the lock.
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, _ = conn.ExecContext(unlockCtx, `SELECT pg_advisory_unlock($1)`, provisionLockKey)
	}()

	report := &model.ProvisionReport{}
	steps := []struct {
		desc string
		stmt string
	}{
		{"pgvector extension enabled", `CREATE EXTENSION IF NOT EXISTS vector`},
		{
			fmt.Sprintf("projects.embedding vector(%d) present", opts.Dimensions),
			fmt.Sprintf(`ALTER TABLE projects ADD COLUMN IF NOT EXISTS embedding vector(%d)`, opts.Dimensions),
		},
		{
			fmt.Sprintf("areas.embedding vector(%d) present", opts.Dimensions),
			fmt.Sprintf(`ALTER TABLE areas ADD COLUMN IF NOT EXISTS embedding vector(%d)`, opts.Dimensions),
		},
		{
			fmt.Sprintf("projects HNSW index ready (m=%d, ef_construction=%d)", opts.M, opts.EfConstruction),
			hnswIndexStatement("projects", opts),
		},
		{
			fmt.Sprintf("areas HNSW index ready (m=%d, ef_construction=%d)", opts.M, opts.EfConstruction),
			hnswIndexStatement("areas", opts),
		},
	}
	for _, step := range steps {
		if _, err := conn.ExecContext(ctx, step.stmt); err != nil {
			return report, fmt.Errorf("%s: %w", step.desc, err)
		}
		report.Steps = append(report.Steps, step.desc)
	}

	if err := conn.GetContext(ctx, &report.Verification.Extension,
		`SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'vector')`); err != nil {
		return report, fmt.Errorf("failed to verify extension: %w", err)
	}
	columnQuery := `SELECT EXISTS (
		SELECT 1 FROM information_schema.columns
		WHERE table_name = $1 AND column_name = 'embedding'
	)`
	if err := conn.GetContext(ctx, &report.Verification.ProjectsColumn, columnQuery, "projects"); err != nil {
		return report, fmt.Errorf("failed to verify projects column: %w", err)
	}
	if err := conn.GetContext(ctx, &report.Verification.AreasColumn, columnQuery, "areas"); err != nil {
		return report, fmt.Errorf("failed to verify areas column: %w", err)
	}
	report.Steps = append(report.Steps, "verification complete")

	return report, nil
}

func hnswIndexStatement(table string, opts IndexOptions) string {
	return fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s_embedding_hnsw_idx ON %s USING hnsw (embedding vector_cosine_ops) WITH (m = %d, ef_construction = %d)`,
		table, table, opts.M, opts.EfConstruction,
	)
}
