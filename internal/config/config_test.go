package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("CATALOG_RETRIEVAL_MODE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "off-plan", cfg.Catalog.Status)
	assert.Equal(t, "lexical", cfg.Catalog.RetrievalMode)
	assert.Equal(t, 5, cfg.Catalog.LexicalLimit)
	assert.Equal(t, 10, cfg.Catalog.VectorLimit)
	assert.Equal(t, 5*time.Second, cfg.Catalog.RetrievalTimeout)
	assert.Equal(t, 30*time.Second, cfg.Chat.GenerationTimeout)
	assert.Equal(t, 10, cfg.Chat.HistoryWindow)
	assert.False(t, cfg.OpenAI.Enabled)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_API_BASE", "http://llm.local/v1/")
	t.Setenv("CATALOG_RETRIEVAL_MODE", "vector")
	t.Setenv("CATALOG_RETRIEVAL_TIMEOUT", "3")
	t.Setenv("CHAT_GENERATION_TIMEOUT", "12s")
	t.Setenv("CHAT_TOOLS_ENABLED", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.OpenAI.Enabled)
	assert.Equal(t, "http://llm.local/v1", cfg.OpenAI.APIBase)
	assert.Equal(t, "vector", cfg.Catalog.RetrievalMode)
	assert.Equal(t, 3*time.Second, cfg.Catalog.RetrievalTimeout)
	assert.Equal(t, 12*time.Second, cfg.Chat.GenerationTimeout)
	assert.False(t, cfg.Chat.ToolsEnabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Redis.Enabled())
}

func TestLoad_RejectsUnknownMode(t *testing.T) {
	t.Setenv("CATALOG_RETRIEVAL_MODE", "hybrid")

	_, err := Load()
	assert.Error(t, err)
}

func TestGetPostgreSQLDSN(t *testing.T) {
	cfg := &Config{PostgreSQL: PostgreSQLConfig{
		Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable",
	}}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=disable", cfg.GetPostgreSQLDSN())

	cfg.PostgreSQL.DSN = "postgres://x"
	assert.Equal(t, "postgres://x", cfg.GetPostgreSQLDSN())
}

func TestLoadVocabulary_EmptyPathReturnsDefaults(t *testing.T) {
	vocab, err := LoadVocabulary("")
	require.NoError(t, err)
	assert.Equal(t, DefaultVocabulary(), vocab)
}

func TestLoadVocabulary_OverlaysFileSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocab.yaml")
	content := `
areas:
  - pattern: " Lagoon "
    value: "Crystal Lagoon"
  - pattern: bay
developers:
  - pattern: acme
topics:
  denied:
    - Crypto trading
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	vocab, err := LoadVocabulary(path)
	require.NoError(t, err)

	require.Len(t, vocab.Areas, 2)
	assert.Equal(t, AliasRule{Pattern: "lagoon", Value: "crystal lagoon"}, vocab.Areas[0])
	assert.Equal(t, "bay", vocab.Areas[1].Canonical())
	assert.Equal(t, []AliasRule{{Pattern: "acme"}}, vocab.Developers)
	assert.Equal(t, []string{"Crypto trading"}, vocab.Topics.Denied)
	// sections absent from the file keep their defaults
	assert.Equal(t, DefaultVocabulary().Topics.Allowed, vocab.Topics.Allowed)
	assert.Equal(t, DefaultVocabulary().Greetings, vocab.Greetings)
}

func TestLoadVocabulary_MissingFile(t *testing.T) {
	_, err := LoadVocabulary(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
