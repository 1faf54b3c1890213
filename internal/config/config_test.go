package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STORAGE_BACKEND", "DOCUMENTDB_HOST", "MONGODB_VECTOR_SIMILARITY_METRIC",
		"EMBEDDINGS_PROVIDER", "EMBEDDINGS_MODEL_DIMENSIONS", "HEALTH_CHECK_INTERVAL_SECONDS",
	} {
		os.Unsetenv(key)
	}
}

func TestLoad_DefaultsToFileBackend(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, BackendFile, cfg.StorageBackend)
	assert.False(t, cfg.HasNativeVectorSearch())
}

func TestLoad_MongoRequiresHost(t *testing.T) {
	clearEnv(t)
	os.Setenv("STORAGE_BACKEND", "mongodb")
	defer os.Unsetenv("STORAGE_BACKEND")

	_, err := Load("")
	assert.ErrorContains(t, err, "documentdb_host")
}

func TestLoad_MongoNativeVectorSearch(t *testing.T) {
	clearEnv(t)
	os.Setenv("STORAGE_BACKEND", "mongodb")
	os.Setenv("DOCUMENTDB_HOST", "localhost")
	defer clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.HasNativeVectorSearch())
}

func TestLoad_RejectsBadSimilarityMetric(t *testing.T) {
	clearEnv(t)
	os.Setenv("MONGODB_VECTOR_SIMILARITY_METRIC", "manhattan")
	defer clearEnv(t)

	_, err := Load("")
	assert.ErrorContains(t, err, "mongodb_vector_similarity_metric")
}

func TestEmbeddingsCollectionName(t *testing.T) {
	clearEnv(t)
	os.Setenv("EMBEDDINGS_MODEL_DIMENSIONS", "768")
	defer clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Namespace = "prod"
	assert.Equal(t, "mcp_embeddings_768_prod", cfg.EmbeddingsCollectionName())
}

func TestCollectionName(t *testing.T) {
	cfg := &Config{Namespace: "prod"}
	assert.Equal(t, "mcp_servers_prod", cfg.CollectionName("mcp_servers"))
}
