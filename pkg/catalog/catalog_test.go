package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/hydra/pkg/config"
)

func testCatalog(cfg *config.Config) *Catalog {
	c := New(cfg)
	c.watsonxURLs = nil
	return c
}

func TestListOpenAI_FiltersModelIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{
				{"id": "gpt-4o"},
				{"id": "gpt-4o-mini"},
				{"id": "text-embedding-3-small"},
				{"id": "whisper-1"},
			},
		})
	}))
	defer srv.Close()

	cfg := config.Defaults()
	cfg.OpenAI.APIKey = "sk-test"
	cfg.OpenAI.BaseURL = srv.URL

	models, err := testCatalog(cfg).ListModels(context.Background(), ProviderOpenAI)
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, models)
}

func TestListOpenAI_MissingKey(t *testing.T) {
	cfg := config.Defaults()
	cfg.OpenAI.APIKey = ""

	_, err := testCatalog(cfg).ListModels(context.Background(), ProviderOpenAI)
	assert.Error(t, err)
}

func TestListClaude_FallsBackWhenEndpointDead(t *testing.T) {
	cfg := config.Defaults()
	cfg.Anthropic.APIKey = "k"
	cfg.Anthropic.BaseURL = "http://127.0.0.1:1"

	models, err := testCatalog(cfg).ListModels(context.Background(), ProviderClaude)
	require.NoError(t, err)
	assert.Contains(t, models, "claude-3-5-sonnet-20241022")
}

func TestListClaude_UsesEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"id": "claude-test-1"}},
		})
	}))
	defer srv.Close()

	cfg := config.Defaults()
	cfg.Anthropic.APIKey = "k"
	cfg.Anthropic.BaseURL = srv.URL

	models, err := testCatalog(cfg).ListModels(context.Background(), ProviderClaude)
	require.NoError(t, err)
	assert.Equal(t, []string{"claude-test-1"}, models)
}

func TestListOllama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{
				{"name": "llama3.2:latest"},
				{"name": "gemma:2b"},
			},
		})
	}))
	defer srv.Close()

	cfg := config.Defaults()
	cfg.Ollama.BaseURL = srv.URL

	models, err := testCatalog(cfg).ListModels(context.Background(), ProviderOllama)
	require.NoError(t, err)
	assert.Equal(t, []string{"gemma:2b", "llama3.2:latest"}, models)
}

func TestListWatsonx_LifecycleAndPatternFiltering(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"resources": []map[string]any{
				{"model_id": "ibm/granite-3-8b-instruct"},
				{"model_id": "meta-llama/llama-3-1-70b-instruct"},
				{
					"model_id": "ibm/granite-old",
					"lifecycle": []map[string]string{
						{"id": "deprecated", "start_date": "2024-01-01"},
					},
				},
				{"model_id": "google/flan-ul2"},
			},
		})
	}))
	defer srv.Close()

	c := New(config.Defaults())
	c.watsonxURLs = []string{srv.URL}

	models, err := c.ListModels(context.Background(), ProviderWatsonx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ibm/granite-3-8b-instruct", "meta-llama/llama-3-1-70b-instruct"}, models)
}

func TestListWatsonx_FallbackWhenAllRegionsDead(t *testing.T) {
	c := New(config.Defaults())
	c.watsonxURLs = []string{"http://127.0.0.1:1"}

	models, err := c.ListModels(context.Background(), ProviderWatsonx)
	require.NoError(t, err)
	assert.Contains(t, models, "ibm/granite-3-8b-instruct")
}

func TestListModels_UnknownProvider(t *testing.T) {
	_, err := testCatalog(config.Defaults()).ListModels(context.Background(), Provider("nope"))
	assert.Error(t, err)
}

func TestListAll_IsolatesFailures(t *testing.T) {
	ollamaSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{{"name": "llama3.2:latest"}},
		})
	}))
	defer ollamaSrv.Close()

	cfg := config.Defaults()
	cfg.OpenAI.APIKey = ""
	cfg.Anthropic.APIKey = ""
	cfg.Ollama.BaseURL = ollamaSrv.URL

	c := New(cfg)
	c.watsonxURLs = []string{"http://127.0.0.1:1"}

	listings := c.ListAll(context.Background())
	require.Len(t, listings, len(Providers))

	assert.NotEmpty(t, listings[ProviderOpenAI].Err)
	assert.Empty(t, listings[ProviderOllama].Err)
	assert.Equal(t, []string{"llama3.2:latest"}, listings[ProviderOllama].Models)
	// watsonx falls back rather than erroring.
	assert.Empty(t, listings[ProviderWatsonx].Err)
	assert.NotEmpty(t, listings[ProviderWatsonx].Models)
}

func TestRecommendedByTask(t *testing.T) {
	recs := RecommendedByTask()
	require.Contains(t, recs, "vision_analysis")
	for task, models := range recs {
		assert.NotEmpty(t, models, task)
	}
}
