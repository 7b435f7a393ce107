// Package catalog discovers the models each provider currently offers.
// Discovery is best-effort: providers with a known useful default fall back
// to it when their listing endpoint is unreachable.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"github.com/entrhq/hydra/pkg/config"
)

// Provider identifies one model source.
type Provider string

const (
	ProviderOpenAI  Provider = "openai"
	ProviderClaude  Provider = "claude"
	ProviderOllama  Provider = "ollama"
	ProviderWatsonx Provider = "watsonx"
)

// Providers lists every provider the catalog can query.
var Providers = []Provider{ProviderOpenAI, ProviderClaude, ProviderOllama, ProviderWatsonx}

// watsonx publishes its foundation model specs per region without auth.
var watsonxBaseURLs = []string{
	"https://us-south.ml.cloud.ibm.com",
	"https://eu-de.ml.cloud.ibm.com",
	"https://jp-tok.ml.cloud.ibm.com",
	"https://au-syd.ml.cloud.ibm.com",
}

const (
	watsonxSpecsPath    = "/ml/v1/foundation_model_specs"
	watsonxSpecsVersion = "2024-09-16"
)

// Model-id filters per provider. Only vision-capable OpenAI families and
// text-generation watsonx families are surfaced.
var (
	openAIModelFilters  = compileGlobs("*gpt-4*", "*vision*")
	watsonxModelFilters = compileGlobs("*llama*", "*granite*", "*mistral*", "*mixtral*")
)

func compileGlobs(patterns ...string) []glob.Glob {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		globs = append(globs, glob.MustCompile(p))
	}
	return globs
}

func matchesAny(globs []glob.Glob, id string) bool {
	id = strings.ToLower(id)
	for _, g := range globs {
		if g.Match(id) {
			return true
		}
	}
	return false
}

// Listing is one provider's discovery outcome. Err is a human-readable
// message; a fallback list and an empty Err can coexist with a dead
// endpoint when known-good defaults exist.
type Listing struct {
	Models []string `json:"models"`
	Err    string   `json:"error,omitempty"`
}

// Catalog queries provider listing endpoints.
type Catalog struct {
	cfg    *config.Config
	client *http.Client

	// watsonxURLs is overridable for tests.
	watsonxURLs []string
}

// New builds a catalog over the given configuration.
func New(cfg *config.Config) *Catalog {
	return &Catalog{
		cfg:         cfg,
		client:      &http.Client{Timeout: 10 * time.Second},
		watsonxURLs: watsonxBaseURLs,
	}
}

// ListModels returns the models available from one provider.
func (c *Catalog) ListModels(ctx context.Context, provider Provider) ([]string, error) {
	switch provider {
	case ProviderOpenAI:
		return c.listOpenAI(ctx)
	case ProviderClaude:
		return c.listClaude(ctx)
	case ProviderOllama:
		return c.listOllama(ctx)
	case ProviderWatsonx:
		return c.listWatsonx(ctx)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// ListAll queries every provider concurrently. Per-provider failures are
// recorded in the listing, never returned: one dead provider must not hide
// the others.
func (c *Catalog) ListAll(ctx context.Context) map[Provider]Listing {
	var (
		mu  sync.Mutex
		out = make(map[Provider]Listing, len(Providers))
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, provider := range Providers {
		provider := provider
		g.Go(func() error {
			models, err := c.ListModels(ctx, provider)
			listing := Listing{Models: models}
			if err != nil {
				listing.Err = err.Error()
			}
			mu.Lock()
			out[provider] = listing
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (c *Catalog) listOpenAI(ctx context.Context) ([]string, error) {
	if c.cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("openai API key not configured")
	}

	url := strings.TrimRight(c.cfg.OpenAI.BaseURL, "/") + "/v1/models"
	var out struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.OpenAI.APIKey}
	if err := c.getJSON(ctx, url, headers, &out); err != nil {
		return nil, fmt.Errorf("list openai models: %w", err)
	}

	seen := make(map[string]struct{})
	for _, m := range out.Data {
		if m.ID != "" && matchesAny(openAIModelFilters, m.ID) {
			seen[m.ID] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

func (c *Catalog) listClaude(ctx context.Context) ([]string, error) {
	if c.cfg.Anthropic.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key not configured")
	}

	url := strings.TrimRight(c.cfg.Anthropic.BaseURL, "/") + "/v1/models"
	var out struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	headers := map[string]string{
		"x-api-key":         c.cfg.Anthropic.APIKey,
		"anthropic-version": c.cfg.Anthropic.Version,
	}
	if err := c.getJSON(ctx, url, headers, &out); err != nil {
		// Known-good fallback; the endpoint is young and occasionally gated.
		return []string{
			"claude-3-5-sonnet-20241022",
			"claude-3-5-haiku-20241022",
			"claude-3-opus-20240229",
		}, nil
	}

	seen := make(map[string]struct{})
	for _, m := range out.Data {
		if m.ID != "" {
			seen[m.ID] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

func (c *Catalog) listOllama(ctx context.Context) ([]string, error) {
	url := strings.TrimRight(c.cfg.Ollama.BaseURL, "/") + "/api/tags"
	var out struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := c.getJSON(ctx, url, nil, &out); err != nil {
		return nil, fmt.Errorf("list ollama models from %s: %w", url, err)
	}

	seen := make(map[string]struct{})
	for _, m := range out.Models {
		if m.Name != "" {
			seen[m.Name] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

type watsonxLifecycleEntry struct {
	ID        string `json:"id"`
	StartDate string `json:"start_date"`
}

func (c *Catalog) listWatsonx(ctx context.Context) ([]string, error) {
	today := time.Now().Format("2006-01-02")
	seen := make(map[string]struct{})

	for _, base := range c.watsonxURLs {
		url := fmt.Sprintf("%s%s?version=%s&filters=%s",
			base, watsonxSpecsPath, watsonxSpecsVersion, "!function_embedding,!lifecycle_withdrawn")

		var out struct {
			Resources []struct {
				ModelID   string                  `json:"model_id"`
				Lifecycle []watsonxLifecycleEntry `json:"lifecycle"`
			} `json:"resources"`
		}
		if err := c.getJSON(ctx, url, nil, &out); err != nil {
			// Skip unreachable regions; others may still answer.
			continue
		}

		for _, m := range out.Resources {
			if m.ModelID == "" || lifecycleEnded(m.Lifecycle, today) {
				continue
			}
			if matchesAny(watsonxModelFilters, m.ModelID) {
				seen[m.ModelID] = struct{}{}
			}
		}
	}

	if len(seen) == 0 {
		return []string{
			"ibm/granite-3-8b-instruct",
			"meta-llama/llama-3-1-70b-instruct",
			"mistralai/mixtral-8x7b-instruct-v01",
		}, nil
	}
	return sortedKeys(seen), nil
}

// lifecycleEnded reports whether a deprecated or withdrawn lifecycle phase
// is already in effect.
func lifecycleEnded(lifecycle []watsonxLifecycleEntry, today string) bool {
	for _, entry := range lifecycle {
		if (entry.ID == "deprecated" || entry.ID == "withdrawn") && entry.StartDate <= today {
			return true
		}
	}
	return false
}

func (c *Catalog) getJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RecommendedByTask groups known-good models by the task they suit.
func RecommendedByTask() map[string][]string {
	return map[string][]string{
		"vision_analysis": {
			"gpt-4o",
			"gpt-4o-mini",
			"claude-3-5-sonnet-20241022",
			"llava:latest",
		},
		"code_assistance": {
			"gpt-4o",
			"claude-3-5-sonnet-20241022",
			"ibm/granite-3-8b-instruct",
			"deepseek-coder:latest",
		},
		"general_assistant": {
			"gpt-4o-mini",
			"claude-3-5-haiku-20241022",
			"llama3.2:latest",
		},
		"fast_local": {
			"gemma:2b",
			"qwen2:1.5b",
			"phi3:mini",
		},
	}
}
