// Package heads provides the built-in backend adapters: a browser-driven
// ChatGPT head and network-API heads for Ollama, OpenAI, Claude, Gemini,
// and watsonx.
package heads

import (
	"github.com/entrhq/hydra/pkg/config"
	"github.com/entrhq/hydra/pkg/head"
)

// Constructors is the static registration list consumed by head.Load.
// Order matters: the first head that comes up is the fallback when a caller
// names an unknown one, so the local, credential-free heads go first.
func Constructors(cfg *config.Config) []head.Constructor {
	return []head.Constructor{
		func() (head.Head, error) { return NewOllama(cfg.Ollama) },
		func() (head.Head, error) { return NewChatGPT() },
		func() (head.Head, error) { return NewOpenAI(cfg.OpenAI) },
		func() (head.Head, error) { return NewClaude(cfg.Anthropic) },
		func() (head.Head, error) { return NewGemini(cfg.Gemini) },
		func() (head.Head, error) { return NewWatsonx(cfg.Watsonx) },
	}
}
