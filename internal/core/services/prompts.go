package services

import (
	"fmt"
	"sync"

	"github.com/custodia-labs/policywatch/internal/core/ports/driven"
	"github.com/custodia-labs/policywatch/internal/logger"
)

var builtinPrompts = driven.DefaultPrompts()

// prompter renders prompt templates, preferring a user-supplied PromptStore
// and falling back to the built-in templates.
type prompter struct {
	mu    sync.RWMutex
	store driven.PromptStore
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (p *prompter) SetPromptStore(store driven.PromptStore) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store = store
}

func (p *prompter) render(name string, args ...any) string {
	tmpl := builtinPrompts[name]

	p.mu.RLock()
	store := p.store
	p.mu.RUnlock()

	if store != nil {
		custom, err := store.Load(name)
		switch {
		case err != nil:
			logger.Debug("prompt %q unavailable, using built-in: %v", name, err)
		case custom == "":
		case countVerbs(custom) != len(args):
			logger.Warn("prompt %q has %d placeholders, want %d; using built-in",
				name, countVerbs(custom), len(args))
		default:
			tmpl = custom
		}
	}
	return fmt.Sprintf(tmpl, args...)
}

// countVerbs counts formatting verbs in a template. "%%" is a literal.
func countVerbs(tmpl string) int {
	n := 0
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] != '%' {
			continue
		}
		if i+1 < len(tmpl) && tmpl[i+1] == '%' {
			i++
			continue
		}
		n++
	}
	return n
}
