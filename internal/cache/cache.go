// Package cache holds the propositions most recently returned for each decision scope.
package cache

import (
	"errors"
	"fmt"

	"github.com/TimurManjosov/goptimize/internal/decisionscope"
	"github.com/TimurManjosov/goptimize/internal/proposition"
)

// ErrScopeMismatch is returned when a proposition is stored under a scope other
// than the one it was fetched for.
var ErrScopeMismatch = errors.New("proposition scope does not match cache key")

// Cache maps a decision scope to its latest proposition.
//
// Cache is not safe for concurrent use. It is owned by the extension worker, which
// is the only goroutine that reads or writes it.
type Cache struct {
	entries map[decisionscope.DecisionScope]proposition.Proposition
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[decisionscope.DecisionScope]proposition.Proposition),
	}
}

// Put replaces whatever is stored for scope with p.
func (c *Cache) Put(scope decisionscope.DecisionScope, p proposition.Proposition) error {
	if p.Scope() != scope.Name() {
		return fmt.Errorf("%w: key %q, proposition scope %q", ErrScopeMismatch, scope.Name(), p.Scope())
	}
	c.entries[scope] = p
	return nil
}

// PutAll stores each proposition under the requested scope with the same name.
// Propositions for scopes that were not requested are ignored. It returns the
// number of entries written.
func (c *Cache) PutAll(props []proposition.Proposition, requested []decisionscope.DecisionScope) int {
	byName := make(map[string]decisionscope.DecisionScope, len(requested))
	for _, s := range requested {
		byName[s.Name()] = s
	}

	written := 0
	for _, p := range props {
		scope, ok := byName[p.Scope()]
		if !ok {
			continue
		}
		c.entries[scope] = p
		written++
	}
	return written
}

// Get returns the proposition stored for scope.
func (c *Cache) Get(scope decisionscope.DecisionScope) (proposition.Proposition, bool) {
	p, ok := c.entries[scope]
	return p, ok
}

// Lookup returns the cached subset of scopes. Scopes without an entry are absent
// from the result.
func (c *Cache) Lookup(scopes []decisionscope.DecisionScope) map[decisionscope.DecisionScope]proposition.Proposition {
	result := make(map[decisionscope.DecisionScope]proposition.Proposition, len(scopes))
	for _, s := range scopes {
		if p, ok := c.entries[s]; ok {
			result[s] = p
		}
	}
	return result
}

// Scopes returns every cached scope in no particular order.
func (c *Cache) Scopes() []decisionscope.DecisionScope {
	scopes := make([]decisionscope.DecisionScope, 0, len(c.entries))
	for s := range c.entries {
		scopes = append(scopes, s)
	}
	return scopes
}

// Clear removes every entry. Clearing an empty cache is a no-op.
func (c *Cache) Clear() {
	clear(c.entries)
}

// Len returns the number of cached scopes.
func (c *Cache) Len() int {
	return len(c.entries)
}
