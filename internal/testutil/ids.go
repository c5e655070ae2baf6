package testutil

import "sync"

// ScriptedIDGenerator hands out a fixed list of correlation IDs in order.
//
// It panics when the list is exhausted, so a test that submits more
// requests than it planned for fails loudly.
//
// Thread-safety: safe for concurrent use.
type ScriptedIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewScriptedIDGenerator creates a generator returning ids in order.
func NewScriptedIDGenerator(ids ...string) *ScriptedIDGenerator {
	return &ScriptedIDGenerator{ids: ids}
}

// Generate implements channel.IDGenerator.
func (g *ScriptedIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.idx >= len(g.ids) {
		panic("ScriptedIDGenerator: no more ids")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
