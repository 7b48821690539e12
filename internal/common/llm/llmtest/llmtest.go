// Package llmtest provides in-memory generators and embedders for tests.
package llmtest

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	"sales-orchestrator/internal/common/llm"
)

// Call records one Generate invocation.
type Call struct {
	Prompt      string
	Temperature *float32
}

// Generator answers prompts through Respond and records every call.
type Generator struct {
	Respond func(prompt string, opts llm.GenerateOptions) (string, error)

	mu    sync.Mutex
	calls []Call
}

func (g *Generator) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, Call{Prompt: prompt, Temperature: opts.Temperature})
	g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g.Respond == nil {
		return "", nil
	}
	return g.Respond(prompt, opts)
}

// Calls returns a copy of the recorded calls.
func (g *Generator) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Call, len(g.calls))
	copy(out, g.calls)
	return out
}

// CallsContaining returns the recorded calls whose prompt contains marker.
func (g *Generator) CallsContaining(marker string) []Call {
	var out []Call
	for _, c := range g.Calls() {
		if strings.Contains(c.Prompt, marker) {
			out = append(out, c)
		}
	}
	return out
}

// HashEmbedder maps text to a normalized bag-of-words vector. Equal texts get equal vectors.
type HashEmbedder struct {
	Dimensions int
	Err        error

	mu    sync.Mutex
	calls int
}

func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if e.Err != nil {
		return nil, e.Err
	}

	dims := e.Dimensions
	if dims <= 0 {
		dims = 64
	}
	vec := make([]float32, dims)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(dims)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

// Calls returns how many times Embed ran.
func (e *HashEmbedder) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
