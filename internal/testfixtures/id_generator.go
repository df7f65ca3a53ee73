package testfixtures

import (
	"fmt"
	"strings"
	"sync"
)

// IDGenerator yields predictable cookie values and token ids.
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter uint64
}

// NewIDGenerator returns a generator producing prefix-1, prefix-2 and so on.
// An empty prefix means "id".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s-%d", g.prefix, g.counter)
}

// NextFunc adapts Next to the cookie generator signature.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// SecretFunc adapts Next to the token generator signature. Values are padded
// with 'x' or truncated to exactly n characters.
func (g *IDGenerator) SecretFunc() func(n int) (string, error) {
	return func(n int) (string, error) {
		value := g.Next()
		if len(value) >= n {
			return value[len(value)-n:], nil
		}
		return value + strings.Repeat("x", n-len(value)), nil
	}
}

// Reset restarts the sequence.
func (g *IDGenerator) Reset() {
	g.mu.Lock()
	g.counter = 0
	g.mu.Unlock()
}
