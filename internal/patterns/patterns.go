// Package patterns manages the user-editable detection pattern table.
// Patterns produce SensitiveFile rows at scan time; the scanning itself
// happens in the external scanner service, which reads the enabled set from
// here. Patterns are not versioned: editing or deleting a pattern leaves
// historical detections untouched.
package patterns

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/google/uuid"

	"github.com/sharewatch/sharewatch/internal/models"
)

// Store defines the interface for pattern persistence.
type Store interface {
	GetPattern(ctx context.Context, id uuid.UUID) (*models.SensitivePattern, error)
	ListPatterns(ctx context.Context, enabledOnly bool) ([]*models.SensitivePattern, error)
	CreatePattern(ctx context.Context, pattern *models.SensitivePattern) error
	UpdatePattern(ctx context.Context, pattern *models.SensitivePattern) error
	DeletePattern(ctx context.Context, id uuid.UUID) error
}

// CompiledPattern is a pattern with its compiled regex.
type CompiledPattern struct {
	Pattern *models.SensitivePattern
	Regex   *regexp.Regexp
}

// Engine keeps the compiled view of the enabled pattern set.
type Engine struct {
	store    Store
	compiled []*CompiledPattern
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// LoadPatterns loads and compiles all enabled patterns.
func (e *Engine) LoadPatterns(ctx context.Context) error {
	patterns, err := e.store.ListPatterns(ctx, true)
	if err != nil {
		return fmt.Errorf("loading patterns: %w", err)
	}

	compiled := make([]*CompiledPattern, 0, len(patterns))
	for _, p := range patterns {
		re, err := Compile(p.Pattern)
		if err != nil {
			return fmt.Errorf("pattern %s: %w", p.ID, err)
		}
		compiled = append(compiled, &CompiledPattern{Pattern: p, Regex: re})
	}

	e.compiled = compiled
	return nil
}

// Compile validates a pattern. Patterns match case-insensitively against
// file names and paths, which is what the scanner sees on SMB shares.
func Compile(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}

// Test runs one pattern against a sample file name and returns the matched
// substrings. Used by the pattern editor to preview a rule before saving;
// inventory matching stays in the scanner.
func Test(pattern, sample string) ([]string, error) {
	re, err := Compile(pattern)
	if err != nil {
		return nil, err
	}
	return re.FindAllString(sample, -1), nil
}

// Types returns the distinct detection type tags of the loaded pattern set,
// sorted. The vocabulary is open: detection types on historical rows may
// name patterns that no longer exist.
func (e *Engine) Types() []string {
	seen := make(map[string]struct{}, len(e.compiled))
	for _, c := range e.compiled {
		seen[c.Pattern.Type] = struct{}{}
	}
	types := make([]string, 0, len(seen))
	for t := range seen {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
