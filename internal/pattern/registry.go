package pattern

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/chriscorrea/notecard/internal/card"
)

// DefaultMatchTimeout bounds every match run through a registry-compiled regex.
const DefaultMatchTimeout = time.Second

// Registry holds the patterns of one process and their compiled form.
// It is safe for concurrent use; readers never observe a partial update.
type Registry struct {
	mu       sync.RWMutex
	patterns map[string]*entry
	cache    map[string]*regexp2.Regexp
	seq      int

	// templates caches bound template expressions by templateKey
	templates map[string]*regexp2.Regexp

	matchTimeout time.Duration
	validator    *SafetyValidator
}

type entry struct {
	pattern ContentPattern
	seq     int // registration order, kept across updates
}

// Compiled is a pattern paired with its compiled expression.
type Compiled struct {
	Pattern ContentPattern
	Regex   *regexp2.Regexp
	// Order is the registration order used to break ties.
	Order int
}

// Option configures a Registry.
type Option func(*Registry)

// WithMatchTimeout sets the timeout applied to every compiled expression.
func WithMatchTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.matchTimeout = d
		}
	}
}

// WithValidator replaces the complexity screen applied to custom patterns.
func WithValidator(v *SafetyValidator) Option {
	return func(r *Registry) {
		if v != nil {
			r.validator = v
		}
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		patterns:     make(map[string]*entry),
		cache:        make(map[string]*regexp2.Regexp),
		templates:    make(map[string]*regexp2.Regexp),
		matchTimeout: DefaultMatchTimeout,
		validator:    NewSafetyValidator(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewDefaultRegistry returns a registry holding the built-in patterns.
func NewDefaultRegistry(opts ...Option) *Registry {
	r := NewRegistry(opts...)
	for _, p := range Builtins() {
		if _, err := r.Register(p); err != nil {
			// built-ins are fixed at compile time, so this is a programming error
			panic(fmt.Sprintf("registering built-in pattern %s: %v", p.ID, err))
		}
	}
	return r
}

// Validate runs every registration check on p without storing it and returns
// the compiled expression.
func (r *Registry) Validate(p ContentPattern) (*regexp2.Regexp, error) {
	var findings []Finding
	kind := card.InvalidPattern

	if strings.TrimSpace(p.ID) == "" {
		findings = append(findings, Finding{CodeMissingID, SeverityCritical, "pattern id is required"})
	}
	if strings.TrimSpace(p.Regex) == "" {
		findings = append(findings, Finding{CodeEmptyRegex, SeverityCritical, "regex is empty"})
		return nil, &ValidationError{PatternID: p.ID, Kind: kind, Findings: findings}
	}
	if p.BaseConfidence < 0 || p.BaseConfidence > 1 {
		findings = append(findings, Finding{CodeConfidenceRange, SeverityCritical,
			fmt.Sprintf("base confidence %.2f is outside [0,1]", p.BaseConfidence)})
	}

	opts, err := p.Options()
	if err != nil {
		findings = append(findings, Finding{CodeSyntax, SeverityCritical, err.Error()})
		return nil, &ValidationError{PatternID: p.ID, Kind: kind, Findings: findings}
	}

	if p.Custom {
		findings = append(findings, r.validator.Check(p.Regex, opts)...)
		if hasCritical(findings) {
			return nil, &ValidationError{PatternID: p.ID, Kind: kind, Findings: findings}
		}
	}

	re, err := regexp2.Compile(p.Regex, opts)
	if err != nil {
		findings = append(findings, Finding{CodeSyntax, SeverityCritical, err.Error()})
		return nil, &ValidationError{PatternID: p.ID, Kind: kind, Findings: findings}
	}
	re.MatchTimeout = r.matchTimeout

	groups := groupCount(re)
	if p.GroupCount > 0 && p.GroupCount != groups {
		findings = append(findings, Finding{CodeGroupCount, SeverityCritical,
			fmt.Sprintf("declared %d capture groups, expression has %d", p.GroupCount, groups)})
	}
	if len(p.FieldMapping) == 0 {
		findings = append(findings, Finding{CodeFieldMapping, SeverityCritical, "field mapping is empty"})
		kind = card.FieldMappingGap
	}
	for _, name := range p.Fields() {
		idx := p.FieldMapping[name]
		if idx < 0 || idx > groups {
			findings = append(findings, Finding{CodeFieldMapping, SeverityCritical,
				fmt.Sprintf("field %q maps to group %d, expression has %d", name, idx, groups)})
			kind = card.FieldMappingGap
		}
	}

	if hasCritical(findings) {
		return nil, &ValidationError{PatternID: p.ID, Kind: kind, Findings: findings}
	}
	return re, nil
}

// Register validates p and adds it to the registry, returning its id.
func (r *Registry) Register(p ContentPattern) (string, error) {
	re, err := r.Validate(p)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patterns[p.ID]; ok {
		return "", &ValidationError{PatternID: p.ID, Kind: card.InvalidPattern, Findings: []Finding{
			{CodeDuplicateID, SeverityCritical, "a pattern with this id is already registered"},
		}}
	}

	r.seq++
	r.patterns[p.ID] = &entry{pattern: p, seq: r.seq}
	r.cache[p.ID] = re
	slog.Debug("Registered pattern", "id", p.ID, "priority", p.Priority, "custom", p.Custom)
	return p.ID, nil
}

// Update replaces a registered pattern, keeping its registration order.
func (r *Registry) Update(p ContentPattern) error {
	if _, err := r.Validate(p); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.patterns[p.ID]
	if !ok {
		return fmt.Errorf("pattern %q not found", p.ID)
	}
	e.pattern = p
	delete(r.cache, p.ID)
	slog.Debug("Updated pattern", "id", p.ID)
	return nil
}

// Delete removes a pattern and its compiled form.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patterns[id]; !ok {
		return fmt.Errorf("pattern %q not found", id)
	}
	delete(r.patterns, id)
	delete(r.cache, id)
	slog.Debug("Deleted pattern", "id", id)
	return nil
}

// Get returns a registered pattern by id.
func (r *Registry) Get(id string) (ContentPattern, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.patterns[id]
	if !ok {
		return ContentPattern{}, false
	}
	return e.pattern, true
}

// Compile returns the cached compiled expression of a pattern, compiling it
// if the cache was invalidated.
func (r *Registry) Compile(id string) (*regexp2.Regexp, error) {
	r.mu.RLock()
	re, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return re, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.patterns[id]
	if !ok {
		return nil, fmt.Errorf("pattern %q not found", id)
	}
	return r.compileLocked(e.pattern)
}

func (r *Registry) compileLocked(p ContentPattern) (*regexp2.Regexp, error) {
	if re, ok := r.cache[p.ID]; ok {
		return re, nil
	}
	opts, err := p.Options()
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %s: %w", p.ID, err)
	}
	re, err := regexp2.Compile(p.Regex, opts)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %s: %w", p.ID, err)
	}
	re.MatchTimeout = r.matchTimeout
	r.cache[p.ID] = re
	return re, nil
}

// All returns every pattern ordered by priority descending, then by
// registration order.
func (r *Registry) All() []ContentPattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.sortedLocked()
	out := make([]ContentPattern, len(entries))
	for i, e := range entries {
		out[i] = e.pattern
	}
	return out
}

// Snapshot returns a consistent view of every pattern with its compiled
// expression, in the same order as All.
func (r *Registry) Snapshot() []Compiled {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.sortedLocked()
	out := make([]Compiled, 0, len(entries))
	for _, e := range entries {
		re, err := r.compileLocked(e.pattern)
		if err != nil {
			slog.Debug("Skipping uncompilable pattern", "id", e.pattern.ID, "error", err)
			continue
		}
		out = append(out, Compiled{Pattern: e.pattern, Regex: re, Order: e.seq})
	}
	return out
}

// Len returns the number of registered patterns.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.patterns)
}

// MatchTimeout returns the timeout applied to compiled expressions.
func (r *Registry) MatchTimeout() time.Duration {
	return r.matchTimeout
}

func (r *Registry) sortedLocked() []*entry {
	entries := make([]*entry, 0, len(r.patterns))
	for _, e := range r.patterns {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].pattern.Priority != entries[j].pattern.Priority {
			return entries[i].pattern.Priority > entries[j].pattern.Priority
		}
		return entries[i].seq < entries[j].seq
	})
	return entries
}
