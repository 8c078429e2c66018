package pattern

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/chriscorrea/notecard/internal/card"
)

// Defaults applied to custom records that leave a field unset.
const (
	DefaultCustomPriority   = 50
	DefaultCustomConfidence = 0.8
	customIDPrefix          = "custom-"
)

// Record is the import/export form of a user defined pattern.
type Record struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Regex          string         `json:"regex" yaml:"regex"`
	Flags          string         `json:"flags,omitempty" yaml:"flags,omitempty"`
	FieldMappings  map[string]int `json:"fieldMappings" yaml:"fieldMappings"`
	Priority       int            `json:"priority,omitempty" yaml:"priority,omitempty"`
	BaseConfidence float64        `json:"baseConfidence,omitempty" yaml:"baseConfidence,omitempty"`
	Category       string         `json:"category,omitempty" yaml:"category,omitempty"`
	Examples       []string       `json:"examples,omitempty" yaml:"examples,omitempty"`
	TestCases      []TestCase     `json:"testCases,omitempty" yaml:"testCases,omitempty"`
}

// TestCase is an input a custom pattern must match, with optional expected fields.
type TestCase struct {
	Input    string            `json:"input" yaml:"input"`
	Expected map[string]string `json:"expected,omitempty" yaml:"expected,omitempty"`
}

// Pattern converts the record to a custom ContentPattern.
func (r Record) Pattern() ContentPattern {
	p := ContentPattern{
		ID:             r.ID,
		Name:           r.Name,
		Regex:          r.Regex,
		Flags:          r.Flags,
		FieldMapping:   r.FieldMappings,
		Priority:       r.Priority,
		BaseConfidence: r.BaseConfidence,
		Category:       Category(r.Category),
		Examples:       r.Examples,
		Custom:         true,
	}
	if p.Priority == 0 {
		p.Priority = DefaultCustomPriority
	}
	if p.BaseConfidence == 0 {
		p.BaseConfidence = DefaultCustomConfidence
	}
	if p.Category == "" {
		p.Category = CategoryCustom
	}
	return p
}

// RecordError is the failure of one record within a batch.
type RecordError struct {
	Index  int    `json:"index"`
	ID     string `json:"id,omitempty"`
	Source string `json:"source,omitempty"`
	Err    error  `json:"-"`
}

func (e *RecordError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s record %d (%s): %v", e.Source, e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("record %d (%s): %v", e.Index, e.ID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// ImportReport summarizes a batch import. A batch never aborts on a bad record.
type ImportReport struct {
	Imported []string       `json:"imported"`
	Errors   []*RecordError `json:"errors,omitempty"`
}

// Failed returns the number of rejected records.
func (r ImportReport) Failed() int {
	return len(r.Errors)
}

func (r *ImportReport) merge(other ImportReport) {
	r.Imported = append(r.Imported, other.Imported...)
	r.Errors = append(r.Errors, other.Errors...)
}

// Manager owns the user defined patterns of a registry.
type Manager struct {
	registry *Registry

	mu      sync.Mutex
	records map[string]Record
	order   []string
	sources map[string][]string // file path -> ids loaded from it

	// Debounce delays directory reloads after a burst of file events.
	Debounce time.Duration
	onChange func(path string, report ImportReport)
}

// NewManager returns a manager that registers custom patterns into reg.
func NewManager(reg *Registry) *Manager {
	return &Manager{
		registry: reg,
		records:  make(map[string]Record),
		sources:  make(map[string][]string),
		Debounce: 200 * time.Millisecond,
	}
}

// SetOnChange sets a callback invoked after a watched file is reloaded.
func (m *Manager) SetOnChange(fn func(path string, report ImportReport)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Create validates and registers a new custom pattern, assigning an id when
// the record has none.
func (m *Manager) Create(rec Record) (string, error) {
	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = customIDPrefix + uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.ID]; ok {
		return "", fmt.Errorf("custom pattern %q already exists", rec.ID)
	}
	if _, ok := m.registry.Get(rec.ID); ok {
		return "", fmt.Errorf("pattern id %q is reserved by a built-in pattern", rec.ID)
	}
	if err := m.verify(rec); err != nil {
		return "", err
	}
	if _, err := m.registry.Register(rec.Pattern()); err != nil {
		return "", err
	}

	m.records[rec.ID] = rec
	m.order = append(m.order, rec.ID)
	return rec.ID, nil
}

// Update replaces an existing custom pattern.
func (m *Manager) Update(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(rec)
}

func (m *Manager) updateLocked(rec Record) error {
	if _, ok := m.records[rec.ID]; !ok {
		return fmt.Errorf("custom pattern %q not found", rec.ID)
	}
	if err := m.verify(rec); err != nil {
		return err
	}
	if err := m.registry.Update(rec.Pattern()); err != nil {
		return err
	}
	m.records[rec.ID] = rec
	return nil
}

// Delete removes a custom pattern.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteLocked(id)
}

func (m *Manager) deleteLocked(id string) error {
	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("custom pattern %q not found", id)
	}
	if err := m.registry.Delete(id); err != nil {
		return err
	}
	delete(m.records, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns the custom records in creation order.
func (m *Manager) List() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Record, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.records[id])
	}
	return out
}

// verify checks a record against the registry rules and runs its test cases.
func (m *Manager) verify(rec Record) error {
	p := rec.Pattern()
	re, err := m.registry.Validate(p)
	if err != nil {
		return err
	}

	var findings []Finding
	for i, tc := range rec.TestCases {
		capture, err := Apply(re, p, tc.Input)
		switch {
		case err != nil:
			findings = append(findings, Finding{CodeTimeout, SeverityCritical,
				fmt.Sprintf("test case %d: %v", i, err)})
		case capture == nil:
			findings = append(findings, Finding{CodeTestCase, SeverityCritical,
				fmt.Sprintf("test case %d does not match", i)})
		default:
			for field, want := range tc.Expected {
				if got := capture.Fields[field]; got != want {
					findings = append(findings, Finding{CodeTestCase, SeverityCritical,
						fmt.Sprintf("test case %d: field %q = %q, want %q", i, field, got, want)})
				}
			}
		}
	}
	if len(findings) > 0 {
		return &ValidationError{PatternID: rec.ID, Kind: card.InvalidPattern, Findings: findings}
	}
	return nil
}

// upsertLocked creates or replaces a record during imports.
func (m *Manager) upsertLocked(rec Record) error {
	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = customIDPrefix + uuid.NewString()
	}
	if _, ok := m.records[rec.ID]; ok {
		return m.updateLocked(rec)
	}
	if _, ok := m.registry.Get(rec.ID); ok {
		return fmt.Errorf("pattern id %q is reserved by a built-in pattern", rec.ID)
	}
	if err := m.verify(rec); err != nil {
		return err
	}
	if _, err := m.registry.Register(rec.Pattern()); err != nil {
		return err
	}
	m.records[rec.ID] = rec
	m.order = append(m.order, rec.ID)
	return nil
}

func (m *Manager) importRecords(records []Record, source string) ImportReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	var report ImportReport
	for i, rec := range records {
		if strings.TrimSpace(rec.ID) == "" {
			rec.ID = customIDPrefix + uuid.NewString()
		}
		if err := m.upsertLocked(rec); err != nil {
			report.Errors = append(report.Errors, &RecordError{Index: i, ID: rec.ID, Source: source, Err: err})
			continue
		}
		report.Imported = append(report.Imported, rec.ID)
	}
	slog.Debug("Imported custom patterns", "source", source, "imported", len(report.Imported), "failed", report.Failed())
	return report
}

// Import registers every record of a JSON array. Malformed JSON is an error;
// invalid records are reported per record without aborting the batch.
func (m *Manager) Import(data []byte) (ImportReport, error) {
	records, err := decodeJSON(data)
	if err != nil {
		return ImportReport{}, err
	}
	return m.importRecords(records, ""), nil
}

// ImportYAML is Import for a YAML sequence of records.
func (m *Manager) ImportYAML(data []byte) (ImportReport, error) {
	records, err := decodeYAML(data)
	if err != nil {
		return ImportReport{}, err
	}
	return m.importRecords(records, ""), nil
}

// Export renders every custom record as an indented JSON array.
func (m *Manager) Export() ([]byte, error) {
	data, err := json.MarshalIndent(m.List(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding patterns: %w", err)
	}
	return data, nil
}

// ExportYAML renders every custom record as a YAML sequence.
func (m *Manager) ExportYAML() ([]byte, error) {
	data, err := yaml.Marshal(m.List())
	if err != nil {
		return nil, fmt.Errorf("encoding patterns: %w", err)
	}
	return data, nil
}

func decodeJSON(data []byte) ([]Record, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("parsing pattern JSON: %w", err)
		}
		return []Record{rec}, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing pattern JSON: %w", err)
	}
	return records, nil
}

func decodeYAML(data []byte) ([]Record, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parsing pattern YAML: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	if node.Content[0].Kind == yaml.MappingNode {
		var rec Record
		if err := node.Content[0].Decode(&rec); err != nil {
			return nil, fmt.Errorf("parsing pattern YAML: %w", err)
		}
		return []Record{rec}, nil
	}
	var records []Record
	if err := node.Content[0].Decode(&records); err != nil {
		return nil, fmt.Errorf("parsing pattern YAML: %w", err)
	}
	return records, nil
}

func isPatternFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// LoadDirectory imports every .json, .yaml and .yml file in dir. A missing
// directory loads nothing.
func (m *Manager) LoadDirectory(dir string) (ImportReport, error) {
	var report ImportReport

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return report, nil
		}
		return report, fmt.Errorf("checking directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return report, fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return report, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if e.IsDir() || !isPatternFile(e.Name()) {
			continue
		}
		report.merge(m.LoadFile(filepath.Join(dir, e.Name())))
	}
	return report, nil
}

// LoadFile imports one pattern file, replacing whatever that file loaded
// before. Read and parse failures are reported as a record error at index -1.
func (m *Manager) LoadFile(path string) ImportReport {
	m.forget(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return ImportReport{Errors: []*RecordError{{Index: -1, Source: path, Err: fmt.Errorf("reading file: %w", err)}}}
	}

	var records []Record
	if strings.EqualFold(filepath.Ext(path), ".json") {
		records, err = decodeJSON(data)
	} else {
		records, err = decodeYAML(data)
	}
	if err != nil {
		return ImportReport{Errors: []*RecordError{{Index: -1, Source: path, Err: err}}}
	}

	report := m.importRecords(records, path)
	m.mu.Lock()
	m.sources[path] = append([]string(nil), report.Imported...)
	m.mu.Unlock()
	return report
}

// forget deletes the patterns a file loaded previously.
func (m *Manager) forget(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.sources[path] {
		if err := m.deleteLocked(id); err != nil {
			slog.Debug("Could not drop pattern of changed file", "path", path, "id", id, "error", err)
		}
	}
	delete(m.sources, path)
}

// Watch reloads pattern files in dir as they change. It blocks until ctx is
// done or the watcher fails.
func (m *Manager) Watch(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching directory %s: %w", dir, err)
	}
	slog.Debug("Watching pattern directory", "dir", dir)

	var (
		mu      sync.Mutex
		pending = make(map[string]bool)
		timer   *time.Timer
	)

	flush := func() {
		mu.Lock()
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		pending = make(map[string]bool)
		mu.Unlock()

		sort.Strings(paths)
		for _, p := range paths {
			var report ImportReport
			if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
				m.forget(p)
			} else {
				report = m.LoadFile(p)
			}
			m.mu.Lock()
			fn := m.onChange
			m.mu.Unlock()
			if fn != nil {
				fn(p, report)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isPatternFile(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				mu.Lock()
				pending[event.Name] = true
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(m.Debounce, flush)
				mu.Unlock()
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Debug("Pattern watch error", "error", err)
		}
	}
}
