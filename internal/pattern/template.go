package pattern

import (
	"github.com/dlclark/regexp2"

	"github.com/chriscorrea/notecard/internal/card"
)

func templateKey(p ContentPattern) string {
	return p.ID + "\x00" + p.Flags + "\x00" + p.Regex
}

// CompileTemplate validates a bound template's expression like a custom
// pattern and returns it with its compiled form. Results are cached by
// template id and expression, so a template edited in place is re-screened.
func (r *Registry) CompileTemplate(t *card.Template) (ContentPattern, *regexp2.Regexp, error) {
	p := FromTemplate(t)
	key := templateKey(p)

	r.mu.RLock()
	re, ok := r.templates[key]
	r.mu.RUnlock()
	if ok {
		return p, re, nil
	}

	re, err := r.Validate(p)
	if err != nil {
		return p, nil, err
	}

	r.mu.Lock()
	r.templates[key] = re
	r.mu.Unlock()
	return p, re, nil
}
