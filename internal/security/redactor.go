package security

import (
	"regexp"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

var (
	// botToken matches a Bot API token: <bot id>:<hash>. It is usually glued
	// to "bot" inside API URLs, so there is no leading word boundary.
	botToken = regexp.MustCompile(`\d{5,}:[A-Za-z0-9_-]{30,}`)

	// bearerCred matches the credential part of an Authorization header.
	bearerCred = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/-]{16,}=*`)

	secretKey = regexp.MustCompile(`(?i)(secret|token|passw|pass$|_pass|apikey|api_key|credential|authorization)`)
)

// IsSecretKey reports whether a config or log key names a secret value.
func IsSecretKey(key string) bool {
	return secretKey.MatchString(key)
}

// ruleset is an immutable snapshot; Redact reads it without locking.
type ruleset struct {
	literals *strings.Replacer
	patterns []*regexp.Regexp
}

// Redactor scrubs the configured bot token, relay credentials and anything
// shaped like a Bot API token from strings. Safe for concurrent use; adding
// a secret swaps in a new ruleset.
type Redactor struct {
	mu      sync.Mutex
	secrets []string
	rules   atomic.Pointer[ruleset]
}

// NewRedactor returns a Redactor that knows the token and bearer shapes.
func NewRedactor() *Redactor {
	r := &Redactor{}
	r.rules.Store(&ruleset{patterns: []*regexp.Regexp{botToken, bearerCred}})
	return r
}

// AddLiteral registers a secret to replace wherever it appears. Empty
// strings are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.Contains(r.secrets, secret) {
		return
	}
	r.secrets = append(r.secrets, secret)

	// Longest first so a secret containing another is replaced whole.
	sorted := slices.Clone(r.secrets)
	slices.SortFunc(sorted, func(a, b string) int { return len(b) - len(a) })
	pairs := make([]string, 0, 2*len(sorted))
	for _, s := range sorted {
		pairs = append(pairs, s, RedactPlaceholder)
	}

	old := r.rules.Load()
	r.rules.Store(&ruleset{literals: strings.NewReplacer(pairs...), patterns: old.patterns})
}

// Redact returns s with every known secret replaced by RedactPlaceholder.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}
	rs := r.rules.Load()
	if rs.literals != nil {
		s = rs.literals.Replace(s)
	}
	for _, p := range rs.patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	return s
}

// RedactMap masks, in place, every non-empty string stored under a secret
// key and scrubs all other strings. Nested maps and lists are walked.
func (r *Redactor) RedactMap(m map[string]any) {
	for k, v := range m {
		if s, ok := v.(string); ok && s != "" && IsSecretKey(k) {
			m[k] = RedactPlaceholder
			continue
		}
		m[k] = r.redactValue(v)
	}
}

func (r *Redactor) redactValue(v any) any {
	switch val := v.(type) {
	case string:
		return r.Redact(val)
	case map[string]any:
		r.RedactMap(val)
	case []any:
		for i := range val {
			val[i] = r.redactValue(val[i])
		}
	}
	return v
}
