// Package secrets resolves secret references of the form ${prefix:key} that may
// appear as the whole value of a configuration variable, for example
// DB_PASS=${vault:DB_PASS} or DOC_ENC_KEY=${file:doc_enc_key}.
//
// Providers are registered per prefix on a Registry that the application builds
// at startup and passes to the configuration loader.
package secrets

import (
	"sort"
	"strings"
	"sync"

	"github.com/ejustice-portal/bootstrap/pkg/config/environ"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultPrefix is used for references that carry no prefix, e.g. ${DB_PASS}.
const DefaultPrefix = "env"

var validate = validator.New()

// Provider retrieves secret values for one reference prefix.
type Provider interface {
	// Resolve returns the value stored under key (the reference without its prefix).
	Resolve(key string) (string, error)
	// Name returns a human-readable provider name for logs and errors.
	Name() string
}

// Registry maps reference prefixes to providers. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates a registry with the env provider bound to env.
func NewRegistry(env environ.Environment) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	r.Register(DefaultPrefix, NewEnvProvider(env))
	return r
}

// Register binds provider to prefix, replacing any previous provider.
// The prefix does not include the trailing colon.
func (r *Registry) Register(prefix string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[prefix]; exists {
		log.Warn().Msgf("Overriding existing secret provider for prefix %q", prefix)
	}
	r.providers[prefix] = provider
}

// Unregister removes the provider bound to prefix.
func (r *Registry) Unregister(prefix string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, prefix)
}

// Provider returns the provider bound to prefix, or nil.
func (r *Registry) Provider(prefix string) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[prefix]
}

// Prefixes returns the sorted registered prefixes.
func (r *Registry) Prefixes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prefixes := make([]string, 0, len(r.providers))
	for prefix := range r.providers {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	return prefixes
}

// Resolve resolves a "prefix:key" property. A property without a colon is
// looked up with the env provider.
func (r *Registry) Resolve(property string) (string, error) {
	prefix, key := parseProperty(property)

	provider := r.Provider(prefix)
	if provider == nil {
		return "", errors.Errorf("no secret provider registered for prefix %q", prefix)
	}

	value, err := provider.Resolve(key)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve secret %q using %s provider", property, provider.Name())
	}
	return value, nil
}

// Expand resolves s when it is a whole-value reference and returns it unchanged
// otherwise. Partial references such as "pre${env:X}" are left as they are so that
// passwords containing '$' are never rewritten.
func (r *Registry) Expand(s string) (string, error) {
	property, ok := ReferenceKey(s)
	if !ok {
		return s, nil
	}
	return r.Resolve(property)
}

// IsReference reports whether s is exactly one ${...} reference.
func IsReference(s string) bool {
	_, ok := ReferenceKey(s)
	return ok
}

// ReferenceKey returns the property inside a whole-value ${...} reference.
func ReferenceKey(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "${") || !strings.HasSuffix(s, "}") {
		return "", false
	}
	inner := s[2 : len(s)-1]
	if inner == "" || strings.ContainsAny(inner, "${}") {
		return "", false
	}
	return inner, true
}

// parseProperty splits on the first colon, defaulting to the env prefix:
//
//	"vault:DB_PASS"   -> ("vault", "DB_PASS")
//	"DB_PASS"         -> ("env", "DB_PASS")
//	"aws:db:password" -> ("aws", "db:password")
func parseProperty(property string) (prefix string, key string) {
	prefix, key, found := strings.Cut(property, ":")
	if !found {
		return DefaultPrefix, property
	}
	return prefix, key
}
