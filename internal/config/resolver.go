package config

import (
	"os"
	"strconv"
	"strings"

	apperrors "github.com/idr-analysis/idrconnect/internal/errors"
)

// EnvPrefix namespaces the environment variables consulted for missing arguments.
const EnvPrefix = "IDR_"

// Lookup returns the value stored under key and whether it was present.
type Lookup func(key string) (string, bool)

// EnvLookup reads from the process environment.
func EnvLookup() Lookup {
	return os.LookupEnv
}

// MapLookup serves values from a fixed map.
func MapLookup(values map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

// Resolver merges explicit arguments with namespaced fallbacks.
type Resolver struct {
	lookup Lookup
	prefix string
}

// NewResolver creates a resolver over lookup using EnvPrefix. A nil lookup never
// finds anything.
func NewResolver(lookup Lookup) *Resolver {
	if lookup == nil {
		lookup = MapLookup(nil)
	}
	return &Resolver{lookup: lookup, prefix: EnvPrefix}
}

// Key returns the variable name consulted for a parameter, e.g. "host" -> "IDR_HOST".
func (r *Resolver) Key(name string) string {
	return r.prefix + strings.ToUpper(name)
}

// Resolve returns *explicit when supplied, else the looked-up value, else def.
func (r *Resolver) Resolve(explicit *string, name string, def string) string {
	if explicit != nil {
		return *explicit
	}
	if v, ok := r.lookup(r.Key(name)); ok {
		return v
	}
	return def
}

// ResolvePort resolves an integer parameter. A looked-up value that is not an
// integer is a configuration error.
func (r *Resolver) ResolvePort(explicit *int, name string, def int) (int, error) {
	if explicit != nil {
		return *explicit, nil
	}
	v, ok := r.lookup(r.Key(name))
	if !ok {
		return def, nil
	}
	port, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, apperrors.NewConfigurationError("config").
			WithOperation("resolve parameter").
			WithMessage("invalid %s value %q", r.Key(name), v).
			WithContext("parameter", name).
			WithCause(err).
			Build()
	}
	return port, nil
}
