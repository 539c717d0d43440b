// Package environ captures the process environment once at startup and exposes it
// as an immutable snapshot. Every configuration component reads from a snapshot
// instead of calling os.Getenv, so resolution is deterministic and testable.
package environ

import (
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Environment is the read-only view of environment variables consumed by the
// configuration resolvers. Its method set matches go-simpler.org/env's Source,
// so a snapshot can be handed straight to env.Load.
type Environment interface {
	LookupEnv(key string) (value string, ok bool)
}

// Snapshot is an immutable copy of a set of environment variables.
type Snapshot struct {
	values map[string]string
}

// New creates a snapshot holding a private copy of values.
func New(values map[string]string) Snapshot {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Snapshot{values: copied}
}

// FromOS captures the current process environment.
func FromOS() Snapshot {
	values := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, found := strings.Cut(kv, "=")
		if !found {
			continue
		}
		values[key] = value
	}
	return Snapshot{values: values}
}

// FromOSWithDotEnv captures the process environment and fills in any key that is
// absent from it with the value read from the given dotenv files. Process
// variables always win, and earlier files win over later ones.
// Missing files are skipped.
func FromOSWithDotEnv(files ...string) (Snapshot, error) {
	snapshot := FromOS()
	for _, file := range files {
		if file == "" {
			continue
		}
		values, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Info().Str("file", file).Msg("No dotenv file found, using process environment only")
				continue
			}
			return Snapshot{}, errors.Wrapf(err, "failed to read dotenv file %q", file)
		}

		loaded := 0
		for key, value := range values {
			if _, exists := snapshot.values[key]; exists {
				continue
			}
			snapshot.values[key] = value
			loaded++
		}
		log.Debug().Str("file", file).Int("variables", loaded).Msg("Loaded variables from dotenv file")
	}
	return snapshot, nil
}

// LookupEnv returns the value stored for key and whether it was present.
func (s Snapshot) LookupEnv(key string) (string, bool) {
	value, ok := s.values[key]
	return value, ok
}

// Keys returns the sorted list of variable names in the snapshot.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for key := range s.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// IsFalsy reports whether v counts as "not provided". An empty string and "0"
// are both treated as unset, so DB_PORT=0 falls back to the default port.
func IsFalsy(v string) bool {
	return v == "" || v == "0"
}

// Value looks key up in env and reports it as missing when it is unset or falsy.
func Value(env Environment, key string) (string, bool) {
	if env == nil {
		return "", false
	}
	value, ok := env.LookupEnv(key)
	if !ok || IsFalsy(value) {
		return "", false
	}
	return value, true
}

// Truthy returns the subset of keys whose values are set and not falsy.
func Truthy(env Environment, keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if value, ok := Value(env, key); ok {
			out[key] = value
		}
	}
	return out
}
