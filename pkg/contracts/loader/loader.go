// Package loader implements the memoised Contract Schema & Loader
// (component 1, spec.md §4.1): parse + validate YAML contracts into typed
// models, cached per absolute path. There is no hot-reload — the cache is
// only cleared explicitly.
package loader

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"

	gferrors "github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/neil-the-nowledgeable/contextcore/internal/errkit"
)

// Loader is a generic, concurrency-safe, per-path-memoised YAML contract
// loader. One Loader instance should be constructed per contract type (T);
// callers typically keep one Loader[ContextContract], one
// Loader[CapabilityContract], and so on, as long-lived values passed
// explicitly rather than relying on package-level state.
type Loader[T any] struct {
	contractType string // used only in error messages

	mu    sync.RWMutex
	cache map[string]*T

	group    singleflight.Group
	validate *validator.Validate
}

// New builds a Loader for contract type T. contractType is a human-readable
// label (e.g. "context_propagation") used in error messages only.
func New[T any](contractType string) *Loader[T] {
	return &Loader[T]{
		contractType: contractType,
		cache:        make(map[string]*T),
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Load parses and validates the contract at path, memoising the result by
// absolute path. Concurrent Load calls for the same path are collapsed into
// a single parse via singleflight.
func (l *Loader[T]) Load(path string) (*T, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errkit.New(l.contractType, path, errkit.SchemaParse, errkit.Blocking,
			"resolving absolute path").Wrap(err)
	}

	l.mu.RLock()
	if cached, ok := l.cache[abs]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	v, err, _ := l.group.Do(abs, func() (any, error) {
		l.mu.RLock()
		if cached, ok := l.cache[abs]; ok {
			l.mu.RUnlock()
			return cached, nil
		}
		l.mu.RUnlock()

		data, err := os.ReadFile(abs)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errkit.New(l.contractType, abs, errkit.SchemaParse, errkit.Blocking,
					"contract file not found").Wrap(gferrors.Wrap(err, "read contract"))
			}
			return nil, errkit.New(l.contractType, abs, errkit.SchemaParse, errkit.Blocking,
				"reading contract file").Wrap(gferrors.Wrap(err, "read contract"))
		}

		contract, err := l.parseAndValidate(abs, data)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.cache[abs] = contract
		l.mu.Unlock()
		return contract, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

// LoadFromString parses and validates a contract from a YAML string,
// bypassing the cache entirely (convenience for tests, per spec.md §4.1).
func (l *Loader[T]) LoadFromString(yamlStr string) (*T, error) {
	return l.parseAndValidate("<string>", []byte(yamlStr))
}

func (l *Loader[T]) parseAndValidate(source string, data []byte) (*T, error) {
	var contract T
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // reject unknown top-level keys, the Go rendering of extra=forbid
	if err := dec.Decode(&contract); err != nil {
		return nil, errkit.New(l.contractType, source, errkit.SchemaParse, errkit.Blocking,
			"parsing contract YAML").Wrap(gferrors.Wrap(err, "decode yaml"))
	}

	if err := l.validate.Struct(&contract); err != nil {
		return nil, errkit.New(l.contractType, source, errkit.ContractShape, errkit.Blocking,
			"contract failed shape validation").Wrap(gferrors.Wrap(err, "validate struct"))
	}

	return &contract, nil
}

// ClearCache drops every memoised contract for this Loader. Contracts are
// read-only for the duration of a run; clearing is an explicit operation
// intended for tests and operator-triggered contract reloads, never
// automatic.
func (l *Loader[T]) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]*T)
}

// Cached reports whether path (after resolving to an absolute path) is
// currently cached, without loading it.
func (l *Loader[T]) Cached(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.cache[abs]
	return ok
}

// IsNotFound reports whether err (or a wrapped cause) represents a
// file-not-found condition from Load.
func IsNotFound(err error) bool {
	var env errkit.Envelope
	if errors.As(err, &env) {
		return env.Message == "contract file not found"
	}
	return false
}
