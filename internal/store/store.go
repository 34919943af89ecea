// Package store implements the flat-file record stores backing the bot.
//
// A Store is an in-memory map keyed by owning-user id, mirrored to a JSON
// document on disk. It loads once on open and writes through on every
// mutation. Writes are best-effort: a failed save is logged and counted,
// and the in-memory state stays authoritative for the rest of the process
// lifetime.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	commonerrors "github.com/09wizardguy/SignalBox/internal/common/errors"
	"github.com/09wizardguy/SignalBox/internal/common/logger"
	"github.com/09wizardguy/SignalBox/internal/common/metrics"
)

// Store holds records of type V keyed by owning-user identifier.
type Store[V any] struct {
	path   string
	name   string
	log    logger.Logger
	schema *gojsonschema.Schema

	mu      sync.RWMutex
	records map[string]V
}

type options struct {
	schema string
	name   string
}

type Option func(*options)

// WithSchema validates the on-disk document against a JSON Schema on load.
// A document that fails validation is treated the same as a corrupt file.
func WithSchema(schema string) Option {
	return func(o *options) { o.schema = schema }
}

// WithName overrides the store name used in logs and metrics. Defaults to
// the backing file's base name.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// Open loads the store at path, resetting to an empty document when the
// backing file is missing, empty, or corrupt. Open never fails: a store
// that cannot even create its data directory still works in memory.
func Open[V any](path string, log logger.Logger, opts ...Option) *Store[V] {
	o := options{name: strings.TrimSuffix(filepath.Base(path), ".json")}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store[V]{
		path:    path,
		name:    o.name,
		log:     log.WithFields(map[string]interface{}{"store": o.name}),
		records: make(map[string]V),
	}

	if o.schema != "" {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(o.schema))
		if err != nil {
			s.log.Error("invalid store schema, skipping validation", map[string]interface{}{
				"error": err,
			})
		} else {
			s.schema = schema
		}
	}

	s.load()
	return s
}

func (s *Store[V]) load() {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.log.Error("failed to create data directory", map[string]interface{}{
			"error": err,
		})
	}

	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.log.Info("no store file found, starting fresh", nil)
		return
	}
	if err != nil {
		s.log.Error("failed to read store file, starting fresh", map[string]interface{}{
			"error": err,
		})
		return
	}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		s.log.Info("store file is empty, starting fresh", nil)
		s.reset()
		return
	}

	if s.schema != nil {
		result, err := s.schema.Validate(gojsonschema.NewStringLoader(trimmed))
		if err != nil || !result.Valid() {
			s.log.Error("store file failed schema validation, starting fresh", map[string]interface{}{
				"error":  err,
				"issues": validationIssues(result),
			})
			s.reset()
			return
		}
	}

	var data map[string]V
	if err := json.Unmarshal([]byte(trimmed), &data); err != nil {
		s.log.Error("store file is corrupt, starting fresh", map[string]interface{}{
			"error": err,
		})
		s.reset()
		return
	}

	s.records = data
	if s.records == nil {
		s.records = make(map[string]V)
	}
	s.log.Info("store loaded", map[string]interface{}{"records": len(s.records)})
}

func validationIssues(result *gojsonschema.Result) []string {
	if result == nil {
		return nil
	}
	issues := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		issues = append(issues, e.String())
	}
	return issues
}

// reset replaces the on-disk document with an empty object.
func (s *Store[V]) reset() {
	s.records = make(map[string]V)
	s.save()
}

// save writes the current records to disk. Callers must hold at least a
// read lock. Errors are swallowed: memory is the source of truth.
func (s *Store[V]) save() {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		s.logSaveFailure(err)
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		s.logSaveFailure(err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.logSaveFailure(err)
	}
}

func (s *Store[V]) logSaveFailure(err error) {
	metrics.PersistenceFailures.WithLabelValues(s.name).Inc()
	s.log.WithError(commonerrors.NewPersistenceFailedError(s.path, err)).
		Error("failed to save store", nil)
}

// Get returns the record for key.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	return v, ok
}

// Set stores the record for key and persists.
func (s *Store[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = value
	s.save()
}

// Delete removes the record for key and persists. Returns false when the
// key was absent.
func (s *Store[V]) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return false
	}
	delete(s.records, key)
	s.save()
	return true
}

// Update applies fn to the record for key under the write lock and
// persists the result. fn receives the zero value when the key is absent;
// it returns the new value and whether to keep the key at all.
func (s *Store[V]) Update(key string, fn func(value V, ok bool) (V, bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.records[key]
	next, keep := fn(old, ok)
	if keep {
		s.records[key] = next
	} else {
		delete(s.records, key)
	}
	s.save()
}

// Len returns the number of keys in the store.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// ForEach invokes fn for every key/record pair over a snapshot of the
// store, so fn may mutate the store.
func (s *Store[V]) ForEach(fn func(key string, value V)) {
	s.mu.RLock()
	snapshot := make(map[string]V, len(s.records))
	for k, v := range s.records {
		snapshot[k] = v
	}
	s.mu.RUnlock()

	for k, v := range snapshot {
		fn(k, v)
	}
}
