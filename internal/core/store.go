package core

// store.go holds the session-scoped record stores and the merge engine.
//
// A Store keeps records in insertion order. Merge is an upsert keyed by the
// trimmed record name: matching records are updated in place with non-empty
// incoming values only, everything else is appended. Blank names never match.

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Table is the schema-independent view of a Store used by the service and
// the HTTP layer.
type Table interface {
	Kind() SchemaKind
	Len() int
	IsEmpty() bool
	Snapshot() any
	ImportRows(rows [][]string, mapping Mapping, mode ImportMode) (ImportSummary, error)
	PreviewRows(rows [][]string, mapping Mapping) (BuildReport, MergeResult)
	PopulateJSON(data []byte) (int, error)
	Export(sep string, decimals int) (string, error)
	AddRow() int
	Clear()
	TryAcquireImport() bool
	ReleaseImport()
}

// Store is an ordered, mutex-guarded collection of one record family.
type Store[R any, P Record[R]] struct {
	mu      sync.RWMutex
	records []R

	// guard admits one import flow at a time.
	guard chan struct{}
}

var (
	_ Table = (*Store[CommonPoint, *CommonPoint])(nil)
	_ Table = (*Store[Point, *Point])(nil)
	_ Table = (*Store[Result, *Result])(nil)
)

// NewStore returns a store holding a single blank record, so a UI always has
// one editable row.
func NewStore[R any, P Record[R]]() *Store[R, P] {
	return &Store[R, P]{
		records: make([]R, 1),
		guard:   make(chan struct{}, 1),
	}
}

func (s *Store[R, P]) Kind() SchemaKind {
	return kindOf[R, P]()
}

func (s *Store[R, P]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Records returns a copy of the stored records in order.
func (s *Store[R, P]) Records() []R {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]R, len(s.records))
	copy(out, s.records)
	return out
}

// Snapshot is Records as an untyped value, ready for JSON encoding.
func (s *Store[R, P]) Snapshot() any {
	return s.Records()
}

// IsEmpty reports whether every stored record is blank.
func (s *Store[R, P]) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isEmptyLocked()
}

func (s *Store[R, P]) isEmptyLocked() bool {
	for i := range s.records {
		if !isBlank[R, P](&s.records[i]) {
			return false
		}
	}
	return true
}

// Populate replaces the store's contents. An empty batch leaves one blank record.
func (s *Store[R, P]) Populate(records []R) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.populateLocked(records)
}

func (s *Store[R, P]) populateLocked(records []R) {
	if len(records) == 0 {
		s.records = make([]R, 1)
		return
	}
	s.records = make([]R, len(records))
	copy(s.records, records)
}

// PopulateJSON decodes a JSON array of records and populates the store with it.
// Returns the resulting store size.
func (s *Store[R, P]) PopulateJSON(data []byte) (int, error) {
	var records []R
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, fmt.Errorf("decode %s records: %w", s.Kind(), err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.populateLocked(records)
	return len(s.records), nil
}

// Merge upserts records by trimmed name and reports what changed.
//
// A record whose name matches a stored record (exact, case-sensitive, after
// trimming) overwrites that record's non-empty fields in place. Any other
// record is appended in batch order. Records with a blank name are always
// appended. Later duplicates inside the batch fold into the first one.
func (s *Store[R, P]) Merge(records []R) MergeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergeLocked(records)
}

func (s *Store[R, P]) mergeLocked(records []R) MergeResult {
	index := s.indexLocked()

	var res MergeResult
	for i := range records {
		key := P(&records[i]).Key()
		if key != "" {
			if pos, ok := index[key]; ok {
				P(&s.records[pos]).overlay(&records[i])
				res.Updated++
				continue
			}
			index[key] = len(s.records)
		}
		s.records = append(s.records, records[i])
		res.Appended++
	}
	return res
}

// PreviewMerge classifies a batch the way Merge would, without mutating the store.
func (s *Store[R, P]) PreviewMerge(records []R) MergeResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index := s.indexLocked()
	var res MergeResult
	for i := range records {
		key := P(&records[i]).Key()
		if key != "" {
			if _, ok := index[key]; ok {
				res.Updated++
				continue
			}
			index[key] = -1
		}
		res.Appended++
	}
	return res
}

// indexLocked maps each non-blank key to the position of its first occurrence.
func (s *Store[R, P]) indexLocked() map[string]int {
	index := make(map[string]int, len(s.records))
	for i := range s.records {
		key := P(&s.records[i]).Key()
		if key == "" {
			continue
		}
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}
	return index
}

// ImportRows builds records from raw rows and applies them to the store.
//
// A store holding only blank rows, or ModeReplace, is reset before the batch
// is merged, so the blank placeholder row never survives an import. When no
// row yields a record the store is left untouched and ErrNoValidRows is
// returned.
func (s *Store[R, P]) ImportRows(rows [][]string, mapping Mapping, mode ImportMode) (ImportSummary, error) {
	if len(rows) == 0 {
		return ImportSummary{}, &ImportError{Err: ErrEmptyInput}
	}

	records, report := Build[R, P](rows, mapping)
	summary := ImportSummary{BuildReport: report}
	if report.Kept == 0 {
		return summary, &ImportError{Err: ErrNoValidRows, Attempted: report.Attempted}
	}

	summary.MergeResult, summary.Replaced = s.Apply(records, mode)
	return summary, nil
}

// Apply merges already-built records. A store holding only blank rows, or
// ModeReplace, is reset first; the second return value reports that reset.
func (s *Store[R, P]) Apply(records []R, mode ImportMode) (MergeResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	if mode == ModeReplace || s.isEmptyLocked() {
		s.records = s.records[:0:0]
		replaced = true
	}
	res := s.mergeLocked(records)
	if len(s.records) == 0 {
		s.records = make([]R, 1)
	}
	return res, replaced
}

// PreviewRows runs the builder and a dry-run merge.
func (s *Store[R, P]) PreviewRows(rows [][]string, mapping Mapping) (BuildReport, MergeResult) {
	records, report := Build[R, P](rows, mapping)
	return report, s.PreviewMerge(records)
}

// AddRow appends a blank record and returns the new size.
func (s *Store[R, P]) AddRow() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero R
	s.records = append(s.records, zero)
	return len(s.records)
}

// Clear resets the store to a single blank record.
func (s *Store[R, P]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make([]R, 1)
}

// Export serializes the current contents.
func (s *Store[R, P]) Export(sep string, decimals int) (string, error) {
	return Serialize[R, P](s.Records(), sep, decimals)
}

// TryAcquireImport claims the store's import slot without blocking.
// Every successful call must be paired with ReleaseImport.
func (s *Store[R, P]) TryAcquireImport() bool {
	select {
	case s.guard <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Store[R, P]) ReleaseImport() {
	<-s.guard
}
