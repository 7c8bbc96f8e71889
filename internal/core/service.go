package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/CoordImport/internal/logging"
)

// Options tunes the service. Zero values select the defaults.
type Options struct {
	MaxFileSize   int64         // Raw upload limit in bytes
	Encoding      string        // Default charset of uploaded files
	LenientUTF8   bool          // Replace invalid UTF-8 instead of rejecting the file
	MaxConcurrent int           // Imports running at once across all workspaces
	MaxWaitTime   time.Duration // How long an import waits for a slot
	PreviewRows   int           // Rows returned by Preview
	SessionTTL    time.Duration // Idle time after which a workspace is dropped
}

const (
	DefaultMaxFileSize = 10 << 20
	DefaultPreviewRows = 20
	DefaultSessionTTL  = 2 * time.Hour
)

// Transformer is the remote coordinate transform service.
type Transformer interface {
	Transform(ctx context.Context, req TransformRequest) ([]Result, error)
}

// Workspace holds the three record stores of one operator session.
type Workspace struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	Common  *Store[CommonPoint, *CommonPoint] `json:"-"`
	Points  *Store[Point, *Point]             `json:"-"`
	Results *Store[Result, *Result]           `json:"-"`

	mu       sync.Mutex
	lastUsed time.Time
}

func newWorkspace(now time.Time) *Workspace {
	return &Workspace{
		ID:        uuid.New().String(),
		CreatedAt: now,
		Common:    NewStore[CommonPoint](),
		Points:    NewStore[Point](),
		Results:   NewStore[Result](),
		lastUsed:  now,
	}
}

// Table returns the store for kind. Panics on an unknown kind.
func (w *Workspace) Table(kind SchemaKind) Table {
	switch kind {
	case SchemaCommonPoint:
		return w.Common
	case SchemaPoint:
		return w.Points
	case SchemaResult:
		return w.Results
	default:
		panic(fmt.Sprintf("unsupported schema kind: %d", int(kind)))
	}
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastUsed = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastUsed
}

// Service owns the workspaces and runs the import pipeline.
type Service struct {
	opts    Options
	limiter *ImportLimiter
	remote  Transformer
	now     func() time.Time

	mu         sync.RWMutex
	workspaces map[string]*Workspace
}

// NewService creates a Service. remote may be nil, in which case Transform
// reports ErrTransformUnavailable.
func NewService(opts Options, remote Transformer) *Service {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = DefaultPreviewRows
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}

	return &Service{
		opts:       opts,
		limiter:    NewImportLimiter(opts.MaxConcurrent, opts.MaxWaitTime),
		remote:     remote,
		now:        time.Now,
		workspaces: make(map[string]*Workspace),
	}
}

// CreateWorkspace starts a new session with three single-blank-row stores.
func (s *Service) CreateWorkspace(ctx context.Context) *Workspace {
	ws := newWorkspace(s.now())

	s.mu.Lock()
	s.workspaces[ws.ID] = ws
	s.mu.Unlock()

	logging.FromContext(ctx).Info("workspace created", "workspace", ws.ID)
	return ws
}

// Workspace looks up a session and marks it as used.
func (s *Service) Workspace(id string) (*Workspace, error) {
	s.mu.RLock()
	ws, ok := s.workspaces[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWorkspaceNotFound, id)
	}
	ws.touch(s.now())
	return ws, nil
}

func (s *Service) DeleteWorkspace(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.workspaces[id]
	delete(s.workspaces, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrWorkspaceNotFound, id)
	}
	logging.FromContext(ctx).Info("workspace deleted", "workspace", id)
	return nil
}

func (s *Service) WorkspaceCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.workspaces)
}

// SweepIdle drops workspaces unused for longer than the session TTL and
// returns how many were removed.
func (s *Service) SweepIdle(now time.Time) int {
	cutoff := now.Add(-s.opts.SessionTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, ws := range s.workspaces {
		if ws.idleSince().Before(cutoff) {
			delete(s.workspaces, id)
			removed++
		}
	}
	return removed
}

// ImportRequest describes one preview or import of raw text into a store.
type ImportRequest struct {
	Workspace string
	Kind      SchemaKind
	Text      string

	// Assignments holds, per raw column, the slot it feeds or NotImported.
	// Nil selects the positional auto-match.
	Assignments []int
	Mode        ImportMode
}

// parsedInput is raw text after tokenizing, header removal and mapping.
type parsedInput struct {
	rows          [][]string
	headerSkipped bool
	mapping       Mapping
}

func parseInput(req ImportRequest) (*parsedInput, error) {
	rows := ParseRows(req.Text)
	if len(rows) == 0 {
		return nil, &ImportError{Err: ErrEmptyInput}
	}

	rows, skipped := StripHeader(rows, req.Kind)
	if len(rows) == 0 {
		return nil, &ImportError{Err: ErrNoValidRows, Reason: "input holds only a header line"}
	}

	var mapping Mapping
	if req.Assignments == nil {
		mapping = AutoMatch(rows, req.Kind)
	} else {
		m, err := Resolve(req.Kind, req.Assignments)
		if err != nil {
			return nil, err
		}
		mapping = m
	}

	return &parsedInput{rows: rows, headerSkipped: skipped, mapping: mapping}, nil
}

// Preview tokenizes text and reports the proposed mapping and what an import
// would do, without touching the store.
func (s *Service) Preview(ctx context.Context, req ImportRequest) (*PreviewResult, error) {
	ws, err := s.Workspace(req.Workspace)
	if err != nil {
		return nil, err
	}

	in, err := parseInput(req)
	if err != nil {
		return nil, err
	}

	preview := in.rows
	if len(preview) > s.opts.PreviewRows {
		preview = preview[:s.opts.PreviewRows]
	}
	columns := MaxColumns(preview)

	report, merge := ws.Table(req.Kind).PreviewRows(in.rows, in.mapping)

	logging.WithFields(ctx, "workspace", ws.ID, "schema", req.Kind.String()).Debug("import preview",
		"rows", len(in.rows),
		"columns", columns,
		"would_update", merge.Updated,
		"would_append", merge.Appended,
	)

	return &PreviewResult{
		Schema:        req.Kind,
		Slots:         FieldsFor(req.Kind),
		Columns:       columns,
		Rows:          preview,
		TotalRows:     len(in.rows),
		HeaderSkipped: in.headerSkipped,
		Mapping:       in.mapping,
		Assignments:   in.mapping.Assignments(columns),
		BuildReport:   report,
		Merge:         merge,
	}, nil
}

// Import runs the full pipeline: tokenize, strip header, map, build, merge.
//
// Only one import may run against a store at a time; a second one fails with
// ErrImportInProgress. A failed import leaves the store unchanged.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	ws, err := s.Workspace(req.Workspace)
	if err != nil {
		return nil, err
	}
	if req.Mode == "" {
		req.Mode = ModeMerge
	}

	importID := uuid.New().String()
	logger := logging.WithFields(ctx,
		"import_id", importID,
		"workspace", ws.ID,
		"schema", req.Kind.String(),
	)

	table := ws.Table(req.Kind)
	if !table.TryAcquireImport() {
		return nil, ErrImportInProgress
	}
	defer table.ReleaseImport()

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	in, err := parseInput(req)
	if err != nil {
		logger.Warn("import rejected", "error", err)
		return nil, err
	}

	summary, err := table.ImportRows(in.rows, in.mapping, req.Mode)
	if err != nil {
		logger.Warn("import produced no records",
			"mapped_slots", in.mapping.Assigned(),
			"attempted", summary.Attempted,
			"dropped", summary.Dropped,
			"error", err,
		)
		return nil, err
	}

	if summary.Truncated > 0 {
		logger.Warn("surplus columns ignored",
			"rows", summary.Truncated,
			"expected_columns", ExpectedColumnCount(req.Kind),
		)
	}

	size := table.Len()
	logger.Info("import completed",
		"mode", string(req.Mode),
		"mapped_slots", in.mapping.Assigned(),
		"attempted", summary.Attempted,
		"kept", summary.Kept,
		"dropped", summary.Dropped,
		"updated", summary.Updated,
		"appended", summary.Appended,
		"store_size", size,
	)

	return &ImportResult{
		ImportID:      importID,
		Workspace:     ws.ID,
		Schema:        req.Kind,
		HeaderSkipped: in.headerSkipped,
		Mapping:       in.mapping,
		ImportSummary: summary,
		StoreSize:     size,
	}, nil
}

// ImportFile decodes an uploaded file and imports its text. encoding
// overrides the configured default charset when non-empty.
func (s *Service) ImportFile(ctx context.Context, req ImportRequest, r io.Reader, encoding string) (*ImportResult, error) {
	if encoding == "" {
		encoding = s.opts.Encoding
	}

	text, err := Decode(r, DecodeOptions{
		Encoding: encoding,
		MaxSize:  s.opts.MaxFileSize,
		Lenient:  s.opts.LenientUTF8,
	})
	if err != nil {
		logging.WithFields(ctx, "workspace", req.Workspace).Warn("file decode failed", "error", err)
		return nil, err
	}

	req.Text = text
	return s.Import(ctx, req)
}

// Records returns a copy of a store's contents.
func (s *Service) Records(id string, kind SchemaKind) (any, error) {
	ws, err := s.Workspace(id)
	if err != nil {
		return nil, err
	}
	return ws.Table(kind).Snapshot(), nil
}

// Populate replaces a store's contents with a JSON array of records.
func (s *Service) Populate(ctx context.Context, id string, kind SchemaKind, data []byte) (int, error) {
	ws, err := s.Workspace(id)
	if err != nil {
		return 0, err
	}

	table := ws.Table(kind)
	if !table.TryAcquireImport() {
		return 0, ErrImportInProgress
	}
	defer table.ReleaseImport()

	n, err := table.PopulateJSON(data)
	if err != nil {
		return 0, err
	}
	logging.WithFields(ctx, "workspace", id, "schema", kind.String()).Info("store populated", "store_size", n)
	return n, nil
}

func (s *Service) AddRow(id string, kind SchemaKind) (int, error) {
	ws, err := s.Workspace(id)
	if err != nil {
		return 0, err
	}
	return ws.Table(kind).AddRow(), nil
}

// Clear resets a store to a single blank row.
func (s *Service) Clear(ctx context.Context, id string, kind SchemaKind) error {
	ws, err := s.Workspace(id)
	if err != nil {
		return err
	}

	table := ws.Table(kind)
	if !table.TryAcquireImport() {
		return ErrImportInProgress
	}
	defer table.ReleaseImport()

	table.Clear()
	logging.WithFields(ctx, "workspace", id, "schema", kind.String()).Info("store cleared")
	return nil
}

// Export serializes a store with the given separator and precision.
func (s *Service) Export(id string, kind SchemaKind, sep string, decimals int) (string, error) {
	ws, err := s.Workspace(id)
	if err != nil {
		return "", err
	}
	return ws.Table(kind).Export(sep, decimals)
}

// TransformResult reports a remote transform round trip.
type TransformResult struct {
	Sent     int `json:"sent"`
	Received int `json:"received"`
	MergeResult
	StoreSize int `json:"storeSize"`
}

// Transform sends the workspace's non-blank common points and points to the
// remote service and merges the returned results into the Result store.
func (s *Service) Transform(ctx context.Context, id string, params json.RawMessage) (*TransformResult, error) {
	if s.remote == nil {
		return nil, ErrTransformUnavailable
	}

	ws, err := s.Workspace(id)
	if err != nil {
		return nil, err
	}

	if !ws.Results.TryAcquireImport() {
		return nil, ErrImportInProgress
	}
	defer ws.Results.ReleaseImport()

	req := TransformRequest{
		CommonPoints: nonBlank(ws.Common.Records()),
		Points:       nonBlank(ws.Points.Records()),
		Params:       params,
	}

	logger := logging.WithFields(ctx, "workspace", ws.ID)
	results, err := s.remote.Transform(ctx, req)
	if err != nil {
		logger.Error("remote transform failed", "error", err)
		return nil, err
	}

	merge, _ := ws.Results.Apply(results, ModeMerge)
	res := &TransformResult{
		Sent:        len(req.CommonPoints) + len(req.Points),
		Received:    len(results),
		MergeResult: merge,
		StoreSize:   ws.Results.Len(),
	}

	logger.Info("remote transform merged",
		"sent", res.Sent,
		"received", res.Received,
		"updated", merge.Updated,
		"appended", merge.Appended,
	)
	return res, nil
}

// nonBlank drops records whose every slot is empty.
func nonBlank[R any, P Record[R]](records []R) []R {
	out := make([]R, 0, len(records))
	for i := range records {
		if !isBlank[R, P](&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}

// LimiterStatus reports global import capacity.
func (s *Service) LimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until in-flight imports finish or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
