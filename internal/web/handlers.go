package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/CoordImport/internal/core"
)

// multipartMemory is how much of a multipart form is kept in memory.
const multipartMemory = 8 << 20

// handleHealth reports liveness plus session and import load.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":     "ok",
		"workspaces": s.service.WorkspaceCount(),
		"imports":    s.service.LimiterStatus(),
	})
}

// handleListSchemas returns the three record layouts.
func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, core.Schemas())
}

// handleGetSchema returns one record layout with its expected column count.
func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseSchemaKind(chi.URLParam(r, "kind"))
	if err != nil {
		respondError(w, r, err, http.StatusNotFound)
		return
	}

	schema := core.Lookup(kind)
	writeJSON(w, r, http.StatusOK, struct {
		core.Schema
		ExpectedColumns int      `json:"expectedColumns"`
		Header          []string `json:"header"`
	}{schema, schema.ExpectedColumns(), schema.Labels()})
}

// workspaceResponse describes a session and the size of each store.
type workspaceResponse struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	Stores    map[string]int `json:"stores"`
}

func newWorkspaceResponse(ws *core.Workspace) workspaceResponse {
	return workspaceResponse{
		ID:        ws.ID,
		CreatedAt: ws.CreatedAt,
		Stores: map[string]int{
			core.SchemaCommonPoint.String(): ws.Common.Len(),
			core.SchemaPoint.String():       ws.Points.Len(),
			core.SchemaResult.String():      ws.Results.Len(),
		},
	}
}

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	ws := s.service.CreateWorkspace(r.Context())
	w.Header().Set("Location", "/api/workspaces/"+ws.ID)
	writeJSON(w, r, http.StatusCreated, newWorkspaceResponse(ws))
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := s.service.Workspace(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, newWorkspaceResponse(ws))
}

func (s *Server) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteWorkspace(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// importBody is the JSON form of a preview or import request.
type importBody struct {
	Text string `json:"text"`

	// Assignments holds the slot index per raw column, -1 for not imported.
	// Omitted or null selects the positional auto-match.
	Assignments []int  `json:"assignments"`
	Mode        string `json:"mode"`
}

func (b importBody) request(ref storeRef) (core.ImportRequest, error) {
	mode, err := core.ParseImportMode(b.Mode)
	if err != nil {
		return core.ImportRequest{}, invalidRequest(err)
	}
	return core.ImportRequest{
		Workspace:   ref.Workspace,
		Kind:        ref.Kind,
		Text:        b.Text,
		Assignments: b.Assignments,
		Mode:        mode,
	}, nil
}

// handlePreview tokenizes pasted text and reports the proposed mapping and
// would-update / would-append counts without touching the store.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	ref, err := storeFromRequest(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	var body importBody
	if err := s.decodeBody(w, r, &body); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	req, err := body.request(ref)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	result, err := s.service.Preview(r.Context(), req)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleImport imports pasted text (JSON body) or an uploaded file
// (multipart form with "file", optional "assignments", "mode", "encoding").
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ref, err := storeFromRequest(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	var result *core.ImportResult
	if isMultipart(r) {
		result, err = s.importFile(w, r, ref)
	} else {
		result, err = s.importText(w, r, ref)
	}
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) importText(w http.ResponseWriter, r *http.Request, ref storeRef) (*core.ImportResult, error) {
	var body importBody
	if err := s.decodeBody(w, r, &body); err != nil {
		return nil, err
	}
	req, err := body.request(ref)
	if err != nil {
		return nil, err
	}
	return s.service.Import(r.Context(), req)
}

func (s *Server) importFile(w http.ResponseWriter, r *http.Request, ref storeRef) (*core.ImportResult, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.bodyLimit())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, bodyError(err, s.cfg.Import.MaxFileSize)
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, invalidRequest(errors.New("no file provided"))
	}
	defer file.Close()

	body := importBody{Mode: r.FormValue("mode")}
	if raw := strings.TrimSpace(r.FormValue("assignments")); raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &body.Assignments); err != nil {
			return nil, invalidRequest(fmt.Errorf("%w: assignments must be a JSON array of integers", core.ErrInvalidMapping))
		}
	}
	req, err := body.request(ref)
	if err != nil {
		return nil, err
	}

	requestLogger(r).Debug("file import", "filename", header.Filename, "size", header.Size)
	return s.service.ImportFile(r.Context(), req, file, r.FormValue("encoding"))
}

// handleRecords returns the ordered contents of one store.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	ref, err := storeFromRequest(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	records, err := s.service.Records(ref.Workspace, ref.Kind)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"schema":  ref.Kind,
		"records": records,
	})
}

// handlePopulate replaces a store with the JSON array in the body.
func (s *Server) handlePopulate(w http.ResponseWriter, r *http.Request) {
	ref, err := storeFromRequest(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.bodyLimit()))
	if err != nil {
		err = bodyError(err, s.cfg.Import.MaxFileSize)
		respondError(w, r, err, statusFor(err))
		return
	}

	size, err := s.service.Populate(r.Context(), ref.Workspace, ref.Kind, data)
	if err != nil {
		if !errors.Is(err, core.ErrWorkspaceNotFound) && !errors.Is(err, core.ErrImportInProgress) {
			err = invalidRequest(err)
		}
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int{"storeSize": size})
}

func (s *Server) handleAddRow(w http.ResponseWriter, r *http.Request) {
	ref, err := storeFromRequest(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	size, err := s.service.AddRow(ref.Workspace, ref.Kind)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]int{"storeSize": size})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	ref, err := storeFromRequest(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	if err := s.service.Clear(r.Context(), ref.Workspace, ref.Kind); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExport serializes a store. Query parameters "sep" (comma, tab,
// semicolon, space or one character) and "decimals" override the configured
// defaults; decimals=-1 keeps values as stored.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ref, err := storeFromRequest(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	sepName := r.URL.Query().Get("sep")
	if sepName == "" {
		sepName = s.cfg.Export.Separator
	}
	sep, err := core.ParseSeparator(sepName)
	if err != nil {
		err = invalidRequest(err)
		respondError(w, r, err, statusFor(err))
		return
	}

	decimals := s.cfg.Export.Decimals
	if v := r.URL.Query().Get("decimals"); v != "" {
		decimals, err = strconv.Atoi(v)
		if err != nil || decimals < -1 {
			err = invalidRequest(fmt.Errorf("invalid decimals %q", v))
			respondError(w, r, err, statusFor(err))
			return
		}
	}

	text, err := s.service.Export(ref.Workspace, ref.Kind, sep, decimals)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	contentType, ext := exportFormat(sep)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": ref.Kind.String() + ext,
	}))
	if _, err := io.WriteString(w, text); err != nil {
		requestLogger(r).Warn("export write failed", "error", err)
	}
}

func exportFormat(sep string) (contentType, ext string) {
	switch sep {
	case ",":
		return "text/csv; charset=utf-8", ".csv"
	case "\t":
		return "text/tab-separated-values; charset=utf-8", ".tsv"
	default:
		return "text/plain; charset=utf-8", ".txt"
	}
}

// transformBody carries the opaque parameters forwarded to the transform service.
type transformBody struct {
	Params json.RawMessage `json:"params"`
}

// handleTransform forwards common points and points to the transform
// service and merges the returned results into the result store.
func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	var body transformBody
	if err := s.decodeBody(w, r, &body); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, r, err, statusFor(err))
		return
	}

	result, err := s.service.Transform(r.Context(), chi.URLParam(r, "id"), body.Params)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// decodeBody decodes a size-limited JSON body into v.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.bodyLimit())
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return bodyError(err, s.cfg.Import.MaxFileSize)
	}
	return nil
}

// bodyLimit leaves room for JSON escaping and form framing around the text.
func (s *Server) bodyLimit() int64 {
	return s.cfg.Import.MaxFileSize + 1<<20
}

// bodyError classifies a body read or decode failure.
func bodyError(err error, limit int64) error {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return fmt.Errorf("%w: request body exceeds %d bytes", core.ErrFileTooLarge, limit)
	case errors.Is(err, io.EOF):
		return invalidRequest(fmt.Errorf("empty request body: %w", err))
	default:
		return invalidRequest(fmt.Errorf("decode request body: %w", err))
	}
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}
