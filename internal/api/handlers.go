package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mlviz/internal/chart"
	"mlviz/internal/dataset"
	"mlviz/internal/models"
	"mlviz/internal/service"
	"mlviz/internal/state"
)

const (
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	// multipartMemory is how much of an upload ParseMultipartForm keeps in
	// memory before spilling to temp files.
	multipartMemory = 32 << 20
)

// Options configures a Handler.
type Options struct {
	UploadDir      string
	DownloadDir    string
	MaxFileSize    int64
	DBPreviewLimit int
	// NewDataSource returns an unconnected data source per request.
	NewDataSource func() service.DataSource
}

type Handler struct {
	logger     *slog.Logger
	dispatcher *chart.Dispatcher
	sessions   *state.Store

	uploadDir      string
	downloadDir    string
	maxFileSize    int64
	dbPreviewLimit int
	newDataSource  func() service.DataSource
}

func NewHandler(logger *slog.Logger, dispatcher *chart.Dispatcher, sessions *state.Store, opts Options) *Handler {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.DBPreviewLimit <= 0 {
		opts.DBPreviewLimit = 1000
	}
	if opts.NewDataSource == nil {
		opts.NewDataSource = func() service.DataSource { return &service.PostgresDataSource{} }
	}
	return &Handler{
		logger:         logger,
		dispatcher:     dispatcher,
		sessions:       sessions,
		uploadDir:      opts.UploadDir,
		downloadDir:    opts.DownloadDir,
		maxFileSize:    opts.MaxFileSize,
		dbPreviewLimit: opts.DBPreviewLimit,
		newDataSource:  opts.NewDataSource,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	r.Post("/upload", h.Upload)
	r.Get("/datasets/{uploadID}/columns", h.GetColumns)
	r.Post("/visualize", h.Visualize)
	r.Get("/download/{format}", h.Download)

	// Database import
	r.Post("/api/db/tables", h.ListTables)
	r.Post("/api/db/import", h.ImportTable)
}

// ============================================================================

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

// Upload stores a CSV under a fresh upload id and makes it the session's
// current dataset.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload", err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded", "")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		writeError(w, http.StatusBadRequest, "only CSV files are allowed", header.Filename)
		return
	}
	if header.Size > h.maxFileSize {
		writeError(w, http.StatusRequestEntityTooLarge, "file too large", fmt.Sprintf("limit is %d bytes", h.maxFileSize))
		return
	}

	id := uuid.NewString()
	path, err := h.saveUpload(id, file)
	if err != nil {
		h.logger.Error("failed to save upload", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save file", "")
		return
	}

	ds, err := dataset.LoadFile(path)
	if err != nil {
		os.Remove(path)
		writeError(w, http.StatusBadRequest, "failed to parse CSV", err.Error())
		return
	}

	if err := h.sessions.SetUploadID(w, r, id); err != nil {
		h.logger.Error("failed to save session", "error", err)
	}

	filename := filepath.Base(header.Filename)
	h.logger.Info("dataset uploaded", "upload_id", id, "filename", filename, "rows", ds.Len(), "columns", len(ds.Columns()))
	writeJSON(w, http.StatusOK, models.NewUploadResponse(id, filename, ds))
}

func (h *Handler) saveUpload(id string, src io.Reader) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", err
	}
	path := h.uploadPath(id)
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", err
	}
	return path, dst.Close()
}

func (h *Handler) uploadPath(id string) string {
	return filepath.Join(h.uploadDir, id+".csv")
}

// GetColumns describes the columns of an upload.
func (h *Handler) GetColumns(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uploadID")
	ds, ok := h.loadUpload(w, id)
	if !ok {
		return
	}

	numeric := ds.NumericColumns()
	if numeric == nil {
		numeric = []string{}
	}
	writeJSON(w, http.StatusOK, models.ColumnsResponse{
		UploadID:       id,
		Rows:           ds.Len(),
		ColumnNames:    ds.Columns(),
		NumericColumns: numeric,
		Columns:        ds.Profile(),
	})
}

// loadUpload reads an upload by id, writing the error response itself when
// it cannot.
func (h *Handler) loadUpload(w http.ResponseWriter, id string) (*dataset.Dataset, bool) {
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload id", id)
		return nil, false
	}
	ds, err := dataset.LoadFile(h.uploadPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, "upload not found", id)
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "failed to parse CSV", err.Error())
		return nil, false
	}
	return ds, true
}

// Visualize renders a chart inline and remembers the request for a later
// download.
func (h *Handler) Visualize(w http.ResponseWriter, r *http.Request) {
	req, err := decodeVisualizeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	kind, err := chart.ParseKind(req.ChartType)
	if err != nil {
		h.writeChartError(w, err)
		return
	}

	if req.UploadID == "" {
		id, ok := h.sessions.UploadID(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "no dataset uploaded", "")
			return
		}
		req.UploadID = id
	}
	ds, ok := h.loadUpload(w, req.UploadID)
	if !ok {
		return
	}

	res, err := h.dispatcher.Dispatch(ds, chart.Request{
		Spec: chart.Spec{Kind: kind, Features: req.Columns, Target: req.Target},
		Mode: chart.Inline,
	})
	if err != nil {
		h.writeChartError(w, err)
		return
	}

	if err := h.sessions.SetVizParams(w, r, state.VizParams{
		UploadID:  req.UploadID,
		ChartType: kind.String(),
		Columns:   req.Columns,
		Target:    req.Target,
	}); err != nil {
		h.logger.Error("failed to save session", "error", err)
	}

	writeJSON(w, http.StatusOK, models.VisualizeResponse{
		ChartType:   kind.String(),
		Image:       base64.StdEncoding.EncodeToString(res.Image),
		MIME:        res.Format.ContentType(),
		Points:      res.Points,
		Selection:   res.Selection,
		Regression:  res.Regression,
		Correlation: models.NewCorrelationMatrix(res.Correlation),
		Tree:        res.Tree,
	})
}

// decodeVisualizeRequest accepts a JSON body or form fields. Columns may
// be sent as repeated "columns" or "columns[]" fields.
func decodeVisualizeRequest(r *http.Request) (models.VisualizeRequest, error) {
	var req models.VisualizeRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err := json.NewDecoder(r.Body).Decode(&req)
		return req, err
	}

	if err := r.ParseForm(); err != nil {
		return req, err
	}
	req.UploadID = r.FormValue("upload_id")
	req.ChartType = r.FormValue("chart_type")
	req.Target = r.FormValue("target")
	req.Columns = append(r.Form["columns"], r.Form["columns[]"]...)
	return req, nil
}

// Download re-renders the session's last chart at file resolution and
// sends it as an attachment.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	format, err := chart.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unsupported format", err.Error())
		return
	}

	params, ok := h.sessions.VizParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "no visualization to download", "")
		return
	}
	kind, err := chart.ParseKind(params.ChartType)
	if err != nil {
		h.writeChartError(w, err)
		return
	}
	ds, ok := h.loadUpload(w, params.UploadID)
	if !ok {
		return
	}

	name := fmt.Sprintf("%s_%s%s", kind, uuid.NewString()[:8], format.Ext())
	res, err := h.dispatcher.Dispatch(ds, chart.Request{
		Spec:   chart.Spec{Kind: kind, Features: params.Columns, Target: params.Target},
		Mode:   chart.File,
		Format: format,
		Path:   filepath.Join(h.downloadDir, name),
	})
	if err != nil {
		h.writeChartError(w, err)
		return
	}

	h.logger.Info("chart downloaded", "kind", kind.String(), "format", string(format), "path", res.Path)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Write(res.Image)
}

// ListTables connects with the posted config and lists its tables
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	var req models.TablesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", err.Error())
		return
	}

	src := h.newDataSource()
	if err := src.Connect(r.Context(), req.Config); err != nil {
		writeError(w, http.StatusBadGateway, "failed to connect", err.Error())
		return
	}
	defer src.Close()

	tables, err := src.ListTables(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "error listing tables", err.Error())
		return
	}
	if tables == nil {
		tables = []string{}
	}
	writeJSON(w, http.StatusOK, models.TablesResponse{Tables: tables})
}

// ImportTable copies a table preview into a new upload
func (h *Handler) ImportTable(w http.ResponseWriter, r *http.Request) {
	var req models.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", err.Error())
		return
	}
	limit := req.Limit
	if limit <= 0 || limit > h.dbPreviewLimit {
		limit = h.dbPreviewLimit
	}

	src := h.newDataSource()
	if err := src.Connect(r.Context(), req.Config); err != nil {
		writeError(w, http.StatusBadGateway, "failed to connect", err.Error())
		return
	}
	defer src.Close()

	ds, err := src.PreviewData(r.Context(), req.Table, limit)
	if err != nil {
		var loadErr *dataset.LoadError
		switch {
		case errors.Is(err, service.ErrUnknownTable):
			writeError(w, http.StatusBadRequest, "unknown table", req.Table)
		case errors.As(err, &loadErr):
			writeError(w, http.StatusBadRequest, "table is empty", err.Error())
		default:
			writeError(w, http.StatusBadGateway, "error fetching data", err.Error())
		}
		return
	}

	id := uuid.NewString()
	if err := h.writeDataset(id, ds); err != nil {
		h.logger.Error("failed to save import", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save table", "")
		return
	}
	if err := h.sessions.SetUploadID(w, r, id); err != nil {
		h.logger.Error("failed to save session", "error", err)
	}

	filename := req.Table + ".csv"
	h.logger.Info("table imported", "upload_id", id, "table", req.Table, "rows", ds.Len(), "columns", len(ds.Columns()))
	writeJSON(w, http.StatusOK, models.NewUploadResponse(id, filename, ds))
}

func (h *Handler) writeDataset(id string, ds *dataset.Dataset) error {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(h.uploadPath(id))
	if err != nil {
		return err
	}
	if err := ds.WriteCSV(f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	return f.Close()
}

// ============================================================================

// writeChartError maps selection and chart failures to a status: problems
// with the caller's choice of columns or data are 400, the rest 500.
func (h *Handler) writeChartError(w http.ResponseWriter, err error) {
	var selErr *chart.SelectionError
	var chartErr *chart.ChartError
	switch {
	case errors.As(err, &selErr):
		h.logger.Warn("chart rejected", "kind", selErr.Kind.String(), "reason", string(selErr.Reason))
		writeError(w, http.StatusBadRequest, string(selErr.Reason), err.Error())
	case errors.As(err, &chartErr):
		h.logger.Warn("chart failed", "kind", chartErr.Kind.String(), "reason", string(chartErr.Reason), "error", err)
		status := http.StatusInternalServerError
		if chartErr.UserFacing() {
			status = http.StatusBadRequest
		}
		writeError(w, status, string(chartErr.Reason), err.Error())
	default:
		h.logger.Error("chart failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, reason, detail string) {
	writeJSON(w, status, models.ErrorResponse{Error: reason, Detail: detail})
}
