package models

import (
	"math"

	"mlviz/internal/chart"
	"mlviz/internal/dataset"
	"mlviz/internal/service"
	"mlviz/internal/stats"
)

// UploadResponse is returned after a CSV upload or a database import
type UploadResponse struct {
	Message        string                  `json:"message"`
	UploadID       string                  `json:"upload_id"`
	Filename       string                  `json:"filename"`
	Rows           int                     `json:"rows"`
	Columns        int                     `json:"columns"`
	ColumnNames    []string                `json:"column_names"`
	NumericColumns []string                `json:"numeric_columns"`
	Profile        []dataset.ColumnProfile `json:"profile"`
}

// NewUploadResponse describes a freshly stored dataset.
func NewUploadResponse(id, filename string, ds *dataset.Dataset) UploadResponse {
	numeric := ds.NumericColumns()
	if numeric == nil {
		numeric = []string{}
	}
	return UploadResponse{
		Message:        "File '" + filename + "' uploaded successfully",
		UploadID:       id,
		Filename:       filename,
		Rows:           ds.Len(),
		Columns:        len(ds.Columns()),
		ColumnNames:    ds.Columns(),
		NumericColumns: numeric,
		Profile:        ds.Profile(),
	}
}

// ColumnsResponse for /datasets/{uploadID}/columns
type ColumnsResponse struct {
	UploadID       string                  `json:"upload_id"`
	Rows           int                     `json:"rows"`
	ColumnNames    []string                `json:"column_names"`
	NumericColumns []string                `json:"numeric_columns"`
	Columns        []dataset.ColumnProfile `json:"columns"`
}

// VisualizeRequest is the body of /visualize. UploadID falls back to the
// session's current upload when empty.
type VisualizeRequest struct {
	UploadID  string   `json:"upload_id"`
	ChartType string   `json:"chart_type"`
	Columns   []string `json:"columns"`
	Target    string   `json:"target"`
}

// VisualizeResponse carries the inline image and whatever statistics the
// chart computed.
type VisualizeResponse struct {
	ChartType   string             `json:"chart_type"`
	Image       string             `json:"image"`
	MIME        string             `json:"mime"`
	Points      int                `json:"points"`
	Selection   chart.Selection    `json:"selection"`
	Regression  *stats.LinearFit   `json:"regression,omitempty"`
	Correlation *CorrelationMatrix `json:"correlation,omitempty"`
	Tree        *chart.TreeSummary `json:"tree,omitempty"`
}

// CorrelationMatrix is the wire form of a correlation matrix. Undefined
// correlations are null.
type CorrelationMatrix struct {
	Columns []string     `json:"columns"`
	Values  [][]*float64 `json:"values"`
}

// NewCorrelationMatrix converts m, replacing NaN with null.
func NewCorrelationMatrix(m *stats.CorrelationMatrix) *CorrelationMatrix {
	if m == nil {
		return nil
	}
	out := &CorrelationMatrix{Columns: m.Columns, Values: make([][]*float64, len(m.Values))}
	for i, row := range m.Values {
		out.Values[i] = make([]*float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) {
				continue
			}
			v := v
			out.Values[i][j] = &v
		}
	}
	return out
}

// TablesRequest for /api/db/tables
type TablesRequest struct {
	Config service.DataSourceConfig `json:"config"`
}

// TablesResponse lists importable tables
type TablesResponse struct {
	Tables []string `json:"tables"`
}

// ImportRequest for /api/db/import
type ImportRequest struct {
	Config service.DataSourceConfig `json:"config"`
	Table  string                   `json:"table"`
	Limit  int                      `json:"limit"`
}

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
