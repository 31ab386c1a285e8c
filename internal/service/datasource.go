package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"

	"mlviz/internal/dataset"
)

// ErrUnknownTable is returned when a preview names a table that is not in
// the public schema.
var ErrUnknownTable = errors.New("unknown table")

// ErrNotConnected is returned when a DataSource is used before Connect.
var ErrNotConnected = errors.New("data source not connected")

// DataSourceConfig holds connection details
type DataSourceConfig struct {
	Type     string `json:"type"` // "postgres"
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"` // "disable", "require"
}

// DSN renders the config as a lib/pq key/value connection string.
func (c DataSourceConfig) DSN() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	port := c.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quoteDSN(c.Host), port, quoteDSN(c.User), quoteDSN(c.Password), quoteDSN(c.DBName), sslmode)
}

// quoteDSN quotes a connection string value when it needs it.
func quoteDSN(v string) string {
	if v != "" && !containsAny(v, ` '\`) {
		return v
	}
	out := []byte{'\''}
	for i := 0; i < len(v); i++ {
		if v[i] == '\'' || v[i] == '\\' {
			out = append(out, '\\')
		}
		out = append(out, v[i])
	}
	return string(append(out, '\''))
}

func containsAny(s, chars string) bool {
	for i := 0; i < len(s); i++ {
		for j := 0; j < len(chars); j++ {
			if s[i] == chars[j] {
				return true
			}
		}
	}
	return false
}

// DataSource defines the interface for data sources
type DataSource interface {
	Connect(ctx context.Context, config DataSourceConfig) error
	Close() error
	ListTables(ctx context.Context) ([]string, error)
	PreviewData(ctx context.Context, tableName string, limit int) (*dataset.Dataset, error)
}

// PostgresDataSource implements DataSource for PostgreSQL
type PostgresDataSource struct {
	db *sql.DB
}

// NewPostgresDataSource wraps an already open handle.
func NewPostgresDataSource(db *sql.DB) *PostgresDataSource {
	return &PostgresDataSource{db: db}
}

func (p *PostgresDataSource) Connect(ctx context.Context, config DataSourceConfig) error {
	if config.Type != "" && config.Type != "postgres" {
		return fmt.Errorf("unsupported data source type %q", config.Type)
	}

	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}

	p.db = db
	return nil
}

func (p *PostgresDataSource) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *PostgresDataSource) ListTables(ctx context.Context) ([]string, error) {
	if p.db == nil {
		return nil, ErrNotConnected
	}
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name;
	`
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, err
		}
		tables = append(tables, tableName)
	}
	return tables, rows.Err()
}

// PreviewData reads up to limit rows of a public table as a dataset. The
// table must appear in ListTables; NULLs become empty cells.
func (p *PostgresDataSource) PreviewData(ctx context.Context, tableName string, limit int) (*dataset.Dataset, error) {
	tables, err := p.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	found := false
	for _, t := range tables {
		if t == tableName {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTable, tableName)
	}
	if limit <= 0 {
		limit = 1000
	}

	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", pq.QuoteIdentifier(tableName), limit)
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records [][]string
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		record := make([]string, len(columns))
		for i, val := range values {
			record[i] = cellString(val)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return dataset.FromRecords(columns, records)
}

// cellString renders a scanned driver value the way it would appear in a
// CSV export.
func cellString(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case []byte:
		return string(v)
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
