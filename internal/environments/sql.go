package environments

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// RowsStem is the stem query results are stored in.
const RowsStem = "SQLROWS."

// ConnectionState is an open database connection with its transaction.
type ConnectionState struct {
	DB *sql.DB
	Tx *sql.Tx
}

// SQL sends commands to a database/sql driver.
//
//	CONNECT [dsn]   open a connection, DISCONNECT closes it
//	BEGIN, COMMIT, ROLLBACK
//	anything else   a statement; rows go to SQLROWS.
type SQL struct {
	Driver string
	DSN    string

	conn *ConnectionState
}

// NewSQL returns an environment for driver. A non-empty dsn is connected on
// first use.
func NewSQL(driver, dsn string) *SQL {
	return &SQL{Driver: driver, DSN: dsn}
}

func failure(err error) Reply {
	return Reply{RC: "-1", Status: Failure, Output: err.Error()}
}

func failed(err error) Reply {
	return Reply{RC: "-1", Status: Error, Output: err.Error()}
}

func (s *SQL) Handle(ctx context.Context, req Request) Reply {
	text := strings.TrimSpace(req.Command)
	verb, rest, _ := strings.Cut(text, " ")
	switch strings.ToUpper(verb) {
	case "CONNECT":
		dsn := strings.TrimSpace(rest)
		if dsn == "" {
			dsn = s.DSN
		}
		if err := s.connect(ctx, dsn); err != nil {
			return failure(err)
		}
		return Reply{RC: "0"}
	case "DISCONNECT":
		if err := s.Close(); err != nil {
			return failed(err)
		}
		return Reply{RC: "0"}
	}

	if s.conn == nil {
		if s.DSN == "" {
			return failure(fmt.Errorf("%s: not connected", s.Driver))
		}
		if err := s.connect(ctx, s.DSN); err != nil {
			return failure(err)
		}
	}
	sc := s.conn

	switch strings.ToUpper(verb) {
	case "BEGIN":
		if sc.Tx != nil {
			return failed(fmt.Errorf("transaction already in progress"))
		}
		tx, err := sc.DB.BeginTx(ctx, nil)
		if err != nil {
			return failed(err)
		}
		sc.Tx = tx
		return Reply{RC: "0"}
	case "COMMIT", "ROLLBACK":
		if sc.Tx == nil {
			return failed(fmt.Errorf("no transaction in progress"))
		}
		var err error
		if strings.EqualFold(verb, "COMMIT") {
			err = sc.Tx.Commit()
		} else {
			err = sc.Tx.Rollback()
		}
		sc.Tx = nil
		if err != nil {
			return failed(err)
		}
		return Reply{RC: "0"}
	}

	if returnsRows(text) {
		return s.query(ctx, req, text)
	}
	var result sql.Result
	var err error
	if sc.Tx != nil {
		result, err = sc.Tx.ExecContext(ctx, text)
	} else {
		result, err = sc.DB.ExecContext(ctx, text)
	}
	if err != nil {
		return failed(err)
	}
	affected, _ := result.RowsAffected()
	if req.Vars != nil {
		if err := req.Vars.Set(RowsStem+"0", "0"); err != nil {
			return failed(err)
		}
	}
	return Reply{RC: strconv.FormatInt(affected, 10)}
}

func (s *SQL) connect(ctx context.Context, dsn string) error {
	if s.conn != nil {
		s.Close()
	}
	db, err := sql.Open(s.Driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	if s.Driver == "sqlite3" {
		// an in-memory database lives in a single connection
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	slog.Debug("sql environment connected", slog.String("driver", s.Driver))
	s.conn = &ConnectionState{DB: db}
	return nil
}

// Close rolls back any open transaction and closes the connection.
func (s *SQL) Close() error {
	if s.conn == nil {
		return nil
	}
	sc := s.conn
	s.conn = nil
	if sc.Tx != nil {
		sc.Tx.Rollback()
	}
	return sc.DB.Close()
}

var rowVerbs = []string{"SELECT", "WITH", "PRAGMA", "SHOW", "EXPLAIN", "VALUES", "DESCRIBE"}

func returnsRows(text string) bool {
	upper := strings.ToUpper(text)
	for _, v := range rowVerbs {
		if strings.HasPrefix(upper, v) {
			return true
		}
	}
	return strings.Contains(upper, " RETURNING ")
}

func (s *SQL) query(ctx context.Context, req Request, text string) Reply {
	sc := s.conn
	var rows *sql.Rows
	var err error
	if sc.Tx != nil {
		rows, err = sc.Tx.QueryContext(ctx, text)
	} else {
		rows, err = sc.DB.QueryContext(ctx, text)
	}
	if err != nil {
		return failed(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return failed(err)
	}
	vars := req.Vars
	if vars == nil {
		return failed(fmt.Errorf("no variable pool for query results"))
	}
	if err := vars.Drop(RowsStem); err != nil {
		return failed(err)
	}
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = strings.ToUpper(col)
	}
	if err := vars.Set(RowsStem+"COLUMNS", strings.Join(names, " ")); err != nil {
		return failed(err)
	}

	n := 0
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return failed(err)
		}
		n++
		for i, col := range names {
			if err := vars.Set(RowsStem+strconv.Itoa(n)+"."+col, columnString(values[i])); err != nil {
				return failed(err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return failed(err)
	}
	if err := vars.Set(RowsStem+"0", strconv.Itoa(n)); err != nil {
		return failed(err)
	}
	return Reply{RC: "0"}
}

func columnString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case time.Time:
		return x.Format("2006-01-02 15:04:05")
	}
	return fmt.Sprint(v)
}
