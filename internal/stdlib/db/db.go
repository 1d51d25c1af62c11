// Package db wraps database/sql as a foreign object, so script code can
// open a connection and run queries against SQLite, Postgres, MySQL, or
// SQL Server without any of those drivers leaking into the core VM.
// Grounded on the teacher's internal/database/db_manager.go DBManager/
// DBConn (same driver dispatch table, same connection-pool settings),
// collapsed from a manager keyed by connection id into one foreign object
// per open connection, matching how spec.md's foreign objects are handed
// back to script as an opaque value rather than looked up by name.
package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"hulascript/internal/foreign"
	"hulascript/internal/instance"
	"hulascript/internal/value"
)

// Register binds db_open(kind, dsn) as a global so script code can reach
// this package without the core VM ever importing database/sql.
func Register(in *instance.Instance) bool {
	open := in.MakeForeignFunction(func(args []value.Value, host foreign.Host) (value.Value, error) {
		if len(args) != 2 || args[0].Tag != value.String || args[1].Tag != value.String {
			return value.Value{}, fmt.Errorf("db_open(kind, dsn) requires two string arguments")
		}
		conn, err := Open(args[0].Str.Data, args[1].Str.Data)
		if err != nil {
			return value.Value{}, err
		}
		return in.AddForeignObject(conn), nil
	})
	return in.DeclareGlobal("db_open", open)
}

// driverFor maps a connection scheme to its registered database/sql
// driver name, the same table db_manager.go's Connect switches on,
// extended with postgres/mysql/mssql/sqlite3 (cgo) as alternates to the
// pure-Go sqlite/postgres/mysql drivers already wired elsewhere in the
// stack. "sqlite-pure" dispatches to modernc.org/sqlite's cgo-free
// driver, the default for an in-memory connection an embedder opens
// without a cgo toolchain available; "sqlite"/"sqlite3" still dispatch
// to mattn/go-sqlite3 for callers that already depend on cgo sqlite3's
// extension surface (loadable extensions, FTS5 tokenizers).
func driverFor(kind string) (string, bool) {
	switch kind {
	case "sqlite", "sqlite3":
		return "sqlite3", true
	case "sqlite-pure":
		return "sqlite", true
	case "postgres", "postgresql":
		return "postgres", true
	case "mysql":
		return "mysql", true
	case "mssql", "sqlserver":
		return "mssql", true
	default:
		return "", false
	}
}

// Methods is the stable method-id table Conn.CallMethod dispatches
// against.
var Methods = foreign.MethodTable{
	"query":       0,
	"exec":        1,
	"query_one":   2,
	"close":       3,
	"begin":       4,
}

// Conn is one open database connection, exposed to script as a foreign
// object returned by Open.
type Conn struct {
	foreign.Base
	kind string
	dsn  string
	db   *sql.DB
}

// Open connects to dsn under the given driver kind (sqlite/postgres/
// mysql/mssql), configuring the pool the way db_manager.go's Connect
// does, and returns the live connection.
func Open(kind, dsn string) (*Conn, error) {
	driver, ok := driverFor(kind)
	if !ok {
		return nil, fmt.Errorf("db: unsupported database type %q", kind)
	}
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db: failed to open %s: %w", kind, err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("db: failed to ping %s: %w", kind, err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return &Conn{Base: foreign.Base{TypeName: "db_connection"}, kind: kind, dsn: dsn, db: sqlDB}, nil
}

func (c *Conn) ToString() string { return fmt.Sprintf("<db connection %s>", c.kind) }

func (c *Conn) LoadProperty(nameHash uint64) (value.Value, bool) { return value.Value{}, false }

func (c *Conn) CallMethod(methodID uint32, args []value.Value, host foreign.Host) (value.Value, error) {
	switch methodID {
	case Methods["query"]:
		return c.query(args, host)
	case Methods["exec"]:
		return c.exec(args, host)
	case Methods["query_one"]:
		return c.queryOne(args, host)
	case Methods["close"]:
		return value.BoolValue(c.db.Close() == nil), nil
	case Methods["begin"]:
		return c.begin(args, host)
	default:
		return value.Value{}, fmt.Errorf("db: no such method id %d", methodID)
	}
}

func sqlArgs(args []value.Value) ([]interface{}, error) {
	out := make([]interface{}, len(args))
	for i, a := range args {
		switch a.Tag {
		case value.Number:
			out[i] = a.Num
		case value.String:
			out[i] = a.Str.Data
		case value.Boolean:
			out[i] = a.Bool
		case value.Nil:
			out[i] = nil
		default:
			return nil, fmt.Errorf("db: argument %d has unsupported type %s for a query parameter", i, a.TypeName())
		}
	}
	return out, nil
}

func (c *Conn) query(args []value.Value, host foreign.Host) (value.Value, error) {
	if len(args) == 0 || args[0].Tag != value.String {
		return value.Value{}, fmt.Errorf("db: query(sql, ...params) requires a string query")
	}
	params, err := sqlArgs(args[1:])
	if err != nil {
		return value.Value{}, err
	}
	rows, err := c.db.Query(args[0].Str.Data, params...)
	if err != nil {
		return value.Value{}, fmt.Errorf("db: query failed: %w", err)
	}
	defer rows.Close()
	return rowsToArray(rows, host)
}

func (c *Conn) queryOne(args []value.Value, host foreign.Host) (value.Value, error) {
	result, err := c.query(args, host)
	if err != nil {
		return value.Value{}, err
	}
	n, err := host.TableSize(result.DataID)
	if err != nil {
		return value.Value{}, err
	}
	if n == 0 {
		return value.NilValue(), nil
	}
	return host.TableAtIndex(result.DataID, 0)
}

func (c *Conn) exec(args []value.Value, host foreign.Host) (value.Value, error) {
	if len(args) == 0 || args[0].Tag != value.String {
		return value.Value{}, fmt.Errorf("db: exec(sql, ...params) requires a string query")
	}
	params, err := sqlArgs(args[1:])
	if err != nil {
		return value.Value{}, err
	}
	result, err := c.db.Exec(args[0].Str.Data, params...)
	if err != nil {
		return value.Value{}, fmt.Errorf("db: exec failed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return value.Value{}, err
	}
	return value.NumberValue(float64(affected)), nil
}

// begin runs a transaction around a single callback closure, committing
// if it returns normally and rolling back if it panics/errors -- the
// script-level analogue of db_manager.go's Transaction helper.
func (c *Conn) begin(args []value.Value, host foreign.Host) (value.Value, error) {
	if len(args) != 1 {
		return value.Value{}, fmt.Errorf("db: begin(callback) takes exactly one callback argument")
	}
	tx, err := c.db.Begin()
	if err != nil {
		return value.Value{}, fmt.Errorf("db: failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op after a successful Commit; covers a panicking callback
	result, callErr := host.Invoke(args[0], nil)
	if callErr != nil {
		tx.Rollback()
		return value.Value{}, callErr
	}
	if err := tx.Commit(); err != nil {
		return value.Value{}, fmt.Errorf("db: failed to commit transaction: %w", err)
	}
	return result, nil
}

// rowsToArray materializes a *sql.Rows result set as a script array of
// table-rows, one table per row keyed by column name -- the same shape
// db_manager.go's Query returns ([]map[string]interface{}), built through
// the Host's MakeTable/MakeArray allocators instead of a native Go map.
func rowsToArray(rows *sql.Rows, host foreign.Host) (value.Value, error) {
	columns, err := rows.Columns()
	if err != nil {
		return value.Value{}, err
	}
	values := make([]interface{}, len(columns))
	ptrs := make([]interface{}, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	var rowTables []value.Value
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return value.Value{}, err
		}
		row := make(map[string]value.Value, len(columns))
		for i, col := range columns {
			row[col] = sqlValueToScript(values[i], host)
		}
		rowTables = append(rowTables, host.MakeTable(row, true))
	}
	return host.MakeArray(rowTables, false), rows.Err()
}

func sqlValueToScript(v interface{}, host foreign.Host) value.Value {
	switch t := v.(type) {
	case nil:
		return value.NilValue()
	case []byte:
		return host.MakeString(string(t))
	case string:
		return host.MakeString(t)
	case int64:
		return value.NumberValue(float64(t))
	case float64:
		return value.NumberValue(t)
	case bool:
		return value.BoolValue(t)
	case time.Time:
		return host.MakeString(t.Format(time.RFC3339))
	default:
		return host.MakeString(fmt.Sprintf("%v", t))
	}
}

