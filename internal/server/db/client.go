package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/looplj/caseflow/internal/log"
)

// Client wraps an ent SQL driver. Statements are built with the
// dialect-aware builder returned by Builder.
type Client struct {
	driver  dialect.Driver
	db      *sql.DB
	dialect string
}

// driverName maps a configured dialect to the database/sql driver name and
// the ent dialect.
func driverName(name string) (string, string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "pgx", "postgresdb", "pg", "postgresql":
		return "pgx", dialect.Postgres, nil
	case "sqlite3", "sqlite", "":
		return "sqlite", dialect.SQLite, nil
	case "mysql", "tidb":
		return "mysql", dialect.MySQL, nil
	default:
		return "", "", fmt.Errorf("invalid dialect: %s", name)
	}
}

func NewClient(cfg Config) (*Client, error) {
	drvName, dbDialect, err := driverName(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(drvName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", drvName, err)
	}

	switch {
	case dbDialect == dialect.SQLite && strings.Contains(cfg.DSN, ":memory:"):
		// Every connection of an in-memory sqlite database is a new database.
		sqlDB.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	return Open(dbDialect, sqlDB, cfg.Debug), nil
}

// Open wraps an existing *sql.DB.
func Open(dbDialect string, sqlDB *sql.DB, debug bool) *Client {
	var drv dialect.Driver = entsql.OpenDB(dbDialect, sqlDB)
	if debug {
		drv = dialect.DebugWithContext(drv, func(ctx context.Context, v ...any) {
			log.Debug(ctx, "db: statement", log.Any("statement", v))
		})
	}

	return &Client{
		driver:  drv,
		db:      sqlDB,
		dialect: dbDialect,
	}
}

func (c *Client) Dialect() string {
	return c.dialect
}

func (c *Client) DB() *sql.DB {
	return c.db
}

// Builder returns a statement builder for the client dialect.
func (c *Client) Builder() *entsql.DialectBuilder {
	return entsql.Dialect(c.dialect)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.driver.Close()
}

// Conn returns the transaction bound to ctx, or the client driver.
func (c *Client) Conn(ctx context.Context) dialect.ExecQuerier {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}

	return c.driver
}

// Exec runs a statement produced by a builder.
func (c *Client) Exec(ctx context.Context, query string, args []any) (sql.Result, error) {
	var res sql.Result
	if err := c.Conn(ctx).Exec(ctx, query, args, &res); err != nil {
		return nil, err
	}

	return res, nil
}

// Query runs a query and hands the rows to scan. Rows are always closed.
func (c *Client) Query(ctx context.Context, query string, args []any, scan func(*entsql.Rows) error) error {
	var rows entsql.Rows
	if err := c.Conn(ctx).Query(ctx, query, args, &rows); err != nil {
		return err
	}

	defer rows.Close()

	if err := scan(&rows); err != nil {
		return err
	}

	return rows.Err()
}

// Count runs a COUNT query and returns the single integer result.
func (c *Client) Count(ctx context.Context, query string, args []any) (int, error) {
	var n int

	err := c.Query(ctx, query, args, func(rows *entsql.Rows) error {
		var err error

		n, err = entsql.ScanInt(rows)

		return err
	})

	return n, err
}
