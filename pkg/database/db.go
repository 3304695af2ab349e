package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Config struct {
	// Driver is "postgres" (lib/pq) or "pgx" (jackc/pgx stdlib).
	Driver         string
	DSN            string
	MaxConns       int
	Timeout        time.Duration
	TimeZone       string
	ClientEncoding string
}

// driverName maps config values onto registered database/sql drivers.
func (c Config) driverName() string {
	switch strings.ToLower(c.Driver) {
	case "pgx":
		return "pgx"
	default:
		return "postgres"
	}
}

// Connect opens a *sqlx.DB and verifies connectivity with a ping
func Connect(cfg Config) (*sqlx.DB, error) {
	driver := cfg.driverName()
	dsn, err := cfg.dataSource()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 5
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	// pgx and lib/pq both speak $n placeholders
	return sqlx.NewDb(db, "postgres"), nil
}

// dataSource adds the session settings to the DSN so every pooled connection
// starts with them. Both drivers accept URL and key=value forms and pass
// unknown keys on as runtime parameters.
func (c Config) dataSource() (string, error) {
	params := [][2]string{}
	if c.TimeZone != "" {
		params = append(params, [2]string{"timezone", c.TimeZone})
	}
	if c.ClientEncoding != "" {
		params = append(params, [2]string{"client_encoding", c.ClientEncoding})
	}
	if len(params) == 0 {
		return c.DSN, nil
	}

	if strings.Contains(c.DSN, "://") {
		u, err := url.Parse(c.DSN)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		q := u.Query()
		for _, p := range params {
			q.Set(p[0], p[1])
		}
		u.RawQuery = q.Encode()
		return u.String(), nil
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(c.DSN))
	for _, p := range params {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p[0] + "=" + quoteValue(p[1]))
	}
	return b.String(), nil
}

// quoteValue quotes a key=value DSN value, escaping backslashes and quotes.
func quoteValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
