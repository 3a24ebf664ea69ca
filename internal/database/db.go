package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(user, pass, host, port, name))
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// DSN formats a go-sql-driver DSN via the driver's own Config, so
// credentials containing '@', ':' or '/' survive.  parseTime=true maps
// DATETIME to time.Time and loc=UTC keeps times consistent.
func DSN(user, pass, host, port, name string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = pass
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, port)
	cfg.DBName = name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Collation = "utf8mb4_general_ci"
	return cfg.FormatDSN()
}

const healthRecordsDDL = `CREATE TABLE IF NOT EXISTS health_records (
	id          VARCHAR(80)  NOT NULL PRIMARY KEY,
	owner_id    VARCHAR(255) NOT NULL,
	record_type VARCHAR(64)  NOT NULL,
	title       VARCHAR(512) NOT NULL,
	content     MEDIUMTEXT   NOT NULL,
	record_date VARCHAR(64)  NOT NULL,
	created_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
	KEY idx_health_records_owner (owner_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// EnsureSchema creates the health_records table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, healthRecordsDDL); err != nil {
		return fmt.Errorf("create health_records: %w", err)
	}
	return nil
}
