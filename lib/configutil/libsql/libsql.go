package libsql

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type Struct struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

// OpenDB opens the configured database and applies the given schema.
// The schema is expected to be idempotent, so applying it on every
// startup is safe.
func (config Struct) OpenDB(schema string) (*sql.DB, error) {
	db, err := config.open()
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (config Struct) open() (*sql.DB, error) {
	if config.Url == "" {
		// pragmas go in the dsn so every pooled connection gets them
		dsn := fmt.Sprintf(
			"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)",
			config.File,
		)
		return sql.Open("sqlite", dsn)
	}

	dsn := config.Url
	if config.AuthToken != "" {
		dsn = fmt.Sprintf("%s?authToken=%s", config.Url, config.AuthToken)
	}
	return sql.Open("libsql", dsn)
}
