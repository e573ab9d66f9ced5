package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect SQL 方言
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ParseURL 根据 DATABASE_URL 选择驱动和 DSN
// postgres://... 使用 lib/pq; sqlite://path, file:path 或 :memory: 使用 modernc sqlite
func ParseURL(databaseURL string) (Dialect, string, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DialectPostgres, databaseURL, nil
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return DialectSQLite, strings.TrimPrefix(databaseURL, "sqlite://"), nil
	case strings.HasPrefix(databaseURL, "file:"), databaseURL == ":memory:":
		return DialectSQLite, databaseURL, nil
	}
	return "", "", fmt.Errorf("unsupported database url %q", databaseURL)
}

// Connect 连接到数据库
func Connect(databaseURL string) (*sql.DB, Dialect, error) {
	dialect, dsn, err := ParseURL(databaseURL)
	if err != nil {
		return nil, "", err
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}

	// 设置连接池
	if dialect == DialectSQLite {
		// sqlite 单写者, 且 :memory: 每个连接是独立的库
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}

	return db, dialect, nil
}

// Migrate 运行数据库迁移
func Migrate(db *sql.DB) error {
	migrations := []string{
		// 比赛快照表 (事件序列以 JSON 文本保存)
		`CREATE TABLE IF NOT EXISTS matches (
			id BIGINT PRIMARY KEY,
			home VARCHAR(100) NOT NULL,
			away VARCHAR(100) NOT NULL,
			score_home INTEGER NOT NULL DEFAULT 0,
			score_away INTEGER NOT NULL DEFAULT 0,
			minute INTEGER NOT NULL DEFAULT 0,
			status VARCHAR(20) NOT NULL DEFAULT 'NOT_STARTED',
			events TEXT NOT NULL DEFAULT '[]',
			stats TEXT NOT NULL DEFAULT '{}',
			updated_at BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Rebind 把 ? 占位符转换为方言对应的形式 (postgres 使用 $1, $2 ...)
func Rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
