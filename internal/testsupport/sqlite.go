// Package testsupport holds the sqlite and clock helpers shared by package tests.
package testsupport

import (
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// NewDB opens a private in-memory sqlite database with the review engine
// schema applied.
func NewDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})
	ApplyMigrations(t, db)
	return db
}

// ApplyMigrations runs every sqlite up migration in order.
func ApplyMigrations(t *testing.T, db *bun.DB) {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(migrationsDir(), "sqlite", "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	sort.Strings(files)
	for _, file := range files {
		content, err := os.ReadFile(file)
		require.NoError(t, err)
		for _, stmt := range SplitStatements(string(content)) {
			_, err := db.Exec(stmt)
			require.NoError(t, err, file)
		}
	}
}

// SplitStatements breaks a migration file into executable statements.
func SplitStatements(sql string) []string {
	lines := strings.Split(sql, "\n")
	var builder strings.Builder
	var statements []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		builder.WriteString(line)
		if strings.HasSuffix(line, ";") {
			statements = append(statements, strings.TrimSuffix(builder.String(), ";"))
			builder.Reset()
		} else {
			builder.WriteString(" ")
		}
	}
	if builder.Len() > 0 {
		statements = append(statements, builder.String())
	}
	return statements
}

func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "data", "sql", "migrations")
}

// Clock is a settable clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now.UTC()}
}

// Now implements types.Clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// SequenceIDs hands out predictable, increasing UUIDs.
type SequenceIDs struct {
	mu   sync.Mutex
	next uint64
}

// UUID implements types.IDGenerator.
func (s *SequenceIDs) UUID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return SeqID(s.next)
}

// SeqID builds the UUID a SequenceIDs generator returns for n. Ordering of
// SeqID values follows n, which keeps tie-break assertions readable.
func SeqID(n uint64) uuid.UUID {
	var id uuid.UUID
	for i := 0; i < 8; i++ {
		id[15-i] = byte(n >> (8 * i))
	}
	id[6] = 0x40
	id[8] = 0x80
	return id
}
