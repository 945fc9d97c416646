package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS file_records (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	parent_id TEXT REFERENCES file_records(id),
	kind TEXT NOT NULL CHECK (kind IN ('file', 'directory')),
	content TEXT,
	updated_at TIMESTAMP NOT NULL
)`

// descendants selects the closure of an id: the node itself plus every
// record whose parent chain terminates at it. UNION (not UNION ALL) so a
// corrupted parent chain cannot make the recursion loop.
const descendants = `WITH RECURSIVE descendants(id) AS (
	SELECT id FROM file_records WHERE id = ?
	UNION
	SELECT f.id FROM file_records f JOIN descendants d ON f.parent_id = d.id
) SELECT id FROM descendants`

// Store is the durable, authoritative record store of the workspace.
type Store struct {
	db        *bun.DB
	ephemeral bool

	// 每次只允许一个写操作, 避免并发建文件时重名检查互相穿插
	mu sync.Mutex

	*log.Logger
}

// Open opens the sqlite database at path. When the file cannot be opened
// the store falls back to an in-memory database: degraded (nothing
// survives the process) but not fatal.
func Open(path string) *Store {
	logger := log.New(os.Stdout, "[store] ", log.LstdFlags)

	sqlDB, err := sql.Open("sqlite", path)
	if err == nil {
		err = sqlDB.Ping()
	}

	ephemeral := false
	if err != nil {
		logger.Printf("cannot open database at %s: %v", path, err)
		logger.Printf("falling back to in-memory store, records will not survive a restart")
		sqlDB, _ = sql.Open("sqlite", ":memory:")
		ephemeral = true
	}

	// modernc sqlite gives every connection its own :memory: database,
	// and on disk there is a single writer anyway
	sqlDB.SetMaxOpenConns(1)

	return &Store{
		db:        bun.NewDB(sqlDB, sqlitedialect.New()),
		ephemeral: ephemeral,
		Logger:    logger,
	}
}

// Ephemeral reports whether the store fell back to the in-memory database.
func (s *Store) Ephemeral() bool {
	return s.ephemeral
}

// Init ensures the schema exists. Safe to call more than once.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: init schema: %v", ErrPersistence, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// List returns every record, directories first, then alphabetical.
func (s *Store) List(ctx context.Context) ([]*FileRecord, error) {
	var records []*FileRecord
	err := s.db.NewSelect().
		Model(&records).
		OrderExpr("CASE kind WHEN 'directory' THEN 0 ELSE 1 END").
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrPersistence, err)
	}
	return records, nil
}

func (s *Store) get(ctx context.Context, id string) (*FileRecord, error) {
	record := new(FileRecord)
	err := s.db.NewSelect().Model(record).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrPersistence, id, err)
	}
	return record, nil
}

// GetContent returns the content of a file. Directories have none, so
// asking for one is a not-found, same as an unknown id.
func (s *Store) GetContent(ctx context.Context, id string) (string, error) {
	record, err := s.get(ctx, id)
	if err != nil {
		return "", err
	}
	if record.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrNotFound, id)
	}
	if record.Content == nil {
		return "", nil
	}
	return *record.Content, nil
}

// SaveContent replaces the content of a file.
func (s *Store) SaveContent(ctx context.Context, id string, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if record.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrNotFound, id)
	}

	_, err = s.db.NewUpdate().
		Model((*FileRecord)(nil)).
		Set("content = ?", content).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: save %s: %v", ErrPersistence, id, err)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is empty", ErrValidation)
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("%w: name %q contains a path separator", ErrValidation, name)
	}
	return nil
}

// checkParent verifies the target parent exists and is a directory.
// A nil parent is the root and is always fine.
func (s *Store) checkParent(ctx context.Context, parentID *string) error {
	if parentID == nil {
		return nil
	}
	parent, err := s.get(ctx, *parentID)
	if err != nil {
		return err
	}
	if !parent.IsDir() {
		return fmt.Errorf("%w: parent %s is not a directory", ErrValidation, *parentID)
	}
	return nil
}

// checkSibling rejects a second record with the same name under one
// parent: the sandbox mirror keys files by path, a duplicate would
// silently shadow its sibling there.
func (s *Store) checkSibling(ctx context.Context, parentID *string, name string, selfID string) error {
	q := s.db.NewSelect().
		Model((*FileRecord)(nil)).
		Where("name = ?", name).
		Where("id != ?", selfID)
	if parentID == nil {
		q = q.Where("parent_id IS NULL")
	} else {
		q = q.Where("parent_id = ?", *parentID)
	}

	exists, err := q.Exists(ctx)
	if err != nil {
		return fmt.Errorf("%w: sibling check: %v", ErrPersistence, err)
	}
	if exists {
		return fmt.Errorf("%w: %q already exists here", ErrValidation, name)
	}
	return nil
}

// Create inserts a new record and returns its freshly assigned id.
func (s *Store) Create(ctx context.Context, name string, parentID *string, kind string, content string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateName(name); err != nil {
		return "", err
	}
	if kind != KindFile && kind != KindDirectory {
		return "", fmt.Errorf("%w: unknown kind %q", ErrValidation, kind)
	}
	if err := s.checkParent(ctx, parentID); err != nil {
		return "", err
	}
	if err := s.checkSibling(ctx, parentID, name, ""); err != nil {
		return "", err
	}

	record := &FileRecord{
		ID:        uuid.NewString(),
		Name:      name,
		ParentID:  parentID,
		Kind:      kind,
		UpdatedAt: time.Now(),
	}
	if kind == KindFile {
		record.Content = &content
	}

	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return "", fmt.Errorf("%w: create %s: %v", ErrPersistence, name, err)
	}
	return record.ID, nil
}

// Rename changes a record's name and nothing else.
func (s *Store) Rename(ctx context.Context, id string, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateName(newName); err != nil {
		return err
	}
	record, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkSibling(ctx, record.ParentID, newName, id); err != nil {
		return err
	}

	_, err = s.db.NewUpdate().
		Model((*FileRecord)(nil)).
		Set("name = ?", newName).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: rename %s: %v", ErrPersistence, id, err)
	}
	return nil
}

// Move reparents a record. The new parent must not be the record itself
// or anything below it, otherwise the subtree would detach into a cycle.
func (s *Store) Move(ctx context.Context, id string, newParentID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkParent(ctx, newParentID); err != nil {
		return err
	}
	if newParentID != nil {
		closure, err := s.closure(ctx, id)
		if err != nil {
			return err
		}
		for _, descendant := range closure {
			if descendant == *newParentID {
				return fmt.Errorf("%w: cannot move %s under its own subtree", ErrValidation, id)
			}
		}
	}
	if err := s.checkSibling(ctx, newParentID, record.Name, id); err != nil {
		return err
	}

	_, err = s.db.NewUpdate().
		Model((*FileRecord)(nil)).
		Set("parent_id = ?", newParentID).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: move %s: %v", ErrPersistence, id, err)
	}
	return nil
}

func (s *Store) closure(ctx context.Context, id string) ([]string, error) {
	var ids []string
	if err := s.db.NewRaw(descendants, id).Scan(ctx, &ids); err != nil {
		return nil, fmt.Errorf("%w: closure of %s: %v", ErrPersistence, id, err)
	}
	return ids, nil
}

// Delete removes a record and its whole subtree in one statement, so a
// directory can never be removed while its children survive as orphans.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.NewRaw(
		`DELETE FROM file_records WHERE id IN (`+descendants+`)`, id,
	).Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrPersistence, id, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Reset drops every record. Destructive, meant for recovery and tests.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.NewDelete().Model((*FileRecord)(nil)).Where("1 = 1").Exec(ctx); err != nil {
		return fmt.Errorf("%w: reset: %v", ErrPersistence, err)
	}
	return nil
}
