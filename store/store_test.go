package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreCreateAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fileID, err := s.Create(ctx, "main.js", nil, KindFile, "console.log(1+1)")
	require.NoError(t, err)
	assert.NotEmpty(t, fileID)

	dirID, err := s.Create(ctx, "src", nil, KindDirectory, "")
	require.NoError(t, err)

	childID, err := s.Create(ctx, "a.js", &dirID, KindFile, "")
	require.NoError(t, err)

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// directories first, then alphabetical
	assert.Equal(t, "src", records[0].Name)
	assert.Equal(t, "a.js", records[1].Name)
	assert.Equal(t, "main.js", records[2].Name)

	require.NotNil(t, records[1].ParentID)
	assert.Equal(t, dirID, *records[1].ParentID)
	assert.Equal(t, childID, records[1].ID)
}

func TestStoreCreateValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t.Run("empty name", func(t *testing.T) {
		_, err := s.Create(ctx, "", nil, KindFile, "")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("path separator in name", func(t *testing.T) {
		_, err := s.Create(ctx, "a/b.js", nil, KindFile, "")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := s.Create(ctx, "a.js", nil, "symlink", "")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown parent", func(t *testing.T) {
		missing := "no-such-id"
		_, err := s.Create(ctx, "a.js", &missing, KindFile, "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("file as parent", func(t *testing.T) {
		fileID, err := s.Create(ctx, "plain.js", nil, KindFile, "")
		require.NoError(t, err)
		_, err = s.Create(ctx, "a.js", &fileID, KindFile, "")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("duplicate sibling name", func(t *testing.T) {
		_, err := s.Create(ctx, "dup.js", nil, KindFile, "")
		require.NoError(t, err)
		_, err = s.Create(ctx, "dup.js", nil, KindFile, "")
		assert.ErrorIs(t, err, ErrValidation)

		// same name in a different directory is fine
		dirID, err := s.Create(ctx, "other", nil, KindDirectory, "")
		require.NoError(t, err)
		_, err = s.Create(ctx, "dup.js", &dirID, KindFile, "")
		assert.NoError(t, err)
	})
}

func TestStoreContent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fileID, err := s.Create(ctx, "main.js", nil, KindFile, "hello")
	require.NoError(t, err)
	dirID, err := s.Create(ctx, "src", nil, KindDirectory, "")
	require.NoError(t, err)

	t.Run("get", func(t *testing.T) {
		content, err := s.GetContent(ctx, fileID)
		require.NoError(t, err)
		assert.Equal(t, "hello", content)
	})

	t.Run("get of a directory", func(t *testing.T) {
		_, err := s.GetContent(ctx, dirID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("get of an unknown id", func(t *testing.T) {
		_, err := s.GetContent(ctx, "no-such-id")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("save", func(t *testing.T) {
		require.NoError(t, s.SaveContent(ctx, fileID, "changed"))
		content, err := s.GetContent(ctx, fileID)
		require.NoError(t, err)
		assert.Equal(t, "changed", content)
	})

	t.Run("save to a directory", func(t *testing.T) {
		assert.ErrorIs(t, s.SaveContent(ctx, dirID, "x"), ErrNotFound)
	})
}

func TestStoreRename(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fileID, err := s.Create(ctx, "main.js", nil, KindFile, "")
	require.NoError(t, err)

	require.NoError(t, s.Rename(ctx, fileID, "index.js"))

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "index.js", records[0].Name)

	assert.ErrorIs(t, s.Rename(ctx, "no-such-id", "x.js"), ErrNotFound)
	assert.ErrorIs(t, s.Rename(ctx, fileID, ""), ErrValidation)

	_, err = s.Create(ctx, "taken.js", nil, KindFile, "")
	require.NoError(t, err)
	assert.ErrorIs(t, s.Rename(ctx, fileID, "taken.js"), ErrValidation)
}

func TestStoreMove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	srcID, err := s.Create(ctx, "src", nil, KindDirectory, "")
	require.NoError(t, err)
	nestedID, err := s.Create(ctx, "nested", &srcID, KindDirectory, "")
	require.NoError(t, err)
	fileID, err := s.Create(ctx, "a.js", &srcID, KindFile, "")
	require.NoError(t, err)

	t.Run("to root", func(t *testing.T) {
		require.NoError(t, s.Move(ctx, fileID, nil))
		records, err := s.List(ctx)
		require.NoError(t, err)
		for _, record := range records {
			if record.ID == fileID {
				assert.Nil(t, record.ParentID)
			}
		}
	})

	t.Run("children follow the moved directory", func(t *testing.T) {
		require.NoError(t, s.Move(ctx, fileID, &nestedID))
		require.NoError(t, s.Move(ctx, nestedID, nil))

		ids, err := s.closure(ctx, nestedID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{nestedID, fileID}, ids)
	})

	t.Run("under itself", func(t *testing.T) {
		assert.ErrorIs(t, s.Move(ctx, srcID, &srcID), ErrValidation)
	})

	t.Run("under its own descendant", func(t *testing.T) {
		require.NoError(t, s.Move(ctx, nestedID, &srcID))
		assert.ErrorIs(t, s.Move(ctx, srcID, &nestedID), ErrValidation)
	})

	t.Run("under a file", func(t *testing.T) {
		assert.ErrorIs(t, s.Move(ctx, srcID, &fileID), ErrValidation)
	})

	t.Run("unknown id", func(t *testing.T) {
		assert.ErrorIs(t, s.Move(ctx, "no-such-id", nil), ErrNotFound)
	})
}

func TestStoreDeleteSubtree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	srcID, err := s.Create(ctx, "src", nil, KindDirectory, "")
	require.NoError(t, err)
	nestedID, err := s.Create(ctx, "nested", &srcID, KindDirectory, "")
	require.NoError(t, err)
	_, err = s.Create(ctx, "deep.js", &nestedID, KindFile, "")
	require.NoError(t, err)
	keptID, err := s.Create(ctx, "kept.js", nil, KindFile, "")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, srcID))

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, keptID, records[0].ID)

	assert.ErrorIs(t, s.Delete(ctx, srcID), ErrNotFound)
}

func TestStoreReset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, "main.js", nil, KindFile, "")
	require.NoError(t, err)
	require.NoError(t, s.Reset(ctx))

	records, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestStoreEphemeralFallback(t *testing.T) {
	// 父路径是个文件, 数据库文件肯定建不出来
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0640))

	s := Open(filepath.Join(blocker, "test.db"))
	defer s.Close()

	assert.True(t, s.Ephemeral())

	// degraded mode still works end to end
	ctx := context.Background()
	require.NoError(t, s.Init(ctx))
	id, err := s.Create(ctx, "main.js", nil, KindFile, "hi")
	require.NoError(t, err)
	content, err := s.GetContent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hi", content)
}

func TestStoreDurable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s := Open(path)
	require.NoError(t, s.Init(ctx))
	assert.False(t, s.Ephemeral())
	id, err := s.Create(ctx, "main.js", nil, KindFile, "persisted")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// 重新打开, 记录还在
	s = Open(path)
	defer s.Close()
	require.NoError(t, s.Init(ctx))
	content, err := s.GetContent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "persisted", content)
}
