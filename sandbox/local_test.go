package sandbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRuntimeFileOps(t *testing.T) {
	root := t.TempDir()
	runtime := NewLocalRuntimeAt(root, "sh")
	require.True(t, runtime.Ready())
	assert.Equal(t, root, runtime.Root())

	t.Run("write creates parents", func(t *testing.T) {
		require.NoError(t, runtime.WriteFile("src/nested/a.js", "content"))
		data, err := os.ReadFile(filepath.Join(root, "src", "nested", "a.js"))
		require.NoError(t, err)
		assert.Equal(t, "content", string(data))
	})

	t.Run("mkdir", func(t *testing.T) {
		require.NoError(t, runtime.MkdirAll("build/out"))
		info, err := os.Stat(filepath.Join(root, "build", "out"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rename across directories", func(t *testing.T) {
		require.NoError(t, runtime.Rename("src/nested/a.js", "build/a.js"))
		_, err := os.Stat(filepath.Join(root, "build", "a.js"))
		assert.NoError(t, err)
	})

	t.Run("remove subtree", func(t *testing.T) {
		require.NoError(t, runtime.Remove("build"))
		_, err := os.Stat(filepath.Join(root, "build"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("escaping paths rejected", func(t *testing.T) {
		assert.Error(t, runtime.WriteFile("", "x"))
		assert.Error(t, runtime.Remove("."))

		// ".." 会被 clean 掉, 写到的还是沙箱里面
		require.NoError(t, runtime.WriteFile("../escape.js", "x"))
		_, err := os.Stat(filepath.Join(root, "escape.js"))
		assert.NoError(t, err)
		_, err = os.Stat(filepath.Join(filepath.Dir(root), "escape.js"))
		assert.True(t, os.IsNotExist(err))
	})
}
