package counter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestOpenMissingFile はファイルがない場合に0から始まることをテストする
func TestOpenMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".imagecounter")

	s, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, uint16(0), s.Value())
	require.Equal(t, uint16(1), s.Next())
}

// TestCommitAndReopen はコミットした値が再起動後も復元されることをテストする
func TestCommitAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".imagecounter")

	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Commit(42))
	require.Equal(t, uint16(42), s.Value())

	// プロセス再起動に相当する再オープン
	s2, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, uint16(42), s2.Value())
	require.Equal(t, uint16(43), s2.Next())
}

// TestMonotonicSequence は連続コミットで番号が単調増加することをテストする
func TestMonotonicSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".imagecounter")

	s, err := Open(path)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		next := s.Next()
		require.Equal(t, s.Value()+1, next, "Nextは常に直前の値+1を返す")
		require.NoError(t, s.Commit(next))
		require.Equal(t, uint16(i), s.Value())
	}
}

// TestNextDoesNotCommit はNextがディスク上の値を変えないことをテストする
func TestNextDoesNotCommit(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".imagecounter")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Commit(7))

	_ = s.Next()
	_ = s.Next()

	s2, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, uint16(7), s2.Value())
}

// TestCommitFileFormat は状態ファイルが先頭2バイトのリトルエンディアンであることをテストする
func TestCommitFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".imagecounter")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Commit(0x0102))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte{0x02, 0x01}, data[:2])
}

// TestOpenCorruptFile は壊れた状態ファイルを0として扱うことをテストする
func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".imagecounter")
	require.NoError(t, os.WriteFile(path, []byte{0xFF}, 0644))

	s, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, uint16(0), s.Value())
}
