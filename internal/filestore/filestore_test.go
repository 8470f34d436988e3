package filestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNormalize はパスの正規化と検証をテストする
func TestNormalize(t *testing.T) {
	s := New(t.TempDir())

	testCases := []struct {
		name      string
		input     string
		expected  string
		expectErr bool
	}{
		{name: "空文字はルート", input: "", expected: "/"},
		{name: "ルート", input: "/", expected: "/"},
		{name: "通常のパス", input: "/photos/Image1.jpg", expected: "/photos/Image1.jpg"},
		{name: "先頭スラッシュの補完", input: "photos", expected: "/photos"},
		{name: "重複スラッシュの解決", input: "/a//b", expected: "/a/b"},
		{name: "カレント参照の解決", input: "/a/./b", expected: "/a/b"},
		{name: "末尾スラッシュの除去", input: "/a/b/", expected: "/a/b"},
		{name: "親参照は拒否", input: "/a/../b", expectErr: true},
		{name: "先頭の親参照も拒否", input: "../etc/passwd", expectErr: true},
		{name: "バックスラッシュは拒否", input: "\\a\\b", expectErr: true},
		{name: "NULは拒否", input: "/a\x00b", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.Normalize(tc.input)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, got)
		})
	}
}

// TestCreateEmpty はドット入りの名前が1バイトのファイルになることをテストする
func TestCreateEmpty(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	require.NoError(t, s.CreateEmpty("/a.b"))

	info, err := os.Stat(filepath.Join(root, "a.b"))
	require.NoError(t, err)
	require.False(t, info.IsDir())
	require.Equal(t, int64(1), info.Size(), "ゼロ1バイトが書き込まれる")
}

// TestMkdir はドットなしの名前がディレクトリになることをテストする
func TestMkdir(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	require.NoError(t, s.Mkdir("/a"))
	require.True(t, s.IsDir("/a"))

	// 既存パスへの作成は失敗する
	require.Error(t, s.Mkdir("/a"))
}

// TestWriteFile はバッファ全体の書き込みをテストする
func TestWriteFile(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	data := []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}
	written, err := s.WriteFile("/photos/Image1.jpg", data)
	require.NoError(t, err)
	require.Equal(t, len(data), written)

	// 親ディレクトリも作成される
	got, err := os.ReadFile(filepath.Join(root, "photos", "Image1.jpg"))
	require.NoError(t, err)
	require.Equal(t, data, got)
}

// TestRemoveRecursive は深さ優先の再帰削除をテストする
func TestRemoveRecursive(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	// ファイル1つと空のサブディレクトリを持つディレクトリを用意する
	require.NoError(t, s.Mkdir("/parent"))
	require.NoError(t, s.CreateEmpty("/parent/file.txt"))
	require.NoError(t, s.Mkdir("/parent/nested"))

	require.NoError(t, s.RemoveRecursive("/parent"))

	require.False(t, s.Exists("/parent"))
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Empty(t, entries, "ルートにエントリーが残らない")
}

// TestList はディレクトリ一覧の形と内容をテストする
func TestList(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	require.NoError(t, s.Mkdir("/dir1"))
	require.NoError(t, s.CreateEmpty("/file1.txt"))

	var entries []Entry
	err := s.List("/", func(e Entry) error {
		entries = append(entries, e)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byName := map[string]string{}
	for _, e := range entries {
		byName[e.Name] = e.Type
	}
	require.Equal(t, TypeDir, byName["/dir1"])
	require.Equal(t, TypeFile, byName["/file1.txt"])
}

// TestListEmpty は空ディレクトリの一覧が空であることをテストする
func TestListEmpty(t *testing.T) {
	s := New(t.TempDir())

	count := 0
	err := s.List("/", func(Entry) error {
		count++
		return nil
	})
	require.NoError(t, err)
	require.Zero(t, count)
}

// TestCheckMount はマウント確認の分類をテストする
func TestCheckMount(t *testing.T) {
	// 正常なルート
	s := New(t.TempDir())
	require.NoError(t, s.CheckMount())

	// 存在しないルートはマウント失敗
	s2 := New(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, s2.CheckMount(), ErrNotMounted)

	// ルートがファイルの場合もマウント失敗
	dir := t.TempDir()
	file := filepath.Join(dir, "notadir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	s3 := New(file)
	require.ErrorIs(t, s3.CheckMount(), ErrNotMounted)

	// ルートはあるが読み取れない場合はカードなし扱い
	// rootはパーミッションを無視して読めてしまうため再現できない
	if os.Geteuid() == 0 {
		t.Skip("rootでは読み取り拒否を再現できません")
	}
	locked := t.TempDir()
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { os.Chmod(locked, 0755) })
	s4 := New(locked)
	require.ErrorIs(t, s4.CheckMount(), ErrCardAbsent)
}

// TestOpen はファイルのオープンと情報取得をテストする
func TestOpen(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	data := []byte("hello")
	_, err := s.WriteFile("/hello.txt", data)
	require.NoError(t, err)

	f, info, err := s.Open("/hello.txt")
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, int64(len(data)), info.Size())

	// ルート外へ逃げるパスは開けない
	_, _, err = s.Open("/../secret")
	require.Error(t, err)
}
