// Package filestore はマウント済みSDカード上のファイル操作を担う
//
// # 責務
// - カードのマウント状態の確認
// - パスの正規化と範囲チェック（ルート外へのアクセス防止）
// - ファイルの読み書き・作成・削除・一覧取得
// - ディレクトリの再帰削除
//
// すべての公開操作はカードのルートからの相対パス（先頭 "/"）を受け取る。
package filestore

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// マウント確認の失敗分類
var (
	// ErrNotMounted はカードのルートが存在しない（マウント失敗）
	ErrNotMounted = errors.New("ストレージがマウントされていません")
	// ErrCardAbsent はルートはあるが読み取れない（カードが入っていない）
	ErrCardAbsent = errors.New("カードが見つかりません")
)

// エントリー種別
const (
	TypeFile = "file"
	TypeDir  = "dir"
)

// Entry はディレクトリ一覧の1エントリー
type Entry struct {
	Type string `json:"type"` // "file" または "dir"
	Name string `json:"name"` // ルートからのフルパス
}

// Store はカードのルートに固定されたファイルストア
type Store struct {
	root string
}

// New は新しいStoreを作成する
func New(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

// Root はストアのルートパスを返す
func (s *Store) Root() string {
	return s.root
}

// CheckMount はカードが使える状態かを確認する
func (s *Store) CheckMount() error {
	info, err := os.Stat(s.root)
	if err != nil || !info.IsDir() {
		return ErrNotMounted
	}

	// ルートが開けて読めることまで確認する
	f, err := os.Open(s.root)
	if err != nil {
		return ErrCardAbsent
	}
	defer f.Close()

	if _, err := f.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return ErrCardAbsent
	}

	return nil
}

// Normalize はパスを検証して正規化する
// 先頭 "/" を保証し、"/./" や "//" を解決する。".." は拒否する
func (s *Store) Normalize(raw string) (string, error) {
	if raw == "" {
		return "/", nil
	}
	if strings.Contains(raw, "\\") {
		return "", fmt.Errorf("バックスラッシュは使えません")
	}
	if strings.ContainsRune(raw, 0) {
		return "", fmt.Errorf("NUL文字は使えません")
	}

	p := raw
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	// path.Cleanは".."も解決してしまうため、先にセグメント単位で拒否する
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", fmt.Errorf("\"..\" セグメントは使えません")
		}
	}

	return path.Clean(p), nil
}

// abs は正規化済みパスをホスト側の絶対パスに変換する
func (s *Store) abs(normalized string) string {
	return filepath.Join(s.root, filepath.FromSlash(normalized))
}

// Exists はパスが存在するかチェックする
func (s *Store) Exists(p string) bool {
	n, err := s.Normalize(p)
	if err != nil {
		return false
	}
	_, err = os.Stat(s.abs(n))
	return err == nil
}

// IsDir はパスがディレクトリかチェックする
func (s *Store) IsDir(p string) bool {
	n, err := s.Normalize(p)
	if err != nil {
		return false
	}
	info, err := os.Stat(s.abs(n))
	return err == nil && info.IsDir()
}

// Open はファイルを読み取り用に開く
func (s *Store) Open(p string) (*os.File, os.FileInfo, error) {
	n, err := s.Normalize(p)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(s.abs(n))
	if err != nil {
		return nil, nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	return f, info, nil
}

// WriteFile はバッファ全体を1回で書き込む。書き込んだバイト数を返す
// 親ディレクトリが無ければ作成する
func (s *Store) WriteFile(p string, data []byte) (int, error) {
	n, err := s.Normalize(p)
	if err != nil {
		return 0, err
	}
	target := s.abs(n)

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return 0, fmt.Errorf("親ディレクトリの作成に失敗: %w", err)
	}

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, err
	}

	written, err := f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return written, fmt.Errorf("書き込みに失敗: %w", err)
	}

	return written, nil
}

// OpenWrite はファイルを書き込み用に開く（アップロード用）
// 既存ファイルは破棄される
func (s *Store) OpenWrite(p string) (*os.File, error) {
	n, err := s.Normalize(p)
	if err != nil {
		return nil, err
	}
	return os.OpenFile(s.abs(n), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
}

// CreateEmpty は空ファイルを作成する
// ゼロ1バイトを書き込んでからハンドルを閉じる
func (s *Store) CreateEmpty(p string) error {
	n, err := s.Normalize(p)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(s.abs(n), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write([]byte{0}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Mkdir はディレクトリを作成する
func (s *Store) Mkdir(p string) error {
	n, err := s.Normalize(p)
	if err != nil {
		return err
	}
	return os.Mkdir(s.abs(n), 0755)
}

// EnsureDir はディレクトリを（親ごと）作成する。既にあれば何もしない
func (s *Store) EnsureDir(p string) error {
	n, err := s.Normalize(p)
	if err != nil {
		return err
	}
	return os.MkdirAll(s.abs(n), 0755)
}

// Remove はファイルまたは空ディレクトリを削除する
func (s *Store) Remove(p string) error {
	n, err := s.Normalize(p)
	if err != nil {
		return err
	}
	return os.Remove(s.abs(n))
}

// RemoveRecursive はパスを再帰的に削除する
// ディレクトリは深さ優先で子から先に消す。個々の削除失敗はログに残して続行する
func (s *Store) RemoveRecursive(p string) error {
	n, err := s.Normalize(p)
	if err != nil {
		return err
	}
	s.removeRecursive(n)
	return nil
}

func (s *Store) removeRecursive(normalized string) {
	target := s.abs(normalized)

	info, err := os.Stat(target)
	if err != nil {
		log.Printf("削除対象の確認に失敗: %s: %v", normalized, err)
		return
	}

	if !info.IsDir() {
		if err := os.Remove(target); err != nil {
			log.Printf("ファイルの削除に失敗: %s: %v", normalized, err)
		}
		return
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		log.Printf("ディレクトリの読み取りに失敗: %s: %v", normalized, err)
		return
	}

	for _, entry := range entries {
		entryPath := path.Join(normalized, entry.Name())
		if entry.IsDir() {
			s.removeRecursive(entryPath)
		} else {
			if err := os.Remove(s.abs(entryPath)); err != nil {
				log.Printf("ファイルの削除に失敗: %s: %v", entryPath, err)
			}
		}
	}

	if err := os.Remove(target); err != nil {
		log.Printf("ディレクトリの削除に失敗: %s: %v", normalized, err)
	}
}

// List はディレクトリのエントリーを列挙順にコールバックへ渡す
// 並べ替えはしない。ファイルシステムの列挙順のまま返す
func (s *Store) List(p string, fn func(Entry) error) error {
	n, err := s.Normalize(p)
	if err != nil {
		return err
	}

	dir, err := os.Open(s.abs(n))
	if err != nil {
		return err
	}
	defer dir.Close()

	for {
		// ReadDir(n>0)は列挙順を保ったまま少しずつ読める
		entries, err := dir.ReadDir(16)
		for _, entry := range entries {
			typ := TypeFile
			if entry.IsDir() {
				typ = TypeDir
			}
			e := Entry{Type: typ, Name: path.Join(n, entry.Name())}
			if err := fn(e); err != nil {
				return err
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}

	return nil
}
