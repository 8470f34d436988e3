// Package counter は撮影画像の通し番号を永続化する
//
// 番号はカード上の状態ファイルの先頭2バイト（リトルエンディアンのuint16）に
// 保存される。起動時に一度だけ読み込み、以降はメモリ上の値が正となる。
// コミットは撮影が成功したときの最後の耐久ステップとして行う。
package counter

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// Store は画像カウンターの永続ストア
type Store struct {
	path  string
	value uint16
}

// Open は状態ファイルを読み込んでStoreを作成する
// ファイルが存在しない場合はカウンター0として扱う
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("カウンターファイルの読み込みに失敗: %w", err)
	}
	if len(data) < 2 {
		// 壊れたファイルは0から数え直す
		return s, nil
	}

	s.value = binary.LittleEndian.Uint16(data[:2])
	return s, nil
}

// Value は最後にコミットされたカウンター値を返す
func (s *Store) Value() uint16 {
	return s.value
}

// Next は次に使う番号を返す。コミットはしない
func (s *Store) Next() uint16 {
	return s.value + 1
}

// Commit は値を耐久的に永続化し、成功したらメモリ上の値を更新する
// 一時ファイルへの書き込みとfsyncの後にrenameするため、途中でクラッシュしても
// 直前にコミットされた値が残る
func (s *Store) Commit(v uint16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".counter-*")
	if err != nil {
		return fmt.Errorf("一時ファイルの作成に失敗: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf[:]); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("カウンターの書き込みに失敗: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("カウンターの同期に失敗: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("一時ファイルのクローズに失敗: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("カウンターファイルの置き換えに失敗: %w", err)
	}

	// renameをディレクトリにも反映させる
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	s.value = v
	return nil
}
