package server

import (
	"embed"
	"strings"
)

// カードにUI資産が入っていない場合に使う埋め込みのフォールバック
//
//go:embed web
var webFS embed.FS

// embeddedAsset は埋め込み資産からパスに対応するファイルを探す
func embeddedAsset(path string) ([]byte, bool) {
	name := "web/" + strings.TrimPrefix(path, "/")
	data, err := webFS.ReadFile(name)
	if err != nil {
		return nil, false
	}
	return data, true
}
