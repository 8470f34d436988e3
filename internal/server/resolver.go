package server

import (
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// suffixTypes は拡張子からMIMEタイプへの固定テーブル
// どれにも一致しない場合は text/plain になる
var suffixTypes = []struct {
	suffix   string
	dataType string
}{
	{".htm", "text/html"},
	{".html", "text/html"},
	{".css", "text/css"},
	{".js", "application/javascript"},
	{".png", "image/png"},
	{".gif", "image/gif"},
	{".jpg", "image/jpeg"},
	{".ico", "image/x-icon"},
	{".xml", "text/xml"},
	{".pdf", "application/pdf"},
	{".zip", "application/zip"},
}

// resolveType はパスからMIMEタイプを推定する
func resolveType(path string) string {
	for _, entry := range suffixTypes {
		if strings.HasSuffix(path, entry.suffix) {
			return entry.dataType
		}
	}
	return "text/plain"
}

// serveFromCard はリクエストパスをカード上のファイルとして解決して配信する
//
// "/"で終わるパスはindex.htmを補う。".src"で終わるパスは".src"を取り除いた
// ファイルをtext/plainとして配信する（バイナリや構造化ファイルを素のテキスト
// として覗くための仕掛け）。リクエストにdownload引数があれば、推定結果に
// かかわらずapplication/octet-streamとして配信する。
//
// カード上に見つからない場合は埋め込みのUI資産へフォールバックする。
// それでも見つからなければfalseを返し、呼び出し元が診断用404を送る
func (h *Handler) serveFromCard(c *gin.Context) bool {
	path := c.Request.URL.Path
	dataType := "text/plain"

	if strings.HasSuffix(path, "/") {
		path += "index.htm"
	}

	log.Printf("ファイルを配信します: %q", path)

	if strings.HasSuffix(path, ".src") {
		path = path[:strings.LastIndex(path, ".")]
	} else {
		dataType = resolveType(path)
	}

	file, info, err := h.store.Open(path)
	if err == nil && info.IsDir() {
		// ディレクトリが要求されたらその中のindex.htmに読み替える
		file.Close()
		path += "/index.htm"
		dataType = "text/html"
		file, info, err = h.store.Open(path)
	}

	forceDownload := c.Request.URL.Query().Has("download")

	if err != nil {
		// カードに無ければ埋め込みのUI資産を試す
		data, ok := embeddedAsset(path)
		if !ok {
			log.Printf("ファイル %q が見つかりません", path)
			return false
		}
		if forceDownload {
			dataType = "application/octet-stream"
		}
		c.Data(http.StatusOK, dataType, data)
		h.metrics.FileServed()
		return true
	}
	defer file.Close()

	if forceDownload {
		dataType = "application/octet-stream"
	}

	// 長さを宣言してからストリーム送信する
	c.Header("Content-Type", dataType)
	c.Header("Content-Length", strconv.FormatInt(info.Size(), 10))
	c.Status(http.StatusOK)

	sent, err := io.Copy(c.Writer, file)
	if err != nil || sent != info.Size() {
		// レスポンスは既に始まっているため、不一致は診断ログに残すのみ
		log.Printf("送信バイト数の不一致: %dバイトのはずが%dバイト送信 (%v)", info.Size(), sent, err)
	}

	h.metrics.FileServed()
	return true
}
