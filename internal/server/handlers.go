package server

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"utsushie/internal/camera"
	"utsushie/internal/config"
	"utsushie/internal/counter"
	"utsushie/internal/filestore"
	"utsushie/internal/lamp"
	"utsushie/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler はリクエストハンドラ一式と共有状態を保持する
//
// muがすべての状態変更を直列化する。ハンドラは必ず1リクエストずつ
// 完走し、カウンターとファイルが同時に触られることはない
type Handler struct {
	config  *config.Config
	store   *filestore.Store
	counter *counter.Store
	source  camera.Source
	lamp    lamp.Lamp
	metrics *metrics.Metrics

	mu        sync.Mutex
	upload    *os.File // 進行中アップロードのファイルハンドル
	sessionID string
	startedAt time.Time
}

// NewHandler は新しいHandlerを作成する
func NewHandler(cfg *config.Config, deps Deps) *Handler {
	return &Handler{
		config:    cfg,
		store:     deps.Store,
		counter:   deps.Counter,
		source:    deps.Source,
		lamp:      deps.Lamp,
		metrics:   deps.Metrics,
		sessionID: uuid.New().String(),
		startedAt: time.Now(),
	}
}

// returnOK は200と空のボディを返す
func returnOK(c *gin.Context) {
	c.String(http.StatusOK, "")
}

// returnFail は500と短いメッセージを返す
func returnFail(c *gin.Context, msg string) {
	c.String(http.StatusInternalServerError, msg+"\r\n")
}

// firstArg はリクエストの最初の引数の値を返す
// 引数名は問わず、並び順で先頭のものを採用する。クエリを優先し、
// なければフォーム本文を見る
func firstArg(c *gin.Context) (string, bool) {
	if v, ok := firstPair(c.Request.URL.RawQuery); ok {
		return v, true
	}
	if c.ContentType() == "application/x-www-form-urlencoded" {
		if body, err := io.ReadAll(c.Request.Body); err == nil {
			return firstPair(string(body))
		}
	}
	return "", false
}

// firstPair はクエリ形式の文字列を先頭から走査し、最初のキー=値の値を返す
func firstPair(raw string) (string, bool) {
	for _, seg := range strings.Split(raw, "&") {
		kv := strings.SplitN(seg, "=", 2)
		if len(kv) != 2 || kv[0] == "" {
			continue
		}
		if v, err := url.QueryUnescape(kv[1]); err == nil {
			return v, true
		}
	}
	return "", false
}

// handleSnap は撮影してカードへ保存し、閲覧ページへリダイレクトする
//
// 順序が重要: 画像ファイルの書き込みが完了してからカウンターをコミットする。
// 途中でクラッシュしても「ファイルのない番号」は決して生まれず、最悪でも
// 次の撮影で上書きされる孤児ファイルが残るだけである
func (h *Handler) handleSnap(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// センサーから1フレーム取得する
	frame, err := h.source.AcquireFrame(c.Request.Context())
	if err != nil {
		log.Printf("撮影に失敗: %v", err)
		h.metrics.CaptureFailed()
		returnFail(c, "Camera capture failed.")
		return
	}

	// 次の番号から保存先のパスを決める（コミットはまだしない）
	next := h.counter.Next()
	imagePath := fmt.Sprintf("/%s/%s%d.jpg", h.config.Storage.PhotoDir, h.config.Storage.PhotoPrefix, next)

	// フレーム全体を1回で書き込む
	written, err := h.store.WriteFile(imagePath, frame.Data)
	if err != nil {
		log.Printf("画像ファイルの作成に失敗: %v", err)
		h.source.ReleaseFrame(frame)
		h.metrics.CaptureFailed()
		returnFail(c, "Unable to create the file for the image.")
		return
	}
	log.Printf("画像を保存しました: %s (%dバイト)", imagePath, written)

	// 書き込みが終わってから番号をコミットする
	if err := h.counter.Commit(next); err != nil {
		log.Printf("カウンターのコミットに失敗: %v", err)
		h.source.ReleaseFrame(frame)
		h.metrics.CaptureFailed()
		returnFail(c, "Unable to commit the image counter.")
		return
	}

	// 後片付け
	h.source.ReleaseFrame(frame)
	h.lamp.Pulse(lamp.PulseSnap)
	h.metrics.CaptureOK(written)

	// 新しい写真を表示するページへリダイレクトする
	c.Redirect(http.StatusFound, "/view.htm?image="+imagePath)
}

// handleList はディレクトリ一覧をJSON配列としてストリーム送信する
func (h *Handler) handleList(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	dir := c.Query("dir")
	if dir == "" {
		returnFail(c, "BAD ARGS")
		return
	}
	if dir != "/" && !h.store.Exists(dir) {
		returnFail(c, "BAD PATH")
		return
	}
	if !h.store.IsDir(dir) {
		returnFail(c, "NOT DIR")
		return
	}

	h.metrics.Edit("list")

	// 全体の長さは事前に分からないのでチャンク転送で送る
	c.Header("Content-Type", "text/json")
	c.Status(http.StatusOK)

	c.Writer.WriteString("[")
	cnt := 0
	err := h.store.List(dir, func(e filestore.Entry) error {
		out := ""
		if cnt > 0 {
			out = ","
		}
		// 名前に引用符が紛れてもJSONが壊れないようにエスケープする
		out += fmt.Sprintf(`{"type":"%s","name":%s}`, e.Type, strconv.Quote(e.Name))
		if _, err := c.Writer.WriteString(out); err != nil {
			return err
		}
		c.Writer.Flush()
		cnt++
		return nil
	})
	if err != nil {
		// レスポンスは始まってしまっているのでログに残すのみ
		log.Printf("一覧送信中のエラー: %v", err)
		return
	}
	c.Writer.WriteString("]")
}

// handleDelete はパスを再帰的に削除する
func (h *Handler) handleDelete(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := firstArg(c)
	if !ok {
		returnFail(c, "BAD ARGS")
		return
	}
	if p == "/" || !h.store.Exists(p) {
		returnFail(c, "BAD PATH")
		return
	}

	h.metrics.Edit("delete")
	if err := h.store.RemoveRecursive(p); err != nil {
		returnFail(c, "BAD PATH")
		return
	}
	returnOK(c)
}

// handleCreate は空ファイルまたはディレクトリを作成する
// "." を含む名前はファイル、含まない名前はディレクトリとして扱う
func (h *Handler) handleCreate(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := firstArg(c)
	if !ok {
		returnFail(c, "BAD ARGS")
		return
	}
	if p == "/" || h.store.Exists(p) {
		returnFail(c, "BAD PATH")
		return
	}

	h.metrics.Edit("create")
	if strings.Contains(p, ".") {
		if err := h.store.CreateEmpty(p); err != nil {
			log.Printf("ファイルの作成に失敗: %s: %v", p, err)
		}
	} else {
		if err := h.store.Mkdir(p); err != nil {
			log.Printf("ディレクトリの作成に失敗: %s: %v", p, err)
		}
	}
	returnOK(c)
}

// handleUpload はマルチパートのアップロードを受け付ける
//
// 確認応答は本文を読む前に送る。そのためアップロードの成否はHTTPステータス
// には反映されず、途中の失敗はログに残すだけになる
func (h *Handler) handleUpload(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// 本文の消費より先に200を確定させる
	returnOK(c)
	c.Writer.Flush()

	mr, err := c.Request.MultipartReader()
	if err != nil {
		log.Printf("マルチパート本文の解析に失敗: %v", err)
		return
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Printf("アップロード中のエラー: %v", err)
			h.uploadEnd()
			return
		}

		name := part.FileName()
		if name == "" {
			continue
		}

		// 開始フェーズ: 同名ファイルを消して新規に開く
		h.uploadStart(name)

		// データフェーズ: 受信したチャンクを順次書き込む
		buf := make([]byte, 32*1024)
		for {
			n, rerr := part.Read(buf)
			if n > 0 {
				h.uploadWrite(buf[:n])
			}
			if rerr != nil {
				break
			}
		}

		// 終了フェーズ: ハンドルを閉じる
		h.uploadEnd()
	}
}

// uploadStart はアップロード先のファイルを開く
// 開けなかった場合はハンドルなしのまま進み、以降の書き込みは黙って捨てられる
func (h *Handler) uploadStart(name string) {
	p := name
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	if h.store.Exists(p) {
		if err := h.store.Remove(p); err != nil {
			log.Printf("既存ファイルの削除に失敗: %s: %v", p, err)
		}
	}

	f, err := h.store.OpenWrite(p)
	if err != nil {
		log.Printf("アップロード先のオープンに失敗: %s: %v", p, err)
		h.upload = nil
		return
	}

	h.upload = f
	h.metrics.Edit("upload")
	log.Printf("アップロード開始: %s", p)
}

// uploadWrite は受信チャンクを書き込む。ハンドルが無ければ何もしない
func (h *Handler) uploadWrite(data []byte) {
	if h.upload == nil {
		return
	}
	if _, err := h.upload.Write(data); err != nil {
		log.Printf("アップロードの書き込みに失敗: %v", err)
	}
}

// uploadEnd はアップロードのファイルハンドルを閉じる
func (h *Handler) uploadEnd() {
	if h.upload == nil {
		return
	}
	if err := h.upload.Close(); err != nil {
		log.Printf("アップロードのクローズに失敗: %v", err)
	}
	h.upload = nil
}

// handleHealth はヘルスチェックエンドポイント
func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleStatus はシステム状態を返す
func (h *Handler) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "running",
		"session": h.sessionID,
		"server": gin.H{
			"host": h.config.Server.Host,
			"port": h.config.Server.Port,
		},
		"uptime_seconds":   int(time.Since(h.startedAt).Seconds()),
		"image_counter":    h.counter.Value(),
		"camera_available": h.source.IsAvailable(c.Request.Context()),
		"timestamp":        time.Now().Format(time.RFC3339),
	})
}

// handleNotFound はルートテーブルに無いパスの処理
// まずカード上のファイルとして解決を試み、駄目なら診断用404を返す
func (h *Handler) handleNotFound(c *gin.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.serveFromCard(c) {
		return
	}

	args := c.Request.URL.Query()
	message := "File Not Found\n\n"
	message += "URI: " + c.Request.URL.Path
	message += "\nMethod: " + c.Request.Method
	message += fmt.Sprintf("\nArguments: %d\n", len(args))
	for name, values := range args {
		for _, v := range values {
			message += " " + name + ": " + v + "\n"
		}
	}

	c.String(http.StatusNotFound, message)
}
