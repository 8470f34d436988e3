package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"utsushie/internal/camera"
	"utsushie/internal/config"
	"utsushie/internal/counter"
	"utsushie/internal/filestore"
	"utsushie/internal/lamp"
	"utsushie/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Deps はサーバーが利用する外部コンポーネント一式
type Deps struct {
	Store   *filestore.Store
	Counter *counter.Store
	Source  camera.Source
	Lamp    lamp.Lamp
	Metrics *metrics.Metrics
}

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	engine     *gin.Engine
	httpServer *http.Server
	handler    *Handler
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		config:  cfg,
		engine:  engine,
		handler: NewHandler(cfg, deps),
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	s.setupRoutes(deps.Metrics)
	return s
}

// setupRoutes はルートテーブルを設定する
// テーブルは起動時に固定され、実行中に変更されることはない
func (s *Server) setupRoutes(m *metrics.Metrics) {
	h := s.handler

	// ファイル管理
	s.engine.GET("/list", h.handleList)
	s.engine.DELETE("/edit", h.handleDelete)
	s.engine.PUT("/edit", h.handleCreate)
	s.engine.POST("/edit", h.handleUpload)

	// 撮影
	s.engine.GET("/snap", h.handleSnap)

	// 状態確認
	s.engine.GET("/healthz", h.handleHealth)
	s.engine.GET("/api/status", h.handleStatus)
	s.engine.GET("/metrics", gin.WrapH(m.Handler()))

	// どのルートにも一致しないパスはコンテンツリゾルバへ
	s.engine.NoRoute(h.handleNotFound)
}

// Start はサーバーを起動する
func (s *Server) Start(ctx context.Context) error {
	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		log.Printf("HTTPサーバーを起動しています: %s", s.config.ServerAddress())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		log.Println("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		log.Printf("シグナルを受信しました: %v", sig)
	case err := <-shutdownCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	log.Println("サーバーをシャットダウンしています...")

	// 5秒のタイムアウトを設定
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	log.Println("サーバーが正常にシャットダウンされました")
	return nil
}
