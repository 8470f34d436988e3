// Package main はハードウェアなしでHTTPサーフェスを動かす開発用コマンドです
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"utsushie/internal/camera"
	"utsushie/internal/config"
	"utsushie/internal/counter"
	"utsushie/internal/filestore"
	"utsushie/internal/lamp"
	"utsushie/internal/metrics"
	"utsushie/internal/server"
)

func main() {
	// コマンドラインオプション
	var (
		host = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port = flag.Int("port", 0, "サーバーのポート (デフォルト: 8080)")
		root = flag.String("root", "", "カードの代わりに使うディレクトリ (デフォルト: 一時ディレクトリ)")
		help = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("Utsushie (開発モード)")
		fmt.Println()
		fmt.Println("実カメラ・実カードなしで、スタブのセンサーとローカルの")
		fmt.Println("ディレクトリを使ってHTTPサーフェス全体を動かします。")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *root != "" {
		cfg.Storage.Root = *root
	} else {
		dir, err := os.MkdirTemp("", "utsushie-dev-*")
		if err != nil {
			log.Fatalf("一時ディレクトリの作成に失敗しました: %v", err)
		}
		cfg.Storage.Root = dir
	}

	// スタブのセンサーとログ出力のランプで構成する
	store := filestore.New(cfg.Storage.Root)
	if err := store.EnsureDir("/" + cfg.Storage.PhotoDir); err != nil {
		log.Fatalf("保存ディレクトリの作成に失敗しました: %v", err)
	}

	ctr, err := counter.Open(filepath.Join(cfg.Storage.Root, cfg.Storage.CounterFile))
	if err != nil {
		log.Fatalf("画像カウンターの読み込みに失敗しました: %v", err)
	}

	srv := server.New(cfg, server.Deps{
		Store:   store,
		Counter: ctr,
		Source:  camera.NewStubSource(),
		Lamp:    &lamp.LogLamp{},
		Metrics: metrics.New(),
	})

	// サーバーを起動する
	log.Printf("Utsushie サーバーを起動します（開発モード）: %s", cfg.ServerAddress())
	log.Printf("ストレージ: %s", cfg.Storage.Root)
	if err := srv.Start(context.Background()); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
