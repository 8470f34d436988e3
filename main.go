package main

import (
	"context"
	"errors"
	"log"
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
	// 設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// ステータスランプを初期化する
	statusLamp := lamp.New(cfg.Lamp.LEDPath)

	ctx := context.Background()

	// カメラセンサーを初期化する
	// 失敗したら致命的。シグナルを出し続けて、サービスは開始しない
	source := camera.NewV4L2Source(
		cfg.Camera.Device,
		cfg.Camera.Width, cfg.Camera.Height, cfg.Camera.Quality,
		cfg.Camera.HMirror, cfg.Camera.VFlip,
	)
	if err := source.Configure(ctx); err != nil {
		log.Printf("カメラの初期化に失敗しました: %v", err)
		lamp.FailForever(statusLamp, lamp.PulseCameraFail)
	}

	// カードのマウント状態を確認する
	store := filestore.New(cfg.Storage.Root)
	if err := store.CheckMount(); err != nil {
		log.Printf("ストレージの確認に失敗しました: %v", err)
		if errors.Is(err, filestore.ErrCardAbsent) {
			lamp.FailForever(statusLamp, lamp.PulseCardAbsent)
		}
		lamp.FailForever(statusLamp, lamp.PulseMountFail)
	}

	// 撮影画像の保存先を用意する
	if err := store.EnsureDir("/" + cfg.Storage.PhotoDir); err != nil {
		log.Printf("保存ディレクトリの作成に失敗しました: %v", err)
		lamp.FailForever(statusLamp, lamp.PulseMountFail)
	}

	// 画像カウンターを読み込む
	counterPath := filepath.Join(cfg.Storage.Root, cfg.Storage.CounterFile)
	ctr, err := counter.Open(counterPath)
	if err != nil {
		log.Printf("画像カウンターの読み込みに失敗しました: %v", err)
		lamp.FailForever(statusLamp, lamp.PulseMountFail)
	}
	log.Printf("最後に保存された画像は %s%d.jpg です", cfg.Storage.PhotoPrefix, ctr.Value())

	// サービス名の広告はネットワーク層の担当（ここでは名前を記録するだけ）
	log.Printf("サービス名: %s.local", cfg.Advertise.ServiceName)

	// サーバーを作成する
	srv := server.New(cfg, server.Deps{
		Store:   store,
		Counter: ctr,
		Source:  source,
		Lamp:    statusLamp,
		Metrics: metrics.New(),
	})

	// 準備完了の挨拶
	statusLamp.Pulse(lamp.PulseReady)
	log.Println("初期化が完了しました")

	// サーバーを起動する
	if err := srv.Start(ctx); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
