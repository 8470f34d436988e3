// Package lamp はオペレーター向けのLED点滅シグナルを提供する
//
// 本体には小さなステータスLEDが1つだけあり、点滅回数で状態を伝える。
// 起動完了・シャッター・各種起動失敗をそれぞれ決まった回数の点滅で表す。
package lamp

import (
	"log"
	"os"
	"strings"
	"time"
)

// 点滅回数の定義
const (
	PulseReady      = 5 // 起動完了・終了の挨拶
	PulseSnap       = 1 // シャッターを切ったとき
	PulseCameraFail = 2 // カメラ初期化失敗
	PulseMountFail  = 3 // カードのマウント失敗
	PulseCardAbsent = 4 // カードが見つからない
)

// 点滅のタイミング
const (
	flashLen     = 200 * time.Millisecond  // 1回の点灯時間
	failInterval = 1000 * time.Millisecond // 失敗シグナルのグループ間隔
)

// Lamp はステータスLEDの抽象
type Lamp interface {
	// Pulse は指定回数LEDを点滅させる
	Pulse(count int)
}

// SysfsLamp はsysfs経由で実LEDを点滅させるLamp実装
type SysfsLamp struct {
	brightnessPath string
}

// NewSysfsLamp は新しいSysfsLampを作成する
// ledPath はLEDデバイスのディレクトリ（例: /sys/class/leds/red:status）
func NewSysfsLamp(ledPath string) *SysfsLamp {
	return &SysfsLamp{
		brightnessPath: strings.TrimRight(ledPath, "/") + "/brightness",
	}
}

// Pulse は指定回数LEDを点滅させる
func (l *SysfsLamp) Pulse(count int) {
	for i := 0; i < count; i++ {
		l.set("1")
		time.Sleep(flashLen)
		l.set("0")
		if i+1 < count {
			time.Sleep(flashLen)
		}
	}
}

// set はLEDの明るさを書き込む。失敗してもリクエスト処理には影響させない
func (l *SysfsLamp) set(value string) {
	if err := os.WriteFile(l.brightnessPath, []byte(value), 0644); err != nil {
		log.Printf("LEDの書き込みに失敗: %v", err)
	}
}

// LogLamp はログ出力のみのLamp実装（開発・テスト用）
type LogLamp struct{}

// Pulse は点滅の代わりにログへ出力する
func (l *LogLamp) Pulse(count int) {
	log.Printf("ランプ点滅: %d回", count)
}

// New は設定に応じたLampを作成する
func New(ledPath string) Lamp {
	if ledPath == "" {
		return &LogLamp{}
	}
	return NewSysfsLamp(ledPath)
}

// FailForever は致命的な起動失敗のシグナルを無限に繰り返す
// この関数から戻ることはない。ユーザーサービスは一切開始されない
func FailForever(l Lamp, count int) {
	for {
		l.Pulse(count)
		time.Sleep(failInterval)
	}
}
