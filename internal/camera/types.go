package camera

import (
	"context"
	"errors"
)

// ErrFrameBusy は前のフレームが返却されていないときに返される
var ErrFrameBusy = errors.New("フレームバッファが返却されていません")

// Frame はセンサーから取得した1枚のエンコード済み画像
type Frame struct {
	Data []byte // JPEG画像データ
}

// Size はフレームのバイト数を返す
func (f *Frame) Size() int {
	return len(f.Data)
}

// Source はカメラセンサーの抽象
type Source interface {
	// Configure はセンサーの初期化と幾何設定を行う（起動時に一度だけ呼ぶ）
	Configure(ctx context.Context) error

	// AcquireFrame は1フレームを取得する
	// 返却されていないフレームがある間は ErrFrameBusy を返す
	AcquireFrame(ctx context.Context) (*Frame, error)

	// ReleaseFrame は取得したフレームバッファを返却する
	ReleaseFrame(f *Frame)

	// IsAvailable はセンサーが利用可能かチェックする
	IsAvailable(ctx context.Context) bool
}
