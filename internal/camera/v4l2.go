package camera

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"sync"
)

// V4L2Source はV4L2デバイスをシェルコマンド経由で扱うSource実装
type V4L2Source struct {
	devicePath string
	width      int
	height     int
	quality    int
	hmirror    bool
	vflip      bool

	// フレームバッファの貸し出し管理
	mu          sync.Mutex
	outstanding bool
}

// NewV4L2Source は新しいV4L2Sourceを作成する
func NewV4L2Source(devicePath string, width, height, quality int, hmirror, vflip bool) *V4L2Source {
	return &V4L2Source{
		devicePath: devicePath,
		width:      width,
		height:     height,
		quality:    quality,
		hmirror:    hmirror,
		vflip:      vflip,
	}
}

// Configure はデバイスの存在確認と幾何設定を行う
func (s *V4L2Source) Configure(ctx context.Context) error {
	if !s.IsAvailable(ctx) {
		return fmt.Errorf("カメラデバイス %s が利用できません", s.devicePath)
	}

	// センサーに左右反転・上下反転を指示する
	controls := map[string]int{}
	if s.hmirror {
		controls["horizontal_flip"] = 1
	}
	if s.vflip {
		controls["vertical_flip"] = 1
	}
	if err := s.setControls(ctx, controls); err != nil {
		// 反転設定の失敗は致命的ではない。像が反転したまま動き続ける
		log.Printf("センサーの反転設定に失敗: %v", err)
	}

	return nil
}

// IsAvailable はV4L2デバイスが利用可能かチェックする
func (s *V4L2Source) IsAvailable(ctx context.Context) bool {
	// v4l2-ctlコマンドでデバイス情報を取得して確認
	cmd := exec.CommandContext(ctx, "v4l2-ctl", "--device", s.devicePath, "--info")
	err := cmd.Run()
	return err == nil
}

// AcquireFrame は1フレームをキャプチャしてJPEGとして返す
func (s *V4L2Source) AcquireFrame(ctx context.Context) (*Frame, error) {
	s.mu.Lock()
	if s.outstanding {
		s.mu.Unlock()
		return nil, ErrFrameBusy
	}
	s.outstanding = true
	s.mu.Unlock()

	data, err := s.captureJPEG(ctx)
	if err != nil {
		// 取得に失敗したらバッファは貸し出されなかったことにする
		s.mu.Lock()
		s.outstanding = false
		s.mu.Unlock()
		return nil, err
	}

	return &Frame{Data: data}, nil
}

// ReleaseFrame はフレームバッファを返却する
func (s *V4L2Source) ReleaseFrame(f *Frame) {
	if f == nil {
		return
	}
	f.Data = nil

	s.mu.Lock()
	s.outstanding = false
	s.mu.Unlock()
}

// captureJPEG はffmpegを使って1フレームをJPEGとしてキャプチャする
func (s *V4L2Source) captureJPEG(ctx context.Context) ([]byte, error) {
	cmd := exec.CommandContext(ctx,
		"ffmpeg",
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", s.width, s.height),
		"-i", s.devicePath,
		"-vframes", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"-q:v", strconv.Itoa(s.quality),
		"-",
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("JPEGフレームキャプチャに失敗: %w (stderr: %s)", err, stderr.String())
	}

	if stdout.Len() == 0 {
		return nil, fmt.Errorf("カメラからフレームが得られませんでした")
	}

	return stdout.Bytes(), nil
}

// setControls はカメラのコントロールを設定する
func (s *V4L2Source) setControls(ctx context.Context, controls map[string]int) error {
	for control, value := range controls {
		cmd := exec.CommandContext(ctx, "v4l2-ctl",
			"--device", s.devicePath,
			"--set-ctrl", fmt.Sprintf("%s=%d", control, value))
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("コントロール %s の設定に失敗: %w", control, err)
		}
	}

	return nil
}
