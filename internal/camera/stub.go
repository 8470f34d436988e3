package camera

import (
	"context"
	"sync"
)

// StubSource はハードウェアなしで動くSource実装（開発・テスト用）
type StubSource struct {
	// FrameData は取得のたびに返す固定のJPEGデータ
	FrameData []byte
	// CaptureErr が設定されているとAcquireFrameは常にこのエラーを返す
	CaptureErr error

	mu          sync.Mutex
	outstanding bool
	captures    int
}

// 最小限の正しいJPEG（SOI + EOIマーカーのみ）
var stubJPEG = []byte{0xFF, 0xD8, 0xFF, 0xD9}

// NewStubSource は新しいStubSourceを作成する
func NewStubSource() *StubSource {
	return &StubSource{FrameData: stubJPEG}
}

// Configure は何もしない
func (s *StubSource) Configure(_ context.Context) error {
	return nil
}

// IsAvailable はエラーが注入されていない限りtrueを返す
func (s *StubSource) IsAvailable(_ context.Context) bool {
	return s.CaptureErr == nil
}

// AcquireFrame は固定データのフレームを返す
func (s *StubSource) AcquireFrame(_ context.Context) (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.CaptureErr != nil {
		return nil, s.CaptureErr
	}
	if s.outstanding {
		return nil, ErrFrameBusy
	}

	s.outstanding = true
	s.captures++

	data := make([]byte, len(s.FrameData))
	copy(data, s.FrameData)
	return &Frame{Data: data}, nil
}

// ReleaseFrame はフレームバッファを返却する
func (s *StubSource) ReleaseFrame(f *Frame) {
	if f == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.outstanding = false
}

// Captures はこれまでに取得されたフレーム数を返す（テスト用）
func (s *StubSource) Captures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captures
}
