// Package camera はカメラセンサーからの静止画取得を担う
//
// # 責務
// - センサーからの1フレーム取得（JPEGエンコード済み）
// - フレームバッファの貸し出しと返却の管理
// - センサーの幾何設定（左右反転・上下反転）の適用
// - デバイスの利用可否チェック
//
// # 仕様
// - 貸し出せるフレームバッファは常に1つだけ。返却せずに次の取得を
//   試みるとErrFrameBusyになる
// - キャプチャはffmpeg経由、センサー制御はv4l2-ctl経由で行う
//
// # 前提要件
//   - v4l-utils: デバイス確認とセンサー制御に使用
//     Ubuntu/Debian: sudo apt install v4l-utils
//   - ffmpeg: 画像キャプチャに使用
//     Ubuntu/Debian: sudo apt install ffmpeg
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
