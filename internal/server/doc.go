// Package server は、アプライアンスのHTTPサーフェスを管理します。
//
// このパッケージは、リクエストのディスパッチ、撮影と保存のパイプライン、
// カード上のファイル管理、パスからレスポンスへの解決を担当します。
//
// 責務:
//   - 固定ルートテーブルによるリクエストのディスパッチ
//   - 撮影 → カードへの保存 → カウンターのコミット → リダイレクト
//   - ファイルの一覧・作成・削除・アップロード
//   - コンテンツリゾルバによるファイル配信（MIME推定・ダウンロード指定）
//   - グレースフルシャットダウン
//
// 仕様:
//   - ルーティングはgin-gonic/ginを使用
//   - 状態を変えるハンドラは1つのミューテックスで直列化され、
//     常に1リクエストずつ完走する
//   - カウンターのコミットは画像ファイルの書き込み完了後に行う
package server
