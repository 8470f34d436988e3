package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Camera    CameraConfig    `yaml:"camera"`
	Storage   StorageConfig   `yaml:"storage"`
	Lamp      LampConfig      `yaml:"lamp"`
	Advertise AdvertiseConfig `yaml:"advertise"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト
}

// CameraConfig はカメラセンサーの設定
type CameraConfig struct {
	Device  string `yaml:"device"`  // デバイスパス (例: /dev/video0)
	Width   int    `yaml:"width"`   // 画像幅
	Height  int    `yaml:"height"`  // 画像高さ
	Quality int    `yaml:"quality"` // JPEG品質 (ffmpegの-q:v、小さいほど高品質)

	// センサーの幾何設定（起動時に一度だけ適用する）
	HMirror bool `yaml:"hmirror"` // 左右反転
	VFlip   bool `yaml:"vflip"`   // 上下反転
}

// StorageConfig はSDカード（ファイルストア）の設定
type StorageConfig struct {
	Root        string `yaml:"root"`         // マウントされたカードのルート
	PhotoDir    string `yaml:"photo_dir"`    // 撮影画像を保存するサブディレクトリ
	PhotoPrefix string `yaml:"photo_prefix"` // 画像ファイル名の接頭辞
	CounterFile string `yaml:"counter_file"` // 画像カウンターの状態ファイル名
}

// LampConfig はオペレーター向けLED表示の設定
type LampConfig struct {
	// sysfsのLEDデバイスパス（例: /sys/class/leds/red:status）
	// 空の場合はログ出力のみのランプを使う
	LEDPath string `yaml:"led_path"`
}

// AdvertiseConfig はサービス広告（mDNS相当）の設定
type AdvertiseConfig struct {
	ServiceName string `yaml:"service_name"` // 広告するサービス名
}

// Load は設定を読み込む
// デフォルト値 → 設定ファイル（あれば） → 環境変数 の順で上書きする
func Load() (*Config, error) {
	// デフォルト設定を作成
	cfg := &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Camera: CameraConfig{
			Device:  "/dev/video0",
			Width:   1600,
			Height:  1200,
			Quality: 2,
			HMirror: true,
			VFlip:   true,
		},
		Storage: StorageConfig{
			Root:        "/mnt/sdcard",
			PhotoDir:    "photos",
			PhotoPrefix: "Image",
			CounterFile: ".imagecounter",
		},
		Lamp: LampConfig{
			LEDPath: "",
		},
		Advertise: AdvertiseConfig{
			ServiceName: "utsushie",
		},
	}

	// 設定ファイルがあれば読み込む
	path := getEnvOrDefault("CONFIG_PATH", "config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("設定ファイルの解析に失敗: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}

	// 環境変数で上書き
	cfg.Server.Host = getEnvOrDefault("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvAsIntOrDefault("PORT", cfg.Server.Port)
	cfg.Camera.Device = getEnvOrDefault("CAMERA_DEVICE", cfg.Camera.Device)
	cfg.Storage.Root = getEnvOrDefault("STORAGE_ROOT", cfg.Storage.Root)

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	// サーバー設定の検証
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	// カメラ設定の検証
	if c.Camera.Device == "" {
		return fmt.Errorf("カメラデバイスが設定されていません")
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("無効な解像度: %dx%d", c.Camera.Width, c.Camera.Height)
	}

	// ストレージ設定の検証
	if c.Storage.Root == "" {
		return fmt.Errorf("ストレージのルートが設定されていません")
	}
	if c.Storage.PhotoDir == "" {
		return fmt.Errorf("撮影画像の保存ディレクトリが設定されていません")
	}
	if c.Storage.CounterFile == "" {
		return fmt.Errorf("画像カウンターのファイル名が設定されていません")
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
