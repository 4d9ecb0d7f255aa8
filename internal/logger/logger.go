package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New はprodならJSON、それ以外は開発向けのコンソールロガーを返す。
func New(env string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "prod":
		cfg = zap.NewProductionConfig()
	case "test":
		return zap.NewNop(), nil
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return cfg.Build()
}

// Install はグローバルに差し替えて、戻す関数を返す。
func Install(l *zap.Logger) func() {
	return zap.ReplaceGlobals(l)
}
