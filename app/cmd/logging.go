package cmd

import (
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lexcodex/codeagent/agents"
	"github.com/lexcodex/codeagent/framework"
)

// buildLogging creates the process logger and telemetry sinks. Console
// output goes to stderr so stdout stays clean for results; the optional log
// file receives JSON records. The returned cleanup flushes and closes all
// sinks.
func buildLogging(cfg agents.LoggingConfig, workspace string, verbose bool, stderr io.Writer) (*zap.Logger, framework.Telemetry, func(), error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, nil, err
		}
		level = parsed
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.TimeKey = ""
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.AddSync(stderr), level),
	}
	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}
	if cfg.File != "" {
		f, err := openInConfigDir(workspace, cfg.File)
		if err != nil {
			return nil, nil, nil, err
		}
		closers = append(closers, f)
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(f), level))
	}
	logger := zap.New(zapcore.NewTee(cores...))

	sinks := framework.MultiplexTelemetry{Sinks: []framework.Telemetry{
		framework.ZapTelemetry{Logger: logger.Named("telemetry")},
	}}
	if cfg.TelemetryFile != "" {
		path := resolveInConfigDir(workspace, cfg.TelemetryFile)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		jt, err := framework.NewJSONFileTelemetry(path)
		if err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		closers = append(closers, jt)
		sinks.Sinks = append(sinks.Sinks, jt)
	}

	cleanup := func() {
		_ = logger.Sync()
		closeAll()
	}
	return logger, sinks, cleanup, nil
}

// resolveInConfigDir anchors relative paths in the workspace config dir.
func resolveInConfigDir(workspace, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(agents.ConfigDir(workspace), path)
}

func openInConfigDir(workspace, path string) (*os.File, error) {
	path = resolveInConfigDir(workspace, path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
