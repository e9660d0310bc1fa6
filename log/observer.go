package log

import (
	"go.uber.org/zap/zapcore"

	"github.com/pithecene-io/cargoexec/format"
)

// MessageLogger records each decoded cargo message on a Logger.
// Progress records go to debug; diagnostics keep their compiler severity.
type MessageLogger struct {
	logger *Logger
}

// NewMessageLogger creates a MessageLogger writing to l.
func NewMessageLogger(l *Logger) *MessageLogger {
	return &MessageLogger{logger: l}
}

// Observe logs msg.
func (m *MessageLogger) Observe(msg format.Message) {
	switch v := msg.(type) {
	case *format.BuildFinished:
		m.logger.Debug("build finished", map[string]any{"success": v.Success})
	case *format.Artifact:
		m.logger.Debug("artifact", map[string]any{
			"package_id": string(v.PackageID),
			"target":     v.Target.Name,
			"kind":       v.Target.Kind,
			"filenames":  v.Filenames,
			"fresh":      v.Fresh,
		})
	case *format.FromCompiler:
		m.logger.Log(LevelFor(v.Message.Level), v.Message.Text(), map[string]any{
			"package_id": string(v.PackageID),
			"target":     v.Target.Name,
		})
	case *format.BuildScript:
		fields := map[string]any{"package_id": string(v.PackageID)}
		if v.OutDir != nil {
			fields["out_dir"] = *v.OutDir
		}
		m.logger.Debug("build script executed", fields)
	default:
		m.logger.Warn("unknown message", map[string]any{"reason": string(msg.Reason())})
	}
}

// LevelFor maps a compiler diagnostic level onto a log level.
// Unrecognized levels are logged as warnings.
func LevelFor(level format.DiagnosticLevel) zapcore.Level {
	switch level {
	case format.LevelICE, format.LevelError:
		return zapcore.ErrorLevel
	case format.LevelWarning:
		return zapcore.WarnLevel
	case format.LevelNote, format.LevelHelp, format.LevelFailureNote:
		return zapcore.InfoLevel
	default:
		return zapcore.WarnLevel
	}
}
