package logger

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/processguard/processguard/internal/config"
)

// ProcessWriter captures a managed process's stdout/stderr and drives
// it through the ingestion pipeline (multiline join -> redaction ->
// JSON extraction -> level detection -> filters) before handing
// completed entries to the Log Store and, for anything warn-or-above,
// to the daemon's own structured logger.
type ProcessWriter struct {
	ProcessName string
	Stream      string // stdout or stderr

	Logger *slog.Logger
	store  *Store

	redactor      *Redactor
	multiline     *MultilineBuffer
	jsonParser    *JSONParser
	levelDetector *LevelDetector
	filters       *LogFilters

	buffer bytes.Buffer
}

// NewProcessWriter creates a ProcessWriter. cfg may be nil, in which
// case every pipeline stage is a no-op and lines pass through as-is.
func NewProcessWriter(logger *slog.Logger, store *Store, processName, stream string, cfg *config.LoggingConfig) (*ProcessWriter, error) {
	pw := &ProcessWriter{
		ProcessName: processName,
		Stream:      stream,
		Logger:      logger,
		store:       store,
	}

	if cfg == nil {
		return pw, nil
	}

	var err error
	pw.redactor, err = NewRedactor(cfg.Redaction)
	if err != nil {
		return nil, fmt.Errorf("failed to create redactor: %w", err)
	}

	pw.multiline, err = NewMultilineBuffer(cfg.Multiline)
	if err != nil {
		return nil, fmt.Errorf("failed to create multiline buffer: %w", err)
	}

	pw.jsonParser = NewJSONParser(cfg.JSON)

	pw.levelDetector, err = NewLevelDetector(cfg.LevelDetection)
	if err != nil {
		return nil, fmt.Errorf("failed to create level detector: %w", err)
	}

	pw.filters, err = NewLogFilters(cfg.Filters, cfg.MinLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create log filters: %w", err)
	}

	return pw, nil
}

// Write implements io.Writer.
func (pw *ProcessWriter) Write(p []byte) (n int, err error) {
	pw.buffer.Write(p)

	scanner := bufio.NewScanner(&pw.buffer)
	var remaining bytes.Buffer
	for scanner.Scan() {
		pw.processLine(scanner.Text())
	}

	if pw.multiline != nil && pw.multiline.ShouldFlush() {
		if entry := pw.multiline.Flush(); entry != "" {
			pw.processEntry(entry)
		}
	}

	if pw.buffer.Len() > 0 {
		remaining.Write(pw.buffer.Bytes())
	}
	pw.buffer = remaining

	return len(p), nil
}

func (pw *ProcessWriter) processLine(line string) {
	if pw.multiline != nil && pw.multiline.IsEnabled() {
		complete, entry := pw.multiline.Add(line)
		if !complete {
			return
		}
		if entry != "" {
			pw.processEntry(entry)
		}
		return
	}
	pw.processEntry(line)
}

// processEntry runs redaction -> JSON -> level detection -> filters,
// then appends the result to the Log Store and mirrors warn/error
// lines to the structured daemon logger.
func (pw *ProcessWriter) processEntry(entry string) {
	if pw.redactor != nil && pw.redactor.IsEnabled() {
		entry = pw.redactor.Redact(entry)
	}

	message := entry
	level := slog.LevelInfo

	if pw.jsonParser != nil && pw.jsonParser.IsEnabled() {
		if isJSON, data := pw.jsonParser.Parse(entry); isJSON {
			var attrs []slog.Attr
			message, level, attrs = pw.jsonParser.ToLogAttrs(data)
			if message == "" {
				message = entry
			}
			_ = attrs
		}
	}

	if pw.levelDetector != nil && pw.levelDetector.IsEnabled() && level == slog.LevelInfo {
		level = pw.levelDetector.Detect(entry)
	}

	if pw.filters != nil && !pw.filters.ShouldLog(entry, level) {
		return
	}

	if pw.store != nil {
		if err := pw.store.Append(pw.ProcessName, levelString(level), message); err != nil {
			pw.Logger.Warn("failed to append process log", "process", pw.ProcessName, "error", err)
		}
	}

	if level >= slog.LevelWarn {
		pw.Logger.Log(context.Background(), level, message, "process", pw.ProcessName, "stream", pw.Stream)
	}
}

func levelString(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelDebug && level < slog.LevelInfo:
		return "DEBUG"
	default:
		return "INFO"
	}
}

// Flush processes any bytes left in the internal buffer and emits the
// entry still held by the multiline buffer. Write already emits a
// trailing partial line as its own entry, so it is a pending multiline
// entry that would be lost if Flush were not called when the owning
// process exits.
func (pw *ProcessWriter) Flush() {
	if pw.buffer.Len() > 0 {
		line := pw.buffer.String()
		pw.buffer.Reset()
		if line != "" {
			pw.processLine(line)
		}
	}

	if pw.multiline != nil && pw.multiline.BufferSize() > 0 {
		if entry := pw.multiline.Flush(); entry != "" {
			pw.processEntry(entry)
		}
	}
}
