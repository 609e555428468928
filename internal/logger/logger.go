package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	debugColor = color.New(color.FgHiBlack)
	infoColor  = color.New(color.FgWhite)
	warnColor  = color.New(color.FgHiYellow)
	errorColor = color.New(color.FgHiRed)

	componentColors = map[string]*color.Color{
		"MUSIC":    color.New(color.FgHiMagenta),
		"VOICE":    color.New(color.FgHiCyan),
		"CACHE":    color.New(color.FgHiBlue),
		"BOT":      color.New(color.FgHiGreen),
		"DATABASE": color.New(color.FgHiBlack),
		"REDIS":    color.New(color.FgHiBlack),
	}

	initMu sync.Mutex
)

// Init installs the colored handler as the slog default.
func Init(level string, w io.Writer) *slog.Logger {
	initMu.Lock()
	defer initMu.Unlock()

	if w == nil {
		w = os.Stdout
	}

	l := slog.New(NewHandler(w, ParseLevel(level)))
	slog.SetDefault(l)
	return l
}

// ParseLevel maps LOG_LEVEL values onto slog levels, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Component returns a logger whose records are tagged with the given component.
func Component(name string) *slog.Logger {
	return slog.Default().With(slog.String("component", name))
}

type Handler struct {
	w     io.Writer
	level slog.Leveler
	attrs []slog.Attr
	mu    *sync.Mutex
}

func NewHandler(w io.Writer, level slog.Leveler) *Handler {
	return &Handler{
		w:     w,
		level: level,
		mu:    &sync.Mutex{},
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	levelStr, levelColor := levelStyle(r.Level)

	component := ""
	var fields []string
	collect := func(a slog.Attr) bool {
		if a.Key == "component" {
			component = strings.ToUpper(a.Value.String())
			return true
		}
		fields = append(fields, fmt.Sprintf("%s=%v", a.Key, a.Value.Any()))
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	var b strings.Builder
	b.WriteString(time.Now().Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(levelColor.Sprintf("[%s]", levelStr))
	if component != "" {
		c, ok := componentColors[component]
		if !ok {
			c = color.New(color.FgCyan)
		}
		b.WriteByte(' ')
		b.WriteString(c.Sprintf("[%s]", component))
	}
	b.WriteByte(' ')
	b.WriteString(r.Message)
	if len(fields) > 0 {
		b.WriteByte(' ')
		b.WriteString(debugColor.Sprint(strings.Join(fields, " ")))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &Handler{w: h.w, level: h.level, attrs: merged, mu: h.mu}
}

// WithGroup flattens groups; the console format has no nesting.
func (h *Handler) WithGroup(string) slog.Handler { return h }

func levelStyle(level slog.Level) (string, *color.Color) {
	switch {
	case level >= slog.LevelError:
		return "ERROR", errorColor
	case level >= slog.LevelWarn:
		return "WARN", warnColor
	case level >= slog.LevelInfo:
		return "INFO", infoColor
	default:
		return "DEBUG", debugColor
	}
}
