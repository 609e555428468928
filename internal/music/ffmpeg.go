package music

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"slices"
	"strings"
	"sync"

	"github.com/hxnx/melodybot/internal/logger"
)

// FFmpegTranscoder runs ffmpeg and reads ogg/opus from its stdout.
type FFmpegTranscoder struct {
	mu  sync.RWMutex
	cfg TranscodeConfig
	log *slog.Logger
}

func NewFFmpegTranscoder(cfg TranscodeConfig) *FFmpegTranscoder {
	t := &FFmpegTranscoder{log: logger.Component("music")}
	t.SetConfig(cfg)
	return t
}

// SetConfig swaps the transcode record. Running streams keep their old one.
func (t *FFmpegTranscoder) SetConfig(cfg TranscodeConfig) {
	if strings.TrimSpace(cfg.Executable) == "" {
		cfg.Executable = DefaultTranscodeConfig().Executable
	}
	t.mu.Lock()
	t.cfg = cfg
	t.mu.Unlock()
}

func (t *FFmpegTranscoder) Config() TranscodeConfig {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cfg
}

func (t *FFmpegTranscoder) Spawn(ctx context.Context, desc StreamDescriptor, volume float64) (FrameStream, error) {
	cfg := t.Config()
	args := buildFFmpegArgs(cfg, desc, volume)

	cmd := exec.CommandContext(ctx, cfg.Executable, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	s := &ffmpegStream{
		cmd:       cmd,
		reader:    newOggOpusReader(stdout),
		stderrEOF: make(chan struct{}),
	}
	go s.drainStderr(stderr, t.log)
	return s, nil
}

// inputReconnectFlags keep a dropped media connection from ending the track.
var inputReconnectFlags = [][2]string{
	{"-reconnect", "1"},
	{"-reconnect_streamed", "1"},
}

func buildFFmpegArgs(cfg TranscodeConfig, desc StreamDescriptor, volume float64) []string {
	before := strings.Fields(cfg.BeforeOptions)
	var args []string
	for _, flag := range inputReconnectFlags {
		if !slices.Contains(before, flag[0]) {
			args = append(args, flag[0], flag[1])
		}
	}
	args = append(args, before...)
	if len(desc.Headers) > 0 {
		keys := make([]string, 0, len(desc.Headers))
		for k := range desc.Headers {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		var b strings.Builder
		for _, k := range keys {
			fmt.Fprintf(&b, "%s: %s\r\n", k, desc.Headers[k])
		}
		args = append(args, "-headers", b.String())
	}
	args = append(args,
		"-i", desc.URL,
		"-af", fmt.Sprintf("volume=%.2f", clampVolume(volume)),
	)
	args = append(args, strings.Fields(cfg.Options)...)
	args = append(args,
		"-c:a", "libopus",
		"-ar", "48000",
		"-ac", "2",
		"-frame_duration", "20",
		"-application", "audio",
		"-f", "ogg",
		"-loglevel", "warning",
		"pipe:1",
	)
	return args
}

type ffmpegStream struct {
	cmd    *exec.Cmd
	reader *oggOpusReader

	stderrEOF chan struct{}
	lastMu    sync.Mutex
	lastLine  string

	closeOnce sync.Once
	waitErr   error
}

func (s *ffmpegStream) ReadFrame() ([]byte, error) {
	return s.reader.ReadPacket()
}

// Close kills ffmpeg if it is still running and reports an abnormal exit.
func (s *ffmpegStream) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd.ProcessState == nil && s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		<-s.stderrEOF
		err := s.cmd.Wait()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && !exitErr.Exited() {
			// killed by us
			err = nil
		}
		if err != nil {
			if line := s.lastStderr(); line != "" {
				err = fmt.Errorf("%w (%s)", err, line)
			}
		}
		s.waitErr = err
	})
	return s.waitErr
}

func (s *ffmpegStream) drainStderr(r io.Reader, log *slog.Logger) {
	defer close(s.stderrEOF)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		log.Debug("ffmpeg", "line", line)
		s.lastMu.Lock()
		s.lastLine = line
		s.lastMu.Unlock()
	}
}

func (s *ffmpegStream) lastStderr() string {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	return s.lastLine
}
