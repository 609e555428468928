package music

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var errDialTimeout = errors.New("voice handshake timed out")

type fakeHandle struct {
	mu          sync.Mutex
	channelID   string
	connected   bool
	moveErr     error
	frames      int
	speaking    bool
	disconnects int
}

func newFakeHandle(channelID string) *fakeHandle {
	return &fakeHandle{channelID: channelID, connected: true}
}

func (h *fakeHandle) ChannelID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.channelID
}

func (h *fakeHandle) IsConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

func (h *fakeHandle) Move(_ context.Context, channelID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.moveErr != nil {
		return h.moveErr
	}
	h.channelID = channelID
	return nil
}

func (h *fakeHandle) SendOpus(ctx context.Context, _ []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.connected {
		return errors.New("voice websocket closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	h.frames++
	return nil
}

func (h *fakeHandle) Speaking(speaking bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.speaking = speaking
	return nil
}

func (h *fakeHandle) Disconnect() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connected = false
	h.disconnects++
	return nil
}

func (h *fakeHandle) Drop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connected = false
}

func (h *fakeHandle) Frames() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames
}

// fakeTransport fails the first len(errs) dials with the queued errors.
type fakeTransport struct {
	mu      sync.Mutex
	errs    []error
	dials   int
	handles []*fakeHandle
	failAll error
}

func (t *fakeTransport) Connect(_ context.Context, _ string, channelID string) (VoiceHandle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dials++
	if t.failAll != nil {
		return nil, t.failAll
	}
	if len(t.errs) > 0 {
		err := t.errs[0]
		t.errs = t.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	h := newFakeHandle(channelID)
	t.handles = append(t.handles, h)
	return h, nil
}

func (t *fakeTransport) Dials() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func (t *fakeTransport) SetFailAll(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failAll = err
}

func (t *fakeTransport) Last() *fakeHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.handles) == 0 {
		return nil
	}
	return t.handles[len(t.handles)-1]
}

// fakeStream yields frames until its budget runs out. A blocking stream
// stays open until the spawn context ends, like a live ffmpeg process.
type fakeStream struct {
	mu     sync.Mutex
	frames int
	endErr error
	block  bool
	ctx    context.Context
	closed atomic.Bool
}

func (s *fakeStream) ReadFrame() ([]byte, error) {
	s.mu.Lock()
	if s.frames > 0 {
		s.frames--
		s.mu.Unlock()
		return []byte{0xF8, 0xFF, 0xFE}, nil
	}
	s.mu.Unlock()

	if s.block {
		<-s.ctx.Done()
		return nil, io.EOF
	}
	if s.endErr != nil {
		return nil, s.endErr
	}
	return nil, io.EOF
}

func (s *fakeStream) Close() error {
	s.closed.Store(true)
	return nil
}

type spawnCall struct {
	URL    string
	Volume float64
}

// fakeTranscoder hands out streams built by next; a nil stream with an error
// simulates a spawn failure.
type fakeTranscoder struct {
	mu    sync.Mutex
	calls []spawnCall
	next  func(call int) (*fakeStream, error)
}

func (f *fakeTranscoder) Spawn(ctx context.Context, desc StreamDescriptor, volume float64) (FrameStream, error) {
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, spawnCall{URL: desc.URL, Volume: volume})
	next := f.next
	f.mu.Unlock()

	s, err := next(n)
	if err != nil {
		return nil, err
	}
	s.ctx = ctx
	return s, nil
}

func (f *fakeTranscoder) Calls() []spawnCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]spawnCall(nil), f.calls...)
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(_ context.Context, _, _, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

func (n *fakeNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
