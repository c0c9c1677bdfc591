package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/notifyhub/cogbot/internal/domain"
	"github.com/notifyhub/cogbot/internal/session"
)

// Audio node operations and events.
const (
	opPlay   = "play"
	opStop   = "stop"
	opPause  = "pause"
	opVolume = "volume"

	eventTrackEnd       = "TrackEndEvent"
	eventTrackException = "TrackExceptionEvent"
	eventPlayerUpdate   = "playerUpdate"
)

// quietPeriod is how long a connection must carry no audio to count as idle.
const quietPeriod = 5 * time.Second

var errConnectionClosed = errors.New("voice connection closed")

// nodeCommand is one frame sent to the node. Seq identifies the play a
// command refers to; Pause and Volume are always sent when set so that
// resume (false) and mute (0) are explicit.
type nodeCommand struct {
	Op     string        `json:"op"`
	Seq    uint64        `json:"seq,omitempty"`
	Track  *domain.Track `json:"track,omitempty"`
	Pause  *bool         `json:"pause,omitempty"`
	Volume *int          `json:"volume,omitempty"`
}

// nodeEvent is one frame received from the node. Track events echo the Seq
// of the play they belong to; events for any other play are stale.
type nodeEvent struct {
	Op     string `json:"op"`
	Type   string `json:"type"`
	Seq    uint64 `json:"seq"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

// pendingPlay is the Play call waiting for its end event.
type pendingPlay struct {
	seq   uint64
	title string
	ended chan error
}

// AudioNode opens one websocket per context to an external audio node that
// joins the voice channel and streams tracks. It is both the
// session.ResourceProvider and the session.Player.
type AudioNode struct {
	baseURL string
	token   string
	dialer  *websocket.Dialer
	logger  *zap.Logger
}

func NewAudioNode(baseURL, token string, logger *zap.Logger) *AudioNode {
	return &AudioNode{
		baseURL: baseURL,
		token:   token,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:  logger,
	}
}

// Acquire dials the node for contextKey and starts the read loop.
func (n *AudioNode) Acquire(ctx context.Context, contextKey string) (session.Handle, error) {
	u, err := url.JoinPath(n.baseURL, "guilds", contextKey)
	if err != nil {
		return nil, fmt.Errorf("build node url: %w", err)
	}

	header := http.Header{}
	if n.token != "" {
		header.Set("Authorization", n.token)
	}
	conn, _, err := n.dialer.DialContext(ctx, u, header)
	if err != nil {
		return nil, fmt.Errorf("dial audio node: %w", err)
	}
	conn.SetReadLimit(1 << 20)

	vc := &voiceConn{
		key:    contextKey,
		conn:   conn,
		done:   make(chan struct{}),
		logger: n.logger.With(zap.String("context_key", contextKey)),
	}
	vc.touchActivity()
	go vc.readLoop()
	return vc, nil
}

// Release closes the connection; the node leaves the voice channel.
func (n *AudioNode) Release(h session.Handle) error {
	vc, err := asVoiceConn(h)
	if err != nil {
		return err
	}
	return vc.close()
}

// Play sends the track and blocks until the node reports its end.
func (n *AudioNode) Play(ctx context.Context, h session.Handle, t domain.Track) error {
	vc, err := asVoiceConn(h)
	if err != nil {
		return err
	}

	p := vc.begin(t.Title)
	vc.playing.Store(true)
	defer func() {
		vc.clear(p)
		vc.playing.Store(false)
		vc.touchActivity()
	}()

	if err := vc.send(nodeCommand{Op: opPlay, Seq: p.seq, Track: &t}); err != nil {
		return err
	}

	select {
	case err := <-p.ended:
		return err
	case <-vc.done:
		return errConnectionClosed
	case <-ctx.Done():
		_ = vc.send(nodeCommand{Op: opStop, Seq: p.seq})
		return ctx.Err()
	}
}

func (n *AudioNode) Skip(_ context.Context, h session.Handle) error {
	vc, err := asVoiceConn(h)
	if err != nil {
		return err
	}
	return vc.send(nodeCommand{Op: opStop, Seq: vc.currentSeq()})
}

func (n *AudioNode) Pause(_ context.Context, h session.Handle, paused bool) error {
	vc, err := asVoiceConn(h)
	if err != nil {
		return err
	}
	return vc.send(nodeCommand{Op: opPause, Seq: vc.currentSeq(), Pause: &paused})
}

func (n *AudioNode) SetVolume(_ context.Context, h session.Handle, percent int) error {
	vc, err := asVoiceConn(h)
	if err != nil {
		return err
	}
	return vc.send(nodeCommand{Op: opVolume, Volume: &percent})
}

var (
	_ session.ResourceProvider = (*AudioNode)(nil)
	_ session.Player           = (*AudioNode)(nil)
)

func asVoiceConn(h session.Handle) (*voiceConn, error) {
	vc, ok := h.(*voiceConn)
	if !ok {
		return nil, fmt.Errorf("handle %T was not acquired from the audio node", h)
	}
	return vc, nil
}

// voiceConn is one context's websocket to the node.
type voiceConn struct {
	key    string
	conn   *websocket.Conn
	logger *zap.Logger

	wmu       sync.Mutex
	mu        sync.Mutex
	seq       uint64
	pending   *pendingPlay
	done      chan struct{}
	closeOnce sync.Once

	playing      atomic.Bool
	lastActivity atomic.Int64
}

func (vc *voiceConn) ContextKey() string    { return vc.key }
func (vc *voiceConn) Done() <-chan struct{} { return vc.done }

// IsIdle reports whether nothing is playing and the node has been quiet for
// a while.
func (vc *voiceConn) IsIdle() bool {
	return !vc.playing.Load() && vc.sinceLastActivity() >= quietPeriod
}

func (vc *voiceConn) touchActivity() {
	vc.lastActivity.Store(time.Now().UnixNano())
}

func (vc *voiceConn) sinceLastActivity() time.Duration {
	n := vc.lastActivity.Load()
	if n == 0 {
		return time.Hour
	}
	return time.Since(time.Unix(0, n))
}

func (vc *voiceConn) send(cmd nodeCommand) error {
	vc.wmu.Lock()
	defer vc.wmu.Unlock()

	select {
	case <-vc.done:
		return errConnectionClosed
	default:
	}
	_ = vc.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := vc.conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("send %s: %w", cmd.Op, err)
	}
	return nil
}

func (vc *voiceConn) readLoop() {
	defer vc.shutdown()

	for {
		var ev nodeEvent
		if err := vc.conn.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				vc.logger.Debug("audio node read ended", zap.Error(err))
			}
			return
		}
		vc.touchActivity()

		switch ev.Type {
		case eventTrackEnd:
			vc.finish(ev, nil)
		case eventTrackException:
			vc.finish(ev, fmt.Errorf("track exception: %s", ev.Error))
		case eventPlayerUpdate, "":
		default:
			vc.logger.Debug("unhandled node event", zap.String("type", ev.Type))
		}
	}
}

// begin registers a new pending play and returns it.
func (vc *voiceConn) begin(title string) *pendingPlay {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.seq++
	vc.pending = &pendingPlay{seq: vc.seq, title: title, ended: make(chan error, 1)}
	return vc.pending
}

func (vc *voiceConn) clear(p *pendingPlay) {
	vc.mu.Lock()
	if vc.pending == p {
		vc.pending = nil
	}
	vc.mu.Unlock()
}

func (vc *voiceConn) currentSeq() uint64 {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	if vc.pending == nil {
		return 0
	}
	return vc.pending.seq
}

// finish completes the pending Play if ev belongs to it. A node may report
// a failed track twice (exception, then end); only the first event counts.
func (vc *voiceConn) finish(ev nodeEvent, err error) {
	vc.mu.Lock()
	p := vc.pending
	if p == nil || p.seq != ev.Seq {
		vc.mu.Unlock()
		vc.logger.Debug("stale node event",
			zap.String("type", ev.Type),
			zap.Uint64("seq", ev.Seq),
			zap.String("reason", ev.Reason),
		)
		return
	}
	vc.pending = nil
	vc.mu.Unlock()

	vc.logger.Debug("track ended",
		zap.String("title", p.title),
		zap.Uint64("seq", p.seq),
		zap.String("reason", ev.Reason),
	)
	p.ended <- err
}

func (vc *voiceConn) shutdown() {
	vc.closeOnce.Do(func() {
		close(vc.done)
		_ = vc.conn.Close()
	})
}

func (vc *voiceConn) close() error {
	select {
	case <-vc.done:
		return nil
	default:
	}

	vc.wmu.Lock()
	err := vc.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "leaving"),
		time.Now().Add(500*time.Millisecond))
	vc.wmu.Unlock()

	vc.shutdown()
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return fmt.Errorf("close voice connection: %w", err)
	}
	return nil
}
