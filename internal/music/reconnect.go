package music

import "context"

// HandleDisconnect reacts to an unexpected voice drop. It blocks until the
// connection is restored, given up on, or the player is left.
func (p *Player) HandleDisconnect() {
	p.mu.Lock()
	ctx, gen := p.ctx, p.gen
	p.mu.Unlock()
	if ctx == nil {
		return
	}

	p.ops.Lock()
	snap := p.conn.Snapshot()
	p.mu.Lock()
	busy := p.reconnecting
	p.mu.Unlock()
	if busy || snap.Suspended || snap.ChannelID == "" || !p.sameGen(gen) {
		p.ops.Unlock()
		return
	}
	// late event for a handle already replaced or torn down by us
	if p.conn.Healthy() {
		p.ops.Unlock()
		p.log.Debug("ignoring disconnect event, connection is healthy")
		return
	}

	wasActive := p.playbackStatus() != PlaybackIdle
	if pb := p.detachPlayback(PlaybackIdle); pb != nil {
		pb.Abort()
	}
	p.conn.MarkDisconnected()
	p.mu.Lock()
	p.reconnecting = true
	p.mu.Unlock()
	p.ops.Unlock()

	p.log.Warn("voice connection lost", "channel_id", snap.ChannelID)

	defer func() {
		p.mu.Lock()
		if p.gen == gen {
			p.reconnecting = false
		}
		p.mu.Unlock()
	}()

	for {
		p.ops.Lock()
		if !p.sameGen(gen) {
			p.ops.Unlock()
			return
		}
		if p.conn.Healthy() {
			// an explicit join got there first
			p.ops.Unlock()
			return
		}
		if p.conn.Exhausted() {
			p.giveUpLocked()
			p.ops.Unlock()
			p.notify(ctx, "🔌 음성 연결이 끊어져 다시 연결하지 못했습니다. `/join` 으로 다시 불러 주세요.")
			return
		}
		p.ops.Unlock()

		if err := p.sleep(ctx, p.opts.ReconnectDelay); err != nil {
			return
		}

		p.ops.Lock()
		if !p.sameGen(gen) || p.conn.Healthy() {
			p.ops.Unlock()
			return
		}
		if _, err := p.conn.Reconnect(ctx); err != nil {
			p.ops.Unlock()
			continue
		}

		if wasActive {
			p.resumeLocked(ctx, gen)
		}
		p.ops.Unlock()
		return
	}
}

// resumeLocked restarts the interrupted track, or advances when there is none.
func (p *Player) resumeLocked(ctx context.Context, gen uint64) {
	p.setStatus(PlaybackPlaying)
	track, ok := p.state.Current()
	if !ok {
		go p.transition(ctx, gen, nil)
		return
	}
	if err := p.startLocked(ctx, track); err != nil {
		go p.transition(ctx, gen, err)
		return
	}
	p.log.Info("resumed after reconnect", "title", track.Title)
}

func (p *Player) giveUpLocked() {
	p.log.Error("reconnect attempts exhausted, clearing queue")
	p.state.Reset()
	p.detachPlayback(PlaybackIdle)
	p.conn.Suspend()
}
