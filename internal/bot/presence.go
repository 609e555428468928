package bot

import (
	"fmt"
	"time"
)

const presenceUpdateInterval = 60 * time.Second

func (b *Bot) startPresenceUpdater() {
	if b.presenceStop != nil {
		return
	}
	b.presenceStop = make(chan struct{})
	stop := b.presenceStop
	go func() {
		ticker := time.NewTicker(presenceUpdateInterval)
		defer ticker.Stop()

		b.updatePresence()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				b.updatePresence()
			}
		}
	}()
}

func (b *Bot) stopPresenceUpdater() {
	if b.presenceStop == nil {
		return
	}
	close(b.presenceStop)
	b.presenceStop = nil
}

func (b *Bot) updatePresence() {
	active := b.players.Active()
	for _, s := range b.sessions {
		guildCount := 0
		if s.State != nil {
			guildCount = len(s.State.Guilds)
		}

		status := presenceText(s.ShardID, guildCount, active)
		if err := s.UpdateGameStatus(0, status); err != nil {
			b.log.Debug("failed to update presence", "shard", s.ShardID, "error", err)
		}
	}
}

func presenceText(shardID, guilds, active int) string {
	shardNumber := max(1, shardID+1)
	if active > 0 {
		return fmt.Sprintf("#%d샤드 / %d개 서버 · %d곳에서 재생 중", shardNumber, guilds, active)
	}
	return fmt.Sprintf("#%d샤드 / %d개 서버 참가중", shardNumber, guilds)
}
