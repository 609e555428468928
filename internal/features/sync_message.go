package commands

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const syncCommand = "!sync"

// isSyncRequest reports whether m is a guild message asking for a command sync.
func isSyncRequest(m *discordgo.MessageCreate) bool {
	if m == nil || m.Message == nil || m.Author == nil || m.Author.Bot {
		return false
	}
	return m.GuildID != "" && strings.TrimSpace(m.Content) == syncCommand
}

func (c *Commands) canSync(userID string) bool {
	return c.ownerID != "" && userID == c.ownerID
}

func applicationID(s *discordgo.Session) string {
	if s.State == nil || s.State.User == nil {
		return ""
	}
	return s.State.User.ID
}

// HandleSyncMessage re-registers the slash commands for the message's guild.
// It returns true when the message was a sync request, whatever the outcome.
func (c *Commands) HandleSyncMessage(s *discordgo.Session, m *discordgo.MessageCreate) bool {
	if s == nil || !isSyncRequest(m) {
		return false
	}

	switch appID := applicationID(s); {
	case !c.canSync(m.Author.ID):
		c.log.Warn("sync rejected", "user_id", m.Author.ID, "guild_id", m.GuildID)
		c.replySync(s, m, "🔒 봇 소유자만 명령어를 동기화할 수 있습니다.")
	case appID == "":
		c.replySync(s, m, "⚠️ 봇 애플리케이션 ID를 아직 알 수 없습니다. 잠시 후 다시 시도해 주세요.")
	default:
		registered, err := c.RegisterCommands(s, appID, m.GuildID)
		if err != nil {
			c.replySync(s, m, fmt.Sprintf("⚠️ 명령어 동기화에 실패했습니다: %v", err))
			return true
		}
		c.replySync(s, m, fmt.Sprintf("✅ 이 서버에 명령어 %d개를 동기화했습니다.", len(registered)))
	}
	return true
}

func (c *Commands) replySync(s *discordgo.Session, m *discordgo.MessageCreate, content string) {
	if _, err := s.ChannelMessageSendReply(m.ChannelID, content, m.Reference()); err != nil {
		c.log.Warn("failed to answer sync request", "channel_id", m.ChannelID, "error", err)
	}
}
