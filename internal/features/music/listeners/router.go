package listeners

import (
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	musiccmd "github.com/hxnx/melodybot/internal/features/music/commands"
	"github.com/hxnx/melodybot/internal/features/music/controls"
	"github.com/hxnx/melodybot/internal/features/music/queueview"
	"github.com/hxnx/melodybot/internal/logger"
	"github.com/hxnx/melodybot/internal/music"
)

// Listener reacts to gateway events that are not slash commands.
type Listener struct {
	handler  *musiccmd.Handler
	notifier music.Notifier
	log      *slog.Logger
}

func New(handler *musiccmd.Handler, notifier music.Notifier) *Listener {
	return &Listener{
		handler:  handler,
		notifier: notifier,
		log:      logger.Component("voice"),
	}
}

func (l *Listener) RouteMusicComponent(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if i.Type != discordgo.InteractionMessageComponent {
		return false
	}

	customID := i.MessageComponentData().CustomID
	if !strings.HasPrefix(customID, "music_") {
		return false
	}

	switch {
	case strings.HasPrefix(customID, queueview.CustomIDPrefix):
		l.handler.QueuePage(s, i, customID)
	case strings.HasPrefix(customID, controls.CustomIDPrefix):
		l.handler.Control(s, i, customID)
	default:
		return false
	}
	return true
}
