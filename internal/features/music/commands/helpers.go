package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	shared "github.com/hxnx/melodybot/internal/features/shared"
	"github.com/hxnx/melodybot/internal/logger"
	"github.com/hxnx/melodybot/internal/music"
)

// NotifyChannels binds the channel that receives background notices.
type NotifyChannels interface {
	SetNotifyChannel(ctx context.Context, guildID, channelID string) error
	DeleteNotifyChannel(ctx context.Context, guildID string) error
}

// Handler serves the music slash commands.
type Handler struct {
	players  *music.PlayerManager
	channels NotifyChannels
	log      *slog.Logger
}

func NewHandler(players *music.PlayerManager, channels NotifyChannels) *Handler {
	return &Handler{
		players:  players,
		channels: channels,
		log:      logger.Component("bot"),
	}
}

func (h *Handler) Players() *music.PlayerManager {
	return h.players
}

// errorMessage maps engine errors to the text shown to the user.
func errorMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, music.ErrMissingInput):
		return "검색어를 입력해 주세요."
	case errors.Is(err, music.ErrQueryTooLong):
		return "검색어가 너무 깁니다."
	case errors.Is(err, music.ErrNoVoiceChannel), errors.Is(err, shared.ErrUserNotInVoice):
		return "먼저 음성 채널에 입장해 주세요."
	case errors.Is(err, music.ErrConnectionFailure):
		return "음성 채널에 연결하지 못했습니다. 잠시 후 다시 시도해 주세요."
	case errors.Is(err, music.ErrResolutionFailure):
		return "노래를 찾지 못했습니다."
	case errors.Is(err, music.ErrNotConnected):
		return "봇이 음성 채널에 연결되어 있지 않습니다."
	case errors.Is(err, music.ErrNothingPlaying):
		return "재생 중인 노래가 없습니다."
	case errors.Is(err, music.ErrNotPaused):
		return "일시정지 상태가 아닙니다."
	case errors.Is(err, music.ErrInvalidVolume):
		return "볼륨은 1에서 100 사이로 입력해 주세요."
	case errors.Is(err, music.ErrUnknownCategory):
		return "알 수 없는 자동재생 카테고리입니다."
	case errors.Is(err, music.ErrQueueFull):
		return "대기열이 가득 찼습니다."
	case errors.Is(err, music.ErrPlaybackCancelled):
		return "요청이 취소되었습니다."
	case errors.Is(err, context.DeadlineExceeded):
		return "요청 시간이 초과되었습니다."
	default:
		return "요청을 처리하지 못했습니다."
	}
}

// guildOnly answers and returns false outside a guild.
func guildOnly(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if i.GuildID == "" {
		shared.RespondEphemeral(s, i, "이 명령어는 서버에서만 사용할 수 있습니다.")
		return false
	}
	return true
}

// playRequest collects the caller's channels. The voice channel is empty when
// the user is not in one.
func playRequest(s *discordgo.Session, i *discordgo.InteractionCreate, query string) music.PlayRequest {
	userID := shared.GetInteractionUserID(i)
	voiceChannelID, _ := shared.FindUserVoiceChannel(s, i.GuildID, userID)

	requestedBy := userID
	if i.Member != nil && i.Member.User != nil {
		requestedBy = i.Member.User.Username
	}

	return music.PlayRequest{
		Query:          query,
		VoiceChannelID: voiceChannelID,
		TextChannelID:  i.ChannelID,
		RequestedBy:    requestedBy,
	}
}
