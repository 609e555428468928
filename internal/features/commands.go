package commands

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	musiccmd "github.com/hxnx/melodybot/internal/features/music/commands"
	musiclisteners "github.com/hxnx/melodybot/internal/features/music/listeners"
	shared "github.com/hxnx/melodybot/internal/features/shared"
	"github.com/hxnx/melodybot/internal/logger"
)

const (
	musicCommandName = "노래"
	adminCommandName = "음악관리"
	autoplayOff      = "off"
)

type Commands struct {
	handler  *musiccmd.Handler
	listener *musiclisteners.Listener
	ownerID  string
	list     []*discordgo.ApplicationCommand
	log      *slog.Logger
}

// New builds the command set. The autoplay choices come from the engine's
// configured categories.
func New(handler *musiccmd.Handler, listener *musiclisteners.Listener, ownerID string) *Commands {
	return &Commands{
		handler:  handler,
		listener: listener,
		ownerID:  ownerID,
		list:     BuildCommandList(handler.Players().Categories()),
		log:      logger.Component("bot"),
	}
}

func (c *Commands) List() []*discordgo.ApplicationCommand {
	return c.list
}

func BuildCommandList(categories []string) []*discordgo.ApplicationCommand {
	minVolume := float64(1)
	minLimit := float64(1)
	adminPerms := int64(discordgo.PermissionManageGuild)

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(categories)+1)
	for _, name := range categories {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: name, Value: name})
	}
	choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: "끄기", Value: autoplayOff})

	return []*discordgo.ApplicationCommand{
		{
			Name:        musicCommandName,
			Description: "노래 재생/관리 명령어",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "재생",
					Description: "노래를 검색해 재생합니다",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "검색어",
							Description: "노래 제목 또는 URL",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "일시정지",
					Description: "재생을 일시정지합니다",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "재개",
					Description: "일시정지한 노래를 다시 재생합니다",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "스킵",
					Description: "현재 곡을 건너뜁니다",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "반복",
					Description: "현재 곡 반복을 켜거나 끕니다",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "볼륨",
					Description: "볼륨을 설정합니다 (다음 곡부터 적용)",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "크기",
							Description: "1-100",
							Required:    true,
							MinValue:    &minVolume,
							MaxValue:    100,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "대기열",
					Description: "현재 대기열을 표시합니다",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "limit",
							Description: "한 페이지에 표시할 곡 수",
							Required:    false,
							MinValue:    &minLimit,
							MaxValue:    25,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "비우기",
					Description: "대기열을 비웁니다",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "자동재생",
					Description: "대기열이 비면 카테고리에서 노래를 골라 재생합니다",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "카테고리",
							Description: "자동재생 카테고리",
							Required:    true,
							Choices:     choices,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "입장",
					Description: "내 음성 채널로 봇을 부릅니다",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "퇴장",
					Description: "재생을 멈추고 음성 채널에서 나갑니다",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "현재곡",
					Description: "지금 재생 중인 곡을 보여줍니다",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "상태",
					Description: "플레이어 상태를 보여줍니다",
				},
			},
		},
		{
			Name:                     adminCommandName,
			Description:              "음악 엔진 관리 명령어",
			DefaultMemberPermissions: &adminPerms,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "초기화",
					Description: "곡 캐시와 대기열, 재시도 횟수를 초기화합니다",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "트랜스코더",
					Description: "트랜스코더 설정을 다시 읽습니다",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "알림채널",
					Description: "재생 오류 알림을 받을 채널을 지정합니다 (비우면 해제)",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:         discordgo.ApplicationCommandOptionChannel,
							Name:         "채널",
							Description:  "알림 채널",
							Required:     false,
							ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
						},
					},
				},
			},
		},
	}
}

func (c *Commands) handleMusicGroupCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sub := getSubcommandOption(i.ApplicationCommandData())
	if sub == nil {
		shared.RespondEphemeral(s, i, "사용할 명령을 선택해 주세요.")
		return
	}

	h := c.handler
	switch sub.Name {
	case "재생":
		h.Play(s, i, sub.Options)
	case "일시정지":
		h.Pause(s, i)
	case "재개":
		h.Resume(s, i)
	case "스킵":
		h.Skip(s, i)
	case "반복":
		h.Repeat(s, i)
	case "볼륨":
		h.Volume(s, i, sub.Options)
	case "대기열":
		h.Queue(s, i, sub.Options)
	case "비우기":
		h.Clear(s, i)
	case "자동재생":
		h.Autoplay(s, i, sub.Options)
	case "입장":
		h.Join(s, i)
	case "퇴장":
		h.Leave(s, i)
	case "현재곡":
		h.NowPlaying(s, i)
	case "상태":
		h.Status(s, i)
	default:
		shared.RespondEphemeral(s, i, "지원하지 않는 노래 명령입니다.")
	}
}

func (c *Commands) handleAdminCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	sub := getSubcommandOption(i.ApplicationCommandData())
	if sub == nil {
		shared.RespondEphemeral(s, i, "사용할 명령을 선택해 주세요.")
		return
	}

	switch sub.Name {
	case "초기화":
		c.handler.Reset(s, i)
	case "트랜스코더":
		c.handler.ReloadTranscode(s, i)
	case "알림채널":
		c.handler.NotifyChannel(s, i, sub.Options)
	default:
		shared.RespondEphemeral(s, i, "지원하지 않는 관리 명령입니다.")
	}
}

func getSubcommandOption(data discordgo.ApplicationCommandInteractionData) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range data.Options {
		if opt.Type == discordgo.ApplicationCommandOptionSubCommand {
			return opt
		}
	}
	return nil
}

func (c *Commands) RegisterCommands(s *discordgo.Session, appID string, guildID string) ([]*discordgo.ApplicationCommand, error) {
	scope := "global"
	if guildID != "" {
		scope = fmt.Sprintf("guild:%s", guildID)
	}

	c.log.Info("registering commands", "count", len(c.list), "scope", scope)

	cmds, err := s.ApplicationCommandBulkOverwrite(appID, guildID, c.list)
	if err != nil {
		return nil, fmt.Errorf("cannot bulk overwrite commands: %w", err)
	}
	return cmds, nil
}

func (c *Commands) AddHandlers(s *discordgo.Session) {
	s.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		c.HandleSyncMessage(s, m)
	})

	s.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		c.listener.HandleVoiceStateUpdate(s, vs)
	})

	s.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			switch i.ApplicationCommandData().Name {
			case musicCommandName:
				c.handleMusicGroupCommand(s, i)
			case adminCommandName:
				c.handleAdminCommand(s, i)
			}
		case discordgo.InteractionMessageComponent:
			c.listener.RouteMusicComponent(s, i)
		}
	})
}
