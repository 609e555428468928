package shared

import (
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/hxnx/melodybot/internal/logger"
)

var AccentColor = 0xC9A0FF

var ErrUserNotInVoice = errors.New("user is not in a voice channel")

func noticeComponents(content string) []discordgo.MessageComponent {
	divider := true
	spacing := discordgo.SeparatorSpacingSizeSmall

	return []discordgo.MessageComponent{
		discordgo.Container{
			AccentColor: &AccentColor,
			Components: []discordgo.MessageComponent{
				discordgo.TextDisplay{Content: "알림"},
				discordgo.Separator{Divider: &divider, Spacing: &spacing},
				discordgo.TextDisplay{Content: content},
			},
		},
	}
}

func RespondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	if s == nil || i == nil {
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Components: noticeComponents(content),
			Flags:      discordgo.MessageFlagsIsComponentsV2 | discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		logger.Component("bot").Warn("failed to respond", "error", err)
	}
}

// RespondComponents sends a components-v2 reply.
func RespondComponents(s *discordgo.Session, i *discordgo.InteractionCreate, components []discordgo.MessageComponent, ephemeral bool) {
	if s == nil || i == nil {
		return
	}

	flags := discordgo.MessageFlagsIsComponentsV2
	if ephemeral {
		flags |= discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Components: components,
			Flags:      flags,
		},
	})
	if err != nil {
		logger.Component("bot").Warn("failed to respond", "error", err)
	}
}

// DeferReply acknowledges a slow command so the follow-up can arrive later.
func DeferReply(s *discordgo.Session, i *discordgo.InteractionCreate, ephemeral bool) error {
	if s == nil || i == nil {
		return nil
	}

	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	})
}

func Followup(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	if s == nil || i == nil {
		return
	}

	flags := discordgo.MessageFlagsIsComponentsV2
	if ephemeral {
		flags |= discordgo.MessageFlagsEphemeral
	}
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Components: noticeComponents(content),
		Flags:      flags,
	})
	if err != nil {
		logger.Component("bot").Warn("failed to send followup", "error", err)
	}
}

// FollowupComponents sends a components-v2 follow-up.
func FollowupComponents(s *discordgo.Session, i *discordgo.InteractionCreate, components []discordgo.MessageComponent, ephemeral bool) {
	if s == nil || i == nil {
		return
	}

	flags := discordgo.MessageFlagsIsComponentsV2
	if ephemeral {
		flags |= discordgo.MessageFlagsEphemeral
	}
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Components: components,
		Flags:      flags,
	})
	if err != nil {
		logger.Component("bot").Warn("failed to send followup", "error", err)
	}
}

func GetOptionString(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

func GetOptionInt(options []*discordgo.ApplicationCommandInteractionDataOption, name string) int {
	for _, opt := range options {
		if opt.Name == name {
			return int(opt.IntValue())
		}
	}
	return 0
}

func GetOptionChannelID(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, opt := range options {
		if opt.Name == name {
			if id, ok := opt.Value.(string); ok {
				return id
			}
		}
	}
	return ""
}

func GetInteractionUserID(i *discordgo.InteractionCreate) string {
	if i == nil {
		return ""
	}
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func GetGuildWithVoiceStates(s *discordgo.Session, guildID string) *discordgo.Guild {
	if s == nil {
		return nil
	}
	if s.State != nil {
		if g, err := s.State.Guild(guildID); err == nil {
			return g
		}
	}
	g, err := s.Guild(guildID)
	if err != nil {
		return nil
	}
	return g
}

// FindUserVoiceChannel returns the voice channel userID is sitting in.
func FindUserVoiceChannel(s *discordgo.Session, guildID, userID string) (string, error) {
	guild := GetGuildWithVoiceStates(s, guildID)
	if guild == nil {
		return "", errors.New("guild not found")
	}

	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID && vs.ChannelID != "" {
			return vs.ChannelID, nil
		}
	}

	return "", ErrUserNotInVoice
}
