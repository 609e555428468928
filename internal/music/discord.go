package music

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

var errSessionNil = errors.New("discord session is nil")

// DiscordVoice is the discordgo VoiceTransport.
type DiscordVoice struct {
	session *discordgo.Session
}

func NewDiscordVoice(session *discordgo.Session) *DiscordVoice {
	return &DiscordVoice{session: session}
}

type joinResult struct {
	vc  *discordgo.VoiceConnection
	err error
}

func (d *DiscordVoice) Connect(ctx context.Context, guildID, channelID string) (VoiceHandle, error) {
	if d.session == nil {
		return nil, errSessionNil
	}
	if channelID == "" {
		return nil, ErrNoVoiceChannel
	}

	done := make(chan joinResult, 1)
	go func() {
		vc, err := d.session.ChannelVoiceJoin(guildID, channelID, false, true)
		done <- joinResult{vc: vc, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if res.vc != nil {
				_ = res.vc.Disconnect()
			}
			return nil, res.err
		}
		return &discordHandle{vc: res.vc, channelID: channelID}, nil
	case <-ctx.Done():
		go func() {
			if res := <-done; res.vc != nil {
				_ = res.vc.Disconnect()
			}
		}()
		return nil, fmt.Errorf("voice join timed out: %w", ctx.Err())
	}
}

type discordHandle struct {
	vc        *discordgo.VoiceConnection
	channelID string
}

func (h *discordHandle) ChannelID() string {
	h.vc.RLock()
	defer h.vc.RUnlock()
	if h.vc.ChannelID != "" {
		return h.vc.ChannelID
	}
	return h.channelID
}

func (h *discordHandle) IsConnected() bool {
	h.vc.RLock()
	defer h.vc.RUnlock()
	return h.vc.Ready
}

func (h *discordHandle) Move(ctx context.Context, channelID string) error {
	done := make(chan error, 1)
	go func() {
		done <- h.vc.ChangeChannel(channelID, false, true)
	}()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
		h.channelID = channelID
		return nil
	case <-ctx.Done():
		return fmt.Errorf("voice move timed out: %w", ctx.Err())
	}
}

func (h *discordHandle) SendOpus(ctx context.Context, frame []byte) error {
	select {
	case h.vc.OpusSend <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *discordHandle) Speaking(speaking bool) error {
	if !h.IsConnected() {
		return ErrNotConnected
	}
	return h.vc.Speaking(speaking)
}

func (h *discordHandle) Disconnect() error {
	return h.vc.Disconnect()
}
