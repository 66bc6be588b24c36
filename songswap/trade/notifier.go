package trade

import (
	"context"
	"fmt"
	"sync"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// Notifier delivers the engine's outbound messages. The engine never talks
// to Discord directly, so tests can swap in a recorder.
type Notifier interface {
	NotifyUser(ctx context.Context, user snowflake.ID, message discord.MessageCreate) error
	NotifyChannel(ctx context.Context, channel snowflake.ID, message discord.MessageCreate) error
}

// DiscordNotifier sends DMs and channel messages through the bot client.
// The client is attached after gateway setup, so it is guarded.
type DiscordNotifier struct {
	mu     sync.RWMutex
	client bot.Client
}

// NewDiscordNotifier returns a notifier with no client yet. Attach one with
// SetClient once the bot is set up.
func NewDiscordNotifier() *DiscordNotifier {
	return &DiscordNotifier{}
}

func (n *DiscordNotifier) SetClient(client bot.Client) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.client = client
}

func (n *DiscordNotifier) rest() (rest.Rest, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.client == nil {
		return nil, fmt.Errorf("notifier has no client attached")
	}
	return n.client.Rest(), nil
}

func (n *DiscordNotifier) NotifyUser(ctx context.Context, user snowflake.ID, message discord.MessageCreate) error {
	r, err := n.rest()
	if err != nil {
		return err
	}

	dm, err := r.CreateDMChannel(user, rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel with %s: %w", user, err)
	}
	if _, err = r.CreateMessage(dm.ID(), message, rest.WithCtx(ctx)); err != nil {
		return fmt.Errorf("failed to DM %s: %w", user, err)
	}
	return nil
}

func (n *DiscordNotifier) NotifyChannel(ctx context.Context, channel snowflake.ID, message discord.MessageCreate) error {
	r, err := n.rest()
	if err != nil {
		return err
	}
	if _, err = r.CreateMessage(channel, message, rest.WithCtx(ctx)); err != nil {
		return fmt.Errorf("failed to message channel %s: %w", channel, err)
	}
	return nil
}
