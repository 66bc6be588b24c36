package commands

import (
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptInMessage_CarriesJoinButton(t *testing.T) {
	msg := OptInMessage()

	assert.Contains(t, msg.Content, "/opt in")

	require.Len(t, msg.Components, 1)
	row, ok := msg.Components[0].(discord.ActionRowComponent)
	require.True(t, ok)
	require.Len(t, row.Components(), 1)

	button, ok := row.Components()[0].(discord.ButtonComponent)
	require.True(t, ok)
	assert.Equal(t, OptInButtonID, button.CustomID)
}
