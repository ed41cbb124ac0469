package handlers

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartMessage(t *testing.T) {
	msg := startMessage(100, "https://wishlist.example.com/")

	assert.Equal(t, int64(100), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdown, msg.ParseMode)
	assert.Contains(t, msg.Text, "/wish <название>")

	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	require.Len(t, markup.InlineKeyboard[0], 1)

	button := markup.InlineKeyboard[0][0]
	require.NotNil(t, button.URL)
	assert.Equal(t, "https://wishlist.example.com/", *button.URL)
}

func TestSenderLaunch(t *testing.T) {
	launch := senderLaunch(&tgbotapi.User{ID: 647859651, UserName: "kate", FirstName: "Kate"})

	require.NotNil(t, launch.Trusted)
	assert.Equal(t, int64(647859651), launch.Trusted.ID)
	assert.Equal(t, "kate", launch.Trusted.Username)
	assert.Empty(t, launch.InitData)
}
