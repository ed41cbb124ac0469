package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"

	"github.com/Kerhoff/wishlist/pkg/logger"
)

type nopHandler struct{}

func (nopHandler) Handle(*tgbotapi.BotAPI, *tgbotapi.Message, []string) error { return nil }

func command(text string, length int) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}
}

func TestLookup(t *testing.T) {
	r := NewRouter(logger.Discard())
	r.RegisterCommand("wish", nopHandler{})

	h, cmd, args, ok := r.Lookup(command("/wish New  bike", 5))
	assert.True(t, ok)
	assert.NotNil(t, h)
	assert.Equal(t, "wish", cmd)
	assert.Equal(t, []string{"New", "bike"}, args)

	_, cmd, _, ok = r.Lookup(command("/calendar", 9))
	assert.False(t, ok)
	assert.Equal(t, "calendar", cmd)

	_, _, _, ok = r.Lookup(&tgbotapi.Message{Text: "hello"})
	assert.False(t, ok)
}
