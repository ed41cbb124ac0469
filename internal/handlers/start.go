package handlers

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// StartHandler handles the /start command
type StartHandler struct {
	webAppURL string
	logger    *logrus.Logger
}

// NewStartHandler creates a new start command handler. webAppURL is the
// public address of the mini app.
func NewStartHandler(webAppURL string, logger *logrus.Logger) *StartHandler {
	return &StartHandler{
		webAppURL: webAppURL,
		logger:    logger,
	}
}

const welcomeText = `🎁 *Wishlist*

Ведите список желаний, делитесь им с друзьями и отмечайте, что подарите вы.

Откройте приложение кнопкой ниже или используйте команды:
• /wishes - Показать ваши желания
• /wish <название> - Добавить желание
• /help - Справка`

// startMessage builds the welcome message with the button that opens the
// mini app.
func startMessage(chatID int64, webAppURL string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, welcomeText)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🎁 Открыть Wishlist", webAppURL),
		),
	)
	return msg
}

// Handle processes the /start command
func (h *StartHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	_, err := bot.Send(startMessage(message.Chat.ID, h.webAppURL))
	if err != nil {
		return fmt.Errorf("failed to send start message: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"user_id": message.From.ID,
	}).Info("Sent start message")

	return nil
}
