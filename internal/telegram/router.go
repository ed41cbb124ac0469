package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Router handles message routing and command parsing
type Router struct {
	logger   *logrus.Logger
	handlers map[string]CommandHandler
}

// CommandHandler defines the interface for command handlers
type CommandHandler interface {
	Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error
}

// NewRouter creates a new message router
func NewRouter(logger *logrus.Logger) *Router {
	return &Router{
		logger:   logger,
		handlers: make(map[string]CommandHandler),
	}
}

// RegisterCommand registers a command handler
func (r *Router) RegisterCommand(command string, handler CommandHandler) {
	r.handlers[command] = handler
	r.logger.Debugf("Registered command: %s", command)
}

// Lookup returns the handler for command and the parsed arguments of a
// command message.
func (r *Router) Lookup(message *tgbotapi.Message) (handler CommandHandler, command string, args []string, ok bool) {
	if message.Text == "" || !message.IsCommand() {
		return nil, "", nil, false
	}
	command = message.Command()
	handler, ok = r.handlers[command]
	return handler, command, strings.Fields(message.CommandArguments()), ok
}

// HandleMessage handles incoming messages
func (r *Router) HandleMessage(bot *tgbotapi.BotAPI, message *tgbotapi.Message) {
	if message.From == nil {
		return
	}

	r.logger.WithFields(logrus.Fields{
		"chat_id":    message.Chat.ID,
		"user_id":    message.From.ID,
		"username":   message.From.UserName,
		"message_id": message.MessageID,
	}).Debug("Received message")

	if !message.IsCommand() {
		return
	}

	handler, command, args, ok := r.Lookup(message)
	if !ok {
		r.logger.WithFields(logrus.Fields{
			"command": command,
			"chat_id": message.Chat.ID,
			"user_id": message.From.ID,
		}).Warn("Unknown command")

		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "❓ Неизвестная команда. Список команд: /help"))
		return
	}

	if err := handler.Handle(bot, message, args); err != nil {
		r.logger.WithFields(logrus.Fields{
			"command": command,
			"chat_id": message.Chat.ID,
			"user_id": message.From.ID,
			"error":   err,
		}).Error("Command handler failed")

		bot.Send(tgbotapi.NewMessage(message.Chat.ID, "❌ Не удалось выполнить команду. Попробуйте ещё раз."))
	}
}

// HandleCallbackQuery acknowledges inline keyboard presses. The only
// keyboard opens a URL, so there is nothing to route.
func (r *Router) HandleCallbackQuery(bot *tgbotapi.BotAPI, callbackQuery *tgbotapi.CallbackQuery) {
	r.logger.WithFields(logrus.Fields{
		"callback_id": callbackQuery.ID,
		"user_id":     callbackQuery.From.ID,
	}).Debug("Received callback query")

	bot.Request(tgbotapi.NewCallback(callbackQuery.ID, ""))
}
