package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/wishlist/internal/actions"
	"github.com/Kerhoff/wishlist/internal/host"
	"github.com/Kerhoff/wishlist/internal/miniapp"
	"github.com/Kerhoff/wishlist/internal/models"
	"github.com/Kerhoff/wishlist/internal/render"
)

const commandTimeout = 15 * time.Second

// AppBuilder assembles a throwaway mini app session for a chat user.
type AppBuilder interface {
	Build(ctx context.Context, launch host.LaunchData) (*miniapp.App, error)
}

// senderLaunch trusts the sender of a bot message: the chat platform has
// already authenticated them.
func senderLaunch(from *tgbotapi.User) host.LaunchData {
	return host.LaunchData{Trusted: &models.User{
		ID:        from.ID,
		Username:  from.UserName,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	}}
}

// ---------------------------------------------------------------------------
// WishesHandler – /wishes
// ---------------------------------------------------------------------------

// WishesHandler handles the /wishes command by loading the sender's wish
// list and replying with it as text.
type WishesHandler struct {
	apps   AppBuilder
	logger *logrus.Logger
}

// NewWishesHandler creates a new WishesHandler.
func NewWishesHandler(apps AppBuilder, logger *logrus.Logger) *WishesHandler {
	return &WishesHandler{apps: apps, logger: logger}
}

// Handle processes the /wishes command.
func (h *WishesHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	app, err := h.apps.Build(ctx, senderLaunch(message.From))
	if err != nil {
		return fmt.Errorf("build session: %w", err)
	}
	defer app.Close()

	if err := app.RefreshWishes(ctx); err != nil {
		return fmt.Errorf("load wishes: %w", err)
	}

	st := app.Snapshot()
	text := render.WishesText(st.Wishes)
	if st.Demo.Wishes {
		text += "\n\n📡 Сервер недоступен, показаны демо-данные"
	}

	if _, err := bot.Send(tgbotapi.NewMessage(message.Chat.ID, text)); err != nil {
		return fmt.Errorf("failed to send wishes: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"user_id": message.From.ID,
		"count":   len(st.Wishes),
	}).Info("Sent wish list")

	return nil
}

// ---------------------------------------------------------------------------
// WishAddHandler – /wish <title>
// ---------------------------------------------------------------------------

// WishAddHandler handles the /wish command to add a wish by title.
type WishAddHandler struct {
	apps   AppBuilder
	logger *logrus.Logger
}

// NewWishAddHandler creates a new WishAddHandler.
func NewWishAddHandler(apps AppBuilder, logger *logrus.Logger) *WishAddHandler {
	return &WishAddHandler{apps: apps, logger: logger}
}

// Handle processes the /wish command.
func (h *WishAddHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	if len(args) == 0 {
		msg := tgbotapi.NewMessage(message.Chat.ID,
			"❌ Укажите название желания.\n"+
				"Пример: `/wish PlayStation 5`")
		msg.ParseMode = tgbotapi.ModeMarkdown
		bot.Send(msg)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	app, err := h.apps.Build(ctx, senderLaunch(message.From))
	if err != nil {
		return fmt.Errorf("build session: %w", err)
	}
	defer app.Close()

	title := strings.Join(args, " ")
	err = app.Actions().AddWish(ctx, actions.WishForm{Title: title})

	reply := "✅ Желание добавлено: " + title
	if err != nil {
		reply = "❌ Не удалось добавить желание"
	}
	if n := app.Snapshot().Notice; n != nil && err != nil {
		reply = "❌ " + n.Message
	}

	if _, sendErr := bot.Send(tgbotapi.NewMessage(message.Chat.ID, reply)); sendErr != nil {
		return fmt.Errorf("failed to send reply: %w", sendErr)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"user_id": message.From.ID,
		"ok":      err == nil,
	}).Info("Handled wish command")

	return nil
}
