// Package actions implements the user-triggered mutations of the mini app.
//
// Every action runs the same protocol: raise the busy indicator, make
// exactly one backend call, then either show a success notice and reload
// the affected lists or show an error notice and leave state untouched.
// State only moves after the backend confirms.
package actions

import (
	"context"
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/wishlist/internal/apiclient"
	"github.com/Kerhoff/wishlist/internal/loader"
	"github.com/Kerhoff/wishlist/internal/metrics"
	"github.com/Kerhoff/wishlist/internal/models"
	"github.com/Kerhoff/wishlist/internal/settings"
	"github.com/Kerhoff/wishlist/internal/state"
)

// Config wires a Handler.
type Config struct {
	Backend   Backend
	Loader    *loader.Loader
	Store     *state.Store
	Settings  *settings.Store
	NoticeTTL time.Duration
	Logger    *logrus.Logger
	Now       func() time.Time
}

// Handler runs actions for one session.
type Handler struct {
	backend   Backend
	loader    *loader.Loader
	store     *state.Store
	settings  *settings.Store
	noticeTTL time.Duration
	logger    *logrus.Logger
	now       func() time.Time
	localID   atomic.Int64
}

// New creates a Handler.
func New(cfg Config) *Handler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		backend:   cfg.Backend,
		loader:    cfg.Loader,
		store:     cfg.Store,
		settings:  cfg.Settings,
		noticeTTL: cfg.NoticeTTL,
		logger:    cfg.Logger,
		now:       now,
	}
}

// WishForm is the raw input of the add-wish form.
type WishForm struct {
	Title       string
	Description string
	Price       string
	Link        string
}

// AddWish validates form and creates the wish.
func (h *Handler) AddWish(ctx context.Context, form WishForm) error {
	st := h.store.Snapshot()
	wish, err := validateWish(st.Session.UserID, form)
	if err != nil {
		return h.reject("add_wish", err)
	}

	return h.run(ctx, "add_wish", func(ctx context.Context) (string, error) {
		_, err := h.backend.CreateWish(ctx, wish)
		if err != nil && apiclient.IsNetwork(err) && st.Demo.Wishes {
			h.store.AppendLocalWish(h.localWish(wish))
			h.logger.WithError(err).Info("Backend unreachable, kept wish locally")
			return "", errSavedLocally
		}
		return "Желание добавлено", err
	}, func(ctx context.Context) error {
		_, err := h.loader.LoadWishes(ctx, st.Session.UserID)
		return err
	})
}

var errSavedLocally = errors.New("saved locally")

func (h *Handler) localWish(w models.NewWish) models.Wish {
	return models.Wish{
		ID:          -h.localID.Add(1),
		UserID:      w.UserID,
		Title:       w.Title,
		Description: w.Description,
		Price:       w.Price,
		Link:        w.Link,
		Status:      models.WishStatusActive,
		CreatedAt:   h.now(),
	}
}

// DeleteWish deletes one of the user's own wishes. Nothing is sent unless
// confirmed is true.
func (h *Handler) DeleteWish(ctx context.Context, wishID int64, confirmed bool) error {
	if !confirmed {
		return h.reject("delete_wish", ErrConfirmationRequired)
	}
	st := h.store.Snapshot()
	wish, ok := st.FindWish(wishID)
	if !ok {
		return h.reject("delete_wish", ErrWishNotFound)
	}
	if !wish.IsOwnedBy(st.Session.UserID) {
		return h.reject("delete_wish", &ValidationError{Field: "wish", Message: "Можно удалять только свои желания"})
	}
	if wish.Local {
		h.store.RemoveLocalWish(wishID)
		h.notice(state.NoticeSuccess, "Желание удалено")
		return nil
	}

	return h.run(ctx, "delete_wish", func(ctx context.Context) (string, error) {
		return "Желание удалено", h.backend.DeleteWish(ctx, wishID)
	}, func(ctx context.Context) error {
		_, err := h.loader.LoadWishes(ctx, st.Session.UserID)
		return err
	})
}

// MarkGift reserves a friend's wish as the user's gift.
func (h *Handler) MarkGift(ctx context.Context, ownerID, wishID int64) error {
	st := h.store.Snapshot()
	if ownerID == st.Session.UserID {
		return h.reject("mark_gift", &ValidationError{Field: "wish", Message: "Нельзя подарить самому себе"})
	}
	if st.Viewing == nil || st.Viewing.Friend.ID != ownerID {
		return h.reject("mark_gift", ErrWishNotFound)
	}
	wish, ok := st.FindFriendWish(wishID)
	if !ok {
		return h.reject("mark_gift", ErrWishNotFound)
	}
	if wish.IsOwnedBy(st.Session.UserID) {
		return h.reject("mark_gift", &ValidationError{Field: "wish", Message: "Нельзя подарить самому себе"})
	}
	if wish.IsFulfilled() {
		return h.reject("mark_gift", &ValidationError{Field: "wish", Message: "Это желание уже кто-то подарит"})
	}

	friend := st.Viewing.Friend
	return h.run(ctx, "mark_gift", func(ctx context.Context) (string, error) {
		_, err := h.backend.MarkGift(ctx, wishID)
		return "Вы отметили подарок", err
	}, func(ctx context.Context) error {
		_, err := h.loader.LoadFriendWishes(ctx, friend)
		return err
	})
}

// InviteFriend sends a friend request by username.
func (h *Handler) InviteFriend(ctx context.Context, username string) error {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return h.reject("invite_friend", &ValidationError{Field: "username", Message: "Введите имя пользователя"})
	}
	st := h.store.Snapshot()
	if st.Session.User != nil && strings.EqualFold(st.Session.User.Username, username) {
		return h.reject("invite_friend", &ValidationError{Field: "username", Message: "Нельзя добавить себя в друзья"})
	}

	return h.run(ctx, "invite_friend", func(ctx context.Context) (string, error) {
		return "Заявка отправлена", h.backend.AddFriend(ctx, username)
	}, func(ctx context.Context) error {
		_, err := h.loader.LoadFriends(ctx, st.Session.UserID)
		return err
	})
}

// AcceptFriend accepts an incoming invitation.
func (h *Handler) AcceptFriend(ctx context.Context, requesterID int64) error {
	st := h.store.Snapshot()
	if !st.HasRequestFrom(requesterID) {
		return h.reject("accept_friend", ErrRequestNotFound)
	}

	return h.run(ctx, "accept_friend", func(ctx context.Context) (string, error) {
		return "Заявка принята", h.backend.AcceptFriend(ctx, requesterID)
	}, func(ctx context.Context) error {
		_, err := h.loader.LoadFriends(ctx, st.Session.UserID)
		return err
	})
}

// RejectFriend declines an invitation from, or ends a friendship with,
// userID.
func (h *Handler) RejectFriend(ctx context.Context, userID int64) error {
	st := h.store.Snapshot()
	isFriend := false
	for _, f := range st.Friends {
		if f.ID == userID {
			isFriend = true
			break
		}
	}
	if !isFriend && !st.HasRequestFrom(userID) {
		return h.reject("reject_friend", ErrRequestNotFound)
	}

	msg := "Заявка отклонена"
	if isFriend {
		msg = "Друг удалён"
	}
	return h.run(ctx, "reject_friend", func(ctx context.Context) (string, error) {
		return msg, h.backend.RemoveFriend(ctx, userID)
	}, func(ctx context.Context) error {
		if st.Viewing != nil && st.Viewing.Friend.ID == userID {
			h.store.CloseFriendView()
		}
		_, err := h.loader.LoadFriends(ctx, st.Session.UserID)
		return err
	})
}

// SetSetting toggles a client-side preference. It writes local storage
// only.
func (h *Handler) SetSetting(ctx context.Context, key string, value bool) error {
	if key != settings.KeyNotificationsEnabled && key != settings.KeyBirthdayNotifications {
		return h.reject("set_setting", &ValidationError{Field: "key", Message: "Неизвестная настройка"})
	}
	updated, err := h.settings.Set(ctx, key, value)
	if err != nil {
		metrics.Actions.WithLabelValues("set_setting", "error").Inc()
		h.logger.WithError(err).WithField("key", key).Error("Failed to save setting")
		h.notice(state.NoticeError, "Не удалось сохранить настройку")
		return err
	}
	h.store.SetSettings(updated)
	metrics.Actions.WithLabelValues("set_setting", "ok").Inc()
	h.notice(state.NoticeSuccess, "Настройки сохранены")
	return nil
}

// run executes one backend call under the busy indicator. call returns the
// success notice text.
func (h *Handler) run(ctx context.Context, action string, call func(context.Context) (string, error), refresh func(context.Context) error) error {
	release := h.store.Busy()
	defer release()

	log := h.logger.WithField("action", action)

	msg, err := call(ctx)
	if errors.Is(err, errSavedLocally) {
		metrics.Actions.WithLabelValues(action, "local").Inc()
		h.notice(state.NoticeInfo, "Нет соединения: желание сохранено только на этом устройстве")
		return nil
	}
	if err != nil {
		metrics.Actions.WithLabelValues(action, "error").Inc()
		log.WithError(err).Warn("Action failed")
		h.notice(state.NoticeError, apiclient.Message(err))
		return err
	}

	metrics.Actions.WithLabelValues(action, "ok").Inc()
	log.Info("Action succeeded")
	h.notice(state.NoticeSuccess, msg)

	if err := refresh(ctx); err != nil {
		log.WithError(err).Warn("Refresh after action failed")
		return err
	}
	return nil
}

func (h *Handler) reject(action string, err error) error {
	metrics.Actions.WithLabelValues(action, "rejected").Inc()
	h.notice(state.NoticeError, userMessage(err))
	return err
}

func (h *Handler) notice(kind state.NoticeKind, msg string) {
	h.store.ShowNotice(kind, msg, h.noticeTTL)
}

func validateWish(userID int64, form WishForm) (models.NewWish, error) {
	wish := models.NewWish{
		UserID:      userID,
		Title:       strings.TrimSpace(form.Title),
		Description: strings.TrimSpace(form.Description),
		Link:        strings.TrimSpace(form.Link),
	}

	if wish.Title == "" {
		return wish, &ValidationError{Field: "title", Message: "Введите название желания"}
	}
	if utf8.RuneCountInString(wish.Title) > models.WishTitleMaxLen {
		return wish, &ValidationError{Field: "title", Message: "Название слишком длинное"}
	}
	if utf8.RuneCountInString(wish.Description) > models.WishDescriptionMaxLen {
		return wish, &ValidationError{Field: "description", Message: "Описание слишком длинное"}
	}

	if raw := strings.ReplaceAll(strings.TrimSpace(form.Price), " ", ""); raw != "" {
		price, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
		if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
			return wish, &ValidationError{Field: "price", Message: "Цена должна быть числом"}
		}
		if price < 0 {
			return wish, &ValidationError{Field: "price", Message: "Цена не может быть отрицательной"}
		}
		wish.Price = &price
	}

	if wish.Link != "" {
		u, err := url.Parse(wish.Link)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return wish, &ValidationError{Field: "link", Message: "Ссылка должна начинаться с http:// или https://"}
		}
	}
	return wish, nil
}
