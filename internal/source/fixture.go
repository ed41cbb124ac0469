package source

import (
	"context"
	"time"

	"github.com/Kerhoff/wishlist/internal/models"
)

// Fixture serves the built-in demo dataset. Timestamps are relative to the
// injected clock so relative-time labels stay meaningful.
type Fixture struct {
	now func() time.Time
}

// NewFixture creates the demo source. A nil clock means time.Now.
func NewFixture(now func() time.Time) *Fixture {
	if now == nil {
		now = time.Now
	}
	return &Fixture{now: now}
}

func price(v float64) *float64 { return &v }

func (f *Fixture) Wishes(_ context.Context, userID int64) ([]models.Wish, error) {
	now := f.now()
	return []models.Wish{
		{
			ID:          1,
			UserID:      userID,
			Title:       "Купить MacBook",
			Description: "MacBook Pro 16 для работы",
			Price:       price(2500),
			Status:      models.WishStatusActive,
			CreatedAt:   now,
		},
		{
			ID:          2,
			UserID:      userID,
			Title:       "Отпуск в Таиланде",
			Description: "Неделя на пляже в Бангкоке",
			Price:       price(2000),
			Status:      models.WishStatusActive,
			CreatedAt:   now,
		},
		{
			ID:          3,
			UserID:      userID,
			Title:       "Курс по веб-разработке",
			Description: "Полный курс Next.js и TypeScript",
			Price:       price(300),
			Status:      models.WishStatusActive,
			CreatedAt:   now,
		},
	}, nil
}

func (f *Fixture) Friends(_ context.Context, _ int64) ([]models.Friend, error) {
	now := f.now()
	return []models.Friend{
		{
			User:   models.User{ID: 200001, Username: "friend_username", FirstName: "Анна"},
			Status: models.FriendshipStatusAccepted,
			Since:  now.Add(-30 * 24 * time.Hour),
		},
		{
			User:   models.User{ID: 200002, Username: "another_friend", FirstName: "Иван"},
			Status: models.FriendshipStatusAccepted,
			Since:  now.Add(-90 * 24 * time.Hour),
		},
	}, nil
}

func (f *Fixture) PendingRequests(_ context.Context, userID int64) ([]models.FriendRequest, error) {
	return []models.FriendRequest{
		{
			ID:          1,
			RequesterID: 200003,
			AddresseeID: userID,
			Requester:   models.User{ID: 200003, Username: "username", FirstName: "Мария"},
			CreatedAt:   f.now().Add(-2 * time.Hour),
		},
	}, nil
}

func (f *Fixture) Notifications(_ context.Context, _ int64) ([]models.Notification, error) {
	now := f.now()
	return []models.Notification{
		{
			ID:        1,
			Type:      models.NotificationFriendAccepted,
			Message:   "Друг @username подтвердил приглашение в приложение",
			CreatedAt: now.Add(-time.Hour),
		},
		{
			ID:        2,
			Type:      models.NotificationGiftMarked,
			Message:   `Друг @friend_username выбрал подарить "Купить MacBook"`,
			CreatedAt: now.Add(-2 * time.Hour),
		},
		{
			ID:        3,
			Type:      models.NotificationBirthday,
			Message:   "День рождения друга @another_friend - 5 февраля (скоро!)",
			CreatedAt: now.Add(-24 * time.Hour),
		},
	}, nil
}
