package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/wishlist/internal/models"
	"github.com/Kerhoff/wishlist/internal/state"
)

var now = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

func price(v float64) *float64 { return &v }

func loadedState(wishes ...models.Wish) state.AppState {
	return state.AppState{
		Session:  models.Session{UserID: 647859651},
		Tab:      state.TabWishes,
		Loaded:   true,
		Wishes:   wishes,
		Settings: models.DefaultSettings(),
	}
}

func renderTab(t *testing.T, tab state.Tab, st state.AppState) string {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, tab, st, now))
	return buf.String()
}

func TestRender_EscapesUserText(t *testing.T) {
	st := loadedState(models.Wish{
		ID:          1,
		UserID:      647859651,
		Title:       `<script>alert("x")</script>`,
		Description: `Tom & Jerry's <b>cheese</b>`,
	})
	st.Friends = []models.Friend{{User: models.User{ID: 2, Username: `<img src=x onerror=alert(1)>`}}}

	out := renderTab(t, state.TabWishes, st)
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<b>cheese</b>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.Contains(t, out, "Tom &amp; Jerry&#39;s")

	social := renderTab(t, state.TabSocial, st)
	assert.NotContains(t, social, "<img src=x")
	assert.Contains(t, social, "&lt;img")
}

func TestRender_ExactlyOneTabVisible(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	for _, tab := range state.Tabs {
		st := loadedState()
		st.Tab = tab

		var buf bytes.Buffer
		require.NoError(t, r.Page(&buf, st, models.Chrome{}, now))
		out := buf.String()

		assert.Equal(t, 1, strings.Count(out, `class="tab-content`), "tab %s", tab)
		assert.Contains(t, out, `data-tab="`+string(tab)+`"`)
	}
}

func TestRender_UnknownTab(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	assert.Error(t, r.Render(&bytes.Buffer{}, state.Tab("admin"), loadedState(), now))
}

func TestRender_LoadingAndEmptyStatesDiffer(t *testing.T) {
	loading := loadedState()
	loading.Loaded = false

	assert.Contains(t, renderTab(t, state.TabWishes, loading), "Загрузка")

	empty := renderTab(t, state.TabWishes, loadedState())
	assert.NotContains(t, empty, "Загрузка")
	assert.Contains(t, empty, "Ваш список желаний пуст")

	social := renderTab(t, state.TabSocial, loadedState())
	assert.Contains(t, social, "Нет новых приглашений")
	assert.Contains(t, social, "У вас пока нет друзей")
	assert.Contains(t, social, "Нет уведомлений")
}

func TestRender_OptionalRowsOmitted(t *testing.T) {
	out := renderTab(t, state.TabWishes, loadedState(models.Wish{ID: 1, UserID: 647859651, Title: "Socks"}))

	assert.Contains(t, out, "Socks")
	assert.NotContains(t, out, "wish-price")
	assert.NotContains(t, out, "wish-description")
	assert.NotContains(t, out, "wish-link")
}

func TestRender_ExampleScenario(t *testing.T) {
	st := loadedState(
		models.Wish{ID: 1, UserID: 647859651, Title: "MacBook Pro", Price: price(2500)},
		models.Wish{ID: 2, UserID: 647859651, Title: "Headphones", Price: price(300)},
		models.Wish{ID: 3, UserID: 647859651, Title: "Kindle"},
		models.Wish{ID: 4, UserID: 647859651, Title: "Bike", Link: "https://example.com/bike"},
	)

	out := renderTab(t, state.TabWishes, st)
	assert.Equal(t, 4, strings.Count(out, `class="wish-card`))
	assert.Contains(t, out, "💰 $2,500")

	again := renderTab(t, state.TabWishes, st)
	assert.Equal(t, out, again)
}

func TestRender_NotificationSettings(t *testing.T) {
	st := loadedState()
	st.Notifications = []models.Notification{
		{ID: 1, Type: models.NotificationGiftMarked, Message: "gift", CreatedAt: now.Add(-5 * time.Minute)},
		{ID: 2, Type: models.NotificationBirthday, Message: "birthday soon", CreatedAt: now.Add(-3 * time.Hour)},
	}

	out := renderTab(t, state.TabSocial, st)
	assert.Contains(t, out, "birthday soon")
	assert.Contains(t, out, "5 мин назад")
	assert.Contains(t, out, "3 ч назад")

	st.Settings.BirthdayNotifications = false
	out = renderTab(t, state.TabSocial, st)
	assert.NotContains(t, out, "birthday soon")
	assert.Contains(t, out, "gift")

	st.Settings.NotificationsEnabled = false
	out = renderTab(t, state.TabSocial, st)
	assert.NotContains(t, out, "gift")
	assert.Contains(t, out, "Уведомления отключены")
}

func TestPage_Banners(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	st := loadedState()
	st.Session.Demo = true
	var buf bytes.Buffer
	require.NoError(t, r.Page(&buf, st, models.Chrome{}, now))
	assert.Contains(t, buf.String(), "Demo Mode")

	st = loadedState()
	st.Demo.Wishes = true
	st.Notice = &state.Notice{Kind: state.NoticeError, Message: "<oops>"}
	buf.Reset()
	require.NoError(t, r.Page(&buf, st, models.Chrome{Expand: true, HeaderColor: "#1f2121"}, now))
	out := buf.String()
	assert.Contains(t, out, "Сервер недоступен")
	assert.Contains(t, out, "notice-error")
	assert.Contains(t, out, "&lt;oops&gt;")
	assert.Contains(t, out, `data-expand="true"`)
	assert.Contains(t, out, `data-header-color="#1f2121"`)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "", FormatPrice(nil))
	assert.Equal(t, "$2,500", FormatPrice(price(2500)))
	assert.Equal(t, "$1,234,567.5", FormatPrice(price(1234567.5)))
	assert.Equal(t, "$0", FormatPrice(price(0)))
}

func TestTimeAgo(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "только что"},
		{59 * time.Minute, "59 мин назад"},
		{2 * time.Hour, "2 ч назад"},
		{3 * 24 * time.Hour, "3 дн назад"},
		{10 * 24 * time.Hour, "10.05.2024"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TimeAgo(now, now.Add(-tt.ago)))
	}
}

func TestWishesText(t *testing.T) {
	assert.Equal(t, "📝 Ваш список желаний пуст", WishesText(nil))

	text := WishesText([]models.Wish{
		{Title: "Book", Price: price(1500), Description: "Any sci-fi"},
		{Title: "Tea", Status: models.WishStatusFulfilled},
	})
	assert.Contains(t, text, "1. Book — $1,500")
	assert.Contains(t, text, "Any sci-fi")
	assert.Contains(t, text, "2. Tea ✅")
}
