// Package render turns application state into HTML fragments and chat text.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Kerhoff/wishlist/internal/models"
	"github.com/Kerhoff/wishlist/internal/state"
)

//go:embed templates/*.html
var templatesFS embed.FS

// CurrencySymbol prefixes every price.
const CurrencySymbol = "$"

// Renderer executes the page and tab templates. Output depends only on the
// state and the clock value passed in.
type Renderer struct {
	templates *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"price":         FormatPrice,
		"timeAgo":       TimeAgo,
		"notifications": visibleNotifications,
		"tabTitle":      tabTitle,
	}).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

type view struct {
	state.AppState
	Chrome models.Chrome
	Tabs   []state.Tab
	Now    time.Time
}

// Render writes the content of one tab.
func (r *Renderer) Render(w io.Writer, tab state.Tab, st state.AppState, now time.Time) error {
	if _, ok := state.ParseTab(string(tab)); !ok {
		return fmt.Errorf("unknown tab %q", tab)
	}
	st.Tab = tab
	return r.templates.ExecuteTemplate(w, string(tab), view{AppState: st, Tabs: state.Tabs, Now: now})
}

// Page writes the full document with the active tab's content only.
func (r *Renderer) Page(w io.Writer, st state.AppState, chrome models.Chrome, now time.Time) error {
	return r.templates.ExecuteTemplate(w, "page", view{AppState: st, Chrome: chrome, Tabs: state.Tabs, Now: now})
}

// FormatPrice renders a price with the currency symbol and thousands
// separators. A nil price renders as an empty string.
func FormatPrice(price *float64) string {
	if price == nil {
		return ""
	}
	return CurrencySymbol + humanize.Commaf(*price)
}

// TimeAgo renders t relative to now.
func TimeAgo(now, t time.Time) string {
	seconds := int64(now.Sub(t) / time.Second)
	if seconds < 60 {
		return "только что"
	}
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%d мин назад", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%d ч назад", hours)
	}
	days := hours / 24
	if days < 7 {
		return fmt.Sprintf("%d дн назад", days)
	}
	return t.Format("02.01.2006")
}

// visibleNotifications applies the user's notification settings.
func visibleNotifications(settings models.Settings, list []models.Notification) []models.Notification {
	if !settings.NotificationsEnabled {
		return nil
	}
	if settings.BirthdayNotifications {
		return list
	}
	out := make([]models.Notification, 0, len(list))
	for _, n := range list {
		if n.Type != models.NotificationBirthday {
			out = append(out, n)
		}
	}
	return out
}

func tabTitle(tab state.Tab) string {
	switch tab {
	case state.TabWishes:
		return "🎁 Желания"
	case state.TabSocial:
		return "👥 Друзья"
	case state.TabSettings:
		return "⚙️ Настройки"
	default:
		return string(tab)
	}
}

// WishesText renders a wish list as plain chat text.
func WishesText(wishes []models.Wish) string {
	if len(wishes) == 0 {
		return "📝 Ваш список желаний пуст"
	}

	var b strings.Builder
	b.WriteString("🎁 Ваши желания:\n")
	for i, w := range wishes {
		fmt.Fprintf(&b, "\n%d. %s", i+1, w.Title)
		if w.Price != nil {
			fmt.Fprintf(&b, " — %s", FormatPrice(w.Price))
		}
		if w.IsFulfilled() {
			b.WriteString(" ✅")
		}
		if w.Description != "" {
			fmt.Fprintf(&b, "\n   %s", w.Description)
		}
		if w.Link != "" {
			fmt.Fprintf(&b, "\n   %s", w.Link)
		}
	}
	return b.String()
}
