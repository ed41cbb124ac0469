package state

import (
	"slices"
	"sync"
	"time"

	"github.com/Kerhoff/wishlist/internal/models"
)

// Store owns an AppState and serializes every change to it.
//
// Loads take a sequence number from Begin before fetching. Commit applies a
// result only when its sequence is newer than the last one committed for
// the same entity, so a slow response never overwrites fresher data.
type Store struct {
	mu        sync.Mutex
	st        AppState
	issued    uint64
	committed map[Entity]uint64
	busy      int
	noticeID  uint64
	timer     *time.Timer
}

// NewStore creates the state of a freshly started session.
func NewStore(session models.Session, settings models.Settings) *Store {
	return &Store{
		st: AppState{
			Session:  session,
			Tab:      TabWishes,
			Settings: settings,
		},
		committed: make(map[Entity]uint64),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.st.clone()
	st.Busy = s.busy > 0
	return st
}

// Begin issues the sequence number for a new load.
func (s *Store) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Commit runs apply under the lock if seq is the newest result seen for
// entity. It reports whether the result was applied.
func (s *Store) Commit(seq uint64, entity Entity, apply func(*AppState)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.committed[entity] {
		return false
	}
	s.committed[entity] = seq
	apply(&s.st)
	return true
}

// MarkLoaded records that the first load has settled.
func (s *Store) MarkLoaded() {
	s.mu.Lock()
	s.st.Loaded = true
	s.mu.Unlock()
}

// SwitchTab changes the visible tab. It never touches the lists.
func (s *Store) SwitchTab(tab Tab) {
	s.mu.Lock()
	s.st.Tab = tab
	if tab != TabSocial {
		s.st.Viewing = nil
	}
	s.mu.Unlock()
}

// SetSettings replaces the settings.
func (s *Store) SetSettings(settings models.Settings) {
	s.mu.Lock()
	s.st.Settings = settings
	s.mu.Unlock()
}

// AppendLocalWish adds an unsaved wish produced while offline.
func (s *Store) AppendLocalWish(w models.Wish) {
	s.mu.Lock()
	w.Local = true
	s.st.Wishes = append(s.st.Wishes, w)
	s.mu.Unlock()
}

// RemoveLocalWish drops an unsaved wish. Persisted wishes are left alone.
func (s *Store) RemoveLocalWish(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.st.Wishes, func(w models.Wish) bool { return w.ID == id && w.Local })
	if i < 0 {
		return false
	}
	s.st.Wishes = slices.Delete(s.st.Wishes, i, i+1)
	return true
}

// CloseFriendView leaves the friend wish list.
func (s *Store) CloseFriendView() {
	s.mu.Lock()
	s.st.Viewing = nil
	s.mu.Unlock()
}

// Busy raises the busy indicator and returns the function that lowers it.
// Callers defer the returned function.
func (s *Store) Busy() (release func()) {
	s.mu.Lock()
	s.busy++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.busy--
			s.mu.Unlock()
		})
	}
}

// ShowNotice displays a notice that is dismissed after ttl. A newer notice
// replaces an older one.
func (s *Store) ShowNotice(kind NoticeKind, message string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.noticeID++
	id := s.noticeID
	s.st.Notice = &Notice{ID: id, Kind: kind, Message: message}

	if s.timer != nil {
		s.timer.Stop()
	}
	if ttl > 0 {
		s.timer = time.AfterFunc(ttl, func() { s.dismiss(id) })
	}
}

func (s *Store) dismiss(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.st.Notice != nil && s.st.Notice.ID == id {
		s.st.Notice = nil
	}
}

// Close stops the notice timer.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
