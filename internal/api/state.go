package api

import (
	"github.com/Kerhoff/wishlist/internal/models"
	"github.com/Kerhoff/wishlist/internal/state"
)

type noticeResponse struct {
	Kind    state.NoticeKind `json:"kind"`
	Message string           `json:"message"`
}

type friendViewResponse struct {
	Friend models.User   `json:"friend"`
	Wishes []models.Wish `json:"wishes"`
	Demo   bool          `json:"demo"`
}

type appStateResponse struct {
	UserID        int64                  `json:"userId"`
	Demo          bool                   `json:"demo"`
	Tab           state.Tab              `json:"tab"`
	Loaded        bool                   `json:"loaded"`
	Busy          bool                   `json:"busy"`
	Wishes        []models.Wish          `json:"wishes"`
	Friends       []models.Friend        `json:"friends"`
	Requests      []models.FriendRequest `json:"requests"`
	Notifications []models.Notification  `json:"notifications"`
	DemoLists     state.DemoFlags        `json:"demoLists"`
	Settings      models.Settings        `json:"settings"`
	Viewing       *friendViewResponse    `json:"viewing,omitempty"`
	Notice        *noticeResponse        `json:"notice,omitempty"`
}

// stateResponse is the JSON shape of a snapshot. Lists are never null.
func stateResponse(st state.AppState) appStateResponse {
	resp := appStateResponse{
		UserID:        st.Session.UserID,
		Demo:          st.Session.Demo,
		Tab:           st.Tab,
		Loaded:        st.Loaded,
		Busy:          st.Busy,
		Wishes:        nonNil(st.Wishes),
		Friends:       nonNil(st.Friends),
		Requests:      nonNil(st.Requests),
		Notifications: nonNil(st.Notifications),
		DemoLists:     st.Demo,
		Settings:      st.Settings,
	}
	if st.Viewing != nil {
		resp.Viewing = &friendViewResponse{
			Friend: st.Viewing.Friend,
			Wishes: nonNil(st.Viewing.Wishes),
			Demo:   st.Viewing.Demo,
		}
	}
	if st.Notice != nil {
		resp.Notice = &noticeResponse{Kind: st.Notice.Kind, Message: st.Notice.Message}
	}
	return resp
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
