package models

// Member is one logical participant of a room: one browser session, however
// many tabs it has open. UserID is the session id.
type Member struct {
	UserID   string  `json:"userId"`
	UserLat  float64 `json:"userLat"`
	UserLng  float64 `json:"userLng"`
	UserName string  `json:"userName"`
}

// JoinList maps userId -> Member.
type JoinList map[string]Member
