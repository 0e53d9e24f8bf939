package models

import "time"

// Room is the durable identity record of a voting room. Everything that changes
// while people are voting lives in the ephemeral store instead.
type Room struct {
	RoomCode  string     `json:"roomCode" bson:"roomCode"`
	Lat       float64    `json:"lat" bson:"lat"`
	Lng       float64    `json:"lng" bson:"lng"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" bson:"deletedAt,omitempty"`
}

// Deleted reports whether the room has been soft-deleted. Deletion is permanent.
func (r *Room) Deleted() bool {
	return r.DeletedAt != nil
}

// CandidateList maps restaurant id -> vote count.
type CandidateList map[string]int

// NewCandidateList seeds a zero tally over exactly the ids of the given restaurants.
func NewCandidateList(restaurants []Restaurant) CandidateList {
	list := make(CandidateList, len(restaurants))
	for _, r := range restaurants {
		list[r.ID] = 0
	}
	return list
}
