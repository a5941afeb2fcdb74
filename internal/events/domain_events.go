package events

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
)

// Event types published by the group and memory services
const (
	GroupCreated = "group.created"
	GroupLiked   = "group.liked"
	PostCreated  = "post.created"
	PostLiked    = "post.liked"
)

// GroupCreatedEvent is emitted after a group and its empty badge ledger exist
type GroupCreatedEvent struct {
	BaseEvent
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// GroupLikedEvent is emitted after the group like counter moved
type GroupLikedEvent struct {
	BaseEvent
	LikeCount int64 `json:"likeCount"`
}

// PostCreatedEvent is emitted after a memory was committed
type PostCreatedEvent struct {
	BaseEvent
	PostID    int64     `json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}

// PostLikedEvent is emitted after a memory's like counter moved
type PostLikedEvent struct {
	BaseEvent
	PostID    int64 `json:"postId"`
	LikeCount int64 `json:"likeCount"`
}

func newBase(eventType string, groupID int64) BaseEvent {
	return BaseEvent{
		EventID:   GenerateEventID(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		GroupID:   groupID,
	}
}

// NewGroupCreatedEvent creates a GroupCreatedEvent
func NewGroupCreatedEvent(groupID int64, name string, createdAt time.Time) *GroupCreatedEvent {
	return &GroupCreatedEvent{BaseEvent: newBase(GroupCreated, groupID), Name: name, CreatedAt: createdAt}
}

// NewGroupLikedEvent creates a GroupLikedEvent
func NewGroupLikedEvent(groupID, likeCount int64) *GroupLikedEvent {
	return &GroupLikedEvent{BaseEvent: newBase(GroupLiked, groupID), LikeCount: likeCount}
}

// NewPostCreatedEvent creates a PostCreatedEvent
func NewPostCreatedEvent(groupID, postID int64, createdAt time.Time) *PostCreatedEvent {
	return &PostCreatedEvent{BaseEvent: newBase(PostCreated, groupID), PostID: postID, CreatedAt: createdAt}
}

// NewPostLikedEvent creates a PostLikedEvent
func NewPostLikedEvent(groupID, postID, likeCount int64) *PostLikedEvent {
	return &PostLikedEvent{BaseEvent: newBase(PostLiked, groupID), PostID: postID, LikeCount: likeCount}
}

// GenerateEventID returns a unique event id
func GenerateEventID() string {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Sprintf("evt_%d", time.Now().UnixNano())
	}
	return "evt_" + id.String()
}
