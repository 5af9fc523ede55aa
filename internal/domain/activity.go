package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

// ActivityType represents the type of feed activity.
type ActivityType string

const (
	// ActivityWorkCompleted is recorded when a user finishes a long enough work session.
	// Only sessions of at least MinWorkCompletedSeconds generate one.
	ActivityWorkCompleted ActivityType = "work_completed"

	// ActivityAchievementUnlocked is recorded once per newly awarded achievement.
	ActivityAchievementUnlocked ActivityType = "achievement_unlocked"

	// ActivityFollowed is recorded on the followed user's feed when someone follows them.
	ActivityFollowed ActivityType = "followed"
)

// Valid returns true if the type is a recognized value.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityWorkCompleted, ActivityAchievementUnlocked, ActivityFollowed:
		return true
	default:
		return false
	}
}

// MinWorkCompletedSeconds is the minimum session length that produces a work_completed activity.
const MinWorkCompletedSeconds = 20 * 60

// Activity is a feed entry. Activities are immutable once created.
// RelatedData holds the JSON-encoded payload of the event.
type Activity struct {
	ID          string       `json:"id"`
	UserID      string       `json:"user_id"`
	Type        ActivityType `json:"type"`
	Message     string       `json:"message"`
	RelatedData []byte       `json:"related_data,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// WorkCompletedPayload is the payload of a work_completed activity.
type WorkCompletedPayload struct {
	Minutes int64 `json:"minutes"`
}

// Message renders the feed text for the payload.
func (p WorkCompletedPayload) Message() string {
	return fmt.Sprintf("Completed %dh %dm of focused work", p.Minutes/60, p.Minutes%60)
}

// AchievementUnlockedPayload is the payload of an achievement_unlocked activity.
type AchievementUnlockedPayload struct {
	RuleID          string `json:"rule_id"`
	AchievementName string `json:"achievement_name"`
	Description     string `json:"description"`
}

// Message renders the feed text for the payload.
func (p AchievementUnlockedPayload) Message() string {
	return fmt.Sprintf("Unlocked %q!", p.AchievementName)
}

// FollowedPayload is the payload of a followed activity.
type FollowedPayload struct {
	FollowerID string `json:"follower_id"`
}

// Message renders the feed text for the payload.
func (p FollowedPayload) Message() string {
	return p.FollowerID + " started following you"
}

// Messager is implemented by payloads that can render their own feed text.
type Messager interface {
	Message() string
}

// Follow is a directed edge from follower to followee.
type Follow struct {
	FollowerID string    `json:"follower_id"`
	FolloweeID string    `json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// FollowCounts summarizes a user's follow graph.
type FollowCounts struct {
	Following int `json:"following"`
	Followers int `json:"followers"`
}

// MaxCommentLength is the longest comment accepted, in characters.
const MaxCommentLength = 500

// Comment is a remark a user leaves on an activity.
type Comment struct {
	ID         string    `json:"id"`
	ActivityID string    `json:"activity_id"`
	UserID     string    `json:"user_id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// Reactions summarizes the likes and comments on one activity as one viewer sees them.
type Reactions struct {
	LikeCount    int  `json:"like_count"`
	Liked        bool `json:"liked"`
	CommentCount int  `json:"comment_count"`
}

// ActivityCursor is a position in a newest-first activity listing.
// The zero value means "start from the newest".
type ActivityCursor struct {
	CreatedAt time.Time
	ID        string
}

// IsZero reports whether the cursor points at the start of the listing.
func (c ActivityCursor) IsZero() bool {
	return c.CreatedAt.IsZero() && c.ID == ""
}

// Encode returns the opaque, URL-safe form of the cursor.
func (c ActivityCursor) Encode() string {
	if c.IsZero() {
		return ""
	}
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// CursorAfter returns the cursor that continues a listing after a.
func CursorAfter(a *Activity) ActivityCursor {
	return ActivityCursor{CreatedAt: a.CreatedAt, ID: a.ID}
}

// ParseActivityCursor decodes a cursor produced by Encode. An empty string yields the zero cursor.
func ParseActivityCursor(s string) (ActivityCursor, error) {
	if s == "" {
		return ActivityCursor{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return ActivityCursor{}, fmt.Errorf("invalid cursor: %w", err)
	}
	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return ActivityCursor{}, fmt.Errorf("invalid cursor")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ActivityCursor{}, fmt.Errorf("invalid cursor time: %w", err)
	}
	return ActivityCursor{CreatedAt: createdAt, ID: id}, nil
}
