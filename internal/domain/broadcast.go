package domain

import "time"

// Broadcast segments. A segment names a recipient-selection rule; resolution
// always excludes users who opted out or blocked the bot.
const (
	SegmentAll      = "all"
	SegmentActive30 = "active30"
)

// ActiveWindow is the recency window of the active segment.
const ActiveWindow = 30 * 24 * time.Hour

// DraftRef points at a previously-sent admin message that can be copied to
// another chat. It is held in memory only while a broadcast is being staged.
type DraftRef struct {
	FromChatID int64 `bson:"from_chat_id" json:"from_chat_id"`
	MessageID  int   `bson:"message_id" json:"message_id"`
}

// BroadcastRecord is the append-only audit row written once per completed
// broadcast run.
type BroadcastRecord struct {
	AdminID    int64     `bson:"admin_id" json:"admin_id"`
	FromChatID int64     `bson:"from_chat_id" json:"from_chat_id"`
	MessageID  int       `bson:"message_id" json:"message_id"`
	Segment    string    `bson:"segment" json:"segment"`
	SentOK     int       `bson:"sent_ok" json:"sent_ok"`
	SentFail   int       `bson:"sent_fail" json:"sent_fail"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}
