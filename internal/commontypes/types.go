package commontypes

// Message is one channel message or thread reply, enriched with
// human-readable fields for the backup artifact and the report corpus.
type Message struct {
	Ts             string     `json:"ts"`
	Datetime       string     `json:"datetime"`
	Date           string     `json:"date"`
	Text           string     `json:"text"`
	IsThreadReply  bool       `json:"is_thread_reply"`
	ParentTs       string     `json:"parent_ts,omitempty"`
	UserID         string     `json:"user_id,omitempty"`
	UserName       string     `json:"user_name,omitempty"`
	IsBot          bool       `json:"is_bot,omitempty"`
	IsSelfBot      bool       `json:"is_self_bot,omitempty"`
	HasFiles       bool       `json:"has_files,omitempty"`
	FileNames      []string   `json:"file_names,omitempty"`
	HasAttachments bool       `json:"has_attachments,omitempty"`
	Reactions      []Reaction `json:"reactions,omitempty"`
}

type Reaction struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Backup is the per-period persisted artifact. SeenTs is the only field read
// back on the next run; the rest is audit data.
type Backup struct {
	Meta              BackupMeta `json:"meta"`
	WeeklyMessages    []Message  `json:"weekly_messages"`
	LateThreadReplies []Message  `json:"late_thread_replies"`
	SeenTs            []string   `json:"seen_ts"`
}

type BackupMeta struct {
	Period      string      `json:"period"`
	Start       string      `json:"start"`
	End         string      `json:"end"`
	GeneratedAt string      `json:"generated_at"`
	ChannelID   string      `json:"channel_id"`
	Stats       BackupStats `json:"stats"`
}

type BackupStats struct {
	WeeklyMessages    int `json:"weekly_messages"`
	LateThreadReplies int `json:"late_thread_replies"`
	TotalSeen         int `json:"total_seen"`
}

// FeedbackEntry is one accumulated team feedback record from the worker API.
type FeedbackEntry struct {
	Category string `json:"category"`
	Date     string `json:"date"`
	Text     string `json:"text"`
}
