package store

import "time"

type Chat struct {
	JID           string    `json:"jid"`
	Kind          string    `json:"kind"`
	Name          string    `json:"name"`
	LastMessageTS time.Time `json:"last_message_ts"`
}

type Contact struct {
	JID       string    `json:"jid"`
	Phone     string    `json:"phone,omitempty"`
	Name      string    `json:"name"`
	Alias     string    `json:"alias,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Group struct {
	JID       string    `json:"jid"`
	Name      string    `json:"name"`
	OwnerJID  string    `json:"owner_jid,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type GroupParticipant struct {
	GroupJID  string    `json:"group_jid"`
	UserJID   string    `json:"user_jid"`
	Role      string    `json:"role"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Message struct {
	ChatJID     string    `json:"chat_jid"`
	ChatName    string    `json:"chat_name,omitempty"`
	MsgID       string    `json:"msg_id"`
	SenderJID   string    `json:"sender_jid,omitempty"`
	Timestamp   time.Time `json:"ts"`
	FromMe      bool      `json:"from_me"`
	Text        string    `json:"text,omitempty"`
	DisplayText string    `json:"display_text,omitempty"`
	MediaType   string    `json:"media_type,omitempty"`
	Snippet     string    `json:"snippet,omitempty"`
}

type MessageInfo struct {
	ChatJID    string    `json:"chat_jid"`
	MsgID      string    `json:"msg_id"`
	Timestamp  time.Time `json:"ts"`
	FromMe     bool      `json:"from_me"`
	SenderJID  string    `json:"sender_jid,omitempty"`
	SenderName string    `json:"sender_name,omitempty"`
}

// MediaDownloadInfo is everything needed to fetch one message's media from
// the CDN. Key material stays out of JSON output.
type MediaDownloadInfo struct {
	ChatJID       string    `json:"chat_jid"`
	ChatName      string    `json:"chat_name,omitempty"`
	MsgID         string    `json:"msg_id"`
	Timestamp     time.Time `json:"ts"`
	MediaType     string    `json:"media_type"`
	Filename      string    `json:"filename,omitempty"`
	MimeType      string    `json:"mime_type,omitempty"`
	DirectPath    string    `json:"-"`
	MediaKey      []byte    `json:"-"`
	FileSHA256    []byte    `json:"-"`
	FileEncSHA256 []byte    `json:"-"`
	FileLength    uint64    `json:"file_length,omitempty"`
	LocalPath     string    `json:"local_path,omitempty"`
	DownloadedAt  time.Time `json:"downloaded_at,omitzero"`
}
