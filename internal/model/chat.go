package model

// ChatMessage is a message at chats/{chatId}/messages/{messageId}.
type ChatMessage struct {
	SenderID  string `json:"senderId"`
	Text      string `json:"text"`
	Read      bool   `json:"read"`
	Timestamp int64  `json:"timestamp"`
}

// UnreadResponse is returned by GET /me/unread.
type UnreadResponse struct {
	Total  int            `json:"total"`
	ByChat map[string]int `json:"by_chat"`
}
