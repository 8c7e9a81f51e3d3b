package messaging

import "encoding/json"

// PushMessage mirrors the relay wire format: token, title, body and JSON data.
type PushMessage struct {
	To    string          `json:"to"`
	Title string          `json:"title"`
	Body  string          `json:"body"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// PushBatchEvent carries one dispatch batch to the relay worker.
type PushBatchEvent struct {
	RunID    string        `json:"runId"`
	Messages []PushMessage `json:"messages"`
}

// CommentCreatedEvent announces a new comment on a user's post.
type CommentCreatedEvent struct {
	UserID    string `json:"userId"`
	PostID    string `json:"postId"`
	CommentID string `json:"commentId"`
	Author    string `json:"author"`
	Content   string `json:"content"`
}
