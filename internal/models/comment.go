package models

import "fmt"

// CommentEvent is emitted when someone comments on a user's post.
type CommentEvent struct {
	UserID    string `json:"userId" binding:"required"`
	PostID    string `json:"postId"`
	CommentID string `json:"commentId" binding:"required"`
	Author    string `json:"author" binding:"required"`
	Content   string `json:"content"`
}

// Message builds the notification sent to the post owner.
func (e CommentEvent) Message(pushToken string) PushMessage {
	return PushMessage{
		To:    pushToken,
		Title: fmt.Sprintf("%s commented on your post", e.Author),
		Body:  e.Content,
		Data:  map[string]any{},
	}
}
