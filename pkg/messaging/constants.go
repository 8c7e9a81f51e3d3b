package messaging

const (
	ExchangeName      = "notifications"
	PushRoutingKey    = "push"
	CommentRoutingKey = "comment"
	PushQueueName     = "push_queue"
	CommentQueueName  = "comment_queue"
)
