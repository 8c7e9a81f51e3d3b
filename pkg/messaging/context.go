package messaging

import "context"

type runIDKey struct{}

// WithRunID tags ctx with the dispatch cycle id so published batches can be
// correlated with the cycle that built them.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
