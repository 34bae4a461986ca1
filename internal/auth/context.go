package auth

import "context"

type ctxKey string

const ctxKeyLearner ctxKey = "learner"

func WithLearner(ctx context.Context, learnerID string) context.Context {
	return context.WithValue(ctx, ctxKeyLearner, learnerID)
}

func LearnerFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxKeyLearner); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
