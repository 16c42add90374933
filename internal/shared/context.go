package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession returns a context carrying the resolved session. The
// session middleware installs it; handlers read it back with
// SessionFromContext.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the session resolved for this request, or nil
// when the request carried no valid token.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}
