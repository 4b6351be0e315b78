package realtime

import "context"

// StaticTokenAuthenticator accepts any token present in an allowlist loaded
// from config. Dashboard-user-level authentication happens upstream of this
// core (the operator-facing dashboard is an external system); this core only
// needs to know the caller is a trusted proxy for that dashboard.
type StaticTokenAuthenticator struct {
	tokens map[string]struct{}
}

func NewStaticTokenAuthenticator(tokens []string) *StaticTokenAuthenticator {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return &StaticTokenAuthenticator{tokens: set}
}

func (a *StaticTokenAuthenticator) Authenticate(_ context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	_, ok := a.tokens[token]
	return ok, nil
}
