package auth

import "context"

// ContextGate treats a request as authenticated when it carries a non-guest
// identity.
type ContextGate struct{}

// IsAuthenticated implements pipeline.AuthGate.
func (ContextGate) IsAuthenticated(ctx context.Context) bool {
	id, ok := IdentityFrom(ctx)
	return ok && !id.Guest
}

// TokenGate authenticates with a fixed bearer token, as used by the CLI.
type TokenGate struct {
	Signer *Signer
	Token  string
}

// IsAuthenticated implements pipeline.AuthGate.
func (g TokenGate) IsAuthenticated(ctx context.Context) bool {
	_ = ctx
	if g.Signer == nil || g.Token == "" {
		return false
	}
	claims, err := g.Signer.Verify(g.Token)
	return err == nil && !claims.Guest
}
