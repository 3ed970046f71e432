package domain

// ProviderKind identifies which wallet backend a session is bound to.
type ProviderKind string

const (
	ProviderNone   ProviderKind = ""
	ProviderNeon   ProviderKind = "neon"   // EVM-side keystore wallet
	ProviderSolana ProviderKind = "solana" // Solana-side keypair wallet
)

// SessionState is an immutable snapshot of the wallet session. It is the
// value delivered to session subscribers; mutating it has no effect on the
// live session.
type SessionState struct {
	Connected     bool         `json:"connected"`
	Provider      ProviderKind `json:"provider"`
	NeonAddress   string       `json:"neonAddress,omitempty"`
	SolanaAddress string       `json:"solanaAddress,omitempty"`
}

// HasAddress reports whether at least one chain address is populated.
// The session invariant is Connected == HasAddress().
func (s SessionState) HasAddress() bool {
	return s.NeonAddress != "" || s.SolanaAddress != ""
}
