package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/neonflash/neonflash/internal/domain"
)

// ChannelSession is the signal bus channel session snapshots are
// published on.
const ChannelSession = "session"

type phase int

const (
	phaseDisconnected phase = iota
	phaseConnecting
	phaseConnected
)

// rederiveTimeout bounds the signature request issued from a provider
// account-change callback, which runs without a caller-supplied context.
const rederiveTimeout = 30 * time.Second

// Session is the single source of truth for the wallet connection. It is
// explicitly constructed and injected (no package-level instance), tracks
// which provider is bound and the operator's two chain addresses, and
// notifies subscribers synchronously after every mutation.
type Session struct {
	mu        sync.Mutex
	phase     phase
	state     domain.SessionState
	active    Provider
	unwatch   func()
	providers map[domain.ProviderKind]Provider

	subMu   sync.Mutex
	subs    map[int]func(domain.SessionState)
	nextSub int

	logger *slog.Logger
}

// NewSession creates a Session with the given provider backends. Providers
// with duplicate kinds overwrite earlier ones.
func NewSession(providers []Provider, logger *slog.Logger) *Session {
	byKind := make(map[domain.ProviderKind]Provider, len(providers))
	for _, p := range providers {
		byKind[p.Kind()] = p
	}
	return &Session{
		phase:     phaseDisconnected,
		providers: byKind,
		subs:      make(map[int]func(domain.SessionState)),
		logger:    logger.With(slog.String("component", "wallet_session")),
	}
}

// State returns a snapshot of the current session.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect binds the session to the named provider: requests account access,
// derives the counterpart-chain address from a signature over
// SessionMessage, and moves to the connected state. A second Connect while
// one is in flight fails with ErrConnectInFlight rather than racing.
func (s *Session) Connect(ctx context.Context, kind domain.ProviderKind) (domain.SessionState, error) {
	s.mu.Lock()
	if s.phase == phaseConnecting {
		s.mu.Unlock()
		return domain.SessionState{}, domain.ErrConnectInFlight
	}
	provider, ok := s.providers[kind]
	if !ok {
		s.mu.Unlock()
		return domain.SessionState{}, fmt.Errorf("wallet: no %q provider configured: %w", kind, domain.ErrProviderUnavailable)
	}
	prevPhase := s.phase
	prevActive, prevUnwatch := s.active, s.unwatch
	s.phase = phaseConnecting
	s.mu.Unlock()

	state, err := s.handshake(ctx, provider)
	if err != nil {
		// A failed handshake leaves any previously connected session
		// intact: state, active, and unwatch were never touched.
		s.mu.Lock()
		s.phase = prevPhase
		s.mu.Unlock()
		return domain.SessionState{}, err
	}

	// Drop event hooks from any previously connected provider.
	if prevActive != nil && prevUnwatch != nil {
		prevUnwatch()
	}

	unwatch := provider.Watch(
		func(addr string) { s.handleAccountChanged(provider, addr) },
		func() { s.Disconnect() },
	)

	s.mu.Lock()
	s.phase = phaseConnected
	s.state = state
	s.active = provider
	s.unwatch = unwatch
	s.mu.Unlock()

	s.logger.Info("wallet connected",
		slog.String("provider", string(kind)),
		slog.String("neon_address", state.NeonAddress),
		slog.String("solana_address", state.SolanaAddress),
	)
	s.notify(state)
	return state, nil
}

// handshake performs the provider round-trips of a connect: account access,
// session-message signature, counterpart derivation.
func (s *Session) handshake(ctx context.Context, provider Provider) (domain.SessionState, error) {
	addr, err := provider.RequestAccounts(ctx)
	if err != nil {
		return domain.SessionState{}, fmt.Errorf("wallet: request accounts: %w", err)
	}

	sig, err := provider.SignMessage(ctx, []byte(SessionMessage))
	if err != nil {
		return domain.SessionState{}, fmt.Errorf("wallet: session signature: %w", err)
	}

	state := domain.SessionState{
		Connected: true,
		Provider:  provider.Kind(),
	}
	switch provider.Kind() {
	case domain.ProviderNeon:
		state.NeonAddress = addr
		state.SolanaAddress, err = deriveSolanaAddress(sig)
	case domain.ProviderSolana:
		state.SolanaAddress = addr
		state.NeonAddress, err = deriveNeonAddress(sig)
	default:
		err = fmt.Errorf("wallet: unsupported provider kind %q: %w", provider.Kind(), domain.ErrProviderUnavailable)
	}
	if err != nil {
		return domain.SessionState{}, err
	}
	return state, nil
}

// Disconnect clears all session state. It is idempotent; disconnecting an
// already-disconnected session performs no mutation and emits no
// notification.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.phase == phaseDisconnected {
		s.mu.Unlock()
		return
	}
	unwatch := s.unwatch
	s.phase = phaseDisconnected
	s.state = domain.SessionState{}
	s.active = nil
	s.unwatch = nil
	snapshot := s.state
	s.mu.Unlock()

	if unwatch != nil {
		unwatch()
	}
	s.logger.Info("wallet disconnected")
	s.notify(snapshot)
}

// AutoConnect attempts a silent connect through the first provider that
// reports prior authorization. All errors are swallowed: this path runs
// unattended at startup and must never surface a failure.
func (s *Session) AutoConnect(ctx context.Context) {
	for _, kind := range []domain.ProviderKind{domain.ProviderNeon, domain.ProviderSolana} {
		provider, ok := s.providers[kind]
		if !ok || !provider.Authorized(ctx) {
			continue
		}
		if _, err := s.Connect(ctx, kind); err != nil {
			s.logger.Debug("auto-connect failed",
				slog.String("provider", string(kind)),
				slog.String("error", err.Error()),
			)
			continue
		}
		return
	}
}

// Subscribe registers a listener invoked synchronously, once, after every
// state mutation with a snapshot of the new state. The returned function
// unregisters it.
func (s *Session) Subscribe(fn func(domain.SessionState)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// handleAccountChanged reacts to a provider-reported account switch: an
// empty address means the wallet revoked access; otherwise the counterpart
// address is re-derived and an update is emitted without leaving the
// connected state.
func (s *Session) handleAccountChanged(provider Provider, addr string) {
	if addr == "" {
		s.Disconnect()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), rederiveTimeout)
	defer cancel()

	sig, err := provider.SignMessage(ctx, []byte(SessionMessage))
	if err != nil {
		s.logger.Warn("re-derivation after account change failed, disconnecting",
			slog.String("error", err.Error()),
		)
		s.Disconnect()
		return
	}

	s.mu.Lock()
	if s.phase != phaseConnected || s.active != provider {
		s.mu.Unlock()
		return
	}
	switch provider.Kind() {
	case domain.ProviderNeon:
		s.state.NeonAddress = addr
		s.state.SolanaAddress, err = deriveSolanaAddress(sig)
	case domain.ProviderSolana:
		s.state.SolanaAddress = addr
		s.state.NeonAddress, err = deriveNeonAddress(sig)
	}
	snapshot := s.state
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("counterpart derivation failed on account change",
			slog.String("error", err.Error()),
		)
		s.Disconnect()
		return
	}
	s.notify(snapshot)
}

// notify fans the snapshot out to all subscribers. Each listener runs
// isolated: a panicking listener is logged and skipped so it cannot break
// state propagation to the others.
func (s *Session) notify(state domain.SessionState) {
	s.subMu.Lock()
	listeners := make([]func(domain.SessionState), 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	s.subMu.Unlock()

	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("session subscriber panicked", slog.Any("panic", r))
				}
			}()
			fn(state)
		}()
	}
}

// Active returns the currently bound provider, or nil when disconnected.
func (s *Session) Active() Provider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
