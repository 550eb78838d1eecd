// Package service contains the zkLogin application services: login
// provisioning and transaction submission.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/suizk/internal/balance"
	"github.com/and161185/suizk/internal/busy"
	"github.com/and161185/suizk/internal/crypto/ephemeral"
	"github.com/and161185/suizk/internal/errs"
	"github.com/and161185/suizk/internal/idtoken"
	"github.com/and161185/suizk/internal/ledger"
	"github.com/and161185/suizk/internal/metrics"
	"github.com/and161185/suizk/internal/model"
	"github.com/and161185/suizk/internal/prover"
	"github.com/and161185/suizk/internal/salt"
	"github.com/and161185/suizk/internal/session"
	"github.com/and161185/suizk/internal/zk"
)

// StatusProving is shown while the proving service works.
const StatusProving = "Requesting ZK proof. This can take a few seconds..."

// Outcome classifies how a login completion ended.
type Outcome string

// Login completion outcomes. Everything but OutcomeCompleted is a soft abort.
const (
	OutcomeCompleted   Outcome = "completed"
	OutcomeNoToken     Outcome = "no_token"
	OutcomeNoPending   Outcome = "no_pending"
	OutcomeBadSetup    Outcome = "bad_setup"
	OutcomeMalformed   Outcome = "malformed_token"
	OutcomeSaltFailed  Outcome = "salt_failed"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeProofFailed Outcome = "proof_failed"
)

// Result reports a login completion. Account is set only when completed.
type Result struct {
	Outcome Outcome
	Account *model.Account
}

// Pending describes a started login flow.
type Pending struct {
	URL      string
	FlowID   string
	MaxEpoch uint64
	Nonce    string
}

// LoginService runs the two phases of a zkLogin.
type LoginService interface {
	// Begin prepares an ephemeral setup and returns the provider URL.
	Begin(ctx context.Context, provider model.Provider) (Pending, error)
	// Complete consumes the redirect URL and provisions an account.
	Complete(ctx context.Context, redirectURL string) (Result, error)
}

// LoginConfig holds the OAuth and epoch settings of LoginServiceImpl.
type LoginConfig struct {
	ClientIDs      map[model.Provider]string
	RedirectURI    string
	MaxEpochOffset uint64
}

type LoginServiceImpl struct {
	ledger    ledger.Ledger
	store     *session.Store
	salt      salt.Resolver
	prover    prover.Requester
	busy      busy.Indicator
	refresher *balance.Refresher
	cfg       LoginConfig
	log       *zap.Logger
}

// NewLoginService constructs LoginService. busy, refresher and log may be nil.
func NewLoginService(l ledger.Ledger, store *session.Store, sr salt.Resolver, pr prover.Requester,
	ind busy.Indicator, refresher *balance.Refresher, cfg LoginConfig, log *zap.Logger) *LoginServiceImpl {
	if ind == nil {
		ind = busy.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.MaxEpochOffset == 0 {
		cfg.MaxEpochOffset = 2
	}
	return &LoginServiceImpl{
		ledger: l, store: store, salt: sr, prover: pr,
		busy: ind, refresher: refresher, cfg: cfg, log: log,
	}
}

// Begin reads the current epoch, generates a fresh ephemeral key and
// randomness, binds them in a nonce and records the setup under a new flow
// id that travels as the OAuth state.
func (s *LoginServiceImpl) Begin(ctx context.Context, provider model.Provider) (Pending, error) {
	clientID := s.cfg.ClientIDs[provider]
	if clientID == "" {
		return Pending{}, fmt.Errorf("validation: no client id for %s", provider)
	}
	epoch, err := s.ledger.CurrentEpoch(ctx)
	if err != nil {
		return Pending{}, err
	}
	maxEpoch := epoch + s.cfg.MaxEpochOffset

	kp, rnd, err := ephemeral.Generate()
	if err != nil {
		return Pending{}, err
	}
	nonce, err := zk.Nonce(kp.SuiPublicKey(), maxEpoch, rnd)
	if err != nil {
		return Pending{}, err
	}
	flow, err := uuid.NewV4()
	if err != nil {
		return Pending{}, err
	}

	setup := model.EphemeralSetup{
		Provider:            provider,
		MaxEpoch:            maxEpoch,
		Randomness:          string(rnd),
		EphemeralPrivateKey: ephemeral.Serialize(kp),
	}
	if err := s.store.SaveSetup(ctx, flow.String(), setup); err != nil {
		return Pending{}, err
	}
	url, err := idtoken.LoginURL(provider, clientID, s.cfg.RedirectURI, nonce, flow.String())
	if err != nil {
		return Pending{}, err
	}
	s.log.Debug("login started",
		zap.String("provider", string(provider)),
		zap.String("flow", flow.String()),
		zap.Uint64("maxEpoch", maxEpoch),
	)
	return Pending{URL: url, FlowID: flow.String(), MaxEpoch: maxEpoch, Nonce: nonce}, nil
}

func (s *LoginServiceImpl) abort(o Outcome, msg string, fields ...zap.Field) (Result, error) {
	metrics.LoginOutcomes.WithLabelValues(string(o)).Inc()
	if o != OutcomeNoToken {
		s.log.Warn("[completeZkLogin] "+msg, fields...)
	}
	return Result{Outcome: o}, nil
}

// Complete runs the post-redirect phase. The pending setup is taken before
// any network call so a replayed URL aborts without a round trip. Soft
// failures come back as a Result with a nil error; only storage failures are
// returned as errors.
func (s *LoginServiceImpl) Complete(ctx context.Context, redirectURL string) (Result, error) {
	r, ok := idtoken.ParseRedirect(redirectURL)
	if !ok {
		return s.abort(OutcomeNoToken, "no id_token in redirect")
	}

	setup, err := s.store.TakeSetup(ctx, r.State)
	switch {
	case errors.Is(err, errs.ErrNoPendingLogin):
		return s.abort(OutcomeNoPending, "missing ephemeral setup")
	case errors.Is(err, errs.ErrCorruptState):
		return s.abort(OutcomeNoPending, "unreadable ephemeral setup", zap.Error(err))
	case err != nil:
		return Result{}, err
	}

	kp, err := ephemeral.Deserialize(setup.EphemeralPrivateKey)
	if err != nil {
		return s.abort(OutcomeBadSetup, "invalid ephemeral key in setup", zap.Error(err))
	}

	claims, err := idtoken.Decode(r.Token)
	if err != nil {
		return s.abort(OutcomeMalformed, "missing JWT data", zap.Error(err))
	}

	userSalt, err := s.salt.Resolve(ctx, r.Token)
	if err != nil {
		return s.abort(OutcomeSaltFailed, "salt service error", zap.Error(err))
	}

	addr, err := zk.DeriveAddress(claims, userSalt)
	if err != nil {
		return s.abort(OutcomeMalformed, "cannot derive address", zap.Error(err))
	}

	exists, err := s.store.HasAccount(ctx, addr)
	if err != nil {
		return Result{}, err
	}
	if exists {
		return s.abort(OutcomeDuplicate, "account already logged in", zap.String("address", addr))
	}

	proof, err := s.requestProof(ctx, model.ProofRequest{
		MaxEpoch:                   setup.MaxEpoch,
		JwtRandomness:              setup.Randomness,
		ExtendedEphemeralPublicKey: kp.ExtendedPublicKey(),
		JWT:                        r.Token,
		Salt:                       userSalt,
		KeyClaimName:               model.KeyClaimName,
	})
	if err != nil {
		return s.abort(OutcomeProofFailed, "failed to get proof", zap.Error(err))
	}

	acct := model.Account{
		Provider:            setup.Provider,
		UserAddr:            addr,
		ZkProofs:            proof,
		EphemeralPrivateKey: setup.EphemeralPrivateKey,
		UserSalt:            userSalt,
		Sub:                 claims.Subject,
		Aud:                 claims.Audience,
		MaxEpoch:            setup.MaxEpoch,
	}
	if err := s.store.SaveAccount(ctx, acct); err != nil {
		if errors.Is(err, errs.ErrDuplicateIdentity) {
			return s.abort(OutcomeDuplicate, "account already logged in", zap.String("address", addr))
		}
		return Result{}, err
	}

	metrics.LoginOutcomes.WithLabelValues(string(OutcomeCompleted)).Inc()
	s.log.Info("account provisioned", zap.String("address", addr), zap.Uint64("maxEpoch", acct.MaxEpoch))
	if s.refresher != nil {
		s.refresher.Refresh(ctx, addr)
	}
	return Result{Outcome: OutcomeCompleted, Account: &acct}, nil
}

func (s *LoginServiceImpl) requestProof(ctx context.Context, req model.ProofRequest) ([]byte, error) {
	release := s.busy.Acquire(StatusProving)
	defer release()
	return s.prover.Request(ctx, req)
}
