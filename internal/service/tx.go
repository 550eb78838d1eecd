package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/and161185/suizk/internal/balance"
	"github.com/and161185/suizk/internal/busy"
	"github.com/and161185/suizk/internal/crypto/ephemeral"
	"github.com/and161185/suizk/internal/errs"
	"github.com/and161185/suizk/internal/ledger"
	"github.com/and161185/suizk/internal/metrics"
	"github.com/and161185/suizk/internal/model"
	"github.com/and161185/suizk/internal/zk"
)

// StatusSending is shown while a transaction is built and executed.
const StatusSending = "Sending transaction..."

// TxService signs and submits transactions on behalf of a zkLogin account.
type TxService interface {
	// Send executes call with acct as sender and returns the result.
	Send(ctx context.Context, acct model.Account, call ledger.MoveCall) (*ledger.ExecResult, error)
}

type TxServiceImpl struct {
	ledger    ledger.Ledger
	busy      busy.Indicator
	refresher *balance.Refresher
	log       *zap.Logger
}

// NewTxService constructs TxService. busy, refresher and log may be nil.
func NewTxService(l ledger.Ledger, ind busy.Indicator, refresher *balance.Refresher, log *zap.Logger) *TxServiceImpl {
	if ind == nil {
		ind = busy.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TxServiceImpl{ledger: l, busy: ind, refresher: refresher, log: log}
}

// Send checks the credential is still inside its epoch window, builds the
// transaction with the account as sender, signs it with the ephemeral key,
// wraps the signature with the stored proof and executes it. The account is
// never modified; on success its balance is refreshed.
func (s *TxServiceImpl) Send(ctx context.Context, acct model.Account, call ledger.MoveCall) (*ledger.ExecResult, error) {
	release := s.busy.Acquire(StatusSending)
	defer release()

	res, err := s.send(ctx, acct, call)
	if err != nil {
		metrics.Transactions.WithLabelValues("error").Inc()
		s.log.Warn("transaction failed", zap.String("address", acct.UserAddr), zap.Error(err))
		return res, err
	}
	metrics.Transactions.WithLabelValues("ok").Inc()
	s.log.Info("transaction executed", zap.String("address", acct.UserAddr), zap.String("digest", res.Digest))
	if s.refresher != nil {
		s.refresher.Refresh(ctx, acct.UserAddr)
	}
	return res, nil
}

func (s *TxServiceImpl) send(ctx context.Context, acct model.Account, call ledger.MoveCall) (*ledger.ExecResult, error) {
	epoch, err := s.ledger.CurrentEpoch(ctx)
	if err != nil {
		return nil, err
	}
	if epoch > acct.MaxEpoch {
		return nil, fmt.Errorf("%w: epoch %d is past max epoch %d", errs.ErrExpiredCredential, epoch, acct.MaxEpoch)
	}

	kp, err := ephemeral.Deserialize(acct.EphemeralPrivateKey)
	if err != nil {
		return nil, err
	}
	inputs, err := zk.DecodeProof(acct.ZkProofs)
	if err != nil {
		return nil, err
	}
	seed, err := zk.AddressSeed(acct.UserSalt, acct.Sub, acct.Aud)
	if err != nil {
		return nil, err
	}

	call.Sender = acct.UserAddr
	txBytes, err := s.ledger.BuildMoveCall(ctx, call)
	if err != nil {
		return nil, err
	}
	userSig := kp.SignTransaction(txBytes)

	sig, err := zk.AssembleSignature(inputs, seed, acct.MaxEpoch, userSig)
	if err != nil {
		return nil, err
	}
	return s.ledger.Execute(ctx, txBytes, sig)
}
