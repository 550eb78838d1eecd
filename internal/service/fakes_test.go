package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/suizk/internal/balance"
	"github.com/and161185/suizk/internal/busy"
	"github.com/and161185/suizk/internal/errs"
	"github.com/and161185/suizk/internal/ledger"
	"github.com/and161185/suizk/internal/model"
	"github.com/and161185/suizk/internal/prover"
	"github.com/and161185/suizk/internal/repository/file"
	"github.com/and161185/suizk/internal/salt"
	"github.com/and161185/suizk/internal/session"
)

const testSalt = "129390038577185583942388216820280642146"

const testProof = `{"proofPoints":{"a":["1","2","1"],"b":[["3","4"],["5","6"],["1","0"]],"c":["7","8","1"]},"issBase64Details":{"value":"yJpc3MiOiJodHRwczovL2FjY291bnRzLmdvb2dsZS5jb20iLC","indexMod4":1},"headerBase64":"eyJhbGciOiJSUzI1NiJ9"}`

type fakeLedger struct {
	epoch    uint64
	epochErr error
	balances map[string]uint64

	buildErr error
	execErr  error

	epochCalls int
	builds     []ledger.MoveCall
	executed   []string
}

var _ ledger.Ledger = (*fakeLedger)(nil)

func (f *fakeLedger) CurrentEpoch(context.Context) (uint64, error) {
	f.epochCalls++
	return f.epoch, f.epochErr
}

func (f *fakeLedger) Balance(_ context.Context, owner string) (uint64, error) {
	v, ok := f.balances[owner]
	if !ok {
		return 0, errs.ErrNotFound
	}
	return v, nil
}

func (f *fakeLedger) BuildMoveCall(_ context.Context, call ledger.MoveCall) ([]byte, error) {
	f.builds = append(f.builds, call)
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return []byte("tx:" + call.Sender), nil
}

func (f *fakeLedger) Execute(_ context.Context, _ []byte, signature string) (*ledger.ExecResult, error) {
	f.executed = append(f.executed, signature)
	if f.execErr != nil {
		return nil, f.execErr
	}
	return &ledger.ExecResult{Digest: "digest", Status: "success"}, nil
}

func (f *fakeLedger) Object(context.Context, string) (*ledger.Object, error) {
	return nil, errs.ErrNotFound
}

type fakeSalt struct {
	salt  string
	err   error
	calls int
}

var _ salt.Resolver = (*fakeSalt)(nil)

func (f *fakeSalt) Resolve(context.Context, string) (string, error) {
	f.calls++
	return f.salt, f.err
}

type fakeProver struct {
	err   error
	calls int
	last  model.ProofRequest
}

var _ prover.Requester = (*fakeProver)(nil)

func (f *fakeProver) Request(_ context.Context, req model.ProofRequest) (json.RawMessage, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(testProof), nil
}

type env struct {
	ledger *fakeLedger
	salt   *fakeSalt
	prover *fakeProver
	busy   *busy.Writer
	out    *bytes.Buffer
	store  *session.Store
	cache  *balance.Cache
	login  *LoginServiceImpl
	tx     *TxServiceImpl
}

func newEnv(t *testing.T) *env {
	t.Helper()
	repo, err := file.NewSlotRepo(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("NewSlotRepo: %v", err)
	}
	log := zaptest.NewLogger(t)
	e := &env{
		ledger: &fakeLedger{epoch: 10, balances: map[string]uint64{}},
		salt:   &fakeSalt{salt: testSalt},
		prover: &fakeProver{},
		out:    &bytes.Buffer{},
		store:  session.NewStore(repo, log),
		cache:  balance.NewCache(),
	}
	e.busy = busy.NewWriter(e.out)
	ref := balance.NewRefresher(e.ledger, e.cache, 0, log)
	e.login = NewLoginService(e.ledger, e.store, e.salt, e.prover, e.busy, ref, LoginConfig{
		ClientIDs:      map[model.Provider]string{model.ProviderGoogle: "client-id"},
		RedirectURI:    "http://localhost:5173",
		MaxEpochOffset: 2,
	}, log)
	e.tx = NewTxService(e.ledger, e.busy, ref, log)
	return e
}

func idToken(t *testing.T, sub, nonce string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":   "https://accounts.google.com",
		"sub":   sub,
		"aud":   "client-id",
		"nonce": nonce,
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

// redirectFor starts a login and returns the URL the provider would send back.
func (e *env) redirectFor(t *testing.T, sub string) (string, Pending) {
	t.Helper()
	p, err := e.login.Begin(context.Background(), model.ProviderGoogle)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	u, err := url.Parse(p.URL)
	if err != nil {
		t.Fatalf("parse login url: %v", err)
	}
	frag := url.Values{}
	frag.Set("id_token", idToken(t, sub, u.Query().Get("nonce")))
	frag.Set("state", u.Query().Get("state"))
	return "http://localhost:5173/#" + frag.Encode(), p
}

var errBoom = errors.New("boom")
