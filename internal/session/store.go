// Package session keeps the client's durable login state: pending ephemeral
// setups and provisioned accounts, on top of a SlotRepository.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/suizk/internal/errs"
	"github.com/and161185/suizk/internal/model"
	"github.com/and161185/suizk/internal/repository"
)

const (
	slotSetup    = "setup"
	slotAccounts = "accounts"
)

// State classifies what LoadAccounts found in storage.
type State int

const (
	// Absent means nothing was stored yet.
	Absent State = iota
	// Corrupt means the stored value could not be decoded.
	Corrupt
	// Present means a well-formed list was read.
	Present
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Corrupt:
		return "corrupt"
	case Present:
		return "present"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Loaded is the result of reading the accounts slot. Accounts is empty unless
// State is Present; Err carries the decode failure for Corrupt.
type Loaded struct {
	State    State
	Accounts []model.Account
	Err      error
}

// Store owns both slots and an in-memory mirror of the account list.
type Store struct {
	repo repository.SlotRepository
	log  *zap.Logger

	mu            sync.RWMutex
	accounts      []model.Account
	corruptLogged bool
}

// NewStore constructs a Store. A nil logger disables logging.
func NewStore(repo repository.SlotRepository, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{repo: repo, log: log}
}

func decodeSetups(cur []byte, found bool) (map[string]model.EphemeralSetup, error) {
	setups := map[string]model.EphemeralSetup{}
	if !found || len(cur) == 0 {
		return setups, nil
	}
	if err := json.Unmarshal(cur, &setups); err != nil {
		return nil, fmt.Errorf("%w: setup: %v", errs.ErrCorruptState, err)
	}
	if setups == nil {
		setups = map[string]model.EphemeralSetup{}
	}
	return setups, nil
}

// SaveSetup records the setup of one login flow. Other pending flows are
// kept; an unreadable setup slot is replaced.
func (s *Store) SaveSetup(ctx context.Context, flowID string, setup model.EphemeralSetup) error {
	if flowID == "" {
		return errors.New("validation: empty flow id")
	}
	return s.repo.Update(ctx, slotSetup, func(cur []byte, found bool) ([]byte, error) {
		setups, err := decodeSetups(cur, found)
		if err != nil {
			s.log.Warn("discarding unreadable setup slot", zap.Error(err))
			setups = map[string]model.EphemeralSetup{}
		}
		setups[flowID] = setup
		return json.Marshal(setups)
	})
}

// TakeSetup loads and deletes the setup of flowID in one step, so a flow can
// complete at most once. With an empty flowID the only pending setup is
// taken. errs.ErrNoPendingLogin is returned when nothing matches.
func (s *Store) TakeSetup(ctx context.Context, flowID string) (model.EphemeralSetup, error) {
	var taken model.EphemeralSetup
	err := s.repo.Update(ctx, slotSetup, func(cur []byte, found bool) ([]byte, error) {
		setups, err := decodeSetups(cur, found)
		if err != nil {
			return nil, err
		}
		key := flowID
		if key == "" && len(setups) == 1 {
			for k := range setups {
				key = k
			}
		}
		setup, ok := setups[key]
		if !ok {
			return nil, errs.ErrNoPendingLogin
		}
		taken = setup
		delete(setups, key)
		if len(setups) == 0 {
			return nil, nil
		}
		return json.Marshal(setups)
	})
	if err != nil {
		return model.EphemeralSetup{}, err
	}
	return taken, nil
}

// PendingSetups returns the number of flows waiting for a redirect.
func (s *Store) PendingSetups(ctx context.Context) (int, error) {
	cur, err := s.repo.Get(ctx, slotSetup)
	if errors.Is(err, errs.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	setups, err := decodeSetups(cur, true)
	if err != nil {
		return 0, err
	}
	return len(setups), nil
}

// ClearSetup drops every pending setup.
func (s *Store) ClearSetup(ctx context.Context) error {
	return s.repo.Delete(ctx, slotSetup)
}

// LoadAccounts reads the accounts slot and refreshes the mirror. Storage
// failures are returned as errors; a corrupt value is reported through
// Loaded and mirrored as an empty list.
func (s *Store) LoadAccounts(ctx context.Context) (Loaded, error) {
	cur, err := s.repo.Get(ctx, slotAccounts)
	var res Loaded
	switch {
	case errors.Is(err, errs.ErrNotFound):
		res = Loaded{State: Absent, Accounts: []model.Account{}}
	case err != nil:
		return Loaded{}, err
	default:
		res = decodeAccounts(cur)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if res.State == Corrupt && !s.corruptLogged {
		s.log.Warn("stored accounts are unreadable, treating as empty", zap.Error(res.Err))
		s.corruptLogged = true
	}
	s.accounts = slices.Clone(res.Accounts)
	return res, nil
}

func decodeAccounts(raw []byte) Loaded {
	var list []model.Account
	if err := json.Unmarshal(raw, &list); err != nil {
		return Loaded{State: Corrupt, Accounts: []model.Account{}, Err: fmt.Errorf("%w: accounts: %v", errs.ErrCorruptState, err)}
	}
	if list == nil {
		list = []model.Account{}
	}
	return Loaded{State: Present, Accounts: list}
}

// Accounts returns a copy of the in-memory account list, newest first.
func (s *Store) Accounts() []model.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.accounts)
}

// HasAccount reports whether addr is already provisioned in storage.
func (s *Store) HasAccount(ctx context.Context, addr string) (bool, error) {
	l, err := s.LoadAccounts(ctx)
	if err != nil {
		return false, err
	}
	return indexOf(l.Accounts, addr) >= 0, nil
}

// Account returns the stored account with address addr.
func (s *Store) Account(ctx context.Context, addr string) (model.Account, error) {
	l, err := s.LoadAccounts(ctx)
	if err != nil {
		return model.Account{}, err
	}
	i := indexOf(l.Accounts, addr)
	if i < 0 {
		return model.Account{}, fmt.Errorf("account %s: %w", addr, errs.ErrNotFound)
	}
	return l.Accounts[i], nil
}

func indexOf(list []model.Account, addr string) int {
	return slices.IndexFunc(list, func(a model.Account) bool { return a.UserAddr == addr })
}

// SaveAccount prepends acct to the stored list in a single write. An account
// with the same address is rejected with errs.ErrDuplicateIdentity. The
// mirror is updated only after the write succeeded.
func (s *Store) SaveAccount(ctx context.Context, acct model.Account) error {
	var next []model.Account
	err := s.repo.Update(ctx, slotAccounts, func(cur []byte, found bool) ([]byte, error) {
		list := []model.Account{}
		if found {
			l := decodeAccounts(cur)
			if l.State == Corrupt {
				s.log.Warn("overwriting unreadable accounts slot", zap.Error(l.Err))
			}
			list = l.Accounts
		}
		if indexOf(list, acct.UserAddr) >= 0 {
			return nil, fmt.Errorf("%w: %s", errs.ErrDuplicateIdentity, acct.UserAddr)
		}
		next = append([]model.Account{acct}, list...)
		return json.Marshal(next)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.accounts = next
	s.mu.Unlock()
	return nil
}

// Clear wipes both slots and the mirror.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.repo.Clear(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.accounts = nil
	s.corruptLogged = false
	s.mu.Unlock()
	return nil
}
