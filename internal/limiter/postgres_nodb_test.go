package limiter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

/************ fake pgx ************/
type fakeRow struct{ scan func(dest ...any) error }

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakePool struct {
	claimErr  error
	claimedAt time.Time

	selectErr error
	lastAt    time.Time

	lastExecSQL string
	execErr     error
	queries     []string
}

func (f *fakePool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.lastExecSQL = sql
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakePool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, sql)
	switch {
	case strings.Contains(sql, "RETURNING last_at"):
		return fakeRow{scan: func(dest ...any) error {
			if f.claimErr != nil {
				return f.claimErr
			}
			*(dest[0].(*time.Time)) = f.claimedAt
			return nil
		}}
	case strings.Contains(sql, "SELECT last_at"):
		return fakeRow{scan: func(dest ...any) error {
			if f.selectErr != nil {
				return f.selectErr
			}
			*(dest[0].(*time.Time)) = f.lastAt
			return nil
		}}
	default:
		return fakeRow{scan: func(dest ...any) error { return errors.New("unexpected query") }}
	}
}

func TestPGAllow_Claimed(t *testing.T) {
	fp := &fakePool{claimedAt: time.Now()}
	l := NewPGWithQuerier(fp, time.Minute)

	ok, dur, err := l.Allow(context.Background(), " 0xABC ")
	if err != nil || !ok || dur != 0 {
		t.Fatalf("Allow claimed: ok=%v dur=%v err=%v", ok, dur, err)
	}
	if len(fp.queries) != 1 {
		t.Fatalf("claim must be a single statement, got %d", len(fp.queries))
	}
}

func TestPGAllow_CoolingDown(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	fp := &fakePool{claimErr: pgx.ErrNoRows, lastAt: now.Add(-20 * time.Second)}
	l := NewPGWithQuerier(fp, time.Minute)
	l.now = func() time.Time { return now }

	ok, dur, err := l.Allow(context.Background(), "0xabc")
	if err != nil || ok || dur != 40*time.Second {
		t.Fatalf("Allow cooling: ok=%v dur=%v err=%v", ok, dur, err)
	}
}

func TestPGAllow_DBError_Propagates(t *testing.T) {
	fp := &fakePool{claimErr: errors.New("db boom")}
	l := NewPGWithQuerier(fp, time.Minute)

	ok, _, err := l.Allow(context.Background(), "0xabc")
	if err == nil || ok {
		t.Fatalf("want error propagate, got ok=%v err=%v", ok, err)
	}
}

func TestPGAllow_SelectError_Propagates(t *testing.T) {
	fp := &fakePool{claimErr: pgx.ErrNoRows, selectErr: errors.New("select fail")}
	l := NewPGWithQuerier(fp, time.Minute)

	if ok, _, err := l.Allow(context.Background(), "0xabc"); err == nil || ok {
		t.Fatalf("want select error, got ok=%v err=%v", ok, err)
	}
}

func TestPGReset(t *testing.T) {
	fp := &fakePool{}
	l := NewPGWithQuerier(fp, time.Minute)

	if err := l.Reset(context.Background(), "0xabc"); err != nil {
		t.Fatalf("reset err: %v", err)
	}
	if !strings.Contains(fp.lastExecSQL, "DELETE FROM faucet_limiter") {
		t.Fatalf("unexpected exec: %s", fp.lastExecSQL)
	}

	fp.execErr = errors.New("exec fail")
	if err := l.Reset(context.Background(), "0xabc"); err == nil {
		t.Fatalf("want exec error")
	}
}
