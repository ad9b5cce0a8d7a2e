package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/sss-network/sss-indexer/core/types"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/anchor"
	"github.com/sss-network/sss-indexer/modules/stablecoin/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProgramID = "SSSCore1111111111111111111111111111111111111"

func testAccount(b byte) string {
	var pk anchor.PublicKey
	for i := range pk {
		pk[i] = b
	}
	return pk.String()
}

func TestCommandRejectedError(t *testing.T) {
	err := errors.Wrap(reject(ReasonSystemPaused), "submit")

	assert.True(t, errors.Is(err, errs.UpstreamRejected))
	var rejected *CommandRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, ReasonSystemPaused, rejected.Reason)
}

func TestRemote(t *testing.T) {
	ctx := context.Background()
	newServer := func(t *testing.T, status int, body any) *httptest.Server {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/submit", r.URL.Path)
			assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

			var req submitRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, entity.OperationMint, req.Kind)
			assert.True(t, decimal.NewFromInt(1000000).Equal(req.Params.Amount))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(body)
		}))
		t.Cleanup(server.Close)
		return server
	}
	params := Params{Target: testAccount(1), Amount: decimal.NewFromInt(1000000)}

	t.Run("success", func(t *testing.T) {
		server := newServer(t, http.StatusOK, map[string]string{"signature": "sig-1"})
		remote, err := NewRemote(RemoteConfig{URL: server.URL, APIKey: "key", Timeout: time.Second})
		require.NoError(t, err)

		signature, err := remote.Submit(ctx, entity.OperationMint, params)
		require.NoError(t, err)
		assert.Equal(t, "sig-1", signature)
	})
	t.Run("rejected", func(t *testing.T) {
		server := newServer(t, http.StatusUnprocessableEntity, map[string]string{"error": ReasonSystemPaused})
		remote, err := NewRemote(RemoteConfig{URL: server.URL, APIKey: "key"})
		require.NoError(t, err)

		_, err = remote.Submit(ctx, entity.OperationMint, params)
		var rejected *CommandRejectedError
		require.True(t, errors.As(err, &rejected))
		assert.Equal(t, ReasonSystemPaused, rejected.Reason)
	})
	t.Run("server_error", func(t *testing.T) {
		server := newServer(t, http.StatusBadGateway, map[string]string{"error": "upstream"})
		remote, err := NewRemote(RemoteConfig{URL: server.URL, APIKey: "key"})
		require.NoError(t, err)

		_, err = remote.Submit(ctx, entity.OperationMint, params)
		assert.True(t, errors.Is(err, errs.Unavailable))
		assert.False(t, errors.Is(err, errs.UpstreamRejected))
	})
	t.Run("unreachable", func(t *testing.T) {
		remote, err := NewRemote(RemoteConfig{URL: "http://127.0.0.1:1"})
		require.NoError(t, err)

		_, err = remote.Submit(ctx, entity.OperationMint, params)
		assert.True(t, errors.Is(err, errs.Unavailable))
	})
	t.Run("missing_url", func(t *testing.T) {
		_, err := NewRemote(RemoteConfig{})
		assert.True(t, errors.Is(err, errs.InvalidArgument))
	})
}

func TestSimulated(t *testing.T) {
	ctx := context.Background()
	alice, treasury := testAccount(1), testAccount(2)

	submit := func(t *testing.T, s *Simulated, kind entity.OperationKind, params Params) error {
		t.Helper()
		_, err := s.Submit(ctx, kind, params)
		return err
	}
	rejectedWith := func(t *testing.T, err error, reason string) {
		t.Helper()
		var rejected *CommandRejectedError
		if assert.True(t, errors.As(err, &rejected), "expected rejection, got %v", err) {
			assert.Equal(t, reason, rejected.Reason)
		}
	}

	t.Run("mint_and_burn", func(t *testing.T) {
		s := NewSimulated(testProgramID)
		defer s.Close()

		require.NoError(t, submit(t, s, entity.OperationMint, Params{Target: alice, Amount: decimal.NewFromInt(100)}))
		require.NoError(t, submit(t, s, entity.OperationBurn, Params{Target: alice, Amount: decimal.NewFromInt(40)}))
		assert.Equal(t, uint64(60), s.Balance(alice))

		rejectedWith(t, submit(t, s, entity.OperationBurn, Params{Target: alice, Amount: decimal.NewFromInt(61)}), ReasonInsufficientBalance)
		rejectedWith(t, submit(t, s, entity.OperationMint, Params{Target: alice, Amount: decimal.RequireFromString("18446744073709551616")}), ReasonOverflow)
	})
	t.Run("paused", func(t *testing.T) {
		s := NewSimulated(testProgramID)
		defer s.Close()

		require.NoError(t, submit(t, s, entity.OperationPause, Params{}))
		rejectedWith(t, submit(t, s, entity.OperationMint, Params{Target: alice, Amount: decimal.NewFromInt(1)}), ReasonSystemPaused)
		require.NoError(t, submit(t, s, entity.OperationUnpause, Params{}))
		require.NoError(t, submit(t, s, entity.OperationMint, Params{Target: alice, Amount: decimal.NewFromInt(1)}))
	})
	t.Run("frozen", func(t *testing.T) {
		s := NewSimulated(testProgramID)
		defer s.Close()

		require.NoError(t, submit(t, s, entity.OperationFreeze, Params{Target: alice}))
		rejectedWith(t, submit(t, s, entity.OperationMint, Params{Target: alice, Amount: decimal.NewFromInt(1)}), ReasonAccountFrozen)
		require.NoError(t, submit(t, s, entity.OperationThaw, Params{Target: alice}))
		require.NoError(t, submit(t, s, entity.OperationMint, Params{Target: alice, Amount: decimal.NewFromInt(1)}))
	})
	t.Run("blacklist_and_seize", func(t *testing.T) {
		s := NewSimulated(testProgramID)
		defer s.Close()

		require.NoError(t, submit(t, s, entity.OperationMint, Params{Target: alice, Amount: decimal.NewFromInt(500)}))
		rejectedWith(t, submit(t, s, entity.OperationSeize, Params{Target: alice, To: treasury}), ReasonTargetNotBlacklisted)
		rejectedWith(t, submit(t, s, entity.OperationBlacklistRemove, Params{Target: alice}), ReasonNotBlacklisted)

		require.NoError(t, submit(t, s, entity.OperationBlacklistAdd, Params{Target: alice, Reason: "sanctions"}))
		rejectedWith(t, submit(t, s, entity.OperationBlacklistAdd, Params{Target: alice, Reason: "again"}), ReasonAlreadyBlacklisted)
		rejectedWith(t, submit(t, s, entity.OperationSeize, Params{Target: alice, To: treasury}), ReasonAccountNotFrozen)

		require.NoError(t, submit(t, s, entity.OperationFreeze, Params{Target: alice}))
		require.NoError(t, submit(t, s, entity.OperationSeize, Params{Target: alice, To: treasury}))
		assert.Zero(t, s.Balance(alice))
		assert.Equal(t, uint64(500), s.Balance(treasury))
	})
	t.Run("roles_and_minter_quota", func(t *testing.T) {
		s := NewSimulated(testProgramID)
		defer s.Close()

		rejectedWith(t, submit(t, s, entity.OperationUpdateMinter, Params{Target: alice, Quota: lo.ToPtr(decimal.NewFromInt(10))}), ReasonInvalidRoles)
		rejectedWith(t, submit(t, s, entity.OperationUpdateRoles, Params{Target: alice, Roles: lo.ToPtr(uint8(0x80))}), ReasonInvalidRoles)

		minterBurner := entity.RoleMinter | entity.RoleBurner
		require.NoError(t, submit(t, s, entity.OperationUpdateRoles, Params{Target: alice, Roles: &minterBurner, Quota: lo.ToPtr(decimal.NewFromInt(1000))}))
		roles, quota := s.Roles(alice)
		assert.Equal(t, minterBurner, roles)
		require.NotNil(t, quota)
		assert.Equal(t, uint64(1000), *quota)

		require.NoError(t, submit(t, s, entity.OperationUpdateMinter, Params{Target: alice, Quota: lo.ToPtr(decimal.NewFromInt(5000))}))
		_, quota = s.Roles(alice)
		require.NotNil(t, quota)
		assert.Equal(t, uint64(5000), *quota)

		// dropping the minter role clears the quota
		require.NoError(t, submit(t, s, entity.OperationUpdateRoles, Params{Target: alice, Roles: lo.ToPtr(entity.RoleFreezer)}))
		roles, quota = s.Roles(alice)
		assert.Equal(t, entity.RoleFreezer, roles)
		assert.Nil(t, quota)
	})
	t.Run("transfer_authority", func(t *testing.T) {
		s := NewSimulated(testProgramID)
		defer s.Close()
		ch := make(chan types.LogBatch, 2)
		_, err := s.Subscribe(ctx, ch)
		require.NoError(t, err)

		previous := s.Authority()
		rejectedWith(t, submit(t, s, entity.OperationTransferAuth, Params{Target: previous}), ReasonSelfTransfer)
		require.NoError(t, submit(t, s, entity.OperationTransferAuth, Params{Target: treasury}))
		assert.Equal(t, treasury, s.Authority())

		roles, _ := s.Roles(treasury)
		assert.NotZero(t, roles&entity.RoleMasterAuthority)
		roles, _ = s.Roles(previous)
		assert.Zero(t, roles&entity.RoleMasterAuthority)

		batch := <-ch
		events, err := anchor.ParseLogs(testProgramID, batch.Logs)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, anchor.EventAuthorityTransferred, events[0].Name)
		assert.Equal(t, previous, events[0].Data["old_authority"].(anchor.PublicKey).String())
		assert.Equal(t, treasury, events[0].Data["new_authority"].(anchor.PublicKey).String())

		// later events name the new authority as actor
		require.NoError(t, submit(t, s, entity.OperationPause, Params{}))
		events, err = anchor.ParseLogs(testProgramID, (<-ch).Logs)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, treasury, events[0].Data["paused_by"].(anchor.PublicKey).String())
	})
	t.Run("emits_program_logs", func(t *testing.T) {
		s := NewSimulated(testProgramID)
		s.Now = func() time.Time { return time.Unix(1714521600, 0) }

		ch := make(chan types.LogBatch, 1)
		sub, err := s.Subscribe(ctx, ch)
		require.NoError(t, err)

		signature, err := s.Submit(ctx, entity.OperationMint, Params{Target: alice, Amount: decimal.NewFromInt(1000000)})
		require.NoError(t, err)

		var batch types.LogBatch
		select {
		case batch = <-ch:
		case <-time.After(time.Second):
			require.FailNow(t, "no log batch emitted")
		}
		assert.Equal(t, signature, batch.Signature)
		assert.Equal(t, int64(1), batch.Slot)
		assert.False(t, batch.Failed)

		events, err := anchor.ParseLogs(testProgramID, batch.Logs)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, anchor.EventTokensMinted, events[0].Name)
		assert.Equal(t, s.Config(), events[0].Data["config"].(anchor.PublicKey).String())
		assert.Equal(t, int64(1714521600), events[0].Data["timestamp"])

		require.NoError(t, s.Close())
		require.NoError(t, s.Close())
		assert.True(t, sub.IsClosed())
		_, err = s.Submit(ctx, entity.OperationPause, Params{})
		assert.True(t, errors.Is(err, errs.Unavailable))
	})
}
