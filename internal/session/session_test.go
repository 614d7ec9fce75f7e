package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicmoon/marketplace/internal/apperr"
	"github.com/musicmoon/marketplace/internal/identity"
	"github.com/musicmoon/marketplace/internal/notification"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notification.Message
}

func (r *recordingNotifier) Send(_ context.Context, m notification.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
	return nil
}

func (r *recordingNotifier) last() notification.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return notification.Message{}
	}
	return r.messages[len(r.messages)-1]
}

// countingRepo counts create calls made against the identity store.
type countingRepo struct {
	*identity.MemoryRepository
	creates int
}

func (c *countingRepo) Create(ctx context.Context, in identity.Identity) (identity.Identity, error) {
	c.creates++
	return c.MemoryRepository.Create(ctx, in)
}

// countingSlot counts writes made to the slot.
type countingSlot struct {
	*MemorySlot
	sets   int
	setErr error
}

func (c *countingSlot) Set(ctx context.Context, key, value string) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.sets++
	return c.MemorySlot.Set(ctx, key, value)
}

type fixture struct {
	session  *Session
	repo     *countingRepo
	slot     *countingSlot
	accounts *identity.Service
	notifier *recordingNotifier
}

func newFixture(t *testing.T, cfg Config) fixture {
	t.Helper()
	repo := &countingRepo{MemoryRepository: identity.NewMemoryRepository()}
	accounts := identity.NewService(repo)
	slot := &countingSlot{MemorySlot: NewMemorySlot()}
	notifier := &recordingNotifier{}
	cfg.Notifier = notifier
	return fixture{session: New(accounts, slot, cfg), repo: repo, slot: slot, accounts: accounts, notifier: notifier}
}

var ann = identity.RegisterInput{Email: "a@x.com", Password: "pw1234", Name: "Ann"}

func TestSignUpOnceThenAlreadyExists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	user, err := f.session.SignUp(ctx, ann)
	require.NoError(t, err)
	assert.Equal(t, Authenticated, f.session.State())
	assert.Equal(t, 1, f.repo.creates)
	assert.Equal(t, 1, f.slot.sets)
	assert.Equal(t, notification.KindSuccess, f.notifier.last().Kind)

	current, ok := f.session.Current()
	require.True(t, ok)
	assert.Equal(t, user.ID, current.ID)

	_, err = f.session.SignUp(ctx, ann)
	require.ErrorIs(t, err, apperr.ErrAlreadyExists)
	assert.Equal(t, 1, f.repo.creates)
	assert.Equal(t, 1, f.slot.sets)
	assert.Equal(t, notification.KindFailure, f.notifier.last().Kind)
	assert.Equal(t, "Sign up", f.notifier.last().Action)

	current, _ = f.session.Current()
	assert.Equal(t, user.ID, current.ID)
}

func TestSignUpSignOutRestoreIsAnonymous(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	_, err := f.session.SignUp(ctx, ann)
	require.NoError(t, err)
	f.session.SignOut(ctx)
	assert.Equal(t, Anonymous, f.session.State())

	_, ok, err := f.slot.Get(ctx, SlotKey)
	require.NoError(t, err)
	assert.False(t, ok)

	restored := New(f.accounts, f.slot, Config{})
	state, err := restored.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, Anonymous, state)
}

func TestSignInAndRestoreTrustsSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	_, err := f.accounts.Register(ctx, ann)
	require.NoError(t, err)

	_, err = f.session.SignIn(ctx, "a@x.com", "wrong-pw")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = f.session.SignIn(ctx, "nobody@x.com", "pw1234")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, 0, f.slot.sets)

	user, err := f.session.SignIn(ctx, "A@x.com", "pw1234")
	require.NoError(t, err)

	bio := "changed elsewhere"
	_, err = f.accounts.UpdateProfile(ctx, user.ID, identity.ProfilePatch{Bio: &bio})
	require.NoError(t, err)

	restored := New(f.accounts, f.slot, Config{})
	assert.Equal(t, Anonymous, restored.State())
	state, err := restored.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, Authenticated, state)
	current, _ := restored.Current()
	assert.Equal(t, user.ID, current.ID)
	assert.Empty(t, current.Bio)
}

func TestRestoreReconcile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	user, err := f.session.SignUp(ctx, ann)
	require.NoError(t, err)

	bio := "changed elsewhere"
	_, err = f.accounts.UpdateProfile(ctx, user.ID, identity.ProfilePatch{Bio: &bio})
	require.NoError(t, err)

	restored := New(f.accounts, f.slot, Config{Reconcile: true})
	state, err := restored.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, Authenticated, state)
	current, _ := restored.Current()
	assert.Equal(t, bio, current.Bio)

	ghost, _ := json.Marshal(identity.Identity{ID: "gone", Email: "g@x.com", Name: "Ghost"})
	require.NoError(t, f.slot.MemorySlot.Set(ctx, SlotKey, string(ghost)))
	restored = New(f.accounts, f.slot, Config{Reconcile: true})
	state, err = restored.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, Anonymous, state)
	_, ok, _ := f.slot.Get(ctx, SlotKey)
	assert.False(t, ok)
}

func TestRestoreDiscardsCorruptPayload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	require.NoError(t, f.slot.MemorySlot.Set(ctx, SlotKey, "{not json"))

	state, err := f.session.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, Anonymous, state)
	_, ok, _ := f.slot.Get(ctx, SlotKey)
	assert.False(t, ok)
}

func TestConnectWalletAndDisconnect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	user, err := f.session.ConnectWallet(ctx, "addr")
	require.NoError(t, err)
	assert.Empty(t, user.ID, "anonymous connect is a no-op")
	assert.Equal(t, 0, f.slot.sets)

	_, err = f.session.SignUp(ctx, ann)
	require.NoError(t, err)

	connected, err := f.session.ConnectWallet(ctx, "7dD3MkVhKChenBB34n5QpWYjzQ23v3D2qX3exAcXwd6h")
	require.NoError(t, err)
	assert.Equal(t, "7dD3MkVhKChenBB34n5QpWYjzQ23v3D2qX3exAcXwd6h", connected.WalletAddress)
	assert.Equal(t, "Connect wallet", f.notifier.last().Action)

	_, err = f.session.ConnectWallet(ctx, "")
	require.NoError(t, err)
	current, _ := f.session.Current()
	assert.Empty(t, current.WalletAddress)
	assert.Equal(t, "Disconnect wallet", f.notifier.last().Action)

	raw, ok, err := f.slot.Get(ctx, SlotKey)
	require.NoError(t, err)
	require.True(t, ok)
	var persisted identity.Identity
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.Empty(t, persisted.WalletAddress)

	stored, err := f.accounts.FindByID(ctx, current.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.WalletAddress)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	name := "Ann B"
	user, err := f.session.UpdateProfile(ctx, identity.ProfilePatch{Name: &name})
	require.NoError(t, err)
	assert.Empty(t, user.ID)

	_, err = f.session.SignUp(ctx, ann)
	require.NoError(t, err)
	user, err = f.session.UpdateProfile(ctx, identity.ProfilePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, user.Name)
	assert.Equal(t, "a@x.com", user.Email)

	current, _ := f.session.Current()
	assert.Equal(t, name, current.Name)

	empty := ""
	_, err = f.session.UpdateProfile(ctx, identity.ProfilePatch{Name: &empty})
	require.ErrorIs(t, err, apperr.ErrValidationFailed)
	current, _ = f.session.Current()
	assert.Equal(t, name, current.Name)
}

func TestSlotWriteFailureLeavesSessionAnonymous(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.slot.setErr = errors.New("disk full")

	_, err := f.session.SignUp(ctx, ann)
	require.ErrorIs(t, err, apperr.ErrStoreFailed)
	assert.Equal(t, Anonymous, f.session.State())
}

func TestPasswordHashNeverPersisted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	_, err := f.session.SignUp(ctx, ann)
	require.NoError(t, err)

	raw, _, _ := f.slot.Get(ctx, SlotKey)
	assert.NotContains(t, raw, "password")
	assert.NotContains(t, raw, "$2a$")
}

func TestActionGating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	assert.True(t, f.session.Allowed(ActionBrowse))
	assert.False(t, f.session.Allowed(ActionMint))
	assert.False(t, f.session.CanPurchase("someone"))

	user, err := f.session.SignUp(ctx, ann)
	require.NoError(t, err)
	assert.True(t, f.session.Allowed(ActionMint))
	assert.True(t, f.session.Allowed(ActionLogout))
	assert.True(t, f.session.CanEdit(user.ID))
	assert.False(t, f.session.CanPurchase(user.ID))
	assert.True(t, f.session.CanPurchase("someone"))
	assert.False(t, f.session.CanEdit("someone"))
}
