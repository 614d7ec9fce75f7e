package catalog

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/musicmoon/marketplace/internal/apperr"
	"github.com/musicmoon/marketplace/internal/media"
	"github.com/musicmoon/marketplace/internal/notification"
)

var (
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	mp3Bytes = []byte("ID3\x03\x00\x00\x00\x00\x00\x00")
)

func validMint() MintInput {
	return MintInput{
		Title:       "Cosmic Journey",
		Description: "A ten minute synth odyssey",
		Price:       1.5,
		Category:    "Electronic",
		Image:       Upload{Filename: "cover.png", Data: pngBytes},
		Audio:       Upload{Filename: "track.mp3", Data: mp3Bytes},
	}
}

type createFailingRepo struct {
	*MemoryRepository
}

func (createFailingRepo) Create(context.Context, Item) (Item, error) {
	return Item{}, errors.New("write rejected")
}

// stallingRepo blocks writes until the caller's context ends.
type stallingRepo struct {
	*MemoryRepository
}

func (stallingRepo) Create(ctx context.Context, _ Item) (Item, error) {
	<-ctx.Done()
	return Item{}, ctx.Err()
}

func (stallingRepo) Update(ctx context.Context, _ string, _ Patch) (Item, error) {
	<-ctx.Done()
	return Item{}, ctx.Err()
}

func newTestCatalog(repo Repository) (*Service, *Engine, *media.MemoryStore, *recordingNotifier) {
	notifier := &recordingNotifier{}
	engine := NewEngine(repo, NewResolver(people, 0), EngineConfig{})
	store := media.NewMemoryStore()
	return NewService(repo, engine, store, people, ServiceConfig{Notifier: notifier}), engine, store, notifier
}

func TestMintCreatesItemAndInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	repo := seeded()
	svc, engine, store, notifier := newTestCatalog(repo)

	_, err := engine.Load(ctx, All())
	require.NoError(t, err)

	item, err := svc.Mint(ctx, "ann", validMint())
	require.NoError(t, err)
	assert.Equal(t, "ann", item.CreatorID)
	assert.Equal(t, "ann", item.OwnerID)
	assert.False(t, item.CreatedAt.IsZero())
	assert.Equal(t, 2, store.Len())
	_, ok := store.Get(item.ImageURL)
	assert.True(t, ok)

	_, cached := engine.Cached(All())
	assert.False(t, cached)
	assert.Equal(t, notification.KindSuccess, notifier.last().Kind)

	items, err := engine.Load(ctx, All())
	require.NoError(t, err)
	assert.Equal(t, item.ID, items[0].ID)
}

func TestMintValidation(t *testing.T) {
	svc, _, store, notifier := newTestCatalog(seeded())

	cases := map[string]func(*MintInput){
		"short title":       func(in *MintInput) { in.Title = "ab" },
		"short description": func(in *MintInput) { in.Description = "too short" },
		"cheap":             func(in *MintInput) { in.Price = 0.05 },
		"NaN price":         func(in *MintInput) { in.Price = math.NaN() },
		"infinite price":    func(in *MintInput) { in.Price = math.Inf(1) },
		"unknown category":  func(in *MintInput) { in.Category = "Polka" },
		"image not image":   func(in *MintInput) { in.Image = Upload{Filename: "cover.mp3", Data: mp3Bytes} },
		"missing audio":     func(in *MintInput) { in.Audio = Upload{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validMint()
			mutate(&in)
			_, err := svc.Mint(context.Background(), "ann", in)
			assert.ErrorIs(t, err, apperr.ErrValidationFailed)
			assert.Equal(t, "Mint NFT", notifier.last().Action)
		})
	}
	assert.Equal(t, 0, store.Len())

	_, err := svc.Mint(context.Background(), "", validMint())
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestMintRemovesUploadsWhenCreateFails(t *testing.T) {
	svc, _, store, _ := newTestCatalog(createFailingRepo{seeded()})

	_, err := svc.Mint(context.Background(), "ann", validMint())
	require.ErrorIs(t, err, apperr.ErrStoreFailed)
	assert.Equal(t, 0, store.Len())
}

func TestUpdateOwnerOnly(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestCatalog(seeded())

	title := "Beta (remastered)"
	price := 4.0
	item, err := svc.Update(ctx, "ann", "b", UpdateInput{Title: &title, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, title, item.Title)
	assert.Equal(t, 4.0, item.Price)
	assert.Equal(t, "ann", item.CreatorID)
	assert.Equal(t, t0, item.CreatedAt)

	_, err = svc.Update(ctx, "bob", "b", UpdateInput{Title: &title})
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = svc.Update(ctx, "ann", "missing", UpdateInput{Title: &title})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateRejectsNonFinitePrice(t *testing.T) {
	svc, _, _, _ := newTestCatalog(seeded())

	for _, price := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := svc.Update(context.Background(), "ann", "b", UpdateInput{Price: &price})
		assert.ErrorIs(t, err, apperr.ErrValidationFailed, "price %v", price)
	}
}

func TestStoreCallsAreBounded(t *testing.T) {
	repo := stallingRepo{seeded()}
	engine := NewEngine(repo, NewResolver(people, 0), EngineConfig{})
	store := media.NewMemoryStore()
	svc := NewService(repo, engine, store, people, ServiceConfig{CallTimeout: 20 * time.Millisecond})

	_, err := svc.Mint(context.Background(), "ann", validMint())
	assert.ErrorIs(t, err, apperr.ErrStoreFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, store.Len())

	price := 3.0
	_, err = svc.Update(context.Background(), "ann", "b", UpdateInput{Price: &price})
	assert.ErrorIs(t, err, apperr.ErrStoreFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = svc.Transfer(context.Background(), "ann", "b", "bob")
	assert.ErrorIs(t, err, apperr.ErrStoreFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUpdateMintAddressOnce(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestCatalog(seeded())

	first := "MintAddr111"
	item, err := svc.Update(ctx, "ann", "b", UpdateInput{MintAddress: &first})
	require.NoError(t, err)
	assert.Equal(t, first, item.MintAddress)

	_, err = svc.Update(ctx, "ann", "b", UpdateInput{MintAddress: &first})
	require.NoError(t, err)

	second := "MintAddr222"
	_, err = svc.Update(ctx, "ann", "b", UpdateInput{MintAddress: &second})
	assert.ErrorIs(t, err, apperr.ErrValidationFailed)
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	svc, _, _, notifier := newTestCatalog(seeded())

	item, err := svc.Transfer(ctx, "ann", "b", "bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", item.OwnerID)
	assert.Equal(t, "ann", item.CreatorID)
	assert.Equal(t, "Transfer NFT", notifier.last().Action)

	_, err = svc.Transfer(ctx, "ann", "b", "ann")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = svc.Transfer(ctx, "bob", "b", "nobody")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
