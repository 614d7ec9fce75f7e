package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/musicmoon/marketplace/internal/apperr"
	"github.com/musicmoon/marketplace/internal/logging"
	"github.com/musicmoon/marketplace/internal/media"
	"github.com/musicmoon/marketplace/internal/notification"
)

const (
	minTitleLen       = 3
	minDescriptionLen = 10
	minPrice          = 0.1
)

// Upload is a file submitted through the mint form.
type Upload struct {
	Filename string
	Data     []byte
}

// MintInput carries the mint form fields.
type MintInput struct {
	Title       string
	Description string
	Price       float64
	Category    string
	Image       Upload
	Audio       Upload
}

// Validate applies the mint form rules.
func (in MintInput) Validate() error {
	switch {
	case utf8.RuneCountInString(strings.TrimSpace(in.Title)) < minTitleLen:
		return fmt.Errorf("%w: title must be at least %d characters", apperr.ErrValidationFailed, minTitleLen)
	case utf8.RuneCountInString(strings.TrimSpace(in.Description)) < minDescriptionLen:
		return fmt.Errorf("%w: description must be at least %d characters", apperr.ErrValidationFailed, minDescriptionLen)
	case !validPrice(in.Price):
		return fmt.Errorf("%w: price must be a finite number of at least %v", apperr.ErrValidationFailed, minPrice)
	case !KnownCategory(in.Category):
		return fmt.Errorf("%w: unknown category %q", apperr.ErrValidationFailed, in.Category)
	}
	if err := media.Require(in.Image.Filename, in.Image.Data, "image"); err != nil {
		return err
	}
	return media.Require(in.Audio.Filename, in.Audio.Data, "audio")
}

func validPrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p >= minPrice
}

// UpdateInput carries the owner editable fields. Nil means unchanged.
type UpdateInput struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Category    *string  `json:"category,omitempty"`
	MintAddress *string  `json:"mintAddress,omitempty"`
}

// ServiceConfig carries the optional collaborators of a Service.
type ServiceConfig struct {
	Notifier notification.Notifier
	Logger   *slog.Logger
	// CallTimeout bounds each store and object storage call.
	CallTimeout time.Duration
}

// Service performs item mutations and keeps the engine cache coherent.
type Service struct {
	repo       Repository
	engine     *Engine
	media      media.Store
	identities IdentityFinder
	notifier   notification.Notifier
	logger     *slog.Logger
	timeout    time.Duration
}

// NewService wires the mutation side of the catalog.
func NewService(repo Repository, engine *Engine, store media.Store, identities IdentityFinder, cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		repo:       repo,
		engine:     engine,
		media:      store,
		identities: identities,
		notifier:   cfg.Notifier,
		logger:     logger,
		timeout:    cfg.CallTimeout,
	}
}

// Mint uploads the media of a new item and creates it with the caller as
// both creator and owner. Uploaded objects are removed again if the item
// cannot be created.
func (s *Service) Mint(ctx context.Context, creatorID string, in MintInput) (Item, error) {
	const action = "Mint NFT"
	item, err := s.mint(ctx, creatorID, in)
	if err != nil {
		notification.Notify(ctx, s.notifier, notification.Failure(action, err))
		return Item{}, err
	}
	s.engine.InvalidateAll()
	notification.Notify(ctx, s.notifier, notification.Success(action, fmt.Sprintf("%q is live on the marketplace", item.Title)))
	return item, nil
}

func (s *Service) mint(ctx context.Context, creatorID string, in MintInput) (Item, error) {
	if creatorID == "" {
		return Item{}, apperr.ErrUnauthorized
	}
	if err := in.Validate(); err != nil {
		return Item{}, err
	}

	var uploaded []string
	cleanup := func() {
		for _, url := range uploaded {
			callCtx, cancel := withTimeout(context.WithoutCancel(ctx), s.timeout)
			err := s.media.Delete(callCtx, url)
			cancel()
			if err != nil {
				s.logger.Warn("remove orphaned upload", slog.String("url", url), slog.Any("error", err))
			}
		}
	}

	callCtx, cancel := withTimeout(ctx, s.timeout)
	imageURL, err := s.media.Upload(callCtx, media.FolderItemImages, in.Image.Filename, in.Image.Data)
	cancel()
	if err != nil {
		return Item{}, err
	}
	uploaded = append(uploaded, imageURL)

	callCtx, cancel = withTimeout(ctx, s.timeout)
	audioURL, err := s.media.Upload(callCtx, media.FolderItemAudio, in.Audio.Filename, in.Audio.Data)
	cancel()
	if err != nil {
		cleanup()
		return Item{}, err
	}
	uploaded = append(uploaded, audioURL)

	callCtx, cancel = withTimeout(ctx, s.timeout)
	item, err := s.repo.Create(callCtx, Item{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Category:    in.Category,
		CreatorID:   creatorID,
		OwnerID:     creatorID,
		ImageURL:    imageURL,
		AudioURL:    audioURL,
	})
	cancel()
	if err != nil {
		cleanup()
		return Item{}, fmt.Errorf("%w: create item: %w", apperr.ErrStoreFailed, err)
	}
	return item, nil
}

// Update lets the owner edit an item. A mint address can be recorded once.
func (s *Service) Update(ctx context.Context, callerID, itemID string, in UpdateInput) (Item, error) {
	const action = "Update NFT"
	item, err := s.update(ctx, callerID, itemID, in)
	if err != nil {
		notification.Notify(ctx, s.notifier, notification.Failure(action, err))
		return Item{}, err
	}
	s.engine.InvalidateAll()
	notification.Notify(ctx, s.notifier, notification.Success(action, fmt.Sprintf("%q saved", item.Title)))
	return item, nil
}

func (s *Service) update(ctx context.Context, callerID, itemID string, in UpdateInput) (Item, error) {
	current, err := s.owned(ctx, callerID, itemID)
	if err != nil {
		return Item{}, err
	}

	patch := Patch{Price: in.Price, Category: in.Category}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if utf8.RuneCountInString(title) < minTitleLen {
			return Item{}, fmt.Errorf("%w: title must be at least %d characters", apperr.ErrValidationFailed, minTitleLen)
		}
		patch.Title = &title
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if utf8.RuneCountInString(description) < minDescriptionLen {
			return Item{}, fmt.Errorf("%w: description must be at least %d characters", apperr.ErrValidationFailed, minDescriptionLen)
		}
		patch.Description = &description
	}
	if in.Price != nil && !validPrice(*in.Price) {
		return Item{}, fmt.Errorf("%w: price must be a finite number of at least %v", apperr.ErrValidationFailed, minPrice)
	}
	if in.Category != nil && !KnownCategory(*in.Category) {
		return Item{}, fmt.Errorf("%w: unknown category %q", apperr.ErrValidationFailed, *in.Category)
	}
	if in.MintAddress != nil {
		address := strings.TrimSpace(*in.MintAddress)
		switch {
		case address == "":
			return Item{}, fmt.Errorf("%w: mint address cannot be empty", apperr.ErrValidationFailed)
		case current.MintAddress == address:
			// unchanged
		case current.MintAddress != "":
			return Item{}, fmt.Errorf("%w: item %s is already minted", apperr.ErrValidationFailed, itemID)
		default:
			patch.MintAddress = &address
		}
	}
	if patch.Empty() {
		return current, nil
	}

	callCtx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	updated, err := s.repo.Update(callCtx, itemID, patch)
	if err != nil {
		return Item{}, s.storeError(itemID, err)
	}
	return updated, nil
}

// Transfer hands the item to another identity. It is the only way ownerId changes.
func (s *Service) Transfer(ctx context.Context, callerID, itemID, newOwnerID string) (Item, error) {
	const action = "Transfer NFT"
	item, err := s.transfer(ctx, callerID, itemID, newOwnerID)
	if err != nil {
		notification.Notify(ctx, s.notifier, notification.Failure(action, err))
		return Item{}, err
	}
	s.engine.InvalidateAll()
	notification.Notify(ctx, s.notifier, notification.Success(action, fmt.Sprintf("%q has a new owner", item.Title)))
	return item, nil
}

func (s *Service) transfer(ctx context.Context, callerID, itemID, newOwnerID string) (Item, error) {
	current, err := s.owned(ctx, callerID, itemID)
	if err != nil {
		return Item{}, err
	}
	if newOwnerID == "" {
		return Item{}, fmt.Errorf("%w: new owner is required", apperr.ErrValidationFailed)
	}
	if newOwnerID == current.OwnerID {
		return current, nil
	}
	callCtx, cancel := withTimeout(ctx, s.timeout)
	_, err = s.identities.FindByID(callCtx, newOwnerID)
	cancel()
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Item{}, fmt.Errorf("new owner %s: %w", newOwnerID, apperr.ErrNotFound)
		}
		return Item{}, fmt.Errorf("%w: new owner %s: %w", apperr.ErrFetchFailed, newOwnerID, err)
	}
	callCtx, cancel = withTimeout(ctx, s.timeout)
	defer cancel()
	updated, err := s.repo.Update(callCtx, itemID, Patch{OwnerID: &newOwnerID})
	if err != nil {
		return Item{}, s.storeError(itemID, err)
	}
	return updated, nil
}

func (s *Service) owned(ctx context.Context, callerID, itemID string) (Item, error) {
	if callerID == "" {
		return Item{}, apperr.ErrUnauthorized
	}
	callCtx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()
	item, err := s.repo.Get(callCtx, itemID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Item{}, fmt.Errorf("item %s: %w", itemID, apperr.ErrNotFound)
		}
		return Item{}, fmt.Errorf("%w: item %s: %w", apperr.ErrFetchFailed, itemID, err)
	}
	if item.OwnerID != callerID {
		return Item{}, fmt.Errorf("item %s belongs to another identity: %w", itemID, apperr.ErrUnauthorized)
	}
	return item, nil
}

func (s *Service) storeError(itemID string, err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("item %s: %w", itemID, apperr.ErrNotFound)
	}
	return fmt.Errorf("%w: update item %s: %w", apperr.ErrStoreFailed, itemID, err)
}
