package catalog

import (
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/musicmoon/marketplace/internal/apperr"
	"github.com/musicmoon/marketplace/internal/identity"
)

// Handler exposes catalog endpoints.
type Handler struct {
	engine  *Engine
	service *Service
}

// NewHandler constructs a catalog HTTP handler.
func NewHandler(engine *Engine, service *Service) *Handler {
	return &Handler{engine: engine, service: service}
}

type listResponse struct {
	Items      []Item   `json:"items"`
	Categories []string `json:"categories"`
	Total      int      `json:"total"`
}

// List loads a scope and returns the filtered, sorted view. Categories are
// computed over the whole scope so the selector does not shrink as filters apply.
func (h *Handler) List(c *fiber.Ctx) error {
	scope, err := ParseScope(c.Query("scope"), c.Query("value"))
	if err != nil {
		return fiber.NewError(apperr.Status(err), err.Error())
	}
	key, err := ParseSortKey(c.Query("sort"))
	if err != nil {
		return fiber.NewError(apperr.Status(err), err.Error())
	}
	priceRange, err := parseRange(c.Query("min"), c.Query("max"))
	if err != nil {
		return fiber.NewError(apperr.Status(err), err.Error())
	}

	items, err := h.engine.Load(c.UserContext(), scope)
	if err != nil {
		return fiber.NewError(apperr.Status(err), err.Error())
	}
	view, err := Sort(Filter(items, FilterParams{Query: c.Query("q"), Category: c.Query("category"), Range: priceRange}), key)
	if err != nil {
		return fiber.NewError(apperr.Status(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(listResponse{Items: view, Categories: DistinctCategories(items), Total: len(view)})
}

// Categories returns the categories present across all items.
func (h *Handler) Categories(c *fiber.Ctx) error {
	items, err := h.engine.Load(c.UserContext(), All())
	if err != nil {
		return fiber.NewError(apperr.Status(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"categories": DistinctCategories(items)})
}

// Presets returns the price quick filters and the mint categories.
func (h *Handler) Presets(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"prices": PricePresets, "categories": Categories})
}

// Get returns one item.
func (h *Handler) Get(c *fiber.Ctx) error {
	item, err := h.engine.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return fiber.NewError(apperr.Status(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(item)
}

// Mint accepts the multipart mint form.
func (h *Handler) Mint(c *fiber.Ctx) error {
	callerID, _ := c.Locals(identity.IdentityIDLocal).(string)
	if callerID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	price, err := strconv.ParseFloat(c.FormValue("price"), 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "price must be a number")
	}
	image, err := formFile(c, "image")
	if err != nil {
		return fiber.NewError(apperr.Status(err), err.Error())
	}
	audio, err := formFile(c, "audio")
	if err != nil {
		return fiber.NewError(apperr.Status(err), err.Error())
	}

	item, err := h.service.Mint(c.UserContext(), callerID, MintInput{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Price:       price,
		Category:    c.FormValue("category"),
		Image:       image,
		Audio:       audio,
	})
	if err != nil {
		return fiber.NewError(apperr.Status(err), err.Error())
	}
	return c.Status(http.StatusCreated).JSON(item)
}

// Update applies an owner edit.
func (h *Handler) Update(c *fiber.Ctx) error {
	callerID, _ := c.Locals(identity.IdentityIDLocal).(string)
	if callerID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var in UpdateInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	item, err := h.service.Update(c.UserContext(), callerID, c.Params("id"), in)
	if err != nil {
		return fiber.NewError(apperr.Status(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(item)
}

type transferRequest struct {
	OwnerID string `json:"ownerId"`
}

// Transfer hands an item to a new owner.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	callerID, _ := c.Locals(identity.IdentityIDLocal).(string)
	if callerID == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	item, err := h.service.Transfer(c.UserContext(), callerID, c.Params("id"), req.OwnerID)
	if err != nil {
		return fiber.NewError(apperr.Status(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(item)
}

func parseRange(minRaw, maxRaw string) (PriceRange, error) {
	r := AnyPrice
	if minRaw != "" {
		v, err := strconv.ParseFloat(minRaw, 64)
		if err != nil {
			return PriceRange{}, fmt.Errorf("%w: min must be a number", apperr.ErrValidationFailed)
		}
		r.Min = v
	}
	if maxRaw != "" {
		v, err := strconv.ParseFloat(maxRaw, 64)
		if err != nil || math.IsInf(v, -1) {
			return PriceRange{}, fmt.Errorf("%w: max must be a number", apperr.ErrValidationFailed)
		}
		r.Max = v
	}
	return r, r.Validate()
}

func formFile(c *fiber.Ctx, field string) (Upload, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return Upload{}, fmt.Errorf("%w: %s file is required", apperr.ErrValidationFailed, field)
	}
	data, err := readFile(header)
	if err != nil {
		return Upload{}, fmt.Errorf("%w: read %s: %v", apperr.ErrValidationFailed, field, err)
	}
	return Upload{Filename: header.Filename, Data: data}, nil
}

func readFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
