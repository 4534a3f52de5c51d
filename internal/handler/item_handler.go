package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/lostfound/internal/model"
	"github.com/quocanhngo/lostfound/internal/service"
	"github.com/quocanhngo/lostfound/pkg/storage"
)

// ItemHandler handles lost and found report endpoints
type ItemHandler struct {
	itemService  *service.ItemService
	matchService *service.MatchService
}

func NewItemHandler(itemService *service.ItemService, matchService *service.MatchService) *ItemHandler {
	return &ItemHandler{itemService: itemService, matchService: matchService}
}

// CreateItem godoc
// @Summary Report a lost or found item
// @Description Stores the item and runs matching against active items of the opposite kind. When matching cannot run inline the item is still created and matching_pending is true.
// @Tags Items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.CreateItemRequest true "Item report"
// @Success 201 {object} model.CreateItemResponse
// @Failure 400 {object} model.ErrorResponse
// @Router /items [post]
func (h *ItemHandler) CreateItem(c *gin.Context) {
	var req model.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	resp, err := h.itemService.Create(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetItem godoc
// @Summary Get an item
// @Tags Items
// @Produce json
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Success 200 {object} model.Item
// @Failure 404 {object} model.ErrorResponse
// @Router /items/{id} [get]
func (h *ItemHandler) GetItem(c *gin.Context) {
	itemID, ok := pathID(c, "item")
	if !ok {
		return
	}

	item, err := h.itemService.Get(itemID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// GetMatches godoc
// @Summary List matches of an item
// @Description Only the owner of the item can list its matches.
// @Tags Items
// @Produce json
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Success 200 {array} model.Match
// @Failure 404 {object} model.ErrorResponse
// @Router /items/{id}/matches [get]
func (h *ItemHandler) GetMatches(c *gin.Context) {
	itemID, ok := pathID(c, "item")
	if !ok {
		return
	}

	matches, err := h.matchService.ListMatches(itemID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, matches)
}

// ClaimItem godoc
// @Summary Claim an item
// @Description Notifies the owner that the caller believes the item is theirs.
// @Tags Items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Param body body model.ClaimItemRequest false "Optional message to the owner"
// @Success 200 {object} model.SuccessResponse
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /items/{id}/claim [post]
func (h *ItemHandler) ClaimItem(c *gin.Context) {
	itemID, ok := pathID(c, "item")
	if !ok {
		return
	}

	var req model.ClaimItemRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
			return
		}
	}

	if _, err := h.itemService.Claim(c.Request.Context(), itemID, currentUserID(c), req.Message); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.SuccessResponse{Message: "Owner notified"})
}

// ResolveItem godoc
// @Summary Mark an item as resolved
// @Tags Items
// @Produce json
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Success 200 {object} model.Item
// @Failure 404 {object} model.ErrorResponse
// @Router /items/{id}/resolve [post]
func (h *ItemHandler) ResolveItem(c *gin.Context) {
	itemID, ok := pathID(c, "item")
	if !ok {
		return
	}

	item, err := h.itemService.Resolve(itemID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

// UploadPhoto godoc
// @Summary Upload an item photo
// @Description Accepts jpg, png, gif or webp up to 10MB.
// @Tags Items
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Item ID"
// @Param file formData file true "Photo"
// @Success 200 {object} model.Item
// @Failure 400 {object} model.ErrorResponse
// @Failure 413 {object} model.ErrorResponse
// @Router /items/{id}/photo [post]
func (h *ItemHandler) UploadPhoto(c *gin.Context) {
	itemID, ok := pathID(c, "item")
	if !ok {
		return
	}

	// Limit request body size; leave room for multipart framing
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxPhotoSize+1<<20)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{Error: "File too large (max 10MB)"})
			return
		}
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "File is required", Message: err.Error()})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	ext, err := storage.ObjectExt(contentType)
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Only images are allowed", Message: err.Error()})
		return
	}

	item, err := h.itemService.SetPhoto(c.Request.Context(), itemID, currentUserID(c), file, header.Size, contentType, ext)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}
