package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/apperror"
	"github.com/baawa1/baawa-accessories-inventory-sub000/internal/model"
	"github.com/baawa1/baawa-accessories-inventory-sub000/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ImageStorage keeps the image files. imagestore.Store implements it.
type ImageStorage interface {
	Put(ctx context.Context, productID uuid.UUID, filename, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// ImageStore is the product image metadata the endpoints maintain
type ImageStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	UpsertImage(ctx context.Context, img *model.ProductImage) error
	GetImage(ctx context.Context, productID, imageID uuid.UUID) (*model.ProductImage, error)
	DeleteImage(ctx context.Context, productID, imageID uuid.UUID) error
}

type ImageHandler struct {
	store   ImageStore
	storage ImageStorage
}

// NewImageHandler builds the image endpoints. A nil storage answers 503.
func NewImageHandler(s ImageStore, storage ImageStorage) *ImageHandler {
	return &ImageHandler{store: s, storage: storage}
}

func (h *ImageHandler) unavailable(c echo.Context) error {
	logger.FromEcho(c).Warn("Image storage is not configured")
	return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "Image storage is not configured"})
}

// UploadImage stores the multipart "image" file and attaches it to the product
func (h *ImageHandler) UploadImage(c echo.Context) error {
	if h.storage == nil {
		return h.unavailable(c)
	}
	log := logger.FromEcho(c)
	ctx := c.Request().Context()

	productID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, "Invalid product id", err)
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return respondError(c, "No image uploaded", apperror.Validation("image", "is required"))
	}

	product, err := h.store.GetProduct(ctx, productID)
	if err != nil {
		return respondError(c, "Failed to load product", storeError("get product", "Product", err))
	}

	displayOrder := len(product.Images) + 1
	if raw := c.FormValue("display_order"); raw != "" {
		if displayOrder, err = strconv.Atoi(raw); err != nil {
			return respondError(c, "Invalid display order", apperror.Validation("display_order", "must be an integer"))
		}
	}

	f, err := fh.Open()
	if err != nil {
		return respondError(c, "Failed to read upload", apperror.Persistence("read upload", err))
	}
	defer f.Close()

	url, err := h.storage.Put(ctx, productID, fh.Filename, fh.Header.Get(echo.HeaderContentType), f)
	if err != nil {
		return respondError(c, "Failed to upload image", apperror.Persistence("upload image", err))
	}

	img := &model.ProductImage{
		ProductID:    productID,
		ImageURL:     url,
		AltText:      c.FormValue("alt_text"),
		DisplayOrder: displayOrder,
	}
	if err := h.store.UpsertImage(ctx, img); err != nil {
		if derr := h.storage.Delete(context.WithoutCancel(ctx), url); derr != nil {
			log.Warn("Failed to remove orphaned image", zap.String("url", url), zap.Error(derr))
		}
		return respondError(c, "Failed to save image", storeError("save image", "Product", err))
	}

	log.Info("Product image uploaded",
		zap.String("product_id", productID.String()),
		zap.String("image_id", img.ID.String()))
	return c.JSON(http.StatusCreated, img)
}

// DeleteImage removes the stored file and the image row
func (h *ImageHandler) DeleteImage(c echo.Context) error {
	if h.storage == nil {
		return h.unavailable(c)
	}
	log := logger.FromEcho(c)
	ctx := c.Request().Context()

	productID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, "Invalid product id", err)
	}
	imageID, err := paramID(c, "imageId")
	if err != nil {
		return respondError(c, "Invalid image id", err)
	}

	img, err := h.store.GetImage(ctx, productID, imageID)
	if err != nil {
		return respondError(c, "Failed to load image", storeError("get image", "Image", err))
	}
	if err := h.storage.Delete(ctx, img.ImageURL); err != nil {
		return respondError(c, "Failed to delete image file", apperror.Persistence("delete image", err))
	}
	if err := h.store.DeleteImage(ctx, productID, imageID); err != nil {
		return respondError(c, "Failed to delete image", storeError("delete image", "Image", err))
	}

	log.Info("Product image deleted",
		zap.String("product_id", productID.String()),
		zap.String("image_id", imageID.String()))
	return c.JSON(http.StatusOK, echo.Map{"message": "Image deleted successfully"})
}

func (h *ImageHandler) Register(g *echo.Group) {
	g.POST("/:id/images", h.UploadImage)
	g.DELETE("/:id/images/:imageId", h.DeleteImage)
}
