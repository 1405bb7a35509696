package handler

import (
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ijaplastik-pos/internal/apperr"
	"ijaplastik-pos/internal/repository"
	"ijaplastik-pos/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxImageBytes = 2 << 20

var imageExts = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

type ProductHandler struct {
	service   service.ProductService
	uploadDir string
}

func NewProductHandler(s service.ProductService, uploadDir string) *ProductHandler {
	return &ProductHandler{service: s, uploadDir: uploadDir}
}

// saveImage stores an uploaded product image. It returns the public path
// and the file on disk, which the caller removes when the request fails.
func (h *ProductHandler) saveImage(c *fiber.Ctx, fh *multipart.FileHeader) (string, string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !imageExts[ext] {
		return "", "", apperr.Validation("Format gambar harus jpg, png atau webp")
	}
	if fh.Size > maxImageBytes {
		return "", "", apperr.Validation("Ukuran gambar maksimal 2MB")
	}
	name := uuid.NewString() + ext
	disk := filepath.Join(h.uploadDir, name)
	if err := c.SaveFile(fh, disk); err != nil {
		return "", "", err
	}
	return "/uploads/" + name, disk, nil
}

func discardUpload(disk string) {
	if disk == "" {
		return
	}
	if err := os.Remove(disk); err != nil && !os.IsNotExist(err) {
		log.Printf("[product] remove %s: %v", disk, err)
	}
}

func formInt(c *fiber.Ctx, key string) (*int, error) {
	raw := strings.TrimSpace(c.FormValue(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperr.Validation("%s harus angka", key)
	}
	return &v, nil
}

func formDecimal(c *fiber.Ctx, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(c.FormValue(key))
	if raw == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperr.Validation("%s harus angka", key)
	}
	return v, nil
}

// createRequestFromForm reads a multipart product form.
func createRequestFromForm(c *fiber.Ctx) (*service.CreateProductRequest, error) {
	req := &service.CreateProductRequest{
		Name:     c.FormValue("name"),
		SKU:      c.FormValue("sku"),
		Category: c.FormValue("category"),
		UnitName: c.FormValue("unit_name"),
	}
	var err error
	ints := []struct {
		key string
		dst **int
	}{
		{"min_stock_units", &req.MinStockUnits},
		{"max_stock_units", &req.MaxStockUnits},
	}
	for _, f := range ints {
		if *f.dst, err = formInt(c, f.key); err != nil {
			return nil, err
		}
	}
	pack, err := formInt(c, "pack_size")
	if err != nil {
		return nil, err
	}
	if pack != nil {
		req.PackSize = *pack
	}
	initial, err := formInt(c, "initial_stock_units")
	if err != nil {
		return nil, err
	}
	if initial != nil {
		req.InitialStockUnits = *initial
	}
	if req.RetailPricePerUnit, err = formDecimal(c, "retail_price_per_unit"); err != nil {
		return nil, err
	}
	if req.WholesalePricePerPack, err = formDecimal(c, "wholesale_price_per_pack"); err != nil {
		return nil, err
	}
	return req, nil
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

// CreateProduct accepts JSON or a multipart form with an optional image.
// POST /api/v1/products
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var (
		req  *service.CreateProductRequest
		disk string
		err  error
	)
	if isMultipart(c) {
		if req, err = createRequestFromForm(c); err != nil {
			return fail(c, err)
		}
		if fh, ferr := c.FormFile("image"); ferr == nil {
			if req.ImageURL, disk, err = h.saveImage(c, fh); err != nil {
				return fail(c, err)
			}
		}
	} else {
		req = &service.CreateProductRequest{}
		if err := c.BodyParser(req); err != nil {
			return badRequest(c, "Invalid JSON")
		}
	}

	product, err := h.service.Create(req, actorOf(c))
	if err != nil {
		discardUpload(disk)
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": true, "data": product})
}

// UpdateProduct applies a partial update. Unknown fields are rejected; a
// multipart body may only replace the image.
// PUT /api/v1/products/:id
func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}

	var (
		req  service.UpdateProductRequest
		disk string
	)
	if isMultipart(c) {
		fh, ferr := c.FormFile("image")
		if ferr != nil {
			return badRequest(c, "image wajib untuk upload multipart")
		}
		url, saved, err := h.saveImage(c, fh)
		if err != nil {
			return fail(c, err)
		}
		req.ImageURL, disk = &url, saved
	} else if err := decodeStrict(c.Body(), &req); err != nil {
		return fail(c, err)
	}

	product, err := h.service.Update(id, &req, actorOf(c))
	if err != nil {
		discardUpload(disk)
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "data": product})
}

// DELETE /api/v1/products/:id
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.service.Delete(id, actorOf(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "message": "Produk dihapus"})
}

// GET /api/v1/products?search=&category=
func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.service.List(repository.ProductFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "data": products})
}

// GET /api/v1/products/:id
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	product, err := h.service.Get(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "data": product})
}

// GET /api/v1/products/:id/movements
func (h *ProductHandler) GetMovements(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	movements, err := h.service.Movements(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "data": movements})
}
