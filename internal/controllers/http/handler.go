package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shop-service/internal/domain"
	"shop-service/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const serviceName = "shop-service"

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Products       *services.ProductService
	Inventory      *services.InventoryService
	Categories     *services.CategoryService
	Orders         *services.OrderService
	Auth           *services.AuthService
	DB             Pinger
	PaypalClientID string
	Log            *zap.Logger
}

type Handler struct {
	products   *services.ProductService
	inventory  *services.InventoryService
	categories *services.CategoryService
	orders     *services.OrderService
	auth       *services.AuthService
	db         Pinger
	paypalID   string
	started    time.Time
	log        *zap.Logger
}

func NewHandler(d Deps) *Handler {
	return &Handler{
		products:   d.Products,
		inventory:  d.Inventory,
		categories: d.Categories,
		orders:     d.Orders,
		auth:       d.Auth,
		db:         d.DB,
		paypalID:   d.PaypalClientID,
		started:    time.Now(),
		log:        d.Log,
	}
}

// CORS allows the configured origins; "*" allows any.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{"X-Total-Count"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cors.New(cfg)
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.Root)
	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.GET("/payment/config/paypal", h.PaypalConfig)

	api.GET("/products", h.ListProducts)
	api.GET("/products/:id", h.GetProduct)
	api.GET("/categories", h.ListCategories)
	api.GET("/categories/:slug", h.GetCategory)

	api.POST("/orders", h.optionalAuth, h.CreateOrder)
	api.GET("/orders/mine", h.requireAuth, h.MyOrders)

	admin := api.Group("", h.requireAuth, h.requireRole(domain.RoleAdmin))
	admin.POST("/products", h.CreateProduct)
	admin.PATCH("/products/:id", h.PatchProduct)
	admin.PUT("/products/:id", h.ReplaceProduct)
	admin.DELETE("/products/:id", h.DeleteProduct)
	admin.POST("/admin/inventory/resync", h.ResyncInventory)

	admin.POST("/categories", h.CreateCategory)
	admin.PATCH("/categories/:id", h.UpdateCategory)
	admin.DELETE("/categories/:id", h.DeleteCategory)

	admin.GET("/orders", h.ListOrders)
	admin.GET("/orders/:id", h.GetOrder)
	admin.PUT("/orders/:id/status", h.UpdateOrderStatus)
}

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "name": serviceName, "time": time.Now().UTC()})
}

func (h *Handler) Health(c *gin.Context) {
	db := "down"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err == nil {
			db = "up"
		} else {
			h.log.Warn("database ping failed", zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "db": db, "uptime": time.Since(h.started).Seconds()})
}

func (h *Handler) PaypalConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"clientId": h.paypalID})
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	res, err := h.auth.Register(c.Request.Context(), req.toInput())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	res, err := h.auth.Login(c.Request.Context(), req.UsernameOrEmail, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func queryInt(c *gin.Context, key string) int {
	n, _ := strconv.Atoi(c.Query(key))
	return n
}

func queryDecimal(c *gin.Context, key string) (*decimal.Decimal, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, domain.BadRequestf("%s must be a number", key)
	}
	return &d, nil
}

func (h *Handler) ListProducts(c *gin.Context) {
	minPrice, err := queryDecimal(c, "minPrice")
	if err != nil {
		h.fail(c, err)
		return
	}
	maxPrice, err := queryDecimal(c, "maxPrice")
	if err != nil {
		h.fail(c, err)
		return
	}
	inStock := strings.ToLower(c.Query("inStock"))

	page, err := h.products.ListProducts(c.Request.Context(), services.ProductListParams{
		Category: c.Query("category"),
		Keyword:  c.Query("keyword"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		InStock:  inStock == "1" || inStock == "true",
		Sort:     c.Query("sort"),
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("X-Total-Count", strconv.FormatInt(page.Meta.Total, 10))
	c.JSON(http.StatusOK, page)
}

func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.products.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	p, err := h.products.CreateProduct(c.Request.Context(), req.toInput())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) PatchProduct(c *gin.Context) {
	h.updateProduct(c, false)
}

func (h *Handler) ReplaceProduct(c *gin.Context) {
	h.updateProduct(c, true)
}

func (h *Handler) updateProduct(c *gin.Context, replace bool) {
	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	p, err := h.products.UpdateProduct(c.Request.Context(), c.Param("id"), req.toPatch(), replace)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	p, err := h.products.DeleteProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if p == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) ResyncInventory(c *gin.Context) {
	fixed, err := h.inventory.Resync(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fixed": fixed})
}

func (h *Handler) ListCategories(c *gin.Context) {
	list, err := h.categories.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetCategory(c *gin.Context) {
	cat, err := h.categories.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *Handler) CreateCategory(c *gin.Context) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	cat, err := h.categories.Create(c.Request.Context(), services.CategoryInput{Name: req.Name, Description: req.Description})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	cat, err := h.categories.Update(c.Request.Context(), c.Param("id"), services.CategoryPatch{Name: req.Name, Description: req.Description})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	if err := h.categories.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	order, err := h.orders.PlaceOrder(c.Request.Context(), req.toCart(c.GetHeader("Idempotency-Key")), principalFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *Handler) MyOrders(c *gin.Context) {
	p := principalFrom(c)
	if p == nil {
		h.fail(c, domain.NewUnauthorized("unauthorized"))
		return
	}
	orders, err := h.orders.ListOrdersForUser(c.Request.Context(), p.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) ListOrders(c *gin.Context) {
	page, err := h.orders.ListAllOrders(c.Request.Context(), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("X-Total-Count", strconv.FormatInt(page.Meta.Total, 10))
	c.JSON(http.StatusOK, page)
}

func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err))
		return
	}
	order, err := h.orders.UpdateOrderStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
