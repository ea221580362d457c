// Package api is the JSON REST backend: authentication, products, sales,
// reports and user administration, each scoped to the caller's business.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"bizmanager/internal/auth"
	"bizmanager/internal/events"
	"bizmanager/internal/idempotency"
	"bizmanager/internal/logging"
	"bizmanager/internal/models"
	"bizmanager/internal/store"
)

type UserStore interface {
	CreateBusinessWithAdmin(ctx context.Context, b *models.Business, admin *models.User) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context, businessID uint) ([]models.User, error)
	GetUser(ctx context.Context, businessID, id uint) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, businessID, id uint) error
}

type ProductStore interface {
	ListProducts(ctx context.Context, businessID uint, f store.ProductFilter) ([]models.Product, int64, error)
	GetProduct(ctx context.Context, businessID, id uint) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, businessID, id uint) error
}

type SaleStore interface {
	RecordSale(ctx context.Context, businessID, userID uint, lines []store.SaleLine) (*models.Sale, error)
	SaleItems(ctx context.Context, businessID uint, f store.SaleFilter) ([]models.SaleItem, int64, error)
}

// Deps are the collaborators of the API. Guard, Events, Ping, Now and
// Location default to no-op or local values when nil.
type Deps struct {
	Users      UserStore
	Products   ProductStore
	Sales      SaleStore
	Tokens     *auth.Issuer
	Guard      idempotency.Guard
	Events     events.Publisher
	Ping       func(ctx context.Context) error
	Log        zerolog.Logger
	LoginRate  rate.Limit
	LoginBurst int
	Now        func() time.Time
	Location   *time.Location
}

type Server struct {
	Deps
}

func New(d Deps) *Server {
	if d.Guard == nil {
		d.Guard = idempotency.Noop{}
	}
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.LoginRate == 0 {
		d.LoginRate = rate.Inf
	}
	if d.LoginBurst < 1 {
		d.LoginBurst = 1
	}
	return &Server{Deps: d}
}

// Router builds the gin engine with every endpoint registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(s.Log))

	r.GET("/health", s.health)

	limiter := newIPLimiter(s.LoginRate, s.LoginBurst)
	r.POST("/login", limiter.middleware(), s.login)
	r.POST("/signup", s.signup)

	authed := r.Group("/", requireToken(s.Tokens), scopeBusiness())
	admin := authed.Group("/", requireAdmin())

	authed.GET("/products", s.listProducts)
	authed.GET("/products/:id", s.getProduct)
	admin.GET("/products/summary", s.productSummary)
	admin.POST("/products", s.createProduct)
	admin.PATCH("/products/:id", s.updateProduct)
	admin.DELETE("/products/:id", s.deleteProduct)

	authed.POST("/sales", s.recordSale)
	admin.GET("/sales/report", s.salesReport)
	admin.GET("/sales/daily", s.dailySales)
	admin.GET("/sales/monthly", s.monthlySales)
	admin.GET("/sales/profit", s.profitSummary)

	admin.GET("/users", s.listUsers)
	admin.POST("/users", s.createUser)
	authed.GET("/users/:id", s.getUser)
	authed.PUT("/users/:id", s.updateUser)
	admin.DELETE("/users/:id", s.deleteUser)

	return r
}

func (s *Server) health(c *gin.Context) {
	if s.Ping != nil {
		if err := s.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "db": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "Invalid id", nil)
		return 0, false
	}
	return uint(id), true
}

const maxPageSize = 100

// pageQuery reads page and page_size. Without page, paging is off.
func pageQuery(c *gin.Context) (store.Page, bool) {
	var p store.Page
	if raw := c.Query("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(c, "page must be a positive integer", nil)
			return p, false
		}
		p.Page = n
		p.PageSize = 20
	}
	if raw := c.Query("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			badRequest(c, "page_size must be a positive integer", nil)
			return p, false
		}
		p.PageSize = min(n, maxPageSize)
		if p.Page == 0 {
			p.Page = 1
		}
	}
	return p, true
}

func setTotal(c *gin.Context, total int64) {
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
}
