// Package web is the browser front end: server-rendered pages over the API,
// with identity and the in-progress cart kept in a signed cookie session.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"bizmanager/internal/apiclient"
	"bizmanager/internal/cart"
	"bizmanager/internal/logging"
	"bizmanager/internal/models"
	"bizmanager/internal/reports"
	"bizmanager/internal/session"
	"bizmanager/internal/views"
)

// API is the part of the REST client the pages use. *apiclient.Client
// satisfies it.
type API interface {
	Login(ctx context.Context, username, password string) (*apiclient.LoginResult, error)
	Signup(ctx context.Context, in apiclient.SignupInput) (*apiclient.Account, error)

	ListProducts(ctx context.Context, q apiclient.ProductQuery) (*apiclient.ProductPage, error)
	GetProduct(ctx context.Context, id uint) (*models.Product, error)
	CreateProduct(ctx context.Context, in apiclient.ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uint, in apiclient.ProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uint) error
	ProductSummary(ctx context.Context) (*reports.Inventory, error)

	Submitter(key string) cart.Submitter
	SalesReport(ctx context.Context, q apiclient.SalesQuery) ([]reports.Row, int64, error)
	DailySales(ctx context.Context, day time.Time) (*reports.Daily, error)
	MonthlySales(ctx context.Context, year int) ([]reports.Month, error)
	ProfitSummary(ctx context.Context, start, end time.Time) (*reports.Profit, error)

	ListUsers(ctx context.Context) ([]apiclient.Account, error)
	GetUser(ctx context.Context, id uint) (*apiclient.Account, error)
	CreateUser(ctx context.Context, in apiclient.UserInput) (*apiclient.Account, error)
	UpdateUser(ctx context.Context, id uint, in apiclient.UserInput) (*apiclient.Account, error)
	DeleteUser(ctx context.Context, id uint) error
}

// Connect returns an API client authenticated as token ("" for anonymous).
type Connect func(token string) API

// ClientConnect adapts an apiclient.Client.
func ClientConnect(c *apiclient.Client) Connect {
	return func(token string) API { return c.WithToken(token) }
}

type Options struct {
	Connect      Connect
	Store        sessions.Store
	Log          zerolog.Logger
	BusinessName string
	Now          func() time.Time
	Location     *time.Location
}

type Server struct {
	connect  Connect
	store    sessions.Store
	log      zerolog.Logger
	bizName  string
	now      func() time.Time
	location *time.Location
}

func New(o Options) *Server {
	s := &Server{
		connect:  o.Connect,
		store:    o.Store,
		log:      o.Log,
		bizName:  o.BusinessName,
		now:      o.Now,
		location: o.Location,
	}
	if s.bizName == "" {
		s.bizName = "BizManager"
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.location == nil {
		s.location = time.Local
	}
	return s
}

// api returns the client for the current request's session.
func (s *Server) api(c *gin.Context) API {
	return s.connect(session.From(c).Token)
}

// Router builds the gin engine with every page registered.
func (s *Server) Router() (*gin.Engine, error) {
	tmpl, err := views.Parse()
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(s.log))
	r.SetHTMLTemplate(tmpl)
	r.Use(sessions.Sessions("bm_session", s.store))
	r.Use(hydrate())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusSeeOther, "/login") })

	r.GET("/login", s.loginPage)
	r.POST("/login", s.login)
	r.GET("/signup", s.signupPage)
	r.POST("/signup", s.signup)
	r.GET("/logout", s.logout)
	r.POST("/logout", s.logout)

	authed := r.Group("/", mustLogin())
	authed.GET("/sales", s.salesPage)
	authed.POST("/sales/cart/add", s.cartAdd)
	authed.POST("/sales/cart/update", s.cartUpdate)
	authed.POST("/sales/cart/remove", s.cartRemove)
	authed.GET("/checkout", s.checkoutPage)
	authed.POST("/checkout", s.checkout)

	admin := authed.Group("/", mustAdmin())
	admin.GET("/dashboard", s.dashboard)
	admin.GET("/products", s.productList)
	admin.GET("/products/new", s.productNewPage)
	admin.POST("/products/new", s.productCreate)
	admin.GET("/products/:id/edit", s.productEditPage)
	admin.POST("/products/:id/edit", s.productUpdate)
	admin.POST("/products/:id/delete", s.productDelete)
	admin.GET("/sales-history", s.salesHistory)
	admin.GET("/profit-loss", s.profitLoss)
	admin.GET("/users", s.userList)
	admin.GET("/users/new", s.userNewPage)
	admin.POST("/users/new", s.userCreate)
	admin.GET("/users/:id/edit", s.userEditPage)
	admin.POST("/users/:id/edit", s.userUpdate)
	admin.POST("/users/:id/delete", s.userDelete)
	admin.GET("/settings", s.settingsPage)
	admin.POST("/settings", s.settingsSave)

	return r, nil
}
