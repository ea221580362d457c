// Package seed loads a business with its users and catalog from a YAML file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"bizmanager/internal/models"
	"bizmanager/internal/store"
	"bizmanager/internal/validate"
)

type Account struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type Product struct {
	Name        string          `yaml:"name"`
	Category    string          `yaml:"category"`
	Description string          `yaml:"description"`
	Price       decimal.Decimal `yaml:"price"`
	CostPrice   decimal.Decimal `yaml:"cost_price"`
	Quantity    int             `yaml:"quantity"`
}

// File is the seed document.
type File struct {
	Business struct {
		Name    string `yaml:"name"`
		Address string `yaml:"address"`
		Phone   string `yaml:"phone"`
		Email   string `yaml:"email"`
	} `yaml:"business"`
	Admin    Account   `yaml:"admin"`
	Staff    []Account `yaml:"staff"`
	Products []Product `yaml:"products"`
}

// Store is the subset of *store.Store a seed needs.
type Store interface {
	FindBusinessByName(ctx context.Context, name string) (*models.Business, error)
	CreateBusinessWithAdmin(ctx context.Context, b *models.Business, admin *models.User) error
	CreateUser(ctx context.Context, u *models.User) error
	CreateProduct(ctx context.Context, p *models.Product) error
}

func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a seed document.
func Parse(raw []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	b := f.Business
	errs := validate.Signup{
		BusinessName:    b.Name,
		BusinessAddress: b.Address,
		BusinessPhone:   b.Phone,
		BusinessEmail:   b.Email,
		Username:        f.Admin.Username,
		Password:        f.Admin.Password,
	}.Validate()
	if !errs.OK() {
		return fmt.Errorf("business: %s", errs.First("business_name", "username", "password"))
	}
	for i, s := range f.Staff {
		errs := validate.Errors{}
		validate.Username(errs, s.Username)
		validate.Password(errs, s.Password, nil)
		if !errs.OK() {
			return fmt.Errorf("staff %d: %s", i+1, errs.First("username", "password"))
		}
	}
	for i, p := range f.Products {
		switch {
		case strings.TrimSpace(p.Name) == "":
			return fmt.Errorf("product %d: name is required", i+1)
		case p.Price.IsNegative() || p.CostPrice.IsNegative():
			return fmt.Errorf("product %q: prices must not be negative", p.Name)
		case p.Quantity < 0:
			return fmt.Errorf("product %q: quantity must not be negative", p.Name)
		}
	}
	return nil
}

// Apply writes f through st. A business that already exists is left alone
// and Apply reports false.
func Apply(ctx context.Context, st Store, f *File, log zerolog.Logger) (bool, error) {
	_, err := st.FindBusinessByName(ctx, f.Business.Name)
	switch {
	case err == nil:
		log.Info().Str("business", f.Business.Name).Msg("business already seeded, skipping")
		return false, nil
	case !errors.Is(err, store.ErrNotFound):
		return false, err
	}

	hash, err := models.HashPassword(f.Admin.Password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	biz := &models.Business{Name: f.Business.Name, Address: f.Business.Address, Phone: f.Business.Phone, Email: f.Business.Email}
	admin := &models.User{Username: f.Admin.Username, PasswordHash: hash, Role: models.RoleAdmin}
	if err := st.CreateBusinessWithAdmin(ctx, biz, admin); err != nil {
		return false, err
	}

	for _, s := range f.Staff {
		hash, err := models.HashPassword(s.Password)
		if err != nil {
			return false, fmt.Errorf("hash password: %w", err)
		}
		u := &models.User{BusinessID: biz.ID, Username: s.Username, PasswordHash: hash, Role: models.RoleStaff}
		if err := st.CreateUser(ctx, u); err != nil {
			return false, fmt.Errorf("staff %q: %w", s.Username, err)
		}
	}
	for _, p := range f.Products {
		row := &models.Product{
			BusinessID:  biz.ID,
			Name:        p.Name,
			Category:    p.Category,
			Description: p.Description,
			Price:       p.Price,
			CostPrice:   p.CostPrice,
			Quantity:    p.Quantity,
		}
		if err := st.CreateProduct(ctx, row); err != nil {
			return false, fmt.Errorf("product %q: %w", p.Name, err)
		}
	}
	log.Info().
		Str("business", biz.Name).
		Int("staff", len(f.Staff)).
		Int("products", len(f.Products)).
		Msg("seeded business")
	return true, nil
}
