package store

import (
	"context"

	"gorm.io/gorm"

	"bizmanager/internal/models"
)

// CreateBusinessWithAdmin creates a business and its first user in one
// transaction. admin.BusinessID is filled in.
func (s *Store) CreateBusinessWithAdmin(ctx context.Context, b *models.Business, admin *models.User) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(b).Error; err != nil {
			return err
		}
		admin.BusinessID = b.ID
		return tx.Create(admin).Error
	})
	return translate(err, "create business")
}

func (s *Store) FindBusinessByName(ctx context.Context, name string) (*models.Business, error) {
	var b models.Business
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&b).Error
	if err != nil {
		return nil, translate(err, "find business")
	}
	return &b, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translate(err, "find user")
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context, businessID uint) ([]models.User, error) {
	var users []models.User
	err := s.db.WithContext(ctx).Where("business_id = ?", businessID).Order("id").Find(&users).Error
	if err != nil {
		return nil, translate(err, "list users")
	}
	return users, nil
}

func (s *Store) GetUser(ctx context.Context, businessID, id uint) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("id = ? AND business_id = ?", id, businessID).First(&u).Error
	if err != nil {
		return nil, translate(err, "get user")
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.db.WithContext(ctx).Create(u).Error, "create user")
}

// UpdateUser writes username, role and password hash of u.
func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND business_id = ?", u.ID, u.BusinessID).
		Updates(map[string]any{"username": u.Username, "role": u.Role, "password_hash": u.PasswordHash})
	if res.Error != nil {
		return translate(res.Error, "update user")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "update user")
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, businessID, id uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND business_id = ?", id, businessID).Delete(&models.User{})
	if res.Error != nil {
		return translate(res.Error, "delete user")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "delete user")
	}
	return nil
}
