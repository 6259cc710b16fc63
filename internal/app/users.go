package app

import (
	"context"
	"errors"

	"github.com/talkincode/toughshop/internal/domain"
	"gorm.io/gorm"
)

// GormUserRepository reads storefront accounts for session checks
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindUser implements webserver.UserFinder
func (r *GormUserRepository) FindUser(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundf("user %d", id)
	}
	if err != nil {
		return nil, domain.WrapStore("query user", err)
	}
	return &user, nil
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFoundf("user %s", email)
	}
	if err != nil {
		return nil, domain.WrapStore("query user", err)
	}
	return &user, nil
}

func (r *GormUserRepository) Create(ctx context.Context, user *domain.User) error {
	return domain.WrapStore("create user", r.db.WithContext(ctx).Create(user).Error)
}

func (r *GormUserRepository) SetRole(ctx context.Context, id int64, role string) error {
	return domain.WrapStore("update user role", r.db.WithContext(ctx).
		Model(&domain.User{}).Where("id = ?", id).Update("role", role).Error)
}
