package mysql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shop-service/internal/domain"
	"shop-service/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type userRepo struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) repository.UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if err := conn(ctx, r.db).Create(u).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *userRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	if err := conn(ctx, r.db).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (r *userRepo) FindByLogin(ctx context.Context, userNameOrEmail string) (*domain.User, error) {
	login := strings.TrimSpace(userNameOrEmail)
	var u domain.User
	err := conn(ctx, r.db).
		Where("user_name = ? OR email = ?", login, strings.ToLower(login)).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user by login: %w", err)
	}
	return &u, nil
}

func (r *userRepo) Exists(ctx context.Context, userName, email string) (bool, error) {
	var n int64
	err := conn(ctx, r.db).Model(&domain.User{}).
		Where("user_name = ? OR email = ?", strings.TrimSpace(userName), strings.ToLower(strings.TrimSpace(email))).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return n > 0, nil
}
