package repository

import (
	"time"

	"tutor_market_backend/internal/model"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.DB.Create(user).Error
}

func (r *UserRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	err := r.DB.First(&user, id).Error
	return &user, err
}

func (r *UserRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.DB.Where("email = ?", email).First(&user).Error
	return &user, err
}

func (r *UserRepository) Update(user *model.User) error {
	return r.DB.Save(user).Error
}

func (r *UserRepository) UpdateLastLogin(userID uint, t time.Time) error {
	return r.DB.Model(&model.User{}).Where("id = ?", userID).Update("last_login", t).Error
}

// UpdateLastSeen 活跃时间，由中间件异步调用
func (r *UserRepository) UpdateLastSeen(userID uint, t time.Time) error {
	return r.DB.Model(&model.User{}).Where("id = ?", userID).Update("last_seen", t).Error
}
