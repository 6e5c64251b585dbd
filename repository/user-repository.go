package repository

import (
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type Permission = string

const (
	PermissionAdmin     Permission = "admin"
	PermissionEvaluator Permission = "evaluator"
)

type User struct {
	Id          int            `gorm:"primaryKey"`
	DisplayName string         `gorm:"not null"`
	Registry    string         `gorm:"null"`
	Permissions pq.StringArray `gorm:"type:text[];not null;default:'{}'"`
}

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) GetUserById(userId int) (*User, error) {
	var user User
	result := r.DB.First(&user, "id = ?", userId)
	if result.Error != nil {
		return nil, result.Error
	}
	return &user, nil
}

func (r *UserRepository) SaveUser(user *User) (*User, error) {
	result := r.DB.Save(user)
	if result.Error != nil {
		return nil, result.Error
	}
	return user, nil
}
