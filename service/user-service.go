package service

import (
	"facad/repository"

	"gorm.io/gorm"
)

type UserService struct {
	userRepository *repository.UserRepository
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{
		userRepository: repository.NewUserRepository(db),
	}
}

func (s *UserService) GetUserById(userId int) (*repository.User, error) {
	user, err := s.userRepository.GetUserById(userId)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

func (s *UserService) SaveUser(user *repository.User) (*repository.User, error) {
	return s.userRepository.SaveUser(user)
}
