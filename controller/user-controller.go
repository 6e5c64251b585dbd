package controller

import (
	"facad/app_error"
	"facad/auth"
	"facad/config"
	"facad/repository"
	"facad/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UserController struct {
	service *service.UserService
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{
		service: service.NewUserService(db),
	}
}

func setupUserController(db *gorm.DB) []RouteInfo {
	e := NewUserController(db)
	routes := []RouteInfo{
		{Method: "GET", Path: "/users/self", HandlerFunc: e.getSelfHandler(), Authenticated: true},
	}
	if config.IsDevelopment() {
		// stand-in for the institutional identity provider
		routes = append(routes, RouteInfo{Method: "POST", Path: "/dev/token", HandlerFunc: e.devTokenHandler()})
	}
	return routes
}

// @id GetSelf
// @Description Fetches the authenticated user
// @Tags user
// @Produce json
// @Success 200 {object} UserResponse
// @Router /users/self [get]
func (e *UserController) getSelfHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := e.service.GetUserById(getClaims(c).UserId)
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.JSON(200, toUserResponse(user))
	}
}

func (e *UserController) devTokenHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var userCreate DevTokenRequest
		if err := c.ShouldBindJSON(&userCreate); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		user, err := e.service.SaveUser(&repository.User{
			Id:          userCreate.UserId,
			DisplayName: userCreate.DisplayName,
			Registry:    userCreate.Registry,
			Permissions: userCreate.Permissions,
		})
		if err != nil {
			app_error.Render(c, err)
			return
		}
		token, err := auth.CreateToken(user)
		if err != nil {
			app_error.Render(c, err)
			return
		}
		c.SetCookie("auth", token, int(auth.TokenValidity.Seconds()), "/", "", false, true)
		c.JSON(200, gin.H{"token": token})
	}
}

type DevTokenRequest struct {
	UserId      int      `json:"user_id"`
	DisplayName string   `json:"display_name" binding:"required"`
	Registry    string   `json:"registry"`
	Permissions []string `json:"permissions"`
}

type UserResponse struct {
	Id          int      `json:"id"`
	DisplayName string   `json:"display_name"`
	Registry    string   `json:"registry"`
	Permissions []string `json:"permissions"`
}

func toUserResponse(user *repository.User) *UserResponse {
	return &UserResponse{
		Id:          user.Id,
		DisplayName: user.DisplayName,
		Registry:    user.Registry,
		Permissions: user.Permissions,
	}
}
