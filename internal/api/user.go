package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/foodgram/backend/internal/middleware"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/service"
)

// UserHandler serves registration, user lookup and subscriptions.
type UserHandler struct {
	users *service.UserService
	auth  *service.AuthService
}

func NewUserHandler(users *service.UserService, auth *service.AuthService) *UserHandler {
	return &UserHandler{users: users, auth: auth}
}

type registerRequest struct {
	Email     string `json:"email" binding:"required"`
	Username  string `json:"username" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password" binding:"required"`
}

type registeredResponse struct {
	Email     string `json:"email"`
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Register creates an account.
func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.auth.Register(service.RegisterInput{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, registeredResponse{
		Email:     user.Email,
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

// List returns all users, paginated.
func (h *UserHandler) List(c *gin.Context) {
	limit, offset := pageParams(c)
	users, total, err := h.users.List(limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	viewerID := middleware.ViewerID(c)
	authorIDs := make([]uint, 0, len(users))
	for i := range users {
		authorIDs = append(authorIDs, users[i].ID)
	}
	subscribed, err := h.users.SubscribedSet(viewerID, authorIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]UserResponse, 0, len(users))
	for i := range users {
		results = append(results, buildUser(&users[i], subscribed[users[i].ID]))
	}
	c.JSON(http.StatusOK, buildPage(c, total, limit, offset, results))
}

// Get returns a single user profile.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	user, err := h.users.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}

	isSubscribed, err := h.users.IsSubscribed(middleware.ViewerID(c), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildUser(user, isSubscribed))
}

// Me returns the authenticated user's own profile.
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.users.Get(middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	// is_subscribed to oneself is always false.
	c.JSON(http.StatusOK, buildUser(user, false))
}

type setPasswordRequest struct {
	NewPassword     string `json:"new_password" binding:"required"`
	CurrentPassword string `json:"current_password" binding:"required"`
}

// SetPassword changes the authenticated user's password.
func (h *UserHandler) SetPassword(c *gin.Context) {
	var req setPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.auth.SetPassword(middleware.ViewerID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "current password is incorrect"})
			return
		}
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Subscribe follows the user in the path and returns their author
// card.
func (h *UserHandler) Subscribe(c *gin.Context) {
	authorID, ok := idParam(c)
	if !ok {
		return
	}
	viewerID := middleware.ViewerID(c)

	author, err := h.users.Subscribe(viewerID, authorID)
	if err != nil {
		respondError(c, err)
		return
	}

	card, err := h.authorCard(author, true, recipesLimitQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, card)
}

// Unsubscribe removes the subscription. An unknown user is a 404; a
// known user the viewer does not follow is a 400 with an explicit
// message, so "already removed" is distinguishable.
func (h *UserHandler) Unsubscribe(c *gin.Context) {
	authorID, ok := idParam(c)
	if !ok {
		return
	}
	if _, err := h.users.Get(authorID); err != nil {
		respondError(c, err)
		return
	}

	err := h.users.Unsubscribe(middleware.ViewerID(c), authorID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "subscription does not exist"})
			return
		}
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Subscriptions lists the authors the viewer follows, as author cards.
func (h *UserHandler) Subscriptions(c *gin.Context) {
	viewerID := middleware.ViewerID(c)
	limit, offset := pageParams(c)

	authors, total, err := h.users.Subscriptions(viewerID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	recipesLimit := recipesLimitQuery(c)
	results := make([]AuthorCardResponse, 0, len(authors))
	for i := range authors {
		card, err := h.authorCard(&authors[i], true, recipesLimit)
		if err != nil {
			respondError(c, err)
			return
		}
		results = append(results, card)
	}
	c.JSON(http.StatusOK, buildPage(c, total, limit, offset, results))
}

func (h *UserHandler) authorCard(author *models.User, isSubscribed bool, recipesLimit int) (AuthorCardResponse, error) {
	recipes, total, err := h.users.RecipesByAuthor(author.ID, recipesLimit)
	if err != nil {
		return AuthorCardResponse{}, err
	}
	return buildAuthorCard(author, isSubscribed, recipes, total), nil
}
