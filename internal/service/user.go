package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/models"
)

// UserService handles user lookup and the subscription graph.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Get retrieves a user by ID.
func (s *UserService) Get(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// List returns users ordered by username with limit/offset pagination.
func (s *UserService) List(limit, offset int) ([]models.User, int64, error) {
	var total int64
	if err := s.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	query := s.db.Order("username ASC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Subscribe adds a follower -> author pair. Self-subscription and
// duplicate pairs are validation errors; a race losing to the unique
// index is reported the same way.
func (s *UserService) Subscribe(userID, authorID uint) (*models.User, error) {
	if userID == authorID {
		return nil, validationErrorf("cannot subscribe to yourself")
	}

	author, err := s.Get(authorID)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.Subscription{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, validationErrorf("already subscribed to this user")
	}

	sub := models.Subscription{UserID: userID, AuthorID: authorID}
	if err := s.db.Create(&sub).Error; err != nil {
		if isDuplicateErr(err) {
			return nil, validationErrorf("already subscribed to this user")
		}
		return nil, err
	}
	return author, nil
}

// Unsubscribe removes the pair. A missing row is a distinct not-found
// condition, never a silent success.
func (s *UserService) Unsubscribe(userID, authorID uint) error {
	result := s.db.Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Subscription{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IsSubscribed reports whether viewer follows author. Anonymous
// viewers (id 0) are never subscribed.
func (s *UserService) IsSubscribed(viewerID, authorID uint) (bool, error) {
	if viewerID == 0 {
		return false, nil
	}
	var count int64
	err := s.db.Model(&models.Subscription{}).
		Where("user_id = ? AND author_id = ?", viewerID, authorID).
		Count(&count).Error
	return count > 0, err
}

// SubscribedSet returns which of the given authors the viewer follows.
// One query instead of one per author.
func (s *UserService) SubscribedSet(viewerID uint, authorIDs []uint) (map[uint]bool, error) {
	set := make(map[uint]bool)
	if viewerID == 0 || len(authorIDs) == 0 {
		return set, nil
	}
	var subs []models.Subscription
	if err := s.db.Where("user_id = ? AND author_id IN ?", viewerID, authorIDs).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	for _, sub := range subs {
		set[sub.AuthorID] = true
	}
	return set, nil
}

// Subscriptions returns the authors the user follows, newest
// subscription first.
func (s *UserService) Subscriptions(userID uint, limit, offset int) ([]models.User, int64, error) {
	base := s.db.Model(&models.User{}).
		Joins("JOIN subscriptions ON subscriptions.author_id = users.id").
		Where("subscriptions.user_id = ?", userID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var authors []models.User
	query := base.Order("subscriptions.created_at DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	if err := query.Find(&authors).Error; err != nil {
		return nil, 0, err
	}
	return authors, total, nil
}

// RecipesByAuthor returns the author's recipes newest-first, capped by
// limit when limit > 0, plus the uncapped count.
func (s *UserService) RecipesByAuthor(authorID uint, limit int) ([]models.Recipe, int64, error) {
	var total int64
	if err := s.db.Model(&models.Recipe{}).Where("author_id = ?", authorID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recipes []models.Recipe
	query := s.db.Where("author_id = ?", authorID).Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&recipes).Error; err != nil {
		return nil, 0, err
	}
	return recipes, total, nil
}
