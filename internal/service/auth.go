package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/models"
)

const tokenTTL = 24 * time.Hour

// reservedUsername collides with the /users/me route and is rejected
// at registration.
const reservedUsername = "me"

const denylistKeyPrefix = "auth:denylist:"

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
}

// AuthService handles registration, login and token validation. The
// Redis client is optional; without it logout keeps tokens valid until
// they expire.
type AuthService struct {
	db        *gorm.DB
	jwtSecret string
	redis     *redis.Client
}

func NewAuthService(db *gorm.DB, jwtSecret string, redisClient *redis.Client) *AuthService {
	return &AuthService{
		db:        db,
		jwtSecret: jwtSecret,
		redis:     redisClient,
	}
}

// Register creates a user with a bcrypt-hashed password.
func (s *AuthService) Register(in RegisterInput) (*models.User, error) {
	if in.Email == "" || in.Username == "" || in.Password == "" {
		return nil, validationErrorf("email, username and password are required")
	}
	if in.Username == reservedUsername {
		return nil, validationErrorf("username %q is not allowed", reservedUsername)
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, validationErrorf("user with this email already exists")
	}
	if err := s.db.Model(&models.User{}).Where("username = ?", in.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, validationErrorf("user with this username already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        in.Email,
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: string(hashed),
	}
	if err := s.db.Create(&user).Error; err != nil {
		if isDuplicateErr(err) {
			return nil, validationErrorf("user with this email or username already exists")
		}
		return nil, err
	}
	return &user, nil
}

// Login verifies credentials and returns a signed token.
func (s *AuthService) Login(email, password string) (string, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.generateToken(user.ID)
}

// Logout denylists the token until its natural expiry so a stolen
// token stops working immediately.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return err
	}
	if s.redis == nil {
		log.Printf("[AuthService] Redis not configured, logout leaves token valid until expiry")
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return errors.New("token has no expiry")
	}
	ttl := time.Until(exp.Time)
	if ttl <= 0 {
		return nil
	}
	return s.redis.Set(ctx, denylistKeyPrefix+tokenString, "1", ttl).Err()
}

// ValidateToken verifies the signature, expiry and denylist and
// returns the authenticated user id.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (uint, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return 0, err
	}

	if s.redis != nil {
		n, err := s.redis.Exists(ctx, denylistKeyPrefix+tokenString).Result()
		if err != nil {
			return 0, fmt.Errorf("denylist check failed: %w", err)
		}
		if n > 0 {
			return 0, errors.New("token has been revoked")
		}
	}

	rawID, ok := claims["user_id"].(float64)
	if !ok {
		return 0, errors.New("invalid token claims")
	}
	return uint(rawID), nil
}

// SetPassword changes the password after verifying the current one.
func (s *AuthService) SetPassword(userID uint, current, newPassword string) error {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	if newPassword == "" {
		return validationErrorf("new password must not be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.db.Model(&user).Update("password_hash", string(hashed)).Error
}

func (s *AuthService) generateToken(userID uint) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *AuthService) parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
