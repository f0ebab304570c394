package service

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dshare/dshare/internal/model"
	"github.com/dshare/dshare/internal/repository"
	"github.com/dshare/dshare/internal/validation"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or credentials")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidToken       = errors.New("invalid or expired verification link")
)

// EmailStatus is the public registration state of an address, served to
// the login page so it can decide between register and login flows.
type EmailStatus struct {
	Registered bool `json:"registered"`
	Verified   bool `json:"verified"`
}

type AuthService struct {
	userRepository         repository.UserRepository
	tokenRepository        repository.TokenRepository
	emailService           *EmailService
	jwtSecret              string
	isProduction           bool
	jwtExpiry              time.Duration
	tokenEmailVerifyExpiry time.Duration
}

func NewAuthService(
	userRepository repository.UserRepository,
	tokenRepository repository.TokenRepository,
	emailService *EmailService,
	jwtSecret string,
	isProduction bool,
	jwtExpiry time.Duration,
	tokenEmailVerifyExpiry time.Duration,
) *AuthService {
	return &AuthService{
		userRepository:         userRepository,
		tokenRepository:        tokenRepository,
		emailService:           emailService,
		jwtSecret:              jwtSecret,
		isProduction:           isProduction,
		jwtExpiry:              jwtExpiry,
		tokenEmailVerifyExpiry: tokenEmailVerifyExpiry,
	}
}

// Register starts (or restarts) a signup. The requested credentials are
// hashed and parked on the verification token, not the user row, so an
// unverified account never has working credentials. Re-registering an
// unverified address reissues the link with the new credentials;
// re-registering a verified address fails.
func (s *AuthService) Register(email, password, pin string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	err := validation.ValidateEmail(email)
	if err != nil {
		return ErrInvalidEmail
	}

	err = validation.ValidatePassword(password)
	if err != nil {
		return err
	}

	if pin != "" {
		err = validation.ValidatePIN(pin)
		if err != nil {
			return err
		}
	}

	user, err := s.userRepository.ByEmail(email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("failed to lookup user: %w", err)
	}

	if user != nil && user.EmailVerified() {
		return ErrEmailAlreadyExists
	}

	if user == nil {
		user = &model.User{
			ID:        uuid.New().String(),
			Email:     email,
			CreatedAt: time.Now(),
		}

		err = s.userRepository.Create(user)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return ErrEmailAlreadyExists
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		slog.Info("new user registered", "email", email, "user_id", user.ID)
	}

	err = s.tokenRepository.DeleteByUserAndType(user.ID, model.TokenTypeEmailVerify)
	if err != nil {
		slog.Warn("failed to delete old verification tokens", "error", err, "user_id", user.ID)
	}

	passwordHash, err := s.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	var pinHash *string
	if pin != "" {
		h, err := s.HashPassword(pin)
		if err != nil {
			return fmt.Errorf("failed to hash pin: %w", err)
		}
		pinHash = &h
	}

	verificationToken, err := s.GenerateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	token := &model.Token{
		UserID:              user.ID,
		Type:                model.TokenTypeEmailVerify,
		Token:               verificationToken,
		PendingPasswordHash: &passwordHash,
		PendingPinHash:      pinHash,
		ExpiresAt:           time.Now().Add(s.tokenEmailVerifyExpiry),
	}
	err = s.tokenRepository.Create(token)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	err = s.emailService.SendVerificationEmail(user.Email, verificationToken)
	if err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	return nil
}

// VerifyEmail consumes the verification link, applies the credentials
// parked on the token and activates the account.
func (s *AuthService) VerifyEmail(token string) (*model.User, error) {
	tokenModel, err := s.tokenRepository.ConsumeToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if tokenModel.Type != model.TokenTypeEmailVerify {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepository.ByID(tokenModel.UserID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	user.PasswordHash = tokenModel.PendingPasswordHash
	user.PinHash = tokenModel.PendingPinHash
	now := time.Now()
	user.EmailVerifiedAt = &now

	err = s.userRepository.Update(user)
	if err != nil {
		return nil, fmt.Errorf("failed to activate user: %w", err)
	}

	slog.Info("email verified", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Login authenticates with either the account password or its PIN.
// The secret is tried against the password hash first, then the PIN
// hash, so a short PIN works in the same input field.
func (s *AuthService) Login(email, secret string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepository.ByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.EmailVerified() {
		return nil, ErrEmailNotVerified
	}

	if user.HasPassword() && s.ComparePassword(secret, *user.PasswordHash) == nil {
		return user, nil
	}
	if user.HasPIN() && s.ComparePassword(secret, *user.PinHash) == nil {
		return user, nil
	}

	return nil, ErrInvalidCredentials
}

// SetCredentials replaces the password and/or PIN of a logged-in user.
// Empty arguments leave the corresponding credential unchanged.
func (s *AuthService) SetCredentials(userID, password, pin string) error {
	user, err := s.userRepository.ByID(userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if password != "" {
		err = validation.ValidatePassword(password)
		if err != nil {
			return err
		}

		hash, err := s.HashPassword(password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = &hash
	}

	if pin != "" {
		err = validation.ValidatePIN(pin)
		if err != nil {
			return err
		}

		hash, err := s.HashPassword(pin)
		if err != nil {
			return fmt.Errorf("failed to hash pin: %w", err)
		}
		user.PinHash = &hash
	}

	if password == "" && pin == "" {
		return validation.Error("nothing to update")
	}

	err = s.userRepository.Update(user)
	if err != nil {
		return fmt.Errorf("failed to update credentials: %w", err)
	}

	slog.Info("credentials updated", "user_id", userID, "password_changed", password != "", "pin_changed", pin != "")
	return nil
}

// StatusForEmail reports whether an address is registered and verified.
// Invalid addresses read as unregistered rather than erroring, so the
// endpoint leaks nothing beyond the two booleans.
func (s *AuthService) StatusForEmail(email string) EmailStatus {
	email = strings.TrimSpace(strings.ToLower(email))

	err := validation.ValidateEmail(email)
	if err != nil {
		return EmailStatus{}
	}

	user, err := s.userRepository.ByEmail(email)
	if err != nil {
		return EmailStatus{}
	}

	return EmailStatus{
		Registered: true,
		Verified:   user.EmailVerified(),
	}
}

func (s *AuthService) UserByID(id string) (*model.User, error) {
	return s.userRepository.ByID(id)
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (s *AuthService) GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func (s *AuthService) GenerateJWT(user *model.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(s.jwtExpiry).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (s *AuthService) VerifyJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

func (s *AuthService) JWTExpiry() time.Duration {
	return s.jwtExpiry
}

func (s *AuthService) SetJWTCookie(w http.ResponseWriter, token string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Expires:  expiry,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) ClearJWTCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    "",
		Expires:  time.Unix(0, 0),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}
