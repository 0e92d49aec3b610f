// Package user manages dashboard accounts and session tokens. The
// detection engine authenticates with its API key instead and never owns
// an account here.
package user

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sentry-vision/management-server/pkg/audit"
	"github.com/sentry-vision/management-server/pkg/metrics"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrUsernameTaken  = errors.New("username already exists")
	ErrBadCredentials = errors.New("invalid username or password")
	ErrDisabled       = errors.New("account disabled")
)

// Role grants dashboard permissions.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleOperator Role = "OPERATOR"
	RoleUser     Role = "USER"
)

// User is a dashboard account.
type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Username  string    `gorm:"size:100;not null;uniqueIndex" json:"username"`
	Password  string    `gorm:"size:100;not null" json:"-"`
	Email     string    `gorm:"size:255" json:"email,omitempty"`
	Role      Role      `gorm:"not null" json:"role"`
	Enabled   bool      `gorm:"not null;default:true" json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
}

func (User) TableName() string { return "users" }

// AuthRequest is the register/login body.
type AuthRequest struct {
	Username string `json:"username" binding:"required,min=3,max=100"`
	Password string `json:"password" binding:"required,min=8"`
	Email    string `json:"email" binding:"omitempty,email"`
}

// AuthResponse carries a session token back to the dashboard.
type AuthResponse struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	ExpiresIn int64  `json:"expiresIn"`
}

// Service owns account persistence and password verification.
type Service struct {
	db       *gorm.DB
	tokens   *TokenService
	log      *zap.SugaredLogger
	recorder audit.Recorder
}

func NewService(db *gorm.DB, tokens *TokenService, log *zap.SugaredLogger, recorder audit.Recorder) *Service {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Service{db: db, tokens: tokens, log: log, recorder: recorder}
}

// Register creates a new account with the USER role and returns a fresh
// session token.
func (s *Service) Register(req AuthRequest) (*AuthResponse, error) {
	var count int64
	if err := s.db.Model(&User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("checking username: %w", err)
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &User{
		Username: req.Username,
		Password: string(hash),
		Email:    req.Email,
		Role:     RoleUser,
		Enabled:  true,
	}
	if err := s.db.Create(u).Error; err != nil {
		return nil, fmt.Errorf("persisting user: %w", err)
	}

	s.log.Infow("user registered", "username", u.Username)
	s.recorder.Record(audit.NewEvent(audit.EventUserRegistered, audit.SeverityInfo).
		WithActor(u.Username))

	return s.issueResponse(u)
}

// Authenticate verifies a password and returns a fresh session token.
func (s *Service) Authenticate(req AuthRequest) (*AuthResponse, error) {
	u, err := s.ByUsername(req.Username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Burn a comparison so missing and wrong-password lookups
			// take comparable time.
			_ = bcrypt.CompareHashAndPassword(
				[]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"),
				[]byte(req.Password))
			s.recordLoginFailure(req.Username)
			return nil, ErrBadCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		s.recordLoginFailure(req.Username)
		return nil, ErrBadCredentials
	}
	if !u.Enabled {
		s.recordLoginFailure(req.Username)
		return nil, ErrDisabled
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	s.recorder.Record(audit.NewEvent(audit.EventLogin, audit.SeverityInfo).
		WithActor(u.Username))

	return s.issueResponse(u)
}

func (s *Service) recordLoginFailure(username string) {
	metrics.LoginAttempts.WithLabelValues("failure").Inc()
	s.log.Warnw("SECURITY: failed login attempt", "username", username)
	s.recorder.Record(audit.NewEvent(audit.EventLoginFailed, audit.SeverityWarning).
		WithActor(username))
}

func (s *Service) issueResponse(u *User) (*AuthResponse, error) {
	token, err := s.tokens.Issue(u.Username, u.Role)
	if err != nil {
		return nil, fmt.Errorf("issuing session token: %w", err)
	}
	return &AuthResponse{
		Token:     token,
		Username:  u.Username,
		Role:      string(u.Role),
		ExpiresIn: s.tokens.Expiration().Milliseconds(),
	}, nil
}

// ByUsername loads one account.
func (s *Service) ByUsername(username string) (*User, error) {
	var u User
	if err := s.db.Where("username = ?", username).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loading user %s: %w", username, err)
	}
	return &u, nil
}

// defaultAdminPassword is used when no admin credential is configured, so
// a fresh deployment always has a working dashboard login. It must be
// changed after first login.
const defaultAdminPassword = "admin"

// Bootstrap seeds the initial administrator during startup. Without a
// configured password it falls back to the well-known default and warns
// loudly; in strict mode the missing password is fatal instead.
func (s *Service) Bootstrap(username, password, email string, strict bool) error {
	if password == "" {
		if strict {
			return fmt.Errorf("admin password is not configured and strictSecrets is enabled")
		}
		s.log.Warnw("SECURITY: no admin password configured, seeding the default credentials. Change them immediately",
			"username", username)
		password = defaultAdminPassword
	}
	return s.EnsureAdmin(username, password, email)
}

// EnsureAdmin seeds the initial administrator account when it does not
// exist yet.
func (s *Service) EnsureAdmin(username, password, email string) error {
	var count int64
	if err := s.db.Model(&User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return fmt.Errorf("checking admin account: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}

	admin := &User{
		Username: username,
		Password: string(hash),
		Email:    email,
		Role:     RoleAdmin,
		Enabled:  true,
	}
	if err := s.db.Create(admin).Error; err != nil {
		return fmt.Errorf("seeding admin account: %w", err)
	}
	s.log.Infow("default admin account created", "username", username)
	return nil
}
