package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"shop-service/internal/domain"
	"shop-service/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type RegisterInput struct {
	UserName    string
	Email       string
	Password    string
	FullName    string
	Address     string
	PhoneNumber string
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type AuthService struct {
	users  repository.UserRepository
	tokens TokenIssuer
	cost   int
	log    *zap.Logger
}

func NewAuthService(users repository.UserRepository, tokens TokenIssuer, log *zap.Logger) *AuthService {
	return &AuthService{users: users, tokens: tokens, cost: bcrypt.DefaultCost, log: log}
}

// WithHashCost overrides the bcrypt cost.
func (s *AuthService) WithHashCost(cost int) *AuthService {
	s.cost = cost
	return s
}

// Register creates a customer account. The role is never taken from input.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	u, err := s.newUser(ctx, in, domain.RoleCustomer)
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

func (s *AuthService) newUser(ctx context.Context, in RegisterInput, role domain.Role) (*domain.User, error) {
	userName := strings.TrimSpace(in.UserName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if userName == "" || email == "" || in.Password == "" {
		return nil, domain.NewBadRequest("userName, email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.NewBadRequest("invalid email")
	}
	if len(in.Password) < minPasswordLength {
		return nil, domain.BadRequestf("password must be at least %d characters", minPasswordLength)
	}

	exists, err := s.users.Exists(ctx, userName, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.NewConflict("username or email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		UserName:     userName,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		FullName:     strings.TrimSpace(in.FullName),
		Address:      strings.TrimSpace(in.Address),
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.String("user_id", u.ID), zap.String("role", string(role)))
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, usernameOrEmail, password string) (*AuthResult, error) {
	if strings.TrimSpace(usernameOrEmail) == "" || password == "" {
		return nil, domain.NewBadRequest("usernameOrEmail and password are required")
	}
	u, err := s.users.FindByLogin(ctx, usernameOrEmail)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.NewUnauthorized("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, domain.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	return s.issue(u)
}

func (s *AuthService) issue(u *domain.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: u}, nil
}

// Authenticate turns a bearer token into the principal it was issued for.
func (s *AuthService) Authenticate(raw string) (*domain.Principal, error) {
	p, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindUnauthorized, Message: "unauthorized", Err: err}
	}
	return p, nil
}

// EnsureAdmin creates the bootstrap admin account unless a user with the
// same name or email exists. It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, userName, email, password string) (bool, error) {
	if email == "" || password == "" {
		return false, nil
	}
	exists, err := s.users.Exists(ctx, strings.TrimSpace(userName), strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if _, err := s.newUser(ctx, RegisterInput{UserName: userName, Email: email, Password: password}, domain.RoleAdmin); err != nil {
		return false, err
	}
	return true, nil
}
