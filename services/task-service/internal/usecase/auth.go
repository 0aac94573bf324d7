package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/config"
	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/model"
	"github.com/vasapolrittideah/task-manager-api/services/task-service/internal/repository"
	tasktypes "github.com/vasapolrittideah/task-manager-api/services/task-service/pkg/types"
	"github.com/vasapolrittideah/task-manager-api/shared/auth"
	"github.com/vasapolrittideah/task-manager-api/shared/security"
)

// AuthUsecase defines the interface for registration, verification and session use cases.
type AuthUsecase interface {
	// Register creates an unverified user and sends it a one-time code.
	Register(ctx context.Context, params RegisterParams) (*model.User, error)

	// Verify marks the user as verified when code matches the last issued one-time code.
	Verify(ctx context.Context, params VerifyParams) error

	// Login issues a session token for a verified user.
	Login(ctx context.Context, params LoginParams) (*tasktypes.Session, error)

	// Authenticate resolves a session token to its user.
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// OTPSender delivers a one-time code to an email address.
type OTPSender interface {
	SendOTP(ctx context.Context, email, code string) error
}

// RegisterParams defines the parameters for user registration.
type RegisterParams struct {
	Email    string
	Password string
}

// VerifyParams defines the parameters for email verification.
type VerifyParams struct {
	Email string
	Code  string
}

// LoginParams defines the parameters for user login.
type LoginParams struct {
	Email    string
	Password string
}

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOTP         = errors.New("invalid one-time code")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrUnauthorized       = errors.New("unauthorized")
)

type authUsecase struct {
	userRepo   repository.UserRepository
	otpSender  OTPSender
	jwtAuth    auth.JWTAuthenticator
	sessionCfg config.SessionConfig
}

func NewAuthUsecase(
	userRepo repository.UserRepository,
	otpSender OTPSender,
	jwtAuth auth.JWTAuthenticator,
	sessionCfg config.SessionConfig,
) AuthUsecase {
	return &authUsecase{
		userRepo:   userRepo,
		otpSender:  otpSender,
		jwtAuth:    jwtAuth,
		sessionCfg: sessionCfg,
	}
}

// NormalizeEmail lower-cases and trims an email address the way it is stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *authUsecase) Register(ctx context.Context, params RegisterParams) (*model.User, error) {
	email := NormalizeEmail(params.Email)

	if _, err := u.userRepo.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	passwordHash, err := security.HashPassword(params.Password)
	if err != nil {
		return nil, err
	}

	code, err := security.GenerateOTP()
	if err != nil {
		return nil, err
	}

	otpHash, err := security.HashOTP(code)
	if err != nil {
		return nil, err
	}

	user, err := u.userRepo.CreateUser(ctx, &model.User{
		Email:        email,
		PasswordHash: passwordHash,
		OTPHash:      otpHash,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrUserAlreadyExists
		}

		return nil, err
	}

	if err := u.otpSender.SendOTP(ctx, user.Email, code); err != nil {
		// Without the code the account could never be verified, so undo the registration.
		sendErr := fmt.Errorf("send otp: %w", err)
		if delErr := u.userRepo.DeleteUser(context.WithoutCancel(ctx), user.ID.Hex()); delErr != nil {
			return nil, errors.Join(sendErr, fmt.Errorf("delete unverifiable user: %w", delErr))
		}

		return nil, sendErr
	}

	return user, nil
}

func (u *authUsecase) Verify(ctx context.Context, params VerifyParams) error {
	user, err := u.getUserByEmail(ctx, params.Email)
	if err != nil {
		return err
	}

	if ok, err := security.VerifyOTP(params.Code, user.OTPHash); err != nil {
		return err
	} else if !ok {
		return ErrInvalidOTP
	}

	// TODO: clear otp_hash once verified so a leaked code cannot be replayed.
	verified := true
	if _, err := u.userRepo.UpdateUser(ctx, user.ID.Hex(), repository.UpdateUserParams{
		Verified: &verified,
	}); err != nil {
		return err
	}

	return nil
}

func (u *authUsecase) Login(ctx context.Context, params LoginParams) (*tasktypes.Session, error) {
	user, err := u.getUserByEmail(ctx, params.Email)
	if err != nil {
		return nil, err
	}

	if ok, err := security.VerifyPassword(params.Password, user.PasswordHash); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrInvalidCredentials
	}

	if !user.Verified {
		return nil, ErrEmailNotVerified
	}

	return u.createSession(user.ID.Hex())
}

func (u *authUsecase) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}

	var claims tasktypes.SessionClaims
	if _, err := u.jwtAuth.ValidateTokenWithClaims(token, u.sessionCfg.Secret, &claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	user, err := u.userRepo.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}

		return nil, err
	}

	return user, nil
}

func (u *authUsecase) getUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := u.userRepo.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	return user, nil
}

func (u *authUsecase) createSession(userID string) (*tasktypes.Session, error) {
	now := u.jwtAuth.Now()
	expiresAt := now.Add(u.sessionCfg.ExpiresIn)

	claims := tasktypes.SessionClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    u.jwtAuth.Issuer(),
			Audience:  jwt.ClaimStrings{u.jwtAuth.Audience()},
		},
	}

	token, err := u.jwtAuth.GenerateToken(claims, u.sessionCfg.Secret)
	if err != nil {
		return nil, err
	}

	return &tasktypes.Session{Token: token, ExpiresAt: expiresAt}, nil
}
