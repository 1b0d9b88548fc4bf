package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"merchant-phone-search/internal/cache"
	"merchant-phone-search/internal/config"
	"merchant-phone-search/internal/dto"
	"merchant-phone-search/internal/model"
	"merchant-phone-search/internal/repository"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const codeTTL = 5 * time.Minute

var (
	ErrInvalidPhone = errors.New("invalid phone number")
	ErrInvalidCode  = errors.New("verification code invalid or expired")
	ErrUserNotFound = errors.New("user not found")

	phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)
)

type AuthService interface {
	SendCode(ctx context.Context, phone string) error
	// VerifyCode consumes the code, creating the user on first login, and
	// returns a signed bearer token.
	VerifyCode(ctx context.Context, phone, code string) (*dto.LoginResponse, error)
	Profile(ctx context.Context, userID string) (*dto.ProfileResponse, error)
	IssueToken(userID string) (string, error)
}

type authServiceImpl struct {
	userRepo repository.UserRepository
	codes    cache.Store
	cfg      config.JWT
	now      func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, codes cache.Store, cfg *config.JWT) AuthService {
	return &authServiceImpl{
		userRepo: userRepo,
		codes:    codes,
		cfg:      *cfg,
		now:      time.Now,
	}
}

func codeKey(phone string) string {
	return "verification:" + phone
}

func (s *authServiceImpl) SendCode(ctx context.Context, phone string) error {
	if !phonePattern.MatchString(phone) {
		return ErrInvalidPhone
	}

	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64()+100000)

	s.codes.Set(codeKey(phone), code, codeTTL)

	// no SMS gateway wired up; operators read the code from the log
	log.Info().Str("phone", phone).Str("code", code).Msg("verification code issued")

	return nil
}

func (s *authServiceImpl) VerifyCode(ctx context.Context, phone, code string) (*dto.LoginResponse, error) {
	if !phonePattern.MatchString(phone) {
		return nil, ErrInvalidPhone
	}

	stored, ok := s.codes.Get(codeKey(phone))
	if !ok {
		return nil, ErrInvalidCode
	}
	// codes are single-use whether or not they match
	s.codes.Delete(codeKey(phone))

	if stored != code {
		return nil, ErrInvalidCode
	}

	user, err := s.userRepo.FindByPhone(ctx, phone)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		user = &model.User{
			ID:                   uuid.NewString(),
			Phone:                phone,
			MembershipType:       model.MembershipFree,
			DailyExportResetDate: model.StartOfDay(s.now()),
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		log.Info().Str("phone", phone).Str("user_id", user.ID).Msg("new user registered")
	}

	token, err := s.IssueToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &dto.LoginResponse{
		UserID: user.ID,
		Token:  token,
		Phone:  user.Phone,
	}, nil
}

func (s *authServiceImpl) Profile(ctx context.Context, userID string) (*dto.ProfileResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	now := s.now()
	return &dto.ProfileResponse{
		UserID:           user.ID,
		Phone:            user.Phone,
		MembershipType:   string(user.EffectiveTier(now)),
		MembershipExpiry: user.MembershipExpiry,
		DailyExportCount: user.EffectiveExportCount(now),
	}, nil
}

func (s *authServiceImpl) IssueToken(userID string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     now.Unix(),
		"exp":     now.Add(s.cfg.TTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Secret))
}
