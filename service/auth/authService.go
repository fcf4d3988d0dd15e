package authsvc

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vhreisswitz/trabalho-cantina-sub000/model"
	userrepo "github.com/vhreisswitz/trabalho-cantina-sub000/repository/user"
	"github.com/vhreisswitz/trabalho-cantina-sub000/util/hash"
	jwtutil "github.com/vhreisswitz/trabalho-cantina-sub000/util/jwt"
)

var (
	ErrEmailTaken     = errors.New("email already registered")
	ErrMatriculaTaken = errors.New("matricula already registered")
	ErrBadInput       = errors.New("bad input")
	ErrInvalidCreds   = errors.New("invalid credentials")
)

// WelcomeIssuer is the voucher-service slice auth needs.
type WelcomeIssuer interface {
	IssueWelcome(ctx context.Context, userID string) (*model.Voucher, error)
}

type Service interface {
	Register(ctx context.Context, req model.RegisterReq) (*model.User, string, error)
	Login(ctx context.Context, req model.LoginReq) (*model.User, string, error)
}

type service struct {
	ur      userrepo.Repo
	welcome WelcomeIssuer
	secret  string
	log     *slog.Logger
}

func New(ur userrepo.Repo, welcome WelcomeIssuer, secret string, log *slog.Logger) Service {
	return &service{ur: ur, welcome: welcome, secret: secret, log: log}
}

func (s *service) Register(ctx context.Context, req model.RegisterReq) (*model.User, string, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" ||
		strings.TrimSpace(req.Matricula) == "" {
		return nil, "", ErrBadInput
	}

	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, "", err
	}

	u := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Matricula:    strings.TrimSpace(req.Matricula),
		PasswordHash: hashed,
		Role:         model.RoleStudent,
	}

	if err := s.ur.Create(ctx, u); err != nil {
		if derr := mapDuplicateErr(err); derr != nil {
			return nil, "", derr
		}
		return nil, "", err
	}

	// Welcome voucher is best-effort: registration stands even when the
	// catalog has nothing to give away yet.
	if s.welcome != nil {
		if _, werr := s.welcome.IssueWelcome(ctx, u.ID); werr != nil && s.log != nil {
			s.log.Warn("welcome voucher not issued", "user_id", u.ID, "err", werr)
		}
	}

	token, err := jwtutil.Issue(s.secret, u.ID, u.Role, 24)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func mapDuplicateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		cn := strings.ToLower(pgErr.ConstraintName)
		msg := strings.ToLower(pgErr.Message)

		if strings.Contains(cn, "users_email") || strings.Contains(msg, "email") {
			return ErrEmailTaken
		}
		if strings.Contains(cn, "users_matricula") || strings.Contains(msg, "matricula") {
			return ErrMatriculaTaken
		}
		return ErrBadInput
	}
	return nil
}

func (s *service) Login(ctx context.Context, req model.LoginReq) (*model.User, string, error) {
	u, err := s.ur.ByEmail(ctx, req.Email)
	if err != nil {
		return nil, "", ErrInvalidCreds
	}
	if !hash.Check(u.PasswordHash, req.Password) {
		return nil, "", ErrInvalidCreds
	}
	token, err := jwtutil.Issue(s.secret, u.ID, u.Role, 24)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}
