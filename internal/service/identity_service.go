package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/neuroref/internal/domain"
	"go.uber.org/zap"
)

// IdentityClaims are the ways a request can name its caller, in order of
// precedence.
type IdentityClaims struct {
	ParamUserID  *uint
	HeaderUserID string
	Principal    string
}

type IdentityResolver struct {
	users UserRepository
	log   *zap.Logger
}

func NewIdentityResolver(users UserRepository, log *zap.Logger) *IdentityResolver {
	return &IdentityResolver{users: users, log: log}
}

// Resolve returns the first candidate that names an active, persisted user.
// A malformed header id is skipped rather than rejected.
func (r *IdentityResolver) Resolve(ctx context.Context, c IdentityClaims) (*domain.User, error) {
	if c.ParamUserID != nil {
		if u, err := r.byID(ctx, *c.ParamUserID); err != nil {
			return nil, err
		} else if u != nil {
			return u, nil
		}
	}

	if h := strings.TrimSpace(c.HeaderUserID); h != "" {
		if id, err := strconv.ParseUint(h, 10, 64); err == nil {
			if u, err := r.byID(ctx, uint(id)); err != nil {
				return nil, err
			} else if u != nil {
				return u, nil
			}
		} else {
			r.log.Debug("ignoring malformed user id header", zap.String("value", h))
		}
	}

	if p := strings.TrimSpace(c.Principal); p != "" {
		u, err := r.byPrincipal(ctx, p)
		if err != nil {
			return nil, err
		}
		if u != nil {
			return u, nil
		}
	}

	return nil, ErrUnauthenticated
}

func (r *IdentityResolver) byPrincipal(ctx context.Context, p string) (*domain.User, error) {
	if strings.Contains(p, "@") {
		return r.active(r.users.GetByEmail(ctx, p))
	}
	id, err := strconv.ParseUint(p, 10, 64)
	if err != nil {
		return nil, nil
	}
	return r.byID(ctx, uint(id))
}

func (r *IdentityResolver) byID(ctx context.Context, id uint) (*domain.User, error) {
	if id == 0 {
		return nil, nil
	}
	return r.active(r.users.GetByID(ctx, id))
}

// active turns not-found and inactive users into a nil user so the next
// candidate is tried. Store failures are returned as-is.
func (r *IdentityResolver) active(u *domain.User, err error) (*domain.User, error) {
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("failed to resolve user", zap.Error(err))
		return nil, err
	}
	if !u.IsActive {
		return nil, nil
	}
	return u, nil
}
