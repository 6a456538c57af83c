package service

import (
	"context"
	"crypto/subtle"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/errs"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/model"
)

// Login upserts the user profile. A matching admin key promotes the user;
// nothing here ever demotes.
func (s *Service) Login(ctx context.Context, req model.LoginRequest) (model.User, error) {
	promote := s.adminKey != "" && req.AdminKey != "" &&
		subtle.ConstantTimeCompare([]byte(req.AdminKey), []byte(s.adminKey)) == 1
	if req.AdminKey != "" && !promote {
		s.log.Warn("login with wrong admin key", zap.String("uid", req.UID))
	}
	user, err := s.repo.UpsertUser(ctx, req, promote)
	if err != nil {
		return model.User{}, errors.Wrapf(err, "login %s", req.UID)
	}
	return user, nil
}

// Authorize re-reads the stored role of uid on every call, so a demotion
// takes effect on the next request.
func (s *Service) Authorize(ctx context.Context, uid string, capability model.Capability) error {
	if uid == "" {
		return errs.ErrForbidden
	}
	user, err := s.repo.GetUser(ctx, uid)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.ErrForbidden
		}
		return err
	}
	if !user.Role.Can(capability) {
		return errs.ErrForbidden
	}
	return nil
}

func (s *Service) ChangeRole(ctx context.Context, uid string, req model.RoleChangeRequest) (model.User, error) {
	if !req.Role.Valid() {
		return model.User{}, errs.ErrInvalidRole
	}
	if err := s.Authorize(ctx, req.AdminUID, model.CapManageUsers); err != nil {
		return model.User{}, err
	}
	user, err := s.repo.SetRole(ctx, uid, req.Role)
	if err != nil {
		return model.User{}, errors.Wrapf(err, "set role of %s", uid)
	}
	s.log.Info("role changed",
		zap.String("uid", uid),
		zap.String("role", string(req.Role)),
		zap.String("by", req.AdminUID))
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []model.User{}
	}
	return users, nil
}
