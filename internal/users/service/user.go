package service

import (
	"context"
	"errors"
	userserrors "shareit/internal/users/errors"
	"shareit/internal/users/repository"
	"shareit/pkg/config"
	apperrors "shareit/pkg/errors"
	"shareit/pkg/model"
	"shareit/pkg/sanitizer"
	"shareit/pkg/validator"
)

const duplicateEmailMessage = "The userEmail already exists"

type UserService interface {
	Create(ctx context.Context, input *model.UserInput) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetAll(ctx context.Context) ([]*model.User, error)
	Update(ctx context.Context, id int64, update *model.UserUpdate) (*model.User, error)
	Delete(ctx context.Context, id int64) error
}

type userService struct {
	repo      repository.UserRepository
	validator *validator.Validator
	cfg       *config.Config
}

func NewUserService(repo repository.UserRepository, validator *validator.Validator, cfg *config.Config) UserService {
	return &userService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *userService) Create(ctx context.Context, input *model.UserInput) (*model.User, error) {
	log := s.cfg.Log.FromContext(ctx)

	if input == nil {
		return nil, apperrors.InvalidInput("User body is required")
	}
	input.Name = sanitizer.NormalizeName(input.Name)
	input.Email = sanitizer.NormalizeEmail(input.Email)
	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}

	id, err := s.repo.NextID(ctx)
	if err != nil {
		log.Error("Failed to allocate user id", "error", err)
		return nil, apperrors.Internal("Failed to create user", err)
	}

	user := &model.User{ID: id, Name: input.Name, Email: input.Email}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, userserrors.ErrDuplicateEmail) {
			log.Warn("Duplicate user email", "email", input.Email)
			return nil, apperrors.Conflict(duplicateEmailMessage)
		}
		log.Error("Failed to create user", "error", err)
		return nil, apperrors.Internal("Failed to create user", err)
	}

	log.Info("User created successfully", "id", user.ID)
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", id)
		}
		s.cfg.Log.FromContext(ctx).Error("Failed to get user", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	return user, nil
}

func (s *userService) GetAll(ctx context.Context) ([]*model.User, error) {
	users, err := s.repo.FindAll(ctx)
	if err != nil {
		s.cfg.Log.FromContext(ctx).Error("Failed to list users", "error", err)
		return nil, apperrors.Internal("Failed to retrieve users", err)
	}
	return users, nil
}

// Update applies the non blank fields of update.
func (s *userService) Update(ctx context.Context, id int64, update *model.UserUpdate) (*model.User, error) {
	log := s.cfg.Log.FromContext(ctx)

	if update == nil {
		return nil, apperrors.InvalidInput("User body is required")
	}
	update.Name = sanitizer.NormalizeName(update.Name)
	update.Email = sanitizer.NormalizeEmail(update.Email)
	if err := s.validate(ctx, update); err != nil {
		return nil, err
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.Name != "" {
		user.Name = update.Name
	}
	if update.Email != "" {
		user.Email = update.Email
	}

	if err := s.repo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, userserrors.ErrDuplicateEmail):
			return nil, apperrors.Conflict(duplicateEmailMessage)
		case errors.Is(err, userserrors.ErrNotFound):
			return nil, apperrors.NotFoundWithID("User", id)
		}
		log.Error("Failed to update user", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update user", err)
	}

	log.Info("User updated successfully", "id", id)
	return user, nil
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("User", id)
		}
		s.cfg.Log.FromContext(ctx).Error("Failed to delete user", "id", id, "error", err)
		return apperrors.Internal("Failed to delete user", err)
	}

	s.cfg.Log.FromContext(ctx).Info("User deleted successfully", "id", id)
	return nil
}

func (s *userService) validate(ctx context.Context, input any) error {
	if err := s.validator.Struct(input); err != nil {
		s.cfg.Log.FromContext(ctx).Warn("User validation failed", "error", err)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return apperrors.Validation("User validation failed", verrs.Fields())
		}
		return apperrors.Validation("User validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}
