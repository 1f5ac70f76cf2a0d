package service

import (
	"context"
	"errors"
	itemsrepo "shareit/internal/items/repository"
	requestserrors "shareit/internal/requests/errors"
	"shareit/internal/requests/repository"
	usersrepo "shareit/internal/users/repository"
	"shareit/pkg/config"
	apperrors "shareit/pkg/errors"
	"shareit/pkg/model"
	"shareit/pkg/sanitizer"
	"shareit/pkg/validator"
	"time"
)

type RequestService interface {
	Create(ctx context.Context, requestorID int64, input *model.RequestInput) (*model.RequestView, error)
	ListOwn(ctx context.Context, requestorID int64) ([]*model.RequestView, error)
	ListOthers(ctx context.Context, userID int64, page model.Page) ([]*model.RequestView, error)
	GetByID(ctx context.Context, userID, requestID int64) (*model.RequestView, error)
}

type requestService struct {
	repo      repository.RequestRepository
	itemRepo  itemsrepo.ItemRepository
	userRepo  usersrepo.UserRepository
	validator *validator.Validator
	cfg       *config.Config
	clock     func() time.Time
}

func NewRequestService(
	repo repository.RequestRepository,
	itemRepo itemsrepo.ItemRepository,
	userRepo usersrepo.UserRepository,
	validator *validator.Validator,
	cfg *config.Config,
) RequestService {
	return &requestService{
		repo:      repo,
		itemRepo:  itemRepo,
		userRepo:  userRepo,
		validator: validator,
		cfg:       cfg,
		clock:     time.Now,
	}
}

func (s *requestService) Create(ctx context.Context, requestorID int64, input *model.RequestInput) (*model.RequestView, error) {
	log := s.cfg.Log.FromContext(ctx)

	if input == nil {
		return nil, apperrors.InvalidInput("Request body is required")
	}
	input.Description = sanitizer.NormalizeDescription(input.Description)
	if err := s.validator.Struct(input); err != nil {
		log.Warn("Request validation failed", "error", err)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, apperrors.Validation("Request validation failed", verrs.Fields())
		}
		return nil, apperrors.Validation("Request validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.requireUser(ctx, requestorID); err != nil {
		return nil, err
	}

	id, err := s.repo.NextID(ctx)
	if err != nil {
		log.Error("Failed to allocate request id", "error", err)
		return nil, apperrors.Internal("Failed to create request", err)
	}

	request := &model.Request{
		ID:          id,
		Description: input.Description,
		RequestorID: requestorID,
		Created:     s.clock().UTC(),
	}
	if err := s.repo.Create(ctx, request); err != nil {
		log.Error("Failed to create request", "requestor_id", requestorID, "error", err)
		return nil, apperrors.Internal("Failed to create request", err)
	}

	log.Info("Request created successfully", "id", id, "requestor_id", requestorID)
	return model.NewRequestView(request, nil), nil
}

func (s *requestService) ListOwn(ctx context.Context, requestorID int64) ([]*model.RequestView, error) {
	if err := s.requireUser(ctx, requestorID); err != nil {
		return nil, err
	}

	requests, err := s.repo.FindByRequestor(ctx, requestorID)
	if err != nil {
		s.cfg.Log.FromContext(ctx).Error("Failed to list requests", "requestor_id", requestorID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve requests", err)
	}
	return s.toViews(ctx, requests)
}

// ListOthers pages through requests made by everyone except userID.
func (s *requestService) ListOthers(ctx context.Context, userID int64, page model.Page) ([]*model.RequestView, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	requests, err := s.repo.FindOthers(ctx, userID, page)
	if err != nil {
		s.cfg.Log.FromContext(ctx).Error("Failed to list other requests", "user_id", userID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve requests", err)
	}
	return s.toViews(ctx, requests)
}

func (s *requestService) GetByID(ctx context.Context, userID, requestID int64) (*model.RequestView, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}

	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, requestserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Request", requestID)
		}
		return nil, apperrors.Internal("Failed to retrieve request", err)
	}

	views, err := s.toViews(ctx, []*model.Request{request})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *requestService) requireUser(ctx context.Context, id int64) error {
	exists, err := s.userRepo.Exists(ctx, id)
	if err != nil {
		return apperrors.Internal("Failed to retrieve user", err)
	}
	if !exists {
		return apperrors.NotFoundWithID("User", id)
	}
	return nil
}

// toViews loads the answering items of all requests in one query.
func (s *requestService) toViews(ctx context.Context, requests []*model.Request) ([]*model.RequestView, error) {
	views := make([]*model.RequestView, 0, len(requests))
	if len(requests) == 0 {
		return views, nil
	}

	ids := make([]int64, len(requests))
	for i, r := range requests {
		ids[i] = r.ID
	}
	items, err := s.itemRepo.FindByRequestIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve request items", err)
	}

	byRequest := make(map[int64][]*model.Item, len(requests))
	for _, it := range items {
		if it.RequestID != nil {
			byRequest[*it.RequestID] = append(byRequest[*it.RequestID], it)
		}
	}

	for _, r := range requests {
		views = append(views, model.NewRequestView(r, byRequest[r.ID]))
	}
	return views, nil
}
