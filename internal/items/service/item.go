package service

import (
	"context"
	"errors"
	"fmt"
	bookingsrepo "shareit/internal/bookings/repository"
	itemserrors "shareit/internal/items/errors"
	"shareit/internal/items/projection"
	"shareit/internal/items/repository"
	requestserrors "shareit/internal/requests/errors"
	requestsrepo "shareit/internal/requests/repository"
	userserrors "shareit/internal/users/errors"
	usersrepo "shareit/internal/users/repository"
	"shareit/pkg/config"
	apperrors "shareit/pkg/errors"
	"shareit/pkg/model"
	"shareit/pkg/sanitizer"
	"shareit/pkg/validator"
	"time"
)

type ItemService interface {
	Create(ctx context.Context, ownerID int64, input *model.ItemInput) (*model.ItemView, error)
	GetByID(ctx context.Context, viewerID, itemID int64) (*model.ItemView, error)
	ListByOwner(ctx context.Context, ownerID int64, page model.Page) ([]*model.ItemView, error)
	Search(ctx context.Context, text string, page model.Page) ([]*model.ItemView, error)
	Update(ctx context.Context, ownerID, itemID int64, update *model.ItemUpdate) (*model.ItemView, error)
	Delete(ctx context.Context, userID, itemID int64) error
	AddComment(ctx context.Context, authorID, itemID int64, input *model.CommentInput) (*model.CommentView, error)
}

type itemService struct {
	repo        repository.ItemRepository
	commentRepo repository.CommentRepository
	bookingRepo bookingsrepo.BookingRepository
	userRepo    usersrepo.UserRepository
	requestRepo requestsrepo.RequestRepository
	validator   *validator.Validator
	cfg         *config.Config
	clock       func() time.Time
}

func NewItemService(
	repo repository.ItemRepository,
	commentRepo repository.CommentRepository,
	bookingRepo bookingsrepo.BookingRepository,
	userRepo usersrepo.UserRepository,
	requestRepo requestsrepo.RequestRepository,
	validator *validator.Validator,
	cfg *config.Config,
) ItemService {
	return &itemService{
		repo:        repo,
		commentRepo: commentRepo,
		bookingRepo: bookingRepo,
		userRepo:    userRepo,
		requestRepo: requestRepo,
		validator:   validator,
		cfg:         cfg,
		clock:       time.Now,
	}
}

func (s *itemService) Create(ctx context.Context, ownerID int64, input *model.ItemInput) (*model.ItemView, error) {
	log := s.cfg.Log.FromContext(ctx)

	if input == nil {
		return nil, apperrors.InvalidInput("Item body is required")
	}
	input.Name = sanitizer.NormalizeName(input.Name)
	input.Description = sanitizer.NormalizeDescription(input.Description)
	if err := s.validate(ctx, "Item", input); err != nil {
		return nil, err
	}

	if err := s.requireUser(ctx, ownerID); err != nil {
		return nil, err
	}
	if input.RequestID != nil {
		if _, err := s.requestRepo.FindByID(ctx, *input.RequestID); err != nil {
			if errors.Is(err, requestserrors.ErrNotFound) {
				return nil, apperrors.NotFoundWithID("Request", *input.RequestID)
			}
			return nil, apperrors.Internal("Failed to retrieve request", err)
		}
	}

	id, err := s.repo.NextID(ctx)
	if err != nil {
		log.Error("Failed to allocate item id", "error", err)
		return nil, apperrors.Internal("Failed to create item", err)
	}

	item := &model.Item{
		ID:          id,
		Name:        input.Name,
		Description: input.Description,
		Available:   *input.Available,
		OwnerID:     ownerID,
		RequestID:   input.RequestID,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		log.Error("Failed to create item", "owner_id", ownerID, "error", err)
		return nil, apperrors.Internal("Failed to create item", err)
	}

	log.Info("Item created successfully", "id", item.ID, "owner_id", ownerID)
	return model.NewItemView(item), nil
}

// GetByID returns the item with its comments; the booking projection is
// only filled in for the owner.
func (s *itemService) GetByID(ctx context.Context, viewerID, itemID int64) (*model.ItemView, error) {
	if err := s.requireUser(ctx, viewerID); err != nil {
		return nil, err
	}
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	views, err := s.toViews(ctx, []*model.Item{item}, item.OwnerID == viewerID)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *itemService) ListByOwner(ctx context.Context, ownerID int64, page model.Page) ([]*model.ItemView, error) {
	if err := s.requireUser(ctx, ownerID); err != nil {
		return nil, err
	}

	items, err := s.repo.FindByOwner(ctx, ownerID, page)
	if err != nil {
		s.cfg.Log.FromContext(ctx).Error("Failed to list items", "owner_id", ownerID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve items", err)
	}
	return s.toViews(ctx, items, true)
}

// Search matches available items by name or description. Blank text finds nothing.
func (s *itemService) Search(ctx context.Context, text string, page model.Page) ([]*model.ItemView, error) {
	text = sanitizer.NormalizeSearchText(text)
	if text == "" {
		return []*model.ItemView{}, nil
	}

	items, err := s.repo.Search(ctx, text, page)
	if err != nil {
		s.cfg.Log.FromContext(ctx).Error("Failed to search items", "text", text, "error", err)
		return nil, apperrors.Internal("Failed to search items", err)
	}

	views := make([]*model.ItemView, 0, len(items))
	for _, it := range items {
		views = append(views, model.NewItemView(it))
	}
	return views, nil
}

func (s *itemService) Update(ctx context.Context, ownerID, itemID int64, update *model.ItemUpdate) (*model.ItemView, error) {
	log := s.cfg.Log.FromContext(ctx)

	if update == nil {
		return nil, apperrors.InvalidInput("Item body is required")
	}
	update.Name = sanitizer.NormalizeName(update.Name)
	update.Description = sanitizer.NormalizeDescription(update.Description)
	if err := s.validate(ctx, "Item", update); err != nil {
		return nil, err
	}

	if err := s.requireUser(ctx, ownerID); err != nil {
		return nil, err
	}
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != ownerID {
		log.Warn("Item update by non owner", "id", itemID, "user_id", ownerID)
		return nil, apperrors.Forbidden(fmt.Sprintf("User %d is not the owner of item %d", ownerID, itemID))
	}

	if update.Name != "" {
		item.Name = update.Name
	}
	if update.Description != "" {
		item.Description = update.Description
	}
	if update.Available != nil {
		item.Available = *update.Available
	}

	if err := s.repo.Update(ctx, item); err != nil {
		if errors.Is(err, itemserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Item", itemID)
		}
		log.Error("Failed to update item", "id", itemID, "error", err)
		return nil, apperrors.Internal("Failed to update item", err)
	}

	log.Info("Item updated successfully", "id", itemID)
	views, err := s.toViews(ctx, []*model.Item{item}, true)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *itemService) Delete(ctx context.Context, userID, itemID int64) error {
	log := s.cfg.Log.FromContext(ctx)

	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item.OwnerID != userID {
		return apperrors.Forbidden(fmt.Sprintf("User %d is not the owner of item %d", userID, itemID))
	}

	if err := s.repo.Delete(ctx, itemID); err != nil {
		if errors.Is(err, itemserrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Item", itemID)
		}
		log.Error("Failed to delete item", "id", itemID, "error", err)
		return apperrors.Internal("Failed to delete item", err)
	}

	log.Info("Item deleted successfully", "id", itemID)
	return nil
}

// AddComment requires a finished, approved booking of the item by the author.
func (s *itemService) AddComment(ctx context.Context, authorID, itemID int64, input *model.CommentInput) (*model.CommentView, error) {
	log := s.cfg.Log.FromContext(ctx)

	if input == nil {
		return nil, apperrors.InvalidInput("Comment body is required")
	}
	input.Text = sanitizer.NormalizeComment(input.Text)
	if err := s.validate(ctx, "Comment", input); err != nil {
		return nil, err
	}

	author, err := s.userRepo.FindByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", authorID)
		}
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	if _, err := s.loadItem(ctx, itemID); err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	booked, err := s.bookingRepo.ExistsCompleted(ctx, authorID, itemID, now)
	if err != nil {
		log.Error("Failed to check completed bookings", "item_id", itemID, "author_id", authorID, "error", err)
		return nil, apperrors.Internal("Failed to create comment", err)
	}
	if !booked {
		return nil, apperrors.BadRequest(fmt.Sprintf("User %d has no completed booking of item %d", authorID, itemID))
	}

	id, err := s.commentRepo.NextID(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to create comment", err)
	}
	comment := &model.Comment{ID: id, Text: input.Text, ItemID: itemID, AuthorID: authorID, Created: now}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		log.Error("Failed to create comment", "item_id", itemID, "error", err)
		return nil, apperrors.Internal("Failed to create comment", err)
	}

	log.Info("Comment created successfully", "id", id, "item_id", itemID, "author_id", authorID)
	return &model.CommentView{ID: comment.ID, Text: comment.Text, AuthorName: author.Name, Created: comment.Created}, nil
}

// --- Helpers ---

func (s *itemService) validate(ctx context.Context, resource string, input any) error {
	if err := s.validator.Struct(input); err != nil {
		s.cfg.Log.FromContext(ctx).Warn(resource+" validation failed", "error", err)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return apperrors.Validation(resource+" validation failed", verrs.Fields())
		}
		return apperrors.Validation(resource+" validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *itemService) requireUser(ctx context.Context, id int64) error {
	exists, err := s.userRepo.Exists(ctx, id)
	if err != nil {
		return apperrors.Internal("Failed to retrieve user", err)
	}
	if !exists {
		return apperrors.NotFoundWithID("User", id)
	}
	return nil
}

func (s *itemService) loadItem(ctx context.Context, id int64) (*model.Item, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, itemserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Item", id)
		}
		return nil, apperrors.Internal("Failed to retrieve item", err)
	}
	return item, nil
}

// toViews attaches comments to every item and, when withBookings is set,
// the last/next projection. Both are loaded in one query per page.
func (s *itemService) toViews(ctx context.Context, items []*model.Item, withBookings bool) ([]*model.ItemView, error) {
	views := make([]*model.ItemView, 0, len(items))
	if len(items) == 0 {
		return views, nil
	}

	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}

	comments, err := s.commentRepo.FindByItemIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve comments", err)
	}
	authorIDs := make([]int64, 0, len(comments))
	for _, c := range comments {
		authorIDs = append(authorIDs, c.AuthorID)
	}
	authors, err := s.userRepo.FindByIDs(ctx, sanitizer.UniqueIDs(authorIDs))
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve comment authors", err)
	}
	names := make(map[int64]string, len(authors))
	for _, u := range authors {
		names[u.ID] = u.Name
	}
	commentsByItem := make(map[int64][]*model.CommentView, len(items))
	for _, c := range comments {
		commentsByItem[c.ItemID] = append(commentsByItem[c.ItemID], &model.CommentView{
			ID:         c.ID,
			Text:       c.Text,
			AuthorName: names[c.AuthorID],
			Created:    c.Created,
		})
	}

	var availability map[int64]projection.Availability
	if withBookings {
		bookings, err := s.bookingRepo.FindActiveByItems(ctx, ids)
		if err != nil {
			return nil, apperrors.Internal("Failed to retrieve item bookings", err)
		}
		availability = projection.ProjectAll(bookings, s.clock().UTC())
	}

	for _, it := range items {
		view := model.NewItemView(it)
		if c, ok := commentsByItem[it.ID]; ok {
			view.Comments = c
		}
		if a, ok := availability[it.ID]; ok {
			a.Apply(view)
		}
		views = append(views, view)
	}
	return views, nil
}
