package service

import (
	"context"
	"errors"
	"fmt"
	bookingserrors "shareit/internal/bookings/errors"
	"shareit/internal/bookings/events"
	"shareit/internal/bookings/query"
	"shareit/internal/bookings/repository"
	itemserrors "shareit/internal/items/errors"
	itemsrepo "shareit/internal/items/repository"
	userserrors "shareit/internal/users/errors"
	usersrepo "shareit/internal/users/repository"
	"shareit/pkg/config"
	apperrors "shareit/pkg/errors"
	"shareit/pkg/model"
	"shareit/pkg/sanitizer"
	"shareit/pkg/validator"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

type BookingService interface {
	Create(ctx context.Context, bookerID int64, input *model.BookingInput) (*model.BookingView, error)
	Decide(ctx context.Context, ownerID, bookingID int64, approve bool) (*model.BookingView, error)
	Cancel(ctx context.Context, bookerID, bookingID int64) (*model.BookingView, error)
	GetByID(ctx context.Context, viewerID, bookingID int64) (*model.BookingView, error)
	List(ctx context.Context, subjectID int64, role query.Role, state string, page model.Page) ([]*model.BookingView, error)
}

type bookingService struct {
	repo      repository.BookingRepository
	lockRepo  repository.BookingLockRepository
	itemRepo  itemsrepo.ItemRepository
	userRepo  usersrepo.UserRepository
	validator *validator.Validator
	publisher events.Publisher
	cfg       *config.Config
	clock     func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	lockRepo repository.BookingLockRepository,
	itemRepo itemsrepo.ItemRepository,
	userRepo usersrepo.UserRepository,
	validator *validator.Validator,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &bookingService{
		repo:      repo,
		lockRepo:  lockRepo,
		itemRepo:  itemRepo,
		userRepo:  userRepo,
		validator: validator,
		publisher: publisher,
		cfg:       cfg,
		clock:     time.Now,
	}
}

func (s *bookingService) Create(ctx context.Context, bookerID int64, input *model.BookingInput) (*model.BookingView, error) {
	log := s.cfg.Log.FromContext(ctx)

	if err := s.validate(ctx, input); err != nil {
		return nil, err
	}
	start, end := input.Start.UTC(), input.End.UTC()

	booker, err := s.loadUser(ctx, bookerID)
	if err != nil {
		return nil, err
	}
	item, err := s.loadItem(ctx, *input.ItemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID == bookerID {
		return nil, apperrors.Forbidden("This is your thing")
	}
	if !item.Available {
		return nil, apperrors.NoAccess(fmt.Sprintf("Item with id %d is not available for booking", item.ID))
	}
	if !end.After(start) {
		return nil, apperrors.InvalidInterval("Booking end must be after its start")
	}

	id, err := s.repo.NextID(ctx)
	if err != nil {
		log.Error("Failed to allocate booking id", "error", err)
		return nil, apperrors.Internal("Failed to create booking", err)
	}

	lockToken, err := s.acquireItemLock(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := s.lockRepo.Release(context.WithoutCancel(ctx), item.ID, lockToken); releaseErr != nil {
			log.Warn("Failed to release booking lock", "item_id", item.ID, "error", releaseErr)
		}
	}()

	booking := &model.Booking{
		ID:       id,
		Start:    start,
		End:      end,
		ItemID:   item.ID,
		BookerID: bookerID,
		Status:   model.StatusWaiting,
	}

	err = s.repo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.repo.GuardItem(sessCtx, booking.ItemID); err != nil {
			return err
		}
		if err := s.verifyNoOverlap(sessCtx, booking); err != nil {
			return err
		}
		if err := s.repo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		if !apperrors.IsAppError(err) {
			err = apperrors.Internal("Failed to create booking", err)
		}
		if apperrors.HasCode(err, apperrors.CodeInternal) {
			log.Error("Failed to create booking", "item_id", item.ID, "booker_id", bookerID, "error", err)
		} else {
			log.Warn("Booking rejected", "item_id", item.ID, "booker_id", bookerID, "error", err)
		}
		return nil, err
	}

	log.Info("Booking created successfully",
		"id", booking.ID,
		"item_id", booking.ItemID,
		"booker_id", booking.BookerID,
		"start", booking.Start,
		"end", booking.End,
	)
	s.publish(ctx, events.EventBookingCreated, booking, item)
	return model.NewBookingView(booking, item, booker), nil
}

func (s *bookingService) Decide(ctx context.Context, ownerID, bookingID int64, approve bool) (*model.BookingView, error) {
	log := s.cfg.Log.FromContext(ctx)

	booking, item, err := s.loadBookingWithItem(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != ownerID {
		log.Warn("Booking decision by non owner", "id", bookingID, "user_id", ownerID)
		return nil, apperrors.Masked("Booking", bookingID)
	}
	if booking.Status != model.StatusWaiting {
		return nil, apperrors.InvalidState(fmt.Sprintf("Booking with id %d is already %s", bookingID, booking.Status))
	}

	to := model.StatusRejected
	if approve {
		to = model.StatusApproved
	}

	updated, err := s.repo.UpdateStatus(ctx, bookingID, []model.BookingStatus{model.StatusWaiting}, to)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			return nil, apperrors.InvalidState(fmt.Sprintf("Booking with id %d has already been decided", bookingID))
		}
		log.Error("Failed to decide booking", "id", bookingID, "error", err)
		return nil, apperrors.Internal("Failed to update booking", err)
	}

	log.Info("Booking decided", "id", bookingID, "status", updated.Status)
	s.publish(ctx, events.EventBookingDecided, updated, item)

	booker, err := s.userRepo.FindByID(ctx, updated.BookerID)
	if err != nil && !errors.Is(err, userserrors.ErrNotFound) {
		return nil, apperrors.Internal("Failed to load booker", err)
	}
	return model.NewBookingView(updated, item, booker), nil
}

// Cancel lets the booker withdraw a waiting or approved booking that has not started.
func (s *bookingService) Cancel(ctx context.Context, bookerID, bookingID int64) (*model.BookingView, error) {
	log := s.cfg.Log.FromContext(ctx)

	booking, item, err := s.loadBookingWithItem(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.BookerID != bookerID {
		return nil, apperrors.Masked("Booking", bookingID)
	}

	cancelable := []model.BookingStatus{model.StatusWaiting, model.StatusApproved}
	if booking.Status != model.StatusWaiting && booking.Status != model.StatusApproved {
		return nil, apperrors.InvalidState(fmt.Sprintf("Booking with id %d is already %s", bookingID, booking.Status))
	}
	if !booking.Start.After(s.clock()) {
		return nil, apperrors.InvalidState(fmt.Sprintf("Booking with id %d has already started", bookingID))
	}

	updated, err := s.repo.UpdateStatus(ctx, bookingID, cancelable, model.StatusCanceled)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrStatusChanged) {
			return nil, apperrors.InvalidState(fmt.Sprintf("Booking with id %d changed status", bookingID))
		}
		log.Error("Failed to cancel booking", "id", bookingID, "error", err)
		return nil, apperrors.Internal("Failed to cancel booking", err)
	}

	log.Info("Booking canceled", "id", bookingID, "booker_id", bookerID)
	s.publish(ctx, events.EventBookingCanceled, updated, item)

	booker, err := s.loadUser(ctx, bookerID)
	if err != nil {
		return nil, err
	}
	return model.NewBookingView(updated, item, booker), nil
}

func (s *bookingService) GetByID(ctx context.Context, viewerID, bookingID int64) (*model.BookingView, error) {
	if _, err := s.loadUser(ctx, viewerID); err != nil {
		return nil, err
	}

	booking, item, err := s.loadBookingWithItem(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.BookerID != viewerID && item.OwnerID != viewerID {
		return nil, apperrors.Masked("Booking", bookingID)
	}

	views, err := s.toViews(ctx, []*model.Booking{booking})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *bookingService) List(ctx context.Context, subjectID int64, role query.Role, rawState string, page model.Page) ([]*model.BookingView, error) {
	log := s.cfg.Log.FromContext(ctx)

	state, err := query.Parse(rawState)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadUser(ctx, subjectID); err != nil {
		return nil, err
	}

	filter := query.NewFilter(state, s.clock().UTC())

	var bookings []*model.Booking
	switch role {
	case query.RoleOwner:
		itemIDs, err := s.itemRepo.FindIDsByOwner(ctx, subjectID)
		if err != nil {
			log.Error("Failed to list owner items", "owner_id", subjectID, "error", err)
			return nil, apperrors.Internal("Failed to retrieve bookings", err)
		}
		bookings, err = s.repo.FindByItems(ctx, itemIDs, filter, page)
		if err != nil {
			log.Error("Failed to list owner bookings", "owner_id", subjectID, "state", state, "error", err)
			return nil, apperrors.Internal("Failed to retrieve bookings", err)
		}
	default:
		bookings, err = s.repo.FindByBooker(ctx, subjectID, filter, page)
		if err != nil {
			log.Error("Failed to list bookings", "booker_id", subjectID, "state", state, "error", err)
			return nil, apperrors.Internal("Failed to retrieve bookings", err)
		}
	}

	log.Debug("Booking list completed", "subject_id", subjectID, "role", role, "state", state, "count", len(bookings))
	return s.toViews(ctx, bookings)
}

// --- Helpers ---

func (s *bookingService) validate(ctx context.Context, input *model.BookingInput) error {
	if input == nil {
		return apperrors.InvalidInput("Booking body is required")
	}
	if err := s.validator.Struct(input); err != nil {
		s.cfg.Log.FromContext(ctx).Warn("Booking validation failed", "error", err)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return apperrors.Validation("Booking validation failed", verrs.Fields())
		}
		return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func (s *bookingService) verifyNoOverlap(ctx context.Context, booking *model.Booking) error {
	existing, err := s.repo.FindOverlapping(ctx, booking.ItemID, booking.Start, booking.End)
	if err != nil {
		return apperrors.Internal("Failed to check existing bookings", err)
	}

	for _, b := range existing {
		if b.ID == booking.ID || b.Status == model.StatusRejected {
			continue
		}
		if b.Overlaps(booking.Start, booking.End) {
			return apperrors.InvalidInterval(fmt.Sprintf(
				"Booking overlaps an existing booking (%s - %s)",
				b.Start.Format(time.RFC3339),
				b.End.Format(time.RFC3339),
			))
		}
	}
	return nil
}

func (s *bookingService) acquireItemLock(ctx context.Context, itemID int64) (string, error) {
	token, err := s.lockRepo.Acquire(ctx, itemID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrLockHeld) {
			return "", apperrors.Conflict("This item is currently being booked by another request. Please try again.")
		}
		return "", apperrors.Internal("Failed to acquire booking lock", err)
	}
	return token, nil
}

func (s *bookingService) loadUser(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", id)
		}
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	return user, nil
}

func (s *bookingService) loadItem(ctx context.Context, id int64) (*model.Item, error) {
	item, err := s.itemRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, itemserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Item", id)
		}
		return nil, apperrors.Internal("Failed to retrieve item", err)
	}
	return item, nil
}

// loadBookingWithItem treats a booking whose item is gone as absent.
func (s *bookingService) loadBookingWithItem(ctx context.Context, bookingID int64) (*model.Booking, *model.Item, error) {
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, nil, apperrors.NotFoundWithID("Booking", bookingID)
		}
		return nil, nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	item, err := s.itemRepo.FindByID(ctx, booking.ItemID)
	if err != nil {
		if errors.Is(err, itemserrors.ErrNotFound) {
			return nil, nil, apperrors.NotFoundWithID("Booking", bookingID)
		}
		return nil, nil, apperrors.Internal("Failed to retrieve item", err)
	}
	return booking, item, nil
}

// toViews batch loads item and booker names for a page of bookings.
func (s *bookingService) toViews(ctx context.Context, bookings []*model.Booking) ([]*model.BookingView, error) {
	views := make([]*model.BookingView, 0, len(bookings))
	if len(bookings) == 0 {
		return views, nil
	}

	itemIDs := make([]int64, 0, len(bookings))
	bookerIDs := make([]int64, 0, len(bookings))
	for _, b := range bookings {
		itemIDs = append(itemIDs, b.ItemID)
		bookerIDs = append(bookerIDs, b.BookerID)
	}

	var items []*model.Item
	var users []*model.User
	var errItems, errUsers error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		items, errItems = s.itemRepo.FindByIDs(ctx, sanitizer.UniqueIDs(itemIDs))
	}()

	go func() {
		defer wg.Done()
		users, errUsers = s.userRepo.FindByIDs(ctx, sanitizer.UniqueIDs(bookerIDs))
	}()

	wg.Wait()
	if errItems != nil {
		return nil, apperrors.Internal("Failed to retrieve booked items", errItems)
	}
	if errUsers != nil {
		return nil, apperrors.Internal("Failed to retrieve bookers", errUsers)
	}

	itemsByID := make(map[int64]*model.Item, len(items))
	for _, it := range items {
		itemsByID[it.ID] = it
	}
	usersByID := make(map[int64]*model.User, len(users))
	for _, u := range users {
		usersByID[u.ID] = u
	}

	for _, b := range bookings {
		views = append(views, model.NewBookingView(b, itemsByID[b.ItemID], usersByID[b.BookerID]))
	}
	return views, nil
}

// publish never fails the request; the booking is already stored.
func (s *bookingService) publish(ctx context.Context, eventType string, booking *model.Booking, item *model.Item) {
	event := events.NewBookingEvent(booking, item, s.clock().UTC())
	if err := s.publisher.Publish(ctx, eventType, event); err != nil {
		s.cfg.Log.FromContext(ctx).Error("Failed to publish booking event",
			"event_type", eventType,
			"id", booking.ID,
			"error", err,
		)
	}
}
