// Package memstore is an in-memory implementation of every repository
// interface, used by service and handler tests.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	bookingserrors "shareit/internal/bookings/errors"
	"shareit/internal/bookings/query"
	itemserrors "shareit/internal/items/errors"
	requestserrors "shareit/internal/requests/errors"
	userserrors "shareit/internal/users/errors"
	mongotx "shareit/pkg/db/mongo"
	"shareit/pkg/model"
)

type Store struct {
	mu  sync.Mutex
	err error

	seq      map[string]int64
	users    map[int64]model.User
	items    map[int64]model.Item
	bookings map[int64]model.Booking
	comments map[int64]model.Comment
	requests map[int64]model.Request
	locks    map[int64]string
	guards   map[int64]int64
}

func New() *Store {
	return &Store{
		seq:      map[string]int64{},
		users:    map[int64]model.User{},
		items:    map[int64]model.Item{},
		bookings: map[int64]model.Booking{},
		comments: map[int64]model.Comment{},
		requests: map[int64]model.Request{},
		locks:    map[int64]string{},
		guards:   map[int64]int64{},
	}
}

// Fail makes every subsequent repository call return err; nil restores.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Store) Users() *UserRepo       { return &UserRepo{s} }
func (s *Store) Items() *ItemRepo       { return &ItemRepo{s} }
func (s *Store) Bookings() *BookingRepo { return &BookingRepo{s} }
func (s *Store) Locks() *LockRepo       { return &LockRepo{s} }
func (s *Store) Comments() *CommentRepo { return &CommentRepo{s} }
func (s *Store) Requests() *RequestRepo { return &RequestRepo{s} }

// Seed helpers write directly, bypassing id allocation.

func (s *Store) PutUser(u model.User) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	s.bump("users", u.ID)
	return &u
}

func (s *Store) PutItem(it model.Item) *model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[it.ID] = it
	s.bump("items", it.ID)
	return &it
}

func (s *Store) PutBooking(b model.Booking) *model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = b
	s.bump("bookings", b.ID)
	return &b
}

func (s *Store) PutRequest(r model.Request) *model.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[r.ID] = r
	s.bump("requests", r.ID)
	return &r
}

// AllBookings returns a snapshot ordered by id.
func (s *Store) AllBookings() []*model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*model.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) bump(name string, id int64) {
	if id > s.seq[name] {
		s.seq[name] = id
	}
}

func (s *Store) next(name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.seq[name]++
	return s.seq[name], nil
}

func (s *Store) check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// --- users ---

type UserRepo struct{ s *Store }

func (r *UserRepo) NextID(ctx context.Context) (int64, error) { return r.s.next("users") }

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return r.s.err
	}
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return userserrors.ErrDuplicateEmail
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *UserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return nil, r.s.err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, userserrors.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepo) FindByIDs(ctx context.Context, ids []int64) ([]*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return nil, r.s.err
	}
	out := []*model.User{}
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, &u)
		}
	}
	return out, nil
}

func (r *UserRepo) FindAll(ctx context.Context) ([]*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return nil, r.s.err
	}
	out := []*model.User{}
	for _, u := range r.s.users {
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *UserRepo) Exists(ctx context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return false, r.s.err
	}
	_, ok := r.s.users[id]
	return ok, nil
}

func (r *UserRepo) Update(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return r.s.err
	}
	if _, ok := r.s.users[user.ID]; !ok {
		return userserrors.ErrNotFound
	}
	for _, u := range r.s.users {
		if u.ID != user.ID && u.Email == user.Email {
			return userserrors.ErrDuplicateEmail
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return r.s.err
	}
	if _, ok := r.s.users[id]; !ok {
		return userserrors.ErrNotFound
	}
	delete(r.s.users, id)
	return nil
}

// --- items ---

type ItemRepo struct{ s *Store }

func (r *ItemRepo) NextID(ctx context.Context) (int64, error) { return r.s.next("items") }

func (r *ItemRepo) Create(ctx context.Context, item *model.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return r.s.err
	}
	r.s.items[item.ID] = *item
	return nil
}

func (r *ItemRepo) FindByID(ctx context.Context, id int64) (*model.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return nil, r.s.err
	}
	it, ok := r.s.items[id]
	if !ok {
		return nil, itemserrors.ErrNotFound
	}
	return &it, nil
}

func (r *ItemRepo) FindByIDs(ctx context.Context, ids []int64) ([]*model.Item, error) {
	want := map[int64]bool{}
	for _, id := range ids {
		want[id] = true
	}
	return r.filter(func(it model.Item) bool { return want[it.ID] }, nil)
}

func (r *ItemRepo) FindByOwner(ctx context.Context, ownerID int64, page model.Page) ([]*model.Item, error) {
	return r.filter(func(it model.Item) bool { return it.OwnerID == ownerID }, &page)
}

func (r *ItemRepo) FindIDsByOwner(ctx context.Context, ownerID int64) ([]int64, error) {
	items, err := r.filter(func(it model.Item) bool { return it.OwnerID == ownerID }, nil)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids, nil
}

func (r *ItemRepo) Search(ctx context.Context, text string, page model.Page) ([]*model.Item, error) {
	needle := strings.ToLower(text)
	return r.filter(func(it model.Item) bool {
		return it.Available && (strings.Contains(strings.ToLower(it.Name), needle) ||
			strings.Contains(strings.ToLower(it.Description), needle))
	}, &page)
}

func (r *ItemRepo) FindByRequestIDs(ctx context.Context, requestIDs []int64) ([]*model.Item, error) {
	want := map[int64]bool{}
	for _, id := range requestIDs {
		want[id] = true
	}
	return r.filter(func(it model.Item) bool { return it.RequestID != nil && want[*it.RequestID] }, nil)
}

func (r *ItemRepo) Update(ctx context.Context, item *model.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return r.s.err
	}
	if _, ok := r.s.items[item.ID]; !ok {
		return itemserrors.ErrNotFound
	}
	r.s.items[item.ID] = *item
	return nil
}

func (r *ItemRepo) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return r.s.err
	}
	if _, ok := r.s.items[id]; !ok {
		return itemserrors.ErrNotFound
	}
	delete(r.s.items, id)
	return nil
}

func (r *ItemRepo) filter(keep func(model.Item) bool, page *model.Page) ([]*model.Item, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return nil, r.s.err
	}
	out := []*model.Item{}
	for _, it := range r.s.items {
		if keep(it) {
			it := it
			out = append(out, &it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if page != nil {
		out = model.Slice(out, *page)
	}
	return out, nil
}

// --- bookings ---

var errWriteConflict = errors.New("write conflict")

const maxTxAttempts = 100

type txKey struct{}

// bookingTx models a Mongo snapshot transaction: reads see the bookings
// committed when it began plus its own writes. Only guard documents detect
// conflicts, as in Mongo where two inserts of different bookings never clash.
type bookingTx struct {
	snapshot map[int64]model.Booking
	guardsAt map[int64]int64
	guarded  map[int64]bool
	writes   []model.Booking
}

func txFrom(ctx context.Context) *bookingTx {
	tx, _ := ctx.Value(txKey{}).(*bookingTx)
	return tx
}

func (s *Store) begin() (*bookingTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	tx := &bookingTx{
		snapshot: make(map[int64]model.Booking, len(s.bookings)),
		guardsAt: make(map[int64]int64, len(s.guards)),
		guarded:  map[int64]bool{},
	}
	for id, b := range s.bookings {
		tx.snapshot[id] = b
	}
	for id, v := range s.guards {
		tx.guardsAt[id] = v
	}
	return tx, nil
}

func (s *Store) commit(tx *bookingTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for itemID := range tx.guarded {
		if s.guards[itemID] != tx.guardsAt[itemID] {
			return errWriteConflict
		}
	}
	for itemID := range tx.guarded {
		s.guards[itemID]++
	}
	for _, b := range tx.writes {
		s.bookings[b.ID] = b
	}
	return nil
}

// GuardVersion reports how many committed transactions guarded the item.
func (s *Store) GuardVersion(itemID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guards[itemID]
}

type BookingRepo struct{ s *Store }

func (r *BookingRepo) NextID(ctx context.Context) (int64, error) { return r.s.next("bookings") }

func (r *BookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return r.s.err
	}
	if _, exists := r.s.bookings[booking.ID]; exists {
		return fmt.Errorf("duplicate booking id %d", booking.ID)
	}
	booking.CreatedAt = time.Now().UTC()
	if tx := txFrom(ctx); tx != nil {
		tx.writes = append(tx.writes, *booking)
		return nil
	}
	r.s.bookings[booking.ID] = *booking
	return nil
}

func (r *BookingRepo) FindByID(ctx context.Context, id int64) (*model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return nil, r.s.err
	}
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	return &b, nil
}

func (r *BookingRepo) FindOverlapping(ctx context.Context, itemID int64, start, end time.Time) ([]*model.Booking, error) {
	out, err := r.filter(ctx, func(b model.Booking) bool {
		return b.ItemID == itemID && b.Status != model.StatusRejected && b.Overlaps(start, end)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, err
}

func (r *BookingRepo) FindByBooker(ctx context.Context, bookerID int64, filter query.Filter, page model.Page) ([]*model.Booking, error) {
	all, err := r.filter(ctx, func(b model.Booking) bool { return b.BookerID == bookerID })
	if err != nil {
		return nil, err
	}
	return filter.Apply(all, page), nil
}

func (r *BookingRepo) FindByItems(ctx context.Context, itemIDs []int64, filter query.Filter, page model.Page) ([]*model.Booking, error) {
	want := map[int64]bool{}
	for _, id := range itemIDs {
		want[id] = true
	}
	all, err := r.filter(ctx, func(b model.Booking) bool { return want[b.ItemID] })
	if err != nil {
		return nil, err
	}
	return filter.Apply(all, page), nil
}

func (r *BookingRepo) FindActiveByItems(ctx context.Context, itemIDs []int64) ([]*model.Booking, error) {
	want := map[int64]bool{}
	for _, id := range itemIDs {
		want[id] = true
	}
	return r.filter(ctx, func(b model.Booking) bool { return want[b.ItemID] && b.Status != model.StatusRejected })
}

func (r *BookingRepo) ExistsCompleted(ctx context.Context, bookerID, itemID int64, now time.Time) (bool, error) {
	out, err := r.filter(ctx, func(b model.Booking) bool {
		return b.BookerID == bookerID && b.ItemID == itemID && b.Status == model.StatusApproved && b.End.Before(now)
	})
	return len(out) > 0, err
}

func (r *BookingRepo) UpdateStatus(ctx context.Context, id int64, from []model.BookingStatus, to model.BookingStatus) (*model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return nil, r.s.err
	}
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrStatusChanged
	}
	for _, st := range from {
		if b.Status == st {
			b.Status = to
			r.s.bookings[id] = b
			return &b, nil
		}
	}
	return nil, bookingserrors.ErrStatusChanged
}

// GuardItem fails fast when another transaction already committed a guard
// bump after this one's snapshot; otherwise the clash surfaces at commit.
func (r *BookingRepo) GuardItem(ctx context.Context, itemID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return r.s.err
	}
	tx := txFrom(ctx)
	if tx == nil {
		r.s.guards[itemID]++
		return nil
	}
	if r.s.guards[itemID] != tx.guardsAt[itemID] {
		return errWriteConflict
	}
	tx.guarded[itemID] = true
	return nil
}

// ExecuteTransaction retries on write conflicts the way WithTransaction
// retries transient transaction errors.
func (r *BookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		tx, err := r.s.begin()
		if err != nil {
			return err
		}
		err = fn(mongo.NewSessionContext(context.WithValue(ctx, txKey{}, tx), nil))
		if err == nil {
			err = r.s.commit(tx)
		}
		if errors.Is(err, errWriteConflict) {
			continue
		}
		return err
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", maxTxAttempts, errWriteConflict)
}

func (r *BookingRepo) filter(ctx context.Context, keep func(model.Booking) bool) ([]*model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return nil, r.s.err
	}

	visible := r.s.bookings
	if tx := txFrom(ctx); tx != nil {
		visible = make(map[int64]model.Booking, len(tx.snapshot)+len(tx.writes))
		for id, b := range tx.snapshot {
			visible[id] = b
		}
		for _, b := range tx.writes {
			visible[b.ID] = b
		}
	}

	out := []*model.Booking{}
	for _, b := range visible {
		if keep(b) {
			b := b
			out = append(out, &b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- locks ---

type LockRepo struct{ s *Store }

func (r *LockRepo) Acquire(ctx context.Context, itemID int64) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return "", r.s.err
	}
	if _, held := r.s.locks[itemID]; held {
		return "", bookingserrors.ErrLockHeld
	}
	token := uuid.NewString()
	r.s.locks[itemID] = token
	return token, nil
}

// Release is a no-op unless token still owns the lock.
func (r *LockRepo) Release(ctx context.Context, itemID int64, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.locks[itemID] == token {
		delete(r.s.locks, itemID)
	}
	return nil
}

// Held reports whether a lock is outstanding.
func (r *LockRepo) Held(itemID int64) bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, held := r.s.locks[itemID]
	return held
}

// Expire drops the lock the way the TTL index reaps an expired document.
func (r *LockRepo) Expire(itemID int64) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.locks, itemID)
}

// --- comments ---

type CommentRepo struct{ s *Store }

func (r *CommentRepo) NextID(ctx context.Context) (int64, error) { return r.s.next("comments") }

func (r *CommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return r.s.err
	}
	r.s.comments[comment.ID] = *comment
	return nil
}

func (r *CommentRepo) FindByItemIDs(ctx context.Context, itemIDs []int64) ([]*model.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return nil, r.s.err
	}
	want := map[int64]bool{}
	for _, id := range itemIDs {
		want[id] = true
	}
	out := []*model.Comment{}
	for _, c := range r.s.comments {
		if want[c.ItemID] {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.After(out[j].Created)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// --- requests ---

type RequestRepo struct{ s *Store }

func (r *RequestRepo) NextID(ctx context.Context) (int64, error) { return r.s.next("requests") }

func (r *RequestRepo) Create(ctx context.Context, request *model.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return r.s.err
	}
	r.s.requests[request.ID] = *request
	return nil
}

func (r *RequestRepo) FindByID(ctx context.Context, id int64) (*model.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return nil, r.s.err
	}
	req, ok := r.s.requests[id]
	if !ok {
		return nil, requestserrors.ErrNotFound
	}
	return &req, nil
}

func (r *RequestRepo) FindByRequestor(ctx context.Context, requestorID int64) ([]*model.Request, error) {
	return r.filter(func(req model.Request) bool { return req.RequestorID == requestorID }, nil)
}

func (r *RequestRepo) FindOthers(ctx context.Context, userID int64, page model.Page) ([]*model.Request, error) {
	return r.filter(func(req model.Request) bool { return req.RequestorID != userID }, &page)
}

func (r *RequestRepo) filter(keep func(model.Request) bool, page *model.Page) ([]*model.Request, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.err != nil {
		return nil, r.s.err
	}
	out := []*model.Request{}
	for _, req := range r.s.requests {
		if keep(req) {
			req := req
			out = append(out, &req)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.After(out[j].Created)
		}
		return out[i].ID > out[j].ID
	})
	if page != nil {
		out = model.Slice(out, *page)
	}
	return out, nil
}
