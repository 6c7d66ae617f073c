package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/simonjohansson/taskboard/internal/model"
	"github.com/simonjohansson/taskboard/internal/store"
)

type CardRepository interface {
	ListAll(ctx context.Context) ([]model.Card, error)
	GetByID(ctx context.Context, id int64) (model.Card, error)
	CountByStatus(ctx context.Context, status string) (int, error)
	Insert(ctx context.Context, card *model.Card) error
	Update(ctx context.Context, card model.Card) error
	Delete(ctx context.Context, card model.Card) error
}

type CommentRepository interface {
	GetByID(ctx context.Context, cardID, id int64) (model.Comment, error)
	Insert(ctx context.Context, comment *model.Comment) error
	Update(ctx context.Context, comment model.Comment) error
	Delete(ctx context.Context, comment model.Comment) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id int64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Insert(ctx context.Context, user *model.User) error
}

type Repositories interface {
	Cards() CardRepository
	Comments() CommentRepository
	Users() UserRepository
}

// Store runs repository work atomically (InTx) or against the shared pool
// (View).
type Store interface {
	InTx(ctx context.Context, fn func(Repositories) error) error
	View(ctx context.Context, fn func(Repositories) error) error
}

type Publisher interface {
	Publish(event model.Event)
}

type Recorder interface {
	CardCreated()
	CardDeleted()
	CommentCreated()
	CommentDeleted()
	OngoingConflict()
}

type Options struct {
	Publisher Publisher
	Recorder  Recorder
	Logger    *slog.Logger
	Now       func() time.Time
}

type Service struct {
	store     Store
	publisher Publisher
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time
}

func New(store Store, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Service{
		store:     store,
		publisher: opts.Publisher,
		recorder:  recorder,
		logger:    logger,
		now:       now,
	}
}

func (s *Service) publish(event model.Event) {
	if s.publisher == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	s.publisher.Publish(event)
}

func (s *Service) today() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func storageError(err error) *Error {
	return newError(CodeInternal, "internal server error", err)
}

type noopRecorder struct{}

func (noopRecorder) CardCreated()     {}
func (noopRecorder) CardDeleted()     {}
func (noopRecorder) CommentCreated()  {}
func (noopRecorder) CommentDeleted()  {}
func (noopRecorder) OngoingConflict() {}

// FromSQLite adapts the SQLite store to the repository interfaces used here.
func FromSQLite(s *store.SQLiteStore) Store {
	return sqliteStore{db: s}
}

type sqliteStore struct {
	db *store.SQLiteStore
}

func (a sqliteStore) InTx(ctx context.Context, fn func(Repositories) error) error {
	return a.db.InTx(ctx, func(tx *store.Tx) error {
		return fn(sqliteRepositories{tx: tx})
	})
}

func (a sqliteStore) View(ctx context.Context, fn func(Repositories) error) error {
	return a.db.View(ctx, func(tx *store.Tx) error {
		return fn(sqliteRepositories{tx: tx})
	})
}

type sqliteRepositories struct {
	tx *store.Tx
}

func (r sqliteRepositories) Cards() CardRepository       { return r.tx.Cards() }
func (r sqliteRepositories) Comments() CommentRepository { return r.tx.Comments() }
func (r sqliteRepositories) Users() UserRepository       { return r.tx.Users() }
