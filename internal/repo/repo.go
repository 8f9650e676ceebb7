package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"gatherly/internal/model"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("duplicate email")
	ErrSessionNotFound    = errors.New("session not found")
	ErrEventNotFound      = errors.New("event not found")
	ErrRegistrationClosed = errors.New("registration is closed")
	ErrEventFull          = errors.New("event is at capacity")
	ErrAlreadyRegistered  = errors.New("already registered")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrAlreadyVoted       = errors.New("already voted")
	ErrCategoryNotFound   = errors.New("category not found")
)

// EventUpdate carries the partial-field update for an event. Nil means
// "leave unchanged". Categories, when non-nil, fully replaces the
// event's category associations.
type EventUpdate struct {
	Name              *string
	Description       *string
	Location          *string
	StartDate         *int64
	CloseRegistration *int64
	MaxAttendees      *int
	Categories        []int64
	ReplaceCategories bool
}

// EventWithCreator is an event row joined with its creator's public profile.
type EventWithCreator struct {
	Event   model.Event
	Creator model.User
}

// QuestionWithContext is a question joined with the owning event's
// creator, enough to decide who may delete it.
type QuestionWithContext struct {
	Question       model.Question
	EventCreatorID int64
}

// QuestionDetail is a question joined with the asker's first name for
// the event detail view.
type QuestionDetail struct {
	Question         model.Question
	AskedByFirstName string
}

type Repository interface {
	CreateUser(ctx context.Context, u *model.User) (int64, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByToken(ctx context.Context, token string) (*model.User, error)
	SessionForUser(ctx context.Context, userID int64) (*model.Session, error)
	CreateSession(ctx context.Context, s *model.Session) error
	DeleteSession(ctx context.Context, token string) error

	CreateEvent(ctx context.Context, e *model.Event, categoryIDs []int64) (int64, error)
	GetEventByID(ctx context.Context, id int64) (*model.Event, error)
	GetEventWithCreator(ctx context.Context, id int64) (*EventWithCreator, error)
	UpdateEvent(ctx context.Context, id int64, upd EventUpdate) error
	CancelEvent(ctx context.Context, id int64) error
	CountAttendees(ctx context.Context, eventID int64) (int, error)
	ListAttendees(ctx context.Context, eventID int64) ([]model.User, error)
	IsAttendee(ctx context.Context, eventID, userID int64) (bool, error)
	RegisterAttendeeTx(ctx context.Context, eventID, userID, now int64) error

	CreateQuestion(ctx context.Context, q *model.Question) (int64, error)
	GetQuestion(ctx context.Context, id int64) (*QuestionWithContext, error)
	ListEventQuestions(ctx context.Context, eventID int64) ([]QuestionDetail, error)
	DeleteQuestion(ctx context.Context, id int64) error
	VoteTx(ctx context.Context, questionID, voterID int64, delta int) error

	ListCategories(ctx context.Context) ([]model.Category, error)
	CategoriesExist(ctx context.Context, ids []int64) (bool, error)
	EventCategories(ctx context.Context, eventID int64) ([]model.Category, error)

	SearchEvents(ctx context.Context, f SearchFilter) ([]EventWithCreator, error)

	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) MigrateUp(migrationsDir string) error {
	return r.applyMigrations(migrationsDir, "*.up.sql")
}

func (r *repository) MigrateDown(migrationsDir string) error {
	return r.applyMigrations(migrationsDir, "*.down.sql")
}

func (r *repository) applyMigrations(migrationsDir, pattern string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, pattern))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations (%s) applied from %s", pattern, migrationsDir)
	return nil
}
