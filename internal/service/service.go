package service

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"gatherly/internal/dto"
	"gatherly/internal/model"
	"gatherly/internal/repo"
	"gatherly/pkg/moderation"
)

// Publisher is the slice of the rabbit client the service needs.
type Publisher interface {
	Publish(message []byte) error
}

type Service interface {
	CreateUser(ctx *ginext.Context)
	Login(ctx *ginext.Context)
	Logout(ctx *ginext.Context)

	CreateEvent(ctx *ginext.Context)
	GetEvent(ctx *ginext.Context)
	UpdateEvent(ctx *ginext.Context)
	DeleteEvent(ctx *ginext.Context)
	RegisterAttendee(ctx *ginext.Context)

	AskQuestion(ctx *ginext.Context)
	DeleteQuestion(ctx *ginext.Context)
	UpvoteQuestion(ctx *ginext.Context)
	DownvoteQuestion(ctx *ginext.Context)

	Search(ctx *ginext.Context)
	ListCategories(ctx *ginext.Context)
}

type service struct {
	repo   repo.Repository
	log    *zerolog.Logger
	rbt    Publisher
	filter *moderation.Filter
	now    func() int64
}

func NewService(repository repo.Repository, logger *zerolog.Logger, rbt Publisher) Service {
	return &service{
		repo:   repository,
		log:    logger,
		rbt:    rbt,
		filter: moderation.NewFilter(),
		now:    func() int64 { return time.Now().Unix() },
	}
}

const authHeader = "X-Authorization"

// currentUser resolves the session token to a user. A missing or stale
// token yields (nil, nil); storage failures are the only error case.
func (s *service) currentUser(ctx *ginext.Context) (*model.User, error) {
	token := ctx.GetHeader(authHeader)
	if token == "" {
		return nil, nil
	}
	user, err := s.repo.GetUserByToken(ctx.Request.Context(), token)
	if err != nil {
		if errors.Is(err, repo.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// requireUser is currentUser plus the 401 response when unauthenticated.
// Returns nil after writing the response if the caller must bail out.
func (s *service) requireUser(ctx *ginext.Context) *model.User {
	user, err := s.currentUser(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to resolve session token")
		dto.InternalServerError(ctx)
		return nil
	}
	if user == nil {
		dto.UnauthorizedError(ctx, "Invalid session token or not logged in")
		return nil
	}
	return user
}
