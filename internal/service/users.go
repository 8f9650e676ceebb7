package service

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"gatherly/internal/dto"
	"gatherly/internal/model"
	"gatherly/internal/repo"
	"gatherly/pkg/validator"

	"github.com/wb-go/wbf/ginext"
)

func (s *service) CreateUser(ctx *ginext.Context) {
	dec := json.NewDecoder(ctx.Request.Body)
	dec.DisallowUnknownFields()

	var req dto.CreateUserRequest
	if err := dec.Decode(&req); err != nil {
		dto.BadRequestError(ctx, dto.MsgInvalidField)
		return
	}

	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadRequestError(ctx, verr.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to hash password")
		dto.InternalServerError(ctx)
		return
	}

	id, err := s.repo.CreateUser(ctx.Request.Context(), &model.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			dto.BadRequestError(ctx, dto.MsgDuplicateEmail)
			return
		}
		s.log.Error().Err(err).Msg("failed to create user")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int64("user_id", id).Msg("user created")
	dto.SuccessCreatedResponse(ctx, dto.CreateUserResponse{UserID: id})
}

func (s *service) Login(ctx *ginext.Context) {
	dec := json.NewDecoder(ctx.Request.Body)
	dec.DisallowUnknownFields()

	var req dto.LoginRequest
	if err := dec.Decode(&req); err != nil {
		dto.BadRequestError(ctx, "The login field is invalid")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadRequestError(ctx, "The login field is invalid")
		return
	}

	user, err := s.repo.GetUserByEmail(ctx.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			dto.BadRequestError(ctx, dto.MsgBadCredentials)
			return
		}
		s.log.Error().Err(err).Msg("failed to look up user for login")
		dto.InternalServerError(ctx)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		dto.BadRequestError(ctx, dto.MsgBadCredentials)
		return
	}

	// One active session per user: hand back the existing token if the
	// user is already logged in elsewhere.
	session, err := s.repo.SessionForUser(ctx.Request.Context(), user.ID)
	if err != nil && !errors.Is(err, repo.ErrSessionNotFound) {
		s.log.Error().Err(err).Msg("failed to look up session")
		dto.InternalServerError(ctx)
		return
	}
	if session != nil {
		dto.SuccessResponse(ctx, dto.LoginResponse{UserID: user.ID, SessionToken: session.Token})
		return
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := s.repo.CreateSession(ctx.Request.Context(), &model.Session{
		Token:  token,
		UserID: user.ID,
	}); err != nil {
		s.log.Error().Err(err).Msg("failed to create session")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int64("user_id", user.ID).Msg("user logged in")
	dto.SuccessResponse(ctx, dto.LoginResponse{UserID: user.ID, SessionToken: token})
}

func (s *service) Logout(ctx *ginext.Context) {
	token := ctx.GetHeader(authHeader)
	if token == "" {
		dto.UnauthorizedError(ctx, "Missing session token")
		return
	}

	if err := s.repo.DeleteSession(ctx.Request.Context(), token); err != nil {
		if errors.Is(err, repo.ErrSessionNotFound) {
			dto.UnauthorizedError(ctx, "Invalid session token or not logged in")
			return
		}
		s.log.Error().Err(err).Msg("failed to delete session")
		dto.InternalServerError(ctx)
		return
	}

	dto.SuccessEmptyResponse(ctx)
}
