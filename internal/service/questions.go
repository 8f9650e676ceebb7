package service

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/wb-go/wbf/ginext"

	"gatherly/internal/dto"
	"gatherly/internal/model"
	"gatherly/internal/repo"
)

func (s *service) AskQuestion(ctx *ginext.Context) {
	var payload map[string]json.RawMessage
	if err := json.NewDecoder(ctx.Request.Body).Decode(&payload); err != nil {
		dto.BadRequestError(ctx, dto.MsgInvalidField)
		return
	}
	for key := range payload {
		if key != "question" {
			dto.BadRequestError(ctx, "Extra field(s) present")
			return
		}
	}

	eventID, err := strconv.ParseInt(ctx.Param("event_id"), 10, 64)
	if err != nil || eventID <= 0 {
		dto.BadRequestError(ctx, "Invalid event ID")
		return
	}

	var text string
	if raw, present := payload["question"]; present {
		_ = json.Unmarshal(raw, &text)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		dto.BadRequestError(ctx, "Question must not be empty")
		return
	}

	user := s.requireUser(ctx)
	if user == nil {
		return
	}

	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.BadRequestError(ctx, "Event does not exist")
			return
		}
		s.log.Error().Err(err).Msg("failed to get event")
		dto.InternalServerError(ctx)
		return
	}

	if event.CreatorID == user.ID {
		dto.ForbiddenError(ctx, "You cannot ask a question on your own event")
		return
	}

	attending, err := s.repo.IsAttendee(ctx.Request.Context(), eventID, user.ID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to check attendance")
		dto.InternalServerError(ctx)
		return
	}
	if !attending {
		dto.ForbiddenError(ctx, "You can only ask questions on events you attend")
		return
	}

	id, err := s.repo.CreateQuestion(ctx.Request.Context(), &model.Question{
		Text:    s.filter.Censor(text),
		AskedBy: user.ID,
		EventID: eventID,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create question")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int64("question_id", id).Int64("event_id", eventID).Msg("question created")
	dto.SuccessCreatedResponse(ctx, dto.CreateQuestionResponse{QuestionID: id})
}

func (s *service) DeleteQuestion(ctx *ginext.Context) {
	if ctx.GetHeader(authHeader) == "" {
		dto.UnauthorizedError(ctx, "Missing session token")
		return
	}

	questionID, err := strconv.ParseInt(ctx.Param("question_id"), 10, 64)
	if err != nil || questionID <= 0 {
		dto.NotFoundError(ctx)
		return
	}

	user := s.requireUser(ctx)
	if user == nil {
		return
	}

	qc, err := s.repo.GetQuestion(ctx.Request.Context(), questionID)
	if err != nil {
		if errors.Is(err, repo.ErrQuestionNotFound) {
			dto.NotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to get question")
		dto.InternalServerError(ctx)
		return
	}

	// Only the author or the owning event's creator may remove it.
	if qc.Question.AskedBy != user.ID && qc.EventCreatorID != user.ID {
		dto.ForbiddenError(ctx, "You can only delete your own questions or questions on your own events")
		return
	}

	if err := s.repo.DeleteQuestion(ctx.Request.Context(), questionID); err != nil {
		if errors.Is(err, repo.ErrQuestionNotFound) {
			dto.NotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to delete question")
		dto.InternalServerError(ctx)
		return
	}

	dto.SuccessEmptyResponse(ctx)
}

func (s *service) UpvoteQuestion(ctx *ginext.Context) {
	s.vote(ctx, 1)
}

func (s *service) DownvoteQuestion(ctx *ginext.Context) {
	s.vote(ctx, -1)
}

// vote records a one-shot vote in the given direction. A voter who has
// already voted on the question, in either direction, is rejected.
func (s *service) vote(ctx *ginext.Context, delta int) {
	if ctx.GetHeader(authHeader) == "" {
		dto.UnauthorizedError(ctx, "Missing session token")
		return
	}

	questionID, err := strconv.ParseInt(ctx.Param("question_id"), 10, 64)
	if err != nil || questionID <= 0 {
		dto.NotFoundError(ctx)
		return
	}

	user := s.requireUser(ctx)
	if user == nil {
		return
	}

	err = s.repo.VoteTx(ctx.Request.Context(), questionID, user.ID, delta)
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrQuestionNotFound):
		dto.NotFoundError(ctx)
		return
	case errors.Is(err, repo.ErrAlreadyVoted):
		dto.ForbiddenError(ctx, dto.MsgAlreadyVoted)
		return
	default:
		s.log.Error().Err(err).Msg("failed to record vote")
		dto.InternalServerError(ctx)
		return
	}

	dto.SuccessEmptyResponse(ctx)
}
