package service

import (
	"strconv"

	"github.com/wb-go/wbf/ginext"

	"gatherly/internal/dto"
	"gatherly/internal/repo"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

func (s *service) Search(ctx *ginext.Context) {
	filter := repo.SearchFilter{
		Query:  ctx.Query("q"),
		Status: ctx.Query("status"),
		Now:    s.now(),
		Limit:  defaultSearchLimit,
	}

	if raw := ctx.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			dto.BadRequestError(ctx, "Invalid limit")
			return
		}
		filter.Limit = limit
	}
	if raw := ctx.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			dto.BadRequestError(ctx, "Invalid offset")
			return
		}
		filter.Offset = offset
	}
	if filter.Limit < 1 || filter.Limit > maxSearchLimit || filter.Offset < 0 {
		dto.BadRequestError(ctx, "Limit or offset out of range")
		return
	}

	switch filter.Status {
	case "", repo.StatusMyEvents, repo.StatusAttending, repo.StatusOpen, repo.StatusArchive:
	default:
		dto.BadRequestError(ctx, "Invalid status")
		return
	}

	requester, err := s.currentUser(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to resolve session token")
		dto.InternalServerError(ctx)
		return
	}
	if requester != nil {
		filter.UserID = requester.ID
	}

	// MY_EVENTS and ATTENDING are meaningless without an identity.
	if (filter.Status == repo.StatusMyEvents || filter.Status == repo.StatusAttending) && requester == nil {
		dto.UnauthorizedError(ctx, "Authentication required for this status")
		return
	}

	if raw := ctx.Query("category"); raw != "" {
		if raw == "undefined" {
			filter.NoCategory = true
		} else {
			categoryID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || categoryID <= 0 {
				dto.BadRequestError(ctx, "Invalid category")
				return
			}
			filter.CategoryID = categoryID
		}
	}

	results, err := s.repo.SearchEvents(ctx.Request.Context(), filter)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to search events")
		dto.InternalServerError(ctx)
		return
	}

	events := make([]dto.EventSummaryResponse, 0, len(results))
	for _, ec := range results {
		events = append(events, dto.EventSummaryResponse{
			EventID: ec.Event.ID,
			Creator: dto.CreatorResponse{
				CreatorID: ec.Creator.ID,
				FirstName: ec.Creator.FirstName,
				LastName:  ec.Creator.LastName,
				Email:     ec.Creator.Email,
			},
			Name:              ec.Event.Name,
			Description:       ec.Event.Description,
			Location:          ec.Event.Location,
			Start:             ec.Event.StartDate,
			CloseRegistration: ec.Event.CloseRegistration,
			MaxAttendees:      ec.Event.MaxAttendees,
		})
	}

	dto.SuccessResponse(ctx, events)
}

func (s *service) ListCategories(ctx *ginext.Context) {
	categories, err := s.repo.ListCategories(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list categories")
		dto.InternalServerError(ctx)
		return
	}

	resp := make([]dto.CategoryResponse, 0, len(categories))
	for _, c := range categories {
		resp = append(resp, dto.CategoryResponse{CategoryID: c.ID, Name: c.Name})
	}
	dto.SuccessResponse(ctx, resp)
}
