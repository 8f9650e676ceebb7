package service

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/wb-go/wbf/ginext"

	"gatherly/internal/dto"
	"gatherly/internal/model"
	"gatherly/internal/repo"
)

// eventPayload holds a decoded request body with fields still raw, so
// present-but-empty and absent can be told apart.
type eventPayload map[string]json.RawMessage

func decodeEventPayload(ctx *ginext.Context, allowed ...string) (eventPayload, bool) {
	var payload eventPayload
	if err := json.NewDecoder(ctx.Request.Body).Decode(&payload); err != nil {
		return nil, false
	}
	for key := range payload {
		known := false
		for _, a := range allowed {
			if key == a {
				known = true
				break
			}
		}
		if !known {
			return nil, false
		}
	}
	return payload, true
}

// parseText extracts a JSON string that must be non-empty after trimming.
func parseText(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// parseEpoch accepts an integral JSON number or a numeric string. The
// empty string is rejected rather than read as zero.
func parseEpoch(raw json.RawMessage) (int64, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case string:
		n = strings.TrimSpace(n)
		if n == "" {
			return 0, false
		}
		parsed, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// parseCategoryIDs requires a set of unique positive integers.
func parseCategoryIDs(raw json.RawMessage) ([]int64, bool) {
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, false
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, false
		}
		if _, dup := seen[id]; dup {
			return nil, false
		}
		seen[id] = struct{}{}
	}
	return ids, true
}

var eventFields = []string{"name", "description", "location", "start", "close_registration", "max_attendees", "categories"}

func (s *service) CreateEvent(ctx *ginext.Context) {
	user := s.requireUser(ctx)
	if user == nil {
		return
	}

	payload, ok := decodeEventPayload(ctx, eventFields...)
	if !ok {
		dto.BadRequestError(ctx, dto.MsgInvalidField)
		return
	}

	event := model.Event{CreatorID: user.ID}

	if raw, present := payload["name"]; !present {
		dto.BadRequestError(ctx, "Invalid name")
		return
	} else if event.Name, ok = parseText(raw); !ok {
		dto.BadRequestError(ctx, "Invalid name")
		return
	}
	if raw, present := payload["description"]; !present {
		dto.BadRequestError(ctx, "Invalid description")
		return
	} else if event.Description, ok = parseText(raw); !ok {
		dto.BadRequestError(ctx, "Invalid description")
		return
	}
	if raw, present := payload["location"]; !present {
		dto.BadRequestError(ctx, "Invalid location")
		return
	} else if event.Location, ok = parseText(raw); !ok {
		dto.BadRequestError(ctx, "Invalid location")
		return
	}

	if raw, present := payload["start"]; !present {
		dto.BadRequestError(ctx, "Invalid start time")
		return
	} else if event.StartDate, ok = parseEpoch(raw); !ok || event.StartDate < 0 {
		dto.BadRequestError(ctx, "Invalid start time")
		return
	}
	if raw, present := payload["close_registration"]; !present {
		dto.BadRequestError(ctx, "Invalid close registration time")
		return
	} else if event.CloseRegistration, ok = parseEpoch(raw); !ok || event.CloseRegistration < 0 {
		dto.BadRequestError(ctx, "Invalid close registration time")
		return
	}
	if raw, present := payload["max_attendees"]; !present {
		dto.BadRequestError(ctx, "Invalid max attendees")
		return
	} else {
		max, ok := parseEpoch(raw)
		if !ok || max <= 0 {
			dto.BadRequestError(ctx, "Invalid max attendees")
			return
		}
		event.MaxAttendees = int(max)
	}

	now := s.now()
	if event.StartDate <= now {
		dto.BadRequestError(ctx, "Start time must be in the future")
		return
	}
	if event.CloseRegistration > event.StartDate {
		dto.BadRequestError(ctx, "Registration cannot close after event start")
		return
	}

	var categoryIDs []int64
	if raw, present := payload["categories"]; present {
		categoryIDs, ok = parseCategoryIDs(raw)
		if !ok {
			dto.BadRequestError(ctx, "Invalid categories")
			return
		}
		exist, err := s.repo.CategoriesExist(ctx.Request.Context(), categoryIDs)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to check categories")
			dto.InternalServerError(ctx)
			return
		}
		if !exist {
			dto.BadRequestError(ctx, "Unknown category")
			return
		}
	}

	id, err := s.repo.CreateEvent(ctx.Request.Context(), &event, categoryIDs)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create event")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int64("event_id", id).Int64("creator_id", user.ID).Msg("event created")
	dto.SuccessCreatedResponse(ctx, dto.CreateEventResponse{EventID: id})
}

func (s *service) GetEvent(ctx *ginext.Context) {
	eventID, err := strconv.ParseInt(ctx.Param("event_id"), 10, 64)
	if err != nil || eventID <= 0 {
		dto.NotFoundError(ctx)
		return
	}

	// Auth is optional here; a stale token just means an anonymous view.
	requester, err := s.currentUser(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to resolve session token")
		dto.InternalServerError(ctx)
		return
	}

	ec, err := s.repo.GetEventWithCreator(ctx.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.NotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to get event")
		dto.InternalServerError(ctx)
		return
	}

	count, err := s.repo.CountAttendees(ctx.Request.Context(), eventID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to count attendees")
		dto.InternalServerError(ctx)
		return
	}

	resp := dto.EventDetailResponse{
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
		NumberAttending:   count,
	}

	// The attendee list is for the creator's eyes only.
	if requester != nil && requester.ID == ec.Event.CreatorID {
		attendees, err := s.repo.ListAttendees(ctx.Request.Context(), eventID)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to list attendees")
			dto.InternalServerError(ctx)
			return
		}
		for _, a := range attendees {
			resp.Attendees = append(resp.Attendees, dto.AttendeeResponse{
				UserID:    a.ID,
				FirstName: a.FirstName,
				LastName:  a.LastName,
				Email:     a.Email,
			})
		}
	}

	questions, err := s.repo.ListEventQuestions(ctx.Request.Context(), eventID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list questions")
		dto.InternalServerError(ctx)
		return
	}
	resp.Questions = make([]dto.QuestionResponse, 0, len(questions))
	for _, q := range questions {
		qr := dto.QuestionResponse{
			QuestionID: q.Question.ID,
			Question:   q.Question.Text,
			Votes:      q.Question.Votes,
		}
		if q.Question.AskedBy > 0 {
			qr.AskedBy = &dto.AskedByResponse{UserID: q.Question.AskedBy, FirstName: q.AskedByFirstName}
		}
		resp.Questions = append(resp.Questions, qr)
	}

	categories, err := s.repo.EventCategories(ctx.Request.Context(), eventID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list event categories")
		dto.InternalServerError(ctx)
		return
	}
	if len(categories) == 0 {
		resp.Categories = []dto.CategoryResponse{{CategoryID: 0, Name: "Undefined"}}
	} else {
		for _, c := range categories {
			resp.Categories = append(resp.Categories, dto.CategoryResponse{CategoryID: c.ID, Name: c.Name})
		}
	}

	dto.SuccessResponse(ctx, resp)
}

func (s *service) UpdateEvent(ctx *ginext.Context) {
	eventID, err := strconv.ParseInt(ctx.Param("event_id"), 10, 64)
	if err != nil || eventID <= 0 {
		dto.NotFoundError(ctx)
		return
	}

	user := s.requireUser(ctx)
	if user == nil {
		return
	}

	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.NotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to get event")
		dto.InternalServerError(ctx)
		return
	}

	if event.CreatorID != user.ID {
		dto.ForbiddenError(ctx, "You can only update your own events")
		return
	}

	payload, ok := decodeEventPayload(ctx, eventFields...)
	if !ok {
		dto.BadRequestError(ctx, dto.MsgInvalidField)
		return
	}

	var upd repo.EventUpdate
	now := s.now()

	if raw, present := payload["name"]; present {
		name, ok := parseText(raw)
		if !ok {
			dto.BadRequestError(ctx, "Invalid name")
			return
		}
		upd.Name = &name
	}
	if raw, present := payload["description"]; present {
		description, ok := parseText(raw)
		if !ok {
			dto.BadRequestError(ctx, "Invalid description")
			return
		}
		upd.Description = &description
	}
	if raw, present := payload["location"]; present {
		location, ok := parseText(raw)
		if !ok {
			dto.BadRequestError(ctx, "Invalid location")
			return
		}
		upd.Location = &location
	}
	if raw, present := payload["start"]; present {
		start, ok := parseEpoch(raw)
		if !ok || start < 0 {
			dto.BadRequestError(ctx, "Invalid start time")
			return
		}
		if start <= now {
			dto.BadRequestError(ctx, "Start time must be in the future")
			return
		}
		upd.StartDate = &start
	}
	if raw, present := payload["close_registration"]; present {
		closeReg, ok := parseEpoch(raw)
		if !ok || closeReg < 0 {
			dto.BadRequestError(ctx, "Invalid close registration time")
			return
		}
		// Compare against the start actually taking effect.
		effectiveStart := event.StartDate
		if upd.StartDate != nil {
			effectiveStart = *upd.StartDate
		}
		if closeReg > effectiveStart {
			dto.BadRequestError(ctx, "Registration cannot close after event start")
			return
		}
		upd.CloseRegistration = &closeReg
	}
	if raw, present := payload["max_attendees"]; present {
		max, ok := parseEpoch(raw)
		if !ok || max <= 0 {
			dto.BadRequestError(ctx, "Invalid max attendees")
			return
		}
		maxAttendees := int(max)
		upd.MaxAttendees = &maxAttendees
	}
	if raw, present := payload["categories"]; present {
		ids, ok := parseCategoryIDs(raw)
		if !ok {
			dto.BadRequestError(ctx, "Invalid categories")
			return
		}
		exist, err := s.repo.CategoriesExist(ctx.Request.Context(), ids)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to check categories")
			dto.InternalServerError(ctx)
			return
		}
		if !exist {
			dto.BadRequestError(ctx, "Unknown category")
			return
		}
		upd.Categories = ids
		upd.ReplaceCategories = true
	}

	noFieldChange := upd.Name == nil && upd.Description == nil && upd.Location == nil &&
		upd.StartDate == nil && upd.CloseRegistration == nil && upd.MaxAttendees == nil
	if noFieldChange && !upd.ReplaceCategories {
		dto.SuccessEmptyResponse(ctx)
		return
	}

	if err := s.repo.UpdateEvent(ctx.Request.Context(), eventID, upd); err != nil {
		s.log.Error().Err(err).Msg("failed to update event")
		dto.InternalServerError(ctx)
		return
	}

	dto.SuccessEmptyResponse(ctx)
}

func (s *service) DeleteEvent(ctx *ginext.Context) {
	eventID, err := strconv.ParseInt(ctx.Param("event_id"), 10, 64)
	if err != nil || eventID <= 0 {
		dto.NotFoundError(ctx)
		return
	}

	user := s.requireUser(ctx)
	if user == nil {
		return
	}

	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.NotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to get event")
		dto.InternalServerError(ctx)
		return
	}

	if event.CreatorID != user.ID {
		dto.ForbiddenError(ctx, "You can only delete your own events")
		return
	}

	if err := s.repo.CancelEvent(ctx.Request.Context(), eventID); err != nil {
		s.log.Error().Err(err).Msg("failed to cancel event")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int64("event_id", eventID).Msg("event cancelled")
	s.publishNotice(dto.NotificationMessage{Type: dto.NoticeEventCancelled, EventID: eventID})

	dto.SuccessEmptyResponse(ctx)
}

func (s *service) RegisterAttendee(ctx *ginext.Context) {
	eventID, err := strconv.ParseInt(ctx.Param("event_id"), 10, 64)
	if err != nil || eventID <= 0 {
		dto.NotFoundError(ctx)
		return
	}

	user := s.requireUser(ctx)
	if user == nil {
		return
	}

	err = s.repo.RegisterAttendeeTx(ctx.Request.Context(), eventID, user.ID, s.now())
	switch {
	case err == nil:
	case errors.Is(err, repo.ErrEventNotFound):
		dto.NotFoundError(ctx)
		return
	case errors.Is(err, repo.ErrAlreadyRegistered):
		dto.ForbiddenError(ctx, dto.MsgAlreadyRegistered)
		return
	case errors.Is(err, repo.ErrRegistrationClosed):
		dto.ForbiddenError(ctx, dto.MsgRegistrationClose)
		return
	case errors.Is(err, repo.ErrEventFull):
		dto.ForbiddenError(ctx, dto.MsgEventCapacity)
		return
	default:
		s.log.Error().Err(err).Msg("failed to register attendee")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int64("event_id", eventID).Int64("user_id", user.ID).Msg("attendee registered")
	s.publishNotice(dto.NotificationMessage{Type: dto.NoticeRegistration, EventID: eventID, UserID: user.ID})

	dto.SuccessEmptyResponse(ctx)
}

// publishNotice hands a notification to the worker queue. Delivery is
// best-effort; a broker hiccup never fails the HTTP request.
func (s *service) publishNotice(msg dto.NotificationMessage) {
	if s.rbt == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal notification message")
		return
	}
	if err := s.rbt.Publish(payload); err != nil {
		s.log.Error().Err(err).Msg("failed to publish notification message")
	}
}
