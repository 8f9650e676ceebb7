package service

import (
	"context"
	"sort"
	"strings"

	"gatherly/internal/model"
	"gatherly/internal/repo"
)

// fakeRepo is an in-memory Repository used by the handler tests. It
// mirrors the storage semantics the SQL layer implements, including the
// ordered registration checks and the one-shot vote ledger.
type fakeRepo struct {
	nextUserID     int64
	nextEventID    int64
	nextQuestionID int64

	users      map[int64]*model.User
	sessions   map[string]*model.Session
	events     map[int64]*model.Event
	attendees  map[int64][]int64
	questions  map[int64]*model.Question
	votes      map[int64]map[int64]bool
	categories map[int64]string
	eventCats  map[int64][]int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:     map[int64]*model.User{},
		sessions:  map[string]*model.Session{},
		events:    map[int64]*model.Event{},
		attendees: map[int64][]int64{},
		questions: map[int64]*model.Question{},
		votes:     map[int64]map[int64]bool{},
		categories: map[int64]string{
			1: "Conference", 2: "Workshop", 3: "Social",
		},
		eventCats: map[int64][]int64{},
	}
}

var _ repo.Repository = (*fakeRepo)(nil)

func (f *fakeRepo) CreateUser(_ context.Context, u *model.User) (int64, error) {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return 0, repo.ErrDuplicateEmail
		}
	}
	f.nextUserID++
	stored := *u
	stored.ID = f.nextUserID
	f.users[stored.ID] = &stored
	return stored.ID, nil
}

func (f *fakeRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repo.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repo.ErrUserNotFound
}

func (f *fakeRepo) GetUserByToken(_ context.Context, token string) (*model.User, error) {
	s, ok := f.sessions[token]
	if !ok {
		return nil, repo.ErrSessionNotFound
	}
	return f.users[s.UserID], nil
}

func (f *fakeRepo) SessionForUser(_ context.Context, userID int64) (*model.Session, error) {
	for _, s := range f.sessions {
		if s.UserID == userID {
			return s, nil
		}
	}
	return nil, repo.ErrSessionNotFound
}

func (f *fakeRepo) CreateSession(_ context.Context, s *model.Session) error {
	stored := *s
	f.sessions[stored.Token] = &stored
	return nil
}

func (f *fakeRepo) DeleteSession(_ context.Context, token string) error {
	if _, ok := f.sessions[token]; !ok {
		return repo.ErrSessionNotFound
	}
	delete(f.sessions, token)
	return nil
}

func (f *fakeRepo) CreateEvent(_ context.Context, e *model.Event, categoryIDs []int64) (int64, error) {
	f.nextEventID++
	stored := *e
	stored.ID = f.nextEventID
	f.events[stored.ID] = &stored
	f.eventCats[stored.ID] = append([]int64(nil), categoryIDs...)
	return stored.ID, nil
}

func (f *fakeRepo) GetEventByID(_ context.Context, id int64) (*model.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, repo.ErrEventNotFound
	}
	return e, nil
}

func (f *fakeRepo) GetEventWithCreator(ctx context.Context, id int64) (*repo.EventWithCreator, error) {
	e, err := f.GetEventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &repo.EventWithCreator{Event: *e, Creator: *f.users[e.CreatorID]}, nil
}

func (f *fakeRepo) UpdateEvent(_ context.Context, id int64, upd repo.EventUpdate) error {
	e, ok := f.events[id]
	if !ok {
		return repo.ErrEventNotFound
	}
	if upd.Name != nil {
		e.Name = *upd.Name
	}
	if upd.Description != nil {
		e.Description = *upd.Description
	}
	if upd.Location != nil {
		e.Location = *upd.Location
	}
	if upd.StartDate != nil {
		e.StartDate = *upd.StartDate
	}
	if upd.CloseRegistration != nil {
		e.CloseRegistration = *upd.CloseRegistration
	}
	if upd.MaxAttendees != nil {
		e.MaxAttendees = *upd.MaxAttendees
	}
	if upd.ReplaceCategories {
		f.eventCats[id] = append([]int64(nil), upd.Categories...)
	}
	return nil
}

func (f *fakeRepo) CancelEvent(_ context.Context, id int64) error {
	e, ok := f.events[id]
	if !ok {
		return repo.ErrEventNotFound
	}
	e.CloseRegistration = model.CancelledRegistration
	return nil
}

func (f *fakeRepo) attendeeUnion(eventID int64) []int64 {
	seen := map[int64]bool{}
	var ids []int64
	if e, ok := f.events[eventID]; ok {
		seen[e.CreatorID] = true
		ids = append(ids, e.CreatorID)
	}
	for _, uid := range f.attendees[eventID] {
		if !seen[uid] {
			seen[uid] = true
			ids = append(ids, uid)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (f *fakeRepo) CountAttendees(_ context.Context, eventID int64) (int, error) {
	return len(f.attendeeUnion(eventID)), nil
}

func (f *fakeRepo) ListAttendees(_ context.Context, eventID int64) ([]model.User, error) {
	var users []model.User
	for _, uid := range f.attendeeUnion(eventID) {
		users = append(users, *f.users[uid])
	}
	return users, nil
}

func (f *fakeRepo) IsAttendee(_ context.Context, eventID, userID int64) (bool, error) {
	for _, uid := range f.attendees[eventID] {
		if uid == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) RegisterAttendeeTx(ctx context.Context, eventID, userID, now int64) error {
	e, ok := f.events[eventID]
	if !ok {
		return repo.ErrEventNotFound
	}
	if e.CreatorID == userID {
		return repo.ErrAlreadyRegistered
	}
	if now > e.CloseRegistration {
		return repo.ErrRegistrationClosed
	}
	if len(f.attendeeUnion(eventID)) >= e.MaxAttendees {
		return repo.ErrEventFull
	}
	registered, _ := f.IsAttendee(ctx, eventID, userID)
	if registered {
		return repo.ErrAlreadyRegistered
	}
	f.attendees[eventID] = append(f.attendees[eventID], userID)
	return nil
}

func (f *fakeRepo) CreateQuestion(_ context.Context, q *model.Question) (int64, error) {
	f.nextQuestionID++
	stored := *q
	stored.ID = f.nextQuestionID
	f.questions[stored.ID] = &stored
	return stored.ID, nil
}

func (f *fakeRepo) GetQuestion(_ context.Context, id int64) (*repo.QuestionWithContext, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, repo.ErrQuestionNotFound
	}
	e := f.events[q.EventID]
	return &repo.QuestionWithContext{Question: *q, EventCreatorID: e.CreatorID}, nil
}

func (f *fakeRepo) ListEventQuestions(_ context.Context, eventID int64) ([]repo.QuestionDetail, error) {
	var ids []int64
	for id, q := range f.questions {
		if q.EventID == eventID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	var details []repo.QuestionDetail
	for _, id := range ids {
		q := f.questions[id]
		details = append(details, repo.QuestionDetail{
			Question:         *q,
			AskedByFirstName: f.users[q.AskedBy].FirstName,
		})
	}
	return details, nil
}

func (f *fakeRepo) DeleteQuestion(_ context.Context, id int64) error {
	if _, ok := f.questions[id]; !ok {
		return repo.ErrQuestionNotFound
	}
	delete(f.questions, id)
	return nil
}

func (f *fakeRepo) VoteTx(_ context.Context, questionID, voterID int64, delta int) error {
	q, ok := f.questions[questionID]
	if !ok {
		return repo.ErrQuestionNotFound
	}
	if f.votes[questionID][voterID] {
		return repo.ErrAlreadyVoted
	}
	if f.votes[questionID] == nil {
		f.votes[questionID] = map[int64]bool{}
	}
	f.votes[questionID][voterID] = true
	q.Votes += delta
	return nil
}

func (f *fakeRepo) ListCategories(_ context.Context) ([]model.Category, error) {
	var ids []int64
	for id := range f.categories {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var categories []model.Category
	for _, id := range ids {
		categories = append(categories, model.Category{ID: id, Name: f.categories[id]})
	}
	return categories, nil
}

func (f *fakeRepo) CategoriesExist(_ context.Context, ids []int64) (bool, error) {
	for _, id := range ids {
		if _, ok := f.categories[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (f *fakeRepo) EventCategories(_ context.Context, eventID int64) ([]model.Category, error) {
	var categories []model.Category
	for _, id := range f.eventCats[eventID] {
		categories = append(categories, model.Category{ID: id, Name: f.categories[id]})
	}
	return categories, nil
}

func (f *fakeRepo) SearchEvents(_ context.Context, filter repo.SearchFilter) ([]repo.EventWithCreator, error) {
	var ids []int64
	for id := range f.events {
		ids = append(ids, id)
	}
	// ORDER BY start_date DESC.
	sort.Slice(ids, func(i, j int) bool {
		return f.events[ids[i]].StartDate > f.events[ids[j]].StartDate
	})

	var results []repo.EventWithCreator
	for _, id := range ids {
		e := f.events[id]
		if filter.Query != "" && !strings.Contains(e.Name, filter.Query) {
			continue
		}
		switch filter.Status {
		case repo.StatusMyEvents:
			if e.CreatorID != filter.UserID {
				continue
			}
		case repo.StatusAttending:
			registered, _ := f.IsAttendee(context.Background(), id, filter.UserID)
			if !registered || e.Cancelled() || e.StartDate < filter.Now {
				continue
			}
		case repo.StatusOpen:
			if e.CloseRegistration <= filter.Now {
				continue
			}
		case repo.StatusArchive:
			if !e.Cancelled() && e.StartDate >= filter.Now {
				continue
			}
		}
		if filter.NoCategory && len(f.eventCats[id]) > 0 {
			continue
		}
		if filter.CategoryID > 0 {
			found := false
			for _, cid := range f.eventCats[id] {
				if cid == filter.CategoryID {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		results = append(results, repo.EventWithCreator{Event: *e, Creator: *f.users[e.CreatorID]})
	}

	if filter.Offset < len(results) {
		results = results[filter.Offset:]
	} else {
		results = nil
	}
	if len(results) > filter.Limit {
		results = results[:filter.Limit]
	}
	return results, nil
}

func (f *fakeRepo) MigrateUp(string) error   { return nil }
func (f *fakeRepo) MigrateDown(string) error { return nil }
