package service

import (
	"context"
	"net/http"
	"testing"

	"gatherly/internal/dto"
	"gatherly/internal/model"
)

// askFixture seeds a creator-owned event with Bob registered as an
// attendee, ready for question traffic.
func askFixture(t *testing.T) (*fixture, *model.Event, string, string) {
	t.Helper()
	f := newFixture(t)
	creator, creatorToken := f.addUser(t, "Ada", "ada@example.com")
	bob, bobToken := f.addUser(t, "Bob", "bob@example.com")
	event := f.addEvent(t, creator.ID, 1_700_100_000, 1_700_050_000, 10)
	f.repo.attendees[event.ID] = []int64{bob.ID}
	return f, event, creatorToken, bobToken
}

func TestAskQuestion(t *testing.T) {
	f, event, _, bobToken := askFixture(t)

	w := f.do(f.svc.AskQuestion, http.MethodPost, "/event/1/question",
		map[string]any{"question": "Is there parking?"}, bobToken, param("event_id", "1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("ask: got %d, want 201 (%s)", w.Code, w.Body.String())
	}
	resp := decodeBody[dto.CreateQuestionResponse](t, w)

	q := f.repo.questions[resp.QuestionID]
	if q == nil || q.EventID != event.ID || q.Votes != 0 {
		t.Fatalf("question not stored: %+v", q)
	}
}

func TestAskQuestionCensorsProfanity(t *testing.T) {
	f, _, _, bobToken := askFixture(t)

	w := f.do(f.svc.AskQuestion, http.MethodPost, "/event/1/question",
		map[string]any{"question": "Why is this crap so late?"}, bobToken, param("event_id", "1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("ask: got %d, want 201 (%s)", w.Code, w.Body.String())
	}
	resp := decodeBody[dto.CreateQuestionResponse](t, w)
	if got := f.repo.questions[resp.QuestionID].Text; got != "Why is this **** so late?" {
		t.Fatalf("question not censored: %q", got)
	}
}

func TestAskQuestionRestrictions(t *testing.T) {
	f, _, creatorToken, _ := askFixture(t)
	_, strangerToken := f.addUser(t, "Carol", "carol@example.com")

	body := map[string]any{"question": "Is there parking?"}
	cases := []struct {
		name    string
		body    any
		token   string
		eventID string
		code    int
		message string
	}{
		{"extra field", map[string]any{"question": "Hi?", "urgent": true}, strangerToken, "1",
			http.StatusBadRequest, "Extra field(s) present"},
		{"bad event id", body, strangerToken, "abc",
			http.StatusBadRequest, "Invalid event ID"},
		{"empty question", map[string]any{"question": "  "}, strangerToken, "1",
			http.StatusBadRequest, "Question must not be empty"},
		{"anonymous", body, "", "1", http.StatusUnauthorized, ""},
		{"missing event", body, strangerToken, "42",
			http.StatusBadRequest, "Event does not exist"},
		{"creator asks own event", body, creatorToken, "1",
			http.StatusForbidden, "You cannot ask a question on your own event"},
		{"non-attendee", body, strangerToken, "1",
			http.StatusForbidden, "You can only ask questions on events you attend"},
	}
	for _, tc := range cases {
		w := f.do(f.svc.AskQuestion, http.MethodPost, "/event/"+tc.eventID+"/question",
			tc.body, tc.token, param("event_id", tc.eventID))
		if w.Code != tc.code {
			t.Errorf("%s: got %d, want %d (%s)", tc.name, w.Code, tc.code, w.Body.String())
			continue
		}
		if tc.message != "" {
			if got := decodeBody[dto.ErrorResponse](t, w).ErrorMessage; got != tc.message {
				t.Errorf("%s: got message %q, want %q", tc.name, got, tc.message)
			}
		}
	}
	if len(f.repo.questions) != 0 {
		t.Fatalf("rejected asks must not store questions: %d stored", len(f.repo.questions))
	}
}

func TestDeleteQuestionPermissions(t *testing.T) {
	f, event, creatorToken, bobToken := askFixture(t)
	carol, carolToken := f.addUser(t, "Carol", "carol@example.com")
	f.repo.attendees[event.ID] = append(f.repo.attendees[event.ID], carol.ID)

	seed := func() int64 {
		bob, _ := f.repo.GetUserByEmail(context.Background(), "bob@example.com")
		id, _ := f.repo.CreateQuestion(context.Background(), &model.Question{
			EventID: event.ID, AskedBy: bob.ID, Text: "Parking?",
		})
		return id
	}

	qid := seed()
	if w := f.do(f.svc.DeleteQuestion, http.MethodDelete, "/question/1", nil, "", param("question_id", "1")); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous delete: got %d, want 401", w.Code)
	}
	w := f.do(f.svc.DeleteQuestion, http.MethodDelete, "/question/1", nil, carolToken, param("question_id", "1"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("bystander delete: got %d, want 403 (%s)", w.Code, w.Body.String())
	}

	// The author may delete their own question.
	if w := f.do(f.svc.DeleteQuestion, http.MethodDelete, "/question/1", nil, bobToken, param("question_id", "1")); w.Code != http.StatusOK {
		t.Fatalf("author delete: got %d, want 200", w.Code)
	}
	if _, ok := f.repo.questions[qid]; ok {
		t.Fatalf("question still stored after delete")
	}

	// So may the event creator.
	seed()
	if w := f.do(f.svc.DeleteQuestion, http.MethodDelete, "/question/2", nil, creatorToken, param("question_id", "2")); w.Code != http.StatusOK {
		t.Fatalf("creator delete: got %d, want 200", w.Code)
	}

	if w := f.do(f.svc.DeleteQuestion, http.MethodDelete, "/question/9", nil, bobToken, param("question_id", "9")); w.Code != http.StatusNotFound {
		t.Fatalf("missing question delete: got %d, want 404", w.Code)
	}
}

func TestVoteIsOneShot(t *testing.T) {
	f, event, _, bobToken := askFixture(t)
	carol, carolToken := f.addUser(t, "Carol", "carol@example.com")
	f.repo.attendees[event.ID] = append(f.repo.attendees[event.ID], carol.ID)
	bob, _ := f.repo.GetUserByEmail(context.Background(), "bob@example.com")
	qid, _ := f.repo.CreateQuestion(context.Background(), &model.Question{
		EventID: event.ID, AskedBy: bob.ID, Text: "Parking?",
	})

	w := f.do(f.svc.UpvoteQuestion, http.MethodPost, "/question/1/vote", nil, bobToken, param("question_id", "1"))
	if w.Code != http.StatusOK {
		t.Fatalf("upvote: got %d, want 200 (%s)", w.Code, w.Body.String())
	}
	if f.repo.questions[qid].Votes != 1 {
		t.Fatalf("votes = %d, want 1", f.repo.questions[qid].Votes)
	}

	// Bob has spent his vote; removing it afterwards is refused too.
	w = f.do(f.svc.UpvoteQuestion, http.MethodPost, "/question/1/vote", nil, bobToken, param("question_id", "1"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("second upvote: got %d, want 403", w.Code)
	}
	w = f.do(f.svc.DownvoteQuestion, http.MethodDelete, "/question/1/vote", nil, bobToken, param("question_id", "1"))
	if w.Code != http.StatusForbidden {
		t.Fatalf("downvote after upvote: got %d, want 403", w.Code)
	}
	if got := decodeBody[dto.ErrorResponse](t, w).ErrorMessage; got != dto.MsgAlreadyVoted {
		t.Fatalf("unexpected message %q", got)
	}
	if f.repo.questions[qid].Votes != 1 {
		t.Fatalf("votes changed after rejected votes: %d", f.repo.questions[qid].Votes)
	}

	// A fresh voter can still push the tally down.
	w = f.do(f.svc.DownvoteQuestion, http.MethodDelete, "/question/1/vote", nil, carolToken, param("question_id", "1"))
	if w.Code != http.StatusOK {
		t.Fatalf("carol downvote: got %d, want 200", w.Code)
	}
	if f.repo.questions[qid].Votes != 0 {
		t.Fatalf("votes = %d, want 0", f.repo.questions[qid].Votes)
	}
}

func TestVotesCanGoNegative(t *testing.T) {
	f, event, _, bobToken := askFixture(t)
	bob, _ := f.repo.GetUserByEmail(context.Background(), "bob@example.com")
	qid, _ := f.repo.CreateQuestion(context.Background(), &model.Question{
		EventID: event.ID, AskedBy: bob.ID, Text: "Parking?",
	})

	w := f.do(f.svc.DownvoteQuestion, http.MethodDelete, "/question/1/vote", nil, bobToken, param("question_id", "1"))
	if w.Code != http.StatusOK {
		t.Fatalf("downvote: got %d, want 200 (%s)", w.Code, w.Body.String())
	}
	if f.repo.questions[qid].Votes != -1 {
		t.Fatalf("votes = %d, want -1", f.repo.questions[qid].Votes)
	}
}

func TestVoteMissingQuestion(t *testing.T) {
	f, _, _, bobToken := askFixture(t)
	for name, id := range map[string]string{"absent": "5", "junk": "zzz"} {
		w := f.do(f.svc.UpvoteQuestion, http.MethodPost, "/question/"+id+"/vote", nil, bobToken, param("question_id", id))
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: got %d, want 404", name, w.Code)
		}
	}
	if w := f.do(f.svc.UpvoteQuestion, http.MethodPost, "/question/1/vote", nil, "", param("question_id", "1")); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous vote: got %d, want 401", w.Code)
	}
}
