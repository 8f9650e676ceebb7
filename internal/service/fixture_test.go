package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"gatherly/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type capturingPublisher struct {
	messages [][]byte
}

func (p *capturingPublisher) Publish(message []byte) error {
	p.messages = append(p.messages, message)
	return nil
}

type fixture struct {
	repo *fakeRepo
	pub  *capturingPublisher
	svc  *service
	now  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.Nop()
	f := &fixture{
		repo: newFakeRepo(),
		pub:  &capturingPublisher{},
		now:  1_700_000_000,
	}
	s := NewService(f.repo, &logger, f.pub).(*service)
	s.now = func() int64 { return f.now }
	f.svc = s
	return f
}

// addUser seeds a user with an active session and returns the user and
// their token.
func (f *fixture) addUser(t *testing.T, firstName, email string) (*model.User, string) {
	t.Helper()
	id, err := f.repo.CreateUser(context.Background(), &model.User{
		FirstName:    firstName,
		LastName:     "Tester",
		Email:        email,
		PasswordHash: "$2a$10$unused",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	token := fmt.Sprintf("token-%d", id)
	if err := f.repo.CreateSession(context.Background(), &model.Session{Token: token, UserID: id}); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return f.repo.users[id], token
}

func (f *fixture) addEvent(t *testing.T, creatorID int64, start, closeReg int64, maxAttendees int) *model.Event {
	t.Helper()
	id, err := f.repo.CreateEvent(context.Background(), &model.Event{
		Name:              "Launch Party",
		Description:       "All hands",
		Location:          "HQ",
		StartDate:         start,
		CloseRegistration: closeReg,
		MaxAttendees:      maxAttendees,
		CreatorID:         creatorID,
	}, nil)
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return f.repo.events[id]
}

// do runs a handler against a synthetic request and returns the recorder.
func (f *fixture) do(handler func(*ginext.Context), method, target string, body any, token string, params ...gin.Param) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			panic(err)
		}
		reader = bytes.NewReader(raw)
	}

	c.Request = httptest.NewRequest(method, target, reader)
	if token != "" {
		c.Request.Header.Set("X-Authorization", token)
	}
	c.Params = params

	handler(c)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func param(key, value string) gin.Param {
	return gin.Param{Key: key, Value: value}
}
