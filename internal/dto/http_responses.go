package dto

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"
)

const (
	MsgInvalidField      = "Invalid field(s) in request body"
	MsgDuplicateEmail    = "The email address you entered is duplicated."
	MsgBadCredentials    = "The input password is incorrect"
	MsgRegistrationClose = "Registration is closed"
	MsgEventCapacity     = "Event is at capacity"
	MsgAlreadyRegistered = "You are already registered"
	MsgAlreadyVoted      = "You have already voted on this question"
	MsgServerError       = "Server Error"
)

type ErrorResponse struct {
	ErrorMessage string `json:"error_message"`
}

type CreateUserRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,password"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type CreateUserResponse struct {
	UserID int64 `json:"user_id"`
}

type LoginResponse struct {
	UserID       int64  `json:"user_id"`
	SessionToken string `json:"session_token"`
}

type CreateEventResponse struct {
	EventID int64 `json:"event_id"`
}

type CreateQuestionResponse struct {
	QuestionID int64 `json:"question_id"`
}

type CreatorResponse struct {
	CreatorID int64  `json:"creator_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type AttendeeResponse struct {
	UserID    int64  `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type AskedByResponse struct {
	UserID    int64  `json:"user_id"`
	FirstName string `json:"first_name"`
}

type QuestionResponse struct {
	QuestionID int64            `json:"question_id"`
	Question   string           `json:"question"`
	Votes      int              `json:"votes"`
	AskedBy    *AskedByResponse `json:"asked_by"`
}

type CategoryResponse struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
}

type EventDetailResponse struct {
	EventID           int64              `json:"event_id"`
	Creator           CreatorResponse    `json:"creator"`
	Name              string             `json:"name"`
	Description       string             `json:"description"`
	Location          string             `json:"location"`
	Start             int64              `json:"start"`
	CloseRegistration int64              `json:"close_registration"`
	MaxAttendees      int                `json:"max_attendees"`
	NumberAttending   int                `json:"number_attending"`
	Attendees         []AttendeeResponse `json:"attendees,omitempty"`
	Questions         []QuestionResponse `json:"questions"`
	Categories        []CategoryResponse `json:"categories"`
}

type EventSummaryResponse struct {
	EventID           int64           `json:"event_id"`
	Creator           CreatorResponse `json:"creator"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Location          string          `json:"location"`
	Start             int64           `json:"start"`
	CloseRegistration int64           `json:"close_registration"`
	MaxAttendees      int             `json:"max_attendees"`
}

// Notification messages carried over RabbitMQ to the consumer worker.
const (
	NoticeRegistration   = "registration"
	NoticeEventCancelled = "event_cancelled"
)

type NotificationMessage struct {
	Type    string `json:"type"`
	EventID int64  `json:"event_id"`
	UserID  int64  `json:"user_id,omitempty"`
}

func BadRequestError(c *ginext.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{ErrorMessage: msg})
}

func UnauthorizedError(c *ginext.Context, msg string) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{ErrorMessage: msg})
}

func ForbiddenError(c *ginext.Context, msg string) {
	c.JSON(http.StatusForbidden, ErrorResponse{ErrorMessage: msg})
}

func NotFoundError(c *ginext.Context) {
	c.JSON(http.StatusNotFound, ErrorResponse{ErrorMessage: "Not found"})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{ErrorMessage: MsgServerError})
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func SuccessEmptyResponse(c *ginext.Context) {
	c.Status(http.StatusOK)
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusCreated, data)
}
