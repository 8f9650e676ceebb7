package consumerWorker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wb-go/wbf/zlog"

	"gatherly/internal/dto"
	"gatherly/internal/mailer"
	"gatherly/internal/rabbit"
	"gatherly/internal/repo"
)

// Reader consumes notification messages and turns them into e-mail.
// Mail failures are logged but acknowledged; only unreadable state
// (missing event, broken payload) is retried via Nack.
type Reader struct {
	RMQ    *rabbit.Client
	repo   repo.Repository
	mail   *mailer.Mailer
	done   chan struct{}
	cancel context.CancelFunc
}

func NewReader(rmq *rabbit.Client, repository repo.Repository, mail *mailer.Mailer) *Reader {
	return &Reader{
		RMQ:  rmq,
		repo: repository,
		mail: mail,
		done: make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("notification reader started")

	go func() {
		defer close(r.done)

		if err := r.RMQ.Consume(func(body []byte) error {
			return r.handle(cctx, body)
		}); err != nil {
			zlog.Logger.Error().Err(err).Msg("failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("notification reader stopped by context")
	}()
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

func (r *Reader) handle(ctx context.Context, body []byte) error {
	var msg dto.NotificationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		zlog.Logger.Error().Err(err).Msgf("failed to unmarshal message: %s", string(body))
		return err
	}

	zlog.Logger.Info().
		Str("type", msg.Type).
		Int64("event_id", msg.EventID).
		Msg("received notification message")

	event, err := r.repo.GetEventByID(ctx, msg.EventID)
	if err != nil {
		zlog.Logger.Error().Err(err).Int64("event_id", msg.EventID).Msg("failed to load event for notification")
		return err
	}

	switch msg.Type {
	case dto.NoticeRegistration:
		user, err := r.repo.GetUserByID(ctx, msg.UserID)
		if err != nil {
			zlog.Logger.Error().Err(err).Int64("user_id", msg.UserID).Msg("failed to load user for notification")
			return err
		}
		if err := r.mail.SendRegistrationConfirmed(user.Email, event.Name); err != nil {
			zlog.Logger.Warn().Err(err).Msg("failed to send registration email")
		}
		return nil

	case dto.NoticeEventCancelled:
		attendees, err := r.repo.ListAttendees(ctx, msg.EventID)
		if err != nil {
			zlog.Logger.Error().Err(err).Int64("event_id", msg.EventID).Msg("failed to list attendees for notification")
			return err
		}
		for _, a := range attendees {
			// The creator cancelled it themselves; skip them.
			if a.ID == event.CreatorID {
				continue
			}
			if err := r.mail.SendEventCancelled(a.Email, event.Name); err != nil {
				zlog.Logger.Warn().Err(err).Str("email", a.Email).Msg("failed to send cancellation email")
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown notification type %q", msg.Type)
	}
}
