package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"lastmile/internal/core/domain/model/participant"
	"lastmile/internal/core/ports"
	"lastmile/internal/pkg/errs"
	"lastmile/internal/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	HeaderParticipantID = "X-Participant-ID"

	sessionContextKey = "session"
)

var ErrUnknownParticipant = errors.New("participant has no profile")

// SessionResolver turns a participant id into a Session. Profiles are read
// from the identity store on a cache miss and then cached.
type SessionResolver struct {
	profiles ports.ProfileRepository
	cache    ports.SessionCache
	logger   *zap.Logger
}

// NewSessionResolver creates a resolver. cache may be nil.
func NewSessionResolver(profiles ports.ProfileRepository, cache ports.SessionCache, l *zap.Logger) SessionResolver {
	return SessionResolver{
		profiles: profiles,
		cache:    cache,
		logger:   logger.Component(l, "session_resolver"),
	}
}

func (r SessionResolver) Resolve(ctx context.Context, participantID string) (participant.Session, error) {
	if r.cache != nil {
		profile, ok, err := r.cache.Get(ctx, participantID)
		if err != nil {
			r.logger.Warn("session cache read failed", zap.String("participant_id", participantID), zap.Error(err))
		}
		if ok {
			return profile.Session()
		}
	}

	profile, err := r.profiles.Get(ctx, participantID)
	if errors.Is(err, errs.ErrObjectNotFound) {
		return participant.Session{}, ErrUnknownParticipant
	}
	if err != nil {
		return participant.Session{}, err
	}

	if r.cache != nil {
		if err = r.cache.Set(ctx, profile); err != nil {
			r.logger.Warn("session cache write failed", zap.String("participant_id", participantID), zap.Error(err))
		}
	}

	return profile.Session()
}

// Middleware rejects requests without a known participant and stores the
// resolved session in the echo context.
func (r SessionResolver) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			participantID := strings.TrimSpace(c.Request().Header.Get(HeaderParticipantID))
			if participantID == "" {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Code:    http.StatusUnauthorized,
					Message: "Missing " + HeaderParticipantID + " header",
				})
			}

			session, err := r.Resolve(c.Request().Context(), participantID)
			if errors.Is(err, ErrUnknownParticipant) {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Code:    http.StatusUnauthorized,
					Message: "Unknown participant",
				})
			}
			if errors.Is(err, errs.ErrValueIsInvalid) {
				r.logger.Warn("profile kind not supported", zap.String("participant_id", participantID), zap.Error(err))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Code:    http.StatusUnauthorized,
					Message: "Unsupported profile kind",
				})
			}
			if err != nil {
				r.logger.Error("session resolution failed", zap.String("participant_id", participantID), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, ErrorResponse{
					Code:    http.StatusInternalServerError,
					Message: "Failed to resolve session",
				})
			}

			c.Set(sessionContextKey, session)
			return next(c)
		}
	}
}

func sessionFrom(c echo.Context) participant.Session {
	session, _ := c.Get(sessionContextKey).(participant.Session)
	return session
}
