package auth

import (
	"log/slog"

	"github.com/gin-contrib/sessions"
	"github.com/logto-io/go/v2/client"
)

// SessionStorage keeps Logto's sign-in state in the gin cookie session.
// Values are tokens, so only keys are logged.
type SessionStorage struct {
	session sessions.Session
	logger  *slog.Logger
}

func NewSessionStorage(session sessions.Session, logger *slog.Logger) client.Storage {
	return &SessionStorage{session: session, logger: logger}
}

func (s *SessionStorage) GetItem(key string) string {
	value, ok := s.session.Get(key).(string)
	if !ok {
		return ""
	}
	return value
}

func (s *SessionStorage) SetItem(key, value string) {
	s.session.Set(key, value)
	if err := s.session.Save(); err != nil {
		s.logger.Error("failed to save session", "key", key, "error", err)
		return
	}
	s.logger.Debug("session updated", "key", key)
}
