// Package auth implements browser sign-in through Logto. Signed-in callers
// are identified by the subject of their ID token.
package auth

import (
	"log/slog"
	"net/http"

	"github.com/agrineural/agrineural/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/logto-io/go/v2/client"
)

const afterSignInPath = "/api/v1/profile"

type LogtoHandler struct {
	config *config.LogtoConfig
	logger *slog.Logger
}

func NewLogtoHandler(cfg *config.LogtoConfig, logger *slog.Logger) *LogtoHandler {
	return &LogtoHandler{config: cfg, logger: logger.With("component", "logto")}
}

func (h *LogtoHandler) client(c *gin.Context) *client.LogtoClient {
	logtoConfig := &client.LogtoConfig{
		Endpoint:  h.config.Endpoint,
		AppId:     h.config.AppID,
		AppSecret: h.config.AppSecret,
	}
	return client.NewLogtoClient(logtoConfig, NewSessionStorage(sessions.Default(c), h.logger))
}

func (h *LogtoHandler) Login(c *gin.Context) {
	signInURI, err := h.client(c).SignIn(&client.SignInOptions{
		RedirectUri: h.config.RedirectURI,
	})
	if err != nil {
		h.logger.Error("sign-in failed", "error", err)
		c.String(http.StatusInternalServerError, "failed to initiate sign-in")
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, signInURI)
}

func (h *LogtoHandler) Callback(c *gin.Context) {
	logtoClient := h.client(c)
	if err := logtoClient.HandleSignInCallback(c.Request); err != nil {
		h.logger.Warn("sign-in callback rejected", "error", err)
		c.String(http.StatusUnauthorized, "sign-in failed")
		return
	}

	c.Redirect(http.StatusFound, afterSignInPath)
}

func (h *LogtoHandler) Logout(c *gin.Context) {
	signOutURI, err := h.client(c).SignOut(h.config.PostLogoutURI)
	if err != nil {
		h.logger.Error("sign-out failed", "error", err)
		c.String(http.StatusInternalServerError, "failed to initiate sign-out")
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, signOutURI)
}

// CallerFromSession reports the signed-in caller, if any.
func (h *LogtoHandler) CallerFromSession(c *gin.Context) (string, bool) {
	logtoClient := h.client(c)
	if !logtoClient.IsAuthenticated() {
		return "", false
	}

	claims, err := logtoClient.GetIdTokenClaims()
	if err != nil || claims.Sub == "" {
		h.logger.Debug("session without usable id token", "error", err)
		return "", false
	}
	return claims.Sub, true
}
