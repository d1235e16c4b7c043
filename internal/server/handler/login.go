package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/garrettladley/minimon/internal/credentials"
	"github.com/garrettladley/minimon/internal/xslog"
)

const (
	formField = "logindata"

	messageSuccess = "success"
	messageError   = "error"
)

// CredentialStore is the part of credentials.Store the form needs.
type CredentialStore interface {
	Document() ([]byte, error)
	Save(raw []byte) ([]byte, error)
}

type ProxyRestarter interface {
	Restart(ctx context.Context) error
}

type Login struct {
	store     CredentialStore
	restarter ProxyRestarter
	timeout   time.Duration
}

// NewLogin builds the credential form handlers. restarter may be nil when the
// proxy is not managed by this process.
func NewLogin(store CredentialStore, restarter ProxyRestarter) *Login {
	return &Login{
		store:     store,
		restarter: restarter,
		timeout:   time.Minute,
	}
}

type loginPage struct {
	Content     string
	Message     string
	MessageType string
}

// HandleForm handles GET /login.
func (h *Login) HandleForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	doc, err := h.store.Document()
	switch {
	case err == nil:
	case errors.Is(err, credentials.ErrNotFound):
		doc = credentials.TemplateDocument()
	default:
		xslog.FromContext(ctx).ErrorContext(ctx, "failed to read credentials", xslog.Error(err))
		doc = []byte("{}")
	}

	render(w, r, http.StatusOK, loginTemplate, loginPage{Content: string(doc)})
}

// HandleSubmit handles POST /login. The document is validated before anything
// is written; a valid one is saved and the proxy restarted so it picks the new
// tokens up.
func (h *Login) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := xslog.FromContext(ctx)

	content := strings.TrimSpace(r.PostFormValue(formField))

	saved, err := h.store.Save([]byte(content))
	if err != nil {
		if errors.Is(err, credentials.ErrInvalidJSON) {
			logger.WarnContext(ctx, "rejected credentials", xslog.Error(err))
			render(w, r, http.StatusBadRequest, loginTemplate, loginPage{
				Content:     content,
				Message:     "Error: the content is not valid JSON. " + err.Error(),
				MessageType: messageError,
			})
			return
		}
		logger.ErrorContext(ctx, "failed to save credentials", xslog.Error(err))
		render(w, r, http.StatusInternalServerError, loginTemplate, loginPage{
			Content:     content,
			Message:     "Error saving the file: " + err.Error(),
			MessageType: messageError,
		})
		return
	}

	logger.InfoContext(ctx, "saved credentials")

	render(w, r, http.StatusOK, loginTemplate, loginPage{
		Content:     string(saved),
		Message:     h.restartProxy(ctx),
		MessageType: messageSuccess,
	})
}

func (h *Login) restartProxy(ctx context.Context) string {
	if h.restarter == nil {
		return "Login data saved."
	}

	// the restart must finish even if the browser gives up on the response
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
	defer cancel()

	logger := xslog.FromContext(ctx)
	logger.InfoContext(ctx, "restarting proxy after credential change")
	if err := h.restarter.Restart(ctx); err != nil {
		logger.WarnContext(ctx, "failed to restart proxy", xslog.Error(err))
		return "Login data saved, but the proxy could not be restarted."
	}
	return "Login data saved and the proxy has been restarted."
}
