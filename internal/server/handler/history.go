package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/garrettladley/minimon/internal/history"
	"github.com/garrettladley/minimon/internal/xerrors"
	"github.com/garrettladley/minimon/internal/xhttp"
	"github.com/garrettladley/minimon/internal/xslog"
)

type HistoryReader interface {
	Since(ctx context.Context, since time.Time) ([]history.Sample, error)
}

type History struct {
	reader HistoryReader
	now    func() time.Time
}

func NewHistory(reader HistoryReader) *History {
	return &History{reader: reader, now: time.Now}
}

type historyResponse struct {
	Hours   int              `json:"hours"`
	Samples []history.Sample `json:"samples"`
}

// HandleHistory handles GET /api/history.
// Query params: hours (1-720, default 24)
func (h *History) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const (
		defaultHours = 24
		maxHours     = 720
	)

	ctx := r.Context()

	hours := defaultHours
	if s := r.URL.Query().Get("hours"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxHours {
			xerrors.WriteError(ctx, w, xerrors.BadRequest(
				xerrors.WithMessage("invalid hours parameter (must be 1-720)"),
			))
			return
		}
		hours = n
	}

	samples, err := h.reader.Since(ctx, h.now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		xerrors.WriteError(ctx, w, xerrors.Internal(
			xerrors.WithMessage("failed to read history"),
			xerrors.WithCause(err),
		))
		return
	}

	xslog.FromContext(ctx).DebugContext(ctx, "read history", xslog.Count(len(samples)))

	xhttp.SetHeaderNoStore(w)
	xhttp.WriteOK(w, historyResponse{Hours: hours, Samples: samples})
}
