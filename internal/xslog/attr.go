package xslog

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/garrettladley/minimon/internal/xhttp"
)

func RequestID(requestID string) slog.Attr {
	const requestIDKey = "request_id"
	return slog.String(requestIDKey, requestID)
}

func Stack() slog.Attr {
	const stackKey = "stack"
	return slog.String(stackKey, string(debug.Stack()))
}

func HTTPStatus(status int) slog.Attr {
	const statusKey = "status"
	return slog.Int(statusKey, status)
}

func Duration(duration time.Duration) slog.Attr {
	const durationKey = "duration"
	return slog.Duration(durationKey, duration)
}

func RequestMethod(r *http.Request) slog.Attr {
	const methodKey = "method"
	return slog.String(methodKey, r.Method)
}

func RequestPath(r *http.Request) slog.Attr {
	const pathKey = "path"
	return slog.String(pathKey, r.URL.Path)
}

func IP(ip string) slog.Attr {
	const ipKey = "ip"
	return slog.String(ipKey, ip)
}

func RequestIP(r *http.Request) slog.Attr {
	return IP(xhttp.GetRequestIP(r))
}

func Count(count int) slog.Attr {
	const countKey = "count"
	return slog.Int(countKey, count)
}

func State(state string) slog.Attr {
	const stateKey = "state"
	return slog.String(stateKey, state)
}

func PreviousState(state string) slog.Attr {
	const previousStateKey = "previous_state"
	return slog.String(previousStateKey, state)
}

func Endpoint(endpoint string) slog.Attr {
	const endpointKey = "endpoint"
	return slog.String(endpointKey, endpoint)
}

func URL(url string) slog.Attr {
	const urlKey = "url"
	return slog.String(urlKey, url)
}

func Delay(d time.Duration) slog.Attr {
	const delayKey = "delay"
	return slog.Duration(delayKey, d)
}

func Backoff(d time.Duration) slog.Attr {
	const backoffKey = "backoff"
	return slog.Duration(backoffKey, d)
}

func NextAt(t time.Time) slog.Attr {
	const nextAtKey = "next_at"
	return slog.Time(nextAtKey, t)
}

func UpdatedAt(t time.Time) slog.Attr {
	const updatedAtKey = "updated_at"
	return slog.Time(updatedAtKey, t)
}

func Attempt(n int) slog.Attr {
	const attemptKey = "attempt"
	return slog.Int(attemptKey, n)
}

func Path(path string) slog.Attr {
	const pathKey = "path"
	return slog.String(pathKey, path)
}

func PID(pid int) slog.Attr {
	const pidKey = "pid"
	return slog.Int(pidKey, pid)
}

func Addr(addr string) slog.Attr {
	const addrKey = "addr"
	return slog.String(addrKey, addr)
}

func Command(args []string) slog.Attr {
	const commandKey = "command"
	return slog.Any(commandKey, args)
}

func MarkerType(t string) slog.Attr {
	const markerTypeKey = "marker_type"
	return slog.String(markerTypeKey, t)
}

func Timestamp(ts string) slog.Attr {
	const timestampKey = "timestamp"
	return slog.String(timestampKey, ts)
}

func Glucose(sg int) slog.Attr {
	const glucoseKey = "sg"
	return slog.Int(glucoseKey, sg)
}

func Backend(name string) slog.Attr {
	const backendKey = "backend"
	return slog.String(backendKey, name)
}
