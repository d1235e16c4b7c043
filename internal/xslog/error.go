package xslog

import "log/slog"

const keyError = "error"

func Error(err error) slog.Attr {
	return slog.String(keyError, err.Error())
}
