package log

import "log/slog"

func ExecutionID[T ~string](id T) slog.Attr {
	return slog.String("execution_id", string(id))
}

func StepID[T ~string](id T) slog.Attr {
	return slog.String("step_id", string(id))
}

func CallerID[T ~string](id T) slog.Attr {
	return slog.String("caller_id", string(id))
}

func Tier[T ~string](tier T) slog.Attr {
	return slog.String("tier", string(tier))
}

func Model(model string) slog.Attr {
	return slog.String("model", model)
}

func Status[T ~string](status T) slog.Attr {
	return slog.String("status", string(status))
}

func Cost(usd float64) slog.Attr {
	return slog.Float64("cost_usd", usd)
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

func ErrorString(msg string) slog.Attr {
	return slog.String("error", msg)
}
