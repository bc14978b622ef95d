package logger

import "log/slog"

// optional drops attributes with empty values so call sites can pass
// identifiers that are not known yet.
func optional(key, value string) slog.Attr {
	if value == "" {
		return slog.Attr{}
	}
	return slog.String(key, value)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func RequestID(id string) slog.Attr { return optional("request_id", id) }

func SubscriptionID(id string) slog.Attr { return optional("subscription_id", id) }

func CustomerID(id string) slog.Attr { return optional("customer_id", id) }

// Email logs the subscriber address.
func Email(email string) slog.Attr { return optional("email", email) }

func EventID(id string) slog.Attr { return optional("event_id", id) }

func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

// Outcome and Tier take any so domain string types log without conversion.
func Outcome(outcome any) slog.Attr {
	return slog.Any("outcome", outcome)
}

func Tier(tier any) slog.Attr {
	return slog.Any("tier", tier)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Handler(name string) slog.Attr {
	return slog.String("handler", name)
}
