package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Header names carried by signed deliveries.
const (
	HeaderSignature = "X-Billing-Signature"
	HeaderTimestamp = "X-Billing-Timestamp"
	HeaderDelivery  = "X-Billing-Delivery"
)

// maxClockSkew is how far in the future a signature timestamp may be.
const maxClockSkew = time.Minute

// Signature is an HMAC-SHA256 over "<timestamp>.<payload>".
type Signature struct {
	Value      string
	Timestamp  int64
	DeliveryID string
}

// Apply writes the signature headers to h.
func (s Signature) Apply(h http.Header) {
	h.Set(HeaderSignature, s.Value)
	h.Set(HeaderTimestamp, strconv.FormatInt(s.Timestamp, 10))
	if s.DeliveryID != "" {
		h.Set(HeaderDelivery, s.DeliveryID)
	}
}

// Sign signs payload with secret at the current time.
func Sign(secret string, payload []byte) (Signature, error) {
	return signAt(secret, payload, time.Now())
}

func signAt(secret string, payload []byte, at time.Time) (Signature, error) {
	if secret == "" {
		return Signature{}, ErrMissingSecret
	}
	if len(payload) == 0 {
		return Signature{}, fmt.Errorf("%w: payload cannot be empty", ErrInvalidPayload)
	}
	ts := at.Unix()
	return Signature{
		Value:      computeMAC(secret, ts, payload),
		Timestamp:  ts,
		DeliveryID: uuid.NewString(),
	}, nil
}

// ParseSignature reads signature headers from h.
func ParseSignature(h http.Header) (Signature, error) {
	value := h.Get(HeaderSignature)
	raw := h.Get(HeaderTimestamp)
	if value == "" || raw == "" {
		return Signature{}, fmt.Errorf("%w: missing signature headers", ErrInvalidSignature)
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: malformed timestamp", ErrInvalidSignature)
	}
	return Signature{Value: value, Timestamp: ts, DeliveryID: h.Get(HeaderDelivery)}, nil
}

// Verify checks sig against payload. A positive maxAge also rejects stale
// or far-future timestamps.
func Verify(secret string, payload []byte, sig Signature, maxAge time.Duration) error {
	if secret == "" {
		return ErrMissingSecret
	}
	if sig.Value == "" {
		return fmt.Errorf("%w: signature is missing", ErrInvalidSignature)
	}

	if maxAge > 0 {
		age := time.Since(time.Unix(sig.Timestamp, 0))
		if age > maxAge {
			return fmt.Errorf("%w: timestamp too old (%s)", ErrInvalidSignature, age.Truncate(time.Second))
		}
		if age < -maxClockSkew {
			return fmt.Errorf("%w: timestamp is in the future", ErrInvalidSignature)
		}
	}

	expected := computeMAC(secret, sig.Timestamp, payload)
	if !hmac.Equal([]byte(expected), []byte(sig.Value)) {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidSignature)
	}
	return nil
}

func computeMAC(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
