// Package errdecode extracts a human-readable line from the error payload a
// failed sync leaves on a contact. The payload shape depends on which client
// stack produced it, so the decoder is chosen by configuration.
package errdecode

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var ErrNoMessage = errors.New("error payload has no message")

const (
	ShapeArray    = "array"
	ShapeEnvelope = "envelope"
)

type Decoder interface {
	Extract(payload string) (string, error)
}

type restError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode,omitempty"`
}

// ArrayDecoder handles the raw REST shape: [{"message": "..."}].
type ArrayDecoder struct{}

func (ArrayDecoder) Extract(payload string) (string, error) {
	var errs []restError
	if err := json.Unmarshal([]byte(payload), &errs); err != nil {
		return "", fmt.Errorf("failed to parse error array: %w", err)
	}
	return firstMessage(errs)
}

// EnvelopeDecoder handles the wrapped shape: {"body": [{"message": "..."}]}.
type EnvelopeDecoder struct{}

func (EnvelopeDecoder) Extract(payload string) (string, error) {
	var env struct {
		Body []restError `json:"body"`
	}
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return "", fmt.Errorf("failed to parse error envelope: %w", err)
	}
	return firstMessage(env.Body)
}

func firstMessage(errs []restError) (string, error) {
	if len(errs) == 0 || errs[0].Message == "" {
		return "", ErrNoMessage
	}
	return errs[0].Message, nil
}

func ForShape(shape string) (Decoder, error) {
	switch shape {
	case ShapeArray:
		return ArrayDecoder{}, nil
	case ShapeEnvelope:
		return EnvelopeDecoder{}, nil
	}
	return nil, fmt.Errorf("unknown error shape %q", shape)
}

// Render returns the message to show for payload, or "" when there is nothing
// to show. Decode failures are logged and suppressed.
func Render(d Decoder, payload string, log *zap.SugaredLogger) string {
	if payload == "" || d == nil {
		return ""
	}
	msg, err := d.Extract(payload)
	if err != nil {
		if log != nil {
			log.Warnw("failed to extract message from error", "payload", payload, "error", err)
		}
		return ""
	}
	return msg
}
