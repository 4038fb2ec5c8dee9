package errors

import (
	"encoding/json"
	"sort"
	"strings"
)

// RemotePayload holds the decoded JSON error body returned by a backend service.
// Backends in this platform return either field-scoped errors
// ({"order_item": ["..."]}), a general {"detail": "..."} or {"error": "..."}.
type RemotePayload map[string]any

// DecodeRemotePayload parses a raw error body. A body that is not a JSON object
// yields an empty payload, never an error; callers fall through the chain.
func DecodeRemotePayload(body []byte) RemotePayload {
	if len(body) == 0 {
		return nil
	}
	var payload RemotePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	return payload
}

// RemoteMessage extracts the richest user-facing message from a backend error
// body, walking the priority chain: field-specific error, "detail", "error",
// the transport error, then the generic fallback.
func RemoteMessage(payload RemotePayload, cause error, fallback string) string {
	if msg := fieldMessage(payload); msg != "" {
		return msg
	}
	if msg := stringField(payload, "detail"); msg != "" {
		return msg
	}
	if msg := stringField(payload, "error"); msg != "" {
		return msg
	}
	if cause != nil {
		if msg := strings.TrimSpace(cause.Error()); msg != "" {
			return msg
		}
	}
	return fallback
}

func fieldMessage(payload RemotePayload) string {
	if payload == nil {
		return ""
	}
	keys := make([]string, 0, len(payload))
	for key := range payload {
		if key == "detail" || key == "error" {
			continue
		}
		keys = append(keys, key)
	}
	// Deterministic pick when several fields failed at once.
	sort.Strings(keys)
	for _, key := range keys {
		switch value := payload[key].(type) {
		case string:
			if msg := strings.TrimSpace(value); msg != "" {
				return msg
			}
		case []any:
			for _, entry := range value {
				if msg, ok := entry.(string); ok && strings.TrimSpace(msg) != "" {
					return strings.TrimSpace(msg)
				}
			}
		}
	}
	return ""
}

func stringField(payload RemotePayload, key string) string {
	if payload == nil {
		return ""
	}
	if value, ok := payload[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
