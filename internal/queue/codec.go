package queue

import (
	"encoding/json"
	"fmt"
	"strconv"

	"storefront/internal/events"
)

// streamValues flattens an envelope into Redis stream fields. The routing fields
// are duplicated next to the full JSON so the stream stays inspectable with XRANGE.
func streamValues(env events.Envelope) (map[string]any, error) {
	b, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"event_id":       env.EventID,
		"event_type":     env.EventType,
		"correlation_id": env.CorrelationID,
		"envelope":       string(b),
	}, nil
}

func parseStreamEnvelope(values map[string]any) (events.Envelope, error) {
	raw, err := getStreamString(values, "envelope")
	if err != nil {
		return events.Envelope{}, err
	}
	var env events.Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return events.Envelope{}, fmt.Errorf("invalid envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		return events.Envelope{}, err
	}
	return env, nil
}

func getStreamString(values map[string]any, key string) (string, error) {
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing field %s", key)
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	default:
		return "", fmt.Errorf("unsupported field type %s: %T", key, v)
	}
}
