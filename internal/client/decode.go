package client

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/Chat/internal/core"
)

func decodeData(ev core.Event, v any) error {
	if err := json.Unmarshal(ev.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", ev.Type, err)
	}
	return nil
}

// Decode unmarshals the payload of ev into v.
func Decode[T any](ev core.Event) (T, error) {
	var v T
	err := decodeData(ev, &v)
	return v, err
}
