package service

import (
	"encoding/json"

	"github.com/darmiel/fxrelay/internal/core"
)

func decodeEvent(body []byte) (core.RelayEvent, error) {
	var ev core.RelayEvent
	err := json.Unmarshal(body, &ev)
	return ev, err
}
