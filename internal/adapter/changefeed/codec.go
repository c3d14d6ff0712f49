package changefeed

import (
	"encoding/json"
	"fmt"

	"github.com/YelzhanWeb/orderdesk/internal/domain"
)

// Encode and Decode define the wire form shared by the message transports.
func Encode(ev domain.ChangeEvent) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal change event: %w", err)
	}
	return body, nil
}

func Decode(body []byte) (domain.ChangeEvent, error) {
	var ev domain.ChangeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("failed to parse change event: %w", err)
	}
	if ev.Collection == "" {
		ev.Collection = domain.OrdersCollection
	}
	return ev, nil
}
