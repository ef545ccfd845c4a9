package inference

import (
	"encoding/json"
	"fmt"

	"github.com/dshills/flowscribe/internal/providers"
)

// normalize reduces a provider result to plain data (maps, slices, strings,
// float64, bool, nil) by way of its raw JSON body.
func normalize(res providers.Result) (Response, error) {
	if res == nil {
		return nil, fmt.Errorf("provider returned no result")
	}
	raw := []byte(res.RawJSON())
	if len(raw) == 0 {
		b, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("encoding provider result: %w", err)
		}
		raw = b
	}
	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("normalizing provider result: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("provider result is not an object")
	}
	return out, nil
}
