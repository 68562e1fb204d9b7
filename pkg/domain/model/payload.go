package model

import "encoding/json"

// Payload holds the field deltas an action carries to the server.
// Empty for delete actions.
type Payload map[string]any

// Clone creates a deep copy of the payload. JSON round-trip keeps nested
// values independent of the source map.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		// Payloads originate from JSON and always re-marshal
		cloned := make(Payload, len(p))
		for k, v := range p {
			cloned[k] = v
		}
		return cloned
	}
	var cloned Payload
	if err := json.Unmarshal(raw, &cloned); err != nil {
		return nil
	}
	return cloned
}

// Merge returns a new payload with keys from other overriding keys in p.
// Keys absent from other persist. Neither input is mutated.
func (p Payload) Merge(other Payload) Payload {
	merged := p.Clone()
	if merged == nil {
		merged = Payload{}
	}
	for k, v := range other.Clone() {
		merged[k] = v
	}
	return merged
}
