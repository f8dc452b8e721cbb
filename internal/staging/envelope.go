package staging

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"tidy-go/internal/tidy"
)

const envelopeFormat = 1

// envelope is the stored form of the live plan. The checksum covers the
// encoded plan so a truncated or hand-edited file is rejected instead of
// being applied.
type envelope struct {
	Format   int             `json:"format"`
	Checksum string          `json:"checksum"`
	Plan     json.RawMessage `json:"plan"`
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func encodePlan(plan *tidy.Plan) ([]byte, error) {
	raw, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("encoding plan: %w", err)
	}
	data, err := json.MarshalIndent(envelope{
		Format:   envelopeFormat,
		Checksum: checksum(raw),
		Plan:     raw,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding plan envelope: %w", err)
	}
	return data, nil
}

func decodePlan(data []byte) (*tidy.Plan, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding plan envelope: %w", err)
	}
	if env.Format != envelopeFormat {
		return nil, fmt.Errorf("unsupported staged plan format %d", env.Format)
	}
	// The envelope is written indented; the checksum covers the compact encoding.
	var compact bytes.Buffer
	if err := json.Compact(&compact, env.Plan); err != nil {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	if got := checksum(compact.Bytes()); got != env.Checksum {
		return nil, fmt.Errorf("staged plan checksum mismatch: have %s, stored %s", got, env.Checksum)
	}

	var plan tidy.Plan
	if err := json.Unmarshal(env.Plan, &plan); err != nil {
		return nil, fmt.Errorf("decoding plan: %w", err)
	}
	return &plan, nil
}
