// Package assembler builds the flat reflection record that is persisted for
// one form submission.
package assembler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"

	"github.com/okian/interpretreflect/internal/domain/model"
	"github.com/okian/interpretreflect/internal/domain/scoring"
)

// ErrNilPayload is returned when there is nothing to assemble.
var ErrNilPayload = errors.New("nil payload")

// Assemble scores p and merges the raw fields with the computed scores into
// one flat map tagged with the payload kind. Score keys win on collision.
func Assemble(p model.Payload) (model.Record, error) {
	return assemble(p, map[string]any{})
}

// AssembleFields is Assemble for a decoded submission whose raw form fields
// are still at hand. Fields the payload type does not declare are kept as
// sent; declared fields and scores overwrite them.
func AssembleFields(p model.Payload, raw json.RawMessage) (model.Record, error) {
	data := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return model.Record{}, fmt.Errorf("%w: %w", model.ErrInvalidPayload, err)
		}
		if data == nil {
			data = map[string]any{}
		}
	}
	return assemble(p, data)
}

func assemble(p model.Payload, data map[string]any) (model.Record, error) {
	if p == nil {
		return model.Record{}, ErrNilPayload
	}

	if u, ok := p.(model.Unknown); ok {
		maps.Copy(data, u.Fields)
	} else if err := mergeJSON(data, p); err != nil {
		return model.Record{}, fmt.Errorf("assemble %s fields: %w", p.Kind(), err)
	}

	if s := scoring.Score(p); s != nil {
		if err := mergeJSON(data, s); err != nil {
			return model.Record{}, fmt.Errorf("assemble %s scores: %w", p.Kind(), err)
		}
	}

	return model.Record{Kind: p.Kind(), Data: data}, nil
}

// mergeJSON flattens v through its JSON encoding into dst.
func mergeJSON(dst map[string]any, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	maps.Copy(dst, fields)
	return nil
}
