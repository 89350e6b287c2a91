package control

import (
	"fmt"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/oshokin/face-sentry/internal/domain/sentry"
)

// Field names of the state document.
const (
	FieldActive    = "active"
	FieldOperator  = "operator_chat_id"
	FieldSource    = "source"
	FieldTimestamp = "timestamp"
)

// StateToStruct converts the domain state into a protobuf Struct.
// The chat id travels as a string since Struct numbers are float64.
func StateToStruct(state *domain.State) (*structpb.Struct, error) {
	if state == nil {
		state = new(domain.State)
	}

	fields := map[string]any{
		FieldActive:    state.Active,
		FieldOperator:  "",
		FieldSource:    state.Source,
		FieldTimestamp: "",
	}

	if state.Operator.IsSet() {
		fields[FieldOperator] = state.Operator.String()
	}

	if !state.Timestamp.IsZero() {
		fields[FieldTimestamp] = state.Timestamp.UTC().Format(time.RFC3339Nano)
	}

	doc, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build state document: %w", err)
	}

	return doc, nil
}

// StateFromStruct converts a Struct produced by StateToStruct back into the domain state.
func StateFromStruct(doc *structpb.Struct) (*domain.State, error) {
	fields := doc.GetFields()
	state := &domain.State{
		Active: fields[FieldActive].GetBoolValue(),
		Source: fields[FieldSource].GetStringValue(),
	}

	if raw := fields[FieldOperator].GetStringValue(); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("operator chat id: %w", err)
		}

		state.Operator = domain.ChatID(id)
	}

	if raw := fields[FieldTimestamp].GetStringValue(); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("timestamp: %w", err)
		}

		state.Timestamp = ts
	}

	return state, nil
}
