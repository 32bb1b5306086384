package bus

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeCommand serializes a command record for the wire.
func EncodeCommand(cmd Command) ([]byte, error) {
	if cmd.Name == "" {
		return nil, fmt.Errorf("command name is empty")
	}
	if cmd.CorrelationID == "" {
		return nil, fmt.Errorf("command correlation_id is empty")
	}
	return json.Marshal(cmd)
}

// DecodeCommand deserializes a command record with strict field checking.
func DecodeCommand(data []byte) (Command, error) {
	var cmd Command
	if err := strictUnmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("decode command: %w", err)
	}
	if cmd.Name == "" {
		return Command{}, fmt.Errorf("command missing required field: name")
	}
	if cmd.CorrelationID == "" {
		return Command{}, fmt.Errorf("command missing required field: correlation_id")
	}
	return cmd, nil
}

// EncodeAck serializes an acknowledgment record.
func EncodeAck(ack Ack) ([]byte, error) {
	if ack.CorrelationID == "" {
		return nil, fmt.Errorf("ack correlation_id is empty")
	}
	return json.Marshal(ack)
}

// DecodeAck deserializes an acknowledgment record with strict field checking.
func DecodeAck(data []byte) (Ack, error) {
	var ack Ack
	if err := strictUnmarshal(data, &ack); err != nil {
		return Ack{}, fmt.Errorf("decode ack: %w", err)
	}
	if ack.CorrelationID == "" {
		return Ack{}, fmt.Errorf("ack missing required field: correlation_id")
	}
	switch ack.Status {
	case AckPending, AckOK, AckFailed:
	default:
		return Ack{}, fmt.Errorf("invalid ack status: %q", ack.Status)
	}
	return ack, nil
}

// EncodePlanStatus serializes a plan-status record.
func EncodePlanStatus(ps PlanStatus) ([]byte, error) {
	if ps.Plan == "" {
		return nil, fmt.Errorf("plan status plan_name is empty")
	}
	return json.Marshal(ps)
}

// DecodePlanStatus deserializes a plan-status record with strict field checking.
func DecodePlanStatus(data []byte) (PlanStatus, error) {
	var ps PlanStatus
	if err := strictUnmarshal(data, &ps); err != nil {
		return PlanStatus{}, fmt.Errorf("decode plan status: %w", err)
	}
	if ps.Plan == "" {
		return PlanStatus{}, fmt.Errorf("plan status missing required field: plan_name")
	}
	return ps, nil
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
