package reading

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"
)

// Format is a wire encoding of readings.
type Format string

const (
	// FormatJSON encodes a reading as a JSON object.
	FormatJSON Format = "json"
	// FormatProto encodes a reading as a google.protobuf.Struct.
	FormatProto Format = "proto"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case FormatJSON, FormatProto:
		return f, nil
	}
	return "", fmt.Errorf("unknown reading format %q", name)
}

// Binary indicates the encoding isn't text.
func (f Format) Binary() bool {
	return f == FormatProto
}

// Encode encodes a reading.
func (f Format) Encode(r *Reading) ([]byte, error) {
	switch f {
	case FormatJSON:
		return json.Marshal(r)
	case FormatProto:
		return proto.Marshal(toStruct(r))
	}
	return nil, fmt.Errorf("unknown reading format %q", string(f))
}

// Decode decodes a reading.
func (f Format) Decode(data []byte) (*Reading, error) {
	switch f {
	case FormatJSON:
		var r Reading
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		return &r, nil
	case FormatProto:
		var s structpb.Struct
		if err := proto.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return fromStruct(&s)
	}
	return nil, fmt.Errorf("unknown reading format %q", string(f))
}

func stringValue(s string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: s}}
}

func toStruct(r *Reading) *structpb.Struct {
	s := &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"sensor_id": stringValue(r.SensorID),
			"device":    stringValue(r.Device),
			"distance":  {Kind: &structpb.Value_NumberValue{NumberValue: float64(r.Distance)}},
			"unit":      stringValue(r.Unit),
			"timestamp": stringValue(r.At.Format(time.RFC3339Nano)),
		},
	}
	if r.Error != "" {
		s.Fields["error"] = stringValue(r.Error)
	}
	return s
}

func fromStruct(s *structpb.Struct) (*Reading, error) {
	r := &Reading{
		SensorID: s.Fields["sensor_id"].GetStringValue(),
		Device:   s.Fields["device"].GetStringValue(),
		Unit:     s.Fields["unit"].GetStringValue(),
		Error:    s.Fields["error"].GetStringValue(),
	}
	distance := s.Fields["distance"].GetNumberValue()
	if distance < 0 || distance > 0xffff {
		return nil, fmt.Errorf("distance %v out of range", distance)
	}
	r.Distance = uint16(distance)
	if ts := s.Fields["timestamp"].GetStringValue(); ts != "" {
		at, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp: %v", err)
		}
		r.At = at
	}
	return r, nil
}
