// Package reading defines the record of one acquisition handed to consumers.
package reading

import (
	"errors"
	"time"
)

// Reading is the outcome of one acquisition.
type Reading struct {
	SensorID string    `json:"sensor_id"`
	Device   string    `json:"device"`
	Distance uint16    `json:"distance"`
	Unit     string    `json:"unit"`
	At       time.Time `json:"timestamp"`
	// Error is set when the acquisition failed, Distance is meaningless then.
	Error string `json:"error,omitempty"`
}

// New creates a Reading from the result of an acquisition.
func New(sensorID, device, unit string, distance uint16, err error) *Reading {
	r := &Reading{
		SensorID: sensorID,
		Device:   device,
		Unit:     unit,
		At:       time.Now(),
	}
	if err != nil {
		r.Error = err.Error()
	} else {
		r.Distance = distance
	}
	return r
}

// OK indicates the acquisition succeeded.
func (r *Reading) OK() bool {
	return r.Error == ""
}

// Err returns the acquisition error if any.
func (r *Reading) Err() error {
	if r.Error == "" {
		return nil
	}
	return errors.New(r.Error)
}
