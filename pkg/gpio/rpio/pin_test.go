package rpio

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/maxsonar.go/pkg/gpio"
)

func TestNew(t *testing.T) {
	pin, err := New(22)
	require.NoError(t, err)
	require.Equal(t, 22, pin.Number())

	_, err = New(-1)
	require.Error(t, err)
	_, err = New(54)
	require.Error(t, err)
}

func TestUnconfigured(t *testing.T) {
	pin, err := New(22)
	require.NoError(t, err)
	require.Error(t, pin.Assert())
	require.Error(t, pin.Deassert())
	require.NoError(t, pin.Close())
}

func TestRegistered(t *testing.T) {
	require.Contains(t, gpio.Backends(), BackendName)
}
