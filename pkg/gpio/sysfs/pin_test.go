package sysfs

import (
	"testing"

	"github.com/stretchr/testify/require"

	mgpio "github.com/robotalks/maxsonar.go/pkg/gpio"
)

func TestUnconfigured(t *testing.T) {
	pin := New(22)
	require.Equal(t, 22, pin.Number())
	require.Error(t, pin.Assert())
	require.Error(t, pin.Deassert())
	require.NoError(t, pin.Close())
}

func TestRegistered(t *testing.T) {
	pin, err := mgpio.Open(BackendName, 17)
	require.NoError(t, err)
	require.Equal(t, 17, pin.Number())
}
