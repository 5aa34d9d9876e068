package publish

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/maxsonar.go/pkg/reading"
)

func TestMux(t *testing.T) {
	var got []uint16
	ok := PublishFunc(func(ctx context.Context, r *reading.Reading) error {
		got = append(got, r.Distance)
		return nil
	})
	bad := PublishFunc(func(ctx context.Context, r *reading.Reading) error {
		return errors.New("broker down")
	})

	var mux Mux
	require.NoError(t, mux.Publish(context.Background(), &reading.Reading{Distance: 1}))

	mux.Add(ok, bad, ok)
	err := mux.Publish(context.Background(), &reading.Reading{Distance: 2})
	require.EqualError(t, err, "broker down")
	require.Equal(t, []uint16{2, 2}, got)
}
