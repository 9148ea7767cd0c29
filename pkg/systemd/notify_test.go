package systemd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierStates(t *testing.T) {
	var sent []string
	n := &Notifier{send: func(state string) (bool, error) {
		sent = append(sent, state)
		return true, nil
	}}

	require.NoError(t, n.Ready())
	require.NoError(t, n.Status("idle, %d jobs", 2))
	require.NoError(t, n.Reloading())
	require.NoError(t, n.Stopping())

	assert.Equal(t, []string{"READY=1", "STATUS=idle, 2 jobs", "RELOADING=1", "STOPPING=1"}, sent)
}

func TestNotifierError(t *testing.T) {
	n := &Notifier{send: func(string) (bool, error) { return false, errors.New("socket gone") }}
	assert.EqualError(t, n.Ready(), "socket gone")

	var nilN *Notifier
	assert.NoError(t, nilN.Ready())
}
