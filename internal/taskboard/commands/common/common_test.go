package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type runtimeStub struct{}

func (runtimeStub) ServerURL() string { return "http://127.0.0.1:1" }
func (runtimeStub) Output() string    { return "text" }
func (runtimeStub) Token() string     { return "tok" }

func TestOptionalString(t *testing.T) {
	require.Nil(t, OptionalString(false, "x"))

	got := OptionalString(true, "  Ongoing ")
	require.NotNil(t, got)
	require.Equal(t, "Ongoing", *got)

	empty := OptionalString(true, "")
	require.NotNil(t, empty)
	require.Equal(t, "", *empty)
}

func TestNewClientNormalizesServer(t *testing.T) {
	c, err := NewClient(runtimeStub{})
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:1/", c.Server)
	require.Len(t, c.RequestEditors, 1)
}
