package generic

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPool(t *testing.T) {
	created := 0
	p := NewHotPool(func() *bytes.Buffer {
		created++
		return new(bytes.Buffer)
	}, (*bytes.Buffer).Reset, 2)
	require.Equal(t, 2, created)

	buf := p.Get()
	buf.WriteString("dirty")
	p.Put(buf)
	require.Zero(t, buf.Len(), "put resets the value")

	require.NotNil(t, p.Get())
}
