package timezone

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNow(t *testing.T) {
	zone, offset := Now().Zone()
	require.Equal(t, "JST", zone)
	require.Equal(t, 9*60*60, offset)
}
