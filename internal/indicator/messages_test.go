package indicator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndicatorMessages(t *testing.T) {
	require.Equal(t, "Recording…", indicatorMessages("en_US.UTF-8").recording)
	require.Equal(t, "Aufnahme läuft…", indicatorMessages("de_DE.UTF-8").recording)
	require.Equal(t, catalog["en"], indicatorMessages("fr_FR.UTF-8"))
	require.Equal(t, catalog["en"], indicatorMessages(""))
}
