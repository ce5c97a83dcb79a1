package store

import (
	"testing"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/require"
)

func TestConversationSelectionRoundTrip(t *testing.T) {
	conv := &Conversation{}

	_, ok := conv.Selection()
	require.False(t, ok)

	err := conv.SetSelection("123ABC", SelectionContext{
		TruckID:    7,
		DriverName: "Juan Pérez",
		Model:      "Scania R500",
		Year:       2022,
	})
	require.NoError(t, err)
	require.Equal(t, "123ABC", conv.LicensePlate.String)
	require.True(t, conv.LicensePlate.Valid)

	sel, ok := conv.Selection()
	require.True(t, ok)
	require.Equal(t, int64(7), sel.TruckID)
	require.Equal(t, "Juan Pérez", sel.DriverName)

	conv.ClearSelection()
	require.False(t, conv.LicensePlate.Valid)
	require.False(t, conv.PendingSelection.Valid)
	_, ok = conv.Selection()
	require.False(t, ok)
}

func TestConversationSelectionRejectsGarbage(t *testing.T) {
	conv := &Conversation{
		ContextData: types.NullJSONText{JSONText: []byte("not json"), Valid: true},
	}
	_, ok := conv.Selection()
	require.False(t, ok)

	conv.ContextData = types.NullJSONText{JSONText: []byte(`{"truck_id":0}`), Valid: true}
	_, ok = conv.Selection()
	require.False(t, ok)
}

func TestPgInterval(t *testing.T) {
	require.Equal(t, "10000 milliseconds", pgInterval(10*time.Second))
	require.Equal(t, "600 milliseconds", pgInterval(600*time.Millisecond))
	require.Equal(t, "1800000 milliseconds", pgInterval(30*time.Minute))
}
