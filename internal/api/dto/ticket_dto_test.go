package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdateTicketRequestTriState(t *testing.T) {
	var req UpdateTicketRequest
	require.NoError(t, json.Unmarshal([]byte(`{"status":"In-Progress"}`), &req))
	require.False(t, req.TechnicianID.Set)

	req = UpdateTicketRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"technician_id":null}`), &req))
	require.True(t, req.TechnicianID.Set)
	require.False(t, req.TechnicianID.Valid)

	req = UpdateTicketRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"technician_id":7}`), &req))
	require.True(t, req.TechnicianID.Set)
	require.True(t, req.TechnicianID.Valid)
	require.Equal(t, TechID(7), req.TechnicianID.Value)
}

func TestTechIDAcceptsQuotedNumbers(t *testing.T) {
	var req UpdateTicketRequest
	require.NoError(t, json.Unmarshal([]byte(`{"technician_id":"7"}`), &req))
	require.True(t, req.TechnicianID.Valid)
	require.Equal(t, TechID(7), req.TechnicianID.Value)

	require.Error(t, json.Unmarshal([]byte(`{"technician_id":"seven"}`), &req))
}

func TestCancelPayloadShape(t *testing.T) {
	payload := `{"status":"Pending","technician_id":null,"cancel_reason":"part on backorder"}`
	var req UpdateTicketRequest
	require.NoError(t, json.Unmarshal([]byte(payload), &req))
	require.Equal(t, "Pending", *req.Status)
	require.True(t, req.TechnicianID.Set)
	require.False(t, req.TechnicianID.Valid)
	require.Equal(t, "part on backorder", *req.CancelReason)
}
