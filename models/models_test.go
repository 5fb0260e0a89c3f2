package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlert_AutoDismiss(t *testing.T) {
	withActions := Alert{
		Type:    SeverityError,
		Title:   "Erro",
		Actions: []AlertAction{{Text: "OK"}},
	}
	assert.False(t, withActions.AutoDismiss())

	withoutActions := Alert{
		Type:  SeverityInfo,
		Title: "Aviso",
	}
	assert.True(t, withoutActions.AutoDismiss())
}

func TestScanResult_DroppedCarriesNothingElse(t *testing.T) {
	data, err := json.Marshal(ScanResult{Dropped: true})
	require.NoError(t, err)

	assert.JSONEq(t, `{"dropped":true}`, string(data))
}

func TestAttendeeTicket_PriceDecoding(t *testing.T) {
	var ticket AttendeeTicket
	err := json.Unmarshal([]byte(`{"ticket_id":"tkt-1","price":"149.90","quantity":2}`), &ticket)
	require.NoError(t, err)

	assert.True(t, ticket.Price.Equal(decimal.RequireFromString("149.90")))
}
