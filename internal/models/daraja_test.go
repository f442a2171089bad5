package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCallbackEnvelope_Decode(t *testing.T) {
	payload := `{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode": 0,
				"ResultDesc": "The service request is processed successfully.",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": 10.00},
						{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
						{"Name": "TransactionDate", "Value": 20191219102115},
						{"Name": "PhoneNumber", "Value": 254712345678}
					]
				}
			}
		}
	}`

	var envelope CallbackEnvelope
	require.NoError(t, json.Unmarshal([]byte(payload), &envelope))

	cb := envelope.Body.StkCallback
	require.Equal(t, "ws_CO_191220191020363925", cb.CheckoutRequestID)
	require.Equal(t, 0, cb.ResultCode)

	receipt, ok := cb.CallbackMetadata.String("MpesaReceiptNumber")
	require.True(t, ok)
	require.Equal(t, "NLJ7RT61SV", receipt)

	amount, ok := cb.CallbackMetadata.Int64("Amount")
	require.True(t, ok)
	require.Equal(t, int64(10), amount)

	phone, ok := cb.CallbackMetadata.Int64("PhoneNumber")
	require.True(t, ok)
	require.Equal(t, int64(254712345678), phone)
}

func TestCallbackMetadata_LookupIsByName(t *testing.T) {
	// Item order is not guaranteed by the gateway.
	meta := &CallbackMetadata{Item: []MetadataItem{
		{Name: "PhoneNumber", Value: "254712345678"},
		{Name: "MpesaReceiptNumber", Value: "NLJ7RT61SV"},
		{Name: "Amount", Value: float64(10)},
	}}

	receipt, ok := meta.String("MpesaReceiptNumber")
	require.True(t, ok)
	require.Equal(t, "NLJ7RT61SV", receipt)

	amount, ok := meta.Int64("Amount")
	require.True(t, ok)
	require.Equal(t, int64(10), amount)

	phone, ok := meta.Int64("PhoneNumber")
	require.True(t, ok)
	require.Equal(t, int64(254712345678), phone)

	_, ok = meta.String("Missing")
	require.False(t, ok)
}

func TestCallbackMetadata_NilSafe(t *testing.T) {
	var meta *CallbackMetadata

	_, ok := meta.String("MpesaReceiptNumber")
	require.False(t, ok)
	_, ok = meta.Int64("Amount")
	require.False(t, ok)
}

func TestStatus_Terminal(t *testing.T) {
	require.False(t, StatusPending.Terminal())
	require.True(t, StatusSuccess.Terminal())
	require.True(t, StatusFailed.Terminal())
	require.True(t, StatusExpired.Terminal())
	require.False(t, Status("BOGUS").Valid())
}
