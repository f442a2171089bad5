package models

// Daraja wire types for the STK push flow. Field names match the gateway's
// JSON exactly, including its mixed casing.

type STKPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// CallbackEnvelope is the body Daraja posts to the callback URL.
type CallbackEnvelope struct {
	Body struct {
		StkCallback StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

// StkCallback carries the outcome of one push request. ResultCode 0 means the
// payment settled; any other value is a failure (1032 = cancelled by user,
// 1037 = timeout reaching the handset, and so on). CallbackMetadata is only
// present on success.
type StkCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

// CallbackMetadata is a list of named items whose order is not guaranteed;
// values are looked up by name, never by position.
type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

type MetadataItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value,omitempty"`
}

// String returns the named item rendered as a string.
func (m *CallbackMetadata) String(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, item := range m.Item {
		if item.Name != name {
			continue
		}
		switch v := item.Value.(type) {
		case string:
			return v, true
		case float64:
			return formatFloat(v), true
		}
	}
	return "", false
}

// Int64 returns the named item as an integer, truncating any decimal part.
// JSON numbers decode as float64, but amounts and phone numbers also show up
// as strings in sandbox payloads.
func (m *CallbackMetadata) Int64(name string) (int64, bool) {
	if m == nil {
		return 0, false
	}
	for _, item := range m.Item {
		if item.Name != name {
			continue
		}
		switch v := item.Value.(type) {
		case float64:
			return int64(v), true
		case string:
			return parseInt64(v)
		}
	}
	return 0, false
}
