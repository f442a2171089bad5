package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/charltonomondi/aedis-mpesa-backend/internal/config"
	"github.com/charltonomondi/aedis-mpesa-backend/internal/models"
)

// Gateway requests an STK push prompt on the payer's handset. The phone must
// already be in canonical 2547XXXXXXXX form.
type Gateway interface {
	STKPush(ctx context.Context, phone string, amount int64, reference, description string) (*models.STKPushResponse, error)
}

// DarajaClient talks to the Safaricom Daraja API. OAuth tokens are cached
// until shortly before expiry; all HTTP calls carry a bounded timeout and any
// transport or gateway-level failure surfaces as ErrGatewayUnavailable.
type DarajaClient struct {
	cfg        config.Daraja
	httpClient *http.Client
	clock      clockwork.Clock

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

func NewDarajaClient(cfg config.Daraja, clock clockwork.Clock) *DarajaClient {
	return &DarajaClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		clock:      clock,
	}
}

func (d *DarajaClient) accessToken(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.token != "" && d.clock.Now().Before(d.tokenExpiry) {
		return d.token, nil
	}

	url := d.cfg.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	req.SetBasicAuth(d.cfg.ConsumerKey, d.cfg.ConsumerSecret)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token request failed: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("Daraja token request failed with status %d: %s", resp.StatusCode, string(body))
		return "", fmt.Errorf("%w: token request status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode token response: %v", ErrGatewayUnavailable, err)
	}

	ttl := 3600
	if n, err := strconv.Atoi(tokenResp.ExpiresIn); err == nil && n > 0 {
		ttl = n
	}
	d.token = tokenResp.AccessToken
	d.tokenExpiry = d.clock.Now().Add(time.Duration(ttl-30) * time.Second)
	return d.token, nil
}

func (d *DarajaClient) STKPush(ctx context.Context, phone string, amount int64, reference, description string) (*models.STKPushResponse, error) {
	token, err := d.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := d.clock.Now().Format("20060102150405")
	password := base64.StdEncoding.EncodeToString([]byte(d.cfg.ShortCode + d.cfg.PassKey + timestamp))

	if description == "" {
		description = "Payment"
	}
	reqBody := models.STKPushRequest{
		BusinessShortCode: d.cfg.ShortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            amount,
		PartyA:            phone,
		PartyB:            d.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       d.cfg.CallbackURL,
		AccountReference:  reference,
		TransactionDesc:   description,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stk push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.BaseURL+"/mpesa/stkpush/v1/processrequest", bytes.NewBuffer(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: stk push request failed: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Printf("STK push failed with status %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("%w: stk push status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var pushResp models.STKPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode stk push response: %v", ErrGatewayUnavailable, err)
	}

	if pushResp.ResponseCode != "0" {
		log.Printf("STK push rejected: code=%s desc=%s", pushResp.ResponseCode, pushResp.ResponseDescription)
		return nil, fmt.Errorf("%w: gateway rejected request: %s", ErrGatewayUnavailable, pushResp.ResponseDescription)
	}
	if pushResp.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: gateway returned no checkout request id", ErrGatewayUnavailable)
	}
	return &pushResp, nil
}
