// Package printer submits print-on-demand jobs to the Lulu API.
//
// Lulu has no Go SDK, so this is a thin HTTP client: OAuth2
// client-credentials token exchange plus the print-jobs endpoints.
package printer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/inkpress/bookstore/internal/core/ports"
)

// podPackageID selects trim size, color and binding for every title we
// print: 6"x9", black-and-white standard, perfect bound.
const podPackageID = "0600X0900BWSTDPB060UW444MXX"

const shippingLevel = "MAIL"

var _ ports.PrintService = (*LuluClient)(nil)

// LuluClient implements ports.PrintService.
type LuluClient struct {
	baseURL      string
	clientKey    string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// New builds a client. baseURL selects the environment, e.g.
// "https://api.sandbox.lulu.com" or "https://api.lulu.com".
func New(baseURL, clientKey, clientSecret string) *LuluClient {
	return &LuluClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientKey:    clientKey,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

type printJobRequest struct {
	ContactEmail    string         `json:"contact_email"`
	ExternalID      string         `json:"external_id"`
	LineItems       []printLineItem `json:"line_items"`
	ShippingAddress shippingAddress `json:"shipping_address"`
	ShippingLevel   string         `json:"shipping_level"`
}

type printLineItem struct {
	Quantity               int                    `json:"quantity"`
	PodPackageID           string                 `json:"pod_package_id"`
	PrintableNormalization printableNormalization `json:"printable_normalization"`
}

type printableNormalization struct {
	Cover    sourceFile `json:"cover"`
	Interior sourceFile `json:"interior"`
}

type sourceFile struct {
	SourceURL string `json:"source_url"`
}

type shippingAddress struct {
	Name        string `json:"name"`
	StreetOne   string `json:"street1"`
	City        string `json:"city"`
	PostalCode  string `json:"postcode"`
	CountryCode string `json:"country_code"`
}

type printJobResponse struct {
	ID json.Number `json:"id"`
}

// SubmitJob creates a print job and returns Lulu's job identifier.
func (c *LuluClient) SubmitJob(ctx context.Context, job ports.PrintJob) (string, error) {
	if len(job.Items) == 0 {
		return "", fmt.Errorf("printer: job for order %s has no items", job.OrderID)
	}

	lineItems := make([]printLineItem, 0, len(job.Items))
	for _, item := range job.Items {
		lineItems = append(lineItems, printLineItem{
			Quantity:     item.Quantity,
			PodPackageID: podPackageID,
			PrintableNormalization: printableNormalization{
				Cover:    sourceFile{SourceURL: item.CoverURL},
				Interior: sourceFile{SourceURL: item.InteriorURL},
			},
		})
	}

	payload := printJobRequest{
		ContactEmail: job.Email,
		ExternalID:   job.OrderID,
		LineItems:    lineItems,
		ShippingAddress: shippingAddress{
			Name:        job.Name,
			StreetOne:   job.Address,
			City:        job.City,
			PostalCode:  job.PostalCode,
			CountryCode: job.Country,
		},
		ShippingLevel: shippingLevel,
	}

	var resp printJobResponse
	if err := c.do(ctx, http.MethodPost, "/print-jobs/", payload, http.StatusCreated, &resp); err != nil {
		return "", fmt.Errorf("printer: submit job for order %s: %w", job.OrderID, err)
	}
	return resp.ID.String(), nil
}

// CancelJob cancels a job that has not entered production. Lulu models
// this as a status update rather than a delete.
func (c *LuluClient) CancelJob(ctx context.Context, jobID string) error {
	payload := map[string]string{"name": "CANCELED"}
	path := fmt.Sprintf("/print-jobs/%s/status/", url.PathEscape(jobID))
	if err := c.do(ctx, http.MethodPut, path, payload, http.StatusOK, nil); err != nil {
		return fmt.Errorf("printer: cancel job %s: %w", jobID, err)
	}
	return nil
}

func (c *LuluClient) do(ctx context.Context, method, path string, payload any, wantStatus int, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// token returns a cached OAuth2 access token, refreshing it through the
// client-credentials grant when it is near expiry.
func (c *LuluClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/auth/realms/glasstree/protocol/openid-connect/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientKey, c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("printer: fetch token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("printer: token request failed with status %d", resp.StatusCode)
	}

	var tr struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("printer: decode token: %w", err)
	}

	c.accessToken = tr.AccessToken
	// Refresh a minute early so in-flight requests never carry a token
	// that expires mid-call.
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - time.Minute)
	return c.accessToken, nil
}
