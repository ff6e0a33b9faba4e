// Package carrier は配送会社の小包登録APIのクライアント。
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrRejected = errors.New("carrier rejected parcel")

// Parcel は1件分の登録内容。Reference は注文IDから作るので再送しても同じ
type Parcel struct {
	Reference     string `json:"order_id"`
	DoInsurance   bool   `json:"do_insurance"`
	FirstName     string `json:"firstname"`
	FamilyName    string `json:"familyname"`
	ContactPhone  string `json:"contact_phone"`
	Address       string `json:"address"`
	ToCommuneName string `json:"to_commune_name"`
	ToWilayaName  string `json:"to_wilaya_name"`
	ToWilayaCode  int    `json:"to_wilaya_code,omitempty"`
	ProductList   string `json:"product_list"`
	Price         int64  `json:"price"`
	IsStopDesk    bool   `json:"is_stopdesk"`
	FreeShipping  bool   `json:"freeshipping"`
}

type parcelResult struct {
	Success  bool   `json:"success"`
	Tracking string `json:"tracking"`
	Message  string `json:"message"`
}

type Registration struct {
	Tracking string
	Message  string
}

type Client struct {
	baseURL  string
	apiID    string
	apiToken string
	http     *http.Client
}

func NewClient(baseURL, apiID, apiToken string) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiID:    apiID,
		apiToken: apiToken,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Register(ctx context.Context, p Parcel) (Registration, error) {
	body, err := json.Marshal([]Parcel{p})
	if err != nil {
		return Registration{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parcels", bytes.NewReader(body))
	if err != nil {
		return Registration{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-ID", c.apiID)
	req.Header.Set("X-API-TOKEN", c.apiToken)

	res, err := c.http.Do(req)
	if err != nil {
		return Registration{}, fmt.Errorf("carrier request: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Registration{}, fmt.Errorf("carrier read: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return Registration{}, fmt.Errorf("carrier status %d: %s", res.StatusCode, truncate(string(raw), 200))
	}

	var out map[string]parcelResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return Registration{}, fmt.Errorf("carrier decode: %w", err)
	}
	r, ok := out[p.Reference]
	if !ok {
		return Registration{}, fmt.Errorf("%w: no result for %s", ErrRejected, p.Reference)
	}
	if r.Success && r.Tracking != "" {
		return Registration{Tracking: r.Tracking, Message: r.Message}, nil
	}
	//前回の登録は通っていて、追跡番号の保存だけ失敗していた
	if isDuplicate(r.Message) {
		return c.lookup(ctx, p.Reference)
	}
	return Registration{}, fmt.Errorf("%w: %s", ErrRejected, r.Message)
}

func isDuplicate(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "already exist") || strings.Contains(m, "duplicate")
}

type lookupResponse struct {
	Data []struct {
		Reference string `json:"order_id"`
		Tracking  string `json:"tracking"`
	} `json:"data"`
}

// lookup は参照番号で登録済みの小包を探す。見つからなければ再試行に回す
func (c *Client) lookup(ctx context.Context, reference string) (Registration, error) {
	q := url.Values{"order_id": {reference}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/parcels?"+q.Encode(), nil)
	if err != nil {
		return Registration{}, err
	}
	req.Header.Set("X-API-ID", c.apiID)
	req.Header.Set("X-API-TOKEN", c.apiToken)

	res, err := c.http.Do(req)
	if err != nil {
		return Registration{}, fmt.Errorf("carrier lookup: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Registration{}, fmt.Errorf("carrier lookup read: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return Registration{}, fmt.Errorf("carrier lookup status %d: %s", res.StatusCode, truncate(string(raw), 200))
	}

	var out lookupResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Registration{}, fmt.Errorf("carrier lookup decode: %w", err)
	}
	for _, d := range out.Data {
		if d.Reference == reference && d.Tracking != "" {
			return Registration{Tracking: d.Tracking, Message: "already registered"}, nil
		}
	}
	return Registration{}, fmt.Errorf("carrier lookup: %s not found", reference)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
