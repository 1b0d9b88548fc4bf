package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"merchant-phone-search/internal/config"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// AmapClient talks to the Amap web service API.
type AmapClient interface {
	SearchPOI(ctx context.Context, keywords, city string, page, pageSize int) ([]POI, error)
	DistrictTree(ctx context.Context) ([]District, error)
}

// ProviderError is a non-success status reported by Amap itself, as opposed
// to a transport failure.
type ProviderError struct {
	Info string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("amap provider error: %s", e.Info)
}

type POI struct {
	Name         string      `json:"name"`
	Address      LooseString `json:"address"`
	Tel          LooseString `json:"tel"`
	Location     LooseString `json:"location"`
	Type         LooseString `json:"type"`
	BusinessArea LooseString `json:"business_area"`
}

type District struct {
	Adcode    LooseString `json:"adcode"`
	Name      string      `json:"name"`
	Center    LooseString `json:"center"`
	Level     string      `json:"level"`
	Districts []District  `json:"districts"`
}

// LooseString tolerates Amap's habit of serializing absent string fields as
// an empty JSON array.
type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err == nil {
		*s = LooseString(v)
		return nil
	}
	*s = ""
	return nil
}

type searchResponse struct {
	Status string `json:"status"`
	Info   string `json:"info"`
	POIs   []POI  `json:"pois"`
}

type districtResponse struct {
	Status    string     `json:"status"`
	Info      string     `json:"info"`
	Districts []District `json:"districts"`
}

type amapClientImpl struct {
	httpClient *http.Client
	baseURL    string
	key        string
}

func NewAmapClient(cfg *config.Amap) AmapClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &amapClientImpl{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: cfg.BaseURL,
		key:     cfg.Key,
	}
}

func (c *amapClientImpl) SearchPOI(ctx context.Context, keywords, city string, page, pageSize int) ([]POI, error) {
	params := url.Values{}
	params.Set("key", c.key)
	params.Set("keywords", keywords)
	params.Set("city", city)
	params.Set("extensions", "all")
	params.Set("output", "json")
	params.Set("page", strconv.Itoa(page))
	params.Set("offset", strconv.Itoa(pageSize))

	var result searchResponse
	if err := c.get(ctx, "/place/text", params, &result); err != nil {
		return nil, err
	}

	if result.Status != "1" {
		return nil, &ProviderError{Info: result.Info}
	}

	return result.POIs, nil
}

func (c *amapClientImpl) DistrictTree(ctx context.Context) ([]District, error) {
	params := url.Values{}
	params.Set("key", c.key)
	params.Set("keywords", "中国")
	params.Set("subdistrict", "3")
	params.Set("extensions", "base")

	var result districtResponse
	if err := c.get(ctx, "/config/district", params, &result); err != nil {
		return nil, err
	}

	if result.Status != "1" {
		return nil, &ProviderError{Info: result.Info}
	}
	if len(result.Districts) == 0 {
		return nil, &ProviderError{Info: "empty district response"}
	}

	return result.Districts[0].Districts, nil
}

func (c *amapClientImpl) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("http new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("amap error %d: %s", resp.StatusCode, string(b))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode amap response: %w", err)
	}

	return nil
}
