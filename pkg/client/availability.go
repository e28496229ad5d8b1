package client

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// AvailabilityClient talks to the availability service, the ordered oracle
// that ranks candidate providers for a service and time window. The engine
// never reorders or filters its answer.
type AvailabilityClient struct {
	httpClient *HttpClient
}

func NewAvailabilityClient(baseURL string) *AvailabilityClient {
	return &AvailabilityClient{
		httpClient: NewHttpClient(baseURL),
	}
}

type candidateProvidersResponse struct {
	Data struct {
		ProviderIDs []string `json:"provider_ids"`
	} `json:"data"`
}

func (c *AvailabilityClient) ListCandidateProviders(ctx context.Context, serviceID string, date string, windowStart, windowEnd time.Time) ([]string, error) {
	q := url.Values{}
	q.Set("service_id", serviceID)
	q.Set("date", date)
	q.Set("window_start", windowStart.Format(time.RFC3339))
	q.Set("window_end", windowEnd.Format(time.RFC3339))

	resp, err := c.httpClient.GET(ctx, "/api/v1/providers/candidates?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("availability request failed: %w", err)
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("availability service returned %d: %s", resp.StatusCode, GetErrorMessage(resp))
	}

	var decoded candidateProvidersResponse
	if err := resp.DecodeJSON(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode candidate providers: %w", err)
	}

	return decoded.Data.ProviderIDs, nil
}
