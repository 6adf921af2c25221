package spreadsheet

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Fetch downloads a workbook from url.
func Fetch(ctx context.Context, url string) ([]byte, error) {
	return FetchWith(ctx, resty.New().SetTimeout(10*time.Second).SetRetryCount(2), url)
}

// FetchWith downloads a workbook with the given client.
func FetchWith(ctx context.Context, client *resty.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("workbook URL is not configured")
	}
	resp, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download workbook: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to download workbook: unexpected status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}
