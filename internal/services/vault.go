package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// VaultService probes the secret store described by the Vault connection
// record. Tokens never leave the engine in plaintext; reachability is the
// only interaction.
type VaultService struct {
	client *http.Client
}

func NewVaultService(timeout time.Duration) *VaultService {
	return &VaultService{client: &http.Client{Timeout: timeout}}
}

// TestReachable checks the Vault health endpoint. Standby and sealed states
// still count as reachable since they answer with dedicated status codes.
func (s *VaultService) TestReachable(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("vault url is not configured")
	}

	endpoint := strings.TrimRight(url, "/") + "/v1/sys/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("vault unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusTooManyRequests, 472, 473, 501, 503:
		return nil
	default:
		return fmt.Errorf("vault health check failed: status %d", resp.StatusCode)
	}
}
