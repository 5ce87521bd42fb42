package privacy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openlend/lendcore/internal/common"
)

// PairingChecker performs the cryptographic pairing check for one proof
// against the verifier bound to its proof type. Implementations only decide
// valid or invalid; all registry bookkeeping stays in the Service.
type PairingChecker interface {
	Check(ctx context.Context, handle string, proof Proof, signals []string) (bool, error)
}

// HTTPChecker delegates the pairing check to an external verifier service
// addressed by the per-proof-type handle.
type HTTPChecker struct {
	client *http.Client
}

func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{client: &http.Client{Timeout: timeout}}
}

type checkRequest struct {
	Proof         Proof    `json:"proof"`
	PublicSignals []string `json:"public_signals"`
}

type checkResponse struct {
	Valid bool `json:"valid"`
}

func (c *HTTPChecker) Check(ctx context.Context, handle string, proof Proof, signals []string) (bool, error) {
	body, err := json.Marshal(checkRequest{Proof: proof, PublicSignals: signals})
	if err != nil {
		return false, fmt.Errorf("failed to encode check request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, handle, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to build check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %s", common.ErrVerifierUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: verifier returned status %d", common.ErrVerifierUnavailable, resp.StatusCode)
	}

	var out checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("%w: %s", common.ErrVerifierUnavailable, err)
	}
	return out.Valid, nil
}
