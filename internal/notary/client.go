package notary

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"

	"parley/internal/domain"
)

// HTTP posts attestations to a notary service over JSON.
type HTTP struct {
	Base string
	HTTP *http.Client
}

func NewHTTP(base string) *HTTP { return &HTTP{Base: base, HTTP: http.DefaultClient} }

var _ domain.Notary = (*HTTP)(nil)

type attestRequest struct {
	MessageID string `json:"messageId"`
	Hash      string `json:"hash"`
}

type attestResponse struct {
	Ref string `json:"ref"`
}

// Attest records (messageID, digest) with the service and returns the
// service's reference for the attestation.
func (c *HTTP) Attest(ctx context.Context, messageID, digest string) (string, error) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(attestRequest{MessageID: messageID, Hash: digest}); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+"/attest", buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", errors.Errorf("notary post /attest: %s", resp.Status)
	}

	var out attestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Ref, nil
}
