package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/unidir/unidir/channel"
)

// Client delivers payments to a remote gateway.  It satisfies the
// sender side's transport interface.
type Client struct {
	http *http.Client
}

// NewClient makes a gateway client with a sane default timeout.
func NewClient() *Client {
	return &Client{http: &http.Client{Timeout: 30 * time.Second}}
}

// DeliverPayment POSTs the payment to gw's /accept endpoint and
// returns the minted token.
func (c *Client) DeliverPayment(ctx context.Context, gw string,
	p *channel.Payment) (channel.Token, error) {

	body, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequest("POST", gw+"/accept", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "deliver payment")
	}
	defer resp.Body.Close()

	var ar AcceptResponse
	if err = json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return "", errors.Wrap(err, "deliver payment: decode")
	}
	if resp.StatusCode != http.StatusOK {
		if ar.Error != "" {
			return "", errors.Errorf("payment rejected: %s", ar.Error)
		}
		return "", errors.Errorf("payment rejected: status %d", resp.StatusCode)
	}
	return channel.Token(ar.Token), nil
}

// VerifyToken asks gw whether it minted the token.
func (c *Client) VerifyToken(ctx context.Context, gw string,
	token channel.Token) (bool, error) {

	body, err := json.Marshal(VerifyRequest{Token: string(token)})
	if err != nil {
		return false, err
	}
	req, err := http.NewRequest("POST", gw+"/verify", bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, errors.Wrap(err, "verify token")
	}
	defer resp.Body.Close()

	var vr VerifyResponse
	if err = json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return false, errors.Wrap(err, "verify token: decode")
	}
	return vr.Accepted, nil
}
