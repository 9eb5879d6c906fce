// Package ipfs pins content through an IPFS HTTP API and converts content URIs.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	shell "github.com/ipfs/go-ipfs-api"
	"github.com/sirupsen/logrus"
)

// Client talks to the /api/v0 endpoints of an IPFS node or pinning service.
type Client struct {
	sh      *shell.Shell
	gateway string
}

type basicAuthTransport struct {
	projectID, secret string
	base              http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.projectID, t.secret)
	return t.base.RoundTrip(req)
}

// NewClient builds a client for apiURL. projectID and secret enable Basic auth (Infura).
func NewClient(apiURL, gateway, projectID, secret string) *Client {
	httpClient := &http.Client{Timeout: 60 * time.Second}
	if projectID != "" {
		httpClient.Transport = &basicAuthTransport{
			projectID: projectID,
			secret:    secret,
			base:      http.DefaultTransport,
		}
	}
	return &Client{
		sh:      shell.NewShellWithClient(apiURL, httpClient),
		gateway: gateway,
	}
}

// Gateway is the HTTP gateway prefix used for display URLs.
func (c *Client) Gateway() string {
	return c.gateway
}

// AddFile pins r and returns its ipfs:// URI.
func (c *Client) AddFile(ctx context.Context, name string, r io.Reader) (string, error) {
	cid, err := c.sh.Add(r)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"file":  name,
			"error": err,
		}).Error("IPFS upload failed")
		return "", fmt.Errorf("failed to upload %s to IPFS: %v", name, err)
	}
	logrus.WithFields(logrus.Fields{"file": name, "cid": cid}).Info("Uploaded file to IPFS")
	return ToURI(cid), nil
}

// AddJSON marshals v, pins it and returns its ipfs:// URI.
func (c *Client) AddJSON(ctx context.Context, v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %v", err)
	}
	return c.AddFile(ctx, "metadata.json", bytes.NewReader(data))
}

// Cat reads the content behind a CID or ipfs:// URI.
func (c *Client) Cat(ctx context.Context, uri string) ([]byte, error) {
	cid := ParseURI(uri)
	if cid == "" {
		return nil, fmt.Errorf("invalid IPFS uri %q", uri)
	}
	rc, err := c.sh.Cat(cid)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve %s from IPFS: %v", cid, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// GetJSON decodes the JSON document behind uri into out.
func (c *Client) GetJSON(ctx context.Context, uri string, out interface{}) error {
	data, err := c.Cat(ctx, uri)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode IPFS document %s: %v", uri, err)
	}
	return nil
}
