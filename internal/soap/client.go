package soap

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/andreasstove999/urbandrive/web-go/internal/middleware"
)

const maxResponseBytes = 8 << 20

// Client calls one ASMX service, e.g. WS_Vehiculo at {base}/WS_Vehiculo.asmx.
type Client struct {
	Name      string
	Endpoint  *url.URL
	Namespace string
	HTTP      *http.Client
}

func NewClient(baseURL, service, namespace string, httpClient *http.Client) *Client {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		// Fail fast: config error
		panic(fmt.Sprintf("invalid soap base url %q: %v", baseURL, err))
	}
	if !strings.HasSuffix(namespace, "/") {
		namespace += "/"
	}
	return &Client{
		Name:      service,
		Endpoint:  base.ResolveReference(&url.URL{Path: service + ".asmx"}),
		Namespace: namespace,
		HTTP:      httpClient,
	}
}

// Call invokes op and returns its {op}Result element. A nil node with a nil
// error means the backend answered without a result (void or null).
func (c *Client) Call(ctx context.Context, op string, params ...Param) (*Node, error) {
	payload, err := encodeEnvelope(c.Namespace, op, params)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: encode envelope: %w", c.Name, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Service: c.Name, Operation: op, Err: err}
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `"`+c.Namespace+op+`"`)
	if cid := middleware.GetCorrelationID(ctx); cid != "" {
		req.Header.Set(middleware.HeaderCorrelationID, cid)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &TransportError{Service: c.Name, Operation: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Service: c.Name, Operation: op, Status: resp.StatusCode, Err: err}
	}

	var doc envelopeDoc
	if err := xml.Unmarshal(raw, &doc); err != nil {
		if resp.StatusCode >= 300 {
			return nil, &TransportError{Service: c.Name, Operation: op, Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
		}
		return nil, &TransportError{Service: c.Name, Operation: op, Status: resp.StatusCode, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	if f := doc.Body.Fault; f != nil {
		return nil, &Fault{Service: c.Name, Operation: op, Code: strings.TrimSpace(f.Code), Text: strings.TrimSpace(f.String)}
	}
	if resp.StatusCode >= 300 {
		return nil, &TransportError{Service: c.Name, Operation: op, Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	var response *Node
	for _, n := range doc.Body.Content {
		if strings.EqualFold(n.Name, op+"Response") {
			response = n
			break
		}
	}
	if response == nil && len(doc.Body.Content) > 0 {
		response = doc.Body.Content[0]
	}
	result := response.Child(op + "Result")
	if result == nil || result.Nil {
		return nil, nil
	}
	return result, nil
}

// Ping fetches the service description. Used by readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	u := *c.Endpoint
	u.RawQuery = "WSDL"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &TransportError{Service: c.Name, Operation: "WSDL", Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return &TransportError{Service: c.Name, Operation: "WSDL", Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}
	return nil
}
