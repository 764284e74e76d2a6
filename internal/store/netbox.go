package store

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/metal-toolbox/netsync/internal/metrics"
	"github.com/metal-toolbox/netsync/internal/model"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const (
	storeKindNetBox = "netbox"

	retryWaitMin = 500 * time.Millisecond
	retryWaitMax = 5 * time.Second

	// maxErrorBody caps the response body included in query errors.
	maxErrorBody = 512
)

// paths are the REST API paths of each kind, relative to the API root.
var paths = map[Kind]string{
	KindDevice:       "dcim/devices",
	KindModuleBay:    "dcim/module-bays",
	KindModule:       "dcim/modules",
	KindInterface:    "dcim/interfaces",
	KindManufacturer: "dcim/manufacturers",
	KindDeviceType:   "dcim/device-types",
	KindModuleType:   "dcim/module-types",
	KindSite:         "dcim/sites",
	KindRole:         "dcim/device-roles",
}

// page is a NetBox list response.
type page struct {
	Count   int              `mapstructure:"count"`
	Next    string           `mapstructure:"next"`
	Results []map[string]any `mapstructure:"results"`
}

// NetBox is the NetBox REST API inventory system.
type NetBox struct {
	api    *url.URL
	token  string
	reader *retryablehttp.Client
	writer *retryablehttp.Client
	logger *logrus.Logger
}

// NewNetBox returns a NetBox REST API client.
//
// Reads are retried up to MaxRetries on connection errors and server errors, writes are never retried.
func NewNetBox(cfg *model.NetBoxOptions, logger *logrus.Logger) (*NetBox, error) {
	if cfg.Endpoint == "" {
		return nil, errors.Wrap(model.ErrConfiguration, "netbox endpoint not defined")
	}

	if cfg.Token == "" {
		return nil, errors.Wrap(model.ErrConfiguration, "netbox API token not defined")
	}

	endpoint, err := url.Parse(strings.TrimSuffix(cfg.Endpoint, "/") + "/api/")
	if err != nil {
		return nil, errors.Wrap(model.ErrConfiguration, "netbox endpoint: "+err.Error())
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = model.DefaultNetBoxTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifyTLS {
		// nolint:gosec // lab NetBox instances commonly run with self signed certificates.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &NetBox{
		api:    endpoint,
		token:  cfg.Token,
		reader: newRetryableClient(transport, timeout, cfg.MaxRetries, logger),
		writer: newRetryableClient(transport, timeout, 0, logger),
		logger: logger,
	}, nil
}

// returns a retryable http client with the otel transport wrapped in
func newRetryableClient(transport http.RoundTripper, timeout time.Duration, retries int, logger *logrus.Logger) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = retryWaitMin
	client.RetryWaitMax = retryWaitMax
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client.HTTPClient = &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(transport),
	}

	// disable default debug logging on the retryable client
	if logger.Level < logrus.DebugLevel {
		client.Logger = nil
	} else {
		client.Logger = logger
	}

	return client
}

// Endpoint returns the endpoint serving kind.
func (n *NetBox) Endpoint(kind Kind) Endpoint {
	return &netboxEndpoint{client: n, kind: kind}
}

func (n *NetBox) registerMetric(kind Kind, operation string) {
	metrics.StoreQueryErrorCount.With(
		prometheus.Labels{
			"storeKind": storeKindNetBox,
			"kind":      string(kind),
			"operation": operation,
		},
	).Inc()
}

func (n *NetBox) kindURL(kind Kind) (*url.URL, error) {
	path, exists := paths[kind]
	if !exists {
		return nil, errors.Wrap(ErrUnknownKind, string(kind))
	}

	return n.api.JoinPath(path + "/"), nil
}

func (n *NetBox) recordURL(kind Kind, id int) (*url.URL, error) {
	u, err := n.kindURL(kind)
	if err != nil {
		return nil, err
	}

	return u.JoinPath(strconv.Itoa(id) + "/"), nil
}

// do sends the request and returns the decoded JSON object of a 2xx response.
func (n *NetBox) do(ctx context.Context, client *retryablehttp.Client, method, target string, body Fields) (map[string]any, error) {
	var payload []byte

	if body != nil {
		var err error

		payload, err = json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(ErrQuery, "encode request: "+err.Error())
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(ErrQuery, err.Error())
	}

	req.Header.Set("Authorization", "Token "+n.token)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrap(ErrQuery, fmt.Sprintf("%s %s: %s", method, target, err.Error()))
	}

	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(ErrQuery, "read response: "+err.Error())
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if len(respBody) > maxErrorBody {
			respBody = respBody[:maxErrorBody]
		}

		return nil, errors.Wrap(
			ErrQuery,
			fmt.Sprintf("%s %s: status %d: %s", method, target, resp.StatusCode, strings.TrimSpace(string(respBody))),
		)
	}

	decoded := map[string]any{}

	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, errors.Wrap(ErrQuery, "decode response: "+err.Error())
	}

	return decoded, nil
}

func (n *NetBox) list(ctx context.Context, kind Kind, filter Filter) ([]*Record, error) {
	u, err := n.kindURL(kind)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	for k, v := range filter {
		query.Set(k, v)
	}

	limit := toInt(filter[FilterLimit])
	u.RawQuery = query.Encode()

	records := []*Record{}
	target := u.String()

	for target != "" {
		raw, err := n.do(ctx, n.reader, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}

		p := page{}
		if err := mapstructure.Decode(raw, &p); err != nil {
			return nil, errors.Wrap(ErrQuery, "decode page: "+err.Error())
		}

		for _, result := range p.Results {
			record, err := recordFrom(result)
			if err != nil {
				return nil, err
			}

			records = append(records, record)
		}

		// a limited query is answered by its first page
		if limit > 0 {
			if len(records) > limit {
				records = records[:limit]
			}

			break
		}

		target = p.Next
	}

	return records, nil
}

func recordFrom(raw map[string]any) (*Record, error) {
	identity := struct {
		ID int `mapstructure:"id"`
	}{}

	if err := mapstructure.Decode(raw, &identity); err != nil {
		return nil, errors.Wrap(ErrQuery, "decode record: "+err.Error())
	}

	return &Record{ID: identity.ID, Fields: raw}, nil
}

type netboxEndpoint struct {
	client *NetBox
	kind   Kind
}

func (e *netboxEndpoint) Get(ctx context.Context, filter Filter) (*Record, error) {
	ctx, span := otel.Tracer(pkgName).Start(ctx, "NetBox.Get")
	defer span.End()

	span.SetAttributes(attribute.String("kind", string(e.kind)))

	records, err := e.client.list(ctx, e.kind, filter)
	if err != nil {
		e.client.registerMetric(e.kind, "get")

		return nil, err
	}

	return single(e.kind, records)
}

func (e *netboxEndpoint) Filter(ctx context.Context, filter Filter) ([]*Record, error) {
	ctx, span := otel.Tracer(pkgName).Start(ctx, "NetBox.Filter")
	defer span.End()

	span.SetAttributes(attribute.String("kind", string(e.kind)))

	records, err := e.client.list(ctx, e.kind, filter)
	if err != nil {
		e.client.registerMetric(e.kind, "filter")

		return nil, err
	}

	return records, nil
}

func (e *netboxEndpoint) Create(ctx context.Context, fields Fields) (*Record, error) {
	ctx, span := otel.Tracer(pkgName).Start(ctx, "NetBox.Create")
	defer span.End()

	span.SetAttributes(attribute.String("kind", string(e.kind)))

	u, err := e.client.kindURL(e.kind)
	if err != nil {
		return nil, err
	}

	raw, err := e.client.do(ctx, e.client.writer, http.MethodPost, u.String(), fields)
	if err != nil {
		e.client.registerMetric(e.kind, "create")

		return nil, err
	}

	return recordFrom(raw)
}

func (e *netboxEndpoint) Update(ctx context.Context, record *Record, fields Fields) (*Record, error) {
	ctx, span := otel.Tracer(pkgName).Start(ctx, "NetBox.Update")
	defer span.End()

	span.SetAttributes(attribute.String("kind", string(e.kind)))

	if record == nil {
		return nil, errors.Wrap(ErrRecordNotFound, string(e.kind)+": update of nil record")
	}

	u, err := e.client.recordURL(e.kind, record.ID)
	if err != nil {
		return nil, err
	}

	raw, err := e.client.do(ctx, e.client.writer, http.MethodPatch, u.String(), fields)
	if err != nil {
		e.client.registerMetric(e.kind, "update")

		return nil, err
	}

	return recordFrom(raw)
}
