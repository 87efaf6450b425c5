// Package cloudrun implements controlplane.ServiceControlClient on top of the
// Cloud Run Admin API v2.
package cloudrun

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	run "google.golang.org/api/run/v2"
	htransport "google.golang.org/api/transport/http"
	"sigs.k8s.io/controller-runtime/pkg/log"

	v1alpha1 "github.com/numtide/cloudrun-deployer/api/v1alpha1"
	"github.com/numtide/cloudrun-deployer/pkg/controlplane"
	"github.com/numtide/cloudrun-deployer/pkg/deployerr"
)

// DefaultEndpoint is the public Cloud Run Admin API endpoint.
const DefaultEndpoint = "https://run.googleapis.com/"

// Terminal condition states reported on a service.
const (
	conditionSucceeded = "CONDITION_SUCCEEDED"
	conditionFailed    = "CONDITION_FAILED"
)

// Client talks to the Cloud Run Admin API.
//
// Creation posts the service body as JSON so that fields missing from the
// generated types (the mesh dataplane mode) reach the API. Every other call
// goes through the generated client. Both share one authenticated transport.
type Client struct {
	services *run.ProjectsLocationsServicesService
	http     *http.Client
	endpoint string
}

var _ controlplane.ServiceControlClient = (*Client)(nil)

// NewClient creates a Client. Without options it authenticates with
// application default credentials against DefaultEndpoint.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithScopes(run.CloudPlatformScope)}, opts...)

	httpClient, endpoint, err := htransport.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}

	svc, err := run.NewService(ctx, option.WithHTTPClient(httpClient), option.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create run client: %w", err)
	}

	return &Client{
		services: svc.Projects.Locations.Services,
		http:     httpClient,
		endpoint: endpoint,
	}, nil
}

// CreateService implements controlplane.ServiceControlClient.
func (c *Client) CreateService(
	ctx context.Context,
	id v1alpha1.DeploymentIdentity,
	service *v1alpha1.Service,
) (*controlplane.Operation, error) {
	body, err := json.Marshal(service)
	if err != nil {
		return nil, fmt.Errorf("failed to encode service %s: %w", id, err)
	}

	u := fmt.Sprintf("%sv2/%s/services?serviceId=%s", c.endpoint, id.Parent(), url.QueryEscape(id.ServiceName))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	log.FromContext(ctx).V(1).Info("Submitting service", "service", id.String(), "body", string(body))

	res, err := c.http.Do(req)
	if err != nil {
		return nil, classify("create", err)
	}
	defer googleapi.CloseBody(res)
	if err := googleapi.CheckResponse(res); err != nil {
		return nil, classify("create", err)
	}

	op := &run.GoogleLongrunningOperation{}
	if err := json.NewDecoder(res.Body).Decode(op); err != nil {
		return nil, classify("create", err)
	}
	return toOperation("create", op)
}

// GetService implements controlplane.ServiceControlClient.
func (c *Client) GetService(
	ctx context.Context,
	id v1alpha1.DeploymentIdentity,
) (*v1alpha1.ReconciliationResult, error) {
	svc, err := c.services.Get(id.FullName()).Context(ctx).Do()
	if err != nil {
		return nil, classify("get", err)
	}
	return toResult(svc), nil
}

// DeleteService implements controlplane.ServiceControlClient.
func (c *Client) DeleteService(
	ctx context.Context,
	id v1alpha1.DeploymentIdentity,
) (*controlplane.Operation, error) {
	op, err := c.services.Delete(id.FullName()).Context(ctx).Do()
	if err != nil {
		return nil, classify("delete", err)
	}
	return toOperation("delete", op)
}

// SetInvokerPolicy implements controlplane.ServiceControlClient.
// The policy is replaced with a single invoker binding.
func (c *Client) SetInvokerPolicy(
	ctx context.Context,
	id v1alpha1.DeploymentIdentity,
	member string,
) error {
	if member == "" {
		member = controlplane.AllUsers
	}
	req := &run.GoogleIamV1SetIamPolicyRequest{
		Policy: &run.GoogleIamV1Policy{
			Bindings: []*run.GoogleIamV1Binding{
				{
					Role:    controlplane.InvokerRole,
					Members: []string{member},
				},
			},
		},
	}
	if _, err := c.services.SetIamPolicy(id.FullName(), req).Context(ctx).Do(); err != nil {
		return classify("setIamPolicy", err)
	}
	return nil
}

// toResult reduces a service to the fields the poller looks at.
func toResult(svc *run.GoogleCloudRunV2Service) *v1alpha1.ReconciliationResult {
	res := &v1alpha1.ReconciliationResult{
		Reconciling: svc.Reconciling,
		Endpoint:    svc.Uri,
	}
	if svc.LatestReadyRevision != "" {
		res.RevisionID = path.Base(svc.LatestReadyRevision)
	}

	cond := svc.TerminalCondition
	switch {
	case svc.Reconciling:
	case cond == nil || cond.State == conditionSucceeded:
		res.Ready = true
	case cond.State == conditionFailed:
		res.Message = cond.Message
		if res.Message == "" {
			res.Message = cond.Reason
		}
		// An empty message would read as still in progress.
		if res.Message == "" {
			res.Message = "reconciliation failed"
		}
	}
	return res
}

func toOperation(op string, lro *run.GoogleLongrunningOperation) (*controlplane.Operation, error) {
	if lro.Done && lro.Error != nil {
		return nil, &deployerr.RemoteAPIError{Op: op, Message: lro.Error.Message}
	}
	return &controlplane.Operation{Name: lro.Name, Done: lro.Done}, nil
}

// classify converts transport and API errors into RemoteAPIError, keeping the
// HTTP status so that callers can recognise missing services.
func classify(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.Code)
		}
		return &deployerr.RemoteAPIError{Op: op, Status: apiErr.Code, Message: msg, Err: err}
	}
	return &deployerr.RemoteAPIError{Op: op, Message: err.Error(), Err: err}
}
