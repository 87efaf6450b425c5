// Package fake provides an in-memory controlplane.ServiceControlClient for
// tests. Services reconcile after a configurable number of polls and vanish
// a configurable number of polls after deletion.
package fake

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	v1alpha1 "github.com/numtide/cloudrun-deployer/api/v1alpha1"
	"github.com/numtide/cloudrun-deployer/pkg/controlplane"
	"github.com/numtide/cloudrun-deployer/pkg/deployerr"
)

// FailureConfig configures when the fake client should return errors.
// Each field receives the identity of the call and returns an error if the
// operation should fail.
type FailureConfig struct {
	// OnCreate is called before CreateService. Return non-nil to fail the operation.
	OnCreate func(id v1alpha1.DeploymentIdentity) error

	// OnGet is called before GetService. Return non-nil to fail the operation.
	OnGet func(id v1alpha1.DeploymentIdentity) error

	// OnDelete is called before DeleteService. Return non-nil to fail the operation.
	OnDelete func(id v1alpha1.DeploymentIdentity) error

	// OnSetInvokerPolicy is called before SetInvokerPolicy. Return non-nil to fail the operation.
	OnSetInvokerPolicy func(id v1alpha1.DeploymentIdentity) error
}

// Calls counts the requests received per operation.
type Calls struct {
	Create           int
	Get              int
	Delete           int
	SetInvokerPolicy int
}

// Total returns the number of requests of any kind.
func (c Calls) Total() int {
	return c.Create + c.Get + c.Delete + c.SetInvokerPolicy
}

type entry struct {
	service  *v1alpha1.Service
	revision int
	polls    int
	deleting bool
	// deletePolls counts polls observed since deletion was submitted.
	deletePolls int
}

// Client is an in-memory ServiceControlClient. It is safe for concurrent use.
type Client struct {
	mu sync.Mutex

	readyAfter     int
	goneAfter      int
	neverReady     bool
	terminalReason string
	endpoint       func(id v1alpha1.DeploymentIdentity) string
	failures       FailureConfig

	services       map[string]*entry
	calls          Calls
	created        []*v1alpha1.Service
	invokerMembers []string
	revisions      int
}

var _ controlplane.ServiceControlClient = (*Client)(nil)

// NewClient returns a fake that reports services ready on the first poll and
// gone on the first poll after deletion.
func NewClient() *Client {
	return &Client{
		services: make(map[string]*entry),
		endpoint: func(id v1alpha1.DeploymentIdentity) string {
			return fmt.Sprintf("https://%s.example.run", id.ServiceName)
		},
	}
}

// WithReadyAfter makes services report reconciling for the first n polls.
func (c *Client) WithReadyAfter(n int) *Client {
	c.readyAfter = n
	return c
}

// WithGoneAfter keeps deleted services visible for n polls.
func (c *Client) WithGoneAfter(n int) *Client {
	c.goneAfter = n
	return c
}

// WithNeverReady makes services reconcile forever.
func (c *Client) WithNeverReady() *Client {
	c.neverReady = true
	return c
}

// WithTerminalFailure makes reconciliation finish unsuccessfully with reason
// once the ready threshold is reached.
func (c *Client) WithTerminalFailure(reason string) *Client {
	c.terminalReason = reason
	return c
}

// WithEndpoint overrides the endpoint assigned to ready services.
func (c *Client) WithEndpoint(fn func(id v1alpha1.DeploymentIdentity) string) *Client {
	c.endpoint = fn
	return c
}

// WithFailures installs failure hooks.
func (c *Client) WithFailures(f FailureConfig) *Client {
	c.failures = f
	return c
}

// Calls returns a copy of the request counters.
func (c *Client) Calls() Calls {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Created returns the bodies submitted through CreateService, in order.
func (c *Client) Created() []*v1alpha1.Service {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*v1alpha1.Service(nil), c.created...)
}

// InvokerMembers returns the members granted through SetInvokerPolicy, in order.
func (c *Client) InvokerMembers() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.invokerMembers...)
}

// Exists reports whether a service is stored under id, including services
// whose deletion is still in progress.
func (c *Client) Exists(id v1alpha1.DeploymentIdentity) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.services[id.FullName()]
	return ok
}

// CreateService implements controlplane.ServiceControlClient.
func (c *Client) CreateService(
	_ context.Context,
	id v1alpha1.DeploymentIdentity,
	service *v1alpha1.Service,
) (*controlplane.Operation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls.Create++
	if c.failures.OnCreate != nil {
		if err := c.failures.OnCreate(id); err != nil {
			return nil, err
		}
	}

	name := id.FullName()
	if _, ok := c.services[name]; ok {
		return nil, &deployerr.RemoteAPIError{
			Op:      "create",
			Status:  http.StatusConflict,
			Message: fmt.Sprintf("service %s already exists", name),
		}
	}

	c.revisions++
	c.services[name] = &entry{service: service, revision: c.revisions}
	c.created = append(c.created, service)
	return &controlplane.Operation{Name: fmt.Sprintf("%s/operations/create-%d", id.Parent(), c.revisions)}, nil
}

// GetService implements controlplane.ServiceControlClient.
func (c *Client) GetService(
	_ context.Context,
	id v1alpha1.DeploymentIdentity,
) (*v1alpha1.ReconciliationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls.Get++
	if c.failures.OnGet != nil {
		if err := c.failures.OnGet(id); err != nil {
			return nil, err
		}
	}

	name := id.FullName()
	e, ok := c.services[name]
	if !ok {
		return nil, notFound("get", name)
	}

	if e.deleting {
		e.deletePolls++
		if e.deletePolls > c.goneAfter {
			delete(c.services, name)
			return nil, notFound("get", name)
		}
		return &v1alpha1.ReconciliationResult{Reconciling: true}, nil
	}

	e.polls++
	if c.neverReady || e.polls <= c.readyAfter {
		return &v1alpha1.ReconciliationResult{Reconciling: true}, nil
	}
	if c.terminalReason != "" {
		return &v1alpha1.ReconciliationResult{Message: c.terminalReason}, nil
	}
	return &v1alpha1.ReconciliationResult{
		Ready:      true,
		Endpoint:   c.endpoint(id),
		RevisionID: fmt.Sprintf("%s-%05d", id.ServiceName, e.revision),
	}, nil
}

// DeleteService implements controlplane.ServiceControlClient.
func (c *Client) DeleteService(
	_ context.Context,
	id v1alpha1.DeploymentIdentity,
) (*controlplane.Operation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls.Delete++
	if c.failures.OnDelete != nil {
		if err := c.failures.OnDelete(id); err != nil {
			return nil, err
		}
	}

	name := id.FullName()
	e, ok := c.services[name]
	if !ok || e.deleting {
		return nil, notFound("delete", name)
	}
	e.deleting = true
	return &controlplane.Operation{Name: fmt.Sprintf("%s/operations/delete-%d", id.Parent(), e.revision)}, nil
}

// SetInvokerPolicy implements controlplane.ServiceControlClient.
func (c *Client) SetInvokerPolicy(
	_ context.Context,
	id v1alpha1.DeploymentIdentity,
	member string,
) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls.SetInvokerPolicy++
	if c.failures.OnSetInvokerPolicy != nil {
		if err := c.failures.OnSetInvokerPolicy(id); err != nil {
			return err
		}
	}

	name := id.FullName()
	if _, ok := c.services[name]; !ok {
		return notFound("setIamPolicy", name)
	}
	if member == "" {
		member = controlplane.AllUsers
	}
	c.invokerMembers = append(c.invokerMembers, member)
	return nil
}

func notFound(op, name string) error {
	return &deployerr.RemoteAPIError{
		Op:      op,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("service %s not found", name),
	}
}
