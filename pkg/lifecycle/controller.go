// Package lifecycle owns the state of one logical deployment: it deploys a
// service, waits for it to become reachable, exposes its endpoint and tears
// it down again.
//
// A Controller is not safe for concurrent use. Callers must serialize calls
// on a given Controller; distinct Controllers are independent.
package lifecycle

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"sigs.k8s.io/controller-runtime/pkg/log"

	v1alpha1 "github.com/numtide/cloudrun-deployer/api/v1alpha1"
	"github.com/numtide/cloudrun-deployer/pkg/builder"
	"github.com/numtide/cloudrun-deployer/pkg/controlplane"
	"github.com/numtide/cloudrun-deployer/pkg/deployerr"
	"github.com/numtide/cloudrun-deployer/pkg/monitoring"
	"github.com/numtide/cloudrun-deployer/pkg/names"
	"github.com/numtide/cloudrun-deployer/pkg/poller"
	"github.com/numtide/cloudrun-deployer/pkg/util/status"
)

// Status is the locally tracked state of a deployment.
type Status struct {
	Phase v1alpha1.Phase
	Role  v1alpha1.Role

	// Endpoint and RevisionID are set in PhaseReady. Endpoint is also kept
	// in PhaseFailed when only the invoker grant failed.
	Endpoint   string
	RevisionID string

	// Cause is the error that moved the deployment to PhaseFailed.
	Cause error

	// LastObserved is the last poll result of the current deployment.
	LastObserved *v1alpha1.ReconciliationResult
}

// Controller manages the lifecycle of the single service named by its identity.
type Controller struct {
	id     v1alpha1.DeploymentIdentity
	client controlplane.ServiceControlClient
	opts   Options

	status  Status
	current *v1alpha1.RunRecord
	history []v1alpha1.RunRecord
}

// New creates a Controller for id. The service name is rewritten with
// names.ServiceName if it does not satisfy the control plane's constraints.
func New(
	id v1alpha1.DeploymentIdentity,
	client controlplane.ServiceControlClient,
	opts Options,
) (*Controller, error) {
	if id.Project == "" {
		return nil, deployerr.Configf("project", "must not be empty")
	}
	if id.Region == "" {
		return nil, deployerr.Configf("region", "must not be empty")
	}
	serviceName, err := names.ServiceName(id.ServiceName)
	if err != nil {
		return nil, err
	}
	id.ServiceName = serviceName

	if client == nil {
		return nil, deployerr.Configf("client", "must not be nil")
	}

	return &Controller{
		id:     id,
		client: client,
		opts:   opts.withDefaults(),
		status: Status{Phase: v1alpha1.PhaseUnstarted},
	}, nil
}

// Identity returns the identity of the managed service.
func (c *Controller) Identity() v1alpha1.DeploymentIdentity {
	return c.id
}

// Phase returns the current phase.
func (c *Controller) Phase() v1alpha1.Phase {
	return c.status.Phase
}

// Status returns a copy of the current status.
func (c *Controller) Status() Status {
	s := c.status
	if s.LastObserved != nil {
		last := *s.LastObserved
		s.LastObserved = &last
	}
	return s
}

// History returns the run records of this controller, oldest first. The
// record of a deployment that was not cleaned up yet has a zero Stopped time.
func (c *Controller) History() []v1alpha1.RunRecord {
	out := slices.Clone(c.history)
	if c.current != nil {
		out = append(out, *c.current)
	}
	return out
}

// Endpoint returns the endpoint of the deployed service. It fails with a
// NotDeployedError unless the controller is in PhaseReady.
func (c *Controller) Endpoint() (string, error) {
	if c.status.Phase != v1alpha1.PhaseReady {
		return "", &deployerr.NotDeployedError{Service: c.id.FullName(), Phase: c.status.Phase}
	}
	return c.status.Endpoint, nil
}

// Deploy creates the service described by req, waits until it is ready and
// returns its endpoint.
//
// Invalid requests fail with a ConfigurationError before any remote call and
// leave the state untouched. Deploying over a Ready or Failed deployment
// first deletes the existing service and waits for it to disappear.
func (c *Controller) Deploy(ctx context.Context, req v1alpha1.DeploymentRequest) (endpoint string, err error) {
	role := string(req.Policy.Role)
	start := c.opts.Clock.Now()
	defer func() {
		monitoring.RecordOperation("deploy", role, err, c.opts.Clock.Since(start))
	}()

	res, err := c.opts.Resolver.Resolve(req)
	if err != nil {
		return "", err
	}
	body, err := builder.BuildService(c.id, res.Container, req.Policy, builder.Options{
		MeshName: res.MeshName,
		Labels:   req.Labels,
		Network:  req.Network,
	})
	if err != nil {
		return "", err
	}

	if !status.CanTransition(c.status.Phase, v1alpha1.PhaseDeploying) {
		return "", fmt.Errorf("cannot deploy service %s in phase %s", c.id, c.status.Phase)
	}

	attemptID := uuid.NewString()
	ctx, span := monitoring.StartOperationSpan(ctx, "Lifecycle.Deploy", c.id.FullName(), role)
	defer func() {
		monitoring.RecordSpanError(span, err)
		span.End()
	}()
	ctx = monitoring.EnrichLoggerWithTrace(ctx)
	logger := log.FromContext(ctx).WithValues("service", c.id.ServiceName, "attemptId", attemptID)
	ctx = log.IntoContext(ctx, logger)

	replacing := c.status.Phase != v1alpha1.PhaseUnstarted
	c.setPhase(ctx, v1alpha1.PhaseDeploying)
	c.status = Status{Phase: v1alpha1.PhaseDeploying, Role: res.Role}
	c.finishRun()
	c.current = &v1alpha1.RunRecord{AttemptID: attemptID, StartRequested: c.opts.Clock.Now()}

	if replacing {
		logger.Info("Replacing existing service")
		if err := c.removeService(ctx); err != nil {
			return "", c.fail(ctx, fmt.Errorf("failed to replace service %s: %w", c.id, err))
		}
	}

	logger.Info("Creating service", "role", res.Role, "image", res.Container.Image)
	if err := c.create(ctx, body); err != nil {
		return "", c.fail(ctx, err)
	}

	result, err := c.waitForReady(ctx)
	c.status.LastObserved = result
	if err != nil {
		return "", c.fail(ctx, err)
	}

	if res.GrantInvoker {
		if err := c.grantInvoker(ctx); err != nil {
			// The service stays up; its endpoint is kept for diagnostics.
			c.status.Endpoint = result.Endpoint
			c.status.RevisionID = result.RevisionID
			logger.Error(err, "Failed to grant invoker role", "member", c.opts.InvokerMember)
			return "", c.fail(ctx, err)
		}
	}

	completed := c.opts.Clock.Now()
	c.current.StartCompleted = &completed
	c.current.RevisionID = result.RevisionID
	c.current.Endpoint = result.Endpoint

	c.status.Endpoint = result.Endpoint
	c.status.RevisionID = result.RevisionID
	c.setPhase(ctx, v1alpha1.PhaseReady)
	logger.Info("Service is ready", "endpoint", result.Endpoint, "revision", result.RevisionID)
	return result.Endpoint, nil
}

// Cleanup deletes the service and waits for it to disappear. It is a no-op
// in PhaseUnstarted.
//
// The controller always ends in PhaseUnstarted, even when the delete or the
// wait fails. With force set, such errors are logged instead of returned.
func (c *Controller) Cleanup(ctx context.Context, force bool) error {
	if c.status.Phase == v1alpha1.PhaseUnstarted {
		return nil
	}

	role := string(c.status.Role)
	start := c.opts.Clock.Now()
	ctx, span := monitoring.StartOperationSpan(ctx, "Lifecycle.Cleanup", c.id.FullName(), role)
	defer span.End()
	ctx = monitoring.EnrichLoggerWithTrace(ctx)
	logger := log.FromContext(ctx).WithValues("service", c.id.ServiceName)
	ctx = log.IntoContext(ctx, logger)

	c.setPhase(ctx, v1alpha1.PhaseDeleting)
	c.status.Endpoint = ""
	c.status.RevisionID = ""

	logger.Info("Deleting service", "force", force)
	removeErr := c.removeService(ctx)
	monitoring.RecordOperation("cleanup", role, removeErr, c.opts.Clock.Since(start))
	monitoring.RecordSpanError(span, removeErr)

	c.setPhase(ctx, v1alpha1.PhaseUnstarted)
	c.status = Status{Phase: v1alpha1.PhaseUnstarted}
	c.finishRun()

	if removeErr == nil {
		logger.Info("Service deleted")
		return nil
	}
	if force {
		logger.Error(removeErr, "Ignoring cleanup failure")
		return nil
	}
	return removeErr
}

// removeService deletes the service and waits until it is gone. A service
// that does not exist counts as removed.
func (c *Controller) removeService(ctx context.Context) error {
	delCtx, span := monitoring.StartChildSpan(ctx, "DeleteService")
	_, err := c.client.DeleteService(delCtx, c.id)
	monitoring.RecordSpanError(span, err)
	span.End()
	if deployerr.IsNotFound(err) {
		log.FromContext(ctx).V(1).Info("Service already absent")
		return nil
	}
	if err != nil {
		return err
	}

	waitCtx, waitSpan := monitoring.StartChildSpan(ctx, "WaitForDeletion")
	defer waitSpan.End()
	err = c.poller(c.opts.DeleteTimeout).WaitForDeletion(waitCtx, c.id)
	monitoring.RecordSpanError(waitSpan, err)
	return err
}

func (c *Controller) create(ctx context.Context, body *v1alpha1.Service) error {
	ctx, span := monitoring.StartChildSpan(ctx, "CreateService")
	defer span.End()
	op, err := c.client.CreateService(ctx, c.id, body)
	if err != nil {
		monitoring.RecordSpanError(span, err)
		return err
	}
	log.FromContext(ctx).V(1).Info("Create submitted", "operation", op.Name)
	return nil
}

func (c *Controller) waitForReady(ctx context.Context) (*v1alpha1.ReconciliationResult, error) {
	ctx, span := monitoring.StartChildSpan(ctx, "WaitForReady")
	defer span.End()
	res, err := c.poller(c.opts.Timeout).WaitForReady(ctx, c.id)
	monitoring.RecordSpanError(span, err)
	return res, err
}

func (c *Controller) grantInvoker(ctx context.Context) error {
	ctx, span := monitoring.StartChildSpan(ctx, "SetInvokerPolicy")
	defer span.End()
	err := c.client.SetInvokerPolicy(ctx, c.id, c.opts.InvokerMember)
	monitoring.RecordSpanError(span, err)
	return err
}

func (c *Controller) poller(timeout time.Duration) *poller.Poller {
	return &poller.Poller{Client: c.client, Interval: c.opts.PollInterval, Timeout: timeout}
}

// fail moves the deployment to PhaseFailed and returns err.
func (c *Controller) fail(ctx context.Context, err error) error {
	c.status.Cause = err
	c.setPhase(ctx, v1alpha1.PhaseFailed)
	log.FromContext(ctx).Error(err, "Deployment failed")
	return err
}

// finishRun stamps the current run record as stopped and moves it to the
// history.
func (c *Controller) finishRun() {
	if c.current == nil {
		return
	}
	c.current.Stopped = c.opts.Clock.Now()
	c.history = append(c.history, *c.current)
	c.current = nil
}

func (c *Controller) setPhase(ctx context.Context, phase v1alpha1.Phase) {
	from := c.status.Phase
	if from == phase {
		return
	}
	if !status.CanTransition(from, phase) {
		// Transitions are driven by this package only; an illegal one is a bug.
		panic(fmt.Sprintf("illegal phase transition %s -> %s", from, phase))
	}
	c.status.Phase = phase
	monitoring.SetServiceInfo(c.id.ServiceName, c.id.Region, string(phase))
	log.FromContext(ctx).V(1).Info("Phase changed", "from", from, "to", phase)
}
