// Package poller waits for the control plane to converge a service.
//
// Creation and readiness are separate points in time: a created service is
// only usable once a poll observes it ready with an endpoint. Deletion is
// complete once the service can no longer be found.
package poller

import (
	"context"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"sigs.k8s.io/controller-runtime/pkg/log"

	v1alpha1 "github.com/numtide/cloudrun-deployer/api/v1alpha1"
	"github.com/numtide/cloudrun-deployer/pkg/controlplane"
	"github.com/numtide/cloudrun-deployer/pkg/deployerr"
	"github.com/numtide/cloudrun-deployer/pkg/monitoring"
	"github.com/numtide/cloudrun-deployer/pkg/util/status"
)

const (
	// DefaultInterval is the pause between two polls.
	DefaultInterval = 5 * time.Second

	// DefaultTimeout bounds a single wait.
	DefaultTimeout = 10 * time.Minute
)

// Condition decides whether a poll finished the wait. It receives either the
// observed result or the error returned by GetService. Returning an error
// aborts the wait.
type Condition func(res *v1alpha1.ReconciliationResult, err error) (bool, error)

// Poller polls a service at a fixed interval until a Condition holds or the
// timeout elapses.
type Poller struct {
	Client   controlplane.ServiceControlClient
	Interval time.Duration
	Timeout  time.Duration
}

// New returns a Poller with the default interval and timeout.
func New(client controlplane.ServiceControlClient) *Poller {
	return &Poller{Client: client, Interval: DefaultInterval, Timeout: DefaultTimeout}
}

// WaitUntil polls id until cond holds. The first poll happens immediately.
//
// It returns the last successfully observed result alongside any error. When
// the timeout elapses the error is a *deployerr.TimeoutError; when ctx is
// cancelled first, ctx.Err() is returned.
func (p *Poller) WaitUntil(
	ctx context.Context,
	id v1alpha1.DeploymentIdentity,
	cond Condition,
) (*v1alpha1.ReconciliationResult, error) {
	logger := log.FromContext(ctx).WithValues("service", id.ServiceName)

	var last *v1alpha1.ReconciliationResult
	err := wait.PollUntilContextTimeout(ctx, p.interval(), p.timeout(), true,
		func(ctx context.Context) (bool, error) {
			res, getErr := p.Client.GetService(ctx, id)
			if getErr != nil && ctx.Err() != nil {
				// The wait is being interrupted; let it report why.
				return false, nil
			}
			if getErr == nil {
				last = res
			}

			done, err := cond(res, getErr)
			switch {
			case err != nil:
				monitoring.RecordPoll(id.ServiceName, monitoring.PollOutcomeError)
				return false, err
			case done:
				monitoring.RecordPoll(id.ServiceName, monitoring.PollOutcomeSatisfied)
				return true, nil
			case deployerr.IsNotFound(getErr):
				monitoring.RecordPoll(id.ServiceName, monitoring.PollOutcomeNotFound)
			default:
				monitoring.RecordPoll(id.ServiceName, monitoring.PollOutcomePending)
			}

			if res != nil {
				logger.V(1).Info("Waiting for service", "reconciling", res.Reconciling, "endpoint", res.Endpoint)
			} else {
				logger.V(1).Info("Waiting for service", "err", getErr)
			}
			return false, nil
		},
	)
	if err == nil {
		return last, nil
	}
	if wait.Interrupted(err) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return last, ctxErr
		}
		return last, &deployerr.TimeoutError{
			Service: id.FullName(),
			Timeout: p.timeout(),
			Last:    last,
			Err:     err,
		}
	}
	return last, err
}

// WaitForReady polls until the service is ready and exposes an endpoint.
//
// A service that is not visible yet is polled again. A reconciliation that
// finished unsuccessfully aborts the wait with a RemoteAPIError.
func (p *Poller) WaitForReady(
	ctx context.Context,
	id v1alpha1.DeploymentIdentity,
) (*v1alpha1.ReconciliationResult, error) {
	return p.WaitUntil(ctx, id, Ready)
}

// WaitForDeletion polls until the service can no longer be found.
func (p *Poller) WaitForDeletion(ctx context.Context, id v1alpha1.DeploymentIdentity) error {
	_, err := p.WaitUntil(ctx, id, Gone)
	return err
}

// Ready is the Condition used by WaitForReady.
func Ready(res *v1alpha1.ReconciliationResult, err error) (bool, error) {
	if err != nil {
		if deployerr.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if status.IsTerminalFailure(res) {
		return false, &deployerr.RemoteAPIError{Op: "reconcile", Message: res.Message}
	}
	return status.IsReady(res), nil
}

// Gone is the Condition used by WaitForDeletion.
func Gone(_ *v1alpha1.ReconciliationResult, err error) (bool, error) {
	if err != nil {
		if deployerr.IsNotFound(err) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

func (p *Poller) interval() time.Duration {
	if p.Interval <= 0 {
		return DefaultInterval
	}
	return p.Interval
}

func (p *Poller) timeout() time.Duration {
	if p.Timeout <= 0 {
		return DefaultTimeout
	}
	return p.Timeout
}
