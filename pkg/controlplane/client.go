// Package controlplane defines the capability interface the lifecycle
// controller uses to talk to the serverless control plane.
//
// Exactly one implementation is selected when a controller is constructed:
// package cloudrun talks to the Cloud Run Admin API, package fake keeps
// services in memory for tests.
package controlplane

import (
	"context"

	v1alpha1 "github.com/numtide/cloudrun-deployer/api/v1alpha1"
)

const (
	// AllUsers is the principal that grants invocation to anyone.
	AllUsers = "allUsers"

	// InvokerRole is the role bound by SetInvokerPolicy.
	InvokerRole = "roles/run.invoker"
)

// Operation is the handle of a long-running provider operation.
// The controller does not wait on it; readiness is observed through GetService.
type Operation struct {
	Name string
	Done bool
}

// ServiceControlClient creates, observes and removes a single service.
//
// Every method fails with a *deployerr.RemoteAPIError when the provider
// rejects the request. A missing service is reported by GetService and
// DeleteService as a RemoteAPIError with status 404, see deployerr.IsNotFound.
type ServiceControlClient interface {
	// CreateService submits service under id. It is never retried.
	CreateService(ctx context.Context, id v1alpha1.DeploymentIdentity, service *v1alpha1.Service) (*Operation, error)

	// GetService returns a snapshot of the service's reconciliation state.
	GetService(ctx context.Context, id v1alpha1.DeploymentIdentity) (*v1alpha1.ReconciliationResult, error)

	// DeleteService submits the removal of the service.
	DeleteService(ctx context.Context, id v1alpha1.DeploymentIdentity) (*Operation, error)

	// SetInvokerPolicy grants InvokerRole on the service to member.
	// An empty member means AllUsers.
	SetInvokerPolicy(ctx context.Context, id v1alpha1.DeploymentIdentity, member string) error
}
