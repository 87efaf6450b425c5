/*
Copyright 2026 Numtide.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1alpha1

import (
	"fmt"
	"time"
)

// ============================================================================
// Identity
// ============================================================================

// DeploymentIdentity names the remote service managed by one controller.
// It is immutable for the controller's lifetime.
type DeploymentIdentity struct {
	// Project is the cloud project ID or number.
	Project string `json:"project"`
	// Region is the location the service runs in, e.g. "us-central1".
	Region string `json:"region"`
	// ServiceName is the short service ID. See names.ServiceName for the
	// constraints applied to it.
	ServiceName string `json:"serviceName"`
}

// Parent returns the collection the service is created in.
func (id DeploymentIdentity) Parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", id.Project, id.Region)
}

// FullName returns the fully-qualified resource name of the service.
func (id DeploymentIdentity) FullName() string {
	return fmt.Sprintf("%s/services/%s", id.Parent(), id.ServiceName)
}

// String implements fmt.Stringer.
func (id DeploymentIdentity) String() string {
	return id.FullName()
}

// ============================================================================
// Role Policy
// ============================================================================

// RolePolicy is a tagged variant over the supported roles. Client is only
// set when Role is RoleClient.
type RolePolicy struct {
	Role   Role          `json:"role"`
	Client *ClientPolicy `json:"client,omitempty"`
}

// ClientPolicy carries the parameters a client deployment cannot do without.
type ClientPolicy struct {
	// MeshName is the fully-qualified mesh the client binds to,
	// e.g. "projects/p/locations/global/meshes/grpc-mesh".
	MeshName string `json:"meshName"`

	// ServerTarget is passed to the client binary as --server.
	ServerTarget string `json:"serverTarget"`

	// SecureMode is passed to the client binary as --secure_mode.
	// Defaults to true.
	// +optional
	SecureMode *bool `json:"secureMode,omitempty"`
}

// ServerRole returns the policy for a server deployment.
func ServerRole() RolePolicy {
	return RolePolicy{Role: RoleServer}
}

// ClientRole returns the policy for a client deployment bound to meshName
// and sending traffic to serverTarget.
func ClientRole(meshName, serverTarget string) RolePolicy {
	return RolePolicy{
		Role: RoleClient,
		Client: &ClientPolicy{
			MeshName:     meshName,
			ServerTarget: serverTarget,
		},
	}
}

// ============================================================================
// Request
// ============================================================================

// DeploymentRequest is the declarative input of a single deploy call.
type DeploymentRequest struct {
	// Image is the container image URI.
	Image string `json:"image"`

	// Policy selects the role-specific container shape.
	Policy RolePolicy `json:"policy"`

	// Port overrides the role's default container port.
	// +optional
	Port *int32 `json:"port,omitempty"`

	// Env is appended to the role's environment. Entries with the same name
	// as a role variable replace it.
	// +optional
	Env []EnvVar `json:"env,omitempty"`

	// Network attaches the revision to a VPC network.
	// +optional
	Network *NetworkSpec `json:"network,omitempty"`

	// Labels are added to the service on top of the standard labels.
	// +optional
	Labels map[string]string `json:"labels,omitempty"`
}

// NetworkSpec selects the VPC network and subnetwork used for egress.
type NetworkSpec struct {
	Network    string `json:"network"`
	Subnetwork string `json:"subnetwork,omitempty"`
}

// ContainerSpec is the resolved shape of the single container of a revision.
// It is built once per deploy call and never mutated after submission.
type ContainerSpec struct {
	Image string   `json:"image"`
	Port  int32    `json:"port"`
	Args  []string `json:"args,omitempty"`
	Env   []EnvVar `json:"env,omitempty"`
}

// ============================================================================
// Observed State
// ============================================================================

// ReconciliationResult is the snapshot returned by a single poll of the
// remote service.
type ReconciliationResult struct {
	// Ready is true when the provider reports the latest reconciliation succeeded.
	Ready bool `json:"ready"`
	// Endpoint is the service URL, empty until one is assigned.
	Endpoint string `json:"endpoint,omitempty"`
	// Reconciling is true while the control plane is converging the service.
	Reconciling bool `json:"reconciling"`
	// RevisionID is the latest ready revision.
	RevisionID string `json:"revisionId,omitempty"`
	// Message carries the provider's reason when reconciliation failed.
	Message string `json:"message,omitempty"`
}

// RunRecord describes one deploy/cleanup cycle of a controller.
type RunRecord struct {
	// AttemptID correlates log lines and spans of one deploy call.
	AttemptID string `json:"attemptId"`
	// RevisionID is the revision that became ready, if any.
	RevisionID string `json:"revisionId,omitempty"`
	// Endpoint is the endpoint recorded when the service became ready.
	Endpoint string `json:"endpoint,omitempty"`

	StartRequested time.Time  `json:"startRequested"`
	StartCompleted *time.Time `json:"startCompleted,omitempty"`
	Stopped        time.Time  `json:"stopped"`
}
