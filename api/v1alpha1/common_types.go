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

// Phase is the lifecycle state of one logical deployment, as tracked locally
// by a lifecycle controller.
type Phase string

const (
	// PhaseUnstarted means nothing is deployed (or the last deployment was cleaned up).
	PhaseUnstarted Phase = "Unstarted"
	// PhaseDeploying means a create was submitted and reconciliation is being awaited.
	PhaseDeploying Phase = "Deploying"
	// PhaseReady means the service reconciled and its endpoint is known.
	PhaseReady Phase = "Ready"
	// PhaseFailed means the last deploy failed; cleanup may still remove leftovers.
	PhaseFailed Phase = "Failed"
	// PhaseDeleting means a delete was submitted and removal is being awaited.
	PhaseDeleting Phase = "Deleting"
)

// Role selects the container shape of a deployment.
type Role string

const (
	// RoleServer deploys a test server.
	RoleServer Role = "server"
	// RoleClient deploys a test client bound to a service mesh.
	RoleClient Role = "client"
)

// EnvVar is a single environment variable passed to the container.
type EnvVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
