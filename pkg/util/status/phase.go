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

// Package status provides the shared readiness and phase rules of the deployer.
//
// The poller and the lifecycle controller both rely on these helpers so that
// "the service is usable" means the same thing everywhere.
package status

import (
	v1alpha1 "github.com/numtide/cloudrun-deployer/api/v1alpha1"
)

// IsReady reports whether a poll result shows a usable service: the control
// plane has stopped reconciling, reported success, and assigned an endpoint.
func IsReady(r *v1alpha1.ReconciliationResult) bool {
	return r != nil && r.Ready && !r.Reconciling && r.Endpoint != ""
}

// IsTerminalFailure reports whether reconciliation finished without
// producing a ready service.
func IsTerminalFailure(r *v1alpha1.ReconciliationResult) bool {
	return r != nil && !r.Reconciling && !r.Ready && r.Message != ""
}

// transitions lists the allowed phase changes of a lifecycle controller.
var transitions = map[v1alpha1.Phase][]v1alpha1.Phase{
	v1alpha1.PhaseUnstarted: {v1alpha1.PhaseDeploying},
	v1alpha1.PhaseDeploying: {v1alpha1.PhaseReady, v1alpha1.PhaseFailed, v1alpha1.PhaseDeleting},
	v1alpha1.PhaseReady:     {v1alpha1.PhaseDeploying, v1alpha1.PhaseDeleting},
	v1alpha1.PhaseFailed:    {v1alpha1.PhaseDeploying, v1alpha1.PhaseDeleting},
	v1alpha1.PhaseDeleting:  {v1alpha1.PhaseUnstarted},
}

// CanTransition reports whether a controller may move from one phase to another.
func CanTransition(from, to v1alpha1.Phase) bool {
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}
