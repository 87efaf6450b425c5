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

// Package v1alpha1 defines the data model of the Cloud Run deployer.
//
// The types fall into three groups:
//
// Request Types (supplied by callers):
//   - DeploymentIdentity: project, region and service name of the managed service.
//   - DeploymentRequest: image, role policy, port, environment and network binding.
//   - RolePolicy: tagged variant over the server and client roles.
//
// Resource Types (what is submitted to the control plane):
//   - Service: the service body, including the revision template, ingress and traffic rules.
//   - Container, ContainerPort, EnvVar, ServiceMesh, VPCAccess.
//
// Observed Types (what the controller learns back):
//   - ReconciliationResult: a single poll of the remote service.
//   - Phase: the lifecycle state of one logical deployment.
//   - RunRecord: one deploy/cleanup cycle kept for diagnostics.
//
// # Versioning
//
// This is the v1alpha1 version, indicating the API is in early development
// and may change in backward-incompatible ways.
package v1alpha1
