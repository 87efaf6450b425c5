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

// Values understood by the control plane.
const (
	// LaunchStageAlpha is required for service mesh bindings.
	LaunchStageAlpha = "ALPHA"

	// IngressTrafficAll accepts traffic from any source.
	IngressTrafficAll = "INGRESS_TRAFFIC_ALL"

	// TrafficTargetLatest routes to the latest ready revision.
	TrafficTargetLatest = "TRAFFIC_TARGET_ALLOCATION_TYPE_LATEST"

	// DataplaneModeProxylessGRPC binds the workload to the mesh without a sidecar.
	DataplaneModeProxylessGRPC = "PROXYLESS_GRPC"

	// PortNameH2C marks the container port as cleartext HTTP/2.
	PortNameH2C = "h2c"
)

// Service is the body submitted to the control plane on create.
// Field names follow the provider's JSON representation.
type Service struct {
	LaunchStage string            `json:"launchStage,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
	Template    RevisionTemplate  `json:"template"`
	Ingress     string            `json:"ingress,omitempty"`
	Traffic     []TrafficTarget   `json:"traffic,omitempty"`
}

// RevisionTemplate describes the revisions created from the service.
type RevisionTemplate struct {
	Containers  []Container  `json:"containers"`
	ServiceMesh *ServiceMesh `json:"serviceMesh,omitempty"`
	VPCAccess   *VPCAccess   `json:"vpcAccess,omitempty"`
}

// Container is a single container of a revision.
type Container struct {
	Image string          `json:"image"`
	Ports []ContainerPort `json:"ports,omitempty"`
	Args  []string        `json:"args,omitempty"`
	Env   []EnvVar        `json:"env,omitempty"`
}

// ContainerPort is the port requests are delivered to.
type ContainerPort struct {
	Name          string `json:"name"`
	ContainerPort int32  `json:"containerPort"`
}

// ServiceMesh binds the revision to a service mesh.
type ServiceMesh struct {
	Mesh          string `json:"mesh"`
	DataplaneMode string `json:"dataplaneMode,omitempty"`
}

// VPCAccess configures direct VPC egress.
type VPCAccess struct {
	NetworkInterfaces []NetworkInterface `json:"networkInterfaces"`
}

// NetworkInterface is a single VPC attachment.
type NetworkInterface struct {
	Network    string `json:"network,omitempty"`
	Subnetwork string `json:"subnetwork,omitempty"`
}

// TrafficTarget routes a share of traffic to a revision.
type TrafficTarget struct {
	Type    string `json:"type"`
	Percent int32  `json:"percent"`
}
