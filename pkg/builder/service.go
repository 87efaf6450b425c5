// Package builder converts resolved deployment requests into the service body
// submitted to the control plane. Everything here is pure and deterministic.
package builder

import (
	v1alpha1 "github.com/numtide/cloudrun-deployer/api/v1alpha1"
	"github.com/numtide/cloudrun-deployer/pkg/deployerr"
	"github.com/numtide/cloudrun-deployer/pkg/util/metadata"
)

// Options carries the parts of the body that do not come from the container.
type Options struct {
	// MeshName binds roles other than client to a mesh. Client deployments
	// always take their mesh from the client policy.
	MeshName string

	// Labels are merged under the standard labels.
	Labels map[string]string

	// Network attaches the revision to a VPC network.
	Network *v1alpha1.NetworkSpec
}

// BuildService creates the service body for container deployed under policy.
// Returns a deterministic body based on its inputs.
func BuildService(
	id v1alpha1.DeploymentIdentity,
	container v1alpha1.ContainerSpec,
	policy v1alpha1.RolePolicy,
	opts Options,
) (*v1alpha1.Service, error) {
	if id.ServiceName == "" {
		return nil, deployerr.Configf("serviceName", "must not be empty")
	}
	if container.Image == "" {
		return nil, deployerr.Configf("image", "must not be empty")
	}
	if container.Port <= 0 || container.Port > 65535 {
		return nil, deployerr.Configf("port", "%d is out of range", container.Port)
	}

	meshName := opts.MeshName
	if policy.Role == v1alpha1.RoleClient {
		if policy.Client == nil || policy.Client.MeshName == "" {
			return nil, deployerr.Configf("policy.client.meshName", "required for role %q", policy.Role)
		}
		if policy.Client.ServerTarget == "" {
			return nil, deployerr.Configf("policy.client.serverTarget", "required for role %q", policy.Role)
		}
		meshName = policy.Client.MeshName
	}

	labels := metadata.BuildStandardLabels(id.ServiceName, string(policy.Role))

	service := &v1alpha1.Service{
		LaunchStage: v1alpha1.LaunchStageAlpha,
		Labels:      metadata.MergeLabels(labels, opts.Labels),
		Template: v1alpha1.RevisionTemplate{
			Containers: []v1alpha1.Container{
				{
					Image: container.Image,
					Ports: buildContainerPorts(container),
					Args:  buildContainerArgs(container),
					Env:   buildContainerEnv(container),
				},
			},
			ServiceMesh: buildServiceMesh(meshName),
			VPCAccess:   buildVPCAccess(opts.Network),
		},
		Ingress: v1alpha1.IngressTrafficAll,
		Traffic: buildTraffic(),
	}

	return service, nil
}
