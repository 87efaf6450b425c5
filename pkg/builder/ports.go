package builder

import (
	v1alpha1 "github.com/numtide/cloudrun-deployer/api/v1alpha1"
)

// buildContainerPorts creates the port definition for the service container.
// The control plane accepts a single port, which is always served as h2c.
func buildContainerPorts(container v1alpha1.ContainerSpec) []v1alpha1.ContainerPort {
	return []v1alpha1.ContainerPort{
		{
			Name:          v1alpha1.PortNameH2C,
			ContainerPort: container.Port,
		},
	}
}
