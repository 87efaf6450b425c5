package builder

import (
	v1alpha1 "github.com/numtide/cloudrun-deployer/api/v1alpha1"
)

// buildTraffic routes all traffic to the latest ready revision.
func buildTraffic() []v1alpha1.TrafficTarget {
	return []v1alpha1.TrafficTarget{
		{
			Type:    v1alpha1.TrafficTargetLatest,
			Percent: 100,
		},
	}
}

// buildServiceMesh binds the revision to mesh in proxyless mode.
// Returns nil when mesh is empty.
func buildServiceMesh(mesh string) *v1alpha1.ServiceMesh {
	if mesh == "" {
		return nil
	}
	return &v1alpha1.ServiceMesh{
		Mesh:          mesh,
		DataplaneMode: v1alpha1.DataplaneModeProxylessGRPC,
	}
}

// buildVPCAccess attaches the revision to a VPC network.
// Returns nil when no network is requested.
func buildVPCAccess(network *v1alpha1.NetworkSpec) *v1alpha1.VPCAccess {
	if network == nil || network.Network == "" {
		return nil
	}
	return &v1alpha1.VPCAccess{
		NetworkInterfaces: []v1alpha1.NetworkInterface{
			{
				Network:    network.Network,
				Subnetwork: network.Subnetwork,
			},
		},
	}
}
