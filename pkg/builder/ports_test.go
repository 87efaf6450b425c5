package builder

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	v1alpha1 "github.com/numtide/cloudrun-deployer/api/v1alpha1"
)

func TestBuildVPCAccess(t *testing.T) {
	tests := map[string]struct {
		network *v1alpha1.NetworkSpec
		want    *v1alpha1.VPCAccess
	}{
		"nil network": {},
		"empty network name": {
			network: &v1alpha1.NetworkSpec{Subnetwork: "sub"},
		},
		"network only": {
			network: &v1alpha1.NetworkSpec{Network: "default"},
			want: &v1alpha1.VPCAccess{
				NetworkInterfaces: []v1alpha1.NetworkInterface{{Network: "default"}},
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, buildVPCAccess(tc.network)); diff != "" {
				t.Errorf("buildVPCAccess() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildContainerPorts(t *testing.T) {
	got := buildContainerPorts(v1alpha1.ContainerSpec{Port: 8080})
	want := []v1alpha1.ContainerPort{{Name: "h2c", ContainerPort: 8080}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("buildContainerPorts() mismatch (-want +got):\n%s", diff)
	}
}
