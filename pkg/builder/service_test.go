package builder

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	v1alpha1 "github.com/numtide/cloudrun-deployer/api/v1alpha1"
	"github.com/numtide/cloudrun-deployer/pkg/deployerr"
)

var testID = v1alpha1.DeploymentIdentity{
	Project:     "test-project",
	Region:      "us-central1",
	ServiceName: "psm-svc",
}

func TestBuildService(t *testing.T) {
	t.Parallel()

	clientEnv := []v1alpha1.EnvVar{
		{Name: "GRPC_TRACE", Value: "xds_client"},
		{Name: "GRPC_VERBOSITY", Value: "DEBUG"},
	}
	clientArgs := []string{"--server=https://server.example.run", "--secure_mode=true"}

	tests := map[string]struct {
		container v1alpha1.ContainerSpec
		policy    v1alpha1.RolePolicy
		opts      Options
		want      *v1alpha1.Service
	}{
		"server - port only": {
			container: v1alpha1.ContainerSpec{Image: "img:v1", Port: 8080},
			policy:    v1alpha1.ServerRole(),
			want: &v1alpha1.Service{
				LaunchStage: "ALPHA",
				Labels: map[string]string{
					"app-name":       "psm-interop",
					"app-instance":   "psm-svc",
					"app-component":  "server",
					"app-managed-by": "cloudrun-deployer",
				},
				Template: v1alpha1.RevisionTemplate{
					Containers: []v1alpha1.Container{
						{
							Image: "img:v1",
							Ports: []v1alpha1.ContainerPort{{Name: "h2c", ContainerPort: 8080}},
						},
					},
				},
				Ingress: "INGRESS_TRAFFIC_ALL",
				Traffic: []v1alpha1.TrafficTarget{
					{Type: "TRAFFIC_TARGET_ALLOCATION_TYPE_LATEST", Percent: 100},
				},
			},
		},
		"client - args, env and mesh": {
			container: v1alpha1.ContainerSpec{
				Image: "client:v1",
				Port:  50052,
				Args:  clientArgs,
				Env:   clientEnv,
			},
			policy: v1alpha1.ClientRole("mesh-a", "https://server.example.run"),
			want: &v1alpha1.Service{
				LaunchStage: "ALPHA",
				Labels: map[string]string{
					"app-name":       "psm-interop",
					"app-instance":   "psm-svc",
					"app-component":  "client",
					"app-managed-by": "cloudrun-deployer",
				},
				Template: v1alpha1.RevisionTemplate{
					Containers: []v1alpha1.Container{
						{
							Image: "client:v1",
							Ports: []v1alpha1.ContainerPort{{Name: "h2c", ContainerPort: 50052}},
							Args:  clientArgs,
							Env:   clientEnv,
						},
					},
					ServiceMesh: &v1alpha1.ServiceMesh{
						Mesh:          "mesh-a",
						DataplaneMode: "PROXYLESS_GRPC",
					},
				},
				Ingress: "INGRESS_TRAFFIC_ALL",
				Traffic: []v1alpha1.TrafficTarget{
					{Type: "TRAFFIC_TARGET_ALLOCATION_TYPE_LATEST", Percent: 100},
				},
			},
		},
		"server - labels, network and explicit mesh": {
			container: v1alpha1.ContainerSpec{Image: "img:v2", Port: 9090},
			policy:    v1alpha1.ServerRole(),
			opts: Options{
				MeshName: "projects/p/locations/global/meshes/m",
				Labels: map[string]string{
					"team":          "grpc",
					"app-component": "ignored",
				},
				Network: &v1alpha1.NetworkSpec{Network: "default", Subnetwork: "sub-a"},
			},
			want: &v1alpha1.Service{
				LaunchStage: "ALPHA",
				Labels: map[string]string{
					"team":           "grpc",
					"app-name":       "psm-interop",
					"app-instance":   "psm-svc",
					"app-component":  "server",
					"app-managed-by": "cloudrun-deployer",
				},
				Template: v1alpha1.RevisionTemplate{
					Containers: []v1alpha1.Container{
						{
							Image: "img:v2",
							Ports: []v1alpha1.ContainerPort{{Name: "h2c", ContainerPort: 9090}},
						},
					},
					ServiceMesh: &v1alpha1.ServiceMesh{
						Mesh:          "projects/p/locations/global/meshes/m",
						DataplaneMode: "PROXYLESS_GRPC",
					},
					VPCAccess: &v1alpha1.VPCAccess{
						NetworkInterfaces: []v1alpha1.NetworkInterface{
							{Network: "default", Subnetwork: "sub-a"},
						},
					},
				},
				Ingress: "INGRESS_TRAFFIC_ALL",
				Traffic: []v1alpha1.TrafficTarget{
					{Type: "TRAFFIC_TARGET_ALLOCATION_TYPE_LATEST", Percent: 100},
				},
			},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := BuildService(testID, tc.container, tc.policy, tc.opts)
			if err != nil {
				t.Fatalf("BuildService() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("BuildService() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildService_Errors(t *testing.T) {
	t.Parallel()

	valid := v1alpha1.ContainerSpec{Image: "img:v1", Port: 50052}

	tests := map[string]struct {
		id        v1alpha1.DeploymentIdentity
		container v1alpha1.ContainerSpec
		policy    v1alpha1.RolePolicy
	}{
		"empty service name": {
			id:        v1alpha1.DeploymentIdentity{Project: "p", Region: "r"},
			container: valid,
			policy:    v1alpha1.ServerRole(),
		},
		"empty image": {
			id:        testID,
			container: v1alpha1.ContainerSpec{Port: 8080},
			policy:    v1alpha1.ServerRole(),
		},
		"zero port": {
			id:        testID,
			container: v1alpha1.ContainerSpec{Image: "img:v1"},
			policy:    v1alpha1.ServerRole(),
		},
		"client without policy": {
			id:        testID,
			container: valid,
			policy:    v1alpha1.RolePolicy{Role: v1alpha1.RoleClient},
		},
		"client with empty mesh": {
			id:        testID,
			container: valid,
			policy:    v1alpha1.ClientRole("", "https://server.example.run"),
		},
		"client with empty server target": {
			id:        testID,
			container: valid,
			policy:    v1alpha1.ClientRole("mesh-a", ""),
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := BuildService(tc.id, tc.container, tc.policy, Options{})
			if !deployerr.IsConfiguration(err) {
				t.Fatalf("BuildService() error = %v, want ConfigurationError", err)
			}
			if got != nil {
				t.Errorf("BuildService() = %+v, want nil", got)
			}
		})
	}
}

func TestBuildService_DoesNotAliasInput(t *testing.T) {
	t.Parallel()

	container := v1alpha1.ContainerSpec{
		Image: "img:v1",
		Port:  8080,
		Args:  []string{"--a"},
		Env:   []v1alpha1.EnvVar{{Name: "A", Value: "1"}},
	}
	got, err := BuildService(testID, container, v1alpha1.ServerRole(), Options{})
	if err != nil {
		t.Fatalf("BuildService() unexpected error: %v", err)
	}

	container.Args[0] = "--b"
	container.Env[0].Value = "2"

	c := got.Template.Containers[0]
	if c.Args[0] != "--a" || c.Env[0].Value != "1" {
		t.Errorf("BuildService() output changed after mutating input: %+v", c)
	}
}

func TestBuildService_Deterministic(t *testing.T) {
	t.Parallel()

	container := v1alpha1.ContainerSpec{Image: "img:v1", Port: 50052, Args: []string{"--x"}}
	policy := v1alpha1.ClientRole("mesh-a", "xds:///server")
	opts := Options{Labels: map[string]string{"run": "1"}}

	first, err := BuildService(testID, container, policy, opts)
	if err != nil {
		t.Fatalf("BuildService() unexpected error: %v", err)
	}
	second, err := BuildService(testID, container, policy, opts)
	if err != nil {
		t.Fatalf("BuildService() unexpected error: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("BuildService() not deterministic (-first +second):\n%s", diff)
	}
}
