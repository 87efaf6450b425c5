package resolver

import (
	"fmt"
	"strconv"

	"k8s.io/utils/ptr"

	v1alpha1 "github.com/numtide/cloudrun-deployer/api/v1alpha1"
	"github.com/numtide/cloudrun-deployer/pkg/deployerr"
)

const (
	// DefaultServerPort is the port test servers listen on.
	DefaultServerPort int32 = 8080

	// DefaultClientPort is the port test clients serve their stats services on.
	DefaultClientPort int32 = 50052

	// DefaultBootstrapConfigPath is where the client image expects its xDS bootstrap.
	DefaultBootstrapConfigPath = "/tmp/grpc-xds/td-grpc-bootstrap.json"
)

// DefaultClientEnv returns the environment injected into every client
// container. It enables authority rewriting and trusted-server behaviour in
// the client binary and turns on xDS client tracing.
func DefaultClientEnv() []v1alpha1.EnvVar {
	return []v1alpha1.EnvVar{
		{Name: "GRPC_EXPERIMENTAL_XDS_AUTHORITY_REWRITE", Value: "true"},
		{Name: "GRPC_TRACE", Value: "xds_client"},
		{Name: "GRPC_VERBOSITY", Value: "DEBUG"},
		{Name: "GRPC_EXPERIMENTAL_XDS_SYSTEM_ROOT_CERTS", Value: "true"},
		{Name: "GRPC_EXPERIMENTAL_XDS_GCP_AUTHENTICATION_FILTER", Value: "true"},
		{Name: "is-trusted-xds-server-experimental", Value: "true"},
		{Name: "GRPC_XDS_BOOTSTRAP_CONFIG", Value: DefaultBootstrapConfigPath},
	}
}

// DefaultProfiles returns a fresh copy of the built-in role table.
func DefaultProfiles() map[v1alpha1.Role]Profile {
	return map[v1alpha1.Role]Profile{
		v1alpha1.RoleServer: {
			Port: DefaultServerPort,
		},
		v1alpha1.RoleClient: {
			Port:         DefaultClientPort,
			Env:          DefaultClientEnv(),
			Args:         clientArgs,
			Validate:     validateClientPolicy,
			MeshName:     clientMeshName,
			GrantInvoker: true,
		},
	}
}

func validateClientPolicy(p v1alpha1.RolePolicy) error {
	if p.Client == nil {
		return deployerr.Configf("policy.client", "required for role %q", p.Role)
	}
	if p.Client.MeshName == "" {
		return deployerr.Configf("policy.client.meshName", "required for role %q", p.Role)
	}
	if p.Client.ServerTarget == "" {
		return deployerr.Configf("policy.client.serverTarget", "required for role %q", p.Role)
	}
	return nil
}

func clientArgs(p v1alpha1.RolePolicy) []string {
	return []string{
		fmt.Sprintf("--server=%s", p.Client.ServerTarget),
		fmt.Sprintf("--secure_mode=%s", strconv.FormatBool(ptr.Deref(p.Client.SecureMode, true))),
	}
}

func clientMeshName(p v1alpha1.RolePolicy) string {
	return p.Client.MeshName
}
