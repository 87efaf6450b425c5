// Package resolver maps a role to the container shape of a deployment.
//
// Each role has a Profile: its default port, the arguments and environment
// injected into the container, whether the revision binds to a service mesh,
// and whether the service must be publicly invokable. Profiles live in a table
// keyed by role, so new roles are added by registering a profile rather than
// by branching in the lifecycle controller.
//
// # Logic Hierarchy
//
// When resolving a request, the following precedence applies (highest to lowest):
//
//  1. Request values (port override, extra environment variables).
//  2. Role profile values (role port, role environment).
//
// Validation runs before anything is resolved, so a ConfigurationError is
// always returned before any remote call is made.
//
// Usage:
//
//	res := resolver.NewResolver()
//	resolution, err := res.Resolve(v1alpha1.DeploymentRequest{
//	    Image:  "us-docker.pkg.dev/grpc-testing/psm-interop/cpp-client:v1.70.x",
//	    Policy: v1alpha1.ClientRole(mesh, "xds:///psm-grpc-server:8080"),
//	})
package resolver
