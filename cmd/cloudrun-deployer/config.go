package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"k8s.io/utils/ptr"

	v1alpha1 "github.com/numtide/cloudrun-deployer/api/v1alpha1"
	"github.com/numtide/cloudrun-deployer/pkg/builder"
	"github.com/numtide/cloudrun-deployer/pkg/deployerr"
	"github.com/numtide/cloudrun-deployer/pkg/lifecycle"
	"github.com/numtide/cloudrun-deployer/pkg/names"
	"github.com/numtide/cloudrun-deployer/pkg/poller"
	"github.com/numtide/cloudrun-deployer/pkg/resolver"
)

// config holds the command-line flags of a single run.
type config struct {
	project        string
	region         string
	serviceName    string
	resourcePrefix string
	resourceSuffix string

	role       string
	image      string
	port       int
	env        []v1alpha1.EnvVar
	labels     map[string]string
	network    string
	subnetwork string

	meshName      string
	serverTarget  string
	serverXDSHost string
	serverXDSPort int
	secureMode    bool

	timeout       time.Duration
	deleteTimeout time.Duration
	pollInterval  time.Duration

	dryRun           bool
	cleanupOnly      bool
	wait             bool
	forceCleanup     bool
	cleanupOnFailure bool
}

func (c *config) bindFlags(fs *flag.FlagSet) {
	// Identity
	fs.StringVar(&c.project, "project", "", "Project ID the service is deployed to.")
	fs.StringVar(&c.region, "region", "", "Region the service runs in, e.g. us-central1.")
	fs.StringVar(&c.serviceName, "service-name", "", "Service name. Generated from --resource-prefix, --role and --resource-suffix when empty.")
	fs.StringVar(&c.resourcePrefix, "resource-prefix", "psm-interop", "Prefix of generated service names.")
	fs.StringVar(&c.resourceSuffix, "resource-suffix", c.resourceSuffix, "Suffix of generated service names. Random by default.")

	// Container
	fs.StringVar(&c.role, "role", string(v1alpha1.RoleServer), "Role of the deployment: server or client.")
	fs.StringVar(&c.image, "image", "", "Container image to deploy.")
	fs.IntVar(&c.port, "port", 0, "Container port. Defaults to the role's port.")
	fs.Func("env", "Extra environment variable NAME=VALUE. Repeatable.", func(v string) error {
		name, value, ok := strings.Cut(v, "=")
		if !ok {
			return fmt.Errorf("expected NAME=VALUE, got %q", v)
		}
		c.env = append(c.env, v1alpha1.EnvVar{Name: name, Value: value})
		return nil
	})
	fs.Func("label", "Extra service label KEY=VALUE. Repeatable.", func(v string) error {
		key, value, ok := strings.Cut(v, "=")
		if !ok {
			return fmt.Errorf("expected KEY=VALUE, got %q", v)
		}
		if c.labels == nil {
			c.labels = make(map[string]string)
		}
		c.labels[key] = value
		return nil
	})
	fs.StringVar(&c.network, "network", "", "VPC network for direct egress.")
	fs.StringVar(&c.subnetwork, "subnetwork", "", "VPC subnetwork for direct egress.")

	// Client role
	fs.StringVar(&c.meshName, "mesh", "", "Fully-qualified mesh the client binds to.")
	fs.StringVar(&c.serverTarget, "server-target", "", "Target the client sends RPCs to. Derived from --server-xds-host when empty.")
	fs.StringVar(&c.serverXDSHost, "server-xds-host", "", "xDS host name of the server.")
	fs.IntVar(&c.serverXDSPort, "server-xds-port", 0, "xDS port of the server. Omitted from the target when 0.")
	fs.BoolVar(&c.secureMode, "secure-mode", true, "Run the client in secure mode.")

	// Waiting
	fs.DurationVar(&c.timeout, "timeout", lifecycle.DefaultDeployTimeout, "Maximum time to wait for the service to become ready.")
	fs.DurationVar(&c.deleteTimeout, "delete-timeout", lifecycle.DefaultDeleteTimeout, "Maximum time to wait for the service to be removed.")
	fs.DurationVar(&c.pollInterval, "poll-interval", poller.DefaultInterval, "Time between two status polls.")

	// Modes
	fs.BoolVar(&c.dryRun, "dry-run", false, "Print the service body as YAML and exit.")
	fs.BoolVar(&c.cleanupOnly, "cleanup-only", false, "Delete the service and exit.")
	fs.BoolVar(&c.wait, "wait", false, "Keep the service until SIGINT or SIGTERM, then delete it.")
	fs.BoolVar(&c.forceCleanup, "force-cleanup", false, "Log cleanup failures instead of failing.")
	fs.BoolVar(&c.cleanupOnFailure, "cleanup-on-failure", true, "Delete partially created services when the deploy fails.")
}

// resolver returns the role table used by this run.
func (c *config) resolver() *resolver.Resolver {
	return resolver.NewResolver()
}

// deployment turns the flags into an identity and a request.
func (c *config) deployment() (v1alpha1.DeploymentIdentity, v1alpha1.DeploymentRequest, error) {
	role := v1alpha1.Role(c.role)

	serviceName := c.serviceName
	if serviceName == "" {
		serviceName = names.Generate(c.resourcePrefix, c.role, c.resourceSuffix)
	}
	id := v1alpha1.DeploymentIdentity{
		Project:     c.project,
		Region:      c.region,
		ServiceName: serviceName,
	}
	if id.Project == "" {
		return id, v1alpha1.DeploymentRequest{}, deployerr.Configf("project", "--project is required")
	}
	if id.Region == "" {
		return id, v1alpha1.DeploymentRequest{}, deployerr.Configf("region", "--region is required")
	}

	req := v1alpha1.DeploymentRequest{
		Image:  c.image,
		Policy: v1alpha1.RolePolicy{Role: role},
		Env:    c.env,
		Labels: c.labels,
	}
	if c.port != 0 {
		req.Port = ptr.To(int32(c.port))
	}
	if c.network != "" {
		req.Network = &v1alpha1.NetworkSpec{Network: c.network, Subnetwork: c.subnetwork}
	}

	if role == v1alpha1.RoleClient {
		req.Policy.Client = &v1alpha1.ClientPolicy{
			MeshName:     c.meshName,
			ServerTarget: c.clientServerTarget(),
			SecureMode:   ptr.To(c.secureMode),
		}
	}
	return id, req, nil
}

// clientServerTarget returns the explicit target, or the xDS target of the
// server: xds:///host or xds:///host:port.
func (c *config) clientServerTarget() string {
	if c.serverTarget != "" || c.serverXDSHost == "" {
		return c.serverTarget
	}
	if c.serverXDSPort == 0 {
		return "xds:///" + c.serverXDSHost
	}
	return fmt.Sprintf("xds:///%s:%d", c.serverXDSHost, c.serverXDSPort)
}

// buildService resolves and builds the body for req the way the lifecycle
// controller does.
func buildService(
	id v1alpha1.DeploymentIdentity,
	req v1alpha1.DeploymentRequest,
	r *resolver.Resolver,
) (*v1alpha1.Service, error) {
	serviceName, err := names.ServiceName(id.ServiceName)
	if err != nil {
		return nil, err
	}
	id.ServiceName = serviceName

	res, err := r.Resolve(req)
	if err != nil {
		return nil, err
	}
	return builder.BuildService(id, res.Container, req.Policy, builder.Options{
		MeshName: res.MeshName,
		Labels:   req.Labels,
		Network:  req.Network,
	})
}
