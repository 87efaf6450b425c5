package lifecycle

import (
	"time"

	"k8s.io/utils/clock"

	"github.com/numtide/cloudrun-deployer/pkg/controlplane"
	"github.com/numtide/cloudrun-deployer/pkg/poller"
	"github.com/numtide/cloudrun-deployer/pkg/resolver"
)

const (
	// DefaultDeployTimeout bounds the wait for a created service to become ready.
	DefaultDeployTimeout = 10 * time.Minute

	// DefaultDeleteTimeout bounds the wait for a deleted service to disappear.
	DefaultDeleteTimeout = 5 * time.Minute
)

// Options configures a Controller. Zero values select the defaults.
type Options struct {
	// Timeout bounds the readiness wait of a deploy.
	Timeout time.Duration

	// DeleteTimeout bounds the removal wait of a cleanup or redeploy.
	DeleteTimeout time.Duration

	// PollInterval is the pause between two polls.
	PollInterval time.Duration

	// Clock stamps the run history.
	Clock clock.PassiveClock

	// Resolver maps roles to container shapes.
	Resolver *resolver.Resolver

	// InvokerMember is granted the invoker role on roles that request it.
	// Defaults to controlplane.AllUsers.
	InvokerMember string
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultDeployTimeout
	}
	if o.DeleteTimeout <= 0 {
		o.DeleteTimeout = DefaultDeleteTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = poller.DefaultInterval
	}
	if o.Clock == nil {
		o.Clock = clock.RealClock{}
	}
	if o.Resolver == nil {
		o.Resolver = resolver.NewResolver()
	}
	if o.InvokerMember == "" {
		o.InvokerMember = controlplane.AllUsers
	}
	return o
}
