package resolver

import (
	"slices"

	"k8s.io/utils/ptr"

	v1alpha1 "github.com/numtide/cloudrun-deployer/api/v1alpha1"
	"github.com/numtide/cloudrun-deployer/pkg/deployerr"
)

// Profile is the container shape of one role. Hooks left nil contribute nothing.
type Profile struct {
	// Port is the container port used unless the request overrides it.
	Port int32
	// Env is injected ahead of the request's environment.
	Env []v1alpha1.EnvVar
	// Args returns the container arguments for a validated policy.
	Args func(v1alpha1.RolePolicy) []string
	// Validate rejects policies missing role-specific parameters.
	Validate func(v1alpha1.RolePolicy) error
	// MeshName returns the mesh the revision binds to. A nil hook means the
	// role does not bind to a mesh.
	MeshName func(v1alpha1.RolePolicy) string
	// GrantInvoker requests a public invoker grant once the service is ready.
	GrantInvoker bool
}

// Resolution is the role-independent outcome of resolving a request.
type Resolution struct {
	Role      v1alpha1.Role
	Container v1alpha1.ContainerSpec
	// MeshName is empty when the role does not bind to a mesh.
	MeshName     string
	GrantInvoker bool
}

// Resolver turns deployment requests into container shapes.
// It serves as the single source of truth for role-specific behaviour.
type Resolver struct {
	profiles map[v1alpha1.Role]Profile
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithProfile registers or replaces the profile of a role.
func WithProfile(role v1alpha1.Role, p Profile) Option {
	return func(r *Resolver) {
		r.profiles[role] = p
	}
}

// NewResolver creates a Resolver with the built-in profiles plus any
// registered through opts.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{profiles: DefaultProfiles()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Profile returns the profile registered for role.
func (r *Resolver) Profile(role v1alpha1.Role) (Profile, bool) {
	p, ok := r.profiles[role]
	return p, ok
}

// Resolve validates req and computes its container shape. It performs no I/O.
func (r *Resolver) Resolve(req v1alpha1.DeploymentRequest) (*Resolution, error) {
	if req.Image == "" {
		return nil, deployerr.Configf("image", "must not be empty")
	}

	profile, ok := r.profiles[req.Policy.Role]
	if !ok {
		return nil, deployerr.Configf("policy.role", "unknown role %q", req.Policy.Role)
	}
	if profile.Validate != nil {
		if err := profile.Validate(req.Policy); err != nil {
			return nil, err
		}
	}

	port := ptr.Deref(req.Port, profile.Port)
	if port <= 0 || port > 65535 {
		return nil, deployerr.Configf("port", "%d is out of range", port)
	}

	env, err := mergeEnv(profile.Env, req.Env)
	if err != nil {
		return nil, err
	}

	res := &Resolution{
		Role: req.Policy.Role,
		Container: v1alpha1.ContainerSpec{
			Image: req.Image,
			Port:  port,
			Env:   env,
		},
		GrantInvoker: profile.GrantInvoker,
	}
	if profile.Args != nil {
		res.Container.Args = profile.Args(req.Policy)
	}
	if profile.MeshName != nil {
		res.MeshName = profile.MeshName(req.Policy)
		if res.MeshName == "" {
			return nil, deployerr.Configf("policy.meshName", "required for role %q", req.Policy.Role)
		}
	}
	return res, nil
}

// mergeEnv appends override to base. Override entries replace base entries of
// the same name in place; duplicate names within override are rejected.
func mergeEnv(base, override []v1alpha1.EnvVar) ([]v1alpha1.EnvVar, error) {
	if len(base) == 0 && len(override) == 0 {
		return nil, nil
	}

	// Safety: never alias the profile's slice.
	merged := slices.Clone(base)
	seen := make(map[string]bool, len(override))
	for _, ev := range override {
		if ev.Name == "" {
			return nil, deployerr.Configf("env", "variable name must not be empty")
		}
		if seen[ev.Name] {
			return nil, deployerr.Configf("env", "duplicate variable %q", ev.Name)
		}
		seen[ev.Name] = true

		idx := slices.IndexFunc(merged, func(e v1alpha1.EnvVar) bool { return e.Name == ev.Name })
		if idx >= 0 {
			merged[idx] = ev
			continue
		}
		merged = append(merged, ev)
	}
	return merged, nil
}
