package builder

import (
	"slices"

	v1alpha1 "github.com/numtide/cloudrun-deployer/api/v1alpha1"
)

// buildContainerEnv copies the resolved environment so that the submitted
// body never shares backing arrays with the caller's spec.
func buildContainerEnv(container v1alpha1.ContainerSpec) []v1alpha1.EnvVar {
	if len(container.Env) == 0 {
		return nil
	}
	return slices.Clone(container.Env)
}

// buildContainerArgs returns the container arguments, nil when there are none.
func buildContainerArgs(container v1alpha1.ContainerSpec) []string {
	if len(container.Args) == 0 {
		return nil
	}
	return slices.Clone(container.Args)
}
