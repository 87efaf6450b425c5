package metadata

import "maps"

// Standard label keys applied to every managed service.
//
// Service labels only accept lowercase letters, digits, underscores and
// dashes in keys, so the Kubernetes "app.kubernetes.io/" prefix is dropped.
const (
	// LabelAppName is the label key for the application name.
	LabelAppName = "app-name"

	// LabelAppInstance is the label key for the unique instance name.
	LabelAppInstance = "app-instance"

	// LabelAppComponent is the label key for the role of the workload.
	LabelAppComponent = "app-component"

	// LabelAppManagedBy is the label key for the tool managing the resource.
	LabelAppManagedBy = "app-managed-by"
)

const (
	// AppNamePSMInterop is the fixed application name for deployed test workloads.
	AppNamePSMInterop = "psm-interop"

	// ManagedByDeployer identifies this tool.
	ManagedByDeployer = "cloudrun-deployer"
)

// BuildStandardLabels builds the standard labels for a managed service.
//
// Standard labels include:
//   - app-name: "psm-interop"
//   - app-instance: <serviceName>
//   - app-component: <componentName>
//   - app-managed-by: "cloudrun-deployer"
func BuildStandardLabels(serviceName, componentName string) map[string]string {
	return map[string]string{
		LabelAppName:      AppNamePSMInterop,
		LabelAppInstance:  serviceName,
		LabelAppComponent: componentName,
		LabelAppManagedBy: ManagedByDeployer,
	}
}

// MergeLabels merges custom labels with standard labels. Standard labels win
// on conflicts so that the deployer can always find its own services.
func MergeLabels(standardLabels, customLabels map[string]string) map[string]string {
	merged := make(map[string]string, len(standardLabels)+len(customLabels))

	// Copy custom labels first (if provided)
	maps.Copy(merged, customLabels)

	// Copy standard labels (overwriting any duplicates from custom)
	maps.Copy(merged, standardLabels)

	return merged
}
