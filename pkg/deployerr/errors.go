// Package deployerr defines the error taxonomy shared by the deployer packages.
//
// Every error returned to a caller of the lifecycle controller is, or wraps,
// one of the types in this package:
//
//   - ConfigurationError: bad or missing input. Never retried.
//   - RemoteAPIError: the control plane rejected a request. Surfaced as-is.
//   - TimeoutError: reconciliation did not finish within its budget.
//   - NotDeployedError: an endpoint was requested before the service was ready.
package deployerr

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	v1alpha1 "github.com/numtide/cloudrun-deployer/api/v1alpha1"
)

// ErrNotDeployed is matched by every NotDeployedError via errors.Is.
var ErrNotDeployed = errors.New("service not deployed")

// ConfigurationError reports a required parameter that is missing or invalid.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Configf returns a ConfigurationError for field.
func Configf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// RemoteAPIError reports a request rejected by the control plane.
type RemoteAPIError struct {
	// Op is the operation that failed: "create", "get", "delete",
	// "setIamPolicy" or "reconcile".
	Op string
	// Status is the HTTP status code returned by the provider, 0 if unknown.
	Status int
	// Message is the provider's explanation.
	Message string
	// Err is the underlying transport error, if any.
	Err error
}

func (e *RemoteAPIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.Status, e.Message)
}

func (e *RemoteAPIError) Unwrap() error {
	return e.Err
}

// TimeoutError reports a reconciliation that did not complete in time.
type TimeoutError struct {
	Service string
	Timeout time.Duration
	// Last is the last observed result, nil if no poll succeeded.
	Last *v1alpha1.ReconciliationResult
	Err  error
}

func (e *TimeoutError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("timed out after %s waiting for service %s: no status observed", e.Timeout, e.Service)
	}
	return fmt.Sprintf(
		"timed out after %s waiting for service %s: reconciling=%t endpoint=%q",
		e.Timeout, e.Service, e.Last.Reconciling, e.Last.Endpoint,
	)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// NotDeployedError reports an endpoint read outside the Ready phase.
type NotDeployedError struct {
	Service string
	Phase   v1alpha1.Phase
}

func (e *NotDeployedError) Error() string {
	return fmt.Sprintf("service %s is not deployed (phase %s)", e.Service, e.Phase)
}

func (e *NotDeployedError) Is(target error) bool {
	return target == ErrNotDeployed
}

// IsNotFound reports whether err is a RemoteAPIError for a missing resource.
func IsNotFound(err error) bool {
	var apiErr *RemoteAPIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// IsConfiguration reports whether err is, or wraps, a ConfigurationError.
func IsConfiguration(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// IsTimeout reports whether err is, or wraps, a TimeoutError.
func IsTimeout(err error) bool {
	var timeoutErr *TimeoutError
	return errors.As(err, &timeoutErr)
}
