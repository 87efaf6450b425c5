package fake

import (
	"context"
	"errors"
	"net/http"
	"testing"

	v1alpha1 "github.com/numtide/cloudrun-deployer/api/v1alpha1"
	"github.com/numtide/cloudrun-deployer/pkg/controlplane"
	"github.com/numtide/cloudrun-deployer/pkg/deployerr"
)

var testID = v1alpha1.DeploymentIdentity{Project: "p", Region: "r", ServiceName: "svc"}

func TestClient_Lifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewClient().WithReadyAfter(2).WithGoneAfter(1)

	if _, err := c.CreateService(ctx, testID, &v1alpha1.Service{}); err != nil {
		t.Fatalf("CreateService() unexpected error: %v", err)
	}

	for i := range 2 {
		res, err := c.GetService(ctx, testID)
		if err != nil {
			t.Fatalf("GetService() poll %d unexpected error: %v", i, err)
		}
		if !res.Reconciling || res.Endpoint != "" {
			t.Fatalf("GetService() poll %d = %+v, want reconciling without endpoint", i, res)
		}
	}

	res, err := c.GetService(ctx, testID)
	if err != nil {
		t.Fatalf("GetService() unexpected error: %v", err)
	}
	if !res.Ready || res.Reconciling || res.Endpoint != "https://svc.example.run" || res.RevisionID != "svc-00001" {
		t.Fatalf("GetService() = %+v, want ready", res)
	}

	if err := c.SetInvokerPolicy(ctx, testID, ""); err != nil {
		t.Fatalf("SetInvokerPolicy() unexpected error: %v", err)
	}
	if got := c.InvokerMembers(); len(got) != 1 || got[0] != controlplane.AllUsers {
		t.Errorf("InvokerMembers() = %v, want [%s]", got, controlplane.AllUsers)
	}

	if _, err := c.DeleteService(ctx, testID); err != nil {
		t.Fatalf("DeleteService() unexpected error: %v", err)
	}
	if _, err := c.GetService(ctx, testID); err != nil {
		t.Fatalf("GetService() during deletion unexpected error: %v", err)
	}
	if _, err := c.GetService(ctx, testID); !deployerr.IsNotFound(err) {
		t.Fatalf("GetService() after deletion error = %v, want not found", err)
	}
	if c.Exists(testID) {
		t.Error("Exists() = true after deletion completed")
	}

	want := Calls{Create: 1, Get: 5, Delete: 1, SetInvokerPolicy: 1}
	if got := c.Calls(); got != want {
		t.Errorf("Calls() = %+v, want %+v", got, want)
	}
}

func TestClient_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("duplicate create conflicts", func(t *testing.T) {
		t.Parallel()
		c := NewClient()
		if _, err := c.CreateService(ctx, testID, &v1alpha1.Service{}); err != nil {
			t.Fatalf("CreateService() unexpected error: %v", err)
		}
		_, err := c.CreateService(ctx, testID, &v1alpha1.Service{})
		var apiErr *deployerr.RemoteAPIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusConflict {
			t.Fatalf("CreateService() error = %v, want conflict", err)
		}
	})

	t.Run("delete of missing service is not found", func(t *testing.T) {
		t.Parallel()
		c := NewClient()
		if _, err := c.DeleteService(ctx, testID); !deployerr.IsNotFound(err) {
			t.Fatalf("DeleteService() error = %v, want not found", err)
		}
	})

	t.Run("failure hook is returned", func(t *testing.T) {
		t.Parallel()
		boom := &deployerr.RemoteAPIError{Op: "create", Status: http.StatusForbidden, Message: "denied"}
		c := NewClient().WithFailures(FailureConfig{
			OnCreate: func(v1alpha1.DeploymentIdentity) error { return boom },
		})
		if _, err := c.CreateService(ctx, testID, &v1alpha1.Service{}); !errors.Is(err, boom) {
			t.Fatalf("CreateService() error = %v, want %v", err, boom)
		}
		if c.Exists(testID) {
			t.Error("failed create must not store the service")
		}
	})

	t.Run("terminal failure", func(t *testing.T) {
		t.Parallel()
		c := NewClient().WithTerminalFailure("image not found")
		if _, err := c.CreateService(ctx, testID, &v1alpha1.Service{}); err != nil {
			t.Fatalf("CreateService() unexpected error: %v", err)
		}
		res, err := c.GetService(ctx, testID)
		if err != nil {
			t.Fatalf("GetService() unexpected error: %v", err)
		}
		if res.Ready || res.Reconciling || res.Message != "image not found" {
			t.Errorf("GetService() = %+v, want terminal failure", res)
		}
	})
}
