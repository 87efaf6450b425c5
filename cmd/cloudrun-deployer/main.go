/*
Copyright 2026 Numtide.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/api/option"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/metrics"
	"sigs.k8s.io/yaml"

	v1alpha1 "github.com/numtide/cloudrun-deployer/api/v1alpha1"
	"github.com/numtide/cloudrun-deployer/pkg/controlplane/cloudrun"
	"github.com/numtide/cloudrun-deployer/pkg/deployerr"
	"github.com/numtide/cloudrun-deployer/pkg/lifecycle"
	"github.com/numtide/cloudrun-deployer/pkg/poller"
	"github.com/numtide/cloudrun-deployer/pkg/resolver"
)

var setupLog = ctrl.Log.WithName("setup")

func main() {
	cfg := &config{
		resourceSuffix: uuid.NewString()[:8],
	}
	cfg.bindFlags(flag.CommandLine)

	var metricsAddr string
	var credentialsFile string
	var apiEndpoint string
	flag.StringVar(&metricsAddr, "metrics-bind-address", "0", "The address the metrics endpoint binds to. Use 0 to disable.")
	flag.StringVar(&credentialsFile, "credentials-file", "", "Service account key file. Defaults to application default credentials.")
	flag.StringVar(&apiEndpoint, "api-endpoint", "", "Override the Cloud Run Admin API endpoint.")

	opts := zap.Options{Development: true}
	opts.BindFlags(flag.CommandLine)
	flag.Parse()

	ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts)))

	id, req, err := cfg.deployment()
	if err != nil {
		setupLog.Error(err, "invalid arguments")
		os.Exit(2)
	}

	if cfg.dryRun {
		if err := printService(os.Stdout, id, req, cfg.resolver()); err != nil {
			setupLog.Error(err, "unable to render service")
			os.Exit(1)
		}
		return
	}

	ctx := ctrl.SetupSignalHandler()

	if metricsAddr != "0" {
		go serveMetrics(metricsAddr)
	}

	var clientOpts []option.ClientOption
	if credentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(credentialsFile))
	}
	if apiEndpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(apiEndpoint))
	}
	client, err := cloudrun.NewClient(ctx, clientOpts...)
	if err != nil {
		setupLog.Error(err, "unable to create Cloud Run client")
		os.Exit(1)
	}

	if cfg.cleanupOnly {
		p := &poller.Poller{Client: client, Interval: cfg.pollInterval, Timeout: cfg.deleteTimeout}
		if _, err := client.DeleteService(ctx, id); err != nil && !deployerr.IsNotFound(err) {
			setupLog.Error(err, "unable to delete service", "service", id.String())
			os.Exit(1)
		}
		if err := p.WaitForDeletion(ctx, id); err != nil {
			setupLog.Error(err, "service was not removed", "service", id.String())
			os.Exit(1)
		}
		setupLog.Info("service deleted", "service", id.String())
		return
	}

	controller, err := lifecycle.New(id, client, lifecycle.Options{
		Timeout:       cfg.timeout,
		DeleteTimeout: cfg.deleteTimeout,
		PollInterval:  cfg.pollInterval,
		Resolver:      cfg.resolver(),
	})
	if err != nil {
		setupLog.Error(err, "unable to create lifecycle controller")
		os.Exit(2)
	}

	setupLog.Info("deploying service", "service", controller.Identity().String(), "role", req.Policy.Role)
	endpoint, err := controller.Deploy(ctx, req)
	if err != nil {
		setupLog.Error(err, "deployment failed")
		if cfg.cleanupOnFailure {
			// The signal context may already be cancelled.
			_ = controller.Cleanup(context.Background(), true)
		}
		os.Exit(1)
	}
	fmt.Println(endpoint)

	if !cfg.wait {
		return
	}

	setupLog.Info("service is up, waiting for a termination signal", "endpoint", endpoint)
	<-ctx.Done()

	cleanupCtx, cancel := context.WithTimeout(context.Background(), cfg.deleteTimeout+time.Minute)
	defer cancel()
	if err := lifecycle.CleanupAll(cleanupCtx, cfg.forceCleanup, controller); err != nil {
		setupLog.Error(err, "cleanup failed")
		os.Exit(1)
	}
	for _, run := range controller.History() {
		setupLog.Info("run finished",
			"attemptId", run.AttemptID,
			"revision", run.RevisionID,
			"started", run.StartRequested,
			"stopped", run.Stopped,
		)
	}
}

// printService renders the body that a deploy would submit, without
// contacting the control plane.
func printService(w io.Writer, id v1alpha1.DeploymentIdentity, req v1alpha1.DeploymentRequest, r *resolver.Resolver) error {
	body, err := buildService(id, req, r)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode service: %w", err)
	}
	_, err = w.Write(out)
	return err
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	setupLog.Info("serving metrics", "address", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		setupLog.Error(err, "metrics server failed")
	}
}
