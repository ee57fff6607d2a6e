package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/vanshika/internet-atlas/backend/internal/graph"
)

// HealthService defines behaviour for readiness probes.
type HealthService interface {
	Probe(ctx context.Context) error
}

// Pinger is anything with a connectivity check, such as an artifact store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreHealthService probes the artifact store the API reads from.
type StoreHealthService struct {
	Store Pinger
}

// Probe implements the HealthService interface.
func (s StoreHealthService) Probe(ctx context.Context) error {
	if s.Store == nil {
		return nil
	}
	if err := s.Store.Ping(ctx); err != nil {
		return fmt.Errorf("artifact store: %w", err)
	}
	return nil
}

// GraphHealthService verifies graph connectivity as part of health checks.
type GraphHealthService struct {
	Client graph.Client
}

// Probe implements the HealthService interface.
func (s GraphHealthService) Probe(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	if err := s.Client.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	return nil
}

// HealthChecks runs every probe and joins their failures.
type HealthChecks []HealthService

// Probe implements the HealthService interface.
func (c HealthChecks) Probe(ctx context.Context) error {
	var errs []error
	for _, check := range c {
		if err := check.Probe(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
