// Package advection moves a seeded particle cloud to the second exposure.
//
// Each particle is integrated independently with one explicit Euler step,
// x' = x + dt·u(x), using a flowfield.Sampler for u. Particles that cannot
// be located or interpolated are dropped from both exposures so that the
// two clouds stay row-aligned.
package advection

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/golang/geo/r3"
	log "github.com/sirupsen/logrus"

	"pivsynth/internal/models"
	"pivsynth/internal/workpool"
	"pivsynth/pkg/flowfield"
)

// Mode selects how the per-particle sweep is executed
type Mode int

const (
	// Parallel runs the sweep on the worker pool
	Parallel Mode = iota
	// Sequential runs the sweep on the calling goroutine
	Sequential
)

func (m Mode) String() string {
	if m == Sequential {
		return "sequential"
	}
	return "parallel"
}

// ParseMode converts a configuration string into a Mode
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "parallel":
		return Parallel, nil
	case "sequential", "serial":
		return Sequential, nil
	default:
		return Parallel, fmt.Errorf("unknown advection mode %q", s)
	}
}

// Report summarises one advection sweep
type Report struct {
	// Total is the number of particles handed to the sweep
	Total int

	// Advected is the number of particles kept in both exposures
	Advected int

	// Failures lists every dropped particle, ordered by index
	Failures []models.Failure
}

// Advector runs advection sweeps. The pool is borrowed, not owned.
type Advector struct {
	Pool *workpool.Pool
	Mode Mode
}

// New returns an advector using pool in the given mode
func New(pool *workpool.Pool, mode Mode) *Advector {
	return &Advector{Pool: pool, Mode: mode}
}

// outcome is the tagged per-particle result of the sweep
type outcome struct {
	position r3.Vector
	failure  *models.Failure
}

// Step advances a single particle by one pulse time.
// It returns a Failure tagged OutOfDomain or InterpolationFailure when the
// sampler cannot serve the particle.
func Step(p models.Particle, pulseTime float64, sampler flowfield.Sampler) (r3.Vector, *models.Failure) {
	cell, err := sampler.Locate(p.Position)
	if err != nil {
		return r3.Vector{}, &models.Failure{Kind: models.OutOfDomain, Err: err}
	}
	v, err := sampler.Velocity(cell, p.Position)
	if err != nil {
		return r3.Vector{}, &models.Failure{Kind: models.InterpolationFailure, Err: err}
	}
	return p.Position.Add(v.Mul(pulseTime)), nil
}

// Advect computes the second exposure of cloud.
//
// The sweep is a map over particles; once every task has returned, a
// single removal pass drops the failed indices from both the input cloud
// and the advected cloud. Cancellation is observed before the sweep and at
// its join; a cancelled sweep returns an error and no pair.
func (a *Advector) Advect(ctx context.Context, cloud models.ParticleCloud, pulseTime float64, sampler flowfield.Sampler) (*models.ExposurePair, *Report, error) {
	if sampler == nil {
		return nil, nil, errors.New("advection requires a flow sampler")
	}

	pool := a.Pool
	if a.Mode == Sequential {
		pool = nil
	}

	outcomes, err := workpool.Map(ctx, pool, len(cloud), func(i int) (outcome, error) {
		pos, failure := Step(cloud[i], pulseTime, sampler)
		if failure != nil {
			failure.Index = i
		}
		return outcome{position: pos, failure: failure}, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("advection sweep aborted: %w", err)
	}

	// Join point: collect failures, then remove them from both exposures
	report := &Report{Total: len(cloud)}
	second := make(models.ParticleCloud, len(cloud))
	var dropped []int
	for i, o := range outcomes {
		if o.failure != nil {
			report.Failures = append(report.Failures, *o.failure)
			dropped = append(dropped, i)
			continue
		}
		second[i] = models.Particle{Position: o.position, Diameter: cloud[i].Diameter}
	}
	sort.Ints(dropped)

	pair := &models.ExposurePair{
		First:   cloud.Without(dropped),
		Second:  second.Without(dropped),
		Dropped: dropped,
	}
	if err := pair.Check(); err != nil {
		return nil, nil, err
	}
	report.Advected = pair.Len()

	if len(report.Failures) > 0 {
		counts := models.CountByKind(report.Failures)
		log.WithFields(log.Fields{
			"total":         report.Total,
			"advected":      report.Advected,
			"outOfDomain":   counts[models.OutOfDomain],
			"interpolation": counts[models.InterpolationFailure],
		}).Warn("particles dropped during advection")
	}
	log.WithFields(log.Fields{
		"particles": report.Advected,
		"mode":      a.Mode,
	}).Debug("advection complete")

	return pair, report, nil
}
