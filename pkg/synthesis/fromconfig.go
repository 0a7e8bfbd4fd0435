package synthesis

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r3"
	log "github.com/sirupsen/logrus"

	"pivsynth/internal/models"
	"pivsynth/pkg/advection"
	"pivsynth/pkg/config"
	"pivsynth/pkg/distribution"
	"pivsynth/pkg/flowfield"
	"pivsynth/pkg/intensity"
)

// FromConfig converts a configuration into pipeline parameters and the flow sampler it names
func FromConfig(cfg *config.Config) (Params, flowfield.Sampler, error) {
	if err := cfg.Validate(); err != nil {
		return Params{}, nil, err
	}

	camera, err := models.NewCameraModel(cfg.Camera.XResolution, cfg.Camera.YResolution,
		cfg.Camera.DPI, cfg.Camera.DCCD, cfg.Camera.DIA)
	if err != nil {
		return Params{}, nil, err
	}

	optics, err := intensity.NewOptics(cfg.Optics.SX, cfg.Optics.SY,
		cfg.Optics.FrameX, cfg.Optics.FrameY, cfg.Optics.Efficiency)
	if err != nil {
		return Params{}, nil, err
	}

	mode, err := advection.ParseMode(cfg.Run.AdvectionMode)
	if err != nil {
		return Params{}, nil, err
	}
	strategy, err := intensity.ParseStrategy(cfg.Run.RenderStrategy)
	if err != nil {
		return Params{}, nil, err
	}

	params := Params{
		Diameters: distribution.Params{
			Kind:  cfg.Particles.Distribution,
			Mean:  cfg.Particles.MeanDiameter,
			Std:   cfg.Particles.StdDiameter,
			Min:   cfg.Particles.MinDiameter,
			Max:   cfg.Particles.MaxDiameter,
			Count: cfg.Particles.Count,
		},
		InPlanePercent: cfg.Particles.InPlanePercent,
		Density:        cfg.Particles.Density,
		Volume: models.InterrogationVolume{
			XMin: cfg.Interrogation.XMin,
			XMax: cfg.Interrogation.XMax,
			YMin: cfg.Interrogation.YMin,
			YMax: cfg.Interrogation.YMax,
		},
		Sheet: models.LaserSheet{
			Position:    cfg.Laser.Position,
			Thickness:   cfg.Laser.Thickness,
			ShapeFactor: cfg.Laser.ShapeFactor,
			PulseTime:   cfg.Laser.PulseTime,
		},
		Camera:         camera,
		Optics:         optics,
		Pairs:          cfg.Run.Pairs,
		Seed:           cfg.Run.Seed,
		NumWorkers:     cfg.Run.NumWorkers,
		ChunkSize:      cfg.Run.ChunkSize,
		AdvectionMode:  mode,
		RenderStrategy: strategy,
	}
	if err := params.Validate(); err != nil {
		return Params{}, nil, err
	}

	sampler, err := samplerFromConfig(cfg)
	if err != nil {
		return Params{}, nil, err
	}
	return params, sampler, nil
}

func vector(v []float64) r3.Vector {
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

// samplerFromConfig builds the flow sampler described by the flow section
func samplerFromConfig(cfg *config.Config) (flowfield.Sampler, error) {
	switch strings.ToLower(cfg.Flow.Kind) {
	case "uniform":
		domain := flowfield.Box{Min: vector(cfg.Flow.DomainMin), Max: vector(cfg.Flow.DomainMax)}
		return flowfield.NewUniform(domain, vector(cfg.Flow.Velocity)), nil
	case "points":
		samples, err := flowfield.LoadSamples(cfg.Flow.Path)
		if err != nil {
			return nil, err
		}
		sampler, err := flowfield.NewPoints(samples, cfg.Flow.Neighbors)
		if err != nil {
			return nil, err
		}
		b := sampler.Bounds()
		log.WithFields(log.Fields{
			"records": len(samples),
			"min":     b.Min,
			"max":     b.Max,
		}).Info("flow records loaded")
		return sampler, nil
	default:
		return nil, fmt.Errorf("unknown flow kind %q", cfg.Flow.Kind)
	}
}
