package config

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// decodeINI overlays INI sections on cfg. Missing keys keep the value already in cfg.
func decodeINI(data []byte, cfg *Config) error {
	file, err := ini.Load(data)
	if err != nil {
		return err
	}

	p := file.Section("particles")
	cfg.Particles.Count = p.Key("count").MustInt(cfg.Particles.Count)
	cfg.Particles.Distribution = p.Key("distribution").MustString(cfg.Particles.Distribution)
	cfg.Particles.MinDiameter = p.Key("minDiameter").MustFloat64(cfg.Particles.MinDiameter)
	cfg.Particles.MaxDiameter = p.Key("maxDiameter").MustFloat64(cfg.Particles.MaxDiameter)
	cfg.Particles.MeanDiameter = p.Key("meanDiameter").MustFloat64(cfg.Particles.MeanDiameter)
	cfg.Particles.StdDiameter = p.Key("stdDiameter").MustFloat64(cfg.Particles.StdDiameter)
	cfg.Particles.Density = p.Key("density").MustFloat64(cfg.Particles.Density)
	cfg.Particles.InPlanePercent = p.Key("inPlanePercent").MustFloat64(cfg.Particles.InPlanePercent)

	ia := file.Section("interrogation")
	cfg.Interrogation.XMin = ia.Key("xMin").MustFloat64(cfg.Interrogation.XMin)
	cfg.Interrogation.XMax = ia.Key("xMax").MustFloat64(cfg.Interrogation.XMax)
	cfg.Interrogation.YMin = ia.Key("yMin").MustFloat64(cfg.Interrogation.YMin)
	cfg.Interrogation.YMax = ia.Key("yMax").MustFloat64(cfg.Interrogation.YMax)

	l := file.Section("laser")
	cfg.Laser.Position = l.Key("position").MustFloat64(cfg.Laser.Position)
	cfg.Laser.Thickness = l.Key("thickness").MustFloat64(cfg.Laser.Thickness)
	cfg.Laser.ShapeFactor = l.Key("shapeFactor").MustFloat64(cfg.Laser.ShapeFactor)
	cfg.Laser.PulseTime = l.Key("pulseTime").MustFloat64(cfg.Laser.PulseTime)

	c := file.Section("camera")
	cfg.Camera.XResolution = c.Key("xResolution").MustInt(cfg.Camera.XResolution)
	cfg.Camera.YResolution = c.Key("yResolution").MustInt(cfg.Camera.YResolution)
	cfg.Camera.DPI = c.Key("dpi").MustFloat64(cfg.Camera.DPI)
	cfg.Camera.DCCD = c.Key("dCCD").MustFloat64(cfg.Camera.DCCD)
	cfg.Camera.DIA = c.Key("dIA").MustFloat64(cfg.Camera.DIA)

	o := file.Section("optics")
	cfg.Optics.SX = o.Key("sx").MustFloat64(cfg.Optics.SX)
	cfg.Optics.SY = o.Key("sy").MustFloat64(cfg.Optics.SY)
	cfg.Optics.FrameX = o.Key("frameX").MustFloat64(cfg.Optics.FrameX)
	cfg.Optics.FrameY = o.Key("frameY").MustFloat64(cfg.Optics.FrameY)
	cfg.Optics.Efficiency = o.Key("efficiency").MustFloat64(cfg.Optics.Efficiency)

	f := file.Section("flow")
	cfg.Flow.Kind = f.Key("kind").MustString(cfg.Flow.Kind)
	cfg.Flow.Path = f.Key("path").MustString(cfg.Flow.Path)
	cfg.Flow.Neighbors = f.Key("neighbors").MustInt(cfg.Flow.Neighbors)
	for _, v := range []struct {
		key string
		dst *[]float64
	}{
		{"velocity", &cfg.Flow.Velocity},
		{"domainMin", &cfg.Flow.DomainMin},
		{"domainMax", &cfg.Flow.DomainMax},
	} {
		if !f.HasKey(v.key) {
			continue
		}
		values, err := f.Key(v.key).StrictFloat64s(",")
		if err != nil {
			return fmt.Errorf("flow.%s: %w", v.key, err)
		}
		*v.dst = values
	}

	r := file.Section("run")
	cfg.Run.Pairs = r.Key("pairs").MustInt(cfg.Run.Pairs)
	cfg.Run.Seed = r.Key("seed").MustUint64(cfg.Run.Seed)
	cfg.Run.NumWorkers = r.Key("numWorkers").MustInt(cfg.Run.NumWorkers)
	cfg.Run.ChunkSize = r.Key("chunkSize").MustInt(cfg.Run.ChunkSize)
	cfg.Run.AdvectionMode = r.Key("advectionMode").MustString(cfg.Run.AdvectionMode)
	cfg.Run.RenderStrategy = r.Key("renderStrategy").MustString(cfg.Run.RenderStrategy)

	out := file.Section("output")
	cfg.Output.Dir = out.Key("dir").MustString(cfg.Output.Dir)
	cfg.Output.Verbose = out.Key("verbose").MustBool(cfg.Output.Verbose)

	return nil
}

// encodeINI writes cfg into a new INI file
func encodeINI(cfg *Config) *ini.File {
	file := ini.Empty()
	set := func(section, key string, value interface{}) {
		file.Section(section).Key(key).SetValue(format(value))
	}

	set("particles", "count", cfg.Particles.Count)
	set("particles", "distribution", cfg.Particles.Distribution)
	set("particles", "minDiameter", cfg.Particles.MinDiameter)
	set("particles", "maxDiameter", cfg.Particles.MaxDiameter)
	set("particles", "meanDiameter", cfg.Particles.MeanDiameter)
	set("particles", "stdDiameter", cfg.Particles.StdDiameter)
	set("particles", "density", cfg.Particles.Density)
	set("particles", "inPlanePercent", cfg.Particles.InPlanePercent)

	set("interrogation", "xMin", cfg.Interrogation.XMin)
	set("interrogation", "xMax", cfg.Interrogation.XMax)
	set("interrogation", "yMin", cfg.Interrogation.YMin)
	set("interrogation", "yMax", cfg.Interrogation.YMax)

	set("laser", "position", cfg.Laser.Position)
	set("laser", "thickness", cfg.Laser.Thickness)
	set("laser", "shapeFactor", cfg.Laser.ShapeFactor)
	set("laser", "pulseTime", cfg.Laser.PulseTime)

	set("camera", "xResolution", cfg.Camera.XResolution)
	set("camera", "yResolution", cfg.Camera.YResolution)
	set("camera", "dpi", cfg.Camera.DPI)
	set("camera", "dCCD", cfg.Camera.DCCD)
	set("camera", "dIA", cfg.Camera.DIA)

	set("optics", "sx", cfg.Optics.SX)
	set("optics", "sy", cfg.Optics.SY)
	set("optics", "frameX", cfg.Optics.FrameX)
	set("optics", "frameY", cfg.Optics.FrameY)
	set("optics", "efficiency", cfg.Optics.Efficiency)

	set("flow", "kind", cfg.Flow.Kind)
	set("flow", "velocity", cfg.Flow.Velocity)
	set("flow", "domainMin", cfg.Flow.DomainMin)
	set("flow", "domainMax", cfg.Flow.DomainMax)
	set("flow", "path", cfg.Flow.Path)
	set("flow", "neighbors", cfg.Flow.Neighbors)

	set("run", "pairs", cfg.Run.Pairs)
	set("run", "seed", cfg.Run.Seed)
	set("run", "numWorkers", cfg.Run.NumWorkers)
	set("run", "chunkSize", cfg.Run.ChunkSize)
	set("run", "advectionMode", cfg.Run.AdvectionMode)
	set("run", "renderStrategy", cfg.Run.RenderStrategy)

	set("output", "dir", cfg.Output.Dir)
	set("output", "verbose", cfg.Output.Verbose)

	return file
}

// format renders a config value the way the INI decoder reads it back
func format(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case []float64:
		parts := make([]string, len(x))
		for i, f := range x {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(x)
	}
}
