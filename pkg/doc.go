// Package pkg provides the libraries behind the pixelsort command and HTTP
// service.
//
// # Overview
//
// Pixelsort finds runs of pixels along rows, columns or an arbitrary angle
// and reorders each run by a scalar key. The pkg directory is organized as:
//
//  1. [pixelsort] - The effect engine (params, keys, spans, rotation, passes)
//  2. [imageio] - Decoding, encoding and pixel surfaces
//  3. [pipeline] - Orchestration (decode → sort → encode) with caching
//  4. [cache] - Artifact storage (file, Redis, none)
//  5. [config] - TOML settings and named presets
//  6. [errors], [observability], [buildinfo] - Shared infrastructure
//
// # Architecture
//
//	image bytes (+ optional mask)
//	         ↓
//	    [imageio] decode into an NRGBA surface
//	         ↓
//	    [pixelsort] gather lines, sort spans, scatter back
//	         ↓
//	    [imageio] encode PNG/JPEG/GIF/BMP/TIFF
//
// [pipeline.Runner] wraps these steps and stores each result under a key
// derived from the input bytes and every option that changes the output.
//
// # Quick Start
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, nil)
//	res, err := runner.Execute(ctx, pipeline.Input{Image: data}, pipeline.Options{
//	    Params: pixelsort.DefaultParams(),
//	})
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("out.png", res.Artifact, 0o644)
//
// For the engine alone, see [pixelsort.Sorter].
package pkg
