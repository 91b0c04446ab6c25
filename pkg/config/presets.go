package config

import "github.com/matzehuels/pixelsort/pkg/pixelsort"

// builtins are the presets shipped with pixelsort. Each starts from
// DefaultParams, so unset fields keep their default values.
var builtins = map[string]pixelsort.Params{
	"default": pixelsort.DefaultParams(),
	"melt": preset(func(p *pixelsort.Params) {
		p.Direction = pixelsort.Vertical
		p.LowerThreshold = 60
		p.UpperThreshold = 255
		p.Reverse = true
		p.Falloff = 10
	}),
	"rain": preset(func(p *pixelsort.Params) {
		p.Direction = pixelsort.Vertical
		p.IntervalMode = pixelsort.Random
		p.SortKey = pixelsort.Blue
		p.SpanMin = 20
		p.SpanMax = 200
		p.Jitter = 5
	}),
	"shatter": preset(func(p *pixelsort.Params) {
		p.IntervalMode = pixelsort.Edges
		p.SortKey = pixelsort.Saturation
		p.LowerThreshold = 40
		p.Angle = 35
	}),
	"tide": preset(func(p *pixelsort.Params) {
		p.IntervalMode = pixelsort.Waves
		p.SortKey = pixelsort.Intensity
		p.SpanMin = 30
		p.SpanMax = 120
	}),
	"ridges": preset(func(p *pixelsort.Params) {
		p.Direction = pixelsort.Vertical
		p.IntervalMode = pixelsort.Edges
		p.SortKey = pixelsort.Minimum
		p.LowerThreshold = 25
	}),
	"glitch": preset(func(p *pixelsort.Params) {
		p.IntervalMode = pixelsort.Random
		p.SortKey = pixelsort.Red
		p.SpanMin = 8
		p.SpanMax = 400
		p.Jitter = 30
		p.Angle = 15
		p.Falloff = 40
	}),
}

func preset(edit func(*pixelsort.Params)) pixelsort.Params {
	p := pixelsort.DefaultParams()
	edit(&p)
	return p.Clamp()
}
