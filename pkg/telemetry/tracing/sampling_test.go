package tracing

import "testing"

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		name     string
		strategy string
		ratio    float64
		wantErr  bool
	}{
		{name: "always sampler", strategy: SamplerAlways},
		{name: "default sampler", strategy: ""},
		{name: "never sampler", strategy: SamplerNever},
		{name: "ratio sampler - 0%", strategy: SamplerRatio, ratio: 0.0},
		{name: "ratio sampler - 50%", strategy: SamplerRatio, ratio: 0.5},
		{name: "ratio sampler - 100%", strategy: SamplerRatio, ratio: 1.0},
		{name: "ratio sampler - invalid negative", strategy: SamplerRatio, ratio: -0.1, wantErr: true},
		{name: "ratio sampler - invalid > 1", strategy: SamplerRatio, ratio: 1.5, wantErr: true},
		{name: "unknown strategy", strategy: "unknown", ratio: 0.5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sampler, err := createSampler(tt.strategy, tt.ratio)
			if (err != nil) != tt.wantErr {
				t.Errorf("createSampler() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && sampler == nil {
				t.Error("createSampler() returned nil sampler without error")
			}
		})
	}
}
