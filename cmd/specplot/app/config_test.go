package app

import (
	"testing"

	"github.com/roman-kulish/rf-detection/internal/sdr/sim"
)

func TestNewConfig_Defaults(t *testing.T) {
	c := NewConfig()

	if c.PowerThreshold != 18 {
		t.Errorf("Expected default power threshold 18, got %v", c.PowerThreshold)
	}
	if c.Format != ImagePNG {
		t.Errorf("Expected default format %s, got %s", ImagePNG, c.Format)
	}
	if c.MinPeakSeparation != 20 {
		t.Errorf("Expected default peak separation 20, got %d", c.MinPeakSeparation)
	}
}

func TestOutputFileName(t *testing.T) {
	testCases := []struct {
		name   string
		path   string
		format ImageFormat
		want   string
	}{
		{"no extension", "spectrum", ImagePNG, "spectrum.png"},
		{"extension already present", "spectrum.png", ImagePNG, "spectrum.png"},
		{"uppercase extension present", "spectrum.PNG", ImagePNG, "spectrum.PNG"},
		{"different format extension", "spectrum.png", ImageJPEG, "spectrum.png.jpeg"},
		{"jpeg", "out/spectrum", ImageJPEG, "out/spectrum.jpeg"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := outputFileName(tc.path, tc.format); got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestParseTones(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    []sim.Tone
		wantErr bool
	}{
		{
			name:  "single tone",
			input: "100000:0.05",
			want:  []sim.Tone{{Frequency: 100_000, Amplitude: 0.05}},
		},
		{
			name:  "multiple tones",
			input: "100000:0.05,300000:0.1",
			want: []sim.Tone{
				{Frequency: 100_000, Amplitude: 0.05},
				{Frequency: 300_000, Amplitude: 0.1},
			},
		},
		{
			name:  "negative frequency",
			input: "-250000:0.2",
			want:  []sim.Tone{{Frequency: -250_000, Amplitude: 0.2}},
		},
		{
			name:  "whitespace around pairs",
			input: " 100000:0.05 , 300000:0.1 ",
			want: []sim.Tone{
				{Frequency: 100_000, Amplitude: 0.05},
				{Frequency: 300_000, Amplitude: 0.1},
			},
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "missing amplitude",
			input:   "100000",
			wantErr: true,
		},
		{
			name:    "bad frequency",
			input:   "abc:0.05",
			wantErr: true,
		},
		{
			name:    "bad amplitude",
			input:   "100000:lots",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseTones(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Error("Expected an error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Failed to parse tones: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("Expected %d tones, got %d", len(tc.want), len(got))
			}
			for i, want := range tc.want {
				if got[i] != want {
					t.Errorf("Tone %d: expected %+v, got %+v", i, want, got[i])
				}
			}
		})
	}
}
