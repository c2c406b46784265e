package device

import (
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// detectCPUFeatures lists the SIMD extensions of the host CPU.
func detectCPUFeatures() []string {
	var features []string
	add := func(name string, has bool) {
		if has {
			features = append(features, name)
		}
	}

	switch runtime.GOARCH {
	case "amd64", "386":
		add("SSE4", cpu.X86.HasSSE41 || cpu.X86.HasSSE42)
		add("AVX", cpu.X86.HasAVX)
		add("AVX2", cpu.X86.HasAVX2)
		add("FMA", cpu.X86.HasFMA)
		add("AVX512F", cpu.X86.HasAVX512F)
		add("AVX512DQ", cpu.X86.HasAVX512DQ)
		add("AVX512BW", cpu.X86.HasAVX512BW)
		add("AVX512VL", cpu.X86.HasAVX512VL)
	case "arm64":
		add("FP", cpu.ARM64.HasFP)
		add("ASIMD", cpu.ARM64.HasASIMD)
		add("ASIMDHP", cpu.ARM64.HasASIMDHP)
		add("ASIMDDP", cpu.ARM64.HasASIMDDP)
		add("SVE", cpu.ARM64.HasSVE)
		add("SVE2", cpu.ARM64.HasSVE2)
	}
	return features
}

// CPUInfo returns a string describing available CPU features
func (d *Device) CPUInfo() string {
	if len(d.Features) == 0 {
		return "No SIMD extensions detected"
	}
	return "CPU features: " + strings.Join(d.Features, ", ")
}
