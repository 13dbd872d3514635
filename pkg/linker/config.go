package linker

import (
	"strings"

	"github.com/xyproto/env/v2"
)

// CodeGenType mirrors LinkerConfig::CodeGenType in the spec: the kind of
// output the backend is asked to produce.
type CodeGenType uint8

const (
	CodeGenObject CodeGenType = iota
	CodeGenDynObj
	CodeGenExec
)

func (t CodeGenType) String() string {
	switch t {
	case CodeGenObject:
		return "relocatable"
	case CodeGenDynObj:
		return "shared object"
	case CodeGenExec:
		return "executable"
	default:
		return "unknown"
	}
}

// OS identifies the output triple's operating system, enough to drive the
// platform-dispatch rule in the spec (abort on Darwin/Windows triples).
// Grounded on the Arch/OS/Platform parsing helpers in xyproto-vibe67's
// internal/engine/arch.go.
type OS uint8

const (
	OSLinux OS = iota
	OSDarwin
	OSWindows
	OSUnknown
)

func ParseOS(s string) OS {
	switch strings.ToLower(s) {
	case "linux", "gnu", "android":
		return OSLinux
	case "darwin", "macos", "ios":
		return OSDarwin
	case "windows", "win32", "mingw32":
		return OSWindows
	default:
		return OSUnknown
	}
}

// Triple is a minimal target-triple model: only the OS component matters
// to this backend's platform dispatch, but the raw triple string is kept
// around so diagnostics can print something recognizable.
type Triple struct {
	Raw string
	OS  OS
}

func ParseTriple(raw string) Triple {
	t := Triple{Raw: raw}
	parts := strings.Split(raw, "-")
	for _, p := range parts {
		if os := ParseOS(p); os != OSUnknown {
			t.OS = os
			return t
		}
	}
	t.OS = OSLinux
	return t
}

func (t Triple) IsOSDarwin() bool  { return t.OS == OSDarwin }
func (t Triple) IsOSWindows() bool { return t.OS == OSWindows }

// TargetInfo is the config().targets() collaborator from the spec.
type TargetInfo struct {
	Triple   Triple
	Bitclass uint8 // 32 for ARM/Thumb
}

// Options is the config().options() collaborator: command-line policy
// switches outside ARM's direct concern.
type Options struct {
	Now bool // -z now (read from ARMLD_NOW); recorded only, no section-ordering decision reads it
}

// LinkerConfig is the concrete realization of the spec's external
// *LinkerConfig* collaborator (code-gen type, PIC flag, options).
type LinkerConfig struct {
	Type         CodeGenType
	IsCodeStatic bool
	IsCodeIndep  bool // PIC
	Target       TargetInfo
	Opts         Options
}

func (c LinkerConfig) Targets() TargetInfo { return c.Target }
func (c LinkerConfig) CodeGenType() CodeGenType { return c.Type }
func (c LinkerConfig) IsStatic() bool           { return c.IsCodeStatic }
func (c LinkerConfig) IsPIC() bool              { return c.IsCodeIndep }

// NewLinkerConfig builds a LinkerConfig for a 32-bit ARM/Thumb target,
// honoring a couple of environment knobs the way xyproto-vibe67 (via
// github.com/xyproto/env/v2) reads tuning knobs from the environment
// alongside CLI flags: ARMLD_NOW mirrors -z now, ARMLD_TRIPLE overrides
// the default "arm-linux-gnueabi" triple used when none is given on the
// command line.
func NewLinkerConfig(codeGen CodeGenType, static, pic bool) LinkerConfig {
	triple := env.Str("ARMLD_TRIPLE", "arm-linux-gnueabi")
	return LinkerConfig{
		Type:         codeGen,
		IsCodeStatic: static,
		IsCodeIndep:  pic,
		Target: TargetInfo{
			Triple:   ParseTriple(triple),
			Bitclass: 32,
		},
		Opts: Options{
			Now: env.Bool("ARMLD_NOW"),
		},
	}
}
