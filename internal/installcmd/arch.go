package installcmd

// Arch is a CPU architecture mkxray is released for.
type Arch string

const (
	ArchAMD64 Arch = "amd64"
	ArchARM64 Arch = "arm64"

	DefaultArch = ArchAMD64
)

var archs = []Arch{ArchAMD64, ArchARM64}

// Archs returns the supported architectures in selector order.
func Archs() []Arch {
	out := make([]Arch, len(archs))
	copy(out, archs)
	return out
}

// Valid reports whether a is a released architecture.
func (a Arch) Valid() bool {
	for _, known := range archs {
		if a == known {
			return true
		}
	}
	return false
}

func (a Arch) String() string { return string(a) }

// ParseArch maps s to an Arch. Empty input yields DefaultArch. Unknown values
// are returned as-is with ok=false so callers can decide whether to pass
// them through.
func ParseArch(s string) (Arch, bool) {
	if s == "" {
		return DefaultArch, true
	}
	a := Arch(s)
	return a, a.Valid()
}
