package descriptor

// A step in the build plan.
type Step int

// The seven steps, in execution order. The plan never has more, fewer,
// or reordered steps; descriptors parameterize them.
const (
	StepBase Step = iota
	StepWorkdir
	StepDependencies
	StepCopy
	StepEnv
	StepCache
	StepCommand
)

func (s Step) String() string {
	switch s {
	case StepBase:
		return "base"
	case StepWorkdir:
		return "workdir"
	case StepDependencies:
		return "dependencies"
	case StepCopy:
		return "copy"
	case StepEnv:
		return "env"
	case StepCache:
		return "cache"
	case StepCommand:
		return "command"
	default:
		return "unknown"
	}
}

// Returns the build plan. Always the same seven steps in the same
// order; failures abort the remainder, nothing reorders or retries.
func (d *Descriptor) Steps() []Step {
	return []Step{
		StepBase,
		StepWorkdir,
		StepDependencies,
		StepCopy,
		StepEnv,
		StepCache,
		StepCommand,
	}
}
