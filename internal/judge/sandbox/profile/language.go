package profile

// LanguageSpec defines how to compile and run a submission in a given
// language: template commands (with {src}/{bin}/{extraFlags} placeholders
// expanded by the runner) plus resource-limit multipliers applied on
// top of a task's base limits to account for interpreter/VM overhead.
type LanguageSpec struct {
	ID               string
	Name             string
	Version          string
	SourceFile       string
	BinaryFile       string
	CompileEnabled   bool
	CompileCmdTpl    string
	RunCmdTpl        string
	Env              []string
	TimeMultiplier   float64
	MemoryMultiplier float64
}
