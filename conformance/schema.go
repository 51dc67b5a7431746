package conformance

// Suite is one YAML fixture file.
type Suite struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// Dialect is the default for every case: avm1 or avm2.
	Dialect string `yaml:"dialect"`
	Version uint8  `yaml:"version,omitempty"`
	Cases   []Case `yaml:"tests"`
}

// Case is one program and what running it must produce.
type Case struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Skip        string `yaml:"skip,omitempty"`
	Dialect     string `yaml:"dialect,omitempty"`
	Version     uint8  `yaml:"version,omitempty"`
	// Target is the slash path of the clip AVM1 code runs on.
	Target    string     `yaml:"target,omitempty"`
	Limits    Limits     `yaml:"limits,omitempty"`
	Functions []Function `yaml:"functions,omitempty"`
	Code      string     `yaml:"code"`
	// Then holds further AVM1 blocks run in order after Code.
	Then   []Block `yaml:"then,omitempty"`
	Expect Expect  `yaml:"expect"`
}

// Block is one AVM1 action block on its own clip.
type Block struct {
	Target string `yaml:"target,omitempty"`
	Code   string `yaml:"code"`
}

// Limits override the player defaults for one case.
type Limits struct {
	Recursion int `yaml:"recursion,omitempty"`
}

// Function declares a script-level AVM2 function. Its code is a complete
// method body.
type Function struct {
	Name   string   `yaml:"name"`
	Params []Param  `yaml:"params,omitempty"`
	Flags  []string `yaml:"flags,omitempty"`
	Locals int      `yaml:"locals,omitempty"`
	Code   string   `yaml:"code"`
}

// Param is one declared AVM2 parameter. A missing default makes it
// required.
type Param struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type,omitempty"`
	Default any    `yaml:"default,omitempty"`
}

// Expect is the observable result of a case.
type Expect struct {
	Trace []string `yaml:"trace,omitempty"`
	// Outcome is completed (the default), uncaught or aborted.
	Outcome string `yaml:"outcome,omitempty"`
	Class   string `yaml:"class,omitempty"`
	Code    int    `yaml:"code,omitempty"`
	// Message must occur in the error message.
	Message string `yaml:"message,omitempty"`
}

func (c *Case) dialect(s *Suite) string {
	if c.Dialect != "" {
		return c.Dialect
	}
	return s.Dialect
}

func (c *Case) version(s *Suite) uint8 {
	if c.Version != 0 {
		return c.Version
	}
	if s.Version != 0 {
		return s.Version
	}
	return 10
}
