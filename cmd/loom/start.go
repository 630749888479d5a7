package main

// StartCmd starts a run on a running server.
type StartCmd struct {
	ServerFlag
	Input []string `help:"Placeholder value as key=value; repeatable." short:"i"`
}

func (c *StartCmd) Run() error {
	inputs, err := parseInputs(c.Input)
	if err != nil {
		return err
	}
	return c.post("/v1/team/start", map[string]any{"inputs": inputs})
}

// PauseCmd pauses a running team.
type PauseCmd struct {
	ServerFlag
}

func (c *PauseCmd) Run() error { return c.post("/v1/team/pause", nil) }

// ResumeCmd resumes a paused team.
type ResumeCmd struct {
	ServerFlag
}

func (c *ResumeCmd) Run() error { return c.post("/v1/team/resume", nil) }

// StopCmd stops a running team.
type StopCmd struct {
	ServerFlag
}

func (c *StopCmd) Run() error { return c.post("/v1/team/stop", nil) }
