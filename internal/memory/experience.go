package memory

// NextObservation is either an observed state or the terminal marker that
// ends an episode.
type NextObservation struct {
	values   []float64
	terminal bool
}

func Observed(values []float64) NextObservation {
	return NextObservation{values: values}
}

func Terminal() NextObservation {
	return NextObservation{terminal: true}
}

func (n NextObservation) IsTerminal() bool {
	return n.terminal
}

// Values returns the observation, or nil for a terminal state.
func (n NextObservation) Values() []float64 {
	if n.terminal {
		return nil
	}
	return n.values
}

func (n NextObservation) clone() NextObservation {
	if n.terminal {
		return n
	}
	return Observed(cloneVec(n.values))
}

// Experience is one transition as observed from the environment.
type Experience struct {
	Observation []float64
	Action      []float64
	Reward      float64
	Next        NextObservation
	Step        int
	Episode     int
}

// MachineExperience is the scaled counterpart of an Experience. Return is
// only meaningful once HasReturn is set.
type MachineExperience struct {
	Observation []float64
	Action      []float64
	Reward      float64
	Next        NextObservation
	Step        int
	Episode     int
	Return      float64
	HasReturn   bool
}

func (e Experience) clone() Experience {
	e.Observation = cloneVec(e.Observation)
	e.Action = cloneVec(e.Action)
	e.Next = e.Next.clone()
	return e
}

func (m MachineExperience) clone() MachineExperience {
	m.Observation = cloneVec(m.Observation)
	m.Action = cloneVec(m.Action)
	m.Next = m.Next.clone()
	return m
}

func cloneVec(v []float64) []float64 {
	if v == nil {
		return nil
	}
	return append([]float64(nil), v...)
}
