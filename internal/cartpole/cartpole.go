// Package cartpole is a small cart-pole environment used to drive the
// experience memory.
package cartpole

import (
	"math"
	"math/rand"

	"experience-memory/internal/space"
)

const (
	gravity        = 9.81
	massCart       = 1.0
	massPole       = 0.1
	length         = 0.5
	totalMass      = massCart + massPole
	poleMassLength = massPole * length
	forceMax       = 10.0
	tau            = 0.02

	xThreshold     = 2.4
	thetaThreshold = 12.0 * math.Pi / 180.0
	maxSteps       = 500

	// velocity bounds used only for scaling; the dynamics do not clip
	velocityBound = 4.0
)

type State struct {
	X        float64 `json:"x"`
	XDot     float64 `json:"x_dot"`
	Theta    float64 `json:"theta"`
	ThetaDot float64 `json:"theta_dot"`
}

func (s State) Vector() []float64 {
	return []float64{s.X, s.XDot, s.Theta, s.ThetaDot}
}

type Env struct {
	State State
	Steps int
	Rand  *rand.Rand
}

func NewEnv(rng *rand.Rand) *Env {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	env := &Env{Rand: rng}
	env.Reset()
	return env
}

func (e *Env) Reset() State {
	e.State = State{
		X:        e.Rand.Float64()*0.1 - 0.05,
		XDot:     e.Rand.Float64()*0.1 - 0.05,
		Theta:    e.Rand.Float64()*0.1 - 0.05,
		ThetaDot: e.Rand.Float64()*0.1 - 0.05,
	}
	e.Steps = 0
	return e.State
}

// Step pushes the cart left for action 0 and right otherwise.
func (e *Env) Step(action int) (State, float64, bool) {
	force := forceMax
	if action == 0 {
		force = -forceMax
	}

	s := e.State
	cosTheta := math.Cos(s.Theta)
	sinTheta := math.Sin(s.Theta)

	temp := (force + poleMassLength*s.ThetaDot*s.ThetaDot*sinTheta) / totalMass
	thetaAcc := (gravity*sinTheta - cosTheta*temp) / (length * (4.0/3.0 - massPole*cosTheta*cosTheta/totalMass))
	xAcc := temp - poleMassLength*thetaAcc*cosTheta/totalMass

	e.State = State{
		X:        s.X + tau*s.XDot,
		XDot:     s.XDot + tau*xAcc,
		Theta:    s.Theta + tau*s.ThetaDot,
		ThetaDot: s.ThetaDot + tau*thetaAcc,
	}
	e.Steps++

	x, theta := e.State.X, e.State.Theta
	done := x < -xThreshold || x > xThreshold || theta < -thetaThreshold || theta > thetaThreshold || e.Steps >= maxSteps
	reward := 1.0
	if done && e.Steps < maxSteps {
		reward = 0.0
	}
	return e.State, reward, done
}

func MaxSteps() int {
	return maxSteps
}

func ObservationSpace() space.Space {
	s, _ := space.New(
		[]float64{-2 * xThreshold, -velocityBound, -2 * thetaThreshold, -velocityBound},
		[]float64{2 * xThreshold, velocityBound, 2 * thetaThreshold, velocityBound},
	)
	return s
}

// ActionSpace holds the single discrete action as a value in [0, 1].
func ActionSpace() space.Space {
	s, _ := space.Uniform(1, 0, 1)
	return s
}

func RewardSpace() space.Space {
	s, _ := space.Uniform(1, 0, 1)
	return s
}
