package cells

import (
	"github.com/roach88/edmd/internal/model"
	"github.com/roach88/edmd/internal/physics"
	"github.com/roach88/edmd/internal/poly"
)

// Sentinel forces a VIRTUAL event whenever a particle may have travelled
// far enough for the nearest periodic image of a partner to change. Pair
// predictions use the image nearest at prediction time, so systems only a
// few interaction ranges across need this to stay exact.
type Sentinel struct {
	// MaxRange is the largest interaction distance.
	MaxRange float64
}

func (*Sentinel) Name() string { return "pbc-sentinel" }

// Predict returns the time until p has moved a quarter of the free width
// (half box minus MaxRange) along any axis.
func (s *Sentinel) Predict(e *physics.Env, p *model.Particle) model.Prediction {
	box := e.Boundary.Box()
	path := e.Dynamics.Trajectory(p)
	best := poly.Result{}
	for i := 0; i < 3; i++ {
		h := 0.5 * (0.5*box[i] - e.Length(s.MaxRange))
		if h <= 0 {
			continue
		}
		moved := path[i].Sub(poly.Constant(p.Position[i])).Trim()
		for _, sign := range [2]float64{1, -1} {
			f := poly.Constant(h).Sub(moved.Scale(sign)).Trim()
			if r := poly.Next(f, box[i]); r.Found && (!best.Found || r.T < best.T) {
				best = r
			}
		}
	}
	if !best.Found {
		return model.Never()
	}
	return model.At(model.Event{
		Dt:        best.T,
		Particle1: p.ID,
		Particle2: model.NoPartner,
		Source:    model.SourceGlobal,
		Type:      model.Virtual,
	})
}

// Check rejects boxes too small for any image to be unambiguous.
func (s *Sentinel) Check(e *physics.Env) error {
	box := e.Boundary.Box()
	for i := 0; i < 3; i++ {
		if 0.5*box[i] <= s.MaxRange {
			return model.NewConfigurationError("box length %g is under twice the interaction range %g", box[i], s.MaxRange)
		}
	}
	return nil
}

func (*Sentinel) Resolve(e *physics.Env, p *model.Particle, ev model.Event) (Transition, error) {
	if ev.Type != model.Virtual {
		return Transition{}, model.NewModelInconsistency("sentinel cannot resolve a "+ev.Type.String()+" event", p)
	}
	e.Update(p)
	return Transition{Full: true}, nil
}
