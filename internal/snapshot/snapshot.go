// Package snapshot is the exchange format for simulation state: the particle
// array, the capture maps and the clock. Snapshots encode canonically, so
// equal states produce byte-identical documents and equal hashes.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/roach88/edmd/internal/model"
)

// Version is the current snapshot document version.
const Version = 1

// DomainSnapshot prefixes the data hashed by Hash. The version suffix
// leaves room for a future encoding.
const DomainSnapshot = "edmd/snapshot/v1"

// Particle is the stored state of one particle.
type Particle struct {
	ID              int
	Position        [3]float64
	Velocity        [3]float64
	AngularVelocity [3]float64
	// Orientation is the unit quaternion as (w, x, y, z).
	Orientation [4]float64
	Mass        float64
	Inertia     float64
	Static      bool
}

// Capture lists the captured pairs of one interaction.
type Capture struct {
	Interaction string
	Pairs       [][2]int
}

// Snapshot is the full dynamic state of a run at one instant.
type Snapshot struct {
	Version   int
	RunID     string
	Time      float64
	Events    uint64
	Particles []Particle
	Captures  []Capture
}

// FromParticle converts a particle. The particle must be up to date.
func FromParticle(p *model.Particle) Particle {
	return Particle{
		ID:              p.ID,
		Position:        p.Position,
		Velocity:        p.Velocity,
		AngularVelocity: p.AngularVelocity,
		Orientation:     [4]float64{p.Orientation.W, p.Orientation.V[0], p.Orientation.V[1], p.Orientation.V[2]},
		Mass:            p.Mass,
		Inertia:         p.Inertia,
		Static:          !p.Dynamic(),
	}
}

// Model converts back to a particle valid at time t.
func (sp Particle) Model(t float64) model.Particle {
	p := model.NewParticle(sp.ID, sp.Position, sp.Velocity)
	p.AngularVelocity = sp.AngularVelocity
	p.Orientation = mgl64.Quat{W: sp.Orientation[0], V: mgl64.Vec3{sp.Orientation[1], sp.Orientation[2], sp.Orientation[3]}}
	p.Mass = sp.Mass
	p.Inertia = sp.Inertia
	if sp.Static {
		p.State &^= model.StateDynamic
	}
	p.Time = t
	return p
}

// Models converts every stored particle.
func (s *Snapshot) Models() []model.Particle {
	out := make([]model.Particle, len(s.Particles))
	for i, sp := range s.Particles {
		out[i] = sp.Model(s.Time)
	}
	return out
}

// Document returns the canonical tree of s.
func (s *Snapshot) Document() Object {
	ps := make(Array, len(s.Particles))
	for i, p := range s.Particles {
		ps[i] = Object{
			"id":               Int(p.ID),
			"position":         Floats(p.Position[:]...),
			"velocity":         Floats(p.Velocity[:]...),
			"angular_velocity": Floats(p.AngularVelocity[:]...),
			"orientation":      Floats(p.Orientation[:]...),
			"mass":             Float(p.Mass),
			"inertia":          Float(p.Inertia),
			"static":           Bool(p.Static),
		}
	}
	cs := make(Array, len(s.Captures))
	for i, c := range s.Captures {
		pairs := make(Array, len(c.Pairs))
		for j, pr := range c.Pairs {
			pairs[j] = Array{Int(pr[0]), Int(pr[1])}
		}
		cs[i] = Object{"interaction": String(c.Interaction), "pairs": pairs}
	}
	return Object{
		"version":   Int(s.Version),
		"run_id":    String(s.RunID),
		"time":      Float(s.Time),
		"events":    Int(s.Events),
		"particles": ps,
		"captures":  cs,
	}
}

// Encode returns the canonical encoding of s.
func (s *Snapshot) Encode() ([]byte, error) {
	data, err := MarshalCanonical(s.Document())
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return data, nil
}

// Hash returns the content hash of s: SHA-256 over the domain, a zero byte
// and the canonical encoding.
func (s *Snapshot) Hash() (string, error) {
	data, err := s.Encode()
	if err != nil {
		return "", err
	}
	return HashWithDomain(DomainSnapshot, data), nil
}

// HashWithDomain returns the hex SHA-256 of domain, a zero byte and data.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

type hexFloat float64

func (f *hexFloat) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var x float64
		if err2 := json.Unmarshal(data, &x); err2 != nil {
			return fmt.Errorf("float must be a hex string or number: %s", data)
		}
		*f = hexFloat(x)
		return nil
	}
	x, err := ParseFloat(s)
	if err != nil {
		return err
	}
	*f = hexFloat(x)
	return nil
}

type wireParticle struct {
	ID              int         `json:"id"`
	Position        [3]hexFloat `json:"position"`
	Velocity        [3]hexFloat `json:"velocity"`
	AngularVelocity [3]hexFloat `json:"angular_velocity"`
	Orientation     [4]hexFloat `json:"orientation"`
	Mass            hexFloat    `json:"mass"`
	Inertia         hexFloat    `json:"inertia"`
	Static          bool        `json:"static"`
}

type wireSnapshot struct {
	Version   int            `json:"version"`
	RunID     string         `json:"run_id"`
	Time      hexFloat       `json:"time"`
	Events    uint64         `json:"events"`
	Particles []wireParticle `json:"particles"`
	Captures  []struct {
		Interaction string   `json:"interaction"`
		Pairs       [][2]int `json:"pairs"`
	} `json:"captures"`
}

// Decode parses a document produced by Encode. Plain decimal numbers are
// accepted wherever a float is expected.
func Decode(data []byte) (*Snapshot, error) {
	var w wireSnapshot
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if w.Version != Version {
		return nil, fmt.Errorf("snapshot: unsupported version %d", w.Version)
	}
	s := &Snapshot{
		Version:   w.Version,
		RunID:     w.RunID,
		Time:      float64(w.Time),
		Events:    w.Events,
		Particles: make([]Particle, len(w.Particles)),
	}
	for i, wp := range w.Particles {
		p := Particle{
			ID:      wp.ID,
			Mass:    float64(wp.Mass),
			Inertia: float64(wp.Inertia),
			Static:  wp.Static,
		}
		for k := 0; k < 3; k++ {
			p.Position[k] = float64(wp.Position[k])
			p.Velocity[k] = float64(wp.Velocity[k])
			p.AngularVelocity[k] = float64(wp.AngularVelocity[k])
		}
		for k := 0; k < 4; k++ {
			p.Orientation[k] = float64(wp.Orientation[k])
		}
		s.Particles[i] = p
	}
	for _, c := range w.Captures {
		s.Captures = append(s.Captures, Capture{Interaction: c.Interaction, Pairs: c.Pairs})
	}
	return s, nil
}
