package model

// ParticleEventData records how one particle changed during an event.
type ParticleEventData struct {
	ParticleID  int
	Type        EventType
	OldVelocity Vector
	NewVelocity Vector
	OldAngular  Vector
	NewAngular  Vector

	// DeltaKE is the change in kinetic energy.
	DeltaKE float64
	// DeltaU is this particle's share of the change in internal energy.
	DeltaU float64
	// DeltaP is the change in momentum.
	DeltaP Vector

	mass float64
	kinE float64
}

// BeginParticleEvent captures the pre-event state of p.
func BeginParticleEvent(p *Particle, typ EventType) ParticleEventData {
	return ParticleEventData{
		ParticleID:  p.ID,
		Type:        typ,
		OldVelocity: p.Velocity,
		OldAngular:  p.AngularVelocity,
		mass:        p.Mass,
		kinE:        p.KineticEnergy(),
	}
}

// Finish fills the post-event fields from the mutated particle.
func (d *ParticleEventData) Finish(p *Particle) {
	d.NewVelocity = p.Velocity
	d.NewAngular = p.AngularVelocity
	d.DeltaKE = p.KineticEnergy() - d.kinE
	if p.Dynamic() {
		d.DeltaP = p.Velocity.Sub(d.OldVelocity).Mul(d.mass)
	}
}

// PairEventData records a two-body event.
type PairEventData struct {
	Type      EventType
	Particle1 ParticleEventData
	Particle2 ParticleEventData
	// Rij and Vij are the minimum-image separation and relative velocity
	// at the moment of the event, before resolution.
	Rij   Vector
	Vij   Vector
	RVDot float64

	// Impulse is the momentum transferred to particle 2 (and removed from
	// particle 1).
	Impulse Vector
}

// Finish completes both particle records.
func (d *PairEventData) Finish(p1, p2 *Particle) {
	d.Particle1.Finish(p1)
	d.Particle2.Finish(p2)
}

// NEventData is the uniform record every observer receives.
type NEventData struct {
	Singles []ParticleEventData
	Pairs   []PairEventData
}

// Single wraps one particle record.
func Single(d ParticleEventData) NEventData {
	return NEventData{Singles: []ParticleEventData{d}}
}

// Pair wraps one pair record.
func Pair(d PairEventData) NEventData {
	return NEventData{Pairs: []PairEventData{d}}
}

// Empty reports whether no particle changed.
func (n NEventData) Empty() bool { return len(n.Singles) == 0 && len(n.Pairs) == 0 }

// Touched returns the IDs of every particle in the record, in order.
func (n NEventData) Touched() []int {
	ids := make([]int, 0, len(n.Singles)+2*len(n.Pairs))
	for _, s := range n.Singles {
		ids = append(ids, s.ParticleID)
	}
	for _, p := range n.Pairs {
		ids = append(ids, p.Particle1.ParticleID, p.Particle2.ParticleID)
	}
	return ids
}

// DeltaKE sums the kinetic energy change over all records.
func (n NEventData) DeltaKE() float64 {
	var sum float64
	for _, s := range n.Singles {
		sum += s.DeltaKE
	}
	for _, p := range n.Pairs {
		sum += p.Particle1.DeltaKE + p.Particle2.DeltaKE
	}
	return sum
}

// DeltaU sums the internal energy change over all records.
func (n NEventData) DeltaU() float64 {
	var sum float64
	for _, s := range n.Singles {
		sum += s.DeltaU
	}
	for _, p := range n.Pairs {
		sum += p.Particle1.DeltaU + p.Particle2.DeltaU
	}
	return sum
}
