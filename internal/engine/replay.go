package engine

// Replay and determinism.
//
// A run is a pure function of its configuration: the particles, the
// registered predictors in order, every random seed and the budget. Two
// engines built from the same configuration execute the same events at the
// same times, bit for bit, because
//
//  1. predictors are consulted in registration order and neighbours in
//     index order, so events are pushed in the same order;
//  2. the event list breaks time ties by insertion order;
//  3. the thermostats draw from seeded generators owned by the run.
//
// Recorder captures the executed event stream so that two runs can be
// compared record by record, and a snapshot taken mid-run resumes the same
// trajectory up to the rounding of the clock.

// Recorder is an observer that keeps every record it receives.
type Recorder struct {
	Records []Record
	Start   *Summary
	Finish  *Summary
}

// OnEvent appends r.
func (r *Recorder) OnEvent(rec Record) { r.Records = append(r.Records, rec) }

// OnStart keeps the initial totals.
func (r *Recorder) OnStart(s Summary) { r.Start = &s }

// OnFinish keeps the final totals.
func (r *Recorder) OnFinish(s Summary) { r.Finish = &s }

// Reset forgets everything recorded.
func (r *Recorder) Reset() {
	r.Records, r.Start, r.Finish = nil, nil, nil
}

// Divergence returns the index of the first record where a and b differ in
// event identity or time, or -1 if one is a prefix of the other.
func Divergence(a, b []Record) int {
	for i := range min(len(a), len(b)) {
		x, y := a[i], b[i]
		if x.Seq != y.Seq || x.Time != y.Time ||
			x.Event.Type != y.Event.Type ||
			x.Event.Particle1 != y.Event.Particle1 ||
			x.Event.Particle2 != y.Event.Particle2 {
			return i
		}
	}
	return -1
}
