package nbodysim

// Integrator advances one body by one time step using the acceleration
// already stored on the body.
type Integrator interface {
	Integrate(b *Body, deltaTime float64)
}

// SymplecticEuler is the semi-implicit Euler update: velocity first from
// the current acceleration, then position from the already-updated
// velocity. Using the new velocity for the position update is what
// distinguishes it from explicit Euler and gives better long-run energy
// behavior. It neither resets nor decays the acceleration.
type SymplecticEuler struct{}

func (SymplecticEuler) Integrate(b *Body, deltaTime float64) {
	b.Velocity = b.Velocity.Add(b.Acceleration.Mul(deltaTime))
	b.Position = b.Position.Add(b.Velocity.Mul(deltaTime))
}

// ExplicitEuler advances position with the pre-update velocity. Kept for
// side-by-side comparison in experiments; the simulation default is
// SymplecticEuler.
type ExplicitEuler struct{}

func (ExplicitEuler) Integrate(b *Body, deltaTime float64) {
	b.Position = b.Position.Add(b.Velocity.Mul(deltaTime))
	b.Velocity = b.Velocity.Add(b.Acceleration.Mul(deltaTime))
}
