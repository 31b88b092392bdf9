package rigid

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// Engine defaults. They are deliberately modest; callers that stack or
// throw bodies raise them through SetSolver.
const (
	DefaultIterations = 10
	DefaultStiffness  = 0.2
)

// Internal numerical constants, not user-tunable.
const (
	// penetrationSlop is the overlap left uncorrected so resting contacts
	// stay in contact between steps.
	penetrationSlop = 0.0005
	// restitutionThreshold is the approach speed below which contacts do
	// not bounce.
	restitutionThreshold = 0.2
	// sleepSpeed and sleepSteps govern when a resting body sleeps.
	sleepSpeed = 0.02
	sleepSteps = 60
	// defaultFriction applies to pairs with no material information.
	defaultFriction = 0.3
)

type body struct {
	id       BodyID
	shape    Shape
	material MaterialClass
	mode     Mode
	invMass  float64

	pos mgl64.Vec3
	rot mgl64.Quat
	vel mgl64.Vec3
	ang mgl64.Vec3

	linearDamping  float64
	angularDamping float64

	sleeping   bool
	stillSteps int
}

func (b *body) moving() bool { return b.mode == Dynamic && !b.sleeping }

func (b *body) wake() {
	b.sleeping = false
	b.stillSteps = 0
}

type pairKey struct{ a, b MaterialClass }

func makePairKey(a, b MaterialClass) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a, b}
}

// World is the reference Engine implementation. It is not safe for
// concurrent use.
type World struct {
	gravity          mgl64.Vec3
	solver           SolverConfig
	materials        map[MaterialClass]Material
	contactMaterials map[pairKey]ContactMaterial

	bodies map[BodyID]*body
	order  []BodyID
	nextID BodyID

	contacts []Contact
	steps    uint64
}

var _ Engine = (*World)(nil)

// NewWorld creates an empty world with no gravity and engine-default solver
// settings.
func NewWorld() *World {
	return &World{
		solver: SolverConfig{
			Iterations: DefaultIterations,
			Stiffness:  DefaultStiffness,
			AllowSleep: true,
		},
		materials:        make(map[MaterialClass]Material),
		contactMaterials: make(map[pairKey]ContactMaterial),
		bodies:           make(map[BodyID]*body),
	}
}

func (w *World) SetGravity(g mgl64.Vec3) { w.gravity = g }

// Gravity returns the current gravity vector.
func (w *World) Gravity() mgl64.Vec3 { return w.gravity }

// SetSolver replaces the solver settings. Non-positive values keep the
// engine defaults. Disabling sleep wakes every body.
func (w *World) SetSolver(cfg SolverConfig) {
	if cfg.Iterations <= 0 {
		cfg.Iterations = DefaultIterations
	}
	if cfg.Stiffness <= 0 || cfg.Stiffness > 1 {
		cfg.Stiffness = DefaultStiffness
	}
	w.solver = cfg
	if !cfg.AllowSleep {
		for _, b := range w.bodies {
			b.wake()
		}
	}
}

func (w *World) Solver() SolverConfig { return w.solver }

// AddMaterial registers or replaces the material for m.Class.
func (w *World) AddMaterial(m Material) { w.materials[m.Class] = m }

// Materials returns the registered material classes, sorted.
func (w *World) Materials() []MaterialClass {
	out := make([]MaterialClass, 0, len(w.materials))
	for c := range w.materials {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AddContactMaterial registers or replaces the contact for the unordered
// pair (cm.A, cm.B).
func (w *World) AddContactMaterial(cm ContactMaterial) {
	w.contactMaterials[makePairKey(cm.A, cm.B)] = cm
}

// ContactMaterialFor returns the contact material for a pair, if defined.
func (w *World) ContactMaterialFor(a, b MaterialClass) (ContactMaterial, bool) {
	cm, ok := w.contactMaterials[makePairKey(a, b)]
	return cm, ok
}

// pairMaterial resolves friction, restitution and stiffness for a pair,
// falling back to averaged class materials.
func (w *World) pairMaterial(a, b MaterialClass) (friction, restitution, stiffness float64) {
	if cm, ok := w.contactMaterials[makePairKey(a, b)]; ok {
		stiffness = cm.Stiffness
		if stiffness <= 0 || stiffness > 1 {
			stiffness = w.solver.Stiffness
		}
		return cm.Friction, cm.Restitution, stiffness
	}
	ma, okA := w.materials[a]
	mb, okB := w.materials[b]
	switch {
	case okA && okB:
		return (ma.Friction + mb.Friction) / 2, (ma.Restitution + mb.Restitution) / 2, w.solver.Stiffness
	case okA:
		return ma.Friction, ma.Restitution, w.solver.Stiffness
	case okB:
		return mb.Friction, mb.Restitution, w.solver.Stiffness
	}
	return defaultFriction, 0, w.solver.Stiffness
}

// CreateBody adds a body. Dynamic bodies with non-positive mass get 1 kg.
func (w *World) CreateBody(spec BodySpec) BodyID {
	w.nextID++
	rot := spec.Orientation
	if rot.Len() == 0 {
		rot = mgl64.QuatIdent()
	}
	b := &body{
		id:             w.nextID,
		shape:          spec.Shape,
		material:       spec.Material,
		mode:           spec.Mode,
		pos:            spec.Position,
		rot:            rot.Normalize(),
		linearDamping:  clampDamping(spec.LinearDamping),
		angularDamping: clampDamping(spec.AngularDamping),
	}
	mass := spec.Mass
	if mass <= 0 {
		mass = 1
	}
	b.invMass = 1 / mass
	w.bodies[b.id] = b
	w.order = append(w.order, b.id)
	return b.id
}

func clampDamping(d float64) float64 {
	return math.Max(0, math.Min(d, 0.999))
}

// RemoveBody deletes a body. Unknown ids are ignored.
func (w *World) RemoveBody(id BodyID) {
	if _, ok := w.bodies[id]; !ok {
		return
	}
	delete(w.bodies, id)
	for i, o := range w.order {
		if o == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

func (w *World) HasBody(id BodyID) bool {
	_, ok := w.bodies[id]
	return ok
}

func (w *World) BodyCount() int { return len(w.bodies) }

// BodiesOfMaterial returns the ids of bodies using class, in creation order.
func (w *World) BodiesOfMaterial(class MaterialClass) []BodyID {
	var out []BodyID
	for _, id := range w.order {
		if w.bodies[id].material == class {
			out = append(out, id)
		}
	}
	return out
}

// Material returns the material class of a body.
func (w *World) Material(id BodyID) MaterialClass {
	if b, ok := w.bodies[id]; ok {
		return b.material
	}
	return ""
}

// Shape returns the collision shape of a body.
func (w *World) Shape(id BodyID) Shape {
	if b, ok := w.bodies[id]; ok {
		return b.shape
	}
	return Shape{}
}

func (w *World) SetMode(id BodyID, mode Mode) {
	if b, ok := w.bodies[id]; ok {
		b.mode = mode
		b.wake()
	}
}

func (w *World) Mode(id BodyID) Mode {
	if b, ok := w.bodies[id]; ok {
		return b.mode
	}
	return Static
}

func (w *World) SetPosition(id BodyID, p mgl64.Vec3) {
	if b, ok := w.bodies[id]; ok {
		b.pos = p
		b.wake()
	}
}

func (w *World) Position(id BodyID) mgl64.Vec3 {
	if b, ok := w.bodies[id]; ok {
		return b.pos
	}
	return mgl64.Vec3{}
}

func (w *World) SetOrientation(id BodyID, q mgl64.Quat) {
	if b, ok := w.bodies[id]; ok && q.Len() > 0 {
		b.rot = q.Normalize()
		b.wake()
	}
}

func (w *World) Orientation(id BodyID) mgl64.Quat {
	if b, ok := w.bodies[id]; ok {
		return b.rot
	}
	return mgl64.QuatIdent()
}

func (w *World) SetVelocity(id BodyID, v mgl64.Vec3) {
	if b, ok := w.bodies[id]; ok {
		b.vel = v
		b.wake()
	}
}

func (w *World) Velocity(id BodyID) mgl64.Vec3 {
	if b, ok := w.bodies[id]; ok {
		return b.vel
	}
	return mgl64.Vec3{}
}

func (w *World) SetAngularVelocity(id BodyID, av mgl64.Vec3) {
	if b, ok := w.bodies[id]; ok {
		b.ang = av
		b.wake()
	}
}

func (w *World) AngularVelocity(id BodyID) mgl64.Vec3 {
	if b, ok := w.bodies[id]; ok {
		return b.ang
	}
	return mgl64.Vec3{}
}

// CollisionResponse is true for every live body: static and kinematic
// bodies act as immovable colliders, dynamic bodies respond to them.
func (w *World) CollisionResponse(id BodyID) bool {
	_, ok := w.bodies[id]
	return ok
}

// Sleeping reports whether a dynamic body is currently asleep.
func (w *World) Sleeping(id BodyID) bool {
	if b, ok := w.bodies[id]; ok {
		return b.sleeping
	}
	return false
}

// Steps returns the number of fixed steps simulated so far.
func (w *World) Steps() uint64 { return w.steps }

// Contacts returns the contacts found during the latest step.
func (w *World) Contacts() []Contact {
	out := make([]Contact, len(w.contacts))
	copy(out, w.contacts)
	return out
}

// Step advances the world by subSteps steps of fixedDt each.
func (w *World) Step(fixedDt float64, subSteps int) {
	if fixedDt <= 0 {
		return
	}
	for i := 0; i < subSteps; i++ {
		w.step(fixedDt)
	}
}

type solverContact struct {
	a, b        *body
	normal      mgl64.Vec3
	depth       float64
	friction    float64
	restitution float64
	stiffness   float64
	targetVn    float64
	accumN      float64
	accumT      float64
}

func (w *World) step(dt float64) {
	w.steps++

	// Forces.
	for _, id := range w.order {
		b := w.bodies[id]
		if !b.moving() {
			continue
		}
		b.vel = b.vel.Add(w.gravity.Mul(dt))
	}

	// Contacts and velocity solve.
	contacts := w.detect()
	w.contacts = w.contacts[:0]
	for _, c := range contacts {
		w.contacts = append(w.contacts, Contact{A: c.a.id, B: c.b.id, Normal: c.normal, Depth: c.depth})
	}
	for i := range contacts {
		c := &contacts[i]
		vn := c.b.vel.Sub(c.a.vel).Dot(c.normal)
		if vn < -restitutionThreshold {
			c.targetVn = -c.restitution * vn
		}
	}
	for it := 0; it < w.solver.Iterations; it++ {
		for i := range contacts {
			solveVelocity(&contacts[i])
		}
	}

	// Integration.
	for _, id := range w.order {
		b := w.bodies[id]
		switch {
		case b.mode == Static || b.sleeping:
			continue
		case b.mode == Dynamic:
			b.vel = b.vel.Mul(math.Pow(1-b.linearDamping, dt))
			b.ang = b.ang.Mul(math.Pow(1-b.angularDamping, dt))
		}
		b.pos = b.pos.Add(b.vel.Mul(dt))
		b.rot = integrateRotation(b.rot, b.ang, dt)
	}

	// Position correction against fresh overlaps.
	passes := w.solver.Iterations/4 + 1
	for p := 0; p < passes; p++ {
		for _, c := range w.detect() {
			correctPosition(c)
		}
	}

	if w.solver.AllowSleep {
		w.updateSleep()
	}
}

// solveVelocity applies one sequential-impulse pass to a contact. Impulses
// are accumulated and clamped so the contact only ever pushes.
func solveVelocity(c *solverContact) {
	invSum := c.a.dynamicInvMass() + c.b.dynamicInvMass()
	if invSum == 0 {
		return
	}
	rel := c.b.vel.Sub(c.a.vel)
	vn := rel.Dot(c.normal)

	jn := (c.targetVn - vn) / invSum
	prev := c.accumN
	c.accumN = math.Max(prev+jn, 0)
	jn = c.accumN - prev
	impulse := c.normal.Mul(jn)
	c.a.applyImpulse(impulse.Mul(-1))
	c.b.applyImpulse(impulse)

	// Coulomb friction on the tangential slip.
	rel = c.b.vel.Sub(c.a.vel)
	tangent := rel.Sub(c.normal.Mul(rel.Dot(c.normal)))
	slip := tangent.Len()
	if slip < 1e-9 {
		return
	}
	tangent = tangent.Mul(1 / slip)
	jt := math.Min(slip/invSum, c.friction*c.accumN-c.accumT)
	if jt <= 0 {
		return
	}
	c.accumT += jt
	ft := tangent.Mul(jt)
	c.a.applyImpulse(ft)
	c.b.applyImpulse(ft.Mul(-1))
}

// correctPosition removes a stiffness fraction of the overlap. Only dynamic
// bodies move, so a kinematic or static body displaces a dynamic one by the
// full correction regardless of mass.
func correctPosition(c solverContact) {
	ia, ib := c.a.dynamicInvMass(), c.b.dynamicInvMass()
	invSum := ia + ib
	depth := c.depth - penetrationSlop
	if invSum == 0 || depth <= 0 {
		return
	}
	corr := c.normal.Mul(depth * c.stiffness / invSum)
	c.a.pos = c.a.pos.Sub(corr.Mul(ia))
	c.b.pos = c.b.pos.Add(corr.Mul(ib))
}

func (b *body) dynamicInvMass() float64 {
	if b.mode != Dynamic {
		return 0
	}
	return b.invMass
}

func (b *body) applyImpulse(j mgl64.Vec3) {
	if b.mode != Dynamic {
		return
	}
	b.vel = b.vel.Add(j.Mul(b.invMass))
}

func integrateRotation(q mgl64.Quat, w mgl64.Vec3, dt float64) mgl64.Quat {
	if w.Len() == 0 {
		return q
	}
	spin := mgl64.Quat{W: 0, V: w}.Mul(q).Scale(0.5 * dt)
	return q.Add(spin).Normalize()
}

// detect finds overlapping pairs where at least one body is dynamic and
// awake, waking sleeping partners touched by a moving body.
func (w *World) detect() []solverContact {
	var out []solverContact
	for i := 0; i < len(w.order); i++ {
		a := w.bodies[w.order[i]]
		for j := i + 1; j < len(w.order); j++ {
			b := w.bodies[w.order[j]]
			if a.mode != Dynamic && b.mode != Dynamic {
				continue
			}
			if !a.moving() && !b.moving() && a.mode != Kinematic && b.mode != Kinematic {
				continue
			}
			normal, depth, ok := collide(a, b)
			if !ok {
				continue
			}
			if a.sleeping {
				a.wake()
			}
			if b.sleeping {
				b.wake()
			}
			f, r, s := w.pairMaterial(a.material, b.material)
			out = append(out, solverContact{
				a: a, b: b, normal: normal, depth: depth,
				friction: f, restitution: r, stiffness: s,
			})
		}
	}
	return out
}

func (w *World) updateSleep() {
	for _, id := range w.order {
		b := w.bodies[id]
		if b.mode != Dynamic || b.sleeping {
			continue
		}
		if b.vel.Len() < sleepSpeed && b.ang.Len() < sleepSpeed {
			b.stillSteps++
			if b.stillSteps >= sleepSteps {
				b.sleeping = true
				b.vel = mgl64.Vec3{}
				b.ang = mgl64.Vec3{}
			}
			continue
		}
		b.stillSteps = 0
	}
}
