package geometry

import (
	"math"

	Vec "diesel.com/sph/vector"
)

//Collider - boundary the solver resolves particles against after integration.
//Implementations are read concurrently and must not mutate during a step
type Collider interface {
	ClosestDistance(p Vec.Vec3) float64
	ClosestVelocity(p Vec.Vec3) Vec.Vec3
	ResolveCollision(position, velocity Vec.Vec3, radius, restitution, friction float64) (Vec.Vec3, Vec.Vec3)
}

//RigidBodyCollider moves a surface as a rigid body. Velocity only affects
//the collision response, the surface itself stays put
type RigidBodyCollider struct {
	Surface         Surface
	LinearVelocity  Vec.Vec3
	AngularVelocity Vec.Vec3 //About Origin
	Origin          Vec.Vec3
}

func NewRigidBodyCollider(surface Surface) *RigidBodyCollider {
	return &RigidBodyCollider{Surface: surface}
}

func (c *RigidBodyCollider) ClosestDistance(p Vec.Vec3) float64 {
	return math.Abs(c.Surface.SignedDistance(p))
}

func (c *RigidBodyCollider) ClosestVelocity(p Vec.Vec3) Vec.Vec3 {
	r := p.Sub(c.Origin)
	return c.LinearVelocity.Add(c.AngularVelocity.Cross(r))
}

//IsPenetrating - on the wrong side of the surface or closer than radius
func (c *RigidBodyCollider) IsPenetrating(p Vec.Vec3, radius float64) bool {
	return c.Surface.SignedDistance(p) < radius
}

//ResolveCollision projects a penetrating particle to surface + radius. The
//normal relative velocity is reflected with restitution and the tangential
//part loses max(1 - mu|dVn|/|Vt|, 0)
func (c *RigidBodyCollider) ResolveCollision(position, velocity Vec.Vec3, radius, restitution, friction float64) (Vec.Vec3, Vec.Vec3) {
	if !c.IsPenetrating(position, radius) {
		return position, velocity
	}

	normal := c.Surface.ClosestNormal(position)
	target := c.Surface.ClosestPoint(position).Add(normal.Mul(radius))
	colliderVel := c.ClosestVelocity(target)
	relVel := velocity.Sub(colliderVel)

	vn := normal.Dot(relVel)
	if vn < 0 {
		velN := normal.Mul(vn)
		velTan := relVel.Sub(velN)
		dtVN := velN.Mul(-restitution - 1.0)
		velN = velN.Mul(-restitution)

		if lt := velTan.Len(); lt > 0 {
			frictionScale := math.Max(1.0-friction*dtVN.Len()/lt, 0.0)
			velTan = velTan.Mul(frictionScale)
		}
		velocity = velN.Add(velTan).Add(colliderVel)
	}
	return target, velocity
}

//ColliderSet resolves against every member in order
type ColliderSet []Collider

func (cs ColliderSet) ClosestDistance(p Vec.Vec3) float64 {
	best := math.Inf(1)
	for _, c := range cs {
		best = math.Min(best, c.ClosestDistance(p))
	}
	return best
}

//ClosestVelocity of the nearest member
func (cs ColliderSet) ClosestVelocity(p Vec.Vec3) Vec.Vec3 {
	best, vel := math.Inf(1), Vec.Vec3{}
	for _, c := range cs {
		if d := c.ClosestDistance(p); d < best {
			best, vel = d, c.ClosestVelocity(p)
		}
	}
	return vel
}

func (cs ColliderSet) ResolveCollision(position, velocity Vec.Vec3, radius, restitution, friction float64) (Vec.Vec3, Vec.Vec3) {
	for _, c := range cs {
		position, velocity = c.ResolveCollision(position, velocity, radius, restitution, friction)
	}
	return position, velocity
}
