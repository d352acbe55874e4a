package geometry

import (
	"testing"

	"diesel.com/sph/vector"
	"github.com/stretchr/testify/assert"
)

func floorCollider() *RigidBodyCollider {
	return NewRigidBodyCollider(NewPlane(vector.Vec3{}, vector.Vec3{0, 1, 0}))
}

func TestResolveCollisionNoContact(t *testing.T) {
	c := floorCollider()
	p, v := vector.Vec3{0, 1, 0}, vector.Vec3{0, -1, 0}
	np, nv := c.ResolveCollision(p, v, 0.05, 0.5, 0.1)
	assert.Equal(t, p, np)
	assert.Equal(t, v, nv)
}

func TestResolveCollisionRestitution(t *testing.T) {
	c := floorCollider()
	table := []struct {
		restitution float64
		wantVy      float64
	}{
		{0, 0},
		{0.5, 1},
		{1, 2},
	}
	for i, test := range table {
		p, v := c.ResolveCollision(vector.Vec3{0, -0.1, 0}, vector.Vec3{0, -2, 0}, 0.05, test.restitution, 0)
		assert.InDelta(t, 0.05, p[1], 1e-12, "case %d", i)
		assert.InDelta(t, test.wantVy, v[1], 1e-12, "case %d", i)
	}
}

func TestResolveCollisionFriction(t *testing.T) {
	c := floorCollider()

	//|dVn| = 2, |Vt| = 4: scale 1 - 0.5*2/4
	_, v := c.ResolveCollision(vector.Vec3{0, 0, 0}, vector.Vec3{4, -2, 0}, 0.01, 0, 0.5)
	assert.InDelta(t, 3.0, v[0], 1e-12)
	assert.InDelta(t, 0.0, v[1], 1e-12)

	//Friction never reverses the tangential velocity
	_, v = c.ResolveCollision(vector.Vec3{0, 0, 0}, vector.Vec3{1, -2, 0}, 0.01, 0, 10)
	assert.InDelta(t, 0.0, v[0], 1e-12)
}

func TestResolveCollisionSeparating(t *testing.T) {
	c := floorCollider()
	p, v := c.ResolveCollision(vector.Vec3{0, -0.1, 0}, vector.Vec3{1, 3, 0}, 0.05, 0, 1)
	assert.InDelta(t, 0.05, p[1], 1e-12)
	assert.Equal(t, vector.Vec3{1, 3, 0}, v)
}

func TestMovingColliderRelativeVelocity(t *testing.T) {
	c := floorCollider()
	c.LinearVelocity = vector.Vec3{0, 1, 0}
	//Particle at rest hit by a rising floor leaves with the floor
	_, v := c.ResolveCollision(vector.Vec3{0, 0, 0}, vector.Vec3{}, 0.01, 0, 0)
	assert.InDelta(t, 1.0, v[1], 1e-12)
	assert.Equal(t, vector.Vec3{0, 1, 0}, c.ClosestVelocity(vector.Vec3{3, 3, 3}))
}

func TestColliderSet(t *testing.T) {
	set := ColliderSet{
		floorCollider(),
		NewRigidBodyCollider(NewPlane(vector.Vec3{1, 0, 0}, vector.Vec3{-1, 0, 0})),
	}
	p, v := set.ResolveCollision(vector.Vec3{1.2, -0.2, 0}, vector.Vec3{1, -1, 0}, 0.1, 0, 0)
	assert.InDelta(t, 0.9, p[0], 1e-12)
	assert.InDelta(t, 0.1, p[1], 1e-12)
	assert.InDelta(t, 0.0, v[0], 1e-12)
	assert.InDelta(t, 0.0, v[1], 1e-12)
	assert.InDelta(t, 0.1, set.ClosestDistance(vector.Vec3{0.5, 0.1, 0}), 1e-12)
}
