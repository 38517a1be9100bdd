package game

// Box is an axis-aligned rectangle in stage coordinates, y-up.
// X/Y is the bottom-left corner.
type Box struct {
	X, Y, W, H float64
}

// Intersects reports whether two boxes overlap. Touching edges count,
// which keeps point-blank attacks from whiffing.
func (b Box) Intersects(o Box) bool {
	return b.X <= o.X+o.W && b.X+b.W >= o.X &&
		b.Y <= o.Y+o.H && b.Y+b.H >= o.Y
}

// Hurtbox returns the fighter's body collision box.
func Hurtbox(f *Fighter) Box {
	return Box{
		X: f.X - FighterWidth/2,
		Y: f.Y,
		W: FighterWidth,
		H: FighterHeight,
	}
}

// AttackHitbox derives the live hitbox for the fighter's current attack
// from its kind, facing and position. The box extends from the fighter's
// front edge in the facing direction.
func AttackHitbox(f *Fighter) Box {
	spec := GetAttack(f.Attack)
	front := f.X + f.Facing.Sign()*FighterWidth/2
	x := front
	if f.Facing == FacingLeft {
		x = front - spec.Range
	}
	return Box{
		X: x,
		Y: f.Y,
		W: spec.Range,
		H: spec.Height,
	}
}
