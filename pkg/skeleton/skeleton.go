// Package skeleton implements the hierarchical joint tree that moulds
// attach to. Each joint holds an offset and rotation relative to its
// parent; world-space queries compose transforms from the joint up to
// its root.
package skeleton

import "github.com/bodyforge/bodyforge/pkg/geom"

// Joint is one bone frame in rest pose, relative to its parent.
type Joint struct {
	ID            string    `json:"id"`
	LocalOffset   geom.Vec3 `json:"localOffset"`
	LocalRotation geom.Quat `json:"localRotation"`
	ParentID      string    `json:"parentId,omitempty"`
	Children      []string  `json:"children,omitempty"`
}

// Skeleton owns a forest of joints. Joints are stored densely in
// insertion order with an id index on the side, so the per-voxel world
// transform walk never hashes more than once per lookup.
//
// Queries for unknown joint ids fail soft (origin position, identity
// rotation) rather than erroring: the editing layer creates joints and
// moulds in either order and relies on this.
type Skeleton struct {
	joints  []Joint
	byID    map[string]int
	version uint64
}

// New creates an empty skeleton.
func New() *Skeleton {
	return &Skeleton{byID: make(map[string]int)}
}

// AddJoint inserts a joint and registers it with its parent. Adding the
// same id twice replaces the stored joint without duplicating the
// parent's child entry.
func (s *Skeleton) AddJoint(j Joint) {
	if (j.LocalRotation == geom.Quat{}) {
		j.LocalRotation = geom.QuatIdentity()
	}
	if i, ok := s.byID[j.ID]; ok {
		s.joints[i] = j
	} else {
		s.byID[j.ID] = len(s.joints)
		s.joints = append(s.joints, j)
	}

	if j.ParentID != "" {
		if pi, ok := s.byID[j.ParentID]; ok {
			parent := &s.joints[pi]
			if !containsID(parent.Children, j.ID) {
				parent.Children = append(parent.Children, j.ID)
			}
		}
	}
	s.version++
}

// Joint returns the joint with the given id.
func (s *Skeleton) Joint(id string) (Joint, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Joint{}, false
	}
	return s.joints[i], true
}

// Joints returns all joints in insertion order.
func (s *Skeleton) Joints() []Joint {
	out := make([]Joint, len(s.joints))
	copy(out, s.joints)
	return out
}

// Clone returns an independent copy of the skeleton. The copy starts
// at the same version, so caches built against the original remain
// consistent with the clone until either side mutates.
func (s *Skeleton) Clone() *Skeleton {
	c := &Skeleton{
		joints:  make([]Joint, len(s.joints)),
		byID:    make(map[string]int, len(s.byID)),
		version: s.version,
	}
	copy(c.joints, s.joints)
	for i := range c.joints {
		c.joints[i].Children = append([]string(nil), c.joints[i].Children...)
	}
	for id, i := range s.byID {
		c.byID[id] = i
	}
	return c
}

// Len returns the number of joints.
func (s *Skeleton) Len() int { return len(s.joints) }

// Version increments on every structural or transform mutation. Callers
// caching world transforms compare it to detect staleness.
func (s *Skeleton) Version() uint64 { return s.version }

// SetLocalOffset replaces a joint's local offset. Unknown ids are
// ignored.
func (s *Skeleton) SetLocalOffset(id string, v geom.Vec3) {
	if i, ok := s.byID[id]; ok {
		s.joints[i].LocalOffset = v
		s.version++
	}
}

// SetLocalRotation replaces a joint's local rotation. Unknown ids are
// ignored.
func (s *Skeleton) SetLocalRotation(id string, q geom.Quat) {
	if i, ok := s.byID[id]; ok {
		s.joints[i].LocalRotation = q
		s.version++
	}
}

// MoveJoint adds delta to a joint's local offset.
func (s *Skeleton) MoveJoint(id string, delta geom.Vec3) {
	if i, ok := s.byID[id]; ok {
		s.joints[i].LocalOffset = s.joints[i].LocalOffset.Add(delta)
		s.version++
	}
}

// WorldPosition returns the joint's rest-pose position in world space,
// or the origin for an unknown id.
func (s *Skeleton) WorldPosition(id string) geom.Vec3 {
	pos, _ := s.worldTransform(id)
	return pos
}

// WorldRotation returns the joint's composed world rotation, or the
// identity for an unknown id.
func (s *Skeleton) WorldRotation(id string) geom.Quat {
	_, rot := s.worldTransform(id)
	return rot
}

// TransformToWorld maps a point from the joint's local frame into world
// space. For an unknown id the point is returned untransformed.
func (s *Skeleton) TransformToWorld(id string, local geom.Vec3) geom.Vec3 {
	pos, rot := s.worldTransform(id)
	return rot.RotatePoint(local).Add(pos)
}

// worldTransform composes local transforms from the joint to its root.
// The parent transforms the child's frame, so a chain of offsets under
// identity rotations simply sums. O(depth) per call.
func (s *Skeleton) worldTransform(id string) (geom.Vec3, geom.Quat) {
	i, ok := s.byID[id]
	if !ok {
		return geom.Vec3{}, geom.QuatIdentity()
	}
	j := s.joints[i]

	if j.ParentID == "" {
		return j.LocalOffset, j.LocalRotation
	}

	parentPos, parentRot := s.worldTransform(j.ParentID)
	pos := parentRot.RotatePoint(j.LocalOffset).Add(parentPos)
	rot := parentRot.Mul(j.LocalRotation)
	return pos, rot
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
