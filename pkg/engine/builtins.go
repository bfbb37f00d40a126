package engine

import (
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/google/uuid"

	"github.com/bodyforge/bodyforge/pkg/geom"
	"github.com/bodyforge/bodyforge/pkg/model"
	"github.com/bodyforge/bodyforge/pkg/mould"
	"github.com/bodyforge/bodyforge/pkg/skeleton"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms body-script Lisp source before passing it
// to zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: profiled-capsule -> profiled_capsule
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a geom.Vec3.
type sexpVec3 struct {
	vec geom.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %.3f %.3f %.3f)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpQuat wraps a geom.Quat so rotations built by `euler` or `quat`
// can be passed to `joint`.
type sexpQuat struct {
	rot geom.Quat
}

func (q *sexpQuat) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(quat %.3f %.3f %.3f %.3f)", q.rot.X, q.rot.Y, q.rot.Z, q.rot.W)
}
func (q *sexpQuat) Type() *zygo.RegisteredType { return nil }

// sexpJointRef wraps a joint id so joints can be chained as parents.
type sexpJointRef struct {
	id string
}

func (j *sexpJointRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(joint %q)", j.id)
}
func (j *sexpJointRef) Type() *zygo.RegisteredType { return nil }

// sexpMouldRef wraps a mould id.
type sexpMouldRef struct {
	id string
}

func (m *sexpMouldRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(mould %q)", m.id)
}
func (m *sexpMouldRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value; treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat32 extracts a float32 from a Sexp (SexpInt or SexpFloat).
func toFloat32(s zygo.Sexp) (float32, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float32(v.Val), nil
	case *zygo.SexpFloat:
		return float32(v.Val), nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_sphere) and plain strings ("sphere").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toBool extracts a bool from a Sexp.
func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected bool, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a geom.Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (geom.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return geom.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toQuat extracts a geom.Quat from a sexpQuat.
func toQuat(s zygo.Sexp) (geom.Quat, error) {
	if q, ok := s.(*sexpQuat); ok {
		return q.rot, nil
	}
	return geom.Quat{}, fmt.Errorf("expected rotation (euler or quat), got %T (%s)", s, s.SexpString(nil))
}

// toJointID accepts a joint reference or a plain string id.
func toJointID(s zygo.Sexp) (string, error) {
	if ref, ok := s.(*sexpJointRef); ok {
		return ref.id, nil
	}
	if str, ok := s.(*zygo.SexpStr); ok && !strings.HasPrefix(str.S, kwPrefix) {
		return str.S, nil
	}
	return "", fmt.Errorf("expected joint reference or id string, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toProfiles converts a list of lists of numbers into radial profile rings.
func toProfiles(s zygo.Sexp) ([][]float32, error) {
	rings, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([][]float32, 0, len(rings))
	for i, ring := range rings {
		items, err := sexpListToSlice(ring)
		if err != nil {
			return nil, fmt.Errorf("ring %d: %w", i, err)
		}
		radii := make([]float32, 0, len(items))
		for j, item := range items {
			f, err := toFloat32(item)
			if err != nil {
				return nil, fmt.Errorf("ring %d point %d: %w", i, j, err)
			}
			radii = append(radii, f)
		}
		out = append(out, radii)
	}
	return out, nil
}

// anonID generates an id for moulds declared without one.
func anonID() string {
	return uuid.NewString()
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs all body-script builtins into a zygomys
// environment. The builtins operate on the provided Model, populating
// it during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, m *model.Model) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		x, err := toFloat32(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: x: %w", err)
		}
		y, err := toFloat32(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: y: %w", err)
		}
		z, err := toFloat32(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: z: %w", err)
		}
		return &sexpVec3{vec: geom.Vec3{X: x, Y: y, Z: z}}, nil
	})

	// -----------------------------------------------------------------------
	// (euler 0 0 1.57)    angles in radians, intrinsic XYZ order
	// -----------------------------------------------------------------------
	env.AddFunction("euler", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("euler requires exactly 3 arguments, got %d", len(args))
		}
		x, err := toFloat32(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("euler: x: %w", err)
		}
		y, err := toFloat32(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("euler: y: %w", err)
		}
		z, err := toFloat32(args[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("euler: z: %w", err)
		}
		return &sexpQuat{rot: geom.QuatFromEuler(x, y, z)}, nil
	})

	// -----------------------------------------------------------------------
	// (quat 0 0 0 1)
	// -----------------------------------------------------------------------
	env.AddFunction("quat", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 4 {
			return zygo.SexpNull, fmt.Errorf("quat requires exactly 4 arguments, got %d", len(args))
		}
		var vals [4]float32
		for i, a := range args {
			f, err := toFloat32(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("quat: component %d: %w", i, err)
			}
			vals[i] = f
		}
		q := geom.Quat{X: vals[0], Y: vals[1], Z: vals[2], W: vals[3]}
		return &sexpQuat{rot: q.Normalize()}, nil
	})

	// -----------------------------------------------------------------------
	// (joint "chest" :parent "pelvis" :offset (vec3 0 0.55 0)
	//        :rotation (euler 0 0 0.1))
	// -----------------------------------------------------------------------
	env.AddFunction("joint", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var id string
		if len(pa.positional) >= 1 {
			s, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("joint: id: %w", err)
			}
			id = s
		} else {
			// Anonymous joints are only reachable through the returned
			// reference, typically bound with def.
			id = anonID()
		}

		j := skeleton.Joint{ID: id}
		if v, ok := pa.kw["parent"]; ok {
			pid, err := toJointID(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("joint %s: parent: %w", id, err)
			}
			j.ParentID = pid
		}
		if v, ok := pa.kw["offset"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("joint %s: offset: %w", id, err)
			}
			j.LocalOffset = vec
		}
		if v, ok := pa.kw["rotation"]; ok {
			q, err := toQuat(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("joint %s: rotation: %w", id, err)
			}
			j.LocalRotation = q
		}

		m.Skeleton.AddJoint(j)
		return &sexpJointRef{id: id}, nil
	})

	// mouldCommon parses the keyword arguments every mould shape shares.
	mouldCommon := func(what string, pa kwArgs, mo *mould.Mould) error {
		if len(pa.positional) >= 1 {
			id, err := toString(pa.positional[0])
			if err != nil {
				return fmt.Errorf("%s: id: %w", what, err)
			}
			mo.ID = id
		} else {
			mo.ID = anonID()
		}

		if v, ok := pa.kw["center"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return fmt.Errorf("%s %s: center: %w", what, mo.ID, err)
			}
			mo.Center = vec
		}
		if v, ok := pa.kw["radius"]; ok {
			f, err := toFloat32(v)
			if err != nil {
				return fmt.Errorf("%s %s: radius: %w", what, mo.ID, err)
			}
			mo.Radius = f
		}
		if v, ok := pa.kw["blend"]; ok {
			f, err := toFloat32(v)
			if err != nil {
				return fmt.Errorf("%s %s: blend: %w", what, mo.ID, err)
			}
			mo.BlendRadius = f
		}
		if v, ok := pa.kw["joint"]; ok {
			jid, err := toJointID(v)
			if err != nil {
				return fmt.Errorf("%s %s: joint: %w", what, mo.ID, err)
			}
			mo.ParentJointID = jid
		}
		if v, ok := pa.kw["end"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return fmt.Errorf("%s %s: end: %w", what, mo.ID, err)
			}
			mo.EndPoint = &vec
		}
		return nil
	}

	// -----------------------------------------------------------------------
	// (sphere "head" :joint "head" :radius 0.12 :blend 0.1)
	// -----------------------------------------------------------------------
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		mo := mould.Mould{Shape: mould.ShapeSphere, BlendRadius: mould.DefaultBlendRadius}
		if err := mouldCommon("sphere", parseArgs(args), &mo); err != nil {
			return zygo.SexpNull, err
		}
		if err := m.Moulds.Add(mo); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpMouldRef{id: mo.ID}, nil
	})

	// -----------------------------------------------------------------------
	// (capsule "leg" :joint "hip" :end (vec3 0 -0.8 0) :radius 0.08)
	// -----------------------------------------------------------------------
	env.AddFunction("capsule", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		mo := mould.Mould{Shape: mould.ShapeCapsule, BlendRadius: mould.DefaultBlendRadius}
		if err := mouldCommon("capsule", parseArgs(args), &mo); err != nil {
			return zygo.SexpNull, err
		}
		if err := m.Moulds.Add(mo); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpMouldRef{id: mo.ID}, nil
	})

	// -----------------------------------------------------------------------
	// (profiled-capsule "torso" :joint "pelvis" :end (vec3 0 0.55 0)
	//     :profiles (list (list 0.17 0.19 0.17 0.19) ...) :splines true)
	//
	// Note: registered as "profiled_capsule" because zygomys does not
	// support hyphens in identifiers; the preprocessor rewrites the call.
	// -----------------------------------------------------------------------
	env.AddFunction("profiled_capsule", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		mo := mould.Mould{Shape: mould.ShapeProfiledCapsule, BlendRadius: mould.DefaultBlendRadius}
		if err := mouldCommon("profiled-capsule", pa, &mo); err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["profiles"]; ok {
			profiles, err := toProfiles(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("profiled-capsule %s: profiles: %w", mo.ID, err)
			}
			mo.RadialProfiles = profiles
		}
		if v, ok := pa.kw["splines"]; ok {
			b, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("profiled-capsule %s: splines: %w", mo.ID, err)
			}
			mo.UseSplines = b
		}
		if err := m.Moulds.Add(mo); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpMouldRef{id: mo.ID}, nil
	})

	// -----------------------------------------------------------------------
	// (figure :gender :female :age :adult :height 1.68 :weight 60)
	//
	// Replaces the model's skeleton and moulds with the generated
	// humanoid template; further joint/mould calls refine it.
	// -----------------------------------------------------------------------
	env.AddFunction("figure", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)

		gender := model.Male
		age := model.Adult
		height := float32(1.75)
		weight := float32(70)

		if v, ok := pa.kw["gender"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("figure: gender: %w", err)
			}
			switch model.Gender(s) {
			case model.Male, model.Female:
				gender = model.Gender(s)
			default:
				return zygo.SexpNull, fmt.Errorf("figure: unknown gender %q", s)
			}
		}
		if v, ok := pa.kw["age"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("figure: age: %w", err)
			}
			switch model.AgeGroup(s) {
			case model.Child, model.Teen, model.Adult:
				age = model.AgeGroup(s)
			default:
				return zygo.SexpNull, fmt.Errorf("figure: unknown age group %q", s)
			}
		}
		if v, ok := pa.kw["height"]; ok {
			f, err := toFloat32(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("figure: height: %w", err)
			}
			height = f
		}
		if v, ok := pa.kw["weight"]; ok {
			f, err := toFloat32(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("figure: weight: %w", err)
			}
			weight = f
		}

		params, err := model.NewHumanParams(gender, age, height, weight)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("figure: %w", err)
		}
		figure, err := model.Humanoid(params)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("figure: %w", err)
		}

		m.Name = figure.Name
		m.Skeleton = figure.Skeleton
		m.Moulds = figure.Moulds
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (resolution 96)
	// -----------------------------------------------------------------------
	env.AddFunction("resolution", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("resolution requires exactly 1 argument, got %d", len(args))
		}
		i, ok := args[0].(*zygo.SexpInt)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("resolution: expected integer, got %T", args[0])
		}
		m.Resolution = int(i.Val)
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (bounds (vec3 -1 -1 -1) (vec3 1 1.5 1))
	// -----------------------------------------------------------------------
	env.AddFunction("bounds", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("bounds requires min and max vectors, got %d arguments", len(args))
		}
		min, err := toVec3(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("bounds: min: %w", err)
		}
		max, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("bounds: max: %w", err)
		}
		m.Bounds = geom.AABB{Min: min, Max: max}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (name "sprinter")
	// -----------------------------------------------------------------------
	env.AddFunction("name", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("name requires exactly 1 argument, got %d", len(args))
		}
		s, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("name: %w", err)
		}
		m.Name = s
		return zygo.SexpNull, nil
	})
}
