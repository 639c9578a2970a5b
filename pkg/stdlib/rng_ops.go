package stdlib

import (
	"strconv"

	"github.com/tumblelang/tumble/pkg/evaluator"
	"github.com/tumblelang/tumble/pkg/rng"
)

// RNG control. Snapshots are plain JSON-serializable maps so hosts can
// persist them; the stream they capture is bit-identical across platforms.

func registerRNG(r *Registry) {
	r.Register(evaluator.IntrinsicDef{
		Name:  "seed",
		Arity: -1,
		Execute: func(s *evaluator.Session, args []evaluator.Value) (evaluator.Value, error) {
			if len(args) == 0 {
				s.RNG().Reseed()
				return evaluator.Null{}, nil
			}
			// The seed is derived from the canonical serialization of the
			// argument list, so the same arguments give the same stream
			// everywhere.
			data, err := evaluator.MarshalValue(evaluator.List{Items: args})
			if err != nil {
				return nil, err
			}
			s.RNG().SeedBytes(data)
			return evaluator.Null{}, nil
		},
	})

	r.Register(evaluator.IntrinsicDef{
		Name:  "save",
		Arity: 0,
		Execute: func(s *evaluator.Session, args []evaluator.Value) (evaluator.Value, error) {
			return SnapshotValue(s.RNG().State()), nil
		},
	})

	r.Register(evaluator.IntrinsicDef{
		Name:  "restore",
		Arity: 1,
		Execute: func(s *evaluator.Session, args []evaluator.Value) (evaluator.Value, error) {
			state, err := snapshotState(args[0])
			if err != nil {
				return nil, err
			}
			if err := s.RNG().Restore(state); err != nil {
				return nil, evaluator.RngError("%v", err)
			}
			return evaluator.Null{}, nil
		},
	})
}

// SnapshotValue renders an RNG state as the snapshot map returned by
// `save`. The state words are decimal strings: they exceed the range JSON
// readers reliably round-trip as numbers.
func SnapshotValue(state [4]uint64) evaluator.Value {
	words := make([]evaluator.Value, len(state))
	for i, w := range state {
		words[i] = evaluator.String{Value: strconv.FormatUint(w, 10)}
	}
	return evaluator.NewMap([]evaluator.KeyValue{
		{Key: "algo", Value: evaluator.String{Value: rng.Algorithm}},
		{Key: "state", Value: evaluator.List{Items: words}},
	})
}

// snapshotState parses a snapshot map back into a state.
func snapshotState(v evaluator.Value) ([4]uint64, error) {
	var state [4]uint64
	m, ok := v.(*evaluator.Map)
	if !ok {
		return state, evaluator.RngError("snapshot must be a map, got %s", evaluator.Print(v))
	}
	algo, ok := m.Get("algo")
	if !ok {
		return state, evaluator.RngError("snapshot misses 'algo'")
	}
	algoStr, ok := algo.(evaluator.String)
	if !ok || algoStr.Value != rng.Algorithm {
		return state, evaluator.RngError("snapshot is not a %s state", rng.Algorithm)
	}
	words, ok := m.Get("state")
	if !ok {
		return state, evaluator.RngError("snapshot misses 'state'")
	}
	list, ok := words.(evaluator.List)
	if !ok || len(list.Items) != len(state) {
		return state, evaluator.RngError("snapshot state must be a list of %d words", len(state))
	}
	for i, item := range list.Items {
		str, ok := item.(evaluator.String)
		if !ok {
			return state, evaluator.RngError("snapshot state words must be strings")
		}
		w, err := strconv.ParseUint(str.Value, 10, 64)
		if err != nil {
			return state, evaluator.RngError("malformed snapshot word %q", str.Value)
		}
		state[i] = w
	}
	return state, nil
}
