package score

import (
	"math"
	"slices"

	"github.com/pkg/errors"

	"github.com/agenthands/nsound/pkg/core/data"
	"github.com/agenthands/nsound/pkg/sound"
	"github.com/agenthands/nsound/pkg/vm"
)

// Event is one scheduled note or rest.
type Event struct {
	Sound    int     // index into Program.Sounds, -1 before any track
	Time     float64 // start, seconds from the beginning of the score
	Duration float64 // seconds
	Pitch    int     // note number after transposition, 48 is middle C
	Rest     bool
	Level    float64
}

// tickSeconds is the length of one tick at bpm beats per minute: a quarter
// note is 4*TicksPerSixteenth ticks.
func tickSeconds(bpm int) float64 {
	return 60 / float64(bpm) / (4 * TicksPerSixteenth)
}

// Invert applies steps chromatic inversions to values: each step removes the
// lowest pitch and adds it back above the highest, raised by the smallest
// interval that lands on a pitch class already in the set.
func Invert(values []int, steps int) []int {
	out := slices.Clone(values)
	if len(out) == 0 {
		return out
	}
	for n := 0; n < steps; n++ {
		lo := slices.Index(out, slices.Min(out))
		low := out[lo]
		out = slices.Delete(out, lo, lo+1)
		if len(out) == 0 {
			out = append(out, low+12)
			continue
		}
		top := slices.Max(out)
		next := top + 12
		for j := 1; j <= 12; j++ {
			if mod12(top+j) == mod12(low) {
				next = top + j
				break
			}
		}
		out = append(out, next)
	}
	return out
}

func mod12(x int) int {
	return ((x % 12) + 12) % 12
}

// track is the scheduler's per-track state.
type track struct {
	sound   int
	level   float64
	shift   int
	invert  int
	reverse bool
	time    float64
}

// Events interprets a compiled score into its note and rest events, in
// program order.
func Events(p *Program) ([]Event, error) {
	var (
		events []Event
		tick   float64
		tr     = track{sound: -1, level: 1}
	)
	chunk := func(i byte) ([]byte, error) {
		if int(i) >= len(p.Chunks) {
			return nil, errors.Errorf("score: chunk %d out of range", i)
		}
		return p.Chunks[i], nil
	}
	note := func(c byte) (Note, float64, error) {
		n, err := DecodeNote(c)
		if err != nil {
			return n, 0, errors.Wrap(err, "score")
		}
		return n, float64(n.Ticks()) * tick, nil
	}

	err := walk(p.Code, func(op Opcode, params []byte) error {
		switch op {
		case OpTrack:
			if int(params[0]) >= len(p.Sounds) {
				return errors.Errorf("score: sound %d out of range", params[0])
			}
			tr = track{sound: int(params[0]), level: data.DecodeExponential(int(params[1]))}
		case OpTempo:
			tick = tickSeconds(minTempo + tempoStep*int(params[0]))
		case OpTranspose:
			tr.shift = int(params[0]) - shiftBias
		case OpInvert:
			tr.invert = int(params[0])
		case OpReverse:
			tr.reverse = params[0] != 0
		case OpSkip:
			_, d, err := note(params[0])
			if err != nil {
				return err
			}
			tr.time += d
		default:
			pattern, err := chunk(params[0])
			if err != nil {
				return err
			}
			lists := make([][]int, len(params)-1)
			for i, ci := range params[1:] {
				raw, err := chunk(ci)
				if err != nil {
					return err
				}
				vals := make([]int, len(raw))
				for j, b := range raw {
					vals[j] = int(b)
				}
				if tr.reverse {
					slices.Reverse(vals)
				}
				lists[i] = Invert(vals, tr.invert)
			}
			next := make([]int, len(lists))
			start := tr.time
			for _, c := range pattern {
				n, d, err := note(c)
				if err != nil {
					return err
				}
				if n.Rewind {
					tr.time = start
					continue
				}
				ev := Event{Sound: tr.sound, Time: tr.time, Duration: d, Level: tr.level, Rest: n.Slot == 0}
				if !ev.Rest {
					k := n.Slot - 1
					if k >= len(lists) || len(lists[k]) == 0 {
						return errors.Errorf("score: slot %d has no values", n.Slot)
					}
					ev.Pitch = lists[k][next[k]%len(lists[k])] + tr.shift
					next[k]++
				}
				events = append(events, ev)
				tr.time += d
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Options configure Render.
type Options struct {
	SampleRate float64
	// Synth renders one note. It defaults to a sound.Renderer at SampleRate.
	Synth func(code []byte, note, gate float64) ([]float32, error)
}

// Render schedules every event of p and mixes the rendered notes into one
// buffer. sounds maps the score's sound names to compiled sound programs;
// events of a sound missing from the map are silent.
func Render(p *Program, sounds map[string][]byte, opts Options) ([]float32, error) {
	if opts.SampleRate <= 0 {
		opts.SampleRate = vm.DefaultSampleRate
	}
	if opts.Synth == nil {
		opts.Synth = sound.Renderer{SampleRate: opts.SampleRate}.Render
	}
	events, err := Events(p)
	if err != nil {
		return nil, err
	}

	var out []float32
	end := 0
	for _, ev := range events {
		if ev.Rest || ev.Sound < 0 {
			continue
		}
		code, ok := sounds[p.Sounds[ev.Sound]]
		if !ok {
			continue
		}
		samples, err := opts.Synth(code, float64(ev.Pitch), ev.Duration)
		if err != nil {
			return nil, errors.Wrapf(err, "rendering %s at %.3fs", p.Sounds[ev.Sound], ev.Time)
		}
		at := int(math.Round(ev.Time * opts.SampleRate))
		stop := at + len(samples)
		if stop > len(out) {
			out = grow(out, stop)
		}
		level := float32(ev.Level)
		for i, x := range samples {
			out[at+i] += x * level
		}
		end = max(end, stop)
	}
	return out[:end], nil
}

// grow returns b extended to the next power of two holding n samples.
func grow(b []float32, n int) []float32 {
	size := 1
	for size < n {
		size <<= 1
	}
	nb := make([]float32, size)
	copy(nb, b)
	return nb
}
