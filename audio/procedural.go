package audio

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

const maxProceduralNotes = 64

var moodScales = map[string][]int{
	"calm":     {0, 2, 4, 7, 9},
	"upbeat":   {0, 2, 4, 5, 7, 9, 11},
	"tense":    {0, 1, 3, 6, 7, 10},
	"dramatic": {0, 2, 3, 5, 7, 8, 10},
	"epic":     {0, 3, 5, 7, 10},
}

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// proceduralSeed keys the fallback on (name, duration, mood) only.
func proceduralSeed(spec Spec) uint64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(spec.Name))))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatFloat(spec.Duration, 'f', 3, 64)))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(spec.Mood))))
	return h.Sum64()
}

// Procedural renders a clip without any network. Equal specs always
// produce equal clips.
func Procedural(spec Spec, category string) Clip {
	seed := proceduralSeed(spec)
	r := rand.New(rand.NewSource(int64(seed)))

	scale, ok := moodScales[strings.ToLower(spec.Mood)]
	if !ok {
		scale = moodScales["calm"]
	}
	root := int(seed % uint64(len(noteNames)))
	tempo := 70 + int(seed%60)

	beats := int(math.Ceil(spec.Duration * float64(tempo) / 60))
	if beats < 1 {
		beats = 1
	}
	if beats > maxProceduralNotes {
		beats = maxProceduralNotes
	}

	notes := make([]string, 0, beats)
	for i := 0; i < beats; i++ {
		step := scale[r.Intn(len(scale))]
		octave := 3 + r.Intn(2)
		notes = append(notes, fmt.Sprintf("%s%d", noteNames[(root+step)%len(noteNames)], octave))
	}

	return Clip{
		ID:       fmt.Sprintf("proc-%016x", seed),
		Name:     spec.Name,
		Category: category,
		Mood:     spec.Mood,
		Duration: spec.Duration,
		Tempo:    tempo,
		Key:      noteNames[root],
		Notes:    notes,
		Source:   SourceProcedural,
	}
}
