package similarity

import "github.com/timmy/copyscale/internal/domain"

type rung struct {
	above float64
	note  string
}

var (
	directLadder = []rung{
		{0.8, domain.NoteDirectExact},
		{0.6, domain.NoteDirectStructural},
		{0.4, domain.NoteDirectModerate},
	}
	styleLadder = []rung{
		{0.7, domain.NoteStyleStrong},
		{0.5, domain.NoteStyleModerate},
	}
	contentLadder = []rung{
		{0.7, domain.NoteContentHigh},
		{0.5, domain.NoteContentModerate},
	}
)

// Notes explains the component scores. Each ladder contributes at most one note,
// and the minimal-similarity note stands alone when none fire.
func Notes(direct, style, content float64) []string {
	var notes []string
	for _, step := range []struct {
		score  float64
		ladder []rung
	}{
		{direct, directLadder},
		{style, styleLadder},
		{content, contentLadder},
	} {
		if note, ok := climb(step.ladder, step.score); ok {
			notes = append(notes, note)
		}
	}
	if len(notes) == 0 {
		return []string{domain.NoteMinimalSimilarity}
	}
	return notes
}

func climb(ladder []rung, score float64) (string, bool) {
	for _, r := range ladder {
		if score > r.above {
			return r.note, true
		}
	}
	return "", false
}
