package llm

import "strings"

type Emotion string

const (
	Happy      Emotion = "Happy"
	Sad        Emotion = "Sad"
	Angry      Emotion = "Angry"
	Surprised  Emotion = "Surprised"
	Confident  Emotion = "Confident"
	Confused   Emotion = "Confused"
	Curious    Emotion = "Curious"
	Annoyed    Emotion = "Annoyed"
	Playful    Emotion = "Playful"
	Thoughtful Emotion = "Thoughtful"
	Grateful   Emotion = "Grateful"
	Excited    Emotion = "Excited"
	Bored      Emotion = "Bored"
	Skeptical  Emotion = "Skeptical"
	Empathetic Emotion = "Empathetic"
	Neutral    Emotion = "Neutral"
)

var emotions = []Emotion{
	Happy, Sad, Angry, Surprised, Confident, Confused, Curious, Annoyed,
	Playful, Thoughtful, Grateful, Excited, Bored, Skeptical, Empathetic, Neutral,
}

func GetEmotionList() []string {
	out := make([]string, len(emotions))
	for i, e := range emotions {
		out[i] = string(e)
	}
	return out
}

// ParseEmotion matches s case-insensitively against the vocabulary and
// returns the canonical label.
func ParseEmotion(s string) (Emotion, bool) {
	s = strings.TrimSpace(s)
	for _, e := range emotions {
		if strings.EqualFold(s, string(e)) {
			return e, true
		}
	}
	return "", false
}
