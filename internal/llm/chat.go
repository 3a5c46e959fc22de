package llm

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Sender string

const (
	SenderUser  Sender = "user"
	SenderModel Sender = "model"
)

type Image struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// ParseDataURL decodes "data:<mime>;base64,<payload>". A bare base64 payload
// is accepted when mimeType is given.
func ParseDataURL(dataURL, mimeType string) (*Image, error) {
	payload := dataURL
	if strings.HasPrefix(dataURL, "data:") {
		comma := strings.IndexByte(dataURL, ',')
		if comma < 0 {
			return nil, errors.New("malformed data url")
		}
		header := dataURL[len("data:"):comma]
		payload = dataURL[comma+1:]
		if mimeType == "" {
			mimeType, _, _ = strings.Cut(header, ";")
		}
	}
	if mimeType == "" {
		return nil, errors.New("image mime type is required")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.Wrap(err, "decode image payload")
	}
	return &Image{MIMEType: mimeType, Data: data}, nil
}

type Attribution struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type Message struct {
	ID           string        `json:"id"`
	ChatID       string        `json:"chatId"`
	Sender       Sender        `json:"sender"`
	PersonaID    string        `json:"senderCharacterId,omitempty"`
	Content      string        `json:"content"`
	Image        *Image        `json:"image,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
	Attributions []Attribution `json:"groundingAttributions,omitempty"`
}

// Transcript renders messages as "Name: text" lines. speaker resolves the
// display name of a model message.
func Transcript(msgs []Message, user UserProfile, speaker func(Message) string) string {
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		name := user.DisplayName()
		if m.Sender != SenderUser {
			name = speaker(m)
		}
		line := name + ": " + m.Content
		if m.Image != nil {
			line += " [sent an image]"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Tail returns at most the last n messages.
func Tail(msgs []Message, n int) []Message {
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

// Features are the per-call feature flags read from settings.
type Features struct {
	Memory        bool `json:"enableMemory"`
	Emotions      bool `json:"enableEmotions"`
	TimeAwareness bool `json:"enableTimeAwareness"`
	DateAwareness bool `json:"enableDateAwareness"`
	GroupMemory   bool `json:"enableGroupMemory"`
	WebSearch     bool `json:"enableWebSearch"`
	LongerReply   bool `json:"makeLongerReply"`
}

func DefaultFeatures() Features {
	return Features{Memory: true, Emotions: true}
}
