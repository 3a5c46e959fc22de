package llm

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultUserName = "User"
	DefaultUserBio  = "An interesting person."
)

type Persona struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Personality     string    `json:"personality"`
	Greeting        string    `json:"greetingMessage,omitempty"`
	VoiceTone       string    `json:"voiceTone,omitempty"`
	ExampleDialogue string    `json:"exampleResponses,omitempty"`
	SystemPrompt    string    `json:"systemPrompt,omitempty"`
	AvatarURL       string    `json:"avatarUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Validate reports ErrValidation when a field required for generation is blank.
func (p *Persona) Validate() error {
	if p == nil {
		return errors.Wrap(ErrValidation, "persona is missing")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.Wrap(ErrValidation, "persona name is required")
	}
	if strings.TrimSpace(p.Personality) == "" {
		return errors.Wrapf(ErrValidation, "persona %q has no personality", p.Name)
	}
	return nil
}

type UserProfile struct {
	Name      string `json:"name"`
	Bio       string `json:"bio,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

func (u UserProfile) DisplayName() string {
	if strings.TrimSpace(u.Name) == "" {
		return DefaultUserName
	}
	return u.Name
}

func (u UserProfile) DisplayBio() string {
	if strings.TrimSpace(u.Bio) == "" {
		return DefaultUserBio
	}
	return u.Bio
}

type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MemberIDs []string  `json:"memberIds"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GroupReply is one element of the group-chat wire protocol.
type GroupReply struct {
	CharacterID string `json:"characterId"`
	Response    string `json:"response"`
}
