package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/baodaydungsone/chai/internal/llm"
)

// Member is one group participant plus an optional snippet of its private
// one-on-one history.
type Member struct {
	Persona *llm.Persona
	Memory  []llm.Message
}

type GroupInput struct {
	Members  []Member
	User     llm.UserProfile
	Policy   llm.ContentPolicy
	Features llm.Features
	History  []llm.Message
	At       *time.Time
	Location *time.Location
}

// Group builds the moderator instruction for a multi-persona turn.
func Group(in GroupInput) string {
	var b strings.Builder
	userName := in.User.DisplayName()

	b.WriteString("You are a group chat moderator and storyteller. Your task is to orchestrate a conversation between multiple AI characters and a human user.")
	fmt.Fprintf(&b, "\nThe user is named %q.", userName)
	b.WriteString("\nBased on the chat history and the latest user message, decide which character(s) should speak next.")
	b.WriteString("\nGenerate their responses and keep every character perfectly in line with their defined persona.")
	b.WriteString("\nYou can make one character speak, or have several characters exchange a few lines of dialogue.")

	b.WriteString(Temporal(in.Features, in.At, in.Location, "Characters"))
	b.WriteString(Policy(in.Policy))

	b.WriteString("\n\nHere are the characters in this group:")
	for _, m := range in.Members {
		writeMember(&b, m, in.User, in.Features.GroupMemory)
	}

	byID := make(map[string]string, len(in.Members))
	for _, m := range in.Members {
		byID[m.Persona.ID] = m.Persona.Name
	}
	history := llm.Transcript(in.History, in.User, func(msg llm.Message) string {
		if name, ok := byID[msg.PersonaID]; ok {
			return name
		}
		return "AI"
	})
	if history == "" {
		history = "No messages yet."
	}
	b.WriteString("\n\nHere is the recent chat history (the latest user message follows separately):\n" + history)

	b.WriteString(`

Your output MUST be a valid JSON array of objects. Each object is one message from a character and must have exactly two keys:
1. "characterId": the ID of the character who is speaking.
2. "response": the full text of what the character says, including actions in asterisks like *smiles*.

Example JSON output:
[
  { "characterId": "char_id_2", "response": "That's a ridiculous idea! *slams his fist on the table*" },
  { "characterId": "char_id_1", "response": "Now, now, let's remain calm." }
]

Now, based on the user's latest message, generate the next part of the conversation.`)
	return b.String()
}

func writeMember(b *strings.Builder, m Member, user llm.UserProfile, withMemory bool) {
	p := m.Persona
	b.WriteString("\n--- CHARACTER DEFINITION ---")
	b.WriteString("\nID: " + p.ID)
	b.WriteString("\nName: " + p.Name)
	b.WriteString("\nPersonality: " + p.Personality)
	if p.VoiceTone != "" {
		b.WriteString("\nVoice/Tone: " + p.VoiceTone)
	}
	if withMemory && len(m.Memory) > 0 {
		snippet := llm.Transcript(m.Memory, user, func(llm.Message) string { return p.Name })
		fmt.Fprintf(b, "\nMEMORY: Below is a snippet of your recent one-on-one conversation with the user, %q. Use it to inform your responses in this group chat.", user.DisplayName())
		b.WriteString("\n--- Recent Memory Snippet ---\n" + snippet + "\n--- End Memory Snippet ---")
	}
	b.WriteString("\n--- END CHARACTER ---")
}
