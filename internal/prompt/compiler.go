// Package prompt assembles system instructions for persona and group chats.
// Everything here is deterministic and performs no I/O.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/baodaydungsone/chai/internal/llm"
)

const baseDirective = `You are an AI character in a chat application. Stay in character at all times.
Never reveal that you are an AI, a language model or a program, and never break the fourth wall.
Reply the way your character would in a real conversation: natural, concise and consistent with your personality.`

// Input carries everything Compile needs for one persona turn.
type Input struct {
	Persona  *llm.Persona
	User     llm.UserProfile
	Policy   llm.ContentPolicy
	Features llm.Features
	Memories []string
	Emotion  *llm.Emotion
	// At is the user message timestamp; nil disables the temporal section.
	At       *time.Time
	Location *time.Location
}

// Compile builds the system instruction. A non-empty persona override prompt
// replaces the compiled text verbatim.
func Compile(in Input) string {
	var b strings.Builder
	p := in.Persona
	userName := in.User.DisplayName()
	userBio := in.User.DisplayBio()

	b.WriteString(baseDirective)

	section(&b, "USER INFORMATION")
	fmt.Fprintf(&b, "\nYou are interacting with a user named %q.", userName)
	fmt.Fprintf(&b, "\nUser's self-description (bio): %q.", userBio)
	b.WriteString("\nWhen appropriate and natural, you can acknowledge their name or bio. Your primary focus is to maintain your character's persona.")

	section(&b, "CHARACTER DEFINITION")
	writePersona(&b, p)

	if in.Features.Memory && len(in.Memories) > 0 {
		section(&b, "KEY REMEMBERED INFORMATION (use this to show you remember previous interactions)")
		for _, m := range in.Memories {
			b.WriteString("\n- " + m)
		}
	}

	if in.Features.Emotions && in.Emotion != nil && *in.Emotion != "" {
		section(&b, "YOUR CURRENT EMOTIONAL STATE (let this subtly influence your tone and word choice)")
		b.WriteString("\nFeeling: " + string(*in.Emotion))
	}

	if t := Temporal(in.Features, in.At, in.Location, "You"); t != "" {
		b.WriteString(t)
	}

	b.WriteString(Policy(in.Policy))

	if in.Features.LongerReply {
		b.WriteString(longerReply(userName, userBio))
	}

	section(&b, "END OF DEFINITIONS")
	fmt.Fprintf(&b, "\n\nYou are now in character as %s. The next message comes from %s (who describes themselves as: %q). Reply in the language the user writes in unless your character definition says otherwise.",
		p.Name, userName, userBio)

	if strings.TrimSpace(p.SystemPrompt) != "" {
		return p.SystemPrompt
	}
	return b.String()
}

func section(b *strings.Builder, title string) {
	b.WriteString("\n\n--- " + title + " ---")
}

func writePersona(b *strings.Builder, p *llm.Persona) {
	b.WriteString("\nName: " + p.Name)
	b.WriteString("\nPersonality: " + p.Personality)
	if p.Greeting != "" {
		b.WriteString("\nGreeting Message (your first message to the user if there is no history): " + p.Greeting)
	}
	if p.VoiceTone != "" {
		b.WriteString("\nVoice/Tone: " + p.VoiceTone)
	}
	if p.ExampleDialogue != "" {
		b.WriteString("\nExample Dialogues (follow this style):\n" + p.ExampleDialogue)
	}
}

// Policy renders the content-policy section. It is never empty.
func Policy(policy llm.ContentPolicy) string {
	var b strings.Builder
	section(&b, "Content Guidelines")
	if !policy.Enabled {
		b.WriteString("\nMature content is STRICTLY PROHIBITED. Keep the conversation clean and appropriate for all audiences.")
		return b.String()
	}

	b.WriteString("\nMature content is PERMITTED based on the following preferences:")
	for _, axis := range policy.Axes() {
		if axis.Level != "" && axis.Level != llm.LevelNone {
			fmt.Fprintf(&b, "\n- %s: %s", axis.Name, axis.Level)
		}
	}
	if s := strings.TrimSpace(policy.Style); s != "" {
		b.WriteString("\n- Custom Style: " + s)
	}
	b.WriteString("\nIntegrate these elements naturally if the user steers towards them or if it fits the context. Do not force them. Prioritize the character's persona.")
	return b.String()
}

func longerReply(userName, userBio string) string {
	return fmt.Sprintf(`

--- Special Instructions for this Reply ---
The user you are replying to is named %s (bio: %q).
Your response to %s's next message should be:
1. Longer and more detailed than a typical short chat reply. Elaborate on your thoughts, feelings or knowledge.
2. Formatted using these rules:
   - Normal text for speech.
   - Actions or non-verbal cues in single asterisks, e.g. *smiles softly*.
   - Emphasis, visible inner thoughts or especially expressive phrases in double asterisks, e.g. **What a wonderful idea!**
Keep the reply natural and in character.`, userName, userBio, userName)
}
