package bot

import (
	"birthdaybot/models"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	listTitle = "🎂 Birthdays"
	listColor = 0xFFA500

	emptyListText = "The list is empty."

	// maxDescriptionLength is Discord's embed description limit.
	maxDescriptionLength = 4096
)

func listEmbed(birthdays []models.Birthday) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       listTitle,
		Color:       listColor,
		Description: listDescription(birthdays),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%d saved", len(birthdays)),
		},
	}
}

// listDescription renders one line per birthday in store order. Lines
// that would overflow the embed are summarised in a trailing count.
func listDescription(birthdays []models.Birthday) string {
	if len(birthdays) == 0 {
		return emptyListText
	}

	var b strings.Builder
	for i, birthday := range birthdays {
		line := fmt.Sprintf("• %v — %v", birthday.Mention(), birthday.BirthDate)
		if i > 0 {
			line = "\n" + line
		}

		// Leave room for the summary of whatever follows this line.
		reserve := 0
		if rest := len(birthdays) - i - 1; rest > 0 {
			reserve = len(moreLine(rest))
		}
		if b.Len()+len(line)+reserve > maxDescriptionLength {
			b.WriteString(moreLine(len(birthdays) - i))
			break
		}
		b.WriteString(line)
	}
	return b.String()
}

func moreLine(n int) string {
	return fmt.Sprintf("\n…and %d more", n)
}
