// Package embeds builds the bot's reply embeds with one shared pastel
// palette so every module answers in the same voice.
package embeds

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const (
	ColorPrimary  = 0xB19CD9
	ColorSuccess  = 0x98FB98
	ColorWarning  = 0xFFB6C1
	ColorError    = 0xFFCCCB
	ColorInfo     = 0x87CEEB
	ColorMusic    = 0xDDA0DD
	ColorEconomy  = 0xF0E68C
	ColorGiveaway = 0xFFD700
)

const footerText = "🌸 Powered by Nova"

func New(title, description string, color int) *discordgo.MessageEmbed {
	if color == 0 {
		color = ColorPrimary
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Footer:      &discordgo.MessageEmbedFooter{Text: footerText},
	}
}

func Success(message string) *discordgo.MessageEmbed {
	return New("✅ Success", message, ColorSuccess)
}

func Error(message string) *discordgo.MessageEmbed {
	return New("❌ Error", message, ColorError)
}

func Warning(message string) *discordgo.MessageEmbed {
	return New("⚠️ Warning", message, ColorWarning)
}

func Info(title, message string) *discordgo.MessageEmbed {
	return New("ℹ️ "+title, message, ColorInfo)
}

func Music(title, description string) *discordgo.MessageEmbed {
	return New("🎵 "+title, description, ColorMusic)
}

func Economy(title, description string) *discordgo.MessageEmbed {
	return New("💰 "+title, description, ColorEconomy)
}

// Page renders one page of items, ten per page, with a page footer.
func Page(title string, items []string, page int, color int) *discordgo.MessageEmbed {
	const perPage = 10

	totalPages := (len(items) + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 0 {
		page = 0
	}
	if page >= totalPages {
		page = totalPages - 1
	}

	start := page * perPage
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}

	description := "No items found."
	if start < end {
		description = ""
		for i, item := range items[start:end] {
			if i > 0 {
				description += "\n"
			}
			description += item
		}
	}

	e := New(title, description, color)
	e.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("🌸 Page %d/%d • Powered by Nova", page+1, totalPages),
	}
	return e
}
