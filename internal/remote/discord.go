package remote

import (
	"github.com/bwmarrin/discordgo"
)

var buttonStyles = map[Style]discordgo.ButtonStyle{
	StyleSecondary: discordgo.SecondaryButton,
	StylePrimary:   discordgo.PrimaryButton,
	StyleSuccess:   discordgo.SuccessButton,
	StyleDanger:    discordgo.DangerButton,
}

// Embed renders the informational part of v.
func Embed(v View) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(v.Fields))
	for _, f := range v.Fields {
		fields = append(fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	e := &discordgo.MessageEmbed{
		Title:       v.Title,
		Description: v.Description,
		Color:       v.Color,
		Fields:      fields,
	}
	if v.Footer != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: v.Footer}
	}
	return e
}

// Components renders the controls of v as action rows: preset selector,
// color selector, then one row per button group.
func Components(v View) []discordgo.MessageComponent {
	rows := []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{selectMenu(v.Presets)}},
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{selectMenu(v.Colors)}},
	}
	for _, row := range v.Rows {
		buttons := make([]discordgo.MessageComponent, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, discordgo.Button{
				Label:    b.Label,
				Style:    buttonStyles[b.Style],
				CustomID: b.CustomID,
			})
		}
		rows = append(rows, discordgo.ActionsRow{Components: buttons})
	}
	return rows
}

func selectMenu(s Select) discordgo.SelectMenu {
	opts := make([]discordgo.SelectMenuOption, 0, len(s.Options))
	for _, o := range s.Options {
		opts = append(opts, discordgo.SelectMenuOption{
			Label:       o.Label,
			Value:       o.Value,
			Description: o.Description,
		})
	}
	return discordgo.SelectMenu{
		MenuType:    discordgo.StringSelectMenu,
		CustomID:    s.CustomID,
		Placeholder: s.Placeholder,
		Options:     opts,
	}
}
