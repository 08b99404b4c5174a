package orchestrator

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/golan-guy/hangman/hebrew"
	"github.com/golan-guy/hangman/match"
	"github.com/golan-guy/hangman/transport"
)

const lettersPerRow = 6

// boardText renders the play-phase board: category, masked word, whose
// turn it is and the scores.
func boardText(m match.Match) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "קטגוריה: %s\n", m.Category)
	sb.WriteString(maskedWord(m))
	sb.WriteString("\n\n")
	if current := m.CurrentPlayer(); current != "" {
		fmt.Fprintf(&sb, "תור: %s\n", m.Players[current].DisplayName)
	}
	fmt.Fprintf(&sb, "ניקוד (עד %d):\n", m.WinLimit)
	for _, id := range m.PlayerOrder {
		info := m.Players[id]
		fmt.Fprintf(&sb, "%s: %d\n", info.DisplayName, info.Score)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// lobbyText renders the joining-phase roster.
func lobbyText(m match.Match) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "משחק חדש! ניצחון ב-%d נקודות.\n", m.WinLimit)
	sb.WriteString("שחקנים:\n")
	for _, id := range m.PlayerOrder {
		fmt.Fprintf(&sb, "- %s\n", m.Players[id].DisplayName)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// maskedWord shows revealed letters in their stored glyph and hides the
// rest. Non-letters (spaces and punctuation) show as-is.
func maskedWord(m match.Match) string {
	var sb strings.Builder
	for _, r := range m.Word {
		switch {
		case !unicode.IsLetter(r):
			sb.WriteRune(r)
		case m.LetterRevealed(r):
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
		sb.WriteRune(' ')
	}
	return strings.TrimRight(sb.String(), " ")
}

// boardKeyboard lays out the unrevealed letters plus the solve button.
func boardKeyboard(m match.Match) [][]transport.Button {
	var keyboard [][]transport.Button
	var row []transport.Button
	for _, letter := range hebrew.Alphabet {
		if m.LetterRevealed(letter) {
			continue
		}
		row = append(row, transport.Button{
			Label: string(letter),
			Data:  "letter:" + string(letter),
		})
		if len(row) == lettersPerRow {
			keyboard = append(keyboard, row)
			row = nil
		}
	}
	if len(row) > 0 {
		keyboard = append(keyboard, row)
	}
	keyboard = append(keyboard, []transport.Button{{Label: "פתרון המילה", Data: "solve"}})
	return keyboard
}

// lobbyKeyboard offers join and start.
func lobbyKeyboard() [][]transport.Button {
	return [][]transport.Button{{
		{Label: "הצטרפות", Data: "join"},
		{Label: "התחלה", Data: "start"},
	}}
}
