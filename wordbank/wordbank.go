// Package wordbank supplies the words to guess.
package wordbank

import (
	"errors"
	"math/rand"
	"sync"
)

// Word is one playable entry.
type Word struct {
	Text     string
	Category string
}

// Supplier hands out the next word. Implementations carry no game state.
type Supplier interface {
	Next() (Word, error)
}

var ErrEmptyBank = errors.New("word bank is empty")

// Static serves from a fixed list in random order.
type Static struct {
	mu    sync.Mutex
	words []Word
	rng   *rand.Rand
}

func NewStatic(words []Word, seed int64) *Static {
	return &Static{
		words: words,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

func (s *Static) Next() (Word, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.words) == 0 {
		return Word{}, ErrEmptyBank
	}
	return s.words[s.rng.Intn(len(s.words))], nil
}

// DefaultWords is the built-in bank used when no external list is
// configured.
var DefaultWords = []Word{
	{Text: "שלום", Category: "ברכות"},
	{Text: "בוקר טוב", Category: "ברכות"},
	{Text: "גן חיות", Category: "מקומות"},
	{Text: "בית ספר", Category: "מקומות"},
	{Text: "ירושלים", Category: "ערים בישראל"},
	{Text: "תל אביב", Category: "ערים בישראל"},
	{Text: "חיפה", Category: "ערים בישראל"},
	{Text: "באר שבע", Category: "ערים בישראל"},
	{Text: "פיל", Category: "חיות"},
	{Text: "נמר", Category: "חיות"},
	{Text: "תנין", Category: "חיות"},
	{Text: "ינשוף", Category: "חיות"},
	{Text: "פלאפל", Category: "אוכל"},
	{Text: "חומוס", Category: "אוכל"},
	{Text: "סופגניה", Category: "אוכל"},
	{Text: "מלפפון", Category: "אוכל"},
	{Text: "מחשב נייד", Category: "חפצים"},
	{Text: "מברשת שיניים", Category: "חפצים"},
	{Text: "כדורגל", Category: "ספורט"},
	{Text: "שחייה", Category: "ספורט"},
}
