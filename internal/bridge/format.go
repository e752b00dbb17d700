package bridge

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zulandar/semaphore/internal/config"
)

// Formatter turns a raw Event into the decorated line posted to Discord.
// Formatting uses the event's reception time, never the send time.
type Formatter struct {
	cfg config.DisplayConfig
}

// NewFormatter creates a Formatter from the display configuration.
func NewFormatter(cfg config.DisplayConfig) *Formatter {
	return &Formatter{cfg: cfg}
}

// Format renders one event. The second return value is false when the event
// produces no output (empty message body).
func (f *Formatter) Format(ev Event) (string, bool) {
	if strings.TrimSpace(ev.Message) == "" {
		return "", false
	}

	sender := ev.Sender
	if sender == "" {
		sender = "Unknown"
	}
	radius := strings.ToLower(ev.Radius)
	if radius == "" {
		radius = "say"
	}

	var b strings.Builder

	// Discord-native timestamp renders in each reader's timezone.
	if f.cfg.TimestampFormat != "" && f.cfg.TimestampFormat != "none" {
		fmt.Fprintf(&b, "<t:%d:%s> ", ev.ReceivedAt.Unix(), f.cfg.TimestampFormat)
	}

	if enabled(f.cfg.ShowCharacter) && ev.Character != "" && ev.Character != sender {
		fmt.Fprintf(&b, "**%s** (%s)", sender, ev.Character)
	} else {
		fmt.Fprintf(&b, "**%s**", sender)
	}

	if enabled(f.cfg.ShowRadius) {
		fmt.Fprintf(&b, " [%s]", capitalize(radius))
	}

	b.WriteString(": ")
	b.WriteString(ev.Message)

	var footer []string
	if enabled(f.cfg.ShowLocation) && ev.Location != "" {
		footer = append(footer, "Location: "+ev.Location)
	}
	if enabled(f.cfg.ShowChannel) && ev.Channel != "" {
		footer = append(footer, "Channel: "+ev.Channel)
	}
	if len(footer) > 0 {
		b.WriteString("\n-# ")
		b.WriteString(strings.Join(footer, " | "))
	}

	return b.String(), true
}

// capitalize upper-cases the first rune of s.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func enabled(p *bool) bool {
	return p != nil && *p
}
