package session

import "math/rand/v2"

// DefaultColors is the ordered preference list handed out to joining users.
var DefaultColors = []string{
	"#E53935",
	"#1E88E5",
	"#43A047",
	"#FB8C00",
	"#8E24AA",
	"#00ACC1",
	"#F4511E",
	"#3949AB",
	"#7CB342",
	"#D81B60",
	"#6D4C41",
	"#546E7A",
}

// Palette assigns visually distinct colors from a fixed list.
type Palette struct {
	colors []string
	intn   func(n int) int
}

func NewPalette(colors []string) *Palette {
	if len(colors) == 0 {
		colors = DefaultColors
	}
	return &Palette{colors: colors, intn: rand.IntN}
}

// Assign returns the first palette color no user in room holds. Once the
// palette is exhausted it returns a random entry and colors repeat.
func (p *Palette) Assign(room *Room) string {
	inUse := make(map[string]bool)
	if room != nil {
		for _, user := range room.users {
			inUse[user.Color] = true
		}
	}
	for _, color := range p.colors {
		if !inUse[color] {
			return color
		}
	}
	return p.colors[p.intn(len(p.colors))]
}
