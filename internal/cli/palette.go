package cli

import (
	"github.com/fatih/color"

	"github.com/nainya/zarrdump/pkg/cf"
)

// palette holds the colors used by the text renderers. Colors follow the
// terminal detection in fatih/color unless disabled explicitly.
type palette struct {
	keyword *color.Color
	name    *color.Color
	section *color.Color
	comment *color.Color
	dtype   *color.Color
	attr    *color.Color
	number  *color.Color
	str     *color.Color
	boolean *color.Color
	plain   *color.Color

	info  *color.Color
	warn  *color.Color
	fail  *color.Color
}

func newPalette(enabled bool) *palette {
	p := &palette{
		keyword: color.New(color.FgBlue),
		name:    color.New(color.FgCyan),
		section: color.New(color.FgGreen),
		comment: color.New(color.FgHiBlack),
		dtype:   color.New(color.FgMagenta),
		attr:    color.New(color.FgYellow),
		number:  color.New(color.FgYellow),
		str:     color.New(color.FgRed),
		boolean: color.New(color.FgMagenta),
		plain:   color.New(color.FgWhite),
		info:    color.New(color.FgCyan),
		warn:    color.New(color.FgYellow, color.Bold),
		fail:    color.New(color.FgRed, color.Bold),
	}
	if !enabled {
		for _, c := range []*color.Color{
			p.keyword, p.name, p.section, p.comment, p.dtype, p.attr,
			p.number, p.str, p.boolean, p.plain, p.info, p.warn, p.fail,
		} {
			c.DisableColor()
		}
	}
	return p
}

func (p *palette) level(l cf.Level) *color.Color {
	switch l {
	case cf.Warning:
		return p.warn
	case cf.Error:
		return p.fail
	}
	return p.info
}
