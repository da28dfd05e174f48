// Package screen lays telemetry out on a 128x64 display as four 64x32
// quadrants and decides what to redraw on each refresh.
package screen

import (
	"fmt"
	"strings"

	"github.com/DrJosh9000/hudl/font"
	"github.com/DrJosh9000/hudl/telemetry"
)

const (
	displayWidth = 2 * QuadrantWidth
	displayPages = 2 * QuadrantPages
)

// DefaultRollover is the number of renders a telemetry page stays up.
const DefaultRollover = 255

// ErrorTitle heads the error page.
const ErrorTitle = "!!! Error !!!"

// Surface is the drawing API the engine needs. *lcd.ST7565 implements it.
type Surface interface {
	ClearScreen()
	ClearRegion(width, height, page, column int)
	WriteText(s string, page, column int, f *font.Font)
}

// Page is a screen of the display.
type Page int

// Pages.
const (
	PageOne Page = iota
	PageTwo
	ErrorPage
)

func (p Page) String() string {
	switch p {
	case PageOne:
		return "PageOne"
	case PageTwo:
		return "PageTwo"
	case ErrorPage:
		return "ErrorPage"
	}
	return fmt.Sprintf("Page(%d)", int(p))
}

// StatusPolicy says what to do with an unknown status word.
type StatusPolicy int

// Status policies.
const (
	// StatusHex shows the word in hex in the status quadrant.
	StatusHex StatusPolicy = iota
	// StatusErrorPage switches to the error page until ClearError.
	StatusErrorPage
)

// ParseStatusPolicy parses "hex" or "error_page".
func ParseStatusPolicy(s string) (StatusPolicy, error) {
	switch strings.ToLower(s) {
	case "hex", "":
		return StatusHex, nil
	case "error_page":
		return StatusErrorPage, nil
	}
	return 0, fmt.Errorf("screen: unknown status policy %q", s)
}

// Config tunes an Engine.
type Config struct {
	// Rollover is the number of renders before the telemetry page flips.
	// Zero means DefaultRollover; negative never flips.
	Rollover int
	Policy   StatusPolicy
	Large    *font.Font // headers and values, font.Large if nil
	Small    *font.Font // error messages, font.Small if nil
}

type quadrant struct {
	header  string
	value   func(*telemetry.State) string
	numeric bool // never cut short; shrinks or saturates instead
}

func statusValue(s *telemetry.State) string {
	v, _ := FormatStatus(s.StatusWord())
	return v
}

var layouts = [...][numCorners]quadrant{
	PageOne: {
		TopLeft:     {header: "Bat V", value: func(s *telemetry.State) string { return FormatVoltage(s.TotalVoltage()) }},
		TopRight:    {header: "Temp", value: func(s *telemetry.State) string { return FormatTemp(s.MaxTemp()) }},
		BottomLeft:  {header: "RPM", value: func(s *telemetry.State) string { return FormatInt(int64(s.Velocity())) }, numeric: true},
		BottomRight: {header: "MC Stat", value: statusValue},
	},
	PageTwo: {
		TopLeft:     {header: "Torque", value: func(s *telemetry.State) string { return FormatInt(int64(s.Torque())) }, numeric: true},
		TopRight:    {header: "Position", value: func(s *telemetry.State) string { return FormatInt(int64(s.Position())) }, numeric: true},
		BottomLeft:  {header: "Temp Lo", value: func(s *telemetry.State) string { return FormatTemp(s.MinTemp()) }},
		BottomRight: {header: "MC Stat", value: statusValue},
	},
}

// Engine renders telemetry onto a Surface. It keeps track of which page is
// up and whether its static parts have been drawn, so steady-state renders
// only rewrite the data bands. It is not safe for concurrent use.
type Engine struct {
	surf  Surface
	state *telemetry.State
	cfg   Config

	page         Page
	resume       Page
	headersDrawn bool
	renders      int
	message      string
}

// New returns an engine showing PageOne.
func New(surf Surface, state *telemetry.State, cfg Config) *Engine {
	if cfg.Rollover == 0 {
		cfg.Rollover = DefaultRollover
	}
	if cfg.Large == nil {
		cfg.Large = font.Large
	}
	if cfg.Small == nil {
		cfg.Small = font.Small
	}
	return &Engine{surf: surf, state: state, cfg: cfg}
}

// Page returns the current page.
func (e *Engine) Page() Page { return e.page }

// HeadersDrawn reports whether the static parts of the current page are on
// the display.
func (e *Engine) HeadersDrawn() bool { return e.headersDrawn }

// Message returns the error page message.
func (e *Engine) Message() string { return e.message }

// SetPage switches to a telemetry page and restarts its rollover count.
func (e *Engine) SetPage(p Page) {
	if p != PageOne && p != PageTwo {
		return
	}
	if e.page == ErrorPage {
		e.resume = p
		return
	}
	e.page = p
	e.renders = 0
	e.headersDrawn = false
}

// ShowError switches to the error page with msg. It stays there until
// ClearError.
func (e *Engine) ShowError(msg string) {
	if e.page != ErrorPage {
		e.resume = e.page
	}
	e.page = ErrorPage
	e.message = msg
	e.headersDrawn = false
}

// ClearError leaves the error page for the page that was up before it.
func (e *Engine) ClearError() {
	if e.page != ErrorPage {
		return
	}
	e.page = e.resume
	e.message = ""
	e.renders = 0
	e.headersDrawn = false
}

// Render draws the current page. Headers are drawn after a full clear the
// first time a page is shown; every render rewrites each data band.
func (e *Engine) Render() {
	if e.page != ErrorPage && e.cfg.Policy == StatusErrorPage {
		if _, ok := FormatStatus(e.state.StatusWord()); !ok {
			e.ShowError(fmt.Sprintf("Unknown motor controller status 0x%X", e.state.StatusWord()))
		}
	}
	if e.page == ErrorPage {
		e.renderError()
		return
	}

	layout := &layouts[e.page]
	if !e.headersDrawn {
		e.surf.ClearScreen()
		for _, c := range Corners() {
			e.drawCentered(HeaderRegion(c), layout[c].header, e.cfg.Large, false)
		}
		e.headersDrawn = true
	}
	for _, c := range Corners() {
		e.drawValue(DataRegion(c), layout[c])
	}

	if e.cfg.Rollover < 0 {
		return
	}
	e.renders++
	if e.renders >= e.cfg.Rollover {
		e.renders = 0
		e.page = 1 - e.page
		e.headersDrawn = false
	}
}

// drawValue writes a quadrant's value in its data band. Numbers too wide
// for the large font use the small font, and failing that a saturated
// marker, so digits are never dropped.
func (e *Engine) drawValue(r Region, q quadrant) {
	text := q.value(e.state)
	if !q.numeric {
		e.drawCentered(r, text, e.cfg.Large, true)
		return
	}
	for _, f := range []*font.Font{e.cfg.Large, e.cfg.Small} {
		if f.TextWidth(text) <= r.Width {
			e.drawCentered(r, text, f, true)
			return
		}
	}
	e.drawCentered(r, Saturate(text, r.Width/e.cfg.Large.Width), e.cfg.Large, true)
}

// drawCentered writes text in font f centred in r, truncating it to fit.
func (e *Engine) drawCentered(r Region, text string, f *font.Font, clear bool) {
	if n := r.Width / f.Width; len([]rune(text)) > n {
		text = string([]rune(text)[:n])
	}
	pad := (r.Width - f.TextWidth(text)) / 2
	if clear {
		e.surf.ClearRegion(r.Width, r.Height, r.Page, r.Column)
	}
	e.surf.WriteText(text, r.Page, r.Column+pad, f)
}

func (e *Engine) renderError() {
	if e.headersDrawn {
		return
	}
	e.surf.ClearScreen()
	e.drawCentered(Region{Width: displayWidth, Height: HeaderPages * 8}, ErrorTitle, e.cfg.Large, false)

	small := e.cfg.Small
	page := HeaderPages
	for _, line := range Wrap(e.message, displayWidth/small.Width) {
		if page+small.Pages > displayPages {
			break
		}
		e.surf.WriteText(line, page, 0, small)
		page += small.Pages
	}
	e.headersDrawn = true
}

// Wrap breaks s into lines of at most cols runes, splitting at spaces where
// possible and inside words that are longer than a line.
func Wrap(s string, cols int) []string {
	if cols < 1 {
		return nil
	}
	var lines []string
	var line []rune
	for _, w := range strings.Fields(s) {
		word := []rune(w)
		for len(word) > cols {
			if len(line) > 0 {
				lines = append(lines, string(line))
				line = nil
			}
			lines = append(lines, string(word[:cols]))
			word = word[cols:]
		}
		switch {
		case len(line) == 0:
			line = append(line, word...)
		case len(line)+1+len(word) <= cols:
			line = append(append(line, ' '), word...)
		default:
			lines = append(lines, string(line))
			line = append([]rune(nil), word...)
		}
	}
	if len(line) > 0 {
		lines = append(lines, string(line))
	}
	return lines
}
