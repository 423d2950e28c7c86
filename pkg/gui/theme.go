package gui

import (
	"errors"
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Terminal safe color palette is available here
// Themes should be limited to the colors defined in this reference
// https://upload.wikimedia.org/wikipedia/commons/1/15/Xterm_256color_chart.svg

// Theme is used for dynamically coloring the UI
type Theme struct {
	Name         string
	MoveLabelBg  tcell.Color
	MoveLabelFg  tcell.Color
	SquareDark   tcell.Color
	SquareLight  tcell.Color
	SquareLast   tcell.Color
	SquareSelect tcell.Color
	SquareTarget tcell.Color
	SquareCheck  tcell.Color
	White        tcell.Color
	Black        tcell.Color
	Rank         tcell.Color
	File         tcell.Color
	MeterWin     tcell.Color
	MeterDraw    tcell.Color
	MeterLose    tcell.Color
	EvalWhite    tcell.Color
	EvalBlack    tcell.Color
	Msg          tcell.Color
}

// ThemeHex is the config file form of a Theme
type ThemeHex struct {
	Name         string `json:"name" mapstructure:"name"`
	MoveLabelBg  string `json:"moveLabelBg" mapstructure:"moveLabelBg"`
	MoveLabelFg  string `json:"moveLabelFg" mapstructure:"moveLabelFg"`
	SquareDark   string `json:"squareDark" mapstructure:"squareDark"`
	SquareLight  string `json:"squareLight" mapstructure:"squareLight"`
	SquareLast   string `json:"squareLast" mapstructure:"squareLast"`
	SquareSelect string `json:"squareSelect" mapstructure:"squareSelect"`
	SquareTarget string `json:"squareTarget" mapstructure:"squareTarget"`
	SquareCheck  string `json:"squareCheck" mapstructure:"squareCheck"`
	White        string `json:"white" mapstructure:"white"`
	Black        string `json:"black" mapstructure:"black"`
	Rank         string `json:"rank" mapstructure:"rank"`
	File         string `json:"file" mapstructure:"file"`
	MeterWin     string `json:"meterWin" mapstructure:"meterWin"`
	MeterDraw    string `json:"meterDraw" mapstructure:"meterDraw"`
	MeterLose    string `json:"meterLose" mapstructure:"meterLose"`
	EvalWhite    string `json:"evalWhite" mapstructure:"evalWhite"`
	EvalBlack    string `json:"evalBlack" mapstructure:"evalBlack"`
	Msg          string `json:"msg" mapstructure:"msg"`
}

// fmtHex returns a one character hex for the ColorDefault
// and otherwise it returns a standard hex. This is useful
// because it allows ColorDefault to be imported from the config
// and parsed properly rather than being interpreted as black
func fmtHex(v int32) string {
	if v == -1 {
		return "#0"
	}
	return fmt.Sprintf("#%06x", v)
}

// Hex converts a Theme to a ThemeHex
func (t Theme) Hex() ThemeHex {
	return ThemeHex{
		t.Name,
		fmtHex(t.MoveLabelBg.Hex()),
		fmtHex(t.MoveLabelFg.Hex()),
		fmtHex(t.SquareDark.Hex()),
		fmtHex(t.SquareLight.Hex()),
		fmtHex(t.SquareLast.Hex()),
		fmtHex(t.SquareSelect.Hex()),
		fmtHex(t.SquareTarget.Hex()),
		fmtHex(t.SquareCheck.Hex()),
		fmtHex(t.White.Hex()),
		fmtHex(t.Black.Hex()),
		fmtHex(t.Rank.Hex()),
		fmtHex(t.File.Hex()),
		fmtHex(t.MeterWin.Hex()),
		fmtHex(t.MeterDraw.Hex()),
		fmtHex(t.MeterLose.Hex()),
		fmtHex(t.EvalWhite.Hex()),
		fmtHex(t.EvalBlack.Hex()),
		fmtHex(t.Msg.Hex()),
	}
}

// Theme converts a ThemeHex to a Theme
func (t ThemeHex) Theme() Theme {
	return Theme{
		t.Name,
		tcell.GetColor(t.MoveLabelBg),
		tcell.GetColor(t.MoveLabelFg),
		tcell.GetColor(t.SquareDark),
		tcell.GetColor(t.SquareLight),
		tcell.GetColor(t.SquareLast),
		tcell.GetColor(t.SquareSelect),
		tcell.GetColor(t.SquareTarget),
		tcell.GetColor(t.SquareCheck),
		tcell.GetColor(t.White),
		tcell.GetColor(t.Black),
		tcell.GetColor(t.Rank),
		tcell.GetColor(t.File),
		tcell.GetColor(t.MeterWin),
		tcell.GetColor(t.MeterDraw),
		tcell.GetColor(t.MeterLose),
		tcell.GetColor(t.EvalWhite),
		tcell.GetColor(t.EvalBlack),
		tcell.GetColor(t.Msg),
	}
}

var ErrNoTheme = errors.New("theme: no theme found")

// ImportThemes returns a converted Theme from a slice of ThemeHex
// entities if its name matches the want argument
func ImportThemes(want string, themes []ThemeHex) (Theme, error) {
	// First check if want is in the provided config (override)
	for _, t := range themes {
		if t.Name == want {
			return t.Theme(), nil
		}
	}
	for _, t := range []Theme{ThemeBasic, ThemeNight} {
		if t.Name == want {
			return t, nil
		}
	}
	return Theme{}, ErrNoTheme
}

// ThemeBasic is the default theme
var ThemeBasic = Theme{
	"basic",            // Name
	tcell.Color252,     // MoveLabelBg
	tcell.ColorBlack,   // MoveLabelFg
	tcell.Color188,     // SquareDark
	tcell.Color230,     // SquareLight
	tcell.Color150,     // SquareLast
	tcell.Color226,     // SquareSelect
	tcell.Color223,     // SquareTarget
	tcell.Color218,     // SquareCheck
	tcell.Color232,     // White
	tcell.Color232,     // Black
	tcell.Color247,     // Rank
	tcell.Color247,     // File
	tcell.Color70,      // MeterWin
	tcell.Color245,     // MeterDraw
	tcell.Color160,     // MeterLose
	tcell.Color255,     // EvalWhite
	tcell.Color236,     // EvalBlack
	tcell.ColorDefault, // Msg
}

// ThemeNight follows the colours of the desktop board
var ThemeNight = Theme{
	"night",
	tcell.Color236,
	tcell.Color252,
	tcell.Color23,  // darkslategray
	tcell.Color230, // antiquewhite
	tcell.Color107,
	tcell.Color220,
	tcell.Color151,
	tcell.Color196,
	tcell.Color255,
	tcell.Color16,
	tcell.Color244,
	tcell.Color244,
	tcell.Color71,
	tcell.Color245,
	tcell.Color167,
	tcell.Color255,
	tcell.Color16,
	tcell.Color160,
}
