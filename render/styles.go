package render

// Styles are CSS colour strings for every element the pipeline draws.
type Styles struct {
	Background string `json:"background" yaml:"background"`
	Grid       string `json:"grid" yaml:"grid"`
	Text       string `json:"text" yaml:"text"`
	LegendText string `json:"legend_text" yaml:"legend_text"`
	Crosshair  string `json:"crosshair" yaml:"crosshair"`
	Selection  string `json:"selection" yaml:"selection"`

	Up         string `json:"up" yaml:"up"`
	Down       string `json:"down" yaml:"down"`
	UpBright   string `json:"up_bright" yaml:"up_bright"`
	DownBright string `json:"down_bright" yaml:"down_bright"`
	UpDim      string `json:"up_dim" yaml:"up_dim"`
	DownDim    string `json:"down_dim" yaml:"down_dim"`
}

func DefaultStyles() Styles {
	return Styles{
		Background: "#fff",
		Grid:       "#ddd",
		Text:       "#000",
		LegendText: "#fff",
		Crosshair:  "#000",
		Selection:  "#07f",
		Up:         "#5f5",
		Down:       "#f55",
		UpBright:   "#0f0",
		DownBright: "#f00",
		UpDim:      "#afa",
		DownDim:    "#faa",
	}
}

// candle picks the body colour; highlighted candles use the bright variant.
func (s Styles) candle(up, highlight bool) string {
	switch {
	case highlight && up:
		return s.UpBright
	case highlight:
		return s.DownBright
	case up:
		return s.Up
	default:
		return s.Down
	}
}

// volume picks the volume bar colour, one step dimmer than the body.
func (s Styles) volume(up, highlight bool) string {
	switch {
	case highlight && up:
		return s.Up
	case highlight:
		return s.Down
	case up:
		return s.UpDim
	default:
		return s.DownDim
	}
}

func (s Styles) trend(up bool) string {
	if up {
		return s.Up
	}
	return s.Down
}
