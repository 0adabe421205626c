package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"time"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/roman-kulish/marker-navigation/internal/nav"
)

const (
	dpi            = 120.0
	fontSize       = 12.0
	tickMarkHeight = 5
	pixelsPerLabel = 150.0

	// Default border sizes in pixels
	defaultTopBorder    = 40
	defaultLeftBorder   = 110
	defaultBottomBorder = 40
	defaultRightBorder  = 40

	defaultTimeFormat = "15:04:05"

	// Panel sizes in pixels
	heightPanelHeight   = 120
	distancePanelHeight = 100
	controlRowHeight    = 24
	phaseBandHeight     = 12
	panelGap            = 14
)

var (
	heightColor    = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}
	setpointColor  = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	distanceColor  = color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}
	panelFrameGray = color.RGBA{R: 0xc0, G: 0xc0, B: 0xc0, A: 0xff}

	phaseColors = map[nav.Phase]color.Color{
		nav.PhaseTakeoff:     color.RGBA{R: 0x9e, G: 0x9e, B: 0x9e, A: 0xff},
		nav.PhaseAligning:    color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
		nav.PhaseApproaching: color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
		nav.PhaseLanding:     color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
	}

	controlRows = []struct {
		label string
		value func(c nav.Command) int
	}{
		{"lateral", func(c nav.Command) int { return c.LeftRight }},
		{"longitudinal", func(c nav.Command) int { return c.ForwardBackward }},
		{"vertical", func(c nav.Command) int { return c.UpDown }},
		{"yaw", func(c nav.Command) int { return c.Yaw }},
	}
)

// BorderConfig defines the sizes of white space around the panels
type BorderConfig struct {
	Top    int // Space for the title
	Left   int // Space for panel labels
	Bottom int // Space for the information bar
	Right  int // Right padding
}

// RenderConfig holds all configuration options for flight visualization
type RenderConfig struct {
	TimeFormat string         // Format string for time display
	Location   *time.Location // Timezone for time display

	FontSize   float64    // Font size in points
	FontPath   string     // Path to a TTF font
	ColorTheme ColorTheme // Color scheme for control intensity

	BorderConfig BorderConfig
}

// FlightRenderer draws one recorded flight as stacked panels: the height
// trace, the marker distance trace, a four-row control heatmap and the
// phase band.
type FlightRenderer struct {
	colorMap *ColorMapper
	config   RenderConfig
}

// NewFlightRenderer creates a new flight renderer with the given configuration
func NewFlightRenderer(config RenderConfig) (*FlightRenderer, error) {
	if config.FontPath == "" {
		return nil, fmt.Errorf("font path is required")
	}
	if config.TimeFormat == "" {
		config.TimeFormat = defaultTimeFormat
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	return &FlightRenderer{config: config}, nil
}

// Render creates an image of the flight data with annotations
func (r *FlightRenderer) Render(data *FlightData, stats *FlightStats) (*image.RGBA, error) {
	if data.Width() == 0 {
		return nil, fmt.Errorf("no records to render")
	}

	panelsHeight := heightPanelHeight + panelGap +
		distancePanelHeight + panelGap +
		len(controlRows)*controlRowHeight + panelGap +
		phaseBandHeight

	fullWidth := data.Width() + r.config.BorderConfig.Left + r.config.BorderConfig.Right
	fullHeight := panelsHeight + r.config.BorderConfig.Top + r.config.BorderConfig.Bottom
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))

	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	if r.colorMap == nil {
		r.colorMap = NewColorMapper(r.config.ColorTheme, float64(data.CommandLimit))
	}

	ann, err := newAnnotator(annotatorConfig{
		TimeFormat: r.config.TimeFormat,
		Location:   r.config.Location,
		FontSize:   r.config.FontSize,
		FontPath:   r.config.FontPath,
		Borders:    r.config.BorderConfig,
	})
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()

	left := r.config.BorderConfig.Left
	y := r.config.BorderConfig.Top

	heightArea := image.Rect(left, y, left+data.Width(), y+heightPanelHeight)
	y += heightPanelHeight + panelGap

	distanceArea := image.Rect(left, y, left+data.Width(), y+distancePanelHeight)
	y += distancePanelHeight + panelGap

	controlArea := image.Rect(left, y, left+data.Width(), y+len(controlRows)*controlRowHeight)
	y += len(controlRows)*controlRowHeight + panelGap

	phaseArea := image.Rect(left, y, left+data.Width(), y+phaseBandHeight)

	r.renderHeightTrace(img, heightArea, data)
	r.renderDistanceTrace(img, distanceArea, data)
	r.renderControlHeatmap(img, controlArea, data)
	r.renderPhaseBand(img, phaseArea, data)

	if err = ann.annotate(img, data, stats, heightArea, distanceArea, controlArea, phaseArea); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}

	return img, nil
}

func (r *FlightRenderer) renderHeightTrace(img *image.RGBA, area image.Rectangle, data *FlightData) {
	frameRect(img, area)

	span := data.HeightMax - data.HeightMin
	if span <= 0 {
		span = 1
	}

	for x, record := range data.Records {
		plotPoint(img, area, x, (record.TargetHeight-data.HeightMin)/span, setpointColor)
		plotPoint(img, area, x, (record.Height-data.HeightMin)/span, heightColor)
	}
}

func (r *FlightRenderer) renderDistanceTrace(img *image.RGBA, area image.Rectangle, data *FlightData) {
	frameRect(img, area)

	if data.DistanceMax <= 0 {
		return
	}

	for x, record := range data.Records {
		if record.MarkerDist == nil {
			continue
		}
		plotPoint(img, area, x, *record.MarkerDist/data.DistanceMax, distanceColor)
	}
}

func (r *FlightRenderer) renderControlHeatmap(img *image.RGBA, area image.Rectangle, data *FlightData) {
	for row, axis := range controlRows {
		rowTop := area.Min.Y + row*controlRowHeight
		for x, record := range data.Records {
			c := r.colorMap.GetColor(axis.value(record.Command))
			for y := rowTop; y < rowTop+controlRowHeight; y++ {
				img.Set(area.Min.X+x, y, c)
			}
		}
	}
}

func (r *FlightRenderer) renderPhaseBand(img *image.RGBA, area image.Rectangle, data *FlightData) {
	for x, record := range data.Records {
		c, ok := phaseColors[record.Phase]
		if !ok {
			c = color.Black
		}
		for y := area.Min.Y; y < area.Max.Y; y++ {
			img.Set(area.Min.X+x, y, c)
		}
	}
}

// plotPoint draws a value normalized to [0, 1] as a 2px dot within the
// panel, zero at the bottom edge.
func plotPoint(img *image.RGBA, area image.Rectangle, x int, normalized float64, c color.Color) {
	normalized = math.Max(0, math.Min(1, normalized))
	y := area.Max.Y - 1 - int(normalized*float64(area.Dy()-1))

	img.Set(area.Min.X+x, y, c)
	if y+1 < area.Max.Y {
		img.Set(area.Min.X+x, y+1, c)
	}
}

func frameRect(img *image.RGBA, area image.Rectangle) {
	for x := area.Min.X; x < area.Max.X; x++ {
		img.Set(x, area.Min.Y, panelFrameGray)
		img.Set(x, area.Max.Y-1, panelFrameGray)
	}
	for y := area.Min.Y; y < area.Max.Y; y++ {
		img.Set(area.Min.X, y, panelFrameGray)
		img.Set(area.Max.X-1, y, panelFrameGray)
	}
}

// Internal annotator implementation
type annotatorConfig struct {
	TimeFormat string
	Location   *time.Location
	FontSize   float64
	FontPath   string
	Borders    BorderConfig
}

type annotator struct {
	context  *freetype.Context
	config   annotatorConfig
	fontFace font.Face
}

func newAnnotator(config annotatorConfig) (*annotator, error) {
	fontBytes, err := os.ReadFile(config.FontPath)
	if err != nil {
		return nil, fmt.Errorf("reading font file: %w", err)
	}

	parsedFont, err := freetype.ParseFont(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, data *FlightData, stats *FlightStats, heightArea, distanceArea, controlArea, phaseArea image.Rectangle) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	labels := []struct {
		text string
		area image.Rectangle
	}{
		{"height, cm", heightArea},
		{"marker dist", distanceArea},
		{"phase", phaseArea},
	}
	for _, l := range labels {
		if err := a.drawPanelLabel(l.text, l.area.Min.Y+l.area.Dy()/2); err != nil {
			return fmt.Errorf("drawing panel label: %w", err)
		}
	}
	for row, axis := range controlRows {
		centerY := controlArea.Min.Y + row*controlRowHeight + controlRowHeight/2
		if err := a.drawPanelLabel(axis.label, centerY); err != nil {
			return fmt.Errorf("drawing panel label: %w", err)
		}
	}

	if err := a.drawTimeScale(img, data, phaseArea); err != nil {
		return fmt.Errorf("drawing time scale: %w", err)
	}
	if err := a.drawInfoBar(img, stats); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}

	return nil
}

func (a *annotator) drawPanelLabel(label string, centerY int) error {
	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := centerY + fontHeight/2 - metrics.Descent.Round()

	pt := freetype.Pt(10, textY)
	_, err := a.context.DrawString(label, pt)
	return err
}

func (a *annotator) drawTimeScale(img *image.RGBA, data *FlightData, bottomArea image.Rectangle) error {
	duration := data.TimestampEnd.Sub(data.TimestampStart)
	if duration <= 0 || data.Width() < 2 {
		return nil
	}

	count := max(2, int(float64(data.Width())/pixelsPerLabel))
	step := duration / time.Duration(count)

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := bottomArea.Max.Y + tickMarkHeight + fontHeight

	for i := 0; i <= count; i++ {
		ts := data.TimestampStart.Add(step * time.Duration(i))
		xRatio := ts.Sub(data.TimestampStart).Seconds() / duration.Seconds()
		x := bottomArea.Min.X + int(xRatio*float64(data.Width()-1))

		for y := bottomArea.Max.Y; y < bottomArea.Max.Y+tickMarkHeight; y++ {
			img.Set(x, y, color.Black)
		}

		label := ts.In(a.config.Location).Format(a.config.TimeFormat)
		width := font.MeasureString(a.fontFace, label)
		pt := freetype.Pt(x-(width.Round()/2), textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, stats *FlightStats) error {
	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := img.Bounds().Max.Y - (a.config.Borders.Bottom-fontHeight)/2 - metrics.Descent.Round()

	pt := freetype.Pt(a.config.Borders.Left, textY)
	if _, err := a.context.DrawString(stats.Summary(), pt); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}

	return nil
}
